package chunker

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunker_Deterministic(t *testing.T) {
	// 1. 准备数据：100KB 随机数据
	data := make([]byte, 100*1024)
	rand.Read(data)

	c := NewChunker()

	// 2. 第一次切分
	cuts1 := c.Cut(data)
	assert.NotEmpty(t, cuts1)
	assert.Equal(t, len(data), cuts1[len(cuts1)-1], "最后一块必须结束于文件末尾")

	// 3. 第二次切分 (验证确定性)
	cuts2 := c.Cut(data)
	assert.Equal(t, cuts1, cuts2, "对于相同数据，切分点必须完全一致")
}

func TestChunker_MinMaxConstraints(t *testing.T) {
	// 全 0 数据容易触发 worst-case
	data := make([]byte, 200*1024)
	c := NewChunker()
	cuts := c.Cut(data)

	start := 0
	for i, end := range cuts {
		size := end - start

		// 最后一块可能小于 MinSize，这是允许的
		if i < len(cuts)-1 {
			assert.GreaterOrEqual(t, size, MinSize, "Chunk %d size %d too small", i, size)
		}
		assert.LessOrEqual(t, size, MaxSize, "Chunk %d size %d too large", i, size)

		start = end
	}
	assert.Equal(t, len(data), start)
}

func TestChunker_SmallInputs(t *testing.T) {
	c := NewChunker()

	assert.Nil(t, c.Cut(nil), "空数据没有切点")
	assert.Equal(t, []int{5}, c.Cut([]byte("hello")))
	assert.Equal(t, []int{MinSize}, c.Cut(make([]byte, MinSize)))
}

func TestGearTable_Stable(t *testing.T) {
	again := newGearTable(0x9e3779b97f4a7c15)
	assert.Equal(t, gearTable, again)

	seen := make(map[uint64]bool, len(gearTable))
	for _, v := range gearTable {
		seen[v] = true
	}
	assert.Len(t, seen, 256, "表项不能重复")
}
