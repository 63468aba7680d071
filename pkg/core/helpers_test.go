package core

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"treevault/pkg/types"

	"github.com/stretchr/testify/require"
)

// mockHash 生成一个合法的 32 字节 Hex 字符串 (64字符长度)
// 用于满足 Link 对 Hex 格式的要求
func mockHash(input string) types.Hash {
	sum := sha256.Sum256([]byte(input))
	return types.Hash(hex.EncodeToString(sum[:]))
}

// mustNewCommit 创建 Commit，如果失败直接终止测试
func mustNewCommit(t *testing.T, treeHash types.Hash, parents []types.Hash, author, msg string, msgAndArgs ...any) *Commit {
	t.Helper()
	c, err := NewCommit(treeHash, parents, author, msg)
	require.NoError(t, err, msgAndArgs...)
	return c
}

func mustNewTree(t *testing.T, entries ...TreeEntry) *Tree {
	t.Helper()
	tree, err := NewTree(entries)
	require.NoError(t, err)
	return tree
}
