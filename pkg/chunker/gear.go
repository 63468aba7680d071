package chunker

// gearTable 是 Gear Hash 的 256 项随机表
// 用固定种子的 splitmix64 生成，保证不同进程切出相同的块
var gearTable = newGearTable(0x9e3779b97f4a7c15)

func newGearTable(seed uint64) [256]uint64 {
	var table [256]uint64
	state := seed
	for i := range table {
		state += 0x9e3779b97f4a7c15
		z := state
		z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
		z = (z ^ (z >> 27)) * 0x94d049bb133111eb
		table[i] = z ^ (z >> 31)
	}
	return table
}
