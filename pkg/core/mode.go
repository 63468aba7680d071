package core

import "strconv"

// FileMode 是 Git 风格的文件模式位
type FileMode uint32

const (
	ModeTree       FileMode = 0o040000
	ModeRegular    FileMode = 0o100644
	ModeExecutable FileMode = 0o100755
	ModeSymlink    FileMode = 0o120000
	ModeGitlink    FileMode = 0o160000
)

// Kind 区分树节点和叶子节点
type Kind uint8

const (
	KindBlob Kind = iota + 1
	KindTree
)

func (k Kind) String() string {
	switch k {
	case KindBlob:
		return "blob"
	case KindTree:
		return "tree"
	default:
		return "unknown"
	}
}

// Kind 根据模式位判断对象类型
// 只有目录是 Tree，其余都按 Blob 处理。
// 子模块 (ModeGitlink) 指向外部仓库的 Commit，本库无法读取其内容，NewTree 也拒绝写入。
func (m FileMode) Kind() Kind {
	if m&0o170000 == ModeTree {
		return KindTree
	}
	return KindBlob
}

func (m FileMode) IsDir() bool { return m.Kind() == KindTree }

// String 返回 git ls-tree 风格的 6 位八进制
func (m FileMode) String() string {
	s := strconv.FormatUint(uint64(m), 8)
	for len(s) < 6 {
		s = "0" + s
	}
	return s
}

// ParseFileMode 解析八进制模式字符串 ("100644", "40000" 都可以)
func ParseFileMode(s string) (FileMode, error) {
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, err
	}
	return FileMode(v), nil
}
