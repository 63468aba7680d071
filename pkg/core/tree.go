package core

import (
	"fmt"
	"sort"
	"strings"

	"treevault/pkg/types"
)

// TreeEntry 是 Tree 中的一个条目
type TreeEntry struct {
	Name string   `cbor:"n"`
	Mode FileMode `cbor:"m"`
	Cid  Link     `cbor:"h"`
}

func (e TreeEntry) Kind() Kind { return e.Mode.Kind() }

type Tree struct {
	hash     types.Hash `cbor:"-"`
	rawBytes []byte     `cbor:"-"`

	TypeVal ObjectType  `cbor:"t"`
	Entries []TreeEntry `cbor:"e"`
}

// NewTree 创建一个新的目录树节点
// 条目按名字的字节序排序，这也是遍历时的"存储原生顺序"
func NewTree(entries []TreeEntry) (*Tree, error) {
	sorted := make([]TreeEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	for i, e := range sorted {
		if err := ValidateEntryName(e.Name); err != nil {
			return nil, err
		}
		if e.Mode == ModeGitlink {
			return nil, fmt.Errorf("tree entry %q: gitlink entries are not supported", e.Name)
		}
		if i > 0 && sorted[i-1].Name == e.Name {
			return nil, fmt.Errorf("duplicate tree entry %q", e.Name)
		}
	}

	t := &Tree{
		TypeVal: TypeTree,
		Entries: sorted,
	}
	h, b, err := CalculateHash(t)
	if err != nil {
		return nil, err
	}
	t.hash = h
	t.rawBytes = b
	return t, nil
}

// DecodeTree 从存储的字节还原 Tree
func DecodeTree(data []byte) (*Tree, error) {
	var t Tree
	if err := DecodeObject(data, &t); err != nil {
		return nil, err
	}
	if t.TypeVal != TypeTree {
		return nil, ErrTypeMismatch{Want: TypeTree, Got: t.TypeVal}
	}
	t.hash = CalculateBlobHash(data)
	t.rawBytes = data
	return &t, nil
}

// Lookup 在一层条目中按名字查找 (条目已排序，用二分)
func (t *Tree) Lookup(name string) (TreeEntry, bool) {
	i := sort.Search(len(t.Entries), func(i int) bool { return t.Entries[i].Name >= name })
	if i < len(t.Entries) && t.Entries[i].Name == name {
		return t.Entries[i], true
	}
	return TreeEntry{}, false
}

// ValidateEntryName 拒绝空名字和包含路径分隔符的名字
func ValidateEntryName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("tree entry name is empty")
	case name == "." || name == "..":
		return fmt.Errorf("invalid tree entry name %q", name)
	case strings.ContainsAny(name, "/\x00"):
		return fmt.Errorf("tree entry name %q contains a separator", name)
	}
	return nil
}

func (t *Tree) Type() ObjectType { return TypeTree }
func (t *Tree) ID() types.Hash   { return t.hash }
func (t *Tree) Bytes() []byte    { return t.rawBytes }
