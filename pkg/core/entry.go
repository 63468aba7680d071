package core

import "treevault/pkg/types"

// Entry 是遍历时产出的轻量描述符，还没有物化成 Blob/Tree
// Path 相对于发起遍历的那棵树
type Entry struct {
	Name string
	Path string
	Mode FileMode
	ID   types.Hash
}

func (e Entry) Kind() Kind { return e.Mode.Kind() }
