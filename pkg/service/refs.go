package service

import (
	"context"
	"errors"

	"treevault/pkg/refs"
	"treevault/pkg/types"
)

// Ref 是引用的 JSON 视图
type Ref struct {
	Name    string     `json:"name"`
	Hash    types.Hash `json:"hash"`
	Version int64      `json:"version"`
}

// RefLister 列出引用；没有配置引用数据库时为 nil
type RefLister struct {
	refs *refs.Manager
}

func NewRefLister(m *refs.Manager) *RefLister {
	return &RefLister{refs: m}
}

// List 返回以 prefix 开头的引用，HEAD 总是排在第一个 (如果存在)
func (l *RefLister) List(ctx context.Context, prefix string) ([]Ref, error) {
	if l == nil || l.refs == nil {
		return nil, nil
	}
	all, err := l.refs.ListRefs(ctx, prefix)
	if err != nil {
		return nil, err
	}

	out := make([]Ref, 0, len(all))
	for _, r := range all {
		ref := Ref{Name: r.Name, Hash: r.CommitHash, Version: r.Version}
		if r.Name == refs.Head {
			out = append([]Ref{ref}, out...)
			continue
		}
		out = append(out, ref)
	}
	return out, nil
}

// Head 返回 HEAD；仓库为空时返回 ErrNotFound
func (l *RefLister) Head(ctx context.Context) (Ref, error) {
	if l == nil || l.refs == nil {
		return Ref{}, ErrNotFound
	}
	hash, ver, err := l.refs.GetHead(ctx)
	if errors.Is(err, refs.ErrNoHead) {
		return Ref{}, ErrNotFound
	}
	if err != nil {
		return Ref{}, err
	}
	return Ref{Name: refs.Head, Hash: hash, Version: ver}, nil
}
