// Package service 把导航层的对象转换成对外的只读视图，供 HTTP 层使用
package service

import (
	"context"
	"encoding/base64"
	"errors"
	"path"
	"unicode/utf8"

	"treevault/pkg/gitobj"
	"treevault/pkg/types"
)

// ErrNotFound 表示引用或路径解析不到
var ErrNotFound = errors.New("not found")

// Entry 是一个树条目的 JSON 视图。目录带 Entries，文件带 Contents。
type Entry struct {
	Name string     `json:"name"`
	Path string     `json:"path"`
	Type string     `json:"type"`
	Mode string     `json:"mode"`
	Hash types.Hash `json:"hash"`

	// 文件
	Size     *int64 `json:"size,omitempty"`
	Binary   *bool  `json:"binary,omitempty"`
	Lines    *int   `json:"lines,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Contents string `json:"contents,omitempty"`
	Encoding string `json:"encoding,omitempty"` // utf-8 | base64

	// 目录
	Entries   []*Entry `json:"entries,omitempty"`
	Truncated bool     `json:"truncated,omitempty"`
}

// TreeQuery 描述一次浏览请求
type TreeQuery struct {
	Rev       string
	Path      string
	Recursive bool
	Limit     int // 仅在 Recursive 时生效，<= 0 表示不限制
}

type Browser struct {
	store gitobj.ObjectStore
}

func NewBrowser(store gitobj.ObjectStore) *Browser {
	return &Browser{store: store}
}

// Entry 解析 q.Rev 下的 q.Path，返回对应的视图
func (b *Browser) Entry(ctx context.Context, q TreeQuery) (*Entry, error) {
	root, ok, err := gitobj.FindTree(ctx, b.store, "", q.Rev)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	obj, ok, err := root.Lookup(ctx, q.Path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}

	switch o := obj.(type) {
	case *gitobj.Blob:
		return blobEntry(ctx, o, o.Path(), true)
	case *gitobj.Tree:
		return b.treeEntry(ctx, o, q)
	default:
		return nil, errors.New("unexpected object type")
	}
}

func (b *Browser) treeEntry(ctx context.Context, t *gitobj.Tree, q TreeQuery) (*Entry, error) {
	e := header(t, t.Path())
	if t.Path() == "" {
		e.Name, e.Path = "", ""
	}

	var children []gitobj.Object
	var err error
	if q.Recursive {
		// 多取一个用来判断是否被截断
		limit := q.Limit
		if limit > 0 {
			limit++
		}
		children, err = t.RecursiveContents(ctx, limit)
		if err != nil {
			return nil, err
		}
		if q.Limit > 0 && len(children) > q.Limit {
			children, e.Truncated = children[:q.Limit], true
		}
	} else {
		children, err = t.Entries(ctx)
		if err != nil {
			return nil, err
		}
	}

	e.Entries = make([]*Entry, 0, len(children))
	for _, child := range children {
		full := path.Join(e.Path, child.Path())
		if blob, ok := child.(*gitobj.Blob); ok && !q.Recursive {
			ce, err := blobEntry(ctx, blob, full, false)
			if err != nil {
				return nil, err
			}
			e.Entries = append(e.Entries, ce)
			continue
		}
		e.Entries = append(e.Entries, header(child, full))
	}
	return e, nil
}

func header(o gitobj.Object, full string) *Entry {
	return &Entry{
		Name: path.Base(full),
		Path: full,
		Type: o.Kind().String(),
		Mode: o.Mode().String(),
		Hash: o.ID(),
	}
}

// blobEntry 只有 withContents 时才读内容
func blobEntry(ctx context.Context, blob *gitobj.Blob, full string, withContents bool) (*Entry, error) {
	e := header(blob, full)
	size, err := blob.Size(ctx)
	if err != nil {
		return nil, err
	}
	e.Size = &size
	if !withContents {
		return e, nil
	}

	binary, err := blob.Binary(ctx)
	if err != nil {
		return nil, err
	}
	lines, err := blob.LineCount(ctx)
	if err != nil {
		return nil, err
	}
	data, err := blob.Data(ctx)
	if err != nil {
		return nil, err
	}
	e.Binary, e.Lines, e.MimeType = &binary, &lines, blob.MimeType()

	if binary || !utf8.Valid(data) {
		e.Contents, e.Encoding = base64.StdEncoding.EncodeToString(data), "base64"
	} else {
		e.Contents, e.Encoding = string(data), "utf-8"
	}
	return e, nil
}
