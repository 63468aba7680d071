package gitobj

import (
	"context"
	"iter"
	"slices"
	"strings"
	"sync"

	"treevault/pkg/core"
	"treevault/pkg/types"
)

// Tree 是目录对象，缓存的各个视图互相独立
type Tree struct {
	object

	mu sync.Mutex

	entries     []Object
	entriesDone bool

	recursive      []Object
	recursiveLimit int
	recursiveDone  bool

	blobs     []*Blob
	blobsDone bool
	trees     []*Tree
	treesDone bool

	listing     string
	listingDone bool
}

func (t *Tree) Kind() core.Kind { return core.KindTree }

// Entries 返回一层条目，顺序即存储顺序
func (t *Tree) Entries(ctx context.Context) ([]Object, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loadEntries(ctx)
}

func (t *Tree) loadEntries(ctx context.Context) ([]Object, error) {
	if t.entriesDone {
		return t.entries, nil
	}
	raw, err := t.store.ListTree(ctx, t.id)
	if err != nil {
		return nil, &StoreError{Op: "list", ID: t.id, Err: err}
	}
	out := make([]Object, len(raw))
	for i, e := range raw {
		out[i] = New(t.store, core.Entry{Name: e.Name, Path: e.Name, Mode: e.Mode, ID: e.Cid.Hash})
	}
	t.entries, t.entriesDone = out, true
	return out, nil
}

// Each 依次把一层条目交给 fn，fn 返回 false 时停止
func (t *Tree) Each(ctx context.Context, fn func(Object) bool) error {
	entries, err := t.Entries(ctx)
	if err != nil {
		return err
	}
	for _, o := range entries {
		if !fn(o) {
			break
		}
	}
	return nil
}

// All 返回一层条目的序列。序列建立在缓存上，可以重复遍历。
func (t *Tree) All(ctx context.Context) (iter.Seq[Object], error) {
	entries, err := t.Entries(ctx)
	if err != nil {
		return nil, err
	}
	return slices.Values(entries), nil
}

func (t *Tree) Count(ctx context.Context) (int, error) {
	entries, err := t.Entries(ctx)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// RecursiveContents 深度优先展开整棵子树 (目录和文件都包含)。
// limit <= 0 表示不限制。缓存以 limit 为键，换一个 limit 会重新计算并替换缓存。
func (t *Tree) RecursiveContents(ctx context.Context, limit int) ([]Object, error) {
	if limit < 0 {
		limit = 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.recursiveDone && t.recursiveLimit == limit {
		return t.recursive, nil
	}

	var out []Object
	if limit > 0 {
		out = make([]Object, 0, limit)
	}
	for e, err := range t.store.WalkTree(ctx, t.id) {
		if err != nil {
			return nil, &StoreError{Op: "walk", ID: t.id, Err: err}
		}
		out = append(out, New(t.store, e))
		if limit > 0 && len(out) >= limit {
			break
		}
	}

	t.recursive, t.recursiveLimit, t.recursiveDone = out, limit, true
	return out, nil
}

func (t *Tree) RecursiveCount(ctx context.Context, limit int) (int, error) {
	objs, err := t.RecursiveContents(ctx, limit)
	if err != nil {
		return 0, err
	}
	return len(objs), nil
}

// Blobs 一层条目里的文件
func (t *Tree) Blobs(ctx context.Context) ([]*Blob, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.blobsDone {
		return t.blobs, nil
	}
	entries, err := t.loadEntries(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Blob, 0, len(entries))
	for _, o := range entries {
		if b, ok := o.(*Blob); ok {
			out = append(out, b)
		}
	}
	t.blobs, t.blobsDone = out, true
	return out, nil
}

// Trees 一层条目里的子目录
func (t *Tree) Trees(ctx context.Context) ([]*Tree, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.treesDone {
		return t.trees, nil
	}
	entries, err := t.loadEntries(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Tree, 0, len(entries))
	for _, o := range entries {
		if sub, ok := o.(*Tree); ok {
			out = append(out, sub)
		}
	}
	t.trees, t.treesDone = out, true
	return out, nil
}

// Find 按 RecursiveContents 的顺序遍历，kind 非 0 时只看该类条目。
// pred 看到的是还没物化的条目描述；第一次命中就停止，不再访问存储。
// pred 为 nil 或者没有命中时返回 (nil, false, nil)。
func (t *Tree) Find(ctx context.Context, kind core.Kind, pred func(core.Entry) bool) (Object, bool, error) {
	if pred == nil {
		return nil, false, nil
	}
	for e, err := range t.store.WalkTree(ctx, t.id) {
		if err != nil {
			return nil, false, &StoreError{Op: "walk", ID: t.id, Err: err}
		}
		if kind != 0 && e.Kind() != kind {
			continue
		}
		if pred(e) {
			return New(t.store, e), true, nil
		}
	}
	return nil, false, nil
}

func (t *Tree) FindBlob(ctx context.Context, pred func(core.Entry) bool) (*Blob, bool, error) {
	o, ok, err := t.Find(ctx, core.KindBlob, pred)
	if err != nil || !ok {
		return nil, false, err
	}
	return o.(*Blob), true, nil
}

func (t *Tree) FindTree(ctx context.Context, pred func(core.Entry) bool) (*Tree, bool, error) {
	o, ok, err := t.Find(ctx, core.KindTree, pred)
	if err != nil || !ok {
		return nil, false, err
	}
	return o.(*Tree), true, nil
}

// Lookup 解析相对路径。只由 "/" 组成的路径返回自身；任何一段不存在返回 (nil, false, nil)。
func (t *Tree) Lookup(ctx context.Context, path string) (Object, bool, error) {
	if strings.Trim(path, "/") == "" {
		return t, true, nil
	}
	e, ok, err := t.store.ResolvePath(ctx, t.id, path)
	if err != nil {
		return nil, false, &StoreError{Op: "resolve", ID: t.id, Err: err}
	}
	if !ok {
		return nil, false, nil
	}
	return New(t.store, e), true, nil
}

// Data 返回 ls-tree 风格的一层列表
func (t *Tree) Data(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.listingDone {
		return t.listing, nil
	}
	s, err := t.store.FormatTree(ctx, t.id)
	if err != nil {
		return "", &StoreError{Op: "format", ID: t.id, Err: err}
	}
	t.listing, t.listingDone = s, true
	return s, nil
}

// Walk 暴露惰性的递归条目序列，条目不会被物化
func (t *Tree) Walk(ctx context.Context) iter.Seq2[core.Entry, error] {
	return t.store.WalkTree(ctx, t.id)
}

// FindTree 在 rev (默认 HEAD) 的根树里按完整路径查找目录。
// 引用解析不到、store 为 nil、路径不存在或者指向文件时返回 (nil, false, nil)。
// 空路径返回根树。
func FindTree(ctx context.Context, store ObjectStore, filePath, rev string) (*Tree, bool, error) {
	root, ok, err := resolveRoot(ctx, store, rev)
	if err != nil || !ok {
		return nil, false, err
	}
	e, ok, err := store.ResolvePath(ctx, root, filePath)
	if err != nil || !ok || e.Kind() != core.KindTree {
		return nil, false, err
	}
	return New(store, e).(*Tree), true, nil
}

// NewTreeFromMap 在存储里构建一棵新树，base 不为 nil 时叠加在 base 之上。
// 冲突规则见 treebuilder.Builder.BuildMap。
func NewTreeFromMap(ctx context.Context, store ObjectStore, m Map, base *Tree) (*Tree, error) {
	var baseID types.Hash
	if base != nil {
		baseID = base.id
	}
	id, err := store.BuildTree(ctx, baseID, m)
	if err != nil {
		return nil, err
	}
	return &Tree{object: object{store: store, id: id, mode: core.ModeTree}}, nil
}
