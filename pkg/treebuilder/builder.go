package treebuilder

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"treevault/pkg/core"
	"treevault/pkg/index"
	"treevault/pkg/ingester"
	"treevault/pkg/storage"
	"treevault/pkg/types"
)

// Builder 负责把暂存区或嵌套 Map 转换为 Merkle Tree 并写入存储
type Builder struct {
	store storage.Store
	ing   *ingester.Ingester
}

func NewBuilder(store storage.Store) *Builder {
	return &Builder{store: store, ing: ingester.NewIngester(store)}
}

// Build 从暂存区构建，返回根树的 Hash
func (b *Builder) Build(ctx context.Context, idx *index.Index) (types.Hash, error) {
	// 1. 构建内存中的目录树结构
	root := newDirNode("")
	for path, entry := range idx.Snapshot() {
		if err := root.addFile(path, entry); err != nil {
			return "", err
		}
	}
	// 2. 自底向上计算 Hash 并持久化
	return b.writeNode(ctx, root)
}

// -----------------------------------------------------------------------------
// 内存树节点
// -----------------------------------------------------------------------------

type node struct {
	name     string
	isDir    bool
	children map[string]*node // 仅目录有效
	entry    index.Entry      // 仅文件有效
}

func newDirNode(name string) *node {
	return &node{
		name:     name,
		isDir:    true,
		children: make(map[string]*node),
	}
}

// addFile: "a/b/c.txt" -> 递归创建 a, b, 然后在 b 下创建 c.txt
func (n *node) addFile(path string, entry index.Entry) error {
	parts := strings.Split(path, "/")
	current := n

	for _, part := range parts[:len(parts)-1] {
		child, exists := current.children[part]
		if !exists {
			child = newDirNode(part)
			current.children[part] = child
		}
		if !child.isDir {
			return fmt.Errorf("path %q: %q is a file in the index", path, part)
		}
		current = child
	}

	name := parts[len(parts)-1]
	if existing, ok := current.children[name]; ok && existing.isDir {
		return fmt.Errorf("path %q is a directory in the index", path)
	}
	current.children[name] = &node{name: name, entry: entry}
	return nil
}

// writeNode 递归地将内存节点转换为 core.Tree 并写入存储
func (b *Builder) writeNode(ctx context.Context, n *node) (types.Hash, error) {
	if !n.isDir {
		return n.entry.Hash, nil
	}

	entries := make([]core.TreeEntry, 0, len(n.children))
	for _, name := range slices.Sorted(maps.Keys(n.children)) {
		child := n.children[name]

		childHash, err := b.writeNode(ctx, child)
		if err != nil {
			return "", err
		}

		mode := child.entry.Mode
		if child.isDir {
			mode = core.ModeTree
		} else if mode == 0 {
			mode = core.ModeRegular
		}
		entries = append(entries, core.TreeEntry{
			Name: name,
			Mode: mode,
			Cid:  core.NewLink(childHash),
		})
	}

	return b.putTree(ctx, entries)
}

func (b *Builder) putTree(ctx context.Context, entries []core.TreeEntry) (types.Hash, error) {
	treeObj, err := core.NewTree(entries)
	if err != nil {
		return "", fmt.Errorf("failed to create tree object: %w", err)
	}
	if err := b.store.Put(ctx, treeObj); err != nil {
		return "", fmt.Errorf("failed to store tree: %w", err)
	}
	return treeObj.ID(), nil
}

// loadTree 读取并解码一个已存在的树
func (b *Builder) loadTree(ctx context.Context, id types.Hash) (*core.Tree, error) {
	data, err := storage.ReadAll(ctx, b.store, id)
	if err != nil {
		return nil, fmt.Errorf("read tree %s: %w", id.Short(), err)
	}
	return core.DecodeTree(data)
}
