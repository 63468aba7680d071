package odb

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"treevault/pkg/core"
	"treevault/pkg/storage"
	"treevault/pkg/treebuilder"
	"treevault/pkg/types"
)

// ListTree 返回一层条目，顺序即存储顺序 (按名字字节序)
func (r *Repository) ListTree(ctx context.Context, id types.Hash) ([]core.TreeEntry, error) {
	data, err := storage.ReadAll(ctx, r.store, id)
	if err != nil {
		return nil, fmt.Errorf("read tree %s: %w", id.Short(), err)
	}
	tree, err := core.DecodeTree(data)
	if err != nil {
		return nil, fmt.Errorf("decode tree %s: %w", id.Short(), err)
	}
	return tree.Entries, nil
}

// WalkTree 深度优先、先序地遍历整棵子树。
// 子树只有在遍历真正走到它时才会被读取；调用方提前停止时不会再访问存储。
// Path 相对于 id 这棵树。出错时产出一次 (Entry{}, err) 然后结束。
func (r *Repository) WalkTree(ctx context.Context, id types.Hash) iter.Seq2[core.Entry, error] {
	return func(yield func(core.Entry, error) bool) {
		r.walk(ctx, id, "", yield)
	}
}

// walk 返回 false 表示停止
func (r *Repository) walk(ctx context.Context, id types.Hash, prefix string, yield func(core.Entry, error) bool) bool {
	entries, err := r.ListTree(ctx, id)
	if err != nil {
		yield(core.Entry{}, err)
		return false
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			yield(core.Entry{}, err)
			return false
		}
		entry := core.Entry{Name: e.Name, Path: prefix + e.Name, Mode: e.Mode, ID: e.Cid.Hash}
		if !yield(entry, nil) {
			return false
		}
		if e.Kind() == core.KindTree {
			if !r.walk(ctx, e.Cid.Hash, entry.Path+"/", yield) {
				return false
			}
		}
	}
	return true
}

// ResolvePath 逐级解析路径 ("a/b/c")。多余的 "/" 被忽略。
// 任意一段不存在，或中间段不是目录时返回 (Entry{}, false, nil)。
// 路径为空 (或只有 "/") 时返回树本身。
func (r *Repository) ResolvePath(ctx context.Context, treeID types.Hash, path string) (core.Entry, bool, error) {
	segments := SplitPath(path)
	if len(segments) == 0 {
		return core.Entry{Mode: core.ModeTree, ID: treeID}, true, nil
	}

	current := treeID
	var found core.TreeEntry
	for i, seg := range segments {
		data, err := storage.ReadAll(ctx, r.store, current)
		if err != nil {
			return core.Entry{}, false, fmt.Errorf("read tree %s: %w", current.Short(), err)
		}
		tree, err := core.DecodeTree(data)
		if err != nil {
			return core.Entry{}, false, fmt.Errorf("decode tree %s: %w", current.Short(), err)
		}

		e, ok := tree.Lookup(seg)
		if !ok {
			return core.Entry{}, false, nil
		}
		if i < len(segments)-1 && e.Kind() != core.KindTree {
			return core.Entry{}, false, nil
		}
		found = e
		current = e.Cid.Hash
	}

	return core.Entry{
		Name: found.Name,
		Path: strings.Join(segments, "/"),
		Mode: found.Mode,
		ID:   found.Cid.Hash,
	}, true, nil
}

// BuildTree 把 m 叠加到 base 上 (base 可以为空)
func (r *Repository) BuildTree(ctx context.Context, base types.Hash, m treebuilder.Map) (types.Hash, error) {
	return r.builder.BuildMap(ctx, base, m)
}

// FormatTree 生成 ls-tree 风格的一层列表:
//
//	<mode> SP <type> SP <id> TAB <name> LF
func (r *Repository) FormatTree(ctx context.Context, id types.Hash) (string, error) {
	entries, err := r.ListTree(ctx, id)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&sb, "%s %s %s\t%s\n", e.Mode, e.Kind(), e.Cid.Hash, e.Name)
	}
	return sb.String(), nil
}

// SplitPath 切分路径并丢掉空段: "/a//b/" -> ["a", "b"]
func SplitPath(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
}
