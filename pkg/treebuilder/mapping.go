package treebuilder

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"treevault/pkg/core"
	"treevault/pkg/types"
)

// Map 是构建树用的嵌套结构:
//
//	string / []byte        -> 文件内容 (blob)
//	Map / map[string]any   -> 子目录 (tree)
//	nil                    -> 删除 base 中的同名条目
type Map map[string]any

// BuildMap 把 m 叠加到 base 树上 (base 为空表示从空树开始)，返回新根树的 Hash。
//
// 同名冲突时 m 总是胜出:
//   - 内容覆盖 base 的子目录：变成文件
//   - Map 覆盖 base 的子目录：递归合并
//   - Map 覆盖 base 的文件：变成全新的子目录
//   - 内容覆盖 base 的文件：保留可执行位，其余情况用普通文件模式
//
// base 中没有被 m 提到的条目原样保留 (包括模式位)。
func (b *Builder) BuildMap(ctx context.Context, base types.Hash, m Map) (types.Hash, error) {
	return b.buildMap(ctx, base, m, "")
}

func (b *Builder) buildMap(ctx context.Context, base types.Hash, m Map, prefix string) (types.Hash, error) {
	// 1. 载入 base 的一层条目
	entries := make(map[string]core.TreeEntry)
	if !base.IsZero() {
		tree, err := b.loadTree(ctx, base)
		if err != nil {
			return "", fmt.Errorf("load base tree for %q: %w", displayPath(prefix), err)
		}
		for _, e := range tree.Entries {
			entries[e.Name] = e
		}
	}

	// 2. 按名字顺序应用覆盖，报错信息因此稳定
	for _, name := range slices.Sorted(maps.Keys(m)) {
		full := prefix + name
		if err := core.ValidateEntryName(name); err != nil {
			return "", fmt.Errorf("invalid key %q: %w", full, err)
		}
		existing, exists := entries[name]

		switch v := m[name].(type) {
		case nil:
			delete(entries, name)

		case string:
			e, err := b.blobEntry(ctx, name, []byte(v), existing, exists)
			if err != nil {
				return "", fmt.Errorf("write %q: %w", full, err)
			}
			entries[name] = e

		case []byte:
			e, err := b.blobEntry(ctx, name, v, existing, exists)
			if err != nil {
				return "", fmt.Errorf("write %q: %w", full, err)
			}
			entries[name] = e

		case Map:
			e, err := b.treeEntry(ctx, name, v, existing, exists, full)
			if err != nil {
				return "", err
			}
			entries[name] = e

		case map[string]any:
			e, err := b.treeEntry(ctx, name, Map(v), existing, exists, full)
			if err != nil {
				return "", err
			}
			entries[name] = e

		default:
			return "", fmt.Errorf("unsupported value of type %T for %q", v, full)
		}
	}

	// 3. 写出本层
	return b.putTree(ctx, slices.Collect(maps.Values(entries)))
}

func (b *Builder) blobEntry(ctx context.Context, name string, data []byte, existing core.TreeEntry, exists bool) (core.TreeEntry, error) {
	node, err := b.ing.IngestBytes(ctx, data)
	if err != nil {
		return core.TreeEntry{}, err
	}
	mode := core.ModeRegular
	if exists && existing.Mode == core.ModeExecutable {
		mode = core.ModeExecutable
	}
	return core.TreeEntry{Name: name, Mode: mode, Cid: core.NewLink(node.ID())}, nil
}

func (b *Builder) treeEntry(ctx context.Context, name string, sub Map, existing core.TreeEntry, exists bool, full string) (core.TreeEntry, error) {
	var subBase types.Hash
	if exists && existing.Kind() == core.KindTree {
		subBase = existing.Cid.Hash
	}
	id, err := b.buildMap(ctx, subBase, sub, full+"/")
	if err != nil {
		return core.TreeEntry{}, err
	}
	return core.TreeEntry{Name: name, Mode: core.ModeTree, Cid: core.NewLink(id)}, nil
}

func displayPath(prefix string) string {
	if prefix == "" {
		return "/"
	}
	return prefix
}
