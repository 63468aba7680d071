// Package odb 是对象库的读写入口：引用解析、Blob 读写、树的列举与构建。
// 上层的 gitobj 只通过这里访问存储。
package odb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"treevault/pkg/content"
	"treevault/pkg/core"
	"treevault/pkg/index"
	"treevault/pkg/ingester"
	"treevault/pkg/meta"
	"treevault/pkg/refs"
	"treevault/pkg/storage"
	"treevault/pkg/treebuilder"
	"treevault/pkg/types"
)

// Repository 组合了对象存储、引用和元数据索引
type Repository struct {
	store   storage.Store
	refs    *refs.Manager    // 可以为 nil：只能用哈希 (前缀) 定位
	meta    *meta.Repository // 可以为 nil：rootTreeOf 总是读对象
	ing     *ingester.Ingester
	builder *treebuilder.Builder
	logger  *slog.Logger
}

type Option func(*Repository)

func WithRefs(m *refs.Manager) Option {
	return func(r *Repository) { r.refs = m }
}

func WithMeta(m *meta.Repository) Option {
	return func(r *Repository) { r.meta = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) {
		if l != nil {
			r.logger = l
		}
	}
}

func New(store storage.Store, opts ...Option) *Repository {
	r := &Repository{
		store:   store,
		ing:     ingester.NewIngester(store),
		builder: treebuilder.NewBuilder(store),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "odb")
	return r
}

// Store 返回底层对象存储
func (r *Repository) Store() storage.Store { return r.store }

// Refs 返回引用管理器 (可能为 nil)
func (r *Repository) Refs() *refs.Manager { return r.refs }

// Ingester 供 CLI 直接导入工作区文件
func (r *Repository) Ingester() *ingester.Ingester { return r.ing }

// -----------------------------------------------------------------------------
// 1. 引用与提交
// -----------------------------------------------------------------------------

// ResolveRef 把 revision 解析为对象 Hash。解析不到返回 ("", false, nil)。
func (r *Repository) ResolveRef(ctx context.Context, rev string) (types.Hash, bool, error) {
	if r.refs != nil {
		h, err := r.refs.Resolve(ctx, rev)
		switch {
		case err == nil:
			return h, true, nil
		case errors.Is(err, refs.ErrRefNotFound), errors.Is(err, refs.ErrNoHead):
			r.logger.DebugContext(ctx, "revision not found", "rev", rev)
			return "", false, nil
		default:
			return "", false, fmt.Errorf("resolve %q: %w", rev, err)
		}
	}

	// 没有引用数据库时只认哈希前缀
	prefix := types.HashPrefix(rev)
	if !prefix.IsHex() {
		return "", false, nil
	}
	h, err := r.store.ExpandHash(ctx, prefix)
	switch {
	case err == nil:
		return h, true, nil
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrAmbiguousHash), errors.Is(err, storage.ErrShortPrefix):
		return "", false, nil
	default:
		return "", false, fmt.Errorf("resolve %q: %w", rev, err)
	}
}

// RootTreeOf 返回 Commit 的根树。id 本身就是一棵树时原样返回。
func (r *Repository) RootTreeOf(ctx context.Context, id types.Hash) (types.Hash, error) {
	// 1. 快路径：元数据索引
	if r.meta != nil {
		cm, err := r.meta.GetCommit(ctx, id)
		if err == nil {
			return cm.TreeHash, nil
		}
		if !errors.Is(err, meta.ErrCommitNotFound) {
			r.logger.WarnContext(ctx, "commit index lookup failed", "commit", id, "error", err)
		}
	}

	// 2. 读对象
	data, err := storage.ReadAll(ctx, r.store, id)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", id.Short(), err)
	}
	switch t := core.PeekType(data); t {
	case core.TypeCommit:
		c, err := core.DecodeCommit(data)
		if err != nil {
			return "", fmt.Errorf("decode commit %s: %w", id.Short(), err)
		}
		return c.TreeCid.Hash, nil
	case core.TypeTree:
		return id, nil
	default:
		return "", core.ErrTypeMismatch{Want: core.TypeCommit, Got: t}
	}
}

// CommitTree 写入一个 Commit 并同步到元数据索引
func (r *Repository) CommitTree(ctx context.Context, tree types.Hash, parents []types.Hash, author, msg string) (*core.Commit, error) {
	c, err := core.NewCommit(tree, parents, author, msg)
	if err != nil {
		return nil, fmt.Errorf("failed to create commit object: %w", err)
	}
	if err := r.store.Put(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to store commit: %w", err)
	}
	if r.meta != nil {
		if err := r.meta.IndexCommit(ctx, c); err != nil {
			return nil, err
		}
	}
	r.logger.DebugContext(ctx, "commit written", "commit", c.ID(), "tree", tree)
	return c, nil
}

// ReadCommit 读取并解码一个 Commit 对象
func (r *Repository) ReadCommit(ctx context.Context, id types.Hash) (*core.Commit, error) {
	data, err := storage.ReadAll(ctx, r.store, id)
	if err != nil {
		return nil, fmt.Errorf("read commit %s: %w", id.Short(), err)
	}
	c, err := core.DecodeCommit(data)
	if err != nil {
		return nil, fmt.Errorf("decode commit %s: %w", id.Short(), err)
	}
	return c, nil
}

// WriteIndex 把暂存区写成一棵树，返回根树 Hash
func (r *Repository) WriteIndex(ctx context.Context, idx *index.Index) (types.Hash, error) {
	return r.builder.Build(ctx, idx)
}

// -----------------------------------------------------------------------------
// 2. Blob
// -----------------------------------------------------------------------------

func (r *Repository) readBlobNode(ctx context.Context, id types.Hash) (*core.BlobNode, error) {
	data, err := storage.ReadAll(ctx, r.store, id)
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", id.Short(), err)
	}
	node, err := core.DecodeBlobNode(data)
	if err != nil {
		return nil, fmt.Errorf("decode blob %s: %w", id.Short(), err)
	}
	return node, nil
}

// BlobSize 只读 BlobNode，不读数据块
func (r *Repository) BlobSize(ctx context.Context, id types.Hash) (int64, error) {
	node, err := r.readBlobNode(ctx, id)
	if err != nil {
		return 0, err
	}
	return node.TotalSize, nil
}

// ReadBlob 按顺序拼回全部数据块
func (r *Repository) ReadBlob(ctx context.Context, id types.Hash) ([]byte, error) {
	node, err := r.readBlobNode(ctx, id)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, node.TotalSize)
	for i, link := range node.Chunks {
		chunk, err := storage.ReadAll(ctx, r.store, link.Cid.Hash)
		if err != nil {
			return nil, fmt.Errorf("read chunk %d of blob %s: %w", i, id.Short(), err)
		}
		if len(chunk) != link.Size {
			return nil, fmt.Errorf("chunk %d of blob %s: size %d, want %d", i, id.Short(), len(chunk), link.Size)
		}
		buf = append(buf, chunk...)
	}
	if int64(len(buf)) != node.TotalSize {
		return nil, fmt.Errorf("blob %s: size %d, want %d", id.Short(), len(buf), node.TotalSize)
	}
	return buf, nil
}

// WriteBlob 切块写入，返回 Blob 的 Hash
func (r *Repository) WriteBlob(ctx context.Context, data []byte) (types.Hash, error) {
	node, err := r.ing.IngestBytes(ctx, data)
	if err != nil {
		return "", err
	}
	return node.ID(), nil
}

func (r *Repository) IsBinary(data []byte) bool {
	return content.IsBinary(data)
}

func (r *Repository) MimeTypeFor(name string) string {
	return content.MimeType(name)
}
