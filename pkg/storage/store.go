package storage

import (
	"context"
	"errors"
	"io"

	"treevault/pkg/core"
	"treevault/pkg/types"
)

var (
	ErrNotFound      = errors.New("object not found")
	ErrAmbiguousHash = errors.New("ambiguous hash prefix")
	ErrShortPrefix   = errors.New("hash prefix too short")
)

// MinPrefixLen 是 ExpandHash 接受的最短前缀
const MinPrefixLen = 4

// Store defines the interface for a storage backend.
// Implementations can be local disk, cloud storage, or in-memory storage.
// 对象是内容寻址的：同一个 Hash 只写一次，永不覆盖
type Store interface {
	// Put 将一个核心对象持久化
	// 它不需要返回 Hash，因为 Hash 已经在 core.Object 里了
	Put(ctx context.Context, obj core.Object) error

	// Get 根据 Hash 读取原始数据
	// 返回 io.ReadCloser 而不是 []byte，支持流式读取
	Get(ctx context.Context, hash types.Hash) (io.ReadCloser, error)

	// Has 检查对象是否存在 (用于去重逻辑)
	Has(ctx context.Context, hash types.Hash) (bool, error)

	// ExpandHash 把短哈希扩展成完整哈希
	ExpandHash(ctx context.Context, short types.HashPrefix) (types.Hash, error)
}

// ReadAll 读取整个对象并关闭 reader
func ReadAll(ctx context.Context, s Store, hash types.Hash) ([]byte, error) {
	rc, err := s.Get(ctx, hash)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
