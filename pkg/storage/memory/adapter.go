package memory

import (
	"bytes"
	"context"
	"io"
	"strings"

	"treevault/pkg/core"
	"treevault/pkg/storage"
	"treevault/pkg/types"

	gocache "github.com/patrickmn/go-cache"
)

// Adapter 是进程内的对象存储，用于测试和 `--storage memory` 的临时仓库。
// 对象永不过期。
type Adapter struct {
	items *gocache.Cache
}

func NewAdapter() *Adapter {
	return &Adapter{items: gocache.New(gocache.NoExpiration, 0)}
}

func (s *Adapter) Put(ctx context.Context, obj core.Object) error {
	// 复制一份，调用方之后修改切片不会影响已存对象
	data := bytes.Clone(obj.Bytes())
	// Add 在 key 已存在时返回错误，正好对应内容寻址的幂等写
	_ = s.items.Add(string(obj.ID()), data, gocache.NoExpiration)
	return nil
}

func (s *Adapter) Get(ctx context.Context, hash types.Hash) (io.ReadCloser, error) {
	v, ok := s.items.Get(string(hash))
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(v.([]byte))), nil
}

func (s *Adapter) Has(ctx context.Context, hash types.Hash) (bool, error) {
	_, ok := s.items.Get(string(hash))
	return ok, nil
}

func (s *Adapter) ExpandHash(ctx context.Context, short types.HashPrefix) (types.Hash, error) {
	prefix := string(short)
	if len(prefix) < storage.MinPrefixLen {
		return "", storage.ErrShortPrefix
	}

	var match types.Hash
	for key := range s.items.Items() {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if match != "" {
			return "", storage.ErrAmbiguousHash
		}
		match = types.Hash(key)
	}
	if match == "" {
		return "", storage.ErrNotFound
	}
	return match, nil
}

// Len 返回对象个数
func (s *Adapter) Len() int {
	return s.items.ItemCount()
}
