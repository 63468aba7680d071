package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"treevault/pkg/core"
	"treevault/pkg/storage"
	"treevault/pkg/types"

	"github.com/redis/go-redis/v9"
)

// DefaultMaxValueSize 以内的对象会把内容也放进 Redis。
// 树节点和 BlobNode 都很小，浏览时会被反复读取；大 Chunk 只缓存存在性。
const DefaultMaxValueSize = 64 * 1024

// CachedStore 是一个装饰器，它为底层的 storage.Store 添加 Redis 缓存层
type CachedStore struct {
	backend      storage.Store
	client       *redis.Client
	ttl          time.Duration
	maxValueSize int
	logger       *slog.Logger
}

type Config struct {
	RedisURL     string        // redis://<user>:<password>@<host>:<port>/<db>
	TTL          time.Duration // 0 表示不过期
	MaxValueSize int           // <0 关闭内容缓存，0 使用默认值
	Logger       *slog.Logger
}

func NewCachedStore(ctx context.Context, backend storage.Store, cfg Config) (*CachedStore, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	// Fail-fast 连接检查
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	maxSize := cfg.MaxValueSize
	if maxSize == 0 {
		maxSize = DefaultMaxValueSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &CachedStore{
		backend:      backend,
		client:       client,
		ttl:          cfg.TTL,
		maxValueSize: maxSize,
		logger:       logger.With("component", "redis-cache"),
	}, nil
}

func (s *CachedStore) existsKey(hash types.Hash) string { return "tv:obj:" + string(hash) }
func (s *CachedStore) dataKey(hash types.Hash) string   { return "tv:data:" + string(hash) }

// Has 优先查 Redis
func (s *CachedStore) Has(ctx context.Context, hash types.Hash) (bool, error) {
	key := s.existsKey(hash)

	// 1. 查 Redis。Redis 故障时降级为直接查底层存储
	val, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		s.logger.WarnContext(ctx, "redis exists failed, falling back", "hash", hash, "error", err)
	} else if val > 0 {
		return true, nil
	}

	// 2. 未命中，查底层存储
	found, err := s.backend.Has(ctx, hash)
	if err != nil {
		return false, err
	}

	// 3. 异步回填，不阻塞主流程
	if found {
		go func() {
			fillCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			s.client.Set(fillCtx, key, "1", s.ttl)
		}()
	}
	return found, nil
}

func (s *CachedStore) Put(ctx context.Context, obj core.Object) error {
	exists, err := s.Has(ctx, obj.ID())
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if err := s.backend.Put(ctx, obj); err != nil {
		return err
	}

	// 只有底层写成功了才写 Redis，这里的错误不影响主流程
	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.existsKey(obj.ID()), "1", s.ttl)
	if obj.Type() != core.TypeChunk && s.cacheable(len(obj.Bytes())) {
		pipe.Set(ctx, s.dataKey(obj.ID()), obj.Bytes(), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.WarnContext(ctx, "redis fill failed", "hash", obj.ID(), "error", err)
	}
	return nil
}

// Get 对小对象做读穿透缓存，大对象直接透传
func (s *CachedStore) Get(ctx context.Context, hash types.Hash) (io.ReadCloser, error) {
	if s.maxValueSize < 0 {
		return s.backend.Get(ctx, hash)
	}

	// 1. 查 Redis
	data, err := s.client.Get(ctx, s.dataKey(hash)).Bytes()
	switch {
	case err == nil:
		return io.NopCloser(bytes.NewReader(data)), nil
	case !errors.Is(err, redis.Nil):
		s.logger.WarnContext(ctx, "redis get failed, falling back", "hash", hash, "error", err)
	}

	// 2. 查底层
	rc, err := s.backend.Get(ctx, hash)
	if err != nil {
		return nil, err
	}

	// 3. 先读 maxValueSize+1 字节，判断是否足够小
	head, err := io.ReadAll(io.LimitReader(rc, int64(s.maxValueSize)+1))
	if err != nil {
		rc.Close()
		return nil, err
	}
	if len(head) > s.maxValueSize {
		// 太大：把已经读出的部分接回去
		return &joinedReadCloser{Reader: io.MultiReader(bytes.NewReader(head), rc), closer: rc}, nil
	}
	rc.Close()

	if err := s.client.Set(ctx, s.dataKey(hash), head, s.ttl).Err(); err != nil {
		s.logger.WarnContext(ctx, "redis fill failed", "hash", hash, "error", err)
	}
	return io.NopCloser(bytes.NewReader(head)), nil
}

func (s *CachedStore) ExpandHash(ctx context.Context, short types.HashPrefix) (types.Hash, error) {
	return s.backend.ExpandHash(ctx, short)
}

// Close 释放 Redis 连接
func (s *CachedStore) Close() error {
	return s.client.Close()
}

func (s *CachedStore) cacheable(n int) bool {
	return s.maxValueSize >= 0 && n <= s.maxValueSize
}

type joinedReadCloser struct {
	io.Reader
	closer io.Closer
}

func (j *joinedReadCloser) Close() error { return j.closer.Close() }
