package disk

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"treevault/pkg/core"
	"treevault/pkg/storage"
	"treevault/pkg/types"

	"github.com/klauspost/compress/zstd"
)

// Compression 决定对象落盘时的编码
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
)

// Adapter 实现了 storage.Store 接口
type Adapter struct {
	rootPath    string // 比如: /home/user/.tv/objects
	compression Compression
}

type Option func(*Adapter)

// WithCompression 打开落盘压缩。同一个仓库不要混用两种模式。
func WithCompression(c Compression) Option {
	return func(a *Adapter) {
		if c != "" {
			a.compression = c
		}
	}
}

// NewAdapter 创建一个新的磁盘存储适配器
func NewAdapter(root string, opts ...Option) (*Adapter, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root storage dir: %w", err)
	}
	a := &Adapter{rootPath: root, compression: CompressionNone}
	for _, opt := range opts {
		opt(a)
	}
	switch a.compression {
	case CompressionNone, CompressionZstd:
	default:
		return nil, fmt.Errorf("unsupported compression %q", a.compression)
	}
	return a, nil
}

// layout 返回哈希对应的物理路径
// 策略：使用前 2 个字符作为子目录 (Sharding)
// Example: hash "aabbcc..." -> root/aa/bbcc...
func (s *Adapter) layout(hash types.Hash) string {
	h := string(hash)
	if len(h) < 2 {
		return filepath.Join(s.rootPath, h)
	}
	return filepath.Join(s.rootPath, h[:2], h[2:])
}

func (s *Adapter) Put(ctx context.Context, obj core.Object) error {
	targetPath := s.layout(obj.ID())

	// 1. 检查是否存在 (幂等性)
	if _, err := os.Stat(targetPath); err == nil {
		return nil
	}

	// 2. 准备目录
	dir := filepath.Dir(targetPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := s.encode(obj.Bytes())
	if err != nil {
		return fmt.Errorf("encode object %s: %w", obj.ID(), err)
	}

	// 3. 原子写入 (Atomic Write)
	// 先写到一个临时文件，然后 Rename。
	tempFile, err := os.CreateTemp(dir, "temp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tempFile.Name())

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return err
	}
	if err := tempFile.Close(); err != nil {
		return err
	}

	// 4. 移动到最终位置
	return os.Rename(tempFile.Name(), targetPath)
}

func (s *Adapter) Get(ctx context.Context, hash types.Hash) (io.ReadCloser, error) {
	f, err := os.Open(s.layout(hash))
	if os.IsNotExist(err) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if s.compression == CompressionNone {
		return f, nil
	}

	dec, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open zstd reader for %s: %w", hash, err)
	}
	return &zstdReadCloser{dec: dec, file: f}, nil
}

func (s *Adapter) Has(ctx context.Context, hash types.Hash) (bool, error) {
	_, err := os.Stat(s.layout(hash))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// ExpandHash 在分片目录中查找唯一匹配前缀的对象
func (s *Adapter) ExpandHash(ctx context.Context, short types.HashPrefix) (types.Hash, error) {
	prefix := string(short)
	if len(prefix) < storage.MinPrefixLen {
		return "", storage.ErrShortPrefix
	}

	entries, err := os.ReadDir(filepath.Join(s.rootPath, prefix[:2]))
	if os.IsNotExist(err) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", err
	}

	var match types.Hash
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "temp-") {
			continue
		}
		if !strings.HasPrefix(name, prefix[2:]) {
			continue
		}
		if match != "" {
			return "", storage.ErrAmbiguousHash
		}
		match = types.Hash(prefix[:2] + name)
	}
	if match == "" {
		return "", storage.ErrNotFound
	}
	return match, nil
}

func (s *Adapter) encode(data []byte) ([]byte, error) {
	if s.compression == CompressionNone {
		return data, nil
	}
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := enc.Write(data); err != nil {
		enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type zstdReadCloser struct {
	dec  *zstd.Decoder
	file *os.File
}

func (z *zstdReadCloser) Read(p []byte) (int, error) {
	return z.dec.Read(p)
}

func (z *zstdReadCloser) Close() error {
	z.dec.Close()
	return z.file.Close()
}
