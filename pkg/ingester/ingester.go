// Package ingester 把文件内容切块后写入对象库，产出 BlobNode。
package ingester

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"treevault/pkg/chunker"
	"treevault/pkg/core"
	"treevault/pkg/storage"

	"golang.org/x/sync/errgroup"
)

type Ingester struct {
	store   storage.Store
	chunker *chunker.Chunker
	workers int
}

func NewIngester(store storage.Store) *Ingester {
	return &Ingester{
		store:   store,
		chunker: chunker.NewChunker(),
		workers: runtime.NumCPU(),
	}
}

// IngestBytes 切分 data，并发写入所有 Chunk，最后写入 BlobNode
func (ing *Ingester) IngestBytes(ctx context.Context, data []byte) (*core.BlobNode, error) {
	builder := core.NewBlobNodeBuilder()

	// 1. 切分。Chunk 的顺序由 builder 保证，写入可以乱序
	cutPoints := ing.chunker.Cut(data)
	chunks := make([]*core.Chunk, 0, len(cutPoints))
	start := 0
	for _, end := range cutPoints {
		c := core.NewChunk(data[start:end])
		chunks = append(chunks, c)
		builder.Add(c)
		start = end
	}

	// 2. 并发存储 Chunk
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ing.workers)
	for _, c := range chunks {
		g.Go(func() error {
			if err := ing.store.Put(gctx, c); err != nil {
				return fmt.Errorf("failed to store chunk %s: %w", c.ID().Short(), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// 3. 所有 Chunk 落地后再写 BlobNode，保证它引用的数据一定存在
	node, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create blob node: %w", err)
	}
	if err := ing.store.Put(ctx, node); err != nil {
		return nil, fmt.Errorf("failed to store blob node: %w", err)
	}
	return node, nil
}

// IngestReader 读取整个流后入库
// TODO: 边读边切，避免大文件整体进内存
func (ing *Ingester) IngestReader(ctx context.Context, r io.Reader) (*core.BlobNode, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}
	return ing.IngestBytes(ctx, data)
}

// IngestFile 入库一个工作区文件，同时返回它在树里应有的模式位。
// 软链接存的是链接目标本身，不跟随。
func (ing *Ingester) IngestFile(ctx context.Context, path string) (*core.BlobNode, core.FileMode, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, 0, err
	}

	switch {
	case info.Mode()&os.ModeSymlink != 0:
		target, err := os.Readlink(path)
		if err != nil {
			return nil, 0, err
		}
		node, err := ing.IngestBytes(ctx, []byte(target))
		return node, core.ModeSymlink, err
	case info.IsDir():
		return nil, 0, fmt.Errorf("%s is a directory", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	node, err := ing.IngestReader(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	mode := core.ModeRegular
	if info.Mode().Perm()&0o111 != 0 {
		mode = core.ModeExecutable
	}
	return node, mode, nil
}
