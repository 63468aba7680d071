package exporter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"treevault/pkg/core"
	"treevault/pkg/gitobj"
	"treevault/pkg/types"
)

type Exporter struct {
	store   gitobj.ObjectStore
	workers int
	logger  *slog.Logger
}

type Option func(*Exporter)

// WithWorkers 限制并发写文件的数量，n <= 0 时使用 CPU 数
func WithWorkers(n int) Option {
	return func(e *Exporter) {
		if n > 0 {
			e.workers = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

func NewExporter(store gitobj.ObjectStore, opts ...Option) *Exporter {
	e := &Exporter{store: store, workers: runtime.NumCPU(), logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExportBlob 把 Blob 的内容写入 writer
func (e *Exporter) ExportBlob(ctx context.Context, blob *gitobj.Blob, w io.Writer) error {
	data, err := blob.Data(ctx)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write blob %s: %w", blob.ID().Short(), err)
	}
	return nil
}

// RestoreCallback 每写完一个文件调用一次，path 是相对 tree 的路径。
// 可能被多个 goroutine 同时调用。
type RestoreCallback func(path string, hash types.Hash, mode core.FileMode)

// RestoreTree 把整棵树还原到 targetDir。
// 目录按遍历顺序串行创建 (父目录总是先于子条目出现)，文件交给 errgroup 并发写入。
func (e *Exporter) RestoreTree(ctx context.Context, tree *gitobj.Tree, targetDir string, onRestore RestoreCallback) error {
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return fmt.Errorf("failed to create dir %s: %w", targetDir, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	files := 0
	for entry, err := range tree.Walk(gctx) {
		if err != nil {
			// 先等已经派发的写入结束，再报告遍历错误
			_ = g.Wait()
			return err
		}
		fullPath := filepath.Join(targetDir, filepath.FromSlash(entry.Path))

		if entry.Kind() == core.KindTree {
			if err := os.MkdirAll(fullPath, 0755); err != nil {
				_ = g.Wait()
				return fmt.Errorf("failed to create dir %s: %w", fullPath, err)
			}
			continue
		}

		blob := gitobj.New(e.store, entry).(*gitobj.Blob)
		files++
		g.Go(func() error {
			if err := e.writeFile(gctx, blob, fullPath); err != nil {
				return err
			}
			if onRestore != nil {
				onRestore(entry.Path, entry.ID, entry.Mode)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	e.logger.DebugContext(ctx, "tree restored", "tree", tree.ID(), "dir", targetDir, "files", files)
	return nil
}

func (e *Exporter) writeFile(ctx context.Context, blob *gitobj.Blob, fullPath string) error {
	data, err := blob.Data(ctx)
	if err != nil {
		return err
	}

	// 覆盖已有文件或软链接
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to replace %s: %w", fullPath, err)
	}

	switch blob.Mode() {
	case core.ModeSymlink:
		if err := os.Symlink(string(data), fullPath); err != nil {
			return fmt.Errorf("failed to create symlink %s: %w", fullPath, err)
		}
		return nil
	case core.ModeExecutable:
		return writeWithPerm(fullPath, data, 0755)
	default:
		return writeWithPerm(fullPath, data, 0644)
	}
}

func writeWithPerm(path string, data []byte, perm os.FileMode) error {
	if err := os.WriteFile(path, data, perm); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}
	// umask 可能去掉了执行位
	if err := os.Chmod(path, perm); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	return nil
}
