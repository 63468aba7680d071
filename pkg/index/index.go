package index

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"treevault/pkg/core"
	"treevault/pkg/types"
)

// Entry 代表暂存区中的一条记录
type Entry struct {
	Path       string        `json:"path"` // 相对仓库根目录，使用 "/" 分隔
	Hash       types.Hash    `json:"hash"` // BlobNode 的 Hash
	Size       int64         `json:"size"`
	Mode       core.FileMode `json:"mode"`
	ModifiedAt time.Time     `json:"modified_at"`
}

// Index 管理暂存区状态。提交之后不会清空，它始终描述下一次提交的完整树。
type Index struct {
	path    string // .tv/index
	Entries map[string]Entry `json:"entries"`
	mu      sync.RWMutex
}

// NewIndex 加载或创建一个新的 Index
func NewIndex(indexPath string) (*Index, error) {
	idx := &Index{
		path:    indexPath,
		Entries: make(map[string]Entry),
	}

	data, err := os.ReadFile(indexPath)
	switch {
	case os.IsNotExist(err):
		return idx, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read index: %w", err)
	}
	if err := json.Unmarshal(data, idx); err != nil {
		return nil, fmt.Errorf("corrupted index file: %w", err)
	}
	if idx.Entries == nil {
		idx.Entries = make(map[string]Entry)
	}
	return idx, nil
}

// Add 更新一条记录。mode 为 0 时按普通文件处理
func (i *Index) Add(path string, hash types.Hash, size int64, mode core.FileMode) {
	key := CleanPath(path)
	if mode == 0 {
		mode = core.ModeRegular
	}
	i.mu.Lock()
	defer i.mu.Unlock()

	i.Entries[key] = Entry{
		Path:       key,
		Hash:       hash,
		Size:       size,
		Mode:       mode,
		ModifiedAt: time.Now(),
	}
}

// Remove 删除一条记录；path 是目录时删除它下面的全部记录。返回删除的条数
func (i *Index) Remove(path string) int {
	key := CleanPath(path)
	i.mu.Lock()
	defer i.mu.Unlock()

	if _, ok := i.Entries[key]; ok {
		delete(i.Entries, key)
		return 1
	}
	n := 0
	for p := range i.Entries {
		if key == "." || len(p) > len(key) && p[:len(key)] == key && p[len(key)] == '/' {
			delete(i.Entries, p)
			n++
		}
	}
	return n
}

// Save 原子地持久化到磁盘
func (i *Index) Save() error {
	i.mu.RLock()
	data, err := json.MarshalIndent(i, "", "  ")
	i.mu.RUnlock()
	if err != nil {
		return err
	}

	tmp := i.path + ".lock"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, i.path)
}

// Snapshot 返回当前 Entry 的副本，用于并发安全的读取
func (i *Index) Snapshot() map[string]Entry {
	i.mu.RLock()
	defer i.mu.RUnlock()

	snap := make(map[string]Entry, len(i.Entries))
	maps.Copy(snap, i.Entries)
	return snap
}

// Paths 返回排序后的全部路径
func (i *Index) Paths() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return slices.Sorted(maps.Keys(i.Entries))
}

func (i *Index) Reset() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.Entries = make(map[string]Entry)
}

func (i *Index) IsEmpty() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.Entries) == 0
}

func CleanPath(p string) string {
	return filepath.ToSlash(filepath.Clean(p))
}
