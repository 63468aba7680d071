package refs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"treevault/pkg/meta"
	"treevault/pkg/storage"
	"treevault/pkg/types"
)

const (
	Head        = "HEAD"
	HeadsPrefix = "refs/heads/"
	TagsPrefix  = "refs/tags/"
)

var (
	ErrNoHead      = errors.New("HEAD not found (clean repo)")
	ErrStaleHead   = errors.New("HEAD has been updated by others")
	ErrRefNotFound = errors.New("revision not found")
)

// HashExpander 把短哈希扩展成完整哈希 (storage.Store 满足该接口)
type HashExpander interface {
	ExpandHash(ctx context.Context, short types.HashPrefix) (types.Hash, error)
}

// Manager 负责引用的读写与解析
type Manager struct {
	repo   *meta.Repository
	hashes HashExpander
}

// NewManager hashes 可以为 nil，此时不支持短哈希
func NewManager(repo *meta.Repository, hashes HashExpander) *Manager {
	return &Manager{repo: repo, hashes: hashes}
}

// GetHead 返回 HEAD 指向的 Commit 和当前版本号 (用于 CAS)
func (m *Manager) GetHead(ctx context.Context) (types.Hash, int64, error) {
	ref, err := m.repo.GetRef(ctx, Head)
	if errors.Is(err, meta.ErrRefNotFound) {
		return "", 0, ErrNoHead
	}
	if err != nil {
		return "", 0, fmt.Errorf("failed to read HEAD: %w", err)
	}
	return ref.CommitHash, ref.Version, nil
}

// UpdateHead 基于 oldVersion 更新 HEAD；0 表示首次创建
func (m *Manager) UpdateHead(ctx context.Context, commit types.Hash, oldVersion int64) error {
	err := m.repo.UpdateRef(ctx, Head, commit, oldVersion)
	if errors.Is(err, meta.ErrConcurrentUpdate) {
		return ErrStaleHead
	}
	return err
}

// SetRef 无条件把 name 指向 commit (读版本再 CAS，冲突时重试一次)
func (m *Manager) SetRef(ctx context.Context, name string, commit types.Hash) error {
	if name == "" {
		return errors.New("empty ref name")
	}
	for attempt := 0; attempt < 2; attempt++ {
		var version int64
		ref, err := m.repo.GetRef(ctx, name)
		switch {
		case err == nil:
			version = ref.Version
		case !errors.Is(err, meta.ErrRefNotFound):
			return err
		}

		err = m.repo.UpdateRef(ctx, name, commit, version)
		if !errors.Is(err, meta.ErrConcurrentUpdate) {
			return err
		}
	}
	return fmt.Errorf("update ref %s: %w", name, meta.ErrConcurrentUpdate)
}

// ListRefs 列出以 prefix 开头的引用
func (m *Manager) ListRefs(ctx context.Context, prefix string) ([]meta.Ref, error) {
	return m.repo.ListRefs(ctx, prefix)
}

// Resolve 把 revision 解析为 Commit Hash。顺序:
//  1. 完整引用名 ("HEAD", "refs/heads/main")
//  2. refs/heads/<rev>
//  3. refs/tags/<rev>
//  4. 十六进制短哈希 (>= 4 位)
//
// 无法解析时返回 ErrRefNotFound。空字符串等价于 HEAD。
func (m *Manager) Resolve(ctx context.Context, rev string) (types.Hash, error) {
	rev = strings.TrimSpace(rev)
	if rev == "" {
		rev = Head
	}

	for _, name := range []string{rev, HeadsPrefix + rev, TagsPrefix + rev} {
		ref, err := m.repo.GetRef(ctx, name)
		if err == nil {
			return ref.CommitHash, nil
		}
		if !errors.Is(err, meta.ErrRefNotFound) {
			return "", err
		}
	}

	prefix := types.HashPrefix(rev)
	if m.hashes == nil || !prefix.IsHex() || len(rev) < storage.MinPrefixLen {
		return "", ErrRefNotFound
	}
	h, err := m.hashes.ExpandHash(ctx, prefix)
	switch {
	case err == nil:
		return h, nil
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrAmbiguousHash), errors.Is(err, storage.ErrShortPrefix):
		return "", ErrRefNotFound
	default:
		return "", err
	}
}
