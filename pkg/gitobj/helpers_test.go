package gitobj

import (
	"context"
	"fmt"
	"io"
	"iter"
	"strings"
	"sync/atomic"
	"testing"

	"treevault/pkg/core"
	"treevault/pkg/meta"
	"treevault/pkg/odb"
	"treevault/pkg/refs"
	"treevault/pkg/storage"
	"treevault/pkg/storage/memory"
	"treevault/pkg/types"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// countingStore 统计底层 Get 次数
type countingStore struct {
	storage.Store
	gets atomic.Int32
}

func (c *countingStore) Get(ctx context.Context, h types.Hash) (io.ReadCloser, error) {
	c.gets.Add(1)
	return c.Store.Get(ctx, h)
}

// spyStore 统计导航层对 ObjectStore 的调用
type spyStore struct {
	ObjectStore
	listCalls  atomic.Int32
	readCalls  atomic.Int32
	sizeCalls  atomic.Int32
	walkCalls  atomic.Int32
	fmtCalls   atomic.Int32
	walkYields atomic.Int32
}

func (s *spyStore) ListTree(ctx context.Context, id types.Hash) ([]core.TreeEntry, error) {
	s.listCalls.Add(1)
	return s.ObjectStore.ListTree(ctx, id)
}

func (s *spyStore) ReadBlob(ctx context.Context, id types.Hash) ([]byte, error) {
	s.readCalls.Add(1)
	return s.ObjectStore.ReadBlob(ctx, id)
}

func (s *spyStore) BlobSize(ctx context.Context, id types.Hash) (int64, error) {
	s.sizeCalls.Add(1)
	return s.ObjectStore.BlobSize(ctx, id)
}

func (s *spyStore) FormatTree(ctx context.Context, id types.Hash) (string, error) {
	s.fmtCalls.Add(1)
	return s.ObjectStore.FormatTree(ctx, id)
}

func (s *spyStore) WalkTree(ctx context.Context, id types.Hash) iter.Seq2[core.Entry, error] {
	s.walkCalls.Add(1)
	inner := s.ObjectStore.WalkTree(ctx, id)
	return func(yield func(core.Entry, error) bool) {
		for e, err := range inner {
			s.walkYields.Add(1)
			if !yield(e, err) {
				return
			}
		}
	}
}

type testEnv struct {
	repo  *odb.Repository
	raw   *countingStore
	spy   *spyStore
	store ObjectStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	metaDB := meta.NewWithConn(db)
	require.NoError(t, metaDB.AutoMigrate(meta.Models()...))
	metaRepo := meta.NewRepository(metaDB)

	raw := &countingStore{Store: memory.NewAdapter()}
	repo := odb.New(raw, odb.WithRefs(refs.NewManager(metaRepo, raw)), odb.WithMeta(metaRepo))
	spy := &spyStore{ObjectStore: repo}
	return &testEnv{repo: repo, raw: raw, spy: spy, store: spy}
}

// fixtureMap 的递归顺序:
//
//	README.md, a, a/x.txt, a/y, a/y/deep.txt, b, b/z.bin, c.txt, empty
var fixtureMap = Map{
	"README.md": "hello\n",
	"a": Map{
		"x.txt": "x",
		"y":     Map{"deep.txt": "deep"},
	},
	"b":     Map{"z.bin": "\x00\x01\x02"},
	"c.txt": "a\nb\nc",
	"empty": "",
}

var fixtureOrder = []string{
	"README.md", "a", "a/x.txt", "a/y", "a/y/deep.txt", "b", "b/z.bin", "c.txt", "empty",
}

func (env *testEnv) fixture(t *testing.T) *Tree {
	t.Helper()
	tree, err := NewTreeFromMap(context.Background(), env.store, fixtureMap, nil)
	require.NoError(t, err)
	return tree
}

// commit 把树提交到 HEAD 上，返回 Commit Hash
func (env *testEnv) commit(t *testing.T, tree *Tree, msg string) types.Hash {
	t.Helper()
	ctx := context.Background()
	var parents []types.Hash
	head, ver, err := env.repo.Refs().GetHead(ctx)
	if err == nil {
		parents = append(parents, head)
	}
	c, err := env.repo.CommitTree(ctx, tree.ID(), parents, "tester", msg)
	require.NoError(t, err)
	require.NoError(t, env.repo.Refs().UpdateHead(ctx, c.ID(), ver))
	return c.ID()
}

func paths(objs []Object) []string {
	out := make([]string, len(objs))
	for i, o := range objs {
		out[i] = o.Path()
	}
	return out
}
