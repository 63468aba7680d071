package odb

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"treevault/pkg/core"
	"treevault/pkg/index"
	"treevault/pkg/meta"
	"treevault/pkg/refs"
	"treevault/pkg/storage"
	"treevault/pkg/storage/memory"
	"treevault/pkg/treebuilder"
	"treevault/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// countingStore 统计 Get 次数，用来验证遍历的惰性
type countingStore struct {
	storage.Store
	gets atomic.Int32
}

func (c *countingStore) Get(ctx context.Context, h types.Hash) (io.ReadCloser, error) {
	c.gets.Add(1)
	return c.Store.Get(ctx, h)
}

func newTestRepo(t *testing.T) (*Repository, *countingStore) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	metaDB := meta.NewWithConn(db)
	require.NoError(t, metaDB.AutoMigrate(meta.Models()...))
	metaRepo := meta.NewRepository(metaDB)

	store := &countingStore{Store: memory.NewAdapter()}
	return New(store, WithRefs(refs.NewManager(metaRepo, store)), WithMeta(metaRepo)), store
}

// fixture:
//
//	README.md
//	a/x.txt
//	a/y/deep.txt
//	b/z.bin
func buildFixture(t *testing.T, r *Repository) types.Hash {
	t.Helper()
	id, err := r.BuildTree(context.Background(), "", treebuilder.Map{
		"README.md": "hello\n",
		"a": treebuilder.Map{
			"x.txt": "x",
			"y":     treebuilder.Map{"deep.txt": "deep"},
		},
		"b": treebuilder.Map{"z.bin": "\x00\x01"},
	})
	require.NoError(t, err)
	return id
}

func TestBlobRoundTrip(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t)

	big := strings.Repeat("0123456789abcdef", 10000)
	for _, in := range []string{"", "hello", big} {
		id, err := r.WriteBlob(ctx, []byte(in))
		require.NoError(t, err)

		size, err := r.BlobSize(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(len(in)), size)

		data, err := r.ReadBlob(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, in, string(data))
	}

	_, err := r.ReadBlob(ctx, "ffff000000000000000000000000000000000000000000000000000000000000")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestWalkTree_OrderAndLaziness(t *testing.T) {
	ctx := context.Background()
	r, store := newTestRepo(t)
	root := buildFixture(t, r)

	var paths []string
	for e, err := range r.WalkTree(ctx, root) {
		require.NoError(t, err)
		paths = append(paths, e.Path)
	}
	assert.Equal(t, []string{"README.md", "a", "a/x.txt", "a/y", "a/y/deep.txt", "b", "b/z.bin"}, paths)

	// 在第一个条目处停止：只读了根树
	store.gets.Store(0)
	for range r.WalkTree(ctx, root) {
		break
	}
	assert.Equal(t, int32(1), store.gets.Load())

	// 停在 "a" 上：还没有进入 a
	store.gets.Store(0)
	for e := range r.WalkTree(ctx, root) {
		if e.Path == "a" {
			break
		}
	}
	assert.Equal(t, int32(1), store.gets.Load())
}

func TestResolvePath(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t)
	root := buildFixture(t, r)

	tests := []struct {
		path     string
		found    bool
		wantPath string
		kind     core.Kind
	}{
		{"README.md", true, "README.md", core.KindBlob},
		{"a", true, "a", core.KindTree},
		{"/a/y/", true, "a/y", core.KindTree},
		{"a//y/deep.txt", true, "a/y/deep.txt", core.KindBlob},
		{"", true, "", core.KindTree},
		{"nope", false, "", 0},
		{"a/nope/deep.txt", false, "", 0},
		{"README.md/x", false, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			e, ok, err := r.ResolvePath(ctx, root, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.wantPath, e.Path)
				assert.Equal(t, tt.kind, e.Kind())
			}
		})
	}
}

func TestFormatTree(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t)
	root := buildFixture(t, r)

	entries, err := r.ListTree(ctx, root)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	out, err := r.FormatTree(ctx, root)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, fmt.Sprintf("100644 blob %s\tREADME.md", entries[0].Cid.Hash), lines[0])
	assert.Equal(t, fmt.Sprintf("040000 tree %s\ta", entries[1].Cid.Hash), lines[1])
}

func TestResolveRefAndRootTree(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t)
	root := buildFixture(t, r)

	// 空仓库
	_, ok, err := r.ResolveRef(ctx, "HEAD")
	require.NoError(t, err)
	assert.False(t, ok)

	c, err := r.CommitTree(ctx, root, nil, "tester", "init")
	require.NoError(t, err)
	require.NoError(t, r.Refs().UpdateHead(ctx, c.ID(), 0))

	for _, rev := range []string{"", "HEAD", string(c.ID()), string(c.ID()[:8])} {
		got, ok, err := r.ResolveRef(ctx, rev)
		require.NoError(t, err)
		require.True(t, ok, "rev %q", rev)
		assert.Equal(t, c.ID(), got)
	}

	tree, err := r.RootTreeOf(ctx, c.ID())
	require.NoError(t, err)
	assert.Equal(t, root, tree)

	// 直接给树的 Hash 也可以
	tree, err = r.RootTreeOf(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, root, tree)

	// Blob 不是 Commit
	blobID, err := r.WriteBlob(ctx, []byte("x"))
	require.NoError(t, err)
	_, err = r.RootTreeOf(ctx, blobID)
	var mismatch core.ErrTypeMismatch
	assert.ErrorAs(t, err, &mismatch)
}

func TestRootTreeOf_WithoutMeta(t *testing.T) {
	ctx := context.Background()
	store := memory.NewAdapter()
	r := New(store)
	root := buildFixture(t, r)

	c, err := r.CommitTree(ctx, root, nil, "tester", "no meta")
	require.NoError(t, err)

	got, err := r.RootTreeOf(ctx, c.ID())
	require.NoError(t, err)
	assert.Equal(t, root, got)

	// 没有引用数据库时按哈希前缀解析
	h, ok, err := r.ResolveRef(ctx, string(c.ID()[:6]))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, c.ID(), h)

	_, ok, err = r.ResolveRef(ctx, "HEAD")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWriteIndexAndReadCommit(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t)

	idx, err := index.NewIndex(filepath.Join(t.TempDir(), "index"))
	require.NoError(t, err)

	blobID, err := r.WriteBlob(ctx, []byte("x"))
	require.NoError(t, err)
	idx.Add("a/x.txt", blobID, 1, core.ModeRegular)

	root, err := r.WriteIndex(ctx, idx)
	require.NoError(t, err)

	// 与直接构建同样内容的树得到同一个 Hash
	want, err := r.BuildTree(ctx, "", treebuilder.Map{"a": treebuilder.Map{"x.txt": "x"}})
	require.NoError(t, err)
	assert.Equal(t, want, root)

	c, err := r.CommitTree(ctx, root, nil, "tester", "from index")
	require.NoError(t, err)

	got, err := r.ReadCommit(ctx, c.ID())
	require.NoError(t, err)
	assert.Equal(t, root, got.TreeCid.Hash)
	assert.Equal(t, "tester", got.Author)
	assert.Equal(t, "from index", got.Message)

	_, err = r.ReadCommit(ctx, root)
	assert.Error(t, err)
}

func TestSplitPath(t *testing.T) {
	assert.Empty(t, SplitPath(""))
	assert.Empty(t, SplitPath("///"))
	assert.Equal(t, []string{"a", "b"}, SplitPath("/a//b/"))
}
