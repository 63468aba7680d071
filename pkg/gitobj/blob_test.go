package gitobj

import (
	"context"
	"sync"
	"testing"

	"treevault/pkg/core"
	"treevault/pkg/odb"
	"treevault/pkg/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBlobFromString_Hello(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	b, err := NewBlobFromString(ctx, env.store, "hello")
	require.NoError(t, err)

	assert.False(t, b.ID().IsZero())
	assert.Equal(t, "", b.Path())
	assert.Equal(t, "", b.Name())
	assert.Equal(t, core.ModeRegular, b.Mode())
	assert.Equal(t, core.KindBlob, b.Kind())

	size, err := b.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), size)

	bin, err := b.Binary(ctx)
	require.NoError(t, err)
	assert.False(t, bin)

	lines, err := b.LineCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, lines)

	// 没有名字时使用默认 MIME
	assert.Equal(t, "text/plain", b.MimeType())
	assert.False(t, b.IsSymlink())
}

func TestBlob_LineCount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		in   string
		want int
	}{
		{"a\nb\nc", 3},
		{"", 0}, // 空内容没有行
		{"\n", 0},
		{"a\n", 1},
		{"\na", 2},
		{"bin\x00ary\nstuff", 0}, // 二进制内容恒为 0
	}
	for _, tt := range tests {
		b, err := NewBlobFromString(ctx, env.store, tt.in)
		require.NoError(t, err)
		got, err := b.LineCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "content %q", tt.in)
	}
}

func TestBlob_Memoization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	b, err := NewBlobFromString(ctx, env.store, "cached content")
	require.NoError(t, err)

	for range 3 {
		_, err := b.Data(ctx)
		require.NoError(t, err)
		_, err = b.Binary(ctx)
		require.NoError(t, err)
		_, err = b.LineCount(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), env.spy.readCalls.Load(), "数据只应读取一次")

	// Data 已缓存，Size 不再访问存储
	size, err := b.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(len("cached content")), size)
	assert.Equal(t, int32(0), env.spy.sizeCalls.Load())
}

func TestBlob_SizeWithoutData(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	b, err := NewBlobFromString(ctx, env.store, "12345678")
	require.NoError(t, err)

	for range 2 {
		size, err := b.Size(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(8), size)
	}
	assert.Equal(t, int32(1), env.spy.sizeCalls.Load())
	assert.Equal(t, int32(0), env.spy.readCalls.Load(), "Size 不需要读数据块")
}

func TestBlob_ConcurrentFirstAccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	b, err := NewBlobFromString(ctx, env.store, "shared")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, err := b.Data(ctx)
			assert.NoError(t, err)
			assert.Equal(t, "shared", string(data))
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), env.spy.readCalls.Load())
}

func TestBlob_VanishedObject(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// 一个从未写入的对象
	b := New(env.store, core.Entry{
		Path: "ghost.txt",
		Mode: core.ModeRegular,
		ID:   "dead000000000000000000000000000000000000000000000000000000000000",
	}).(*Blob)

	_, err := b.Data(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.True(t, IsNotFound(err))

	var se *StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "read", se.Op)
	assert.Equal(t, b.ID(), se.ID)

	_, err = b.Size(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// 失败不会被缓存
	_, err = b.Data(ctx)
	assert.Error(t, err)
}

func TestBlob_MimeTypeAndSymlink(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		path string
		mode core.FileMode
		mime string
		link bool
	}{
		{"docs/index.html", core.ModeRegular, "text/html", false},
		{"img/logo.png", core.ModeRegular, "image/png", false},
		{"Makefile", core.ModeRegular, "text/plain", false},
		{"current", core.ModeSymlink, "text/plain", true},
	}
	for _, tt := range tests {
		b := New(env.store, core.Entry{Path: tt.path, Mode: tt.mode, ID: "00"}).(*Blob)
		assert.Equal(t, tt.mime, b.MimeType(), tt.path)
		assert.Equal(t, tt.link, b.IsSymlink(), tt.path)
	}

	b := New(env.store, core.Entry{Path: "docs/index.html", Mode: core.ModeRegular, ID: "00"})
	assert.Equal(t, "index.html", b.Name())
}

func TestFindBlob(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// 空仓库：HEAD 解析不到
	b, ok, err := FindBlob(ctx, env.store, "README.md", "")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, b)

	tree := env.fixture(t)
	commitID := env.commit(t, tree, "init")

	b, ok, err = FindBlob(ctx, env.store, "a/y/deep.txt", "")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a/y/deep.txt", b.Path())
	assert.Equal(t, "deep.txt", b.Name())
	assert.Equal(t, core.ModeRegular, b.Mode())
	data, err := b.Data(ctx)
	require.NoError(t, err)
	assert.Equal(t, "deep", string(data))

	// 按 Commit 短哈希
	b, ok, err = FindBlob(ctx, env.store, "README.md", string(commitID[:10]))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "README.md", b.Path())

	// 各种找不到
	for _, tc := range []struct{ path, rev string }{
		{"nope.txt", "HEAD"},
		{"a", "HEAD"},            // 目录不是 Blob
		{"a/y/deep.txt", "nope"}, // 引用不存在
		{"README.md/x", "HEAD"},
	} {
		b, ok, err := FindBlob(ctx, env.store, tc.path, tc.rev)
		require.NoError(t, err)
		assert.False(t, ok, "%s@%s", tc.path, tc.rev)
		assert.Nil(t, b)
	}

	// 没有仓库
	b, ok, err = FindBlob(ctx, nil, "README.md", "")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, b)
}

func TestFindBlob_KeepsStoredMode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// 先用 Map 构造，再把 run.sh 的模式改成可执行
	base, err := NewTreeFromMap(ctx, env.store, Map{"run.sh": "#!/bin/sh\n"}, nil)
	require.NoError(t, err)
	entries, err := env.repo.ListTree(ctx, base.ID())
	require.NoError(t, err)
	entries[0].Mode = core.ModeExecutable
	exec, err := core.NewTree(entries)
	require.NoError(t, err)
	require.NoError(t, env.repo.Store().Put(ctx, exec))

	env.commit(t, New(env.store, core.Entry{Mode: core.ModeTree, ID: exec.ID()}).(*Tree), "exec")

	b, ok, err := FindBlob(ctx, env.store, "run.sh", "HEAD")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, core.ModeExecutable, b.Mode())
}

func TestFind_RevPrefixOfBlobIsUnresolved(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.commit(t, env.fixture(t), "init")

	blobID, err := env.repo.WriteBlob(ctx, []byte("not a commit\n"))
	require.NoError(t, err)

	for _, rev := range []string{string(blobID[:8]), string(blobID)} {
		b, ok, err := FindBlob(ctx, env.store, "README.md", rev)
		require.NoError(t, err, rev)
		assert.False(t, ok)
		assert.Nil(t, b)

		tr, ok, err := FindTree(ctx, env.store, "", rev)
		require.NoError(t, err, rev)
		assert.False(t, ok)
		assert.Nil(t, tr)
	}
}

func TestFind_TypedNilRepository(t *testing.T) {
	ctx := context.Background()
	var repo *odb.Repository

	b, ok, err := FindBlob(ctx, repo, "README.md", "HEAD")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, b)

	tr, ok, err := FindTree(ctx, repo, "", "")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, tr)
}
