package service

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrowser_Root(t *testing.T) {
	repo, _ := setupRepo(t)
	b := NewBrowser(repo)

	e, err := b.Entry(context.Background(), TreeQuery{Rev: "HEAD"})
	require.NoError(t, err)
	assert.Equal(t, "tree", e.Type)
	assert.Equal(t, "040000", e.Mode)
	assert.Equal(t, "", e.Path)

	require.Len(t, e.Entries, 3)
	assert.Equal(t, "README.md", e.Entries[0].Path)
	require.NotNil(t, e.Entries[0].Size)
	assert.Equal(t, int64(16), *e.Entries[0].Size)
	assert.Empty(t, e.Entries[0].Contents, "列表里不带内容")
	assert.Equal(t, "src", e.Entries[2].Path)
	assert.Nil(t, e.Entries[2].Size)
}

func TestBrowser_SubtreeAndRecursive(t *testing.T) {
	repo, _ := setupRepo(t)
	b := NewBrowser(repo)
	ctx := context.Background()

	e, err := b.Entry(ctx, TreeQuery{Rev: "main", Path: "src/"})
	require.NoError(t, err)
	assert.Equal(t, "src", e.Path)
	assert.Equal(t, "src", e.Name)
	require.Len(t, e.Entries, 2)
	assert.Equal(t, "src/main.go", e.Entries[0].Path)
	assert.Equal(t, "src/util", e.Entries[1].Path)

	e, err = b.Entry(ctx, TreeQuery{Rev: "main", Path: "src", Recursive: true})
	require.NoError(t, err)
	var paths []string
	for _, c := range e.Entries {
		paths = append(paths, c.Path)
	}
	assert.Equal(t, []string{"src/main.go", "src/util", "src/util/u.go"}, paths)
	assert.False(t, e.Truncated)

	e, err = b.Entry(ctx, TreeQuery{Rev: "main", Recursive: true, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, e.Entries, 2)
	assert.True(t, e.Truncated)

	// 正好取完时不算截断
	e, err = b.Entry(ctx, TreeQuery{Rev: "main", Recursive: true, Limit: 6})
	require.NoError(t, err)
	assert.Len(t, e.Entries, 6)
	assert.False(t, e.Truncated)
}

func TestBrowser_Blob(t *testing.T) {
	repo, commit := setupRepo(t)
	b := NewBrowser(repo)
	ctx := context.Background()

	e, err := b.Entry(ctx, TreeQuery{Rev: string(commit[:8]), Path: "README.md"})
	require.NoError(t, err)
	assert.Equal(t, "blob", e.Type)
	assert.Equal(t, "100644", e.Mode)
	assert.Equal(t, "# demo\nline two\n", e.Contents)
	assert.Equal(t, "utf-8", e.Encoding)
	require.NotNil(t, e.Lines)
	assert.Equal(t, 2, *e.Lines)
	require.NotNil(t, e.Binary)
	assert.False(t, *e.Binary)

	e, err = b.Entry(ctx, TreeQuery{Rev: "HEAD", Path: "logo.png"})
	require.NoError(t, err)
	assert.True(t, *e.Binary)
	assert.Equal(t, 0, *e.Lines)
	assert.Equal(t, "image/png", e.MimeType)
	assert.Equal(t, "base64", e.Encoding)
	raw, err := base64.StdEncoding.DecodeString(e.Contents)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG\x00\x01"), raw)
}

func TestBrowser_NotFound(t *testing.T) {
	repo, _ := setupRepo(t)
	b := NewBrowser(repo)
	ctx := context.Background()

	// 短哈希指向 Blob 而不是 Commit
	blobID, err := repo.WriteBlob(ctx, []byte("stray blob\n"))
	require.NoError(t, err)

	for _, q := range []TreeQuery{
		{Rev: "nope"},
		{Rev: string(blobID[:8])},
		{Rev: "HEAD", Path: "missing"},
		{Rev: "HEAD", Path: "README.md/x"},
	} {
		_, err := b.Entry(ctx, q)
		assert.ErrorIs(t, err, ErrNotFound, "%+v", q)
	}
}

func TestRefLister(t *testing.T) {
	repo, commit := setupRepo(t)
	l := NewRefLister(repo.Refs())
	ctx := context.Background()

	all, err := l.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "HEAD", all[0].Name)
	assert.Equal(t, "refs/heads/main", all[1].Name)

	heads, err := l.List(ctx, "refs/heads/")
	require.NoError(t, err)
	require.Len(t, heads, 1)
	assert.Equal(t, commit, heads[0].Hash)

	head, err := l.Head(ctx)
	require.NoError(t, err)
	assert.Equal(t, commit, head.Hash)

	var empty *RefLister
	refs, err := empty.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, refs)
	_, err = empty.Head(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}
