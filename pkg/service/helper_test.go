package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"treevault/pkg/gitobj"
	"treevault/pkg/meta"
	"treevault/pkg/odb"
	"treevault/pkg/refs"
	"treevault/pkg/storage/memory"
	"treevault/pkg/types"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupRepo 内存对象库 + 内存 SQLite，并提交一棵固定的树
func setupRepo(t *testing.T) (*odb.Repository, types.Hash) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	metaDB := meta.NewWithConn(db)
	require.NoError(t, metaDB.AutoMigrate(meta.Models()...))
	metaRepo := meta.NewRepository(metaDB)

	store := memory.NewAdapter()
	repo := odb.New(store, odb.WithRefs(refs.NewManager(metaRepo, store)), odb.WithMeta(metaRepo))

	ctx := context.Background()
	tree, err := gitobj.NewTreeFromMap(ctx, repo, gitobj.Map{
		"README.md": "# demo\nline two\n",
		"src": gitobj.Map{
			"main.go": "package main\n",
			"util":    gitobj.Map{"u.go": "package util\n"},
		},
		"logo.png": "\x89PNG\x00\x01",
	}, nil)
	require.NoError(t, err)

	c, err := repo.CommitTree(ctx, tree.ID(), nil, "tester", "init")
	require.NoError(t, err)
	require.NoError(t, repo.Refs().UpdateHead(ctx, c.ID(), 0))
	require.NoError(t, repo.Refs().SetRef(ctx, refs.HeadsPrefix+"main", c.ID()))
	return repo, c.ID()
}
