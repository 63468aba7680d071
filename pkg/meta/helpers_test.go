package meta

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"treevault/pkg/core"
	"treevault/pkg/types"

	"github.com/stretchr/testify/require"
)

// mockHash 生成合法的测试用 Hash
func mockHash(input string) types.Hash {
	sum := sha256.Sum256([]byte(input))
	return types.Hash(hex.EncodeToString(sum[:]))
}

func mustNewCommit(t *testing.T, treeHash types.Hash, parents []types.Hash, author, msg string, msgAndArgs ...any) *core.Commit {
	t.Helper()
	c, err := core.NewCommit(treeHash, parents, author, msg)
	require.NoError(t, err, msgAndArgs...)
	return c
}

func mustIndexCommit(t *testing.T, repo *Repository, c *core.Commit, msgAndArgs ...any) {
	t.Helper()
	require.NoError(t, repo.IndexCommit(context.Background(), c), msgAndArgs...)
}

func mustUpdateRef(t *testing.T, repo *Repository, name string, newHash types.Hash, oldVersion int64, msgAndArgs ...any) {
	t.Helper()
	require.NoError(t, repo.UpdateRef(context.Background(), name, newHash, oldVersion), msgAndArgs...)
}
