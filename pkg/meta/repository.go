package meta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"treevault/pkg/core"
	"treevault/pkg/types"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrRefNotFound      = errors.New("reference not found")
	ErrConcurrentUpdate = errors.New("concurrent update detected (CAS failed)")
	ErrCommitNotFound   = errors.New("commit not found in metadata")
)

// Repository 封装所有对 SQL 数据库的操作
type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// -----------------------------------------------------------------------------
// 1. 引用
// -----------------------------------------------------------------------------

func (r *Repository) GetRef(ctx context.Context, name string) (*Ref, error) {
	var ref Ref
	err := r.db.GetConn().WithContext(ctx).
		Where("name = ?", name).
		First(&ref).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRefNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// ListRefs 按名字前缀列出引用，结果按名字排序
func (r *Repository) ListRefs(ctx context.Context, prefix string) ([]Ref, error) {
	var refs []Ref
	q := r.db.GetConn().WithContext(ctx).Order("name")
	if prefix != "" {
		q = q.Where(`name LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%")
	}
	if err := q.Find(&refs).Error; err != nil {
		return nil, err
	}
	return refs, nil
}

// UpdateRef 原子更新引用 (CAS)
// oldVersion 为 0 表示创建；否则必须与库里的版本一致
func (r *Repository) UpdateRef(ctx context.Context, name string, newHash types.Hash, oldVersion int64) error {
	return r.db.GetConn().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if oldVersion == 0 {
			ref := Ref{
				Name:       name,
				CommitHash: newHash,
				Version:    1,
			}
			if err := tx.Create(&ref).Error; err != nil {
				// PG 与 SQLite 的唯一约束错误不一样
				if errors.Is(err, gorm.ErrDuplicatedKey) ||
					strings.Contains(err.Error(), "UNIQUE constraint failed") {
					return ErrConcurrentUpdate
				}
				return fmt.Errorf("failed to create ref: %w", err)
			}
			return nil
		}

		// UPDATE refs SET commit_hash = ?, version = version + 1 WHERE name = ? AND version = ?
		result := tx.Model(&Ref{}).
			Where("name = ? AND version = ?", name, oldVersion).
			Updates(map[string]any{
				"commit_hash": newHash,
				"version":     gorm.Expr("version + 1"),
				"updated_at":  time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrConcurrentUpdate
		}
		return nil
	})
}

// -----------------------------------------------------------------------------
// 2. 提交索引
// -----------------------------------------------------------------------------

// IndexCommit 将 core.Commit 投影到 SQL，重复写入什么都不做
func (r *Repository) IndexCommit(ctx context.Context, c *core.Commit) error {
	parentHashes := make([]types.Hash, 0, len(c.Parents))
	for _, p := range c.Parents {
		parentHashes = append(parentHashes, p.Hash)
	}
	parentsJSON, err := json.Marshal(parentHashes)
	if err != nil {
		return fmt.Errorf("failed to marshal parents: %w", err)
	}

	model := CommitModel{
		Hash:      c.ID(),
		Author:    c.Author,
		Message:   c.Message,
		Timestamp: c.Timestamp,
		TreeHash:  c.TreeCid.Hash,
		Parents:   datatypes.JSON(parentsJSON),
		CreatedAt: time.Unix(c.Timestamp, 0),
	}

	err = r.db.GetConn().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "hash"}},
			DoNothing: true,
		}).
		Create(&model).Error
	if err != nil {
		return fmt.Errorf("failed to index commit: %w", err)
	}
	return nil
}

func (r *Repository) GetCommit(ctx context.Context, hash types.Hash) (*CommitModel, error) {
	var commit CommitModel
	err := r.db.GetConn().WithContext(ctx).
		Where("hash = ?", hash).
		First(&commit).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCommitNotFound
	}
	if err != nil {
		return nil, err
	}
	return &commit, nil
}

// ParentHashes 解析 Parents JSON
func (m *CommitModel) ParentHashes() ([]types.Hash, error) {
	var out []types.Hash
	if len(m.Parents) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(m.Parents, &out); err != nil {
		return nil, fmt.Errorf("decode parents of %s: %w", m.Hash, err)
	}
	return out, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
