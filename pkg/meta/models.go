package meta

import (
	"time"

	"treevault/pkg/types"

	"gorm.io/datatypes"
)

// Ref 存储引用 (例如 "HEAD"、"refs/heads/main"、"refs/tags/v1")
type Ref struct {
	Name string `gorm:"primaryKey;type:varchar(255)"`

	CommitHash types.Hash `gorm:"type:char(64);not null"`

	// Version 用于乐观锁 (CAS)，每次更新 +1
	Version int64 `gorm:"default:1"`

	UpdatedAt time.Time
}

// CommitModel 是 core.Commit 在关系型数据库中的投影
// rootTreeOf 走这里可以省掉一次对象读取
type CommitModel struct {
	Hash types.Hash `gorm:"primaryKey;type:char(64)"`

	Author    string `gorm:"index;type:varchar(100)"`
	Message   string `gorm:"type:text"`
	Timestamp int64  `gorm:"index"`

	TreeHash types.Hash `gorm:"type:char(64);not null"`

	// ["hash1", "hash2"]
	Parents datatypes.JSON

	CreatedAt time.Time
}

func (CommitModel) TableName() string {
	return "commits"
}

// Models 返回需要迁移的全部表
func Models() []any {
	return []any{&Ref{}, &CommitModel{}}
}
