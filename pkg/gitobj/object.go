// Package gitobj 是对象库之上的内存导航层。
//
// Blob 和 Tree 都是不可变快照：字段在第一次访问时从存储读取并缓存，之后不再失效。
// 每个实例用自己的互斥锁保护缓存，并发的首次访问只会读一次存储。
//
// 查找类操作 (FindBlob、FindTree、Tree.Lookup、Tree.Find) 用 (obj, false, nil)
// 表示"没找到"；只有存储故障才返回 error。
package gitobj

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"reflect"
	"strings"

	"treevault/pkg/core"
	"treevault/pkg/storage"
	"treevault/pkg/treebuilder"
	"treevault/pkg/types"
)

// Map 是 NewTreeFromMap 的输入
type Map = treebuilder.Map

// ObjectStore 是导航层对存储的全部依赖。odb.Repository 实现了它。
type ObjectStore interface {
	// ResolveRef 解析不到时返回 ("", false, nil)
	ResolveRef(ctx context.Context, rev string) (types.Hash, bool, error)
	RootTreeOf(ctx context.Context, commit types.Hash) (types.Hash, error)

	ReadBlob(ctx context.Context, id types.Hash) ([]byte, error)
	BlobSize(ctx context.Context, id types.Hash) (int64, error)

	ListTree(ctx context.Context, id types.Hash) ([]core.TreeEntry, error)
	WalkTree(ctx context.Context, id types.Hash) iter.Seq2[core.Entry, error]
	ResolvePath(ctx context.Context, treeID types.Hash, path string) (core.Entry, bool, error)
	FormatTree(ctx context.Context, id types.Hash) (string, error)

	WriteBlob(ctx context.Context, data []byte) (types.Hash, error)
	BuildTree(ctx context.Context, base types.Hash, m treebuilder.Map) (types.Hash, error)

	IsBinary(data []byte) bool
	MimeTypeFor(name string) string
}

// Object 是 *Blob 或 *Tree
type Object interface {
	ID() types.Hash
	Mode() core.FileMode
	// Path 相对于解析它的那棵树；独立创建的对象为空
	Path() string
	Name() string
	Kind() core.Kind

	header() *object
}

// StoreError 表示一个已经确认存在的对象在读取时出错
type StoreError struct {
	Op  string
	ID  types.Hash
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.ID.Short(), e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsNotFound 判断错误是否由对象缺失导致
func IsNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}

// object 是 Blob 和 Tree 的公共部分，创建后不再修改
type object struct {
	store ObjectStore
	id    types.Hash
	mode  core.FileMode
	path  string
}

func (o *object) ID() types.Hash      { return o.id }
func (o *object) Mode() core.FileMode { return o.mode }
func (o *object) Path() string        { return o.path }
func (o *object) header() *object     { return o }

// Name 是 Path 的最后一段
func (o *object) Name() string {
	if i := strings.LastIndexByte(o.path, '/'); i >= 0 {
		return o.path[i+1:]
	}
	return o.path
}

// New 按模式位把条目包装成 Blob 或 Tree
func New(store ObjectStore, e core.Entry) Object {
	base := object{store: store, id: e.ID, mode: e.Mode, path: e.Path}
	if e.Kind() == core.KindTree {
		return &Tree{object: base}
	}
	return &Blob{object: base}
}

// Entry 返回对象的轻量描述
func Entry(o Object) core.Entry {
	h := o.header()
	return core.Entry{Name: h.Name(), Path: h.path, Mode: h.mode, ID: h.id}
}

// resolveRoot 解析 rev 到根树；rev 为空时使用 HEAD。
// rev 指向的既不是 Commit 也不是 Tree (例如短哈希碰上了 Blob) 时按"解析不到"处理。
func resolveRoot(ctx context.Context, store ObjectStore, rev string) (types.Hash, bool, error) {
	if isNilStore(store) {
		return "", false, nil
	}
	if rev == "" {
		rev = "HEAD"
	}
	commit, ok, err := store.ResolveRef(ctx, rev)
	if err != nil || !ok {
		return "", false, err
	}
	root, err := store.RootTreeOf(ctx, commit)
	if err != nil {
		var mismatch core.ErrTypeMismatch
		if errors.As(err, &mismatch) {
			return "", false, nil
		}
		return "", false, &StoreError{Op: "root tree of", ID: commit, Err: err}
	}
	return root, true, nil
}

// isNilStore 同时识别无类型 nil 和包着 nil 指针的接口
func isNilStore(store ObjectStore) bool {
	if store == nil {
		return true
	}
	v := reflect.ValueOf(store)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
