package gitobj

import (
	"context"
	"sync"

	"treevault/pkg/content"
	"treevault/pkg/core"
)

// Blob 是叶子对象
type Blob struct {
	object

	mu       sync.Mutex
	size     int64
	sizeDone bool
	data     []byte
	dataDone bool
	binary   bool
	binDone  bool
}

func (b *Blob) Kind() core.Kind { return core.KindBlob }

// Size 返回内容的字节数。读过 Data 之后不再访问存储。
func (b *Blob) Size(ctx context.Context) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sizeDone {
		return b.size, nil
	}
	if b.dataDone {
		b.size, b.sizeDone = int64(len(b.data)), true
		return b.size, nil
	}
	n, err := b.store.BlobSize(ctx, b.id)
	if err != nil {
		return 0, &StoreError{Op: "size", ID: b.id, Err: err}
	}
	b.size, b.sizeDone = n, true
	return n, nil
}

// Data 返回完整内容。返回的切片与缓存共享，调用方不要修改。
func (b *Blob) Data(ctx context.Context) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loadData(ctx)
}

func (b *Blob) loadData(ctx context.Context) ([]byte, error) {
	if b.dataDone {
		return b.data, nil
	}
	data, err := b.store.ReadBlob(ctx, b.id)
	if err != nil {
		return nil, &StoreError{Op: "read", ID: b.id, Err: err}
	}
	b.data, b.dataDone = data, true
	return data, nil
}

func (b *Blob) Binary(ctx context.Context) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loadBinary(ctx)
}

func (b *Blob) loadBinary(ctx context.Context) (bool, error) {
	if b.binDone {
		return b.binary, nil
	}
	data, err := b.loadData(ctx)
	if err != nil {
		return false, err
	}
	b.binary, b.binDone = b.store.IsBinary(data), true
	return b.binary, nil
}

// LineCount 二进制内容为 0；否则按 "\n" 切分，末尾的空段不计。
// "" -> 0, "a\n" -> 1, "a\nb\nc" -> 3
func (b *Blob) LineCount(ctx context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	bin, err := b.loadBinary(ctx)
	if err != nil {
		return 0, err
	}
	if bin {
		return 0, nil
	}
	return content.CountLines(b.data), nil
}

// MimeType 只看文件名，识别不了时返回 text/plain
func (b *Blob) MimeType() string {
	if t := b.store.MimeTypeFor(b.Name()); t != "" {
		return t
	}
	return content.DefaultMimeType
}

func (b *Blob) IsSymlink() bool {
	return b.mode == core.ModeSymlink
}

// NewBlobFromString 把 contents 写入存储，返回一个没有路径的普通文件 Blob
func NewBlobFromString(ctx context.Context, store ObjectStore, contents string) (*Blob, error) {
	id, err := store.WriteBlob(ctx, []byte(contents))
	if err != nil {
		return nil, err
	}
	return &Blob{object: object{store: store, id: id, mode: core.ModeRegular}}, nil
}

// FindBlob 在 rev (默认 HEAD) 的根树里按完整路径查找文件。
// 引用解析不到、路径不存在或者路径指向目录时返回 (nil, false, nil)。
func FindBlob(ctx context.Context, store ObjectStore, filePath, rev string) (*Blob, bool, error) {
	root, ok, err := resolveRoot(ctx, store, rev)
	if err != nil || !ok {
		return nil, false, err
	}
	e, ok, err := store.ResolvePath(ctx, root, filePath)
	if err != nil || !ok || e.Kind() != core.KindBlob {
		return nil, false, err
	}
	return New(store, e).(*Blob), true, nil
}
