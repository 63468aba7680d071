package core

import "treevault/pkg/types"

// ChunkLink 描述了 BlobNode 对底层 Chunk 的引用
type ChunkLink struct {
	Cid  Link `cbor:"h"`
	Size int  `cbor:"s"` // 这个 Chunk 的大小 (用于计算 offset)
}

func NewChunkLink(c *Chunk) ChunkLink {
	return ChunkLink{Cid: NewLink(c.ID()), Size: len(c.Bytes())}
}

// BlobNode 将散乱的 Chunk 组装成一个逻辑上的文件内容
// 它的 Hash 就是 Blob 的 ID
type BlobNode struct {
	hash     types.Hash `cbor:"-"`
	rawBytes []byte     `cbor:"-"`

	TypeVal   ObjectType  `cbor:"t"`  // 必须是 "blob"
	TotalSize int64       `cbor:"ts"` // 内容总大小
	Chunks    []ChunkLink `cbor:"cs"` // 所有的切片引用
}

// NewBlobNode 创建一个新的 Blob 索引节点
func NewBlobNode(totalSize int64, chunks []ChunkLink) (*BlobNode, error) {
	if chunks == nil {
		// 空内容也要编码成 [] 而不是 null，保证 Hash 稳定
		chunks = []ChunkLink{}
	}
	node := &BlobNode{
		TypeVal:   TypeBlob,
		TotalSize: totalSize,
		Chunks:    chunks,
	}
	h, b, err := CalculateHash(node)
	if err != nil {
		return nil, err
	}
	node.hash = h
	node.rawBytes = b
	return node, nil
}

func (b *BlobNode) Type() ObjectType { return TypeBlob }
func (b *BlobNode) ID() types.Hash   { return b.hash }
func (b *BlobNode) Bytes() []byte    { return b.rawBytes }
func (b *BlobNode) Size() int64      { return b.TotalSize }

// BlobNodeBuilder 按顺序收集 Chunk，最后生成 BlobNode
type BlobNodeBuilder struct {
	chunks []ChunkLink
	total  int64
}

func NewBlobNodeBuilder() *BlobNodeBuilder {
	return &BlobNodeBuilder{}
}

func (b *BlobNodeBuilder) Add(c *Chunk) {
	b.chunks = append(b.chunks, NewChunkLink(c))
	b.total += c.Size()
}

func (b *BlobNodeBuilder) Build() (*BlobNode, error) {
	return NewBlobNode(b.total, b.chunks)
}

// DecodeBlobNode 从存储的字节还原 BlobNode
func DecodeBlobNode(data []byte) (*BlobNode, error) {
	var b BlobNode
	if err := DecodeObject(data, &b); err != nil {
		return nil, err
	}
	if b.TypeVal != TypeBlob {
		return nil, ErrTypeMismatch{Want: TypeBlob, Got: b.TypeVal}
	}
	b.hash = CalculateBlobHash(data)
	b.rawBytes = data
	return &b, nil
}
