package core

import (
	"time"

	"treevault/pkg/types"
)

type Commit struct {
	hash     types.Hash `cbor:"-"`
	rawBytes []byte     `cbor:"-"`

	TypeVal ObjectType `cbor:"t"`

	TreeCid Link   `cbor:"th"`
	Parents []Link `cbor:"p"`

	Author  string `cbor:"a"`
	Message string `cbor:"m"`

	Timestamp int64 `cbor:"ts"`
}

func NewCommit(treeHash types.Hash, parents []types.Hash, author, msg string) (*Commit, error) {
	parentLinks := make([]Link, len(parents))
	for i, p := range parents {
		parentLinks[i] = NewLink(p)
	}

	c := &Commit{
		TypeVal:   TypeCommit,
		TreeCid:   NewLink(treeHash),
		Parents:   parentLinks,
		Author:    author,
		Message:   msg,
		Timestamp: time.Now().Unix(),
	}
	if err := c.seal(); err != nil {
		return nil, err
	}
	return c, nil
}

// seal 重新计算 Hash 和序列化数据
func (c *Commit) seal() error {
	h, b, err := CalculateHash(c)
	if err != nil {
		return err
	}
	c.hash = h
	c.rawBytes = b
	return nil
}

// DecodeCommit 从存储的字节还原 Commit
func DecodeCommit(data []byte) (*Commit, error) {
	var c Commit
	if err := DecodeObject(data, &c); err != nil {
		return nil, err
	}
	if c.TypeVal != TypeCommit {
		return nil, ErrTypeMismatch{Want: TypeCommit, Got: c.TypeVal}
	}
	c.hash = CalculateBlobHash(data)
	c.rawBytes = data
	return &c, nil
}

func (c *Commit) Type() ObjectType { return TypeCommit }
func (c *Commit) ID() types.Hash   { return c.hash }
func (c *Commit) Bytes() []byte    { return c.rawBytes }
