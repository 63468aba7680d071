package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"treevault/pkg/types"

	"github.com/fxamacker/cbor/v2"
)

// 定义符合 DAG-CBOR 规范的编码选项
var encOptions = cbor.EncOptions{
	// 1. 强制 Map Key 排序 (Canonical)
	// 保证相同的对象生成唯一的 Hash
	Sort: cbor.SortCanonical,

	// 2. 浮点数必须使用64位表示
	ShortestFloat: cbor.ShortestFloatNone,
	// 3. 时间格式化为 Unix 整数
	Time:    cbor.TimeUnix,
	TimeTag: cbor.EncTagNone,

	// 4. 禁止不定长编码 (Indefinite Length)
	// IPLD 要求数组和 Map 必须在头部声明长度
	IndefLength: cbor.IndefLengthForbidden,

	BigIntConvert: cbor.BigIntConvertShortest,
}

// 全局复用的编码模式
var em, _ = encOptions.EncMode()

// 定义符合 DAG-CBOR 规范的解码选项
var decOptions = cbor.DecOptions{
	// --- 安全性配置 (防 DoS 攻击) ---
	// 限制容器元素数量和嵌套深度
	// 目录树可能很宽，所以数组上限比 map 大
	MaxArrayElements: 1 << 20,
	MaxMapPairs:      10000,
	MaxNestedLevels:  100,

	// --- 规范性配置 (DAG-CBOR Strictness) ---
	IndefLength: cbor.IndefLengthForbidden,

	// 强制检查 Map Key 重复 (DAG-CBOR 不允许重复 Key)
	DupMapKey: cbor.DupMapKeyEnforcedAPF,

	BignumTag: cbor.BignumTagForbidden,

	TimeTag: cbor.DecTagIgnored,
}

var dm, _ = decOptions.DecMode()

// CalculateHash 计算对象的 Hash (CID) 和序列化数据
func CalculateHash(v any) (types.Hash, []byte, error) {
	data, err := em.Marshal(v)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal object: %w", err)
	}

	hashBytes := sha256.Sum256(data)
	return types.Hash(hex.EncodeToString(hashBytes[:])), data, nil
}

// CalculateBlobHash 计算原始数据块的 Hash
func CalculateBlobHash(data []byte) types.Hash {
	hashBytes := sha256.Sum256(data)
	return types.Hash(hex.EncodeToString(hashBytes[:]))
}

// DecodeObject 通用的解码函数 (供外部使用)
func DecodeObject(data []byte, v any) error {
	return dm.Unmarshal(data, v)
}

// PeekType 只解出对象头部的类型字段
// 解不出来的数据视为 Chunk (原始字节)
func PeekType(data []byte) ObjectType {
	var header struct {
		TypeVal ObjectType `cbor:"t"`
	}
	if err := dm.Unmarshal(data, &header); err != nil {
		return TypeChunk
	}
	switch header.TypeVal {
	case TypeBlob, TypeTree, TypeCommit:
		return header.TypeVal
	default:
		return TypeChunk
	}
}
