// pkg/types/common.go
package types

// Hash 代表对象的唯一标识符 (SHA256 Hex String)
// 这是一个“值对象”，应当是不可变的。
type Hash string

func (h Hash) String() string { return string(h) }

// 验证 Hash 合法性
func (h Hash) IsZero() bool  { return h == "" }
func (h Hash) IsValid() bool { return len(h) == 64 } // 简单的长度检查

// Short 返回用于展示的前 8 位
func (h Hash) Short() string {
	if len(h) <= 8 {
		return string(h)
	}
	return string(h[:8])
}

// HashPrefix 是用户输入的短哈希，需要经过 ExpandHash 才能使用
type HashPrefix string

func (p HashPrefix) String() string { return string(p) }

// IsHex 检查前缀是否只包含小写十六进制字符
func (p HashPrefix) IsHex() bool {
	if p == "" {
		return false
	}
	for _, c := range p {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
