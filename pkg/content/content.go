// Package content 提供与对象格式无关的内容判定：二进制检测、MIME、行数。
package content

import (
	"bytes"
	"mime"
	"path"
	"strings"
)

// sniffLen 与 git 的 buffer_is_binary 一致
const sniffLen = 8000

// DefaultMimeType 在扩展名无法识别时使用
const DefaultMimeType = "text/plain"

// IsBinary 前 8000 字节内出现 NUL 即视为二进制
func IsBinary(data []byte) bool {
	if len(data) > sniffLen {
		data = data[:sniffLen]
	}
	return bytes.IndexByte(data, 0) >= 0
}

// MimeType 根据文件名推断简化后的 MIME 类型 (去掉 charset 等参数)
func MimeType(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if ext == "" {
		return DefaultMimeType
	}
	t := mime.TypeByExtension(ext)
	if t == "" {
		return DefaultMimeType
	}
	if mt, _, err := mime.ParseMediaType(t); err == nil {
		return mt
	}
	return DefaultMimeType
}

// SplitLines 按 "\n" 切分，丢弃末尾的空段
func SplitLines(data []byte) [][]byte {
	lines := bytes.Split(data, []byte("\n"))
	for len(lines) > 0 && len(lines[len(lines)-1]) == 0 {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// CountLines 等价于 len(SplitLines(data))，但不分配
func CountLines(data []byte) int {
	data = bytes.TrimRight(data, "\n")
	if len(data) == 0 {
		return 0
	}
	return bytes.Count(data, []byte("\n")) + 1
}
