package treebuilder

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ParseYAML 把 YAML 文档解析成 Map。
// 标量 (数字、布尔) 按字面量转成文件内容，null 表示删除，嵌套映射表示目录。
func ParseYAML(data []byte) (Map, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if len(doc.Content) == 0 {
		return Map{}, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: top level must be a mapping", root.Line)
	}
	return mappingToMap(root)
}

func mappingToMap(n *yaml.Node) (Map, error) {
	out := make(Map, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: key must be a scalar", k.Line)
		}
		if _, dup := out[k.Value]; dup {
			return nil, fmt.Errorf("line %d: duplicate key %q", k.Line, k.Value)
		}
		val, err := nodeValue(v)
		if err != nil {
			return nil, err
		}
		out[k.Value] = val
	}
	return out, nil
}

func nodeValue(n *yaml.Node) (any, error) {
	if n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	switch n.Kind {
	case yaml.MappingNode:
		return mappingToMap(n)
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return nil, nil
		}
		if n.Tag == "!!binary" {
			var s string
			if err := n.Decode(&s); err != nil {
				return nil, fmt.Errorf("line %d: %w", n.Line, err)
			}
			return []byte(s), nil
		}
		return n.Value, nil
	default:
		return nil, fmt.Errorf("line %d: unsupported yaml node (%s)", n.Line, kindName(n.Kind))
	}
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.DocumentNode:
		return "document"
	default:
		return "kind " + strconv.Itoa(int(k))
	}
}
