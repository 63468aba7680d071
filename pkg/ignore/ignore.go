package ignore

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// FileName 是仓库根目录下的用户忽略文件
const FileName = ".tvignore"

// defaultRules 始终生效，用户规则里的 "!" 也无法取消它们
var defaultRules = []string{
	".tv",  // 仓库元数据目录，索引它会无限递归
	".git", // Git 仓库数据

	"config.yaml", // 里面可能有 S3 Secret Key
	".env",

	".DS_Store",
	"Thumbs.db",
}

// Matcher 判断一个相对路径是否应该被忽略
type Matcher struct {
	defaults *gitignore.GitIgnore
	user     *gitignore.GitIgnore
}

// NewMatcher 读取 rootPath 下的 .tvignore (可选) 并和默认规则一起编译
func NewMatcher(rootPath string) (*Matcher, error) {
	m := &Matcher{defaults: gitignore.CompileIgnoreLines(defaultRules...)}

	ignoreFilePath := filepath.Join(rootPath, FileName)
	if _, err := os.Stat(ignoreFilePath); err == nil {
		user, err := gitignore.CompileIgnoreFile(ignoreFilePath)
		if err != nil {
			return nil, err
		}
		m.user = user
	}
	return m, nil
}

// NewMatcherFromLines 只用给定规则 (加默认规则) 编译，不读文件
func NewMatcherFromLines(lines ...string) *Matcher {
	return &Matcher{
		defaults: gitignore.CompileIgnoreLines(defaultRules...),
		user:     gitignore.CompileIgnoreLines(lines...),
	}
}

// Matches 检查给定的路径是否匹配忽略规则
// path 是相对于仓库根目录的路径 (例如 "data/model.bin")，分隔符统一按 "/" 处理
func (m *Matcher) Matches(path string) bool {
	if m == nil {
		return false
	}
	path = strings.TrimSuffix(filepath.ToSlash(path), "/")
	if path == "" || path == "." {
		return false
	}
	if m.defaults != nil && m.defaults.MatchesPath(path) {
		return true
	}
	return m.user != nil && m.user.MatchesPath(path)
}

// Walk 遍历 dir 下所有未被忽略的普通文件和软链接，fn 收到的 rel 是相对 root 的路径。
// 被忽略的目录整棵跳过。
func (m *Matcher) Walk(root, dir string, fn func(abs, rel string) error) error {
	return filepath.WalkDir(dir, func(abs string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, abs)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if m.Matches(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() && d.Type()&fs.ModeSymlink == 0 {
			return nil
		}
		return fn(abs, rel)
	})
}
