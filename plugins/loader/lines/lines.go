package lines

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"slowniki/internal/wordlist"
	"slowniki/pkg/collate"
	"slowniki/pkg/contract"
)

// Options 为按行 Loader 的可选配置（最小必要）。
type Options struct {
	// MaxLineBytes: 单行最大字节数。0 表示默认 1MiB。
	MaxLineBytes int `json:"max_line_bytes"`
	// Sort: 按波兰语排序规则稳定排序；默认保持文件顺序。
	Sort bool `json:"sort"`
	// Uniform: 要求所有单词字符数一致，否则返回 ErrInvalidInput。
	Uniform bool `json:"uniform"`
	// AllowExts: 允许处理的文件扩展名（大小写不敏感，包含点，如 [".txt"]）。
	// 为空时采用默认 [".txt"]；显式设为空切片则表示不限制。
	AllowExts []string `json:"allow_exts"`
}

// Loader 实现按行读取单词表。
type Loader struct {
	maxLine int
	sort    bool
	uniform bool
	// 允许扩展名（小写），若为 nil 表示不限制。
	allow map[string]struct{}
}

// New 创建按行 Loader。
func New(opts *Options) *Loader {
	l := &Loader{}
	if opts != nil {
		l.maxLine = opts.MaxLineBytes
		l.sort = opts.Sort
		l.uniform = opts.Uniform
	}
	if opts == nil || opts.AllowExts == nil {
		// 默认只处理 .txt
		l.allow = map[string]struct{}{".txt": {}}
	} else if len(opts.AllowExts) > 0 {
		l.allow = make(map[string]struct{}, len(opts.AllowExts))
		for _, e := range opts.AllowExts {
			if e == "" {
				continue
			}
			l.allow[strings.ToLower(e)] = struct{}{}
		}
	}
	return l
}

// Load 读取单个单词表：去除首尾空白、跳过空行、统一大写。
// 返回值非 nil；空文件得到空表。
func (l *Loader) Load(ctx context.Context, id contract.FileID, r io.Reader) (contract.WordList, error) {
	if l.allow != nil {
		ext := strings.ToLower(path.Ext(string(id)))
		if _, ok := l.allow[ext]; !ok {
			return nil, fmt.Errorf("loader: %s: extension %q not allowed: %w", id, ext, contract.ErrInvalidInput)
		}
	}
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	raw, err := wordlist.ReadLines(r, l.maxLine)
	if err != nil {
		return nil, fmt.Errorf("loader: %s: %w", id, err)
	}
	words := contract.WordList(wordlist.Upper(raw))
	if l.uniform && len(words) > 0 {
		n := wordlist.Length(words[0])
		for i, w := range words {
			if wordlist.Length(w) != n {
				return nil, fmt.Errorf("loader: %s: line %d: %q has %d letters, want %d: %w", id, i+1, w, wordlist.Length(w), n, contract.ErrInvalidInput)
			}
		}
	}
	if l.sort {
		if err := ctxErr(ctx); err != nil {
			return nil, err
		}
		collate.Sort(words)
	}
	return words, nil
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

var _ contract.Loader = (*Loader)(nil)
