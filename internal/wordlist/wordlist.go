// Package wordlist 提供单词表文件的通用读写与分组辅助。
package wordlist

import (
	"bufio"
	"io"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"

	"slowniki/pkg/collate"
)

// DefaultMaxLineBytes: 单行默认上限。
const DefaultMaxLineBytes = 1 << 20

// ReadLines 逐行读取，去除首尾空白并跳过空行；保留原大小写与顺序。
// 返回值非 nil。
func ReadLines(r io.Reader, maxLine int) ([]string, error) {
	if maxLine <= 0 {
		maxLine = DefaultMaxLineBytes
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, min(64*1024, maxLine)), maxLine)
	out := make([]string, 0, 256)
	first := true
	for sc.Scan() {
		line := sc.Text()
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Upper 将单词统一为大写（原地修改并返回）。
func Upper(words []string) []string {
	for i, w := range words {
		words[i] = strings.ToUpper(w)
	}
	return words
}

// Length 返回单词的字符数（按 rune）。
func Length(w string) int { return utf8.RuneCountInString(w) }

// GroupByLength 按字符数分组，每组按波兰语排序规则稳定排序。
func GroupByLength(words []string) map[int][]string {
	groups := lo.GroupBy(words, Length)
	for _, g := range groups {
		collate.Sort(g)
	}
	return groups
}

// Lengths 返回分组中出现的长度（升序）。
func Lengths(groups map[int][]string) []int {
	keys := lo.Keys(groups)
	slices.Sort(keys)
	return keys
}

// Encode 每行一个单词，含结尾换行。
func Encode(words []string) io.Reader {
	var b strings.Builder
	for _, w := range words {
		b.WriteString(w)
		b.WriteByte('\n')
	}
	return strings.NewReader(b.String())
}
