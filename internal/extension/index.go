// Package extension 构建单字母扩展表：对长度 L 的每个单词，
// 给出可在左端或右端补一个字母得到的长度 L+1 单词。
package extension

import (
	"unicode/utf8"

	"slowniki/pkg/contract"
)

// Index: 由长度 L+1 单词表一次性构建的左右扩展映射，构建后只读。
// 多个 goroutine 可无锁并发查询。
type Index struct {
	base  int
	left  map[string][]string
	right map[string][]string
}

// Build 从 extended 构建长度为 baseLength 的扩展索引。
// 对每个单词 e：去掉首字母后若长度为 baseLength，则首字母追加到 left[余下部分]；
// 去掉末字母后若长度为 baseLength，则末字母追加到 right[余下部分]。
// 字母按 extended 中的出现顺序记录，不去重。空输入得到空映射。
func Build(extended contract.WordList, baseLength int) *Index {
	ix := &Index{
		base:  baseLength,
		left:  make(map[string][]string),
		right: make(map[string][]string),
	}
	for _, e := range extended {
		if e == "" {
			continue
		}
		_, fw := utf8.DecodeRuneInString(e)
		if rest := e[fw:]; utf8.RuneCountInString(rest) == baseLength {
			ix.left[rest] = append(ix.left[rest], e[:fw])
		}
		_, lw := utf8.DecodeLastRuneInString(e)
		if rest := e[:len(e)-lw]; utf8.RuneCountInString(rest) == baseLength {
			ix.right[rest] = append(ix.right[rest], e[len(e)-lw:])
		}
	}
	return ix
}

// BaseLength 返回索引对应的基础单词长度。
func (ix *Index) BaseLength() int { return ix.base }

// Left 返回可前置到 w 的字母；无则为 nil。返回值不可修改。
func (ix *Index) Left(w string) []string { return ix.left[w] }

// Right 返回可后置到 w 的字母；无则为 nil。返回值不可修改。
func (ix *Index) Right(w string) []string { return ix.right[w] }

// Len 返回左右映射的键数。
func (ix *Index) Len() (left, right int) { return len(ix.left), len(ix.right) }

// Line 格式化 w 的扩展记录。
func (ix *Index) Line(w string) contract.Line {
	return Format(w, ix.left[w], ix.right[w])
}
