package collate

import (
	"slices"
	"strings"
)

// Alphabet: 波兰语字母表（32 个字母，带附加符号的字母紧随其基字母）。
const Alphabet = "AĄBCĆDEĘFGHIJKLŁMNŃOÓPRSŚTUWYZŹŻ"

// Unknown: 表外字符的序数，小于全部已定义字母。
const Unknown = 0

// ordinals: 字母 -> 序数（1..32），包初始化后只读，可跨 goroutine 共享。
var ordinals = func() map[rune]int {
	m := make(map[rune]int, 32)
	i := 1
	for _, r := range Alphabet {
		m[r] = i
		i++
	}
	return m
}()

// Ordinal 返回单个字符（先转大写）在字母表中的序数；未知字符为 Unknown。
func Ordinal(r rune) int {
	if n, ok := ordinals[r]; ok {
		return n
	}
	up := []rune(strings.ToUpper(string(r)))
	if len(up) == 1 {
		if n, ok := ordinals[up[0]]; ok {
			return n
		}
	}
	return Unknown
}

// Key 返回单词的排序键：逐字符序数。仅用于排序，不可用于判等或哈希。
func Key(word string) []int {
	up := strings.ToUpper(word)
	k := make([]int, 0, len(up))
	for _, r := range up {
		k = append(k, ordinals[r])
	}
	return k
}

// Compare 按排序键做字典序比较；前缀较短者在前。
func Compare(a, b string) int {
	return slices.Compare(Key(a), Key(b))
}

// Less 报告 a 是否排在 b 之前。
func Less(a, b string) bool { return Compare(a, b) < 0 }

// Sort 就地稳定排序；键相同的元素保持原有相对顺序。
// 每个元素的键只计算一次。
func Sort(words []string) {
	if len(words) < 2 {
		return
	}
	type keyed struct {
		w string
		k []int
	}
	tmp := make([]keyed, len(words))
	for i, w := range words {
		tmp[i] = keyed{w: w, k: Key(w)}
	}
	slices.SortStableFunc(tmp, func(x, y keyed) int { return slices.Compare(x.k, y.k) })
	for i := range tmp {
		words[i] = tmp[i].w
	}
}
