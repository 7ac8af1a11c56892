package extension

import (
	"strings"
	"unicode/utf8"

	"slowniki/pkg/contract"
)

// Format 产出一条扩展记录：左字母（逗号连接）、单词、右字母（逗号连接），
// 以单个空格分隔；一侧为空时分隔空格照常保留。
//
//	Format("KOT", [S], [A Y]) == "S KOT A,Y\n"
//	Format("PIES", nil, nil)  == " PIES \n"
func Format(word string, left, right []string) contract.Line {
	var b strings.Builder
	b.Grow(len(word) + 2*len(left) + 2*len(right) + 3)
	b.WriteString(strings.Join(left, ","))
	b.WriteByte(' ')
	b.WriteString(word)
	b.WriteByte(' ')
	b.WriteString(strings.Join(right, ","))
	b.WriteByte('\n')
	return b.String()
}

// Parse 是 Format 的逆：按空白切分后，取第一个字符数为 wordLength 且不含逗号的词元作为单词，
// 其前为左侧，其后为右侧（逗号分隔）。找不到单词时返回 ok=false，不报错。
func Parse(line string, wordLength int) (rec contract.Record, ok bool) {
	parts := strings.Fields(line)
	idx := -1
	for i, p := range parts {
		if utf8.RuneCountInString(p) == wordLength && !strings.Contains(p, ",") {
			idx = i
			break
		}
	}
	if idx < 0 {
		return contract.Record{}, false
	}
	return contract.Record{
		Left:  splitLetters(parts[:idx]),
		Word:  parts[idx],
		Right: splitLetters(parts[idx+1:]),
	}, true
}

// splitLetters 将若干逗号分隔的词元展开为字母序列；空输入返回空切片。
func splitLetters(tokens []string) []string {
	out := []string{}
	for _, t := range tokens {
		for _, s := range strings.Split(t, ",") {
			if s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// Row 将记录投影为渲染行：字母间的逗号去除。
func Row(rec contract.Record) contract.Row {
	return contract.Row{strings.Join(rec.Left, ""), rec.Word, strings.Join(rec.Right, "")}
}
