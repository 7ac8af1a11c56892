package contract

// FileID: 逻辑文件ID（数据根目录下的相对路径，需规范化，跨平台一致）。
type FileID string

// 单词长度范围（按字符计）。MaxLength 长度的单词不存在更长的扩展。
const (
	MinLength = 2
	MaxLength = 15
)

// Word: 大写单词（波兰语字母表）。长度按 rune 计，不按字节。
type Word = string

// WordList: 同一长度单词的有序序列；顺序即输出顺序。
// nil 表示“缺失”，非 nil 的空切片表示“存在但为空”。
type WordList []Word

// Line: 一条扩展记录的文本形式，含结尾换行。
type Line = string

// Record: 扩展记录（左扩展字母, 单词, 右扩展字母）。
// 每个基础单词恰有一条，无扩展时两侧为空（非缺失）。
type Record struct {
	Left  []string
	Word  Word
	Right []string
}

// Chunk: 基础单词表的连续分片。
// 同一 FileID 内 Index 为 0..n-1 严格递增，分片之间不重叠、不遗漏。
type Chunk struct {
	FileID FileID
	Index  int64
	Words  WordList
}

// Row: 渲染表格的一行（左、词、右），字母间不含逗号。
type Row [3]string

// Table: 渲染输入。
type Table struct {
	Title  string
	Header Row
	Rows   []Row
}

// Page: 渲染输出的单页（Index 自 1 起）。
type Page struct {
	Index int
	Data  []byte
}
