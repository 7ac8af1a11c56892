package contract

import (
	"errors"
	"path/filepath"
	"testing"
)

// TestNormalizeFileID 验证路径规范化逻辑。
func TestNormalizeFileID(t *testing.T) {
	// 原有测试用例
	wpath := filepath.Join("a", "b", "c")
	basicCases := map[string]string{
		wpath: "a/b/c",
		"./x/../y": "y",
		"": ".",
	}
	for in, want := range basicCases {
		got := NormalizeFileID(in)
		if string(got) != want {
			t.Fatalf("基础测试 %s -> %s, 预期 %s", in, got, want)
		}
	}

	// 扩展测试用例 - 系统化覆盖
	tests := []struct {
		name	 string
		input	string
		expected string
	}{
		// 反斜杠转换
		{"Windows路径", "C:\\Users\\test\\file.txt", "C:/Users/test/file.txt"},
		{"相对路径反斜杠", "src\\main\\java\\App.java", "src/main/java/App.java"},
		
		// path.Clean 功能
		{"清理多余斜杠", "path//to///file.txt", "path/to/file.txt"},
		{"清理当前目录", "path/./to/./file.txt", "path/to/file.txt"},
		{"处理父目录", "path/to/../from/file.txt", "path/from/file.txt"},
		
		// 边界情况
		{"单个点", ".", "."},
		{"双点", "..", ".."},
		{"根路径", "/", "/"},
		{"Windows根", "C:\\", "C:"},
		
		// 跨平台混合分隔符
		{"混合分隔符", "C:\\Users/test\\Documents/file.txt", "C:/Users/test/Documents/file.txt"},
		{"复杂混合路径", "src\\..\\test/./data\\\\file.txt", "test/data/file.txt"},
		
		// 特殊字符
		{"中文路径", "项目\\文档/测试.txt", "项目/文档/测试.txt"},
		{"空格路径", "My Documents\\My File.txt", "My Documents/My File.txt"},
		
		// 绝对路径
		{"Unix绝对路径", "/home/user/../admin/file.txt", "/home/admin/file.txt"},
		{"Windows绝对路径", "C:\\Program Files\\..\\Windows\\System32", "C:/Windows/System32"},
		
		// 极端情况
		{"仅分隔符", "\\\\\\///", "/"},
		{"复杂父目录", "a\\b\\c\\..\\..\\..\\..\\d", "../d"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeFileID(tt.input)
			if string(result) != tt.expected {
				t.Errorf("NormalizeFileID(%q) = %q, expected %q", tt.input, result, tt.expected)
			}
		})
	}
}

// BenchmarkNormalizeFileID 性能基准测试
func BenchmarkNormalizeFileID(b *testing.B) {
	testPaths := []string{
		"C:\\Users\\test\\Documents\\file.txt",
		"src/main/java/../../../test/data/file.txt",
		"path//to///many////slashes/file.txt",
		"very/long/path/with/many/segments/and/mixed\\separators/file.txt",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, path := range testPaths {
			NormalizeFileID(path)
		}
	}
}

// TestLayout 验证数据根目录下的文件布局。
func TestLayout(t *testing.T) {
	cases := []struct {
		got  FileID
		want string
	}{
		{MasterFileID("sjp", ""), "sjp/sjp.txt"},
		{MasterFileID("osps", "lista.txt"), "osps/lista.txt"},
		{WordsFileID("sjp", 7), "sjp/7_letter_words.txt"},
		{ExtensionsFileID("osps", 15), "osps/extensions/15_letter_extensions.txt"},
		{PageFileID("sjp", 3, 12), "sjp/pages/SJP3-012.png"},
	}
	for _, c := range cases {
		if string(c.got) != c.want {
			t.Fatalf("got %s want %s", c.got, c.want)
		}
	}
	if JobID("osps", 4) != "osps/4" {
		t.Fatalf("job id")
	}
}

// TestLocalPath 映射到根目录下，拒绝越界。
func TestLocalPath(t *testing.T) {
	root := filepath.Join("data", "root")
	got, err := LocalPath(root, ExtensionsFileID("sjp", 3))
	if err != nil || got != filepath.Join(root, "sjp", "extensions", "3_letter_extensions.txt") {
		t.Fatalf("got %q %v", got, err)
	}
	if got, err := LocalPath(root, "sjp/../osps/osps.txt"); err != nil || got != filepath.Join(root, "osps", "osps.txt") {
		t.Fatalf("inner .. should be cleaned: %q %v", got, err)
	}
	for _, id := range []FileID{"", ".", "..", "../x", "/abs", "a/../../x"} {
		if _, err := LocalPath(root, id); !errors.Is(err, ErrPathInvalid) {
			t.Fatalf("%q: want ErrPathInvalid, got %v", id, err)
		}
	}
}

// TestValidateChunks 覆盖分片覆盖性校验的成功与各类错误分支。
func TestValidateChunks(t *testing.T) {
	id := FileID("sjp/3_letter_words.txt")
	words := WordList{"KOT", "PIES", "ŻAB"}
	ok := []Chunk{
		{FileID: id, Index: 0, Words: WordList{"KOT", "PIES"}},
		{FileID: id, Index: 1, Words: WordList{"ŻAB"}},
	}
	if err := ValidateChunks(id, words, ok); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := ValidateChunks(id, nil, nil); err != nil {
		t.Fatalf("empty: %v", err)
	}
	cases := []struct {
		name   string
		words  WordList
		chunks []Chunk
	}{
		{"short", append(words, "ZOO"), ok},
		{"long", words[:2], ok},
		{"foreign file", WordList{"A"}, []Chunk{{FileID: "x", Index: 0, Words: WordList{"A"}}}},
		{"index gap", WordList{"A", "B"}, []Chunk{{FileID: id, Index: 0, Words: WordList{"A"}}, {FileID: id, Index: 2, Words: WordList{"B"}}}},
		{"empty chunk", WordList{"A"}, []Chunk{{FileID: id, Index: 0, Words: WordList{"A"}}, {FileID: id, Index: 1}}},
		// 数量正确但内容错位
		{"reordered", words, []Chunk{
			{FileID: id, Index: 0, Words: WordList{"ŻAB"}},
			{FileID: id, Index: 1, Words: WordList{"KOT", "PIES"}},
		}},
		{"duplicated", words, []Chunk{
			{FileID: id, Index: 0, Words: WordList{"KOT", "KOT"}},
			{FileID: id, Index: 1, Words: WordList{"ŻAB"}},
		}},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateChunks(id, tt.words, tt.chunks); !errors.Is(err, ErrSeqInvalid) {
				t.Fatalf("want %v got %v", ErrSeqInvalid, err)
			}
		})
	}
}

// TestSameWords 验证首个差异位置。
func TestSameWords(t *testing.T) {
	cases := []struct {
		a, b WordList
		want int
	}{
		{WordList{"A", "B"}, WordList{"A", "B"}, -1},
		{nil, WordList{}, -1},
		{WordList{"A", "B"}, WordList{"A", "C"}, 1},
		{WordList{"A"}, WordList{"A", "B"}, 1},
		{WordList{"X"}, nil, 0},
	}
	for _, c := range cases {
		if got := SameWords(c.a, c.b); got != c.want {
			t.Fatalf("SameWords(%v,%v)=%d want %d", c.a, c.b, got, c.want)
		}
	}
}
