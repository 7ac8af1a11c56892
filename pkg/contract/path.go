package contract

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// NormalizeFileID 规范化路径，统一为跨平台稳定的 FileID。
// 规则：
// - 使用正斜杠分隔符
// - 清理多余分隔符与路径片段（.、..）
// - 保留相对/绝对语义，不做隐式绝对化
func NormalizeFileID(p string) FileID {
	s := strings.ReplaceAll(p, "\\", "/")
	return FileID(path.Clean(s))
}

// LocalPath 将 id 映射为 root 下的本地路径。
// 绝对路径、卷名、空路径与 '..' 逃逸均返回 ErrPathInvalid。
func LocalPath(root string, id FileID) (string, error) {
	s := string(NormalizeFileID(string(id)))
	switch {
	case s == "." || s == "" || s == "..":
		return "", fmt.Errorf("%s: %w", id, ErrPathInvalid)
	case strings.HasPrefix(s, "/") || strings.HasPrefix(s, "../"):
		return "", fmt.Errorf("%s: %w", id, ErrPathInvalid)
	case filepath.IsAbs(s) || filepath.VolumeName(s) != "":
		return "", fmt.Errorf("%s: %w", id, ErrPathInvalid)
	}
	return filepath.Join(root, filepath.FromSlash(s)), nil
}

// 数据根目录下的布局：
//
//	<dict>/<master>                                 主词表
//	<dict>/<L>_letter_words.txt                     按长度拆分的单词表
//	<dict>/extensions/<L>_letter_extensions.txt     扩展表
//	<dict>/pages/<DICT><L>-<page>.png               渲染页

// MasterFileID 返回词典主词表的 FileID；master 为空时取 <dict>.txt。
func MasterFileID(dict, master string) FileID {
	if master == "" {
		master = dict + ".txt"
	}
	return NormalizeFileID(path.Join(dict, master))
}

// WordsFileID 返回长度为 n 的单词表。
func WordsFileID(dict string, n int) FileID {
	return NormalizeFileID(path.Join(dict, fmt.Sprintf("%d_letter_words.txt", n)))
}

// ExtensionsFileID 返回长度为 n 的扩展表。
func ExtensionsFileID(dict string, n int) FileID {
	return NormalizeFileID(path.Join(dict, "extensions", fmt.Sprintf("%d_letter_extensions.txt", n)))
}

// PageFileID 返回长度为 n 的第 page 页渲染图像（page 自 1 起）。
func PageFileID(dict string, n, page int) FileID {
	name := fmt.Sprintf("%s%d-%03d.png", strings.ToUpper(dict), n, page)
	return NormalizeFileID(path.Join(dict, "pages", name))
}

// JobID 返回 (词典, 长度) 任务的日志标识。
func JobID(dict string, n int) string { return fmt.Sprintf("%s/%d", dict, n) }
