package contract

import "errors"

// 最小错误分类；组件以 %w 包装返回，调用方以 errors.Is 判定。
var (
	// ErrPathInvalid: 目标标识映射为无效/越界路径（例如绝对路径或 '..' 逃逸）。
	ErrPathInvalid = errors.New("path invalid")
	// ErrInputMissing: 必需的输入文件不存在（仅使当前任务失败）。
	ErrInputMissing = errors.New("input missing")
	// ErrInvalidInput: 组件入参非法（如分片大小 <= 0）。
	ErrInvalidInput = errors.New("invalid input")
	// ErrSeqInvalid: 分片/行序列违例。
	ErrSeqInvalid = errors.New("sequence invalid")
	// ErrMalformedRecord: 扩展记录行中找不到指定长度的单词。
	ErrMalformedRecord = errors.New("malformed record")
	// ErrInconsistent: 扩展文件与单词表不一致。
	ErrInconsistent = errors.New("inconsistent")
	// ErrInvariantViolation: 领域不变量违例（通用哨兵）。
	ErrInvariantViolation = errors.New("invariant violation")
)
