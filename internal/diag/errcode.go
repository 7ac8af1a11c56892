package diag

import (
	"context"
	"errors"
	"io/fs"
	"net"
	"os"

	"slowniki/pkg/contract"
)

// Code: 日志/指标用的错误分类，与退出码无关。
type Code string

const (
	CodeUnknown      Code = "unknown"
	CodeNetwork      Code = "network"
	CodeInvariant    Code = "invariant"
	CodeInputMissing Code = "input_missing"
	CodeMalformed    Code = "malformed"
	CodeInconsistent Code = "inconsistent"
	CodeCancel       Code = "cancel"
	CodeIO           Code = "io"
)

// 按序匹配，先命中者优先（取消 > 缺失输入 > 数据错误 > 不变量）。
var sentinelCodes = []struct {
	target error
	code   Code
}{
	{context.Canceled, CodeCancel},
	{context.DeadlineExceeded, CodeCancel},
	{contract.ErrInputMissing, CodeInputMissing},
	{fs.ErrNotExist, CodeInputMissing},
	{contract.ErrMalformedRecord, CodeMalformed},
	{contract.ErrInconsistent, CodeInconsistent},
	{contract.ErrInvariantViolation, CodeInvariant},
	{contract.ErrInvalidInput, CodeInvariant},
	{contract.ErrSeqInvalid, CodeInvariant},
	{contract.ErrPathInvalid, CodeInvariant},
}

// Classify 归类任务错误；只看哨兵与错误类型，不匹配字符串。
func Classify(err error) Code {
	if err == nil {
		return CodeUnknown
	}
	for _, s := range sentinelCodes {
		if errors.Is(err, s.target) {
			return s.code
		}
	}
	var perr *os.PathError
	if errors.As(err, &perr) {
		return CodeIO
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return CodeNetwork
	}
	return CodeUnknown
}
