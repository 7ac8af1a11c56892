package linear

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"slowniki/pkg/contract"
)

// Options: 线性装配配置。
type Options struct {
	// CRLF: 以 "\r\n" 作为行尾输出（默认 "\n"）。
	CRLF bool `json:"crlf"`
}

type assembler struct {
	crlf bool
}

// New 从原样 JSON Options 创建线性装配器。
func New(raw json.RawMessage) (contract.Assembler, error) {
	var opts Options
	if len(raw) > 0 {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&opts); err != nil {
			return nil, fmt.Errorf("linear options: %w", err)
		}
	}
	return &assembler{crlf: opts.CRLF}, nil
}

// Assemble 按输入顺序线性拼接扩展记录行，不插入分隔符；
// 行不以 '\n' 结尾或内部含换行即返回 ErrSeqInvalid。
func (a *assembler) Assemble(ctx context.Context, id contract.FileID, lines []contract.Line) (io.Reader, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if len(lines) == 0 {
		return strings.NewReader(""), nil
	}

	for i, l := range lines {
		if !strings.HasSuffix(l, "\n") || strings.IndexByte(l, '\n') != len(l)-1 {
			return nil, fmt.Errorf("%s: line %d: %w", id, i+1, contract.ErrSeqInvalid)
		}
	}

	// 零拷贝倾向：拼接多个只读字符串 reader
	rs := make([]io.Reader, 0, len(lines))
	for _, l := range lines {
		if a.crlf {
			l = l[:len(l)-1] + "\r\n"
		}
		rs = append(rs, strings.NewReader(l))
	}
	return io.MultiReader(rs...), nil
}

var _ contract.Assembler = (*assembler)(nil)
