package contract

import (
	"context"
	"io"
)

// Assembler: 将有序的扩展记录行线性装配为单个文件内容。
// 约束：
//  1. 严格保持输入顺序；
//  2. 每行必须以 '\n' 结尾，否则返回 ErrSeqInvalid；
//  3. 不引入跨文件状态。
type Assembler interface {
	Assemble(ctx context.Context, id FileID, lines []Line) (io.Reader, error)
}
