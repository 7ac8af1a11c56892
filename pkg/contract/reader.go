package contract

import (
	"context"
	"io"
)

// Reader: 输入源抽象，按逻辑 FileID 打开数据根目录下的文件。
// 约束：
// 1) 仅提供字节流，不做解码/业务解析；
// 2) 文件不存在时返回包装 ErrInputMissing 的错误；
// 3) 调用方负责 Close；
// 4) 不在内部起并发。
type Reader interface {
	Open(ctx context.Context, id FileID) (io.ReadCloser, error)
}
