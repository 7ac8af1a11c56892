package contract

import (
	"context"
	"io"
)

// Loader: 将单个单词表文件解析为 WordList。
// 约束：
// 1) 逐行读取，去除首尾空白，跳过空行；
// 2) 统一转为大写；
// 3) 保持文件顺序（实现可按配置施加排序规则）；
// 4) 返回值非 nil（空文件得到空切片）；
// 5) 无内部并发、幂等。
type Loader interface {
	Load(ctx context.Context, id FileID, r io.Reader) (WordList, error)
}
