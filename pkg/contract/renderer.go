package contract

import "context"

// Renderer: 将三列表格渲染为可打印的分页图像。
// 约束：
//  1. 每页重复表头；
//  2. 行顺序保持不变，不跨页截断单行；
//  3. 空表返回零页（非错误）。
type Renderer interface {
	Render(ctx context.Context, t Table) ([]Page, error)
}
