package contract

import (
	"context"
	"io"
)

// ArtifactID: 产出工件标识（单词表、扩展文件、页面图像），与 FileID 共用同一表示。
type ArtifactID = FileID

// Writer: 将产出以流式方式持久化到目标介质（文件系统/对象存储等）。
// 约束：
//  1. 同一 ArtifactID 单写者；
//  2. 按字节透传，不读取/修改业务内容；
//  3. ctx 取消/超时需尽快返回；
//  4. 错误直接上抛（不做重试/回退）。
type Writer interface {
	Write(ctx context.Context, id ArtifactID, r io.Reader) error
}
