package contract

import (
	"context"
	"io"
)

// Writer: 将整包字节一次性持久化到目标路径。
// 约束：
//  1. 单工件单写者；写入为全有或全无（实现应使用同目录临时文件 + rename）；
//  2. 流式透传，不读取/修改业务内容；
//  3. ctx 取消/超时需尽快返回；
//  4. 错误直接上抛（不做重试/回退）。
type Writer interface {
	Write(ctx context.Context, path string, r io.Reader) error
}
