package contract

import "context"

// Source: 编辑请求来源抽象（文件/STDIN/内置）。
// 约束：
// 1) 一次调用返回完整有序批（引擎不做增量消费）；
// 2) 返回切片所有权移交调用方（实现应返回独立拷贝）；
// 3) 不做定位/语义校验，仅负责载入与格式解析；
// 4) 不在内部起并发。
type Source interface {
	Edits(ctx context.Context) ([]Edit, error)
}

// Extractor: 文档纯文本视图（按段落边界切分，正文在前、表格单元格
// 按文档序随后）。预检只读扫描依赖此接口，不触达 XML。
type Extractor interface {
	ParagraphTexts() []string
}
