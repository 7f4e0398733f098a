// Package file 实现基于文件/STDIN 的建议源：读取 JSON 编辑批
//（[{original, replacement, rationale?}, …]），严格解析后整批交付。
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"redline/pkg/contract"
)

// Options 为 File Source 的可选配置（最小必要）。
type Options struct {
	// Path: 编辑批 JSON 文件；"-" 表示 STDIN。
	Path string `json:"path"`
	// MaxBytes: 输入上限（字节）。默认 8MiB；建议批不应更大。
	MaxBytes int64 `json:"max_bytes"`
}

// Source 从单个 JSON 文档加载编辑批。
type Source struct {
	path     string
	maxBytes int64
}

// New 创建 File Source。
func New(opts *Options) (*Source, error) {
	if opts == nil || opts.Path == "" {
		return nil, fmt.Errorf("%w: source path required", contract.ErrPathInvalid)
	}
	max := opts.MaxBytes
	if max <= 0 {
		max = 8 * 1024 * 1024
	}
	return &Source{path: opts.Path, maxBytes: max}, nil
}

var _ contract.Source = (*Source)(nil)

// Edits 读取并严格解析编辑批。未知字段、结构不符、目标为空均拒绝。
func (s *Source) Edits(ctx context.Context) ([]contract.Edit, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var r io.Reader
	if s.path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(s.path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	// 上限 +1：恰好读到上限之外说明超额。
	b, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > s.maxBytes {
		return nil, fmt.Errorf("%w: edit batch exceeds %d bytes", contract.ErrInvalidInput, s.maxBytes)
	}
	edits, err := Parse(b)
	if err != nil {
		return nil, err
	}
	return edits, nil
}

// Parse 严格解码编辑批 JSON 数组。
func Parse(b []byte) ([]contract.Edit, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	var edits []contract.Edit
	if err := dec.Decode(&edits); err != nil {
		return nil, fmt.Errorf("%w: %v", contract.ErrInvalidInput, err)
	}
	// 尾随内容视为非法输入。
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing content after edit array", contract.ErrInvalidInput)
	}
	for i, e := range edits {
		if e.Original == "" {
			return nil, fmt.Errorf("%w: edit %d: original is empty", contract.ErrInvalidInput, i)
		}
	}
	return contract.CloneEdits(edits), nil
}
