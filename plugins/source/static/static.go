// Package static 实现内联建议源：编辑批直接写在配置 options 里。
// 用于小批量一次性修改与端到端测试，不触达文件系统。
package static

import (
	"context"
	"fmt"

	"redline/pkg/contract"
)

// Options: 编辑批内联定义。
type Options struct {
	Edits []contract.Edit `json:"edits"`
}

type Source struct {
	edits []contract.Edit
}

// New 创建 Static Source。目标为空的条目在构造期即拒绝。
func New(opts *Options) (*Source, error) {
	if opts == nil {
		opts = &Options{}
	}
	for i, e := range opts.Edits {
		if e.Original == "" {
			return nil, fmt.Errorf("%w: edit %d: original is empty", contract.ErrInvalidInput, i)
		}
	}
	return &Source{edits: contract.CloneEdits(opts.Edits)}, nil
}

var _ contract.Source = (*Source)(nil)

// Edits 交付内联批的副本。
func (s *Source) Edits(ctx context.Context) ([]contract.Edit, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return contract.CloneEdits(s.edits), nil
}
