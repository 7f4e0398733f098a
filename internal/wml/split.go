package wml

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"redline/pkg/contract"
)

// Run 切分：把编辑边界精确落到 run 边界上。
// 不变量：切分不改变段落串接文本与可见格式。

// ErrUnsplittable: run 含 w:t 以外的内容子元素（w:br/w:tab/w:drawing 等），
// 无法在保持语义的前提下二分。逐条失败，不中止批次。
var ErrUnsplittable = errors.New("run unsplittable")

// Isolate 把 exact 匹配区间对齐到 run 边界：必要时在首/末 run 内部
// 各切一刀，整体包含的中间 run 原样纳入。返回恰好覆盖目标文本的
// run 序列；周边未触碰的 run 不移动、不改写。
// 调用后原 RunIndex 失效。
func (ix *RunIndex) Isolate(m contract.Match) ([]*etree.Element, error) {
	if m.Kind != contract.MatchExact {
		return nil, fmt.Errorf("%w: isolate requires exact match", contract.ErrInvalidInput)
	}
	if m.StartRun < 0 || m.EndRun >= len(ix.runs) || m.EndRun < m.StartRun {
		return nil, fmt.Errorf("%w: run range out of bounds", contract.ErrInvalidInput)
	}
	first := ix.runs[m.StartRun]
	last := ix.runs[m.EndRun]

	// 先切末端：末端切分不影响首端偏移（首末同 run 时尤其关键）。
	if m.EndOff < runeLen(runText(last)) {
		if _, err := splitRun(last, m.EndOff); err != nil {
			return nil, err
		}
	}
	spanFirst := first
	if m.StartOff > 0 {
		right, err := splitRun(first, m.StartOff)
		if err != nil {
			return nil, err
		}
		spanFirst = right
	}

	if m.StartRun == m.EndRun {
		return []*etree.Element{spanFirst}, nil
	}
	out := []*etree.Element{spanFirst}
	out = append(out, ix.runs[m.StartRun+1:m.EndRun]...)
	out = append(out, last)
	return out, nil
}

// splitRun 在 run 内部偏移处二分：左半保留在原元素，右半为深拷贝的
// 新兄弟（w:rPr 一并拷贝，格式不变）。off 必须严格在内部；
// 0 或末尾的切分由调用方跳过（避免产生空 run）。
func splitRun(run *etree.Element, off int) (*etree.Element, error) {
	txt := []rune(runText(run))
	if off <= 0 || off >= len(txt) {
		return nil, fmt.Errorf("%w: split offset %d of %d", contract.ErrInvalidInput, off, len(txt))
	}
	if !splittable(run) {
		return nil, fmt.Errorf("%w", ErrUnsplittable)
	}
	right := run.Copy()
	setRunText(run, string(txt[:off]))
	setRunText(right, string(txt[off:]))
	parent := run.Parent()
	if parent == nil {
		return nil, fmt.Errorf("%w: detached run", contract.ErrInvariantViolation)
	}
	parent.InsertChildAt(run.Index()+1, right)
	return right, nil
}

// splittable: 内容子元素仅为 w:rPr 与 w:t 时可安全二分。
func splittable(run *etree.Element) bool {
	for _, ch := range run.ChildElements() {
		if isW(ch, "rPr") || isW(ch, "t") {
			continue
		}
		return false
	}
	return true
}

// setRunText 用单个 w:t 重建 run 文本；首尾含空白时标记 xml:space。
func setRunText(run *etree.Element, text string) {
	for _, ch := range run.ChildElements() {
		if isW(ch, "t") {
			run.RemoveChild(ch)
		}
	}
	t := run.CreateElement("w:t")
	t.SetText(text)
	if strings.TrimSpace(text) != text {
		t.CreateAttr("xml:space", "preserve")
	}
}
