// Package emit 负责修订/批注标记的 XML 落位。树操作细节收敛于此，
// 定位与分类层不触达元素树；所有 id 由调用方显式传入的序列分配。
package emit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"redline/internal/wml"
	"redline/pkg/contract"
)

// Seq: 修订 id 显式序列。由编排层持有并按引用传入每次发射调用；
// 绝不落为包级可变状态，从而保证同进程内两次编排互不串扰。
type Seq struct {
	next int
}

// NewSeq 从 start 开始分配（通常为既有最大修订 id + 1；最小 1）。
func NewSeq(start int) *Seq {
	if start < 1 {
		start = 1
	}
	return &Seq{next: start}
}

// Next 返回下一个 id（严格单调递增）。
func (s *Seq) Next() int {
	n := s.next
	s.next++
	return n
}

// Meta: 发射元数据。同一批次共享作者与时间戳，id 逐次新取。
type Meta struct {
	Author   string
	Initials string
	// Date: ISO-8601（RFC3339）UTC 时间戳。
	Date string
}

// InsertRevision 发射成对修订：w:del 包住隔离出的原文 run
//（w:t 重标为 w:delText），紧邻其后的 w:ins 携带单个替换 run，
// 继承首个原文 run 的格式。两块同作者同时间戳、id 各自新取。
// 保证：span 之外的 run 不移动、不改写。
func InsertRevision(p *wml.Paragraph, span []*etree.Element, replacement string, m Meta, seq *Seq) error {
	if len(span) == 0 {
		return fmt.Errorf("%w: empty span", contract.ErrInvalidInput)
	}
	parent := p.El
	for _, r := range span {
		if r.Parent() != parent {
			return fmt.Errorf("%w: span run not owned by paragraph", contract.ErrInvariantViolation)
		}
	}
	anchor := span[0].Index()

	del := etree.NewElement("w:del")
	stampRevision(del, seq.Next(), m)
	parent.InsertChildAt(anchor, del)
	for _, r := range span {
		parent.RemoveChild(r)
		del.AddChild(r)
		retagDeleted(r)
	}

	if replacement == "" {
		// 纯删除：无插入块。
		return nil
	}
	ins := etree.NewElement("w:ins")
	stampRevision(ins, seq.Next(), m)
	ins.AddChild(newRun(span[0], replacement))
	parent.InsertChildAt(del.Index()+1, ins)
	return nil
}

func stampRevision(el *etree.Element, id int, m Meta) {
	el.CreateAttr("w:id", strconv.Itoa(id))
	el.CreateAttr("w:author", m.Author)
	el.CreateAttr("w:date", m.Date)
}

// retagDeleted 把 run 文本重标为“删除文本”。
func retagDeleted(r *etree.Element) {
	for _, ch := range r.ChildElements() {
		if ch.Space == "w" && ch.Tag == "t" {
			ch.Tag = "delText"
		}
	}
}

// newRun 构造携带 text 的新 run，格式取 proto 的 w:rPr 深拷贝。
func newRun(proto *etree.Element, text string) *etree.Element {
	r := etree.NewElement("w:r")
	for _, ch := range proto.ChildElements() {
		if ch.Space == "w" && ch.Tag == "rPr" {
			r.AddChild(ch.Copy())
			break
		}
	}
	t := r.CreateElement("w:t")
	t.SetText(text)
	if strings.TrimSpace(text) != text {
		t.CreateAttr("xml:space", "preserve")
	}
	return r
}
