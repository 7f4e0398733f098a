package emit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"redline/internal/wml"
	"redline/pkg/contract"
)

// InsertComment 发射批注锚点与批注记录：起锚于首 run 之前、止锚于
// 末 run 之后，引用 run 紧随止锚；批注正文以同一 id 追加到批注部件。
// span 为空（整段模糊命中）时锚住整个段落。
// 保证：被锚文本不删不改——可见文本不变，仅新增元数据。
func InsertComment(p *wml.Paragraph, span []*etree.Element, body string, m Meta, id int, comments *etree.Document) error {
	if comments == nil || comments.Root() == nil {
		return fmt.Errorf("%w: comments tree unavailable", contract.ErrPartMalformed)
	}
	parent := p.El
	for _, r := range span {
		if r.Parent() != parent {
			return fmt.Errorf("%w: span run not owned by paragraph", contract.ErrInvariantViolation)
		}
	}

	rs := anchorMarker("w:commentRangeStart", id)
	re := anchorMarker("w:commentRangeEnd", id)

	if len(span) == 0 {
		parent.InsertChildAt(paragraphContentIndex(parent), rs)
		parent.AddChild(re)
		parent.AddChild(referenceRun(id))
	} else {
		parent.InsertChildAt(span[0].Index(), rs)
		parent.InsertChildAt(span[len(span)-1].Index()+1, re)
		parent.InsertChildAt(re.Index()+1, referenceRun(id))
	}

	appendRecord(comments, body, m, id)
	return nil
}

func anchorMarker(tag string, id int) *etree.Element {
	el := etree.NewElement(tag)
	el.CreateAttr("w:id", strconv.Itoa(id))
	return el
}

// referenceRun 构造批注引用 run（不贡献可见文本）。
func referenceRun(id int) *etree.Element {
	r := etree.NewElement("w:r")
	rPr := r.CreateElement("w:rPr")
	style := rPr.CreateElement("w:rStyle")
	style.CreateAttr("w:val", "CommentReference")
	ref := r.CreateElement("w:commentReference")
	ref.CreateAttr("w:id", strconv.Itoa(id))
	return r
}

// paragraphContentIndex 返回段落内容起点的 token 下标（跳过 w:pPr）。
func paragraphContentIndex(p *etree.Element) int {
	for _, ch := range p.ChildElements() {
		if ch.Space == "w" && ch.Tag == "pPr" {
			continue
		}
		return ch.Index()
	}
	return len(p.Child)
}

// appendRecord 把批注记录追加到部件树：id/作者/缩写/日期 + 正文段落。
func appendRecord(comments *etree.Document, body string, m Meta, id int) {
	c := comments.Root().CreateElement("w:comment")
	c.CreateAttr("w:id", strconv.Itoa(id))
	c.CreateAttr("w:author", m.Author)
	if m.Initials != "" {
		c.CreateAttr("w:initials", m.Initials)
	}
	c.CreateAttr("w:date", m.Date)
	for _, line := range strings.Split(body, "\n") {
		cp := c.CreateElement("w:p")
		cr := cp.CreateElement("w:r")
		ct := cr.CreateElement("w:t")
		ct.SetText(line)
		if strings.TrimSpace(line) != line {
			ct.CreateAttr("xml:space", "preserve")
		}
	}
}

// AcceptedText 返回“视同全部接受修订”后的段落文本：
// live run + w:ins 内 run，跳过 w:del 与锚点/引用标记。测试与
// 核查共用，不参与定位。
func AcceptedText(p *wml.Paragraph) string {
	var sb strings.Builder
	for _, ch := range p.El.ChildElements() {
		switch {
		case ch.Space == "w" && ch.Tag == "r":
			sb.WriteString(visibleRunText(ch))
		case ch.Space == "w" && ch.Tag == "ins":
			for _, r := range ch.ChildElements() {
				if r.Space == "w" && r.Tag == "r" {
					sb.WriteString(visibleRunText(r))
				}
			}
		}
	}
	return sb.String()
}

func visibleRunText(r *etree.Element) string {
	var sb strings.Builder
	for _, ch := range r.ChildElements() {
		if ch.Space == "w" && ch.Tag == "t" {
			sb.WriteString(ch.Text())
		}
	}
	return sb.String()
}
