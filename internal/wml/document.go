package wml

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"redline/internal/opc"
	"redline/pkg/contract"
)

// WordprocessingML 文档模型：主文档/批注部件的元素树视图。
// 所有 XML 触达收敛在本包与 emit 包；定位/分类层只见纯文本与偏移。

// Document: 打开的字处理文档。单次编排调用内创建与销毁；
// 树在内存中就地改写，Flush 前包字节不变。
type Document struct {
	pkg      *opc.Package
	main     *etree.Document
	body     *etree.Element
	comments *etree.Document
}

// Open 解析主文档部件。缺失或结构异常视为包损坏。
func Open(pkg *opc.Package) (*Document, error) {
	data, ok := pkg.Part(opc.PartDocument)
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", contract.ErrPartMalformed, opc.PartDocument)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", contract.ErrPartMalformed, opc.PartDocument, err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "document" {
		return nil, fmt.Errorf("%w: %s: unexpected root", contract.ErrPartMalformed, opc.PartDocument)
	}
	var body *etree.Element
	for _, ch := range root.ChildElements() {
		if isW(ch, "body") {
			body = ch
			break
		}
	}
	if body == nil {
		return nil, fmt.Errorf("%w: %s: missing body", contract.ErrPartMalformed, opc.PartDocument)
	}
	return &Document{pkg: pkg, main: doc, body: body}, nil
}

// Paragraph: 段落句柄。El 为底层 w:p 元素，仅 wml/emit 触达。
type Paragraph struct {
	El *etree.Element
}

// Paragraphs 以文档序收集全部段落：正文直接段落与表格单元格
// （含嵌套表）按出现顺序自然排列。
func (d *Document) Paragraphs() []*Paragraph {
	var out []*Paragraph
	collectParagraphs(d.body, &out)
	return out
}

func collectParagraphs(el *etree.Element, out *[]*Paragraph) {
	for _, ch := range el.ChildElements() {
		if isW(ch, "p") {
			*out = append(*out, &Paragraph{El: ch})
			continue
		}
		collectParagraphs(ch, out)
	}
}

// ParagraphTexts 返回按段落边界切分的纯文本视图（contract.Extractor）。
func (d *Document) ParagraphTexts() []string {
	ps := d.Paragraphs()
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Text()
	}
	return out
}

var _ contract.Extractor = (*Document)(nil)

// Text 返回段落的可见文本（live run 串接；w:delText 不计）。
func (p *Paragraph) Text() string {
	var sb strings.Builder
	for _, r := range p.Runs() {
		sb.WriteString(runText(r))
	}
	return sb.String()
}

// Runs 返回段落的直接 w:r 子元素（文档序）。
// 已包入 w:ins/w:del 的 run 不属于可定位文本。
func (p *Paragraph) Runs() []*etree.Element {
	var out []*etree.Element
	for _, ch := range p.El.ChildElements() {
		if isW(ch, "r") {
			out = append(out, ch)
		}
	}
	return out
}

// Comments 返回批注部件树；首次调用触发部件合成与登记。
// 登记失败（包括既有部件损坏）原样上抛，调用方应据此中止整批批注路径。
func (d *Document) Comments() (*etree.Document, error) {
	if d.comments != nil {
		return d.comments, nil
	}
	if err := d.pkg.EnsureCommentsPart(); err != nil {
		return nil, err
	}
	data, _ := d.pkg.Part(opc.PartComments)
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", contract.ErrPartMalformed, opc.PartComments, err)
	}
	if doc.Root() == nil || doc.Root().Tag != "comments" {
		return nil, fmt.Errorf("%w: %s: unexpected root", contract.ErrPartMalformed, opc.PartComments)
	}
	d.comments = doc
	return doc, nil
}

// MaxRevisionID 扫描既有 w:ins/w:del 的最大修订 id；无则 0。
// 编排层以 max+1 为本次调用的起始序号，保证 id 单调且不与存量冲突。
func (d *Document) MaxRevisionID() int {
	max := 0
	scanRevisionIDs(d.main.Root(), &max)
	return max
}

func scanRevisionIDs(el *etree.Element, max *int) {
	if el == nil {
		return
	}
	if isW(el, "ins") || isW(el, "del") {
		if n, err := strconv.Atoi(el.SelectAttrValue("w:id", "")); err == nil && n > *max {
			*max = n
		}
	}
	for _, ch := range el.ChildElements() {
		scanRevisionIDs(ch, max)
	}
}

// MaxCommentID 扫描批注部件的最大批注 id；部件未加载或为空则 0。
func (d *Document) MaxCommentID() int {
	if d.comments == nil {
		return 0
	}
	max := 0
	for _, el := range d.comments.Root().ChildElements() {
		if !isW(el, "comment") {
			continue
		}
		if n, err := strconv.Atoi(el.SelectAttrValue("w:id", "")); err == nil && n > max {
			max = n
		}
	}
	return max
}

// Flush 把改写过的树序列化回包部件。只在全部修改完成后调用一次。
func (d *Document) Flush() error {
	data, err := d.main.WriteToBytes()
	if err != nil {
		return fmt.Errorf("serialize %s: %w", opc.PartDocument, err)
	}
	d.pkg.SetPart(opc.PartDocument, data)
	if d.comments != nil {
		cdata, err := d.comments.WriteToBytes()
		if err != nil {
			return fmt.Errorf("serialize %s: %w", opc.PartComments, err)
		}
		d.pkg.SetPart(opc.PartComments, cdata)
	}
	return nil
}

// isW 判断元素是否为 wordprocessingml 命名空间下的指定本地名。
// 按约定以 w: 前缀出现；不解析命名空间映射（docx 生态的普遍前提）。
func isW(el *etree.Element, tag string) bool {
	return el.Space == "w" && el.Tag == tag
}

// runText 返回 run 的可见文本（w:t 串接）。
func runText(r *etree.Element) string {
	var sb strings.Builder
	for _, ch := range r.ChildElements() {
		if isW(ch, "t") {
			sb.WriteString(ch.Text())
		}
	}
	return sb.String()
}
