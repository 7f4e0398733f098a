// Package doctest 构造最小可用的 OOXML 字处理包，供各层测试使用。
// 仅测试代码引用；不出现在运行路径上。
package doctest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
)

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const rootRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

const docRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
</Relationships>`

// Para 描述一个测试段落：Runs 逐项成为独立 w:r。
type Para struct {
	Runs []string
}

// P 便捷构造：每个参数一个 run。
func P(runs ...string) Para { return Para{Runs: runs} }

// Build 构造包含给定正文段落的最小 docx 包字节。
func Build(paras ...Para) []byte {
	return BuildWithTable(paras, nil)
}

// BuildText 构造每段单 run 的最小包。
func BuildText(texts ...string) []byte {
	ps := make([]Para, len(texts))
	for i, t := range texts {
		ps[i] = P(t)
	}
	return Build(ps...)
}

// BuildWithTable 构造正文段落 + 末尾一张单行表（每个 cell 一个段落）。
func BuildWithTable(paras []Para, cellTexts []string) []byte {
	var body strings.Builder
	for _, p := range paras {
		body.WriteString(paraXML(p))
	}
	if len(cellTexts) > 0 {
		body.WriteString("<w:tbl><w:tr>")
		for _, t := range cellTexts {
			body.WriteString("<w:tc>")
			body.WriteString(paraXML(P(t)))
			body.WriteString("</w:tc>")
		}
		body.WriteString("</w:tr></w:tbl>")
	}
	docXML := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>%s</w:body></w:document>`, body.String())

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range []struct{ name, data string }{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", rootRelsXML},
		{"word/document.xml", docXML},
		{"word/_rels/document.xml.rels", docRelsXML},
	} {
		w, err := zw.Create(f.name)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write([]byte(f.data)); err != nil {
			panic(err)
		}
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func paraXML(p Para) string {
	var sb strings.Builder
	sb.WriteString("<w:p>")
	for _, r := range p.Runs {
		sb.WriteString(`<w:r><w:rPr><w:sz w:val="24"/></w:rPr><w:t xml:space="preserve">`)
		sb.WriteString(escape(r))
		sb.WriteString("</w:t></w:r>")
	}
	sb.WriteString("</w:p>")
	return sb.String()
}

func escape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
