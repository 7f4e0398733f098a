package opc

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"redline/pkg/contract"
)

// 包一致性维护：批注部件的惰性创建与登记。
// 失败必须中止整批批注路径——半注册的部件会让包打不开。

const (
	nsWordprocessing = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsContentTypes   = "http://schemas.openxmlformats.org/package/2006/content-types"
	nsRelationships  = "http://schemas.openxmlformats.org/package/2006/relationships"

	ctComments  = "application/vnd.openxmlformats-officedocument.wordprocessingml.comments+xml"
	relComments = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/comments"
)

var relIDRe = regexp.MustCompile(`^rId(\d+)$`)

// EnsureCommentsPart 保证批注部件存在且已登记：
// 1) 部件缺失时合成空 w:comments；
// 2) [Content_Types].xml 注册 Override；
// 3) 主文档关系表增加 comments 关系。
// 已存在的部件仅做结构校验后复用；任何一步失败返回 ErrPartMalformed 包装错误，
// 包内容保持未动（先全部校验/构造，后统一落位）。
func (p *Package) EnsureCommentsPart() error {
	// 既有部件：只校验，不改写。
	var newPart []byte
	if data, ok := p.Part(PartComments); ok {
		doc := etree.NewDocument()
		if err := doc.ReadFromBytes(data); err != nil {
			return fmt.Errorf("%w: %s: %v", contract.ErrPartMalformed, PartComments, err)
		}
		root := doc.Root()
		if root == nil || root.Tag != "comments" {
			return fmt.Errorf("%w: %s: unexpected root", contract.ErrPartMalformed, PartComments)
		}
	} else {
		// 合成空部件（暂存，登记全部通过前不落位）。
		doc := etree.NewDocument()
		doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
		root := doc.CreateElement("w:comments")
		root.CreateAttr("xmlns:w", nsWordprocessing)
		data, err := doc.WriteToBytes()
		if err != nil {
			return fmt.Errorf("%w: synthesize %s: %v", contract.ErrPartMalformed, PartComments, err)
		}
		newPart = data
	}

	// 先全部校验/构造：两张登记表都解析成功才允许改写任何部件。
	ctOut, err := p.overrideBytes("/"+PartComments, ctComments)
	if err != nil {
		return err
	}
	relOut, err := p.relationshipBytes(relComments, "comments.xml")
	if err != nil {
		return err
	}

	// 后统一落位（nil 表示已登记，不动）。
	if ctOut != nil {
		p.SetPart(PartContentTypes, ctOut)
	}
	if relOut != nil {
		p.SetPart(PartDocumentRels, relOut)
	}
	if newPart != nil {
		p.SetPart(PartComments, newPart)
	}
	return nil
}

// overrideBytes 构造登记了 Override 的内容类型表字节；
// 已存在时返回 nil 表示无需改写。不触达包内容。
func (p *Package) overrideBytes(partName, contentType string) ([]byte, error) {
	data, ok := p.Part(PartContentTypes)
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", contract.ErrPartMalformed, PartContentTypes)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", contract.ErrPartMalformed, PartContentTypes, err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "Types" {
		return nil, fmt.Errorf("%w: %s: unexpected root", contract.ErrPartMalformed, PartContentTypes)
	}
	for _, el := range root.ChildElements() {
		if el.Tag == "Override" && el.SelectAttrValue("PartName", "") == partName {
			return nil, nil
		}
	}
	ov := root.CreateElement("Override")
	ov.CreateAttr("PartName", partName)
	ov.CreateAttr("ContentType", contentType)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", contract.ErrPartMalformed, PartContentTypes, err)
	}
	return out, nil
}

// relationshipBytes 构造登记了指定类型关系的主文档关系表字节；
// 已存在时返回 nil 表示无需改写。关系表部件缺失时新建
// （某些生成器省略空关系表）。不触达包内容。
func (p *Package) relationshipBytes(relType, target string) ([]byte, error) {
	doc := etree.NewDocument()
	if data, ok := p.Part(PartDocumentRels); ok {
		if err := doc.ReadFromBytes(data); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", contract.ErrPartMalformed, PartDocumentRels, err)
		}
	} else {
		doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
		root := doc.CreateElement("Relationships")
		root.CreateAttr("xmlns", nsRelationships)
	}
	root := doc.Root()
	if root == nil || root.Tag != "Relationships" {
		return nil, fmt.Errorf("%w: %s: unexpected root", contract.ErrPartMalformed, PartDocumentRels)
	}
	maxID := 0
	for _, el := range root.ChildElements() {
		if el.Tag != "Relationship" {
			continue
		}
		if el.SelectAttrValue("Type", "") == relType {
			return nil, nil
		}
		if m := relIDRe.FindStringSubmatch(el.SelectAttrValue("Id", "")); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > maxID {
				maxID = n
			}
		}
	}
	rel := root.CreateElement("Relationship")
	rel.CreateAttr("Id", "rId"+strconv.Itoa(maxID+1))
	rel.CreateAttr("Type", relType)
	rel.CreateAttr("Target", target)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", contract.ErrPartMalformed, PartDocumentRels, err)
	}
	return out, nil
}

// CommentsRegistered 只读探测：内容类型与关系是否均已登记（测试用）。
func (p *Package) CommentsRegistered() bool {
	ct, ok := p.Part(PartContentTypes)
	if !ok || !strings.Contains(string(ct), "/"+PartComments) {
		return false
	}
	rels, ok := p.Part(PartDocumentRels)
	return ok && strings.Contains(string(rels), relComments)
}
