package opc

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"

	"redline/pkg/contract"
)

// 包容器：zip + 部件表。整包读入内存、就地改写、最终一次写出；
// 未触碰的部件按原始字节透传，保持序列化顺序稳定。

// 常用部件名（zip 内路径，不带前导斜杠）。
const (
	PartContentTypes = "[Content_Types].xml"
	PartRootRels     = "_rels/.rels"
	PartDocument     = "word/document.xml"
	PartDocumentRels = "word/_rels/document.xml.rels"
	PartComments     = "word/comments.xml"
)

type part struct {
	name string
	data []byte
}

// Package: zip 容器 + 内容类型表 + 关系表的内存视图。
// 不变量：关系所引用的部件必须存在于 zip；部件使用的非默认内容类型必须已注册。
type Package struct {
	parts []*part
	index map[string]*part
}

// Open 从磁盘读入整包。
func Open(path string) (*Package, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromBytes(b)
}

// FromBytes 从字节解析包。非 zip 或缺少主文档部件视为损坏。
func FromBytes(b []byte) (*Package, error) {
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contract.ErrPartMalformed, err)
	}
	p := &Package{index: make(map[string]*part, len(zr.File))}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %v", contract.ErrPartMalformed, f.Name, err)
		}
		data, err := io.ReadAll(rc)
		cerr := rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", contract.ErrPartMalformed, f.Name, err)
		}
		if cerr != nil {
			return nil, fmt.Errorf("%w: close %s: %v", contract.ErrPartMalformed, f.Name, cerr)
		}
		p.put(f.Name, data)
	}
	if !p.Has(PartDocument) {
		return nil, fmt.Errorf("%w: missing %s", contract.ErrPartMalformed, PartDocument)
	}
	return p, nil
}

// Part 返回部件字节（只读视图，调用方不得修改）。
func (p *Package) Part(name string) ([]byte, bool) {
	if e, ok := p.index[name]; ok {
		return e.data, true
	}
	return nil, false
}

// Has 判断部件是否存在。
func (p *Package) Has(name string) bool {
	_, ok := p.index[name]
	return ok
}

// SetPart 覆盖或新增部件。新增部件追加在末尾，既有部件保持原位。
func (p *Package) SetPart(name string, data []byte) {
	p.put(name, data)
}

func (p *Package) put(name string, data []byte) {
	if e, ok := p.index[name]; ok {
		e.data = data
		return
	}
	e := &part{name: name, data: data}
	p.parts = append(p.parts, e)
	p.index[name] = e
}

// WriteTo 按部件顺序序列化为 zip。
func (p *Package) WriteTo(w io.Writer) error {
	zw := zip.NewWriter(w)
	for _, e := range p.parts {
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: zip.Deflate})
		if err != nil {
			return err
		}
		if _, err := fw.Write(e.data); err != nil {
			return err
		}
	}
	return zw.Close()
}

// Bytes 序列化整包。
func (p *Package) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := p.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
