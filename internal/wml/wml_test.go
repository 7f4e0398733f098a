package wml

import (
	"errors"
	"strings"
	"testing"

	"redline/internal/doctest"
	"redline/internal/opc"
	"redline/pkg/contract"
)

func mustOpen(t *testing.T, b []byte) *Document {
	t.Helper()
	pkg, err := opc.FromBytes(b)
	if err != nil {
		t.Fatalf("opc: %v", err)
	}
	d, err := Open(pkg)
	if err != nil {
		t.Fatalf("wml: %v", err)
	}
	return d
}

// TestParagraphOrder 测试正文与表格单元格按文档序收集
func TestParagraphOrder(t *testing.T) {
	d := mustOpen(t, doctest.BuildWithTable(
		[]doctest.Para{doctest.P("甲"), doctest.P("乙")},
		[]string{"丙", "丁"},
	))
	got := d.ParagraphTexts()
	want := []string{"甲", "乙", "丙", "丁"}
	if len(got) != len(want) {
		t.Fatalf("expect %d paragraphs, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("paragraph %d: got %q want %q", i, got[i], want[i])
		}
	}
}

// TestRunIndexSpans 测试偏移表与串接文本
func TestRunIndexSpans(t *testing.T) {
	d := mustOpen(t, doctest.Build(doctest.P("他说", "：你好", "世界")))
	ix := NewRunIndex(d.Paragraphs()[0])
	if ix.Text() != "他说：你好世界" {
		t.Fatalf("text: %q", ix.Text())
	}
	if ix.RuneLen() != 7 {
		t.Fatalf("rune len: %d", ix.RuneLen())
	}
	// “你好” 位于第二个 run 的 [1,3)。
	m := ix.Resolve(3, 5)
	if m.Kind != contract.MatchExact || m.StartRun != 1 || m.EndRun != 1 || m.StartOff != 1 || m.EndOff != 3 {
		t.Fatalf("resolve: %+v", m)
	}
	// 跨 run 区间：“好世”。
	m = ix.Resolve(4, 6)
	if m.StartRun != 1 || m.EndRun != 2 || m.StartOff != 2 || m.EndOff != 1 {
		t.Fatalf("resolve cross-run: %+v", m)
	}
	// 越界。
	if m := ix.Resolve(5, 9); m.Kind != contract.MatchNone {
		t.Fatalf("expect none for out of range, got %+v", m)
	}
}

// TestIsolateMidRun 测试单 run 内部两侧切分
func TestIsolateMidRun(t *testing.T) {
	d := mustOpen(t, doctest.Build(doctest.P("前被广泛地进行使用后")))
	p := d.Paragraphs()[0]
	ix := NewRunIndex(p)
	m := ix.Resolve(1, 9) // 被广泛地进行使用
	span, err := ix.Isolate(m)
	if err != nil {
		t.Fatalf("isolate: %v", err)
	}
	if len(span) != 1 || runText(span[0]) != "被广泛地进行使用" {
		t.Fatalf("span: %d %q", len(span), runText(span[0]))
	}
	// 不变量：段落串接文本不变；切出 3 个 run。
	if got := p.Text(); got != "前被广泛地进行使用后" {
		t.Fatalf("paragraph text changed: %q", got)
	}
	if n := len(p.Runs()); n != 3 {
		t.Fatalf("expect 3 runs after split, got %d", n)
	}
}

// TestIsolateBoundaryNoop 测试落在 run 边界时不产生空 run
func TestIsolateBoundaryNoop(t *testing.T) {
	d := mustOpen(t, doctest.Build(doctest.P("整段命中")))
	p := d.Paragraphs()[0]
	ix := NewRunIndex(p)
	span, err := ix.Isolate(ix.Resolve(0, 4))
	if err != nil {
		t.Fatalf("isolate: %v", err)
	}
	if len(span) != 1 || len(p.Runs()) != 1 {
		t.Fatalf("boundary isolate must be no-op split: span=%d runs=%d", len(span), len(p.Runs()))
	}
}

// TestIsolateCrossRuns 测试跨 run 区间与中间 run 整体纳入
func TestIsolateCrossRuns(t *testing.T) {
	d := mustOpen(t, doctest.Build(doctest.P("开头AB", "CD", "EF结尾")))
	p := d.Paragraphs()[0]
	ix := NewRunIndex(p)
	text := ix.Text()
	from := strings.Index(text, "AB")
	if from < 0 {
		t.Fatalf("fixture broken")
	}
	// ABCDEF：首 run 尾部 + 中间整 run + 末 run 头部。
	m := ix.Resolve(2, 8)
	span, err := ix.Isolate(m)
	if err != nil {
		t.Fatalf("isolate: %v", err)
	}
	var sb strings.Builder
	for _, r := range span {
		sb.WriteString(runText(r))
	}
	if sb.String() != "ABCDEF" {
		t.Fatalf("span text: %q", sb.String())
	}
	if got := p.Text(); got != text {
		t.Fatalf("paragraph text changed: %q != %q", got, text)
	}
}

// TestIsolateFuzzyRejected 测试 fuzzy 匹配不可隔离
func TestIsolateFuzzyRejected(t *testing.T) {
	d := mustOpen(t, doctest.BuildText("正文"))
	ix := NewRunIndex(d.Paragraphs()[0])
	_, err := ix.Isolate(contract.Match{Kind: contract.MatchFuzzy, Similarity: 0.9})
	if !errors.Is(err, contract.ErrInvalidInput) {
		t.Fatalf("expect ErrInvalidInput, got %v", err)
	}
}

// TestMaxRevisionID 测试修订 id 扫描
func TestMaxRevisionID(t *testing.T) {
	d := mustOpen(t, doctest.BuildText("正文"))
	if got := d.MaxRevisionID(); got != 0 {
		t.Fatalf("fresh doc: %d", got)
	}
	p := d.Paragraphs()[0]
	del := p.El.CreateElement("w:del")
	del.CreateAttr("w:id", "41")
	ins := p.El.CreateElement("w:ins")
	ins.CreateAttr("w:id", "7")
	if got := d.MaxRevisionID(); got != 41 {
		t.Fatalf("expect 41, got %d", got)
	}
}

// TestCommentsLazyEnsure 测试批注树惰性创建与 Flush 落位
func TestCommentsLazyEnsure(t *testing.T) {
	pkg, err := opc.FromBytes(doctest.BuildText("正文"))
	if err != nil {
		t.Fatalf("opc: %v", err)
	}
	d, err := Open(pkg)
	if err != nil {
		t.Fatalf("wml: %v", err)
	}
	c, err := d.Comments()
	if err != nil {
		t.Fatalf("comments: %v", err)
	}
	if c.Root().Tag != "comments" {
		t.Fatalf("root: %s", c.Root().Tag)
	}
	if err := d.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if !pkg.Has(opc.PartComments) || !pkg.CommentsRegistered() {
		t.Fatalf("comments part not flushed/registered")
	}
}
