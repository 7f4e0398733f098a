package preflight

import (
	"strings"
	"testing"

	"redline/pkg/contract"
)

func flagsOf(r contract.Report) map[contract.Flag]int {
	m := map[contract.Flag]int{}
	for _, f := range r.Findings {
		m[f.Flag]++
	}
	return m
}

// TestScanClean 测试全部可精确命中的批次
func TestScanClean(t *testing.T) {
	r := Scan([]string{"该技术被广泛地进行使用于工业。"},
		[]contract.Edit{{Original: "被广泛地进行使用", Replacement: "已广泛使用"}}, Options{})
	if r.Risk != contract.RiskLow || len(r.Findings) != 0 {
		t.Fatalf("clean batch: %+v", r)
	}
}

// TestScanNotFoundIsolated 测试孤立未命中不升级风险
func TestScanNotFoundIsolated(t *testing.T) {
	r := Scan([]string{"正文", "其他"}, []contract.Edit{
		{Original: "正文", Replacement: "本文"},
		{Original: "其他", Replacement: "别的"},
		{Original: "不存在的片段xyz", Replacement: "任意"},
	}, Options{})
	if r.Risk != contract.RiskLow {
		t.Fatalf("isolated miss must stay low: %s", r.Risk)
	}
	if flagsOf(r)[contract.FlagNotFound] != 1 {
		t.Fatalf("findings: %+v", r.Findings)
	}
}

// TestScanNotFoundFractionHigh 测试未命中占比过大升为 high
func TestScanNotFoundFractionHigh(t *testing.T) {
	r := Scan([]string{"只有这一段"}, []contract.Edit{
		{Original: "只有", Replacement: "仅有"},
		{Original: "无甲", Replacement: "x"},
		{Original: "无乙", Replacement: "y"},
		{Original: "无丙", Replacement: "z"},
	}, Options{})
	if r.Risk != contract.RiskHigh {
		t.Fatalf("expect high, got %s", r.Risk)
	}
}

// TestScanAmbiguousShortSpan 测试短片段重复出现
func TestScanAmbiguousShortSpan(t *testing.T) {
	r := Scan([]string{"甲A乙A丙"}, []contract.Edit{{Original: "A", Replacement: "B"}}, Options{})
	if r.Risk != contract.RiskMedium {
		t.Fatalf("expect medium, got %s", r.Risk)
	}
	fs := r.Findings
	if len(fs) != 1 || fs[0].Flag != contract.FlagAmbiguous || fs[0].Occurrences != 2 {
		t.Fatalf("findings: %+v", fs)
	}
}

// TestScanLongSpanRepeatNotAmbiguous 测试长片段重复不标歧义
func TestScanLongSpanRepeatNotAmbiguous(t *testing.T) {
	long := strings.Repeat("重复的长句子", 5)
	r := Scan([]string{long, long}, []contract.Edit{{Original: long, Replacement: "短"}}, Options{})
	if r.Risk != contract.RiskLow || len(r.Findings) != 0 {
		t.Fatalf("long repeat: %+v", r)
	}
}

// TestScanNoop 测试无变化修改
func TestScanNoop(t *testing.T) {
	r := Scan([]string{"相同文本"}, []contract.Edit{{Original: "相同", Replacement: "相同"}}, Options{})
	if flagsOf(r)[contract.FlagNoop] != 1 {
		t.Fatalf("noop not flagged: %+v", r.Findings)
	}
}

// TestScanCrossParagraphNotCounted 测试目标不跨段
func TestScanCrossParagraphNotCounted(t *testing.T) {
	r := Scan([]string{"前半", "后半"}, []contract.Edit{{Original: "前半后半", Replacement: "x"}}, Options{})
	if flagsOf(r)[contract.FlagNotFound] != 1 {
		t.Fatalf("cross-paragraph span must be not_found: %+v", r.Findings)
	}
}

// TestScanRawFormCounting 测试计数与定位层同形：不做 Unicode 归一
func TestScanRawFormCounting(t *testing.T) {
	// 段落为分解形（e + 组合重音），目标为合成形：定位层不会命中，
	// 预检必须同样报 not_found，而不是归一后误报存在。
	nfd := "本店常年供应cafe\u0301与各式甜点。"
	r := Scan([]string{nfd}, []contract.Edit{{Original: "caf\u00e9", Replacement: "咖啡"}}, Options{})
	if flagsOf(r)[contract.FlagNotFound] != 1 {
		t.Fatalf("composed target against decomposed text must be not_found: %+v", r.Findings)
	}
	// 同形目标照常命中。
	r = Scan([]string{nfd}, []contract.Edit{{Original: "cafe\u0301", Replacement: "咖啡"}}, Options{})
	if len(r.Findings) != 0 {
		t.Fatalf("same-form target must be found: %+v", r.Findings)
	}
}

// TestScanEmptyBatch 测试空批
func TestScanEmptyBatch(t *testing.T) {
	r := Scan([]string{"正文"}, nil, Options{})
	if r.Risk != contract.RiskLow || len(r.Findings) != 0 {
		t.Fatalf("empty batch: %+v", r)
	}
}
