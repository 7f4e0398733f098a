package classify

import (
	"strings"
	"testing"

	"redline/pkg/contract"
)

// TestMode 表驱动覆盖分类分支
func TestMode(t *testing.T) {
	cases := []struct {
		name string
		edit contract.Edit
		want contract.Mode
	}{
		{"短更正", contract.Edit{Original: "被广泛地进行使用", Replacement: "已广泛使用"}, contract.ModeTrack},
		{"空替换", contract.Edit{Original: "原文", Replacement: ""}, contract.ModeComment},
		{"无变化", contract.Edit{Original: "相同", Replacement: "相同"}, contract.ModeComment},
		{"建议语气中文", contract.Edit{Original: "此段", Replacement: "建议整段重写以突出结论"}, contract.ModeComment},
		{"建议语气英文", contract.Edit{Original: "intro", Replacement: "Consider moving this to the end"}, contract.ModeComment},
		{"句中建议词", contract.Edit{Original: "此处", Replacement: "这里可以考虑换一种说法，例如……"}, contract.ModeComment},
		{"超长原文", contract.Edit{Original: strings.Repeat("长", 600), Replacement: "短"}, contract.ModeComment},
		{"上限内原文", contract.Edit{Original: strings.Repeat("长", 100), Replacement: "短"}, contract.ModeTrack},
	}
	for _, c := range cases {
		if got := Mode(c.edit, 0); got != c.want {
			t.Fatalf("%s: got %s want %s", c.name, got, c.want)
		}
	}
}

// TestModeCustomCeiling 测试自定义长度上限
func TestModeCustomCeiling(t *testing.T) {
	e := contract.Edit{Original: strings.Repeat("字", 50), Replacement: "x"}
	if got := Mode(e, 40); got != contract.ModeComment {
		t.Fatalf("ceiling 40: got %s", got)
	}
	if got := Mode(e, 60); got != contract.ModeTrack {
		t.Fatalf("ceiling 60: got %s", got)
	}
}

// TestIsSuggestion 覆盖建议判定边界
func TestIsSuggestion(t *testing.T) {
	if IsSuggestion("") {
		t.Fatalf("empty is not a suggestion")
	}
	if IsSuggestion("直接替换文本。建议仅出现在第二句") {
		t.Fatalf("marker beyond first clause must not trigger")
	}
	if !IsSuggestion("  建议删除本段") {
		t.Fatalf("leading space then marker must trigger")
	}
}
