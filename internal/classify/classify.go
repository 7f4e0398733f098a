// Package classify 实现混合策略分类：短小明确的更正落为行内修订
//（可接受/拒绝），长改写或方向性建议落为侧栏批注。纯函数，无 I/O。
package classify

import (
	"strings"

	"redline/pkg/contract"
)

// DefaultCeiling: 原文片段长度上限（rune）；超过走批注。
const DefaultCeiling = 500

// 方向性建议的常见起始/标志词。命中即视为“建议语气”而非直接替换文本。
var suggestionMarkers = []string{
	"建议",
	"可以考虑",
	"考虑",
	"最好",
	"应当",
	"或许",
	"Consider",
	"Suggest",
	"Maybe",
	"It would be",
}

// Mode 对单条修改做策略判定：
// revision ⇔ 替换文本非空、与原文不同、不是建议语气、且原文长度低于上限；
// 否则 comment。
func Mode(e contract.Edit, ceiling int) contract.Mode {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	if e.Replacement == "" || e.Replacement == e.Original {
		return contract.ModeComment
	}
	if IsSuggestion(e.Replacement) {
		return contract.ModeComment
	}
	if len([]rune(e.Original)) >= ceiling {
		return contract.ModeComment
	}
	return contract.ModeTrack
}

// IsSuggestion 判断文本是否读作开放式建议（以建议语气开头，
// 或在首句内出现建议标志词）。
func IsSuggestion(s string) bool {
	t := strings.TrimSpace(s)
	if t == "" {
		return false
	}
	head := firstClause(t)
	for _, m := range suggestionMarkers {
		if strings.HasPrefix(t, m) || strings.Contains(head, m) {
			return true
		}
	}
	return false
}

// firstClause 取首个句读之前的片段（中英文标点皆断）。
func firstClause(s string) string {
	if i := strings.IndexAny(s, "。，；.!?,;："); i >= 0 {
		return s[:i]
	}
	return s
}
