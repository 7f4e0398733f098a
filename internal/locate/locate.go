// Package locate 实现段内文本定位：精确命中映射回 run 边界；
// 未命中时对整段做相似度兜底。定位层不触达 XML。
package locate

import (
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
	"golang.org/x/text/unicode/norm"

	"redline/internal/wml"
	"redline/pkg/contract"
)

// DefaultSimilarityMin: 整段模糊命中的相似度下限。
const DefaultSimilarityMin = 0.8

// Find 在段落索引内定位目标片段。
// 算法：
// 1) 原文串接上做子串精确搜索，命中即映射回 (run, run 内偏移)；
// 2) 未命中时对 NFC 归一后的整段与目标计算相似度，≥ 阈值返回
//    fuzzy（锚点为整段，不携带 run 区间），否则 none。
// none 是正常结果而非错误；同段多次出现取首个（歧义由预检揭示）。
func Find(ix *wml.RunIndex, target string, simMin float64) contract.Match {
	if target == "" {
		return contract.Match{Kind: contract.MatchNone}
	}
	if simMin <= 0 {
		simMin = DefaultSimilarityMin
	}
	text := ix.Text()
	if text == "" {
		return contract.Match{Kind: contract.MatchNone}
	}
	if i := strings.Index(text, target); i >= 0 {
		from := utf8.RuneCountInString(text[:i])
		return ix.Resolve(from, from+utf8.RuneCountInString(target))
	}
	sim := Similarity(norm.NFC.String(text), norm.NFC.String(target))
	if sim >= simMin {
		return contract.Match{Kind: contract.MatchFuzzy, Similarity: sim}
	}
	return contract.Match{Kind: contract.MatchNone}
}

// Similarity 计算连续匹配比：2·公共段 rune 数 /（双方 rune 总数）。
// 公共段取字符级 diff 的 equal 片段，对应经典序列匹配 ratio。
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(a, b, false)
	common := 0
	for _, d := range diffs {
		if d.Type == diffmatchpatch.DiffEqual {
			common += utf8.RuneCountInString(d.Text)
		}
	}
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 0
	}
	return float64(2*common) / float64(total)
}
