// Package preflight 在任何改写之前对整批修改做只读扫描：
// 缺失原文、重复出现歧义、无变化修改，并给出批级风险。
// 仅告知，不阻断；是否对 high 风险设闸由调用方决定。
package preflight

import (
	"strings"

	"redline/pkg/contract"
)

// 默认参数：短片段阈值与 not_found 占比上限。
const (
	DefaultShortSpanRunes    = 20
	DefaultNotFoundThreshold = 0.5
)

// Options: 扫描参数（零值取默认）。
type Options struct {
	// ShortSpanRunes: 重复出现仅在片段短于该 rune 数时视为歧义
	//（长片段重复大概率是整段复用，盲改风险低）。
	ShortSpanRunes int
	// NotFoundThreshold: not_found 占比超过该值时风险升为 high。
	// 孤立的未命中是不完美建议源的常态，不升级。
	NotFoundThreshold float64
}

// Scan 对编辑批做只读预检。计数在原始 rune 文本上进行，
// 与定位层的精确搜索同形（报告必须预测执行结果，不得更宽）；
// 段落以换行拼接（目标片段不跨段）。
func Scan(paraTexts []string, edits []contract.Edit, opts Options) contract.Report {
	short := opts.ShortSpanRunes
	if short <= 0 {
		short = DefaultShortSpanRunes
	}
	threshold := opts.NotFoundThreshold
	if threshold <= 0 {
		threshold = DefaultNotFoundThreshold
	}

	full := strings.Join(paraTexts, "\n")
	var findings []contract.Finding
	notFound, ambiguous := 0, 0
	for i, e := range edits {
		id := contract.EditID(i)
		if e.Original == e.Replacement {
			findings = append(findings, contract.Finding{Edit: id, Flag: contract.FlagNoop})
		}
		target := e.Original
		if target == "" {
			notFound++
			findings = append(findings, contract.Finding{Edit: id, Flag: contract.FlagNotFound})
			continue
		}
		n := strings.Count(full, target)
		switch {
		case n == 0:
			notFound++
			findings = append(findings, contract.Finding{Edit: id, Flag: contract.FlagNotFound})
		case n > 1 && len([]rune(target)) < short:
			ambiguous++
			findings = append(findings, contract.Finding{Edit: id, Flag: contract.FlagAmbiguous, Occurrences: n})
		}
	}

	risk := contract.RiskLow
	if ambiguous > 0 {
		risk = contract.RiskMedium
	}
	if len(edits) > 0 && float64(notFound)/float64(len(edits)) > threshold {
		risk = contract.RiskHigh
	}
	return contract.Report{Risk: risk, RiskName: risk.String(), Findings: findings}
}
