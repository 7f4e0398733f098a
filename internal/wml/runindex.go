package wml

import (
	"github.com/beevik/etree"

	"redline/pkg/contract"
)

// RunIndex: 段落级短命索引——run 文本串接 + 每个 run 的 [start,end)
// rune 区间。每次定位按需重建，任何树改写后即失效，绝不持久化。
type RunIndex struct {
	para  *Paragraph
	runs  []*etree.Element
	spans [][2]int // rune 区间，与 runs 对齐
	text  string   // 串接文本（= 段落可见文本）
}

// NewRunIndex 为段落构建索引。O(runs)。
func NewRunIndex(p *Paragraph) *RunIndex {
	ix := &RunIndex{para: p, runs: p.Runs()}
	pos := 0
	for _, r := range ix.runs {
		t := runText(r)
		n := runeLen(t)
		ix.spans = append(ix.spans, [2]int{pos, pos + n})
		ix.text += t
		pos += n
	}
	return ix
}

// Text 返回段落串接文本。
func (ix *RunIndex) Text() string { return ix.text }

// RuneLen 返回串接文本的 rune 长度。
func (ix *RunIndex) RuneLen() int {
	if len(ix.spans) == 0 {
		return 0
	}
	return ix.spans[len(ix.spans)-1][1]
}

// Resolve 把绝对 rune 区间 [from,to) 映射回 (run, run 内偏移)。
// 约束：0 <= from < to <= RuneLen()；违例返回 MatchNone。
func (ix *RunIndex) Resolve(from, to int) contract.Match {
	if from < 0 || to <= from || to > ix.RuneLen() {
		return contract.Match{Kind: contract.MatchNone}
	}
	m := contract.Match{Kind: contract.MatchExact, Similarity: 1, StartRun: -1, EndRun: -1}
	for i, sp := range ix.spans {
		// 空 run（零宽区间）永不命中。
		if sp[0] <= from && from < sp[1] && m.StartRun < 0 {
			m.StartRun = i
			m.StartOff = from - sp[0]
		}
		if sp[0] < to && to <= sp[1] {
			m.EndRun = i
			m.EndOff = to - sp[0]
			break
		}
	}
	if m.StartRun < 0 || m.EndRun < 0 || m.EndRun < m.StartRun {
		return contract.Match{Kind: contract.MatchNone}
	}
	return m
}

func runeLen(s string) int { return len([]rune(s)) }
