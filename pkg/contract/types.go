package contract

// EditID: 批内稳定序号（0..n-1），用于日志与回执关联。
type EditID int

// Edit: 外部建议源产出的原子修改请求（不可变，消费一次）。
// 约束：
// - Original 为非空目标片段（实践上 < 500 字符，不强制）；
// - Replacement 为期望文本（可为空，空则只能落为批注）；
// - Rationale 可选，仅进入批注正文/日志，不参与定位。
type Edit struct {
	Original    string `json:"original"`
	Replacement string `json:"replacement"`
	Rationale   string `json:"rationale,omitempty"`
}

// Mode: 单条修改的落盘策略。
// hybrid 仅作为批级配置；逐条最终总会落为 track 或 comment。
type Mode string

const (
	ModeTrack   Mode = "track"
	ModeComment Mode = "comment"
	ModeHybrid  Mode = "hybrid"
)

// MatchKind: 定位结果类别。
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchExact
	MatchFuzzy
)

// Match: 段内定位结果。
// exact 携带 run 范围与 run 内 rune 偏移；fuzzy 仅携带相似度，
// 锚点为整段；none 不携带任何定位数据。
type Match struct {
	Kind MatchKind
	// StartRun/EndRun: 命中的 run 下标（闭区间，段内序）。
	StartRun int
	EndRun   int
	// StartOff: StartRun 内起始 rune 偏移；EndOff: EndRun 内结束 rune 偏移（不含）。
	StartOff int
	EndOff   int
	// Similarity: fuzzy 时 ∈ [0,1]；exact 时为 1。
	Similarity float64
}

// Status: 单条修改的终态。
// 状态机：pending → located → isolated → emitted（成功，applied）
// 或 pending → not_found（失败）；一次调用内不重试。
type Status string

const (
	StatusApplied  Status = "applied"
	StatusNotFound Status = "not_found"
	StatusFailed   Status = "failed"
)

// Outcome: 逐条修改的显式回执（代替吞异常式回退）。
type Outcome struct {
	Edit   EditID `json:"edit"`
	Status Status `json:"status"`
	// Mode: 实际采用的落盘策略（track|comment）；未落盘时为空。
	Mode Mode `json:"mode,omitempty"`
	// Reason: 失败原因（机器可读短语，如 not_found / fuzzy_untrackable /
	// comments_unavailable / run_unsplittable）。
	Reason string `json:"reason,omitempty"`
	// Similarity: fuzzy 命中时的相似度，便于事后核查。
	Similarity float64 `json:"similarity,omitempty"`
}

// Summary: 批次聚合结果（用户可见，永不静默部分成功）。
type Summary struct {
	Applied   int `json:"applied"`
	Failed    int `json:"failed"`
	Total     int `json:"total"`
	Tracked   int `json:"tracked"`
	Commented int `json:"commented"`
}

// Risk: 预检批级风险。
type Risk int

const (
	RiskLow Risk = iota
	RiskMedium
	RiskHigh
)

func (r Risk) String() string {
	switch r {
	case RiskHigh:
		return "high"
	case RiskMedium:
		return "medium"
	default:
		return "low"
	}
}

// Flag: 预检逐条标记。
type Flag string

const (
	FlagNotFound  Flag = "not_found"
	FlagAmbiguous Flag = "ambiguous"
	FlagNoop      Flag = "noop"
)

// Finding: 预检发现（只读扫描产物，不阻断执行）。
type Finding struct {
	Edit        EditID `json:"edit"`
	Flag        Flag   `json:"flag"`
	Occurrences int    `json:"occurrences"`
}

// Report: 预检报告。默认仅告知；调用方可选择对 high 风险设闸。
type Report struct {
	Risk     Risk      `json:"-"`
	RiskName string    `json:"risk"`
	Findings []Finding `json:"findings,omitempty"`
}

// CloneEdits: 强制拷贝编辑批，切断与来源缓冲区的生命周期耦合。
func CloneEdits(in []Edit) []Edit {
	if len(in) == 0 {
		return nil
	}
	out := make([]Edit, len(in))
	for i, e := range in {
		out[i] = Edit{
			Original:    cloneString(e.Original),
			Replacement: cloneString(e.Replacement),
			Rationale:   cloneString(e.Rationale),
		}
	}
	return out
}

// cloneString: 强制拷贝字符串，避免底层共享。
func cloneString(s string) string {
	if s == "" {
		return ""
	}
	b := make([]byte, len(s))
	copy(b, s)
	return string(b)
}
