// Package pipeline 编排一次完整的批量审校：
// 建议源 → 包加载 → 预检 → 逐条定位/分类/发射 → 序列化 → 写出。
// - 单文档单线程：元素树就地改写不可并发，逐条顺序执行；
// - 显式回执：每条修改产出 Outcome，汇总为 Summary，绝不静默部分成功；
// - 逐条隔离：单条失败只标记该条，不中断整批；包级损坏才整体中止。
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/beevik/etree"

	"redline/internal/classify"
	"redline/internal/diag"
	"redline/internal/emit"
	"redline/internal/locate"
	"redline/internal/opc"
	"redline/internal/preflight"
	"redline/internal/wml"
	"redline/pkg/contract"
)

// Components 聚合运行所需的原子组件。
type Components struct {
	Source contract.Source
	Writer contract.Writer
}

// Settings 运行期配置（最小必要）。
type Settings struct {
	// DocPath: 输入文档；OutPath 为空时就地覆盖。
	DocPath string
	OutPath string
	// Mode: 批级策略（track|comment|hybrid）。
	Mode contract.Mode
	// 修订/批注署名。
	Author   string
	Initials string
	// SimilarityMin: 模糊命中相似度下限；<=0 取默认。
	SimilarityMin float64
	// CommentCeiling: 原文长度上限（rune），超过落批注；<=0 取默认。
	CommentCeiling int
	// DryRun: 仅预检，不改写不落盘。
	DryRun bool
	// FailOnHigh: 预检 high 风险时整体拒绝执行。
	FailOnHigh bool
}

// Result 为一次编排调用的完整产物。
type Result struct {
	Summary  contract.Summary   `json:"summary"`
	Outcomes []contract.Outcome `json:"outcomes,omitempty"`
	Report   contract.Report    `json:"report"`
}

// Run 执行完整批次。错误返回仅表示整体中止（包损坏、写出失败、
// 风险闸门、取消）；逐条失败体现在 Result.Outcomes 中且返回 nil。
func Run(ctx context.Context, comp Components, set Settings, logger *diag.Logger) (*Result, error) {
	if err := sanity(comp, set); err != nil {
		return nil, fmt.Errorf("sanity: %w", err)
	}
	mode := set.Mode
	if mode == "" {
		mode = contract.ModeHybrid
	}
	outPath := set.OutPath
	if outPath == "" {
		outPath = set.DocPath
	}

	stimer := (*diag.Timer)(nil)
	if logger != nil {
		stimer = logger.StartWith("source", "edits", set.DocPath, "")
	}
	edits, err := comp.Source.Edits(ctx)
	if err != nil {
		logFail(logger, "source", err, set.DocPath, "")
		return nil, fmt.Errorf("source edits: %w", err)
	}
	if stimer != nil {
		stimer.Finish("edits", int64(len(edits)))
		diag.IncOp("source", "finish", "success")
	}

	ptimer := (*diag.Timer)(nil)
	if logger != nil {
		ptimer = logger.StartWith("opc", "open", set.DocPath, "")
	}
	pkg, err := opc.Open(set.DocPath)
	if err != nil {
		logFail(logger, "opc", err, set.DocPath, "")
		return nil, fmt.Errorf("open package: %w", err)
	}
	doc, err := wml.Open(pkg)
	if err != nil {
		logFail(logger, "opc", err, set.DocPath, "")
		return nil, fmt.Errorf("open document: %w", err)
	}
	if ptimer != nil {
		ptimer.Finish("open", 0)
		diag.IncOp("opc", "finish", "success")
	}

	report := preflight.Scan(doc.ParagraphTexts(), edits, preflight.Options{})
	res := &Result{Report: report}
	res.Summary.Total = len(edits)
	if set.DryRun {
		return res, nil
	}
	if set.FailOnHigh && report.Risk == contract.RiskHigh {
		return res, fmt.Errorf("%w: %d/%d edits not found", contract.ErrRiskTooHigh,
			countFlag(report, contract.FlagNotFound), len(edits))
	}

	if t := diag.GetTerminal(); t != nil {
		t.RunStart(set.DocPath, string(mode), len(edits))
	}
	runStart := time.Now()

	meta := emit.Meta{
		Author:   set.Author,
		Initials: set.Initials,
		Date:     diag.NowUTC(),
	}
	seq := emit.NewSeq(doc.MaxRevisionID() + 1)
	a := &applier{
		doc:     doc,
		mode:    mode,
		meta:    meta,
		seq:     seq,
		simMin:  set.SimilarityMin,
		ceiling: set.CommentCeiling,
		logger:  logger,
		docID:   set.DocPath,
	}

	errCount := 0
	for i, e := range edits {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		o := a.apply(contract.EditID(i), e)
		res.Outcomes = append(res.Outcomes, o)
		switch o.Status {
		case contract.StatusApplied:
			res.Summary.Applied++
			switch o.Mode {
			case contract.ModeTrack:
				res.Summary.Tracked++
			case contract.ModeComment:
				res.Summary.Commented++
			}
		default:
			res.Summary.Failed++
			errCount++
		}
		if t := diag.GetTerminal(); t != nil {
			t.EditProgress(i+1, len(edits), errCount)
		}
	}

	// 零落地时不重序列化：未触碰的文档保持原字节。
	if res.Summary.Applied > 0 {
		if err := doc.Flush(); err != nil {
			logFail(logger, "opc", err, set.DocPath, "")
			return res, fmt.Errorf("flush: %w", err)
		}
	}
	b, err := pkg.Bytes()
	if err != nil {
		logFail(logger, "opc", err, set.DocPath, "")
		return res, fmt.Errorf("serialize package: %w", err)
	}
	wtimer := (*diag.Timer)(nil)
	if logger != nil {
		wtimer = logger.StartWith("writer", "write", outPath, "")
	}
	if err := comp.Writer.Write(ctx, outPath, bytes.NewReader(b)); err != nil {
		logFail(logger, "writer", err, outPath, "")
		return res, fmt.Errorf("writer write: %w", err)
	}
	if wtimer != nil {
		wtimer.Finish("write", int64(len(b)))
		diag.IncOp("writer", "finish", "success")
	}
	if t := diag.GetTerminal(); t != nil {
		t.RunFinish(res.Summary.Failed == 0, res.Summary.Applied, res.Summary.Failed, time.Since(runStart))
	}
	return res, nil
}

// applier 承载逐条执行的共享状态。
type applier struct {
	doc     *wml.Document
	mode    contract.Mode
	meta    emit.Meta
	seq     *emit.Seq
	simMin  float64
	ceiling int
	logger  *diag.Logger
	docID   string

	// 批注部件失败后粘滞：同批后续批注一律拒绝，不半途混入。
	commentsErr error
	commentSeq  *emit.Seq
}

// apply 处理单条修改，产出显式回执。任何失败都不改写文档。
func (a *applier) apply(id contract.EditID, e contract.Edit) contract.Outcome {
	editID := strconv.Itoa(int(id))
	if a.logger != nil {
		a.logger.DebugStart("apply", "edit", a.docID, editID, nil)
	}

	// 逐段扫描：精确命中即止；否则记录文档序首个模糊命中
	//（后文的精确命中仍优先于先前的模糊命中）。
	var (
		hitPara  *wml.Paragraph
		hitIx    *wml.RunIndex
		hitMatch contract.Match
		fuzzPara *wml.Paragraph
		fuzzSim  float64
	)
	for _, p := range a.doc.Paragraphs() {
		ix := wml.NewRunIndex(p)
		m := locate.Find(ix, e.Original, a.simMin)
		switch m.Kind {
		case contract.MatchExact:
			hitPara, hitIx, hitMatch = p, ix, m
		case contract.MatchFuzzy:
			if fuzzPara == nil {
				fuzzPara, fuzzSim = p, m.Similarity
			}
		}
		if hitPara != nil {
			break
		}
	}

	if hitPara == nil && fuzzPara == nil {
		a.warn(editID, "not_found")
		return contract.Outcome{Edit: id, Status: contract.StatusNotFound, Reason: "not_found"}
	}

	// 策略裁决：hybrid 逐条分类，否则批级固定。
	mode := a.mode
	if mode == contract.ModeHybrid {
		mode = classify.Mode(e, a.ceiling)
	}

	// 模糊命中无法可信隔离 run 区间，修订不可行。
	if hitPara == nil {
		if mode == contract.ModeTrack && a.mode != contract.ModeHybrid {
			a.warn(editID, "fuzzy_untrackable")
			return contract.Outcome{Edit: id, Status: contract.StatusFailed, Reason: "fuzzy_untrackable", Similarity: fuzzSim}
		}
		// 整段锚定批注（span 为空）。
		if err := a.comment(fuzzPara, nil, e); err != nil {
			a.warn(editID, "comments_unavailable")
			return contract.Outcome{Edit: id, Status: contract.StatusFailed, Reason: "comments_unavailable", Similarity: fuzzSim}
		}
		return contract.Outcome{Edit: id, Status: contract.StatusApplied, Mode: contract.ModeComment, Similarity: fuzzSim}
	}

	if mode == contract.ModeComment {
		span, err := hitIx.Isolate(hitMatch)
		if err != nil {
			// 隔离失败退回整段锚定，可见文本仍不受影响。
			span = nil
		}
		if err := a.comment(hitPara, span, e); err != nil {
			a.warn(editID, "comments_unavailable")
			return contract.Outcome{Edit: id, Status: contract.StatusFailed, Reason: "comments_unavailable"}
		}
		return contract.Outcome{Edit: id, Status: contract.StatusApplied, Mode: contract.ModeComment}
	}

	// track 路径：隔离出精确 run 区间后发射修订对。
	span, err := hitIx.Isolate(hitMatch)
	if err != nil {
		if errors.Is(err, wml.ErrUnsplittable) && a.mode == contract.ModeHybrid {
			// 复杂 run 不可切分：降级为批注，不碰原文。
			if cerr := a.comment(hitPara, nil, e); cerr != nil {
				a.warn(editID, "comments_unavailable")
				return contract.Outcome{Edit: id, Status: contract.StatusFailed, Reason: "comments_unavailable"}
			}
			return contract.Outcome{Edit: id, Status: contract.StatusApplied, Mode: contract.ModeComment}
		}
		a.warn(editID, "run_unsplittable")
		return contract.Outcome{Edit: id, Status: contract.StatusFailed, Reason: "run_unsplittable"}
	}
	if err := emit.InsertRevision(hitPara, span, e.Replacement, a.meta, a.seq); err != nil {
		a.warn(editID, "emit_failed")
		return contract.Outcome{Edit: id, Status: contract.StatusFailed, Reason: "emit_failed"}
	}
	return contract.Outcome{Edit: id, Status: contract.StatusApplied, Mode: contract.ModeTrack}
}

// comment 发射批注（懒加载部件；失败粘滞）。
func (a *applier) comment(p *wml.Paragraph, span []*etree.Element, e contract.Edit) error {
	if a.commentsErr != nil {
		return a.commentsErr
	}
	comments, err := a.doc.Comments()
	if err != nil {
		a.commentsErr = err
		logFail(a.logger, "comments", err, a.docID, "")
		return err
	}
	if a.commentSeq == nil {
		a.commentSeq = emit.NewSeq(a.doc.MaxCommentID() + 1)
	}
	return emit.InsertComment(p, span, commentBody(e), a.meta, a.commentSeq.Next(), comments)
}

// commentBody 组装批注正文：替换建议一行，理由另起一行。
func commentBody(e contract.Edit) string {
	switch {
	case e.Replacement != "" && e.Rationale != "":
		return e.Replacement + "\n" + e.Rationale
	case e.Replacement != "":
		return e.Replacement
	case e.Rationale != "":
		return e.Rationale
	default:
		return e.Original
	}
}

func (a *applier) warn(editID, reason string) {
	if a.logger != nil {
		a.logger.Warn("apply", reason, "edit skipped", a.docID, editID)
	}
	diag.IncError("apply", reason)
}

func logFail(logger *diag.Logger, comp string, err error, docID, editID string) {
	if logger == nil {
		return
	}
	code := diag.Classify(err)
	logger.ErrorWith(comp, string(code), err.Error(), nil, docID, editID)
	diag.IncOp(comp, "error", "error")
	if code != diag.CodeUnknown {
		diag.IncError(comp, string(code))
	}
}

func countFlag(r contract.Report, f contract.Flag) int {
	n := 0
	for _, x := range r.Findings {
		if x.Flag == f {
			n++
		}
	}
	return n
}

func sanity(c Components, s Settings) error {
	if c.Source == nil || c.Writer == nil {
		return errors.New("pipeline: missing components")
	}
	if s.DocPath == "" {
		return errors.New("pipeline: empty document path")
	}
	switch s.Mode {
	case "", contract.ModeTrack, contract.ModeComment, contract.ModeHybrid:
	default:
		return fmt.Errorf("pipeline: unknown mode %q", s.Mode)
	}
	return nil
}
