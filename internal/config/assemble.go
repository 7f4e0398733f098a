package config

import (
	"errors"
	"fmt"
	"strings"

	"redline/internal/pipeline"
	"redline/pkg/contract"
	"redline/pkg/registry"
)

// Validate 对最小必要边界做静态校验。
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Doc) == "" {
		return errors.New("config: doc not set")
	}
	switch cfg.Mode {
	case "", "track", "comment", "hybrid":
	default:
		return fmt.Errorf("config: unknown mode %q", cfg.Mode)
	}
	if cfg.SimilarityMin < 0 || cfg.SimilarityMin > 1 {
		return errors.New("config: similarity_min must be in [0,1]")
	}
	if cfg.CommentCeiling < 0 {
		return errors.New("config: comment_ceiling must be >= 0")
	}
	// 组件名若为空，使用默认名（由 Defaults() 提供）。此处只要最终有值即可。
	if name := effName(cfg.Components.Source, Defaults().Components.Source); registry.Source[name] == nil {
		return fmt.Errorf("config: source %q not registered", name)
	}
	if name := effName(cfg.Components.Writer, Defaults().Components.Writer); registry.Writer[name] == nil {
		return fmt.Errorf("config: writer %q not registered", name)
	}
	return nil
}

// Assemble 构造 Components 与 Settings。
// 严格 Options 解析在 registry（工厂）层进行；此处只传 raw JSON。
func Assemble(cfg Config, dryRun bool) (pipeline.Components, pipeline.Settings, error) {
	if err := Validate(cfg); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}

	// 有效名称
	d := Defaults()
	sn := effName(cfg.Components.Source, d.Components.Source)
	wn := effName(cfg.Components.Writer, d.Components.Writer)

	// 构造实例
	src, err := registry.Source[sn](cfg.Options.Source)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}
	w, err := registry.Writer[wn](cfg.Options.Writer)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}

	comp := pipeline.Components{Source: src, Writer: w}
	set := pipeline.Settings{
		DocPath:        cfg.Doc,
		OutPath:        cfg.Out,
		Mode:           contract.Mode(effName(cfg.Mode, d.Mode)),
		Author:         effName(cfg.Author, d.Author),
		Initials:       cfg.Initials,
		SimilarityMin:  cfg.SimilarityMin,
		CommentCeiling: cfg.CommentCeiling,
		DryRun:         dryRun,
	}
	if cfg.FailOnHigh != nil {
		set.FailOnHigh = *cfg.FailOnHigh
	}
	return comp, set, nil
}

func effName(got, def string) string {
	if got == "" {
		return def
	}
	return got
}
