package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Defaults 返回带有安全默认值的 Config 雏形。
// 注意：Doc 不设默认（必须由 JSON/ENV/CLI 提供）。
func Defaults() Config {
	return Config{
		Mode:           "hybrid",
		Author:         "redline",
		SimilarityMin:  0.8,
		CommentCeiling: 500,
		Components: Components{
			Source: "file",
			Writer: "fs",
		},
	}
}

// LoadJSON 从文件路径或原始 JSON 解析 Config（严格拒绝未知字段）。
func LoadJSON(path string, raw []byte) (Config, error) {
	var cfg Config
	var r io.Reader
	switch {
	case len(raw) > 0:
		r = bytes.NewReader(raw)
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return cfg, err
		}
		defer f.Close()
		r = f
	default:
		return cfg, errors.New("no config source provided")
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Merge 按优先级合并（后者覆盖前者）。
// 仅标量/字符串/原样 JSON 为“替换”；不做深度合并。
func Merge(base, over Config) Config {
	out := base
	// 顶层
	if strings.TrimSpace(over.Doc) != "" {
		out.Doc = strings.TrimSpace(over.Doc)
	}
	if strings.TrimSpace(over.Out) != "" {
		out.Out = strings.TrimSpace(over.Out)
	}
	if strings.TrimSpace(over.Mode) != "" {
		out.Mode = strings.TrimSpace(over.Mode)
	}
	if strings.TrimSpace(over.Author) != "" {
		out.Author = strings.TrimSpace(over.Author)
	}
	if strings.TrimSpace(over.Initials) != "" {
		out.Initials = strings.TrimSpace(over.Initials)
	}
	if over.SimilarityMin > 0 {
		out.SimilarityMin = over.SimilarityMin
	}
	if over.CommentCeiling > 0 {
		out.CommentCeiling = over.CommentCeiling
	}
	// 指针承载三态：nil 不覆盖，显式 false/true 皆可覆盖。
	if over.FailOnHigh != nil {
		v := *over.FailOnHigh
		out.FailOnHigh = &v
	}
	// Logging（仅 level）
	if strings.TrimSpace(over.Logging.Level) != "" {
		out.Logging.Level = strings.TrimSpace(over.Logging.Level)
	}

	// 组件名（空不覆盖）
	if over.Components.Source != "" {
		out.Components.Source = over.Components.Source
	}
	if over.Components.Writer != "" {
		out.Components.Writer = over.Components.Writer
	}

	// Options（完整替换对应键）
	if len(over.Options.Source) > 0 {
		out.Options.Source = cloneRaw(over.Options.Source)
	}
	if len(over.Options.Writer) > 0 {
		out.Options.Writer = cloneRaw(over.Options.Writer)
	}
	return out
}

// EnvOverlay 从环境变量构建一个 Config 覆盖（仅解析有限键集合）。
// 规则：前缀 REDLINE_；本集合之外的键忽略。
// 支持：DOC, OUT, MODE, AUTHOR, INITIALS, SIMILARITY_MIN, COMMENT_CEILING,
// FAIL_ON_HIGH, COMPONENTS_SOURCE, COMPONENTS_WRITER,
// OPTIONS_SOURCE_JSON, OPTIONS_WRITER_JSON。
func EnvOverlay(environ []string) (Config, error) {
	var over Config
	for _, kv := range environ {
		if !strings.HasPrefix(kv, "REDLINE_") {
			continue
		}
		eq := strings.IndexByte(kv, '=')
		if eq <= len("REDLINE_") {
			continue
		}
		key := kv[:eq]
		val := kv[eq+1:]
		nk := strings.TrimPrefix(key, "REDLINE_")
		switch nk {
		case "DOC":
			over.Doc = strings.TrimSpace(val)
		case "OUT":
			over.Out = strings.TrimSpace(val)
		case "MODE":
			over.Mode = strings.TrimSpace(val)
		case "AUTHOR":
			over.Author = strings.TrimSpace(val)
		case "INITIALS":
			over.Initials = strings.TrimSpace(val)
		case "SIMILARITY_MIN":
			if v, err := atof(val); err == nil {
				over.SimilarityMin = v
			}
		case "COMMENT_CEILING":
			if v, err := atoi(val); err == nil {
				over.CommentCeiling = v
			}
		case "FAIL_ON_HIGH":
			if b, err := parseBool(val); err == nil {
				over.FailOnHigh = &b
			}
		case "LOGGING_LEVEL":
			over.Logging.Level = strings.TrimSpace(val)
		case "COMPONENTS_SOURCE":
			over.Components.Source = strings.TrimSpace(val)
		case "COMPONENTS_WRITER":
			over.Components.Writer = strings.TrimSpace(val)
		case "OPTIONS_SOURCE_JSON":
			// 原样 JSON；空值视为未设置，避免清空现有配置
			if strings.TrimSpace(val) != "" {
				over.Options.Source = json.RawMessage(val)
			}
		case "OPTIONS_WRITER_JSON":
			if strings.TrimSpace(val) != "" {
				over.Options.Writer = json.RawMessage(val)
			}
		}
	}
	return over, nil
}

func cloneRaw(in json.RawMessage) json.RawMessage {
	if len(in) == 0 {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}

func atoi(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func atof(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(strings.TrimSpace(s), "%g", &f)
	if err != nil {
		return 0, err
	}
	return f, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid bool %q", s)
}
