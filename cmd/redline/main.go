package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	cfgpkg "redline/internal/config"
	"redline/internal/diag"
	"redline/internal/pipeline"
	"redline/pkg/contract"
)

// 简化的 CLI：默认子命令 run。
// 位置参数为目标文档路径（.docx）。
// 全局旗标（最小集）：--config, --edits, --mode, --out, --author,
// --dry-run, --fail-on-high
func main() {
	os.Exit(run())
}

func run() int {
	start := time.Now()
	corrID := genCorrID()
	// 在任何 ENV 读取前，尝试加载工作目录下的 .env（不覆盖已有 ENV）。
	_ = loadDotEnv(".env")
	// 从配置读取日志级别，仅保留 level 选项；默认 info
	logLevel := "info"
	// 先占位默认，稍后在解析/合并配置后重建 logger 以使用最终 level
	logger := diag.NewLogger(corrID, logLevel)
	// flags
	var (
		flagConfig     string
		flagEdits      string
		flagMode       string
		flagOut        string
		flagAuthor     string
		flagInitials   string
		flagSimMin     float64
		flagCeiling    int
		flagDryRun     bool
		flagFailOnHigh bool
		flagInitDir    string
		flagStatus     bool
	)
	flag.StringVar(&flagConfig, "config", "", "配置文件路径（JSON）；缺省读取 ./config.json（若存在）")
	flag.StringVar(&flagEdits, "edits", "", "编辑批 JSON 文件路径（\"-\" 表示 STDIN；覆盖配置）")
	flag.StringVar(&flagMode, "mode", "", "落盘策略 track|comment|hybrid（覆盖配置）")
	flag.StringVar(&flagOut, "out", "", "输出文档路径（缺省就地覆盖输入）")
	flag.StringVar(&flagAuthor, "author", "", "修订/批注署名（覆盖配置）")
	flag.StringVar(&flagInitials, "initials", "", "署名缩写（覆盖配置）")
	flag.Float64Var(&flagSimMin, "similarity-min", 0, "模糊命中相似度下限 (0,1]（覆盖配置）")
	flag.IntVar(&flagCeiling, "comment-ceiling", 0, "原文长度上限（rune），超过落批注（覆盖配置）")
	flag.BoolVar(&flagDryRun, "dry-run", false, "仅预检并输出报告，不改写文档")
	flag.BoolVar(&flagFailOnHigh, "fail-on-high", false, "预检 high 风险时拒绝执行")
	flag.StringVar(&flagInitDir, "init-config", "", "在指定目录生成默认配置 config.json 和 .env 模板（若已存在则跳过，不覆盖）；不带值时默认当前目录")
	flag.BoolVar(&flagStatus, "status", true, "终端状态提示（stderr）。TTY 动态刷新；非 TTY 打点输出")
	normalizeInitArg()
	flag.Parse()

	// 位置参数：目标文档
	args := flag.Args()

	// --init-config: 生成模板并退出
	var initDir string
	if strings.TrimSpace(flagInitDir) != "" {
		initDir = strings.TrimSpace(flagInitDir)
	}
	if initDir != "" {
		if err := os.MkdirAll(initDir, 0o755); err != nil {
			fprintf(os.Stderr, "生成默认配置失败: %v\n", err)
			logger.Error("pipeline", string(diag.Classify(err)), "first error", &start)
			return 3
		}
		cfg := cfgpkg.DefaultTemplateConfig()
		cfgPath := filepath.Join(initDir, "config.json")
		if err := writeConfig(cfgPath, cfg); err != nil {
			fprintf(os.Stderr, "生成默认配置失败: %v\n", err)
			logger.Error("pipeline", string(diag.Classify(err)), "first error", &start)
			return 3
		}
		// 生成 .env 模板（不覆盖已存在文件）。
		envPath := filepath.Join(initDir, ".env")
		if err := writeDotEnv(envPath); err != nil {
			fprintf(os.Stderr, "提示：.env 生成失败（已跳过）：%v\n", err)
		}
		return 0
	}

	// JSON 配置（文件或 ENV: REDLINE_CONFIG_JSON）
	var cfgJSON []byte
	if s := os.Getenv("REDLINE_CONFIG_JSON"); s != "" {
		cfgJSON = []byte(s)
	}
	if flagConfig == "" {
		if s := os.Getenv("REDLINE_CONFIG_FILE"); s != "" {
			flagConfig = s
		}
	}
	// 默认读取工作目录下 config.json（若存在）
	if flagConfig == "" {
		if _, err := os.Stat("config.json"); err == nil {
			flagConfig = "config.json"
		}
	}

	cfg := cfgpkg.Defaults()
	if flagConfig != "" || len(cfgJSON) > 0 {
		base, err := cfgpkg.LoadJSON(flagConfig, cfgJSON)
		if err != nil {
			fprintf(os.Stderr, "配置解析失败: %v\n", err)
			logger.Error("pipeline", string(diag.Classify(err)), "first error", &start)
			return 3
		}
		cfg = cfgpkg.Merge(cfg, base)
	}

	// ENV 覆盖（最小集合）
	overEnv, err := cfgpkg.EnvOverlay(os.Environ())
	if err != nil {
		fprintf(os.Stderr, "环境变量解析失败: %v\n", err)
		logger.Error("pipeline", string(diag.Classify(err)), "first error", &start)
		return 3
	}
	cfg = cfgpkg.Merge(cfg, overEnv)

	// CLI 覆盖
	var overCLI cfgpkg.Config
	if flagMode != "" {
		overCLI.Mode = flagMode
	}
	if flagOut != "" {
		overCLI.Out = flagOut
	}
	if flagAuthor != "" {
		overCLI.Author = flagAuthor
	}
	if flagInitials != "" {
		overCLI.Initials = flagInitials
	}
	if flagSimMin > 0 {
		overCLI.SimilarityMin = flagSimMin
	}
	if flagCeiling > 0 {
		overCLI.CommentCeiling = flagCeiling
	}
	if flagFailOnHigh {
		overCLI.FailOnHigh = &flagFailOnHigh
	}
	if flagEdits != "" {
		overCLI.Components.Source = "file"
		b, _ := json.Marshal(struct {
			Path string `json:"path"`
		}{Path: flagEdits})
		overCLI.Options.Source = b
	}
	if len(args) > 0 {
		overCLI.Doc = args[0]
	}
	cfg = cfgpkg.Merge(cfg, overCLI)

	// 基本校验 & 装配
	if err := cfgpkg.Validate(cfg); err != nil {
		fprintf(os.Stderr, "配置校验失败: %v\n", err)
		// 提示打印有效配置，便于诊断
		_ = dumpConfig(cfg)
		logger.Error("pipeline", string(diag.Classify(err)), "first error", &start)
		return 3
	}

	// 使用最终配置中的日志级别重建 logger
	if strings.TrimSpace(cfg.Logging.Level) != "" {
		logLevel = strings.TrimSpace(cfg.Logging.Level)
	}
	logger = diag.NewLogger(corrID, logLevel)

	comp, set, err := cfgpkg.Assemble(cfg, flagDryRun)
	if err != nil {
		fprintf(os.Stderr, "装配失败: %v\n", err)
		logger.Error("pipeline", string(diag.Classify(err)), "first error", &start)
		return 3
	}

	// 终端信息提示（非日志）：按 CLI 启用，默认开启
	term := diag.NewTerminal(os.Stderr, flagStatus)
	diag.SetTerminal(term)
	defer diag.SetTerminal(nil)

	// debug: 输出运行时配置信息
	if logger != nil {
		logger.DebugStart("config", "effective", cfg.Doc, "", map[string]string{
			"mode":            string(set.Mode),
			"out":             cfg.Out,
			"author":          set.Author,
			"similarity_min":  fmt.Sprintf("%g", set.SimilarityMin),
			"comment_ceiling": fmt.Sprintf("%d", set.CommentCeiling),
			"source":          cfg.Components.Source,
			"writer":          cfg.Components.Writer,
		})
	}

	// 运行编排
	t := logger.Start("pipeline", "run")
	res, err := pipeline.Run(context.Background(), comp, set, logger)
	if res != nil {
		// 回执总是输出：部分成功必须可见。
		_ = emitResult(res)
	}
	if err != nil {
		code := string(diag.Classify(err))
		logger.Error("pipeline", code, "first error", &start)
		diag.IncOp("pipeline", "error", "error")
		if code != "" && code != string(diag.CodeUnknown) {
			diag.IncError("pipeline", code)
		}
		if !errors.Is(err, context.Canceled) {
			fprintf(os.Stderr, "运行失败: %v\n", err)
		}
		if errors.Is(err, contract.ErrRiskTooHigh) {
			return 2
		}
		return 1
	}
	if t != nil {
		t.Finish("run", int64(res.Summary.Total))
	}
	diag.IncOp("pipeline", "finish", "success")
	diag.ObserveDuration("pipeline", "finish", time.Since(start).Milliseconds())
	if res.Summary.Failed > 0 {
		// 部分失败：回执已输出，以退出码显式标记。
		return 1
	}
	return 0
}

func fprintf(w *os.File, format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }

// emitResult 把回执（summary/outcomes/report）以 JSON 写到 stdout。
func emitResult(res *pipeline.Result) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func dumpConfig(c cfgpkg.Config) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	_, _ = os.Stderr.Write(append([]byte("有效配置:\n"), b...))
	_, _ = os.Stderr.Write([]byte("\n"))
	return nil
}

func writeConfig(path string, c cfgpkg.Config) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if path == "-" {
		_, err = os.Stdout.Write(append(b, '\n'))
		return err
	}
	// 不覆盖已存在文件
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(b); err != nil {
		return err
	}
	_, _ = f.Write([]byte("\n"))
	return nil
}

func genCorrID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return ""
	}
	return hex.EncodeToString(b[:])
}

// loadDotEnv 读取简单的 .env 文件格式并注入进程环境。
// 规则：
// - 忽略不存在的文件；无法读取时返回错误（但调用处可忽略）。
// - 跳过空行与以 # 开头的行；支持可选的前缀 "export ".
// - 仅按首个 '=' 分割；key 为左侧去空白；value 去首尾空白；
// - 若 value 被成对的单/双引号包裹，则去除外层引号；双引号内常见转义 \n/\t/\\/\" 作最小处理。
// - 不覆盖已存在的环境变量（保持系统/调用者优先）。
func loadDotEnv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		eq := strings.IndexByte(line, '=')
		if eq <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		val := strings.TrimSpace(line[eq+1:])
		if key == "" {
			continue
		}
		// 去除成对引号
		if len(val) >= 2 {
			if (val[0] == '\'' && val[len(val)-1] == '\'') || (val[0] == '"' && val[len(val)-1] == '"') {
				quoted := val[0]
				val = val[1 : len(val)-1]
				if quoted == '"' {
					// 最小转义处理
					val = strings.ReplaceAll(val, "\\n", "\n")
					val = strings.ReplaceAll(val, "\\t", "\t")
					val = strings.ReplaceAll(val, "\\r", "\r")
					val = strings.ReplaceAll(val, "\\\"", "\"")
					val = strings.ReplaceAll(val, "\\\\", "\\")
				}
			}
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		_ = os.Setenv(key, val)
	}
	return s.Err()
}

// normalizeInitArg: 允许 --init-config 在未提供路径值时采用默认值当前目录 "."。
// 兼容以下形式：
//
//	--init-config                => 等价于 --init-config .
//	--init-config=out
//	--init-config out
//
// 仅在检测到“裸开关或后继为下一个开关”的情况下插入默认值。
func normalizeInitArg() {
	args := os.Args
	if len(args) <= 1 {
		return
	}
	out := make([]string, 0, len(args)+1)
	out = append(out, args[0])
	for i := 1; i < len(args); i++ {
		a := args[i]
		out = append(out, a)
		if a == "--init-config" || a == "-init-config" {
			// 若已到末尾，补一个默认值
			if i == len(args)-1 {
				out = append(out, ".")
				continue
			}
			// 若下一个是开关（以 - 开头），则补默认值
			if strings.HasPrefix(args[i+1], "-") {
				out = append(out, ".")
				continue
			}
		}
	}
	os.Args = out
}

// writeDotEnv 生成 .env 模板（若文件已存在则跳过）。
// 仅创建文件；不覆盖，不合并。
func writeDotEnv(path string) error {
	if st, err := os.Stat(path); err == nil && !st.IsDir() {
		// 已存在直接跳过
		return nil
	} else if err != nil && !os.IsNotExist(err) {
		return err
	}
	var b strings.Builder
	b.WriteString("# redline .env 模板（由 --init-config 生成）\n")
	b.WriteString("# 优先级：CLI > ENV(.env) > JSON\n")
	b.WriteString("# 空值表示未设置；按需填写后移除本行注释。\n\n")

	b.WriteString("# 配置来源（可二选一）\n")
	b.WriteString("REDLINE_CONFIG_FILE=\n")
	b.WriteString("REDLINE_CONFIG_JSON=\n\n")

	b.WriteString("# 运行参数覆盖\n")
	b.WriteString("REDLINE_DOC=\n")
	b.WriteString("REDLINE_OUT=\n")
	b.WriteString("REDLINE_MODE=\n")
	b.WriteString("REDLINE_AUTHOR=\n")
	b.WriteString("REDLINE_INITIALS=\n")
	b.WriteString("REDLINE_SIMILARITY_MIN=\n")
	b.WriteString("REDLINE_COMMENT_CEILING=\n")
	b.WriteString("REDLINE_FAIL_ON_HIGH=\n")
	b.WriteString("REDLINE_LOGGING_LEVEL=\n\n")

	b.WriteString("# 组件选择\n")
	b.WriteString("REDLINE_COMPONENTS_SOURCE=\n")
	b.WriteString("REDLINE_COMPONENTS_WRITER=\n\n")

	b.WriteString("# 组件选项（原样 JSON）\n")
	b.WriteString("REDLINE_OPTIONS_SOURCE_JSON=\n")
	b.WriteString("REDLINE_OPTIONS_WRITER_JSON=\n")

	// 写入（不覆盖）
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	if _, err := f.WriteString(b.String()); err != nil {
		return err
	}
	return nil
}
