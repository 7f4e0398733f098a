package main

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"redline/internal/doctest"
	"redline/internal/opc"
	"redline/internal/wml"
)

// runCLI 在指定工作目录下以给定参数执行一次 run()。
// flag 包的全局注册需在多次调用间重置。
func runCLI(t *testing.T, dir string, args ...string) int {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer func() { _ = os.Chdir(old) }()

	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = append([]string{"redline"}, args...)
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	return run()
}

func seedDoc(t *testing.T, dir string, texts ...string) string {
	t.Helper()
	path := filepath.Join(dir, "doc.docx")
	if err := os.WriteFile(path, doctest.BuildText(texts...), 0o644); err != nil {
		t.Fatalf("seed doc: %v", err)
	}
	return path
}

func seedEdits(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "edits.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("seed edits: %v", err)
	}
	return path
}

// TestCLITrackEndToEnd 测试完整命令路径：加载编辑批→落修订→就地原子覆盖
func TestCLITrackEndToEnd(t *testing.T) {
	dir := t.TempDir()
	doc := seedDoc(t, dir, "这个技术被使用在工业上。")
	seedEdits(t, dir, `[{"original":"被使用在工业上","replacement":"已广泛使用于工业","rationale":"措辞"}]`)

	code := runCLI(t, dir, "--edits", "edits.json", "--mode", "track", "--author", "审校", "--status=false", "doc.docx")
	if code != 0 {
		t.Fatalf("exit code: %d", code)
	}
	b, err := os.ReadFile(doc)
	if err != nil {
		t.Fatalf("read out: %v", err)
	}
	pkg, err := opc.FromBytes(b)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	d, err := wml.Open(pkg)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.MaxRevisionID() < 1 {
		t.Fatalf("no revision landed")
	}
}

// TestCLIDryRunKeepsDoc 测试 --dry-run 不改写文档
func TestCLIDryRunKeepsDoc(t *testing.T) {
	dir := t.TempDir()
	doc := seedDoc(t, dir, "一段不会被命中的文字。")
	seedEdits(t, dir, `[{"original":"不存在的片段","replacement":"任意"}]`)
	before, _ := os.ReadFile(doc)

	code := runCLI(t, dir, "--edits", "edits.json", "--dry-run", "--status=false", "doc.docx")
	if code != 0 {
		t.Fatalf("exit code: %d", code)
	}
	after, _ := os.ReadFile(doc)
	if !bytes.Equal(before, after) {
		t.Fatalf("dry-run must not touch the document")
	}
}

// TestCLIFailOnHigh 测试风险闸门退出码 2
func TestCLIFailOnHigh(t *testing.T) {
	dir := t.TempDir()
	seedDoc(t, dir, "正文。")
	seedEdits(t, dir, `[{"original":"甲","replacement":"乙"},{"original":"丙","replacement":"丁"}]`)

	code := runCLI(t, dir, "--edits", "edits.json", "--fail-on-high", "--status=false", "doc.docx")
	if code != 2 {
		t.Fatalf("exit code: %d, expect 2", code)
	}
}

// TestCLIConfigError 测试配置错误退出码 3
func TestCLIConfigError(t *testing.T) {
	dir := t.TempDir()
	// 无位置参数且无配置：doc 缺失
	if code := runCLI(t, dir, "--status=false"); code != 3 {
		t.Fatalf("missing doc: exit %d, expect 3", code)
	}
	seedDoc(t, dir, "正文。")
	if code := runCLI(t, dir, "--mode", "bogus", "--status=false", "doc.docx"); code != 3 {
		t.Fatalf("bad mode: exit %d, expect 3", code)
	}
}

// TestCLIInitConfig 测试模板生成与不覆盖语义
func TestCLIInitConfig(t *testing.T) {
	dir := t.TempDir()
	if code := runCLI(t, dir, "--init-config"); code != 0 {
		t.Fatalf("init: exit %d", code)
	}
	cfgPath := filepath.Join(dir, "config.json")
	b, err := os.ReadFile(cfgPath)
	if err != nil {
		t.Fatalf("config.json missing: %v", err)
	}
	if len(b) == 0 {
		t.Fatalf("config.json empty")
	}
	if _, err := os.Stat(filepath.Join(dir, ".env")); err != nil {
		t.Fatalf(".env missing: %v", err)
	}
	// 已存在时不覆盖：改写内容后再次 init 必须失败且内容保持。
	if err := os.WriteFile(cfgPath, []byte("keep"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if code := runCLI(t, dir, "--init-config", "."); code == 0 {
		t.Fatalf("re-init must refuse to overwrite")
	}
	after, _ := os.ReadFile(cfgPath)
	if string(after) != "keep" {
		t.Fatalf("config.json overwritten")
	}
}

// TestCLIPartialFailureExitCode 测试部分未落地时退出码 1 且已落地保留
func TestCLIPartialFailureExitCode(t *testing.T) {
	dir := t.TempDir()
	doc := seedDoc(t, dir, "第一句可以命中。", "其余内容。")
	seedEdits(t, dir, `[
  {"original":"第一句可以命中","replacement":"第一句已命中"},
  {"original":"完全不存在的句子","replacement":"任意"}
]`)

	code := runCLI(t, dir, "--edits", "edits.json", "--mode", "track", "--status=false", "doc.docx")
	if code != 1 {
		t.Fatalf("exit code: %d, expect 1", code)
	}
	b, _ := os.ReadFile(doc)
	pkg, err := opc.FromBytes(b)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	d, err := wml.Open(pkg)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.MaxRevisionID() < 1 {
		t.Fatalf("applied edit must persist despite partial failure")
	}
}
