package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"redline/pkg/contract"
)

const batchJSON = `[
  {"original": "被广泛地进行使用", "replacement": "已广泛使用"},
  {"original": "论证尚不充分", "replacement": "建议补充实验数据", "rationale": "当前样本过小"}
]`

// TestEditsFromFile 测试文件加载与字段映射
func TestEditsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edits.json")
	if err := os.WriteFile(path, []byte(batchJSON), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	s, err := New(&Options{Path: path})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	edits, err := s.Edits(context.Background())
	if err != nil {
		t.Fatalf("edits: %v", err)
	}
	if len(edits) != 2 {
		t.Fatalf("count: %d", len(edits))
	}
	if edits[1].Rationale != "当前样本过小" {
		t.Fatalf("rationale: %q", edits[1].Rationale)
	}
}

// TestParseRejects 表驱动覆盖非法输入
func TestParseRejects(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"未知字段", `[{"original":"a","replacement":"b","extra":1}]`},
		{"空目标", `[{"original":"","replacement":"b"}]`},
		{"非数组", `{"original":"a"}`},
		{"尾随内容", `[{"original":"a","replacement":"b"}] []`},
		{"截断", `[{"original":"a"`},
	}
	for _, c := range cases {
		if _, err := Parse([]byte(c.in)); !errors.Is(err, contract.ErrInvalidInput) {
			t.Fatalf("%s: expect ErrInvalidInput, got %v", c.name, err)
		}
	}
}

// TestParseEmptyBatch 测试空批合法
func TestParseEmptyBatch(t *testing.T) {
	edits, err := Parse([]byte(`[]`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(edits) != 0 {
		t.Fatalf("expect empty, got %d", len(edits))
	}
}

// TestEditsSizeCap 测试输入上限
func TestEditsSizeCap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.json")
	if err := os.WriteFile(path, []byte(batchJSON), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	s, err := New(&Options{Path: path, MaxBytes: 16})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := s.Edits(context.Background()); !errors.Is(err, contract.ErrInvalidInput) {
		t.Fatalf("expect ErrInvalidInput, got %v", err)
	}
}

// TestNewRequiresPath 测试缺路径拒绝
func TestNewRequiresPath(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, contract.ErrPathInvalid) {
		t.Fatalf("expect ErrPathInvalid, got %v", err)
	}
	if _, err := New(&Options{}); !errors.Is(err, contract.ErrPathInvalid) {
		t.Fatalf("expect ErrPathInvalid, got %v", err)
	}
}

// TestEditsMissingFile 测试文件缺失上抛
func TestEditsMissingFile(t *testing.T) {
	s, err := New(&Options{Path: filepath.Join(t.TempDir(), "absent.json")})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := s.Edits(context.Background()); !os.IsNotExist(err) {
		t.Fatalf("expect not-exist, got %v", err)
	}
}
