package registry

import (
	"encoding/json"
	"errors"
	"testing"

	"redline/pkg/contract"
)

// TestStrictUnmarshal 验证严格解码逻辑。
func TestStrictUnmarshal(t *testing.T) {
	type opt struct {
		A int `json:"a"`
	}
	var o opt
	if err := strictUnmarshal(nil, &o); err != nil || o.A != 0 {
		t.Fatalf("nil 输入失败: %v", err)
	}
	if err := strictUnmarshal(json.RawMessage(`{"a":1}`), &o); err != nil || o.A != 1 {
		t.Fatalf("合法 JSON 解析失败: %v", err)
	}
	if err := strictUnmarshal(json.RawMessage(`{"a":1,"b":2}`), &o); err == nil {
		t.Fatalf("未知字段应报错")
	}
}

// TestFactories 遍历注册表入口。
func TestFactories(t *testing.T) {
	t.Run("source-file", func(t *testing.T) {
		if _, err := Source["file"](json.RawMessage(`{"path":"edits.json"}`)); err != nil {
			t.Fatalf("file: %v", err)
		}
		if _, err := Source["file"](json.RawMessage(`{}`)); !errors.Is(err, contract.ErrPathInvalid) {
			t.Fatalf("file 缺路径未报错: %v", err)
		}
		if _, err := Source["file"](json.RawMessage(`{"path":"e.json","x":1}`)); err == nil {
			t.Fatalf("file 未对未知字段报错")
		}
	})
	t.Run("source-static", func(t *testing.T) {
		if _, err := Source["static"](json.RawMessage(`{"edits":[{"original":"旧","replacement":"新"}]}`)); err != nil {
			t.Fatalf("static: %v", err)
		}
		if _, err := Source["static"](json.RawMessage(`{"edits":[{"original":""}]}`)); !errors.Is(err, contract.ErrInvalidInput) {
			t.Fatalf("static 空目标未报错: %v", err)
		}
	})
	t.Run("writer", func(t *testing.T) {
		if _, err := Writer["fs"](json.RawMessage(`{}`)); err != nil {
			t.Fatalf("writer: %v", err)
		}
		if _, err := Writer["fs"](json.RawMessage(`{"keep_backup":true}`)); err != nil {
			t.Fatalf("writer options: %v", err)
		}
		if _, err := Writer["fs"](json.RawMessage(`{"x":1}`)); err == nil {
			t.Fatalf("writer 未对未知字段报错")
		}
	})
}
