package config

import (
	"encoding/json"
)

// Config: 运行期只读配置（一次解析，运行期不变）。
// JSON 使用 snake_case；未知字段在解析期失败。
type Config struct {
	// Doc: 目标文档路径；Out 为空时就地覆盖。
	Doc string `json:"doc"`
	Out string `json:"out"`
	// Mode: 批级策略（track|comment|hybrid）。
	Mode string `json:"mode"`
	// 修订/批注署名。
	Author   string `json:"author"`
	Initials string `json:"initials"`
	// SimilarityMin: 模糊命中相似度下限（0,1]。
	SimilarityMin float64 `json:"similarity_min"`
	// CommentCeiling: 原文长度上限（rune），超过落批注。
	CommentCeiling int `json:"comment_ceiling"`
	// FailOnHigh: 预检 high 风险时拒绝执行。指针以区分“未设置”。
	FailOnHigh *bool   `json:"fail_on_high,omitempty"`
	Logging    Logging `json:"logging"`

	// 组件名选择（空则使用默认名）。
	Components Components `json:"components"`

	// 各组件 Options 子树，原样 JSON 传入工厂。
	Options Options `json:"options"`
}

// Logging: 仅保留日志等级可配置；输出路径与轮转策略为固定默认。
type Logging struct {
	Level string `json:"level"`
}

// Components: 组件名选择（注册表中的实现名）。
type Components struct {
	Source string `json:"source"`
	Writer string `json:"writer"`
}

// Options: 各组件的原样 JSON Options。
type Options struct {
	Source json.RawMessage `json:"source"`
	Writer json.RawMessage `json:"writer"`
}
