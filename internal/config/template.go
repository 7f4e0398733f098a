package config

import "encoding/json"

// DefaultTemplateConfig 返回一个“可运行”的默认配置模板：
// - 策略 hybrid，署名与阈值取安全默认；
// - 建议源为编辑批文件，Writer 原子写并留存备份；
// - 选项给出全部键（值可为空/默认），方便逐项调整。
func DefaultTemplateConfig() Config {
	d := Defaults()
	off := false
	cfg := Config{
		Doc:            "document.docx",
		Out:            "",
		Mode:           d.Mode,
		Author:         d.Author,
		Initials:       "",
		SimilarityMin:  d.SimilarityMin,
		CommentCeiling: d.CommentCeiling,
		FailOnHigh:     &off,
		Logging:        Logging{Level: "info"},
		Components:     d.Components,
	}
	// Options：包含所有键（值可为空/默认），确保键存在。
	cfg.Options.Source = json.RawMessage(`{
  "path": "edits.json",
  "max_bytes": 0
}`)
	cfg.Options.Writer = json.RawMessage(`{
  "atomic": true,
  "keep_backup": false,
  "perm_file": 0,
  "perm_dir": 0,
  "buf_size": 65536
}`)
	return cfg
}
