package registry

import (
	"bytes"
	"encoding/json"

	"redline/pkg/contract"
	sfile "redline/plugins/source/file"
	sstatic "redline/plugins/source/static"
	wfs "redline/plugins/writer/filesystem"
)

// strictUnmarshal: 使用 DisallowUnknownFields 严格解码，拒绝未知字段。
func strictUnmarshal(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		// 保持零值（默认选项）
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// NewSource 工厂签名：接收原样 JSON Options。
type NewSource func(raw json.RawMessage) (contract.Source, error)

// NewWriter 工厂签名：接收原样 JSON Options。
type NewWriter func(raw json.RawMessage) (contract.Writer, error)

// Source 工厂注册表（显式、零反射）。
var Source = map[string]NewSource{
	// file: JSON 编辑批文件 / STDIN
	"file": func(raw json.RawMessage) (contract.Source, error) {
		var opts sfile.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return sfile.New(&opts)
	},
	// static: 配置内联编辑批
	"static": func(raw json.RawMessage) (contract.Source, error) {
		var opts sstatic.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return sstatic.New(&opts)
	},
}

// Writer 工厂注册表。
var Writer = map[string]NewWriter{
	// fs: 文件系统 Writer（原子替换/备份可配置）
	"fs": func(raw json.RawMessage) (contract.Writer, error) {
		var opts wfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return wfs.New(&opts)
	},
}
