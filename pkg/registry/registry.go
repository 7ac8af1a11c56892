package registry

import (
	"bytes"
	"context"
	"encoding/json"

	"slowniki/pkg/contract"
	linear "slowniki/plugins/assembler/linear"
	cfix "slowniki/plugins/chunker/fixed"
	llines "slowniki/plugins/loader/lines"
	rfs "slowniki/plugins/reader/filesystem"
	rmm "slowniki/plugins/reader/mmap"
	png "slowniki/plugins/renderer/png"
	wfs "slowniki/plugins/writer/filesystem"
	ws3 "slowniki/plugins/writer/s3"
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

// NewReader 工厂签名：接收数据根目录与原样 JSON Options。
type NewReader func(root string, raw json.RawMessage) (contract.Reader, error)

// NewLoader 工厂签名：接收原样 JSON Options。
type NewLoader func(raw json.RawMessage) (contract.Loader, error)

// NewChunker 工厂签名：接收原样 JSON Options。
type NewChunker func(raw json.RawMessage) (contract.Chunker, error)

// NewAssembler 工厂签名：接收原样 JSON Options。
type NewAssembler func(raw json.RawMessage) (contract.Assembler, error)

// NewWriter 工厂签名：接收数据根目录与原样 JSON Options。
type NewWriter func(root string, raw json.RawMessage) (contract.Writer, error)

// NewRenderer 工厂签名：接收原样 JSON Options。
type NewRenderer func(raw json.RawMessage) (contract.Renderer, error)

// Reader 工厂注册表（显式、零反射）。
var Reader = map[string]NewReader{
	// fs: 数据根下的缓冲文件读取
	"fs": func(root string, raw json.RawMessage) (contract.Reader, error) {
		var opts rfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return rfs.New(root, &opts), nil
	},
	// mmap: 只读内存映射
	"mmap": func(root string, raw json.RawMessage) (contract.Reader, error) {
		var opts rmm.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return rmm.New(root, &opts), nil
	},
	// s3: 从对象存储回读（与 s3 writer 共用选项）
	"s3": func(root string, raw json.RawMessage) (contract.Reader, error) {
		var opts ws3.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		off := false
		opts.Mirror = &off
		return ws3.New(context.Background(), root, &opts)
	},
}

// Loader 工厂注册表。
var Loader = map[string]NewLoader{
	// lines: 每行一个单词
	"lines": func(raw json.RawMessage) (contract.Loader, error) {
		var opts llines.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return llines.New(&opts), nil
	},
}

// Chunker 工厂注册表。
var Chunker = map[string]NewChunker{
	// fixed: 定长连续分片
	"fixed": func(raw json.RawMessage) (contract.Chunker, error) {
		var opts cfix.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return cfix.New(&opts), nil
	},
}

// Assembler 工厂注册表。
var Assembler = map[string]NewAssembler{
	// linear: 按序拼接自带换行的记录行
	"linear": func(raw json.RawMessage) (contract.Assembler, error) { return linear.New(raw) },
}

// Writer 工厂注册表。
var Writer = map[string]NewWriter{
	// fs: 文件系统 Writer（覆盖写/原子替换可配置）
	"fs": func(root string, raw json.RawMessage) (contract.Writer, error) {
		var opts wfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return wfs.New(root, &opts)
	},
	// s3: 发布到对象存储，默认同时镜像到数据根
	"s3": func(root string, raw json.RawMessage) (contract.Writer, error) {
		var opts ws3.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return ws3.New(context.Background(), root, &opts)
	},
}

// Renderer 工厂注册表。
var Renderer = map[string]NewRenderer{
	// png: A4 表格分页
	"png": func(raw json.RawMessage) (contract.Renderer, error) { return png.New(raw) },
}
