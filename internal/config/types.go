package config

import (
	"encoding/json"
)

// Config: 运行期只读配置（一次解析，运行期不变）。
// JSON/YAML 使用 snake_case；未知字段在解析期失败。
type Config struct {
	// Root: 数据根目录（词典目录所在位置）。
	Root  string `json:"root" validate:"required"`
	Dicts []Dict `json:"dicts" validate:"required,min=1,dive"`
	// Stages: 需执行的阶段；空表示全部（split, extend, render, verify）。
	Stages      []string `json:"stages" validate:"dive,oneof=split extend render verify"`
	MinLength   int      `json:"min_length" validate:"gte=1"`
	MaxLength   int      `json:"max_length" validate:"gtefield=MinLength,lte=15"`
	Concurrency int      `json:"concurrency" validate:"gte=1"`
	ChunkSize   int      `json:"chunk_size" validate:"gte=1"`
	Logging     Logging  `json:"logging"`

	// 组件名选择（空则使用默认名）。
	Components Components `json:"components"`

	// 各组件 Options 子树，原样 JSON 传入工厂。
	Options Options `json:"options"`
}

// Dict: 词典目录名与主词表文件名（空则为 <name>.txt）。
type Dict struct {
	Name   string `json:"name" validate:"required,excludesall=/\\"`
	Master string `json:"master,omitempty"`
}

// Logging: 仅保留日志等级可配置；输出路径与轮转策略为固定默认。
type Logging struct {
	Level string `json:"level" validate:"omitempty,oneof=debug info warn error"`
}

// Components: 组件名选择（注册表中的实现名）。
type Components struct {
	Reader    string `json:"reader"`
	Loader    string `json:"loader"`
	Chunker   string `json:"chunker"`
	Assembler string `json:"assembler"`
	Writer    string `json:"writer"`
	Renderer  string `json:"renderer"`
}

// Options: 各组件的原样 JSON Options。
type Options struct {
	Reader    json.RawMessage `json:"reader,omitempty"`
	Loader    json.RawMessage `json:"loader,omitempty"`
	Chunker   json.RawMessage `json:"chunker,omitempty"`
	Assembler json.RawMessage `json:"assembler,omitempty"`
	Writer    json.RawMessage `json:"writer,omitempty"`
	Renderer  json.RawMessage `json:"renderer,omitempty"`
}
