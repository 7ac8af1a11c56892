package config

import "encoding/json"

// DefaultTemplateConfig 返回一个“可运行”的默认配置模板：
// - 数据根为 ./slowniki，包含 sjp 与 osps 两个词典；
// - 组件名采用仓库内置实现；
// - 选项给出安全中性默认值（包含全部键）。
func DefaultTemplateConfig() Config {
	d := Defaults()
	cfg := Config{
		Root: "slowniki",
		Dicts: []Dict{
			{Name: "sjp", Master: "sjp.txt"},
			{Name: "osps", Master: "osps.txt"},
		},
		Stages:      []string{"split", "extend", "render", "verify"},
		MinLength:   d.MinLength,
		MaxLength:   d.MaxLength,
		Concurrency: d.Concurrency,
		ChunkSize:   d.ChunkSize,
		Logging:     Logging{Level: "info"},
		Components:  d.Components,
	}
	cfg.Options.Reader = json.RawMessage(`{
  "buf_size": 65536
}`)
	cfg.Options.Loader = json.RawMessage(`{
  "max_line_bytes": 0,
  "sort": false,
  "uniform": false,
  "allow_exts": [".txt"]
}`)
	cfg.Options.Chunker = json.RawMessage(`{
  "min_chunk": 1,
  "max_chunks": 0
}`)
	cfg.Options.Assembler = json.RawMessage(`{
  "crlf": false
}`)
	cfg.Options.Writer = json.RawMessage(`{
  "output_dir": "",
  "atomic": true,
  "perm_file": 0,
  "perm_dir": 0,
  "buf_size": 65536
}`)
	cfg.Options.Renderer = json.RawMessage(`{
  "width": 1240,
  "height": 1754,
  "margin": 62,
  "header_size": 28,
  "body_size": 20,
  "title_size": 24,
  "padding": 3,
  "header_padding": 12,
  "columns": [0.35, 0.30, 0.35]
}`)
	return cfg
}
