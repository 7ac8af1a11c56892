package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"slowniki/pkg/contract"
)

// EnvPrefix 为环境变量覆盖前缀。
const EnvPrefix = "SLOWNIKI_"

// Defaults 返回带有安全默认值的 Config 雏形。
// 注意：Root 与 Dicts 不设默认（必须由文件/ENV/CLI 提供）。
func Defaults() Config {
	return Config{
		MinLength:   contract.MinLength,
		MaxLength:   contract.MaxLength,
		Concurrency: runtime.NumCPU(),
		ChunkSize:   1000,
		Logging:     Logging{Level: "info"},
		Components: Components{
			Reader:    "fs",
			Loader:    "lines",
			Chunker:   "fixed",
			Assembler: "linear",
			Writer:    "fs",
			Renderer:  "png",
		},
	}
}

// Load 从文件路径或原始内容解析 Config（严格拒绝未知字段）。
// .yaml/.yml 文件先转换为 JSON 再按同一规则解码；raw 优先于 path，按 JSON 解析。
func Load(path string, raw []byte) (Config, error) {
	switch {
	case len(raw) > 0:
		return LoadJSON(raw)
	case path != "":
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			if b, err = yamlToJSON(b); err != nil {
				return Config{}, fmt.Errorf("%s: %w", path, err)
			}
		}
		cfg, err := LoadJSON(b)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
		return cfg, nil
	default:
		return Config{}, errors.New("no config source provided")
	}
}

// LoadJSON 严格解码 JSON 配置。
func LoadJSON(raw []byte) (Config, error) {
	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// yamlToJSON: YAML 文档 → 通用值 → JSON，使 Options 子树保持原样 JSON。
func yamlToJSON(b []byte) ([]byte, error) {
	var v any
	if err := yaml.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	if v == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(v)
}

// Merge 按优先级合并（后者覆盖前者）。
// 仅标量/字符串/原样 JSON 为“替换”；不做深度合并。
func Merge(base, over Config) Config {
	out := base
	if strings.TrimSpace(over.Root) != "" {
		out.Root = strings.TrimSpace(over.Root)
	}
	if len(over.Dicts) > 0 {
		out.Dicts = append([]Dict(nil), over.Dicts...)
	}
	if len(over.Stages) > 0 {
		out.Stages = cloneStrings(over.Stages)
	}
	if over.MinLength != 0 {
		out.MinLength = over.MinLength
	}
	if over.MaxLength != 0 {
		out.MaxLength = over.MaxLength
	}
	if over.Concurrency != 0 {
		out.Concurrency = over.Concurrency
	}
	if over.ChunkSize != 0 {
		out.ChunkSize = over.ChunkSize
	}
	// Logging（仅 level）
	if strings.TrimSpace(over.Logging.Level) != "" {
		out.Logging.Level = strings.TrimSpace(over.Logging.Level)
	}

	// 组件名（空不覆盖）
	if over.Components.Reader != "" {
		out.Components.Reader = over.Components.Reader
	}
	if over.Components.Loader != "" {
		out.Components.Loader = over.Components.Loader
	}
	if over.Components.Chunker != "" {
		out.Components.Chunker = over.Components.Chunker
	}
	if over.Components.Assembler != "" {
		out.Components.Assembler = over.Components.Assembler
	}
	if over.Components.Writer != "" {
		out.Components.Writer = over.Components.Writer
	}
	if over.Components.Renderer != "" {
		out.Components.Renderer = over.Components.Renderer
	}

	// Options（完整替换对应键）
	if len(over.Options.Reader) > 0 {
		out.Options.Reader = cloneRaw(over.Options.Reader)
	}
	if len(over.Options.Loader) > 0 {
		out.Options.Loader = cloneRaw(over.Options.Loader)
	}
	if len(over.Options.Chunker) > 0 {
		out.Options.Chunker = cloneRaw(over.Options.Chunker)
	}
	if len(over.Options.Assembler) > 0 {
		out.Options.Assembler = cloneRaw(over.Options.Assembler)
	}
	if len(over.Options.Writer) > 0 {
		out.Options.Writer = cloneRaw(over.Options.Writer)
	}
	if len(over.Options.Renderer) > 0 {
		out.Options.Renderer = cloneRaw(over.Options.Renderer)
	}
	return out
}

// EnvOverlay 从环境变量构建一个 Config 覆盖（仅解析有限键集合）。
// 规则：前缀 SLOWNIKI_；集合之外的键忽略；空值视为未设置。
// 支持：ROOT, DICTS（name[:master],...）, STAGES, MIN_LENGTH, MAX_LENGTH, CONCURRENCY, CHUNK_SIZE,
// LOG_LEVEL, COMPONENTS_*, OPTIONS_*_JSON
func EnvOverlay(environ []string) (Config, error) {
	var over Config
	for _, kv := range environ {
		if !strings.HasPrefix(kv, EnvPrefix) {
			continue
		}
		eq := strings.IndexByte(kv, '=')
		if eq <= len(EnvPrefix) {
			continue
		}
		key := kv[len(EnvPrefix):eq]
		val := strings.TrimSpace(kv[eq+1:])
		if val == "" {
			continue
		}
		var ip *int
		switch key {
		case "ROOT":
			over.Root = val
		case "DICTS":
			over.Dicts = ParseDicts(val)
		case "STAGES":
			over.Stages = splitComma(val)
		case "MIN_LENGTH":
			ip = &over.MinLength
		case "MAX_LENGTH":
			ip = &over.MaxLength
		case "CONCURRENCY":
			ip = &over.Concurrency
		case "CHUNK_SIZE":
			ip = &over.ChunkSize
		case "LOG_LEVEL":
			over.Logging.Level = val
		case "COMPONENTS_READER":
			over.Components.Reader = val
		case "COMPONENTS_LOADER":
			over.Components.Loader = val
		case "COMPONENTS_CHUNKER":
			over.Components.Chunker = val
		case "COMPONENTS_ASSEMBLER":
			over.Components.Assembler = val
		case "COMPONENTS_WRITER":
			over.Components.Writer = val
		case "COMPONENTS_RENDERER":
			over.Components.Renderer = val
		case "OPTIONS_READER_JSON":
			over.Options.Reader = json.RawMessage(val)
		case "OPTIONS_LOADER_JSON":
			over.Options.Loader = json.RawMessage(val)
		case "OPTIONS_CHUNKER_JSON":
			over.Options.Chunker = json.RawMessage(val)
		case "OPTIONS_ASSEMBLER_JSON":
			over.Options.Assembler = json.RawMessage(val)
		case "OPTIONS_WRITER_JSON":
			over.Options.Writer = json.RawMessage(val)
		case "OPTIONS_RENDERER_JSON":
			over.Options.Renderer = json.RawMessage(val)
		default:
			// 非本集合的键忽略（例如 CONFIG_FILE/CONFIG_JSON 由入口处理）。
		}
		if ip != nil {
			n, err := cast.ToIntE(val)
			if err != nil {
				return over, fmt.Errorf("env %s%s: %w", EnvPrefix, key, err)
			}
			*ip = n
		}
	}
	return over, nil
}

// ParseDicts 解析 "sjp,osps:osps_2024.txt" 形式的词典列表。
func ParseDicts(s string) []Dict {
	var out []Dict
	for _, p := range splitComma(s) {
		name, master, _ := strings.Cut(p, ":")
		out = append(out, Dict{Name: strings.TrimSpace(name), Master: strings.TrimSpace(master)})
	}
	return out
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneRaw(in json.RawMessage) json.RawMessage {
	if len(in) == 0 {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}

func splitComma(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
