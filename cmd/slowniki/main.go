package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	cfgpkg "slowniki/internal/config"
	"slowniki/internal/diag"
	"slowniki/internal/pipeline"
)

var pipelineRun = pipeline.Run

// CLI：位置参数为词典（name[:master]，覆盖配置中的 dicts）。
// 旗标：--config, --root, --stage, --concurrency, --chunk-size, --min-length, --max-length, --log-level
func main() {
	os.Exit(run())
}

func run() int {
	start := time.Now()
	corrID := genCorrID()
	// 在任何 ENV 读取前加载工作目录下的 .env（不覆盖已有 ENV）。
	_ = godotenv.Load(".env")
	logLevel := "info"
	// 先占位默认，解析/合并配置后以最终 level 重建
	logger := diag.NewLogger(corrID, logLevel)

	var (
		flagConfig      string
		flagRoot        string
		flagStages      []string
		flagConcurrency int
		flagChunkSize   int
		flagMinLength   int
		flagMaxLength   int
		flagLogLevel    string
		flagLogDir      string
		flagInitDir     string
		flagStatus      bool
	)
	fs := pflag.NewFlagSet(filepath.Base(os.Args[0]), pflag.ContinueOnError)
	fs.StringVarP(&flagConfig, "config", "c", "", "配置文件路径（JSON/YAML）；缺省读取 ./config.json 或 ./config.yaml（若存在）")
	fs.StringVar(&flagRoot, "root", "", "数据根目录（覆盖配置）")
	fs.StringSliceVarP(&flagStages, "stage", "s", nil, "执行阶段，可重复或逗号分隔：split,extend,render,verify")
	fs.IntVarP(&flagConcurrency, "concurrency", "j", 0, "并发度（覆盖配置）")
	fs.IntVar(&flagChunkSize, "chunk-size", 0, "每个分片的单词数（覆盖配置）")
	fs.IntVar(&flagMinLength, "min-length", 0, "最小单词长度（覆盖配置）")
	fs.IntVar(&flagMaxLength, "max-length", 0, "最大单词长度（覆盖配置）")
	fs.StringVar(&flagLogLevel, "log-level", "", "日志级别 debug|info|warn|error（覆盖配置）")
	fs.StringVar(&flagLogDir, "log-dir", "logs", "日志目录")
	fs.StringVar(&flagInitDir, "init-config", "", "在指定目录生成默认配置 config.json 和 .env 模板（不覆盖）；不带值时为当前目录")
	fs.Lookup("init-config").NoOptDefVal = "."
	fs.BoolVar(&flagStatus, "status", true, "终端状态提示（stderr）。TTY 动态刷新；非 TTY 打点输出")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 3
	}
	dicts := fs.Args()

	// --init-config: 生成模板并退出
	if initDir := strings.TrimSpace(flagInitDir); initDir != "" {
		if err := os.MkdirAll(initDir, 0o755); err != nil {
			fprintf(os.Stderr, "生成默认配置失败: %v\n", err)
			logger.Error("pipeline", string(diag.Classify(err)), "first error", &start)
			return 3
		}
		if err := writeConfig(filepath.Join(initDir, "config.json"), cfgpkg.DefaultTemplateConfig()); err != nil {
			fprintf(os.Stderr, "生成默认配置失败: %v\n", err)
			logger.Error("pipeline", string(diag.Classify(err)), "first error", &start)
			return 3
		}
		if err := writeDotEnv(filepath.Join(initDir, ".env")); err != nil {
			fprintf(os.Stderr, "提示：.env 生成失败（已跳过）：%v\n", err)
		}
		return 0
	}

	// 配置来源：--config > SLOWNIKI_CONFIG_JSON > SLOWNIKI_CONFIG_FILE > ./config.{json,yaml,yml}
	var cfgJSON []byte
	if flagConfig == "" {
		if s := os.Getenv(cfgpkg.EnvPrefix + "CONFIG_JSON"); s != "" {
			cfgJSON = []byte(s)
		}
	}
	if flagConfig == "" && len(cfgJSON) == 0 {
		flagConfig = os.Getenv(cfgpkg.EnvPrefix + "CONFIG_FILE")
	}
	if flagConfig == "" && len(cfgJSON) == 0 {
		for _, name := range []string{"config.json", "config.yaml", "config.yml"} {
			if _, err := os.Stat(name); err == nil {
				flagConfig = name
				break
			}
		}
	}

	cfg := cfgpkg.Defaults()
	if flagConfig != "" || len(cfgJSON) > 0 {
		base, err := cfgpkg.Load(flagConfig, cfgJSON)
		if err != nil {
			fprintf(os.Stderr, "配置解析失败: %v\n", err)
			logger.Error("pipeline", string(diag.Classify(err)), "first error", &start)
			return 3
		}
		cfg = cfgpkg.Merge(cfg, base)
	}

	// ENV 覆盖
	overEnv, err := cfgpkg.EnvOverlay(os.Environ())
	if err != nil {
		fprintf(os.Stderr, "环境变量解析失败: %v\n", err)
		logger.Error("pipeline", string(diag.Classify(err)), "first error", &start)
		return 3
	}
	cfg = cfgpkg.Merge(cfg, overEnv)

	// CLI 覆盖
	var overCLI cfgpkg.Config
	overCLI.Root = strings.TrimSpace(flagRoot)
	overCLI.Stages = flagStages
	overCLI.Concurrency = flagConcurrency
	overCLI.ChunkSize = flagChunkSize
	overCLI.MinLength = flagMinLength
	overCLI.MaxLength = flagMaxLength
	overCLI.Logging.Level = strings.TrimSpace(flagLogLevel)
	if len(dicts) > 0 {
		overCLI.Dicts = cfgpkg.ParseDicts(strings.Join(dicts, ","))
	}
	cfg = cfgpkg.Merge(cfg, overCLI)

	if err := cfgpkg.Validate(cfg); err != nil {
		fprintf(os.Stderr, "配置校验失败: %v\n", err)
		_ = dumpConfig(cfg)
		logger.Error("pipeline", string(diag.Classify(err)), "first error", &start)
		return 3
	}

	// 日志落盘：logx → 轮转文件
	sink := diag.SetupSink(flagLogDir, 0)
	defer diag.ResetSink(sink)
	if lv := strings.TrimSpace(cfg.Logging.Level); lv != "" {
		logLevel = lv
	}
	logger = diag.NewLogger(corrID, logLevel)

	if err := preflightCheckOutputDir(cfg); err != nil {
		fprintf(os.Stderr, "输出目录不可写或无法创建: %v\n", err)
		logger.Error("pipeline", string(diag.Classify(err)), "first error", &start)
		return 3
	}

	comp, set, err := cfgpkg.Assemble(cfg)
	if err != nil {
		fprintf(os.Stderr, "装配失败: %v\n", err)
		logger.Error("pipeline", string(diag.Classify(err)), "first error", &start)
		return 3
	}

	// 终端信息提示（非日志）：按 CLI 启用，默认开启
	term := diag.NewTerminal(os.Stderr, flagStatus)
	diag.SetTerminal(term)
	defer diag.SetTerminal(nil)
	stages := set.Stages
	if len(stages) == 0 {
		stages = pipeline.Stages
	}
	if term != nil {
		term.RunStart(cfg.Concurrency, stages)
	}

	if logger != nil {
		names := make([]string, len(cfg.Dicts))
		for i, d := range cfg.Dicts {
			names[i] = d.Name
		}
		logger.DebugStart("config", "effective", "", "", map[string]string{
			"root":        cfg.Root,
			"dicts":       strings.Join(names, ","),
			"stages":      strings.Join(stages, ","),
			"min_length":  fmt.Sprintf("%d", cfg.MinLength),
			"max_length":  fmt.Sprintf("%d", cfg.MaxLength),
			"concurrency": fmt.Sprintf("%d", cfg.Concurrency),
			"chunk_size":  fmt.Sprintf("%d", cfg.ChunkSize),
			"reader":      cfg.Components.Reader,
			"loader":      cfg.Components.Loader,
			"chunker":     cfg.Components.Chunker,
			"assembler":   cfg.Components.Assembler,
			"writer":      cfg.Components.Writer,
			"renderer":    cfg.Components.Renderer,
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	t := logger.Start("pipeline", "run")
	if err := pipelineRun(ctx, comp, set, logger); err != nil {
		code := string(diag.Classify(err))
		logger.Error("pipeline", code, "first error", &start)
		diag.IncOp("pipeline", "error", "error")
		if code != "" && code != string(diag.CodeUnknown) {
			diag.IncError("pipeline", code)
		}
		if !errors.Is(err, context.Canceled) {
			fprintf(os.Stderr, "运行失败: %v\n", err)
		}
		if term != nil {
			term.RunFinish(false, time.Since(start))
		}
		return 1
	}
	if t != nil {
		t.Finish("run", 0)
	}
	diag.IncOp("pipeline", "finish", "success")
	diag.ObserveDuration("pipeline", "finish", time.Since(start).Milliseconds())
	if term != nil {
		term.RunFinish(true, time.Since(start))
	}
	return 0
}

func fprintf(w *os.File, format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }

func dumpConfig(c cfgpkg.Config) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	_, _ = os.Stderr.Write(append([]byte("有效配置:\n"), b...))
	_, _ = os.Stderr.Write([]byte("\n"))
	return nil
}

func writeConfig(path string, c cfgpkg.Config) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if path == "-" {
		_, err = os.Stdout.Write(append(b, '\n'))
		return err
	}
	// 不覆盖已存在文件
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(b); err != nil {
		return err
	}
	_, _ = f.Write([]byte("\n"))
	return nil
}

// corrNode: 本进程的 snowflake 节点；节点号取 pid 低 10 位。
var corrNode, _ = snowflake.NewNode(int64(os.Getpid() & 0x3ff))

func genCorrID() string {
	if corrNode == nil {
		return ""
	}
	return corrNode.Generate().String()
}

// writeDotEnv 生成 .env 模板（若文件已存在则跳过）。
func writeDotEnv(path string) error {
	if st, err := os.Stat(path); err == nil && !st.IsDir() {
		return nil
	} else if err != nil && !os.IsNotExist(err) {
		return err
	}
	p := cfgpkg.EnvPrefix
	env := map[string]string{
		p + "CONFIG_FILE":           "",
		p + "CONFIG_JSON":           "",
		p + "ROOT":                  "",
		p + "DICTS":                 "",
		p + "STAGES":                "",
		p + "MIN_LENGTH":            "",
		p + "MAX_LENGTH":            "",
		p + "CONCURRENCY":           "",
		p + "CHUNK_SIZE":            "",
		p + "LOG_LEVEL":             "",
		p + "COMPONENTS_READER":     "",
		p + "COMPONENTS_LOADER":     "",
		p + "COMPONENTS_CHUNKER":    "",
		p + "COMPONENTS_ASSEMBLER":  "",
		p + "COMPONENTS_WRITER":     "",
		p + "COMPONENTS_RENDERER":   "",
		p + "OPTIONS_READER_JSON":   "",
		p + "OPTIONS_WRITER_JSON":   "",
		p + "OPTIONS_RENDERER_JSON": "",
		"AWS_ACCESS_KEY_ID":         "",
		"AWS_SECRET_ACCESS_KEY":     "",
	}
	body, err := godotenv.Marshal(env)
	if err != nil {
		return err
	}
	var b strings.Builder
	b.WriteString("# slowniki .env 模板（由 --init-config 生成）\n")
	b.WriteString("# 优先级：CLI > ENV(.env) > 配置文件；空值表示未设置\n")
	b.WriteString(body)
	b.WriteString("\n")

	// 写入（不覆盖）
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	_, err = f.WriteString(b.String())
	return err
}

// preflightCheckOutputDir: Writer 为 fs 时检查输出目录（output_dir，缺省为 root）可写性。
// - 目录已存在：尝试创建并删除临时文件；
// - 目录不存在：检查父目录可写。
func preflightCheckOutputDir(cfg cfgpkg.Config) error {
	writerName := strings.TrimSpace(cfg.Components.Writer)
	if writerName == "" {
		writerName = cfgpkg.Defaults().Components.Writer
	}
	if writerName != "fs" {
		return nil
	}
	var wopts struct {
		OutputDir string `json:"output_dir"`
	}
	if len(cfg.Options.Writer) > 0 {
		_ = json.Unmarshal(cfg.Options.Writer, &wopts)
	}
	dir := strings.TrimSpace(wopts.OutputDir)
	if dir == "" {
		dir = strings.TrimSpace(cfg.Root)
	}
	if dir == "" {
		return nil
	}
	if st, err := os.Stat(dir); err == nil && st.IsDir() {
		f, err := os.CreateTemp(dir, ".wcheck-*")
		if err != nil {
			return err
		}
		name := f.Name()
		_ = f.Close()
		_ = os.Remove(name)
		return nil
	} else if err == nil && !st.IsDir() {
		return fmt.Errorf("路径存在但不是目录: %s", dir)
	} else if err != nil && !os.IsNotExist(err) {
		return err
	}
	parent := filepath.Dir(dir)
	pst, err := os.Stat(parent)
	if err != nil {
		return err
	}
	if !pst.IsDir() {
		return fmt.Errorf("父路径不是目录: %s", parent)
	}
	tmpd, err := os.MkdirTemp(parent, ".wcheck-*")
	if err != nil {
		return err
	}
	_ = os.RemoveAll(tmpd)
	return nil
}
