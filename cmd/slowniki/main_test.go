package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	cfgpkg "slowniki/internal/config"
	"slowniki/internal/diag"
	"slowniki/internal/pipeline"
	"slowniki/pkg/contract"
)

func resetArgs(args []string) {
	os.Args = args
}

type capture struct {
	called bool
	set    pipeline.Settings
}

// stubPipeline 替换 pipelineRun，记录传入的 Settings。
func stubPipeline(t *testing.T, ret error) *capture {
	t.Helper()
	c := &capture{}
	orig := pipelineRun
	pipelineRun = func(ctx context.Context, comp pipeline.Components, set pipeline.Settings, logger *diag.Logger) error {
		c.called = true
		c.set = set
		return ret
	}
	t.Cleanup(func() { pipelineRun = orig })
	return c
}

func templateJSON(t *testing.T, mutate func(*cfgpkg.Config)) string {
	t.Helper()
	cfg := cfgpkg.DefaultTemplateConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func TestWriteConfig(t *testing.T) {
	cfg := cfgpkg.Defaults()
	dir := t.TempDir()
	file := filepath.Join(dir, "c.json")
	if err := writeConfig(file, cfg); err != nil {
		t.Fatalf("writeConfig file: %v", err)
	}
	if _, err := os.Stat(file); err != nil {
		t.Fatalf("file not created: %v", err)
	}
	// 不覆盖
	if err := writeConfig(file, cfg); !os.IsExist(err) {
		t.Fatalf("want exist error, got %v", err)
	}
	r, w, _ := os.Pipe()
	old := os.Stdout
	os.Stdout = w
	if err := writeConfig("-", cfg); err != nil {
		t.Fatalf("writeConfig stdout: %v", err)
	}
	w.Close()
	os.Stdout = old
	r.Close()
}

func TestDumpConfig(t *testing.T) {
	cfg := cfgpkg.Defaults()
	devnull, _ := os.Open(os.DevNull)
	old := os.Stderr
	os.Stderr = devnull
	if err := dumpConfig(cfg); err != nil {
		t.Fatalf("dumpConfig: %v", err)
	}
	os.Stderr = old
	devnull.Close()
}

func TestGenCorrID(t *testing.T) {
	a, b := genCorrID(), genCorrID()
	if a == "" || b == "" {
		t.Fatalf("empty corr id")
	}
	if a == b {
		t.Fatalf("corr id not unique: %s", a)
	}
}

func TestWriteDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := writeDotEnv(path); err != nil {
		t.Fatalf("writeDotEnv: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, key := range []string{"SLOWNIKI_ROOT=", "SLOWNIKI_DICTS=", "SLOWNIKI_CONFIG_FILE=", "AWS_ACCESS_KEY_ID="} {
		if !strings.Contains(string(b), key) {
			t.Fatalf("missing %s in:\n%s", key, b)
		}
	}
	// 已存在则跳过且不改写
	if err := os.WriteFile(path, []byte("X=1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := writeDotEnv(path); err != nil {
		t.Fatalf("writeDotEnv again: %v", err)
	}
	if b, _ := os.ReadFile(path); string(b) != "X=1\n" {
		t.Fatalf(".env overwritten: %q", b)
	}
}

func TestRunInitConfigDir(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	outDir := filepath.Join(dir, "out")
	resetArgs([]string{"slowniki", "--init-config=" + outDir})
	if code := run(); code != 0 {
		t.Fatalf("run return %d", code)
	}
	for _, name := range []string{"config.json", ".env"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Fatalf("%s not generated: %v", name, err)
		}
	}
	// 生成的配置可被严格解析
	if _, err := cfgpkg.Load(filepath.Join(outDir, "config.json"), nil); err != nil {
		t.Fatalf("load generated config: %v", err)
	}
}

// 裸 --init-config 等价于当前目录
func TestRunInitConfigDefault(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	resetArgs([]string{"slowniki", "--init-config", "--status=false"})
	if code := run(); code != 0 {
		t.Fatalf("run return %d", code)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.json")); err != nil {
		t.Fatalf("config not generated: %v", err)
	}
}

func TestRunInitConfigFileExists(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	resetArgs([]string{"slowniki", "--init-config=."})
	if code := run(); code != 3 {
		t.Fatalf("expected 3, got %d", code)
	}
	if b, _ := os.ReadFile(filepath.Join(dir, "config.json")); string(b) != "{}" {
		t.Fatalf("config overwritten: %q", b)
	}
}

func TestRunSuccess(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SLOWNIKI_CONFIG_JSON", templateJSON(t, nil))

	resetArgs([]string{"slowniki", "--status=false"})
	c := stubPipeline(t, nil)
	if code := run(); code != 0 {
		t.Fatalf("run return %d", code)
	}
	if !c.called {
		t.Fatalf("pipelineRun not called")
	}
	want := []pipeline.Dict{{Name: "sjp", Master: "sjp.txt"}, {Name: "osps", Master: "osps.txt"}}
	if !reflect.DeepEqual(c.set.Dicts, want) {
		t.Fatalf("dicts = %+v", c.set.Dicts)
	}
	if c.set.MinLength != 2 || c.set.MaxLength != 15 {
		t.Fatalf("lengths = %d..%d", c.set.MinLength, c.set.MaxLength)
	}
	// 日志 sink 已建立
	if _, err := os.Stat(filepath.Join("logs", "slowniki-current.txt")); err != nil {
		t.Fatalf("log sink: %v", err)
	}
}

func TestRunWithConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	path := filepath.Join(dir, "cfg.json")
	if err := os.WriteFile(path, []byte(templateJSON(t, nil)), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	resetArgs([]string{"slowniki", "--config", path, "--status=false"})
	c := stubPipeline(t, nil)
	if code := run(); code != 0 {
		t.Fatalf("run return %d", code)
	}
	if !c.called {
		t.Fatalf("pipelineRun not called")
	}
}

func TestRunConfigFileNotFound(t *testing.T) {
	chdir(t, t.TempDir())
	resetArgs([]string{"slowniki", "-c", "missing.json"})
	c := stubPipeline(t, nil)
	if code := run(); code != 3 {
		t.Fatalf("expected 3, got %d", code)
	}
	if c.called {
		t.Fatalf("pipeline should not run")
	}
}

func TestRunUnknownFlag(t *testing.T) {
	chdir(t, t.TempDir())
	resetArgs([]string{"slowniki", "--no-such-flag"})
	if code := run(); code != 3 {
		t.Fatalf("expected 3, got %d", code)
	}
}

func TestRunValidateError(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SLOWNIKI_CONFIG_JSON", templateJSON(t, func(c *cfgpkg.Config) { c.MaxLength = 20 }))

	resetArgs([]string{"slowniki"})
	c := stubPipeline(t, nil)
	if code := run(); code != 3 {
		t.Fatalf("expected 3, got %d", code)
	}
	if c.called {
		t.Fatalf("pipeline should not run")
	}
}

// 缺少 root/dicts 时校验失败
func TestRunNoConfig(t *testing.T) {
	chdir(t, t.TempDir())
	resetArgs([]string{"slowniki"})
	stubPipeline(t, nil)
	if code := run(); code != 3 {
		t.Fatalf("expected 3, got %d", code)
	}
}

// s3 writer 缺少 bucket：校验通过，装配失败
func TestRunAssembleError(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SLOWNIKI_CONFIG_JSON", templateJSON(t, func(c *cfgpkg.Config) {
		c.Components.Writer = "s3"
		c.Options.Writer = json.RawMessage(`{}`)
	}))

	resetArgs([]string{"slowniki"})
	c := stubPipeline(t, nil)
	if code := run(); code != 3 {
		t.Fatalf("expected 3, got %d", code)
	}
	if c.called {
		t.Fatalf("pipeline should not run")
	}
}

func TestRunPipelineError(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SLOWNIKI_CONFIG_JSON", templateJSON(t, nil))

	resetArgs([]string{"slowniki", "--status=false"})
	stubPipeline(t, errors.Join(errors.New("sjp/3"), contract.ErrInputMissing))
	if code := run(); code != 1 {
		t.Fatalf("expected 1, got %d", code)
	}
}

func TestRunCLIOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SLOWNIKI_CONFIG_JSON", templateJSON(t, nil))
	t.Setenv("SLOWNIKI_CONCURRENCY", "9")

	resetArgs([]string{"slowniki", "--status=false",
		"-j", "3", "--chunk-size", "7", "--min-length", "3", "--max-length", "8",
		"-s", "extend", "--stage", "verify", "--root", "data", "osps:osps_2024.txt"})
	c := stubPipeline(t, nil)
	if code := run(); code != 0 {
		t.Fatalf("run return %d", code)
	}
	s := c.set
	if s.Concurrency != 3 || s.ChunkSize != 7 || s.MinLength != 3 || s.MaxLength != 8 {
		t.Fatalf("scalars not overridden: %+v", s)
	}
	if !reflect.DeepEqual(s.Stages, []string{"extend", "verify"}) {
		t.Fatalf("stages = %v", s.Stages)
	}
	if !reflect.DeepEqual(s.Dicts, []pipeline.Dict{{Name: "osps", Master: "osps_2024.txt"}}) {
		t.Fatalf("dicts = %+v", s.Dicts)
	}
}

func TestRunEnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SLOWNIKI_CONFIG_JSON", templateJSON(t, nil))
	t.Setenv("SLOWNIKI_CONCURRENCY", "5")
	t.Setenv("SLOWNIKI_CHUNK_SIZE", "250")
	t.Setenv("SLOWNIKI_DICTS", "sjp")
	t.Setenv("SLOWNIKI_STAGES", "split")

	resetArgs([]string{"slowniki", "--status=false"})
	c := stubPipeline(t, nil)
	if code := run(); code != 0 {
		t.Fatalf("run return %d", code)
	}
	s := c.set
	if s.Concurrency != 5 || s.ChunkSize != 250 {
		t.Fatalf("env not applied: %+v", s)
	}
	if !reflect.DeepEqual(s.Dicts, []pipeline.Dict{{Name: "sjp"}}) || !reflect.DeepEqual(s.Stages, []string{"split"}) {
		t.Fatalf("env lists not applied: %+v", s)
	}
}

func TestRunEnvBadInt(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SLOWNIKI_CONFIG_JSON", templateJSON(t, nil))
	t.Setenv("SLOWNIKI_MAX_LENGTH", "many")

	resetArgs([]string{"slowniki"})
	stubPipeline(t, nil)
	if code := run(); code != 3 {
		t.Fatalf("expected 3, got %d", code)
	}
}

func TestRunConfigFileEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	path := filepath.Join(dir, "custom.json")
	if err := os.WriteFile(path, []byte(templateJSON(t, func(c *cfgpkg.Config) { c.ChunkSize = 42 })), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SLOWNIKI_CONFIG_FILE", path)

	resetArgs([]string{"slowniki", "--status=false"})
	c := stubPipeline(t, nil)
	if code := run(); code != 0 {
		t.Fatalf("run return %d", code)
	}
	if c.set.ChunkSize != 42 {
		t.Fatalf("chunk size = %d", c.set.ChunkSize)
	}
}

func TestRunDefaultConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	if err := os.WriteFile("config.json", []byte(templateJSON(t, func(c *cfgpkg.Config) { c.MinLength = 4 })), 0o644); err != nil {
		t.Fatal(err)
	}
	resetArgs([]string{"slowniki", "--status=false"})
	c := stubPipeline(t, nil)
	if code := run(); code != 0 {
		t.Fatalf("run return %d", code)
	}
	if c.set.MinLength != 4 {
		t.Fatalf("min length = %d", c.set.MinLength)
	}
}

func TestRunDefaultYAMLConfig(t *testing.T) {
	chdir(t, t.TempDir())

	yml := "root: data\ndicts:\n  - name: sjp\nmin_length: 3\nmax_length: 9\nstages: [split, extend]\n"
	if err := os.WriteFile("config.yaml", []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	resetArgs([]string{"slowniki", "--status=false"})
	c := stubPipeline(t, nil)
	if code := run(); code != 0 {
		t.Fatalf("run return %d", code)
	}
	if c.set.MinLength != 3 || c.set.MaxLength != 9 || !reflect.DeepEqual(c.set.Stages, []string{"split", "extend"}) {
		t.Fatalf("yaml not applied: %+v", c.set)
	}
}

// fs writer 的 output_dir 指向文件时预检失败
func TestRunPreflightOutputDir(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	if err := os.WriteFile("occupied", []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SLOWNIKI_CONFIG_JSON", templateJSON(t, func(c *cfgpkg.Config) {
		c.Options.Writer = json.RawMessage(`{"output_dir":"occupied"}`)
	}))
	resetArgs([]string{"slowniki"})
	c := stubPipeline(t, nil)
	if code := run(); code != 3 {
		t.Fatalf("expected 3, got %d", code)
	}
	if c.called {
		t.Fatalf("pipeline should not run")
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains: it changes
// the working directory for the duration of the test and restores it on cleanup.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(abs); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PWD", abs)
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			panic("testing.Chdir: " + err.Error())
		}
	})
}
