package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	enLocal "github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTrans "github.com/go-playground/validator/v10/translations/en"

	"slowniki/internal/pipeline"
	"slowniki/pkg/contract"
	"slowniki/pkg/registry"
)

var (
	validate *validator.Validate
	trans    ut.Translator
)

func init() {
	validate = validator.New()
	// 错误信息使用 JSON 字段名
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	local := enLocal.New()
	trans, _ = ut.New(local).GetTranslator(local.Locale())
	_ = enTrans.RegisterDefaultTranslations(validate, trans)
}

// Validate 对最小必要边界做静态校验：结构标签 + 组件注册表。
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fe.Translate(trans))
			}
			return fmt.Errorf("config: %s: %w", strings.Join(msgs, "; "), contract.ErrInvalidInput)
		}
		return fmt.Errorf("config: %w", err)
	}
	seen := make(map[string]bool, len(cfg.Dicts))
	for _, d := range cfg.Dicts {
		if seen[d.Name] {
			return fmt.Errorf("config: duplicate dict %q: %w", d.Name, contract.ErrInvalidInput)
		}
		seen[d.Name] = true
	}
	// 组件名若为空，使用默认名（由 Defaults() 提供）。此处只要最终有值即可。
	d := Defaults().Components
	if name := effName(cfg.Components.Reader, d.Reader); registry.Reader[name] == nil {
		return fmt.Errorf("config: reader %q not registered", name)
	}
	if name := effName(cfg.Components.Loader, d.Loader); registry.Loader[name] == nil {
		return fmt.Errorf("config: loader %q not registered", name)
	}
	if name := effName(cfg.Components.Chunker, d.Chunker); registry.Chunker[name] == nil {
		return fmt.Errorf("config: chunker %q not registered", name)
	}
	if name := effName(cfg.Components.Assembler, d.Assembler); registry.Assembler[name] == nil {
		return fmt.Errorf("config: assembler %q not registered", name)
	}
	if name := effName(cfg.Components.Writer, d.Writer); registry.Writer[name] == nil {
		return fmt.Errorf("config: writer %q not registered", name)
	}
	if name := effName(cfg.Components.Renderer, d.Renderer); registry.Renderer[name] == nil {
		return fmt.Errorf("config: renderer %q not registered", name)
	}
	return nil
}

// Assemble 构造 Components 与 Settings。
// 严格 Options 解析在 registry （工厂）层进行；此处只传 raw JSON。
func Assemble(cfg Config) (pipeline.Components, pipeline.Settings, error) {
	if err := Validate(cfg); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}

	// 有效名称
	d := Defaults().Components
	rn := effName(cfg.Components.Reader, d.Reader)
	ln := effName(cfg.Components.Loader, d.Loader)
	cn := effName(cfg.Components.Chunker, d.Chunker)
	an := effName(cfg.Components.Assembler, d.Assembler)
	wn := effName(cfg.Components.Writer, d.Writer)
	pn := effName(cfg.Components.Renderer, d.Renderer)

	// 构造实例
	r, err := registry.Reader[rn](cfg.Root, cfg.Options.Reader)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("reader %s: %w", rn, err)
	}
	l, err := registry.Loader[ln](cfg.Options.Loader)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("loader %s: %w", ln, err)
	}
	c, err := registry.Chunker[cn](cfg.Options.Chunker)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("chunker %s: %w", cn, err)
	}
	asm, err := registry.Assembler[an](cfg.Options.Assembler)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("assembler %s: %w", an, err)
	}
	w, err := registry.Writer[wn](cfg.Root, cfg.Options.Writer)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("writer %s: %w", wn, err)
	}
	rnd, err := registry.Renderer[pn](cfg.Options.Renderer)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("renderer %s: %w", pn, err)
	}

	comp := pipeline.Components{
		Reader:    r,
		Loader:    l,
		Chunker:   c,
		Assembler: asm,
		Writer:    w,
		Renderer:  rnd,
	}
	dicts := make([]pipeline.Dict, len(cfg.Dicts))
	for i, dc := range cfg.Dicts {
		dicts[i] = pipeline.Dict{Name: dc.Name, Master: dc.Master}
	}
	set := pipeline.Settings{
		Dicts:       dicts,
		Stages:      cloneStrings(cfg.Stages),
		MinLength:   cfg.MinLength,
		MaxLength:   cfg.MaxLength,
		Concurrency: cfg.Concurrency,
		ChunkSize:   cfg.ChunkSize,
	}
	return comp, set, nil
}

func effName(got, def string) string {
	if got == "" {
		return def
	}
	return got
}
