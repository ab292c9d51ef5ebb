package shader

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"text/template"

	"github.com/gogpu/g3d/gpucore"
)

//go:embed templates/*.wgsl.tmpl
var builtinFS embed.FS

const commonFile = "common.wgsl.tmpl"

var stageFiles = [...]string{
	StageForward:  "forward.wgsl.tmpl",
	StageDepth:    "depth.wgsl.tmpl",
	StagePost:     "post.wgsl.tmpl",
	StageGeometry: "geometry.wgsl.tmpl",
	StageLight:    "light.wgsl.tmpl",
}

// Template synthesizes the WGSL source of one stage.
type Template struct {
	name  string
	stage Stage
	tmpl  *template.Template
}

// Name returns the template file name.
func (t *Template) Name() string {
	return t.name
}

// Stage returns the stage the template renders.
func (t *Template) Stage() Stage {
	return t.stage
}

type shadowSlot struct {
	Index   int
	Binding int
}

type templateData struct {
	Name    string
	Defines []gpucore.Define

	MaxLights  int
	MaxShadows int

	BindingUniforms         int
	BindingBaseColor        int
	BindingBaseColorSampler int
	BindingGBufferPosition  int
	BindingGBufferNormal    int
	ShadowSlots             []shadowSlot

	Lit          bool
	BaseColorMap bool
	VertexColor  bool
	Emissive     bool
	AlphaCutoff  bool
	Effect       int
}

// Render synthesizes the program source for fp.
func (t *Template) Render(fp Fingerprint) (gpucore.ProgramSource, error) {
	if fp.Stage() != t.stage {
		return gpucore.ProgramSource{}, fmt.Errorf("%w: %s template cannot render %s", ErrStageMismatch, t.stage, fp)
	}
	f := fp.Features()
	data := templateData{
		Name:                    fp.String(),
		Defines:                 fp.Defines(),
		MaxLights:               gpucore.MaxLights,
		MaxShadows:              gpucore.MaxShadows,
		BindingUniforms:         gpucore.BindingUniforms,
		BindingBaseColor:        gpucore.BindingBaseColor,
		BindingBaseColorSampler: gpucore.BindingBaseColorSampler,
		BindingGBufferPosition:  gpucore.BindingGBufferPosition,
		BindingGBufferNormal:    gpucore.BindingGBufferNormal,
		Lit:                     (f.Stage == StageForward || f.Stage == StageLight) && f.Lighting != Unlit,
		BaseColorMap:            f.Channels.Has(ChannelBaseColorMap),
		VertexColor:             f.Channels.Has(ChannelVertexColor),
		Emissive:                f.Channels.Has(ChannelEmissive),
		AlphaCutoff:             f.Channels.Has(ChannelAlphaCutoff),
		Effect:                  int(f.Effect),
	}
	for i := 0; i < f.Shadows; i++ {
		data.ShadowSlots = append(data.ShadowSlots, shadowSlot{Index: i, Binding: gpucore.BindingShadow0 + i})
	}

	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, data); err != nil {
		return gpucore.ProgramSource{}, fmt.Errorf("%w: %s: %w", ErrTemplate, t.name, err)
	}
	return gpucore.ProgramSource{
		Label:   "g3d " + fp.String(),
		Key:     fp.String(),
		WGSL:    buf.String(),
		Defines: data.Defines,
	}, nil
}

// Templates holds one template per stage.
type Templates struct {
	byStage [len(stageFiles)]*Template
}

// For returns the template of stage s, or nil.
func (ts *Templates) For(s Stage) *Template {
	if ts == nil || int(s) >= len(ts.byStage) {
		return nil
	}
	return ts.byStage[s]
}

// Builtin returns the templates embedded in the binary.
var Builtin = sync.OnceValue(func() *Templates {
	ts, err := parseTemplates(builtinFS, "templates", nil)
	if err != nil {
		panic(err)
	}
	return ts
})

// LoadTemplates parses templates from dir. Stage files missing from
// dir fall back to the builtin templates; common.wgsl.tmpl in dir
// replaces the builtin shared definitions.
func LoadTemplates(dir string) (*Templates, error) {
	return parseTemplates(os.DirFS(dir), ".", Builtin())
}

func parseTemplates(fsys fs.FS, dir string, fallback *Templates) (*Templates, error) {
	common, err := fs.ReadFile(fsys, joinPath(dir, commonFile))
	if errors.Is(err, fs.ErrNotExist) && fallback != nil {
		common, err = fs.ReadFile(builtinFS, joinPath("templates", commonFile))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTemplate, err)
	}

	ts := &Templates{}
	for stage, name := range stageFiles {
		body, err := fs.ReadFile(fsys, joinPath(dir, name))
		if errors.Is(err, fs.ErrNotExist) && fallback != nil {
			ts.byStage[stage] = fallback.byStage[stage]
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrTemplate, err)
		}
		tmpl := template.New(name)
		_, err = tmpl.New(commonFile).Parse(string(common))
		if err == nil {
			_, err = tmpl.Parse(string(body))
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrTemplate, name, err)
		}
		ts.byStage[stage] = &Template{name: name, stage: Stage(stage), tmpl: tmpl}
	}
	return ts, nil
}

func joinPath(dir, name string) string {
	if dir == "." || dir == "" {
		return name
	}
	return dir + "/" + name
}
