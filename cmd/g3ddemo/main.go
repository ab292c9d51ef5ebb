// Command g3ddemo renders a lit, shadowed scene offscreen and writes it
// as a PNG.
package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chewxy/math32"

	"github.com/gogpu/g3d"
	"github.com/gogpu/g3d/asset"
	_ "github.com/gogpu/g3d/backend/auto"
	"github.com/gogpu/g3d/geom"
	"github.com/gogpu/g3d/render"
	"github.com/gogpu/g3d/resource"
	"github.com/gogpu/g3d/shader"
	"github.com/gogpu/g3d/target"
	"github.com/gogpu/gputypes"
)

func main() {
	var (
		config   = flag.String("config", "", "TOML config file")
		width    = flag.Int("width", 0, "image width (overrides config)")
		height   = flag.Int("height", 0, "image height (overrides config)")
		output   = flag.String("output", "demo.png", "output file")
		backend  = flag.String("backend", "", "backend name (overrides config)")
		texture  = flag.String("texture", "", "image file mapped onto the floor")
		effects  = flag.String("effects", "", "comma-separated post effects: grayscale, tonemap, invert")
		angle    = flag.Float64("angle", 30, "cube rotation in degrees")
		deferred = flag.Bool("deferred", false, "shade through a G-buffer (overrides config)")
	)
	flag.Parse()

	cfg := g3d.DefaultConfig()
	if *config != "" {
		var err error
		if cfg, err = g3d.LoadConfig(*config); err != nil {
			fatal(err)
		}
	}
	if *width > 0 {
		cfg.Width = *width
	}
	if *height > 0 {
		cfg.Height = *height
	}
	if *backend != "" {
		cfg.Backend = *backend
	}
	if *deferred {
		cfg.Deferred = true
	}

	logger := newLogger(cfg.LogLevel)
	g3d.SetLogger(logger)

	post, err := parseEffects(*effects)
	if err != nil {
		fatal(err)
	}

	start := time.Now()
	ctx, err := g3d.New(g3d.WithConfig(cfg))
	if err != nil {
		fatal(err)
	}
	defer ctx.Close()
	logger.Info("context ready", "backend", ctx.Adapter().Name(), "size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height))

	s, err := buildScene(ctx, *texture, float32(*angle))
	if err != nil {
		fatal(err)
	}
	s.frame.Effects = post

	if err := ctx.Render(s.frame); err != nil {
		fatal(err)
	}
	img, err := ctx.ReadPixels(s.frame.Target)
	if err != nil {
		fatal(err)
	}

	f, err := os.Create(*output)
	if err != nil {
		fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		fatal(err)
	}
	if err := f.Close(); err != nil {
		fatal(err)
	}

	st := ctx.Pipeline().Stats()
	logger.Info("demo saved",
		"output", *output,
		"draws", st.Draws,
		"skipped", st.Skipped,
		"elapsed", time.Since(start).Round(time.Millisecond))
}

type scene struct {
	frame *render.Frame
}

// buildScene uploads a floor and a cube, a directional light casting a
// shadow, and an offscreen target sized like the config.
func buildScene(ctx *g3d.Context, texture string, degrees float32) (*scene, error) {
	cfg := ctx.Config()

	floor, err := ctx.UploadMesh("floor", asset.Plane(4))
	if err != nil {
		return nil, err
	}
	cube, err := ctx.UploadMesh("cube", asset.Cube(0.75))
	if err != nil {
		return nil, err
	}

	floorMat := &render.Material{
		Name:      "floor",
		Lighting:  shader.Lambert,
		BaseColor: [4]float32{0.8, 0.8, 0.8, 1},
	}
	if texture != "" {
		tex, err := loadTexture(ctx, texture)
		if err != nil {
			return nil, err
		}
		floorMat.BaseColorMap = tex
	}
	cubeMat := &render.Material{
		Name:      "cube",
		Lighting:  shader.BlinnPhong,
		BaseColor: [4]float32{0.9, 0.35, 0.2, 1},
		Shininess: 32,
	}

	tgt, err := ctx.CreateTarget(target.Spec{
		Name:   "demo",
		Width:  cfg.Width,
		Height: cfg.Height,
		Color:  []gputypes.TextureFormat{gputypes.TextureFormatRGBA8Unorm},
		Depth:  gputypes.TextureFormatDepth32Float,
		Clear: target.ClearAll(gputypes.Color{
			R: cfg.ClearColor[0], G: cfg.ClearColor[1], B: cfg.ClearColor[2], A: cfg.ClearColor[3],
		}),
	})
	if err != nil {
		return nil, err
	}

	rad := degrees * math32.Pi / 180
	aspect := float32(cfg.Width) / float32(cfg.Height)
	sun := render.DirectionalLight(geom.V3(-0.5, -1, -0.3), [3]float32{1, 0.97, 0.9}, 1)
	sun.CastShadows = true

	return &scene{frame: &render.Frame{
		Camera: render.PerspectiveCamera(geom.V3(4, 3.5, 6), geom.V3(0, 0.5, 0), geom.V3(0, 1, 0),
			math32.Pi/4, aspect, 0.1, 50),
		Objects: []render.Object{
			{
				Name:     "floor",
				Vertices: floor.Vertices,
				Indices:  floor.Indices,
				Bounds:   floor.Bounds,
				Material: floorMat,
			},
			{
				Name:        "cube",
				Vertices:    cube.Vertices,
				Indices:     cube.Indices,
				Bounds:      cube.Bounds,
				Model:       geom.Translate(0, 0.75, 0).Mul(geom.RotateY(rad)),
				Material:    cubeMat,
				CastShadows: true,
			},
		},
		Lights:   []render.Light{sun},
		Ambient:  [3]float32{0.15, 0.15, 0.18},
		Target:   tgt,
		Exposure: 1,
	}}, nil
}

func loadTexture(ctx *g3d.Context, path string) (resource.Texture, error) {
	img, err := asset.ImageFile(path).Image(context.Background())
	if err != nil {
		return resource.Texture{}, err
	}
	return ctx.UploadImage(path, img, asset.TextureOptions{Mipmaps: true})
}

func parseEffects(s string) ([]shader.Effect, error) {
	if s == "" {
		return nil, nil
	}
	var out []shader.Effect
next:
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		for e := shader.EffectCopy; e <= shader.EffectInvert; e++ {
			if e.String() == name {
				out = append(out, e)
				continue next
			}
		}
		return nil, fmt.Errorf("unknown effect %q", name)
	}
	return out, nil
}

// newLogger installs charmbracelet/log as the slog handler.
func newLogger(level string) *slog.Logger {
	lvl, err := g3d.ParseLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	h := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          "g3ddemo",
		Level:           log.Level(lvl),
	})
	return slog.New(h)
}

func fatal(err error) {
	log.Fatal("g3ddemo", "err", err)
}
