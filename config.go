package g3d

import (
	"bytes"
	"fmt"
	"os"

	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/g3d/render"
	"github.com/gogpu/gputypes"
	"github.com/pelletier/go-toml/v2"
)

// Config holds the settings a Context is created with. The zero value
// is not usable; start from DefaultConfig.
type Config struct {
	// Backend names the backend to open. Empty selects the best
	// registered one.
	Backend string `toml:"backend"`
	// Width and Height size the default surface in pixels when no
	// surface is attached.
	Width  int `toml:"width"`
	Height int `toml:"height"`
	// ClearColor is the RGBA clear color of the default surface.
	ClearColor [4]float64 `toml:"clear_color"`
	// MaxLights caps the lights of one frame, at most gpucore.MaxLights.
	MaxLights int `toml:"max_lights"`
	// ShadowMapSize is the default shadow map resolution.
	ShadowMapSize int `toml:"shadow_map_size"`
	// Deferred selects the G-buffer pipeline over forward shading.
	Deferred bool `toml:"deferred"`
	// FailurePolicy is "skip" or "abort".
	FailurePolicy string `toml:"failure_policy"`
	// ShaderDir overrides the builtin WGSL templates when set.
	ShaderDir string `toml:"shader_dir"`
	// LogLevel is used by tools that install their own handler.
	LogLevel string `toml:"log_level"`
}

// DefaultConfig returns the default settings.
func DefaultConfig() Config {
	return Config{
		Width:         800,
		Height:        600,
		ClearColor:    [4]float64{0, 0, 0, 1},
		MaxLights:     gpucore.MaxLights,
		ShadowMapSize: render.DefaultShadowMapSize,
		FailurePolicy: "skip",
		LogLevel:      "info",
	}
}

// ParseConfig decodes TOML over DefaultConfig. Unknown keys are errors.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("g3d: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads a TOML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("g3d: load config: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Marshal encodes the config as TOML.
func (c Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

// Validate checks value ranges.
func (c Config) Validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("%w: size %dx%d", ErrInvalidConfig, c.Width, c.Height)
	case c.MaxLights < 0 || c.MaxLights > gpucore.MaxLights:
		return fmt.Errorf("%w: max_lights %d, limit %d", ErrInvalidConfig, c.MaxLights, gpucore.MaxLights)
	case c.ShadowMapSize <= 0:
		return fmt.Errorf("%w: shadow_map_size %d", ErrInvalidConfig, c.ShadowMapSize)
	}
	if _, err := render.ParseFailurePolicy(c.FailurePolicy); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := ParseLevel(c.LogLevel); c.LogLevel != "" && err != nil {
		return fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	return nil
}

func (c Config) clearColor() gputypes.Color {
	return gputypes.Color{R: c.ClearColor[0], G: c.ClearColor[1], B: c.ClearColor[2], A: c.ClearColor[3]}
}
