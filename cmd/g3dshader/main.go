// Command g3dshader validates every shader permutation the renderer can
// request. With -watch it re-validates whenever a template in -dir
// changes.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/g3d"
	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/g3d/shader"
)

// debounce collapses the burst of events an editor save produces.
const debounce = 150 * time.Millisecond

func main() {
	var (
		config    = flag.String("config", "", "TOML config file providing shader_dir, max_lights and log_level")
		dir       = flag.String("dir", "", "template directory (default: builtin templates)")
		maxLights = flag.Int("max-lights", gpucore.MaxLights, "largest light count to validate")
		watch     = flag.Bool("watch", false, "re-validate when templates in -dir change")
		dump      = flag.Bool("dump", false, "print the source of failing permutations")
	)
	flag.Parse()

	cfg := g3d.DefaultConfig()
	if *config != "" {
		var err error
		if cfg, err = g3d.LoadConfig(*config); err != nil {
			log.Fatal("g3dshader", "err", err)
		}
		if *dir == "" {
			*dir = cfg.ShaderDir
		}
		*maxLights = cfg.MaxLights
	}
	logger := newLogger(cfg.LogLevel)

	if *watch && *dir == "" {
		logger.Error("-watch needs -dir or shader_dir")
		os.Exit(2)
	}

	v := &validator{dir: *dir, fps: shader.Permutations(*maxLights), dump: *dump, logger: logger}
	ok := v.run()
	if !*watch {
		if !ok {
			os.Exit(1)
		}
		return
	}
	if err := v.watch(); err != nil {
		logger.Error("watch", "err", err)
		os.Exit(1)
	}
}

type validator struct {
	dir    string
	fps    []shader.Fingerprint
	dump   bool
	logger *slog.Logger
}

func (v *validator) templates() (*shader.Templates, error) {
	if v.dir == "" {
		return shader.Builtin(), nil
	}
	return shader.LoadTemplates(v.dir)
}

// run validates every permutation and reports whether all passed.
func (v *validator) run() bool {
	start := time.Now()
	ts, err := v.templates()
	if err != nil {
		v.logger.Error("load templates", "dir", v.dir, "err", err)
		return false
	}
	failed := validateParallel(ts, v.fps)

	keys := make([]shader.Fingerprint, 0, len(failed))
	for fp := range failed {
		keys = append(keys, fp)
	}
	slices.SortFunc(keys, shader.Fingerprint.Compare)
	for _, fp := range keys {
		v.logger.Error("invalid permutation", "fingerprint", fp, "err", failed[fp])
		if v.dump {
			if src, err := ts.For(fp.Stage()).Render(fp); err == nil {
				fmt.Fprintf(os.Stderr, "// %s\n%s\n", fp, numbered(src.WGSL))
			}
		}
	}
	v.logger.Info("validated",
		"permutations", len(v.fps),
		"failed", len(failed),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return len(failed) == 0
}

// validateParallel splits fps across GOMAXPROCS workers.
func validateParallel(ts *shader.Templates, fps []shader.Fingerprint) map[shader.Fingerprint]error {
	var (
		mu     sync.Mutex
		failed = make(map[shader.Fingerprint]error)
		g      errgroup.Group
	)
	workers := runtime.GOMAXPROCS(0)
	size := max((len(fps)+workers-1)/workers, 1)
	for chunk := range slices.Chunk(fps, size) {
		g.Go(func() error {
			res := shader.ValidateAll(ts, chunk)
			mu.Lock()
			defer mu.Unlock()
			for fp, err := range res {
				failed[fp] = err
			}
			return nil
		})
	}
	_ = g.Wait()
	return failed
}

// watch re-runs validation after template changes until the watcher
// fails.
func (v *validator) watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(v.dir); err != nil {
		return fmt.Errorf("watch %s: %w", v.dir, err)
	}
	v.logger.Info("watching", "dir", v.dir)

	var timer <-chan time.Time
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !isTemplate(ev) {
				continue
			}
			v.logger.Debug("template changed", "file", filepath.Base(ev.Name), "op", ev.Op.String())
			timer = time.After(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				v.logger.Warn("events dropped", "err", err)
				timer = time.After(debounce)
				continue
			}
			return err
		case <-timer:
			timer = nil
			v.run()
		}
	}
}

func isTemplate(ev fsnotify.Event) bool {
	if !strings.HasSuffix(ev.Name, ".wgsl.tmpl") {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}

func numbered(src string) string {
	var b strings.Builder
	for i, line := range strings.Split(src, "\n") {
		fmt.Fprintf(&b, "%4d  %s\n", i+1, line)
	}
	return b.String()
}

func newLogger(level string) *slog.Logger {
	lvl, err := g3d.ParseLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          "g3dshader",
		Level:           log.Level(lvl),
	}))
}
