package asset

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// MeshSource produces decoded geometry.
type MeshSource interface {
	Mesh(ctx context.Context) (*Mesh, error)
}

// ImageSource produces decoded pixels.
type ImageSource interface {
	Image(ctx context.Context) (*Image, error)
}

// MeshFunc adapts a function to MeshSource.
type MeshFunc func(ctx context.Context) (*Mesh, error)

// Mesh calls f.
func (f MeshFunc) Mesh(ctx context.Context) (*Mesh, error) { return f(ctx) }

// ImageFunc adapts a function to ImageSource.
type ImageFunc func(ctx context.Context) (*Image, error)

// Image calls f.
func (f ImageFunc) Image(ctx context.Context) (*Image, error) { return f(ctx) }

// ImageFile is an ImageSource reading an image file.
type ImageFile string

// Image opens and decodes the file.
func (p ImageFile) Image(ctx context.Context) (*Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(string(p))
	if err != nil {
		return nil, fmt.Errorf("asset: %w", err)
	}
	defer f.Close()
	img, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	return img, nil
}

// DecodeAll runs load for every source with at most limit concurrent
// calls and returns the results in source order. Limit <= 0 uses
// GOMAXPROCS. The first error cancels the remaining loads.
func DecodeAll[S, T any](ctx context.Context, sources []S, limit int, load func(context.Context, S) (T, error)) ([]T, error) {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	out := make([]T, len(sources))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, src := range sources {
		g.Go(func() error {
			v, err := load(ctx, src)
			if err != nil {
				return fmt.Errorf("asset: source %d: %w", i, err)
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeImages loads every image source concurrently.
func DecodeImages(ctx context.Context, sources []ImageSource, limit int) ([]*Image, error) {
	return DecodeAll(ctx, sources, limit, func(ctx context.Context, s ImageSource) (*Image, error) {
		return s.Image(ctx)
	})
}

// DecodeMeshes loads every mesh source concurrently.
func DecodeMeshes(ctx context.Context, sources []MeshSource, limit int) ([]*Mesh, error) {
	return DecodeAll(ctx, sources, limit, func(ctx context.Context, s MeshSource) (*Mesh, error) {
		return s.Mesh(ctx)
	})
}
