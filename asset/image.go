package asset

import (
	"errors"
	"fmt"
	"image"
	"io"

	// Decoders registered with image.Decode.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/g3d/resource"
	"github.com/gogpu/gputypes"
)

// ErrInvalidImage reports pixel data that does not match its size.
var ErrInvalidImage = errors.New("asset: invalid image")

// Image is decoded RGBA pixel data, tightly packed, top row first.
type Image struct {
	Width  int
	Height int
	// Format is RGBA8Unorm or RGBA8UnormSrgb.
	Format gputypes.TextureFormat
	Pix    []byte
}

// FromImage converts img to an sRGB RGBA8 Image.
func FromImage(img image.Image) *Image {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != 4*b.Dx() || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		xdraw.Draw(rgba, rgba.Bounds(), img, b.Min, xdraw.Src)
	}
	return &Image{
		Width:  b.Dx(),
		Height: b.Dy(),
		Format: gputypes.TextureFormatRGBA8UnormSrgb,
		Pix:    rgba.Pix,
	}
}

// Decode reads an image in any registered format: PNG, JPEG, BMP or
// WebP.
func Decode(r io.Reader) (*Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("asset: decode: %w", err)
	}
	return FromImage(img), nil
}

// Validate checks that Pix matches the dimensions.
func (m *Image) Validate() error {
	if m.Width <= 0 || m.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidImage, m.Width, m.Height)
	}
	if want := 4 * m.Width * m.Height; len(m.Pix) != want {
		return fmt.Errorf("%w: %d bytes, want %d", ErrInvalidImage, len(m.Pix), want)
	}
	return nil
}

// RGBA returns the pixels as an image.RGBA sharing Pix.
func (m *Image) RGBA() *image.RGBA {
	return &image.RGBA{Pix: m.Pix, Stride: 4 * m.Width, Rect: image.Rect(0, 0, m.Width, m.Height)}
}

// MipChain returns levels mip levels, level 0 being Pix. Each level is
// a bilinear downscale of the previous one. Levels <= 0 produces the
// full chain down to 1x1.
func (m *Image) MipChain(levels int) ([][]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	full := gpucore.MaxMipLevels(m.Width, m.Height)
	if levels <= 0 || levels > full {
		levels = full
	}
	chain := [][]byte{m.Pix}
	src := m.RGBA()
	for i := 1; i < levels; i++ {
		w, h := gpucore.MipSize(m.Width, m.Height, i)
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		xdraw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
		chain = append(chain, dst.Pix)
		src = dst
	}
	return chain, nil
}

// TextureOptions control UploadImage.
type TextureOptions struct {
	// Mipmaps generates the full mip chain.
	Mipmaps bool
	// Sampler defaults to gpucore.DefaultSampler.
	Sampler *gpucore.Sampler
}

// UploadImage uploads m as a texture.
func UploadImage(reg *resource.Registry, label string, m *Image, opts TextureOptions) (resource.Texture, error) {
	levels := [][]byte{m.Pix}
	if err := m.Validate(); err != nil {
		return resource.Texture{}, err
	}
	if opts.Mipmaps {
		var err error
		if levels, err = m.MipChain(0); err != nil {
			return resource.Texture{}, err
		}
	}
	sampler := gpucore.DefaultSampler()
	if opts.Sampler != nil {
		sampler = *opts.Sampler
	}
	format := m.Format
	if format == gputypes.TextureFormatUndefined {
		format = gputypes.TextureFormatRGBA8UnormSrgb
	}
	return reg.UploadTexture(gpucore.TextureDesc{
		Label:     label,
		Width:     m.Width,
		Height:    m.Height,
		Format:    format,
		MipLevels: len(levels),
		Sampler:   sampler,
		Levels:    levels,
	})
}
