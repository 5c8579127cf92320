// Package images compresses the email image assets.
package images

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"image/png"
	"path"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/svg"
)

// Compressor shrinks image files. PNGs are re-encoded losslessly at the best
// compression level, SVGs are minified and JPEGs are re-encoded only when a
// quality is configured. A re-encoded file is kept only if it is smaller.
// Anything else is returned unchanged.
type Compressor struct {
	jpegQuality int
	m           *minify.M
}

// Option configures a Compressor.
type Option func(*Compressor)

// WithJPEGQuality enables lossy JPEG re-encoding at quality q (1-100).
func WithJPEGQuality(q int) Option {
	return func(c *Compressor) {
		if q > 0 && q <= 100 {
			c.jpegQuality = q
		}
	}
}

// New returns a lossless Compressor unless options say otherwise.
func New(opts ...Option) *Compressor {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("image/svg+xml", svg.Minify)
	c := &Compressor{m: m}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compress returns the compressed form of data, using name to pick the format.
func (c *Compressor) Compress(name string, data []byte) ([]byte, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".png":
		return c.png(data)
	case ".svg":
		out, err := c.m.Bytes("image/svg+xml", data)
		if err != nil {
			return nil, fmt.Errorf("minify svg: %w", err)
		}
		return smaller(out, data), nil
	case ".jpg", ".jpeg":
		if c.jpegQuality == 0 {
			return data, nil
		}
		return c.jpeg(data)
	default:
		return data, nil
	}
}

func (c *Compressor) png(data []byte) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return smaller(buf.Bytes(), data), nil
}

func (c *Compressor) jpeg(data []byte) ([]byte, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode jpeg: %w", err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: c.jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return smaller(buf.Bytes(), data), nil
}

func smaller(candidate, original []byte) []byte {
	if len(candidate) < len(original) {
		return candidate
	}
	return original
}
