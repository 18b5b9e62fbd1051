// Package imaging validates uploaded photos and downsamples them into the
// base64 JPEG payload the identification provider expects.
package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"
	"strings"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/hpungsan/flourish/internal/config"
	"github.com/hpungsan/flourish/internal/errors"
)

// Defaults used when a Normalizer field is left zero.
const (
	DefaultMaxBytes     = 5 * 1024 * 1024
	DefaultMaxDimension = 1536
	DefaultMaxPixels    = 50_000_000
	DefaultQuality      = 85
)

// Upload is a photo as selected by the user, before any processing.
type Upload struct {
	Name     string
	MIMEType string
	Size     int64
	Data     []byte
}

// Encoded is the transport-safe form of an Upload.
type Encoded struct {
	// Base64 is the JPEG payload without a data-URI prefix.
	Base64 string
	Width  int
	Height int

	SourceWidth  int
	SourceHeight int
}

// DataURI returns the payload as a data URI suitable for previews and the
// garden image field.
func (e *Encoded) DataURI() string {
	return "data:image/jpeg;base64," + e.Base64
}

// Normalizer validates and downsamples uploads.
type Normalizer struct {
	MaxBytes     int64
	MaxDimension int
	MaxPixels    int64
	Quality      int
}

// NewNormalizer builds a Normalizer from config limits.
func NewNormalizer(cfg *config.Config) *Normalizer {
	n := &Normalizer{}
	if cfg != nil {
		n.MaxBytes = cfg.MaxImageBytes
		n.MaxDimension = cfg.MaxImageDimension
		n.MaxPixels = cfg.MaxImagePixels
		n.Quality = cfg.JPEGQuality
	}
	return n
}

func (n *Normalizer) limits() (int64, int, int) {
	maxBytes, maxDim, quality := n.MaxBytes, n.MaxDimension, n.Quality
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return maxBytes, maxDim, quality
}

// Validate checks presence, MIME type and size without decoding.
func (n *Normalizer) Validate(u *Upload) error {
	maxBytes, _, _ := n.limits()

	if u == nil || (u.Size == 0 && len(u.Data) == 0) {
		return errors.NewValidation("no file provided")
	}
	if !strings.HasPrefix(strings.ToLower(u.MIMEType), "image/") {
		return errors.NewValidation("file must be an image")
	}
	size := u.Size
	if size == 0 {
		size = int64(len(u.Data))
	}
	if size > maxBytes {
		return errors.NewImageTooLarge(maxBytes, size)
	}
	return nil
}

// Normalize validates u, fits it inside the MaxDimension box without
// upscaling, and re-encodes it as JPEG.
func (n *Normalizer) Normalize(u *Upload) (*Encoded, error) {
	if err := n.Validate(u); err != nil {
		return nil, err
	}
	_, maxDim, quality := n.limits()

	if len(u.Data) == 0 {
		return nil, errors.NewProcessing(nil)
	}

	hdr, _, err := image.DecodeConfig(bytes.NewReader(u.Data))
	if err != nil {
		return nil, errors.NewProcessing(err)
	}
	if err := n.checkPixels(hdr.Width, hdr.Height); err != nil {
		return nil, err
	}

	src, _, err := image.Decode(bytes.NewReader(u.Data))
	if err != nil {
		return nil, errors.NewProcessing(err)
	}

	sb := src.Bounds()
	w, h := FitWithin(sb.Dx(), sb.Dy(), maxDim)
	if w == 0 || h == 0 {
		return nil, errors.NewProcessing(nil)
	}

	// JPEG has no alpha channel; composite onto white like a canvas export would.
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, sb, xdraw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, errors.NewProcessing(err)
	}

	return &Encoded{
		Base64:       base64.StdEncoding.EncodeToString(buf.Bytes()),
		Width:        w,
		Height:       h,
		SourceWidth:  sb.Dx(),
		SourceHeight: sb.Dy(),
	}, nil
}

func (n *Normalizer) checkPixels(w, h int) error {
	maxPixels := n.MaxPixels
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	if w <= 0 || h <= 0 {
		return errors.NewProcessing(nil)
	}
	if int64(w)*int64(h) > maxPixels {
		return errors.NewValidation(fmt.Sprintf("image is too large: %dx%d pixels (max %d megapixels)", w, h, maxPixels/1_000_000))
	}
	return nil
}

// FitWithin scales (w, h) to fit a max x max box, preserving aspect ratio.
// Images already inside the box are returned unchanged.
func FitWithin(w, h, max int) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	if w <= max && h <= max {
		return w, h
	}
	ratio := math.Min(float64(max)/float64(w), float64(max)/float64(h))
	nw := int(math.Round(float64(w) * ratio))
	nh := int(math.Round(float64(h) * ratio))
	return clamp(nw, 1, max), clamp(nh, 1, max)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
