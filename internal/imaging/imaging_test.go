package imaging

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hpungsan/flourish/internal/config"
	"github.com/hpungsan/flourish/internal/errors"
)

// pngBytes renders a w x h two-tone PNG.
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	green := color.RGBA{R: 40, G: 160, B: 60, A: 255}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 {
				img.Set(x, y, green)
			} else {
				img.Set(x, y, color.RGBA{R: 200, G: 220, B: 200, A: 255})
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func decodedSize(t *testing.T, enc *Encoded) (int, int) {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(enc.Base64)
	if err != nil {
		t.Fatalf("payload is not base64: %v", err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("payload is not JPEG: %v", err)
	}
	return cfg.Width, cfg.Height
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		w, h, max    int
		wantW, wantH int
	}{
		{3000, 1500, 1536, 1536, 768},
		{4000, 3000, 1536, 1536, 1152},
		{1000, 2000, 1536, 768, 1536},
		{800, 600, 1536, 800, 600},
		{1536, 1536, 1536, 1536, 1536},
		{1537, 1, 1536, 1536, 1},
		{0, 10, 1536, 0, 0},
	}

	for _, tt := range tests {
		gotW, gotH := FitWithin(tt.w, tt.h, tt.max)
		if gotW != tt.wantW || gotH != tt.wantH {
			t.Errorf("FitWithin(%d, %d, %d) = (%d, %d), want (%d, %d)",
				tt.w, tt.h, tt.max, gotW, gotH, tt.wantW, tt.wantH)
		}
	}
}

func TestNormalize_Downsamples(t *testing.T) {
	n := &Normalizer{MaxBytes: 10 << 20, MaxDimension: 1536, Quality: 85}
	data := pngBytes(t, 3000, 1500)

	enc, err := n.Normalize(&Upload{Name: "leaf.png", MIMEType: "image/png", Size: int64(len(data)), Data: data})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	w, h := decodedSize(t, enc)
	if w != 1536 || h != 768 {
		t.Errorf("decoded size = %dx%d, want 1536x768", w, h)
	}
	if enc.SourceWidth != 3000 || enc.SourceHeight != 1500 {
		t.Errorf("source size = %dx%d, want 3000x1500", enc.SourceWidth, enc.SourceHeight)
	}
	if strings.HasPrefix(enc.Base64, "data:") {
		t.Error("payload should not carry a data-URI prefix")
	}
	if !strings.HasPrefix(enc.DataURI(), "data:image/jpeg;base64,") {
		t.Errorf("DataURI() = %q...", enc.DataURI()[:30])
	}
}

func TestNormalize_PreservesAspectRatio(t *testing.T) {
	n := &Normalizer{MaxDimension: 100}

	sizes := [][2]int{{250, 170}, {170, 250}, {333, 101}, {99, 98}}
	for _, s := range sizes {
		data := pngBytes(t, s[0], s[1])
		enc, err := n.Normalize(&Upload{MIMEType: "image/png", Data: data})
		if err != nil {
			t.Fatalf("Normalize(%v) error = %v", s, err)
		}
		w, h := decodedSize(t, enc)
		if w > 100 || h > 100 {
			t.Errorf("Normalize(%v) = %dx%d, exceeds 100px box", s, w, h)
		}
		// Cross-multiplied ratio check with ±1px rounding tolerance.
		wantH := float64(w) * float64(s[1]) / float64(s[0])
		if diff := float64(h) - wantH; diff > 1 || diff < -1 {
			t.Errorf("Normalize(%v) = %dx%d, aspect drift %.2fpx", s, w, h, diff)
		}
	}
}

func TestNormalize_NoUpscale(t *testing.T) {
	n := &Normalizer{}
	data := pngBytes(t, 64, 48)

	enc, err := n.Normalize(&Upload{MIMEType: "image/png", Data: data})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if w, h := decodedSize(t, enc); w != 64 || h != 48 {
		t.Errorf("decoded size = %dx%d, want 64x48", w, h)
	}
}

func TestNormalize_ValidationErrors(t *testing.T) {
	n := &Normalizer{MaxBytes: 1024}

	tests := []struct {
		name   string
		upload *Upload
	}{
		{"nil upload", nil},
		{"empty upload", &Upload{MIMEType: "image/png"}},
		{"not an image", &Upload{MIMEType: "text/plain", Data: []byte("hello")}},
		{"missing mime", &Upload{Data: []byte{1, 2, 3}}},
		{"over cap by size", &Upload{MIMEType: "image/jpeg", Size: 2048}},
		{"over cap by data", &Upload{MIMEType: "image/jpeg", Data: make([]byte, 1025)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Normalize(tt.upload)
			if !errors.Is(err, errors.ErrValidation) {
				t.Errorf("Normalize() error = %v, want VALIDATION", err)
			}
		})
	}
}

func TestNormalize_CorruptImage(t *testing.T) {
	n := &Normalizer{}
	_, err := n.Normalize(&Upload{MIMEType: "image/png", Data: []byte("\x89PNG not really")})
	if !errors.Is(err, errors.ErrProcessing) {
		t.Errorf("Normalize() error = %v, want PROCESSING", err)
	}
}

// withDimensions rewrites the IHDR width and height of a PNG, leaving the
// pixel data untouched.
func withDimensions(t *testing.T, data []byte, w, h uint32) []byte {
	t.Helper()
	out := append([]byte(nil), data...)
	if string(out[12:16]) != "IHDR" {
		t.Fatalf("unexpected PNG layout")
	}
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestNormalize_PixelCap(t *testing.T) {
	// A flat 2000x2000 image compresses to a few KB but decodes to 4 MP.
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2000, 2000))); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	data := buf.Bytes()
	if len(data) > 100*1024 {
		t.Fatalf("fixture is %d bytes, want a small file", len(data))
	}

	n := &Normalizer{MaxPixels: 1_000_000}
	_, err := n.Normalize(&Upload{MIMEType: "image/png", Data: data})
	if !errors.Is(err, errors.ErrValidation) {
		t.Fatalf("Normalize() error = %v, want VALIDATION", err)
	}
	if !strings.Contains(errors.As(err).Message, "2000x2000") {
		t.Errorf("message = %q", errors.As(err).Message)
	}

	n.MaxPixels = 4_000_000
	if _, err := n.Normalize(&Upload{MIMEType: "image/png", Data: data}); err != nil {
		t.Errorf("Normalize() at the cap error = %v", err)
	}
}

func TestNormalize_HugeHeaderRejectedBeforeDecode(t *testing.T) {
	// 16000x16000 is 256 MP; only the header claims it.
	data := withDimensions(t, pngBytes(t, 4, 4), 16000, 16000)

	n := &Normalizer{}
	_, err := n.Normalize(&Upload{MIMEType: "image/png", Data: data})
	if !errors.Is(err, errors.ErrValidation) {
		t.Errorf("Normalize() error = %v, want VALIDATION", err)
	}
}

func TestNewNormalizer_FromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.MaxImageBytes = 10 << 20
	n := NewNormalizer(cfg)

	if n.MaxBytes != 10<<20 || n.MaxDimension != 1536 || n.Quality != 85 || n.MaxPixels != 50_000_000 {
		t.Errorf("NewNormalizer() = %+v", n)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "monstera.png")
	data := pngBytes(t, 20, 10)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	u, err := LoadFile(path, 1<<20)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if u.MIMEType != "image/png" {
		t.Errorf("MIMEType = %q, want image/png", u.MIMEType)
	}
	if u.Size != int64(len(data)) || len(u.Data) != len(data) {
		t.Errorf("Size = %d, len(Data) = %d, want %d", u.Size, len(u.Data), len(data))
	}
	if u.Name != "monstera.png" {
		t.Errorf("Name = %q", u.Name)
	}
}

func TestLoadFile_OversizedNotRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "huge.jpg")
	if err := os.WriteFile(path, make([]byte, 4096), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	u, err := LoadFile(path, 1024)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if u.Data != nil {
		t.Error("oversized file should not be read")
	}

	n := &Normalizer{MaxBytes: 1024}
	if _, err := n.Normalize(u); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("Normalize() error = %v, want VALIDATION", err)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.png"), 1024)
	if !errors.Is(err, errors.ErrValidation) {
		t.Errorf("LoadFile() error = %v, want VALIDATION", err)
	}
}
