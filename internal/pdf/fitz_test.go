package pdf

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// gradient is the source picture placed on the first and last page.
func gradient() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 40, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 6), G: uint8(y * 8), B: 100, A: 255})
		}
	}
	return img
}

// writeScanPDF builds a three page PDF: an embedded JPEG, a blank page
// without images, and an embedded PNG.
func writeScanPDF(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	var jpg, pngBuf bytes.Buffer
	if err := jpeg.Encode(&jpg, gradient(), &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("jpeg.Encode() error = %v", err)
	}
	if err := png.Encode(&pngBuf, gradient()); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	jpgPath := filepath.Join(dir, "page1.jpg")
	pngPath := filepath.Join(dir, "page3.png")
	if err := os.WriteFile(jpgPath, jpg.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := os.WriteFile(pngPath, pngBuf.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	path := filepath.Join(dir, "scan.pdf")
	if err := api.ImportImagesFile([]string{jpgPath, pngPath}, path, nil, model.NewDefaultConfiguration()); err != nil {
		t.Fatalf("ImportImagesFile() error = %v", err)
	}
	if err := api.InsertPagesFile(path, "", []string{"2"}, true, nil, model.NewDefaultConfiguration()); err != nil {
		t.Fatalf("InsertPagesFile() error = %v", err)
	}
	return path
}

func samePixels(a, b image.Image) bool {
	if a.Bounds() != b.Bounds() {
		return false
	}
	if ra, ok := a.(*image.RGBA); ok {
		if rb, ok := b.(*image.RGBA); ok {
			return bytes.Equal(ra.Pix, rb.Pix)
		}
	}
	r := a.Bounds()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if a.At(x, y) != b.At(x, y) {
				return false
			}
		}
	}
	return true
}

func TestFitzOpener_MissingFile(t *testing.T) {
	_, err := FitzOpener{}.Open(filepath.Join(t.TempDir(), "missing.pdf"))
	if err == nil {
		t.Fatal("Open() error = nil, want error for missing file")
	}
}

func TestFitzOpener_NotADocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.pdf")
	if err := os.WriteFile(path, []byte("not a pdf at all"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	doc, err := FitzOpener{}.Open(path)
	if err == nil {
		doc.Close()
		t.Fatal("Open() error = nil, want error for garbage input")
	}
}

func TestFitzDocument_Images(t *testing.T) {
	doc, err := FitzOpener{}.Open(writeScanPDF(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer doc.Close()

	if got := doc.NumPages(); got != 3 {
		t.Fatalf("NumPages() = %d, want 3", got)
	}

	tests := []struct {
		page   int
		format string // empty for a page without images
	}{
		{0, "jpg"},
		{1, ""},
		{2, "png"},
	}
	for _, tt := range tests {
		images, err := doc.Images(tt.page)
		if err != nil {
			t.Fatalf("Images(%d) error = %v", tt.page, err)
		}
		if tt.format == "" {
			if len(images) != 0 {
				t.Errorf("Images(%d) = %d images, want none", tt.page, len(images))
			}
			continue
		}
		if len(images) != 1 {
			t.Fatalf("Images(%d) = %d images, want 1", tt.page, len(images))
		}
		if images[0].Format != tt.format {
			t.Errorf("Images(%d) format = %q, want %q", tt.page, images[0].Format, tt.format)
		}
		cfg, _, err := image.DecodeConfig(bytes.NewReader(images[0].Data))
		if err != nil {
			t.Fatalf("Images(%d) data does not decode: %v", tt.page, err)
		}
		if cfg.Width != 40 || cfg.Height != 30 {
			t.Errorf("Images(%d) = %dx%d, want 40x30", tt.page, cfg.Width, cfg.Height)
		}
	}

	// PNG content survives extraction losslessly.
	images, err := doc.Images(2)
	if err != nil {
		t.Fatalf("Images(2) error = %v", err)
	}
	img, err := png.Decode(bytes.NewReader(images[0].Data))
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	r, g, b, _ := img.At(10, 10).RGBA()
	if r>>8 != 60 || g>>8 != 80 || b>>8 != 100 {
		t.Errorf("pixel (10,10) = (%d,%d,%d), want (60,80,100)", r>>8, g>>8, b>>8)
	}

	first, err := doc.Images(0)
	if err != nil {
		t.Fatalf("Images(0) error = %v", err)
	}
	if first[0].ObjectNumber >= images[0].ObjectNumber {
		t.Errorf("object numbers %d (page 1) and %d (page 3) are not in document order",
			first[0].ObjectNumber, images[0].ObjectNumber)
	}
}

func TestFitzDocument_RenderIsDeterministic(t *testing.T) {
	doc, err := FitzOpener{}.Open(writeScanPDF(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer doc.Close()

	first, err := doc.Render(1, 2.0)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	second, err := doc.Render(1, 2.0)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !samePixels(first, second) {
		t.Fatal("rendered pixels differ between runs")
	}

	half, err := doc.Render(1, 1.0)
	if err != nil {
		t.Fatalf("Render(scale=1) error = %v", err)
	}
	if got, want := first.Bounds().Dx(), 2*half.Bounds().Dx(); got < want-2 || got > want+2 {
		t.Errorf("2x width = %d, want about %d", got, want)
	}
	if got, want := first.Bounds().Dy(), 2*half.Bounds().Dy(); got < want-2 || got > want+2 {
		t.Errorf("2x height = %d, want about %d", got, want)
	}
}

func TestFitzDocument_PageBoundsAndClose(t *testing.T) {
	doc, err := FitzOpener{}.Open(writeScanPDF(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if _, err := doc.Render(doc.NumPages(), 1.0); !errors.Is(err, ErrPageOutOfRange) {
		t.Errorf("Render(out of range) error = %v, want ErrPageOutOfRange", err)
	}
	if _, err := doc.Images(-1); !errors.Is(err, ErrPageOutOfRange) {
		t.Errorf("Images(-1) error = %v, want ErrPageOutOfRange", err)
	}

	if err := doc.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := doc.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if _, err := doc.Render(0, 1.0); !errors.Is(err, ErrClosed) {
		t.Errorf("Render after Close error = %v, want ErrClosed", err)
	}
}
