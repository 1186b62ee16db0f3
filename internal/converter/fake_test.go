package converter

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/yuanying/pdf2epub/internal/pdf"
)

var errFakeRender = errors.New("fake render failure")

// adobeCMYKJPEG is an 8x8 baseline JPEG with four components and an Adobe
// APP14 marker (transform 0), filled with C=0 M=200 Y=40 K=0. Samples are
// stored inverted, as Adobe writes them.
var adobeCMYKJPEG = []byte{
	0xFF, 0xD8, 0xFF, 0xEE, 0x00, 0x0E, 0x41, 0x64, 0x6F, 0x62, 0x65, 0x00, 0x64, 0x00, 0x00, 0x00,
	0x00, 0x00, 0xFF, 0xDB, 0x00, 0x43, 0x00, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01,
	0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01,
	0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01,
	0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01,
	0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0xFF, 0xC0, 0x00, 0x14, 0x08, 0x00, 0x08, 0x00, 0x08,
	0x04, 0x01, 0x11, 0x00, 0x02, 0x11, 0x00, 0x03, 0x11, 0x00, 0x04, 0x11, 0x00, 0xFF, 0xC4, 0x00,
	0x26, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x0A, 0x10, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0xFF, 0xDA, 0x00, 0x0E, 0x04, 0x01, 0x00, 0x02, 0x00, 0x03, 0x00,
	0x04, 0x00, 0x00, 0x3F, 0x00, 0x7F, 0x03, 0x6E, 0x57, 0x07, 0xF0, 0xFF, 0xD9,
}

type fakePage struct {
	images    []pdf.EmbeddedImage
	imagesErr error
	render    image.Image
	renderErr error
}

// fakeDocument is an in-memory pdf.Document. It is safe for concurrent use.
type fakeDocument struct {
	mu       sync.Mutex
	pages    []fakePage
	closeErr error

	closed       int
	renderScales []float64
}

func (d *fakeDocument) NumPages() int {
	return len(d.pages)
}

func (d *fakeDocument) Images(page int) ([]pdf.EmbeddedImage, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed > 0 {
		return nil, pdf.ErrClosed
	}
	p := d.pages[page]
	return p.images, p.imagesErr
}

func (d *fakeDocument) Render(page int, scale float64) (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed > 0 {
		return nil, pdf.ErrClosed
	}
	d.renderScales = append(d.renderScales, scale)
	p := d.pages[page]
	if p.renderErr != nil {
		return nil, p.renderErr
	}
	if p.render == nil {
		return nil, errFakeRender
	}
	return p.render, nil
}

func (d *fakeDocument) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed++
	return d.closeErr
}

func (d *fakeDocument) closeCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func openerFor(doc pdf.Document) pdf.Opener {
	return pdf.OpenerFunc(func(string) (pdf.Document, error) {
		return doc, nil
	})
}

// renderedPage returns a page without embedded images that renders as a
// solid w x h image of color c.
func renderedPage(w, h int, c color.NRGBA) fakePage {
	return fakePage{render: makeSolidNRGBA(w, h, c)}
}

func embeddedPage(t *testing.T, data []byte) fakePage {
	t.Helper()
	return fakePage{
		images: []pdf.EmbeddedImage{{Name: "Im1", ObjectNumber: 7, Format: "jpg", Data: data}},
		render: makeSolidNRGBA(10, 10, color.NRGBA{A: 255}),
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func makeSolidNRGBA(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func makePatternNRGBA(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r := uint8((x*17 + y*11) % 256)
			g := uint8((x*7 + y*23) % 256)
			b := uint8((x*3 + y*13) % 256)
			img.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return img
}

func mustEncodeJPEG(t *testing.T, img image.Image, quality int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		t.Fatalf("jpeg.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func mustEncodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func mustEncodeGIF(t *testing.T, img *image.Paletted) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := gif.Encode(&buf, img, nil); err != nil {
		t.Fatalf("gif.Encode() error = %v", err)
	}
	return buf.Bytes()
}

// decodeOutput decodes a produced page and checks that it is a 3-component JPEG.
func decodeOutput(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("image.Decode() error = %v", err)
	}
	if format != "jpeg" {
		t.Fatalf("format = %q, want jpeg", format)
	}
	if _, ok := img.(*image.YCbCr); !ok {
		t.Fatalf("decoded %T, want *image.YCbCr (RGB JPEG)", img)
	}
	return img
}

// near reports whether two 8-bit channel values differ by at most tol.
func near(a, b uint8, tol int) bool {
	d := int(a) - int(b)
	return d >= -tol && d <= tol
}

func rgbAt(img image.Image, x, y int) (uint8, uint8, uint8) {
	c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
	return c.R, c.G, c.B
}
