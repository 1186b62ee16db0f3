package converter

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/yuanying/pdf2epub/internal/pdf"
)

const (
	jpegQuality      = 95
	renderScale      = 2.0
	defaultMaxPixels = 100 * 1000 * 1000 // 100 megapixels
)

var errNoEmbeddedImage = errors.New("page has no embedded image")

// ImageSource records how a page image was obtained.
type ImageSource string

const (
	SourceEmbedded ImageSource = "embedded"
	SourceRendered ImageSource = "rendered"
)

// PageImage is the JPEG encoded image of one source page.
type PageImage struct {
	Sequence  int // 1-based position in the book, set after renumbering
	PageIndex int // zero-based source page
	Source    ImageSource
	Data      []byte
	Width     int
	Height    int
}

// PageExtractor turns a page into a single RGB JPEG. The first embedded
// image is preferred; the rendered page is the fallback.
type PageExtractor struct {
	Logger    *slog.Logger
	MaxPixels int // decode limit for embedded images (width * height)
}

// NewPageExtractor creates an extractor with defaults.
func NewPageExtractor(logger *slog.Logger) *PageExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageExtractor{
		Logger:    logger,
		MaxPixels: defaultMaxPixels,
	}
}

// Extract produces the image of page. An error wraps ErrPageExtraction and
// carries the causes of both attempts.
func (e *PageExtractor) Extract(doc pdf.Document, page int) (PageImage, error) {
	img, embeddedErr := e.fromEmbedded(doc, page)
	if embeddedErr == nil {
		return img, nil
	}
	e.logger().Debug("falling back to page render", "page", page+1, "reason", embeddedErr)

	img, renderErr := e.fromRender(doc, page)
	if renderErr != nil {
		return PageImage{}, fmt.Errorf("%w: page %d: %w; render: %w", ErrPageExtraction, page+1, embeddedErr, renderErr)
	}
	return img, nil
}

func (e *PageExtractor) fromEmbedded(doc pdf.Document, page int) (PageImage, error) {
	images, err := doc.Images(page)
	if err != nil {
		return PageImage{}, fmt.Errorf("list images: %w", err)
	}
	if len(images) == 0 {
		return PageImage{}, errNoEmbeddedImage
	}
	first := images[0]

	cfg, _, err := image.DecodeConfig(bytes.NewReader(first.Data))
	if err != nil {
		return PageImage{}, fmt.Errorf("decode embedded image %s: %w", first.Name, err)
	}
	pixels := uint64(cfg.Width) * uint64(cfg.Height)
	if e.MaxPixels > 0 && pixels > uint64(e.MaxPixels) {
		return PageImage{}, fmt.Errorf("embedded image %s too large to decode: %dx%d (%d pixels)", first.Name, cfg.Width, cfg.Height, pixels)
	}

	src, err := imaging.Decode(bytes.NewReader(first.Data))
	if err != nil {
		return PageImage{}, fmt.Errorf("decode embedded image %s: %w", first.Name, err)
	}
	return encodePage(src, page, SourceEmbedded)
}

func (e *PageExtractor) fromRender(doc pdf.Document, page int) (PageImage, error) {
	src, err := doc.Render(page, renderScale)
	if err != nil {
		return PageImage{}, fmt.Errorf("render page: %w", err)
	}
	return encodePage(src, page, SourceRendered)
}

func (e *PageExtractor) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

func encodePage(src image.Image, page int, source ImageSource) (PageImage, error) {
	if src == nil || src.Bounds().Empty() {
		return PageImage{}, errors.New("empty image")
	}

	flat := flattenRGB(src)
	data, err := encodeJPEG(flat, jpegQuality)
	if err != nil {
		return PageImage{}, fmt.Errorf("jpeg encode failed: %w", err)
	}

	return PageImage{
		PageIndex: page,
		Source:    source,
		Data:      data,
		Width:     flat.Bounds().Dx(),
		Height:    flat.Bounds().Dy(),
	}, nil
}

// flattenRGB composites src onto an opaque white canvas. Gray, CMYK,
// paletted and alpha-carrying images all come out as opaque NRGBA.
func flattenRGB(src image.Image) *image.NRGBA {
	b := src.Bounds()
	canvas := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(canvas, src, image.Pt(0, 0), 1.0)
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
