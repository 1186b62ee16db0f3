package pdf

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// baseDPI is the resolution of a page rendered at scale 1.0.
const baseDPI = 72.0

func init() {
	// pdfcpu otherwise creates a configuration directory under the user's home.
	api.DisableConfigDir()
}

// FitzOpener opens documents with MuPDF (go-fitz) for page count and
// rendering, and pdfcpu for embedded image extraction.
type FitzOpener struct{}

// Open validates path and opens the document.
func (FitzOpener) Open(path string) (Document, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}

	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	return &fitzDocument{
		path:  path,
		doc:   doc,
		pages: doc.NumPage(),
	}, nil
}

// fitzDocument serializes all access; neither backend is safe for
// concurrent use of a single handle.
type fitzDocument struct {
	mu     sync.Mutex
	path   string
	doc    *fitz.Document
	pages  int
	closed bool

	// pdfcpu context, loaded on the first Images call
	imgCtx    *model.Context
	imgErr    error
	imgLoaded bool
}

func (d *fitzDocument) NumPages() int {
	return d.pages
}

func (d *fitzDocument) Images(page int) ([]EmbeddedImage, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrClosed
	}
	if err := checkPage(page, d.pages); err != nil {
		return nil, err
	}

	ctx, err := d.imageContext()
	if err != nil {
		return nil, err
	}

	// pdfcpu page numbers are 1-based
	found, err := pdfcpu.ExtractPageImages(ctx, page+1, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list images on page %d: %w", page+1, err)
	}

	images := make([]EmbeddedImage, 0, len(found))
	for objNr, img := range found {
		if img.Reader == nil {
			continue
		}
		data, err := io.ReadAll(img)
		if err != nil {
			return nil, fmt.Errorf("failed to read image %s on page %d: %w", img.Name, page+1, err)
		}
		images = append(images, EmbeddedImage{
			Name:         img.Name,
			ObjectNumber: objNr,
			Format:       img.FileType,
			Data:         data,
		})
	}

	// Map iteration order is random; object numbers follow document order.
	sort.Slice(images, func(i, j int) bool {
		return images[i].ObjectNumber < images[j].ObjectNumber
	})

	return images, nil
}

func (d *fitzDocument) Render(page int, scale float64) (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrClosed
	}
	if err := checkPage(page, d.pages); err != nil {
		return nil, err
	}
	if scale <= 0 {
		return nil, fmt.Errorf("invalid render scale %v", scale)
	}

	img, err := d.doc.ImageDPI(page, baseDPI*scale)
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", page+1, err)
	}
	return img, nil
}

func (d *fitzDocument) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	d.imgCtx = nil

	return d.doc.Close()
}

// imageContext reads and optimizes the pdfcpu model once; image
// extraction relies on the page-to-image index built by the optimizer.
// Callers must hold d.mu.
func (d *fitzDocument) imageContext() (*model.Context, error) {
	if d.imgLoaded {
		return d.imgCtx, d.imgErr
	}
	d.imgLoaded = true

	data, err := os.ReadFile(d.path)
	if err != nil {
		d.imgErr = fmt.Errorf("failed to read %s: %w", d.path, err)
		return nil, d.imgErr
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		d.imgErr = fmt.Errorf("failed to parse %s: %w", d.path, err)
		return nil, d.imgErr
	}
	if err := api.ValidateContext(ctx); err != nil {
		d.imgErr = fmt.Errorf("failed to validate %s: %w", d.path, err)
		return nil, d.imgErr
	}
	if err := api.OptimizeContext(ctx); err != nil {
		d.imgErr = fmt.Errorf("failed to index images in %s: %w", d.path, err)
		return nil, d.imgErr
	}

	d.imgCtx = ctx
	return ctx, nil
}
