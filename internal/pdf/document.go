// Package pdf provides page-addressable access to source documents:
// page count, embedded raster images and full-page rendering.
package pdf

import (
	"errors"
	"fmt"
	"image"
	"os"
	"strings"
)

var (
	ErrPageOutOfRange = errors.New("page index out of range")
	ErrClosed         = errors.New("document is closed")
)

// EmbeddedImage is a raster image stored in a page's resources.
type EmbeddedImage struct {
	Name         string // Resource name, e.g. "Im1"
	ObjectNumber int
	Format       string // File type reported by the backend: "jpg", "png", "tif", ...
	Data         []byte
}

// Document is an open, page-addressable document. Page indexes are zero-based.
type Document interface {
	// NumPages returns the number of pages.
	NumPages() int

	// Images returns the raster images embedded in a page, in enumeration order.
	// A page without images returns an empty slice and no error.
	Images(page int) ([]EmbeddedImage, error)

	// Render rasterizes a page at the given linear scale (1.0 = 72 DPI).
	Render(page int, scale float64) (image.Image, error)

	// Close releases the document. Calling other methods after Close fails.
	Close() error
}

// Opener opens documents from the file system.
type Opener interface {
	Open(path string) (Document, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(path string) (Document, error)

// Open calls f(path).
func (f OpenerFunc) Open(path string) (Document, error) {
	return f(path)
}

// ValidatePath checks that path names an existing, readable regular file.
func ValidatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("file path cannot be empty")
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file does not exist: %s", path)
		}
		return fmt.Errorf("cannot access file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot open file %s: %w", path, err)
	}
	f.Close()

	return nil
}

func checkPage(page, count int) error {
	if page < 0 || page >= count {
		return fmt.Errorf("%w: %d (document has %d pages)", ErrPageOutOfRange, page, count)
	}
	return nil
}
