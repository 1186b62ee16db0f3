package converter

import (
	"errors"

	"github.com/yuanying/pdf2epub/internal/epub"
)

var (
	ErrEmptyDocument = errors.New("document has no pages")
	ErrDocumentOpen  = errors.New("failed to open document")

	// ErrPageExtraction is recovered by the pipeline: the page is skipped
	// and never fails a conversion on its own.
	ErrPageExtraction = errors.New("failed to extract page image")

	ErrAssembly  = epub.ErrAssembly
	ErrPackaging = epub.ErrPackaging
)
