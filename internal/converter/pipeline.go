package converter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yuanying/pdf2epub/internal/epub"
	"github.com/yuanying/pdf2epub/internal/pdf"
)

// ConvertOptions holds options for the conversion pipeline.
type ConvertOptions struct {
	InputPath  string
	OutputPath string // defaults to DefaultOutputPath(InputPath)
	Title      string // defaults to the input base name

	Language   string
	Creator    string
	Generator  string
	Identifier epub.IdentifierFunc

	CompressionLevel int // deflate level 1..9; anything else means epub.DefaultCompressionLevel
	Workers          int // pages extracted concurrently; <= 1 is sequential

	Logger   *slog.Logger
	Reporter Reporter
	Opener   pdf.Opener
	Clock    func() time.Time
}

// Result describes a finished conversion.
type Result struct {
	OutputPath string
	TotalPages int
	Images     int
	Embedded   int
	Rendered   int
	Skipped    []int // 1-based page numbers without an image
	Duration   time.Duration
}

// Pipeline orchestrates the PDF to EPUB conversion.
type Pipeline struct {
	Options ConvertOptions

	mu    sync.Mutex
	state State
}

// NewPipeline creates a new conversion pipeline.
func NewPipeline(opts ConvertOptions) *Pipeline {
	return &Pipeline{Options: opts}
}

// DefaultOutputPath replaces the extension of input with .epub.
func DefaultOutputPath(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".epub"
}

// State returns the current lifecycle stage.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	prev := p.state
	p.state = s
	p.mu.Unlock()
	p.logger().Debug("pipeline state", "from", prev.String(), "to", s.String())
}

// Convert executes the conversion pipeline. Cancellation is observed between
// pages. The document is closed before Convert returns, on every path.
func (p *Pipeline) Convert(ctx context.Context) (result *Result, err error) {
	start := time.Now()
	logger := p.logger()
	reporter := p.reporter()
	outputPath := p.outputPath()

	defer func() {
		if err != nil {
			p.setState(StateFailed)
			logger.Error("conversion failed", "input", p.Options.InputPath, "error", err)
			reporter.Failure(err.Error())
			return
		}
		p.setState(StateDone)
		reporter.Success(outputPath)
	}()

	doc, err := p.opener().Open(p.Options.InputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDocumentOpen, err)
	}
	p.setState(StateOpened)
	defer func() {
		if cerr := doc.Close(); cerr != nil {
			logger.Warn("failed to close document", "input", p.Options.InputPath, "error", cerr)
		}
	}()

	total := doc.NumPages()
	if total <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, p.Options.InputPath)
	}
	logger.Info("converting", "input", p.Options.InputPath, "pages", total, "output", outputPath)

	p.setState(StateProcessing)
	pages, err := p.extractPages(ctx, doc, total, reporter)
	if err != nil {
		return nil, err
	}

	result = &Result{OutputPath: outputPath, TotalPages: total}
	images := make([][]byte, 0, total)
	for i, page := range pages {
		if page == nil {
			result.Skipped = append(result.Skipped, i+1)
			continue
		}
		page.Sequence = len(images) + 1
		images = append(images, page.Data)
		switch page.Source {
		case SourceEmbedded:
			result.Embedded++
		case SourceRendered:
			result.Rendered++
		}
	}
	result.Images = len(images)
	if len(result.Skipped) > 0 {
		logger.Warn("pages skipped", "count", len(result.Skipped), "pages", result.Skipped)
	}

	p.setState(StateAssembling)
	bundle, err := p.builder().Build(p.title(), images)
	if err != nil {
		return nil, wrapStage(ErrAssembly, err)
	}

	p.setState(StatePackaging)
	if err := epub.NewPackager(p.Options.CompressionLevel).Package(bundle, outputPath); err != nil {
		return nil, wrapStage(ErrPackaging, err)
	}

	result.Duration = time.Since(start)
	logger.Info("conversion complete",
		"output", outputPath,
		"images", result.Images,
		"embedded", result.Embedded,
		"rendered", result.Rendered,
		"skipped", len(result.Skipped),
		"duration", result.Duration,
	)
	return result, nil
}

// extractPages returns one entry per page, nil for pages that produced no image.
func (p *Pipeline) extractPages(ctx context.Context, doc pdf.Document, total int, reporter Reporter) ([]*PageImage, error) {
	extractor := NewPageExtractor(p.logger())
	pages := make([]*PageImage, total)

	if p.Options.Workers <= 1 {
		for i := 0; i < total; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			pages[i] = p.extractPage(extractor, doc, i)
			reporter.Progress(i+1, total)
		}
		return pages, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Options.Workers)

	var mu sync.Mutex
	done := 0
	for i := 0; i < total; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			page := p.extractPage(extractor, doc, i)

			mu.Lock()
			defer mu.Unlock()
			pages[i] = page
			done++
			reporter.Progress(done, total)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return pages, nil
}

func (p *Pipeline) extractPage(extractor *PageExtractor, doc pdf.Document, index int) *PageImage {
	img, err := extractor.Extract(doc, index)
	if err != nil {
		p.logger().Warn("skipping page", "page", index+1, "error", err)
		return nil
	}
	p.logger().Debug("page extracted", "page", index+1, "source", img.Source, "bytes", len(img.Data))
	return &img
}

// wrapStage makes err match sentinel without repeating its message.
func wrapStage(sentinel, err error) error {
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

func (p *Pipeline) builder() *epub.Builder {
	b := epub.NewBuilder()
	if p.Options.Language != "" {
		b.Language = p.Options.Language
	}
	if p.Options.Generator != "" {
		b.Generator = p.Options.Generator
	}
	b.Creator = p.Options.Creator
	if p.Options.Clock != nil {
		b.Clock = p.Options.Clock
	}
	if p.Options.Identifier != nil {
		b.Identifier = p.Options.Identifier
	}
	return b
}

func (p *Pipeline) title() string {
	if t := strings.TrimSpace(p.Options.Title); t != "" {
		return t
	}
	base := filepath.Base(p.Options.InputPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (p *Pipeline) outputPath() string {
	if p.Options.OutputPath != "" {
		return p.Options.OutputPath
	}
	return DefaultOutputPath(p.Options.InputPath)
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Options.Logger == nil {
		return slog.Default()
	}
	return p.Options.Logger
}

func (p *Pipeline) reporter() Reporter {
	if p.Options.Reporter == nil {
		return NopReporter{}
	}
	return p.Options.Reporter
}

func (p *Pipeline) opener() pdf.Opener {
	if p.Options.Opener == nil {
		return pdf.FitzOpener{}
	}
	return p.Options.Opener
}
