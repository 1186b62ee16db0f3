package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/yuanying/pdf2epub/internal/config"
	"github.com/yuanying/pdf2epub/internal/converter"
	"github.com/yuanying/pdf2epub/internal/epub"
)

// reportedError marks an error the progress reporter has already printed.
type reportedError struct {
	err error
}

func (e reportedError) Error() string { return e.err.Error() }

func (e reportedError) Unwrap() error { return e.err }

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pdf2epub <input.pdf>",
		Short: "Convert PDF files to image-only EPUB books",
		Long: `pdf2epub converts a PDF into a fixed, image-only EPUB 2 book.

Every page becomes one full-page JPEG. The first embedded image of a page is
used when there is one; otherwise the page is rendered.`,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readCLIOptions(cmd, args)
			if err != nil {
				return err
			}

			noProgress, _ := cmd.Flags().GetBool("no-progress")
			opts.Reporter = newProgressReporter(cmd.OutOrStdout(), cmd.ErrOrStderr(), !noProgress && isTerminal(cmd.ErrOrStderr()))

			result, err := converter.NewPipeline(opts).Convert(cmd.Context())
			if err != nil {
				return reportedError{err: fmt.Errorf("conversion failed: %w", err)}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "  pages: %d, images: %d (embedded %d, rendered %d)\n",
				result.TotalPages, result.Images, result.Embedded, result.Rendered)
			if len(result.Skipped) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "  skipped pages: %v\n", result.Skipped)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringP("output", "o", "", "Output file path (default: input with .epub extension)")
	flags.StringP("title", "t", "", "Book title (default: input file name)")
	flags.StringP("author", "a", "", "Book creator")
	flags.String("language", "", "Book language (default from config: en)")
	flags.String("identifier", "", "Identifier scheme: timestamp or uuid")
	flags.Int("compression", 0, "Deflate level 1-9 (0: best compression)")
	flags.IntP("workers", "w", 1, "Pages extracted concurrently")
	flags.Bool("no-progress", false, "Disable the progress bar")
	addLoggingFlags(cmd)

	cmd.AddCommand(newVerifyCmd())
	return cmd
}

func addLoggingFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("config", "", "Path to a YAML config file")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("log-format", "", "Log format: text or json")
	flags.BoolP("verbose", "v", false, "Enable debug logging")
}

// readCLIOptions merges the config file, environment and flags into
// converter options. Flags win only when set explicitly.
func readCLIOptions(cmd *cobra.Command, args []string) (converter.ConvertOptions, error) {
	inputPath := args[0]
	flags := cmd.Flags()

	configPath, _ := flags.GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return converter.ConvertOptions{}, err
	}

	if flags.Changed("language") {
		cfg.Book.Language, _ = flags.GetString("language")
		if strings.TrimSpace(cfg.Book.Language) == "" {
			return converter.ConvertOptions{}, errors.New("--language must not be empty")
		}
	}
	if flags.Changed("author") {
		cfg.Book.Creator, _ = flags.GetString("author")
	}
	if flags.Changed("identifier") {
		cfg.Book.Identifier, _ = flags.GetString("identifier")
		switch cfg.Book.Identifier {
		case "timestamp", "uuid":
		default:
			return converter.ConvertOptions{}, fmt.Errorf("invalid --identifier %q (want timestamp or uuid)", cfg.Book.Identifier)
		}
	}
	if flags.Changed("compression") {
		cfg.Output.Compression, _ = flags.GetInt("compression")
		if cfg.Output.Compression < 0 || cfg.Output.Compression > 9 {
			return converter.ConvertOptions{}, fmt.Errorf("--compression must be between 0 and 9, got %d", cfg.Output.Compression)
		}
	}
	if flags.Changed("workers") {
		cfg.Conversion.Workers, _ = flags.GetInt("workers")
		if cfg.Conversion.Workers < 1 {
			return converter.ConvertOptions{}, fmt.Errorf("--workers must be at least 1, got %d", cfg.Conversion.Workers)
		}
	}

	logger, err := loggerFromFlags(cmd, cfg)
	if err != nil {
		return converter.ConvertOptions{}, err
	}

	outputPath, _ := flags.GetString("output")
	if outputPath == "" {
		outputPath = converter.DefaultOutputPath(inputPath)
	}
	title, _ := flags.GetString("title")

	return converter.ConvertOptions{
		InputPath:        inputPath,
		OutputPath:       outputPath,
		Title:            title,
		Language:         cfg.Book.Language,
		Creator:          cfg.Book.Creator,
		Generator:        cfg.Book.Generator,
		Identifier:       epub.IdentifierByName(cfg.Book.Identifier),
		CompressionLevel: cfg.Output.Compression,
		Workers:          cfg.Conversion.Workers,
		Logger:           logger,
	}, nil
}

func loggerFromFlags(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	flags := cmd.Flags()

	level := cfg.Logging.Level
	if flags.Changed("log-level") {
		level, _ = flags.GetString("log-level")
		switch strings.ToLower(level) {
		case "debug", "info", "warn", "error":
		default:
			return nil, fmt.Errorf("invalid --log-level %q (want debug, info, warn or error)", level)
		}
	}

	format := cfg.Logging.Format
	if flags.Changed("log-format") {
		format, _ = flags.GetString("log-format")
		switch strings.ToLower(format) {
		case "text", "json":
		default:
			return nil, fmt.Errorf("invalid --log-format %q (want text or json)", format)
		}
	}

	if verbose, _ := flags.GetBool("verbose"); verbose {
		level = "debug"
	}

	return buildLogger(cmd.ErrOrStderr(), level, format), nil
}

func buildLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if strings.ToLower(format) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		var reported reportedError
		if !errors.As(err, &reported) {
			color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}
