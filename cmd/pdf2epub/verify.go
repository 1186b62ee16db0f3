package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/yuanying/pdf2epub/internal/epub"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <book.epub>",
		Short: "Check an EPUB container and its manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			report, err := epub.Verify(args[0])
			if report == nil {
				return fmt.Errorf("verify %s: %w", args[0], err)
			}

			fmt.Fprintf(out, "%s\n", report.Path)
			fmt.Fprintf(out, "  title:      %s\n", report.Title)
			fmt.Fprintf(out, "  identifier: %s\n", report.Identifier)
			fmt.Fprintf(out, "  entries:    %d\n", report.Entries)
			fmt.Fprintf(out, "  manifest:   %d\n", report.Manifest)
			fmt.Fprintf(out, "  images:     %d\n", report.Images)

			if err != nil {
				for _, p := range report.Problems {
					color.New(color.FgRed).Fprintf(out, "✗ %s\n", p)
				}
				return reportedError{err: fmt.Errorf("verify %s: %d problem(s) found", args[0], len(report.Problems))}
			}
			color.New(color.FgGreen).Fprintf(out, "✓ %s is valid\n", args[0])
			return nil
		},
	}
}
