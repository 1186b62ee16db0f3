package pdf

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidatePath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "book.pdf")
	if err := os.WriteFile(file, []byte("%PDF-1.4\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{name: "existing file", path: file},
		{name: "empty", path: "  ", wantErr: "cannot be empty"},
		{name: "missing", path: filepath.Join(dir, "missing.pdf"), wantErr: "does not exist"},
		{name: "directory", path: dir, wantErr: "is a directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.path)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("ValidatePath() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("ValidatePath() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestCheckPage(t *testing.T) {
	if err := checkPage(0, 1); err != nil {
		t.Fatalf("checkPage(0, 1) error = %v", err)
	}
	for _, page := range []int{-1, 3, 4} {
		if err := checkPage(page, 3); !errors.Is(err, ErrPageOutOfRange) {
			t.Errorf("checkPage(%d, 3) error = %v, want ErrPageOutOfRange", page, err)
		}
	}
}

type stubDocument struct{ pages int }

func (s stubDocument) NumPages() int { return s.pages }

func (s stubDocument) Images(int) ([]EmbeddedImage, error) { return nil, nil }

func (s stubDocument) Render(int, float64) (image.Image, error) { return nil, nil }

func (s stubDocument) Close() error { return nil }

func TestOpenerFunc(t *testing.T) {
	var gotPath string
	opener := OpenerFunc(func(path string) (Document, error) {
		gotPath = path
		return stubDocument{pages: 2}, nil
	})

	doc, err := opener.Open("in.pdf")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if gotPath != "in.pdf" {
		t.Errorf("path = %q, want %q", gotPath, "in.pdf")
	}
	if doc.NumPages() != 2 {
		t.Errorf("NumPages() = %d, want 2", doc.NumPages())
	}
}
