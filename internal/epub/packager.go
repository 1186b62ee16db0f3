package epub

import (
	"archive/zip"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/flate"
)

// DefaultCompressionLevel is the deflate level used for every entry but mimetype
const DefaultCompressionLevel = flate.BestCompression

// Packager writes bundles as OCF zip containers
type Packager struct {
	CompressionLevel int
}

// NewPackager creates a packager. Levels outside 1..9 use DefaultCompressionLevel
func NewPackager(level int) *Packager {
	if level < flate.BestSpeed || level > flate.BestCompression {
		level = DefaultCompressionLevel
	}
	return &Packager{CompressionLevel: level}
}

// Package writes bundle to destPath. An existing file at destPath is removed
// first; the archive is written to a temporary sibling and renamed into place
// The parent directory must exist
func (p *Packager) Package(bundle *Bundle, destPath string) (err error) {
	if err := checkBundle(bundle); err != nil {
		return err
	}

	if info, statErr := os.Lstat(destPath); statErr == nil {
		if info.IsDir() {
			return fmt.Errorf("%w: %s is a directory", ErrPackaging, destPath)
		}
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("%w: remove existing %s: %w", ErrPackaging, destPath, err)
		}
	} else if !errors.Is(statErr, fs.ErrNotExist) {
		return fmt.Errorf("%w: %w", ErrPackaging, statErr)
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), "."+filepath.Base(destPath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create output: %w", ErrPackaging, err)
	}
	closed := false
	defer func() {
		if err == nil {
			return
		}
		if !closed {
			tmp.Close()
		}
		os.Remove(tmp.Name())
	}()

	if err := p.WriteTo(tmp, bundle); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("%w: sync output: %w", ErrPackaging, err)
	}
	closed = true
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close output: %w", ErrPackaging, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("%w: chmod output: %w", ErrPackaging, err)
	}
	if err := os.Rename(tmp.Name(), destPath); err != nil {
		return fmt.Errorf("%w: rename output: %w", ErrPackaging, err)
	}

	return nil
}

// WriteTo writes bundle as a zip archive to w
func (p *Packager) WriteTo(w io.Writer, bundle *Bundle) error {
	if err := checkBundle(bundle); err != nil {
		return err
	}

	level := p.CompressionLevel
	if level < flate.BestSpeed || level > flate.BestCompression {
		level = DefaultCompressionLevel
	}

	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})

	if err := writeMimetype(zw, bundle.Files[0].Data); err != nil {
		return err
	}

	for _, f := range bundle.Files[1:] {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.Name,
			Method:   zip.Deflate,
			Modified: bundle.Created,
		})
		if err != nil {
			return fmt.Errorf("%w: create %s: %w", ErrPackaging, f.Name, err)
		}
		if _, err := fw.Write(f.Data); err != nil {
			return fmt.Errorf("%w: write %s: %w", ErrPackaging, f.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("%w: finish archive: %w", ErrPackaging, err)
	}
	return nil
}

// writeMimetype writes the stored mimetype entry with sizes and CRC in the
// local header: no data descriptor and no extra field
func writeMimetype(zw *zip.Writer, data []byte) error {
	fh := &zip.FileHeader{
		Name:               MimetypePath,
		Method:             zip.Store,
		CRC32:              crc32.ChecksumIEEE(data),
		CompressedSize64:   uint64(len(data)),
		UncompressedSize64: uint64(len(data)),
	}
	fw, err := zw.CreateRaw(fh)
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrPackaging, MimetypePath, err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrPackaging, MimetypePath, err)
	}
	return nil
}

func checkBundle(bundle *Bundle) error {
	if bundle == nil || len(bundle.Files) == 0 {
		return fmt.Errorf("%w: empty bundle", ErrPackaging)
	}
	if bundle.Files[0].Name != MimetypePath {
		return fmt.Errorf("%w: first entry is %q, want %q", ErrPackaging, bundle.Files[0].Name, MimetypePath)
	}
	for _, f := range bundle.Files {
		if !isArchivePath(f.Name) {
			return fmt.Errorf("%w: invalid archive path %q", ErrPackaging, f.Name)
		}
	}
	return nil
}

// isArchivePath reports whether name is a clean, relative, slash-separated path
func isArchivePath(name string) bool {
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, `\`) {
		return false
	}
	cleaned := path.Clean(name)
	return cleaned == name && cleaned != ".." && !strings.HasPrefix(cleaned, "../")
}
