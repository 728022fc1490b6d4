// Package archive packages batch output into a single zip file.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/flate"
)

// Writer streams files into a zip archive. Entries are stored with
// klauspost's flate, which is considerably faster than the stdlib
// deflate at the same ratio.
type Writer struct {
	f    *os.File
	zw   *zip.Writer
	used map[string]int
}

// Create opens a new archive at path, truncating any existing file.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}

	zw := zip.NewWriter(f)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestSpeed)
	})

	return &Writer{f: f, zw: zw, used: make(map[string]int)}, nil
}

// entryName flattens a path to its base name, numbering repeats so two
// sources with the same base name from different directories both
// survive into the archive.
func (w *Writer) entryName(name string) string {
	base := filepath.Base(name)
	n := w.used[base]
	w.used[base] = n + 1
	if n == 0 {
		return base
	}
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return fmt.Sprintf("%s-%d%s", stem, n+1, ext)
}

// Add writes one file into the archive under its base name. Encoded
// images barely deflate, so entries are stored rather than recompressed.
func (w *Writer) Add(name string, data []byte) error {
	header := &zip.FileHeader{
		Name:   w.entryName(name),
		Method: zip.Store,
	}
	entry, err := w.zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	if _, err := entry.Write(data); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	return nil
}

// AddCompressed writes one file with deflate compression, for report
// text and other compressible entries.
func (w *Writer) AddCompressed(name string, data []byte) error {
	entry, err := w.zw.Create(w.entryName(name))
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	if _, err := entry.Write(data); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	return nil
}

// Close flushes the central directory and closes the file.
func (w *Writer) Close() error {
	if err := w.zw.Close(); err != nil {
		w.f.Close()
		return fmt.Errorf("archive: %w", err)
	}
	return w.f.Close()
}
