// Package filex holds local-file helpers: download directories, byte-size
// labels and a disk-backed upload source.
package filex

import (
	"fmt"
	"io"
	"math"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// EnsureDir creates dir (and parents) if needed and returns its absolute path.
// A relative dir is resolved against the current working directory.
func EnsureDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", dir, err)
	}

	if err := os.MkdirAll(abs, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", abs, err)
	}

	return abs, nil
}

// FormatBytes renders a size the way the attachment UI shows it:
// plain bytes below 1 KiB, otherwise KiB/MiB/GiB with one decimal under 10
// and none from 10 upward. Halves round up, so 10.5 MiB reads "11 MiB".
func FormatBytes(n int64) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}

	units := []string{"KiB", "MiB", "GiB"}
	value := float64(n) / 1024
	unit := 0
	for value >= 1024 && unit < len(units)-1 {
		value /= 1024
		unit++
	}

	if value >= 10 {
		return fmt.Sprintf("%d %s", int64(math.Floor(value+0.5)), units[unit])
	}
	return fmt.Sprintf("%.1f %s", math.Floor(value*10+0.5)/10, units[unit])
}

// LocalFile is an upload source backed by a file on disk.
type LocalFile struct {
	path        string
	name        string
	size        int64
	contentType string
}

// OpenLocal stats path and resolves its content type: the extension's
// registered type first, content sniffing second. Parameters such as
// "; charset=utf-8" are stripped so the type compares cleanly against an
// allow-list.
func OpenLocal(path string) (*LocalFile, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if ct == "" {
		if m, err := mimetype.DetectFile(path); err == nil {
			ct = m.String()
		}
	}

	return &LocalFile{
		path:        path,
		name:        filepath.Base(path),
		size:        fi.Size(),
		contentType: baseMediaType(ct),
	}, nil
}

func baseMediaType(ct string) string {
	if ct == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return ct
	}
	return mt
}

func (f *LocalFile) Name() string        { return f.name }
func (f *LocalFile) Size() int64         { return f.size }
func (f *LocalFile) ContentType() string { return f.contentType }
func (f *LocalFile) Path() string        { return f.path }

func (f *LocalFile) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}
