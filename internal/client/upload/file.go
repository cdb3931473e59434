package upload

import (
	"bytes"
	"io"
)

// File is one local file offered for upload.
type File interface {
	Name() string
	Size() int64
	// ContentType is the declared MIME type; empty when unknown.
	ContentType() string
	// Open returns a fresh reader over the whole file. It is called once per
	// attempt, so retries re-read from the start.
	Open() (io.ReadCloser, error)
}

// BytesFile is an in-memory File.
type BytesFile struct {
	FileName string
	Type     string
	Data     []byte
}

func NewBytesFile(name, contentType string, data []byte) *BytesFile {
	return &BytesFile{FileName: name, Type: contentType, Data: data}
}

func (f *BytesFile) Name() string        { return f.FileName }
func (f *BytesFile) Size() int64         { return int64(len(f.Data)) }
func (f *BytesFile) ContentType() string { return f.Type }

func (f *BytesFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.Data)), nil
}
