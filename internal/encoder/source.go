package encoder

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Source is an image reference that can be opened for reading.
type Source interface {
	// Name identifies the source for display and error messages.
	Name() string
	// Open returns a fresh reader over the full content.
	Open() (io.ReadCloser, error)
	// Key returns a value that changes whenever the content changes.
	Key() (string, error)
}

// FileSource reads an image from the local filesystem.
type FileSource struct {
	Path string
}

// NewFileSource returns a Source for the file at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (f *FileSource) Name() string {
	return filepath.Base(f.Path)
}

func (f *FileSource) Open() (io.ReadCloser, error) {
	return os.Open(f.Path)
}

// Key combines path, size and modification time so an edited file is re-read.
func (f *FileSource) Key() (string, error) {
	info, err := os.Stat(f.Path)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(f.Path)
	if err != nil {
		abs = f.Path
	}
	return fmt.Sprintf("file:%s:%d:%d", abs, info.Size(), info.ModTime().UnixNano()), nil
}

// BytesSource holds an image already in memory, e.g. a multipart upload.
type BytesSource struct {
	Label string
	Data  []byte
}

// NewBytesSource returns a Source over data.
func NewBytesSource(label string, data []byte) *BytesSource {
	return &BytesSource{Label: label, Data: data}
}

func (b *BytesSource) Name() string {
	if b.Label == "" {
		return "upload"
	}
	return b.Label
}

func (b *BytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.Data)), nil
}

func (b *BytesSource) Key() (string, error) {
	sum := sha256.Sum256(b.Data)
	return "bytes:" + hex.EncodeToString(sum[:]), nil
}
