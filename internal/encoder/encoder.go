// Package encoder turns image sources into base64 payloads for the generation service.
package encoder

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/adreel/internal/logger"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultMIMEType is assumed when sniffing does not identify an image.
	DefaultMIMEType = "image/jpeg"

	memoExpiration = 5 * time.Minute
	memoCleanup    = 15 * time.Minute
	sniffLen       = 512
)

// ErrEmptySource is wrapped in a ReadError when a source has no content.
var ErrEmptySource = errors.New("source is empty")

// ReadError reports a source that could not be opened or read.
type ReadError struct {
	Source string
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Source, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// Payload is the encoded form of one image.
type Payload struct {
	MIMEType string
	Data     string
}

// Encoder converts sources to payloads, memoizing by content key.
type Encoder struct {
	memo *cache.Cache
	log  *logger.Logger
}

// New creates an Encoder with an empty memo.
func New() *Encoder {
	return &Encoder{
		memo: cache.New(memoExpiration, memoCleanup),
		log:  logger.For("encoder"),
	}
}

// Encode reads src fully and returns its standard base64 encoding.
// It fails with *ReadError when the source cannot be opened, read, or is empty.
func (e *Encoder) Encode(ctx context.Context, src Source) (Payload, error) {
	if src == nil {
		return Payload{}, &ReadError{Source: "<nil>", Err: errors.New("no source")}
	}
	if err := ctx.Err(); err != nil {
		return Payload{}, &ReadError{Source: src.Name(), Err: err}
	}

	key, keyErr := src.Key()
	if keyErr == nil {
		if cached, ok := e.memo.Get(key); ok {
			return cached.(Payload), nil
		}
	}

	rc, err := src.Open()
	if err != nil {
		return Payload{}, &ReadError{Source: src.Name(), Err: err}
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return Payload{}, &ReadError{Source: src.Name(), Err: err}
	}
	if len(data) == 0 {
		return Payload{}, &ReadError{Source: src.Name(), Err: ErrEmptySource}
	}
	if err := ctx.Err(); err != nil {
		return Payload{}, &ReadError{Source: src.Name(), Err: err}
	}

	p := Payload{
		MIMEType: sniff(data),
		Data:     base64.StdEncoding.EncodeToString(data),
	}
	if keyErr == nil {
		e.memo.SetDefault(key, p)
	}
	e.log.Debug("encoded %s (%s, %d bytes)", src.Name(), p.MIMEType, len(data))
	return p, nil
}

// EncodeAll encodes every source concurrently and returns the payloads in input order.
// The first failure fails the whole call.
func (e *Encoder) EncodeAll(ctx context.Context, srcs []Source) ([]Payload, error) {
	out := make([]Payload, len(srcs))
	eg, egCtx := errgroup.WithContext(ctx)

	for i, src := range srcs {
		eg.Go(func() error {
			p, err := e.Encode(egCtx, src)
			if err != nil {
				return err
			}
			out[i] = p
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Forget drops every memoized payload.
func (e *Encoder) Forget() {
	e.memo.Flush()
}

// DetectMIMEType reads the head of src and reports its image MIME type.
func DetectMIMEType(src Source) (string, error) {
	rc, err := src.Open()
	if err != nil {
		return "", &ReadError{Source: src.Name(), Err: err}
	}
	defer rc.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(rc, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", &ReadError{Source: src.Name(), Err: err}
	}
	if n == 0 {
		return "", &ReadError{Source: src.Name(), Err: ErrEmptySource}
	}
	return sniff(head[:n]), nil
}

func sniff(data []byte) string {
	mime := http.DetectContentType(data)
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	if !strings.HasPrefix(mime, "image/") {
		return DefaultMIMEType
	}
	return mime
}
