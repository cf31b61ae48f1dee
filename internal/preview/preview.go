// Package preview tracks the image previews a view holds open.
//
// Every handle returned by Acquire must be released exactly once; Release is
// idempotent so views can release on every exit path.
package preview

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"sync"

	"github.com/mark3labs/adreel/internal/encoder"
	"github.com/mark3labs/adreel/internal/logger"
)

// Handle describes one acquired preview.
type Handle struct {
	Source   encoder.Source
	Name     string
	Format   string
	MIMEType string
	Width    int
	Height   int
	Size     int64

	id       uint64
	registry *Registry
	once     sync.Once
}

// Release returns the handle to its registry. Calling it more than once is a no-op.
func (h *Handle) Release() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		h.registry.release(h.id)
	})
}

// Summary is a one-line description such as "product.png 1024x768 PNG, 210 KB".
func (h *Handle) Summary() string {
	if h == nil {
		return ""
	}
	if h.Width == 0 || h.Height == 0 {
		return fmt.Sprintf("%s %s", h.Name, humanSize(h.Size))
	}
	return fmt.Sprintf("%s %dx%d %s, %s", h.Name, h.Width, h.Height, formatLabel(h.Format), humanSize(h.Size))
}

// Registry hands out preview handles and counts the live ones.
type Registry struct {
	mu     sync.Mutex
	nextID uint64
	live   map[uint64]*Handle
	log    *logger.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		live: make(map[uint64]*Handle),
		log:  logger.For("preview"),
	}
}

// Acquire reads src's image header and returns a live handle.
// Unknown formats still produce a handle with zero dimensions.
func (r *Registry) Acquire(src encoder.Source) (*Handle, error) {
	if src == nil {
		return nil, fmt.Errorf("preview: nil source")
	}

	rc, err := src.Open()
	if err != nil {
		return nil, &encoder.ReadError{Source: src.Name(), Err: err}
	}
	defer rc.Close()

	counter := &countingReader{r: rc}
	cfg, format, decodeErr := image.DecodeConfig(counter)
	if _, err := io.Copy(io.Discard, counter); err != nil {
		return nil, &encoder.ReadError{Source: src.Name(), Err: err}
	}
	if decodeErr != nil {
		r.log.Debug("no image header for %s: %v", src.Name(), decodeErr)
	}

	mime, err := encoder.DetectMIMEType(src)
	if err != nil {
		mime = encoder.DefaultMIMEType
	}

	h := &Handle{
		Source:   src,
		Name:     src.Name(),
		Format:   format,
		MIMEType: mime,
		Width:    cfg.Width,
		Height:   cfg.Height,
		Size:     counter.n,
		registry: r,
	}

	r.mu.Lock()
	r.nextID++
	h.id = r.nextID
	r.live[h.id] = h
	r.mu.Unlock()

	return h, nil
}

// Live returns the number of handles not yet released.
func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

func (r *Registry) release(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.live, id)
}

// Slots keeps at most one handle per key, releasing the previous one on replacement.
type Slots struct {
	registry *Registry
	mu       sync.Mutex
	handles  map[int]*Handle
}

// NewSlots creates an empty slot set backed by r.
func NewSlots(r *Registry) *Slots {
	return &Slots{registry: r, handles: make(map[int]*Handle)}
}

// Sync makes key hold a handle for src. An unchanged source keeps its handle;
// a nil source releases the key.
func (s *Slots) Sync(key int, src encoder.Source) (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.handles[key]
	if current != nil && src != nil && current.Source == src {
		return current, nil
	}
	if current != nil {
		current.Release()
		delete(s.handles, key)
	}
	if src == nil {
		return nil, nil
	}

	h, err := s.registry.Acquire(src)
	if err != nil {
		return nil, err
	}
	s.handles[key] = h
	return h, nil
}

// Get returns the handle for key, or nil.
func (s *Slots) Get(key int) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handles[key]
}

// Truncate releases every handle whose key is at or beyond n, keeping negative keys.
func (s *Slots) Truncate(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, h := range s.handles {
		if key >= n {
			h.Release()
			delete(s.handles, key)
		}
	}
}

// Close releases every handle.
func (s *Slots) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, h := range s.handles {
		h.Release()
		delete(s.handles, key)
	}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func formatLabel(format string) string {
	switch format {
	case "jpeg":
		return "JPEG"
	case "png":
		return "PNG"
	case "gif":
		return "GIF"
	default:
		return format
	}
}

func humanSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%d KB", n/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
