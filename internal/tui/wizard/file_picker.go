package wizard

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	tea "charm.land/bubbletea/v2"
	"github.com/mark3labs/adreel/internal/tui/theme"
)

// ImageExtensions lists the file extensions the picker offers.
var ImageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp"}

// IsImageFile reports whether name has an image extension.
func IsImageFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range ImageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// FileItem represents a file or directory in the file picker.
type FileItem struct {
	name  string
	path  string
	isDir bool
}

// Render returns the display line for the item, truncated to width.
func (f *FileItem) Render(width int) string {
	icon := "🖼 "
	if f.isDir {
		icon = "📁"
	}
	display := icon + " " + f.name

	runes := []rune(display)
	if width > 5 && len(runes) > width-2 {
		display = string(runes[:width-5]) + "..."
	}
	return display
}

// FilePicker browses directories and selects an image file.
type FilePicker struct {
	currentPath string
	items       []*FileItem
	selectedIdx int
	offset      int
	err         string
	width       int
	height      int
}

// NewFilePicker creates a picker rooted at dir, or the working directory when dir is empty.
func NewFilePicker(dir string) *FilePicker {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			cwd = "."
		}
		dir = cwd
	}

	fp := &FilePicker{width: 60, height: 10}
	if err := fp.loadDirectory(dir); err != nil {
		fp.err = err.Error()
		fp.currentPath = dir
	}
	return fp
}

// loadDirectory loads directories and image files from path.
func (f *FilePicker) loadDirectory(path string) error {
	entries, err := os.ReadDir(path)
	if err != nil {
		return err
	}

	f.items = make([]*FileItem, 0, len(entries)+1)

	absPath, err := filepath.Abs(path)
	if err == nil && absPath != filepath.Dir(absPath) {
		f.items = append(f.items, &FileItem{name: "..", path: filepath.Dir(absPath), isDir: true})
	}

	var dirs, files []*FileItem
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		fullPath := filepath.Join(path, entry.Name())
		if entry.IsDir() {
			dirs = append(dirs, &FileItem{name: entry.Name(), path: fullPath, isDir: true})
		} else if IsImageFile(entry.Name()) {
			files = append(files, &FileItem{name: entry.Name(), path: fullPath})
		}
	}

	sort.Slice(dirs, func(i, j int) bool {
		return strings.ToLower(dirs[i].name) < strings.ToLower(dirs[j].name)
	})
	sort.Slice(files, func(i, j int) bool {
		return strings.ToLower(files[i].name) < strings.ToLower(files[j].name)
	})

	f.items = append(f.items, dirs...)
	f.items = append(f.items, files...)
	f.currentPath = path
	f.selectedIdx = 0
	f.offset = 0
	f.err = ""
	return nil
}

// Dir returns the directory being browsed.
func (f *FilePicker) Dir() string {
	return f.currentPath
}

// SetSize updates the dimensions for the file picker.
func (f *FilePicker) SetSize(width, height int) {
	f.width = width
	f.height = height
}

// Update handles messages for the file picker.
func (f *FilePicker) Update(msg tea.Msg) tea.Cmd {
	keyMsg, ok := msg.(tea.KeyPressMsg)
	if !ok {
		return nil
	}

	switch keyMsg.String() {
	case "up", "k":
		if f.selectedIdx > 0 {
			f.selectedIdx--
		}
	case "down", "j":
		if f.selectedIdx < len(f.items)-1 {
			f.selectedIdx++
		}
	case "enter":
		if f.selectedIdx < 0 || f.selectedIdx >= len(f.items) {
			return nil
		}
		item := f.items[f.selectedIdx]
		if item.isDir {
			if err := f.loadDirectory(item.path); err != nil {
				f.err = err.Error()
			}
			return nil
		}
		return func() tea.Msg {
			return FileSelectedMsg{Path: item.path}
		}
	case "backspace":
		parentPath := filepath.Dir(f.currentPath)
		if parentPath != f.currentPath {
			if err := f.loadDirectory(parentPath); err != nil {
				f.err = err.Error()
			}
		}
	}
	return nil
}

func (f *FilePicker) listHeight() int {
	h := f.height - 4 // path, blank line, blank line, hint bar
	if h < 3 {
		h = 3
	}
	return h
}

// View renders the file picker.
func (f *FilePicker) View() string {
	s := theme.Current().S()
	var b strings.Builder

	b.WriteString(s.Subtitle.Render(f.currentPath))
	b.WriteString("\n\n")

	if f.err != "" {
		b.WriteString(s.ErrorBanner.Render(f.err))
		b.WriteString("\n")
	}

	hasFiles := false
	for _, item := range f.items {
		if item.name != ".." {
			hasFiles = true
			break
		}
	}
	if !hasFiles {
		b.WriteString(s.Muted.Italic(true).Render("No images or folders here"))
		b.WriteString("\n")
	}

	visible := f.listHeight()
	if f.selectedIdx < f.offset {
		f.offset = f.selectedIdx
	}
	if f.selectedIdx >= f.offset+visible {
		f.offset = f.selectedIdx - visible + 1
	}
	end := min(f.offset+visible, len(f.items))

	for i := f.offset; i < end; i++ {
		line := f.items[i].Render(f.width)
		if i == f.selectedIdx {
			line = s.ListSelected.Render("▸ " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(RenderHintBar(
		"↑↓/j/k", "navigate",
		"enter", "select",
		"backspace", "up",
		"esc", "cancel",
	))
	return b.String()
}

// SelectedPath returns the highlighted file path, or "" when a directory is highlighted.
func (f *FilePicker) SelectedPath() string {
	if f.selectedIdx >= 0 && f.selectedIdx < len(f.items) {
		if item := f.items[f.selectedIdx]; !item.isDir {
			return item.path
		}
	}
	return ""
}

// FileSelectedMsg is sent when a file is selected.
type FileSelectedMsg struct {
	Path string
}
