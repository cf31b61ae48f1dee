package adwizard

import (
	"bytes"
	"encoding/json"
	"strings"

	"charm.land/glamour/v2"
	chroma "github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/aymanbagabas/go-udiff"
	"github.com/mark3labs/adreel/internal/genclient"
	"github.com/mark3labs/adreel/internal/tui/theme"
)

// markdownCache memoizes glamour output per width and source.
type markdownCache struct {
	width    int
	renderer *glamour.TermRenderer
	entries  map[string]string
}

func newMarkdownCache() *markdownCache {
	return &markdownCache{entries: make(map[string]string)}
}

// Render renders markdown content with glamour, falling back to plain text.
func (c *markdownCache) Render(content string, width int) string {
	if width > 120 {
		width = 120
	}
	if width < 20 {
		width = 20
	}
	if width != c.width {
		c.width = width
		c.renderer = nil
		clear(c.entries)
	}
	if out, ok := c.entries[content]; ok {
		return out
	}

	if c.renderer == nil {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return content
		}
		c.renderer = r
	}

	rendered, err := c.renderer.Render(content)
	if err != nil {
		return content
	}
	out := strings.Trim(rendered, "\n")
	c.entries[content] = out
	return out
}

// highlightJSON returns source with ANSI syntax highlighting.
func highlightJSON(source string) string {
	lexer := lexers.Get("json")
	if lexer == nil {
		lexer = lexers.Fallback
	}

	formatter := formatters.Get("terminal16m")
	if formatter == nil {
		formatter = formatters.Get("terminal256")
	}
	if formatter == nil {
		return source
	}

	baseStyle := styles.Get("monokai")
	if baseStyle == nil {
		baseStyle = styles.Fallback
	}
	// Match the surface color of the surrounding card.
	bg := chroma.MustParseColour(theme.Current().BgBase)
	style, err := baseStyle.Builder().Transform(func(entry chroma.StyleEntry) chroma.StyleEntry {
		entry.Background = bg
		return entry
	}).Build()
	if err != nil {
		style = baseStyle
	}

	iterator, err := lexer.Tokenise(nil, source)
	if err != nil {
		return source
	}
	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return source
	}
	return strings.TrimRight(buf.String(), "\n")
}

// scriptJSON is the indented JSON form of a script.
func scriptJSON(script []genclient.ShotDetail) string {
	data, err := json.MarshalIndent(script, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}

// scriptDiff returns a unified diff between two scripts, or "" when they match.
func scriptDiff(previous, current []genclient.ShotDetail) string {
	return udiff.Unified("previous", "current", scriptJSON(previous)+"\n", scriptJSON(current)+"\n")
}

// colorDiff styles the lines of a unified diff.
func colorDiff(diff string) string {
	s := theme.Current().S()
	lines := strings.Split(strings.TrimRight(diff, "\n"), "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			lines[i] = s.Label.Render(line)
		case strings.HasPrefix(line, "@@"):
			lines[i] = s.DiffHunk.Render(line)
		case strings.HasPrefix(line, "+"):
			lines[i] = s.DiffInsert.Render(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = s.DiffDelete.Render(line)
		default:
			lines[i] = s.DiffContext.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}
