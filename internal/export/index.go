package export

import (
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/adreel/internal/logger"
)

const (
	conceptsMarker = "<!-- CONCEPTS -->"
	tableHeader    = "| Concept | Shots | Date |"
	tableSep       = "|---------|-------|------|"
	maxTitleRunes  = 100
)

// updateIndex adds a row for filename to the README table, creating the file
// or the table when missing. Newest rows go first.
func updateIndex(readmePath, filename string, c Concept) error {
	title := c.Title
	if runes := []rune(title); len(runes) > maxTitleRunes {
		title = string(runes[:maxTitleRunes-3]) + "..."
	}
	title = strings.ReplaceAll(title, "|", "\\|")
	row := fmt.Sprintf("| [%s](%s) | %d | %s |", title, filename, len(c.Shots), c.CreatedAt.Format("2006-01-02"))

	var content string
	existing, err := os.ReadFile(readmePath)
	switch {
	case os.IsNotExist(err):
		content = newIndex(row)
	case err != nil:
		return fmt.Errorf("failed to read README: %w", err)
	default:
		content = insertRow(string(existing), row)
	}

	return os.WriteFile(readmePath, []byte(content), 0644)
}

func newIndex(row string) string {
	return fmt.Sprintf(`# Ad concepts

Concepts exported by adreel.

%s

%s
%s
%s
`, conceptsMarker, tableHeader, tableSep, row)
}

// insertRow places row at the top of the table that follows the marker.
// Content without a marker gets a marker and table appended.
func insertRow(content, row string) string {
	lines := strings.Split(content, "\n")

	markerIdx := -1
	for i, line := range lines {
		if strings.TrimSpace(line) == conceptsMarker {
			markerIdx = i
			break
		}
	}

	if markerIdx == -1 {
		logger.Debug("Concept index marker not found, appending table")
		if !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		if strings.TrimSpace(content) != "" {
			content += "\n"
		}
		return content + conceptsMarker + "\n\n" + tableHeader + "\n" + tableSep + "\n" + row + "\n"
	}

	at := markerIdx + 1
	for at < len(lines) && strings.TrimSpace(lines[at]) == "" {
		at++
	}

	var insert []string
	if at < len(lines) && strings.TrimSpace(lines[at]) == tableHeader {
		at++
		if at < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[at]), "|--") {
			at++
		}
		insert = []string{row}
	} else {
		at = markerIdx + 1
		insert = []string{"", tableHeader, tableSep, row}
	}

	out := make([]string, 0, len(lines)+len(insert))
	out = append(out, lines[:at]...)
	out = append(out, insert...)
	out = append(out, lines[at:]...)
	return strings.Join(out, "\n")
}
