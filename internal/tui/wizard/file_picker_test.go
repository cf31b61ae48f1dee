package wizard

import (
	"os"
	"path/filepath"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/require"
)

func TestIsImageFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want bool
	}{
		{"shot.png", true},
		{"SHOT.JPG", true},
		{"shot.jpeg", true},
		{"anim.gif", true},
		{"photo.webp", true},
		{"notes.txt", false},
		{"noext", false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, IsImageFile(tt.name), tt.name)
	}
}

func TestFilePicker_ListsDirsThenImages(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "shots"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.png"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "A.jpg"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.md"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.png"), []byte("x"), 0644))

	fp := NewFilePicker(dir)
	var names []string
	for _, item := range fp.items {
		names = append(names, item.name)
	}
	require.Equal(t, []string{"..", "shots", "A.jpg", "b.png"}, names)
	require.Equal(t, dir, fp.Dir())
	require.Empty(t, fp.SelectedPath(), "parent entry is a directory")

	fp.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	fp.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	require.Equal(t, filepath.Join(dir, "A.jpg"), fp.SelectedPath())

	cmd := fp.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	require.NotNil(t, cmd)
	msg, ok := cmd().(FileSelectedMsg)
	require.True(t, ok)
	require.Equal(t, filepath.Join(dir, "A.jpg"), msg.Path)
}

func TestFilePicker_EnterDirectoryAndBack(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sub := filepath.Join(dir, "shots")
	require.NoError(t, os.Mkdir(sub, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "one.png"), []byte("x"), 0644))

	fp := NewFilePicker(dir)
	fp.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	require.Nil(t, fp.Update(tea.KeyPressMsg{Code: tea.KeyEnter}))
	require.Equal(t, sub, fp.Dir())
	require.Contains(t, fp.View(), "one.png")

	fp.Update(tea.KeyPressMsg{Code: tea.KeyBackspace})
	require.Equal(t, dir, fp.Dir())
}

func TestFilePicker_MissingDirectory(t *testing.T) {
	t.Parallel()

	fp := NewFilePicker(filepath.Join(t.TempDir(), "missing"))
	require.NotEmpty(t, fp.err)
	require.Contains(t, fp.View(), "No images or folders here")
}
