package testfixtures

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/adreel/internal/genclient"
)

// PNG returns an encoded w×h PNG filled with one color.
func PNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	fill := color.RGBA{R: 0xcb, G: 0xa6, B: 0xf7, A: 0xff}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// WritePNG writes a w×h PNG named name into dir and returns its path.
func WritePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, PNG(w, h), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// ImageDir creates a temp directory holding product.png and shot-N.png for
// n shots, returning the directory and the shot paths in order.
func ImageDir(t *testing.T, n int) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	WritePNG(t, dir, "product.png", 64, 48)
	shots := make([]string, n)
	for i := range shots {
		shots[i] = WritePNG(t, dir, fmt.Sprintf("shot-%d.png", i+1), 32, 18)
	}
	return dir, shots
}

// CoffeeScript is a realistic three-shot script.
func CoffeeScript() []genclient.ShotDetail {
	return []genclient.ShotDetail{
		{
			ShotNumber:      "Shot 1",
			ShotDescription: "Morning light falls across a kitchen counter where the cold brew can sits beaded with condensation.",
			ImagePrompt:     "Photorealistic macro of a matte black cold brew can on a marble counter, soft window light, droplets, shallow depth of field",
		},
		{
			ShotNumber:      "Shot 2",
			ShotDescription: "The can is cracked open and coffee pours over ice in slow motion.",
			ImagePrompt:     "High-speed photograph of dark coffee pouring into a tall glass of ice, backlit, amber highlights, studio black background",
		},
		{
			ShotNumber:      "Shot 3",
			ShotDescription: "Hero shot: the can and glass side by side with the tagline.",
			ImagePrompt:     "Product hero shot of the can beside a full glass, warm gradient backdrop, centered composition, commercial lighting",
		},
	}
}

// CoffeePrompts are animation prompts matching CoffeeScript.
func CoffeePrompts() []string {
	return []string{
		"Slow dolly in toward the can as droplets slide down, light flickers through leaves.",
		"Slow motion pour, ice shifts and settles, camera tilts down with the stream.",
		"Gentle orbit around can and glass, warm light sweeps across the label.",
	}
}
