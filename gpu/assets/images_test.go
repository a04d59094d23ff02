package assets

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadImagePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "red.png")
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.Set(x, y, color.RGBA{R: 0xFF, A: 0xFF})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	px, err := LoadImage(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if px.Width != 2 || px.Height != 2 {
		t.Errorf("size = %dx%d, want 2x2", px.Width, px.Height)
	}
	if len(px.Data) != 16 {
		t.Fatalf("data length = %d, want 16", len(px.Data))
	}
	if px.Data[0] != 0xFF || px.Data[1] != 0 || px.Data[3] != 0xFF {
		t.Errorf("first pixel = %v, want opaque red", px.Data[:4])
	}
}

func TestLoadImageMissing(t *testing.T) {
	if _, err := LoadImage(filepath.Join(t.TempDir(), "ghost.png")); err == nil {
		t.Errorf("missing image should error")
	}
}

func TestCheckerboard(t *testing.T) {
	px := Checkerboard(16, 16, 8)
	if px.Width != 16 || px.Height != 16 {
		t.Fatalf("size = %dx%d, want 16x16", px.Width, px.Height)
	}
	if len(px.Data) != 16*16*4 {
		t.Fatalf("data length = %d", len(px.Data))
	}
	// Top-left cell is magenta, the cell to its right is black.
	if px.Data[0] != 0xFF || px.Data[2] != 0xFF || px.Data[3] != 0xFF {
		t.Errorf("origin pixel = %v, want magenta", px.Data[:4])
	}
	i := 8 * 4
	if px.Data[i] != 0 || px.Data[i+2] != 0 || px.Data[i+3] != 0xFF {
		t.Errorf("second cell pixel = %v, want opaque black", px.Data[i:i+4])
	}
	// Every pixel is opaque.
	for p := 3; p < len(px.Data); p += 4 {
		if px.Data[p] != 0xFF {
			t.Fatalf("pixel %d not opaque", p/4)
		}
	}
}
