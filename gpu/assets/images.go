package assets

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"

	"github.com/codeyousef/materia/gpu/core"
)

// Pixels is decoded image data in the tightly packed RGBA8 layout that
// texture uploads expect.
type Pixels struct {
	Width  uint32
	Height uint32
	Data   []byte
}

// LoadImage decodes a PNG, JPEG or BMP file into RGBA8.
func LoadImage(path string) (*Pixels, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", path, err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}
	core.LogDebug("decoded %s image %s", format, path)

	return toRGBA(img), nil
}

func toRGBA(img image.Image) *Pixels {
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return &Pixels{
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
		Data:   rgba.Pix,
	}
}

// Checkerboard builds the stand-in texture used when an image asset is
// missing: magenta and black squares of cellSize pixels.
func Checkerboard(width, height, cellSize uint32) *Pixels {
	if cellSize == 0 {
		cellSize = 8
	}
	data := make([]byte, width*height*4)
	for y := uint32(0); y < height; y++ {
		for x := uint32(0); x < width; x++ {
			i := (y*width + x) * 4
			if ((x/cellSize)+(y/cellSize))%2 == 0 {
				data[i] = 0xFF
				data[i+2] = 0xFF
			}
			data[i+3] = 0xFF
		}
	}
	return &Pixels{Width: width, Height: height, Data: data}
}
