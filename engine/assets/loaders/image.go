package loaders

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/spaghettifunk/alaska-engine/engine/renderer/metadata"
)

// ImageDecoder turns png, jpeg, bmp, tiff or webp bytes into RGBA8 pixels.
type ImageDecoder struct {
	// FlipY stores rows bottom to top, as OpenGL samples them.
	FlipY bool
}

func (d ImageDecoder) Decode(raw []byte) (*metadata.ImageData, error) {
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("image: %s has no pixels", format)
	}

	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Rect.Min != (image.Point{}) || rgba.Stride != 4*bounds.Dx() {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}

	out := &metadata.ImageData{
		ChannelCount: 4,
		Width:        uint32(bounds.Dx()),
		Height:       uint32(bounds.Dy()),
		Pixels:       rgba.Pix,
	}
	if d.FlipY {
		flipRows(out.Pixels, int(out.Width)*4, int(out.Height))
	}
	out.HasTransparency = hasTransparency(out.Pixels)
	return out, nil
}

func flipRows(pixels []uint8, stride, rows int) {
	tmp := make([]uint8, stride)
	for top, bottom := 0, rows-1; top < bottom; top, bottom = top+1, bottom-1 {
		a := pixels[top*stride : (top+1)*stride]
		b := pixels[bottom*stride : (bottom+1)*stride]
		copy(tmp, a)
		copy(a, b)
		copy(b, tmp)
	}
}

func hasTransparency(pixels []uint8) bool {
	for i := 3; i < len(pixels); i += 4 {
		if pixels[i] < 255 {
			return true
		}
	}
	return false
}
