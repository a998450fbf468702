package capture

import (
	"bytes"
	"image"
	"image/draw"
	"image/png"
	"math"

	"github.com/yukino-dev/bugsnap/internal/model"
)

// cropScaled crops a bitmap to the selection rectangle, scaling the
// selection from viewport coordinates to bitmap coordinates. The
// scale factors absorb the device pixel ratio: a bitmap twice the
// viewport size maps a 100px-wide selection to 200 bitmap pixels.
func cropScaled(src image.Image, selection Region, viewport model.Viewport) image.Image {
	bounds := src.Bounds()
	scaleX := float64(bounds.Dx()) / float64(viewport.Width)
	scaleY := float64(bounds.Dy()) / float64(viewport.Height)

	sx := clampInt(int(math.Round(float64(selection.Left)*scaleX)), 0, bounds.Dx()-1)
	sy := clampInt(int(math.Round(float64(selection.Top)*scaleY)), 0, bounds.Dy()-1)
	sw := clampInt(int(math.Round(float64(selection.Width)*scaleX)), 1, bounds.Dx()-sx)
	sh := clampInt(int(math.Round(float64(selection.Height)*scaleY)), 1, bounds.Dy()-sy)

	out := image.NewRGBA(image.Rect(0, 0, sw, sh))
	draw.Draw(out, out.Bounds(), src, bounds.Min.Add(image.Pt(sx, sy)), draw.Src)
	return out
}

// encodePNG serializes the bitmap as a PNG blob.
func encodePNG(img image.Image) (model.Blob, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return model.Blob{}, model.WrapError(model.CodeCapture, "failed to build screenshot image", err)
	}
	return model.Blob{Data: buf.Bytes(), MimeType: "image/png"}, nil
}

// clampInt bounds v to [min, max].
func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
