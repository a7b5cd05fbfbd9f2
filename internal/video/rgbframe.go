package video

import (
	"image"
	"image/color"
)

// rgbImage is a zero-copy image.Image view over a raw interleaved RGB24
// buffer, as emitted by ffmpeg's "-pix_fmt rgb24" rawvideo muxer. Wrapping
// rather than decoding into image.RGBA avoids an extra full-frame copy on
// every 1fps tick of the extractor.
type rgbImage struct {
	pix  []byte
	w, h int
}

func newRGBImage(pix []byte, w, h int) *rgbImage {
	return &rgbImage{pix: pix, w: w, h: h}
}

func (r *rgbImage) ColorModel() color.Model { return color.RGBAModel }
func (r *rgbImage) Bounds() image.Rectangle { return image.Rect(0, 0, r.w, r.h) }

func (r *rgbImage) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= r.w || y >= r.h {
		return color.RGBA{}
	}
	i := (y*r.w + x) * 3
	return color.RGBA{R: r.pix[i], G: r.pix[i+1], B: r.pix[i+2], A: 0xff}
}
