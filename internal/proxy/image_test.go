package proxy

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func solidImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	return img
}

func TestResizeLongEdge_NeverUpscales(t *testing.T) {
	src := solidImage(100, 50)
	out := resizeLongEdge(src, 768)
	assert.Equal(t, src.Bounds(), out.Bounds())
}

func TestResizeLongEdge_ExactFitIsUnchanged(t *testing.T) {
	src := solidImage(768, 384)
	out := resizeLongEdge(src, 768)
	assert.Equal(t, src.Bounds(), out.Bounds())
}

func TestResizeLongEdge_ScalesDownPreservingAspect(t *testing.T) {
	src := solidImage(1600, 800) // 2:1
	out := resizeLongEdge(src, 768)
	b := out.Bounds()
	assert.Equal(t, 768, b.Dx())
	assert.Equal(t, 384, b.Dy())
}

func TestResizeLongEdge_PortraitScalesByHeight(t *testing.T) {
	src := solidImage(400, 1600) // 1:4, tall
	out := resizeLongEdge(src, 320)
	b := out.Bounds()
	assert.Equal(t, 320, b.Dy())
	assert.Equal(t, 80, b.Dx())
}
