package phash

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func solidImage(n int, c color.Gray) image.Image {
	img := image.NewGray(image.Rect(0, 0, n, n))
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			img.SetGray(x, y, c)
		}
	}
	return img
}

func TestCompute_IdenticalImagesHashIdentically(t *testing.T) {
	img := solidImage(64, color.Gray{Y: 128})
	a := Compute(img)
	b := Compute(img)
	assert.Equal(t, a, b)
	assert.Equal(t, 0, Distance(a, b))
}

func TestDistance_FlatImagesHashIdentically(t *testing.T) {
	black := Compute(solidImage(64, color.Gray{Y: 0}))
	white := Compute(solidImage(64, color.Gray{Y: 255}))
	// Two flat images differ only in the DC term, which Compute excludes
	// from the hash — so two uniform fields of different brightness still
	// hash identically. This documents that property rather than assuming
	// a nonzero distance.
	assert.Equal(t, 0, Distance(black, white))
}

func TestDistance_SelfIsZero(t *testing.T) {
	h := Compute(solidImage(48, color.Gray{Y: 90}))
	assert.Equal(t, 0, Distance(h, h))
}

func TestDistance_IsSymmetric(t *testing.T) {
	checker := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if (x/8+y/8)%2 == 0 {
				checker.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	a := Compute(checker)
	b := Compute(solidImage(64, color.Gray{Y: 128}))
	assert.Equal(t, Distance(a, b), Distance(b, a))
}
