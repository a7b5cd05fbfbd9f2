// Package phash computes a 256-bit perceptual hash of a decoded frame and
// compares hashes by Hamming distance. No library in the example pack does
// perceptual hashing (see DESIGN.md), so the DCT math here is hand-rolled;
// everything around it — decode and resize — uses golang.org/x/image, the
// one image-processing dependency the pack actually carries.
package phash

import (
	"image"
	"math"
	"sort"

	"golang.org/x/image/draw"
)

// size is the square grayscale grid the DCT runs over. 32x32 gives a
// 32x32 coefficient matrix; the top-left 16x16 block (minus the DC term)
// is kept, for a 255-bit signal rounded up into a 32-byte (256-bit) hash.
const (
	gridSize = 32
	lowFreq  = 16
)

// Hash is a 256-bit perceptual fingerprint of one frame.
type Hash [32]byte

// Compute downsamples img to a gridSize x gridSize grayscale grid, runs a
// 2D DCT-II, and thresholds the low-frequency coefficients against their
// median to produce a hash that is stable under the kind of small
// resize/recompress noise a transcode introduces, while still being
// sensitive to an actual scene change.
func Compute(img image.Image) Hash {
	gray := toGraySquare(img, gridSize)
	coeffs := dct2D(gray)

	vals := make([]float64, 0, lowFreq*lowFreq-1)
	for v := 0; v < lowFreq; v++ {
		for u := 0; u < lowFreq; u++ {
			if u == 0 && v == 0 {
				continue // DC term carries brightness, not structure
			}
			vals = append(vals, coeffs[v][u])
		}
	}
	median := medianOf(vals)

	var h Hash
	bit := 0
	for v := 0; v < lowFreq; v++ {
		for u := 0; u < lowFreq; u++ {
			if u == 0 && v == 0 {
				continue
			}
			// A coefficient within floating-point noise of the median (as
			// every AC term of a flat image is) does not set its bit.
			if coeffs[v][u]-median > 1e-6 {
				h[bit/8] |= 1 << uint(bit%8)
			}
			bit++
		}
	}
	return h
}

// Distance returns the Hamming distance between two hashes, 0-256.
func Distance(a, b Hash) int {
	dist := 0
	for i := range a {
		dist += popcount(a[i] ^ b[i])
	}
	return dist
}

func popcount(b byte) int {
	n := 0
	for b != 0 {
		n += int(b & 1)
		b >>= 1
	}
	return n
}

func medianOf(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// toGraySquare resizes img to an n x n grayscale grid using
// golang.org/x/image/draw's approximate bilinear scaler — cheap and
// deterministic, which matters more here than photographic fidelity.
func toGraySquare(img image.Image, n int) [][]float64 {
	dst := image.NewGray(image.Rect(0, 0, n, n))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)

	out := make([][]float64, n)
	for y := 0; y < n; y++ {
		out[y] = make([]float64, n)
		for x := 0; x < n; x++ {
			out[y][x] = float64(dst.GrayAt(x, y).Y)
		}
	}
	return out
}

// dct2D computes the 2D DCT-II of an n x n real-valued grid via two
// separable 1D passes (rows then columns), the standard approach for
// image-sized DCTs where an FFT-based implementation would be overkill.
func dct2D(grid [][]float64) [][]float64 {
	n := len(grid)
	tmp := make([][]float64, n)
	for y := 0; y < n; y++ {
		tmp[y] = dct1D(grid[y])
	}
	out := make([][]float64, n)
	for x := 0; x < n; x++ {
		col := make([]float64, n)
		for y := 0; y < n; y++ {
			col[y] = tmp[y][x]
		}
		col = dct1D(col)
		for y := 0; y < n; y++ {
			if out[y] == nil {
				out[y] = make([]float64, n)
			}
			out[y][x] = col[y]
		}
	}
	return out
}

func dct1D(in []float64) []float64 {
	n := len(in)
	out := make([]float64, n)
	for k := 0; k < n; k++ {
		var sum float64
		for i := 0; i < n; i++ {
			sum += in[i] * math.Cos(math.Pi/float64(n)*(float64(i)+0.5)*float64(k))
		}
		alpha := math.Sqrt(1.0 / float64(n))
		if k != 0 {
			alpha = math.Sqrt(2.0 / float64(n))
		}
		out[k] = alpha * sum
	}
	return out
}
