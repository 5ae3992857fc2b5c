package compressor

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

var framePalette = color.Palette{
	color.RGBA{0xff, 0x00, 0x00, 0xff},
	color.RGBA{0x00, 0xff, 0x00, 0xff},
	color.RGBA{0x00, 0x00, 0xff, 0xff},
	color.RGBA{0xff, 0xff, 0x00, 0xff},
	color.RGBA{0x00, 0xff, 0xff, 0xff},
	color.RGBA{0xff, 0x00, 0xff, 0xff},
	color.RGBA{0x00, 0x00, 0x00, 0xff},
	color.RGBA{0x80, 0x80, 0x80, 0xff},
	color.RGBA{0xff, 0x80, 0x00, 0xff},
	color.RGBA{0x80, 0x00, 0xff, 0xff},
	color.RGBA{0x00, 0x00, 0x00, 0x00},
}

const transparentIndex = 10

// noisyGradient returns a non-uniform opaque image with a fixed seed.
func noisyGradient(w, h int) *image.NRGBA {
	rng := rand.New(rand.NewSource(42))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			n := rng.Intn(32) - 16
			img.SetNRGBA(x, y, color.NRGBA{
				R: clamp8(x*255/w + n),
				G: clamp8(y*255/h + n),
				B: clamp8((x+y)*255/(w+h) - n),
				A: 0xff,
			})
		}
	}
	return img
}

func clamp8(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// solidFrame returns a w x h paletted frame filled with palette index idx.
func solidFrame(w, h int, idx uint8) *image.Paletted {
	pm := image.NewPaletted(image.Rect(0, 0, w, h), framePalette)
	for i := range pm.Pix {
		pm.Pix[i] = idx
	}
	return pm
}

// animatedGIF encodes n solid frames cycling through the first ten palette colours.
func animatedGIF(t *testing.T, n, w, h int) []byte {
	t.Helper()
	g := &gif.GIF{LoopCount: 0}
	for i := 0; i < n; i++ {
		g.Image = append(g.Image, solidFrame(w, h, uint8(i%10)))
		g.Delay = append(g.Delay, 5)
		g.Disposal = append(g.Disposal, gif.DisposalNone)
	}
	var buf bytes.Buffer
	require.NoError(t, gif.EncodeAll(&buf, g))
	return buf.Bytes()
}

func decodeGIF(t *testing.T, data []byte) *gif.GIF {
	t.Helper()
	g, err := gif.DecodeAll(bytes.NewReader(data))
	require.NoError(t, err)
	return g
}

// near reports whether two colours match within tol per channel.
func near(a, b color.Color, tol int) bool {
	ar, ag, ab, _ := a.RGBA()
	br, bg, bb, _ := b.RGBA()
	d := func(x, y uint32) int {
		v := int(x>>8) - int(y>>8)
		if v < 0 {
			return -v
		}
		return v
	}
	return d(ar, br) <= tol && d(ag, bg) <= tol && d(ab, bb) <= tol
}

// screenGIF encodes frames on a declared logical screen of w x h pixels.
// The frames may be much smaller than the screen.
func screenGIF(t *testing.T, w, h int, frames ...*image.Paletted) []byte {
	t.Helper()
	g := &gif.GIF{Config: image.Config{Width: w, Height: h}}
	for _, f := range frames {
		g.Image = append(g.Image, f)
		g.Delay = append(g.Delay, 5)
		g.Disposal = append(g.Disposal, gif.DisposalNone)
	}
	var buf bytes.Buffer
	require.NoError(t, gif.EncodeAll(&buf, g))
	return buf.Bytes()
}
