package compressor

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecompressStatic_RejectsQualityOutOfRange(t *testing.T) {
	data := encodePNG(t, noisyGradient(16, 16))

	for _, q := range []int{-5, 0, 101, 1000} {
		_, err := RecompressStatic(data, q)
		require.Error(t, err, "quality %d", q)
		assert.ErrorIs(t, err, ErrInvalidParameter)
	}
}

func TestRecompressStatic_AcceptsCodecRange(t *testing.T) {
	data := encodePNG(t, noisyGradient(16, 16))

	for _, q := range []int{1, 10, 100} {
		asset, err := RecompressStatic(data, q)
		require.NoError(t, err, "quality %d", q)
		assert.Equal(t, MIMEJPEG, asset.MIME)
	}
}

func TestRecompressStatic_DecodeError(t *testing.T) {
	_, err := RecompressStatic([]byte("definitely not an image"), 80)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecode)
	assert.Equal(t, "decode_error", Code(err))
}

func TestEncodeStatic_ZeroSizeImage(t *testing.T) {
	_, err := EncodeStatic(image.NewRGBA(image.Rect(0, 0, 0, 0)), 80)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEncode)
}

func TestRecompressStatic_RoundTripKeepsDimensions(t *testing.T) {
	src := noisyGradient(73, 41)
	asset, err := RecompressStatic(encodePNG(t, src), 85)
	require.NoError(t, err)

	decoded, err := jpeg.Decode(bytes.NewReader(asset.Data))
	require.NoError(t, err)
	assert.Equal(t, src.Bounds().Dx(), decoded.Bounds().Dx())
	assert.Equal(t, src.Bounds().Dy(), decoded.Bounds().Dy())
	assert.Equal(t, int64(len(asset.Data)), asset.Size)
	assert.Equal(t, 73, asset.Width)
	assert.Equal(t, 41, asset.Height)
	assert.Equal(t, 1, asset.Frames)
	assert.Equal(t, ".jpg", asset.Extension())
}

func TestRecompressStatic_SmallerThanRawBitmap(t *testing.T) {
	src := noisyGradient(128, 128)
	raw := src.Bounds().Dx() * src.Bounds().Dy() * 3
	data := encodePNG(t, src)

	for _, q := range []int{10, 50, 85} {
		asset, err := RecompressStatic(data, q)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(asset.Data), raw, "quality %d", q)
	}
}

func TestRecompressStatic_LowQualityNotLarger(t *testing.T) {
	data := encodePNG(t, noisyGradient(128, 128))

	low, err := RecompressStatic(data, 10)
	require.NoError(t, err)
	high, err := RecompressStatic(data, 100)
	require.NoError(t, err)

	_, err = jpeg.Decode(bytes.NewReader(low.Data))
	require.NoError(t, err)
	_, err = jpeg.Decode(bytes.NewReader(high.Data))
	require.NoError(t, err)

	assert.LessOrEqual(t, low.Size, high.Size)
}

func TestEncodeStatic_DropsAlphaKeepingColour(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			src.SetNRGBA(x, y, color.NRGBA{R: 0xff, A: 0x40})
		}
	}

	asset, err := RecompressStatic(encodePNG(t, src), 95)
	require.NoError(t, err)

	decoded, err := jpeg.Decode(bytes.NewReader(asset.Data))
	require.NoError(t, err)
	assert.True(t, near(decoded.At(8, 8), color.RGBA{R: 0xff, A: 0xff}, 12),
		"expected opaque red, got %v", decoded.At(8, 8))
}

func TestEncodeStatic_ConvertsPalettedAndGray(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range gray.Pix {
		gray.Pix[i] = uint8(i * 4)
	}
	_, err := EncodeStatic(gray, 70)
	require.NoError(t, err)

	_, err = EncodeStatic(solidFrame(8, 8, 2), 70)
	require.NoError(t, err)
}
