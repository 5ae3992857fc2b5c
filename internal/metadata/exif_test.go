package metadata

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"testing"

	"image-compressor-go/internal/compressor"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInspector() *Inspector {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewInspector(log)
}

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(i)
	}
	return img
}

// exifSegment builds a little-endian TIFF block with Make and DateTime tags.
func exifSegment() []byte {
	var tiff bytes.Buffer
	le := binary.LittleEndian
	tiff.WriteString("II")
	_ = binary.Write(&tiff, le, uint16(42))
	_ = binary.Write(&tiff, le, uint32(8))

	_ = binary.Write(&tiff, le, uint16(2))
	// Make, ASCII, 6 bytes at offset 38
	_ = binary.Write(&tiff, le, []uint16{0x010F, 2})
	_ = binary.Write(&tiff, le, []uint32{6, 38})
	// DateTime, ASCII, 20 bytes at offset 44
	_ = binary.Write(&tiff, le, []uint16{0x0132, 2})
	_ = binary.Write(&tiff, le, []uint32{20, 44})
	_ = binary.Write(&tiff, le, uint32(0))

	tiff.WriteString("Canon\x00")
	tiff.WriteString("2023:12:25 15:30:45\x00")

	payload := append([]byte("Exif\x00\x00"), tiff.Bytes()...)
	seg := []byte{0xFF, 0xE1, 0, 0}
	binary.BigEndian.PutUint16(seg[2:], uint16(len(payload)+2))
	return append(seg, payload...)
}

func jpegWithEXIF(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(20, 10), nil))
	raw := buf.Bytes()

	out := append([]byte{}, raw[:2]...)
	out = append(out, exifSegment()...)
	return append(out, raw[2:]...)
}

func TestInspector_JPEGWithEXIF(t *testing.T) {
	info, err := newTestInspector().Inspect(jpegWithEXIF(t))
	require.NoError(t, err)

	assert.Equal(t, "jpeg", info.Format)
	assert.Equal(t, compressor.KindStatic, info.Kind)
	assert.Equal(t, "image", info.KindName)
	assert.Equal(t, 20, info.Width)
	assert.Equal(t, 10, info.Height)
	assert.Equal(t, 1, info.Frames)

	require.True(t, info.HasEXIF())
	assert.Equal(t, "Canon", info.EXIF.Make)
	require.NotNil(t, info.EXIF.DateTaken)
	assert.Equal(t, 2023, info.EXIF.DateTaken.Year())
	assert.Equal(t, 25, info.EXIF.DateTaken.Day())
	assert.Equal(t, "EXIF DateTime", info.EXIF.DateSource.String())
}

func TestInspector_PNGHasNoEXIF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(7, 3)))

	info, err := newTestInspector().Inspect(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "png", info.Format)
	assert.Equal(t, 7, info.Width)
	assert.Equal(t, 3, info.Height)
	assert.Equal(t, int64(buf.Len()), info.Size)
	assert.False(t, info.HasEXIF())
}

func TestInspector_GIFFrames(t *testing.T) {
	pal := color.Palette{color.Black, color.White}
	g := &gif.GIF{LoopCount: 3}
	for i := 0; i < 4; i++ {
		g.Image = append(g.Image, image.NewPaletted(image.Rect(0, 0, 5, 6), pal))
		g.Delay = append(g.Delay, 10)
	}
	var buf bytes.Buffer
	require.NoError(t, gif.EncodeAll(&buf, g))

	info, err := newTestInspector().Inspect(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, compressor.KindAnimated, info.Kind)
	assert.Equal(t, 4, info.Frames)
	assert.Equal(t, 3, info.LoopCount)
	assert.Equal(t, 5, info.Width)
	assert.Equal(t, 6, info.Height)
}

func TestInspector_GIFPixelBudget(t *testing.T) {
	pal := color.Palette{color.Black, color.White}
	huge := &gif.GIF{
		Image:  []*image.Paletted{image.NewPaletted(image.Rect(0, 0, 1, 1), pal)},
		Delay:  []int{10},
		Config: image.Config{Width: 30000, Height: 30000},
	}
	var buf bytes.Buffer
	require.NoError(t, gif.EncodeAll(&buf, huge))

	_, err := newTestInspector().Inspect(buf.Bytes())
	assert.ErrorIs(t, err, compressor.ErrDecode)

	g := &gif.GIF{}
	for i := 0; i < 4; i++ {
		g.Image = append(g.Image, image.NewPaletted(image.Rect(0, 0, 10, 10), pal))
		g.Delay = append(g.Delay, 10)
	}
	buf.Reset()
	require.NoError(t, gif.EncodeAll(&buf, g))

	_, err = newTestInspector().WithMaxPixels(399).Inspect(buf.Bytes())
	assert.ErrorIs(t, err, compressor.ErrDecode)

	info, err := newTestInspector().WithMaxPixels(400).Inspect(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 4, info.Frames)
}

func TestInspector_Garbage(t *testing.T) {
	_, err := newTestInspector().Inspect([]byte("not an image"))
	require.Error(t, err)
	assert.ErrorIs(t, err, compressor.ErrDecode)
}

func TestParseEXIFDateTime(t *testing.T) {
	assert.Nil(t, parseEXIFDateTime(""))
	assert.Nil(t, parseEXIFDateTime("yesterday"))

	d := parseEXIFDateTime("2024:02:29 10:11:12")
	require.NotNil(t, d)
	assert.Equal(t, 29, d.Day())

	d = parseEXIFDateTime("2024-02-29")
	require.NotNil(t, d)
	assert.Equal(t, 2024, d.Year())
}
