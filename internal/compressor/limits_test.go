package compressor

import (
	"context"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckPixelBudget(t *testing.T) {
	tests := []struct {
		name      string
		w, h      int
		frames    int
		maxPixels int64
		wantErr   bool
	}{
		{"within budget", 100, 100, 1, 10_000, false},
		{"area over budget", 101, 100, 1, 10_000, true},
		{"frames multiply the area", 10, 10, 11, 1_000, true},
		{"frames exactly at budget", 10, 10, 10, 1_000, false},
		{"zero frames count as one", 10, 10, 0, 100, false},
		{"disabled", 30000, 30000, 100, 0, false},
		{"large dimensions do not overflow", 1 << 30, 1 << 30, 1 << 20, DefaultMaxPixels, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPixelBudget(tt.w, tt.h, tt.frames, tt.maxPixels)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrDecode)
				assert.Equal(t, "decode_error", Code(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestScanGIF_MatchesDecoder(t *testing.T) {
	data := animatedGIF(t, 7, 12, 9)

	layout, err := ScanGIF(data)
	require.NoError(t, err)

	g := decodeGIF(t, data)
	assert.Equal(t, g.Config.Width, layout.Width)
	assert.Equal(t, g.Config.Height, layout.Height)
	assert.Equal(t, len(g.Image), layout.Frames)
	assert.Equal(t, int64(7*12*9), layout.FramePixels)
}

func TestScanGIF_SubFrames(t *testing.T) {
	data := screenGIF(t, 20, 10, solidFrame(20, 10, 0), solidFrame(2, 3, 1), solidFrame(1, 1, 2))

	layout, err := ScanGIF(data)
	require.NoError(t, err)
	assert.Equal(t, GIFLayout{Width: 20, Height: 10, Frames: 3, FramePixels: 200 + 6 + 1}, layout)
}

func TestScanGIF_NotAGIF(t *testing.T) {
	_, err := ScanGIF(encodePNG(t, noisyGradient(4, 4)))
	assert.Error(t, err)

	_, err = ScanGIF([]byte("GIF89a"))
	assert.Error(t, err)
}

func TestScanGIF_TruncatedStopsQuietly(t *testing.T) {
	data := animatedGIF(t, 4, 8, 8)

	layout, err := ScanGIF(data[:len(data)/2])
	require.NoError(t, err)
	assert.Equal(t, 8, layout.Width)
	assert.LessOrEqual(t, layout.Frames, 4)
}

func TestRecompressAnimated_HugeScreenRejectedBeforeDecoding(t *testing.T) {
	data := screenGIF(t, 30000, 30000, solidFrame(1, 1, 0))
	require.Less(t, len(data), 200)

	start := time.Now()
	_, err := RecompressAnimated(data, Params{Quality: 85, FrameStride: 1, FrameIntervalMs: 100})
	assert.ErrorIs(t, err, ErrDecode)
	assert.Less(t, time.Since(start), 5*time.Second)

	_, err = RecompressStatic(data, 85)
	assert.ErrorIs(t, err, ErrDecode)

	_, err = NewDefaultCompressor(quietLogger()).Compress(context.Background(), SourceAsset{Name: "huge.gif", Data: data}, DefaultParams())
	assert.ErrorIs(t, err, ErrDecode)
}

func TestRecompressAnimated_KeptFramesCountAgainstBudget(t *testing.T) {
	frames := []*image.Paletted{solidFrame(10, 10, 0)}
	for i := 1; i < 10; i++ {
		frames = append(frames, solidFrame(1, 1, uint8(i)))
	}
	data := screenGIF(t, 10, 10, frames...)

	// 10 kept frames of a 10x10 screen
	_, err := recompressAnimated(data, Params{Quality: 50, FrameStride: 1, FrameIntervalMs: 100}, 500)
	assert.ErrorIs(t, err, ErrDecode)

	// 5 kept frames
	asset, err := recompressAnimated(data, Params{Quality: 50, FrameStride: 2, FrameIntervalMs: 100}, 500)
	require.NoError(t, err)
	assert.Equal(t, 5, asset.Frames)
	assert.Equal(t, 10, asset.SourceFrames)
}

func TestRecompressAnimated_DecodedFramesCountAgainstBudget(t *testing.T) {
	data := animatedGIF(t, 6, 10, 10)

	// every frame has to be decoded even when only every third one is kept
	_, err := recompressAnimated(data, Params{Quality: 50, FrameStride: 3, FrameIntervalMs: 100}, 500)
	assert.ErrorIs(t, err, ErrDecode)

	_, err = recompressAnimated(data, Params{Quality: 50, FrameStride: 3, FrameIntervalMs: 100}, 600)
	assert.NoError(t, err)
}

func TestRecompressStatic_PixelBudget(t *testing.T) {
	data := encodePNG(t, noisyGradient(20, 20))

	_, err := recompressStatic(data, 80, 399)
	assert.ErrorIs(t, err, ErrDecode)

	asset, err := recompressStatic(data, 80, 400)
	require.NoError(t, err)
	assert.Equal(t, 20, asset.Width)
}

func TestDefaultCompressor_WithMaxPixels(t *testing.T) {
	data := encodePNG(t, noisyGradient(32, 32))

	_, err := NewDefaultCompressor(quietLogger(), WithMaxPixels(100)).
		Compress(context.Background(), SourceAsset{Name: "a.png", Data: data}, DefaultParams())
	assert.ErrorIs(t, err, ErrDecode)

	// non-positive values keep the default budget
	res, err := NewDefaultCompressor(quietLogger(), WithMaxPixels(0)).
		Compress(context.Background(), SourceAsset{Name: "a.png", Data: data}, DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, KindStatic, res.Asset.Kind)
}
