package compressor

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/gif"

	"github.com/ericpauley/go-quantize/quantize"
)

// RecompressAnimated decodes a GIF, keeps every FrameStride-th frame and
// re-encodes the result as an infinitely looping GIF with a uniform frame interval.
// Streams whose decoded or composed frames exceed DefaultMaxPixels are rejected
// before any pixel data is decoded.
func RecompressAnimated(data []byte, params Params) (*CompressedAsset, error) {
	return recompressAnimated(data, params, DefaultMaxPixels)
}

func recompressAnimated(data []byte, params Params, maxPixels int64) (*CompressedAsset, error) {
	if err := params.Validate(KindAnimated); err != nil {
		return nil, err
	}

	layout, err := ScanGIF(data)
	if err != nil {
		return nil, decodeErr("recompress_animated", err)
	}
	if err := layout.CheckDecode(maxPixels); err != nil {
		return nil, err
	}
	// every kept frame is snapshotted at full logical screen size
	kept := SelectFrames(layout.Frames, params.FrameStride)
	if err := CheckPixelBudget(layout.Width, layout.Height, len(kept), maxPixels); err != nil {
		return nil, err
	}

	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return nil, decodeErr("recompress_animated", err)
	}
	if len(g.Image) == 0 {
		return nil, decodeErr("recompress_animated", errors.New("gif has no frames"))
	}

	frames, err := composeFrames(g, func(i int) bool {
		return i%params.FrameStride == 0
	})
	if err != nil {
		return nil, decodeErr("recompress_animated", err)
	}
	return encodeFrames(frames, len(g.Image), params)
}

// EncodeAnimated selects frames by stride from an ordered sequence of fully
// composed frames and encodes them as a looping GIF.
func EncodeAnimated(frames []image.Image, params Params) (*CompressedAsset, error) {
	if err := params.Validate(KindAnimated); err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, encodeErr("encode_animated", errors.New("no frames"))
	}

	idx := SelectFrames(len(frames), params.FrameStride)
	selected := make([]image.Image, 0, len(idx))
	for _, i := range idx {
		selected = append(selected, frames[i])
	}
	return encodeFrames(selected, len(frames), params)
}

// encodeFrames flattens, quantizes and encodes frames that were already selected.
func encodeFrames(frames []image.Image, sourceFrames int, params Params) (*CompressedAsset, error) {
	if len(frames) == 0 || frames[0] == nil {
		return nil, encodeErr("encode_animated", errors.New("no frames"))
	}
	screen := frames[0].Bounds()
	if screen.Empty() {
		return nil, encodeErr("encode_animated", errors.New("zero-size image"))
	}

	var drawer draw.Drawer = draw.Src
	if params.Quality >= ditherThreshold {
		drawer = draw.FloydSteinberg
	}
	q := quantize.MedianCutQuantizer{}
	colors := PaletteSize(params.Quality)
	delay := delayCentiseconds(params.FrameIntervalMs)

	out := &gif.GIF{
		LoopCount: 0,
		Config: image.Config{
			Width:  screen.Dx(),
			Height: screen.Dy(),
		},
	}
	for _, f := range frames {
		if f == nil {
			return nil, encodeErr("encode_animated", errors.New("nil frame"))
		}
		flat := flatten(f, screen)
		palette := q.Quantize(make(color.Palette, 0, colors), flat)
		if len(palette) == 0 {
			return nil, encodeErr("encode_animated", errors.New("empty palette"))
		}
		pm := image.NewPaletted(flat.Bounds(), palette)
		drawer.Draw(pm, pm.Bounds(), flat, flat.Bounds().Min)

		out.Image = append(out.Image, pm)
		out.Delay = append(out.Delay, delay)
		out.Disposal = append(out.Disposal, gif.DisposalNone)
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, out); err != nil {
		return nil, encodeErr("encode_animated", err)
	}

	return &CompressedAsset{
		Data:         buf.Bytes(),
		MIME:         MIMEGIF,
		Size:         int64(buf.Len()),
		Kind:         KindAnimated,
		Width:        screen.Dx(),
		Height:       screen.Dy(),
		Frames:       len(out.Image),
		SourceFrames: sourceFrames,
	}, nil
}
