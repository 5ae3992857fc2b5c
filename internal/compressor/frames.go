package compressor

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/gif"

	"github.com/disintegration/imaging"
)

// FlattenBackground is the colour transparent animation pixels are composited onto.
var FlattenBackground = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

// SelectFrames returns the indices of the frames kept for the given stride:
// every index i with i%stride == 0, in their original order.
func SelectFrames(count, stride int) []int {
	if count <= 0 || stride < 1 {
		return nil
	}
	idx := make([]int, 0, (count+stride-1)/stride)
	for i := 0; i < count; i += stride {
		idx = append(idx, i)
	}
	return idx
}

// composeFrames renders the frames of g onto a full logical-screen canvas,
// applying each frame's disposal method before the next one is drawn.
// Only frames for which keep returns true are snapshotted.
func composeFrames(g *gif.GIF, keep func(int) bool) ([]image.Image, error) {
	if len(g.Image) == 0 {
		return nil, errors.New("gif has no frames")
	}

	screen := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if screen.Empty() {
		for _, f := range g.Image {
			screen = screen.Union(f.Bounds())
		}
		screen.Min = image.Point{}
	}
	if screen.Empty() {
		return nil, errors.New("gif has zero-size logical screen")
	}

	canvas := image.NewRGBA(screen)
	var frames []image.Image
	for i, src := range g.Image {
		disposal := byte(gif.DisposalNone)
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}

		var previous *image.RGBA
		if disposal == gif.DisposalPrevious {
			previous = cloneRGBA(canvas)
		}

		draw.Draw(canvas, src.Bounds(), src, src.Bounds().Min, draw.Over)
		if keep(i) {
			frames = append(frames, imaging.Clone(canvas))
		}

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, src.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			canvas = previous
		}
	}
	return frames, nil
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}

// flatten composites frame over an opaque background of the given size.
func flatten(frame image.Image, screen image.Rectangle) *image.NRGBA {
	bg := imaging.New(screen.Dx(), screen.Dy(), FlattenBackground)
	return imaging.Overlay(bg, frame, frame.Bounds().Min.Sub(screen.Min), 1.0)
}
