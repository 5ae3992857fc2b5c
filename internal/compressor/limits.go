package compressor

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// DefaultMaxPixels is the decoded pixel budget of a single recompression.
const DefaultMaxPixels int64 = 50_000_000

// CheckPixelBudget fails with ErrDecode when width*height*frames exceeds
// maxPixels. A maxPixels of zero or less disables the check.
func CheckPixelBudget(width, height, frames int, maxPixels int64) error {
	if maxPixels <= 0 {
		return nil
	}
	if frames < 1 {
		frames = 1
	}
	area := int64(width) * int64(height)
	if area <= 0 {
		return nil
	}
	if area > maxPixels || int64(frames) > maxPixels/area {
		return decodeErr("check_pixels", fmt.Errorf("%dx%d image with %d frame(s) exceeds the budget of %d pixels",
			width, height, frames, maxPixels))
	}
	return nil
}

// GIFLayout is the shape of a GIF stream read from its block headers only.
type GIFLayout struct {
	Width       int
	Height      int
	Frames      int
	FramePixels int64 // sum of the frame rectangle areas
}

// CheckDecode fails with ErrDecode when decoding the logical screen or the
// frames of the stream would exceed maxPixels.
func (l GIFLayout) CheckDecode(maxPixels int64) error {
	if err := CheckPixelBudget(l.Width, l.Height, 1, maxPixels); err != nil {
		return err
	}
	if maxPixels > 0 && l.FramePixels > maxPixels {
		return decodeErr("check_pixels", fmt.Errorf("%d frames hold %d pixels, over the budget of %d pixels",
			l.Frames, l.FramePixels, maxPixels))
	}
	return nil
}

// ScanGIF walks the block structure of a GIF without decompressing any
// image data. It stops at the trailer or at the first truncated or unknown
// block; reporting those is left to the decoder.
func ScanGIF(data []byte) (GIFLayout, error) {
	var l GIFLayout
	if len(data) < 13 || (string(data[:6]) != "GIF87a" && string(data[:6]) != "GIF89a") {
		return l, errors.New("gif: can't recognize format")
	}
	l.Width = int(binary.LittleEndian.Uint16(data[6:8]))
	l.Height = int(binary.LittleEndian.Uint16(data[8:10]))

	pos := 13
	if data[10]&0x80 != 0 {
		pos += colorTableLen(data[10])
	}
	for pos < len(data) {
		switch data[pos] {
		case 0x21: // extension: label, then sub-blocks
			pos = skipSubBlocks(data, pos+2)
		case 0x2c: // image descriptor
			if pos+10 > len(data) {
				return l, nil
			}
			d := data[pos+1 : pos+10]
			l.Frames++
			l.FramePixels += int64(binary.LittleEndian.Uint16(d[4:6])) * int64(binary.LittleEndian.Uint16(d[6:8]))
			pos += 10
			if d[8]&0x80 != 0 {
				pos += colorTableLen(d[8])
			}
			// LZW minimum code size, then the compressed data
			pos = skipSubBlocks(data, pos+1)
		default:
			return l, nil
		}
	}
	return l, nil
}

func colorTableLen(flags byte) int {
	return 3 << (flags&0x07 + 1)
}

func skipSubBlocks(data []byte, pos int) int {
	for pos < len(data) {
		n := int(data[pos])
		pos++
		if n == 0 {
			return pos
		}
		pos += n
	}
	return len(data)
}
