package compressor

import (
	"bytes"
	"errors"
	"image"

	"github.com/disintegration/imaging"
)

// RecompressStatic decodes an image of any supported format and re-encodes it as JPEG.
// Animated inputs contribute their first frame only. Images larger than
// DefaultMaxPixels are rejected before decoding.
func RecompressStatic(data []byte, quality int) (*CompressedAsset, error) {
	return recompressStatic(data, quality, DefaultMaxPixels)
}

func recompressStatic(data []byte, quality int, maxPixels int64) (*CompressedAsset, error) {
	if err := validateQuality(quality); err != nil {
		return nil, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, decodeErr("recompress_static", err)
	}
	if err := CheckPixelBudget(cfg.Width, cfg.Height, 1, maxPixels); err != nil {
		return nil, err
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, decodeErr("recompress_static", err)
	}
	return EncodeStatic(img, quality)
}

// EncodeStatic converts img to opaque RGB and encodes it as JPEG.
// The alpha channel is dropped, not composited: colour channels are kept as stored.
func EncodeStatic(img image.Image, quality int) (*CompressedAsset, error) {
	if err := validateQuality(quality); err != nil {
		return nil, err
	}
	if img == nil || img.Bounds().Empty() {
		return nil, encodeErr("encode_static", errors.New("zero-size image"))
	}

	flat := dropAlpha(img)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, flat, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, encodeErr("encode_static", err)
	}
	if buf.Len() == 0 {
		return nil, encodeErr("encode_static", errors.New("encoder produced no data"))
	}

	b := flat.Bounds()
	return &CompressedAsset{
		Data:         buf.Bytes(),
		MIME:         MIMEJPEG,
		Size:         int64(buf.Len()),
		Kind:         KindStatic,
		Width:        b.Dx(),
		Height:       b.Dy(),
		Frames:       1,
		SourceFrames: 1,
	}, nil
}

// dropAlpha returns an NRGBA copy of img with every pixel forced opaque.
func dropAlpha(img image.Image) *image.NRGBA {
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}
