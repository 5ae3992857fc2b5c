package compressor

import (
	"context"
	"fmt"
	"strings"
)

// MediaKind tags a source asset as a static image or an animation.
type MediaKind int

const (
	KindUnknown MediaKind = iota
	KindStatic
	KindAnimated
)

// MIME types of the produced assets.
const (
	MIMEJPEG = "image/jpeg"
	MIMEGIF  = "image/gif"
)

// String returns the name of the media kind as used by the web form and the CLI.
func (k MediaKind) String() string {
	switch k {
	case KindStatic:
		return "image"
	case KindAnimated:
		return "gif"
	default:
		return "auto"
	}
}

// ParseMediaKind parses a mode flag. "auto" and "" yield KindUnknown, which
// asks the compressor to classify the input itself.
func ParseMediaKind(s string) (MediaKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return KindUnknown, nil
	case "image", "static", "jpg", "jpeg":
		return KindStatic, nil
	case "gif", "animated", "animation":
		return KindAnimated, nil
	default:
		return KindUnknown, invalidParam("parse_kind", fmt.Sprintf("unknown media kind %q", s))
	}
}

// SourceAsset holds the raw bytes of an uploaded file and its declared kind.
type SourceAsset struct {
	Name string
	Data []byte
	Kind MediaKind
}

// Params defines parameters for a single recompression.
// FrameStride and FrameIntervalMs only apply to animations.
type Params struct {
	Quality         int `json:"quality" mapstructure:"quality"`
	FrameStride     int `json:"frame_stride" mapstructure:"frame_stride"`
	FrameIntervalMs int `json:"frame_interval_ms" mapstructure:"frame_interval_ms"`
}

// Bounds accepted by the encoders. Shells may narrow them further.
const (
	MinQuality = 1
	MaxQuality = 100
)

// DefaultParams mirrors the defaults of the upload form.
func DefaultParams() Params {
	return Params{
		Quality:         85,
		FrameStride:     1,
		FrameIntervalMs: 100,
	}
}

// CompressedAsset is the encoded output of a recompression.
// SourceFrames counts the frames before stride selection.
type CompressedAsset struct {
	Data         []byte
	MIME         string
	Size         int64
	Kind         MediaKind
	Width        int
	Height       int
	Frames       int
	SourceFrames int
}

// Extension returns the file extension matching the asset MIME type.
func (a *CompressedAsset) Extension() string {
	if a.MIME == MIMEGIF {
		return ".gif"
	}
	return ".jpg"
}

// Result describes the outcome of compressing one source asset.
type Result struct {
	Asset  *CompressedAsset
	Report SizeReport
}

// Compressor defines the interface for image recompression.
type Compressor interface {
	// Compress recompresses the source asset according to the parameters.
	// A source with KindUnknown is classified from its bytes first.
	Compress(ctx context.Context, src SourceAsset, params Params) (*Result, error)
}
