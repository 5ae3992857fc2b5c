package metadata

import (
	"time"

	"image-compressor-go/internal/compressor"
)

// Extractor inspects an uploaded source asset without modifying it.
type Extractor interface {
	Inspect(data []byte) (*Info, error)
}

// Info describes a source asset.
type Info struct {
	Format    string               `json:"format"`
	Kind      compressor.MediaKind `json:"-"`
	KindName  string               `json:"kind"`
	Width     int                  `json:"width"`
	Height    int                  `json:"height"`
	Frames    int                  `json:"frames"`
	LoopCount int                  `json:"loop_count,omitempty"`
	Size      int64                `json:"size"`
	EXIF      *EXIFInfo            `json:"exif,omitempty"`
}

// EXIFInfo holds the EXIF fields shown to the user. They are not carried
// over into the recompressed output.
type EXIFInfo struct {
	DateTaken   *time.Time `json:"date_taken,omitempty"`
	DateSource  DateSource `json:"-"`
	Make        string     `json:"make,omitempty"`
	Model       string     `json:"model,omitempty"`
	Software    string     `json:"software,omitempty"`
	Orientation int        `json:"orientation,omitempty"`
}

// DateSource represents the EXIF tag the date was taken from.
type DateSource int

const (
	DateSourceUnknown DateSource = iota
	DateSourceEXIFDateTime
	DateSourceEXIFDateTimeOriginal
	DateSourceEXIFDateTimeDigitized
)

// String returns a human-readable description of the date source.
func (ds DateSource) String() string {
	switch ds {
	case DateSourceEXIFDateTime:
		return "EXIF DateTime"
	case DateSourceEXIFDateTimeOriginal:
		return "EXIF DateTimeOriginal"
	case DateSourceEXIFDateTimeDigitized:
		return "EXIF DateTimeDigitized"
	default:
		return "Unknown"
	}
}

// HasEXIF reports whether any EXIF data was found.
func (i *Info) HasEXIF() bool {
	return i.EXIF != nil
}
