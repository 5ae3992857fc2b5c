package metadata

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"strings"
	"time"

	"image-compressor-go/internal/compressor"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/sirupsen/logrus"
)

// Inspector extracts dimensions, frame counts and EXIF data from uploads.
type Inspector struct {
	logger    *logrus.Logger
	maxPixels int64
}

// NewInspector returns a new Inspector bounded by compressor.DefaultMaxPixels.
func NewInspector(logger *logrus.Logger) *Inspector {
	return &Inspector{logger: logger, maxPixels: compressor.DefaultMaxPixels}
}

// WithMaxPixels sets the pixel budget for decoding GIF frames.
func (e *Inspector) WithMaxPixels(n int64) *Inspector {
	if n > 0 {
		e.maxPixels = n
	}
	return e
}

// Inspect returns information about the asset in data.
// Missing or broken EXIF is not an error.
func (e *Inspector) Inspect(data []byte) (*Info, error) {
	kind, format, err := compressor.Classify(data)
	if err != nil {
		return nil, err
	}

	info := &Info{
		Format:   format,
		Kind:     kind,
		KindName: kind.String(),
		Frames:   1,
		Size:     int64(len(data)),
	}

	if kind == compressor.KindAnimated {
		layout, err := compressor.ScanGIF(data)
		if err != nil {
			return nil, &compressor.Error{Kind: compressor.ErrDecode, Op: "inspect gif", Err: err}
		}
		if err := layout.CheckDecode(e.maxPixels); err != nil {
			return nil, err
		}
		g, err := gif.DecodeAll(bytes.NewReader(data))
		if err != nil {
			return nil, &compressor.Error{Kind: compressor.ErrDecode, Op: "inspect gif", Err: err}
		}
		info.Frames = len(g.Image)
		info.LoopCount = g.LoopCount
		info.Width, info.Height = g.Config.Width, g.Config.Height
	} else {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, &compressor.Error{Kind: compressor.ErrDecode, Op: "inspect", Err: err}
		}
		info.Width, info.Height = cfg.Width, cfg.Height
	}

	if format == "jpeg" || format == "tiff" {
		if x, err := e.extractEXIF(data); err == nil {
			info.EXIF = x
		} else {
			e.logger.Debugf("No EXIF data: %v", err)
		}
	}

	return info, nil
}

// extractEXIF reads the fields of interest using the rwcarlsen/goexif library.
func (e *Inspector) extractEXIF(data []byte) (*EXIFInfo, error) {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode EXIF: %w", err)
	}

	info := &EXIFInfo{
		Make:     e.stringTag(x, exif.Make),
		Model:    e.stringTag(x, exif.Model),
		Software: e.stringTag(x, exif.Software),
	}

	if tag, err := x.Get(exif.Orientation); err == nil {
		if v, err := tag.Int(0); err == nil {
			info.Orientation = v
		}
	}

	if tm, err := x.DateTime(); err == nil {
		info.DateTaken = &tm
		info.DateSource = DateSourceEXIFDateTime
		return info, nil
	}

	for _, candidate := range []struct {
		field  exif.FieldName
		source DateSource
	}{
		{exif.DateTimeOriginal, DateSourceEXIFDateTimeOriginal},
		{exif.DateTimeDigitized, DateSourceEXIFDateTimeDigitized},
	} {
		if date := parseEXIFDateTime(e.stringTag(x, candidate.field)); date != nil {
			info.DateTaken = date
			info.DateSource = candidate.source
			break
		}
	}

	return info, nil
}

func (e *Inspector) stringTag(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	val, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimRight(val, "\x00"))
}

// parseEXIFDateTime parses an EXIF date time string.
// Returns nil if parsing fails.
func parseEXIFDateTime(dateStr string) *time.Time {
	if dateStr == "" {
		return nil
	}

	formats := []string{
		"2006:01:02 15:04:05",
		"2006-01-02 15:04:05",
		"2006:01:02",
		"2006-01-02",
		time.RFC3339,
	}

	for _, format := range formats {
		if date, err := time.Parse(format, dateStr); err == nil {
			return &date
		}
	}
	return nil
}
