package compressor

import (
	"context"
	"fmt"
	"time"

	"image-compressor-go/internal/logger"

	"github.com/sirupsen/logrus"
)

// DefaultCompressor is the default implementation of the Compressor interface.
// It holds no mutable state and is safe for concurrent use.
type DefaultCompressor struct {
	log       *logrus.Logger
	bandwidth float64
	maxPixels int64
}

// Option configures a DefaultCompressor.
type Option func(*DefaultCompressor)

// WithBandwidth sets the bandwidth in bytes per second used for size reports.
func WithBandwidth(bytesPerSecond float64) Option {
	return func(c *DefaultCompressor) {
		if bytesPerSecond > 0 {
			c.bandwidth = bytesPerSecond
		}
	}
}

// WithMaxPixels sets the decoded pixel budget. Values of zero or less keep the default.
func WithMaxPixels(n int64) Option {
	return func(c *DefaultCompressor) {
		if n > 0 {
			c.maxPixels = n
		}
	}
}

// NewDefaultCompressor creates a new DefaultCompressor instance.
func NewDefaultCompressor(log *logrus.Logger, opts ...Option) *DefaultCompressor {
	if log == nil {
		log = logrus.New()
	}
	c := &DefaultCompressor{
		log:       log,
		bandwidth: DefaultBandwidth,
		maxPixels: DefaultMaxPixels,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Bandwidth returns the bandwidth used for transfer time estimates.
func (c *DefaultCompressor) Bandwidth() float64 {
	return c.bandwidth
}

// Compress classifies the source when needed and dispatches to the static or animated path.
func (c *DefaultCompressor) Compress(ctx context.Context, src SourceAsset, params Params) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("compress %s: %w", src.Name, err)
	}

	kind := src.Kind
	if kind == KindUnknown {
		k, _, err := Classify(src.Data)
		if err != nil {
			return nil, err
		}
		kind = k
	}

	start := time.Now()
	var (
		asset *CompressedAsset
		err   error
	)
	switch kind {
	case KindStatic:
		asset, err = recompressStatic(src.Data, params.Quality, c.maxPixels)
	case KindAnimated:
		asset, err = recompressAnimated(src.Data, params, c.maxPixels)
	default:
		err = invalidParam("compress", fmt.Sprintf("unsupported media kind %d", kind))
	}

	entry := logger.FromContext(ctx, c.log).WithFields(logrus.Fields{
		"file":     src.Name,
		"kind":     kind.String(),
		"quality":  params.Quality,
		"duration": time.Since(start).String(),
	})
	if err != nil {
		entry.WithError(err).Warn("Compression failed")
		return nil, err
	}

	report := NewSizeReportWithBandwidth(int64(len(src.Data)), asset.Size, c.bandwidth)
	entry.WithFields(logrus.Fields{
		"original_size":   report.OriginalBytes,
		"compressed_size": report.CompressedBytes,
		"frames":          asset.Frames,
	}).Debug("Compression finished")

	return &Result{Asset: asset, Report: report}, nil
}
