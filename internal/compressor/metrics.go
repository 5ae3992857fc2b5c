package compressor

// DefaultBandwidth is the assumed download speed used for load time estimates (5 MiB/s).
const DefaultBandwidth float64 = 5 * 1024 * 1024

// SizeReport compares an original asset with its recompressed version.
type SizeReport struct {
	OriginalBytes     int64   `json:"original_bytes"`
	CompressedBytes   int64   `json:"compressed_bytes"`
	OriginalSeconds   float64 `json:"original_seconds"`
	CompressedSeconds float64 `json:"compressed_seconds"`
}

// EstimateTransferSeconds returns bytes/bandwidth without rounding.
// A non-positive bandwidth yields 0.
func EstimateTransferSeconds(bytes int64, bandwidth float64) float64 {
	if bandwidth <= 0 {
		return 0
	}
	return float64(bytes) / bandwidth
}

// NewSizeReport builds a SizeReport at DefaultBandwidth.
func NewSizeReport(original, compressed int64) SizeReport {
	return NewSizeReportWithBandwidth(original, compressed, DefaultBandwidth)
}

// NewSizeReportWithBandwidth builds a SizeReport for an explicit bandwidth in bytes per second.
func NewSizeReportWithBandwidth(original, compressed int64, bandwidth float64) SizeReport {
	return SizeReport{
		OriginalBytes:     original,
		CompressedBytes:   compressed,
		OriginalSeconds:   EstimateTransferSeconds(original, bandwidth),
		CompressedSeconds: EstimateTransferSeconds(compressed, bandwidth),
	}
}

// SavedPercent returns how much smaller the compressed asset is, in percent.
// It is negative when the output grew.
func (r SizeReport) SavedPercent() float64 {
	if r.OriginalBytes == 0 {
		return 0
	}
	return float64(r.OriginalBytes-r.CompressedBytes) * 100 / float64(r.OriginalBytes)
}

// Ratio returns compressed/original, or 0 for an empty original.
func (r SizeReport) Ratio() float64 {
	if r.OriginalBytes == 0 {
		return 0
	}
	return float64(r.CompressedBytes) / float64(r.OriginalBytes)
}
