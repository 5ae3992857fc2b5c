package web

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"image-compressor-go/internal/compressor"
	"image-compressor-go/internal/config"
	"image-compressor-go/internal/logger"
	"image-compressor-go/internal/metrics"

	"github.com/sirupsen/logrus"
)

// multipartMemory is the part of an upload kept in memory while parsing the form.
const multipartMemory = 8 << 20

// LimitsResponse describes the ranges offered by the upload form.
type LimitsResponse struct {
	Quality       config.Range      `json:"quality"`
	FrameStride   config.Range      `json:"frame_stride"`
	FrameInterval config.Range      `json:"frame_interval_ms"`
	Defaults      compressor.Params `json:"defaults"`
	Bandwidth     float64           `json:"bandwidth_bytes_per_second"`
	MaxUploadMB   int               `json:"max_upload_mb"`
}

// CompressResponse is returned by /api/compress.
type CompressResponse struct {
	Filename            string  `json:"filename"`
	Kind                string  `json:"kind"`
	Format              string  `json:"source_format"`
	MIME                string  `json:"mime"`
	Width               int     `json:"width"`
	Height              int     `json:"height"`
	Frames              int     `json:"frames"`
	SourceFrames        int     `json:"source_frames"`
	OriginalSize        int64   `json:"original_size"`
	CompressedSize      int64   `json:"compressed_size"`
	OriginalSeconds     float64 `json:"original_seconds"`
	CompressedSeconds   float64 `json:"compressed_seconds"`
	SavedPercent        float64 `json:"saved_percent"`
	OriginalSizeLabel   string  `json:"original_size_label"`
	CompressedSizeLabel string  `json:"compressed_size_label"`
	OriginalTimeLabel   string  `json:"original_time_label"`
	CompressedTimeLabel string  `json:"compressed_time_label"`
	Data                string  `json:"data"`
}

// upload is a parsed compression form.
type upload struct {
	name   string
	format string
	data   []byte
	kind   compressor.MediaKind
	params compressor.Params
}

func (s *Server) limits() LimitsResponse {
	return LimitsResponse{
		Quality:       s.cfg.Limits.Quality,
		FrameStride:   s.cfg.Limits.FrameStride,
		FrameInterval: s.cfg.Limits.FrameInterval,
		Defaults:      s.cfg.DefaultParams(),
		Bandwidth:     s.bandwidth,
		MaxUploadMB:   s.cfg.Server.MaxUploadMB,
	}
}

func (s *Server) handleLimits(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, APIResponse{
		Success: true,
		Data:    s.limits(),
	})
}

func (s *Server) handleCompress(w http.ResponseWriter, r *http.Request) {
	up, res, ok := s.compress(w, r)
	if !ok {
		return
	}
	asset, report := res.Asset, res.Report

	s.writeJSON(w, APIResponse{
		Success: true,
		Message: "Compression finished",
		Data: CompressResponse{
			Filename:            "compressed" + asset.Extension(),
			Kind:                asset.Kind.String(),
			Format:              up.format,
			MIME:                asset.MIME,
			Width:               asset.Width,
			Height:              asset.Height,
			Frames:              asset.Frames,
			SourceFrames:        asset.SourceFrames,
			OriginalSize:        report.OriginalBytes,
			CompressedSize:      report.CompressedBytes,
			OriginalSeconds:     report.OriginalSeconds,
			CompressedSeconds:   report.CompressedSeconds,
			SavedPercent:        report.SavedPercent(),
			OriginalSizeLabel:   FormatKB(report.OriginalBytes),
			CompressedSizeLabel: FormatKB(report.CompressedBytes),
			OriginalTimeLabel:   FormatSeconds(report.OriginalSeconds),
			CompressedTimeLabel: FormatSeconds(report.CompressedSeconds),
			Data:                base64.StdEncoding.EncodeToString(asset.Data),
		},
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	_, res, ok := s.compress(w, r)
	if !ok {
		return
	}
	asset := res.Asset

	w.Header().Set("Content-Type", asset.MIME)
	w.Header().Set("Content-Length", strconv.FormatInt(asset.Size, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"compressed%s\"", asset.Extension()))
	w.Header().Set("X-Original-Size", strconv.FormatInt(res.Report.OriginalBytes, 10))
	w.Header().Set("X-Compressed-Size", strconv.FormatInt(res.Report.CompressedBytes, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(asset.Data); err != nil {
		s.log.Errorf("Failed to write download: %v", err)
	}
}

func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	name, data, ok := s.readFile(w, r)
	if !ok {
		return
	}

	info, err := s.inspector.Inspect(data)
	if err != nil {
		metrics.RecordError("inspect", compressor.Code(err))
		s.writeEngineError(w, err)
		return
	}

	s.writeJSON(w, APIResponse{
		Success: true,
		Message: name,
		Data:    info,
	})
}

// compress runs the engine for an uploaded form. On failure the error
// response has already been written.
func (s *Server) compress(w http.ResponseWriter, r *http.Request) (*upload, *compressor.Result, bool) {
	up, ok := s.readUpload(w, r)
	if !ok {
		return nil, nil, false
	}

	atomic.AddInt64(&s.inFlight, 1)
	defer atomic.AddInt64(&s.inFlight, -1)

	id := logger.RequestID(r.Context())
	log := logger.FromContext(r.Context(), s.log).WithFields(logrus.Fields{
		"file":    up.name,
		"kind":    up.kind.String(),
		"quality": up.params.Quality,
	})

	s.stats.IncrementFilesFound()
	s.stats.IncrementFileType(up.format)
	s.broadcastWSMessage("compression_started", map[string]interface{}{
		"request_id": id,
		"filename":   up.name,
		"kind":       up.kind.String(),
		"params":     up.params,
	})

	start := time.Now()
	res, err := s.compressor.Compress(r.Context(), compressor.SourceAsset{
		Name: up.name,
		Data: up.data,
		Kind: up.kind,
	}, up.params)
	s.stats.IncrementFilesProcessed()

	if err != nil {
		code := compressor.Code(err)
		metrics.RecordFailure(up.kind.String(), code, time.Since(start))
		s.stats.IncrementFilesWithErrors()
		s.stats.AddError(up.name, "compress", err.Error())
		s.broadcastWSMessage("compression_error", map[string]interface{}{
			"request_id": id,
			"filename":   up.name,
			"error":      err.Error(),
			"code":       code,
		})
		log.WithError(err).Warn("Compression failed")
		s.writeEngineError(w, err)
		return nil, nil, false
	}

	asset := res.Asset
	metrics.RecordCompression(asset.Kind.String(), time.Since(start), res.Report.OriginalBytes, res.Report.CompressedBytes)
	s.stats.RecordCompression(asset.Kind == compressor.KindAnimated, asset.SourceFrames, asset.Frames,
		res.Report.OriginalBytes, res.Report.CompressedBytes)
	s.broadcastWSMessage("compression_completed", map[string]interface{}{
		"request_id":      id,
		"filename":        up.name,
		"kind":            asset.Kind.String(),
		"original_size":   res.Report.OriginalBytes,
		"compressed_size": res.Report.CompressedBytes,
		"saved_percent":   res.Report.SavedPercent(),
	})
	log.WithField("compressed_size", asset.Size).Info("Compression finished")

	return up, res, true
}

// readUpload parses the compression form: file, mode and parameters.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*upload, bool) {
	name, data, ok := s.readFile(w, r)
	if !ok {
		return nil, false
	}

	kind, err := compressor.ParseMediaKind(r.FormValue("mode"))
	if err != nil {
		s.writeEngineError(w, err)
		return nil, false
	}

	params, err := s.formParams(r)
	if err != nil {
		s.writeErrorCode(w, err.Error(), compressor.Code(compressor.ErrInvalidParameter), http.StatusBadRequest)
		return nil, false
	}

	sniffed, format, err := compressor.Classify(data)
	if err != nil {
		metrics.RecordError("classify", compressor.Code(err))
		s.writeEngineError(w, err)
		return nil, false
	}
	if kind == compressor.KindUnknown {
		kind = sniffed
	}

	if err := s.cfg.CheckLimits(params, kind); err != nil {
		s.writeErrorCode(w, err.Error(), compressor.Code(compressor.ErrInvalidParameter), http.StatusBadRequest)
		return nil, false
	}

	return &upload{
		name:   name,
		format: format,
		data:   data,
		kind:   kind,
		params: params,
	}, true
}

// readFile reads the "file" field of a multipart form, bounded by the upload limit.
func (s *Server) readFile(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	limit := s.cfg.MaxUploadBytes()
	if r.ContentLength > limit {
		s.writeUploadTooLarge(w)
		return "", nil, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeUploadTooLarge(w)
			return "", nil, false
		}
		s.writeError(w, "Invalid multipart form", http.StatusBadRequest)
		return "", nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, "File is required", http.StatusBadRequest)
		return "", nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, "Failed to read upload", http.StatusBadRequest)
		return "", nil, false
	}
	return header.Filename, data, true
}

func (s *Server) writeUploadTooLarge(w http.ResponseWriter) {
	s.writeError(w, fmt.Sprintf("Upload exceeds %d MB", s.cfg.Server.MaxUploadMB), http.StatusRequestEntityTooLarge)
}

// formParams reads the numeric form fields, using configured defaults for missing ones.
func (s *Server) formParams(r *http.Request) (compressor.Params, error) {
	p := s.cfg.DefaultParams()
	fields := []struct {
		name string
		dst  *int
	}{
		{"quality", &p.Quality},
		{"frame_stride", &p.FrameStride},
		{"frame_interval_ms", &p.FrameIntervalMs},
	}
	for _, f := range fields {
		raw := r.FormValue(f.name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return p, fmt.Errorf("%s must be an integer", f.name)
		}
		*f.dst = v
	}
	return p, nil
}

// statusForError maps engine error kinds to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, compressor.ErrInvalidParameter):
		return http.StatusBadRequest
	case errors.Is(err, compressor.ErrDecode):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	s.writeErrorCode(w, err.Error(), compressor.Code(err), statusForError(err))
}
