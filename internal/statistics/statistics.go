package statistics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// Statistics contains counters for a batch run or a server session.
type Statistics struct {
	TotalFilesFound     int64
	TotalFilesProcessed int64
	FilesCompressed     int64
	FilesKeptOriginal   int64
	FilesSkipped        int64
	FilesWithErrors     int64

	StaticImages   int64
	AnimatedImages int64
	FramesIn       int64
	FramesOut      int64

	BytesIn  int64
	BytesOut int64

	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
	FilesPerSecond float64

	Errors []StatError

	mutex sync.RWMutex

	FileTypeStats map[string]int64
}

// StatError represents an error that occurred during processing.
type StatError struct {
	FilePath  string    `json:"file"`
	Operation string    `json:"operation"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot is a point-in-time copy of the counters, suitable for JSON.
type Snapshot struct {
	FilesFound        int64            `json:"files_found"`
	FilesProcessed    int64            `json:"files_processed"`
	FilesCompressed   int64            `json:"files_compressed"`
	FilesKeptOriginal int64            `json:"files_kept_original"`
	FilesSkipped      int64            `json:"files_skipped"`
	FilesWithErrors   int64            `json:"files_with_errors"`
	StaticImages      int64            `json:"static_images"`
	AnimatedImages    int64            `json:"animated_images"`
	FramesIn          int64            `json:"frames_in"`
	FramesOut         int64            `json:"frames_out"`
	BytesIn           int64            `json:"bytes_in"`
	BytesOut          int64            `json:"bytes_out"`
	SavedPercent      float64          `json:"saved_percent"`
	FileTypes         map[string]int64 `json:"file_types"`
	Uptime            string           `json:"uptime"`
}

// NewStatistics returns a new Statistics instance.
func NewStatistics() *Statistics {
	return &Statistics{
		StartTime:     time.Now(),
		FileTypeStats: make(map[string]int64),
		Errors:        make([]StatError, 0),
	}
}

// IncrementFilesFound increases the count of found files by 1.
func (s *Statistics) IncrementFilesFound() {
	atomic.AddInt64(&s.TotalFilesFound, 1)
}

// IncrementFilesProcessed increases the count of processed files by 1.
func (s *Statistics) IncrementFilesProcessed() {
	atomic.AddInt64(&s.TotalFilesProcessed, 1)
}

// IncrementFilesKeptOriginal counts a file whose recompressed version was not smaller.
func (s *Statistics) IncrementFilesKeptOriginal() {
	atomic.AddInt64(&s.FilesKeptOriginal, 1)
}

// IncrementFilesSkipped increases the count of skipped files by 1.
func (s *Statistics) IncrementFilesSkipped() {
	atomic.AddInt64(&s.FilesSkipped, 1)
}

// IncrementFilesWithErrors increases the count of files with errors by 1.
func (s *Statistics) IncrementFilesWithErrors() {
	atomic.AddInt64(&s.FilesWithErrors, 1)
}

// RecordCompression records a successful recompression.
func (s *Statistics) RecordCompression(animated bool, framesIn, framesOut int, bytesIn, bytesOut int64) {
	atomic.AddInt64(&s.FilesCompressed, 1)
	if animated {
		atomic.AddInt64(&s.AnimatedImages, 1)
	} else {
		atomic.AddInt64(&s.StaticImages, 1)
	}
	atomic.AddInt64(&s.FramesIn, int64(framesIn))
	atomic.AddInt64(&s.FramesOut, int64(framesOut))
	s.AddBytes(bytesIn, bytesOut)
}

// AddBytes adds to the input and output byte totals.
func (s *Statistics) AddBytes(in, out int64) {
	atomic.AddInt64(&s.BytesIn, in)
	atomic.AddInt64(&s.BytesOut, out)
}

// IncrementFileType increases the count for a specific file type by 1.
func (s *Statistics) IncrementFileType(fileType string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.FileTypeStats[strings.ToUpper(fileType)]++
}

// Finalize calculates duration and throughput.
func (s *Statistics) Finalize() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)

	totalProcessed := atomic.LoadInt64(&s.TotalFilesProcessed)
	if s.Duration.Seconds() > 0 {
		s.FilesPerSecond = float64(totalProcessed) / s.Duration.Seconds()
	}
}

// AddError records an error that occurred during processing.
func (s *Statistics) AddError(filePath, operation, errorMsg string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.Errors = append(s.Errors, StatError{
		FilePath:  filePath,
		Operation: operation,
		Error:     errorMsg,
		Timestamp: time.Now(),
	})
}

// SavedPercent returns the overall size reduction in percent.
func (s *Statistics) SavedPercent() float64 {
	in := atomic.LoadInt64(&s.BytesIn)
	if in == 0 {
		return 0
	}
	return float64(in-atomic.LoadInt64(&s.BytesOut)) * 100 / float64(in)
}

// Snapshot returns a copy of the counters.
func (s *Statistics) Snapshot() Snapshot {
	s.mutex.RLock()
	types := make(map[string]int64, len(s.FileTypeStats))
	for k, v := range s.FileTypeStats {
		types[k] = v
	}
	start := s.StartTime
	s.mutex.RUnlock()

	return Snapshot{
		FilesFound:        atomic.LoadInt64(&s.TotalFilesFound),
		FilesProcessed:    atomic.LoadInt64(&s.TotalFilesProcessed),
		FilesCompressed:   atomic.LoadInt64(&s.FilesCompressed),
		FilesKeptOriginal: atomic.LoadInt64(&s.FilesKeptOriginal),
		FilesSkipped:      atomic.LoadInt64(&s.FilesSkipped),
		FilesWithErrors:   atomic.LoadInt64(&s.FilesWithErrors),
		StaticImages:      atomic.LoadInt64(&s.StaticImages),
		AnimatedImages:    atomic.LoadInt64(&s.AnimatedImages),
		FramesIn:          atomic.LoadInt64(&s.FramesIn),
		FramesOut:         atomic.LoadInt64(&s.FramesOut),
		BytesIn:           atomic.LoadInt64(&s.BytesIn),
		BytesOut:          atomic.LoadInt64(&s.BytesOut),
		SavedPercent:      s.SavedPercent(),
		FileTypes:         types,
		Uptime:            time.Since(start).Truncate(time.Second).String(),
	}
}

// GetSummary returns a formatted summary of all statistics.
func (s *Statistics) GetSummary() string {
	s.mutex.RLock()
	duration := s.Duration
	fps := s.FilesPerSecond
	s.mutex.RUnlock()

	return fmt.Sprintf(`Image Compressor Statistics Summary:

Files:
		Total Found: %d
		Total Processed: %d
		Compressed: %d
		Kept Original: %d
		Skipped: %d
		Errors: %d

Media:
		Static Images: %d
		Animations: %d
		Frames In: %d
		Frames Out: %d

Size:
		Bytes In: %s
		Bytes Out: %s
		Saved: %.2f%%

Performance:
		Duration: %v
		Files/Second: %.2f`,
		atomic.LoadInt64(&s.TotalFilesFound),
		atomic.LoadInt64(&s.TotalFilesProcessed),
		atomic.LoadInt64(&s.FilesCompressed),
		atomic.LoadInt64(&s.FilesKeptOriginal),
		atomic.LoadInt64(&s.FilesSkipped),
		atomic.LoadInt64(&s.FilesWithErrors),
		atomic.LoadInt64(&s.StaticImages),
		atomic.LoadInt64(&s.AnimatedImages),
		atomic.LoadInt64(&s.FramesIn),
		atomic.LoadInt64(&s.FramesOut),
		humanize.IBytes(uint64(atomic.LoadInt64(&s.BytesIn))),
		humanize.IBytes(uint64(atomic.LoadInt64(&s.BytesOut))),
		s.SavedPercent(),
		duration,
		fps)
}

// GetFileTypeBreakdown returns a formatted breakdown of file types processed.
func (s *Statistics) GetFileTypeBreakdown() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if len(s.FileTypeStats) == 0 {
		return "No file type statistics available"
	}

	types := make([]string, 0, len(s.FileTypeStats))
	for fileType := range s.FileTypeStats {
		types = append(types, fileType)
	}
	sort.Strings(types)

	result := "File Type Breakdown:\n"
	for _, fileType := range types {
		result += fmt.Sprintf("  %s: %d\n", fileType, s.FileTypeStats[fileType])
	}
	return result
}

// GetErrorSummary returns a summary of errors that occurred during processing.
func (s *Statistics) GetErrorSummary() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if len(s.Errors) == 0 {
		return "No errors occurred during processing"
	}

	result := fmt.Sprintf("Errors (%d total):\n", len(s.Errors))
	for i, err := range s.Errors {
		if i >= 10 {
			result += fmt.Sprintf("  ... and %d more errors\n", len(s.Errors)-10)
			break
		}
		result += fmt.Sprintf("  [%s] %s: %s - %s\n",
			err.Timestamp.Format("15:04:05"),
			err.Operation,
			err.FilePath,
			err.Error)
	}
	return result
}
