package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"image-compressor-go/internal/compressor"
	"image-compressor-go/internal/config"
	"image-compressor-go/internal/logger"
	"image-compressor-go/internal/statistics"

	"github.com/sirupsen/logrus"
)

// Actions recorded on a FileResult.
const (
	ActionCompressed = "compressed"
	ActionOriginal   = "original"
	ActionSkipped    = "skipped"
	ActionError      = "error"
)

// LogHookFunc receives per-file messages, e.g. for forwarding to a UI.
type LogHookFunc func(level, message string)

// Options defines parameters for a batch run.
type Options struct {
	InputPaths []string
	TargetDir  string
	Params     compressor.Params
	Kind       compressor.MediaKind
	Threshold  float64
	DryRun     bool
}

// FileResult describes the result of compressing a single file.
type FileResult struct {
	InputPath       string
	OutputPath      string
	Kind            compressor.MediaKind
	OriginalSize    int64
	CompressedSize  int64
	PercentageSaved float64
	Frames          int
	Action          string
	Message         string
	Success         bool
	StartedAt       time.Time
	FinishedAt      time.Time
	Error           error
}

// Runner compresses files from disk with a pool of workers.
type Runner struct {
	config     *config.Config
	logger     *logrus.Logger
	stats      *statistics.Statistics
	compressor compressor.Compressor
	workers    int

	logHook LogHookFunc

	// reserved output paths, so concurrent workers never pick the same name
	mu       sync.Mutex
	reserved map[string]struct{}
}

// NewRunner returns a new Runner.
func NewRunner(
	cfg *config.Config,
	logger *logrus.Logger,
	stats *statistics.Statistics,
	c compressor.Compressor,
) *Runner {
	return NewRunnerWithLogHook(cfg, logger, stats, c, nil)
}

// NewRunnerWithLogHook returns a Runner that also forwards per-file messages to logHook.
func NewRunnerWithLogHook(
	cfg *config.Config,
	logger *logrus.Logger,
	stats *statistics.Statistics,
	c compressor.Compressor,
	logHook LogHookFunc,
) *Runner {
	workers := cfg.Performance.WorkerThreads
	if workers <= 0 {
		workers = 4
	}
	return &Runner{
		config:     cfg,
		logger:     logger,
		stats:      stats,
		compressor: c,
		workers:    workers,
		logHook:    logHook,
		reserved:   make(map[string]struct{}),
	}
}

// Run compresses every supported file found under opts.InputPaths.
// Results are returned in discovery order.
func (r *Runner) Run(ctx context.Context, opts Options) ([]FileResult, error) {
	logger.WithOperation(r.logger, "batch").WithFields(logrus.Fields{
		"inputs":  len(opts.InputPaths),
		"kind":    opts.Kind.String(),
		"quality": opts.Params.Quality,
		"dry_run": opts.DryRun,
	}).Info("Starting batch compression")
	r.stats.StartTime = time.Now()

	if err := opts.Params.Validate(opts.Kind); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}
	if opts.Kind == compressor.KindUnknown {
		// auto mode may meet animations, so their parameters must be valid too
		if err := opts.Params.Validate(compressor.KindAnimated); err != nil {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}
	}

	files, err := r.discoverFiles(opts.InputPaths)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}
	if len(files) == 0 {
		r.logger.Info("No image files found to compress")
		return nil, nil
	}
	r.logger.Infof("Found %d image files to process", len(files))

	if !opts.DryRun && opts.TargetDir != "" {
		if err := os.MkdirAll(opts.TargetDir, 0755); err != nil {
			return nil, fmt.Errorf("create target dir: %w", err)
		}
	}

	type job struct {
		index int
		path  string
	}
	jobs := make(chan job)
	results := make([]FileResult, len(files))

	var wg sync.WaitGroup
	for w := 0; w < r.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results[j.index] = r.processFile(ctx, j.path, opts)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, path := range files {
			select {
			case <-ctx.Done():
				for k := i; k < len(files); k++ {
					results[k] = r.skipped(files[k], ctx.Err())
				}
				return
			case jobs <- job{index: i, path: path}:
			}
		}
	}()

	wg.Wait()

	r.stats.Finalize()
	logger.WithOperation(r.logger, "batch").Info("Batch compression completed")
	return results, ctx.Err()
}

// discoverFiles collects all files with supported extensions.
func (r *Runner) discoverFiles(inputPaths []string) ([]string, error) {
	var files []string
	seen := make(map[string]struct{})
	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
		r.stats.IncrementFilesFound()
		r.stats.IncrementFileType(strings.TrimPrefix(filepath.Ext(path), "."))
	}

	for _, in := range inputPaths {
		info, err := os.Stat(in)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if r.config.IsSupportedExtension(filepath.Ext(in)) {
				add(in)
			}
			continue
		}
		err = filepath.WalkDir(in, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				r.logger.Warnf("Error accessing path %s: %v", path, err)
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if r.config.IsSupportedExtension(filepath.Ext(path)) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

// processFile compresses a single file and writes the output.
func (r *Runner) processFile(ctx context.Context, path string, opts Options) FileResult {
	res := FileResult{InputPath: path, StartedAt: time.Now()}
	r.stats.IncrementFilesProcessed()

	if err := ctx.Err(); err != nil {
		return r.skipped(path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return r.fail(res, "read", err)
	}
	res.OriginalSize = int64(len(data))

	out, err := r.compressor.Compress(ctx, compressor.SourceAsset{Name: path, Data: data, Kind: opts.Kind}, opts.Params)
	if err != nil {
		return r.fail(res, "compress", err)
	}
	asset := out.Asset
	res.Kind = asset.Kind
	res.Frames = asset.Frames
	res.CompressedSize = asset.Size

	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = 1.01
	}

	payload, ext := asset.Data, asset.Extension()
	if float64(asset.Size) >= float64(res.OriginalSize)*threshold {
		payload, ext = data, filepath.Ext(path)
		res.Action = ActionOriginal
		res.Message = "Compressed file not smaller than original, kept original"
		res.CompressedSize = res.OriginalSize
	} else {
		res.Action = ActionCompressed
		res.Message = "Image compressed"
		res.PercentageSaved = out.Report.SavedPercent()
	}

	targetDir := opts.TargetDir
	if targetDir == "" {
		targetDir = filepath.Dir(path)
	}
	res.OutputPath = r.reserveOutputPath(targetDir, path, ext)

	if opts.DryRun {
		r.emit("info", fmt.Sprintf("DRY-RUN: Would write %s -> %s (%s)", path, res.OutputPath, res.Action))
	} else if err := writeFileAtomic(res.OutputPath, payload); err != nil {
		return r.fail(res, "write", err)
	}

	if res.Action == ActionOriginal {
		r.stats.IncrementFilesKeptOriginal()
		r.stats.AddBytes(res.OriginalSize, res.OriginalSize)
	} else {
		r.stats.RecordCompression(asset.Kind == compressor.KindAnimated, asset.SourceFrames, asset.Frames, res.OriginalSize, res.CompressedSize)
	}

	res.Success = true
	res.FinishedAt = time.Now()
	logger.WithFile(r.logger, path).WithFields(logrus.Fields{
		"output":          res.OutputPath,
		"action":          res.Action,
		"original_size":   res.OriginalSize,
		"compressed_size": res.CompressedSize,
	}).Info("Processed file")
	return res
}

func (r *Runner) fail(res FileResult, op string, err error) FileResult {
	res.Action = ActionError
	res.Message = fmt.Sprintf("%s error: %v", op, err)
	res.Error = err
	res.FinishedAt = time.Now()
	r.stats.IncrementFilesWithErrors()
	r.stats.AddError(res.InputPath, op, err.Error())
	r.emit("error", fmt.Sprintf("Compression error for %s: %s", res.InputPath, res.Message))
	return res
}

func (r *Runner) skipped(path string, err error) FileResult {
	r.stats.IncrementFilesSkipped()
	now := time.Now()
	return FileResult{
		InputPath:  path,
		Action:     ActionSkipped,
		Message:    fmt.Sprintf("skipped: %v", err),
		Error:      err,
		StartedAt:  now,
		FinishedAt: now,
	}
}

func (r *Runner) emit(level, msg string) {
	switch level {
	case "error":
		r.logger.Error(msg)
	default:
		r.logger.Info(msg)
	}
	if r.logHook != nil {
		r.logHook(level, msg)
	}
}

// reserveOutputPath returns a unique path in dir for the source file,
// adding a counter when a file or an earlier reservation already uses the name.
func (r *Runner) reserveOutputPath(dir, source, ext string) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))

	r.mu.Lock()
	defer r.mu.Unlock()

	candidate := filepath.Join(dir, base+ext)
	for counter := 1; ; counter++ {
		_, taken := r.reserved[candidate]
		_, statErr := os.Stat(candidate)
		if !taken && os.IsNotExist(statErr) {
			r.reserved[candidate] = struct{}{}
			return candidate
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, counter, ext))
	}
}

// writeFileAtomic writes data to a temp file next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write tmp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
