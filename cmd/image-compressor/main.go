package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"image-compressor-go/internal/batch"
	"image-compressor-go/internal/compressor"
	"image-compressor-go/internal/config"
	"image-compressor-go/internal/logger"
	"image-compressor-go/internal/metadata"
	"image-compressor-go/internal/statistics"
	"image-compressor-go/internal/web"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	targetDir string
	mode      string
	quality   int
	stride    int
	interval  int
	threshold float64
	dryRun    bool
	verbose   bool
	quiet     bool
	version   = "dev"
	port      int
)

// rootCmd compresses the given files and directories.
var rootCmd = &cobra.Command{
	Use:   "image-compressor [paths...]",
	Short: "Recompress images and animated GIFs",
	Long: `image-compressor recompresses static images to JPEG and animated GIFs to
smaller GIFs, reporting the size saved and the estimated download time.

Features:
- JPEG recompression with a quality setting for static images (PNG, BMP, TIFF, WebP, JPEG)
- GIF recompression with frame skipping, a fixed frame interval and palette reduction
- Batch processing of files and directories with a worker pool
- Keeps the original when recompression does not pay off
- Web interface with live progress events (see "serve")`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCompress(cmd, args)
	},
}

// inspectCmd prints information about a single file.
var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Show format, dimensions, frames and EXIF data of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInspect(args[0])
	},
}

// serveCmd starts the web interface server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start web interface server",
	Long: `Starts a web server with an upload form for recompressing a single image or GIF.
The interface shows both versions side by side with their sizes and estimated
load times and offers the result for download.

Access the interface at http://localhost:<port> (default: 8080)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.Version = version

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress non-error output")

	rootCmd.Flags().StringVar(&targetDir, "target", "", "output directory (default from config)")
	rootCmd.Flags().StringVar(&mode, "mode", "auto", "media kind: auto, image or gif")
	rootCmd.Flags().IntVar(&quality, "quality", 85, "quality 1-100")
	rootCmd.Flags().IntVar(&stride, "stride", 1, "keep every n-th frame of animations")
	rootCmd.Flags().IntVar(&interval, "interval", 100, "frame interval of animations in milliseconds")
	rootCmd.Flags().Float64Var(&threshold, "threshold", 1.01, "keep the original when compressed >= original*threshold")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "compress without writing any files")

	serveCmd.Flags().IntVar(&port, "port", 8080, "port to run web server on")

	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(serveCmd)
}

// initConfig loads a .env file into the environment before viper reads it.
func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
	}
}

// runCompress executes a batch compression run.
func runCompress(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFlags(cmd, cfg)

	kind, err := compressor.ParseMediaKind(mode)
	if err != nil {
		return err
	}

	log := setupLogger(cfg)
	stats := statistics.NewStatistics()
	c := compressor.NewDefaultCompressor(log,
		compressor.WithBandwidth(cfg.Bandwidth),
		compressor.WithMaxPixels(cfg.Compression.MaxPixels))
	runner := batch.NewRunner(cfg, log, stats, c)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := runner.Run(ctx, batch.Options{
		InputPaths: args,
		TargetDir:  cfg.TargetDirectory,
		Params:     cfg.DefaultParams(),
		Kind:       kind,
		Threshold:  cfg.Compression.Threshold,
		DryRun:     dryRun,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("compression failed: %w", err)
	}

	if !quiet {
		printResults(results)
		fmt.Println("\n" + stats.GetSummary())
		if stats.Snapshot().FilesWithErrors > 0 {
			fmt.Println(stats.GetErrorSummary())
		}
	}

	if err != nil {
		return fmt.Errorf("compression interrupted: %w", err)
	}
	return nil
}

// applyFlags overrides config values with the flags given on the command line.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("target") {
		cfg.TargetDirectory = targetDir
	}
	if flags.Changed("quality") {
		cfg.Compression.Quality = quality
	}
	if flags.Changed("stride") {
		cfg.Compression.FrameStride = stride
	}
	if flags.Changed("interval") {
		cfg.Compression.FrameIntervalMs = interval
	}
	if flags.Changed("threshold") {
		cfg.Compression.Threshold = threshold
	}
}

func printResults(results []batch.FileResult) {
	for _, r := range results {
		switch r.Action {
		case batch.ActionCompressed:
			fmt.Printf("%s -> %s: %s -> %s (saved %.1f%%)\n",
				r.InputPath, r.OutputPath,
				humanize.IBytes(uint64(r.OriginalSize)), humanize.IBytes(uint64(r.CompressedSize)),
				r.PercentageSaved)
		case batch.ActionOriginal:
			fmt.Printf("%s -> %s: kept original (%s)\n",
				r.InputPath, r.OutputPath, humanize.IBytes(uint64(r.OriginalSize)))
		default:
			fmt.Printf("%s: %s\n", r.InputPath, r.Message)
		}
	}
}

// runInspect prints metadata of a single file.
func runInspect(filePath string) error {
	if !fileExists(filePath) {
		return fmt.Errorf("file does not exist: %s", filePath)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read %s: %w", filePath, err)
	}

	log := logrus.New()
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	info, err := metadata.NewInspector(log).Inspect(data)
	if err != nil {
		return fmt.Errorf("inspect %s: %w", filePath, err)
	}

	fmt.Printf("File:       %s\n", filepath.Base(filePath))
	fmt.Printf("Format:     %s (%s)\n", info.Format, info.KindName)
	fmt.Printf("Size:       %s\n", humanize.IBytes(uint64(info.Size)))
	fmt.Printf("Dimensions: %dx%d\n", info.Width, info.Height)
	if info.Kind == compressor.KindAnimated {
		fmt.Printf("Frames:     %d (loop count %d)\n", info.Frames, info.LoopCount)
	}
	fmt.Printf("Download:   %.2f seconds at %s/s\n",
		compressor.EstimateTransferSeconds(info.Size, compressor.DefaultBandwidth),
		humanize.IBytes(uint64(compressor.DefaultBandwidth)))

	if !info.HasEXIF() {
		fmt.Println("EXIF:       none")
		return nil
	}
	x := info.EXIF
	if x.Make != "" || x.Model != "" {
		fmt.Printf("Camera:     %s %s\n", x.Make, x.Model)
	}
	if x.Software != "" {
		fmt.Printf("Software:   %s\n", x.Software)
	}
	if x.DateTaken != nil {
		fmt.Printf("Taken:      %s (%s, %s)\n", x.DateTaken.Format("2006-01-02 15:04:05"), x.DateSource, humanize.Time(*x.DateTaken))
	}
	if x.Orientation != 0 {
		fmt.Printf("Orientation: %d\n", x.Orientation)
	}
	return nil
}

// runServe starts the web server and handles graceful shutdown.
func runServe(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "CONFIG LOAD ERROR: %v\n", err)
		cfg = config.DefaultConfig()
	}
	if cmd.Flags().Changed("port") || cfg.Server.Port == 0 {
		cfg.Server.Port = port
	}

	log := setupLogger(cfg)
	server := web.NewServer(cfg, log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := server.Start(cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	fmt.Printf("Image Compressor web interface started\n")
	fmt.Printf("Open your browser and go to: http://localhost:%d\n", cfg.Server.Port)
	fmt.Printf("Press Ctrl+C to stop the server\n\n")

	<-sigChan
	fmt.Println("\nShutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	fmt.Println(server.Statistics().GetSummary())
	fmt.Println("Server stopped gracefully")
	return nil
}

// setupLogger configures and returns a logger.
func setupLogger(cfg *config.Config) *logrus.Logger {
	loggerCfg := logger.LoggerConfig{
		Level:      cfg.Logging.Level,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
		Compress:   cfg.Logging.Compress,
		Console:    true,
	}.WithVerbosity(verbose, quiet)

	log, err := logger.NewLogger(loggerCfg)
	if err != nil {
		log = logrus.New()
		log.SetLevel(logrus.InfoLevel)
	}

	return log
}

// fileExists returns true if the given path exists and is a file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
