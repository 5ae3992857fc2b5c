package config

import (
	"fmt"
	"strings"

	"image-compressor-go/internal/compressor"

	"github.com/spf13/viper"
)

// Config represents the main configuration structure
type Config struct {
	TargetDirectory     string            `mapstructure:"target_directory"`
	SupportedExtensions []string          `mapstructure:"supported_extensions"`
	Bandwidth           float64           `mapstructure:"bandwidth_bytes_per_second"`
	Compression         CompressionConfig `mapstructure:"compression"`
	Limits              LimitsConfig      `mapstructure:"limits"`
	Server              ServerConfig      `mapstructure:"server"`
	Performance         PerformanceConfig `mapstructure:"performance"`
	Logging             LoggingConfig     `mapstructure:"logging"`
}

// CompressionConfig contains the default compression parameters
type CompressionConfig struct {
	Quality         int     `mapstructure:"quality"`
	FrameStride     int     `mapstructure:"frame_stride"`
	FrameIntervalMs int     `mapstructure:"frame_interval_ms"`
	Threshold       float64 `mapstructure:"threshold"` // keep the original when compressed >= original*threshold
	MaxPixels       int64   `mapstructure:"max_pixels"` // decoded pixel budget, width*height*kept frames
}

// Range is an inclusive integer range exposed by the upload form.
type Range struct {
	Min int `mapstructure:"min" json:"min"`
	Max int `mapstructure:"max" json:"max"`
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v int) bool {
	return v >= r.Min && v <= r.Max
}

// LimitsConfig narrows the engine's accepted ranges for interactive use
type LimitsConfig struct {
	Quality       Range `mapstructure:"quality"`
	FrameStride   Range `mapstructure:"frame_stride"`
	FrameInterval Range `mapstructure:"frame_interval_ms"`
}

// ServerConfig contains web server settings
type ServerConfig struct {
	Port           int  `mapstructure:"port"`
	MaxUploadMB    int  `mapstructure:"max_upload_mb"`
	ReadTimeoutSec int  `mapstructure:"read_timeout_sec"`
	EnableMetrics  bool `mapstructure:"enable_metrics"`
}

// PerformanceConfig contains performance tuning settings
type PerformanceConfig struct {
	WorkerThreads int `mapstructure:"worker_threads"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		TargetDirectory: "compressed",
		SupportedExtensions: []string{
			".jpg", ".jpeg", ".png", ".bmp", ".tiff", ".tif", ".webp", ".gif",
		},
		Bandwidth: compressor.DefaultBandwidth,
		Compression: CompressionConfig{
			Quality:         85,
			FrameStride:     1,
			FrameIntervalMs: 100,
			Threshold:       1.01,
			MaxPixels:       compressor.DefaultMaxPixels,
		},
		Limits: LimitsConfig{
			Quality:       Range{Min: 10, Max: 100},
			FrameStride:   Range{Min: 1, Max: 5},
			FrameInterval: Range{Min: 10, Max: 500},
		},
		Server: ServerConfig{
			Port:           8080,
			MaxUploadMB:    32,
			ReadTimeoutSec: 30,
			EnableMetrics:  true,
		},
		Performance: PerformanceConfig{
			WorkerThreads: 4,
		},
		Logging: LoggingConfig{
			Level:      "info",
			FilePath:   "image-compressor.log",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     30,
			Compress:   true,
		},
	}
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	return load(viper.New(), configPath)
}

func load(v *viper.Viper, configPath string) (*Config, error) {
	config := DefaultConfig()

	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config file in current directory and home directory
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.image-compressor")
		v.AddConfigPath("/etc/image-compressor")
	}

	// Enable environment variable support
	v.SetEnvPrefix("IMAGE_COMPRESSOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	// A list is decoded over the existing slice element by element, so a
	// configured list has to start empty to replace the defaults.
	if v.IsSet("supported_extensions") {
		config.SupportedExtensions = nil
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// bindEnvKeys registers the keys Unmarshal should resolve from the environment
// even when no config file mentions them.
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"target_directory",
		"bandwidth_bytes_per_second",
		"compression.quality",
		"compression.frame_stride",
		"compression.frame_interval_ms",
		"compression.threshold",
		"compression.max_pixels",
		"server.port",
		"server.max_upload_mb",
		"server.enable_metrics",
		"performance.worker_threads",
		"logging.level",
		"logging.file_path",
	} {
		_ = v.BindEnv(key)
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Limits.validate(); err != nil {
		return err
	}

	defaults := c.DefaultParams()
	if err := defaults.Validate(compressor.KindAnimated); err != nil {
		return fmt.Errorf("invalid default compression parameters: %w", err)
	}
	if !c.Limits.Quality.Contains(defaults.Quality) {
		return fmt.Errorf("default quality %d outside limits %d-%d", defaults.Quality, c.Limits.Quality.Min, c.Limits.Quality.Max)
	}
	if !c.Limits.FrameStride.Contains(defaults.FrameStride) {
		return fmt.Errorf("default frame_stride %d outside limits %d-%d", defaults.FrameStride, c.Limits.FrameStride.Min, c.Limits.FrameStride.Max)
	}
	if !c.Limits.FrameInterval.Contains(defaults.FrameIntervalMs) {
		return fmt.Errorf("default frame_interval_ms %d outside limits %d-%d", defaults.FrameIntervalMs, c.Limits.FrameInterval.Min, c.Limits.FrameInterval.Max)
	}

	if c.Compression.Threshold <= 0 {
		c.Compression.Threshold = 1.01
	}
	if c.Bandwidth <= 0 {
		c.Bandwidth = compressor.DefaultBandwidth
	}
	if c.Compression.MaxPixels < 0 {
		return fmt.Errorf("invalid max_pixels: %d", c.Compression.MaxPixels)
	}
	if c.Compression.MaxPixels == 0 {
		c.Compression.MaxPixels = compressor.DefaultMaxPixels
	}

	c.SupportedExtensions = normalizeExtensions(c.SupportedExtensions)

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		c.Server.MaxUploadMB = 32
	}
	if c.Server.ReadTimeoutSec <= 0 {
		c.Server.ReadTimeoutSec = 30
	}
	if c.Performance.WorkerThreads <= 0 {
		c.Performance.WorkerThreads = 4
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}

	return nil
}

func (l LimitsConfig) validate() error {
	if l.Quality.Min < compressor.MinQuality || l.Quality.Max > compressor.MaxQuality || l.Quality.Min > l.Quality.Max {
		return fmt.Errorf("invalid quality limits %d-%d (allowed %d-%d)", l.Quality.Min, l.Quality.Max, compressor.MinQuality, compressor.MaxQuality)
	}
	if l.FrameStride.Min < 1 || l.FrameStride.Min > l.FrameStride.Max {
		return fmt.Errorf("invalid frame_stride limits %d-%d", l.FrameStride.Min, l.FrameStride.Max)
	}
	if l.FrameInterval.Min < 1 || l.FrameInterval.Min > l.FrameInterval.Max {
		return fmt.Errorf("invalid frame_interval_ms limits %d-%d", l.FrameInterval.Min, l.FrameInterval.Max)
	}
	return nil
}

// DefaultParams returns the configured default compression parameters
func (c *Config) DefaultParams() compressor.Params {
	return compressor.Params{
		Quality:         c.Compression.Quality,
		FrameStride:     c.Compression.FrameStride,
		FrameIntervalMs: c.Compression.FrameIntervalMs,
	}
}

// CheckLimits reports an error when params fall outside the interactive limits.
// Stride and interval are only checked for animations.
func (c *Config) CheckLimits(p compressor.Params, kind compressor.MediaKind) error {
	if !c.Limits.Quality.Contains(p.Quality) {
		return fmt.Errorf("quality must be between %d and %d", c.Limits.Quality.Min, c.Limits.Quality.Max)
	}
	if kind == compressor.KindStatic {
		return nil
	}
	if !c.Limits.FrameStride.Contains(p.FrameStride) {
		return fmt.Errorf("frame_stride must be between %d and %d", c.Limits.FrameStride.Min, c.Limits.FrameStride.Max)
	}
	if !c.Limits.FrameInterval.Contains(p.FrameIntervalMs) {
		return fmt.Errorf("frame_interval_ms must be between %d and %d", c.Limits.FrameInterval.Min, c.Limits.FrameInterval.Max)
	}
	return nil
}

// MaxUploadBytes returns the upload limit in bytes
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}

// IsSupportedExtension checks if the extension is one the batch runner picks up
func (c *Config) IsSupportedExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, supportedExt := range c.SupportedExtensions {
		if ext == supportedExt {
			return true
		}
	}
	return false
}

// Helper functions

func normalizeExtensions(extensions []string) []string {
	normalized := make([]string, len(extensions))
	for i, ext := range extensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized[i] = ext
	}
	return normalized
}
