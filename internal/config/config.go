// Package config holds the runtime limits and logging settings for the
// extraction pipeline.
//
// Configuration is layered: Default() supplies the built-in limits, Load()
// merges a YAML file over them, and ApplyEnv() lets IMAGE_EXTRACT_MCP_*
// environment variables override individual values. Validate() should be
// called once all layers are applied.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/image-extract-mcp/internal/decompress"
	"github.com/ironsheep/image-extract-mcp/internal/extract"
	"github.com/ironsheep/image-extract-mcp/internal/imaging"
)

// EnvPrefix is the prefix shared by every environment override.
const EnvPrefix = "IMAGE_EXTRACT_MCP_"

// Config holds the pipeline limits.
type Config struct {
	// MaxCandidates caps the number of candidates one extraction may return.
	MaxCandidates int `yaml:"max_candidates"`

	// MaxTextScanBytes bounds how much of a text body the data-URI and
	// embedded base64 strategies look at.
	MaxTextScanBytes int `yaml:"max_text_scan_bytes"`

	// MaxDecodedBytes is the largest candidate accepted by the gate.
	MaxDecodedBytes int `yaml:"max_decoded_bytes"`

	// MaxInflatedBytes is the ceiling on decompressed body size. Bodies that
	// inflate past it fail with a decode error.
	MaxInflatedBytes int64 `yaml:"max_inflated_bytes"`

	// MarkerScanBytes bounds the quick embedded-marker check used to decide
	// whether a body deserves a view at all.
	MarkerScanBytes int `yaml:"embedded_marker_scan_bytes"`

	// MaxImagePixels bounds width*height of a candidate, read from its
	// header before the raster is decoded.
	MaxImagePixels int `yaml:"max_image_pixels"`

	// ThumbnailSize is the longest side of the PNG previews returned by tools.
	ThumbnailSize int `yaml:"thumbnail_size"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in limits.
func Default() *Config {
	return &Config{
		MaxCandidates:    24,
		MaxTextScanBytes: 2 * 1024 * 1024,
		MaxDecodedBytes:  8 * 1024 * 1024,
		MaxInflatedBytes: 64 * 1024 * 1024,
		MarkerScanBytes:  256 * 1024,
		MaxImagePixels:   imaging.DefaultMaxPixels,
		ThumbnailSize:    256,
		LogLevel:         "info",
	}
}

// Load reads a YAML file and merges it over Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from IMAGE_EXTRACT_MCP_* variables. Unset
// variables leave the current value alone.
func (c *Config) ApplyEnv() error {
	ints := []struct {
		name string
		dst  *int
	}{
		{"MAX_CANDIDATES", &c.MaxCandidates},
		{"MAX_TEXT_SCAN_BYTES", &c.MaxTextScanBytes},
		{"MAX_DECODED_BYTES", &c.MaxDecodedBytes},
		{"MARKER_SCAN_BYTES", &c.MarkerScanBytes},
		{"MAX_IMAGE_PIXELS", &c.MaxImagePixels},
		{"THUMBNAIL_SIZE", &c.ThumbnailSize},
	}
	for _, v := range ints {
		raw, ok := os.LookupEnv(EnvPrefix + v.name)
		if !ok || raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("env %s%s: %w", EnvPrefix, v.name, err)
		}
		*v.dst = n
	}

	if raw := os.Getenv(EnvPrefix + "MAX_INFLATED_BYTES"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("env %sMAX_INFLATED_BYTES: %w", EnvPrefix, err)
		}
		c.MaxInflatedBytes = n
	}

	if raw := os.Getenv(EnvPrefix + "LOG_LEVEL"); raw != "" {
		c.LogLevel = raw
	}
	return nil
}

// Validate rejects non-positive limits and unknown log levels.
func (c *Config) Validate() error {
	switch {
	case c.MaxCandidates <= 0:
		return fmt.Errorf("max_candidates must be positive, got %d", c.MaxCandidates)
	case c.MaxTextScanBytes <= 0:
		return fmt.Errorf("max_text_scan_bytes must be positive, got %d", c.MaxTextScanBytes)
	case c.MaxDecodedBytes <= 0:
		return fmt.Errorf("max_decoded_bytes must be positive, got %d", c.MaxDecodedBytes)
	case c.MaxInflatedBytes <= 0:
		return fmt.Errorf("max_inflated_bytes must be positive, got %d", c.MaxInflatedBytes)
	case c.MarkerScanBytes <= 0:
		return fmt.Errorf("embedded_marker_scan_bytes must be positive, got %d", c.MarkerScanBytes)
	case c.MaxImagePixels <= 0:
		return fmt.Errorf("max_image_pixels must be positive, got %d", c.MaxImagePixels)
	case c.ThumbnailSize <= 0:
		return fmt.Errorf("thumbnail_size must be positive, got %d", c.ThumbnailSize)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

// ExtractOptions returns the extractor limits carried by c.
func (c *Config) ExtractOptions(logger *slog.Logger) extract.Options {
	return extract.Options{
		MaxCandidates:    c.MaxCandidates,
		MaxTextScanBytes: c.MaxTextScanBytes,
		MaxDecodedBytes:  c.MaxDecodedBytes,
		MarkerScanBytes:  c.MarkerScanBytes,
		MaxInflated:      c.MaxInflatedBytes,
		Logger:           logger,
	}
}

// DecompressOptions returns the decompressor limits carried by c.
func (c *Config) DecompressOptions() decompress.Options {
	return decompress.Options{MaxInflated: c.MaxInflatedBytes}
}

// ImagingOptions returns the decoder limits carried by c.
func (c *Config) ImagingOptions(logger *slog.Logger) imaging.Options {
	return imaging.Options{MaxPixels: c.MaxImagePixels, Logger: logger}
}
