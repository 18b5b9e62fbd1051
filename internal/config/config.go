package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Notification permission states, mirroring the browser permission model.
const (
	NotificationsDefault = "default"
	NotificationsGranted = "granted"
	NotificationsDenied  = "denied"
)

// Config holds application configuration.
type Config struct {
	// PlantIDAPIKey is the identification provider credential.
	// Empty disables analysis with a CONFIGURATION error; everything else keeps working.
	PlantIDAPIKey string `json:"plantid_api_key,omitempty" yaml:"plantid_api_key,omitempty"`

	// PlantIDBaseURL is the identification API root (without trailing slash).
	PlantIDBaseURL string `json:"plantid_base_url,omitempty" yaml:"plantid_base_url,omitempty"`

	// AdviceAPIKey is the generative-text provider credential.
	AdviceAPIKey string `json:"advice_api_key,omitempty" yaml:"advice_api_key,omitempty"`

	// AdviceBaseURL is the generative-text API root.
	AdviceBaseURL string `json:"advice_base_url,omitempty" yaml:"advice_base_url,omitempty"`

	// AdviceModel is the model name used for advice and chat replies.
	AdviceModel string `json:"advice_model,omitempty" yaml:"advice_model,omitempty"`

	// HTTPTimeoutSeconds bounds each provider request. A timed out request surfaces as TIMEOUT.
	HTTPTimeoutSeconds int `json:"http_timeout_seconds,omitempty" yaml:"http_timeout_seconds,omitempty"`

	// MaxImageBytes is the upload size cap checked before decoding.
	MaxImageBytes int64 `json:"max_image_bytes,omitempty" yaml:"max_image_bytes,omitempty"`

	// MaxImageDimension is the longest side, in pixels, after downsampling.
	MaxImageDimension int `json:"max_image_dimension,omitempty" yaml:"max_image_dimension,omitempty"`

	// MaxImagePixels caps width*height, read from the image header before the
	// full decode.
	MaxImagePixels int64 `json:"max_image_pixels,omitempty" yaml:"max_image_pixels,omitempty"`

	// JPEGQuality is the encoder quality (1-100) for the transport payload.
	JPEGQuality int `json:"jpeg_quality,omitempty" yaml:"jpeg_quality,omitempty"`

	// Notifications is the reminder permission: "default", "granted" or "denied".
	// "default" is promoted to "granted" the first time a reminder is requested.
	Notifications string `json:"notifications,omitempty" yaml:"notifications,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty"`

	// LogFormat is "text" or "json".
	LogFormat string `json:"log_format,omitempty" yaml:"log_format,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty" yaml:"db_max_open_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty" yaml:"disabled_tools,omitempty"`

	// AllowedPaths lists extra absolute directories garden export/import may use,
	// besides ~/.flourish/exports.
	AllowedPaths []string `json:"allowed_paths,omitempty" yaml:"allowed_paths,omitempty"`

	// AllowUnsafePaths lifts the directory restriction on export/import paths.
	// Symlinks are still rejected.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty" yaml:"allow_unsafe_paths,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		PlantIDBaseURL:     "https://plant.id/api/v3",
		AdviceBaseURL:      "https://generativelanguage.googleapis.com",
		AdviceModel:        "gemini-1.5-flash",
		HTTPTimeoutSeconds: 60,
		MaxImageBytes:      5 * 1024 * 1024,
		MaxImageDimension:  1536,
		MaxImagePixels:     50_000_000,
		JPEGQuality:        85,
		Notifications:      NotificationsDefault,
		LogLevel:           "info",
		LogFormat:          "text",
	}
}

// HTTPTimeout returns the provider request timeout as a duration.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// Load loads configuration from baseDir/config.json, falling back to
// baseDir/config.yaml, then applies environment overrides.
// Returns default config if neither file exists.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.flourish.
func Load(baseDir string) (*Config, error) {
	fileCfg, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	if isZero(fileCfg) {
		fileCfg, err = loadFileRaw(filepath.Join(baseDir, "config.yaml"))
		if err != nil {
			return nil, err
		}
	}

	cfg := Merge(DefaultConfig(), fileCfg)
	applyEnvOverrides(cfg)
	return cfg, nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
// Files ending in .yaml or .yml are parsed as YAML, everything else as JSON.
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	ext := strings.ToLower(filepath.Ext(configPath))
	if ext == ".yaml" || ext == ".yml" {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isZero(c *Config) bool {
	return c.PlantIDAPIKey == "" && c.PlantIDBaseURL == "" && c.AdviceAPIKey == "" &&
		c.AdviceBaseURL == "" && c.AdviceModel == "" && c.HTTPTimeoutSeconds == 0 &&
		c.MaxImageBytes == 0 && c.MaxImageDimension == 0 && c.MaxImagePixels == 0 && c.JPEGQuality == 0 &&
		c.Notifications == "" && c.LogLevel == "" && c.LogFormat == "" &&
		c.DBMaxOpenConns == 0 && len(c.DisabledTools) == 0 &&
		len(c.AllowedPaths) == 0 && !c.AllowUnsafePaths
}

// applyEnvOverrides lets credentials come from the environment, which is how
// the keys are usually supplied. FLOURISH_* names win over the legacy names.
func applyEnvOverrides(cfg *Config) {
	if v := firstEnv("FLOURISH_PLANTID_API_KEY", "PLANTID_API_KEY"); v != "" {
		cfg.PlantIDAPIKey = v
	}
	if v := firstEnv("FLOURISH_ADVICE_API_KEY", "GEMINI_API_KEY"); v != "" {
		cfg.AdviceAPIKey = v
	}
	if v := os.Getenv("FLOURISH_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("FLOURISH_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.PlantIDAPIKey = pickString(overlay.PlantIDAPIKey, base.PlantIDAPIKey)
	result.PlantIDBaseURL = strings.TrimRight(pickString(overlay.PlantIDBaseURL, base.PlantIDBaseURL), "/")
	result.AdviceAPIKey = pickString(overlay.AdviceAPIKey, base.AdviceAPIKey)
	result.AdviceBaseURL = strings.TrimRight(pickString(overlay.AdviceBaseURL, base.AdviceBaseURL), "/")
	result.AdviceModel = pickString(overlay.AdviceModel, base.AdviceModel)
	result.Notifications = pickString(overlay.Notifications, base.Notifications)
	result.LogLevel = pickString(overlay.LogLevel, base.LogLevel)
	result.LogFormat = pickString(overlay.LogFormat, base.LogFormat)

	result.HTTPTimeoutSeconds = overlay.HTTPTimeoutSeconds
	if result.HTTPTimeoutSeconds == 0 {
		result.HTTPTimeoutSeconds = base.HTTPTimeoutSeconds
	}

	result.MaxImageBytes = overlay.MaxImageBytes
	if result.MaxImageBytes == 0 {
		result.MaxImageBytes = base.MaxImageBytes
	}

	result.MaxImageDimension = overlay.MaxImageDimension
	if result.MaxImageDimension == 0 {
		result.MaxImageDimension = base.MaxImageDimension
	}

	result.MaxImagePixels = overlay.MaxImagePixels
	if result.MaxImagePixels == 0 {
		result.MaxImagePixels = base.MaxImagePixels
	}

	result.JPEGQuality = overlay.JPEGQuality
	if result.JPEGQuality == 0 {
		result.JPEGQuality = base.JPEGQuality
	}

	result.DBMaxOpenConns = overlay.DBMaxOpenConns
	if result.DBMaxOpenConns == 0 {
		result.DBMaxOpenConns = base.DBMaxOpenConns
	}

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.AllowUnsafePaths = overlay.AllowUnsafePaths || base.AllowUnsafePaths

	return result
}

func pickString(overlay, base string) string {
	if s := strings.TrimSpace(overlay); s != "" {
		return s
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
