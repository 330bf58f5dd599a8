package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port    string
	TempDir string
	LogDir  string

	// Upload limits, enforced before any processing starts
	MaxUploadSizeMB int64
	MaxUploadFiles  int

	// Segment encoding profile. Constant per deployment so every segment
	// of a split can be concatenated without stream incompatibilities.
	VideoCodec   string
	VideoCRF     int
	VideoPreset  string
	AudioCodec   string
	AudioBitrate string

	// Concatenation: re-encode (safe across heterogeneous uploads) or
	// stream-copy (fast, requires matching codecs).
	ConcatReencode bool

	// Split behavior
	SplitConcurrency int

	// Title card policy
	TitleMinSeconds     float64
	TitleCharsPerSecond int
	TitleOmitTrailing   bool
	TitleGradientColors []string

	// Renderer
	RendererBin     string
	TransitionName  string
	KeepSourceAudio bool

	// Probe fallback dimensions
	FallbackWidth  int
	FallbackHeight int

	// Timeouts and cleanup
	ExecTimeout  time.Duration
	FetchTimeout time.Duration
	CleanupGrace time.Duration

	// Rate limiting
	RateLimitRPS   float64
	RateLimitBurst int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:    getEnv("PORT", "8080"),
		TempDir: getEnv("TEMP_DIR", "./temp"),
		LogDir:  getEnv("LOG_DIR", "./logs"),

		MaxUploadSizeMB: int64(getEnvAsInt("MAX_UPLOAD_SIZE_MB", 100)),
		MaxUploadFiles:  getEnvAsInt("MAX_UPLOAD_FILES", 10),

		VideoCodec:   getEnv("VIDEO_CODEC", "libx264"),
		VideoCRF:     getEnvAsInt("VIDEO_CRF", 18),
		VideoPreset:  getEnv("VIDEO_PRESET", "medium"),
		AudioCodec:   getEnv("AUDIO_CODEC", "aac"),
		AudioBitrate: getEnv("AUDIO_BITRATE", "128k"),

		ConcatReencode:   getEnvAsBool("CONCAT_REENCODE", true),
		SplitConcurrency: getEnvAsInt("SPLIT_CONCURRENCY", 1),

		TitleMinSeconds:     getEnvAsFloat("TITLE_MIN_SECONDS", 3),
		TitleCharsPerSecond: getEnvAsInt("TITLE_CHARS_PER_SECOND", 15),
		TitleOmitTrailing:   getEnvAsBool("TITLE_OMIT_TRAILING", false),
		TitleGradientColors: []string{"#667eea", "#764ba2"},

		RendererBin:     getEnv("RENDERER_BIN", "editly"),
		TransitionName:  getEnv("TRANSITION_NAME", "random"),
		KeepSourceAudio: getEnvAsBool("KEEP_SOURCE_AUDIO", true),

		FallbackWidth:  getEnvAsInt("FALLBACK_WIDTH", 720),
		FallbackHeight: getEnvAsInt("FALLBACK_HEIGHT", 1280),

		ExecTimeout:  time.Duration(getEnvAsInt("EXEC_TIMEOUT_MINUTES", 15)) * time.Minute,
		FetchTimeout: time.Duration(getEnvAsInt("FETCH_TIMEOUT_MINUTES", 5)) * time.Minute,
		CleanupGrace: time.Duration(getEnvAsInt("CLEANUP_GRACE_SECONDS", 10)) * time.Second,

		RateLimitRPS:   getEnvAsFloat("RATE_LIMIT_RPS", 2),
		RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 5),
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.MaxUploadSizeMB <= 0 {
		return errors.New("MAX_UPLOAD_SIZE_MB must be positive")
	}
	if c.MaxUploadFiles < 2 {
		return errors.New("MAX_UPLOAD_FILES must be at least 2")
	}
	if c.VideoCRF < 0 || c.VideoCRF > 51 {
		return errors.New("VIDEO_CRF must be between 0 and 51")
	}
	if c.SplitConcurrency <= 0 {
		return errors.New("SPLIT_CONCURRENCY must be positive")
	}
	if c.TitleCharsPerSecond <= 0 {
		return errors.New("TITLE_CHARS_PER_SECOND must be positive")
	}
	if c.TitleMinSeconds < 0 {
		return errors.New("TITLE_MIN_SECONDS must not be negative")
	}
	if c.RendererBin == "" {
		return errors.New("RENDERER_BIN is required")
	}
	return nil
}

// MaxUploadBytes returns the per-file upload cap in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadSizeMB * 1024 * 1024
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func (c *Config) String() string {
	return fmt.Sprintf("Config{Port: %s, TempDir: %s, MaxUpload: %dMB x %d, ConcatReencode: %t, Renderer: %s}",
		c.Port, c.TempDir, c.MaxUploadSizeMB, c.MaxUploadFiles, c.ConcatReencode, c.RendererBin)
}
