package config

import (
	"os"
	"strconv"
	"time"

	"github.com/apex/log"
)

// Config holds all server settings in correct types.
type Config struct {
	Port string

	// download limits
	MaxFileSizeMB   int64
	DownloadTimeout time.Duration
	MaxConcurrent   int

	// filesystem
	WorkingDir    string
	TempRetention time.Duration
	SweepInterval time.Duration

	// external binaries
	YTDLPBinPath  string
	FFmpegBinPath string

	// collaborators, each optional unless noted
	RabbitMQURL    string
	EventQueueName string
	RedisAddr      string
	InfoCacheTTL   time.Duration
	GoogleCloudKey string
	ArchiveBucket  string

	// auth + rate limiting
	APITokens       string // required, "token:user" pairs
	RateLimitPerSec float64
	RateLimitBurst  int
}

// Load is the only way to get config in the app.
func Load() *Config {
	cfg := &Config{
		Port:            getEnv("PORT", ":8080"),
		MaxFileSizeMB:   int64(getEnvAsInt("MAX_FILE_SIZE_MB", 100)),
		DownloadTimeout: time.Duration(getEnvAsInt("DOWNLOAD_TIMEOUT_SECONDS", 30)) * time.Second,
		MaxConcurrent:   getEnvAsInt("MAX_CONCURRENT_DOWNLOADS", 3),
		WorkingDir:      getEnv("WORKING_DIR", "downloads"),
		TempRetention:   time.Duration(getEnvAsInt("TEMP_RETENTION_HOURS", 24)) * time.Hour,
		SweepInterval:   time.Duration(getEnvAsInt("SWEEP_INTERVAL_HOURS", 24)) * time.Hour,
		YTDLPBinPath:    getEnv("YTDLP_BIN_PATH", "yt-dlp"),
		FFmpegBinPath:   getEnv("FFMPEG_BIN_PATH", "ffmpeg"),
		RabbitMQURL:     getEnv("RABBITMQ_URL", ""),
		EventQueueName:  getEnv("RABBITMQ_QUEUE_NAME", "download-record-events"),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		InfoCacheTTL:    time.Duration(getEnvAsInt("INFO_CACHE_TTL_MINUTES", 10)) * time.Minute,
		GoogleCloudKey:  getEnv("GOOGLE_CLOUD_KEY", ""),
		ArchiveBucket:   getEnv("ARCHIVE_BUCKET_NAME", ""),
		APITokens:       getEnv("API_TOKENS", ""),
		RateLimitPerSec: getEnvAsFloat("RATE_LIMIT_PER_SECOND", 5),
		RateLimitBurst:  getEnvAsInt("RATE_LIMIT_BURST", 10),
	}

	validate(cfg)

	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if val, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return val
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if val, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return val
	}
	return fallback
}

// validate ensures the server won't run with limits that make no sense
func validate(cfg *Config) {
	if cfg.MaxConcurrent < 1 {
		log.Warn("MAX_CONCURRENT_DOWNLOADS must be at least 1, resetting to 3")
		cfg.MaxConcurrent = 3
	}
	if cfg.MaxConcurrent > 5 {
		log.Warn("MAX_CONCURRENT_DOWNLOADS is capped at 5")
		cfg.MaxConcurrent = 5
	}
	if cfg.MaxFileSizeMB < 1 {
		log.Warn("MAX_FILE_SIZE_MB must be at least 1, resetting to 100")
		cfg.MaxFileSizeMB = 100
	}
}

func (c *Config) MaxFileBytes() int64 {
	return c.MaxFileSizeMB * 1024 * 1024
}
