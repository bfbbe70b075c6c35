package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/phambaophuc/thumbnail-creator/internal/models"
)

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Session   SessionConfig
	Storage   StorageConfig
	Thumbnail ThumbnailConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SessionConfig struct {
	// Store is "memory" or "redis".
	Store string
	TTL   time.Duration
}

type StorageConfig struct {
	MaxFileSize  int64
	MaxFiles     int
	AllowedTypes []string
}

type ThumbnailConfig struct {
	DefaultWidth   int
	DefaultHeight  int
	DefaultQuality float64
	DefaultFormat  string
	MaxDimension   int
	// MaxPixels bounds width*height of a source image; larger ones fail
	// without being decoded.
	MaxPixels      int
	Workers        int
	Filter         string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Mode:           getEnv("GIN_MODE", "release"),
			ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
			WriteTimeout:   getDuration("WRITE_TIMEOUT", 60*time.Second),
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Session: SessionConfig{
			Store: strings.ToLower(getEnv("SESSION_STORE", "memory")),
			TTL:   getDuration("SESSION_TTL", 2*time.Hour),
		},
		Storage: StorageConfig{
			MaxFileSize:  getEnvAsInt64("MAX_FILE_SIZE", 20*1024*1024), // 20MB
			MaxFiles:     getEnvAsInt("MAX_FILES", 50),
			AllowedTypes: []string{"image/jpeg", "image/png", "image/gif", "image/webp", "image/bmp", "image/tiff"},
		},
		Thumbnail: ThumbnailConfig{
			DefaultWidth:   getEnvAsInt("THUMBNAIL_DEFAULT_WIDTH", 300),
			DefaultHeight:  getEnvAsInt("THUMBNAIL_DEFAULT_HEIGHT", 200),
			DefaultQuality: getEnvAsFloat("THUMBNAIL_DEFAULT_QUALITY", 0.8),
			DefaultFormat:  getEnv("THUMBNAIL_DEFAULT_FORMAT", "jpeg"),
			MaxDimension:   getEnvAsInt("THUMBNAIL_MAX_DIMENSION", 2000),
			MaxPixels:      getEnvAsInt("THUMBNAIL_MAX_PIXELS", 50_000_000),
			Workers:        getEnvAsInt("THUMBNAIL_WORKERS", 5),
			Filter:         strings.ToLower(getEnv("THUMBNAIL_FILTER", "lanczos")),
		},
	}

	return cfg, nil
}

// Settings returns the settings a new session starts with.
func (t ThumbnailConfig) Settings() (models.ThumbnailSettings, error) {
	format, err := models.ParseFormat(t.DefaultFormat)
	if err != nil {
		return models.ThumbnailSettings{}, err
	}

	settings := models.ThumbnailSettings{
		Width:   t.DefaultWidth,
		Height:  t.DefaultHeight,
		Quality: t.DefaultQuality,
		Format:  format,
	}
	if err := settings.Validate(t.MaxDimension); err != nil {
		return models.ThumbnailSettings{}, err
	}
	return settings, nil
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultVal
}

func getEnvAsList(key string, defaultVal []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultVal
	}

	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}
