package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100

	DefaultLimitComments = 20
	MaxLimitComments     = 100

	TrendingDays = 7
)

type Config struct {
	Env      string
	Port     string
	MongoURI string
	MongoDB  string

	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	CORSOrigins string
	DataStore   string // mongo | memory

	StorageDriver  string // local | minio
	FilesDir       string
	MaxUploadBytes int64
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MinioPublicURL string

	MeiliURL       string
	MeiliMasterKey string
	RedisURL       string
	RollbarToken   string
}

// GetEnv returns the value of key, or fallback when it is unset or blank.
func GetEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(GetEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(GetEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	return Config{
		Env:      GetEnv("APP_ENV", "development"),
		Port:     GetEnv("PORT", "5000"),
		MongoURI: GetEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  GetEnv("MONGO_DB", "coros"),

		JWTSecret:  GetEnv("JWT_SECRET", ""),
		AccessTTL:  time.Duration(getEnvInt("ACCESS_TTL_MINUTES", 60)) * time.Minute,
		RefreshTTL: time.Duration(getEnvInt("REFRESH_TTL_HOURS", 24*7)) * time.Hour,

		CORSOrigins: GetEnv("CORS_ORIGINS", "*"),
		DataStore:   strings.ToLower(GetEnv("DATA_STORE", "mongo")),

		StorageDriver:  strings.ToLower(GetEnv("STORAGE_DRIVER", "local")),
		FilesDir:       GetEnv("FILES_DIR", "files"),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_MB", 20)) << 20,
		MinioEndpoint:  GetEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: GetEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: GetEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    GetEnv("MINIO_BUCKET", "coros"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		MinioPublicURL: GetEnv("MINIO_PUBLIC_URL", ""),

		MeiliURL:       GetEnv("MEILI_URL", ""),
		MeiliMasterKey: GetEnv("MEILI_MASTER_KEY", ""),
		RedisURL:       GetEnv("REDIS_URL", ""),
		RollbarToken:   GetEnv("ROLLBAR_TOKEN", ""),
	}
}

func (c Config) IsProduction() bool { return c.Env == "production" }

// ClampLimit applies the default page size and the hard maximum.
func ClampLimit(raw, def, maxLimit int) int {
	if raw <= 0 {
		return def
	}
	if raw > maxLimit {
		return maxLimit
	}
	return raw
}
