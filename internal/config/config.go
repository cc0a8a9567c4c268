package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	RedisAddr     string
	RedisPassword string

	CronSecret string
	JWTSecret  string

	GenAIBaseURL string
	GenAIAPIKey  string
	GenAIModel   string
	GenAITimeout time.Duration

	S3Endpoint      string
	S3Region        string
	S3AccessKey     string
	S3SecretKey     string
	S3Bucket        string
	S3PublicBaseURL string
	S3UsePathStyle  bool
	S3Prefix        string

	PayAppID     string
	PayAppSecret string
	PayAPIURL    string
	PayNotifyURL string
	PayReturnURL string

	WorkerBatchSize int
	WorkerInterval  time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "pixelmint"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "json"),

		OtelEnabled:          getenvBool("OTEL_ENABLED", false),
		OtelExporterEndpoint: strings.TrimSpace(getenv("OTEL_EXPORTER_ENDPOINT", "")),
		OtelExporterProtocol: strings.ToLower(getenv("OTEL_EXPORTER_PROTOCOL", "grpc")),
		OtelSamplingRatio:    getenvFloat("OTEL_SAMPLING_RATIO", 0.1),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "pixelmint"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),

		RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword: getenv("REDIS_PASSWORD", ""),

		CronSecret: strings.TrimSpace(getenv("CRON_SECRET", "")),
		JWTSecret:  strings.TrimSpace(getenv("JWT_SECRET", "")),

		GenAIBaseURL: strings.TrimRight(getenv("GENAI_BASE_URL", "https://xingjiabiapi.org/v1beta"), "/"),
		GenAIAPIKey:  strings.TrimSpace(getenv("GENAI_API_KEY", "")),
		GenAIModel:   getenv("GENAI_MODEL", "gemini-3-pro-image-preview"),
		GenAITimeout: getenvDuration("GENAI_TIMEOUT", 2*time.Minute),

		S3Endpoint:      strings.TrimSpace(getenv("S3_ENDPOINT", "")),
		S3Region:        getenv("S3_REGION", "us-east-1"),
		S3AccessKey:     strings.TrimSpace(getenv("S3_ACCESS_KEY", "")),
		S3SecretKey:     strings.TrimSpace(getenv("S3_SECRET_KEY", "")),
		S3Bucket:        getenv("S3_BUCKET", "user-uploads"),
		S3PublicBaseURL: strings.TrimRight(getenv("S3_PUBLIC_BASE_URL", ""), "/"),
		S3UsePathStyle:  getenvBool("S3_USE_PATH_STYLE", false),
		S3Prefix:        getenv("S3_PREFIX", "generations"),

		PayAppID:     strings.TrimSpace(getenv("PAY_APP_ID", "")),
		PayAppSecret: strings.TrimSpace(getenv("PAY_APP_SECRET", "")),
		PayAPIURL:    getenv("PAY_API_URL", "https://api.xunhupay.com/payment/do.html"),
		PayNotifyURL: getenv("PAY_NOTIFY_URL", ""),
		PayReturnURL: getenv("PAY_RETURN_URL", ""),

		WorkerBatchSize: getenvInt("WORKER_BATCH_SIZE", 5),
		WorkerInterval:  getenvDuration("WORKER_INTERVAL", 30*time.Second),
	}
}

// Module wires application configuration.
var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(LoadPlanCatalog),
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
