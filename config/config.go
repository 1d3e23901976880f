package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string
	AppMode string
	LogPath string

	JWTSecret    string
	JWTExpiryMin int

	AdminUsername string
	AdminPassword string

	GatewayToken    string
	ReplyWebhookURL string

	StagingDir    string
	MaxFileSizeMB int
	FloodPerMin   int
	FloodBurst    int

	QueueConcurrency   int
	QueueMaxLength     int
	QueueMaxAttempts   int
	ProgressIntervalMS int
	EventBufferSize    int
	DuplicateTTLHours  int
	HousekeepingMin    int

	AdminStorePath string
	AuditLogLimit  int
	WarnThreshold  int

	S3Region      string
	S3Bucket      string
	S3AccessKey   string
	S3SecretKey   string
	S3Endpoint    string
	S3PublicBase  string
	PresignTTLMin int

	RedisHost     string
	RedisPort     string
	RedisPassword string
}

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		AppPort: getEnv("APP_PORT", "8080"),
		AppMode: getEnv("APP_MODE", "debug"),
		LogPath: getEnv("LOG_PATH", ""),

		JWTSecret:    getEnv("JWT_SECRET", "change-me"),
		JWTExpiryMin: getEnvAsInt("JWT_EXPIRY_MIN", 60),

		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),

		GatewayToken:    getEnv("GATEWAY_TOKEN", ""),
		ReplyWebhookURL: getEnv("REPLY_WEBHOOK_URL", ""),

		StagingDir:    getEnv("STAGING_DIR", os.TempDir()),
		MaxFileSizeMB: getEnvAsInt("MAX_FILE_SIZE_MB", 50),
		FloodPerMin:   getEnvAsInt("FLOOD_PER_MIN", 10),
		FloodBurst:    getEnvAsInt("FLOOD_BURST", 3),

		QueueConcurrency:   getEnvAsInt("QUEUE_CONCURRENCY", 3),
		QueueMaxLength:     getEnvAsInt("QUEUE_MAX_LENGTH", 100),
		QueueMaxAttempts:   getEnvAsInt("QUEUE_MAX_ATTEMPTS", 1),
		ProgressIntervalMS: getEnvAsInt("PROGRESS_INTERVAL_MS", 1000),
		EventBufferSize:    getEnvAsInt("EVENT_BUFFER_SIZE", 64),
		DuplicateTTLHours:  getEnvAsInt("DUPLICATE_TTL_HOURS", 168),
		HousekeepingMin:    getEnvAsInt("HOUSEKEEPING_MIN", 60),

		AdminStorePath: getEnv("ADMIN_STORE_PATH", "admin_store.json"),
		AuditLogLimit:  getEnvAsInt("AUDIT_LOG_LIMIT", 1000),
		WarnThreshold:  getEnvAsInt("WARN_THRESHOLD", 3),

		S3Region:      getEnv("S3_REGION", ""),
		S3Bucket:      getEnv("S3_BUCKET", ""),
		S3AccessKey:   getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:   getEnv("S3_SECRET_KEY", ""),
		S3Endpoint:    getEnv("S3_ENDPOINT", ""),
		S3PublicBase:  getEnv("S3_PUBLIC_BASE", ""),
		PresignTTLMin: getEnvAsInt("S3_PRESIGN_TTL_MIN", 60),

		RedisHost:     getEnv("REDIS_HOST", ""),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
