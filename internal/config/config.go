package config

import (
	"os"
	"strconv"
)

type Config struct {
	DB      DBConfig
	Storage StorageConfig
	MinIO   MinIOConfig
	S3      S3Config
	JWT     JWTConfig
	Server  ServerConfig
	Upload  UploadConfig
}

type StorageProvider string

const (
	StorageProviderMinIO StorageProvider = "minio"
	StorageProviderS3    StorageProvider = "s3"
)

type StorageConfig struct {
	Provider StorageProvider
}

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

type ServerConfig struct {
	Port        string
	FrontendURL string
}

type UploadConfig struct {
	MaxAttachmentBytes int64
}

func Load() *Config {
	return &Config{
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "taskboard"),
			Password: getEnv("DB_PASSWORD", "taskboard_secret"),
			Name:     getEnv("DB_NAME", "taskboard"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", "taskboard"),
			SecretKey: getEnv("MINIO_SECRET_KEY", "taskboard_secret"),
			Bucket:    getEnv("MINIO_BUCKET", "taskboard-attachments"),
			UseSSL:    getEnvAsBool("MINIO_USE_SSL", false),
		},
		Storage: StorageConfig{
			Provider: StorageProvider(getEnv("STORAGE_PROVIDER", string(StorageProviderMinIO))),
		},
		S3: S3Config{
			Endpoint:  getEnv("S3_ENDPOINT", "s3.amazonaws.com"),
			Region:    getEnv("S3_REGION", "us-east-1"),
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
			Bucket:    getEnv("S3_BUCKET", "taskboard-attachments"),
		},
		JWT: JWTConfig{
			Secret:          getEnv("JWT_SECRET", "change-me-in-production"),
			ExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
		},
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3001"),
		},
		Upload: UploadConfig{
			MaxAttachmentBytes: int64(getEnvAsInt("MAX_ATTACHMENT_MB", 25)) * 1024 * 1024,
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}
