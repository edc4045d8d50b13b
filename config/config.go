package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultEncryptionKey = "WillDraftGo2025SecureKey12345678"
	defaultAdminCode     = "WILLDRAFT_ADMIN_2025"
)

type Config struct {
	DatabaseDriver string        `yaml:"database_driver"`
	DatabaseURL    string        `yaml:"database_url"`
	JWTSecret      string        `yaml:"jwt_secret"`
	TokenTTL       time.Duration `yaml:"token_ttl"`
	EncryptionKey  string        `yaml:"encryption_key"`
	AdminCode      string        `yaml:"admin_code"`
	Port           string        `yaml:"port"`
	Environment    string        `yaml:"environment"`
	AllowedOrigin  string        `yaml:"allowed_origin"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps"`
	RateLimitBurst int           `yaml:"rate_limit_burst"`
	DashboardPath  string        `yaml:"dashboard_path"`
	Export         ExportConfig  `yaml:"export"`
	Chatbot        ChatbotConfig `yaml:"chatbot"`
}

// ExportConfig selects where rendered PDFs go. An empty S3Bucket means the
// local ExportDir is used instead.
type ExportConfig struct {
	Dir            string `yaml:"dir"`
	S3Bucket       string `yaml:"s3_bucket"`
	S3Region       string `yaml:"s3_region"`
	S3BaseEndpoint string `yaml:"s3_base_endpoint"`
	S3AccessKey    string `yaml:"s3_access_key"`
	S3SecretKey    string `yaml:"s3_secret_key"`
}

type ChatbotConfig struct {
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"api_key"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
}

func defaults() *Config {
	return &Config{
		DatabaseDriver: "sqlite",
		DatabaseURL:    "willdraft.db",
		JWTSecret:      "your-secret-key-change-in-production",
		TokenTTL:       24 * time.Hour,
		EncryptionKey:  defaultEncryptionKey,
		AdminCode:      defaultAdminCode,
		Port:           "8080",
		Environment:    "development",
		AllowedOrigin:  "*",
		RateLimitRPS:   10,
		RateLimitBurst: 50,
		DashboardPath:  "/dashboard",
		Export: ExportConfig{
			Dir:      "exports",
			S3Region: "ap-south-1",
		},
		Chatbot: ChatbotConfig{
			Endpoint: "https://api.openai.com/v1/chat/completions",
			Model:    "gpt-4o-mini",
			Timeout:  20 * time.Second,
		},
	}
}

// Load builds the configuration from defaults, then the optional YAML file
// named by CONFIG_FILE, then environment variables. Malformed values panic.
func Load() *Config {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := overlayFile(cfg, path); err != nil {
			log.Panicf("Invalid CONFIG_FILE: %v", err)
		}
	}

	cfg.DatabaseDriver = getEnv("DATABASE_DRIVER", cfg.DatabaseDriver)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.TokenTTL = getEnvDuration("TOKEN_TTL", cfg.TokenTTL)
	cfg.EncryptionKey = getEnv("ENCRYPTION_KEY", cfg.EncryptionKey)
	cfg.AdminCode = getEnv("ADMIN_CODE", cfg.AdminCode)
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.AllowedOrigin = getEnv("ALLOWED_ORIGIN", cfg.AllowedOrigin)
	cfg.RateLimitRPS = getEnvFloat("RATE_LIMIT_RPS", cfg.RateLimitRPS)
	cfg.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", cfg.RateLimitBurst)
	cfg.DashboardPath = getEnv("DASHBOARD_PATH", cfg.DashboardPath)

	cfg.Export.Dir = getEnv("EXPORT_DIR", cfg.Export.Dir)
	cfg.Export.S3Bucket = getEnv("S3_BUCKET", cfg.Export.S3Bucket)
	cfg.Export.S3Region = getEnv("S3_REGION", cfg.Export.S3Region)
	cfg.Export.S3BaseEndpoint = getEnv("S3_BASE_ENDPOINT", cfg.Export.S3BaseEndpoint)
	cfg.Export.S3AccessKey = getEnv("S3_ACCESS_KEY", cfg.Export.S3AccessKey)
	cfg.Export.S3SecretKey = getEnv("S3_SECRET_KEY", cfg.Export.S3SecretKey)

	cfg.Chatbot.Endpoint = getEnv("CHATBOT_ENDPOINT", cfg.Chatbot.Endpoint)
	cfg.Chatbot.APIKey = getEnv("CHATBOT_API_KEY", cfg.Chatbot.APIKey)
	cfg.Chatbot.Model = getEnv("CHATBOT_MODEL", cfg.Chatbot.Model)
	cfg.Chatbot.Timeout = getEnvDuration("CHATBOT_TIMEOUT", cfg.Chatbot.Timeout)

	return cfg
}

func overlayFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(raw, cfg)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Panicf("Invalid %s: %v", key, err)
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Panicf("Invalid %s: %v", key, err)
	}
	return f
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Panicf("Invalid %s: %v", key, err)
	}
	return d
}

// ValidateConfig rejects settings the server cannot start with and returns
// human-readable warnings for settings that are merely unsafe.
func ValidateConfig(cfg *Config) ([]string, error) {
	if len(cfg.EncryptionKey) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be exactly 32 characters, got %d", len(cfg.EncryptionKey))
	}
	switch cfg.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q", cfg.DatabaseDriver)
	}
	if cfg.RateLimitRPS <= 0 || cfg.RateLimitBurst <= 0 {
		return nil, errors.New("rate limit settings must be positive")
	}
	if cfg.TokenTTL <= 0 {
		return nil, errors.New("TOKEN_TTL must be positive")
	}

	var warnings []string
	if len(cfg.JWTSecret) < 32 {
		warnings = append(warnings, "JWT_SECRET should be at least 32 characters for security")
	}
	if cfg.Environment == "production" && cfg.AdminCode == defaultAdminCode {
		warnings = append(warnings, "Change ADMIN_CODE in production environment")
	}
	if cfg.Environment == "production" && cfg.EncryptionKey == defaultEncryptionKey {
		warnings = append(warnings, "Change ENCRYPTION_KEY in production environment")
	}
	return warnings, nil
}
