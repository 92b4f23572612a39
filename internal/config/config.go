package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppName string
	Env     string
	Host    string
	Port    int
	DBPath  string

	JWTSecret          string
	AccessTokenMinutes int

	CORSOrigins []string
	Debug       bool

	// Notification defaults, used when a conversation has no pinned agent
	// or the agent has no settings row.
	NotificationEmail string
	WhatsAppNumber    string

	// Transactional email HTTP API (tried before SMTP).
	EmailAPIURL string
	EmailAPIKey string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string

	NotifyTimeout time.Duration
	BotReplyDelay time.Duration
}

func Load() (*Config, error) {
	// Optional .env for local development; real deployments use the
	// environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		AppName: getEnv("APP_NAME", "asad.to Relay"),
		Env:     getEnv("APP_ENV", "development"),
		Host:    getEnv("HTTP_HOST", "0.0.0.0"),
		Port:    getEnvAsInt("HTTP_PORT", 3000),
		DBPath:  getEnv("SQLITE_PATH", "livechat.db"),

		JWTSecret:          os.Getenv("JWT_SECRET"),
		AccessTokenMinutes: getEnvAsInt("ACCESS_TOKEN_EXPIRE_MINUTES", 60*24),

		Debug: getEnvAsBool("DEBUG", true),

		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		WhatsAppNumber:    getEnv("WHATSAPP_NUMBER", ""),

		EmailAPIURL: getEnv("EMAIL_API_URL", ""),
		EmailAPIKey: getEnv("EMAIL_API_KEY", ""),

		SMTPHost: getEnv("SMTP_HOST", ""),
		SMTPPort: getEnvAsInt("SMTP_PORT", 587),
		SMTPUser: getEnv("SMTP_USER", ""),
		SMTPPass: getEnv("SMTP_PASS", ""),

		NotifyTimeout: time.Duration(getEnvAsInt("NOTIFY_TIMEOUT_SECONDS", 5)) * time.Second,
		BotReplyDelay: time.Duration(getEnvAsInt("BOT_REPLY_DELAY_MS", 1000)) * time.Millisecond,
	}

	cors := getEnv("CORS_ORIGINS", "")
	if cors != "" {
		parts := strings.Split(cors, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		cfg.CORSOrigins = parts
	} else {
		cfg.CORSOrigins = []string{"http://localhost:5173", "http://localhost:5175"}
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvAsInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvAsBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
