package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	AppMode   string
	Port      string
	PublicURL string
	Database  DatabaseConfig
	JWT       JWTConfig
	Redis     RedisConfig
	PayPal    PayPalConfig
	Resend    ResendConfig
	Mailchimp MailchimpConfig
	MagicLink MagicLinkConfig
	Seed      SeedConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// JWTConfig holds session token configuration
type JWTConfig struct {
	Secret         string
	SessionMinutes int
}

// RedisConfig holds the shared rate-limiter store configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// PayPalConfig holds PayPal REST API configuration
type PayPalConfig struct {
	BaseURL   string
	ClientID  string
	Secret    string
	WebhookID string
}

// ResendConfig holds transactional email configuration
type ResendConfig struct {
	APIKey string
	From   string
}

// MailchimpConfig holds newsletter sync configuration
type MailchimpConfig struct {
	APIKey       string
	ServerPrefix string
	ListID       string
}

// MagicLinkConfig holds passwordless login configuration
type MagicLinkConfig struct {
	TokenTTLMinutes  int
	MaxPerWindow     int
	WindowSeconds    int
}

// SeedConfig holds reference-data seed file paths
type SeedConfig struct {
	ComuniCSVPath string
	NamesCSVPath  string
}

// Global config instance
var AppConfig *Config

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	sessionMinutes, _ := strconv.Atoi(getEnv("SESSION_MINUTES", "43200")) // 30 days
	tokenTTL, _ := strconv.Atoi(getEnv("MAGIC_LINK_TTL_MINUTES", "15"))
	maxPerWindow, _ := strconv.Atoi(getEnv("MAGIC_LINK_MAX_PER_WINDOW", "5"))
	windowSeconds, _ := strconv.Atoi(getEnv("MAGIC_LINK_WINDOW_SECONDS", "3600"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	config := &Config{
		AppMode:   appMode,
		Port:      getEnv("PORT", "3000"),
		PublicURL: getEnv("PUBLIC_URL", "http://localhost:3000"),
		Database:  loadDatabaseConfig(appMode),
		JWT: JWTConfig{
			Secret:         getEnv(envPrefix(appMode)+"JWT_SECRET", "default_secret"),
			SessionMinutes: sessionMinutes,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		PayPal: PayPalConfig{
			BaseURL:   getEnv("PAYPAL_BASE_URL", paypalDefaultURL(appMode)),
			ClientID:  getEnv("PAYPAL_CLIENT_ID", ""),
			Secret:    getEnv("PAYPAL_SECRET", ""),
			WebhookID: getEnv("PAYPAL_WEBHOOK_ID", ""),
		},
		Resend: ResendConfig{
			APIKey: getEnv("RESEND_API_KEY", ""),
			From:   getEnv("RESEND_FROM", "tesseramento@example.org"),
		},
		Mailchimp: MailchimpConfig{
			APIKey:       getEnv("MAILCHIMP_API_KEY", ""),
			ServerPrefix: getEnv("MAILCHIMP_SERVER_PREFIX", ""),
			ListID:       getEnv("MAILCHIMP_LIST_ID", ""),
		},
		MagicLink: MagicLinkConfig{
			TokenTTLMinutes: tokenTTL,
			MaxPerWindow:    maxPerWindow,
			WindowSeconds:   windowSeconds,
		},
		Seed: SeedConfig{
			ComuniCSVPath: getEnv("COMUNI_CSV_PATH", "data/comuni.csv"),
			NamesCSVPath:  getEnv("NAMES_CSV_PATH", "data/nomi.csv"),
		},
	}

	AppConfig = config

	log.Printf("✅ Configuration loaded successfully [MODE: %s]", appMode)
	return config, nil
}

func envPrefix(mode string) string {
	if mode == "prod" {
		return "PROD_"
	}
	return "DEV_"
}

func paypalDefaultURL(mode string) string {
	if mode == "prod" {
		return "https://api-m.paypal.com"
	}
	return "https://api-m.sandbox.paypal.com"
}

// loadDatabaseConfig loads database config based on mode
func loadDatabaseConfig(mode string) DatabaseConfig {
	prefix := envPrefix(mode)

	return DatabaseConfig{
		Host:     getEnv(prefix+"DB_HOST", "localhost"),
		Port:     getEnv(prefix+"DB_PORT", "3306"),
		User:     getEnv(prefix+"DB_USER", "root"),
		Password: getEnv(prefix+"DB_PASS", ""),
		DBName:   getEnv(prefix+"DB_NAME", "assotessera"),
	}
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := getEnv("ALLOWED_ORIGINS", "")
	if origins == "" {
		if c.IsDev() {
			return "*"
		}
		return c.PublicURL
	}
	return origins
}
