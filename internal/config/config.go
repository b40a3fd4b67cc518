package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultProductionOrigin = "https://trystan-tbm.dev"
	DefaultTurnstileURL     = "https://challenges.cloudflare.com/turnstile/v0/siteverify"
	DefaultMailChannelsURL  = "https://api.mailchannels.net/tx/v1/send"

	// DevTurnstileSecret is Cloudflare's always-pass test secret, used when
	// dev mode runs without TURNSTILE_SECRET_KEY
	DevTurnstileSecret = "1x0000000000000000000000000000000AA"

	MailProviderMailChannels = "mailchannels"
	MailProviderSES          = "ses"
)

type Config struct {
	Server    ServerConfig
	Contact   ContactConfig
	RateLimit RateLimitConfig
	Turnstile TurnstileConfig
	Email     EmailConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port                   string
	ReadTimeout            time.Duration
	WriteTimeout           time.Duration
	IdleTimeout            time.Duration
	FloodRequestsPerMinute int
}

type ContactConfig struct {
	// DevMode allows http://localhost:<port> origins and simulates email delivery.
	// Off unless DEV_MODE is exactly "true" or "1".
	DevMode          bool
	ProductionOrigin string
	RecipientEmail   string
	MinSubmitTime    time.Duration
}

type RateLimitConfig struct {
	MaxRequests   int
	Window        time.Duration
	CleanupSample float64
	SweepInterval time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type TurnstileConfig struct {
	SecretKey string
	VerifyURL string
	Timeout   time.Duration
}

type EmailConfig struct {
	Provider        string
	MailChannelsURL string
	FromAddress     string
	FromName        string
	AWSRegion       string
	Timeout         time.Duration
	SendsPerMinute  int
}

type LogConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	devMode := parseDevMode(os.Getenv("DEV_MODE"))

	cfg := &Config{
		Server: ServerConfig{
			Port:                   getEnv("PORT", "8787"),
			ReadTimeout:            getEnvAsDuration("SERVER_READ_TIMEOUT", 5*time.Second),
			WriteTimeout:           getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:            getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			FloodRequestsPerMinute: getEnvAsInt("FLOOD_REQUESTS_PER_MINUTE", 60),
		},
		Contact: ContactConfig{
			DevMode:          devMode,
			ProductionOrigin: strings.TrimRight(getEnv("PRODUCTION_ORIGIN", DefaultProductionOrigin), "/"),
			RecipientEmail:   strings.TrimSpace(getEnv("CONTACT_EMAIL", "")),
			MinSubmitTime:    getEnvAsDuration("MIN_SUBMIT_TIME", 3*time.Second),
		},
		RateLimit: RateLimitConfig{
			MaxRequests:   getEnvAsInt("RATE_LIMIT_MAX_REQUESTS", 3),
			Window:        getEnvAsDuration("RATE_LIMIT_WINDOW", time.Hour),
			CleanupSample: getEnvAsFloat("RATE_LIMIT_CLEANUP_SAMPLE", 0.01),
			SweepInterval: getEnvAsDuration("RATE_LIMIT_SWEEP_INTERVAL", 10*time.Minute),
			RedisAddr:     getEnv("RATE_LIMIT_REDIS_ADDR", ""),
			RedisPassword: getEnv("RATE_LIMIT_REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("RATE_LIMIT_REDIS_DB", 0),
		},
		Turnstile: TurnstileConfig{
			SecretKey: getEnv("TURNSTILE_SECRET_KEY", ""),
			VerifyURL: getEnv("TURNSTILE_VERIFY_URL", DefaultTurnstileURL),
			Timeout:   getEnvAsDuration("TURNSTILE_TIMEOUT", 10*time.Second),
		},
		Email: EmailConfig{
			Provider:        strings.ToLower(getEnv("MAIL_PROVIDER", MailProviderMailChannels)),
			MailChannelsURL: getEnv("MAILCHANNELS_URL", DefaultMailChannelsURL),
			FromAddress:     getEnv("MAIL_FROM_ADDRESS", "noreply@trystan-tbm.dev"),
			FromName:        getEnv("MAIL_FROM_NAME", "Portfolio Contact Form"),
			AWSRegion:       getEnv("AWS_REGION", "us-east-1"),
			Timeout:         getEnvAsDuration("MAIL_TIMEOUT", 10*time.Second),
			SendsPerMinute:  getEnvAsInt("MAIL_SENDS_PER_MINUTE", 30),
		},
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			File:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  getEnvAsInt("LOG_MAX_SIZE_MB", 50),
			MaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvAsInt("LOG_MAX_AGE_DAYS", 14),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Contact.RecipientEmail == "" {
		return fmt.Errorf("CONTACT_EMAIL is required")
	}

	if c.Turnstile.SecretKey == "" {
		if !c.Contact.DevMode {
			return fmt.Errorf("TURNSTILE_SECRET_KEY is required")
		}
		c.Turnstile.SecretKey = DevTurnstileSecret
	}

	if !strings.HasPrefix(c.Contact.ProductionOrigin, "https://") {
		return fmt.Errorf("PRODUCTION_ORIGIN must be an https origin (got %q)", c.Contact.ProductionOrigin)
	}

	if c.RateLimit.MaxRequests < 1 {
		return fmt.Errorf("RATE_LIMIT_MAX_REQUESTS must be at least 1 (got %d)", c.RateLimit.MaxRequests)
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	if c.RateLimit.CleanupSample < 0 || c.RateLimit.CleanupSample > 1 {
		return fmt.Errorf("RATE_LIMIT_CLEANUP_SAMPLE must be between 0 and 1 (got %v)", c.RateLimit.CleanupSample)
	}

	// The write deadline runs from the end of the header read, so the read
	// budget plus both outbound calls must finish before it
	if budget := c.Server.ReadTimeout + c.SubmissionTimeout(); budget >= c.Server.WriteTimeout {
		return fmt.Errorf("SERVER_WRITE_TIMEOUT (%s) must exceed SERVER_READ_TIMEOUT + TURNSTILE_TIMEOUT + MAIL_TIMEOUT (%s)",
			c.Server.WriteTimeout, budget)
	}

	switch c.Email.Provider {
	case MailProviderMailChannels, MailProviderSES:
	default:
		return fmt.Errorf("MAIL_PROVIDER must be %q or %q (got %q)", MailProviderMailChannels, MailProviderSES, c.Email.Provider)
	}

	return nil
}

// SubmissionTimeout bounds one submission's outbound work: a CAPTCHA
// verification followed by an email send
func (c *Config) SubmissionTimeout() time.Duration {
	return c.Turnstile.Timeout + c.Email.Timeout
}

// parseDevMode accepts only the explicit opt-in values so an unset or
// misspelled variable keeps the production behaviour
func parseDevMode(value string) bool {
	return value == "true" || value == "1"
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

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}
