package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL string

	// Outbound WhatsApp transport (Twilio)
	TwilioAccountSID     string
	TwilioAuthToken      string
	TwilioWhatsAppNumber string
	TwilioWebhookSecret  string

	// Internal booking notifications go to the group number when set,
	// otherwise to the first admin number.
	NotifyGroupNumber string

	// Phone numbers allowed to use the "concluir <id>" shortcut.
	AdminPhoneNumbers []string

	// Admin console bootstrap account and token signing.
	AdminUsername  string
	AdminPassword  string
	AdminJWTSecret string

	// Business hours and timezone for slot computation.
	BusinessTimezone  string
	BusinessOpenHour  int
	BusinessCloseHour int

	// Conversation idle timeout before the bot resets to the menu.
	SessionTimeout time.Duration

	// Webhook rate limiting (requests per minute per sender).
	RedisAddr        string
	RedisPassword    string
	WebhookRateLimit int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		TwilioAccountSID:     getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:      getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioWhatsAppNumber: getEnv("TWILIO_WHATSAPP_NUMBER", ""),
		TwilioWebhookSecret:  getEnv("TWILIO_WEBHOOK_SECRET", ""),

		NotifyGroupNumber: getEnv("NOTIFY_GROUP_NUMBER", ""),

		AdminPhoneNumbers: getEnvAsList("ADMIN_PHONE_NUMBERS"),

		AdminUsername:  getEnv("ADMIN_USERNAME", ""),
		AdminPassword:  getEnv("ADMIN_PASSWORD", ""),
		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		BusinessTimezone:  getEnv("BUSINESS_TIMEZONE", "America/Sao_Paulo"),
		BusinessOpenHour:  getEnvAsInt("BUSINESS_OPEN_HOUR", 9),
		BusinessCloseHour: getEnvAsInt("BUSINESS_CLOSE_HOUR", 17),

		SessionTimeout: getEnvAsDuration("SESSION_TIMEOUT", 900*time.Second),

		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		WebhookRateLimit: getEnvAsInt("WEBHOOK_RATE_LIMIT", 60),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	// Bare integers are treated as seconds.
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated environment variable, trimming blanks.
func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
