// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
	GetDatabaseMaxConns() int
}

// JWTConfig provides JWT validation settings for operator endpoints.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SessionConfig provides settings for the conversation session store.
type SessionConfig interface {
	GetRedisURL() string
	GetSessionTTL() time.Duration
}

// SchedulerConfig provides settings for the asynq scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetCallbackReminderDelay() time.Duration
}

// WhatsAppConfig provides settings for the GOWA WhatsApp gateway.
type WhatsAppConfig interface {
	GetWhatsAppURL() string
	GetWhatsAppKey() string
	GetWhatsAppDeviceID() string
	GetWhatsAppWebhookSecret() string
	GetWhatsAppPacing() time.Duration
}

// EmailConfig provides SMTP settings for expert notifications.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetExpertEmail() string
}

// AIConfig provides settings for the personalization agent.
type AIConfig interface {
	GetMoonshotAPIKey() string
	GetMoonshotModel() string
	IsAIPersonalizationEnabled() bool
}

// FunnelConfig provides contacts and prices shown in the offer funnel.
type FunnelConfig interface {
	GetExpertPhone() string
	GetExpertTelegram() string
	GetPriceNormal() int
	GetPriceDiscount() int
	GetPriceVIP() int
	GetPaymentURL() string
	GetEstimateBot() string
	GetAIBot() string
}

// NotificationConfig provides the operator contact that receives alerts.
type NotificationConfig interface {
	GetAdminPhone() string
}

// PolicyConfig provides the optional override for the stage policy table.
type PolicyConfig interface {
	GetPolicyFile() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                   string
	HTTPAddr              string
	DatabaseURL           string
	DatabaseMaxConns      int
	JWTAccessSecret       string
	CORSAllowAll          bool
	CORSOrigins           []string
	CORSAllowCreds        bool
	RedisURL              string
	RedisTLSInsecure      bool
	SessionTTL            time.Duration
	AsynqQueueName        string
	AsynqConcurrency      int
	CallbackReminderDelay time.Duration
	WhatsAppURL           string
	WhatsAppKey           string
	WhatsAppDeviceID      string
	WhatsAppWebhookSecret string
	WhatsAppPacing        time.Duration
	EmailEnabled          bool
	SMTPHost              string
	SMTPPort              int
	SMTPUsername          string
	SMTPPassword          string
	EmailFromName         string
	EmailFromAddress      string
	ExpertEmail           string
	MoonshotAPIKey        string
	MoonshotModel         string
	AIPersonalization     bool
	ExpertPhone           string
	ExpertTelegram        string
	PriceNormal           int
	PriceDiscount         int
	PriceVIP              int
	PaymentURL            string
	EstimateBot           string
	AIBot                 string
	AdminPhone            string
	PolicyFile            string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string   { return c.DatabaseURL }
func (c *Config) GetDatabaseMaxConns() int { return c.DatabaseMaxConns }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SessionConfig implementation
func (c *Config) GetRedisURL() string          { return c.RedisURL }
func (c *Config) GetSessionTTL() time.Duration { return c.SessionTTL }

// SchedulerConfig implementation
func (c *Config) GetRedisTLSInsecure() bool  { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string  { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int   { return c.AsynqConcurrency }
func (c *Config) GetCallbackReminderDelay() time.Duration {
	return c.CallbackReminderDelay
}

// WhatsAppConfig implementation
func (c *Config) GetWhatsAppURL() string           { return c.WhatsAppURL }
func (c *Config) GetWhatsAppKey() string           { return c.WhatsAppKey }
func (c *Config) GetWhatsAppDeviceID() string      { return c.WhatsAppDeviceID }
func (c *Config) GetWhatsAppWebhookSecret() string { return c.WhatsAppWebhookSecret }
func (c *Config) GetWhatsAppPacing() time.Duration { return c.WhatsAppPacing }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) GetExpertEmail() string      { return c.ExpertEmail }

// AIConfig implementation
func (c *Config) GetMoonshotAPIKey() string { return c.MoonshotAPIKey }
func (c *Config) GetMoonshotModel() string  { return c.MoonshotModel }
func (c *Config) IsAIPersonalizationEnabled() bool {
	return c.AIPersonalization && c.MoonshotAPIKey != ""
}

// FunnelConfig implementation
func (c *Config) GetExpertPhone() string    { return c.ExpertPhone }
func (c *Config) GetExpertTelegram() string { return c.ExpertTelegram }
func (c *Config) GetPriceNormal() int       { return c.PriceNormal }
func (c *Config) GetPriceDiscount() int     { return c.PriceDiscount }
func (c *Config) GetPriceVIP() int          { return c.PriceVIP }
func (c *Config) GetPaymentURL() string     { return c.PaymentURL }
func (c *Config) GetEstimateBot() string    { return c.EstimateBot }
func (c *Config) GetAIBot() string          { return c.AIBot }

// NotificationConfig implementation
func (c *Config) GetAdminPhone() string { return c.AdminPhone }

// PolicyConfig implementation
func (c *Config) GetPolicyFile() string { return c.PolicyFile }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	smtpHost := getEnv("SMTP_HOST", "")
	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")

	expertTelegram := getEnv("EXPERT_TELEGRAM", "@systemkontrolrem")

	cfg := &Config{
		Env:                   getEnv("APP_ENV", "development"),
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		DatabaseMaxConns:      getEnvInt("DATABASE_MAX_CONNS", 10),
		JWTAccessSecret:       getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:          corsAllowAll,
		CORSOrigins:           corsOrigins,
		CORSAllowCreds:        strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "false"), "true"),
		RedisURL:              getEnv("REDIS_URL", ""),
		RedisTLSInsecure:      strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		SessionTTL:            mustDuration(getEnv("SESSION_TTL", "72h")),
		AsynqQueueName:        getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:      getEnvInt("ASYNQ_CONCURRENCY", 10),
		CallbackReminderDelay: mustDuration(getEnv("CALLBACK_REMINDER_DELAY", "24h")),
		WhatsAppURL:           getEnv("WHATSAPP_URL", ""),
		WhatsAppKey:           getEnv("WHATSAPP_KEY", ""),
		WhatsAppDeviceID:      getEnv("WHATSAPP_DEVICE_ID", ""),
		WhatsAppWebhookSecret: getEnv("WHATSAPP_WEBHOOK_SECRET", ""),
		WhatsAppPacing:        mustDuration(getEnv("WHATSAPP_PACING", "1s")),
		EmailEnabled:          emailEnabled && smtpHost != "",
		SMTPHost:              smtpHost,
		SMTPPort:              getEnvInt("SMTP_PORT", 587),
		SMTPUsername:          getEnv("SMTP_USERNAME", ""),
		SMTPPassword:          getEnv("SMTP_PASSWORD", ""),
		EmailFromName:         getEnv("EMAIL_FROM_NAME", "Ремонт Аудит"),
		EmailFromAddress:      getEnv("EMAIL_FROM_ADDRESS", ""),
		ExpertEmail:           getEnv("EXPERT_EMAIL", ""),
		MoonshotAPIKey:        getEnv("MOONSHOT_API_KEY", ""),
		MoonshotModel:         getEnv("MOONSHOT_MODEL", "kimi-k2.5"),
		AIPersonalization:     strings.EqualFold(getEnv("AI_PERSONALIZATION", "true"), "true"),
		ExpertPhone:           getEnv("EXPERT_PHONE", "+79615223190"),
		ExpertTelegram:        expertTelegram,
		PriceNormal:           getEnvInt("PRICE_NORMAL", 9900),
		PriceDiscount:         getEnvInt("PRICE_DISCOUNT", 4900),
		PriceVIP:              getEnvInt("PRICE_VIP", 29900),
		PaymentURL:            getEnv("PAYMENT_URL", "https://t.me/"+strings.TrimPrefix(expertTelegram, "@")),
		EstimateBot:           getEnv("ESTIMATE_BOT", "@repair_estimate_bot"),
		AIBot:                 getEnv("AI_BOT", "@repair_ai_bot"),
		AdminPhone:            getEnv("ADMIN_PHONE", ""),
		PolicyFile:            getEnv("POLICY_FILE", ""),
	}

	if cfg.EmailEnabled && (cfg.EmailFromAddress == "" || cfg.ExpertEmail == "") {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS and EXPERT_EMAIL are required when email is enabled")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.PriceDiscount <= 0 || cfg.PriceVIP <= 0 {
		return nil, fmt.Errorf("PRICE_DISCOUNT and PRICE_VIP must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	val, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return val
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
