package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SMTP_HOST", "")
	t.Setenv("CORS_ORIGINS", "http://localhost:4200, https://audit.example.com")
	t.Setenv("CORS_ALLOW_ALL", "false")
	t.Setenv("SESSION_TTL", "72h")
	t.Setenv("CALLBACK_REMINDER_DELAY", "24h")
	t.Setenv("EXPERT_TELEGRAM", "@systemkontrolrem")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "false")
	t.Setenv("MOONSHOT_API_KEY", "")
	t.Setenv("PAYMENT_URL", "")
	require.NoError(t, os.Unsetenv("PAYMENT_URL"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"http://localhost:4200", "https://audit.example.com"}, cfg.GetCORSOrigins())
	assert.False(t, cfg.GetCORSAllowAll())
	assert.Equal(t, 72*time.Hour, cfg.GetSessionTTL())
	assert.Equal(t, 24*time.Hour, cfg.GetCallbackReminderDelay())
	assert.False(t, cfg.GetEmailEnabled())
	assert.False(t, cfg.IsAIPersonalizationEnabled())
	assert.Equal(t, "https://t.me/systemkontrolrem", cfg.GetPaymentURL())
}

func TestLoadWildcardOriginAllowsAll(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "*")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "false")
	t.Setenv("SMTP_HOST", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.GetCORSAllowAll())
}

func TestLoadRejectsCredentialsWithWildcard(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "*")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "true")
	t.Setenv("SMTP_HOST", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRequiresEmailAddressesWhenSMTPIsSet(t *testing.T) {
	t.Setenv("CORS_ALLOW_CREDENTIALS", "false")
	t.Setenv("EMAIL_ENABLED", "true")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("EMAIL_FROM_ADDRESS", "")
	t.Setenv("EXPERT_EMAIL", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestInvalidDurationFallsBackToZero(t *testing.T) {
	assert.Equal(t, time.Duration(0), mustDuration("soon"))
	assert.Equal(t, 1500*time.Millisecond, mustDuration("1.5s"))
}
