package internal

import (
	"testing"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		WebhookURL:     "https://discord.com/api/webhooks/123/token",
		MaxFileSize:    8 * 1024 * 1024,
		MaxRetries:     5,
		UploadTimeout:  time.Minute,
		ConfirmTimeout: time.Minute,
		PacingDelay:    250 * time.Millisecond,
		PollInterval:   100 * time.Millisecond,
	}
}

func TestConfig_Validate(t *testing.T) {
	req := require.New(t)

	cfg := validConfig()
	req.NoError(cfg.Validate())

	t.Run("webhook url required", func(t *testing.T) {
		bad := validConfig()
		bad.WebhookURL = ""
		require.Error(t, bad.Validate())
	})

	t.Run("webhook url must parse", func(t *testing.T) {
		bad := validConfig()
		bad.WebhookURL = "not a url"
		require.Error(t, bad.Validate())
	})

	t.Run("retries must be positive", func(t *testing.T) {
		bad := validConfig()
		bad.MaxRetries = 0
		require.Error(t, bad.Validate())
	})

	t.Run("zero pacing is allowed", func(t *testing.T) {
		ok := validConfig()
		ok.PacingDelay = 0
		require.NoError(t, ok.Validate())
	})
}

func TestConfig_EnvironmentDefaults(t *testing.T) {
	req := require.New(t)
	t.Setenv("WEBHOOK_URL", "https://discord.com/api/webhooks/123/token")

	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	req.NoError(err)

	req.Equal("info", cfg.LogLevel)
	req.Equal(int64(8*1024*1024), cfg.MaxFileSize)
	req.Equal(5, cfg.MaxRetries)
	req.Equal(time.Minute, cfg.UploadTimeout)
	req.Equal(time.Minute, cfg.ConfirmTimeout)
	req.Equal(250*time.Millisecond, cfg.PacingDelay)
	req.Equal(100*time.Millisecond, cfg.PollInterval)
}
