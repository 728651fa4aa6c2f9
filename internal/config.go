package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds every tunable of the uploader. Values come from the
// environment (plus an optional .env file loaded in main); defaults match
// the original desktop utility.
type Config struct {
	WebhookURL string `env:"WEBHOOK_URL,required=true" validate:"required,url"`

	// DataDir hosts the two persisted store files. Empty means the
	// platform user-config directory (resolved by DefaultDataDir).
	DataDir string `env:"DATA_DIR"`

	LogLevel string `env:"LOG_LEVEL,default=info"`

	MaxFileSize int64 `env:"MAX_FILE_SIZE_BYTES,default=8388608" validate:"gt=0"`
	MaxRetries  int   `env:"MAX_RETRIES,default=5" validate:"gt=0"`

	UploadTimeout  time.Duration `env:"UPLOAD_TIMEOUT,default=60s" validate:"gt=0"`
	ConfirmTimeout time.Duration `env:"CONFIRM_TIMEOUT,default=60s" validate:"gt=0"`
	PacingDelay    time.Duration `env:"PACING_DELAY,default=250ms" validate:"gte=0"`
	PollInterval   time.Duration `env:"POLL_INTERVAL,default=100ms" validate:"gt=0"`
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// DefaultDataDir returns the per-OS application data directory used when
// DATA_DIR is not set. The directory is created on first use.
func DefaultDataDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving user config dir: %w", err)
	}
	dir := filepath.Join(base, "VRChatAvatarUploader")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating data dir: %w", err)
	}
	return dir, nil
}
