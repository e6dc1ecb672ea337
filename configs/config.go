package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/maheshrc27/crosspost/pkg/utils"
)

type R2 struct {
	AccountID  string `env:"R2_ACCOUNT_ID"`
	AccessKey  string `env:"R2_ACCESS_KEY"`
	SecretKey  string `env:"R2_SECRET_KEY"`
	BucketName string `env:"R2_BUCKET_NAME"`
	Region     string `env:"S3_REGION" envDefault:"auto"`
}

type Config struct {
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID,notEmpty"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET,notEmpty"`
	GoogleRedirectURI  string `env:"GOOGLE_REDIRECT_URI,notEmpty"`
	LoginRedirectURI   string `env:"LOGIN_REDIRECT_URI" envDefault:"http://localhost:3000/login/callback"`
	PostgresURI        string `env:"POSTGRES_URI,notEmpty"`
	RedisURI           string `env:"REDIS_URI,notEmpty"`
	FrontendURL        string `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`
	HTTPAddr           string `env:"HTTP_ADDR" envDefault:":3000"`
	R2                 R2
	LocalStorageDir    string `env:"LOCAL_STORAGE_DIR"`
	SecretKey          string `env:"SECRET_KEY,notEmpty"`
	CookieName         string `env:"COOKIE_NAME" envDefault:"crosspost_session"`
	OAuthStateSecret   string `env:"OAUTH_STATE_SECRET,notEmpty"`
	RawEncryptionKey   string `env:"TOKEN_ENCRYPTION_KEY,notEmpty"`
	// AllowLegacyPlaintextTokens lets Decrypt pass through values stored
	// before encryption was introduced. Off unless a migration is running.
	AllowLegacyPlaintextTokens bool `env:"ALLOW_LEGACY_PLAINTEXT_TOKENS" envDefault:"false"`

	WorkerConcurrency    int           `env:"WORKER_CONCURRENCY" envDefault:"10"`
	PublishMaxAttempts   int           `env:"PUBLISH_MAX_ATTEMPTS" envDefault:"3"`
	PublishBackoff       time.Duration `env:"PUBLISH_BACKOFF" envDefault:"5s"`
	PublishBackoffMax    time.Duration `env:"PUBLISH_BACKOFF_MAX" envDefault:"10m"`
	TokenExpiryMargin    time.Duration `env:"TOKEN_EXPIRY_MARGIN" envDefault:"60s"`
	TokenRefreshSchedule string        `env:"TOKEN_REFRESH_SCHEDULE" envDefault:"@every 10m"`
	TokenRefreshWindow   time.Duration `env:"TOKEN_REFRESH_WINDOW" envDefault:"30m"`

	// EncryptionKey is the decoded TOKEN_ENCRYPTION_KEY.
	EncryptionKey []byte
}

// LoadConfig reads the process environment. Every secret is checked here so
// a bad deployment fails at startup instead of on the first publish.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	key, err := utils.ParseEncryptionKey(cfg.RawEncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("TOKEN_ENCRYPTION_KEY: %w", err)
	}
	cfg.EncryptionKey = key

	if cfg.PublishMaxAttempts < 1 {
		return nil, fmt.Errorf("PUBLISH_MAX_ATTEMPTS must be at least 1, got %d", cfg.PublishMaxAttempts)
	}
	if cfg.WorkerConcurrency < 1 {
		return nil, fmt.Errorf("WORKER_CONCURRENCY must be at least 1, got %d", cfg.WorkerConcurrency)
	}

	if cfg.LocalStorageDir == "" && (cfg.R2.BucketName == "" || cfg.R2.AccessKey == "" || cfg.R2.SecretKey == "") {
		return nil, fmt.Errorf("R2_BUCKET_NAME, R2_ACCESS_KEY and R2_SECRET_KEY are required when LOCAL_STORAGE_DIR is not set")
	}

	return &cfg, nil
}
