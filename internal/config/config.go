package config

import (
	"errors"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultSecret = "dev_secret_key_change_in_production"

	ImageBackendLocal = "local"
	ImageBackendS3    = "s3"
)

type Config struct {
	AppEnv      string `mapstructure:"APP_ENV"`
	Port        string `mapstructure:"PORT"`
	SecretKey   string `mapstructure:"SECRET_KEY"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// Uploads
	UploadDir         string   `mapstructure:"UPLOAD_DIR"`
	AllowedExtensions []string `mapstructure:"ALLOWED_EXTENSIONS"`
	MaxUploadSize     int64    `mapstructure:"MAX_UPLOAD_SIZE"`
	ImageBackend      string   `mapstructure:"IMAGE_BACKEND"`

	// Sessions
	SessionDir      string        `mapstructure:"SESSION_DIR"`
	SessionName     string        `mapstructure:"SESSION_NAME"`
	SessionLifetime time.Duration `mapstructure:"SESSION_LIFETIME"`
	CookieSecure    bool          `mapstructure:"SESSION_COOKIE_SECURE"`

	CORSOrigins   []string `mapstructure:"CORS_ORIGINS"`
	AuthRateLimit int      `mapstructure:"AUTH_RATE_LIMIT"`

	// R2 / S3 image storage
	AccountID       string `mapstructure:"ACCOUNT_ID"`
	AccessKeyID     string `mapstructure:"ACCESS_KEY_ID"`
	AccessKeySecret string `mapstructure:"ACCESS_KEY_SECRET"`
	BucketName      string `mapstructure:"BUCKET_NAME"`

	// OAuth
	GoogleKey        string `mapstructure:"GOOGLE_KEY"`
	GoogleSecret     string `mapstructure:"GOOGLE_SECRET"`
	OAuthCallbackURL string `mapstructure:"OAUTH_CALLBACK_URL"`
}

func LoadConfig() (Config, error) {
	var cfg Config

	// A missing .env file is fine, the environment may already be set
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, err
	}

	v := viper.New()
	v.SetDefault("APP_ENV", "local")
	v.SetDefault("PORT", "3000")
	v.SetDefault("SECRET_KEY", defaultSecret)
	v.SetDefault("DATABASE_URL", "sqlite://findit.db")
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("ALLOWED_EXTENSIONS", []string{"png", "jpg", "jpeg", "gif"})
	v.SetDefault("MAX_UPLOAD_SIZE", 16<<20)
	v.SetDefault("IMAGE_BACKEND", ImageBackendLocal)
	v.SetDefault("SESSION_DIR", "sessions")
	v.SetDefault("SESSION_NAME", "findit_session")
	v.SetDefault("SESSION_LIFETIME", 7*24*time.Hour)
	v.SetDefault("SESSION_COOKIE_SECURE", false)
	v.SetDefault("CORS_ORIGINS", []string{"http://localhost:5173"})
	v.SetDefault("AUTH_RATE_LIMIT", 20)
	v.SetDefault("ACCOUNT_ID", "")
	v.SetDefault("ACCESS_KEY_ID", "")
	v.SetDefault("ACCESS_KEY_SECRET", "")
	v.SetDefault("BUCKET_NAME", "")
	v.SetDefault("GOOGLE_KEY", "")
	v.SetDefault("GOOGLE_SECRET", "")
	v.SetDefault("OAUTH_CALLBACK_URL", "http://localhost:3000/api/auth/oauth/google/callback")
	v.AutomaticEnv()

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// OAuthEnabled reports whether Google sign-in credentials are configured.
func (c Config) OAuthEnabled() bool {
	return c.GoogleKey != "" && c.GoogleSecret != ""
}

func (c Config) Validate() error {
	if c.IsProduction() && (c.SecretKey == "" || c.SecretKey == defaultSecret) {
		return errors.New("SECRET_KEY must be set in production")
	}
	if c.MaxUploadSize <= 0 {
		return errors.New("MAX_UPLOAD_SIZE must be positive")
	}
	if len(c.AllowedExtensions) == 0 {
		return errors.New("ALLOWED_EXTENSIONS must not be empty")
	}
	switch c.ImageBackend {
	case ImageBackendLocal:
	case ImageBackendS3:
		if c.BucketName == "" || c.AccountID == "" {
			return errors.New("BUCKET_NAME and ACCOUNT_ID are required for the s3 image backend")
		}
	default:
		return errors.New("IMAGE_BACKEND must be local or s3")
	}
	return nil
}
