package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Session    SessionConfig
	Encryption EncryptionConfig
	RateLimit  RateLimitConfig
	Storage    StorageConfig
	Admin      AdminConfig
	Legacy     LegacyConfig
	Worker     WorkerConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	Env            string
	CookieSecure   bool
	MaxUploadMB    int
	AllowedOrigins []string
	TrustedProxies int // X-Forwarded-For hops appended by our own proxies
}

type DatabaseConfig struct {
	Driver   string // sqlite, postgres, mysql
	Path     string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Host        string
	Port        int
	Password    string
	HealthCheck bool
}

type SessionConfig struct {
	Secret      string
	ExpiryHours int
}

type EncryptionConfig struct {
	Key string
}

type RateLimitConfig struct {
	LoginPerMinute  int
	SubmitPerMinute int
	PerHour         int
	PerDay          int
}

type StorageConfig struct {
	Provider   string // cloudinary, s3, gcs
	Cloudinary CloudinaryConfig
	S3         S3Config
	GCS        GCSConfig
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

type S3Config struct {
	Bucket        string
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
}

type GCSConfig struct {
	Bucket          string
	CredentialsFile string
	PublicBaseURL   string
}

// AdminAccount is one fixed technical-committee login.
type AdminAccount struct {
	Email    string
	Password string
}

type AdminConfig struct {
	Accounts []AdminAccount
}

type LegacyConfig struct {
	UploadsDir string
	SweepCron  string
}

type WorkerConfig struct {
	Concurrency int
}

func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "sqlite":
		return d.Path
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			d.User, d.Password, d.Host, d.Port, d.Name,
		)
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func (s *SessionConfig) Expiry() time.Duration {
	return time.Duration(s.ExpiryHours) * time.Hour
}

func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s *ServerConfig) IsDevelopment() bool {
	return s.Env == "development"
}

func (s *ServerConfig) MaxUploadBytes() int64 {
	return int64(s.MaxUploadMB) << 20
}

// ErrEncryptionKeyRequired is returned by Validate when a non-development
// server would seal passwords with a key that dies with the process.
var ErrEncryptionKeyRequired = errors.New("ENCRYPTION_KEY is required outside development")

// Validate checks settings the portal server cannot run without.
func (c *Config) Validate() error {
	if !c.Server.IsDevelopment() && strings.TrimSpace(c.Encryption.Key) == "" {
		return ErrEncryptionKeyRequired
	}
	return nil
}

func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("PORT", 10000)
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("COOKIE_SECURE", true)
	v.SetDefault("MAX_UPLOAD_MB", 100)
	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("TRUSTED_PROXIES", 1)
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_PATH", "data/c4p_cmc.db")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "c4p")
	v.SetDefault("DATABASE_PASSWORD", "c4p_secret")
	v.SetDefault("DATABASE_NAME", "c4p")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_HEALTHCHECK", false)
	v.SetDefault("SECRET_KEY", "dev-secret-key")
	v.SetDefault("SESSION_EXPIRY_HOURS", 24)
	v.SetDefault("RATE_LIMIT_LOGIN_PER_MINUTE", 5)
	v.SetDefault("RATE_LIMIT_SUBMIT_PER_MINUTE", 3)
	v.SetDefault("RATE_LIMIT_PER_HOUR", 50)
	v.SetDefault("RATE_LIMIT_PER_DAY", 200)
	v.SetDefault("STORAGE_PROVIDER", "cloudinary")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("ADMIN_ACCOUNTS", "")
	v.SetDefault("LEGACY_UPLOADS_DIR", ".")
	v.SetDefault("LEGACY_SWEEP_CRON", "")
	v.SetDefault("WORKER_CONCURRENCY", 5)

	// Load from .env file if present
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// Override with environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	admins, err := ParseAdminAccounts(v.GetString("ADMIN_ACCOUNTS"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           v.GetString("SERVER_HOST"),
			Port:           v.GetInt("PORT"),
			Env:            v.GetString("SERVER_ENV"),
			CookieSecure:   v.GetBool("COOKIE_SECURE"),
			MaxUploadMB:    v.GetInt("MAX_UPLOAD_MB"),
			AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),
			TrustedProxies: v.GetInt("TRUSTED_PROXIES"),
		},
		Database: DatabaseConfig{
			Driver:   strings.ToLower(v.GetString("DATABASE_DRIVER")),
			Path:     v.GetString("DATABASE_PATH"),
			Host:     v.GetString("DATABASE_HOST"),
			Port:     v.GetInt("DATABASE_PORT"),
			User:     v.GetString("DATABASE_USER"),
			Password: v.GetString("DATABASE_PASSWORD"),
			Name:     v.GetString("DATABASE_NAME"),
			SSLMode:  v.GetString("DATABASE_SSLMODE"),
		},
		Redis: RedisConfig{
			Host:        v.GetString("REDIS_HOST"),
			Port:        v.GetInt("REDIS_PORT"),
			Password:    v.GetString("REDIS_PASSWORD"),
			HealthCheck: v.GetBool("REDIS_HEALTHCHECK"),
		},
		Session: SessionConfig{
			Secret:      v.GetString("SECRET_KEY"),
			ExpiryHours: v.GetInt("SESSION_EXPIRY_HOURS"),
		},
		Encryption: EncryptionConfig{
			Key: v.GetString("ENCRYPTION_KEY"),
		},
		RateLimit: RateLimitConfig{
			LoginPerMinute:  v.GetInt("RATE_LIMIT_LOGIN_PER_MINUTE"),
			SubmitPerMinute: v.GetInt("RATE_LIMIT_SUBMIT_PER_MINUTE"),
			PerHour:         v.GetInt("RATE_LIMIT_PER_HOUR"),
			PerDay:          v.GetInt("RATE_LIMIT_PER_DAY"),
		},
		Storage: StorageConfig{
			Provider: strings.ToLower(v.GetString("STORAGE_PROVIDER")),
			Cloudinary: CloudinaryConfig{
				CloudName: v.GetString("CLOUDINARY_CLOUD_NAME"),
				APIKey:    v.GetString("CLOUDINARY_API_KEY"),
				APISecret: v.GetString("CLOUDINARY_API_SECRET"),
			},
			S3: S3Config{
				Bucket:        v.GetString("S3_BUCKET"),
				Region:        v.GetString("S3_REGION"),
				Endpoint:      v.GetString("S3_ENDPOINT"),
				AccessKey:     v.GetString("S3_ACCESS_KEY"),
				SecretKey:     v.GetString("S3_SECRET_KEY"),
				PublicBaseURL: v.GetString("S3_PUBLIC_BASE_URL"),
			},
			GCS: GCSConfig{
				Bucket:          v.GetString("GCS_BUCKET"),
				CredentialsFile: v.GetString("GCS_CREDENTIALS_FILE"),
				PublicBaseURL:   v.GetString("GCS_PUBLIC_BASE_URL"),
			},
		},
		Admin: AdminConfig{
			Accounts: admins,
		},
		Legacy: LegacyConfig{
			UploadsDir: v.GetString("LEGACY_UPLOADS_DIR"),
			SweepCron:  v.GetString("LEGACY_SWEEP_CRON"),
		},
		Worker: WorkerConfig{
			Concurrency: v.GetInt("WORKER_CONCURRENCY"),
		},
	}

	return cfg, nil
}

// ParseAdminAccounts reads a comma separated list of email:password pairs.
// Emails are lowercased; later duplicates win.
func ParseAdminAccounts(raw string) ([]AdminAccount, error) {
	var accounts []AdminAccount
	index := make(map[string]int)

	for _, entry := range splitList(raw) {
		email, password, ok := strings.Cut(entry, ":")
		email = strings.ToLower(strings.TrimSpace(email))
		password = strings.TrimSpace(password)
		if !ok || email == "" || password == "" {
			return nil, fmt.Errorf("invalid admin account entry %q: expected email:password", entry)
		}

		if i, seen := index[email]; seen {
			accounts[i].Password = password
			continue
		}
		index[email] = len(accounts)
		accounts = append(accounts, AdminAccount{Email: email, Password: password})
	}

	return accounts, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
