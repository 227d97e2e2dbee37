package internal

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/DukeRupert/podcaster/internal/storage"
)

// DevJWTSecret signs tokens in development when JWT_SECRET is unset.
const DevJWTSecret = "dev-secret-change-me"

type Config struct {
	Env      string
	Port     int
	LogLevel string

	// DatabaseURL is DATABASE_URL, or a DSN assembled from the PG* variables.
	DatabaseURL string
	// HasDatabaseURL and HasPGHost record which source was present, for /__debug.
	HasDatabaseURL bool
	HasPGHost      bool

	// Session tokens
	JWTSecret    string
	HasJWTSecret bool
	TokenTTL     time.Duration

	// Storage Configuration
	StorageProvider string // "local", "r2" or "cloudinary"
	StorageRoot     string // Prefix of every asset key
	MaxUploadBytes  int64  // Cap on a whole episode upload request

	// Local Storage (development)
	LocalStoragePath string
	LocalStorageURL  string

	// R2 Storage
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string

	// Cloudinary
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	// CORS
	CORSAllowedOrigins []string

	// Login/register throttling per client IP and route
	LoginRateLimit  int
	LoginRateWindow time.Duration

	// Metrics endpoint authentication
	// If both are empty, the /metrics endpoint is unprotected.
	MetricsUsername string
	MetricsPassword string
}

// EnvDevelopment is the default ENV and relaxes the JWT secret requirement.
const EnvDevelopment = "development"

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", EnvDevelopment),
		Port:     getEnvInt("PORT", 3000),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		TokenTTL: getEnvDuration("TOKEN_TTL", 7*24*time.Hour),

		StorageProvider: strings.ToLower(getEnv("STORAGE_PROVIDER", storage.ProviderLocal)),
		StorageRoot:     strings.Trim(getEnv("STORAGE_ROOT", "podcaster"), "/"),
		MaxUploadBytes:  getEnvInt64("MAX_UPLOAD_BYTES", 512<<20),

		LocalStoragePath: getEnv("LOCAL_STORAGE_PATH", "./storage"),
		LocalStorageURL:  getEnv("LOCAL_STORAGE_URL", "http://localhost:3000/files"),

		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),
		R2PublicURL:       getEnv("R2_PUBLIC_URL", ""),

		CloudinaryCloudName: getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),

		LoginRateLimit:  getEnvInt("LOGIN_RATE_LIMIT", 10),
		LoginRateWindow: getEnvDuration("LOGIN_RATE_WINDOW", 15*time.Minute),

		MetricsUsername: getEnv("METRICS_USERNAME", ""),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),
	}

	dsn, err := databaseURL()
	if err != nil {
		return nil, err
	}
	cfg.DatabaseURL = dsn
	cfg.HasDatabaseURL = os.Getenv("DATABASE_URL") != ""
	cfg.HasPGHost = os.Getenv("PGHOST") != ""

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	cfg.HasJWTSecret = cfg.JWTSecret != ""
	if !cfg.HasJWTSecret {
		if !cfg.IsDevelopment() {
			return nil, fmt.Errorf("JWT_SECRET is required when ENV is %q", cfg.Env)
		}
		cfg.JWTSecret = DevJWTSecret
	}
	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("TOKEN_TTL must be positive, got: %s", cfg.TokenTTL)
	}

	if cfg.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got: %d", cfg.MaxUploadBytes)
	}
	if cfg.LoginRateLimit <= 0 || cfg.LoginRateWindow <= 0 {
		return nil, errors.New("LOGIN_RATE_LIMIT and LOGIN_RATE_WINDOW must be positive")
	}

	if err := cfg.validateStorage(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateStorage checks that the selected provider has its credentials.
func (c *Config) validateStorage() error {
	var required map[string]string
	switch c.StorageProvider {
	case storage.ProviderLocal:
		return nil
	case storage.ProviderR2:
		required = map[string]string{
			"R2_ACCOUNT_ID":        c.R2AccountID,
			"R2_ACCESS_KEY_ID":     c.R2AccessKeyID,
			"R2_SECRET_ACCESS_KEY": c.R2SecretAccessKey,
			"R2_BUCKET_NAME":       c.R2BucketName,
			"R2_PUBLIC_URL":        c.R2PublicURL,
		}
	case storage.ProviderCloudinary:
		required = map[string]string{
			"CLOUDINARY_CLOUD_NAME": c.CloudinaryCloudName,
			"CLOUDINARY_API_KEY":    c.CloudinaryAPIKey,
			"CLOUDINARY_API_SECRET": c.CloudinaryAPISecret,
		}
	default:
		return fmt.Errorf("STORAGE_PROVIDER must be 'local', 'r2' or 'cloudinary', got: %s", c.StorageProvider)
	}

	var missing []string
	for name, value := range required {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("%s required when STORAGE_PROVIDER is '%s'", strings.Join(missing, ", "), c.StorageProvider)
	}
	return nil
}

// databaseURL returns DATABASE_URL, or builds one from PGHOST, PGPORT,
// PGUSER, PGPASSWORD, PGDATABASE and PGSSLMODE.
func databaseURL() (string, error) {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn, nil
	}

	host := os.Getenv("PGHOST")
	user := os.Getenv("PGUSER")
	password := os.Getenv("PGPASSWORD")
	database := os.Getenv("PGDATABASE")
	if host == "" || user == "" || password == "" || database == "" {
		return "", errors.New("DATABASE_URL or PGHOST/PGUSER/PGPASSWORD/PGDATABASE is required")
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     net.JoinHostPort(host, getEnv("PGPORT", "5432")),
		Path:     "/" + database,
		RawQuery: url.Values{"sslmode": {getEnv("PGSSLMODE", "require")}}.Encode(),
	}
	return u.String(), nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// splitList parses a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
