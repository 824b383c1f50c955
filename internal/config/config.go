package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Notification provider names. "none" disables the channel entirely and
// makes registration auto-verify it, which keeps local development
// zero-config.
const (
	ProviderNone  = "none"
	ProviderDev   = "dev"
	ProviderSMTP  = "smtp"
	ProviderBrevo = "brevo"
)

type Config struct {
	Env      string
	HTTPPort string
	LogLevel string

	DatabaseURL string

	JWTIssuer    string
	JWTAudience  string
	JWTSecret    string
	JWTAccessTTL time.Duration

	RefreshTokenTTL    time.Duration
	RefreshTokenPepper string

	DefaultRole         string
	PasswordPolicyRegex string
	BcryptCost          int

	MailProvider  string
	PhoneProvider string
	FrontendURL   string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	BrevoAPIKey     string
	BrevoMailSender string
	BrevoSMSSender  string

	EmailCodeTTL    time.Duration
	PhoneCodeTTL    time.Duration
	CleanupInterval time.Duration

	AdminBootstrapEnabled bool
	AdminEmail            string
	AdminPassword         string
	AdminRole             string
	AdminFirstName        string
	AdminLastName         string

	AuthRateLimitPerMin int
	APIRateLimitPerMin  int
	RedisAddr           string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:         getEnv("APP_ENV", "development"),
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTIssuer:   getEnv("JWT_ISSUER", "authcore"),
		JWTAudience: getEnv("JWT_AUDIENCE", "authcore-api"),
		JWTSecret:   os.Getenv("JWT_SECRET"),

		RefreshTokenPepper: os.Getenv("REFRESH_TOKEN_PEPPER"),

		DefaultRole:         getEnv("DEFAULT_ROLE", "CUSTOMER"),
		PasswordPolicyRegex: getEnv("PASSWORD_POLICY_REGEX", `^.{8,72}$`),
		BcryptCost:          getEnvInt("BCRYPT_COST", 10),

		MailProvider:  strings.ToLower(getEnv("MAIL_PROVIDER", ProviderNone)),
		PhoneProvider: strings.ToLower(getEnv("PHONE_PROVIDER", ProviderNone)),
		FrontendURL:   getEnv("FRONTEND_URL", "http://localhost:3000"),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: getEnvInt("SMTP_PORT", 587),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		SMTPFrom: os.Getenv("SMTP_FROM"),

		BrevoAPIKey:     os.Getenv("BREVO_API_KEY"),
		BrevoMailSender: os.Getenv("BREVO_MAIL_SENDER"),
		BrevoSMSSender:  os.Getenv("BREVO_SMS_SENDER"),

		AdminBootstrapEnabled: getEnvBool("ADMIN_BOOTSTRAP_ENABLED", false),
		AdminEmail:            strings.TrimSpace(strings.ToLower(os.Getenv("ADMIN_EMAIL"))),
		AdminPassword:         os.Getenv("ADMIN_PASSWORD"),
		AdminRole:             getEnv("ADMIN_ROLE", "ADMIN"),
		AdminFirstName:        getEnv("ADMIN_FIRST_NAME", "Admin"),
		AdminLastName:         getEnv("ADMIN_LAST_NAME", "System"),

		AuthRateLimitPerMin: getEnvInt("AUTH_RATE_LIMIT_PER_MIN", 30),
		APIRateLimitPerMin:  getEnvInt("API_RATE_LIMIT_PER_MIN", 120),
		RedisAddr:           os.Getenv("REDIS_ADDR"),

		MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "authcore-avatars"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", true),
	}

	accessTTL, err := time.ParseDuration(getEnv("JWT_ACCESS_TTL", "15m"))
	if err != nil {
		return nil, fmt.Errorf("parse JWT_ACCESS_TTL: %w", err)
	}
	cfg.JWTAccessTTL = accessTTL

	refreshTTL, err := time.ParseDuration(getEnv("REFRESH_TOKEN_TTL", "720h"))
	if err != nil {
		return nil, fmt.Errorf("parse REFRESH_TOKEN_TTL: %w", err)
	}
	cfg.RefreshTokenTTL = refreshTTL

	cfg.EmailCodeTTL = time.Duration(getEnvInt("EMAIL_CODE_TTL_MINUTES", 1440)) * time.Minute
	cfg.PhoneCodeTTL = time.Duration(getEnvInt("PHONE_CODE_TTL_MINUTES", 10)) * time.Minute

	cleanupInterval, err := time.ParseDuration(getEnv("CLEANUP_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("parse CLEANUP_INTERVAL: %w", err)
	}
	cfg.CleanupInterval = cleanupInterval

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string
	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if len(c.JWTSecret) < 32 {
		errs = append(errs, "JWT_SECRET must be at least 32 chars")
	}
	if len(c.RefreshTokenPepper) < 16 {
		errs = append(errs, "REFRESH_TOKEN_PEPPER must be at least 16 chars")
	}
	if c.JWTAccessTTL <= 0 || c.JWTAccessTTL > time.Hour {
		errs = append(errs, "JWT_ACCESS_TTL must be between 1s and 1h")
	}
	if c.RefreshTokenTTL <= 0 || c.RefreshTokenTTL > 90*24*time.Hour {
		errs = append(errs, "REFRESH_TOKEN_TTL must be between 1s and 90d")
	}
	if c.DefaultRole == "" {
		errs = append(errs, "DEFAULT_ROLE must not be empty")
	}
	if _, err := regexp.Compile(c.PasswordPolicyRegex); err != nil {
		errs = append(errs, "PASSWORD_POLICY_REGEX must be a valid regular expression")
	}
	switch c.MailProvider {
	case ProviderNone, ProviderDev:
	case ProviderSMTP:
		if c.SMTPHost == "" || c.SMTPFrom == "" {
			errs = append(errs, "MAIL_PROVIDER=smtp requires SMTP_HOST and SMTP_FROM")
		}
	case ProviderBrevo:
		if c.BrevoAPIKey == "" || c.BrevoMailSender == "" {
			errs = append(errs, "MAIL_PROVIDER=brevo requires BREVO_API_KEY and BREVO_MAIL_SENDER")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown MAIL_PROVIDER %q", c.MailProvider))
	}
	switch c.PhoneProvider {
	case ProviderNone, ProviderDev:
	case ProviderBrevo:
		if c.BrevoAPIKey == "" || c.BrevoSMSSender == "" {
			errs = append(errs, "PHONE_PROVIDER=brevo requires BREVO_API_KEY and BREVO_SMS_SENDER")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown PHONE_PROVIDER %q", c.PhoneProvider))
	}
	if c.AdminBootstrapEnabled && (c.AdminEmail == "" || c.AdminPassword == "") {
		errs = append(errs, "ADMIN_BOOTSTRAP_ENABLED requires ADMIN_EMAIL and ADMIN_PASSWORD")
	}
	if c.AuthRateLimitPerMin <= 0 {
		errs = append(errs, "AUTH_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.APIRateLimitPerMin <= 0 {
		errs = append(errs, "API_RATE_LIMIT_PER_MIN must be > 0")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// MailEnabled reports whether the mail channel has a real provider.
func (c *Config) MailEnabled() bool { return c.MailProvider != ProviderNone }

// PhoneEnabled reports whether the phone channel has a real provider.
func (c *Config) PhoneEnabled() bool { return c.PhoneProvider != ProviderNone }

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
