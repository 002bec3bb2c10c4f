package config

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ProviderCreem  = "creem"
	ProviderStripe = "stripe"
)

type Config struct {
	Port       string `mapstructure:"PORT" validate:"required"`
	DBURL      string `mapstructure:"DB_URL" validate:"required"`
	JWTSecret  string `mapstructure:"JWT_SECRET" validate:"required"`
	CORSOrigin string `mapstructure:"CORS_ORIGIN"`
	SiteURL    string `mapstructure:"SITE_URL" validate:"required,url"`

	PaymentProvider    string `mapstructure:"PAYMENT_PROVIDER" validate:"oneof=creem stripe"`
	CreemAPIURL        string `mapstructure:"CREEM_API_URL" validate:"required_if=PaymentProvider creem,omitempty,url"`
	CreemAPIKey        string `mapstructure:"CREEM_API_KEY" validate:"required_if=PaymentProvider creem"`
	CreemSuccessURL    string `mapstructure:"CREEM_SUCCESS_URL" validate:"omitempty,url"`
	CreemWebhookSecret string `mapstructure:"CREEM_WEBHOOK_SECRET"`
	StripeSecretKey    string `mapstructure:"STRIPE_SECRET_KEY" validate:"required_if=PaymentProvider stripe"`
	StripeWebhookKey   string `mapstructure:"STRIPE_WEBHOOK_SECRET"`

	DeepSeekAPIURL string `mapstructure:"DEEPSEEK_API_URL" validate:"omitempty,url"`
	DeepSeekAPIKey string `mapstructure:"DEEPSEEK_API_KEY"`

	RedisURL     string `mapstructure:"REDIS_URL"`
	AMQPURL      string `mapstructure:"AMQP_URL"`
	AMQPExchange string `mapstructure:"AMQP_EXCHANGE"`

	GoogleClientID         string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret     string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL      string `mapstructure:"GOOGLE_REDIRECT_URL"`
	GoogleFrontendRedirect string `mapstructure:"GOOGLE_FRONTEND_REDIRECT"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     string `mapstructure:"SMTP_PORT"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
}

// ConfigError reports settings that are absent or unusable. It is fatal for
// any checkout attempt and is surfaced at startup.
type ConfigError struct {
	Missing []string
	Invalid []string
}

func (e *ConfigError) Error() string {
	parts := make([]string, 0, 2)
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required setting(s): "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid setting(s): "+strings.Join(e.Invalid, ", "))
	}
	return "config: " + strings.Join(parts, "; ")
}

var keys = []string{
	"PORT", "DB_URL", "JWT_SECRET", "CORS_ORIGIN", "SITE_URL",
	"PAYMENT_PROVIDER", "CREEM_API_URL", "CREEM_API_KEY", "CREEM_SUCCESS_URL",
	"CREEM_WEBHOOK_SECRET", "STRIPE_SECRET_KEY", "STRIPE_WEBHOOK_SECRET",
	"DEEPSEEK_API_URL", "DEEPSEEK_API_KEY",
	"REDIS_URL", "AMQP_URL", "AMQP_EXCHANGE",
	"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "GOOGLE_REDIRECT_URL", "GOOGLE_FRONTEND_REDIRECT",
	"SMTP_HOST", "SMTP_PORT", "SMTP_FROM", "SMTP_PASSWORD",
}

// Keys lists every environment key the resolver reads.
func Keys() []string {
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}

// LoadDotEnv loads a .env file when one exists. Process environment wins.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}
}

// Resolve reads process-wide settings into a Config and validates them.
func Resolve() (*Config, error) {
	v := viper.New()
	v.SetDefault("PORT", "8080")
	v.SetDefault("PAYMENT_PROVIDER", ProviderCreem)
	v.SetDefault("DEEPSEEK_API_URL", "https://api.deepseek.com")
	v.SetDefault("AMQP_EXCHANGE", "billing_events")
	v.SetDefault("SMTP_PORT", "587")
	v.AutomaticEnv()

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.normalize()

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, toConfigError(err)
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.PaymentProvider = strings.ToLower(strings.TrimSpace(c.PaymentProvider))
	c.SiteURL = strings.TrimRight(strings.TrimSpace(c.SiteURL), "/")
	c.CreemAPIURL = strings.TrimRight(strings.TrimSpace(c.CreemAPIURL), "/")
	c.CreemAPIKey = strings.TrimSpace(c.CreemAPIKey)
	c.CreemSuccessURL = strings.TrimSpace(c.CreemSuccessURL)
	c.DeepSeekAPIURL = strings.TrimRight(strings.TrimSpace(c.DeepSeekAPIURL), "/")
}

func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

func toConfigError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	ce := &ConfigError{}
	for _, fe := range verrs {
		key := envKey(fe.StructField())
		switch fe.Tag() {
		case "required", "required_if":
			ce.Missing = append(ce.Missing, key)
		default:
			ce.Invalid = append(ce.Invalid, key)
		}
	}
	sort.Strings(ce.Missing)
	sort.Strings(ce.Invalid)
	return ce
}

func envKey(field string) string {
	if k, ok := fieldKeys[field]; ok {
		return k
	}
	return field
}

var fieldKeys = map[string]string{
	"Port":            "PORT",
	"DBURL":           "DB_URL",
	"JWTSecret":       "JWT_SECRET",
	"SiteURL":         "SITE_URL",
	"PaymentProvider": "PAYMENT_PROVIDER",
	"CreemAPIURL":     "CREEM_API_URL",
	"CreemAPIKey":     "CREEM_API_KEY",
	"CreemSuccessURL": "CREEM_SUCCESS_URL",
	"StripeSecretKey": "STRIPE_SECRET_KEY",
	"DeepSeekAPIURL":  "DEEPSEEK_API_URL",
}

// MaskSecret returns a short, non-reversible prefix suitable for logs.
func MaskSecret(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unset)"
	}
	if len(s) < 12 {
		return "***"
	}
	return s[:6] + "..."
}
