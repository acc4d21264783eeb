package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const defaultValidatePaymentMethod = "financing.lending.doctype.loan_payment.loan_payment.validate_payment"

// DefaultOpenPaths are the endpoints served without an API key.
var DefaultOpenPaths = []string{
	"/",
	"/metrics",
	"/api/v1/generate-api-key",
	"/api/v1/invoice-request",
	"/api/v1/new-invoice-request",
	"/api/v1/loan-payment",
}

// Config holds application configuration
type Config struct {
	Port     string
	LogLevel string

	ERPBaseURL               string
	ERPAPIKey                string
	ERPAPISecret             string
	ERPTimeout               time.Duration
	ERPValidatePaymentMethod string
	ERPProbeSchedule         string

	OpenPaths []string
	DBConn    string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string
	AlertEmail   string

	WriteTimeout time.Duration
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{
		Port:                     getEnv("PORT", "8080"),
		LogLevel:                 getEnv("LOG_LEVEL", "INFO"),
		ERPBaseURL:               strings.TrimRight(getEnv("ERP_BASE_URL", ""), "/"),
		ERPAPIKey:                getEnv("ERP_API_KEY", ""),
		ERPAPISecret:             getEnv("ERP_API_SECRET", ""),
		ERPValidatePaymentMethod: getEnv("ERP_VALIDATE_PAYMENT_METHOD", defaultValidatePaymentMethod),
		ERPProbeSchedule:         getEnv("ERP_PROBE_SCHEDULE", "@every 1m"),
		OpenPaths:                splitList(getEnv("OPEN_PATHS", strings.Join(DefaultOpenPaths, ","))),
		DBConn:                   getEnv("DB_CONN", ""),
		SMTPHost:                 getEnv("SMTP_HOST", ""),
		SMTPPort:                 getEnv("SMTP_PORT", "587"),
		SMTPUsername:             getEnv("SMTP_USERNAME", ""),
		SMTPPassword:             getEnv("SMTP_PASSWORD", ""),
		SenderEmail:              getEnv("SENDER_EMAIL", ""),
		AlertEmail:               getEnv("ALERT_EMAIL", ""),
	}

	if cfg.ERPBaseURL == "" {
		return nil, fmt.Errorf("ERP_BASE_URL is required")
	}
	if cfg.ERPAPIKey == "" {
		return nil, fmt.Errorf("ERP_API_KEY is required")
	}
	if cfg.ERPAPISecret == "" {
		return nil, fmt.Errorf("ERP_API_SECRET is required")
	}

	var err error
	if cfg.ERPTimeout, err = getDuration("ERP_TIMEOUT", 20*time.Second); err != nil {
		return nil, err
	}
	if cfg.WriteTimeout, err = getDuration("SERVER_WRITE_TIMEOUT", 120*time.Second); err != nil {
		return nil, err
	}

	return cfg, nil
}

// AlertsEnabled reports whether operator alert emails can be sent.
func (c *Config) AlertsEnabled() bool {
	return c.SMTPHost != "" && c.SenderEmail != "" && c.AlertEmail != ""
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, d)
	}
	return d, nil
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
