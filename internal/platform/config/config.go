package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Server captures process level configuration for the engine.
type Server struct {
	Addr           string
	AdminToken     string
	Environment    string
	TrustedProxies []string

	DatabaseURL string
	RedisURL    string

	KafkaBrokers      []string
	NotificationTopic string

	ProfileDir string

	Reset       CredentialReset
	OTP         OTPDefaults
	Webhook     Webhook
	AuthzSweep  time.Duration
	AuditBuffer int
}

// CredentialReset configures the reset flow. SettingsJSON holds the
// PasswordCredentialResetSettings document as stored with the credential definition.
type CredentialReset struct {
	TokenSigningKey string
	SessionTTL      time.Duration
	MaxAttempts     int
	AttemptWindow   time.Duration
	SettingsJSON    string
	Captcha         Captcha
}

// Captcha points at a siteverify style provider. An empty VerifyURL leaves
// the reset flow unable to pass the identity step.
type Captcha struct {
	VerifyURL string
	Secret    string
	Timeout   time.Duration
}

// OTPDefaults are used when enrolling new OTP credentials.
type OTPDefaults struct {
	Issuer            string
	CodeLength        int
	Period            time.Duration
	Algorithm         string
	AllowedDriftSteps int
}

// Webhook configures outbound webhook calls. Truststores maps a truststore
// name to a PEM bundle path.
type Webhook struct {
	Timeout     time.Duration
	RatePerSec  float64
	Burst       int
	Truststores map[string]string
}

// SessionTTL bounds how long an abandoned reset flow lingers in the session store.
var SessionTTL = 15 * time.Minute

type configFile struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Storage struct {
		DatabaseURL string `yaml:"database_url"`
		RedisURL    string `yaml:"redis_url"`
	} `yaml:"storage"`
	Kafka struct {
		Brokers           []string `yaml:"brokers"`
		NotificationTopic string   `yaml:"notification_topic"`
	} `yaml:"kafka"`
	Translation struct {
		ProfileDir string `yaml:"profile_dir"`
	} `yaml:"translation"`
	CredentialReset struct {
		SessionTTL    string `yaml:"session_ttl"`
		MaxAttempts   int    `yaml:"max_attempts"`
		AttemptWindow string `yaml:"attempt_window"`
		Settings      string `yaml:"settings"`
		Captcha       struct {
			VerifyURL string `yaml:"verify_url"`
			Timeout   string `yaml:"timeout"`
		} `yaml:"captcha"`
	} `yaml:"credential_reset"`
	OTP struct {
		Issuer            string `yaml:"issuer"`
		CodeLength        int    `yaml:"code_length"`
		PeriodSeconds     int    `yaml:"period_seconds"`
		Algorithm         string `yaml:"algorithm"`
		AllowedDriftSteps *int   `yaml:"allowed_drift_steps"`
	} `yaml:"otp"`
	Webhook struct {
		Timeout     string            `yaml:"timeout"`
		RatePerSec  float64           `yaml:"rate_per_sec"`
		Burst       int               `yaml:"burst"`
		Truststores map[string]string `yaml:"truststores"`
	} `yaml:"webhook"`
}

func defaults() Server {
	return Server{
		Addr:              ":8080",
		Environment:       "development",
		NotificationTopic: "idm.notifications",
		Reset: CredentialReset{
			SessionTTL:    SessionTTL,
			MaxAttempts:   5,
			AttemptWindow: 15 * time.Minute,
			SettingsJSON:  `{"enabled":true,"requireSecurityQuestion":false,"requireEmailConfirmation":true,"confirmationMode":"RequireEmail"}`,
			Captcha:       Captcha{Timeout: 5 * time.Second},
		},
		OTP: OTPDefaults{
			Issuer:            "idmcore",
			CodeLength:        6,
			Period:            30 * time.Second,
			Algorithm:         "SHA1",
			AllowedDriftSteps: 3,
		},
		Webhook: Webhook{
			Timeout:     10 * time.Second,
			RatePerSec:  20,
			Burst:       40,
			Truststores: map[string]string{},
		},
		AuthzSweep:  time.Minute,
		AuditBuffer: 1024,
	}
}

// Load reads the optional YAML file at path and then applies environment
// overrides. A missing file is not an error; a malformed one is.
func Load(path string) (Server, error) {
	cfg := defaults()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := applyFile(&cfg, raw); err != nil {
				return Server{}, err
			}
		case !os.IsNotExist(err):
			return Server{}, fmt.Errorf("read config: %w", err)
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

// FromEnv builds a Server config from IDM_CONFIG_FILE and environment variables so main stays lean.
func FromEnv() (Server, error) {
	return Load(os.Getenv("IDM_CONFIG_FILE"))
}

func applyFile(cfg *Server, raw []byte) error {
	var f configFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if f.Server.Addr != "" {
		cfg.Addr = f.Server.Addr
	}
	if f.Storage.DatabaseURL != "" {
		cfg.DatabaseURL = f.Storage.DatabaseURL
	}
	if f.Storage.RedisURL != "" {
		cfg.RedisURL = f.Storage.RedisURL
	}
	if len(f.Kafka.Brokers) > 0 {
		cfg.KafkaBrokers = f.Kafka.Brokers
	}
	if f.Kafka.NotificationTopic != "" {
		cfg.NotificationTopic = f.Kafka.NotificationTopic
	}
	if f.Translation.ProfileDir != "" {
		cfg.ProfileDir = f.Translation.ProfileDir
	}
	if d, ok := parseDuration(f.CredentialReset.SessionTTL); ok {
		cfg.Reset.SessionTTL = d
	}
	if f.CredentialReset.MaxAttempts > 0 {
		cfg.Reset.MaxAttempts = f.CredentialReset.MaxAttempts
	}
	if d, ok := parseDuration(f.CredentialReset.AttemptWindow); ok {
		cfg.Reset.AttemptWindow = d
	}
	if f.CredentialReset.Settings != "" {
		cfg.Reset.SettingsJSON = f.CredentialReset.Settings
	}
	if f.CredentialReset.Captcha.VerifyURL != "" {
		cfg.Reset.Captcha.VerifyURL = f.CredentialReset.Captcha.VerifyURL
	}
	if d, ok := parseDuration(f.CredentialReset.Captcha.Timeout); ok {
		cfg.Reset.Captcha.Timeout = d
	}
	if f.OTP.Issuer != "" {
		cfg.OTP.Issuer = f.OTP.Issuer
	}
	if f.OTP.CodeLength > 0 {
		cfg.OTP.CodeLength = f.OTP.CodeLength
	}
	if f.OTP.PeriodSeconds > 0 {
		cfg.OTP.Period = time.Duration(f.OTP.PeriodSeconds) * time.Second
	}
	if f.OTP.Algorithm != "" {
		cfg.OTP.Algorithm = f.OTP.Algorithm
	}
	if f.OTP.AllowedDriftSteps != nil {
		cfg.OTP.AllowedDriftSteps = *f.OTP.AllowedDriftSteps
	}
	if d, ok := parseDuration(f.Webhook.Timeout); ok {
		cfg.Webhook.Timeout = d
	}
	if f.Webhook.RatePerSec > 0 {
		cfg.Webhook.RatePerSec = f.Webhook.RatePerSec
	}
	if f.Webhook.Burst > 0 {
		cfg.Webhook.Burst = f.Webhook.Burst
	}
	for name, path := range f.Webhook.Truststores {
		cfg.Webhook.Truststores[name] = path
	}
	return nil
}

func applyEnv(cfg *Server) {
	cfg.Addr = envString("IDM_ADDR", cfg.Addr)
	cfg.Environment = envString("IDM_ENV", cfg.Environment)
	if proxies := os.Getenv("IDM_TRUSTED_PROXIES"); proxies != "" {
		cfg.TrustedProxies = strings.Split(proxies, ",")
	}
	cfg.AdminToken = envString("IDM_ADMIN_TOKEN", cfg.AdminToken)
	if cfg.AdminToken == "" {
		// Use a default for development - should be overridden in production
		cfg.AdminToken = "dev-admin-token"
	}
	cfg.DatabaseURL = envString("DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisURL = envString("REDIS_URL", cfg.RedisURL)
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	cfg.NotificationTopic = envString("IDM_NOTIFICATION_TOPIC", cfg.NotificationTopic)
	cfg.ProfileDir = envString("IDM_PROFILE_DIR", cfg.ProfileDir)

	cfg.Reset.TokenSigningKey = envString("IDM_RESET_SIGNING_KEY", cfg.Reset.TokenSigningKey)
	if cfg.Reset.TokenSigningKey == "" {
		cfg.Reset.TokenSigningKey = "dev-reset-key-change-in-production"
	}
	cfg.Reset.SessionTTL = envDuration("IDM_RESET_SESSION_TTL", cfg.Reset.SessionTTL)
	cfg.Reset.MaxAttempts = envInt("IDM_RESET_MAX_ATTEMPTS", cfg.Reset.MaxAttempts)
	cfg.Reset.AttemptWindow = envDuration("IDM_RESET_ATTEMPT_WINDOW", cfg.Reset.AttemptWindow)
	cfg.Reset.SettingsJSON = envString("IDM_RESET_SETTINGS", cfg.Reset.SettingsJSON)
	cfg.Reset.Captcha.VerifyURL = envString("IDM_CAPTCHA_VERIFY_URL", cfg.Reset.Captcha.VerifyURL)
	// secrets only come from the environment
	cfg.Reset.Captcha.Secret = envString("IDM_CAPTCHA_SECRET", cfg.Reset.Captcha.Secret)
	cfg.Reset.Captcha.Timeout = envDuration("IDM_CAPTCHA_TIMEOUT", cfg.Reset.Captcha.Timeout)

	cfg.OTP.Issuer = envString("IDM_OTP_ISSUER", cfg.OTP.Issuer)
	cfg.OTP.AllowedDriftSteps = envInt("IDM_OTP_DRIFT_STEPS", cfg.OTP.AllowedDriftSteps)

	cfg.Webhook.Timeout = envDuration("IDM_WEBHOOK_TIMEOUT", cfg.Webhook.Timeout)
	cfg.AuthzSweep = envDuration("IDM_AUTHZ_SWEEP_INTERVAL", cfg.AuthzSweep)
	cfg.AuditBuffer = envInt("IDM_AUDIT_BUFFER", cfg.AuditBuffer)
}

func parseDuration(raw string) (time.Duration, bool) {
	if raw == "" {
		return 0, false
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}

func envString(name, fallback string) string {
	if raw := os.Getenv(name); raw != "" {
		return raw
	}
	return fallback
}

func envInt(name string, fallback int) int {
	if raw := os.Getenv(name); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}

func envDuration(name string, fallback time.Duration) time.Duration {
	if d, ok := parseDuration(os.Getenv(name)); ok {
		return d
	}
	return fallback
}
