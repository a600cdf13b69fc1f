package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/streambill/streambill/internal/types"
)

type Configuration struct {
	Deployment    DeploymentConfig    `validate:"required"`
	Server        ServerConfig        `validate:"required"`
	Logging       LoggingConfig       `validate:"required"`
	Postgres      PostgresConfig      `validate:"required"`
	Panels        PanelsConfig        `validate:"required"`
	Sessions      SessionsConfig      `validate:"required"`
	Notifications NotificationsConfig
	Lifecycle     LifecycleConfig
	Sentry        SentryConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type ServerConfig struct {
	Address string `validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

type PostgresConfig struct {
	Host                   string
	Port                   int
	User                   string
	Password               string
	DBName                 string
	SSLMode                string
	MaxOpenConns           int
	MaxIdleConns           int
	ConnMaxLifetimeMinutes int
}

// PanelsConfig lists the configured panel instances per family. Products
// reference an instance by family tag plus index into these slices.
type PanelsConfig struct {
	XtreamUI []XtreamUIPanelConfig
	XuiOne   []XuiOnePanelConfig
}

// XtreamUIPanelConfig is a cookie/session-authenticated panel instance.
type XtreamUIPanelConfig struct {
	Name          string `validate:"required"`
	PanelURL      string `validate:"required,url"`
	StreamingURL  string
	AdminUsername string `validate:"required"`
	AdminPassword string `validate:"required"`
	SSLVerify     bool
	Active        bool
}

// XuiOnePanelConfig is an access-code/API-key authenticated panel instance.
type XuiOnePanelConfig struct {
	Name          string `validate:"required"`
	PanelURL      string `validate:"required,url"`
	APIAccessCode string
	APIKey        string
	AdminUsername string
	AdminPassword string
	SSLVerify     bool
	Active        bool
}

// SessionsConfig controls where panel session blobs are persisted.
type SessionsConfig struct {
	Dir string `validate:"required"`
}

type NotificationsConfig struct {
	Email EmailConfig
	Chat  ChatConfig
}

type EmailConfig struct {
	Enabled     bool
	APIKey      string
	FromAddress string
	ReplyTo     string
}

type ChatConfig struct {
	Enabled    bool
	WebhookURL string
}

// LifecycleConfig tunes the automated sweeps.
type LifecycleConfig struct {
	CancelAfterSuspendedDays int
	ExpiryWarningDays        int
}

type SentryConfig struct {
	Enabled     bool
	DSN         string
	Environment string
	SampleRate  float64
}

func NewConfig() (*Configuration, error) {
	// A missing .env file is fine; env vars may come from the environment.
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/streambill")

	v.SetEnvPrefix("STREAMBILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func applyDefaults(c *Configuration) {
	if c.Lifecycle.CancelAfterSuspendedDays == 0 {
		c.Lifecycle.CancelAfterSuspendedDays = 30
	}
	if c.Lifecycle.ExpiryWarningDays == 0 {
		c.Lifecycle.ExpiryWarningDays = 7
	}
	if c.Sessions.Dir == "" {
		c.Sessions.Dir = "/var/lib/streambill/sessions"
	}
	if c.Postgres.MaxOpenConns == 0 {
		c.Postgres.MaxOpenConns = 10
	}
	if c.Postgres.MaxIdleConns == 0 {
		c.Postgres.MaxIdleConns = 5
	}
	if c.Postgres.ConnMaxLifetimeMinutes == 0 {
		c.Postgres.ConnMaxLifetimeMinutes = 30
	}
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// XtreamUIPanel returns the configured Family A instance at index, falling
// back to instance 0 when the index is out of range. ok reports whether the
// requested index existed.
func (p PanelsConfig) XtreamUIPanel(index int) (XtreamUIPanelConfig, bool, error) {
	if len(p.XtreamUI) == 0 {
		return XtreamUIPanelConfig{}, false, fmt.Errorf("no xtreamui panels configured")
	}
	if index < 0 || index >= len(p.XtreamUI) {
		return p.XtreamUI[0], false, nil
	}
	return p.XtreamUI[index], true, nil
}

// XuiOnePanel returns the configured Family B instance at index with the same
// fallback semantics as XtreamUIPanel.
func (p PanelsConfig) XuiOnePanel(index int) (XuiOnePanelConfig, bool, error) {
	if len(p.XuiOne) == 0 {
		return XuiOnePanelConfig{}, false, fmt.Errorf("no xuione panels configured")
	}
	if index < 0 || index >= len(p.XuiOne) {
		return p.XuiOne[0], false, nil
	}
	return p.XuiOne[index], true, nil
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts or tests
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server:     ServerConfig{Address: ":8080"},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Sessions:   SessionsConfig{Dir: "/tmp/streambill-sessions"},
		Lifecycle: LifecycleConfig{
			CancelAfterSuspendedDays: 30,
			ExpiryWarningDays:        7,
		},
	}
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User, c.Password, c.DBName, c.Host, c.Port, c.SSLMode,
	)
}
