package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Configuration struct {
	Server   ServerConfig   `validate:"required"`
	Logging  LoggingConfig  `validate:"required"`
	Postgres PostgresConfig `validate:"required"`
	Redis    RedisConfig
	Cache    CacheConfig
	Sentry   SentryConfig
	Razorpay RazorpayConfig `validate:"required"`
	Paddle   PaddleConfig   `validate:"required"`
	Billing  BillingConfig  `validate:"required"`
	Webhook  WebhookConfig
}

type ServerConfig struct {
	Address string `validate:"required"`
}

type LoggingConfig struct {
	Level string `validate:"required"`
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
	AutoMigrate            bool
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

type CacheConfig struct {
	Enabled bool
	// InMemory switches the cache store to the in-process implementation,
	// used for local runs and tests
	InMemory bool
}

type SentryConfig struct {
	DSN         string
	Environment string
	Enabled     bool
	SampleRate  float64
}

type RazorpayConfig struct {
	BaseURL   string `validate:"required"`
	APIKey    string
	APISecret string
}

type PaddleConfig struct {
	BaseURL     string `validate:"required"`
	APISecret   string
	ClientToken string
}

type BillingConfig struct {
	// TrialPeriodSeconds is how long a first-time trial of the paid monthly
	// plan lasts before the scheduled downgrade fires
	TrialPeriodSeconds int64  `validate:"required"`
	BasicPlanSlug      string `validate:"required"`
	ProMonthlyPlanSlug string `validate:"required"`
	// FallbackPlanID is presented when an identity has no subscription row
	FallbackPlanID string
}

func (c BillingConfig) TrialDuration() time.Duration {
	return time.Duration(c.TrialPeriodSeconds) * time.Second
}

type WebhookConfig struct {
	Topic           string
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	MaxElapsedTime  time.Duration
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/plexbill")

	v.SetEnvPrefix("PLEXBILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("logging.level", "info")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.maxopenconns", 10)
	v.SetDefault("postgres.maxidleconns", 5)
	v.SetDefault("postgres.connmaxlifetimeminutes", 30)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("razorpay.baseurl", "https://api.razorpay.com/v1")
	v.SetDefault("paddle.baseurl", "https://api.paddle.com")
	v.SetDefault("billing.trialperiodseconds", 14*24*60*60)
	v.SetDefault("billing.basicplanslug", "basic")
	v.SetDefault("billing.promonthlyplanslug", "pro-monthly")
	v.SetDefault("webhook.topic", "provider_events")
	v.SetDefault("webhook.maxretries", 3)
	v.SetDefault("webhook.initialinterval", 1*time.Second)
	v.SetDefault("webhook.maxinterval", 10*time.Second)
	v.SetDefault("webhook.multiplier", 1.5)
	v.SetDefault("webhook.maxelapsedtime", 2*time.Minute)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts or other non-web applications
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Server:   ServerConfig{Address: ":8080"},
		Logging:  LoggingConfig{Level: "debug"},
		Cache:    CacheConfig{Enabled: true, InMemory: true},
		Razorpay: RazorpayConfig{BaseURL: "https://api.razorpay.com/v1"},
		Paddle:   PaddleConfig{BaseURL: "https://api.paddle.com"},
		Billing: BillingConfig{
			TrialPeriodSeconds: 14 * 24 * 60 * 60,
			BasicPlanSlug:      "basic",
			ProMonthlyPlanSlug: "pro-monthly",
		},
		Webhook: WebhookConfig{Topic: "provider_events"},
	}
}
