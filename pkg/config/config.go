package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var config = viper.New()

type Config struct {
	AppEnv  string `mapstructure:"APP_ENV"`
	AppName string `mapstructure:"APP_NAME"`
	Server  struct {
		Addr         string        `mapstructure:"ADDR"`
		ReadTimeout  time.Duration `mapstructure:"READ_TIMEOUT"`
		WriteTimeout time.Duration `mapstructure:"WRITE_TIMEOUT"`
	} `mapstructure:"HTTP_SERVER"`
	Database struct {
		Host     string `mapstructure:"HOST"`
		Port     string `mapstructure:"PORT"`
		DBNAME   string `mapstructure:"DBNAME"`
		User     string `mapstructure:"USER"`
		Password string `mapstructure:"PASSWORD"`
		SSLMode  string `mapstructure:"SSLMODE"`
		Timezone string `mapstructure:"TIMEZONE"`
	} `mapstructure:"DATABASE"`
	Redis struct {
		Addr        string        `mapstructure:"ADDR"`
		Password    string        `mapstructure:"PASSWORD"`
		DB          int           `mapstructure:"DB"`
		PoolSize    int           `mapstructure:"POOL_SIZE"`
		PoolTimeout time.Duration `mapstructure:"POOL_TIMEOUT"`
	} `mapstructure:"REDIS"`
	PhonePe struct {
		BaseURL     string `mapstructure:"BASE_URL"`
		MerchantID  string `mapstructure:"MERCHANT_ID"`
		SaltKey     string `mapstructure:"SALT_KEY"`
		SaltIndex   string `mapstructure:"SALT_INDEX"`
		RedirectURL string `mapstructure:"REDIRECT_URL"`
		CallbackURL string `mapstructure:"CALLBACK_URL"`
	} `mapstructure:"PHONEPE"`
	Stripe struct {
		SecretKey     string `mapstructure:"SECRET_KEY"`
		WebhookSecret string `mapstructure:"WEBHOOK_SECRET"`
		SuccessURL    string `mapstructure:"SUCCESS_URL"`
		CancelURL     string `mapstructure:"CANCEL_URL"`
	} `mapstructure:"STRIPE"`
	Generator struct {
		BaseURL string        `mapstructure:"BASE_URL"`
		APIKey  string        `mapstructure:"API_KEY"`
		Model   string        `mapstructure:"MODEL"`
		Timeout time.Duration `mapstructure:"TIMEOUT"`
	} `mapstructure:"GENERATOR"`
	Queue struct {
		Concurrency int           `mapstructure:"CONCURRENCY"`
		RateLimit   int           `mapstructure:"RATE_LIMIT"`
		RateWindow  time.Duration `mapstructure:"RATE_WINDOW"`
	} `mapstructure:"QUEUE"`
}

var Module = fx.Module("config", fx.Provide(LoadConfig))

func LoadConfig() (*Config, error) {
	config.SetConfigName("config")
	config.SetConfigType("yaml")
	config.AddConfigPath(".")

	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv()

	setDefaults(config)

	if err := config.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		zap.L().Warn("config.yaml not found, relying on environment and defaults")
	}

	var cfg Config
	if err := config.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_NAME", "researchpal")
	v.SetDefault("HTTP_SERVER.ADDR", ":8080")
	v.SetDefault("HTTP_SERVER.READ_TIMEOUT", 15*time.Second)
	v.SetDefault("HTTP_SERVER.WRITE_TIMEOUT", 15*time.Second)
	v.SetDefault("DATABASE.HOST", "127.0.0.1")
	v.SetDefault("DATABASE.PORT", "5432")
	v.SetDefault("DATABASE.SSLMODE", "disable")
	v.SetDefault("REDIS.ADDR", "127.0.0.1:6379")
	v.SetDefault("REDIS.POOL_SIZE", 10)
	v.SetDefault("PHONEPE.BASE_URL", "https://api.phonepe.com/apis/hermes")
	v.SetDefault("PHONEPE.SALT_INDEX", "1")
	v.SetDefault("GENERATOR.BASE_URL", "https://api.openai.com/v1")
	v.SetDefault("GENERATOR.MODEL", "gpt-4o-mini")
	v.SetDefault("GENERATOR.TIMEOUT", 60*time.Second)
	v.SetDefault("QUEUE.CONCURRENCY", 3)
	v.SetDefault("QUEUE.RATE_LIMIT", 10)
	v.SetDefault("QUEUE.RATE_WINDOW", 60*time.Second)
}
