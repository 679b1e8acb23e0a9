package config

import (
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	ListenAddr string `mapstructure:"listen_addr"`
	Env        string `mapstructure:"env"`

	Postgres Postgres `mapstructure:"postgres"`
	Redis    Redis    `mapstructure:"redis"`

	Payments  Service `mapstructure:"payments"`
	Documents Service `mapstructure:"documents"`
	Mailer    Service `mapstructure:"mailer"`
	Calendar  Service `mapstructure:"calendar"`

	// WebhookSecret authenticates payment-confirmation callbacks.
	WebhookSecret string `mapstructure:"webhook_secret"`
	// ContactInbox receives contact-form messages and sale notices.
	ContactInbox string `mapstructure:"contact_inbox"`
}

type Postgres struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"db_name"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

type Redis struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type Service struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

// Load reads config.yaml from path (if present) with environment
// variables taking precedence, e.g. POSTGRES_HOST overrides
// postgres.host.
func Load(path string) (Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("listen_addr", ":8080")
	viper.SetDefault("env", "development")
	viper.SetDefault("postgres.host", "localhost")
	viper.SetDefault("postgres.port", 5432)
	viper.SetDefault("postgres.ssl_mode", "disable")
	viper.SetDefault("redis.address", "localhost:6379")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
