package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	Group    string
	Consumer string
}

type StorageConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	BucketAvatars string
	UseSSL        bool
	Region        string
}

type SecurityConfig struct {
	SecretKey       string
	AccessTokenTTL  time.Duration
	AccountTokenTTL time.Duration
	AdminEmail      string
}

type MailConfig struct {
	FromName    string
	FromAddress string
	SMTPAddr    string
	SMTPUser    string
	SMTPPass    string
	BaseURL     string
}

type QueueConfig struct {
	ClaimInterval time.Duration
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Mail             MailConfig
	Queues           QueueConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("RESTAURANTMENU")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stream", "mail:outbox")
	v.SetDefault("redis.group", "mail-workers")
	v.SetDefault("redis.consumer", "worker-1")

	v.SetDefault("storage.bucketavatars", "restaurantmenu-avatars")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("security.accesstokenttl", "15m")
	v.SetDefault("security.accounttokenttl", "1h")

	v.SetDefault("mail.fromname", "Restaurant Menu")
	v.SetDefault("mail.fromaddress", "no-reply@restaurantmenu.local")
	v.SetDefault("mail.smtpaddr", "127.0.0.1:1025")
	v.SetDefault("mail.baseurl", "http://localhost:8080")

	v.SetDefault("queues.claiminterval", "10s")
}
