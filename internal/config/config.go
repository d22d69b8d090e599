// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env"`
	StorageConnectionString string `yaml:"storage_connection_string"`
	MigrationsPath          string `yaml:"migrations_path"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	Authority               `yaml:"authority"`
	RabbitMQ                `yaml:"rabbitmq"`
	Webhook                 `yaml:"webhook"`
	Gate                    `yaml:"gate"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
}

// Authority структура для подключения к биллинговому сервису,
// который является источником истины по подпискам и кредитам.
type Authority struct {
	BaseURL          string        `yaml:"base_url"`
	APIKey           string        `yaml:"api_key"`
	TimeoutAuthority time.Duration `yaml:"timeout"`
	RetryMax         int           `yaml:"retry_max"`
}

// RabbitMQ структура для подключения к брокеру сообщений
type RabbitMQ struct {
	ConnectionString string        `yaml:"connection_string"`
	ConnectRetries   int           `yaml:"connect_retries"`
	ConnectDelay     time.Duration `yaml:"connect_delay"`
}

// Webhook структура с настройками вебхука платёжного провайдера
type Webhook struct {
	WebhookSecret string `yaml:"webhook_secret"`
}

// Gate структура с адресами перенаправления для закрытых фич
type Gate struct {
	LoginURL   string `yaml:"login_url"`
	UpgradeURL string `yaml:"upgrade_url"`
}

// MustLoad функция для загрузки конфига, путь берется из переменной окружения CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorageConnectionString: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"Authority:\n"+
			"  BaseURL: %s\n"+
			"  Timeout: %s\n"+
			"RabbitMQ:\n"+
			"  ConnectionString: %s\n",
		c.Env,
		c.StorageConnectionString,
		c.AddressRedis,
		c.DB,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.BaseURL,
		c.TimeoutAuthority,
		c.ConnectionString,
	)
}
