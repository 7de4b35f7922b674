package config

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string           `yaml:"env" env-default:"development"` // environment
	HTTPServer HTTPServerConfig `yaml:"http_server"`
	Database   DatabaseConfig   `yaml:"database"`
	JWT        JWTConfig        `yaml:"jwt"`
	Session    SessionConfig    `yaml:"session"`
	Shop       ShopConfig       `yaml:"shop"`
	Payments   PaymentsConfig   `yaml:"payments"`
	Migrations MigrationsConfig `yaml:"migrations"`
}

type HTTPServerConfig struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host" env-default:"localhost"`
	Port     int    `yaml:"port" env-default:"5432"`
	User     string `yaml:"user" env-required:"true"`
	Password string `yaml:"-" env:"DB_PASSWORD" env-required:"true"`
	Name     string `yaml:"name" env-required:"true"`
}

type JWTConfig struct {
	Secret   string `yaml:"-" env:"JWT_SECRET" env-required:"true"`
	TokenTTL int    `yaml:"token_ttl" env-default:"60"`
}

// SessionConfig drives the cookie store for anonymous carts.
type SessionConfig struct {
	Secret string `yaml:"-" env:"SESSION_SECRET" env-required:"true"`
	MaxAge int    `yaml:"max_age" env-default:"2592000"` // seconds
}

// ShopConfig holds storefront-wide pricing knobs.
type ShopConfig struct {
	ShippingCost string `yaml:"shipping_cost" env-default:"10.00"`
}

type PaymentsConfig struct {
	Timeout  time.Duration  `yaml:"timeout" env-default:"15s"`
	Telebirr TelebirrConfig `yaml:"telebirr"`
	PayPal   PayPalConfig   `yaml:"paypal"`
}

type TelebirrConfig struct {
	APIURL    string `yaml:"api_url"`
	AppID     string `yaml:"app_id"`
	AppKey    string `yaml:"-" env:"TELEBIRR_APP_KEY"`
	ShortCode string `yaml:"short_code"`
	NotifyURL string `yaml:"notify_url"`
	ReturnURL string `yaml:"return_url"`
}

type PayPalConfig struct {
	BaseURL   string `yaml:"base_url"`
	ClientID  string `yaml:"client_id"`
	Secret    string `yaml:"-" env:"PAYPAL_SECRET"`
	Currency  string `yaml:"currency" env-default:"USD"`
	ReturnURL string `yaml:"return_url"`
	CancelURL string `yaml:"cancel_url"`
}

type MigrationsConfig struct {
	Path string `yaml:"path" env-default:"./migrations"`
}

// MustLoad panics when no usable config can be found.
func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		log.Fatal("CONFIG_PATH not exists")
	}
	return MustLoadByPath(configPath)
}

func fetchConfigPath() string {
	var path string

	flag.StringVar(&path, "config", "", "path to config file")
	flag.Parse()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	return path
}

func MustLoadByPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file not found: " + configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("can't read config file %s", configPath)
	}

	return &cfg
}
