package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	snapSandboxURL    = "https://app.sandbox.midtrans.com/snap/v1/transactions"
	snapProductionURL = "https://app.midtrans.com/snap/v1/transactions"
	apiSandboxURL     = "https://api.sandbox.midtrans.com"
	apiProductionURL  = "https://api.midtrans.com"
)

// Config is built once at startup and handed to every constructor that needs it.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Booking  BookingConfig  `mapstructure:"booking"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Poller   PollerConfig   `mapstructure:"poller"`
	Log      LogConfig      `mapstructure:"log"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	Port     string `mapstructure:"port"`
	Timezone string `mapstructure:"timezone"`
}

type DatabaseConfig struct {
	URL          string `mapstructure:"url"`
	Host         string `mapstructure:"host"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	Port         string `mapstructure:"port"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	LogLevel     string `mapstructure:"log_level"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type GatewayConfig struct {
	ServerKey       string        `mapstructure:"server_key"`
	ClientKey       string        `mapstructure:"client_key"`
	MerchantID      string        `mapstructure:"merchant_id"`
	Sandbox         bool          `mapstructure:"sandbox"`
	SnapURL         string        `mapstructure:"snap_url"`
	APIURL          string        `mapstructure:"api_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	VerifySignature bool          `mapstructure:"verify_signature"`
}

// Environment is the value handed to the client-side payment pop-up.
func (g GatewayConfig) Environment() string {
	if g.Sandbox {
		return "sandbox"
	}
	return "production"
}

type BookingConfig struct {
	MaxRentalDays int `mapstructure:"max_rental_days"`
}

type RedisConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Addr       string        `mapstructure:"addr"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	LockExpiry time.Duration `mapstructure:"lock_expiry"`
	LockTries  int           `mapstructure:"lock_tries"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type PollerConfig struct {
	Schedule   string        `mapstructure:"schedule"`
	StaleAfter time.Duration `mapstructure:"stale_after"`
	BatchSize  int           `mapstructure:"batch_size"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "Rental Mobil API v1.0")
	v.SetDefault("app.port", "3000")
	v.SetDefault("app.timezone", "Asia/Jakarta")

	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "rental_mobil")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("jwt.secret", "your-super-secret-key-change-in-production")
	v.SetDefault("jwt.ttl", 24*time.Hour)

	v.SetDefault("gateway.server_key", "")
	v.SetDefault("gateway.client_key", "")
	v.SetDefault("gateway.merchant_id", "")
	v.SetDefault("gateway.sandbox", true)
	v.SetDefault("gateway.snap_url", "")
	v.SetDefault("gateway.api_url", "")
	v.SetDefault("gateway.timeout", 10*time.Second)
	v.SetDefault("gateway.verify_signature", false)

	v.SetDefault("booking.max_rental_days", 30)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_expiry", 15*time.Second)
	v.SetDefault("redis.lock_tries", 32)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "rental.orders")

	v.SetDefault("poller.schedule", "0 */5 * * * *")
	v.SetDefault("poller.stale_after", 15*time.Minute)
	v.SetDefault("poller.batch_size", 50)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
}

// Load merges defaults, the optional YAML file named by CONFIG_FILE, a .env
// file and the process environment, in that order of precedence.
func Load() (*Config, error) {
	// .env is optional; real environment variables always win over it.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.applyDerived()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDerived() {
	if c.Gateway.SnapURL == "" {
		c.Gateway.SnapURL = snapProductionURL
		if c.Gateway.Sandbox {
			c.Gateway.SnapURL = snapSandboxURL
		}
	}
	if c.Gateway.APIURL == "" {
		c.Gateway.APIURL = apiProductionURL
		if c.Gateway.Sandbox {
			c.Gateway.APIURL = apiSandboxURL
		}
	}
	c.Gateway.APIURL = strings.TrimRight(c.Gateway.APIURL, "/")
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	if c.Booking.MaxRentalDays < 1 {
		return fmt.Errorf("booking.max_rental_days must be at least 1, got %d", c.Booking.MaxRentalDays)
	}
	if c.Gateway.Timeout <= 0 {
		return fmt.Errorf("gateway.timeout must be positive")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka is enabled")
	}
	return nil
}

// Location returns the configured timezone, falling back to WIB (UTC+7).
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.FixedZone("WIB", 7*60*60)
	}
	return loc
}

// DSN builds a Postgres connection string when DATABASE_URL is not set.
func (d DatabaseConfig) DSN(timezone string) string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, timezone,
	)
}

// Default returns the built-in defaults without reading files or the environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	cfg.applyDerived()
	return cfg
}
