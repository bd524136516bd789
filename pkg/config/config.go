package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Etcd      EtcdConfig      `mapstructure:"etcd"`
	Redis     RedisConfig     `mapstructure:"redis"`
	MongoDB   MongoDBConfig   `mapstructure:"mongodb"`
	Log       LogConfig       `mapstructure:"log"`
	Orders    OrdersConfig    `mapstructure:"orders"`
	Inventory InventoryConfig `mapstructure:"inventory"`
	Health    HealthConfig    `mapstructure:"health"`
}

type ServerConfig struct {
	Name            string        `mapstructure:"name"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type EtcdConfig struct {
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Prefix      string        `mapstructure:"prefix"`
	LeaseTTL    int64         `mapstructure:"lease_ttl"`
}

// Enabled reports whether service registration should be attempted.
func (c *EtcdConfig) Enabled() bool {
	return len(c.Endpoints) > 0
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	PoolSize int           `mapstructure:"pool_size"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

func (c *RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// MongoDBConfig selects the document store. Driver "memory" keeps everything
// in process and ignores the remaining fields.
type MongoDBConfig struct {
	Driver             string        `mapstructure:"driver"`
	URI                string        `mapstructure:"uri"`
	Database           string        `mapstructure:"database"`
	ProductsCollection string        `mapstructure:"products_collection"`
	OrdersCollection   string        `mapstructure:"orders_collection"`
	AuditCollection    string        `mapstructure:"audit_collection"`
	ConnectTimeout     time.Duration `mapstructure:"connect_timeout"`
}

type LogConfig struct {
	Level       string   `mapstructure:"level"`
	Encoding    string   `mapstructure:"encoding"`
	OutputPaths []string `mapstructure:"output_paths"`
}

type OrdersConfig struct {
	PageSize int    `mapstructure:"page_size"`
	Timezone string `mapstructure:"timezone"`
}

// Location resolves Timezone, falling back to UTC when it is empty.
func (c *OrdersConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

type InventoryConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type HealthConfig struct {
	GRPCPort int `mapstructure:"grpc_port"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "storefront")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("etcd.dial_timeout", 5*time.Second)
	v.SetDefault("etcd.prefix", "/services/")
	v.SetDefault("etcd.lease_ttl", 30)

	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.cache_ttl", 30*time.Second)

	v.SetDefault("mongodb.driver", "mongo")
	v.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb.database", "storefront")
	v.SetDefault("mongodb.products_collection", "products")
	v.SetDefault("mongodb.orders_collection", "orders")
	v.SetDefault("mongodb.audit_collection", "audit_logs")
	v.SetDefault("mongodb.connect_timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("log.output_paths", []string{"stdout"})

	v.SetDefault("orders.page_size", 10)
	v.SetDefault("orders.timezone", "UTC")

	v.SetDefault("inventory.timeout", 5*time.Second)
}

// Load reads configuration from configPath, if it is non-empty, on top of the
// built-in defaults. Any key can be overridden from the environment with the
// STOREFRONT_ prefix, e.g. STOREFRONT_MONGODB_URI.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("storefront")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Orders.PageSize <= 0 {
		return nil, fmt.Errorf("orders.page_size must be positive, got %d", config.Orders.PageSize)
	}
	if _, err := config.Orders.Location(); err != nil {
		return nil, err
	}

	return &config, nil
}
