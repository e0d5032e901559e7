package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Service         ServiceConfig        `mapstructure:"service"`
	Databases       DatabasesConfig      `mapstructure:"databases"`
	ExternalClients ExternalClientConfig `mapstructure:"externalClients"`
	Engine          EngineConfig         `mapstructure:"engine"`
}

type ServiceConfig struct {
	Port     string `mapstructure:"port"`
	LogLevel string `mapstructure:"logLevel"`
}

type DatabasesConfig struct {
	SQL   SQLConfig   `mapstructure:"sql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// SQLConfig selects the ledger store backend. Driver is one of "postgres",
// "sqlite" or "memory". Postgres uses ConnectionString (or the discrete
// fields), sqlite uses Path.
type SQLConfig struct {
	Driver           string `mapstructure:"driver"`
	Host             string `mapstructure:"host"`
	Port             string `mapstructure:"port"`
	Username         string `mapstructure:"username"`
	Password         string `mapstructure:"password"`
	Database         string `mapstructure:"database"`
	ConnectionString string `mapstructure:"connection_string"`
	Path             string `mapstructure:"path"`
}

// DSN returns the postgres connection string, assembled from the discrete
// fields when no explicit one is configured.
func (c SQLConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.Host, c.Username, c.Password, c.Database, c.Port)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database int    `mapstructure:"database"`
}

// Enabled reports whether a redis endpoint is configured at all; every
// redis-backed feature has an in-process fallback when it is not.
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

type ExternalClientConfig struct {
	MarketData MarketDataConfig `mapstructure:"marketdata"`
	Forex      ForexConfig      `mapstructure:"forex"`
	News       NewsConfig       `mapstructure:"news"`
}

type MarketDataConfig struct {
	QuoteBaseURL    string `mapstructure:"quoteBaseUrl"`
	ExchangeBaseURL string `mapstructure:"exchangeBaseUrl"`
	CacheTTLSeconds int    `mapstructure:"cacheTtlSeconds"`
}

type ForexConfig struct {
	BaseURL         string `mapstructure:"baseUrl"`
	CacheTTLSeconds int    `mapstructure:"cacheTtlSeconds"`
}

type NewsConfig struct {
	BaseURL string `mapstructure:"baseUrl"`
	APIKey  string `mapstructure:"apiKey"`
}

// EngineConfig carries accounting defaults that used to be hardcoded: the
// currency and amount every new account is seeded with.
type EngineConfig struct {
	DefaultCurrency string `mapstructure:"defaultCurrency"`
	SeedBalance     string `mapstructure:"seedBalance"`
}

func LoadConfig(path string) (*Config, error) {
	var cfg Config

	viper.AddConfigPath(path)
	viper.SetConfigName("appsettings")
	viper.SetConfigType("yaml")

	viper.SetDefault("service.port", "8000")
	viper.SetDefault("service.logLevel", "info")
	viper.SetDefault("databases.sql.driver", "sqlite")
	viper.SetDefault("databases.sql.path", "portfolio.db")
	viper.SetDefault("engine.defaultCurrency", "USD")
	viper.SetDefault("engine.seedBalance", "100000")
	viper.SetDefault("externalClients.marketdata.cacheTtlSeconds", 15)
	viper.SetDefault("externalClients.forex.cacheTtlSeconds", 300)

	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}
	err = viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
