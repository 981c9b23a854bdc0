package main

import (
	"fmt"
	"strings"
	"time"

	"airdrop_backend/internal/api"
	"airdrop_backend/internal/geo"
	"airdrop_backend/internal/rating"
	"airdrop_backend/internal/repository"
	"airdrop_backend/internal/social"
	"airdrop_backend/internal/store/dataapi"

	"github.com/spf13/viper"
)

const (
	configPath   = "./"
	configName   = "config"
	configFormat = "yaml"
)

const (
	driverPostgres = "postgres"
	driverDataAPI  = "dataapi"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Social   social.Config  `mapstructure:"social"`
	Campaign api.Campaign   `mapstructure:"campaign"`
	Chain    ChainConfig    `mapstructure:"chain"`
	Rating   rating.Weights `mapstructure:"rating"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Geo      geo.Config     `mapstructure:"geo"`

	LogLevel string `mapstructure:"logLevel"`
}

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           string   `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

type StoreConfig struct {
	Driver   string            `mapstructure:"driver"`
	Database repository.Config `mapstructure:"database"`
	DataAPI  dataapi.Config    `mapstructure:"dataApi"`
}

type ChainConfig struct {
	SolanaRPC        string        `mapstructure:"solanaRpc"`
	EtherscanBaseURL string        `mapstructure:"etherscanBaseUrl"`
	EtherscanAPIKey  string        `mapstructure:"etherscanApiKey"`
	EtherscanChainID string        `mapstructure:"etherscanChainId"`
	EVMRPCEndpoints  []string      `mapstructure:"evmRpcEndpoints"`
	TokenDecimals    int32         `mapstructure:"tokenDecimals"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

type RedisConfig struct {
	Addr       string        `mapstructure:"addr"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	ProfileTTL time.Duration `mapstructure:"profileTtl"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName(configName)
	viper.AddConfigPath(configPath)
	viper.SetConfigType(configFormat)

	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "3000")
	viper.SetDefault("store.driver", driverPostgres)
	viper.SetDefault("social.timeout", 10*time.Second)
	viper.SetDefault("chain.tokenDecimals", 18)
	viper.SetDefault("chain.timeout", 15*time.Second)
	viper.SetDefault("chain.etherscanChainId", "1")
	viper.SetDefault("redis.profileTtl", 10*time.Minute)
	viper.SetDefault("logLevel", "info")

	w := rating.DefaultWeights
	viper.SetDefault("rating.solBalance", w.SolBalance)
	viper.SetDefault("rating.ethBalance", w.EthBalance)
	viper.SetDefault("rating.tokenBalance", w.TokenBalance)
	viper.SetDefault("rating.tokenValue", w.TokenValue)
	viper.SetDefault("rating.solFees", w.SolFees)
	viper.SetDefault("rating.ethFees", w.EthFees)
	viper.SetDefault("rating.followers", w.Followers)
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case driverPostgres:
	case driverDataAPI:
		if c.Store.DataAPI.Endpoint == "" {
			return fmt.Errorf("store.dataApi.endpoint is required")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	if c.Social.BearerToken == "" {
		return fmt.Errorf("social.bearerToken is required")
	}
	if c.Campaign.Message == "" {
		return fmt.Errorf("campaign.message is required")
	}
	if c.Campaign.TokenContract == "" {
		return fmt.Errorf("campaign.tokenContract is required")
	}
	if len(c.Chain.EVMRPCEndpoints) == 0 {
		return fmt.Errorf("chain.evmRpcEndpoints must list at least one endpoint")
	}

	return c.Rating.Validate()
}
