package main

import (
	"testing"

	"airdrop_backend/internal/api"
	"airdrop_backend/internal/rating"
	"airdrop_backend/internal/social"
	"airdrop_backend/internal/store/dataapi"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	return Config{
		Store:    StoreConfig{Driver: driverPostgres},
		Social:   social.Config{BearerToken: "token"},
		Campaign: api.Campaign{Message: "gm", Hashtags: []string{"ROCK"}, TokenContract: "0xToken"},
		Chain:    ChainConfig{EVMRPCEndpoints: []string{"https://rpc.example"}},
		Rating:   rating.DefaultWeights,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Store.Driver = "mongo" },
			wantErr: "unknown store driver",
		},
		{
			name:    "data api without endpoint",
			mutate:  func(c *Config) { c.Store.Driver = driverDataAPI },
			wantErr: "store.dataApi.endpoint",
		},
		{
			name: "data api with endpoint",
			mutate: func(c *Config) {
				c.Store.Driver = driverDataAPI
				c.Store.DataAPI = dataapi.Config{Endpoint: "https://data.example/app/v1"}
			},
		},
		{
			name:    "missing bearer token",
			mutate:  func(c *Config) { c.Social.BearerToken = "" },
			wantErr: "social.bearerToken",
		},
		{
			name:    "missing campaign message",
			mutate:  func(c *Config) { c.Campaign.Message = "" },
			wantErr: "campaign.message",
		},
		{
			name:    "no rpc endpoints",
			mutate:  func(c *Config) { c.Chain.EVMRPCEndpoints = nil },
			wantErr: "chain.evmRpcEndpoints",
		},
		{
			name:    "negative weight",
			mutate:  func(c *Config) { c.Rating.Followers = -1 },
			wantErr: "followers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
