// Package geo resolves a client IP to a coarse location for record provenance.
package geo

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"airdrop_backend/internal/model"

	"github.com/goccy/go-json"
)

type Config struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"baseUrl"`
}

type IPAPI struct {
	baseURL    string
	httpClient *http.Client
}

func NewIPAPI(baseURL string) *IPAPI {
	if baseURL == "" {
		baseURL = "http://ip-api.com"
	}
	return &IPAPI{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 3 * time.Second},
	}
}

// Locate looks up ip. An empty ip resolves the caller's own address.
func (g *IPAPI) Locate(ctx context.Context, ip string) (*model.Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/json/"+ip, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Country string `json:"country"`
		Query   string `json:"query"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("error parsing response: %w", err)
	}
	if out.Status != "success" {
		return nil, fmt.Errorf("ip-api lookup failed: %s", out.Message)
	}

	return &model.Location{Country: out.Country, IP: out.Query}, nil
}

// Noop is used when geolocation is disabled.
type Noop struct{}

func (Noop) Locate(_ context.Context, ip string) (*model.Location, error) {
	return &model.Location{IP: ip}, nil
}
