package chain

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// EtherscanHistory reads an account's transaction list from an
// Etherscan-compatible explorer API and reports gas used per transaction.
type EtherscanHistory struct {
	baseURL    string
	apiKey     string
	chainID    string
	httpClient *http.Client
}

func NewEtherscanHistory(baseURL, apiKey, chainID string) *EtherscanHistory {
	if baseURL == "" {
		baseURL = "https://api.etherscan.io/v2/api"
	}
	if chainID == "" {
		chainID = "1"
	}
	return &EtherscanHistory{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		chainID:    chainID,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type etherscanResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type etherscanTx struct {
	Hash    string `json:"hash"`
	GasUsed string `json:"gasUsed"`
}

func (e *EtherscanHistory) FeeHistory(ctx context.Context, address string) ([]decimal.Decimal, error) {
	params := url.Values{}
	params.Set("chainid", e.chainID)
	params.Set("module", "account")
	params.Set("action", "txlist")
	params.Set("address", address)
	params.Set("startblock", "0")
	params.Set("endblock", "99999999")
	params.Set("sort", "asc")
	if e.apiKey != "" {
		params.Set("apikey", e.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("etherscan http %d", resp.StatusCode)
	}

	var body etherscanResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("error parsing response: %w", err)
	}

	var txs []etherscanTx
	if err := json.Unmarshal(body.Result, &txs); err != nil {
		// On failure the API puts the reason in result as a string.
		var reason string
		_ = json.Unmarshal(body.Result, &reason)
		return nil, fmt.Errorf("etherscan error: %s %s", body.Message, reason)
	}

	fees := make([]decimal.Decimal, 0, len(txs))
	for _, tx := range txs {
		gas, err := decimal.NewFromString(tx.GasUsed)
		if err != nil {
			return nil, fmt.Errorf("invalid gasUsed %q in tx %s: %w", tx.GasUsed, tx.Hash, err)
		}
		fees = append(fees, gas)
	}

	return fees, nil
}
