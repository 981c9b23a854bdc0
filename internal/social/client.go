package social

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"airdrop_backend/internal/model"

	"github.com/goccy/go-json"
)

var ErrNotFound = errors.New("social account or post not found")

type Config struct {
	BaseURL     string        `mapstructure:"baseUrl"`
	BearerToken string        `mapstructure:"bearerToken"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Client talks to the X (Twitter) API v2 with app-only bearer auth.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = "https://api.twitter.com"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(base, "/"),
		token:      cfg.BearerToken,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type apiError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Type   string `json:"type"`
}

type userResponse struct {
	Data *struct {
		ID              string `json:"id"`
		Name            string `json:"name"`
		Username        string `json:"username"`
		ProfileImageURL string `json:"profile_image_url"`
		PublicMetrics   struct {
			FollowersCount int64 `json:"followers_count"`
		} `json:"public_metrics"`
	} `json:"data"`
	Errors []apiError `json:"errors"`
}

type tweetResponse struct {
	Data *struct {
		ID       string `json:"id"`
		Text     string `json:"text"`
		Entities struct {
			Hashtags []struct {
				Start int    `json:"start"`
				End   int    `json:"end"`
				Tag   string `json:"tag"`
			} `json:"hashtags"`
		} `json:"entities"`
	} `json:"data"`
	Errors []apiError `json:"errors"`
}

func (c *Client) GetUserByUsername(ctx context.Context, username string) (*model.SocialProfile, error) {
	params := url.Values{}
	params.Set("user.fields", "name,profile_image_url,public_metrics")

	var resp userResponse
	if err := c.get(ctx, "/2/users/by/username/"+url.PathEscape(username), params, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("user %s: %w", username, apiErrors(resp.Errors))
	}

	return &model.SocialProfile{
		Username:      resp.Data.Username,
		DisplayName:   resp.Data.Name,
		AvatarURL:     resp.Data.ProfileImageURL,
		FollowerCount: resp.Data.PublicMetrics.FollowersCount,
	}, nil
}

func (c *Client) GetPostByID(ctx context.Context, id string) (*model.Post, error) {
	params := url.Values{}
	params.Set("tweet.fields", "entities")

	var resp tweetResponse
	if err := c.get(ctx, "/2/tweets/"+url.PathEscape(id), params, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("post %s: %w", id, apiErrors(resp.Errors))
	}

	tags := make([]string, len(resp.Data.Entities.Hashtags))
	for i, h := range resp.Data.Entities.Hashtags {
		tags[i] = h.Tag
	}

	return &model.Post{
		ID:       resp.Data.ID,
		Text:     resp.Data.Text,
		Hashtags: tags,
	}, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("User-Agent", "airdrop-backend")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("social api http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("error parsing response: %w", err)
	}
	return nil
}

// apiErrors turns an errors payload of a 200 response into ErrNotFound.
func apiErrors(errs []apiError) error {
	if len(errs) == 0 {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %s", ErrNotFound, errs[0].Detail)
}
