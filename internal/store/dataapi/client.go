package dataapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"airdrop_backend/internal/model"

	"github.com/goccy/go-json"
)

type Config struct {
	Endpoint   string        `mapstructure:"endpoint"`
	APIKey     string        `mapstructure:"apiKey"`
	DataSource string        `mapstructure:"dataSource"`
	Database   string        `mapstructure:"database"`
	Collection string        `mapstructure:"collection"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// Store keeps user records in a document collection reached through a
// Data API style HTTP gateway.
type Store struct {
	cfg        Config
	httpClient *http.Client
}

func New(cfg Config) *Store {
	if cfg.DataSource == "" {
		cfg.DataSource = "Cluster0"
	}
	if cfg.Collection == "" {
		cfg.Collection = "users"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")

	return &Store{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type request struct {
	DataSource string      `json:"dataSource"`
	Database   string      `json:"database"`
	Collection string      `json:"collection"`
	Filter     interface{} `json:"filter,omitempty"`
	Document   interface{} `json:"document,omitempty"`
	Update     interface{} `json:"update,omitempty"`
	Sort       interface{} `json:"sort,omitempty"`
}

type filterDoc struct {
	SocialUsername  string `json:"twitt_username,omitempty"`
	ContractAddress string `json:"contractAddress"`
}

func toFilter(f model.UserFilter) filterDoc {
	return filterDoc{SocialUsername: f.SocialUsername, ContractAddress: f.ContractAddress}
}

func (s *Store) FindOne(ctx context.Context, filter model.UserFilter) (*model.User, error) {
	var resp struct {
		Document *document `json:"document"`
	}
	if err := s.action(ctx, "findOne", s.newRequest(toFilter(filter)), &resp); err != nil {
		return nil, err
	}
	if resp.Document == nil {
		return nil, nil
	}
	return resp.Document.toModel(), nil
}

func (s *Store) InsertOne(ctx context.Context, user *model.User) (string, error) {
	req := s.newRequest(nil)
	req.Document = fromModel(user)

	var resp struct {
		InsertedID objectID `json:"insertedId"`
	}
	if err := s.action(ctx, "insertOne", req, &resp); err != nil {
		return "", err
	}
	return string(resp.InsertedID), nil
}

func (s *Store) UpdateOne(ctx context.Context, filter model.UserFilter, update model.UserUpdate) (int64, error) {
	if update.IsEmpty() {
		return 0, fmt.Errorf("empty update for %s", filter.SocialUsername)
	}

	req := s.newRequest(toFilter(filter))
	req.Update = updateDoc(update)

	var resp struct {
		MatchedCount  int64 `json:"matchedCount"`
		ModifiedCount int64 `json:"modifiedCount"`
	}
	if err := s.action(ctx, "updateOne", req, &resp); err != nil {
		return 0, err
	}
	return resp.MatchedCount, nil
}

func (s *Store) Find(ctx context.Context, filter model.UserFilter) ([]*model.User, error) {
	req := s.newRequest(toFilter(filter))
	req.Sort = map[string]int{"_id": 1}

	var resp struct {
		Documents []document `json:"documents"`
	}
	if err := s.action(ctx, "find", req, &resp); err != nil {
		return nil, err
	}

	out := make([]*model.User, len(resp.Documents))
	for i := range resp.Documents {
		out[i] = resp.Documents[i].toModel()
	}
	return out, nil
}

func (s *Store) newRequest(filter interface{}) *request {
	req := &request{
		DataSource: s.cfg.DataSource,
		Database:   s.cfg.Database,
		Collection: s.cfg.Collection,
	}
	if filter != nil {
		req.Filter = filter
	}
	return req
}

func (s *Store) action(ctx context.Context, name string, payload *request, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error encoding %s request: %w", name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint+"/action/"+name, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apiKey", s.cfg.APIKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending %s request: %w", name, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("data api %s: http %d: %s", name, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("error parsing %s response: %w", name, err)
	}
	return nil
}

type messageDoc struct {
	Text      string    `json:"text"`
	Hashtags  []string  `json:"hashtags"`
	CreatedAt time.Time `json:"createdAt"`
}

// document is the stored shape. Older records keep numeric fields as "",
// the verified flag as "yes"/"no" and a failed geo lookup as false.
type document struct {
	ID              objectID    `json:"_id,omitempty"`
	SocialUsername  string      `json:"twitt_username"`
	ContractAddress string      `json:"contractAddress"`
	DisplayName     string      `json:"username"`
	AvatarURL       string      `json:"avatar"`
	Verified        yesNo       `json:"twitterVerified"`
	EthAddress      string      `json:"ethAddress"`
	SolAddress      string      `json:"solAddress"`
	EthGasSpent     number      `json:"ethGas"`
	SolGasSpent     number      `json:"solGas"`
	EthBalance      number      `json:"ethBalance"`
	SolBalance      number      `json:"solBalance"`
	TokenBalance    number      `json:"tokenBalance"`
	TokenValue      number      `json:"tokenValue"`
	FollowerCount   number      `json:"followers_count"`
	Rating          number      `json:"userRating"`
	Message         *messageDoc `json:"message,omitempty"`
	Location        looseString `json:"location"`
	SourceIP        looseString `json:"IP"`
	CreatedAt       string      `json:"createdAt"`
}

func fromModel(u *model.User) *document {
	doc := &document{
		SocialUsername:  u.SocialUsername,
		ContractAddress: u.ContractAddress,
		DisplayName:     u.DisplayName,
		AvatarURL:       u.AvatarURL,
		Verified:        yesNo(u.Verified),
		EthAddress:      u.EthAddress,
		SolAddress:      u.SolAddress,
		EthGasSpent:     number(u.EthGasSpent),
		SolGasSpent:     number(u.SolGasSpent),
		EthBalance:      number(u.EthBalance),
		SolBalance:      number(u.SolBalance),
		TokenBalance:    number(u.TokenBalance),
		TokenValue:      number(u.TokenValue),
		FollowerCount:   number(u.FollowerCount),
		Rating:          number(u.Rating),
		Location:        looseString(u.Location),
		SourceIP:        looseString(u.SourceIP),
		CreatedAt:       u.CreatedAt.UTC().Format(time.RFC3339),
	}
	if u.PendingMessage != nil {
		doc.Message = toMessageDoc(u.PendingMessage)
	}
	return doc
}

func (d *document) toModel() *model.User {
	u := &model.User{
		ID:              string(d.ID),
		SocialUsername:  d.SocialUsername,
		ContractAddress: d.ContractAddress,
		DisplayName:     d.DisplayName,
		AvatarURL:       d.AvatarURL,
		Verified:        bool(d.Verified),
		EthAddress:      d.EthAddress,
		SolAddress:      d.SolAddress,
		EthGasSpent:     float64(d.EthGasSpent),
		SolGasSpent:     float64(d.SolGasSpent),
		EthBalance:      float64(d.EthBalance),
		SolBalance:      float64(d.SolBalance),
		TokenBalance:    float64(d.TokenBalance),
		TokenValue:      float64(d.TokenValue),
		FollowerCount:   int64(d.FollowerCount),
		Rating:          float64(d.Rating),
		Location:        string(d.Location),
		SourceIP:        string(d.SourceIP),
	}
	if t, err := time.Parse(time.RFC3339, d.CreatedAt); err == nil {
		u.CreatedAt = t
	}
	// an empty {} message means none was ever sent
	if d.Message != nil && d.Message.Text != "" {
		u.PendingMessage = &model.Message{
			Text:      d.Message.Text,
			Hashtags:  d.Message.Hashtags,
			CreatedAt: d.Message.CreatedAt,
		}
	}
	return u
}

func toMessageDoc(m *model.Message) *messageDoc {
	tags := m.Hashtags
	if tags == nil {
		tags = []string{}
	}
	return &messageDoc{Text: m.Text, Hashtags: tags, CreatedAt: m.CreatedAt}
}

// updateDoc builds the $set document of u, plus $inc for a token delta.
func updateDoc(u model.UserUpdate) map[string]interface{} {
	set := make(map[string]interface{})
	doc := make(map[string]interface{})

	if u.DisplayName != nil {
		set["username"] = *u.DisplayName
	}
	if u.AvatarURL != nil {
		set["avatar"] = *u.AvatarURL
	}
	if u.FollowerCount != nil {
		set["followers_count"] = *u.FollowerCount
	}
	if u.Verified != nil {
		set["twitterVerified"] = yesNo(*u.Verified)
	}
	if u.EthAddress != nil {
		set["ethAddress"] = *u.EthAddress
	}
	if u.SolAddress != nil {
		set["solAddress"] = *u.SolAddress
	}
	if u.EthGasSpent != nil {
		set["ethGas"] = *u.EthGasSpent
	}
	if u.SolGasSpent != nil {
		set["solGas"] = *u.SolGasSpent
	}
	if u.EthBalance != nil {
		set["ethBalance"] = *u.EthBalance
	}
	if u.SolBalance != nil {
		set["solBalance"] = *u.SolBalance
	}
	if u.TokenBalance != nil {
		set["tokenBalance"] = *u.TokenBalance
	}
	if u.TokenValue != nil {
		set["tokenValue"] = *u.TokenValue
	}
	if u.Rating != nil {
		set["userRating"] = *u.Rating
	}
	if u.PendingMessage != nil {
		set["message"] = toMessageDoc(u.PendingMessage)
	}
	if u.TokenDelta != nil {
		delete(set, "tokenBalance")
		delete(set, "tokenValue")
		doc["$inc"] = map[string]float64{
			"tokenBalance": *u.TokenDelta,
			"tokenValue":   *u.TokenDelta,
		}
	}

	if len(set) > 0 {
		doc["$set"] = set
	}
	return doc
}

// objectID accepts both a plain string id and the extended {"$oid": "..."} form.
type objectID string

func (o *objectID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*o = objectID(s)
		return nil
	}
	var ext struct {
		OID string `json:"$oid"`
	}
	if err := json.Unmarshal(data, &ext); err != nil {
		return fmt.Errorf("unsupported _id: %s", data)
	}
	*o = objectID(ext.OID)
	return nil
}

type number float64

func (n *number) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" || raw == "false" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid number %s: %w", data, err)
	}
	*n = number(v)
	return nil
}

// looseString reads a failed lookup stored as false as the empty string.
type looseString string

func (l *looseString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*l = ""
		return nil
	}
	*l = looseString(s)
	return nil
}

type yesNo bool

func (y yesNo) MarshalJSON() ([]byte, error) {
	if y {
		return []byte(`"yes"`), nil
	}
	return []byte(`"no"`), nil
}

func (y *yesNo) UnmarshalJSON(data []byte) error {
	switch strings.Trim(string(data), `"`) {
	case "yes", "true":
		*y = true
	default:
		*y = false
	}
	return nil
}
