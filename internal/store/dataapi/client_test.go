package dataapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"airdrop_backend/internal/model"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	path   string
	apiKey string
	body   map[string]interface{}
}

func newTestStore(t *testing.T, reply string) (*Store, *captured) {
	t.Helper()

	c := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.path = r.URL.Path
		c.apiKey = r.Header.Get("apiKey")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &c.body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)

	return New(Config{Endpoint: srv.URL + "/", APIKey: "secret", Database: "airdrop"}), c
}

func TestStore_FindOne(t *testing.T) {
	store, c := newTestStore(t, `{"document": {
		"_id": {"$oid": "652f0c"},
		"twitt_username": "alice",
		"contractAddress": "0xC1",
		"username": "Alice",
		"twitterVerified": "yes",
		"ethGas": "",
		"solBalance": 2.5,
		"followers_count": 42,
		"userRating": "17.5",
		"location": false,
		"IP": false,
		"message": {},
		"createdAt": "2026-09-01T10:00:00Z"
	}}`)

	user, err := store.FindOne(context.Background(), model.UserFilter{ContractAddress: "0xC1", SocialUsername: "alice"})
	require.NoError(t, err)
	require.NotNil(t, user)

	assert.Equal(t, "/action/findOne", c.path)
	assert.Equal(t, "secret", c.apiKey)
	assert.Equal(t, "Cluster0", c.body["dataSource"])
	assert.Equal(t, "users", c.body["collection"])
	assert.Equal(t, map[string]interface{}{"twitt_username": "alice", "contractAddress": "0xC1"}, c.body["filter"])

	assert.Equal(t, "652f0c", user.ID)
	assert.True(t, user.Verified)
	assert.Zero(t, user.EthGasSpent)
	assert.Equal(t, 2.5, user.SolBalance)
	assert.Equal(t, int64(42), user.FollowerCount)
	assert.Equal(t, 17.5, user.Rating)
	assert.Empty(t, user.Location)
	assert.Nil(t, user.PendingMessage)
	assert.Equal(t, time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC), user.CreatedAt)
}

func TestStore_FindOne_Miss(t *testing.T) {
	store, _ := newTestStore(t, `{"document": null}`)

	user, err := store.FindOne(context.Background(), model.UserFilter{ContractAddress: "0xC1", SocialUsername: "ghost"})
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestStore_InsertOne(t *testing.T) {
	store, c := newTestStore(t, `{"insertedId": "652f0d"}`)

	id, err := store.InsertOne(context.Background(), &model.User{
		SocialUsername:  "bob",
		ContractAddress: "0xC1",
		FollowerCount:   7,
	})
	require.NoError(t, err)
	assert.Equal(t, "652f0d", id)
	assert.Equal(t, "/action/insertOne", c.path)

	doc, ok := c.body["document"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "bob", doc["twitt_username"])
	assert.Equal(t, "no", doc["twitterVerified"])
	assert.Equal(t, float64(7), doc["followers_count"])
	assert.NotContains(t, doc, "_id")
	assert.Nil(t, c.body["filter"])
}

func TestStore_UpdateOne(t *testing.T) {
	store, c := newTestStore(t, `{"matchedCount": 1, "modifiedCount": 1}`)

	verified := true
	rating := 3.25
	matched, err := store.UpdateOne(context.Background(),
		model.UserFilter{ContractAddress: "0xC1", SocialUsername: "alice"},
		model.UserUpdate{
			Verified:       &verified,
			Rating:         &rating,
			PendingMessage: &model.Message{Text: "gm", Hashtags: []string{"ROCK"}},
		})
	require.NoError(t, err)
	assert.Equal(t, int64(1), matched)
	assert.Equal(t, "/action/updateOne", c.path)

	update := c.body["update"].(map[string]interface{})
	set := update["$set"].(map[string]interface{})
	assert.Equal(t, "yes", set["twitterVerified"])
	assert.Equal(t, 3.25, set["userRating"])
	assert.Equal(t, "gm", set["message"].(map[string]interface{})["text"])
	assert.Len(t, set, 3)
	assert.NotContains(t, update, "$inc")
}

func TestStore_UpdateOne_TokenDelta(t *testing.T) {
	store, c := newTestStore(t, `{"matchedCount": 1, "modifiedCount": 1}`)

	delta := -2.5
	matched, err := store.UpdateOne(context.Background(),
		model.UserFilter{ContractAddress: "0xC1", SocialUsername: "alice"},
		model.UserUpdate{TokenDelta: &delta})
	require.NoError(t, err)
	assert.Equal(t, int64(1), matched)

	update := c.body["update"].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"tokenBalance": -2.5, "tokenValue": -2.5}, update["$inc"])
	assert.NotContains(t, update, "$set")
}

func TestStore_UpdateOne_Empty(t *testing.T) {
	store, c := newTestStore(t, `{"matchedCount": 1, "modifiedCount": 1}`)

	_, err := store.UpdateOne(context.Background(),
		model.UserFilter{ContractAddress: "0xC1", SocialUsername: "alice"},
		model.UserUpdate{})
	require.Error(t, err)
	assert.Empty(t, c.path)
}

func TestStore_UpdateOne_NoMatch(t *testing.T) {
	store, _ := newTestStore(t, `{"matchedCount": 0, "modifiedCount": 0}`)

	rating := 1.0
	matched, err := store.UpdateOne(context.Background(),
		model.UserFilter{ContractAddress: "0xC1", SocialUsername: "ghost"},
		model.UserUpdate{Rating: &rating})
	require.NoError(t, err)
	assert.Zero(t, matched)
}

func TestStore_Find(t *testing.T) {
	store, c := newTestStore(t, `{"documents": [
		{"_id": "a1", "twitt_username": "alice", "contractAddress": "0xC1", "twitterVerified": "yes"},
		{"_id": "b2", "twitt_username": "bob", "contractAddress": "0xC1", "twitterVerified": "no",
		 "message": {"text": "gm", "hashtags": ["ROCK"], "createdAt": "2026-09-03T00:00:00Z"}}
	]}`)

	users, err := store.Find(context.Background(), model.UserFilter{ContractAddress: "0xC1"})
	require.NoError(t, err)
	require.Len(t, users, 2)

	assert.Equal(t, "/action/find", c.path)
	assert.Equal(t, map[string]interface{}{"contractAddress": "0xC1"}, c.body["filter"])
	assert.Equal(t, "alice", users[0].SocialUsername)
	assert.True(t, users[0].Verified)
	require.NotNil(t, users[1].PendingMessage)
	assert.Equal(t, []string{"ROCK"}, users[1].PendingMessage.Hashtags)
}

func TestStore_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	store := New(Config{Endpoint: srv.URL})
	_, err := store.Find(context.Background(), model.UserFilter{ContractAddress: "0xC1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 401")
}
