package api

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"airdrop_backend/internal/model"
	"airdrop_backend/internal/service"
	"airdrop_backend/internal/service/mocks"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testCampaign = Campaign{
	Message:       "I'm joining the ROCK airdrop",
	Hashtags:      []string{"ROCK", "airdrop"},
	TokenContract: "0xToken",
}

func newTestRouter(us service.UserServiceI, hub *service.MessageHub) *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	NewUserRoutes(router, us, testCampaign)
	if hub != nil {
		NewMessageRoutes(router, hub)
	}
	return router
}

func doRequest(router http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		raw, _ := json.Marshal(body)
		req = httptest.NewRequest(method, target, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetUserInfo(t *testing.T) {
	alice := &model.User{ID: "u1", SocialUsername: "alice", ContractAddress: "0xC1", FollowerCount: 42}

	t.Run("found or created", func(t *testing.T) {
		us := new(mocks.MockUserService)
		us.On("GetOrCreateUser", mock.Anything, "alice", "0xC1", mock.Anything).Return(alice, nil)

		w := doRequest(newTestRouter(us, nil), http.MethodGet, "/getUserInfo?twittUsername=alice&contractAddress=0xC1", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var got map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, "alice", got["twitt_username"])
		assert.Equal(t, float64(42), got["followers_count"])
		assert.Equal(t, false, got["twitterVerified"])
		us.AssertExpectations(t)
	})

	t.Run("identity lookup failed", func(t *testing.T) {
		us := new(mocks.MockUserService)
		us.On("GetOrCreateUser", mock.Anything, "ghost", "0xC1", mock.Anything).Return(nil, service.ErrUserNotFound)

		w := doRequest(newTestRouter(us, nil), http.MethodGet, "/getUserInfo?twittUsername=ghost&contractAddress=0xC1", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, msgServerError, w.Body.String())
	})

	t.Run("missing params", func(t *testing.T) {
		us := new(mocks.MockUserService)

		w := doRequest(newTestRouter(us, nil), http.MethodGet, "/getUserInfo?twittUsername=alice", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		us.AssertNotCalled(t, "GetOrCreateUser")
	})
}

func TestCheckTweetVerify(t *testing.T) {
	const target = "/checkTweetVerify?twittUsername=alice&contractAddress=0xC1&tweetUrl=https://x.com/alice/status/1"

	t.Run("verified", func(t *testing.T) {
		us := new(mocks.MockUserService)
		us.On("VerifyUser", mock.Anything, "https://x.com/alice/status/1", "alice", "0xC1",
			testCampaign.Message, testCampaign.Hashtags).
			Return(&model.User{SocialUsername: "alice", Verified: true}, nil)

		w := doRequest(newTestRouter(us, nil), http.MethodGet, target, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"twitterVerified":true`)
	})

	t.Run("mismatch", func(t *testing.T) {
		us := new(mocks.MockUserService)
		us.On("VerifyUser", mock.Anything, mock.Anything, "alice", "0xC1", mock.Anything, mock.Anything).
			Return(nil, service.ErrVerificationFailed)

		w := doRequest(newTestRouter(us, nil), http.MethodGet, target, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, msgTweetMismatch, w.Body.String())
	})

	t.Run("store failure", func(t *testing.T) {
		us := new(mocks.MockUserService)
		us.On("VerifyUser", mock.Anything, mock.Anything, "alice", "0xC1", mock.Anything, mock.Anything).
			Return(nil, &service.StoreWriteError{Op: "update", Username: "alice", Err: errors.New("timeout")})

		w := doRequest(newTestRouter(us, nil), http.MethodGet, target, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, msgNetworkError, w.Body.String())
	})
}

func TestGetTweetMessage(t *testing.T) {
	us := new(mocks.MockUserService)
	us.On("GetUser", mock.Anything, "alice", "0xC1").Return(&model.User{
		SocialUsername: "alice",
		PendingMessage: &model.Message{Text: "gm", Hashtags: []string{"ROCK"}},
	}, nil)

	w := doRequest(newTestRouter(us, nil), http.MethodGet, "/getTweetMessage?twittUsername=alice&contractAddress=0xC1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got userResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.NotNil(t, got.Message)
	assert.Equal(t, "gm", got.Message.Text)
}

func TestGetUserList(t *testing.T) {
	score := 12.5
	us := new(mocks.MockUserService)
	us.On("ListUsers", mock.Anything, "0xC1", "0xToken").Return([]*model.RankedUser{
		{
			No:      1,
			User:    &model.User{SocialUsername: "alice", Verified: true},
			Action:  model.Action{Required: true, Username: "alice"},
			Holding: &model.TokenHolding{EthBalance: 1.5, TokenValue: 100},
			Rating:  &score,
		},
		{
			No:     2,
			User:   &model.User{SocialUsername: "bob"},
			Action: model.Action{Username: "bob"},
		},
	}, nil)

	w := doRequest(newTestRouter(us, nil), http.MethodGet, "/getUserList?contractAddress=0xC1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 2)

	assert.Equal(t, float64(1), got[0]["no"])
	assert.Equal(t, 12.5, got[0]["rating"])
	assert.Equal(t, float64(100), got[0]["tokenValue"])
	assert.Equal(t, map[string]interface{}{"required": true, "username": "alice"}, got[0]["action"])

	assert.Equal(t, false, got[1]["verified"])
	assert.NotContains(t, got[1], "rating")
	assert.NotContains(t, got[1], "ethBalance")
}

func TestUpdateWalletAddress(t *testing.T) {
	body := map[string]string{
		"twittUsername":   "alice",
		"contractAddress": "0xC1",
		"ethAddress":      "0xeth",
		"solAddress":      "So1",
	}

	t.Run("linked", func(t *testing.T) {
		us := new(mocks.MockUserService)
		us.On("LinkWallet", mock.Anything, "alice", "0xC1", "0xeth", "So1").
			Return(&model.User{SocialUsername: "alice", EthAddress: "0xeth", SolAddress: "So1"}, nil)

		w := doRequest(newTestRouter(us, nil), http.MethodPost, "/updateWalletAddress", body)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"solAddress":"So1"`)
	})

	t.Run("chain error", func(t *testing.T) {
		us := new(mocks.MockUserService)
		us.On("LinkWallet", mock.Anything, "alice", "0xC1", "0xeth", "So1").Return(nil, errors.New("ethereum query failed"))

		w := doRequest(newTestRouter(us, nil), http.MethodPost, "/updateWalletAddress", body)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, msgNetworkError, w.Body.String())
	})
}

func TestUpdateUserInfo(t *testing.T) {
	us := new(mocks.MockUserService)
	us.On("RefreshUser", mock.Anything, "alice", "0xC1", "0xeth", "So1").Return(nil, service.ErrUserNotFound)

	w := doRequest(newTestRouter(us, nil), http.MethodPost, "/updateUserInfo", map[string]string{
		"twittUsername":   "alice",
		"contractAddress": "0xC1",
		"ethAddress":      "0xeth",
		"solAddress":      "So1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, msgServerError, w.Body.String())
}

func TestSendMessage(t *testing.T) {
	t.Run("campaign default", func(t *testing.T) {
		us := new(mocks.MockUserService)
		us.On("BroadcastMessage", mock.Anything, "0xC1", "alice", testCampaign.Message, testCampaign.Hashtags).
			Return(&model.User{SocialUsername: "alice", PendingMessage: &model.Message{Text: testCampaign.Message}}, nil)

		w := doRequest(newTestRouter(us, nil), http.MethodPost, "/sendMessage", map[string]string{
			"twittUsername":   "alice",
			"contractAddress": "0xC1",
		})
		require.Equal(t, http.StatusOK, w.Code)
		us.AssertExpectations(t)
	})

	t.Run("custom message", func(t *testing.T) {
		us := new(mocks.MockUserService)
		us.On("BroadcastMessage", mock.Anything, "0xC1", "alice", "post again", []string{"ROCK"}).
			Return(&model.User{SocialUsername: "alice"}, nil)

		w := doRequest(newTestRouter(us, nil), http.MethodPost, "/sendMessage", map[string]interface{}{
			"twittUsername":   "alice",
			"contractAddress": "0xC1",
			"message":         "post again",
			"hashtags":        []string{"ROCK"},
		})
		require.Equal(t, http.StatusOK, w.Code)
		us.AssertExpectations(t)
	})
}

func TestUpdateTokenBalance(t *testing.T) {
	us := new(mocks.MockUserService)
	us.On("ApplyTokenDelta", mock.Anything, "0xC1", []string{"alice", "bob", "carol"}, 5.0).Return([]model.DeltaResult{
		{Username: "alice", User: &model.User{SocialUsername: "alice", TokenBalance: 5}},
		{Username: "bob", Err: errors.New("store unavailable")},
		{Username: "carol", User: &model.User{SocialUsername: "carol", TokenBalance: 15}},
	})

	w := doRequest(newTestRouter(us, nil), http.MethodPost, "/updateTokenBalance", map[string]interface{}{
		"contractAddress": "0xC1",
		"users":           []string{"alice", "bob", "carol"},
		"delta":           5,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var got []deltaResultResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 3)

	assert.True(t, got[0].Updated)
	assert.Equal(t, 5.0, got[0].User.TokenBalance)
	assert.False(t, got[1].Updated)
	assert.Equal(t, "store unavailable", got[1].Error)
	assert.Nil(t, got[1].User)
	assert.True(t, got[2].Updated)
}

func TestUpdateTokenBalance_DeltaOutOfRange(t *testing.T) {
	us := new(mocks.MockUserService)

	w := doRequest(newTestRouter(us, nil), http.MethodPost, "/updateTokenBalance", map[string]interface{}{
		"contractAddress": "0xC1",
		"users":           []string{"alice"},
		"delta":           1e308,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, msgServerError, w.Body.String())
	us.AssertNotCalled(t, "ApplyTokenDelta", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMessageFeed(t *testing.T) {
	hub := service.NewMessageHub()
	srv := httptest.NewServer(newTestRouter(new(mocks.MockUserService), hub))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?twittUsername=alice&contractAddress=0xC1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	filter := model.UserFilter{ContractAddress: "0xC1", SocialUsername: "alice"}
	msg := model.Message{Text: "gm", Hashtags: []string{"ROCK"}, CreatedAt: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)}

	require.Eventually(t, func() bool {
		return hub.Publish(filter, msg) > 0
	}, 2*time.Second, 20*time.Millisecond)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got messageResponse
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "gm", got.Text)
	assert.Equal(t, []string{"ROCK"}, got.Hashtags)
}
