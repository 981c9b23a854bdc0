package api

import (
	"errors"
	"math"
	"net/http"
	"time"

	"airdrop_backend/internal/model"
	"airdrop_backend/internal/service"
	"airdrop_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	msgServerError   = "Server Error"
	msgTweetMismatch = "Tweet doesn't match. Check msg and hashtag carefully."
	msgNetworkError  = "Oops! network connection error"
)

// Campaign is the airdrop campaign a deployment serves.
type Campaign struct {
	Message       string   `mapstructure:"message"`
	Hashtags      []string `mapstructure:"hashtags"`
	TokenContract string   `mapstructure:"tokenContract"`
}

type userRoutes struct {
	us       service.UserServiceI
	campaign Campaign
}

func NewUserRoutes(handler gin.IRoutes, us service.UserServiceI, campaign Campaign) {
	r := &userRoutes{us: us, campaign: campaign}

	handler.GET("/getUserInfo", r.GetUserInfo)
	handler.GET("/checkTweetVerify", r.CheckTweetVerify)
	handler.GET("/getTweetMessage", r.GetTweetMessage)
	handler.GET("/getUserList", r.GetUserList)
	handler.POST("/updateWalletAddress", r.UpdateWalletAddress)
	handler.POST("/updateUserInfo", r.UpdateUserInfo)
	handler.POST("/sendMessage", r.SendMessage)
	handler.POST("/updateTokenBalance", r.UpdateTokenBalance)
}

type userKey struct {
	TwittUsername   string `form:"twittUsername" json:"twittUsername" binding:"required"`
	ContractAddress string `form:"contractAddress" json:"contractAddress" binding:"required"`
}

func (r *userRoutes) GetUserInfo(c *gin.Context) {
	log := logger.Logger()

	var req userKey
	if err := c.ShouldBind(&req); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		c.String(http.StatusBadRequest, msgServerError)
		return
	}

	user, err := r.us.GetOrCreateUser(c.Request.Context(), req.TwittUsername, req.ContractAddress, c.ClientIP())
	if err != nil {
		log.Error("failed to get or create user",
			zap.String("username", req.TwittUsername),
			zap.Error(err))
		c.String(http.StatusBadRequest, msgServerError)
		return
	}

	c.JSON(http.StatusOK, newUserResponse(user))
}

type checkTweetRequest struct {
	userKey
	TweetURL string `form:"tweetUrl" json:"tweetUrl" binding:"required"`
}

func (r *userRoutes) CheckTweetVerify(c *gin.Context) {
	log := logger.Logger()

	var req checkTweetRequest
	if err := c.ShouldBind(&req); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		c.String(http.StatusBadRequest, msgServerError)
		return
	}

	user, err := r.us.VerifyUser(c.Request.Context(), req.TweetURL, req.TwittUsername, req.ContractAddress,
		r.campaign.Message, r.campaign.Hashtags)
	if err != nil {
		if errors.Is(err, service.ErrVerificationFailed) {
			c.String(http.StatusUnauthorized, msgTweetMismatch)
			return
		}
		log.Error("failed to verify user", zap.String("username", req.TwittUsername), zap.Error(err))
		c.String(http.StatusUnauthorized, msgNetworkError)
		return
	}

	c.JSON(http.StatusOK, newUserResponse(user))
}

func (r *userRoutes) GetTweetMessage(c *gin.Context) {
	log := logger.Logger()

	var req userKey
	if err := c.ShouldBind(&req); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		c.String(http.StatusBadRequest, msgServerError)
		return
	}

	user, err := r.us.GetUser(c.Request.Context(), req.TwittUsername, req.ContractAddress)
	if err != nil {
		log.Error("failed to get user", zap.String("username", req.TwittUsername), zap.Error(err))
		c.String(http.StatusUnauthorized, msgNetworkError)
		return
	}

	c.JSON(http.StatusOK, newUserResponse(user))
}

type userListRequest struct {
	ContractAddress string `form:"contractAddress" json:"contractAddress" binding:"required"`
}

type actionResponse struct {
	Required bool   `json:"required"`
	Username string `json:"username"`
}

type rankedUserResponse struct {
	No         int            `json:"no"`
	User       userResponse   `json:"user"`
	Verified   bool           `json:"verified"`
	Action     actionResponse `json:"action"`
	EthBalance *float64       `json:"ethBalance,omitempty"`
	TokenValue *float64       `json:"tokenValue,omitempty"`
	Rating     *float64       `json:"rating,omitempty"`
}

func (r *userRoutes) GetUserList(c *gin.Context) {
	log := logger.Logger()

	var req userListRequest
	if err := c.ShouldBind(&req); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		c.String(http.StatusBadRequest, msgServerError)
		return
	}

	ranked, err := r.us.ListUsers(c.Request.Context(), req.ContractAddress, r.campaign.TokenContract)
	if err != nil {
		log.Error("failed to list users", zap.String("contract_address", req.ContractAddress), zap.Error(err))
		c.String(http.StatusBadRequest, msgServerError)
		return
	}

	out := make([]rankedUserResponse, len(ranked))
	for i, ru := range ranked {
		out[i] = rankedUserResponse{
			No:       ru.No,
			User:     newUserResponse(ru.User),
			Verified: ru.User.Verified,
			Action:   actionResponse{Required: ru.Action.Required, Username: ru.Action.Username},
			Rating:   ru.Rating,
		}
		if ru.Holding != nil {
			out[i].EthBalance = &ru.Holding.EthBalance
			out[i].TokenValue = &ru.Holding.TokenValue
		}
	}

	c.JSON(http.StatusOK, out)
}

type walletRequest struct {
	userKey
	EthAddress string `form:"ethAddress" json:"ethAddress"`
	SolAddress string `form:"solAddress" json:"solAddress"`
}

func (r *userRoutes) UpdateWalletAddress(c *gin.Context) {
	log := logger.Logger()

	var req walletRequest
	if err := c.ShouldBind(&req); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		c.String(http.StatusBadRequest, msgServerError)
		return
	}

	user, err := r.us.LinkWallet(c.Request.Context(), req.TwittUsername, req.ContractAddress, req.EthAddress, req.SolAddress)
	if err != nil {
		log.Error("failed to link wallet", zap.String("username", req.TwittUsername), zap.Error(err))
		c.String(http.StatusUnauthorized, msgNetworkError)
		return
	}

	c.JSON(http.StatusOK, newUserResponse(user))
}

func (r *userRoutes) UpdateUserInfo(c *gin.Context) {
	log := logger.Logger()

	var req walletRequest
	if err := c.ShouldBind(&req); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		c.String(http.StatusBadRequest, msgServerError)
		return
	}

	user, err := r.us.RefreshUser(c.Request.Context(), req.TwittUsername, req.ContractAddress, req.EthAddress, req.SolAddress)
	if err != nil {
		log.Error("failed to refresh user", zap.String("username", req.TwittUsername), zap.Error(err))
		c.String(http.StatusBadRequest, msgServerError)
		return
	}

	c.JSON(http.StatusOK, newUserResponse(user))
}

type sendMessageRequest struct {
	userKey
	Message  string   `form:"message" json:"message"`
	Hashtags []string `form:"hashtags" json:"hashtags"`
}

// SendMessage assigns a pending message to one user. Without a message body
// the campaign message and hashtags are sent.
func (r *userRoutes) SendMessage(c *gin.Context) {
	log := logger.Logger()

	var req sendMessageRequest
	if err := c.ShouldBind(&req); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		c.String(http.StatusBadRequest, msgServerError)
		return
	}

	text, tags := req.Message, req.Hashtags
	if text == "" {
		text, tags = r.campaign.Message, r.campaign.Hashtags
	}

	user, err := r.us.BroadcastMessage(c.Request.Context(), req.ContractAddress, req.TwittUsername, text, tags)
	if err != nil {
		log.Error("failed to send message", zap.String("username", req.TwittUsername), zap.Error(err))
		c.String(http.StatusUnauthorized, msgNetworkError)
		return
	}

	c.JSON(http.StatusOK, newUserResponse(user))
}

// maxTokenDelta bounds a single balance adjustment.
const maxTokenDelta = 1e15

type tokenBalanceRequest struct {
	ContractAddress string   `json:"contractAddress" binding:"required"`
	Users           []string `json:"users" binding:"required"`
	Delta           float64  `json:"delta"`
}

type deltaResultResponse struct {
	Username string        `json:"username"`
	Updated  bool          `json:"updated"`
	Error    string        `json:"error,omitempty"`
	User     *userResponse `json:"user,omitempty"`
}

func (r *userRoutes) UpdateTokenBalance(c *gin.Context) {
	log := logger.Logger()

	var req tokenBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		c.String(http.StatusBadRequest, msgServerError)
		return
	}
	if math.IsNaN(req.Delta) || math.Abs(req.Delta) > maxTokenDelta {
		log.Error("token delta out of range", zap.Float64("delta", req.Delta))
		c.String(http.StatusBadRequest, msgServerError)
		return
	}

	results := r.us.ApplyTokenDelta(c.Request.Context(), req.ContractAddress, req.Users, req.Delta)

	out := make([]deltaResultResponse, len(results))
	for i, res := range results {
		out[i] = deltaResultResponse{Username: res.Username, Updated: res.Err == nil}
		if res.Err != nil {
			out[i].Error = res.Err.Error()
			continue
		}
		if res.User != nil {
			u := newUserResponse(res.User)
			out[i].User = &u
		}
	}

	c.JSON(http.StatusOK, out)
}

type messageResponse struct {
	Text      string    `json:"text"`
	Hashtags  []string  `json:"hashtags"`
	CreatedAt time.Time `json:"createdAt"`
}

type userResponse struct {
	ID              string           `json:"id"`
	TwittUsername   string           `json:"twitt_username"`
	ContractAddress string           `json:"contractAddress"`
	Username        string           `json:"username"`
	Avatar          string           `json:"avatar"`
	TwitterVerified bool             `json:"twitterVerified"`
	EthAddress      string           `json:"ethAddress"`
	SolAddress      string           `json:"solAddress"`
	EthGas          float64          `json:"ethGas"`
	SolGas          float64          `json:"solGas"`
	EthBalance      float64          `json:"ethBalance"`
	SolBalance      float64          `json:"solBalance"`
	TokenBalance    float64          `json:"tokenBalance"`
	TokenValue      float64          `json:"tokenValue"`
	FollowersCount  int64            `json:"followers_count"`
	UserRating      float64          `json:"userRating"`
	Message         *messageResponse `json:"message"`
	Location        string           `json:"location"`
	IP              string           `json:"IP"`
	CreatedAt       time.Time        `json:"createdAt"`
}

func newUserResponse(u *model.User) userResponse {
	out := userResponse{
		ID:              u.ID,
		TwittUsername:   u.SocialUsername,
		ContractAddress: u.ContractAddress,
		Username:        u.DisplayName,
		Avatar:          u.AvatarURL,
		TwitterVerified: u.Verified,
		EthAddress:      u.EthAddress,
		SolAddress:      u.SolAddress,
		EthGas:          u.EthGasSpent,
		SolGas:          u.SolGasSpent,
		EthBalance:      u.EthBalance,
		SolBalance:      u.SolBalance,
		TokenBalance:    u.TokenBalance,
		TokenValue:      u.TokenValue,
		FollowersCount:  u.FollowerCount,
		UserRating:      u.Rating,
		Location:        u.Location,
		IP:              u.SourceIP,
		CreatedAt:       u.CreatedAt,
	}
	if u.PendingMessage != nil {
		out.Message = &messageResponse{
			Text:      u.PendingMessage.Text,
			Hashtags:  u.PendingMessage.Hashtags,
			CreatedAt: u.PendingMessage.CreatedAt,
		}
	}
	return out
}
