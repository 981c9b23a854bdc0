package service

import (
	"context"
	"errors"
	"fmt"

	"airdrop_backend/internal/chain"
	"airdrop_backend/internal/model"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrVerificationFailed = errors.New("post verification failed")
	ErrAmountOutOfRange   = errors.New("token amount out of range")
)

// StoreWriteError reports a failed write for one user record.
type StoreWriteError struct {
	Op       string
	Username string
	Err      error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("store %s for %s failed: %v", e.Op, e.Username, e.Err)
}

func (e *StoreWriteError) Unwrap() error {
	return e.Err
}

type UserServiceI interface {
	GetOrCreateUser(ctx context.Context, username, contractAddress, sourceIP string) (*model.User, error)
	GetUser(ctx context.Context, username, contractAddress string) (*model.User, error)
	VerifyUser(ctx context.Context, postURL, username, contractAddress, requiredMessage string, requiredHashtags []string) (*model.User, error)
	LinkWallet(ctx context.Context, username, contractAddress, ethAddress, solAddress string) (*model.User, error)
	RefreshUser(ctx context.Context, username, contractAddress, ethAddress, solAddress string) (*model.User, error)
	ListUsers(ctx context.Context, contractAddress, tokenContract string) ([]*model.RankedUser, error)
	ApplyTokenDelta(ctx context.Context, contractAddress string, usernames []string, delta float64) []model.DeltaResult
	BroadcastMessage(ctx context.Context, contractAddress, username, text string, hashtags []string) (*model.User, error)
}

// UserStore is the record store. FindOne returns nil, nil when no record
// matches. InsertOne returns an empty id when the record already exists.
// UpdateOne returns the number of matched records and applies a TokenDelta
// atomically.
type UserStore interface {
	FindOne(ctx context.Context, filter model.UserFilter) (*model.User, error)
	InsertOne(ctx context.Context, user *model.User) (string, error)
	UpdateOne(ctx context.Context, filter model.UserFilter, update model.UserUpdate) (int64, error)
	Find(ctx context.Context, filter model.UserFilter) ([]*model.User, error)
}

type SocialPlatform interface {
	GetUserByUsername(ctx context.Context, username string) (*model.SocialProfile, error)
}

// profileInvalidator is implemented by cached social platforms.
type profileInvalidator interface {
	Invalidate(ctx context.Context, username string) error
}

type PostVerifier interface {
	Verify(ctx context.Context, postURL, claimedUsername, requiredMessage string, requiredHashtags []string) bool
}

type BalanceAggregator interface {
	FetchChainBalances(ctx context.Context, ethAddress, solAddress string) chain.ChainBalances
	FetchTokenHolding(ctx context.Context, ethAddress, tokenContract string) (model.TokenHolding, error)
}

type Locator interface {
	Locate(ctx context.Context, ip string) (*model.Location, error)
}
