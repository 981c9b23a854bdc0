package mocks

import (
	"context"

	"airdrop_backend/internal/chain"
	"airdrop_backend/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) FindOne(ctx context.Context, filter model.UserFilter) (*model.User, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserStore) InsertOne(ctx context.Context, user *model.User) (string, error) {
	args := m.Called(ctx, user)
	return args.String(0), args.Error(1)
}

func (m *MockUserStore) UpdateOne(ctx context.Context, filter model.UserFilter, update model.UserUpdate) (int64, error) {
	args := m.Called(ctx, filter, update)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserStore) Find(ctx context.Context, filter model.UserFilter) ([]*model.User, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.User), args.Error(1)
}

type MockSocialPlatform struct {
	mock.Mock
}

func (m *MockSocialPlatform) GetUserByUsername(ctx context.Context, username string) (*model.SocialProfile, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SocialProfile), args.Error(1)
}

type MockPostVerifier struct {
	mock.Mock
}

func (m *MockPostVerifier) Verify(ctx context.Context, postURL, claimedUsername, requiredMessage string, requiredHashtags []string) bool {
	args := m.Called(ctx, postURL, claimedUsername, requiredMessage, requiredHashtags)
	return args.Bool(0)
}

type MockBalanceAggregator struct {
	mock.Mock
}

func (m *MockBalanceAggregator) FetchChainBalances(ctx context.Context, ethAddress, solAddress string) chain.ChainBalances {
	args := m.Called(ctx, ethAddress, solAddress)
	return args.Get(0).(chain.ChainBalances)
}

func (m *MockBalanceAggregator) FetchTokenHolding(ctx context.Context, ethAddress, tokenContract string) (model.TokenHolding, error) {
	args := m.Called(ctx, ethAddress, tokenContract)
	return args.Get(0).(model.TokenHolding), args.Error(1)
}

type MockLocator struct {
	mock.Mock
}

func (m *MockLocator) Locate(ctx context.Context, ip string) (*model.Location, error) {
	args := m.Called(ctx, ip)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Location), args.Error(1)
}

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) user(args mock.Arguments) (*model.User, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) GetOrCreateUser(ctx context.Context, username, contractAddress, sourceIP string) (*model.User, error) {
	return m.user(m.Called(ctx, username, contractAddress, sourceIP))
}

func (m *MockUserService) GetUser(ctx context.Context, username, contractAddress string) (*model.User, error) {
	return m.user(m.Called(ctx, username, contractAddress))
}

func (m *MockUserService) VerifyUser(ctx context.Context, postURL, username, contractAddress, requiredMessage string, requiredHashtags []string) (*model.User, error) {
	return m.user(m.Called(ctx, postURL, username, contractAddress, requiredMessage, requiredHashtags))
}

func (m *MockUserService) LinkWallet(ctx context.Context, username, contractAddress, ethAddress, solAddress string) (*model.User, error) {
	return m.user(m.Called(ctx, username, contractAddress, ethAddress, solAddress))
}

func (m *MockUserService) RefreshUser(ctx context.Context, username, contractAddress, ethAddress, solAddress string) (*model.User, error) {
	return m.user(m.Called(ctx, username, contractAddress, ethAddress, solAddress))
}

func (m *MockUserService) ListUsers(ctx context.Context, contractAddress, tokenContract string) ([]*model.RankedUser, error) {
	args := m.Called(ctx, contractAddress, tokenContract)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.RankedUser), args.Error(1)
}

func (m *MockUserService) ApplyTokenDelta(ctx context.Context, contractAddress string, usernames []string, delta float64) []model.DeltaResult {
	args := m.Called(ctx, contractAddress, usernames, delta)
	return args.Get(0).([]model.DeltaResult)
}

func (m *MockUserService) BroadcastMessage(ctx context.Context, contractAddress, username, text string, hashtags []string) (*model.User, error) {
	return m.user(m.Called(ctx, contractAddress, username, text, hashtags))
}
