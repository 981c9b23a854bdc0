package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"airdrop_backend/internal/model"
	"airdrop_backend/internal/rating"
	"airdrop_backend/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const maxParallelLookups = 16

type Dependencies struct {
	Store    UserStore
	Social   SocialPlatform
	Verifier PostVerifier
	Chain    BalanceAggregator
	Locator  Locator
	Rating   *rating.Engine
	Hub      *MessageHub
}

type UserService struct {
	store    UserStore
	social   SocialPlatform
	verifier PostVerifier
	chain    BalanceAggregator
	locator  Locator
	rating   *rating.Engine
	hub      *MessageHub
	locks    *userLocks
	now      func() time.Time
}

func NewUserService(deps Dependencies) *UserService {
	hub := deps.Hub
	if hub == nil {
		hub = NewMessageHub()
	}
	return &UserService{
		store:    deps.Store,
		social:   deps.Social,
		verifier: deps.Verifier,
		chain:    deps.Chain,
		locator:  deps.Locator,
		rating:   deps.Rating,
		hub:      hub,
		locks:    newUserLocks(),
		now:      time.Now,
	}
}

func (s *UserService) Hub() *MessageHub {
	return s.hub
}

func (s *UserService) GetOrCreateUser(ctx context.Context, username, contractAddress, sourceIP string) (*model.User, error) {
	filter := model.UserFilter{ContractAddress: contractAddress, SocialUsername: username}

	user, err := s.store.FindOne(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user != nil {
		return user, nil
	}

	profile, err := s.social.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("%w: identity lookup for %s: %v", ErrUserNotFound, username, err)
	}

	user = &model.User{
		SocialUsername:  username,
		ContractAddress: contractAddress,
		DisplayName:     profile.DisplayName,
		AvatarURL:       profile.AvatarURL,
		FollowerCount:   profile.FollowerCount,
		CreatedAt:       s.now().UTC(),
	}
	if loc := s.locate(ctx, sourceIP); loc != nil {
		user.Location = loc.Country
		user.SourceIP = loc.IP
	}

	id, err := s.store.InsertOne(ctx, user)
	if err != nil || id == "" {
		// A concurrent request may have created the record first.
		existing, findErr := s.store.FindOne(ctx, filter)
		if findErr == nil && existing != nil {
			return existing, nil
		}
		if err == nil {
			err = fmt.Errorf("record not created")
		}
		return nil, &StoreWriteError{Op: "insert", Username: username, Err: err}
	}
	user.ID = id

	logger.Logger().Info("user record created",
		zap.String("username", username),
		zap.String("contract_address", contractAddress))

	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, username, contractAddress string) (*model.User, error) {
	return s.findExisting(ctx, model.UserFilter{ContractAddress: contractAddress, SocialUsername: username})
}

func (s *UserService) VerifyUser(ctx context.Context, postURL, username, contractAddress, requiredMessage string, requiredHashtags []string) (*model.User, error) {
	filter := model.UserFilter{ContractAddress: contractAddress, SocialUsername: username}

	if !s.verifier.Verify(ctx, postURL, username, requiredMessage, requiredHashtags) {
		return nil, ErrVerificationFailed
	}

	verified := true
	if err := s.updateOne(ctx, filter, model.UserUpdate{Verified: &verified}); err != nil {
		return nil, err
	}

	return s.findExisting(ctx, filter)
}

// LinkWallet records the user's wallet addresses together with fresh
// balances. Nothing is written if either chain lookup failed.
func (s *UserService) LinkWallet(ctx context.Context, username, contractAddress, ethAddress, solAddress string) (*model.User, error) {
	filter := model.UserFilter{ContractAddress: contractAddress, SocialUsername: username}
	defer s.locks.lock(filter)()

	user, err := s.findExisting(ctx, filter)
	if err != nil {
		return nil, err
	}

	balances := s.chain.FetchChainBalances(ctx, ethAddress, solAddress)
	if err := balances.Err(); err != nil {
		return nil, fmt.Errorf("wallet not linked: %w", err)
	}

	ethGas := balances.EthFeesTotal.InexactFloat64()
	solGas := balances.SolFeesTotal.InexactFloat64()
	ethBalance := balances.EthBalance.InexactFloat64()
	solBalance := balances.SolBalance.InexactFloat64()

	return s.applyRated(ctx, filter, user, model.UserUpdate{
		EthAddress:  &ethAddress,
		SolAddress:  &solAddress,
		EthGasSpent: &ethGas,
		SolGasSpent: &solGas,
		EthBalance:  &ethBalance,
		SolBalance:  &solBalance,
	})
}

// RefreshUser re-reads the social profile and both chains and stores the
// result. Addresses default to the ones already on the record.
func (s *UserService) RefreshUser(ctx context.Context, username, contractAddress, ethAddress, solAddress string) (*model.User, error) {
	filter := model.UserFilter{ContractAddress: contractAddress, SocialUsername: username}
	defer s.locks.lock(filter)()

	user, err := s.findExisting(ctx, filter)
	if err != nil {
		return nil, err
	}
	if ethAddress == "" {
		ethAddress = user.EthAddress
	}
	if solAddress == "" {
		solAddress = user.SolAddress
	}

	if c, ok := s.social.(profileInvalidator); ok {
		if err := c.Invalidate(ctx, username); err != nil {
			logger.Logger().Warn("failed to drop cached profile", zap.String("username", username), zap.Error(err))
		}
	}

	profile, err := s.social.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("%w: identity lookup for %s: %v", ErrUserNotFound, username, err)
	}

	balances := s.chain.FetchChainBalances(ctx, ethAddress, solAddress)
	if err := balances.Err(); err != nil {
		return nil, fmt.Errorf("user not refreshed: %w", err)
	}

	ethGas := balances.EthFeesTotal.InexactFloat64()
	solGas := balances.SolFeesTotal.InexactFloat64()
	ethBalance := balances.EthBalance.InexactFloat64()
	solBalance := balances.SolBalance.InexactFloat64()

	return s.applyRated(ctx, filter, user, model.UserUpdate{
		DisplayName:   &profile.DisplayName,
		AvatarURL:     &profile.AvatarURL,
		FollowerCount: &profile.FollowerCount,
		EthAddress:    &ethAddress,
		SolAddress:    &solAddress,
		EthGasSpent:   &ethGas,
		SolGasSpent:   &solGas,
		EthBalance:    &ethBalance,
		SolBalance:    &solBalance,
	})
}

// ListUsers returns the contract's users in store order, numbered from 1.
// Verified users are rated from a live token-holding lookup.
func (s *UserService) ListUsers(ctx context.Context, contractAddress, tokenContract string) ([]*model.RankedUser, error) {
	users, err := s.store.Find(ctx, model.UserFilter{ContractAddress: contractAddress})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	out := make([]*model.RankedUser, len(users))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelLookups)

	for i, u := range users {
		i, u := i, u
		out[i] = &model.RankedUser{
			No:   i + 1,
			User: u,
			Action: model.Action{
				Required: u.PendingMessage != nil,
				Username: u.SocialUsername,
			},
		}
		if !u.Verified {
			continue
		}

		g.Go(func() error {
			var holding model.TokenHolding
			if u.EthAddress != "" {
				h, err := s.chain.FetchTokenHolding(gctx, u.EthAddress, tokenContract)
				if err != nil {
					return fmt.Errorf("token holding for %s: %w", u.SocialUsername, err)
				}
				holding = h
			}

			score := s.rating.Compute(rating.Inputs{
				SolBalance:    u.SolBalance,
				EthBalance:    holding.EthBalance,
				TokenBalance:  u.TokenBalance,
				TokenValue:    holding.TokenValue,
				SolFees:       u.SolGasSpent,
				EthFees:       u.EthGasSpent,
				FollowerCount: u.FollowerCount,
			})

			out[i].Holding = &holding
			out[i].Rating = &score
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

// ApplyTokenDelta adds delta to the token balance and value of each listed
// user. Updates are independent: every user gets its own result, in input
// order, and one failure does not stop the others.
func (s *UserService) ApplyTokenDelta(ctx context.Context, contractAddress string, usernames []string, delta float64) []model.DeltaResult {
	results := make([]model.DeltaResult, len(usernames))

	var g errgroup.Group
	g.SetLimit(maxParallelLookups)

	for i, username := range usernames {
		i, username := i, username
		results[i].Username = username
		g.Go(func() error {
			user, err := s.applyDelta(ctx, contractAddress, username, delta)
			results[i].User = user
			results[i].Err = err
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r.Err != nil {
			logger.Logger().Warn("token delta not applied",
				zap.String("username", r.Username),
				zap.String("contract_address", contractAddress),
				zap.Error(r.Err))
		}
	}

	return results
}

// applyDelta increments the stored balances in a single store write, then
// rates the record as read back from the store.
func (s *UserService) applyDelta(ctx context.Context, contractAddress, username string, delta float64) (*model.User, error) {
	filter := model.UserFilter{ContractAddress: contractAddress, SocialUsername: username}
	defer s.locks.lock(filter)()

	user, err := s.findExisting(ctx, filter)
	if err != nil {
		return nil, err
	}
	if !finite(delta) || !finite(user.TokenBalance+delta) || !finite(user.TokenValue+delta) {
		return nil, fmt.Errorf("%w: %s balance %v, delta %v", ErrAmountOutOfRange, username, user.TokenBalance, delta)
	}

	if err := s.updateOne(ctx, filter, model.UserUpdate{TokenDelta: &delta}); err != nil {
		return nil, err
	}

	user, err = s.findExisting(ctx, filter)
	if err != nil {
		return nil, err
	}

	score := s.rating.Compute(ratingInputs(user))
	if err := s.updateOne(ctx, filter, model.UserUpdate{Rating: &score}); err != nil {
		return nil, err
	}
	user.Rating = score

	return user, nil
}

func (s *UserService) BroadcastMessage(ctx context.Context, contractAddress, username, text string, hashtags []string) (*model.User, error) {
	filter := model.UserFilter{ContractAddress: contractAddress, SocialUsername: username}

	msg := model.Message{
		Text:      text,
		Hashtags:  hashtags,
		CreatedAt: s.now().UTC(),
	}
	if err := s.updateOne(ctx, filter, model.UserUpdate{PendingMessage: &msg}); err != nil {
		return nil, err
	}

	delivered := s.hub.Publish(filter, msg)
	logger.Logger().Info("pending message set",
		zap.String("username", username),
		zap.String("contract_address", contractAddress),
		zap.Int("live_subscribers", delivered))

	return s.findExisting(ctx, filter)
}

// applyRated writes update plus a rating recomputed from the record as it
// will be after the update.
func (s *UserService) applyRated(ctx context.Context, filter model.UserFilter, current *model.User, update model.UserUpdate) (*model.User, error) {
	next := *current
	update.Apply(&next)

	score := s.rating.Compute(ratingInputs(&next))
	update.Rating = &score
	next.Rating = score

	if err := s.updateOne(ctx, filter, update); err != nil {
		return nil, err
	}
	return &next, nil
}

func (s *UserService) updateOne(ctx context.Context, filter model.UserFilter, update model.UserUpdate) error {
	matched, err := s.store.UpdateOne(ctx, filter, update)
	if err != nil {
		return &StoreWriteError{Op: "update", Username: filter.SocialUsername, Err: err}
	}
	if matched == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *UserService) findExisting(ctx context.Context, filter model.UserFilter) (*model.User, error) {
	user, err := s.store.FindOne(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *UserService) locate(ctx context.Context, ip string) *model.Location {
	if s.locator == nil {
		return nil
	}
	loc, err := s.locator.Locate(ctx, ip)
	if err != nil {
		logger.Logger().Info("location lookup failed", zap.String("ip", ip), zap.Error(err))
		return &model.Location{IP: ip}
	}
	return loc
}

func finite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}

func ratingInputs(u *model.User) rating.Inputs {
	return rating.Inputs{
		SolBalance:    u.SolBalance,
		EthBalance:    u.EthBalance,
		TokenBalance:  u.TokenBalance,
		TokenValue:    u.TokenValue,
		SolFees:       u.SolGasSpent,
		EthFees:       u.EthGasSpent,
		FollowerCount: u.FollowerCount,
	}
}
