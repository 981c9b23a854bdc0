package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"airdrop_backend/internal/model"
	"airdrop_backend/pkg/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	Ethereum = "ethereum"
	Solana   = "solana"
)

var (
	ErrAllEndpointsExhausted = errors.New("all rpc endpoints failed")
	ErrEmptyAddress          = errors.New("empty address")
)

// QueryError reports a failed lookup on one chain.
type QueryError struct {
	Chain string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s query failed: %v", e.Chain, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

type NativeBalanceSource interface {
	NativeBalance(ctx context.Context, address string) (decimal.Decimal, error)
}

// FeeHistorySource returns the per-transaction fee figures of an address.
type FeeHistorySource interface {
	FeeHistory(ctx context.Context, address string) ([]decimal.Decimal, error)
}

type TokenBalanceSource interface {
	TokenBalance(ctx context.Context, owner, tokenContract string) (decimal.Decimal, error)
}

// TokenEndpoint is one EVM RPC endpoint able to serve both lookups of a
// token holding.
type TokenEndpoint interface {
	NativeBalanceSource
	TokenBalanceSource
}

type ChainBalances struct {
	SolBalance   decimal.Decimal
	SolFeesTotal decimal.Decimal
	SolErr       error
	EthBalance   decimal.Decimal
	EthFeesTotal decimal.Decimal
	EthErr       error
}

func (b ChainBalances) SolError() bool { return b.SolErr != nil }
func (b ChainBalances) EthError() bool { return b.EthErr != nil }

// Err returns the first chain error, if any.
func (b ChainBalances) Err() error {
	if b.EthErr != nil {
		return b.EthErr
	}
	return b.SolErr
}

type Aggregator struct {
	solBalance NativeBalanceSource
	solFees    FeeHistorySource
	ethFees    FeeHistorySource
	endpoints  []TokenEndpoint
	timeout    time.Duration
}

func NewAggregator(solBalance NativeBalanceSource, solFees, ethFees FeeHistorySource, endpoints []TokenEndpoint, timeout time.Duration) *Aggregator {
	return &Aggregator{
		solBalance: solBalance,
		solFees:    solFees,
		ethFees:    ethFees,
		endpoints:  endpoints,
		timeout:    timeout,
	}
}

// FetchChainBalances looks up both chains independently. A failing chain has
// its figures zeroed and its error set; it never aborts the other lookup.
func (a *Aggregator) FetchChainBalances(ctx context.Context, ethAddress, solAddress string) ChainBalances {
	var out ChainBalances
	var g errgroup.Group

	g.Go(func() error {
		balance, fees, err := a.ethFigures(ctx, ethAddress)
		if err != nil {
			out.EthErr = &QueryError{Chain: Ethereum, Err: err}
			out.EthBalance = decimal.Zero
			out.EthFeesTotal = decimal.Zero
			return nil
		}
		out.EthBalance = balance
		out.EthFeesTotal = fees
		return nil
	})

	g.Go(func() error {
		balance, fees, err := a.solFigures(ctx, solAddress)
		if err != nil {
			out.SolErr = &QueryError{Chain: Solana, Err: err}
			out.SolBalance = decimal.Zero
			out.SolFeesTotal = decimal.Zero
			return nil
		}
		out.SolBalance = balance
		out.SolFeesTotal = fees
		return nil
	})

	_ = g.Wait()

	if out.EthErr != nil || out.SolErr != nil {
		logger.Logger().Warn("chain balance lookup failed",
			zap.String("eth_address", ethAddress),
			zap.String("sol_address", solAddress),
			zap.NamedError("eth_error", out.EthErr),
			zap.NamedError("sol_error", out.SolErr))
	}

	return out
}

func (a *Aggregator) ethFigures(ctx context.Context, address string) (decimal.Decimal, decimal.Decimal, error) {
	if address == "" {
		return decimal.Zero, decimal.Zero, ErrEmptyAddress
	}

	feeCtx, cancel := a.withTimeout(ctx)
	defer cancel()

	fees, err := a.ethFees.FeeHistory(feeCtx, address)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("fee history: %w", err)
	}

	balance, err := a.ethNativeBalance(ctx, address)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("balance: %w", err)
	}

	return balance, decimal.Sum(decimal.Zero, fees...), nil
}

// ethNativeBalance asks the token endpoints in order for the native balance.
func (a *Aggregator) ethNativeBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	lastErr := errors.New("no endpoints configured")
	for _, endpoint := range a.endpoints {
		balance, err := a.nativeBalanceFrom(ctx, endpoint, address)
		if err == nil {
			return balance, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
	}
	return decimal.Zero, fmt.Errorf("%w: %v", ErrAllEndpointsExhausted, lastErr)
}

func (a *Aggregator) nativeBalanceFrom(ctx context.Context, endpoint NativeBalanceSource, address string) (decimal.Decimal, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	return endpoint.NativeBalance(ctx, address)
}

func (a *Aggregator) solFigures(ctx context.Context, address string) (decimal.Decimal, decimal.Decimal, error) {
	if address == "" {
		return decimal.Zero, decimal.Zero, ErrEmptyAddress
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	fees, err := a.solFees.FeeHistory(ctx, address)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("fee history: %w", err)
	}

	balance, err := a.solBalance.NativeBalance(ctx, address)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("balance: %w", err)
	}

	return balance, decimal.Sum(decimal.Zero, fees...), nil
}

// FetchTokenHolding tries the configured endpoints in order and returns the
// first complete answer.
func (a *Aggregator) FetchTokenHolding(ctx context.Context, ethAddress, tokenContract string) (model.TokenHolding, error) {
	if len(a.endpoints) == 0 {
		return model.TokenHolding{}, ErrAllEndpointsExhausted
	}

	var lastErr error
	for i, endpoint := range a.endpoints {
		holding, err := a.tokenHoldingFrom(ctx, endpoint, ethAddress, tokenContract)
		if err == nil {
			return holding, nil
		}

		logger.Logger().Info("token endpoint failed, trying next",
			zap.Int("endpoint", i),
			zap.String("address", ethAddress),
			zap.Error(err))
		lastErr = err

		if ctx.Err() != nil {
			break
		}
	}

	return model.TokenHolding{}, fmt.Errorf("%w: %v", ErrAllEndpointsExhausted, &QueryError{Chain: Ethereum, Err: lastErr})
}

func (a *Aggregator) tokenHoldingFrom(ctx context.Context, endpoint TokenEndpoint, owner, tokenContract string) (model.TokenHolding, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	native, err := endpoint.NativeBalance(ctx, owner)
	if err != nil {
		return model.TokenHolding{}, fmt.Errorf("native balance: %w", err)
	}

	tokens, err := endpoint.TokenBalance(ctx, owner, tokenContract)
	if err != nil {
		return model.TokenHolding{}, fmt.Errorf("token balance: %w", err)
	}

	return model.TokenHolding{
		EthBalance: native.InexactFloat64(),
		TokenValue: tokens.InexactFloat64(),
	}, nil
}

func (a *Aggregator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}
