package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	lamportDecimals   = 9
	maxParallelTxRead = 8
)

type solanaRPC interface {
	GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error)
	GetSignaturesForAddress(ctx context.Context, account solana.PublicKey) ([]*rpc.TransactionSignature, error)
	GetTransaction(ctx context.Context, txSig solana.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error)
}

// SolanaClient serves the native SOL balance and per-transaction fees
// (in lamports) of an account.
type SolanaClient struct {
	rpc solanaRPC
}

func NewSolanaClient(endpoint string) *SolanaClient {
	if endpoint == "" {
		endpoint = rpc.MainNetBeta_RPC
	}
	return &SolanaClient{rpc: rpc.New(endpoint)}
}

func (c *SolanaClient) NativeBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	pk, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid solana address %q: %w", address, err)
	}

	res, err := c.rpc.GetBalance(ctx, pk, rpc.CommitmentFinalized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("getBalance: %w", err)
	}

	return lamportsToSol(res.Value), nil
}

func (c *SolanaClient) FeeHistory(ctx context.Context, address string) ([]decimal.Decimal, error) {
	pk, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, fmt.Errorf("invalid solana address %q: %w", address, err)
	}

	sigs, err := c.rpc.GetSignaturesForAddress(ctx, pk)
	if err != nil {
		return nil, fmt.Errorf("getSignaturesForAddress: %w", err)
	}

	fees := make([]decimal.Decimal, len(sigs))
	maxVersion := uint64(0)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelTxRead)
	for i, sig := range sigs {
		i, sig := i, sig
		g.Go(func() error {
			tx, err := c.rpc.GetTransaction(gctx, sig.Signature, &rpc.GetTransactionOpts{
				Commitment:                     rpc.CommitmentFinalized,
				MaxSupportedTransactionVersion: &maxVersion,
			})
			if err != nil {
				return fmt.Errorf("getTransaction %s: %w", sig.Signature, err)
			}
			if tx == nil || tx.Meta == nil {
				fees[i] = decimal.Zero
				return nil
			}
			fees[i] = decimal.NewFromBigInt(new(big.Int).SetUint64(tx.Meta.Fee), 0)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return fees, nil
}

func lamportsToSol(lamports uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), -lamportDecimals)
}
