package storage

import (
	"context"

	"github.com/wingolabs/roundcore/pkg/types"
)

// Store is the read interface over primary records (rounds, bets,
// account balances). The validator recomputes aggregates from these
// instead of trusting the dispatcher's stored figures.
type Store interface {
	// GetRound returns a round by ID, or types.ErrRoundNotFound.
	GetRound(ctx context.Context, roundID string) (*types.Round, error)

	// GetRoundBets returns all bets owned by a round.
	GetRoundBets(ctx context.Context, roundID string) ([]types.Bet, error)

	// GetRecentCompletedRounds returns up to limit completed rounds,
	// most recently ended first.
	GetRecentCompletedRounds(ctx context.Context, limit int) ([]types.Round, error)

	// GetAccountBalance returns an account's balance components, or
	// types.ErrAccountNotFound.
	GetAccountBalance(ctx context.Context, accountID string) (*types.AccountBalance, error)

	// Close closes the underlying connection.
	Close() error
}
