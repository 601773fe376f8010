package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/wingolabs/roundcore/pkg/types"
	"go.uber.org/zap"
)

// MemoryStore implements Store with in-process maps. Used by tests and
// by the memory storage mode of the validate command.
type MemoryStore struct {
	mu       sync.RWMutex
	rounds   map[string]types.Round
	bets     map[string][]types.Bet // keyed by round ID
	balances map[string]types.AccountBalance
	logger   *zap.Logger
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	logger.Info("memory-store-initialized")
	return &MemoryStore{
		rounds:   make(map[string]types.Round),
		bets:     make(map[string][]types.Bet),
		balances: make(map[string]types.AccountBalance),
		logger:   logger,
	}
}

// PutRound inserts or replaces a round.
func (m *MemoryStore) PutRound(round types.Round) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rounds[round.ID] = round
}

// PutBet appends a bet to its round.
func (m *MemoryStore) PutBet(bet types.Bet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bets[bet.RoundID] = append(m.bets[bet.RoundID], bet)
}

// PutAccountBalance inserts or replaces an account balance.
func (m *MemoryStore) PutAccountBalance(balance types.AccountBalance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[balance.AccountID] = balance
}

// GetRound returns a round by ID.
func (m *MemoryStore) GetRound(ctx context.Context, roundID string) (*types.Round, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	round, ok := m.rounds[roundID]
	if !ok {
		return nil, types.ErrRoundNotFound
	}
	return &round, nil
}

// GetRoundBets returns all bets owned by a round.
func (m *MemoryStore) GetRoundBets(ctx context.Context, roundID string) ([]types.Bet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bets := m.bets[roundID]
	out := make([]types.Bet, len(bets))
	copy(out, bets)
	return out, nil
}

// GetRecentCompletedRounds returns up to limit completed rounds, most
// recently ended first.
func (m *MemoryStore) GetRecentCompletedRounds(ctx context.Context, limit int) ([]types.Round, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	completed := make([]types.Round, 0, len(m.rounds))
	for _, round := range m.rounds {
		if round.Status == types.RoundCompleted {
			completed = append(completed, round)
		}
	}

	sort.Slice(completed, func(i, j int) bool {
		return completed[i].EndTime.After(completed[j].EndTime)
	})

	if len(completed) > limit {
		completed = completed[:limit]
	}
	return completed, nil
}

// GetAccountBalance returns an account's balance components.
func (m *MemoryStore) GetAccountBalance(ctx context.Context, accountID string) (*types.AccountBalance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	balance, ok := m.balances[accountID]
	if !ok {
		return nil, types.ErrAccountNotFound
	}
	return &balance, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	m.logger.Info("closing-memory-store")
	return nil
}
