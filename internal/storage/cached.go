package storage

import (
	"context"
	"time"

	"github.com/wingolabs/roundcore/pkg/cache"
	"github.com/wingolabs/roundcore/pkg/types"
	"go.uber.org/zap"
)

// CachedStore is a read-through cache in front of another Store.
// Only completed rounds and their bets are cached: a completed round is
// never mutated again (outside corrective auto-fix), so repeated
// validation sweeps over the same recent rounds can skip the database.
type CachedStore struct {
	inner  Store
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedStore wraps inner with a cache.
func NewCachedStore(inner Store, c cache.Cache, ttl time.Duration, logger *zap.Logger) *CachedStore {
	return &CachedStore{
		inner:  inner,
		cache:  c,
		ttl:    ttl,
		logger: logger,
	}
}

// GetRound returns a round by ID, serving completed rounds from cache.
func (s *CachedStore) GetRound(ctx context.Context, roundID string) (*types.Round, error) {
	key := "round:" + roundID
	if v, found := s.cache.Get(key); found {
		if round, ok := v.(*types.Round); ok {
			return round, nil
		}
	}

	round, err := s.inner.GetRound(ctx, roundID)
	if err != nil {
		return nil, err
	}

	if round.Status == types.RoundCompleted {
		s.cache.Set(key, round, s.ttl)
	}

	return round, nil
}

// GetRoundBets returns a round's bets, cached once the round completes.
func (s *CachedStore) GetRoundBets(ctx context.Context, roundID string) ([]types.Bet, error) {
	key := "bets:" + roundID
	if v, found := s.cache.Get(key); found {
		if bets, ok := v.([]types.Bet); ok {
			return bets, nil
		}
	}

	bets, err := s.inner.GetRoundBets(ctx, roundID)
	if err != nil {
		return nil, err
	}

	// Cache only when the owning round is already frozen.
	round, roundErr := s.GetRound(ctx, roundID)
	if roundErr == nil && round.Status == types.RoundCompleted {
		s.cache.Set(key, bets, s.ttl)
	}

	return bets, nil
}

// GetRecentCompletedRounds is never cached: the result set shifts with
// every settled round.
func (s *CachedStore) GetRecentCompletedRounds(ctx context.Context, limit int) ([]types.Round, error) {
	return s.inner.GetRecentCompletedRounds(ctx, limit)
}

// GetAccountBalance is never cached: balances are live mutable state.
func (s *CachedStore) GetAccountBalance(ctx context.Context, accountID string) (*types.AccountBalance, error) {
	return s.inner.GetAccountBalance(ctx, accountID)
}

// Invalidate drops cached entries for a round, used after a corrective
// auto-fix touches a completed round.
func (s *CachedStore) Invalidate(roundID string) {
	s.cache.Delete("round:" + roundID)
	s.cache.Delete("bets:" + roundID)
	s.logger.Debug("cache-invalidated", zap.String("round-id", roundID))
}

// InvalidateAll drops every cached entry, used when the dispatcher
// signals that cached aggregate views are stale.
func (s *CachedStore) InvalidateAll() {
	s.cache.Clear()
	s.logger.Debug("cache-cleared")
}

// Close closes the cache and then the underlying store.
func (s *CachedStore) Close() error {
	s.cache.Close()
	return s.inner.Close()
}
