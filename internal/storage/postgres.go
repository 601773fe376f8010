package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/wingolabs/roundcore/pkg/types"
	"go.uber.org/zap"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStore creates a new PostgreSQL store.
func NewPostgresStore(cfg *PostgresConfig) (*PostgresStore, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-store-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStore{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

// NewPostgresStoreWithDB wraps an existing connection. Used by tests.
func NewPostgresStoreWithDB(db *sql.DB, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

const roundColumns = `id, duration, start_time, end_time, status, result,
		result_color, result_size, total_bets_amount, total_payouts, house_profit`

// GetRound returns a round by ID.
func (p *PostgresStore) GetRound(ctx context.Context, roundID string) (*types.Round, error) {
	query := `SELECT ` + roundColumns + ` FROM rounds WHERE id = $1`

	round, err := scanRound(p.db.QueryRowContext(ctx, query, roundID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrRoundNotFound
		}
		return nil, fmt.Errorf("query round: %w", err)
	}

	return round, nil
}

// GetRoundBets returns all bets owned by a round.
func (p *PostgresStore) GetRoundBets(ctx context.Context, roundID string) ([]types.Bet, error) {
	query := `
		SELECT id, owner_id, round_id, bet_type, bet_value, amount,
			potential_payout, actual_payout, status, placed_at
		FROM bets
		WHERE round_id = $1
		ORDER BY placed_at ASC
	`

	rows, err := p.db.QueryContext(ctx, query, roundID)
	if err != nil {
		return nil, fmt.Errorf("query round bets: %w", err)
	}
	defer rows.Close()

	var bets []types.Bet
	for rows.Next() {
		var bet types.Bet
		err = rows.Scan(
			&bet.ID,
			&bet.OwnerID,
			&bet.RoundID,
			&bet.Type,
			&bet.Value,
			&bet.Amount,
			&bet.PotentialPayout,
			&bet.ActualPayout,
			&bet.Status,
			&bet.PlacedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan bet: %w", err)
		}
		bets = append(bets, bet)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate bets: %w", err)
	}

	return bets, nil
}

// GetRecentCompletedRounds returns up to limit completed rounds, most
// recently ended first.
func (p *PostgresStore) GetRecentCompletedRounds(ctx context.Context, limit int) ([]types.Round, error) {
	query := `SELECT ` + roundColumns + `
		FROM rounds
		WHERE status = 'completed'
		ORDER BY end_time DESC
		LIMIT $1`

	rows, err := p.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query completed rounds: %w", err)
	}
	defer rows.Close()

	var rounds []types.Round
	for rows.Next() {
		round, err := scanRound(rows)
		if err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		rounds = append(rounds, *round)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate rounds: %w", err)
	}

	return rounds, nil
}

// GetAccountBalance returns an account's balance components.
func (p *PostgresStore) GetAccountBalance(ctx context.Context, accountID string) (*types.AccountBalance, error) {
	query := `
		SELECT account_id, balance, total_deposits, total_withdrawals,
			total_winnings, total_losses, total_commission
		FROM account_balances
		WHERE account_id = $1
	`

	var balance types.AccountBalance
	err := p.db.QueryRowContext(ctx, query, accountID).Scan(
		&balance.AccountID,
		&balance.Balance,
		&balance.TotalDeposits,
		&balance.TotalWithdrawals,
		&balance.TotalWinnings,
		&balance.TotalLosses,
		&balance.TotalCommission,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrAccountNotFound
		}
		return nil, fmt.Errorf("query account balance: %w", err)
	}

	return &balance, nil
}

// Close closes the database connection.
func (p *PostgresStore) Close() error {
	p.logger.Info("closing-postgres-store")
	return p.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRound(row rowScanner) (*types.Round, error) {
	var round types.Round
	var result sql.NullInt64

	err := row.Scan(
		&round.ID,
		&round.Duration,
		&round.StartTime,
		&round.EndTime,
		&round.Status,
		&result,
		&round.ResultColor,
		&round.ResultSize,
		&round.TotalBetsAmount,
		&round.TotalPayouts,
		&round.HouseProfit,
	)
	if err != nil {
		return nil, err
	}

	if result.Valid {
		n := int(result.Int64)
		round.Result = &n
	}

	return &round, nil
}
