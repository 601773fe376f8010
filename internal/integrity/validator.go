package integrity

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wingolabs/roundcore/internal/storage"
	"github.com/wingolabs/roundcore/pkg/types"
	"go.uber.org/zap"
)

// Epsilon is the absolute tolerance for recomputed money aggregates.
const Epsilon = 0.01

// DefaultHealthyPassRatio is the cumulative pass ratio above which the
// validator still reports healthy despite failures. Override via Config.
const DefaultHealthyPassRatio = 0.95

// Publisher pushes reports to the validation-report topic. The push is
// fire-and-forget; it must never block or fail a validation run.
type Publisher interface {
	PublishLocal(env *types.Envelope)
}

// Validator recomputes facts the dispatcher already claims to have
// computed and flags divergence. It trusts nothing it can recompute
// from primary records. Counters and the finding ring are internally
// synchronized; concurrent sweeps are safe.
type Validator struct {
	store     storage.Store
	publisher Publisher
	logger    *zap.Logger
	config    Config

	mu           sync.Mutex
	totalChecks  int64
	passedChecks int64
	findings     *findingLog
}

// Config holds validator configuration.
type Config struct {
	RoundSample      int     // completed rounds per comprehensive sweep
	BetsPerRound     int     // bets sampled per round
	HealthyPassRatio float64 // cumulative pass ratio considered healthy
	Logger           *zap.Logger
}

// CheckResult is the outcome of one validation operation. A missing
// subject is a soft failure: Valid is false and Reason explains why,
// but no error is raised so scanning loops continue.
type CheckResult struct {
	Valid    bool
	Skipped  bool
	Reason   string
	Findings []types.ValidationFinding
}

// New creates a validator over the given store. publisher may be nil.
func New(cfg Config, store storage.Store, publisher Publisher) *Validator {
	if cfg.RoundSample <= 0 {
		cfg.RoundSample = 10
	}
	if cfg.BetsPerRound <= 0 {
		cfg.BetsPerRound = 20
	}
	if cfg.HealthyPassRatio <= 0 || cfg.HealthyPassRatio > 1 {
		cfg.HealthyPassRatio = DefaultHealthyPassRatio
	}

	return &Validator{
		store:     store,
		publisher: publisher,
		logger:    cfg.Logger,
		config:    cfg,
		findings:  newFindingLog(ringCapacity, reportWindow),
	}
}

// ValidateRoundResult recomputes a completed round's derived values
// and aggregates from primary records and flags any stored value that
// disagrees. Active and cancelled rounds are skipped: an active round
// is not yet a defect and a cancelled one legitimately never settles.
func (v *Validator) ValidateRoundResult(ctx context.Context, roundID string) CheckResult {
	round, err := v.store.GetRound(ctx, roundID)
	if err != nil {
		return v.softFail(types.CategoryRoundResult, roundID, fmt.Sprintf("round lookup failed: %v", err))
	}

	switch round.Status {
	case types.RoundActive:
		return CheckResult{Valid: true, Skipped: true, Reason: "round still active"}
	case types.RoundCancelled:
		return CheckResult{Valid: true, Skipped: true, Reason: "round cancelled"}
	}

	var findings []types.ValidationFinding

	if round.Result == nil {
		findings = append(findings, v.newFinding(
			types.CategoryRoundResult, types.SeverityCritical, round.ID,
			"completed round has no result",
			"0-9", "nil",
		))
		return v.record(round.ID, findings)
	}

	result := *round.Result
	if result < 0 || result > 9 {
		findings = append(findings, v.newFinding(
			types.CategoryRoundResult, types.SeverityCritical, round.ID,
			"round result outside valid range",
			"0-9", fmt.Sprintf("%d", result),
		))
		// A nonsense result makes the derived checks meaningless.
		return v.record(round.ID, findings)
	}

	if expected := types.ResultColor(result); round.ResultColor != expected {
		findings = append(findings, v.newFinding(
			types.CategoryRoundResult, types.SeverityCritical, round.ID,
			fmt.Sprintf("stored result color disagrees with result %d", result),
			expected, round.ResultColor,
		))
	}

	if expected := types.ResultSize(result); round.ResultSize != expected {
		findings = append(findings, v.newFinding(
			types.CategoryRoundResult, types.SeverityCritical, round.ID,
			fmt.Sprintf("stored result size disagrees with result %d", result),
			expected, round.ResultSize,
		))
	}

	bets, err := v.store.GetRoundBets(ctx, round.ID)
	if err != nil {
		return v.softFail(types.CategoryBet, round.ID, fmt.Sprintf("bet lookup failed: %v", err))
	}

	var expectedTotal float64
	for _, bet := range bets {
		if bet.Status != types.BetCancelled {
			expectedTotal += bet.Amount
		}
	}

	if math.Abs(round.TotalBetsAmount-expectedTotal) > Epsilon {
		findings = append(findings, v.newFinding(
			types.CategoryBet, types.SeverityHigh, round.ID,
			"stored bet total disagrees with sum of bet amounts",
			fmt.Sprintf("%.2f", expectedTotal), fmt.Sprintf("%.2f", round.TotalBetsAmount),
		))
	}

	expectedProfit := round.TotalBetsAmount - round.TotalPayouts
	if math.Abs(round.HouseProfit-expectedProfit) > Epsilon {
		findings = append(findings, v.newFinding(
			types.CategoryPayout, types.SeverityHigh, round.ID,
			"stored house profit disagrees with bets minus payouts",
			fmt.Sprintf("%.2f", expectedProfit), fmt.Sprintf("%.2f", round.HouseProfit),
		))
	}

	return v.record(round.ID, findings)
}

// ValidateAccountBalance flags a negative balance as critical and any
// negative monotone accumulator as high severity.
func (v *Validator) ValidateAccountBalance(ctx context.Context, accountID string) CheckResult {
	balance, err := v.store.GetAccountBalance(ctx, accountID)
	if err != nil {
		return v.softFail(types.CategoryBalance, accountID, fmt.Sprintf("account lookup failed: %v", err))
	}

	var findings []types.ValidationFinding

	if balance.Balance < 0 {
		findings = append(findings, v.newFinding(
			types.CategoryBalance, types.SeverityCritical, accountID,
			"account balance is negative",
			">= 0", fmt.Sprintf("%.2f", balance.Balance),
		))
	}

	accumulators := []struct {
		name     string
		value    float64
		category types.FindingCategory
	}{
		{"totalDeposits", balance.TotalDeposits, types.CategoryBalance},
		{"totalWithdrawals", balance.TotalWithdrawals, types.CategoryBalance},
		{"totalWinnings", balance.TotalWinnings, types.CategoryBalance},
		{"totalLosses", balance.TotalLosses, types.CategoryBalance},
		{"totalCommission", balance.TotalCommission, types.CategoryCommission},
	}

	for _, acc := range accumulators {
		if acc.value < 0 {
			findings = append(findings, v.newFinding(
				acc.category, types.SeverityHigh, accountID,
				fmt.Sprintf("accumulator %s is negative", acc.name),
				">= 0", fmt.Sprintf("%.2f", acc.value),
			))
		}
	}

	return v.record(accountID, findings)
}

// validateBet checks one settled bet's payout coherence.
func (v *Validator) validateBet(bet *types.Bet) CheckResult {
	var findings []types.ValidationFinding

	if bet.Amount <= 0 {
		findings = append(findings, v.newFinding(
			types.CategoryBet, types.SeverityHigh, bet.ID,
			"bet amount is not positive",
			"> 0", fmt.Sprintf("%.2f", bet.Amount),
		))
	}

	switch bet.Status {
	case types.BetWon:
		if math.Abs(bet.ActualPayout-bet.PotentialPayout) > Epsilon {
			findings = append(findings, v.newFinding(
				types.CategoryPayout, types.SeverityHigh, bet.ID,
				"winning bet payout disagrees with potential payout",
				fmt.Sprintf("%.2f", bet.PotentialPayout), fmt.Sprintf("%.2f", bet.ActualPayout),
			))
		}
	case types.BetLost:
		if bet.ActualPayout != 0 {
			findings = append(findings, v.newFinding(
				types.CategoryPayout, types.SeverityHigh, bet.ID,
				"losing bet has a non-zero payout",
				"0.00", fmt.Sprintf("%.2f", bet.ActualPayout),
			))
		}
	}

	return v.record(bet.ID, findings)
}

// RunComprehensiveValidation re-validates the most recent completed
// rounds and a bounded sample of their bets, then produces and
// publishes a cumulative report. Safe to invoke concurrently.
func (v *Validator) RunComprehensiveValidation(ctx context.Context) *types.ValidationReport {
	start := time.Now()
	v.logger.Info("comprehensive-validation-starting",
		zap.Int("round-sample", v.config.RoundSample),
		zap.Int("bets-per-round", v.config.BetsPerRound))

	rounds, err := v.store.GetRecentCompletedRounds(ctx, v.config.RoundSample)
	if err != nil {
		// The sweep itself degrades to an empty pass; counters are
		// untouched so the next sweep stays consistent.
		v.logger.Error("recent-rounds-lookup-failed", zap.Error(err))
		rounds = nil
	}

	for i := range rounds {
		round := &rounds[i]

		v.ValidateRoundResult(ctx, round.ID)

		bets, err := v.store.GetRoundBets(ctx, round.ID)
		if err != nil {
			v.logger.Warn("bet-lookup-failed",
				zap.String("round-id", round.ID),
				zap.Error(err))
			continue
		}

		sample := bets
		if len(sample) > v.config.BetsPerRound {
			sample = sample[:v.config.BetsPerRound]
		}
		for j := range sample {
			v.validateBet(&sample[j])
		}
	}

	report := v.Report()
	SweepDurationSeconds.Observe(time.Since(start).Seconds())

	v.logger.Info("comprehensive-validation-complete",
		zap.Int64("total-checks", report.TotalChecks),
		zap.Int64("passed-checks", report.PassedChecks),
		zap.Bool("healthy", report.Healthy))

	v.publish(report)

	return report
}

// publish pushes a report to the validation-report topic. PublishLocal
// never blocks, so a slow observer cannot stall a sweep.
func (v *Validator) publish(report *types.ValidationReport) {
	if v.publisher == nil {
		return
	}

	v.publisher.PublishLocal(&types.Envelope{
		Type:   types.EventValidationReport,
		Report: report,
	})
}

// Report snapshots the cumulative counters, the recent finding window
// and the health flag.
func (v *Validator) Report() *types.ValidationReport {
	v.mu.Lock()
	total := v.totalChecks
	passed := v.passedChecks
	v.mu.Unlock()

	failed := total - passed

	healthy := failed == 0
	if !healthy && total > 0 {
		healthy = float64(passed)/float64(total) > v.config.HealthyPassRatio
	}

	return &types.ValidationReport{
		TotalChecks:  total,
		PassedChecks: passed,
		FailedChecks: failed,
		Healthy:      healthy,
		Findings:     v.findings.recent(),
		GeneratedAt:  time.Now(),
	}
}

// Healthy reports the current health flag, fed to the liveness probe.
func (v *Validator) Healthy() bool {
	return v.Report().Healthy
}

// ResetCounters zeroes the cumulative counters. Counters only move
// forward otherwise.
func (v *Validator) ResetCounters() {
	v.mu.Lock()
	v.totalChecks = 0
	v.passedChecks = 0
	v.mu.Unlock()

	v.logger.Info("validation-counters-reset")
}

// record books one completed check and its findings.
func (v *Validator) record(entityID string, findings []types.ValidationFinding) CheckResult {
	passed := len(findings) == 0

	v.mu.Lock()
	v.totalChecks++
	if passed {
		v.passedChecks++
	}
	v.mu.Unlock()

	for _, f := range findings {
		v.findings.append(f)
		FindingsTotal.WithLabelValues(string(f.Category), string(f.Severity)).Inc()
		v.logger.Warn("integrity-finding",
			zap.String("category", string(f.Category)),
			zap.String("severity", string(f.Severity)),
			zap.String("entity-id", f.EntityID),
			zap.String("expected", f.Expected),
			zap.String("actual", f.Actual),
			zap.String("description", f.Description))
	}

	if passed {
		ChecksTotal.WithLabelValues("passed").Inc()
		return CheckResult{Valid: true}
	}

	ChecksTotal.WithLabelValues("failed").Inc()
	return CheckResult{Valid: false, Findings: findings}
}

// softFail books a failed check for a subject that could not be
// loaded. The loop never aborts on one bad entity.
func (v *Validator) softFail(category types.FindingCategory, entityID, reason string) CheckResult {
	v.logger.Warn("validation-soft-failure",
		zap.String("category", string(category)),
		zap.String("entity-id", entityID),
		zap.String("reason", reason))

	v.mu.Lock()
	v.totalChecks++
	v.mu.Unlock()

	ChecksTotal.WithLabelValues("soft_failed").Inc()

	return CheckResult{Valid: false, Reason: reason}
}

func (v *Validator) newFinding(
	category types.FindingCategory,
	severity types.Severity,
	entityID, description, expected, actual string,
) types.ValidationFinding {
	return types.ValidationFinding{
		ID:          uuid.New().String(),
		Timestamp:   time.Now(),
		Category:    category,
		Severity:    severity,
		Description: description,
		Expected:    expected,
		Actual:      actual,
		EntityID:    entityID,
	}
}
