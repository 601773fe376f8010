package types

import (
	"time"
)

// RoundStatus represents the lifecycle state of a round.
type RoundStatus string

const (
	RoundActive    RoundStatus = "active"
	RoundCompleted RoundStatus = "completed"
	RoundCancelled RoundStatus = "cancelled"
)

// BetStatus represents the settlement state of a bet.
type BetStatus string

const (
	BetPending   BetStatus = "pending"
	BetWon       BetStatus = "won"
	BetLost      BetStatus = "lost"
	BetCashedOut BetStatus = "cashed_out"
	BetCancelled BetStatus = "cancelled"
)

// Round represents one instance of a timed wagering round.
// EndTime is server-assigned and authoritative; clients derive all
// countdown state from it rather than from their own clocks.
type Round struct {
	ID              string      `json:"id"`
	Duration        int         `json:"duration"` // duration class in minutes: 1, 3, 5 or 10
	StartTime       time.Time   `json:"startTime"`
	EndTime         time.Time   `json:"endTime"`
	Status          RoundStatus `json:"status"`
	Result          *int        `json:"result"` // 0-9, nil until completed
	ResultColor     string      `json:"resultColor"`
	ResultSize      string      `json:"resultSize"`
	TotalBetsAmount float64     `json:"totalBetsAmount"`
	TotalPayouts    float64     `json:"totalPayouts"`
	HouseProfit     float64     `json:"houseProfit"`
}

// Bet represents a single wager owned by exactly one round.
// Immutable once Status leaves pending.
type Bet struct {
	ID              string    `json:"id"`
	OwnerID         string    `json:"ownerId"`
	RoundID         string    `json:"roundId"`
	Type            string    `json:"type"` // "color", "number" or "size"
	Value           string    `json:"value"`
	Amount          float64   `json:"amount"`
	PotentialPayout float64   `json:"potentialPayout"`
	ActualPayout    float64   `json:"actualPayout"`
	Status          BetStatus `json:"status"`
	PlacedAt        time.Time `json:"placedAt"`
}

// AccountBalance holds the monotonically accumulated balance components
// for a single account. All components must stay >= 0.
type AccountBalance struct {
	AccountID        string  `json:"accountId"`
	Balance          float64 `json:"balance"`
	TotalDeposits    float64 `json:"totalDeposits"`
	TotalWithdrawals float64 `json:"totalWithdrawals"`
	TotalWinnings    float64 `json:"totalWinnings"`
	TotalLosses      float64 `json:"totalLosses"`
	TotalCommission  float64 `json:"totalCommission"`
}

// Result color and size values.
const (
	ColorViolet = "violet"
	ColorGreen  = "green"
	ColorRed    = "red"

	SizeBig   = "big"
	SizeSmall = "small"
)

// ResultColor maps a settled result digit to its color.
// 0 and 5 are violet, odd non-5 digits (1,3,7,9) are green, the rest red.
func ResultColor(result int) string {
	switch {
	case result == 0 || result == 5:
		return ColorViolet
	case result == 1 || result == 3 || result == 7 || result == 9:
		return ColorGreen
	default:
		return ColorRed
	}
}

// ResultSize maps a settled result digit to its size bucket.
func ResultSize(result int) string {
	if result >= 5 {
		return SizeBig
	}
	return SizeSmall
}
