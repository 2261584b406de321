package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Frequency is how often an obligation recurs.
type Frequency string

const (
	FrequencyOneTime   Frequency = "one_time"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
	FrequencyCustom    Frequency = "custom"
)

// State is the obligation lifecycle.
type State string

const (
	StateOpen      State = "open"
	StatePaid      State = "paid"
	StateOverdue   State = "overdue"
	StateCancelled State = "cancelled"
)

func ValidFrequency(f Frequency) bool {
	switch f {
	case FrequencyOneTime, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly, FrequencyCustom:
		return true
	}
	return false
}

func ValidState(s State) bool {
	switch s {
	case StateOpen, StatePaid, StateOverdue, StateCancelled:
		return true
	}
	return false
}

// Obligation represents a row in the `obligations` table.
type Obligation struct {
	ID              int64           `db:"id"`
	UserID          int64           `db:"user_id"`
	Title           string          `db:"title"`
	AmountTotal     decimal.Decimal `db:"amount_total"`
	AmountRemaining decimal.Decimal `db:"amount_remaining"`
	Currency        string          `db:"currency"`
	DueDate         time.Time       `db:"due_date"`
	Frequency       Frequency       `db:"frequency"`
	State           State           `db:"state"`
	CreatedAt       time.Time       `db:"created_at"`
}
