package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TurnoverStatus is the state of a wagering requirement
type TurnoverStatus string

const (
	TurnoverStatusActive    TurnoverStatus = "active"
	TurnoverStatusCompleted TurnoverStatus = "completed"
	TurnoverStatusExpired   TurnoverStatus = "expired"
	TurnoverStatusCancelled TurnoverStatus = "cancelled"
)

// DepositTurnover is the wagering requirement opened by a completed deposit
type DepositTurnover struct {
	ID                   uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID            uint            `gorm:"not null;index:idx_turnover_account_status" json:"account_id"`
	DepositTransactionID uint            `gorm:"not null;uniqueIndex" json:"deposit_transaction_id"`
	DepositAmount        decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"deposit_amount"`
	BonusAmount          decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"bonus_amount"`
	TotalCreditedAmount  decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"total_credited_amount"`
	TurnoverMultiplier   decimal.Decimal `gorm:"type:numeric(7,2);not null;default:1" json:"turnover_multiplier"`
	RequiredTurnover     decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"required_turnover"`
	CompletedTurnover    decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"completed_turnover"`
	RemainingTurnover    decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"remaining_turnover"`
	Status               TurnoverStatus  `gorm:"type:varchar(20);not null;default:'active';index:idx_turnover_account_status" json:"status"`
	CompletedAt          *time.Time      `json:"completed_at,omitempty"`
	CreatedAt            time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt            time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	DepositTransaction *DepositTransaction `gorm:"foreignKey:DepositTransactionID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (DepositTurnover) TableName() string { return "deposit_turnovers" }

// NewDepositTurnover builds an active requirement of (deposit + bonus) × multiplier
func NewDepositTurnover(accountID, depositTxID uint, deposit, bonus, multiplier decimal.Decimal) *DepositTurnover {
	total := deposit.Add(bonus)
	required := total.Mul(multiplier).Round(2)
	return &DepositTurnover{
		AccountID:            accountID,
		DepositTransactionID: depositTxID,
		DepositAmount:        deposit,
		BonusAmount:          bonus,
		TotalCreditedAmount:  total,
		TurnoverMultiplier:   multiplier,
		RequiredTurnover:     required,
		CompletedTurnover:    decimal.Zero,
		RemainingTurnover:    required,
		Status:               TurnoverStatusActive,
	}
}

// Advance adds |amount| to the completed turnover and closes the requirement when met.
// It reports whether the record changed.
func (t *DepositTurnover) Advance(amount decimal.Decimal, now time.Time) bool {
	if t.Status != TurnoverStatusActive || !t.RemainingTurnover.IsPositive() {
		return false
	}
	t.CompletedTurnover = t.CompletedTurnover.Add(amount.Abs())
	remaining := t.RequiredTurnover.Sub(t.CompletedTurnover)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	t.RemainingTurnover = remaining
	if remaining.IsZero() {
		t.Status = TurnoverStatusCompleted
		t.CompletedAt = &now
	}
	return true
}

// DepositTurnoverFilter represents filter criteria for turnover queries
type DepositTurnoverFilter struct {
	AccountID *uint
	Status    *TurnoverStatus
}
