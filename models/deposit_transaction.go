package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DepositStatus is the lifecycle state of a deposit transaction
type DepositStatus string

const (
	DepositStatusPending   DepositStatus = "pending"
	DepositStatusCompleted DepositStatus = "completed"
	DepositStatusFailed    DepositStatus = "failed"
	DepositStatusCancelled DepositStatus = "cancelled"
)

// Valid checks if the status is valid.
func (s DepositStatus) Valid() bool {
	switch s {
	case DepositStatusPending, DepositStatusCompleted, DepositStatusFailed, DepositStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether a deposit may move from s to next.
// Only pending deposits move, and only to a final state.
func (s DepositStatus) CanTransitionTo(next DepositStatus) bool {
	if s != DepositStatusPending {
		return false
	}
	switch next {
	case DepositStatusCompleted, DepositStatusFailed, DepositStatusCancelled:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for DepositStatus.
func (s *DepositStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = DepositStatus(v)
	case []byte:
		*s = DepositStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into DepositStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for DepositStatus.
func (s DepositStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid DepositStatus: %s", s)
	}
	return string(s), nil
}

// DepositSource records which path created the deposit
type DepositSource string

const (
	DepositSourceManual      DepositSource = "manual"
	DepositSourceAutoPayment DepositSource = "auto_payment"
	DepositSourceOpay        DepositSource = "opay"
)

// BonusType is how a promotion bonus is applied to a deposit
type BonusType string

const (
	BonusTypeFix        BonusType = "Fix"
	BonusTypePercentage BonusType = "Percentage"
)

// UserInput is one field the depositor filled in; the first one carries the external trxID
type UserInput struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Label string `json:"label"`
	Type  string `json:"type"`
}

// PromotionBonus is the bonus snapshot taken when the deposit was created
type PromotionBonus struct {
	BonusType          BonusType       `json:"bonus_type"`
	Bonus              decimal.Decimal `json:"bonus"`
	TurnoverMultiplier decimal.Decimal `json:"turnover_multiplier"`
}

// BonusAmount returns the bonus credited on top of amount
func (p PromotionBonus) BonusAmount(amount decimal.Decimal) decimal.Decimal {
	if !p.Bonus.IsPositive() {
		return decimal.Zero
	}
	switch p.BonusType {
	case BonusTypeFix:
		return p.Bonus
	case BonusTypePercentage:
		return amount.Mul(p.Bonus).Div(decimal.NewFromInt(100)).Round(2)
	default:
		return decimal.Zero
	}
}

// DepositTransaction is a customer deposit awaiting or having received settlement
type DepositTransaction struct {
	ID             uint                               `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID           uuid.UUID                          `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`
	AccountID      uint                               `gorm:"not null;index" json:"account_id"`
	Amount         decimal.Decimal                    `gorm:"type:numeric(20,2);not null" json:"amount"`
	Status         DepositStatus                      `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Source         DepositSource                      `gorm:"type:varchar(20);not null;default:'manual'" json:"source"`
	PaymentMethod  string                             `gorm:"type:varchar(50)" json:"payment_method"`
	UserInputs     datatypes.JSONSlice[UserInput]     `gorm:"type:jsonb" json:"user_inputs"`
	PromotionBonus datatypes.JSONType[PromotionBonus] `gorm:"type:jsonb" json:"promotion_bonus"`
	ExternalTrxID  *string                            `gorm:"type:varchar(100);uniqueIndex" json:"external_trx_id,omitempty"`
	Reason         *string                            `gorm:"type:text" json:"reason,omitempty"`
	CompletedAt    *time.Time                         `json:"completed_at,omitempty"`
	CreatedAt      time.Time                          `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt      time.Time                          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Account *Account `gorm:"foreignKey:AccountID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (DepositTransaction) TableName() string { return "deposit_transactions" }

// BeforeCreate ensures UUID is set
func (d *DepositTransaction) BeforeCreate(tx *gorm.DB) error {
	if d.UUID == uuid.Nil {
		d.UUID = uuid.New()
	}
	return nil
}

// ClaimedTrxID returns the external transaction id the depositor typed in, if any
func (d *DepositTransaction) ClaimedTrxID() string {
	if len(d.UserInputs) == 0 {
		return ""
	}
	return d.UserInputs[0].Value
}

// IsPending returns true if the deposit has not been settled yet
func (d *DepositTransaction) IsPending() bool {
	return d.Status == DepositStatusPending
}

// DepositTransactionFilter represents filter criteria for deposit transaction queries
type DepositTransactionFilter struct {
	AccountID     *uint
	Status        *DepositStatus
	Source        *DepositSource
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
