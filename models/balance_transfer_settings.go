package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// TransferRule bounds transfers out of one commission bucket
type TransferRule struct {
	Enabled   bool            `json:"enabled"`
	MinAmount decimal.Decimal `json:"min_amount"`
	MaxAmount decimal.Decimal `json:"max_amount"`
}

// Allows reports whether amount is inside the rule's bounds. A zero max means no upper bound.
func (r TransferRule) Allows(amount decimal.Decimal) bool {
	if amount.LessThan(r.MinAmount) {
		return false
	}
	if r.MaxAmount.IsPositive() && amount.GreaterThan(r.MaxAmount) {
		return false
	}
	return true
}

// TransferRules maps each transferable bucket to its rule
type TransferRules map[CommissionBucket]TransferRule

// BalanceTransferSettings is the admin-configured singleton row
type BalanceTransferSettings struct {
	ID        uint                              `gorm:"primaryKey" json:"id"`
	Rules     datatypes.JSONType[TransferRules] `gorm:"type:jsonb;not null" json:"rules"`
	UpdatedBy *uint                             `json:"updated_by,omitempty"`
	CreatedAt time.Time                         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time                         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (BalanceTransferSettings) TableName() string { return "balance_transfer_settings" }

// BalanceTransferSettingsID is the primary key of the singleton row
const BalanceTransferSettingsID uint = 1

// Rule returns the rule for a bucket; an absent rule is disabled
func (s *BalanceTransferSettings) Rule(b CommissionBucket) TransferRule {
	if s == nil {
		return TransferRule{}
	}
	return s.Rules.Data()[b]
}
