package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RefundHistory is a provider refund credited back to an account
type RefundHistory struct {
	ID            uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID     uint            `gorm:"not null;index" json:"account_id"`
	TransactionID string          `gorm:"type:varchar(100);not null;uniqueIndex" json:"transaction_id"`
	ProviderCode  string          `gorm:"type:varchar(50)" json:"provider_code"`
	Amount        decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount"`
	Reason        *string         `gorm:"type:text" json:"reason,omitempty"`
	CreatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (RefundHistory) TableName() string { return "refund_histories" }
