package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Provider tags accepted from the forwarding device
const (
	PaymentTitle16216 = "16216"
	PaymentTitleNagad = "NAGAD"
	PaymentTitleBkash = "bKash"
	PaymentTitleUpay  = "upay"
)

// IsKnownPaymentTitle reports whether title is one of the provider tags we store messages for
func IsKnownPaymentTitle(title string) bool {
	switch title {
	case PaymentTitle16216, PaymentTitleNagad, PaymentTitleBkash, PaymentTitleUpay:
		return true
	default:
		return false
	}
}

// PaymentMessage is a verified mobile-money notification parsed from device text
type PaymentMessage struct {
	ID         uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	Amount     decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount"`
	From       string          `gorm:"type:varchar(32);not null" json:"from"`
	TrxID      string          `gorm:"column:trx_id;type:varchar(64);uniqueIndex;not null" json:"trxID"`
	Date       string          `gorm:"type:varchar(20);not null" json:"date"`
	Time       string          `gorm:"type:varchar(20);not null" json:"time"`
	DeviceName string          `gorm:"type:varchar(100)" json:"deviceName"`
	DeviceID   string          `gorm:"type:varchar(100);index" json:"deviceId"`
	Title      string          `gorm:"type:varchar(20);not null;index" json:"title"`
	CreatedAt  time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"createdAt"`
}

func (PaymentMessage) TableName() string { return "payment_messages" }

// PaymentMessageFilter represents filter criteria for payment message queries
type PaymentMessageFilter struct {
	TrxID         *string
	Title         *string
	DeviceID      *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
