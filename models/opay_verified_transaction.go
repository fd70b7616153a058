package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// OpayVerifiedTransaction is a gateway-verified transfer reported by the OPay webhook
type OpayVerifiedTransaction struct {
	ID                  uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	Success             bool            `gorm:"not null;default:false" json:"success"`
	UserIdentifyAddress string          `gorm:"type:varchar(100);index:idx_opay_token_address" json:"userIdentifyAddress"`
	Amount              decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"amount"`
	TrxID               *string         `gorm:"column:trx_id;type:varchar(100);uniqueIndex" json:"trxid,omitempty"`
	Token               string          `gorm:"type:varchar(255);index:idx_opay_token_address" json:"token"`
	Method              string          `gorm:"type:varchar(50)" json:"method"`
	Time                string          `gorm:"type:varchar(50)" json:"time"`
	Raw                 datatypes.JSON  `gorm:"type:jsonb" json:"raw"`
	NotifiedAt          *time.Time      `json:"notified_at,omitempty"`
	CreatedAt           time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (OpayVerifiedTransaction) TableName() string { return "opay_verified_transactions" }

// ShouldNotify reports whether the downstream ledger still has to hear about this transfer
func (o *OpayVerifiedTransaction) ShouldNotify() bool {
	return o.Success && o.Amount.IsPositive() && o.NotifiedAt == nil
}
