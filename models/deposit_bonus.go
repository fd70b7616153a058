package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DepositBonus is an admin-configured deposit promotion
type DepositBonus struct {
	ID                 uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	Title              string          `gorm:"type:varchar(255);not null" json:"title"`
	BonusType          BonusType       `gorm:"type:varchar(20);not null" json:"bonus_type"`
	Bonus              decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"bonus"`
	TurnoverMultiplier decimal.Decimal `gorm:"type:numeric(7,2);not null;default:1" json:"turnover_multiplier"`
	MinDeposit         decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"min_deposit"`
	IsActive           *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt          time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (DepositBonus) TableName() string { return "deposit_bonuses" }

// Snapshot freezes the bonus terms onto a deposit
func (b *DepositBonus) Snapshot() PromotionBonus {
	return PromotionBonus{
		BonusType:          b.BonusType,
		Bonus:              b.Bonus,
		TurnoverMultiplier: b.TurnoverMultiplier,
	}
}
