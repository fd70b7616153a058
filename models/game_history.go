package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BetType is the kind of provider callback
type BetType string

const (
	BetTypeBet    BetType = "BET"
	BetTypeSettle BetType = "SETTLE"
)

// Valid checks if the bet type is valid.
func (b BetType) Valid() bool {
	return b == BetTypeBet || b == BetTypeSettle
}

// GameStatus is the outcome recorded against a game history row
type GameStatus string

const (
	GameStatusPending  GameStatus = "pending"
	GameStatusWon      GameStatus = "won"
	GameStatusLost     GameStatus = "lost"
	GameStatusRefunded GameStatus = "refunded"
)

// GameHistory is one provider callback applied to an account
type GameHistory struct {
	ID            uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID     uint            `gorm:"not null;index" json:"account_id"`
	TransactionID string          `gorm:"type:varchar(100);not null;uniqueIndex:uk_game_history_tx_type" json:"transaction_id"`
	BetType       BetType         `gorm:"type:varchar(10);not null;uniqueIndex:uk_game_history_tx_type" json:"bet_type"`
	ProviderCode  string          `gorm:"type:varchar(50)" json:"provider_code"`
	GameCode      string          `gorm:"type:varchar(100)" json:"game_code"`
	Amount        decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount"`
	Status        GameStatus      `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Times         *string         `gorm:"type:varchar(50)" json:"times,omitempty"`
	CreatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (GameHistory) TableName() string { return "game_histories" }
