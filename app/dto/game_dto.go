package dto

import "github.com/shopspring/decimal"

// GameCallbackRequest is a BET or SETTLE notification from a game provider
type GameCallbackRequest struct {
	Username        string          `json:"username" validate:"required,max=100"`
	ProviderCode    string          `json:"provider_code" validate:"omitempty,max=50"`
	Amount          decimal.Decimal `json:"amount"`
	GameCode        string          `json:"game_code" validate:"omitempty,max=100"`
	BetType         string          `json:"bet_type" validate:"required,oneof=BET SETTLE"`
	TransactionID   string          `json:"transaction_id" validate:"required,max=100"`
	VerificationKey string          `json:"verification_key" validate:"required"`
	Times           *string         `json:"times,omitempty"`
}

// GameCallbackResponse returns the balance after the callback was applied
type GameCallbackResponse struct {
	Username  string `json:"username"`
	Balance   string `json:"balance"`
	Duplicate bool   `json:"duplicate"`
}

// GameRefundRequest returns a stake to the player
type GameRefundRequest struct {
	Username        string          `json:"username" validate:"required,max=100"`
	TransactionID   string          `json:"transaction_id" validate:"required,max=100"`
	Amount          decimal.Decimal `json:"amount"`
	ProviderCode    string          `json:"provider_code" validate:"omitempty,max=50"`
	VerificationKey string          `json:"verification_key" validate:"required"`
	Reason          *string         `json:"reason,omitempty" validate:"omitempty,max=500"`
}
