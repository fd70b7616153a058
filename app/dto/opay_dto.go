package dto

import "github.com/shopspring/decimal"

// OpayCallbackRequest is the verification webhook body posted by the gateway
type OpayCallbackRequest struct {
	Success             bool            `json:"success"`
	UserIdentifyAddress string          `json:"userIdentifyAddress"`
	Amount              decimal.Decimal `json:"amount"`
	TrxID               *string         `json:"trxid"`
	Token               string          `json:"token"`
	Method              string          `json:"method"`
	Time                string          `json:"time"`
}

type OpayCallbackResponse struct {
	Success bool `json:"success"`
}

// OpayDepositConfirmRequest credits a gateway-verified deposit to an account
type OpayDepositConfirmRequest struct {
	Username string          `json:"username" validate:"required,max=100" example:"player01"`
	Amount   decimal.Decimal `json:"amount" swaggertype:"string" example:"500"`
	TrxID    string          `json:"trxid" validate:"required,max=100" example:"OP12345"`
	Method   string          `json:"method" validate:"omitempty,max=50" example:"bkash"`
	APIKey   string          `json:"-"` // injected from the X-API-Key header
}

type OpayDepositConfirmResponse struct {
	DepositTransactionID string `json:"deposit_transaction_id"`
	Status               string `json:"status"`
	Amount               string `json:"amount"`
	Bonus                string `json:"bonus"`
	AlreadyProcessed     bool   `json:"already_processed"`
}
