package dto

// UserInputDTO is one field of the deposit form; the first one carries the provider trxID
type UserInputDTO struct {
	Name  string `json:"name" validate:"required,max=100" example:"trxID"`
	Value string `json:"value" validate:"required,max=255" example:"9AB1CD2EF3"`
	Label string `json:"label" validate:"omitempty,max=255" example:"Transaction ID"`
	Type  string `json:"type" validate:"omitempty,max=50" example:"text"`
}

// CreateDepositRequest opens a pending deposit for the authenticated account
type CreateDepositRequest struct {
	AccountID      uint           `json:"-"`
	Amount         string         `json:"amount" validate:"required,numeric" example:"500"`
	PaymentMethod  string         `json:"payment_method" validate:"required,max=50" example:"bkash"`
	DepositBonusID *uint          `json:"deposit_bonus_id,omitempty" validate:"omitempty,gt=0"`
	UserInputs     []UserInputDTO `json:"user_inputs" validate:"required,min=1,dive"`
}

type PromotionBonusDTO struct {
	BonusType          string `json:"bonus_type"`
	Bonus              string `json:"bonus"`
	TurnoverMultiplier string `json:"turnover_multiplier"`
}

type DepositTransactionDTO struct {
	ID             uint               `json:"id"`
	UUID           string             `json:"uuid"`
	Amount         string             `json:"amount"`
	Status         string             `json:"status"`
	Source         string             `json:"source"`
	PaymentMethod  string             `json:"payment_method"`
	UserInputs     []UserInputDTO     `json:"user_inputs"`
	PromotionBonus *PromotionBonusDTO `json:"promotion_bonus,omitempty"`
	ExternalTrxID  *string            `json:"external_trx_id,omitempty"`
	CompletedAt    *string            `json:"completed_at,omitempty"`
	CreatedAt      string             `json:"created_at"`
}

// CheckAutoPaymentResponse reports the state of a deposit after a matching attempt
type CheckAutoPaymentResponse struct {
	TransactionID  string  `json:"transaction_id"`
	Status         string  `json:"status" example:"completed"`
	Matched        bool    `json:"matched"`
	Amount         string  `json:"amount"`
	Bonus          *string `json:"bonus,omitempty"`
	CreditedAmount *string `json:"credited_amount,omitempty"`
}
