package dto

// BalanceTransferRequest moves a commission balance into the main balance
type BalanceTransferRequest struct {
	AccountID uint   `json:"-"`
	From      string `json:"from" validate:"required,oneof=commissionBalance gameLossCommissionBalance depositCommissionBalance referCommissionBalance" example:"referCommissionBalance"`
	Amount    string `json:"amount" validate:"required,numeric" example:"100"`
}

type BalanceTransferResponse struct {
	From          string `json:"from"`
	Amount        string `json:"amount"`
	Balance       string `json:"balance"`
	BucketBalance string `json:"bucket_balance"`
}

// TransferRuleDTO bounds transfers out of one bucket; max_amount 0 means no upper bound
type TransferRuleDTO struct {
	Enabled   bool   `json:"enabled"`
	MinAmount string `json:"min_amount" validate:"omitempty,numeric"`
	MaxAmount string `json:"max_amount" validate:"omitempty,numeric"`
}

type BalanceTransferSettingsDTO struct {
	Rules     map[string]TransferRuleDTO `json:"rules"`
	UpdatedBy *uint                      `json:"updated_by,omitempty"`
	UpdatedAt *string                    `json:"updated_at,omitempty"`
}

type UpdateBalanceTransferSettingsRequest struct {
	AdminID uint                       `json:"-"`
	Rules   map[string]TransferRuleDTO `json:"rules" validate:"required,min=1,dive"`
}
