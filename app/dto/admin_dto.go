// Package dto
package dto

type AdminDTO struct {
	ID        uint   `json:"id" example:"1"`
	UUID      string `json:"uuid" example:"f47ac10b-58cc-4372-a567-0e02b2c3d479"`
	Username  string `json:"username" example:"admin"`
	IsActive  *bool  `json:"is_active" example:"true"`
	CreatedAt string `json:"created_at" example:"2024-01-15T10:30:00Z"`
}

type AdminLoginRequest struct {
	Username string `json:"username" validate:"required,min=3,max=100" example:"admin"`
	Password string `json:"password" validate:"required,min=8,max=100" example:"SecurePass123!"`
}

type AdminLoginResponse struct {
	Admin   AdminDTO   `json:"admin"`
	Session SessionDTO `json:"session"`
}

// RegisterAccountRequest creates a user or affiliate; referred_by is the referrer's username
type RegisterAccountRequest struct {
	Username   string  `json:"username" validate:"required,min=3,max=100" example:"player01"`
	Password   string  `json:"password" validate:"required,min=8,max=100" example:"SecurePass123!"`
	Role       string  `json:"role" validate:"required,oneof=user master-affiliate super-affiliate" example:"user"`
	ReferredBy *string `json:"referred_by,omitempty" validate:"omitempty,min=3,max=100" example:"master01"`
}

// CommissionRatesRequest sets the percentage rates and the flat referral amount of an affiliate
type CommissionRatesRequest struct {
	AccountID          uint   `json:"-"`
	GameWinCommission  string `json:"game_win_commission" validate:"required,numeric" example:"2.5"`
	GameLossCommission string `json:"game_loss_commission" validate:"required,numeric" example:"10"`
	DepositCommission  string `json:"deposit_commission" validate:"required,numeric" example:"1"`
	ReferCommission    string `json:"refer_commission" validate:"required,numeric" example:"50"`
}

// CreateDepositBonusRequest defines a deposit promotion
type CreateDepositBonusRequest struct {
	Title              string `json:"title" validate:"required,max=255" example:"Welcome 10%"`
	BonusType          string `json:"bonus_type" validate:"required,oneof=Fix Percentage" example:"Percentage"`
	Bonus              string `json:"bonus" validate:"required,numeric" example:"10"`
	TurnoverMultiplier string `json:"turnover_multiplier" validate:"omitempty,numeric" example:"3"`
	MinDeposit         string `json:"min_deposit" validate:"omitempty,numeric" example:"500"`
}

type DepositBonusDTO struct {
	ID                 uint   `json:"id"`
	Title              string `json:"title"`
	BonusType          string `json:"bonus_type"`
	Bonus              string `json:"bonus"`
	TurnoverMultiplier string `json:"turnover_multiplier"`
	MinDeposit         string `json:"min_deposit"`
	IsActive           bool   `json:"is_active"`
	CreatedAt          string `json:"created_at"`
}

// ExportPaymentMessagesRequest bounds the admin xlsx export; dates are YYYY-MM-DD
type ExportPaymentMessagesRequest struct {
	StartDate string `query:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `query:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Title     string `query:"title" validate:"omitempty,max=20"`
}
