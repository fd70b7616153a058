package dto

// AccountDTO is the self view of an account and its balances
type AccountDTO struct {
	ID                        uint   `json:"id" example:"12"`
	Username                  string `json:"username" example:"player01"`
	Role                      string `json:"role" example:"user"`
	ReferredByID              *uint  `json:"referred_by_id,omitempty"`
	Balance                   string `json:"balance" example:"1500.00"`
	Deposit                   string `json:"deposit" example:"2000.00"`
	CommissionBalance         string `json:"commission_balance"`
	GameWinCommissionBalance  string `json:"game_win_commission_balance"`
	GameLossCommissionBalance string `json:"game_loss_commission_balance"`
	DepositCommissionBalance  string `json:"deposit_commission_balance"`
	ReferCommissionBalance    string `json:"refer_commission_balance"`
	GameWinCommission         string `json:"game_win_commission"`
	GameLossCommission        string `json:"game_loss_commission"`
	DepositCommission         string `json:"deposit_commission"`
	ReferCommission           string `json:"refer_commission"`
	IsActive                  bool   `json:"is_active"`
	CreatedAt                 string `json:"created_at"`
}

// RegisterAccountResponse returns the created account and the referral payouts it triggered
type RegisterAccountResponse struct {
	Account        AccountDTO `json:"account"`
	ReferralDirect string     `json:"referral_direct"`
	ReferralUpline string     `json:"referral_upstream"`
}

// TurnoverDTO is one wagering requirement
type TurnoverDTO struct {
	ID                   uint    `json:"id"`
	DepositTransactionID uint    `json:"deposit_transaction_id"`
	DepositAmount        string  `json:"deposit_amount"`
	BonusAmount          string  `json:"bonus_amount"`
	TurnoverMultiplier   string  `json:"turnover_multiplier"`
	RequiredTurnover     string  `json:"required_turnover"`
	CompletedTurnover    string  `json:"completed_turnover"`
	RemainingTurnover    string  `json:"remaining_turnover"`
	Status               string  `json:"status"`
	CompletedAt          *string `json:"completed_at,omitempty"`
	CreatedAt            string  `json:"created_at"`
}

type TurnoverListResponse struct {
	Items []TurnoverDTO `json:"items"`
	// Remaining is the sum left on active requirements
	Remaining string `json:"remaining"`
}
