package businessflow

import (
	"time"

	"github.com/amirphl/betting-settlement/app/dto"
	"github.com/amirphl/betting-settlement/models"
	"github.com/amirphl/betting-settlement/utils"
	"github.com/shopspring/decimal"
)

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func formatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// parsePositiveAmount parses a request amount and rejects zero, negatives and garbage
func parsePositiveAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return amount.Round(2), nil
}

// ToAccountDTO converts an account to its self view
func ToAccountDTO(a *models.Account) dto.AccountDTO {
	return dto.AccountDTO{
		ID:                        a.ID,
		Username:                  a.Username,
		Role:                      string(a.Role),
		ReferredByID:              a.ReferredByID,
		Balance:                   formatMoney(a.Balance),
		Deposit:                   formatMoney(a.Deposit),
		CommissionBalance:         formatMoney(a.CommissionBalance),
		GameWinCommissionBalance:  formatMoney(a.GameWinCommissionBalance),
		GameLossCommissionBalance: formatMoney(a.GameLossCommissionBalance),
		DepositCommissionBalance:  formatMoney(a.DepositCommissionBalance),
		ReferCommissionBalance:    formatMoney(a.ReferCommissionBalance),
		GameWinCommission:         a.GameWinCommission.String(),
		GameLossCommission:        a.GameLossCommission.String(),
		DepositCommission:         a.DepositCommission.String(),
		ReferCommission:           formatMoney(a.ReferCommission),
		IsActive:                  utils.IsTrue(a.IsActive),
		CreatedAt:                 formatTime(a.CreatedAt),
	}
}

func ToAdminDTO(a *models.Admin) dto.AdminDTO {
	return dto.AdminDTO{
		ID:        a.ID,
		UUID:      a.UUID.String(),
		Username:  a.Username,
		IsActive:  a.IsActive,
		CreatedAt: formatTime(a.CreatedAt),
	}
}

func ToDepositTransactionDTO(d *models.DepositTransaction) dto.DepositTransactionDTO {
	inputs := make([]dto.UserInputDTO, 0, len(d.UserInputs))
	for _, in := range d.UserInputs {
		inputs = append(inputs, dto.UserInputDTO{Name: in.Name, Value: in.Value, Label: in.Label, Type: in.Type})
	}

	out := dto.DepositTransactionDTO{
		ID:            d.ID,
		UUID:          d.UUID.String(),
		Amount:        formatMoney(d.Amount),
		Status:        string(d.Status),
		Source:        string(d.Source),
		PaymentMethod: d.PaymentMethod,
		UserInputs:    inputs,
		ExternalTrxID: d.ExternalTrxID,
		CompletedAt:   formatTimePtr(d.CompletedAt),
		CreatedAt:     formatTime(d.CreatedAt),
	}

	bonus := d.PromotionBonus.Data()
	if bonus.BonusType != "" {
		out.PromotionBonus = &dto.PromotionBonusDTO{
			BonusType:          string(bonus.BonusType),
			Bonus:              bonus.Bonus.String(),
			TurnoverMultiplier: bonus.TurnoverMultiplier.String(),
		}
	}
	return out
}

func ToTurnoverDTO(t *models.DepositTurnover) dto.TurnoverDTO {
	return dto.TurnoverDTO{
		ID:                   t.ID,
		DepositTransactionID: t.DepositTransactionID,
		DepositAmount:        formatMoney(t.DepositAmount),
		BonusAmount:          formatMoney(t.BonusAmount),
		TurnoverMultiplier:   t.TurnoverMultiplier.String(),
		RequiredTurnover:     formatMoney(t.RequiredTurnover),
		CompletedTurnover:    formatMoney(t.CompletedTurnover),
		RemainingTurnover:    formatMoney(t.RemainingTurnover),
		Status:               string(t.Status),
		CompletedAt:          formatTimePtr(t.CompletedAt),
		CreatedAt:            formatTime(t.CreatedAt),
	}
}

func ToDepositBonusDTO(b *models.DepositBonus) dto.DepositBonusDTO {
	return dto.DepositBonusDTO{
		ID:                 b.ID,
		Title:              b.Title,
		BonusType:          string(b.BonusType),
		Bonus:              b.Bonus.String(),
		TurnoverMultiplier: b.TurnoverMultiplier.String(),
		MinDeposit:         formatMoney(b.MinDeposit),
		IsActive:           utils.IsTrue(b.IsActive),
		CreatedAt:          formatTime(b.CreatedAt),
	}
}

func ToParsedPaymentTextDTO(p ParsedPaymentText) dto.ParsedPaymentTextDTO {
	out := dto.ParsedPaymentTextDTO{
		From:  p.From,
		TrxID: p.TrxID,
		Date:  p.Date,
		Time:  p.Time,
	}
	if p.Amount != nil {
		s := p.Amount.String()
		out.Amount = &s
	}
	return out
}
