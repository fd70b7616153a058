package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestDepositTurnoverAdvance(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	turnover := NewDepositTurnover(1, 1, d("1000"), d("100"), d("2"))
	assert.True(t, d("2200").Equal(turnover.RequiredTurnover))
	assert.True(t, d("2200").Equal(turnover.RemainingTurnover))
	assert.Equal(t, TurnoverStatusActive, turnover.Status)

	// losses count by magnitude
	require.True(t, turnover.Advance(d("-200"), now))
	assert.True(t, d("200").Equal(turnover.CompletedTurnover))
	assert.True(t, d("2000").Equal(turnover.RemainingTurnover))

	require.True(t, turnover.Advance(d("5000"), now))
	assert.True(t, turnover.RemainingTurnover.IsZero())
	assert.Equal(t, TurnoverStatusCompleted, turnover.Status)
	require.NotNil(t, turnover.CompletedAt)
	assert.Equal(t, now, *turnover.CompletedAt)

	assert.False(t, turnover.Advance(d("10"), now), "completed requirements do not move")
}

func TestPromotionBonusAmount(t *testing.T) {
	tests := []struct {
		name   string
		bonus  PromotionBonus
		amount string
		want   string
	}{
		{"Percentage", PromotionBonus{BonusType: BonusTypePercentage, Bonus: d("10")}, "1000", "100"},
		{"PercentageRounds", PromotionBonus{BonusType: BonusTypePercentage, Bonus: d("7")}, "33.33", "2.33"},
		{"Fix", PromotionBonus{BonusType: BonusTypeFix, Bonus: d("50")}, "1000", "50"},
		{"ZeroBonus", PromotionBonus{BonusType: BonusTypeFix, Bonus: decimal.Zero}, "1000", "0"},
		{"UnknownType", PromotionBonus{BonusType: "Other", Bonus: d("10")}, "1000", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.bonus.BonusAmount(d(tt.amount))
			assert.Truef(t, d(tt.want).Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestTransferRuleAllows(t *testing.T) {
	bounded := TransferRule{Enabled: true, MinAmount: d("10"), MaxAmount: d("100")}
	assert.False(t, bounded.Allows(d("9.99")))
	assert.True(t, bounded.Allows(d("10")))
	assert.True(t, bounded.Allows(d("100")))
	assert.False(t, bounded.Allows(d("100.01")))

	open := TransferRule{Enabled: true, MinAmount: d("10")}
	assert.True(t, open.Allows(d("1000000")))

	var settings *BalanceTransferSettings
	assert.False(t, settings.Rule(BucketRefer).Enabled)
}

func TestCommissionBucket(t *testing.T) {
	assert.Equal(t, "refer_commission_balance", BucketRefer.Column())
	assert.Equal(t, "game_win_commission_balance", BucketGameWin.Column())
	assert.Empty(t, CommissionBucket("balance").Column())

	assert.True(t, BucketCommission.IsTransferable())
	assert.True(t, BucketGameLoss.IsTransferable())
	assert.False(t, BucketGameWin.IsTransferable())
	assert.False(t, CommissionBucket("balance").IsTransferable())

	a := &Account{DepositCommissionBalance: d("12.5")}
	assert.True(t, d("12.5").Equal(a.BucketBalance(BucketDeposit)))
}

func TestDepositStatusTransitions(t *testing.T) {
	assert.True(t, DepositStatusPending.CanTransitionTo(DepositStatusCompleted))
	assert.True(t, DepositStatusPending.CanTransitionTo(DepositStatusFailed))
	assert.True(t, DepositStatusPending.CanTransitionTo(DepositStatusCancelled))
	assert.False(t, DepositStatusPending.CanTransitionTo(DepositStatusPending))
	assert.False(t, DepositStatusCompleted.CanTransitionTo(DepositStatusFailed))
	assert.False(t, DepositStatusFailed.CanTransitionTo(DepositStatusCompleted))
}

func TestAccountRole(t *testing.T) {
	assert.True(t, AccountRoleUser.Valid())
	assert.False(t, AccountRole("admin").Valid())
	assert.True(t, AccountRoleSuperAffiliate.IsAffiliate())
	assert.False(t, AccountRoleUser.IsAffiliate())

	_, err := AccountRole("admin").Value()
	assert.Error(t, err)
}
