package businessflow

import (
	"context"
	"testing"

	"github.com/amirphl/betting-settlement/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnoverEngine(t *testing.T) {
	ctx := context.Background()

	t.Run("OpenRequiresDepositPlusBonusTimesMultiplier", func(t *testing.T) {
		l := newLedger()
		tr, err := l.turnover().Open(ctx, 1, 10, dec("1000"), dec("100"), dec("3"))
		require.NoError(t, err)
		assertMoney(t, "3300", tr.RequiredTurnover)
		assertMoney(t, "3300", tr.RemainingTurnover)
		assertMoney(t, "0", tr.CompletedTurnover)
		assertMoney(t, "1100", tr.TotalCreditedAmount)
		assert.Equal(t, models.TurnoverStatusActive, tr.Status)
	})

	t.Run("NonPositiveMultiplierFallsBackToOne", func(t *testing.T) {
		l := newLedger()
		tr, err := l.turnover().Open(ctx, 1, 10, dec("500"), dec("0"), dec("0"))
		require.NoError(t, err)
		assertMoney(t, "500", tr.RequiredTurnover)
	})

	t.Run("AdvanceCompletesOldestFirst", func(t *testing.T) {
		l := newLedger()
		engine := l.turnover()
		first, err := engine.Open(ctx, 1, 10, dec("100"), dec("0"), dec("1"))
		require.NoError(t, err)
		second, err := engine.Open(ctx, 1, 11, dec("200"), dec("0"), dec("1"))
		require.NoError(t, err)

		got, err := engine.Advance(ctx, 1, dec("-60"))
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, first.ID, got.ID)
		assertMoney(t, "40", got.RemainingTurnover)

		got, err = engine.Advance(ctx, 1, dec("70"))
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)
		assert.Equal(t, models.TurnoverStatusCompleted, got.Status)
		assertMoney(t, "0", got.RemainingTurnover)
		assert.NotNil(t, got.CompletedAt)

		got, err = engine.Advance(ctx, 1, dec("50"))
		require.NoError(t, err)
		assert.Equal(t, second.ID, got.ID)
		assertMoney(t, "150", got.RemainingTurnover)

		list, err := engine.ListForAccount(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, list.Items, 2)
		assert.Equal(t, "150.00", list.Remaining)
	})

	t.Run("AdvanceWithoutActiveRequirement", func(t *testing.T) {
		l := newLedger()
		got, err := l.turnover().Advance(ctx, 1, dec("10"))
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("ZeroAmountIsIgnored", func(t *testing.T) {
		l := newLedger()
		engine := l.turnover()
		_, err := engine.Open(ctx, 1, 10, dec("100"), dec("0"), dec("1"))
		require.NoError(t, err)

		got, err := engine.Advance(ctx, 1, dec("0"))
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
