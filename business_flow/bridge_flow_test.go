package businessflow

import (
	"context"
	"testing"

	"github.com/amirphl/betting-settlement/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeBridge(t *testing.T) {
	tests := []struct {
		name                         string
		gameWin, gameLoss, dep, ref  string
		ok                           bool
		wantResult                   string
		wantLoss, wantDep, wantRefer string
	}{
		{"EvenSplit", "30", "100", "20", "0", true, "90", "30", "30", "30"},
		{"TruncatedEqualShares", "0", "50", "50", "0", true, "100", "33.33", "33.33", "33.33"},
		{"WinExceedsPositive", "200", "50", "50", "50", false, "-50", "", "", ""},
		{"NetZero", "100", "40", "30", "30", false, "0", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &models.Account{
				GameWinCommissionBalance:  dec(tt.gameWin),
				GameLossCommissionBalance: dec(tt.gameLoss),
				DepositCommissionBalance:  dec(tt.dep),
				ReferCommissionBalance:    dec(tt.ref),
			}
			result, b, ok := ComputeBridge(a)
			assert.Equal(t, tt.ok, ok)
			assertMoney(t, tt.wantResult, result)
			if !ok {
				return
			}
			assertMoney(t, "0", b.GameWin)
			assertMoney(t, tt.wantLoss, b.GameLoss)
			assertMoney(t, tt.wantDep, b.Deposit)
			assertMoney(t, tt.wantRefer, b.Refer)
			assert.True(t, b.GameLoss.Equal(b.Deposit) && b.Deposit.Equal(b.Refer), "buckets equal")
			remainder := result.Sub(b.GameLoss.Add(b.Deposit).Add(b.Refer))
			assert.False(t, remainder.IsNegative())
			assert.True(t, remainder.LessThan(dec("0.03")), "at most two cents left over")
			assert.False(t, b.GameLoss.IsNegative() || b.Deposit.IsNegative() || b.Refer.IsNegative())
		})
	}
}

func TestBridgeFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("BridgeAccount", func(t *testing.T) {
		l := newLedger()
		flow := NewBridgeFlow(l.accounts, l.audits, l.tx, l.logger)
		a := l.createAccount(t, "super", models.AccountRoleSuperAffiliate, withBuckets("7", "30", "100", "20", "0"))

		res, err := flow.BridgeAccount(ctx, models.AccountRoleSuperAffiliate, a.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, BridgeStatusBridged, res.Status)
		assert.Equal(t, "90.00", res.Result)
		assert.Equal(t, "30.00", res.Share)

		got := l.account(t, a.ID)
		assertMoney(t, "0", got.GameWinCommissionBalance)
		assertMoney(t, "30", got.GameLossCommissionBalance)
		assertMoney(t, "30", got.DepositCommissionBalance)
		assertMoney(t, "30", got.ReferCommissionBalance)
		assertMoney(t, "7", got.CommissionBalance)
	})

	t.Run("RoleMismatchIsNotFound", func(t *testing.T) {
		l := newLedger()
		flow := NewBridgeFlow(l.accounts, l.audits, l.tx, l.logger)
		a := l.createAccount(t, "master", models.AccountRoleMasterAffiliate)

		_, err := flow.BridgeAccount(ctx, models.AccountRoleSuperAffiliate, a.ID, nil)
		assert.True(t, IsAffiliateNotFound(err))

		_, err = flow.BridgeAccount(ctx, models.AccountRoleUser, a.ID, nil)
		assert.True(t, IsInvalidRole(err))
	})

	t.Run("BridgeAllReportsEachAffiliate", func(t *testing.T) {
		l := newLedger()
		flow := NewBridgeFlow(l.accounts, l.audits, l.tx, l.logger)
		bridged := l.createAccount(t, "m1", models.AccountRoleMasterAffiliate, withBuckets("0", "0", "30", "0", "0"))
		skipped := l.createAccount(t, "m2", models.AccountRoleMasterAffiliate, withBuckets("0", "100", "30", "0", "0"))
		l.createAccount(t, "s1", models.AccountRoleSuperAffiliate, withBuckets("0", "0", "30", "0", "0"))

		out, err := flow.BridgeAll(ctx, models.AccountRoleMasterAffiliate, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, out.Processed)
		assert.Equal(t, 1, out.Skipped)
		assert.Equal(t, 0, out.Failed)
		require.Len(t, out.Results, 2)

		assertMoney(t, "10", l.account(t, bridged.ID).DepositCommissionBalance)
		assertMoney(t, "100", l.account(t, skipped.ID).GameWinCommissionBalance)
		assert.Contains(t, l.auditActions(), models.AuditActionBridgeApplied)
	})
}
