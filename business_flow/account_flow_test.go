package businessflow

import (
	"context"
	"testing"

	"github.com/amirphl/betting-settlement/app/dto"
	"github.com/amirphl/betting-settlement/models"
	"github.com/amirphl/betting-settlement/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAccountFlow(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*ledger, AccountFlow, *models.Account, *models.Account) {
		l := newLedger()
		flow := NewAccountFlow(l.accounts, l.audits, l.tx, l.cascade(), bcrypt.MinCost, l.logger)
		super := l.createAccount(t, "super01", models.AccountRoleSuperAffiliate, withRates("0", "0", "0", "80"))
		master := l.createAccount(t, "master01", models.AccountRoleMasterAffiliate, withReferrer(super.ID), withRates("0", "0", "0", "50"))
		return l, flow, super, master
	}

	t.Run("RegisterPaysReferral", func(t *testing.T) {
		l, flow, super, master := setup(t)

		resp, err := flow.RegisterAccount(ctx, &dto.RegisterAccountRequest{
			Username:   "player01",
			Password:   "SecurePass123!",
			Role:       string(models.AccountRoleUser),
			ReferredBy: utils.ToPtr("master01"),
		}, nil)
		require.NoError(t, err)

		assert.Equal(t, "50.00", resp.ReferralDirect)
		assert.Equal(t, "30.00", resp.ReferralUpline)
		assert.Equal(t, "player01", resp.Account.Username)
		require.NotNil(t, resp.Account.ReferredByID)
		assert.Equal(t, master.ID, *resp.Account.ReferredByID)
		assert.True(t, resp.Account.IsActive)

		assertMoney(t, "50", l.account(t, master.ID).ReferCommissionBalance)
		assertMoney(t, "30", l.account(t, super.ID).ReferCommissionBalance)

		created := l.account(t, resp.Account.ID)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("SecurePass123!")))
		assert.Contains(t, l.auditActions(), models.AuditActionAccountRegistered)
	})

	t.Run("RegisterWithoutReferrer", func(t *testing.T) {
		_, flow, _, _ := setup(t)

		resp, err := flow.RegisterAccount(ctx, &dto.RegisterAccountRequest{
			Username: "lonely",
			Password: "SecurePass123!",
			Role:     string(models.AccountRoleMasterAffiliate),
		}, nil)
		require.NoError(t, err)
		assert.Nil(t, resp.Account.ReferredByID)
		assert.Equal(t, "0.00", resp.ReferralDirect)
		assert.Equal(t, "0.00", resp.ReferralUpline)
	})

	t.Run("DuplicateUsername", func(t *testing.T) {
		_, flow, _, _ := setup(t)

		_, err := flow.RegisterAccount(ctx, &dto.RegisterAccountRequest{
			Username: "master01",
			Password: "SecurePass123!",
			Role:     string(models.AccountRoleUser),
		}, nil)
		assert.True(t, IsUsernameAlreadyExists(err))
	})

	t.Run("ReferrerMustBeAffiliate", func(t *testing.T) {
		l, flow, _, _ := setup(t)
		l.createAccount(t, "player00", models.AccountRoleUser)

		for _, ref := range []string{"nobody", "player00"} {
			_, err := flow.RegisterAccount(ctx, &dto.RegisterAccountRequest{
				Username:   "player02",
				Password:   "SecurePass123!",
				Role:       string(models.AccountRoleUser),
				ReferredBy: utils.ToPtr(ref),
			}, nil)
			assert.True(t, IsReferrerNotFound(err), ref)
		}
	})

	t.Run("InvalidRole", func(t *testing.T) {
		_, flow, _, _ := setup(t)
		_, err := flow.RegisterAccount(ctx, &dto.RegisterAccountRequest{Username: "x01", Password: "SecurePass123!", Role: "admin"}, nil)
		assert.True(t, IsInvalidRole(err))
	})

	t.Run("UpdateCommissionRates", func(t *testing.T) {
		l, flow, _, master := setup(t)

		out, err := flow.UpdateCommissionRates(ctx, &dto.CommissionRatesRequest{
			AccountID:          master.ID,
			GameWinCommission:  "2.5",
			GameLossCommission: "10",
			DepositCommission:  "1",
			ReferCommission:    "40",
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, "40.00", out.ReferCommission)

		got := l.account(t, master.ID)
		assertMoney(t, "2.5", got.GameWinCommission)
		assertMoney(t, "10", got.GameLossCommission)
		assertMoney(t, "1", got.DepositCommission)
		assertMoney(t, "40", got.ReferCommission)
	})

	t.Run("UpdateCommissionRatesValidation", func(t *testing.T) {
		l, flow, _, master := setup(t)
		player := l.createAccount(t, "player00", models.AccountRoleUser)

		_, err := flow.UpdateCommissionRates(ctx, &dto.CommissionRatesRequest{
			AccountID: master.ID, GameWinCommission: "101", GameLossCommission: "0", DepositCommission: "0", ReferCommission: "0",
		}, nil)
		assert.True(t, IsInvalidCommissionRate(err))

		_, err = flow.UpdateCommissionRates(ctx, &dto.CommissionRatesRequest{
			AccountID: master.ID, GameWinCommission: "1", GameLossCommission: "-1", DepositCommission: "0", ReferCommission: "0",
		}, nil)
		assert.True(t, IsInvalidCommissionRate(err))

		_, err = flow.UpdateCommissionRates(ctx, &dto.CommissionRatesRequest{
			AccountID: master.ID, GameWinCommission: "1", GameLossCommission: "1", DepositCommission: "1", ReferCommission: "-5",
		}, nil)
		assert.True(t, IsInvalidAmount(err))

		_, err = flow.UpdateCommissionRates(ctx, &dto.CommissionRatesRequest{
			AccountID: player.ID, GameWinCommission: "1", GameLossCommission: "1", DepositCommission: "1", ReferCommission: "5",
		}, nil)
		assert.True(t, IsAffiliateNotFound(err))
	})

	t.Run("GetAccount", func(t *testing.T) {
		_, flow, _, master := setup(t)

		out, err := flow.GetAccount(ctx, master.ID)
		require.NoError(t, err)
		assert.Equal(t, "master01", out.Username)
		assert.Equal(t, string(models.AccountRoleMasterAffiliate), out.Role)

		_, err = flow.GetAccount(ctx, 9999)
		assert.True(t, IsAccountNotFound(err))
	})
}
