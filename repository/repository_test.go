package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amirphl/betting-settlement/models"
	"github.com/amirphl/betting-settlement/repository"
	testingutil "github.com/amirphl/betting-settlement/testing"
	"github.com/amirphl/betting-settlement/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func withDB(t *testing.T, fn func(t *testing.T, db *testingutil.TestDB)) {
	t.Helper()
	if !testingutil.Available() {
		t.Skip("TEST_DB_HOST not set")
	}
	err := testingutil.TestWithDB(func(db *testingutil.TestDB) error {
		fn(t, db)
		return nil
	})
	require.NoError(t, err)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAccountRepository(t *testing.T) {
	withDB(t, func(t *testing.T, testDB *testingutil.TestDB) {
		repo := repository.NewAccountRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		account, err := fixtures.CreateTestAccount(models.AccountRoleUser, nil)
		require.NoError(t, err)

		t.Run("ByUsername", func(t *testing.T) {
			found, err := repo.ByUsername(ctx, account.Username)
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, account.ID, found.ID)
			assert.True(t, utils.IsTrue(found.IsActive))

			missing, err := repo.ByUsername(ctx, "nobody")
			require.NoError(t, err)
			assert.Nil(t, missing)
		})

		t.Run("CreditAndDebit", func(t *testing.T) {
			require.NoError(t, repo.CreditDeposit(ctx, account.ID, dec("100")))

			ok, err := repo.DebitBalance(ctx, account.ID, dec("150"))
			require.NoError(t, err)
			assert.False(t, ok, "debit beyond balance must not apply")

			ok, err = repo.DebitBalance(ctx, account.ID, dec("40"))
			require.NoError(t, err)
			assert.True(t, ok)

			reloaded, err := repo.ByID(ctx, account.ID)
			require.NoError(t, err)
			assert.Equal(t, "60.00", reloaded.Balance.StringFixed(2))
			assert.Equal(t, "100.00", reloaded.Deposit.StringFixed(2))
		})

		t.Run("CreditUnknownAccount", func(t *testing.T) {
			assert.Error(t, repo.CreditBalance(ctx, 99999, dec("1")))
		})

		t.Run("TransferToBalance", func(t *testing.T) {
			require.NoError(t, repo.CreditCommission(ctx, account.ID, models.BucketRefer, dec("30")))

			ok, err := repo.TransferToBalance(ctx, account.ID, models.BucketRefer, dec("31"))
			require.NoError(t, err)
			assert.False(t, ok)

			ok, err = repo.TransferToBalance(ctx, account.ID, models.BucketRefer, dec("30"))
			require.NoError(t, err)
			assert.True(t, ok)

			reloaded, err := repo.ByID(ctx, account.ID)
			require.NoError(t, err)
			assert.True(t, reloaded.ReferCommissionBalance.IsZero())
			assert.Equal(t, "90.00", reloaded.Balance.StringFixed(2))
		})

		t.Run("ListIDsByRole", func(t *testing.T) {
			super, err := fixtures.CreateTestAffiliate(models.AccountRoleSuperAffiliate, nil, "1", "10", "2")
			require.NoError(t, err)

			ids, err := repo.ListIDsByRole(ctx, models.AccountRoleSuperAffiliate)
			require.NoError(t, err)
			assert.Equal(t, []uint{super.ID}, ids)
		})

		t.Run("ByIDForUpdateInsideTransaction", func(t *testing.T) {
			txManager := repository.NewTxManager(testDB.DB)
			err := txManager.WithTransaction(ctx, func(txCtx context.Context) error {
				locked, err := repo.ByIDForUpdate(txCtx, account.ID)
				require.NoError(t, err)
				require.NotNil(t, locked)
				return repo.CreditBalance(txCtx, account.ID, dec("10"))
			})
			require.NoError(t, err)

			reloaded, err := repo.ByID(ctx, account.ID)
			require.NoError(t, err)
			assert.Equal(t, "100.00", reloaded.Balance.StringFixed(2))
		})

		t.Run("RollbackOnError", func(t *testing.T) {
			txManager := repository.NewTxManager(testDB.DB)
			boom := errors.New("boom")
			err := txManager.WithTransaction(ctx, func(txCtx context.Context) error {
				require.NoError(t, repo.CreditBalance(txCtx, account.ID, dec("500")))
				return boom
			})
			assert.ErrorIs(t, err, boom)

			reloaded, err := repo.ByID(ctx, account.ID)
			require.NoError(t, err)
			assert.Equal(t, "100.00", reloaded.Balance.StringFixed(2))
		})
	})
}

func TestDepositTransactionRepository(t *testing.T) {
	withDB(t, func(t *testing.T, testDB *testingutil.TestDB) {
		repo := repository.NewDepositTransactionRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		account, err := fixtures.CreateTestAccount(models.AccountRoleUser, nil)
		require.NoError(t, err)
		deposit, err := fixtures.CreatePendingDeposit(account.ID, "500", "TRX1")
		require.NoError(t, err)

		t.Run("ByUUID", func(t *testing.T) {
			found, err := repo.ByUUID(ctx, deposit.UUID)
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, "TRX1", found.ClaimedTrxID())
			assert.Equal(t, models.DepositStatusPending, found.Status)
		})

		t.Run("CompleteIfPendingOnce", func(t *testing.T) {
			now := utils.UTCNow()
			ok, err := repo.CompleteIfPending(ctx, deposit.ID, utils.ToPtr("TRX1"), now)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = repo.CompleteIfPending(ctx, deposit.ID, utils.ToPtr("TRX1"), now)
			require.NoError(t, err)
			assert.False(t, ok, "a completed deposit cannot complete again")

			byTrx, err := repo.ByExternalTrxID(ctx, "TRX1")
			require.NoError(t, err)
			require.NotNil(t, byTrx)
			assert.Equal(t, deposit.ID, byTrx.ID)
			assert.Equal(t, models.DepositStatusCompleted, byTrx.Status)
		})

		t.Run("ExternalTrxIDIsUnique", func(t *testing.T) {
			other, err := fixtures.CreatePendingDeposit(account.ID, "500", "TRX1")
			require.NoError(t, err)

			_, err = repo.CompleteIfPending(ctx, other.ID, utils.ToPtr("TRX1"), utils.UTCNow())
			assert.Error(t, err)
		})

		t.Run("FailIfPending", func(t *testing.T) {
			pending, err := fixtures.CreatePendingDeposit(account.ID, "20", "TRX2")
			require.NoError(t, err)

			ok, err := repo.FailIfPending(ctx, pending.ID, models.DepositStatusCancelled, "user cancelled")
			require.NoError(t, err)
			assert.True(t, ok)

			reloaded, err := repo.ByID(ctx, pending.ID)
			require.NoError(t, err)
			assert.Equal(t, models.DepositStatusCancelled, reloaded.Status)
			assert.Equal(t, "user cancelled", utils.Deref(reloaded.Reason))
		})
	})
}

func TestPaymentMessageRepositoryFindMatch(t *testing.T) {
	withDB(t, func(t *testing.T, testDB *testingutil.TestDB) {
		repo := repository.NewPaymentMessageRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		now := utils.UTCNow().Truncate(time.Second)
		_, err := fixtures.CreatePaymentMessage("OLD1", "100", now.Add(-time.Hour))
		require.NoError(t, err)
		_, err = fixtures.CreatePaymentMessage("NEW1", "100", now.Add(-time.Minute))
		require.NoError(t, err)

		windowStart := now.Add(-5 * time.Minute)

		matches, err := repo.FindMatch(ctx, "NEW1", windowStart)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "100.00", matches[0].Amount.StringFixed(2))

		matches, err = repo.FindMatch(ctx, "OLD1", windowStart)
		require.NoError(t, err)
		assert.Empty(t, matches, "messages stored before the window do not match")

		_, err = fixtures.CreatePaymentMessage("NEW1", "100", now)
		assert.Error(t, err, "trx ids are unique")
	})
}

func TestDepositTurnoverRepository(t *testing.T) {
	withDB(t, func(t *testing.T, testDB *testingutil.TestDB) {
		repo := repository.NewDepositTurnoverRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		account, err := fixtures.CreateTestAccount(models.AccountRoleUser, nil)
		require.NoError(t, err)
		first, err := fixtures.CreatePendingDeposit(account.ID, "100", "T-A")
		require.NoError(t, err)
		second, err := fixtures.CreatePendingDeposit(account.ID, "50", "T-B")
		require.NoError(t, err)

		older := models.NewDepositTurnover(account.ID, first.ID, dec("100"), dec("10"), dec("2"))
		require.NoError(t, repo.Save(ctx, older))
		newer := models.NewDepositTurnover(account.ID, second.ID, dec("50"), decimal.Zero, dec("1"))
		require.NoError(t, repo.Save(ctx, newer))

		txManager := repository.NewTxManager(testDB.DB)
		err = txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			active, err := repo.OldestActiveForUpdate(txCtx, account.ID)
			require.NoError(t, err)
			require.NotNil(t, active)
			assert.Equal(t, older.ID, active.ID)
			assert.Equal(t, "220.00", active.RequiredTurnover.StringFixed(2))

			active.Advance(dec("-220"), utils.UTCNow())
			return repo.Update(txCtx, active)
		})
		require.NoError(t, err)

		active, err := repo.OldestActiveForUpdate(ctx, account.ID)
		require.NoError(t, err)
		require.NotNil(t, active)
		assert.Equal(t, newer.ID, active.ID, "completed turnovers are skipped")

		list, err := repo.ListByAccount(ctx, account.ID)
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})
}

func TestBalanceTransferSettingsRepository(t *testing.T) {
	withDB(t, func(t *testing.T, testDB *testingutil.TestDB) {
		repo := repository.NewBalanceTransferSettingsRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()

		settings, err := repo.Get(ctx)
		require.NoError(t, err)
		assert.Nil(t, settings)

		rules := models.TransferRules{
			models.BucketRefer: {Enabled: true, MinAmount: dec("10"), MaxAmount: dec("100")},
		}
		require.NoError(t, repo.Upsert(ctx, &models.BalanceTransferSettings{
			Rules:     datatypes.NewJSONType(rules),
			UpdatedBy: utils.ToPtr(uint(1)),
		}))

		rules[models.BucketDeposit] = models.TransferRule{Enabled: true, MinAmount: dec("5")}
		require.NoError(t, repo.Upsert(ctx, &models.BalanceTransferSettings{
			Rules:     datatypes.NewJSONType(rules),
			UpdatedBy: utils.ToPtr(uint(2)),
		}))

		settings, err = repo.Get(ctx)
		require.NoError(t, err)
		require.NotNil(t, settings)
		assert.Equal(t, models.BalanceTransferSettingsID, settings.ID)
		assert.Equal(t, uint(2), utils.Deref(settings.UpdatedBy))
		assert.True(t, settings.Rule(models.BucketDeposit).Enabled)
		assert.True(t, settings.Rule(models.BucketRefer).Allows(dec("50")))
		assert.False(t, settings.Rule(models.BucketCommission).Enabled)
	})
}

func TestAdminRepository(t *testing.T) {
	withDB(t, func(t *testing.T, testDB *testingutil.TestDB) {
		repo := repository.NewAdminRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		admin, err := fixtures.CreateTestAdmin()
		require.NoError(t, err)

		found, err := repo.ByUsername(ctx, admin.Username)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Nil(t, found.LastLoginAt)

		at := utils.UTCNow().Truncate(time.Second)
		require.NoError(t, repo.TouchLastLogin(ctx, admin.ID, at))

		found, err = repo.ByID(ctx, admin.ID)
		require.NoError(t, err)
		require.NotNil(t, found.LastLoginAt)
		assert.True(t, at.Equal(*found.LastLoginAt))
	})
}
