package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/betting-settlement/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AccountRepositoryImpl implements AccountRepository interface
type AccountRepositoryImpl struct {
	*BaseRepository[models.Account, models.AccountFilter]
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &AccountRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Account, models.AccountFilter](db),
	}
}

// ByUsername retrieves an account by username
func (r *AccountRepositoryImpl) ByUsername(ctx context.Context, username string) (*models.Account, error) {
	filter := models.AccountFilter{Username: &username}
	accounts, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, err
	}

	if len(accounts) == 0 {
		return nil, nil
	}

	return accounts[0], nil
}

// ByIDForUpdate loads an account holding a row lock until the surrounding transaction ends
func (r *AccountRepositoryImpl) ByIDForUpdate(ctx context.Context, id uint) (*models.Account, error) {
	db := r.getDB(ctx)

	var account models.Account
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock account %d: %w", id, err)
	}

	return &account, nil
}

// ListIDsByRole returns the ids of all active accounts with the given role
func (r *AccountRepositoryImpl) ListIDsByRole(ctx context.Context, role models.AccountRole) ([]uint, error) {
	db := r.getDB(ctx)

	var ids []uint
	err := db.Model(&models.Account{}).
		Where("role = ? AND is_active = ?", role, true).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts by role: %w", err)
	}

	return ids, nil
}

func (r *AccountRepositoryImpl) CreditDeposit(ctx context.Context, id uint, amount decimal.Decimal) error {
	db := r.getDB(ctx)

	res := db.Model(&models.Account{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"balance": gorm.Expr("balance + ?", amount),
			"deposit": gorm.Expr("deposit + ?", amount),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to credit deposit: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("failed to credit deposit: account %d not found", id)
	}

	return nil
}

func (r *AccountRepositoryImpl) CreditBalance(ctx context.Context, id uint, amount decimal.Decimal) error {
	db := r.getDB(ctx)

	res := db.Model(&models.Account{}).
		Where("id = ?", id).
		Update("balance", gorm.Expr("balance + ?", amount))
	if res.Error != nil {
		return fmt.Errorf("failed to credit balance: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("failed to credit balance: account %d not found", id)
	}

	return nil
}

func (r *AccountRepositoryImpl) DebitBalance(ctx context.Context, id uint, amount decimal.Decimal) (bool, error) {
	db := r.getDB(ctx)

	res := db.Model(&models.Account{}).
		Where("id = ? AND balance >= ?", id, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return false, fmt.Errorf("failed to debit balance: %w", res.Error)
	}

	return res.RowsAffected == 1, nil
}

func (r *AccountRepositoryImpl) CreditCommission(ctx context.Context, id uint, bucket models.CommissionBucket, amount decimal.Decimal) error {
	col := bucket.Column()
	if col == "" {
		return fmt.Errorf("unknown commission bucket %q", bucket)
	}

	db := r.getDB(ctx)
	res := db.Model(&models.Account{}).
		Where("id = ?", id).
		Update(col, gorm.Expr(col+" + ?", amount))
	if res.Error != nil {
		return fmt.Errorf("failed to credit %s: %w", bucket, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("failed to credit %s: account %d not found", bucket, id)
	}

	return nil
}

func (r *AccountRepositoryImpl) TransferToBalance(ctx context.Context, id uint, bucket models.CommissionBucket, amount decimal.Decimal) (bool, error) {
	col := bucket.Column()
	if col == "" {
		return false, fmt.Errorf("unknown commission bucket %q", bucket)
	}

	db := r.getDB(ctx)
	res := db.Model(&models.Account{}).
		Where("id = ? AND "+col+" >= ?", id, amount).
		Updates(map[string]any{
			col:       gorm.Expr(col+" - ?", amount),
			"balance": gorm.Expr("balance + ?", amount),
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to transfer %s: %w", bucket, res.Error)
	}

	return res.RowsAffected == 1, nil
}

func (r *AccountRepositoryImpl) UpdateBridgeBalances(ctx context.Context, id uint, balances models.BridgeBalances) error {
	db := r.getDB(ctx)

	err := db.Model(&models.Account{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"game_win_commission_balance":  balances.GameWin,
			"game_loss_commission_balance": balances.GameLoss,
			"deposit_commission_balance":   balances.Deposit,
			"refer_commission_balance":     balances.Refer,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update bridge balances: %w", err)
	}

	return nil
}

func (r *AccountRepositoryImpl) UpdateCommissionRates(ctx context.Context, id uint, rates models.CommissionRates) error {
	db := r.getDB(ctx)

	err := db.Model(&models.Account{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"game_win_commission":  rates.GameWin,
			"game_loss_commission": rates.GameLoss,
			"deposit_commission":   rates.Deposit,
			"refer_commission":     rates.Refer,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update commission rates: %w", err)
	}

	return nil
}

// applyFilter applies filter criteria to a GORM query
func (r *AccountRepositoryImpl) applyFilter(query *gorm.DB, filter models.AccountFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.Username != nil {
		query = query.Where("username = ?", *filter.Username)
	}
	if filter.Role != nil {
		query = query.Where("role = ?", *filter.Role)
	}
	if filter.ReferredByID != nil {
		query = query.Where("referred_by_id = ?", *filter.ReferredByID)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	return query
}

// ByFilter retrieves accounts based on filter criteria
func (r *AccountRepositoryImpl) ByFilter(ctx context.Context, filter models.AccountFilter, orderBy string, limit, offset int) ([]*models.Account, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Account{}), filter)

	if orderBy == "" {
		orderBy = "id DESC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var accounts []*models.Account
	if err := query.Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("failed to find accounts: %w", err)
	}

	return accounts, nil
}

// Count returns the number of accounts matching the filter
func (r *AccountRepositoryImpl) Count(ctx context.Context, filter models.AccountFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Account{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}

	return count, nil
}
