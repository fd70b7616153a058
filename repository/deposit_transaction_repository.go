package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/betting-settlement/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DepositTransactionRepositoryImpl implements DepositTransactionRepository interface
type DepositTransactionRepositoryImpl struct {
	*BaseRepository[models.DepositTransaction, models.DepositTransactionFilter]
}

// NewDepositTransactionRepository creates a new deposit transaction repository
func NewDepositTransactionRepository(db *gorm.DB) DepositTransactionRepository {
	return &DepositTransactionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.DepositTransaction, models.DepositTransactionFilter](db),
	}
}

// ByUUID retrieves a deposit by its public id
func (r *DepositTransactionRepositoryImpl) ByUUID(ctx context.Context, id uuid.UUID) (*models.DepositTransaction, error) {
	db := r.getDB(ctx)

	var dt models.DepositTransaction
	err := db.Where("uuid = ?", id).First(&dt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find deposit by uuid: %w", err)
	}

	return &dt, nil
}

// ByExternalTrxID retrieves a deposit by the gateway transaction id
func (r *DepositTransactionRepositoryImpl) ByExternalTrxID(ctx context.Context, trxID string) (*models.DepositTransaction, error) {
	db := r.getDB(ctx)

	var dt models.DepositTransaction
	err := db.Where("external_trx_id = ?", trxID).First(&dt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find deposit by external trx id: %w", err)
	}

	return &dt, nil
}

func (r *DepositTransactionRepositoryImpl) CompleteIfPending(ctx context.Context, id uint, externalTrxID *string, completedAt time.Time) (bool, error) {
	db := r.getDB(ctx)

	updates := map[string]any{
		"status":       models.DepositStatusCompleted,
		"completed_at": completedAt,
		"updated_at":   completedAt,
	}
	if externalTrxID != nil {
		updates["external_trx_id"] = *externalTrxID
	}

	res := db.Model(&models.DepositTransaction{}).
		Where("id = ? AND status = ?", id, models.DepositStatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("failed to complete deposit: %w", res.Error)
	}

	return res.RowsAffected == 1, nil
}

func (r *DepositTransactionRepositoryImpl) FailIfPending(ctx context.Context, id uint, status models.DepositStatus, reason string) (bool, error) {
	if !models.DepositStatusPending.CanTransitionTo(status) || status == models.DepositStatusCompleted {
		return false, fmt.Errorf("invalid final status %q", status)
	}

	db := r.getDB(ctx)
	res := db.Model(&models.DepositTransaction{}).
		Where("id = ? AND status = ?", id, models.DepositStatusPending).
		Updates(map[string]any{
			"status": status,
			"reason": reason,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to close deposit: %w", res.Error)
	}

	return res.RowsAffected == 1, nil
}

func (r *DepositTransactionRepositoryImpl) applyFilter(query *gorm.DB, filter models.DepositTransactionFilter) *gorm.DB {
	if filter.AccountID != nil {
		query = query.Where("account_id = ?", *filter.AccountID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Source != nil {
		query = query.Where("source = ?", *filter.Source)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves deposits based on filter criteria
func (r *DepositTransactionRepositoryImpl) ByFilter(ctx context.Context, filter models.DepositTransactionFilter, orderBy string, limit, offset int) ([]*models.DepositTransaction, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.DepositTransaction{}), filter)

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

	var rows []*models.DepositTransaction
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find deposits: %w", err)
	}

	return rows, nil
}

// Count returns the number of deposits matching the filter
func (r *DepositTransactionRepositoryImpl) Count(ctx context.Context, filter models.DepositTransactionFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	if err := r.applyFilter(db.Model(&models.DepositTransaction{}), filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count deposits: %w", err)
	}

	return count, nil
}
