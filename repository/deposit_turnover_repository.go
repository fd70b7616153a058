package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/betting-settlement/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DepositTurnoverRepositoryImpl implements DepositTurnoverRepository interface
type DepositTurnoverRepositoryImpl struct {
	*BaseRepository[models.DepositTurnover, models.DepositTurnoverFilter]
}

// NewDepositTurnoverRepository creates a new turnover repository
func NewDepositTurnoverRepository(db *gorm.DB) DepositTurnoverRepository {
	return &DepositTurnoverRepositoryImpl{
		BaseRepository: NewBaseRepository[models.DepositTurnover, models.DepositTurnoverFilter](db),
	}
}

func (r *DepositTurnoverRepositoryImpl) OldestActiveForUpdate(ctx context.Context, accountID uint) (*models.DepositTurnover, error) {
	db := r.getDB(ctx)

	var t models.DepositTurnover
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("account_id = ? AND status = ? AND remaining_turnover > 0", accountID, models.TurnoverStatusActive).
		Order("created_at ASC, id ASC").
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock active turnover: %w", err)
	}

	return &t, nil
}

func (r *DepositTurnoverRepositoryImpl) Update(ctx context.Context, t *models.DepositTurnover) error {
	db := r.getDB(ctx)

	err := db.Model(&models.DepositTurnover{}).
		Where("id = ?", t.ID).
		Updates(map[string]any{
			"completed_turnover": t.CompletedTurnover,
			"remaining_turnover": t.RemainingTurnover,
			"status":             t.Status,
			"completed_at":       t.CompletedAt,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update turnover: %w", err)
	}

	return nil
}

func (r *DepositTurnoverRepositoryImpl) ListByAccount(ctx context.Context, accountID uint) ([]*models.DepositTurnover, error) {
	return r.ByFilter(ctx, models.DepositTurnoverFilter{AccountID: &accountID}, "created_at DESC", 0, 0)
}

func (r *DepositTurnoverRepositoryImpl) applyFilter(query *gorm.DB, filter models.DepositTurnoverFilter) *gorm.DB {
	if filter.AccountID != nil {
		query = query.Where("account_id = ?", *filter.AccountID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	return query
}

// ByFilter retrieves turnovers based on filter criteria
func (r *DepositTurnoverRepositoryImpl) ByFilter(ctx context.Context, filter models.DepositTurnoverFilter, orderBy string, limit, offset int) ([]*models.DepositTurnover, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.DepositTurnover{}), filter)

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

	var rows []*models.DepositTurnover
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find turnovers: %w", err)
	}

	return rows, nil
}

// Count returns the number of turnovers matching the filter
func (r *DepositTurnoverRepositoryImpl) Count(ctx context.Context, filter models.DepositTurnoverFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	if err := r.applyFilter(db.Model(&models.DepositTurnover{}), filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count turnovers: %w", err)
	}

	return count, nil
}
