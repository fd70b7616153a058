package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/betting-settlement/models"
	"gorm.io/gorm"
)

// DepositBonusRepositoryImpl implements DepositBonusRepository interface
type DepositBonusRepositoryImpl struct {
	*BaseRepository[models.DepositBonus, struct{}]
}

// NewDepositBonusRepository creates a new deposit bonus repository
func NewDepositBonusRepository(db *gorm.DB) DepositBonusRepository {
	return &DepositBonusRepositoryImpl{
		BaseRepository: NewBaseRepository[models.DepositBonus, struct{}](db),
	}
}

func (r *DepositBonusRepositoryImpl) ListActive(ctx context.Context) ([]*models.DepositBonus, error) {
	db := r.getDB(ctx)

	var rows []*models.DepositBonus
	if err := db.Where("is_active = ?", true).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list deposit bonuses: %w", err)
	}

	return rows, nil
}
