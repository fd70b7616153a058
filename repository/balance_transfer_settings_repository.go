package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/betting-settlement/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BalanceTransferSettingsRepositoryImpl implements BalanceTransferSettingsRepository interface
type BalanceTransferSettingsRepositoryImpl struct {
	*BaseRepository[models.BalanceTransferSettings, struct{}]
}

// NewBalanceTransferSettingsRepository creates a new settings repository
func NewBalanceTransferSettingsRepository(db *gorm.DB) BalanceTransferSettingsRepository {
	return &BalanceTransferSettingsRepositoryImpl{
		BaseRepository: NewBaseRepository[models.BalanceTransferSettings, struct{}](db),
	}
}

// Get returns the singleton row, or nil when no admin has saved rules yet
func (r *BalanceTransferSettingsRepositoryImpl) Get(ctx context.Context) (*models.BalanceTransferSettings, error) {
	db := r.getDB(ctx)

	var s models.BalanceTransferSettings
	err := db.Where("id = ?", models.BalanceTransferSettingsID).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load balance transfer settings: %w", err)
	}

	return &s, nil
}

func (r *BalanceTransferSettingsRepositoryImpl) Upsert(ctx context.Context, s *models.BalanceTransferSettings) error {
	db := r.getDB(ctx)

	s.ID = models.BalanceTransferSettingsID
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rules", "updated_by", "updated_at"}),
	}).Create(s).Error
	if err != nil {
		return fmt.Errorf("failed to save balance transfer settings: %w", err)
	}

	return nil
}
