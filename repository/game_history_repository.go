package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/betting-settlement/models"
	"gorm.io/gorm"
)

// GameHistoryRepositoryImpl implements GameHistoryRepository interface
type GameHistoryRepositoryImpl struct {
	*BaseRepository[models.GameHistory, struct{}]
}

// NewGameHistoryRepository creates a new game history repository
func NewGameHistoryRepository(db *gorm.DB) GameHistoryRepository {
	return &GameHistoryRepositoryImpl{
		BaseRepository: NewBaseRepository[models.GameHistory, struct{}](db),
	}
}

func (r *GameHistoryRepositoryImpl) ByTransaction(ctx context.Context, transactionID string, betType models.BetType) (*models.GameHistory, error) {
	db := r.getDB(ctx)

	var h models.GameHistory
	err := db.Where("transaction_id = ? AND bet_type = ?", transactionID, betType).First(&h).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find game history: %w", err)
	}

	return &h, nil
}

// UpdateStatus sets the outcome on every row of a provider transaction
func (r *GameHistoryRepositoryImpl) UpdateStatus(ctx context.Context, transactionID string, status models.GameStatus) error {
	db := r.getDB(ctx)

	err := db.Model(&models.GameHistory{}).
		Where("transaction_id = ?", transactionID).
		Update("status", status).Error
	if err != nil {
		return fmt.Errorf("failed to update game history status: %w", err)
	}

	return nil
}
