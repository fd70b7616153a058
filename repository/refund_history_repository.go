package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/betting-settlement/models"
	"gorm.io/gorm"
)

// RefundHistoryRepositoryImpl implements RefundHistoryRepository interface
type RefundHistoryRepositoryImpl struct {
	*BaseRepository[models.RefundHistory, struct{}]
}

// NewRefundHistoryRepository creates a new refund history repository
func NewRefundHistoryRepository(db *gorm.DB) RefundHistoryRepository {
	return &RefundHistoryRepositoryImpl{
		BaseRepository: NewBaseRepository[models.RefundHistory, struct{}](db),
	}
}

func (r *RefundHistoryRepositoryImpl) ByTransactionID(ctx context.Context, transactionID string) (*models.RefundHistory, error) {
	db := r.getDB(ctx)

	var h models.RefundHistory
	err := db.Where("transaction_id = ?", transactionID).First(&h).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find refund history: %w", err)
	}

	return &h, nil
}
