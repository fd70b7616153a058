package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/betting-settlement/models"
	"gorm.io/gorm"
)

// OpayVerifiedTransactionRepositoryImpl implements OpayVerifiedTransactionRepository interface
type OpayVerifiedTransactionRepositoryImpl struct {
	*BaseRepository[models.OpayVerifiedTransaction, struct{}]
}

// NewOpayVerifiedTransactionRepository creates a new OPay verified transaction repository
func NewOpayVerifiedTransactionRepository(db *gorm.DB) OpayVerifiedTransactionRepository {
	return &OpayVerifiedTransactionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.OpayVerifiedTransaction, struct{}](db),
	}
}

func (r *OpayVerifiedTransactionRepositoryImpl) ByTrxID(ctx context.Context, trxID string) (*models.OpayVerifiedTransaction, error) {
	db := r.getDB(ctx)

	var row models.OpayVerifiedTransaction
	err := db.Where("trx_id = ?", trxID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find opay transaction by trxid: %w", err)
	}

	return &row, nil
}

func (r *OpayVerifiedTransactionRepositoryImpl) ByTokenAndAddress(ctx context.Context, token, address string) (*models.OpayVerifiedTransaction, error) {
	db := r.getDB(ctx)

	var row models.OpayVerifiedTransaction
	err := db.Where("token = ? AND user_identify_address = ?", token, address).
		Order("id DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find opay transaction by token: %w", err)
	}

	return &row, nil
}

// Update overwrites the mutable callback fields of an existing row
func (r *OpayVerifiedTransactionRepositoryImpl) Update(ctx context.Context, row *models.OpayVerifiedTransaction) error {
	db := r.getDB(ctx)

	err := db.Model(&models.OpayVerifiedTransaction{}).
		Where("id = ?", row.ID).
		Updates(map[string]any{
			"success":               row.Success,
			"user_identify_address": row.UserIdentifyAddress,
			"amount":                row.Amount,
			"trx_id":                row.TrxID,
			"token":                 row.Token,
			"method":                row.Method,
			"time":                  row.Time,
			"raw":                   row.Raw,
			"updated_at":            time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update opay transaction: %w", err)
	}

	return nil
}

func (r *OpayVerifiedTransactionRepositoryImpl) MarkNotified(ctx context.Context, id uint, at time.Time) error {
	db := r.getDB(ctx)

	err := db.Model(&models.OpayVerifiedTransaction{}).
		Where("id = ?", id).
		Update("notified_at", at).Error
	if err != nil {
		return fmt.Errorf("failed to mark opay transaction notified: %w", err)
	}

	return nil
}
