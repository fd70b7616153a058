package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/betting-settlement/models"
	"gorm.io/gorm"
)

// PaymentMessageRepositoryImpl implements PaymentMessageRepository interface
type PaymentMessageRepositoryImpl struct {
	*BaseRepository[models.PaymentMessage, models.PaymentMessageFilter]
}

// NewPaymentMessageRepository creates a new payment message repository
func NewPaymentMessageRepository(db *gorm.DB) PaymentMessageRepository {
	return &PaymentMessageRepositoryImpl{
		BaseRepository: NewBaseRepository[models.PaymentMessage, models.PaymentMessageFilter](db),
	}
}

// FindMatch returns messages carrying trxID created at or after createdFrom
func (r *PaymentMessageRepositoryImpl) FindMatch(ctx context.Context, trxID string, createdFrom time.Time) ([]*models.PaymentMessage, error) {
	filter := models.PaymentMessageFilter{TrxID: &trxID, CreatedAfter: &createdFrom}
	return r.ByFilter(ctx, filter, "created_at ASC", 0, 0)
}

func (r *PaymentMessageRepositoryImpl) applyFilter(query *gorm.DB, filter models.PaymentMessageFilter) *gorm.DB {
	if filter.TrxID != nil {
		query = query.Where("trx_id = ?", *filter.TrxID)
	}
	if filter.Title != nil {
		query = query.Where("title = ?", *filter.Title)
	}
	if filter.DeviceID != nil {
		query = query.Where("device_id = ?", *filter.DeviceID)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves payment messages based on filter criteria
func (r *PaymentMessageRepositoryImpl) ByFilter(ctx context.Context, filter models.PaymentMessageFilter, orderBy string, limit, offset int) ([]*models.PaymentMessage, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.PaymentMessage{}), filter)

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

	var rows []*models.PaymentMessage
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find payment messages: %w", err)
	}

	return rows, nil
}

// Count returns the number of payment messages matching the filter
func (r *PaymentMessageRepositoryImpl) Count(ctx context.Context, filter models.PaymentMessageFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	if err := r.applyFilter(db.Model(&models.PaymentMessage{}), filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count payment messages: %w", err)
	}

	return count, nil
}
