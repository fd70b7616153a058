package businessflow

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/betting-settlement/app/dto"
	"github.com/amirphl/betting-settlement/app/services"
	"github.com/amirphl/betting-settlement/config"
	"github.com/amirphl/betting-settlement/models"
	"github.com/amirphl/betting-settlement/repository"
	"github.com/amirphl/betting-settlement/utils"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const paymentMessagesExportLimit = 50000

// AutoPaymentFlow ingests device notifications and exposes the stored payment messages
type AutoPaymentFlow interface {
	Ingest(ctx context.Context, req *dto.AutoPaymentRequest) (*dto.AutoPaymentResponse, error)
	ExportPaymentMessages(ctx context.Context, req *dto.ExportPaymentMessagesRequest) (filename string, data []byte, err error)
}

type AutoPaymentFlowImpl struct {
	paymentRepo repository.PaymentMessageRepository
	store       *services.DayFileStore
	locker      services.DayFileLocker
	cfg         config.AutoPaymentConfig
	location    *time.Location
	logger      *zap.Logger
}

func NewAutoPaymentFlow(
	paymentRepo repository.PaymentMessageRepository,
	store *services.DayFileStore,
	locker services.DayFileLocker,
	cfg config.AutoPaymentConfig,
	logger *zap.Logger,
) (AutoPaymentFlow, error) {
	location := time.UTC
	if cfg.Location != "" {
		loc, err := time.LoadLocation(cfg.Location)
		if err != nil {
			return nil, fmt.Errorf("invalid auto-payment location %q: %w", cfg.Location, err)
		}
		location = loc
	}
	return &AutoPaymentFlowImpl{
		paymentRepo: paymentRepo,
		store:       store,
		locker:      locker,
		cfg:         cfg,
		location:    location,
		logger:      logger,
	}, nil
}

// dayFileEntry is what gets appended for every notification, parsed or not
type dayFileEntry struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	Text       string `json:"text"`
	Timestamp  any    `json:"timestamp,omitempty"`
	DeviceID   string `json:"device_id"`
	DeviceName string `json:"device_name"`
	ReceivedAt string `json:"received_at"`
}

// Ingest appends the notification to today's file, then stores a PaymentMessage when the text is
// complete and the title is a known provider. Storage problems after the file write are only logged.
func (f *AutoPaymentFlowImpl) Ingest(ctx context.Context, req *dto.AutoPaymentRequest) (*dto.AutoPaymentResponse, error) {
	if f.cfg.DeviceKey != "" && subtle.ConstantTimeCompare([]byte(req.DeviceKey), []byte(f.cfg.DeviceKey)) != 1 {
		return nil, NewBusinessError("INVALID_DEVICE_KEY", "Invalid device key", ErrInvalidDeviceKey)
	}

	now := time.Now().In(f.location)
	day := utils.DayKey(now)

	unlock, err := f.locker.Lock(ctx, day)
	if err != nil {
		return nil, NewBusinessError("AUTO_PAYMENT_LOCK_FAILED", "Failed to acquire day-file lock", fmt.Errorf("%w: %v", ErrLockNotAcquired, err))
	}
	key, err := f.store.Append(day, dayFileEntry{
		Type:       req.Type,
		Title:      req.Title,
		Text:       req.Text,
		Timestamp:  req.Timestamp,
		DeviceID:   req.DeviceID,
		DeviceName: req.DeviceName,
		ReceivedAt: now.Format(time.RFC3339),
	})
	unlock()
	if err != nil {
		f.logger.Error("failed to append day file", zap.String("day", day), zap.Error(err))
		return nil, NewBusinessError("AUTO_PAYMENT_WRITE_FAILED", "Failed to write notification log", fmt.Errorf("%w: %v", ErrDayFileWriteFailed, err))
	}

	parsed := ParseTransactionText(req.Text)
	resp := &dto.AutoPaymentResponse{
		Key:    key,
		Date:   day,
		Parsed: ToParsedPaymentTextDTO(parsed),
	}

	switch {
	case !models.IsKnownPaymentTitle(req.Title):
		paymentMessagesTotal.WithLabelValues("ignored").Inc()
		return resp, nil
	case !parsed.Complete():
		paymentMessagesTotal.WithLabelValues("incomplete").Inc()
		f.logger.Info("payment text incomplete", zap.String("title", req.Title), zap.String("key", key))
		return resp, nil
	}

	msg := &models.PaymentMessage{
		Amount:     *parsed.Amount,
		From:       parsed.From,
		TrxID:      *parsed.TrxID,
		Date:       *parsed.Date,
		Time:       *parsed.Time,
		DeviceName: req.DeviceName,
		DeviceID:   req.DeviceID,
		Title:      req.Title,
	}
	if err := f.paymentRepo.Save(ctx, msg); err != nil {
		if isDuplicateKey(err) {
			paymentMessagesTotal.WithLabelValues("duplicate").Inc()
			f.logger.Info("duplicate payment message", zap.String("trx_id", msg.TrxID), zap.String("title", msg.Title))
			return resp, nil
		}
		paymentMessagesTotal.WithLabelValues("error").Inc()
		f.logger.Error("failed to store payment message", zap.String("trx_id", msg.TrxID), zap.Error(err))
		return resp, nil
	}

	paymentMessagesTotal.WithLabelValues("stored").Inc()
	resp.Stored = true
	return resp, nil
}

// ExportPaymentMessages builds an xlsx of stored messages; dates are inclusive days in the configured location
func (f *AutoPaymentFlowImpl) ExportPaymentMessages(ctx context.Context, req *dto.ExportPaymentMessagesRequest) (string, []byte, error) {
	filter := models.PaymentMessageFilter{}
	var start, end *time.Time
	if req.StartDate != "" {
		t, err := time.ParseInLocation(time.DateOnly, req.StartDate, f.location)
		if err != nil {
			return "", nil, NewBusinessError("VALIDATION_ERROR", "start_date must be YYYY-MM-DD", err)
		}
		start = &t
		filter.CreatedAfter = &t
	}
	if req.EndDate != "" {
		t, err := time.ParseInLocation(time.DateOnly, req.EndDate, f.location)
		if err != nil {
			return "", nil, NewBusinessError("VALIDATION_ERROR", "end_date must be YYYY-MM-DD", err)
		}
		next := t.AddDate(0, 0, 1)
		end = &t
		filter.CreatedBefore = &next
	}
	if start != nil && end != nil && start.After(*end) {
		return "", nil, NewBusinessError("VALIDATION_ERROR", "start_date cannot be after end_date", ErrStartDateAfterEndDate)
	}
	if title := strings.TrimSpace(req.Title); title != "" {
		filter.Title = &title
	}

	rows, err := f.paymentRepo.ByFilter(ctx, filter, "created_at ASC, id ASC", paymentMessagesExportLimit, 0)
	if err != nil {
		return "", nil, NewBusinessError("FETCH_PAYMENT_MESSAGES_FAILED", "Failed to fetch payment messages", err)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := "payment_messages"
	xl.SetSheetName(xl.GetSheetName(0), sheet)

	header := []string{"id", "title", "trx_id", "amount", "from", "date", "time", "device_id", "device_name", "created_at"}
	_ = xl.SetSheetRow(sheet, "A1", &header)

	for i, m := range rows {
		record := []string{
			strconv.FormatUint(uint64(m.ID), 10),
			m.Title,
			m.TrxID,
			m.Amount.StringFixed(2),
			m.From,
			m.Date,
			m.Time,
			m.DeviceID,
			m.DeviceName,
			m.CreatedAt.In(f.location).Format(time.RFC3339),
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, i+2)
		_ = xl.SetSheetRow(sheet, cellRef, &record)
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}

	filename := "payment_messages.xlsx"
	if req.StartDate != "" || req.EndDate != "" {
		filename = fmt.Sprintf("payment_messages_%s_%s.xlsx", req.StartDate, req.EndDate)
	}
	return filename, buf.Bytes(), nil
}
