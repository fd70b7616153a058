package businessflow

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/amirphl/betting-settlement/app/dto"
	"github.com/amirphl/betting-settlement/app/services"
	"github.com/amirphl/betting-settlement/config"
	"github.com/amirphl/betting-settlement/models"
	"github.com/amirphl/betting-settlement/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const bkashText = "You have received Cash-out of Tk. 150.00 from 01768734982. TrxID 01K6YMAPGB at 07/10/2025 12:04."

type failingLocker struct{}

func (failingLocker) Lock(ctx context.Context, day string) (func(), error) {
	return nil, errors.New("redis unavailable")
}

func newTestAutoPaymentFlow(t *testing.T, l *ledger, dir string, locker services.DayFileLocker, cfg config.AutoPaymentConfig) AutoPaymentFlow {
	t.Helper()
	flow, err := NewAutoPaymentFlow(l.payments, services.NewDayFileStore(dir), locker, cfg, l.logger)
	require.NoError(t, err)
	return flow
}

func TestAutoPaymentFlowIngest(t *testing.T) {
	ctx := context.Background()

	t.Run("StoresKnownCompleteMessage", func(t *testing.T) {
		l := newLedger()
		dir := t.TempDir()
		flow := newTestAutoPaymentFlow(t, l, dir, services.NewLocalDayFileLocker(), config.AutoPaymentConfig{})

		resp, err := flow.Ingest(ctx, &dto.AutoPaymentRequest{Type: "sms", Title: models.PaymentTitleBkash, Text: bkashText, DeviceID: "d1", DeviceName: "Pixel"})
		require.NoError(t, err)
		assert.Equal(t, "data-0", resp.Key)
		assert.True(t, resp.Stored)
		require.NotNil(t, resp.Parsed.TrxID)
		assert.Equal(t, "01K6YMAPGB", *resp.Parsed.TrxID)

		stored, err := l.payments.ByFilter(ctx, models.PaymentMessageFilter{}, "", 0, 0)
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Equal(t, "d1", stored[0].DeviceID)
		assertMoney(t, "150", stored[0].Amount)

		entries, err := services.NewDayFileStore(dir).Read(resp.Date)
		require.NoError(t, err)
		assert.Contains(t, entries, "data-0")
	})

	t.Run("DuplicateTrxIDIsLoggedNotRaised", func(t *testing.T) {
		l := newLedger()
		flow := newTestAutoPaymentFlow(t, l, t.TempDir(), services.NewLocalDayFileLocker(), config.AutoPaymentConfig{})
		req := &dto.AutoPaymentRequest{Title: models.PaymentTitleBkash, Text: bkashText}

		first, err := flow.Ingest(ctx, req)
		require.NoError(t, err)
		second, err := flow.Ingest(ctx, req)
		require.NoError(t, err)

		assert.True(t, first.Stored)
		assert.False(t, second.Stored)
		assert.Equal(t, "data-1", second.Key)

		count, err := l.payments.Count(ctx, models.PaymentMessageFilter{})
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
	})

	t.Run("UnknownTitleOnlyLogged", func(t *testing.T) {
		l := newLedger()
		flow := newTestAutoPaymentFlow(t, l, t.TempDir(), services.NewLocalDayFileLocker(), config.AutoPaymentConfig{})

		resp, err := flow.Ingest(ctx, &dto.AutoPaymentRequest{Title: "WhatsApp", Text: bkashText})
		require.NoError(t, err)
		assert.False(t, resp.Stored)

		count, err := l.payments.Count(ctx, models.PaymentMessageFilter{})
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("IncompleteTextOnlyLogged", func(t *testing.T) {
		l := newLedger()
		flow := newTestAutoPaymentFlow(t, l, t.TempDir(), services.NewLocalDayFileLocker(), config.AutoPaymentConfig{})

		resp, err := flow.Ingest(ctx, &dto.AutoPaymentRequest{Title: models.PaymentTitleNagad, Text: "Tk 10 received"})
		require.NoError(t, err)
		assert.False(t, resp.Stored)
		assert.Equal(t, utils.PaymentTextNotExist, resp.Parsed.From)
	})

	t.Run("DeviceKeyChecked", func(t *testing.T) {
		l := newLedger()
		flow := newTestAutoPaymentFlow(t, l, t.TempDir(), services.NewLocalDayFileLocker(), config.AutoPaymentConfig{DeviceKey: "secret"})

		_, err := flow.Ingest(ctx, &dto.AutoPaymentRequest{Title: models.PaymentTitleBkash, Text: bkashText, DeviceKey: "wrong"})
		assert.True(t, IsInvalidDeviceKey(err))

		resp, err := flow.Ingest(ctx, &dto.AutoPaymentRequest{Title: models.PaymentTitleBkash, Text: bkashText, DeviceKey: "secret"})
		require.NoError(t, err)
		assert.True(t, resp.Stored)
	})

	t.Run("LockFailure", func(t *testing.T) {
		l := newLedger()
		flow := newTestAutoPaymentFlow(t, l, t.TempDir(), failingLocker{}, config.AutoPaymentConfig{})

		_, err := flow.Ingest(ctx, &dto.AutoPaymentRequest{Title: models.PaymentTitleBkash, Text: bkashText})
		assert.True(t, IsLockNotAcquired(err))
	})

	t.Run("WriteFailureSkipsStorage", func(t *testing.T) {
		l := newLedger()
		blocker := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
		flow := newTestAutoPaymentFlow(t, l, filepath.Join(blocker, "sub"), services.NewLocalDayFileLocker(), config.AutoPaymentConfig{})

		_, err := flow.Ingest(ctx, &dto.AutoPaymentRequest{Title: models.PaymentTitleBkash, Text: bkashText})
		assert.True(t, IsDayFileWriteFailed(err))

		count, err := l.payments.Count(ctx, models.PaymentMessageFilter{})
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("InvalidLocation", func(t *testing.T) {
		l := newLedger()
		_, err := NewAutoPaymentFlow(l.payments, services.NewDayFileStore(t.TempDir()), services.NewLocalDayFileLocker(), config.AutoPaymentConfig{Location: "Mars/Olympus"}, l.logger)
		assert.Error(t, err)
	})
}

func TestAutoPaymentFlowExport(t *testing.T) {
	ctx := context.Background()
	l := newLedger()
	flow := newTestAutoPaymentFlow(t, l, t.TempDir(), services.NewLocalDayFileLocker(), config.AutoPaymentConfig{})

	storePaymentMessage(t, l, "A1", "100", time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC))
	storePaymentMessage(t, l, "A2", "200", time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC))
	storePaymentMessage(t, l, "A3", "300", time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC))

	t.Run("InclusiveDayRange", func(t *testing.T) {
		name, data, err := flow.ExportPaymentMessages(ctx, &dto.ExportPaymentMessagesRequest{StartDate: "2026-01-01", EndDate: "2026-01-02"})
		require.NoError(t, err)
		assert.Equal(t, "payment_messages_2026-01-01_2026-01-02.xlsx", name)

		xl, err := excelize.OpenReader(bytes.NewReader(data))
		require.NoError(t, err)
		defer xl.Close()

		rows, err := xl.GetRows("payment_messages")
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, "trx_id", rows[0][2])
		assert.Equal(t, "A1", rows[1][2])
		assert.Equal(t, "200.00", rows[2][3])
	})

	t.Run("StartAfterEnd", func(t *testing.T) {
		_, _, err := flow.ExportPaymentMessages(ctx, &dto.ExportPaymentMessagesRequest{StartDate: "2026-01-03", EndDate: "2026-01-02"})
		assert.True(t, IsStartDateAfterEndDate(err))
	})
}
