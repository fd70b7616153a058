package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/amirphl/betting-settlement/app/dto"
	businessflow "github.com/amirphl/betting-settlement/business_flow"
	"github.com/gofiber/fiber/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeOpayFlow struct {
	callbackResp *dto.OpayCallbackResponse
	callbackErr  error
	signature    string
	body         string

	confirmResp  *dto.OpayDepositConfirmResponse
	confirmErr   error
	confirmed    *dto.OpayDepositConfirmRequest
	confirmCalls int
}

func (f *fakeOpayFlow) HandleCallback(_ context.Context, raw []byte, signature string) (*dto.OpayCallbackResponse, error) {
	f.body = string(raw)
	f.signature = signature
	return f.callbackResp, f.callbackErr
}

func (f *fakeOpayFlow) ConfirmDeposit(_ context.Context, req *dto.OpayDepositConfirmRequest, _ *businessflow.ClientMetadata) (*dto.OpayDepositConfirmResponse, error) {
	f.confirmCalls++
	f.confirmed = req
	return f.confirmResp, f.confirmErr
}

func (f *fakeOpayFlow) WaitForNotifications(context.Context) error { return nil }

type apiEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code string `json:"code"`
	} `json:"error"`
}

func newOpayTestApp(flow *fakeOpayFlow) *fiber.App {
	h := NewOpayHandler(flow, "X-Test-Signature", zap.NewNop(), false, time.Second)
	app := fiber.New()
	app.Post("/opay/callback", h.Callback)
	app.Post("/opay/deposit-confirm", h.DepositConfirm)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path, body string, headers map[string]string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func TestOpayHandler_Callback(t *testing.T) {
	t.Run("FlowErrorStillAnswers200", func(t *testing.T) {
		flow := &fakeOpayFlow{callbackErr: errors.New("db down")}
		app := newOpayTestApp(flow)

		status, raw := postJSON(t, app, "/opay/callback", `{"success":true,"trxid":"T1"}`, map[string]string{"X-Test-Signature": "abc"})
		assert.Equal(t, fiber.StatusOK, status)
		assert.JSONEq(t, `{"success":false}`, string(raw))
		assert.Equal(t, "abc", flow.signature)
		assert.Equal(t, `{"success":true,"trxid":"T1"}`, flow.body)
	})

	t.Run("InvalidSignatureStillAnswers200", func(t *testing.T) {
		flow := &fakeOpayFlow{
			callbackResp: &dto.OpayCallbackResponse{Success: false},
			callbackErr:  businessflow.NewBusinessError("INVALID_SIGNATURE", "Invalid signature", businessflow.ErrInvalidSignature),
		}
		status, raw := postJSON(t, newOpayTestApp(flow), "/opay/callback", `{}`, nil)
		assert.Equal(t, fiber.StatusOK, status)
		assert.JSONEq(t, `{"success":false}`, string(raw))
	})

	t.Run("Recorded", func(t *testing.T) {
		flow := &fakeOpayFlow{callbackResp: &dto.OpayCallbackResponse{Success: true}}
		status, raw := postJSON(t, newOpayTestApp(flow), "/opay/callback", `{"success":true}`, nil)
		assert.Equal(t, fiber.StatusOK, status)
		assert.JSONEq(t, `{"success":true}`, string(raw))
	})
}

func TestOpayHandler_DepositConfirm(t *testing.T) {
	ok := &dto.OpayDepositConfirmResponse{DepositTransactionID: "d-1", Status: "completed", Amount: "500.00", Bonus: "0.00"}

	t.Run("NumericAndQuotedAmounts", func(t *testing.T) {
		for _, body := range []string{
			`{"username":"player01","amount":500,"trxid":"OP-1"}`,
			`{"username":"player01","amount":"500","trxid":"OP-1"}`,
			`{"username":"player01","amount":500.25,"trxid":"OP-1"}`,
		} {
			flow := &fakeOpayFlow{confirmResp: ok}
			status, raw := postJSON(t, newOpayTestApp(flow), "/opay/deposit-confirm", body, map[string]string{"X-API-Key": "k1"})
			require.Equal(t, fiber.StatusOK, status, body)
			require.Equal(t, 1, flow.confirmCalls)
			assert.True(t, flow.confirmed.Amount.GreaterThanOrEqual(decimal.NewFromInt(500)))
			assert.Equal(t, "k1", flow.confirmed.APIKey)
			assert.Equal(t, "OP-1", flow.confirmed.TrxID)

			var env apiEnvelope
			require.NoError(t, json.Unmarshal(raw, &env))
			assert.True(t, env.Success)
			assert.Equal(t, "Deposit confirmed", env.Message)
		}
	})

	t.Run("NonNumericAmountRejected", func(t *testing.T) {
		flow := &fakeOpayFlow{confirmResp: ok}
		status, raw := postJSON(t, newOpayTestApp(flow), "/opay/deposit-confirm", `{"username":"player01","amount":"abc","trxid":"OP-1"}`, nil)
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Zero(t, flow.confirmCalls)

		var env apiEnvelope
		require.NoError(t, json.Unmarshal(raw, &env))
		assert.Equal(t, "INVALID_REQUEST", env.Error.Code)
	})

	t.Run("MissingUsernameRejected", func(t *testing.T) {
		flow := &fakeOpayFlow{confirmResp: ok}
		status, raw := postJSON(t, newOpayTestApp(flow), "/opay/deposit-confirm", `{"amount":10,"trxid":"OP-1"}`, nil)
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Zero(t, flow.confirmCalls)

		var env apiEnvelope
		require.NoError(t, json.Unmarshal(raw, &env))
		assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	})

	t.Run("AlreadyProcessed", func(t *testing.T) {
		again := *ok
		again.AlreadyProcessed = true
		flow := &fakeOpayFlow{confirmResp: &again}
		status, raw := postJSON(t, newOpayTestApp(flow), "/opay/deposit-confirm", `{"username":"player01","amount":500,"trxid":"OP-1"}`, nil)
		assert.Equal(t, fiber.StatusOK, status)

		var env apiEnvelope
		require.NoError(t, json.Unmarshal(raw, &env))
		assert.Equal(t, "Deposit already processed", env.Message)
	})

	t.Run("FlowErrorsMapToStatus", func(t *testing.T) {
		tests := []struct {
			name   string
			err    error
			status int
			code   string
		}{
			{"UnknownAccount", businessflow.NewBusinessError("ACCOUNT_NOT_FOUND", "Account not found", businessflow.ErrAccountNotFound), fiber.StatusNotFound, "ACCOUNT_NOT_FOUND"},
			{"BadAPIKey", businessflow.NewBusinessError("INVALID_API_KEY", "Invalid API key", businessflow.ErrInvalidAPIKey), fiber.StatusUnauthorized, "INVALID_API_KEY"},
			{"NonPositiveAmount", businessflow.NewBusinessError("OPAY_VALIDATION_FAILED", "Amount must be a positive number", businessflow.ErrInvalidAmount), fiber.StatusBadRequest, "OPAY_VALIDATION_FAILED"},
			{"TrxIDOfAnotherAccount", businessflow.NewBusinessError("PAYMENT_ALREADY_USED", "Payment already settled another deposit", businessflow.ErrDepositAlreadyProcessed), fiber.StatusConflict, "PAYMENT_ALREADY_USED"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				flow := &fakeOpayFlow{confirmErr: tt.err}
				status, raw := postJSON(t, newOpayTestApp(flow), "/opay/deposit-confirm", `{"username":"player01","amount":0,"trxid":"OP-1"}`, nil)
				assert.Equal(t, tt.status, status)

				var env apiEnvelope
				require.NoError(t, json.Unmarshal(raw, &env))
				assert.False(t, env.Success)
				assert.Equal(t, tt.code, env.Error.Code)
			})
		}
	})
}
