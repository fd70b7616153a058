package handlers

import (
	"time"

	"github.com/amirphl/betting-settlement/app/dto"
	"github.com/amirphl/betting-settlement/app/middleware"
	businessflow "github.com/amirphl/betting-settlement/business_flow"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// DeviceKeyHeader carries the optional shared secret of the forwarding device
const DeviceKeyHeader = "X-Device-Key"

// AutoPaymentHandlerInterface defines the contract for the auto-payment endpoints
type AutoPaymentHandlerInterface interface {
	Ingest(c fiber.Ctx) error
	CreateDeposit(c fiber.Ctx) error
	CheckAutoPayment(c fiber.Ctx) error
	ExportPaymentMessages(c fiber.Ctx) error
}

// AutoPaymentHandler serves device notifications, deposit requests and their matching
type AutoPaymentHandler struct {
	baseHandler
	autoPaymentFlow businessflow.AutoPaymentFlow
	depositFlow     businessflow.DepositFlow
}

func NewAutoPaymentHandler(
	autoPaymentFlow businessflow.AutoPaymentFlow,
	depositFlow businessflow.DepositFlow,
	logger *zap.Logger,
	exposeDetails bool,
	timeout time.Duration,
) *AutoPaymentHandler {
	return &AutoPaymentHandler{
		baseHandler:     newBaseHandler(logger, exposeDetails, timeout),
		autoPaymentFlow: autoPaymentFlow,
		depositFlow:     depositFlow,
	}
}

// Ingest stores a forwarded payment notification
// @Summary Auto-payment notification
// @Description Append a device notification to the day log and store it as a payment message when it is a complete provider text
// @Tags Auto Payment
// @Accept json
// @Produce json
// @Param X-Device-Key header string false "Device key"
// @Param request body dto.AutoPaymentRequest true "Notification"
// @Success 200 {object} dto.APIResponse{data=dto.AutoPaymentResponse} "Notification logged"
// @Failure 401 {object} dto.APIResponse "Invalid device key"
// @Failure 500 {object} dto.APIResponse "Failed to write the day log"
// @Router /auto-payment [post]
func (h *AutoPaymentHandler) Ingest(c fiber.Ctx) error {
	const endpoint = "/auto-payment"

	var req dto.AutoPaymentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.DeviceKey = c.Get(DeviceKeyHeader)

	ctx, cancel := h.createRequestContext(c, endpoint)
	defer cancel()

	result, err := h.autoPaymentFlow.Ingest(ctx, &req)
	if err != nil {
		return h.BusinessErrorResponse(c, err, endpoint)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Notification received", result)
}

// CreateDeposit opens a pending deposit for the authenticated account
// @Summary Create deposit
// @Tags Deposits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateDepositRequest true "Deposit"
// @Success 201 {object} dto.APIResponse{data=dto.DepositTransactionDTO} "Deposit created"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 404 {object} dto.APIResponse "Deposit bonus not found"
// @Router /api/deposit-transactions [post]
func (h *AutoPaymentHandler) CreateDeposit(c fiber.Ctx) error {
	const endpoint = "/api/deposit-transactions"

	accountID, ok := middleware.GetAccountIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	var req dto.CreateDepositRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ValidationErrorResponse(c, err)
	}
	req.AccountID = accountID

	ctx, cancel := h.createRequestContext(c, endpoint)
	defer cancel()

	result, err := h.depositFlow.CreateDeposit(ctx, &req, h.metadata(c))
	if err != nil {
		return h.BusinessErrorResponse(c, err, endpoint)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Deposit created", result)
}

// CheckAutoPayment tries to settle a pending deposit against the stored payment messages
// @Summary Check auto payment
// @Description Completes the deposit when a payment message with the claimed trxID and the same amount was received
// @Tags Deposits
// @Produce json
// @Security BearerAuth
// @Param transactionId path string true "Deposit UUID"
// @Success 200 {object} dto.APIResponse{data=dto.CheckAutoPaymentResponse} "Current deposit state"
// @Failure 400 {object} dto.APIResponse "Invalid transaction id"
// @Failure 404 {object} dto.APIResponse "Transaction not found"
// @Router /check-auto-payment/{transactionId} [get]
func (h *AutoPaymentHandler) CheckAutoPayment(c fiber.Ctx) error {
	const endpoint = "/check-auto-payment"

	accountID, ok := middleware.GetAccountIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	ctx, cancel := h.createRequestContext(c, endpoint)
	defer cancel()

	result, err := h.depositFlow.CheckAutoPayment(ctx, c.Params("transactionId"), accountID, h.metadata(c))
	if err != nil {
		return h.BusinessErrorResponse(c, err, endpoint)
	}

	message := "Payment not received yet"
	switch {
	case result.Matched:
		message = "Payment verified"
	case result.Status != "pending":
		message = "Transaction already " + result.Status
	}
	return h.SuccessResponse(c, fiber.StatusOK, message, result)
}

// ExportPaymentMessages downloads stored payment messages as an Excel file
// @Summary Export payment messages
// @Tags Admin Payments
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param start_date query string false "YYYY-MM-DD"
// @Param end_date query string false "YYYY-MM-DD"
// @Param title query string false "Provider title"
// @Success 200 {string} string "Excel file"
// @Failure 400 {object} dto.APIResponse
// @Failure 500 {object} dto.APIResponse
// @Router /api/admin/payment-messages/export [get]
func (h *AutoPaymentHandler) ExportPaymentMessages(c fiber.Ctx) error {
	const endpoint = "/api/admin/payment-messages/export"

	var req dto.ExportPaymentMessagesRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ValidationErrorResponse(c, err)
	}

	ctx, cancel := h.createRequestContext(c, endpoint)
	defer cancel()

	filename, data, err := h.autoPaymentFlow.ExportPaymentMessages(ctx, &req)
	if err != nil {
		return h.BusinessErrorResponse(c, err, endpoint)
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", "attachment; filename="+filename)
	return c.Send(data)
}
