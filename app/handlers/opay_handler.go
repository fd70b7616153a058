package handlers

import (
	"time"

	"github.com/amirphl/betting-settlement/app/dto"
	businessflow "github.com/amirphl/betting-settlement/business_flow"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// OpayHandlerInterface defines the contract for the OPay gateway endpoints
type OpayHandlerInterface interface {
	Callback(c fiber.Ctx) error
	DepositConfirm(c fiber.Ctx) error
}

type OpayHandler struct {
	baseHandler
	opayFlow        businessflow.OpayFlow
	signatureHeader string
}

func NewOpayHandler(opayFlow businessflow.OpayFlow, signatureHeader string, logger *zap.Logger, exposeDetails bool, timeout time.Duration) *OpayHandler {
	if signatureHeader == "" {
		signatureHeader = "X-Opay-Signature"
	}
	return &OpayHandler{
		baseHandler:     newBaseHandler(logger, exposeDetails, timeout),
		opayFlow:        opayFlow,
		signatureHeader: signatureHeader,
	}
}

// Callback records a gateway verification webhook. The gateway always gets 200.
// @Summary OPay verification callback
// @Tags OPay
// @Accept json
// @Produce json
// @Param request body dto.OpayCallbackRequest true "Verification"
// @Success 200 {object} dto.OpayCallbackResponse
// @Router /opay/callback [post]
func (h *OpayHandler) Callback(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/opay/callback")
	defer cancel()

	body := append([]byte(nil), c.Body()...)
	result, err := h.opayFlow.HandleCallback(ctx, body, c.Get(h.signatureHeader))
	if err != nil {
		h.logger.Warn("opay callback not recorded", zap.Error(err))
	}
	if result == nil {
		result = &dto.OpayCallbackResponse{Success: false}
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

// DepositConfirm credits a gateway-verified deposit
// @Summary OPay deposit confirm
// @Description Idempotent on trxid: a repeated confirmation reports already_processed without crediting
// @Tags OPay
// @Accept json
// @Produce json
// @Param X-API-Key header string false "API key"
// @Param request body dto.OpayDepositConfirmRequest true "Deposit"
// @Success 200 {object} dto.APIResponse{data=dto.OpayDepositConfirmResponse}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Invalid API key"
// @Failure 404 {object} dto.APIResponse "Account not found"
// @Router /opay/deposit-confirm [post]
func (h *OpayHandler) DepositConfirm(c fiber.Ctx) error {
	const endpoint = "/opay/deposit-confirm"

	var req dto.OpayDepositConfirmRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ValidationErrorResponse(c, err)
	}
	req.APIKey = c.Get("X-API-Key")

	ctx, cancel := h.createRequestContext(c, endpoint)
	defer cancel()

	result, err := h.opayFlow.ConfirmDeposit(ctx, &req, h.metadata(c))
	if err != nil {
		return h.BusinessErrorResponse(c, err, endpoint)
	}

	message := "Deposit confirmed"
	if result.AlreadyProcessed {
		message = "Deposit already processed"
	}
	return h.SuccessResponse(c, fiber.StatusOK, message, result)
}
