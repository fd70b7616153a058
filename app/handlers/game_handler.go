package handlers

import (
	"time"

	"github.com/amirphl/betting-settlement/app/dto"
	businessflow "github.com/amirphl/betting-settlement/business_flow"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// GameHandlerInterface defines the contract for the game provider endpoints
type GameHandlerInterface interface {
	Callback(c fiber.Ctx) error
	Refund(c fiber.Ctx) error
}

type GameHandler struct {
	baseHandler
	gameFlow businessflow.GameCallbackFlow
}

func NewGameHandler(gameFlow businessflow.GameCallbackFlow, logger *zap.Logger, exposeDetails bool, timeout time.Duration) *GameHandler {
	return &GameHandler{
		baseHandler: newBaseHandler(logger, exposeDetails, timeout),
		gameFlow:    gameFlow,
	}
}

// Callback applies a BET or SETTLE from the game provider
// @Summary Game callback
// @Description BET debits the stake, SETTLE credits the payout. Replays of the same transaction_id and bet_type return the balance unchanged.
// @Tags Game Provider
// @Accept json
// @Produce json
// @Param request body dto.GameCallbackRequest true "Callback"
// @Success 200 {object} dto.APIResponse{data=dto.GameCallbackResponse}
// @Failure 400 {object} dto.APIResponse "Validation error or insufficient funds"
// @Failure 401 {object} dto.APIResponse "Invalid verification key"
// @Failure 404 {object} dto.APIResponse "Unknown player"
// @Router /callback [post]
func (h *GameHandler) Callback(c fiber.Ctx) error {
	const endpoint = "/callback"

	var req dto.GameCallbackRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ValidationErrorResponse(c, err)
	}

	ctx, cancel := h.createRequestContext(c, endpoint)
	defer cancel()

	result, err := h.gameFlow.HandleGameCallback(ctx, &req)
	if err != nil {
		return h.BusinessErrorResponse(c, err, endpoint)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Callback processed", result)
}

// Refund returns a stake to the player
// @Summary Game refund
// @Tags Game Provider
// @Accept json
// @Produce json
// @Param request body dto.GameRefundRequest true "Refund"
// @Success 200 {object} dto.APIResponse{data=dto.GameCallbackResponse}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Invalid verification key"
// @Failure 404 {object} dto.APIResponse "Unknown player"
// @Router /refund [post]
func (h *GameHandler) Refund(c fiber.Ctx) error {
	const endpoint = "/refund"

	var req dto.GameRefundRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ValidationErrorResponse(c, err)
	}

	ctx, cancel := h.createRequestContext(c, endpoint)
	defer cancel()

	result, err := h.gameFlow.HandleRefund(ctx, &req)
	if err != nil {
		return h.BusinessErrorResponse(c, err, endpoint)
	}

	message := "Refund processed"
	if result.Duplicate {
		message = "Refund already processed"
	}
	return h.SuccessResponse(c, fiber.StatusOK, message, result)
}
