package handlers

import (
	"time"

	"github.com/amirphl/betting-settlement/app/dto"
	"github.com/amirphl/betting-settlement/app/middleware"
	businessflow "github.com/amirphl/betting-settlement/business_flow"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// AccountHandlerInterface defines the contract for the self-service account endpoints
type AccountHandlerInterface interface {
	GetAccount(c fiber.Ctx) error
	ListTurnovers(c fiber.Ctx) error
	TransferToMainBalance(c fiber.Ctx) error
}

type AccountHandler struct {
	baseHandler
	accountFlow  businessflow.AccountFlow
	turnover     businessflow.TurnoverEngine
	transferFlow businessflow.BalanceTransferFlow
}

func NewAccountHandler(
	accountFlow businessflow.AccountFlow,
	turnover businessflow.TurnoverEngine,
	transferFlow businessflow.BalanceTransferFlow,
	logger *zap.Logger,
	exposeDetails bool,
	timeout time.Duration,
) *AccountHandler {
	return &AccountHandler{
		baseHandler:  newBaseHandler(logger, exposeDetails, timeout),
		accountFlow:  accountFlow,
		turnover:     turnover,
		transferFlow: transferFlow,
	}
}

// GetAccount returns the balances of the authenticated account
// @Summary Get account
// @Tags Account
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.AccountDTO}
// @Failure 401 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /api/account [get]
func (h *AccountHandler) GetAccount(c fiber.Ctx) error {
	const endpoint = "/api/account"

	accountID, ok := middleware.GetAccountIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	ctx, cancel := h.createRequestContext(c, endpoint)
	defer cancel()

	result, err := h.accountFlow.GetAccount(ctx, accountID)
	if err != nil {
		return h.BusinessErrorResponse(c, err, endpoint)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Account retrieved", result)
}

// ListTurnovers returns the wagering requirements of the authenticated account
// @Summary List turnovers
// @Tags Account
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.TurnoverListResponse}
// @Failure 401 {object} dto.APIResponse
// @Router /api/turnovers [get]
func (h *AccountHandler) ListTurnovers(c fiber.Ctx) error {
	const endpoint = "/api/turnovers"

	accountID, ok := middleware.GetAccountIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	ctx, cancel := h.createRequestContext(c, endpoint)
	defer cancel()

	result, err := h.turnover.ListForAccount(ctx, accountID)
	if err != nil {
		return h.BusinessErrorResponse(c, err, endpoint)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Turnovers retrieved", result)
}

// TransferToMainBalance moves a commission balance into the main balance
// @Summary Transfer to main balance
// @Description Allowed sources are commissionBalance, gameLossCommissionBalance, depositCommissionBalance and referCommissionBalance, within the admin-configured bounds
// @Tags Account
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.BalanceTransferRequest true "Transfer"
// @Success 200 {object} dto.APIResponse{data=dto.BalanceTransferResponse}
// @Failure 400 {object} dto.APIResponse "Disabled, out of range or insufficient"
// @Failure 401 {object} dto.APIResponse
// @Router /api/balance-transfer/main-balance [post]
func (h *AccountHandler) TransferToMainBalance(c fiber.Ctx) error {
	const endpoint = "/api/balance-transfer/main-balance"

	accountID, ok := middleware.GetAccountIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	var req dto.BalanceTransferRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ValidationErrorResponse(c, err)
	}
	req.AccountID = accountID

	ctx, cancel := h.createRequestContext(c, endpoint)
	defer cancel()

	result, err := h.transferFlow.TransferToMainBalance(ctx, &req, h.metadata(c))
	if err != nil {
		return h.BusinessErrorResponse(c, err, endpoint)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Balance transferred", result)
}
