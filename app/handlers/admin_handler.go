package handlers

import (
	"strconv"
	"time"

	"github.com/amirphl/betting-settlement/app/dto"
	"github.com/amirphl/betting-settlement/app/middleware"
	businessflow "github.com/amirphl/betting-settlement/business_flow"
	"github.com/amirphl/betting-settlement/models"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// AdminHandlerInterface defines the contract for back-office endpoints
type AdminHandlerInterface interface {
	RegisterAccount(c fiber.Ctx) error
	UpdateCommissionRates(c fiber.Ctx) error
	CreateDepositBonus(c fiber.Ctx) error
	ListDepositBonuses(c fiber.Ctx) error
	GetBalanceTransferSettings(c fiber.Ctx) error
	UpdateBalanceTransferSettings(c fiber.Ctx) error
	BridgeAccount(role models.AccountRole) fiber.Handler
	BridgeAll(role models.AccountRole) fiber.Handler
}

type AdminHandler struct {
	baseHandler
	accountFlow  businessflow.AccountFlow
	bonusFlow    businessflow.DepositBonusFlow
	transferFlow businessflow.BalanceTransferFlow
	bridgeFlow   businessflow.BridgeFlow
}

func NewAdminHandler(
	accountFlow businessflow.AccountFlow,
	bonusFlow businessflow.DepositBonusFlow,
	transferFlow businessflow.BalanceTransferFlow,
	bridgeFlow businessflow.BridgeFlow,
	logger *zap.Logger,
	exposeDetails bool,
	timeout time.Duration,
) *AdminHandler {
	return &AdminHandler{
		baseHandler:  newBaseHandler(logger, exposeDetails, timeout),
		accountFlow:  accountFlow,
		bonusFlow:    bonusFlow,
		transferFlow: transferFlow,
		bridgeFlow:   bridgeFlow,
	}
}

func (h *AdminHandler) adminRequired(c fiber.Ctx) error {
	return h.ErrorResponse(c, fiber.StatusUnauthorized, "Admin authentication required", "ADMIN_AUTHENTICATION_REQUIRED", nil)
}

func parseIDParam(c fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// RegisterAccount creates a user or affiliate and pays the referral bonus
// @Summary Register account
// @Tags Admin Accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.RegisterAccountRequest true "Account"
// @Success 201 {object} dto.APIResponse{data=dto.RegisterAccountResponse}
// @Failure 400 {object} dto.APIResponse "Validation error or unknown referrer"
// @Failure 409 {object} dto.APIResponse "Username already exists"
// @Router /api/admin/accounts [post]
func (h *AdminHandler) RegisterAccount(c fiber.Ctx) error {
	const endpoint = "/api/admin/accounts"

	if _, ok := middleware.GetAdminIDFromContext(c); !ok {
		return h.adminRequired(c)
	}

	var req dto.RegisterAccountRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ValidationErrorResponse(c, err)
	}

	ctx, cancel := h.createRequestContext(c, endpoint)
	defer cancel()

	result, err := h.accountFlow.RegisterAccount(ctx, &req, h.metadata(c))
	if err != nil {
		return h.BusinessErrorResponse(c, err, endpoint)
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Account registered", result)
}

// UpdateCommissionRates sets the rates of an affiliate
// @Summary Update commission rates
// @Tags Admin Accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Param request body dto.CommissionRatesRequest true "Rates"
// @Success 200 {object} dto.APIResponse{data=dto.AccountDTO}
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse "Affiliate not found"
// @Router /api/admin/accounts/{id}/commission-rates [put]
func (h *AdminHandler) UpdateCommissionRates(c fiber.Ctx) error {
	const endpoint = "/api/admin/accounts/:id/commission-rates"

	if _, ok := middleware.GetAdminIDFromContext(c); !ok {
		return h.adminRequired(c)
	}

	accountID, ok := parseIDParam(c, "id")
	if !ok {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid account id", "INVALID_ACCOUNT_ID", nil)
	}

	var req dto.CommissionRatesRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ValidationErrorResponse(c, err)
	}
	req.AccountID = accountID

	ctx, cancel := h.createRequestContext(c, endpoint)
	defer cancel()

	result, err := h.accountFlow.UpdateCommissionRates(ctx, &req, h.metadata(c))
	if err != nil {
		return h.BusinessErrorResponse(c, err, endpoint)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Commission rates updated", result)
}

// CreateDepositBonus defines a deposit promotion
// @Summary Create deposit bonus
// @Tags Admin Bonuses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateDepositBonusRequest true "Bonus"
// @Success 201 {object} dto.APIResponse{data=dto.DepositBonusDTO}
// @Failure 400 {object} dto.APIResponse
// @Router /api/admin/deposit-bonuses [post]
func (h *AdminHandler) CreateDepositBonus(c fiber.Ctx) error {
	const endpoint = "/api/admin/deposit-bonuses"

	if _, ok := middleware.GetAdminIDFromContext(c); !ok {
		return h.adminRequired(c)
	}

	var req dto.CreateDepositBonusRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ValidationErrorResponse(c, err)
	}

	ctx, cancel := h.createRequestContext(c, endpoint)
	defer cancel()

	result, err := h.bonusFlow.CreateDepositBonus(ctx, &req, h.metadata(c))
	if err != nil {
		return h.BusinessErrorResponse(c, err, endpoint)
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Deposit bonus created", result)
}

// ListDepositBonuses lists the active promotions
// @Summary List deposit bonuses
// @Tags Admin Bonuses
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.DepositBonusDTO}
// @Router /api/admin/deposit-bonuses [get]
func (h *AdminHandler) ListDepositBonuses(c fiber.Ctx) error {
	const endpoint = "/api/admin/deposit-bonuses"

	ctx, cancel := h.createRequestContext(c, endpoint)
	defer cancel()

	result, err := h.bonusFlow.ListActive(ctx)
	if err != nil {
		return h.BusinessErrorResponse(c, err, endpoint)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Deposit bonuses retrieved", result)
}

// GetBalanceTransferSettings returns the transfer rules of every bucket
// @Summary Get balance transfer settings
// @Tags Admin Balance Transfer
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.BalanceTransferSettingsDTO}
// @Router /api/admin/balance-transfer/settings [get]
func (h *AdminHandler) GetBalanceTransferSettings(c fiber.Ctx) error {
	const endpoint = "/api/admin/balance-transfer/settings"

	ctx, cancel := h.createRequestContext(c, endpoint)
	defer cancel()

	result, err := h.transferFlow.GetSettings(ctx)
	if err != nil {
		return h.BusinessErrorResponse(c, err, endpoint)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Balance transfer settings retrieved", result)
}

// UpdateBalanceTransferSettings replaces the rules of the buckets in the request
// @Summary Update balance transfer settings
// @Tags Admin Balance Transfer
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.UpdateBalanceTransferSettingsRequest true "Rules by bucket"
// @Success 200 {object} dto.APIResponse{data=dto.BalanceTransferSettingsDTO}
// @Failure 400 {object} dto.APIResponse
// @Router /api/admin/balance-transfer/settings [put]
func (h *AdminHandler) UpdateBalanceTransferSettings(c fiber.Ctx) error {
	const endpoint = "/api/admin/balance-transfer/settings"

	adminID, ok := middleware.GetAdminIDFromContext(c)
	if !ok {
		return h.adminRequired(c)
	}

	var req dto.UpdateBalanceTransferSettingsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ValidationErrorResponse(c, err)
	}
	req.AdminID = adminID

	ctx, cancel := h.createRequestContext(c, endpoint)
	defer cancel()

	result, err := h.transferFlow.UpdateSettings(ctx, &req, h.metadata(c))
	if err != nil {
		return h.BusinessErrorResponse(c, err, endpoint)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Balance transfer settings updated", result)
}

// BridgeAccount nets the game-win bucket of one affiliate of role against its other buckets
// @Summary Bridge one affiliate
// @Tags Admin Bridge
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Success 200 {object} dto.APIResponse{data=dto.BridgeResultDTO}
// @Failure 404 {object} dto.APIResponse "Affiliate not found"
// @Router /api/super-affiliate/bridge/{id} [post]
// @Router /api/master-affiliate/bridge/{id} [post]
func (h *AdminHandler) BridgeAccount(role models.AccountRole) fiber.Handler {
	endpoint := "/api/" + string(role) + "/bridge/:id"
	return func(c fiber.Ctx) error {
		id, ok := parseIDParam(c, "id")
		if !ok {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid account id", "INVALID_ACCOUNT_ID", nil)
		}

		ctx, cancel := h.createRequestContext(c, endpoint)
		defer cancel()

		result, err := h.bridgeFlow.BridgeAccount(ctx, role, id, h.metadata(c))
		if err != nil {
			return h.BusinessErrorResponse(c, err, endpoint)
		}

		message := "Bridge applied"
		if result.Status == businessflow.BridgeStatusSkipped {
			message = "Nothing to bridge"
		}
		return h.SuccessResponse(c, fiber.StatusOK, message, result)
	}
}

// BridgeAll bridges every affiliate of role, each in its own transaction
// @Summary Bridge all affiliates of a role
// @Tags Admin Bridge
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.BridgeAllResponse}
// @Router /api/super-affiliate/bridge-all [post]
// @Router /api/master-affiliate/bridge-all [post]
func (h *AdminHandler) BridgeAll(role models.AccountRole) fiber.Handler {
	endpoint := "/api/" + string(role) + "/bridge-all"
	return func(c fiber.Ctx) error {
		ctx, cancel := h.createRequestContext(c, endpoint)
		defer cancel()

		result, err := h.bridgeFlow.BridgeAll(ctx, role, h.metadata(c))
		if err != nil {
			return h.BusinessErrorResponse(c, err, endpoint)
		}
		return h.SuccessResponse(c, fiber.StatusOK, "Bridge completed", result)
	}
}
