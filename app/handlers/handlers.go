// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/betting-settlement/app/dto"
	businessflow "github.com/amirphl/betting-settlement/business_flow"
	"github.com/amirphl/betting-settlement/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

const defaultRequestTimeout = 30 * time.Second

// baseHandler carries what every handler needs to validate requests and shape responses
type baseHandler struct {
	validator *validator.Validate
	logger    *zap.Logger
	// exposeDetails puts internal error text into responses (development and local only)
	exposeDetails bool
	timeout       time.Duration
}

func newBaseHandler(logger *zap.Logger, exposeDetails bool, timeout time.Duration) baseHandler {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return baseHandler{
		validator:     validator.New(),
		logger:        logger,
		exposeDetails: exposeDetails,
		timeout:       timeout,
	}
}

func (h *baseHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *baseHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func (h *baseHandler) ValidationErrorResponse(c fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", err.Error())
	}
	messages := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		messages = append(messages, getValidationErrorMessage(fe))
	}
	return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", messages)
}

// BusinessErrorResponse writes err with the status its sentinel maps to and the code the flow attached
func (h *baseHandler) BusinessErrorResponse(c fiber.Ctx, err error, endpoint string) error {
	status := StatusForError(err)
	code, message := "INTERNAL_ERROR", "An internal server error occurred"

	var be *businessflow.BusinessError
	if errors.As(err, &be) {
		code = be.Code
		if status < fiber.StatusInternalServerError || h.exposeDetails {
			message = be.Message
		}
	}

	if status >= fiber.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("endpoint", endpoint), zap.String("code", code), zap.Error(err))
	} else {
		h.logger.Debug("request rejected", zap.String("endpoint", endpoint), zap.String("code", code), zap.Error(err))
	}

	var details any
	if h.exposeDetails {
		details = err.Error()
	}
	return h.ErrorResponse(c, status, message, code, details)
}

// StatusForError maps business sentinels to HTTP status codes
func StatusForError(err error) int {
	switch {
	case businessflow.IsAccountNotFound(err),
		businessflow.IsDepositTransactionNotFound(err),
		businessflow.IsAffiliateNotFound(err),
		businessflow.IsDepositBonusNotFound(err):
		return fiber.StatusNotFound

	case businessflow.IsInvalidVerificationKey(err),
		businessflow.IsInvalidAPIKey(err),
		businessflow.IsInvalidDeviceKey(err),
		businessflow.IsInvalidSignature(err),
		businessflow.IsInvalidRefreshToken(err),
		businessflow.IsIncorrectPassword(err):
		return fiber.StatusUnauthorized

	case businessflow.IsAccountInactive(err),
		businessflow.IsAdminInactive(err):
		return fiber.StatusForbidden

	case businessflow.IsUsernameAlreadyExists(err),
		businessflow.IsDepositAlreadyProcessed(err):
		return fiber.StatusConflict

	case businessflow.IsInvalidTransactionID(err),
		businessflow.IsTransactionNotPending(err),
		businessflow.IsClaimedTrxIDMissing(err),
		businessflow.IsInvalidAmount(err),
		businessflow.IsDepositBelowBonusMinimum(err),
		businessflow.IsInvalidBonusType(err),
		businessflow.IsInvalidRole(err),
		businessflow.IsInvalidCommissionRate(err),
		businessflow.IsReferrerNotFound(err),
		businessflow.IsInvalidBetType(err),
		businessflow.IsInsufficientFunds(err),
		businessflow.IsInvalidTransferBucket(err),
		businessflow.IsTransferBucketDisabled(err),
		businessflow.IsTransferAmountOutOfRange(err),
		businessflow.IsInsufficientBucketBalance(err),
		businessflow.IsOpayTrxIDRequired(err),
		businessflow.IsStartDateAfterEndDate(err):
		return fiber.StatusBadRequest

	case businessflow.IsLockNotAcquired(err):
		return fiber.StatusServiceUnavailable

	default:
		return fiber.StatusInternalServerError
	}
}

func (h *baseHandler) metadata(c fiber.Ctx) *businessflow.ClientMetadata {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	if requestID, ok := c.Locals("requestid").(string); ok {
		metadata.RequestID = requestID
	}
	return metadata
}

// createRequestContext detaches the flow from fiber's pooled context and bounds it with the handler timeout
func (h *baseHandler) createRequestContext(c fiber.Ctx, endpoint string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	if requestID, ok := c.Locals("requestid").(string); ok {
		ctx = context.WithValue(ctx, utils.RequestIDKey, requestID)
	}
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	return ctx, cancel
}

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "min":
		return err.Field() + " must be at least " + err.Param()
	case "max":
		return err.Field() + " must be at most " + err.Param()
	case "len":
		return err.Field() + " must be exactly " + err.Param() + " characters"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "numeric":
		return err.Field() + " must be a number"
	case "datetime":
		return err.Field() + " must match " + err.Param()
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}
