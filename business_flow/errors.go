// Package businessflow contains the settlement use cases: deposits, game callbacks, commissions and transfers
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Account-related errors
	ErrAccountNotFound       = errors.New("account not found")
	ErrAccountInactive       = errors.New("account is inactive")
	ErrIncorrectPassword     = errors.New("incorrect password")
	ErrUsernameAlreadyExists = errors.New("username already exists")
	ErrReferrerNotFound      = errors.New("referrer not found")
	ErrInvalidRole           = errors.New("invalid account role")
	ErrInvalidCommissionRate = errors.New("commission rate must be between 0 and 100")
	ErrAdminNotFound         = errors.New("admin not found")
	ErrAdminInactive         = errors.New("admin is inactive")
	ErrInvalidRefreshToken   = errors.New("invalid refresh token")

	// Deposit errors
	ErrInvalidTransactionID       = errors.New("invalid transaction id")
	ErrDepositTransactionNotFound = errors.New("deposit transaction not found")
	ErrTransactionNotPending      = errors.New("transaction not found or not pending")
	ErrClaimedTrxIDMissing        = errors.New("transaction id was not provided by the depositor")
	ErrInvalidAmount              = errors.New("amount must be a positive number")
	ErrDepositBonusNotFound       = errors.New("deposit bonus not found")
	ErrDepositBelowBonusMinimum   = errors.New("deposit is below the bonus minimum")
	ErrInvalidBonusType           = errors.New("bonus type must be Fix or Percentage")
	ErrDepositAlreadyProcessed    = errors.New("deposit already processed")

	// Auto-payment errors
	ErrDayFileWriteFailed      = errors.New("failed to write day file")
	ErrDuplicatePaymentMessage = errors.New("payment message already stored")
	ErrLockNotAcquired         = errors.New("lock not acquired")
	ErrInvalidDeviceKey        = errors.New("invalid device key")

	// OPay errors
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrInvalidAPIKey     = errors.New("invalid api key")
	ErrOpayTrxIDRequired = errors.New("trxid is required")

	// Game provider errors
	ErrInvalidVerificationKey = errors.New("invalid verification key")
	ErrInvalidBetType         = errors.New("bet_type must be BET or SETTLE")
	ErrInsufficientFunds      = errors.New("insufficient funds")

	// Balance transfer errors
	ErrInvalidTransferBucket     = errors.New("invalid transfer source")
	ErrTransferBucketDisabled    = errors.New("transfers from this balance are disabled")
	ErrTransferAmountOutOfRange  = errors.New("amount is outside the allowed range")
	ErrInsufficientBucketBalance = errors.New("insufficient commission balance")

	// Bridge errors
	ErrAffiliateNotFound = errors.New("affiliate not found")

	// Filter errors
	ErrStartDateAfterEndDate = errors.New("start date cannot be after end date")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsAccountNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}

func IsAccountInactive(err error) bool {
	return errors.Is(err, ErrAccountInactive)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsUsernameAlreadyExists(err error) bool {
	return errors.Is(err, ErrUsernameAlreadyExists)
}

func IsReferrerNotFound(err error) bool {
	return errors.Is(err, ErrReferrerNotFound)
}

func IsInvalidRole(err error) bool {
	return errors.Is(err, ErrInvalidRole)
}

func IsInvalidCommissionRate(err error) bool {
	return errors.Is(err, ErrInvalidCommissionRate)
}

func IsAdminNotFound(err error) bool {
	return errors.Is(err, ErrAdminNotFound)
}

func IsAdminInactive(err error) bool {
	return errors.Is(err, ErrAdminInactive)
}

func IsInvalidRefreshToken(err error) bool {
	return errors.Is(err, ErrInvalidRefreshToken)
}

func IsInvalidTransactionID(err error) bool {
	return errors.Is(err, ErrInvalidTransactionID)
}

func IsDepositTransactionNotFound(err error) bool {
	return errors.Is(err, ErrDepositTransactionNotFound)
}

func IsTransactionNotPending(err error) bool {
	return errors.Is(err, ErrTransactionNotPending)
}

func IsClaimedTrxIDMissing(err error) bool {
	return errors.Is(err, ErrClaimedTrxIDMissing)
}

func IsInvalidAmount(err error) bool {
	return errors.Is(err, ErrInvalidAmount)
}

func IsDepositBonusNotFound(err error) bool {
	return errors.Is(err, ErrDepositBonusNotFound)
}

func IsDepositBelowBonusMinimum(err error) bool {
	return errors.Is(err, ErrDepositBelowBonusMinimum)
}

func IsInvalidBonusType(err error) bool {
	return errors.Is(err, ErrInvalidBonusType)
}

func IsDepositAlreadyProcessed(err error) bool {
	return errors.Is(err, ErrDepositAlreadyProcessed)
}

func IsDayFileWriteFailed(err error) bool {
	return errors.Is(err, ErrDayFileWriteFailed)
}

func IsDuplicatePaymentMessage(err error) bool {
	return errors.Is(err, ErrDuplicatePaymentMessage)
}

func IsLockNotAcquired(err error) bool {
	return errors.Is(err, ErrLockNotAcquired)
}

func IsInvalidDeviceKey(err error) bool {
	return errors.Is(err, ErrInvalidDeviceKey)
}

func IsInvalidSignature(err error) bool {
	return errors.Is(err, ErrInvalidSignature)
}

func IsInvalidAPIKey(err error) bool {
	return errors.Is(err, ErrInvalidAPIKey)
}

func IsOpayTrxIDRequired(err error) bool {
	return errors.Is(err, ErrOpayTrxIDRequired)
}

func IsInvalidVerificationKey(err error) bool {
	return errors.Is(err, ErrInvalidVerificationKey)
}

func IsInvalidBetType(err error) bool {
	return errors.Is(err, ErrInvalidBetType)
}

func IsInsufficientFunds(err error) bool {
	return errors.Is(err, ErrInsufficientFunds)
}

func IsInvalidTransferBucket(err error) bool {
	return errors.Is(err, ErrInvalidTransferBucket)
}

func IsTransferBucketDisabled(err error) bool {
	return errors.Is(err, ErrTransferBucketDisabled)
}

func IsTransferAmountOutOfRange(err error) bool {
	return errors.Is(err, ErrTransferAmountOutOfRange)
}

func IsInsufficientBucketBalance(err error) bool {
	return errors.Is(err, ErrInsufficientBucketBalance)
}

func IsAffiliateNotFound(err error) bool {
	return errors.Is(err, ErrAffiliateNotFound)
}

func IsStartDateAfterEndDate(err error) bool {
	return errors.Is(err, ErrStartDateAfterEndDate)
}
