package utils

import (
	"time"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// RefreshTokenTTL is the time-to-live for refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Auto-payment constants
const (
	// AutoPaymentDir is where the per-day notification logs are written
	AutoPaymentDir = "uploads/auto-payment"

	// AutoPaymentMatchWindow is how far before a deposit's creation a payment message may be stored and still match
	AutoPaymentMatchWindow = 5 * time.Minute

	// AutoPaymentLockPollInterval is the wait between attempts to take the day-file lock
	AutoPaymentLockPollInterval = 50 * time.Millisecond

	// AutoPaymentLockTTL bounds how long a crashed writer can hold the day-file lease
	AutoPaymentLockTTL = 10 * time.Second

	// AutoPaymentLockKeyPrefix prefixes the redis lease key; the ISO date is appended
	AutoPaymentLockKeyPrefix = "auto-payment:day-file:"

	// PaymentTextNotExist is stored as the sender when the notification text carries none
	PaymentTextNotExist = "not-exist"
)

// Outbound call timeouts
const (
	LedgerNotifyTimeout = 10 * time.Second
)

type contextKey string

// EndpointKey carries the request endpoint in the flow context for logging
const EndpointKey contextKey = "endpoint"

// RequestIDKey carries the request id in the flow context for logging
const RequestIDKey contextKey = "request_id"
