package repository

import (
	"context"
	"time"

	"github.com/amirphl/betting-settlement/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
}

// TxManager runs fn inside one database transaction. Nested calls join the outer transaction.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(context.Context) error) error
}

// AccountRepository defines operations on the ledger accounts
type AccountRepository interface {
	Repository[models.Account, models.AccountFilter]
	ByUsername(ctx context.Context, username string) (*models.Account, error)
	ByIDForUpdate(ctx context.Context, id uint) (*models.Account, error)
	ListIDsByRole(ctx context.Context, role models.AccountRole) ([]uint, error)
	// CreditDeposit adds amount to both balance and cumulative deposit
	CreditDeposit(ctx context.Context, id uint, amount decimal.Decimal) error
	CreditBalance(ctx context.Context, id uint, amount decimal.Decimal) error
	// DebitBalance subtracts amount only when balance covers it; false means insufficient funds
	DebitBalance(ctx context.Context, id uint, amount decimal.Decimal) (bool, error)
	CreditCommission(ctx context.Context, id uint, bucket models.CommissionBucket, amount decimal.Decimal) error
	// TransferToBalance moves amount from bucket into balance only when the bucket covers it
	TransferToBalance(ctx context.Context, id uint, bucket models.CommissionBucket, amount decimal.Decimal) (bool, error)
	UpdateBridgeBalances(ctx context.Context, id uint, balances models.BridgeBalances) error
	UpdateCommissionRates(ctx context.Context, id uint, rates models.CommissionRates) error
}

// DepositTransactionRepository defines operations for deposit transactions
type DepositTransactionRepository interface {
	Repository[models.DepositTransaction, models.DepositTransactionFilter]
	ByUUID(ctx context.Context, id uuid.UUID) (*models.DepositTransaction, error)
	ByExternalTrxID(ctx context.Context, trxID string) (*models.DepositTransaction, error)
	// CompleteIfPending moves a pending deposit to completed and records the settling trx id;
	// false means another writer got there first
	CompleteIfPending(ctx context.Context, id uint, externalTrxID *string, completedAt time.Time) (bool, error)
	FailIfPending(ctx context.Context, id uint, status models.DepositStatus, reason string) (bool, error)
}

// PaymentMessageRepository defines operations for verified payment messages
type PaymentMessageRepository interface {
	Repository[models.PaymentMessage, models.PaymentMessageFilter]
	FindMatch(ctx context.Context, trxID string, createdFrom time.Time) ([]*models.PaymentMessage, error)
}

// OpayVerifiedTransactionRepository defines operations for gateway-verified transfers
type OpayVerifiedTransactionRepository interface {
	ByID(ctx context.Context, id uint) (*models.OpayVerifiedTransaction, error)
	Save(ctx context.Context, entity *models.OpayVerifiedTransaction) error
	ByTrxID(ctx context.Context, trxID string) (*models.OpayVerifiedTransaction, error)
	ByTokenAndAddress(ctx context.Context, token, address string) (*models.OpayVerifiedTransaction, error)
	Update(ctx context.Context, tx *models.OpayVerifiedTransaction) error
	MarkNotified(ctx context.Context, id uint, at time.Time) error
}

// DepositTurnoverRepository defines operations for wagering requirements
type DepositTurnoverRepository interface {
	Repository[models.DepositTurnover, models.DepositTurnoverFilter]
	// OldestActiveForUpdate row-locks the oldest active turnover with remaining > 0
	OldestActiveForUpdate(ctx context.Context, accountID uint) (*models.DepositTurnover, error)
	Update(ctx context.Context, t *models.DepositTurnover) error
	ListByAccount(ctx context.Context, accountID uint) ([]*models.DepositTurnover, error)
}

// GameHistoryRepository defines operations for game callback history
type GameHistoryRepository interface {
	ByID(ctx context.Context, id uint) (*models.GameHistory, error)
	Save(ctx context.Context, entity *models.GameHistory) error
	ByTransaction(ctx context.Context, transactionID string, betType models.BetType) (*models.GameHistory, error)
	UpdateStatus(ctx context.Context, transactionID string, status models.GameStatus) error
}

// RefundHistoryRepository defines operations for refunds
type RefundHistoryRepository interface {
	ByID(ctx context.Context, id uint) (*models.RefundHistory, error)
	Save(ctx context.Context, entity *models.RefundHistory) error
	ByTransactionID(ctx context.Context, transactionID string) (*models.RefundHistory, error)
}

// BalanceTransferSettingsRepository reads and writes the transfer rules singleton
type BalanceTransferSettingsRepository interface {
	Get(ctx context.Context) (*models.BalanceTransferSettings, error)
	Upsert(ctx context.Context, settings *models.BalanceTransferSettings) error
}

// DepositBonusRepository defines operations for deposit promotions
type DepositBonusRepository interface {
	ByID(ctx context.Context, id uint) (*models.DepositBonus, error)
	Save(ctx context.Context, entity *models.DepositBonus) error
	ListActive(ctx context.Context) ([]*models.DepositBonus, error)
}

// AdminRepository defines operations for admins
type AdminRepository interface {
	Repository[models.Admin, models.AdminFilter]
	ByUsername(ctx context.Context, username string) (*models.Admin, error)
	TouchLastLogin(ctx context.Context, id uint, at time.Time) error
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
}
