package businessflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/amirphl/betting-settlement/app/dto"
	"github.com/amirphl/betting-settlement/models"
	"github.com/amirphl/betting-settlement/repository"
	"github.com/amirphl/betting-settlement/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// DepositFlow creates deposits and settles them against stored payment messages
type DepositFlow interface {
	CreateDeposit(ctx context.Context, req *dto.CreateDepositRequest, metadata *ClientMetadata) (*dto.DepositTransactionDTO, error)
	CheckAutoPayment(ctx context.Context, transactionID string, accountID uint, metadata *ClientMetadata) (*dto.CheckAutoPaymentResponse, error)
}

type DepositFlowImpl struct {
	accountRepo       repository.AccountRepository
	depositRepo       repository.DepositTransactionRepository
	paymentRepo       repository.PaymentMessageRepository
	bonusRepo         repository.DepositBonusRepository
	auditRepo         repository.AuditLogRepository
	txManager         repository.TxManager
	turnover          TurnoverEngine
	cascade           CommissionCascade
	matchWindow       time.Duration
	defaultMultiplier decimal.Decimal
	logger            *zap.Logger
}

func NewDepositFlow(
	accountRepo repository.AccountRepository,
	depositRepo repository.DepositTransactionRepository,
	paymentRepo repository.PaymentMessageRepository,
	bonusRepo repository.DepositBonusRepository,
	auditRepo repository.AuditLogRepository,
	txManager repository.TxManager,
	turnover TurnoverEngine,
	cascade CommissionCascade,
	matchWindow time.Duration,
	defaultMultiplier float64,
	logger *zap.Logger,
) DepositFlow {
	if matchWindow <= 0 {
		matchWindow = utils.AutoPaymentMatchWindow
	}
	return &DepositFlowImpl{
		accountRepo:       accountRepo,
		depositRepo:       depositRepo,
		paymentRepo:       paymentRepo,
		bonusRepo:         bonusRepo,
		auditRepo:         auditRepo,
		txManager:         txManager,
		turnover:          turnover,
		cascade:           cascade,
		matchWindow:       matchWindow,
		defaultMultiplier: decimal.NewFromFloat(defaultMultiplier),
		logger:            logger,
	}
}

// CreateDeposit stores a pending deposit with the bonus terms frozen at creation time
func (f *DepositFlowImpl) CreateDeposit(ctx context.Context, req *dto.CreateDepositRequest, metadata *ClientMetadata) (*dto.DepositTransactionDTO, error) {
	amount, err := parsePositiveAmount(req.Amount)
	if err != nil {
		return nil, NewBusinessError("DEPOSIT_VALIDATION_FAILED", "Invalid deposit amount", err)
	}
	if len(req.UserInputs) == 0 || strings.TrimSpace(req.UserInputs[0].Value) == "" {
		return nil, NewBusinessError("DEPOSIT_VALIDATION_FAILED", "Transaction id is required", ErrClaimedTrxIDMissing)
	}

	account, err := f.accountRepo.ByID(ctx, req.AccountID)
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_LOOKUP_FAILED", "Failed to load account", err)
	}
	if account == nil {
		return nil, NewBusinessError("ACCOUNT_NOT_FOUND", "Account not found", ErrAccountNotFound)
	}
	if !utils.IsTrue(account.IsActive) {
		return nil, NewBusinessError("ACCOUNT_INACTIVE", "Account is inactive", ErrAccountInactive)
	}

	deposit := &models.DepositTransaction{
		AccountID:     account.ID,
		Amount:        amount,
		Status:        models.DepositStatusPending,
		Source:        models.DepositSourceAutoPayment,
		PaymentMethod: req.PaymentMethod,
	}
	for _, in := range req.UserInputs {
		deposit.UserInputs = append(deposit.UserInputs, models.UserInput{
			Name:  in.Name,
			Value: strings.TrimSpace(in.Value),
			Label: in.Label,
			Type:  in.Type,
		})
	}

	if req.DepositBonusID != nil {
		bonus, err := f.bonusRepo.ByID(ctx, *req.DepositBonusID)
		if err != nil {
			return nil, NewBusinessError("DEPOSIT_BONUS_LOOKUP_FAILED", "Failed to load deposit bonus", err)
		}
		if bonus == nil || !utils.IsTrue(bonus.IsActive) {
			return nil, NewBusinessError("DEPOSIT_BONUS_NOT_FOUND", "Deposit bonus not found", ErrDepositBonusNotFound)
		}
		if amount.LessThan(bonus.MinDeposit) {
			return nil, NewBusinessErrorf("DEPOSIT_BELOW_BONUS_MINIMUM", "Minimum deposit for this bonus is %s", ErrDepositBelowBonusMinimum, bonus.MinDeposit.StringFixed(2))
		}
		deposit.PromotionBonus = datatypes.NewJSONType(bonus.Snapshot())
	}

	if err := f.depositRepo.Save(ctx, deposit); err != nil {
		return nil, NewBusinessError("DEPOSIT_CREATE_FAILED", "Failed to create deposit", err)
	}

	recordAudit(ctx, f.auditRepo, f.logger, metadata, auditEntry{
		actorType:  models.AuditActorAccount,
		actorID:    &account.ID,
		action:     models.AuditActionDepositCreated,
		resource:   "deposit_transaction",
		resourceID: deposit.UUID.String(),
		success:    true,
		desc:       fmt.Sprintf("Deposit of %s created", amount.StringFixed(2)),
	})

	out := ToDepositTransactionDTO(deposit)
	return &out, nil
}

// CheckAutoPayment completes a pending deposit when a stored payment message carries the claimed trxID and amount.
// Repeating the call is safe: settled deposits are reported, never credited twice.
func (f *DepositFlowImpl) CheckAutoPayment(ctx context.Context, transactionID string, accountID uint, metadata *ClientMetadata) (*dto.CheckAutoPaymentResponse, error) {
	id, err := uuid.Parse(strings.TrimSpace(transactionID))
	if err != nil {
		return nil, NewBusinessError("INVALID_TRANSACTION_ID", "Invalid transaction id", ErrInvalidTransactionID)
	}

	deposit, err := f.depositRepo.ByUUID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("DEPOSIT_LOOKUP_FAILED", "Failed to load deposit", err)
	}
	if deposit == nil || deposit.AccountID != accountID {
		return nil, NewBusinessError("DEPOSIT_NOT_FOUND", "Transaction not found or not pending", ErrDepositTransactionNotFound)
	}

	resp := &dto.CheckAutoPaymentResponse{
		TransactionID: deposit.UUID.String(),
		Status:        string(deposit.Status),
		Amount:        formatMoney(deposit.Amount),
	}
	if !deposit.IsPending() {
		return resp, nil
	}

	claimed := deposit.ClaimedTrxID()
	if claimed == "" {
		return nil, NewBusinessError("CLAIMED_TRX_ID_MISSING", "Transaction id was not provided", ErrClaimedTrxIDMissing)
	}

	candidates, err := f.paymentRepo.FindMatch(ctx, claimed, deposit.CreatedAt.Add(-f.matchWindow))
	if err != nil {
		return nil, NewBusinessError("PAYMENT_MESSAGE_LOOKUP_FAILED", "Failed to look up payment messages", err)
	}

	var match *models.PaymentMessage
	for _, m := range candidates {
		if m.TrxID == claimed && m.Amount.Equal(deposit.Amount) {
			match = m
			break
		}
	}
	if match == nil {
		return resp, nil
	}

	snapshot := deposit.PromotionBonus.Data()
	bonus := snapshot.BonusAmount(deposit.Amount)
	total := deposit.Amount.Add(bonus)
	multiplier := snapshot.TurnoverMultiplier
	if !multiplier.IsPositive() {
		multiplier = f.defaultMultiplier
	}

	err = f.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		ok, err := f.depositRepo.CompleteIfPending(txCtx, deposit.ID, &match.TrxID, utils.UTCNow())
		if err != nil {
			if isDuplicateKey(err) {
				return ErrDepositAlreadyProcessed
			}
			return err
		}
		if !ok {
			return ErrTransactionNotPending
		}

		if err := f.accountRepo.CreditDeposit(txCtx, deposit.AccountID, total); err != nil {
			return err
		}
		if _, err := f.turnover.Open(txCtx, deposit.AccountID, deposit.ID, deposit.Amount, bonus, multiplier); err != nil {
			return err
		}
		if _, err := f.cascade.Apply(txCtx, deposit.AccountID, CommissionDeposit, deposit.Amount); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		if IsTransactionNotPending(err) {
			return nil, NewBusinessError("TRANSACTION_NOT_PENDING", "Transaction not found or not pending", err)
		}
		if IsDepositAlreadyProcessed(err) {
			return nil, NewBusinessError("PAYMENT_ALREADY_USED", "Payment message already settled another deposit", err)
		}
		return nil, NewBusinessError("DEPOSIT_SETTLEMENT_FAILED", "Failed to settle deposit", err)
	}

	depositsCreditedTotal.WithLabelValues(string(models.DepositSourceAutoPayment)).Inc()
	f.logger.Info("deposit matched",
		zap.String("deposit_uuid", deposit.UUID.String()),
		zap.Uint("account_id", deposit.AccountID),
		zap.String("trx_id", claimed),
		zap.String("credited", total.String()),
	)
	recordAudit(ctx, f.auditRepo, f.logger, metadata, auditEntry{
		actorType:  models.AuditActorAccount,
		actorID:    &deposit.AccountID,
		action:     models.AuditActionDepositAutoMatched,
		resource:   "deposit_transaction",
		resourceID: deposit.UUID.String(),
		success:    true,
		desc:       fmt.Sprintf("Deposit matched payment message %d", match.ID),
		metadata: map[string]any{
			"trx_id":   claimed,
			"amount":   deposit.Amount.String(),
			"bonus":    bonus.String(),
			"credited": total.String(),
		},
	})

	bonusStr := formatMoney(bonus)
	totalStr := formatMoney(total)
	resp.Status = string(models.DepositStatusCompleted)
	resp.Matched = true
	resp.Bonus = &bonusStr
	resp.CreditedAmount = &totalStr
	return resp, nil
}
