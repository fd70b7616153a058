package businessflow

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/amirphl/betting-settlement/app/dto"
	"github.com/amirphl/betting-settlement/app/services"
	"github.com/amirphl/betting-settlement/config"
	"github.com/amirphl/betting-settlement/models"
	"github.com/amirphl/betting-settlement/repository"
	"github.com/amirphl/betting-settlement/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// OpayFlow settles deposits verified by the OPay gateway
type OpayFlow interface {
	// HandleCallback never fails towards the gateway: the response is always set, the error is for logging
	HandleCallback(ctx context.Context, raw []byte, signature string) (*dto.OpayCallbackResponse, error)
	ConfirmDeposit(ctx context.Context, req *dto.OpayDepositConfirmRequest, metadata *ClientMetadata) (*dto.OpayDepositConfirmResponse, error)
	// WaitForNotifications blocks until in-flight ledger notifications finish or ctx ends
	WaitForNotifications(ctx context.Context) error
}

type OpayFlowImpl struct {
	accountRepo   repository.AccountRepository
	depositRepo   repository.DepositTransactionRepository
	opayRepo      repository.OpayVerifiedTransactionRepository
	auditRepo     repository.AuditLogRepository
	txManager     repository.TxManager
	turnover      TurnoverEngine
	cascade       CommissionCascade
	notifier      services.LedgerNotifier
	cfg           config.OpayConfig
	notifyTimeout time.Duration
	logger        *zap.Logger

	inflight sync.WaitGroup
}

func NewOpayFlow(
	accountRepo repository.AccountRepository,
	depositRepo repository.DepositTransactionRepository,
	opayRepo repository.OpayVerifiedTransactionRepository,
	auditRepo repository.AuditLogRepository,
	txManager repository.TxManager,
	turnover TurnoverEngine,
	cascade CommissionCascade,
	notifier services.LedgerNotifier,
	cfg config.OpayConfig,
	notifyTimeout time.Duration,
	logger *zap.Logger,
) OpayFlow {
	if notifyTimeout <= 0 {
		notifyTimeout = utils.LedgerNotifyTimeout
	}
	return &OpayFlowImpl{
		accountRepo:   accountRepo,
		depositRepo:   depositRepo,
		opayRepo:      opayRepo,
		auditRepo:     auditRepo,
		txManager:     txManager,
		turnover:      turnover,
		cascade:       cascade,
		notifier:      notifier,
		cfg:           cfg,
		notifyTimeout: notifyTimeout,
		logger:        logger,
	}
}

// VerifySignature checks a hex HMAC-SHA256 of body; an empty secret accepts everything
func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" {
		return true
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	got := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(signature), "sha256="))
	return hmac.Equal([]byte(expected), []byte(got))
}

func (f *OpayFlowImpl) HandleCallback(ctx context.Context, raw []byte, signature string) (*dto.OpayCallbackResponse, error) {
	failed := &dto.OpayCallbackResponse{Success: false}

	if !VerifySignature(f.cfg.CallbackSecret, raw, signature) {
		return failed, ErrInvalidSignature
	}

	var req dto.OpayCallbackRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return failed, fmt.Errorf("invalid opay callback body: %w", err)
	}

	record, err := f.upsertVerified(ctx, &req, raw)
	if err != nil {
		return failed, err
	}

	if record.ShouldNotify() {
		f.notifyAsync(*record)
	}
	return &dto.OpayCallbackResponse{Success: true}, nil
}

// upsertVerified keys the record by trxid, falling back to (token, userIdentifyAddress)
func (f *OpayFlowImpl) upsertVerified(ctx context.Context, req *dto.OpayCallbackRequest, raw []byte) (*models.OpayVerifiedTransaction, error) {
	var trxID *string
	if req.TrxID != nil && strings.TrimSpace(*req.TrxID) != "" {
		trxID = utils.ToPtr(strings.TrimSpace(*req.TrxID))
	}

	incoming := &models.OpayVerifiedTransaction{
		Success:             req.Success,
		UserIdentifyAddress: req.UserIdentifyAddress,
		Amount:              req.Amount,
		TrxID:               trxID,
		Token:               req.Token,
		Method:              req.Method,
		Time:                req.Time,
		Raw:                 datatypes.JSON(raw),
	}

	existing, err := f.findVerified(ctx, trxID, req.Token, req.UserIdentifyAddress)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		err := f.opayRepo.Save(ctx, incoming)
		if err == nil {
			return incoming, nil
		}
		if !isDuplicateKey(err) {
			return nil, err
		}
		// lost the insert race against a retry of the same callback
		existing, err = f.findVerified(ctx, trxID, req.Token, req.UserIdentifyAddress)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, fmt.Errorf("opay transaction vanished after duplicate insert")
		}
	}

	incoming.ID = existing.ID
	incoming.NotifiedAt = existing.NotifiedAt
	incoming.CreatedAt = existing.CreatedAt
	if incoming.TrxID == nil {
		incoming.TrxID = existing.TrxID
	}
	if err := f.opayRepo.Update(ctx, incoming); err != nil {
		return nil, err
	}
	return incoming, nil
}

func (f *OpayFlowImpl) findVerified(ctx context.Context, trxID *string, token, address string) (*models.OpayVerifiedTransaction, error) {
	if trxID != nil {
		return f.opayRepo.ByTrxID(ctx, *trxID)
	}
	if token == "" && address == "" {
		return nil, nil
	}
	return f.opayRepo.ByTokenAndAddress(ctx, token, address)
}

func (f *OpayFlowImpl) notifyAsync(record models.OpayVerifiedTransaction) {
	f.inflight.Add(1)
	go func() {
		defer f.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				f.logger.Error("ledger notify panicked", zap.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), f.notifyTimeout)
		defer cancel()

		deposit := services.VerifiedDeposit{
			TrxID:               utils.Deref(record.TrxID),
			UserIdentifyAddress: record.UserIdentifyAddress,
			Amount:              record.Amount,
			Token:               record.Token,
			Method:              record.Method,
			Time:                record.Time,
		}
		if err := f.notifier.NotifyVerifiedDeposit(ctx, deposit); err != nil {
			ledgerNotifyTotal.WithLabelValues(f.notifier.Name(), "failed").Inc()
			f.logger.Warn("ledger notify failed",
				zap.String("provider", f.notifier.Name()),
				zap.String("trx_id", deposit.TrxID),
				zap.Error(err),
			)
			return
		}

		ledgerNotifyTotal.WithLabelValues(f.notifier.Name(), "sent").Inc()
		if err := f.opayRepo.MarkNotified(ctx, record.ID, utils.UTCNow()); err != nil {
			f.logger.Warn("failed to stamp ledger notification", zap.Uint("id", record.ID), zap.Error(err))
		}
	}()
}

func (f *OpayFlowImpl) WaitForNotifications(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		f.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ConfirmDeposit credits a gateway-verified deposit. It is idempotent on trxid.
func (f *OpayFlowImpl) ConfirmDeposit(ctx context.Context, req *dto.OpayDepositConfirmRequest, metadata *ClientMetadata) (*dto.OpayDepositConfirmResponse, error) {
	if f.cfg.ConfirmAPIKey != "" && subtle.ConstantTimeCompare([]byte(req.APIKey), []byte(f.cfg.ConfirmAPIKey)) != 1 {
		return nil, NewBusinessError("INVALID_API_KEY", "Invalid API key", ErrInvalidAPIKey)
	}

	amount := req.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, NewBusinessError("OPAY_VALIDATION_FAILED", "Amount must be a positive number", ErrInvalidAmount)
	}
	trxID := strings.TrimSpace(req.TrxID)
	if trxID == "" {
		return nil, NewBusinessError("OPAY_VALIDATION_FAILED", "trxid is required", ErrOpayTrxIDRequired)
	}

	account, err := f.accountRepo.ByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_LOOKUP_FAILED", "Failed to load account", err)
	}
	if account == nil {
		return nil, NewBusinessError("ACCOUNT_NOT_FOUND", "Account not found", ErrAccountNotFound)
	}

	existing, err := f.depositRepo.ByExternalTrxID(ctx, trxID)
	if err != nil {
		return nil, NewBusinessError("DEPOSIT_LOOKUP_FAILED", "Failed to load deposit", err)
	}
	if existing != nil {
		return f.alreadyProcessed(existing, account.ID)
	}

	bonusPercent := decimal.NewFromFloat(f.cfg.BonusPercent)
	multiplier := decimal.NewFromFloat(f.cfg.TurnoverMultiplier)
	snapshot := models.PromotionBonus{
		BonusType:          models.BonusTypePercentage,
		Bonus:              bonusPercent,
		TurnoverMultiplier: multiplier,
	}
	bonus := snapshot.BonusAmount(amount)
	total := amount.Add(bonus)

	deposit := &models.DepositTransaction{
		AccountID:      account.ID,
		Amount:         amount,
		Status:         models.DepositStatusCompleted,
		Source:         models.DepositSourceOpay,
		PaymentMethod:  req.Method,
		PromotionBonus: datatypes.NewJSONType(snapshot),
		ExternalTrxID:  &trxID,
		CompletedAt:    utils.UTCNowPtr(),
	}

	err = f.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := f.depositRepo.Save(txCtx, deposit); err != nil {
			if isDuplicateKey(err) {
				return ErrDepositAlreadyProcessed
			}
			return err
		}
		if err := f.accountRepo.CreditDeposit(txCtx, account.ID, total); err != nil {
			return err
		}
		if _, err := f.turnover.Open(txCtx, account.ID, deposit.ID, amount, bonus, multiplier); err != nil {
			return err
		}
		if _, err := f.cascade.Apply(txCtx, account.ID, CommissionDeposit, amount); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		if IsDepositAlreadyProcessed(err) {
			winner, lookupErr := f.depositRepo.ByExternalTrxID(ctx, trxID)
			if lookupErr == nil && winner != nil {
				return f.alreadyProcessed(winner, account.ID)
			}
		}
		return nil, NewBusinessError("OPAY_DEPOSIT_FAILED", "Failed to confirm deposit", err)
	}

	depositsCreditedTotal.WithLabelValues(string(models.DepositSourceOpay)).Inc()
	f.logger.Info("opay deposit confirmed",
		zap.Uint("account_id", account.ID),
		zap.String("trx_id", trxID),
		zap.String("credited", total.String()),
	)
	recordAudit(ctx, f.auditRepo, f.logger, metadata, auditEntry{
		actorType:  models.AuditActorGateway,
		action:     models.AuditActionOpayDepositConfirmed,
		resource:   "deposit_transaction",
		resourceID: deposit.UUID.String(),
		success:    true,
		desc:       fmt.Sprintf("OPay deposit %s credited to %s", trxID, account.Username),
		metadata: map[string]any{
			"account_id": account.ID,
			"amount":     amount.String(),
			"bonus":      bonus.String(),
		},
	})

	return &dto.OpayDepositConfirmResponse{
		DepositTransactionID: deposit.UUID.String(),
		Status:               string(deposit.Status),
		Amount:               formatMoney(amount),
		Bonus:                formatMoney(bonus),
	}, nil
}

// alreadyProcessed reports the deposit that already settled trxid. A trxid settled for a different
// account is a reused payment, not a retry.
func (f *OpayFlowImpl) alreadyProcessed(d *models.DepositTransaction, accountID uint) (*dto.OpayDepositConfirmResponse, error) {
	if d.AccountID != accountID {
		f.logger.Warn("opay trxid already settled for another account",
			zap.Uint("account_id", accountID),
			zap.Uint("owner_account_id", d.AccountID),
		)
		return nil, NewBusinessError("PAYMENT_ALREADY_USED", "Payment already settled another deposit", ErrDepositAlreadyProcessed)
	}
	return &dto.OpayDepositConfirmResponse{
		DepositTransactionID: d.UUID.String(),
		Status:               string(d.Status),
		Amount:               formatMoney(d.Amount),
		Bonus:                formatMoney(d.PromotionBonus.Data().BonusAmount(d.Amount)),
		AlreadyProcessed:     true,
	}, nil
}
