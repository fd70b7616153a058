package businessflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/amirphl/betting-settlement/app/dto"
	"github.com/amirphl/betting-settlement/models"
	"github.com/amirphl/betting-settlement/repository"
	"github.com/amirphl/betting-settlement/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// BalanceTransferFlow moves commission balances into the main balance under admin-set rules
type BalanceTransferFlow interface {
	TransferToMainBalance(ctx context.Context, req *dto.BalanceTransferRequest, metadata *ClientMetadata) (*dto.BalanceTransferResponse, error)
	GetSettings(ctx context.Context) (*dto.BalanceTransferSettingsDTO, error)
	UpdateSettings(ctx context.Context, req *dto.UpdateBalanceTransferSettingsRequest, metadata *ClientMetadata) (*dto.BalanceTransferSettingsDTO, error)
}

type BalanceTransferFlowImpl struct {
	accountRepo  repository.AccountRepository
	settingsRepo repository.BalanceTransferSettingsRepository
	auditRepo    repository.AuditLogRepository
	logger       *zap.Logger
}

func NewBalanceTransferFlow(
	accountRepo repository.AccountRepository,
	settingsRepo repository.BalanceTransferSettingsRepository,
	auditRepo repository.AuditLogRepository,
	logger *zap.Logger,
) BalanceTransferFlow {
	return &BalanceTransferFlowImpl{
		accountRepo:  accountRepo,
		settingsRepo: settingsRepo,
		auditRepo:    auditRepo,
		logger:       logger,
	}
}

func (f *BalanceTransferFlowImpl) TransferToMainBalance(ctx context.Context, req *dto.BalanceTransferRequest, metadata *ClientMetadata) (*dto.BalanceTransferResponse, error) {
	resp, err := f.transfer(ctx, req)
	bucket := req.From

	if err != nil {
		balanceTransfersTotal.WithLabelValues(bucket, "rejected").Inc()
		recordAudit(ctx, f.auditRepo, f.logger, metadata, auditEntry{
			actorType: models.AuditActorAccount,
			actorID:   &req.AccountID,
			action:    models.AuditActionBalanceTransferFailed,
			resource:  "account",
			success:   false,
			desc:      fmt.Sprintf("Transfer of %s from %s rejected", req.Amount, bucket),
			errMsg:    err.Error(),
		})
		return nil, err
	}

	balanceTransfersTotal.WithLabelValues(bucket, "transferred").Inc()
	recordAudit(ctx, f.auditRepo, f.logger, metadata, auditEntry{
		actorType:  models.AuditActorAccount,
		actorID:    &req.AccountID,
		action:     models.AuditActionBalanceTransferred,
		resource:   "account",
		resourceID: fmt.Sprint(req.AccountID),
		success:    true,
		desc:       fmt.Sprintf("Transferred %s from %s to main balance", resp.Amount, bucket),
	})
	return resp, nil
}

func (f *BalanceTransferFlowImpl) transfer(ctx context.Context, req *dto.BalanceTransferRequest) (*dto.BalanceTransferResponse, error) {
	bucket := models.CommissionBucket(strings.TrimSpace(req.From))
	if !bucket.IsTransferable() {
		return nil, NewBusinessError("INVALID_TRANSFER_SOURCE", "Invalid transfer source", ErrInvalidTransferBucket)
	}
	amount, err := parsePositiveAmount(req.Amount)
	if err != nil {
		return nil, NewBusinessError("TRANSFER_VALIDATION_FAILED", "Amount must be a positive number", err)
	}

	settings, err := f.settingsRepo.Get(ctx)
	if err != nil {
		return nil, NewBusinessError("TRANSFER_SETTINGS_LOOKUP_FAILED", "Failed to load transfer settings", err)
	}
	rule := settings.Rule(bucket)
	if !rule.Enabled {
		return nil, NewBusinessError("TRANSFER_DISABLED", "Transfers from this balance are disabled", ErrTransferBucketDisabled)
	}
	if !rule.Allows(amount) {
		return nil, NewBusinessErrorf("TRANSFER_AMOUNT_OUT_OF_RANGE", "Amount must be between %s and %s", ErrTransferAmountOutOfRange,
			rule.MinAmount.StringFixed(2), maxLabel(rule.MaxAmount))
	}

	account, err := f.accountRepo.ByID(ctx, req.AccountID)
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_LOOKUP_FAILED", "Failed to load account", err)
	}
	if account == nil {
		return nil, NewBusinessError("ACCOUNT_NOT_FOUND", "Account not found", ErrAccountNotFound)
	}
	if amount.GreaterThan(account.BucketBalance(bucket)) {
		return nil, NewBusinessError("INSUFFICIENT_COMMISSION_BALANCE", "Insufficient commission balance", ErrInsufficientBucketBalance)
	}

	ok, err := f.accountRepo.TransferToBalance(ctx, account.ID, bucket, amount)
	if err != nil {
		return nil, NewBusinessError("TRANSFER_FAILED", "Failed to transfer balance", err)
	}
	if !ok {
		// a concurrent transfer drained the bucket between the read and the update
		return nil, NewBusinessError("INSUFFICIENT_COMMISSION_BALANCE", "Insufficient commission balance", ErrInsufficientBucketBalance)
	}

	resp := &dto.BalanceTransferResponse{
		From:          string(bucket),
		Amount:        formatMoney(amount),
		Balance:       formatMoney(account.Balance.Add(amount)),
		BucketBalance: formatMoney(account.BucketBalance(bucket).Sub(amount)),
	}
	if fresh, err := f.accountRepo.ByID(ctx, account.ID); err == nil && fresh != nil {
		resp.Balance = formatMoney(fresh.Balance)
		resp.BucketBalance = formatMoney(fresh.BucketBalance(bucket))
	}
	return resp, nil
}

func maxLabel(max decimal.Decimal) string {
	if !max.IsPositive() {
		return "unlimited"
	}
	return max.StringFixed(2)
}

func (f *BalanceTransferFlowImpl) GetSettings(ctx context.Context) (*dto.BalanceTransferSettingsDTO, error) {
	settings, err := f.settingsRepo.Get(ctx)
	if err != nil {
		return nil, NewBusinessError("TRANSFER_SETTINGS_LOOKUP_FAILED", "Failed to load transfer settings", err)
	}
	return toBalanceTransferSettingsDTO(settings), nil
}

// UpdateSettings overwrites the rules of the buckets present in the request; other buckets keep their rule
func (f *BalanceTransferFlowImpl) UpdateSettings(ctx context.Context, req *dto.UpdateBalanceTransferSettingsRequest, metadata *ClientMetadata) (*dto.BalanceTransferSettingsDTO, error) {
	current, err := f.settingsRepo.Get(ctx)
	if err != nil {
		return nil, NewBusinessError("TRANSFER_SETTINGS_LOOKUP_FAILED", "Failed to load transfer settings", err)
	}

	rules := models.TransferRules{}
	if current != nil {
		for b, r := range current.Rules.Data() {
			rules[b] = r
		}
	}

	for key, in := range req.Rules {
		bucket := models.CommissionBucket(key)
		if !bucket.IsTransferable() {
			return nil, NewBusinessErrorf("INVALID_TRANSFER_SOURCE", "Unknown balance %q", ErrInvalidTransferBucket, key)
		}
		rule, err := parseTransferRule(in)
		if err != nil {
			return nil, NewBusinessErrorf("TRANSFER_SETTINGS_VALIDATION_FAILED", "Invalid rule for %s", err, key)
		}
		rules[bucket] = rule
	}

	settings := &models.BalanceTransferSettings{
		ID:        models.BalanceTransferSettingsID,
		Rules:     datatypes.NewJSONType(rules),
		UpdatedBy: utils.ToPtr(req.AdminID),
	}
	if err := f.settingsRepo.Upsert(ctx, settings); err != nil {
		return nil, NewBusinessError("TRANSFER_SETTINGS_UPDATE_FAILED", "Failed to save transfer settings", err)
	}

	recordAudit(ctx, f.auditRepo, f.logger, metadata, auditEntry{
		actorType: models.AuditActorAdmin,
		actorID:   &req.AdminID,
		action:    models.AuditActionTransferRulesUpdated,
		resource:  "balance_transfer_settings",
		success:   true,
		desc:      "Balance transfer rules updated",
	})

	return f.GetSettings(ctx)
}

func parseTransferRule(in dto.TransferRuleDTO) (models.TransferRule, error) {
	rule := models.TransferRule{Enabled: in.Enabled, MinAmount: decimal.Zero, MaxAmount: decimal.Zero}
	if in.MinAmount != "" {
		v, err := decimal.NewFromString(in.MinAmount)
		if err != nil || v.IsNegative() {
			return rule, ErrInvalidAmount
		}
		rule.MinAmount = v
	}
	if in.MaxAmount != "" {
		v, err := decimal.NewFromString(in.MaxAmount)
		if err != nil || v.IsNegative() {
			return rule, ErrInvalidAmount
		}
		rule.MaxAmount = v
	}
	if rule.MaxAmount.IsPositive() && rule.MaxAmount.LessThan(rule.MinAmount) {
		return rule, ErrTransferAmountOutOfRange
	}
	return rule, nil
}

func toBalanceTransferSettingsDTO(s *models.BalanceTransferSettings) *dto.BalanceTransferSettingsDTO {
	out := &dto.BalanceTransferSettingsDTO{Rules: make(map[string]dto.TransferRuleDTO, len(models.TransferBuckets))}
	for _, b := range models.TransferBuckets {
		r := s.Rule(b)
		out.Rules[string(b)] = dto.TransferRuleDTO{
			Enabled:   r.Enabled,
			MinAmount: formatMoney(r.MinAmount),
			MaxAmount: formatMoney(r.MaxAmount),
		}
	}
	if s != nil {
		out.UpdatedBy = s.UpdatedBy
		out.UpdatedAt = formatTimePtr(&s.UpdatedAt)
	}
	return out
}
