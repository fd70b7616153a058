package businessflow

import (
	"context"
	"fmt"

	"github.com/amirphl/betting-settlement/app/dto"
	"github.com/amirphl/betting-settlement/models"
	"github.com/amirphl/betting-settlement/repository"
	"github.com/amirphl/betting-settlement/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AccountFlow handles account registration, rate configuration and the self view
type AccountFlow interface {
	RegisterAccount(ctx context.Context, req *dto.RegisterAccountRequest, metadata *ClientMetadata) (*dto.RegisterAccountResponse, error)
	UpdateCommissionRates(ctx context.Context, req *dto.CommissionRatesRequest, metadata *ClientMetadata) (*dto.AccountDTO, error)
	GetAccount(ctx context.Context, accountID uint) (*dto.AccountDTO, error)
}

type AccountFlowImpl struct {
	accountRepo repository.AccountRepository
	auditRepo   repository.AuditLogRepository
	txManager   repository.TxManager
	cascade     CommissionCascade
	bcryptCost  int
	logger      *zap.Logger
}

func NewAccountFlow(
	accountRepo repository.AccountRepository,
	auditRepo repository.AuditLogRepository,
	txManager repository.TxManager,
	cascade CommissionCascade,
	bcryptCost int,
	logger *zap.Logger,
) AccountFlow {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AccountFlowImpl{
		accountRepo: accountRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		cascade:     cascade,
		bcryptCost:  bcryptCost,
		logger:      logger,
	}
}

// RegisterAccount creates the account and pays the referral bonus to its referrers in one transaction
func (f *AccountFlowImpl) RegisterAccount(ctx context.Context, req *dto.RegisterAccountRequest, metadata *ClientMetadata) (*dto.RegisterAccountResponse, error) {
	role := models.AccountRole(req.Role)
	if !role.Valid() {
		return nil, NewBusinessError("ACCOUNT_VALIDATION_FAILED", "Account validation failed", ErrInvalidRole)
	}

	existing, err := f.accountRepo.ByUsername(ctx, req.Username)
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_LOOKUP_FAILED", "Failed to look up username", err)
	}
	if existing != nil {
		return nil, NewBusinessError("USERNAME_ALREADY_EXISTS", "Username already exists", ErrUsernameAlreadyExists)
	}

	var referrerID *uint
	if req.ReferredBy != nil && *req.ReferredBy != "" {
		referrer, err := f.accountRepo.ByUsername(ctx, *req.ReferredBy)
		if err != nil {
			return nil, NewBusinessError("ACCOUNT_LOOKUP_FAILED", "Failed to look up referrer", err)
		}
		if referrer == nil || !referrer.Role.IsAffiliate() {
			return nil, NewBusinessError("REFERRER_NOT_FOUND", "Referrer not found", ErrReferrerNotFound)
		}
		referrerID = &referrer.ID
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), f.bcryptCost)
	if err != nil {
		return nil, NewBusinessError("PASSWORD_HASH_FAILED", "Failed to hash password", err)
	}

	account := &models.Account{
		Username:     req.Username,
		PasswordHash: string(hash),
		Role:         role,
		ReferredByID: referrerID,
		IsActive:     utils.ToPtr(true),
	}

	var referral *CascadeResult
	err = f.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := f.accountRepo.Save(txCtx, account); err != nil {
			if isDuplicateKey(err) {
				return ErrUsernameAlreadyExists
			}
			return err
		}
		referral, err = f.cascade.ApplyReferral(txCtx, account)
		return err
	})
	if err != nil {
		if IsUsernameAlreadyExists(err) {
			return nil, NewBusinessError("USERNAME_ALREADY_EXISTS", "Username already exists", err)
		}
		return nil, NewBusinessError("ACCOUNT_REGISTRATION_FAILED", "Failed to register account", err)
	}

	recordAudit(ctx, f.auditRepo, f.logger, metadata, auditEntry{
		actorType:  models.AuditActorAdmin,
		action:     models.AuditActionAccountRegistered,
		resource:   "account",
		resourceID: fmt.Sprint(account.ID),
		success:    true,
		desc:       fmt.Sprintf("Registered %s %s", account.Role, account.Username),
		metadata:   map[string]any{"referral_direct": formatMoney(referral.Direct), "referral_upstream": formatMoney(referral.Upstream)},
	})

	return &dto.RegisterAccountResponse{
		Account:        ToAccountDTO(account),
		ReferralDirect: formatMoney(referral.Direct),
		ReferralUpline: formatMoney(referral.Upstream),
	}, nil
}

func (f *AccountFlowImpl) UpdateCommissionRates(ctx context.Context, req *dto.CommissionRatesRequest, metadata *ClientMetadata) (*dto.AccountDTO, error) {
	rates, err := parseCommissionRates(req)
	if err != nil {
		return nil, NewBusinessError("COMMISSION_RATES_VALIDATION_FAILED", "Commission rates validation failed", err)
	}

	account, err := f.accountRepo.ByID(ctx, req.AccountID)
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_LOOKUP_FAILED", "Failed to load account", err)
	}
	if account == nil || !account.Role.IsAffiliate() {
		return nil, NewBusinessError("AFFILIATE_NOT_FOUND", "Affiliate not found", ErrAffiliateNotFound)
	}

	if err := f.accountRepo.UpdateCommissionRates(ctx, account.ID, rates); err != nil {
		return nil, NewBusinessError("COMMISSION_RATES_UPDATE_FAILED", "Failed to update commission rates", err)
	}
	account.GameWinCommission = rates.GameWin
	account.GameLossCommission = rates.GameLoss
	account.DepositCommission = rates.Deposit
	account.ReferCommission = rates.Refer

	recordAudit(ctx, f.auditRepo, f.logger, metadata, auditEntry{
		actorType:  models.AuditActorAdmin,
		action:     models.AuditActionCommissionRatesUpdated,
		resource:   "account",
		resourceID: fmt.Sprint(account.ID),
		success:    true,
		metadata: map[string]any{
			"game_win_commission":  rates.GameWin.String(),
			"game_loss_commission": rates.GameLoss.String(),
			"deposit_commission":   rates.Deposit.String(),
			"refer_commission":     rates.Refer.String(),
		},
	})

	out := ToAccountDTO(account)
	return &out, nil
}

func (f *AccountFlowImpl) GetAccount(ctx context.Context, accountID uint) (*dto.AccountDTO, error) {
	account, err := f.accountRepo.ByID(ctx, accountID)
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_LOOKUP_FAILED", "Failed to load account", err)
	}
	if account == nil {
		return nil, NewBusinessError("ACCOUNT_NOT_FOUND", "Account not found", ErrAccountNotFound)
	}
	out := ToAccountDTO(account)
	return &out, nil
}

// parseCommissionRates accepts percentages in [0, 100] and a non-negative flat referral amount
func parseCommissionRates(req *dto.CommissionRatesRequest) (models.CommissionRates, error) {
	var rates models.CommissionRates
	pct := []struct {
		raw string
		dst *decimal.Decimal
	}{
		{req.GameWinCommission, &rates.GameWin},
		{req.GameLossCommission, &rates.GameLoss},
		{req.DepositCommission, &rates.Deposit},
	}
	for _, p := range pct {
		v, err := decimal.NewFromString(p.raw)
		if err != nil || v.IsNegative() || v.GreaterThan(hundred) {
			return rates, ErrInvalidCommissionRate
		}
		*p.dst = v
	}

	refer, err := decimal.NewFromString(req.ReferCommission)
	if err != nil || refer.IsNegative() {
		return rates, ErrInvalidAmount
	}
	rates.Refer = refer.Round(2)
	return rates, nil
}
