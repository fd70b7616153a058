package businessflow

import (
	"context"
	"fmt"

	"github.com/amirphl/betting-settlement/models"
	"github.com/amirphl/betting-settlement/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

// CommissionKind selects the rate and the bucket a cascade pays into
type CommissionKind string

const (
	CommissionGameLoss CommissionKind = "game_loss"
	CommissionGameWin  CommissionKind = "game_win"
	CommissionDeposit  CommissionKind = "deposit"
)

func (k CommissionKind) bucket() models.CommissionBucket {
	switch k {
	case CommissionGameLoss:
		return models.BucketGameLoss
	case CommissionGameWin:
		return models.BucketGameWin
	case CommissionDeposit:
		return models.BucketDeposit
	default:
		return ""
	}
}

func (k CommissionKind) rate(a *models.Account) decimal.Decimal {
	switch k {
	case CommissionGameLoss:
		return a.GameLossCommission
	case CommissionGameWin:
		return a.GameWinCommission
	case CommissionDeposit:
		return a.DepositCommission
	default:
		return decimal.Zero
	}
}

// CascadeResult lists what the two referral levels received
type CascadeResult struct {
	DirectAccountID   *uint
	Direct            decimal.Decimal
	UpstreamAccountID *uint
	Upstream          decimal.Decimal
}

// ComputeCascade splits a commissionable amount between the direct referrer (r1) and its referrer (r2).
// r2 only earns the differential, and only when it is a super-affiliate with a higher rate.
func ComputeCascade(amount, r1Rate, r2Rate decimal.Decimal, r2IsSuper bool) (direct, upstream decimal.Decimal) {
	direct, upstream = decimal.Zero, decimal.Zero
	if !amount.IsPositive() {
		return
	}
	if r1Rate.IsPositive() {
		direct = amount.Mul(r1Rate).Div(hundred).Round(2)
	}
	if r2IsSuper && r2Rate.GreaterThan(r1Rate) {
		diff := amount.Mul(r2Rate).Div(hundred).Round(2).Sub(direct)
		if diff.IsPositive() {
			upstream = diff
		}
	}
	return
}

// CommissionCascade pays referral commissions two levels up
type CommissionCascade interface {
	Apply(ctx context.Context, sourceAccountID uint, kind CommissionKind, amount decimal.Decimal) (*CascadeResult, error)
	ApplyReferral(ctx context.Context, newAccount *models.Account) (*CascadeResult, error)
}

// CommissionCascadeImpl implements CommissionCascade over the account repository.
// It runs in the caller's transaction when ctx carries one.
type CommissionCascadeImpl struct {
	accountRepo repository.AccountRepository
	logger      *zap.Logger
}

func NewCommissionCascade(accountRepo repository.AccountRepository, logger *zap.Logger) CommissionCascade {
	return &CommissionCascadeImpl{accountRepo: accountRepo, logger: logger}
}

// referrers resolves r1 and r2 with explicit lookups; missing links end the chain
func (c *CommissionCascadeImpl) referrers(ctx context.Context, source *models.Account) (r1, r2 *models.Account, err error) {
	if source.ReferredByID == nil {
		return nil, nil, nil
	}
	r1, err = c.accountRepo.ByID(ctx, *source.ReferredByID)
	if err != nil {
		return nil, nil, err
	}
	if r1 == nil {
		c.logger.Warn("referrer not found", zap.Uint("account_id", source.ID), zap.Uint("referred_by_id", *source.ReferredByID))
		return nil, nil, nil
	}
	if r1.ReferredByID == nil {
		return r1, nil, nil
	}
	r2, err = c.accountRepo.ByID(ctx, *r1.ReferredByID)
	if err != nil {
		return nil, nil, err
	}
	return r1, r2, nil
}

func (c *CommissionCascadeImpl) Apply(ctx context.Context, sourceAccountID uint, kind CommissionKind, amount decimal.Decimal) (*CascadeResult, error) {
	bucket := kind.bucket()
	if bucket == "" {
		return nil, fmt.Errorf("unknown commission kind %q", kind)
	}
	result := &CascadeResult{Direct: decimal.Zero, Upstream: decimal.Zero}
	if !amount.IsPositive() {
		return result, nil
	}

	source, err := c.accountRepo.ByID(ctx, sourceAccountID)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, ErrAccountNotFound
	}

	r1, r2, err := c.referrers(ctx, source)
	if err != nil {
		return nil, err
	}
	if r1 == nil {
		return result, nil
	}

	r2Rate := decimal.Zero
	r2IsSuper := false
	if r2 != nil {
		r2Rate = kind.rate(r2)
		r2IsSuper = r2.Role == models.AccountRoleSuperAffiliate
	}
	direct, upstream := ComputeCascade(amount, kind.rate(r1), r2Rate, r2IsSuper)

	if direct.IsPositive() {
		if err := c.credit(ctx, r1.ID, bucket, direct); err != nil {
			return nil, err
		}
		result.DirectAccountID = &r1.ID
		result.Direct = direct
	}
	if upstream.IsPositive() {
		if err := c.credit(ctx, r2.ID, bucket, upstream); err != nil {
			return nil, err
		}
		result.UpstreamAccountID = &r2.ID
		result.Upstream = upstream
	}

	c.logger.Debug("commission cascade applied",
		zap.Uint("source_account_id", sourceAccountID),
		zap.String("kind", string(kind)),
		zap.String("amount", amount.String()),
		zap.String("direct", direct.String()),
		zap.String("upstream", upstream.String()),
	)
	return result, nil
}

// ApplyReferral pays the flat referral amount for a newly registered account
func (c *CommissionCascadeImpl) ApplyReferral(ctx context.Context, newAccount *models.Account) (*CascadeResult, error) {
	result := &CascadeResult{Direct: decimal.Zero, Upstream: decimal.Zero}

	r1, r2, err := c.referrers(ctx, newAccount)
	if err != nil {
		return nil, err
	}
	if r1 == nil {
		return result, nil
	}

	if r1.ReferCommission.IsPositive() {
		if err := c.credit(ctx, r1.ID, models.BucketRefer, r1.ReferCommission); err != nil {
			return nil, err
		}
		result.DirectAccountID = &r1.ID
		result.Direct = r1.ReferCommission
	}

	if newAccount.Role != models.AccountRoleUser || r1.Role != models.AccountRoleMasterAffiliate {
		return result, nil
	}
	if r2 == nil || r2.Role != models.AccountRoleSuperAffiliate {
		return result, nil
	}
	diff := r2.ReferCommission.Sub(r1.ReferCommission)
	if diff.IsPositive() {
		if err := c.credit(ctx, r2.ID, models.BucketRefer, diff); err != nil {
			return nil, err
		}
		result.UpstreamAccountID = &r2.ID
		result.Upstream = diff
	}
	return result, nil
}

func (c *CommissionCascadeImpl) credit(ctx context.Context, accountID uint, bucket models.CommissionBucket, amount decimal.Decimal) error {
	if err := c.accountRepo.CreditCommission(ctx, accountID, bucket, amount); err != nil {
		return fmt.Errorf("failed to credit %s of account %d: %w", bucket, accountID, err)
	}
	f, _ := amount.Float64()
	commissionCreditedTotal.WithLabelValues(string(bucket)).Add(f)
	return nil
}
