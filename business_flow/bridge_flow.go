package businessflow

import (
	"context"
	"fmt"

	"github.com/amirphl/betting-settlement/app/dto"
	"github.com/amirphl/betting-settlement/models"
	"github.com/amirphl/betting-settlement/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	BridgeStatusBridged = "bridged"
	BridgeStatusSkipped = "skipped"
	BridgeStatusFailed  = "failed"
)

var three = decimal.NewFromInt(3)

// ComputeBridge nets the game-win bucket against the three positive buckets and splits the rest evenly.
// The share is cut to cents, so the three buckets are equal and up to two cents of result are not redistributed.
// ok is false when there is nothing positive to distribute.
func ComputeBridge(a *models.Account) (result decimal.Decimal, balances models.BridgeBalances, ok bool) {
	positive := a.GameLossCommissionBalance.Add(a.DepositCommissionBalance).Add(a.ReferCommissionBalance)
	result = positive.Sub(a.GameWinCommissionBalance)
	if !result.IsPositive() {
		return result, balances, false
	}

	share := result.Div(three).Truncate(2)
	balances = models.BridgeBalances{
		GameWin:  decimal.Zero,
		GameLoss: share,
		Deposit:  share,
		Refer:    share,
	}
	return result, balances, true
}

// BridgeFlow runs the bridge operation for affiliates of one role
type BridgeFlow interface {
	BridgeAccount(ctx context.Context, role models.AccountRole, id uint, metadata *ClientMetadata) (*dto.BridgeResultDTO, error)
	BridgeAll(ctx context.Context, role models.AccountRole, metadata *ClientMetadata) (*dto.BridgeAllResponse, error)
}

type BridgeFlowImpl struct {
	accountRepo repository.AccountRepository
	auditRepo   repository.AuditLogRepository
	txManager   repository.TxManager
	logger      *zap.Logger
}

func NewBridgeFlow(accountRepo repository.AccountRepository, auditRepo repository.AuditLogRepository, txManager repository.TxManager, logger *zap.Logger) BridgeFlow {
	return &BridgeFlowImpl{accountRepo: accountRepo, auditRepo: auditRepo, txManager: txManager, logger: logger}
}

func (f *BridgeFlowImpl) BridgeAccount(ctx context.Context, role models.AccountRole, id uint, metadata *ClientMetadata) (*dto.BridgeResultDTO, error) {
	if !role.IsAffiliate() {
		return nil, NewBusinessError("INVALID_ROLE", "Bridge applies to affiliates only", ErrInvalidRole)
	}

	res, err := f.bridgeOne(ctx, role, id)
	if err != nil {
		if IsAffiliateNotFound(err) {
			return nil, NewBusinessError("AFFILIATE_NOT_FOUND", "Affiliate not found", err)
		}
		bridgeRunsTotal.WithLabelValues(string(role), BridgeStatusFailed).Inc()
		return nil, NewBusinessError("BRIDGE_FAILED", "Failed to bridge account", err)
	}

	bridgeRunsTotal.WithLabelValues(string(role), res.Status).Inc()
	recordAudit(ctx, f.auditRepo, f.logger, metadata, auditEntry{
		actorType:  models.AuditActorAdmin,
		action:     models.AuditActionBridgeApplied,
		resource:   "account",
		resourceID: fmt.Sprint(id),
		success:    true,
		desc:       fmt.Sprintf("Bridge %s for %s %d", res.Status, role, id),
		metadata:   map[string]any{"result": res.Result, "share": res.Share},
	})
	return res, nil
}

// bridgeOne locks and rewrites one affiliate inside its own transaction
func (f *BridgeFlowImpl) bridgeOne(ctx context.Context, role models.AccountRole, id uint) (*dto.BridgeResultDTO, error) {
	var res *dto.BridgeResultDTO
	err := f.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		account, err := f.accountRepo.ByIDForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if account == nil || account.Role != role {
			return ErrAffiliateNotFound
		}

		result, balances, ok := ComputeBridge(account)
		res = &dto.BridgeResultDTO{
			AccountID: account.ID,
			Username:  account.Username,
			Result:    formatMoney(result),
		}
		if !ok {
			res.Status = BridgeStatusSkipped
			return nil
		}

		if err := f.accountRepo.UpdateBridgeBalances(txCtx, account.ID, balances); err != nil {
			return err
		}
		res.Status = BridgeStatusBridged
		res.Share = formatMoney(balances.Deposit)
		if remainder := result.Sub(balances.Deposit.Mul(three)); remainder.IsPositive() {
			f.logger.Info("bridge share truncated",
				zap.Uint("account_id", account.ID),
				zap.String("result", result.String()),
				zap.String("remainder", remainder.String()),
			)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// BridgeAll bridges every active affiliate of role; one failure does not stop the others
func (f *BridgeFlowImpl) BridgeAll(ctx context.Context, role models.AccountRole, metadata *ClientMetadata) (*dto.BridgeAllResponse, error) {
	if !role.IsAffiliate() {
		return nil, NewBusinessError("INVALID_ROLE", "Bridge applies to affiliates only", ErrInvalidRole)
	}

	ids, err := f.accountRepo.ListIDsByRole(ctx, role)
	if err != nil {
		return nil, NewBusinessError("LIST_AFFILIATES_FAILED", "Failed to list affiliates", err)
	}

	out := &dto.BridgeAllResponse{Role: string(role), Results: make([]dto.BridgeResultDTO, 0, len(ids))}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, NewBusinessError("BRIDGE_CANCELLED", "Bridge run cancelled", err)
		}

		res, err := f.bridgeOne(ctx, role, id)
		if err != nil {
			f.logger.Error("bridge failed", zap.Uint("account_id", id), zap.String("role", string(role)), zap.Error(err))
			out.Failed++
			out.Results = append(out.Results, dto.BridgeResultDTO{AccountID: id, Status: BridgeStatusFailed, Error: err.Error()})
			bridgeRunsTotal.WithLabelValues(string(role), BridgeStatusFailed).Inc()
			continue
		}

		bridgeRunsTotal.WithLabelValues(string(role), res.Status).Inc()
		if res.Status == BridgeStatusSkipped {
			out.Skipped++
		} else {
			out.Processed++
		}
		out.Results = append(out.Results, *res)
	}

	recordAudit(ctx, f.auditRepo, f.logger, metadata, auditEntry{
		actorType: models.AuditActorAdmin,
		action:    models.AuditActionBridgeApplied,
		resource:  "account",
		success:   out.Failed == 0,
		desc:      fmt.Sprintf("Bridge all %s: %d processed, %d skipped, %d failed", role, out.Processed, out.Skipped, out.Failed),
	})
	return out, nil
}
