package businessflow

import (
	"context"

	"github.com/amirphl/betting-settlement/app/dto"
	"github.com/amirphl/betting-settlement/models"
	"github.com/amirphl/betting-settlement/repository"
	"github.com/amirphl/betting-settlement/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TurnoverEngine tracks the wagering requirements opened by credited deposits
type TurnoverEngine interface {
	Open(ctx context.Context, accountID, depositTxID uint, depositAmount, bonusAmount, multiplier decimal.Decimal) (*models.DepositTurnover, error)
	// Advance applies |amount| to the oldest active requirement; nil means there was none
	Advance(ctx context.Context, accountID uint, amount decimal.Decimal) (*models.DepositTurnover, error)
	ListForAccount(ctx context.Context, accountID uint) (*dto.TurnoverListResponse, error)
}

type TurnoverEngineImpl struct {
	turnoverRepo repository.DepositTurnoverRepository
	txManager    repository.TxManager
	logger       *zap.Logger
}

func NewTurnoverEngine(turnoverRepo repository.DepositTurnoverRepository, txManager repository.TxManager, logger *zap.Logger) TurnoverEngine {
	return &TurnoverEngineImpl{turnoverRepo: turnoverRepo, txManager: txManager, logger: logger}
}

func (e *TurnoverEngineImpl) Open(ctx context.Context, accountID, depositTxID uint, depositAmount, bonusAmount, multiplier decimal.Decimal) (*models.DepositTurnover, error) {
	if !multiplier.IsPositive() {
		multiplier = decimal.NewFromInt(1)
	}
	t := models.NewDepositTurnover(accountID, depositTxID, depositAmount, bonusAmount, multiplier)
	if err := e.turnoverRepo.Save(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (e *TurnoverEngineImpl) Advance(ctx context.Context, accountID uint, amount decimal.Decimal) (*models.DepositTurnover, error) {
	if amount.IsZero() {
		return nil, nil
	}

	var advanced *models.DepositTurnover
	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		t, err := e.turnoverRepo.OldestActiveForUpdate(txCtx, accountID)
		if err != nil {
			return err
		}
		if t == nil {
			return nil
		}
		if !t.Advance(amount, utils.UTCNow()) {
			return nil
		}
		if err := e.turnoverRepo.Update(txCtx, t); err != nil {
			return err
		}
		advanced = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	if advanced != nil && advanced.Status == models.TurnoverStatusCompleted {
		e.logger.Info("turnover completed",
			zap.Uint("account_id", accountID),
			zap.Uint("turnover_id", advanced.ID),
			zap.String("required", advanced.RequiredTurnover.String()),
		)
	}
	return advanced, nil
}

func (e *TurnoverEngineImpl) ListForAccount(ctx context.Context, accountID uint) (*dto.TurnoverListResponse, error) {
	rows, err := e.turnoverRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, NewBusinessError("LIST_TURNOVERS_FAILED", "Failed to list turnovers", err)
	}

	remaining := decimal.Zero
	items := make([]dto.TurnoverDTO, 0, len(rows))
	for _, t := range rows {
		items = append(items, ToTurnoverDTO(t))
		if t.Status == models.TurnoverStatusActive {
			remaining = remaining.Add(t.RemainingTurnover)
		}
	}
	return &dto.TurnoverListResponse{Items: items, Remaining: formatMoney(remaining)}, nil
}
