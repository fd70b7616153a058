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
)

// DepositBonusFlow manages deposit promotions
type DepositBonusFlow interface {
	CreateDepositBonus(ctx context.Context, req *dto.CreateDepositBonusRequest, metadata *ClientMetadata) (*dto.DepositBonusDTO, error)
	ListActive(ctx context.Context) ([]dto.DepositBonusDTO, error)
}

type DepositBonusFlowImpl struct {
	bonusRepo repository.DepositBonusRepository
	auditRepo repository.AuditLogRepository
	logger    *zap.Logger
}

func NewDepositBonusFlow(bonusRepo repository.DepositBonusRepository, auditRepo repository.AuditLogRepository, logger *zap.Logger) DepositBonusFlow {
	return &DepositBonusFlowImpl{bonusRepo: bonusRepo, auditRepo: auditRepo, logger: logger}
}

func (f *DepositBonusFlowImpl) CreateDepositBonus(ctx context.Context, req *dto.CreateDepositBonusRequest, metadata *ClientMetadata) (*dto.DepositBonusDTO, error) {
	bonus, err := buildDepositBonus(req)
	if err != nil {
		return nil, NewBusinessError("DEPOSIT_BONUS_VALIDATION_FAILED", "Deposit bonus validation failed", err)
	}

	if err := f.bonusRepo.Save(ctx, bonus); err != nil {
		return nil, NewBusinessError("DEPOSIT_BONUS_CREATE_FAILED", "Failed to create deposit bonus", err)
	}

	recordAudit(ctx, f.auditRepo, f.logger, metadata, auditEntry{
		actorType:  models.AuditActorAdmin,
		action:     models.AuditActionDepositBonusCreated,
		resource:   "deposit_bonus",
		resourceID: fmt.Sprint(bonus.ID),
		success:    true,
		desc:       fmt.Sprintf("Created %s bonus %q", bonus.BonusType, bonus.Title),
	})

	out := ToDepositBonusDTO(bonus)
	return &out, nil
}

func (f *DepositBonusFlowImpl) ListActive(ctx context.Context) ([]dto.DepositBonusDTO, error) {
	bonuses, err := f.bonusRepo.ListActive(ctx)
	if err != nil {
		return nil, NewBusinessError("DEPOSIT_BONUS_LIST_FAILED", "Failed to list deposit bonuses", err)
	}
	out := make([]dto.DepositBonusDTO, 0, len(bonuses))
	for _, b := range bonuses {
		out = append(out, ToDepositBonusDTO(b))
	}
	return out, nil
}

func buildDepositBonus(req *dto.CreateDepositBonusRequest) (*models.DepositBonus, error) {
	bonusType := models.BonusType(req.BonusType)
	if bonusType != models.BonusTypeFix && bonusType != models.BonusTypePercentage {
		return nil, ErrInvalidBonusType
	}

	value, err := decimal.NewFromString(req.Bonus)
	if err != nil || value.IsNegative() {
		return nil, ErrInvalidAmount
	}
	if bonusType == models.BonusTypePercentage && value.GreaterThan(hundred) {
		return nil, ErrInvalidCommissionRate
	}

	multiplier := decimal.NewFromInt(1)
	if req.TurnoverMultiplier != "" {
		multiplier, err = decimal.NewFromString(req.TurnoverMultiplier)
		if err != nil || !multiplier.IsPositive() {
			return nil, ErrInvalidAmount
		}
	}

	minDeposit := decimal.Zero
	if req.MinDeposit != "" {
		minDeposit, err = decimal.NewFromString(req.MinDeposit)
		if err != nil || minDeposit.IsNegative() {
			return nil, ErrInvalidAmount
		}
	}

	return &models.DepositBonus{
		Title:              req.Title,
		BonusType:          bonusType,
		Bonus:              value.Round(2),
		TurnoverMultiplier: multiplier.Round(2),
		MinDeposit:         minDeposit.Round(2),
		IsActive:           utils.ToPtr(true),
	}, nil
}
