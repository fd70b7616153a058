package businessflow

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/amirphl/betting-settlement/app/dto"
	"github.com/amirphl/betting-settlement/models"
	"github.com/amirphl/betting-settlement/repository"
	"go.uber.org/zap"
)

// errReplayedCallback aborts the transaction when a concurrent retry already stored the same callback
var errReplayedCallback = errors.New("callback already applied")

// GameCallbackFlow applies game provider bets, settlements and refunds to the ledger
type GameCallbackFlow interface {
	HandleGameCallback(ctx context.Context, req *dto.GameCallbackRequest) (*dto.GameCallbackResponse, error)
	HandleRefund(ctx context.Context, req *dto.GameRefundRequest) (*dto.GameCallbackResponse, error)
}

type GameCallbackFlowImpl struct {
	accountRepo     repository.AccountRepository
	gameRepo        repository.GameHistoryRepository
	refundRepo      repository.RefundHistoryRepository
	txManager       repository.TxManager
	turnover        TurnoverEngine
	cascade         CommissionCascade
	verificationKey string
	logger          *zap.Logger
}

func NewGameCallbackFlow(
	accountRepo repository.AccountRepository,
	gameRepo repository.GameHistoryRepository,
	refundRepo repository.RefundHistoryRepository,
	txManager repository.TxManager,
	turnover TurnoverEngine,
	cascade CommissionCascade,
	verificationKey string,
	logger *zap.Logger,
) GameCallbackFlow {
	return &GameCallbackFlowImpl{
		accountRepo:     accountRepo,
		gameRepo:        gameRepo,
		refundRepo:      refundRepo,
		txManager:       txManager,
		turnover:        turnover,
		cascade:         cascade,
		verificationKey: verificationKey,
		logger:          logger,
	}
}

func (f *GameCallbackFlowImpl) verify(key string) error {
	if f.verificationKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(f.verificationKey)) != 1 {
		return NewBusinessError("INVALID_VERIFICATION_KEY", "Invalid verification key", ErrInvalidVerificationKey)
	}
	return nil
}

func (f *GameCallbackFlowImpl) account(ctx context.Context, username string) (*models.Account, error) {
	account, err := f.accountRepo.ByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_LOOKUP_FAILED", "Failed to load account", err)
	}
	if account == nil {
		return nil, NewBusinessError("ACCOUNT_NOT_FOUND", "Account not found", ErrAccountNotFound)
	}
	return account, nil
}

func (f *GameCallbackFlowImpl) balanceResponse(ctx context.Context, account *models.Account, duplicate bool) (*dto.GameCallbackResponse, error) {
	fresh, err := f.accountRepo.ByID(ctx, account.ID)
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_LOOKUP_FAILED", "Failed to load account", err)
	}
	if fresh == nil {
		return nil, NewBusinessError("ACCOUNT_NOT_FOUND", "Account not found", ErrAccountNotFound)
	}
	return &dto.GameCallbackResponse{
		Username:  fresh.Username,
		Balance:   formatMoney(fresh.Balance),
		Duplicate: duplicate,
	}, nil
}

// HandleGameCallback applies a BET (stake debit) or SETTLE (payout credit). A (transaction_id, bet_type)
// pair is applied at most once; replays return the current balance.
func (f *GameCallbackFlowImpl) HandleGameCallback(ctx context.Context, req *dto.GameCallbackRequest) (*dto.GameCallbackResponse, error) {
	if err := f.verify(req.VerificationKey); err != nil {
		return nil, err
	}
	betType := models.BetType(strings.ToUpper(strings.TrimSpace(req.BetType)))
	if !betType.Valid() {
		return nil, NewBusinessError("INVALID_BET_TYPE", "bet_type must be BET or SETTLE", ErrInvalidBetType)
	}

	account, err := f.account(ctx, req.Username)
	if err != nil {
		return nil, err
	}

	seen, err := f.gameRepo.ByTransaction(ctx, req.TransactionID, betType)
	if err != nil {
		return nil, NewBusinessError("GAME_HISTORY_LOOKUP_FAILED", "Failed to load game history", err)
	}
	if seen != nil {
		gameCallbacksTotal.WithLabelValues(string(betType), "duplicate").Inc()
		return f.balanceResponse(ctx, account, true)
	}

	amount := req.Amount.Abs()
	history := &models.GameHistory{
		AccountID:     account.ID,
		TransactionID: req.TransactionID,
		BetType:       betType,
		ProviderCode:  req.ProviderCode,
		GameCode:      req.GameCode,
		Amount:        amount,
		Status:        models.GameStatusPending,
		Times:         req.Times,
	}

	err = f.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		switch betType {
		case models.BetTypeBet:
			ok, err := f.accountRepo.DebitBalance(txCtx, account.ID, amount)
			if err != nil {
				return err
			}
			if !ok {
				return ErrInsufficientFunds
			}
			if err := f.saveHistory(txCtx, history); err != nil {
				return err
			}
		case models.BetTypeSettle:
			if err := f.settle(txCtx, account, history); err != nil {
				return err
			}
		}

		_, err := f.turnover.Advance(txCtx, account.ID, amount)
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, errReplayedCallback):
			gameCallbacksTotal.WithLabelValues(string(betType), "duplicate").Inc()
			return f.balanceResponse(ctx, account, true)
		case IsInsufficientFunds(err):
			gameCallbacksTotal.WithLabelValues(string(betType), "insufficient").Inc()
			return nil, NewBusinessError("INSUFFICIENT_FUNDS", "Insufficient balance", err)
		default:
			gameCallbacksTotal.WithLabelValues(string(betType), "error").Inc()
			f.logger.Error("game callback failed",
				zap.String("transaction_id", req.TransactionID),
				zap.String("bet_type", string(betType)),
				zap.Error(err),
			)
			return nil, NewBusinessError("GAME_CALLBACK_FAILED", "Failed to apply game callback", err)
		}
	}

	gameCallbacksTotal.WithLabelValues(string(betType), "applied").Inc()
	return f.balanceResponse(ctx, account, false)
}

// settle credits the payout and nets it against the matching BET stake
func (f *GameCallbackFlowImpl) settle(ctx context.Context, account *models.Account, history *models.GameHistory) error {
	payout := history.Amount
	if payout.IsPositive() {
		if err := f.accountRepo.CreditBalance(ctx, account.ID, payout); err != nil {
			return err
		}
	}

	bet, err := f.gameRepo.ByTransaction(ctx, history.TransactionID, models.BetTypeBet)
	if err != nil {
		return err
	}
	if bet == nil {
		f.logger.Warn("settle without matching bet", zap.String("transaction_id", history.TransactionID))
		if payout.IsPositive() {
			history.Status = models.GameStatusWon
		} else {
			history.Status = models.GameStatusLost
		}
		return f.saveHistory(ctx, history)
	}

	net := payout.Sub(bet.Amount.Abs())
	status := models.GameStatusWon
	if net.IsNegative() {
		status = models.GameStatusLost
	}
	history.Status = status
	if err := f.saveHistory(ctx, history); err != nil {
		return err
	}
	if err := f.gameRepo.UpdateStatus(ctx, history.TransactionID, status); err != nil {
		return err
	}

	switch {
	case net.IsNegative():
		_, err = f.cascade.Apply(ctx, account.ID, CommissionGameLoss, net.Abs())
	case net.IsPositive():
		_, err = f.cascade.Apply(ctx, account.ID, CommissionGameWin, net)
	}
	return err
}

func (f *GameCallbackFlowImpl) saveHistory(ctx context.Context, history *models.GameHistory) error {
	if err := f.gameRepo.Save(ctx, history); err != nil {
		if isDuplicateKey(err) {
			return errReplayedCallback
		}
		return err
	}
	return nil
}

// HandleRefund returns a stake once per transaction_id and marks the bet refunded
func (f *GameCallbackFlowImpl) HandleRefund(ctx context.Context, req *dto.GameRefundRequest) (*dto.GameCallbackResponse, error) {
	if err := f.verify(req.VerificationKey); err != nil {
		return nil, err
	}

	account, err := f.account(ctx, req.Username)
	if err != nil {
		return nil, err
	}

	seen, err := f.refundRepo.ByTransactionID(ctx, req.TransactionID)
	if err != nil {
		return nil, NewBusinessError("REFUND_LOOKUP_FAILED", "Failed to load refund history", err)
	}
	if seen != nil {
		gameCallbacksTotal.WithLabelValues("REFUND", "duplicate").Inc()
		return f.balanceResponse(ctx, account, true)
	}

	amount := req.Amount.Abs()
	if amount.IsZero() {
		return nil, NewBusinessError("REFUND_VALIDATION_FAILED", "Refund amount must be positive", ErrInvalidAmount)
	}

	err = f.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := f.accountRepo.CreditBalance(txCtx, account.ID, amount); err != nil {
			return err
		}
		refund := &models.RefundHistory{
			AccountID:     account.ID,
			TransactionID: req.TransactionID,
			ProviderCode:  req.ProviderCode,
			Amount:        amount,
			Reason:        req.Reason,
		}
		if err := f.refundRepo.Save(txCtx, refund); err != nil {
			if isDuplicateKey(err) {
				return errReplayedCallback
			}
			return err
		}
		return f.gameRepo.UpdateStatus(txCtx, req.TransactionID, models.GameStatusRefunded)
	})
	if err != nil {
		if errors.Is(err, errReplayedCallback) {
			gameCallbacksTotal.WithLabelValues("REFUND", "duplicate").Inc()
			return f.balanceResponse(ctx, account, true)
		}
		gameCallbacksTotal.WithLabelValues("REFUND", "error").Inc()
		return nil, NewBusinessError("REFUND_FAILED", "Failed to apply refund", err)
	}

	gameCallbacksTotal.WithLabelValues("REFUND", "applied").Inc()
	f.logger.Info("refund applied",
		zap.Uint("account_id", account.ID),
		zap.String("transaction_id", req.TransactionID),
		zap.String("amount", amount.String()),
	)
	return f.balanceResponse(ctx, account, false)
}
