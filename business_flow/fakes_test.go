package businessflow

import (
	"context"
	"maps"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/amirphl/betting-settlement/models"
	"github.com/amirphl/betting-settlement/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// memDB is an in-memory ledger with the unique constraints of the postgres schema.
// Rows are stored by value so a transaction can be rolled back by restoring a snapshot.
type memDB struct {
	mu sync.Mutex

	nextID    uint
	accounts  map[uint]models.Account
	deposits  map[uint]models.DepositTransaction
	payments  map[uint]models.PaymentMessage
	opay      map[uint]models.OpayVerifiedTransaction
	turnovers map[uint]models.DepositTurnover
	games     map[uint]models.GameHistory
	refunds   map[uint]models.RefundHistory
	bonuses   map[uint]models.DepositBonus
	admins    map[uint]models.Admin
	audits    []models.AuditLog
	settings  *models.BalanceTransferSettings
}

func newMemDB() *memDB {
	return &memDB{
		accounts:  map[uint]models.Account{},
		deposits:  map[uint]models.DepositTransaction{},
		payments:  map[uint]models.PaymentMessage{},
		opay:      map[uint]models.OpayVerifiedTransaction{},
		turnovers: map[uint]models.DepositTurnover{},
		games:     map[uint]models.GameHistory{},
		refunds:   map[uint]models.RefundHistory{},
		bonuses:   map[uint]models.DepositBonus{},
		admins:    map[uint]models.Admin{},
	}
}

func (db *memDB) id() uint {
	db.nextID++
	return db.nextID
}

func (db *memDB) snapshot() *memDB {
	db.mu.Lock()
	defer db.mu.Unlock()
	s := &memDB{
		nextID:    db.nextID,
		accounts:  maps.Clone(db.accounts),
		deposits:  maps.Clone(db.deposits),
		payments:  maps.Clone(db.payments),
		opay:      maps.Clone(db.opay),
		turnovers: maps.Clone(db.turnovers),
		games:     maps.Clone(db.games),
		refunds:   maps.Clone(db.refunds),
		bonuses:   maps.Clone(db.bonuses),
		admins:    maps.Clone(db.admins),
		audits:    slices.Clone(db.audits),
	}
	if db.settings != nil {
		cp := *db.settings
		s.settings = &cp
	}
	return s
}

func (db *memDB) restore(s *memDB) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.nextID = s.nextID
	db.accounts, db.deposits, db.payments, db.opay = s.accounts, s.deposits, s.payments, s.opay
	db.turnovers, db.games, db.refunds = s.turnovers, s.games, s.refunds
	db.bonuses, db.admins, db.audits, db.settings = s.bonuses, s.admins, s.audits, s.settings
}

func sortedKeys[V any](m map[uint]V) []uint {
	return slices.Sorted(maps.Keys(m))
}

// memTxManager restores the snapshot taken at the outermost WithTransaction when fn fails
type memTxManager struct {
	db *memDB
}

type memTxKey struct{}

func (m *memTxManager) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	snap := m.db.snapshot()
	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		m.db.restore(snap)
		return err
	}
	return nil
}

// accounts

type memAccountRepo struct{ db *memDB }

func (r *memAccountRepo) ByID(ctx context.Context, id uint) (*models.Account, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.db.accounts[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *memAccountRepo) ByFilter(ctx context.Context, filter models.AccountFilter, orderBy string, limit, offset int) ([]*models.Account, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*models.Account
	for _, id := range sortedKeys(r.db.accounts) {
		a := r.db.accounts[id]
		if filter.ID != nil && a.ID != *filter.ID {
			continue
		}
		if filter.Username != nil && a.Username != *filter.Username {
			continue
		}
		if filter.Role != nil && a.Role != *filter.Role {
			continue
		}
		if filter.ReferredByID != nil && (a.ReferredByID == nil || *a.ReferredByID != *filter.ReferredByID) {
			continue
		}
		if filter.IsActive != nil && utils.IsTrue(a.IsActive) != *filter.IsActive {
			continue
		}
		out = append(out, &a)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memAccountRepo) Save(ctx context.Context, a *models.Account) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id, other := range r.db.accounts {
		if id != a.ID && other.Username == a.Username {
			return gorm.ErrDuplicatedKey
		}
	}
	if a.ID == 0 {
		_ = a.BeforeCreate(nil)
		a.ID = r.db.id()
		a.CreatedAt = utils.UTCNow()
	}
	r.db.accounts[a.ID] = *a
	return nil
}

func (r *memAccountRepo) SaveBatch(ctx context.Context, accounts []*models.Account) error {
	for _, a := range accounts {
		if err := r.Save(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func (r *memAccountRepo) Count(ctx context.Context, filter models.AccountFilter) (int64, error) {
	rows, err := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(rows)), err
}

func (r *memAccountRepo) ByUsername(ctx context.Context, username string) (*models.Account, error) {
	rows, err := r.ByFilter(ctx, models.AccountFilter{Username: &username}, "", 1, 0)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (r *memAccountRepo) ByIDForUpdate(ctx context.Context, id uint) (*models.Account, error) {
	return r.ByID(ctx, id)
}

func (r *memAccountRepo) ListIDsByRole(ctx context.Context, role models.AccountRole) ([]uint, error) {
	active := true
	rows, err := r.ByFilter(ctx, models.AccountFilter{Role: &role, IsActive: &active}, "", 0, 0)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(rows))
	for _, a := range rows {
		ids = append(ids, a.ID)
	}
	return ids, nil
}

func (r *memAccountRepo) update(id uint, fn func(a *models.Account) bool) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.db.accounts[id]
	if !ok {
		return false, nil
	}
	if !fn(&a) {
		return false, nil
	}
	r.db.accounts[id] = a
	return true, nil
}

func addToBucket(a *models.Account, b models.CommissionBucket, amount decimal.Decimal) {
	switch b {
	case models.BucketCommission:
		a.CommissionBalance = a.CommissionBalance.Add(amount)
	case models.BucketGameWin:
		a.GameWinCommissionBalance = a.GameWinCommissionBalance.Add(amount)
	case models.BucketGameLoss:
		a.GameLossCommissionBalance = a.GameLossCommissionBalance.Add(amount)
	case models.BucketDeposit:
		a.DepositCommissionBalance = a.DepositCommissionBalance.Add(amount)
	case models.BucketRefer:
		a.ReferCommissionBalance = a.ReferCommissionBalance.Add(amount)
	}
}

func (r *memAccountRepo) CreditDeposit(ctx context.Context, id uint, amount decimal.Decimal) error {
	_, err := r.update(id, func(a *models.Account) bool {
		a.Balance = a.Balance.Add(amount)
		a.Deposit = a.Deposit.Add(amount)
		return true
	})
	return err
}

func (r *memAccountRepo) CreditBalance(ctx context.Context, id uint, amount decimal.Decimal) error {
	_, err := r.update(id, func(a *models.Account) bool {
		a.Balance = a.Balance.Add(amount)
		return true
	})
	return err
}

func (r *memAccountRepo) DebitBalance(ctx context.Context, id uint, amount decimal.Decimal) (bool, error) {
	return r.update(id, func(a *models.Account) bool {
		if a.Balance.LessThan(amount) {
			return false
		}
		a.Balance = a.Balance.Sub(amount)
		return true
	})
}

func (r *memAccountRepo) CreditCommission(ctx context.Context, id uint, bucket models.CommissionBucket, amount decimal.Decimal) error {
	_, err := r.update(id, func(a *models.Account) bool {
		addToBucket(a, bucket, amount)
		return true
	})
	return err
}

func (r *memAccountRepo) TransferToBalance(ctx context.Context, id uint, bucket models.CommissionBucket, amount decimal.Decimal) (bool, error) {
	return r.update(id, func(a *models.Account) bool {
		if a.BucketBalance(bucket).LessThan(amount) {
			return false
		}
		addToBucket(a, bucket, amount.Neg())
		a.Balance = a.Balance.Add(amount)
		return true
	})
}

func (r *memAccountRepo) UpdateBridgeBalances(ctx context.Context, id uint, b models.BridgeBalances) error {
	_, err := r.update(id, func(a *models.Account) bool {
		a.GameWinCommissionBalance = b.GameWin
		a.GameLossCommissionBalance = b.GameLoss
		a.DepositCommissionBalance = b.Deposit
		a.ReferCommissionBalance = b.Refer
		return true
	})
	return err
}

func (r *memAccountRepo) UpdateCommissionRates(ctx context.Context, id uint, rates models.CommissionRates) error {
	_, err := r.update(id, func(a *models.Account) bool {
		a.GameWinCommission = rates.GameWin
		a.GameLossCommission = rates.GameLoss
		a.DepositCommission = rates.Deposit
		a.ReferCommission = rates.Refer
		return true
	})
	return err
}

// deposits

type memDepositRepo struct{ db *memDB }

func (r *memDepositRepo) ByID(ctx context.Context, id uint) (*models.DepositTransaction, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	d, ok := r.db.deposits[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (r *memDepositRepo) ByFilter(ctx context.Context, filter models.DepositTransactionFilter, orderBy string, limit, offset int) ([]*models.DepositTransaction, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*models.DepositTransaction
	for _, id := range sortedKeys(r.db.deposits) {
		d := r.db.deposits[id]
		if filter.AccountID != nil && d.AccountID != *filter.AccountID {
			continue
		}
		if filter.Status != nil && d.Status != *filter.Status {
			continue
		}
		if filter.Source != nil && d.Source != *filter.Source {
			continue
		}
		out = append(out, &d)
	}
	return out, nil
}

func (r *memDepositRepo) externalTaken(id uint, ext *string) bool {
	if ext == nil {
		return false
	}
	for otherID, other := range r.db.deposits {
		if otherID != id && other.ExternalTrxID != nil && *other.ExternalTrxID == *ext {
			return true
		}
	}
	return false
}

func (r *memDepositRepo) Save(ctx context.Context, d *models.DepositTransaction) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.externalTaken(d.ID, d.ExternalTrxID) {
		return gorm.ErrDuplicatedKey
	}
	if d.ID == 0 {
		d.ID = r.db.id()
		if d.UUID == uuid.Nil {
			d.UUID = uuid.New()
		}
		if d.CreatedAt.IsZero() {
			d.CreatedAt = utils.UTCNow()
		}
	}
	r.db.deposits[d.ID] = *d
	return nil
}

func (r *memDepositRepo) SaveBatch(ctx context.Context, ds []*models.DepositTransaction) error {
	for _, d := range ds {
		if err := r.Save(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

func (r *memDepositRepo) Count(ctx context.Context, filter models.DepositTransactionFilter) (int64, error) {
	rows, err := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(rows)), err
}

func (r *memDepositRepo) ByUUID(ctx context.Context, id uuid.UUID) (*models.DepositTransaction, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, d := range r.db.deposits {
		if d.UUID == id {
			return &d, nil
		}
	}
	return nil, nil
}

func (r *memDepositRepo) ByExternalTrxID(ctx context.Context, trxID string) (*models.DepositTransaction, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, d := range r.db.deposits {
		if d.ExternalTrxID != nil && *d.ExternalTrxID == trxID {
			return &d, nil
		}
	}
	return nil, nil
}

func (r *memDepositRepo) CompleteIfPending(ctx context.Context, id uint, externalTrxID *string, completedAt time.Time) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	d, ok := r.db.deposits[id]
	if !ok || d.Status != models.DepositStatusPending {
		return false, nil
	}
	if r.externalTaken(id, externalTrxID) {
		return false, gorm.ErrDuplicatedKey
	}
	d.Status = models.DepositStatusCompleted
	d.CompletedAt = &completedAt
	if externalTrxID != nil {
		d.ExternalTrxID = externalTrxID
	}
	r.db.deposits[id] = d
	return true, nil
}

func (r *memDepositRepo) FailIfPending(ctx context.Context, id uint, status models.DepositStatus, reason string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	d, ok := r.db.deposits[id]
	if !ok || d.Status != models.DepositStatusPending {
		return false, nil
	}
	d.Status = status
	d.Reason = &reason
	r.db.deposits[id] = d
	return true, nil
}

// payment messages

type memPaymentRepo struct{ db *memDB }

func (r *memPaymentRepo) ByID(ctx context.Context, id uint) (*models.PaymentMessage, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m, ok := r.db.payments[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (r *memPaymentRepo) ByFilter(ctx context.Context, filter models.PaymentMessageFilter, orderBy string, limit, offset int) ([]*models.PaymentMessage, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*models.PaymentMessage
	for _, id := range sortedKeys(r.db.payments) {
		m := r.db.payments[id]
		if filter.TrxID != nil && m.TrxID != *filter.TrxID {
			continue
		}
		if filter.Title != nil && m.Title != *filter.Title {
			continue
		}
		if filter.DeviceID != nil && m.DeviceID != *filter.DeviceID {
			continue
		}
		if filter.CreatedAfter != nil && m.CreatedAt.Before(*filter.CreatedAfter) {
			continue
		}
		if filter.CreatedBefore != nil && !m.CreatedAt.Before(*filter.CreatedBefore) {
			continue
		}
		out = append(out, &m)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memPaymentRepo) Save(ctx context.Context, m *models.PaymentMessage) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id, other := range r.db.payments {
		if id != m.ID && other.TrxID == m.TrxID {
			return gorm.ErrDuplicatedKey
		}
	}
	if m.ID == 0 {
		m.ID = r.db.id()
		if m.CreatedAt.IsZero() {
			m.CreatedAt = utils.UTCNow()
		}
	}
	r.db.payments[m.ID] = *m
	return nil
}

func (r *memPaymentRepo) SaveBatch(ctx context.Context, ms []*models.PaymentMessage) error {
	for _, m := range ms {
		if err := r.Save(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (r *memPaymentRepo) Count(ctx context.Context, filter models.PaymentMessageFilter) (int64, error) {
	rows, err := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(rows)), err
}

func (r *memPaymentRepo) FindMatch(ctx context.Context, trxID string, createdFrom time.Time) ([]*models.PaymentMessage, error) {
	return r.ByFilter(ctx, models.PaymentMessageFilter{TrxID: &trxID, CreatedAfter: &createdFrom}, "", 0, 0)
}

// opay

type memOpayRepo struct{ db *memDB }

func (r *memOpayRepo) ByID(ctx context.Context, id uint) (*models.OpayVerifiedTransaction, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	o, ok := r.db.opay[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (r *memOpayRepo) Save(ctx context.Context, o *models.OpayVerifiedTransaction) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if o.TrxID != nil {
		for id, other := range r.db.opay {
			if id != o.ID && other.TrxID != nil && *other.TrxID == *o.TrxID {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	if o.ID == 0 {
		o.ID = r.db.id()
		o.CreatedAt = utils.UTCNow()
	}
	r.db.opay[o.ID] = *o
	return nil
}

func (r *memOpayRepo) ByTrxID(ctx context.Context, trxID string) (*models.OpayVerifiedTransaction, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, o := range r.db.opay {
		if o.TrxID != nil && *o.TrxID == trxID {
			return &o, nil
		}
	}
	return nil, nil
}

func (r *memOpayRepo) ByTokenAndAddress(ctx context.Context, token, address string) (*models.OpayVerifiedTransaction, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, o := range r.db.opay {
		if o.Token == token && o.UserIdentifyAddress == address {
			return &o, nil
		}
	}
	return nil, nil
}

func (r *memOpayRepo) Update(ctx context.Context, o *models.OpayVerifiedTransaction) error {
	return r.Save(ctx, o)
}

func (r *memOpayRepo) MarkNotified(ctx context.Context, id uint, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	o, ok := r.db.opay[id]
	if !ok {
		return nil
	}
	o.NotifiedAt = &at
	r.db.opay[id] = o
	return nil
}

// turnovers

type memTurnoverRepo struct{ db *memDB }

func (r *memTurnoverRepo) ByID(ctx context.Context, id uint) (*models.DepositTurnover, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.turnovers[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *memTurnoverRepo) ByFilter(ctx context.Context, filter models.DepositTurnoverFilter, orderBy string, limit, offset int) ([]*models.DepositTurnover, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*models.DepositTurnover
	for _, id := range sortedKeys(r.db.turnovers) {
		t := r.db.turnovers[id]
		if filter.AccountID != nil && t.AccountID != *filter.AccountID {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		out = append(out, &t)
	}
	return out, nil
}

func (r *memTurnoverRepo) Save(ctx context.Context, t *models.DepositTurnover) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id, other := range r.db.turnovers {
		if id != t.ID && other.DepositTransactionID == t.DepositTransactionID {
			return gorm.ErrDuplicatedKey
		}
	}
	if t.ID == 0 {
		t.ID = r.db.id()
		t.CreatedAt = utils.UTCNow()
	}
	r.db.turnovers[t.ID] = *t
	return nil
}

func (r *memTurnoverRepo) SaveBatch(ctx context.Context, ts []*models.DepositTurnover) error {
	for _, t := range ts {
		if err := r.Save(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (r *memTurnoverRepo) Count(ctx context.Context, filter models.DepositTurnoverFilter) (int64, error) {
	rows, err := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(rows)), err
}

// OldestActiveForUpdate relies on ids growing with creation time
func (r *memTurnoverRepo) OldestActiveForUpdate(ctx context.Context, accountID uint) (*models.DepositTurnover, error) {
	active := models.TurnoverStatusActive
	rows, err := r.ByFilter(ctx, models.DepositTurnoverFilter{AccountID: &accountID, Status: &active}, "", 0, 0)
	if err != nil {
		return nil, err
	}
	for _, t := range rows {
		if t.RemainingTurnover.IsPositive() {
			return t, nil
		}
	}
	return nil, nil
}

func (r *memTurnoverRepo) Update(ctx context.Context, t *models.DepositTurnover) error {
	return r.Save(ctx, t)
}

func (r *memTurnoverRepo) ListByAccount(ctx context.Context, accountID uint) ([]*models.DepositTurnover, error) {
	return r.ByFilter(ctx, models.DepositTurnoverFilter{AccountID: &accountID}, "", 0, 0)
}

// game and refund history

type memGameRepo struct{ db *memDB }

func (r *memGameRepo) ByID(ctx context.Context, id uint) (*models.GameHistory, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	g, ok := r.db.games[id]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func (r *memGameRepo) Save(ctx context.Context, g *models.GameHistory) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id, other := range r.db.games {
		if id != g.ID && other.TransactionID == g.TransactionID && other.BetType == g.BetType {
			return gorm.ErrDuplicatedKey
		}
	}
	if g.ID == 0 {
		g.ID = r.db.id()
		g.CreatedAt = utils.UTCNow()
	}
	r.db.games[g.ID] = *g
	return nil
}

func (r *memGameRepo) ByTransaction(ctx context.Context, transactionID string, betType models.BetType) (*models.GameHistory, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, g := range r.db.games {
		if g.TransactionID == transactionID && g.BetType == betType {
			return &g, nil
		}
	}
	return nil, nil
}

func (r *memGameRepo) UpdateStatus(ctx context.Context, transactionID string, status models.GameStatus) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id, g := range r.db.games {
		if g.TransactionID == transactionID {
			g.Status = status
			r.db.games[id] = g
		}
	}
	return nil
}

type memRefundRepo struct{ db *memDB }

func (r *memRefundRepo) ByID(ctx context.Context, id uint) (*models.RefundHistory, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	h, ok := r.db.refunds[id]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

func (r *memRefundRepo) Save(ctx context.Context, h *models.RefundHistory) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id, other := range r.db.refunds {
		if id != h.ID && other.TransactionID == h.TransactionID {
			return gorm.ErrDuplicatedKey
		}
	}
	if h.ID == 0 {
		h.ID = r.db.id()
		h.CreatedAt = utils.UTCNow()
	}
	r.db.refunds[h.ID] = *h
	return nil
}

func (r *memRefundRepo) ByTransactionID(ctx context.Context, transactionID string) (*models.RefundHistory, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, h := range r.db.refunds {
		if h.TransactionID == transactionID {
			return &h, nil
		}
	}
	return nil, nil
}

// settings, bonuses, admins, audit

type memSettingsRepo struct{ db *memDB }

func (r *memSettingsRepo) Get(ctx context.Context) (*models.BalanceTransferSettings, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.settings == nil {
		return nil, nil
	}
	cp := *r.db.settings
	return &cp, nil
}

func (r *memSettingsRepo) Upsert(ctx context.Context, s *models.BalanceTransferSettings) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *s
	cp.UpdatedAt = utils.UTCNow()
	r.db.settings = &cp
	return nil
}

type memBonusRepo struct{ db *memDB }

func (r *memBonusRepo) ByID(ctx context.Context, id uint) (*models.DepositBonus, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	b, ok := r.db.bonuses[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r *memBonusRepo) Save(ctx context.Context, b *models.DepositBonus) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if b.ID == 0 {
		b.ID = r.db.id()
		b.CreatedAt = utils.UTCNow()
	}
	if b.IsActive == nil {
		b.IsActive = utils.ToPtr(true)
	}
	r.db.bonuses[b.ID] = *b
	return nil
}

func (r *memBonusRepo) ListActive(ctx context.Context) ([]*models.DepositBonus, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*models.DepositBonus
	for _, id := range sortedKeys(r.db.bonuses) {
		b := r.db.bonuses[id]
		if utils.IsTrue(b.IsActive) {
			out = append(out, &b)
		}
	}
	return out, nil
}

type memAdminRepo struct{ db *memDB }

func (r *memAdminRepo) ByID(ctx context.Context, id uint) (*models.Admin, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.db.admins[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *memAdminRepo) ByFilter(ctx context.Context, filter models.AdminFilter, orderBy string, limit, offset int) ([]*models.Admin, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*models.Admin
	for _, id := range sortedKeys(r.db.admins) {
		a := r.db.admins[id]
		if filter.Username != nil && a.Username != *filter.Username {
			continue
		}
		out = append(out, &a)
	}
	return out, nil
}

func (r *memAdminRepo) Save(ctx context.Context, a *models.Admin) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if a.ID == 0 {
		a.ID = r.db.id()
		a.UUID = uuid.New()
		a.CreatedAt = utils.UTCNow()
	}
	r.db.admins[a.ID] = *a
	return nil
}

func (r *memAdminRepo) SaveBatch(ctx context.Context, as []*models.Admin) error {
	for _, a := range as {
		if err := r.Save(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func (r *memAdminRepo) Count(ctx context.Context, filter models.AdminFilter) (int64, error) {
	rows, err := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(rows)), err
}

func (r *memAdminRepo) ByUsername(ctx context.Context, username string) (*models.Admin, error) {
	rows, err := r.ByFilter(ctx, models.AdminFilter{Username: &username}, "", 1, 0)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (r *memAdminRepo) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.db.admins[id]
	if ok {
		a.LastLoginAt = &at
		r.db.admins[id] = a
	}
	return nil
}

type memAuditRepo struct{ db *memDB }

func (r *memAuditRepo) ByID(ctx context.Context, id uint) (*models.AuditLog, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, a := range r.db.audits {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, nil
}

func (r *memAuditRepo) ByFilter(ctx context.Context, filter models.AuditLogFilter, orderBy string, limit, offset int) ([]*models.AuditLog, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*models.AuditLog
	for _, a := range r.db.audits {
		if filter.Action != nil && a.Action != *filter.Action {
			continue
		}
		out = append(out, &a)
	}
	return out, nil
}

func (r *memAuditRepo) Save(ctx context.Context, a *models.AuditLog) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a.ID = r.db.id()
	r.db.audits = append(r.db.audits, *a)
	return nil
}

func (r *memAuditRepo) SaveBatch(ctx context.Context, as []*models.AuditLog) error {
	for _, a := range as {
		if err := r.Save(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func (r *memAuditRepo) Count(ctx context.Context, filter models.AuditLogFilter) (int64, error) {
	rows, err := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(rows)), err
}

// ledger wires every in-memory repository around one memDB
type ledger struct {
	db        *memDB
	tx        *memTxManager
	accounts  *memAccountRepo
	deposits  *memDepositRepo
	payments  *memPaymentRepo
	opay      *memOpayRepo
	turnovers *memTurnoverRepo
	games     *memGameRepo
	refunds   *memRefundRepo
	settings  *memSettingsRepo
	bonuses   *memBonusRepo
	admins    *memAdminRepo
	audits    *memAuditRepo
	logger    *zap.Logger
}

func newLedger() *ledger {
	db := newMemDB()
	return &ledger{
		db:        db,
		tx:        &memTxManager{db: db},
		accounts:  &memAccountRepo{db: db},
		deposits:  &memDepositRepo{db: db},
		payments:  &memPaymentRepo{db: db},
		opay:      &memOpayRepo{db: db},
		turnovers: &memTurnoverRepo{db: db},
		games:     &memGameRepo{db: db},
		refunds:   &memRefundRepo{db: db},
		settings:  &memSettingsRepo{db: db},
		bonuses:   &memBonusRepo{db: db},
		admins:    &memAdminRepo{db: db},
		audits:    &memAuditRepo{db: db},
		logger:    zap.NewNop(),
	}
}

func (l *ledger) cascade() CommissionCascade {
	return NewCommissionCascade(l.accounts, l.logger)
}

func (l *ledger) turnover() TurnoverEngine {
	return NewTurnoverEngine(l.turnovers, l.tx, l.logger)
}

func (l *ledger) account(t *testing.T, id uint) *models.Account {
	t.Helper()
	a, err := l.accounts.ByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, a)
	return a
}

func (l *ledger) auditActions() []string {
	l.db.mu.Lock()
	defer l.db.mu.Unlock()
	out := make([]string, 0, len(l.db.audits))
	for _, a := range l.db.audits {
		out = append(out, a.Action)
	}
	return out
}

// accountOpt mutates a fixture account before it is stored
type accountOpt func(a *models.Account)

func withReferrer(id uint) accountOpt {
	return func(a *models.Account) { a.ReferredByID = &id }
}

func withBalance(v string) accountOpt {
	return func(a *models.Account) { a.Balance = decimal.RequireFromString(v) }
}

func withRates(gameWin, gameLoss, deposit, refer string) accountOpt {
	return func(a *models.Account) {
		a.GameWinCommission = decimal.RequireFromString(gameWin)
		a.GameLossCommission = decimal.RequireFromString(gameLoss)
		a.DepositCommission = decimal.RequireFromString(deposit)
		a.ReferCommission = decimal.RequireFromString(refer)
	}
}

func withBuckets(commission, gameWin, gameLoss, deposit, refer string) accountOpt {
	return func(a *models.Account) {
		a.CommissionBalance = decimal.RequireFromString(commission)
		a.GameWinCommissionBalance = decimal.RequireFromString(gameWin)
		a.GameLossCommissionBalance = decimal.RequireFromString(gameLoss)
		a.DepositCommissionBalance = decimal.RequireFromString(deposit)
		a.ReferCommissionBalance = decimal.RequireFromString(refer)
	}
}

func (l *ledger) createAccount(t *testing.T, username string, role models.AccountRole, opts ...accountOpt) *models.Account {
	t.Helper()
	a := &models.Account{Username: username, PasswordHash: "x", Role: role}
	for _, opt := range opts {
		opt(a)
	}
	require.NoError(t, l.accounts.Save(context.Background(), a))
	return a
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertMoney(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s %v", want, got.String(), msgAndArgs)
}
