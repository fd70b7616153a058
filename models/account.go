// Package models contains the ledger entities persisted by the settlement service
package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AccountRole represents the position of an account in the referral tree
type AccountRole string

const (
	AccountRoleUser            AccountRole = "user"
	AccountRoleMasterAffiliate AccountRole = "master-affiliate"
	AccountRoleSuperAffiliate  AccountRole = "super-affiliate"
)

// Valid checks if the role is valid.
func (r AccountRole) Valid() bool {
	switch r {
	case AccountRoleUser, AccountRoleMasterAffiliate, AccountRoleSuperAffiliate:
		return true
	default:
		return false
	}
}

// IsAffiliate reports whether the role earns commissions
func (r AccountRole) IsAffiliate() bool {
	return r == AccountRoleMasterAffiliate || r == AccountRoleSuperAffiliate
}

// Scan implements the sql.Scanner interface for AccountRole.
func (r *AccountRole) Scan(value any) error {
	if value == nil {
		*r = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*r = AccountRole(v)
	case []byte:
		*r = AccountRole(string(v))
	default:
		return fmt.Errorf("cannot scan %T into AccountRole", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for AccountRole.
func (r AccountRole) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid AccountRole: %s", r)
	}
	return string(r), nil
}

// CommissionBucket names one of the commission balances held on an account
type CommissionBucket string

const (
	BucketCommission CommissionBucket = "commissionBalance"
	BucketGameWin    CommissionBucket = "gameWinCommissionBalance"
	BucketGameLoss   CommissionBucket = "gameLossCommissionBalance"
	BucketDeposit    CommissionBucket = "depositCommissionBalance"
	BucketRefer      CommissionBucket = "referCommissionBalance"
)

// TransferBuckets are the buckets a holder may move into the main balance
var TransferBuckets = []CommissionBucket{BucketCommission, BucketGameLoss, BucketDeposit, BucketRefer}

// Column returns the accounts column backing the bucket; empty for unknown buckets
func (b CommissionBucket) Column() string {
	switch b {
	case BucketCommission:
		return "commission_balance"
	case BucketGameWin:
		return "game_win_commission_balance"
	case BucketGameLoss:
		return "game_loss_commission_balance"
	case BucketDeposit:
		return "deposit_commission_balance"
	case BucketRefer:
		return "refer_commission_balance"
	default:
		return ""
	}
}

// IsTransferable reports whether the bucket can be moved into the main balance
func (b CommissionBucket) IsTransferable() bool {
	for _, t := range TransferBuckets {
		if t == b {
			return true
		}
	}
	return false
}

// Account is a user or affiliate node in the ledger
type Account struct {
	ID           uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string      `gorm:"type:varchar(100);uniqueIndex;not null" json:"username"`
	PasswordHash string      `gorm:"type:varchar(255);not null" json:"-"`
	Role         AccountRole `gorm:"type:varchar(20);not null;default:'user';index" json:"role"`
	ReferredByID *uint       `gorm:"index" json:"referred_by_id,omitempty"`

	Balance decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"balance"`
	Deposit decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"deposit"`

	CommissionBalance         decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"commission_balance"`
	GameWinCommissionBalance  decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"game_win_commission_balance"`
	GameLossCommissionBalance decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"game_loss_commission_balance"`
	DepositCommissionBalance  decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"deposit_commission_balance"`
	ReferCommissionBalance    decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"refer_commission_balance"`

	// Percentages, except ReferCommission which is a flat amount per referral
	GameWinCommission  decimal.Decimal `gorm:"type:numeric(7,4);not null;default:0" json:"game_win_commission"`
	GameLossCommission decimal.Decimal `gorm:"type:numeric(7,4);not null;default:0" json:"game_loss_commission"`
	DepositCommission  decimal.Decimal `gorm:"type:numeric(7,4);not null;default:0" json:"deposit_commission"`
	ReferCommission    decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"refer_commission"`

	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	ReferredBy *Account `gorm:"foreignKey:ReferredByID;references:ID;constraint:OnDelete:SET NULL" json:"-"`
}

func (Account) TableName() string { return "accounts" }

// BucketBalance returns the current value of a commission bucket
func (a *Account) BucketBalance(b CommissionBucket) decimal.Decimal {
	switch b {
	case BucketCommission:
		return a.CommissionBalance
	case BucketGameWin:
		return a.GameWinCommissionBalance
	case BucketGameLoss:
		return a.GameLossCommissionBalance
	case BucketDeposit:
		return a.DepositCommissionBalance
	case BucketRefer:
		return a.ReferCommissionBalance
	default:
		return decimal.Zero
	}
}

// CommissionRates is the admin-configured rate set of an affiliate
type CommissionRates struct {
	GameWin  decimal.Decimal `json:"game_win_commission"`
	GameLoss decimal.Decimal `json:"game_loss_commission"`
	Deposit  decimal.Decimal `json:"deposit_commission"`
	Refer    decimal.Decimal `json:"refer_commission"`
}

// BridgeBalances holds the four buckets touched by the bridge operation
type BridgeBalances struct {
	GameWin  decimal.Decimal
	GameLoss decimal.Decimal
	Deposit  decimal.Decimal
	Refer    decimal.Decimal
}

// BeforeCreate applies the active flag and role defaults
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.IsActive == nil {
		active := true
		a.IsActive = &active
	}
	if a.Role == "" {
		a.Role = AccountRoleUser
	}
	return nil
}

// AccountFilter represents filter criteria for account queries
type AccountFilter struct {
	ID           *uint
	Username     *string
	Role         *AccountRole
	ReferredByID *uint
	IsActive     *bool
}
