package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/amirphl/betting-settlement/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
)

// TestPassword is the plain-text password of every fixture account and admin
const TestPassword = "TestPass123!"

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

func randomSuffix() string {
	return fmt.Sprintf("%06d", rand.Intn(1000000))
}

// CreateTestAccount creates an account of role under referrer (nil for a root) with zero balances
func (tf *TestFixtures) CreateTestAccount(role models.AccountRole, referrer *models.Account) (*models.Account, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &models.Account{
		Username:     fmt.Sprintf("%s_%s", role, randomSuffix()),
		PasswordHash: string(hashedPassword),
		Role:         role,
	}
	if referrer != nil {
		account.ReferredByID = &referrer.ID
	}

	if err := tf.DB.DB.Create(account).Error; err != nil {
		return nil, fmt.Errorf("failed to create test account: %w", err)
	}
	return account, nil
}

// CreateTestAffiliate creates an affiliate with the given percentage rates
func (tf *TestFixtures) CreateTestAffiliate(role models.AccountRole, referrer *models.Account, gameWin, gameLoss, deposit string) (*models.Account, error) {
	account, err := tf.CreateTestAccount(role, referrer)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{
		"game_win_commission":  decimal.RequireFromString(gameWin),
		"game_loss_commission": decimal.RequireFromString(gameLoss),
		"deposit_commission":   decimal.RequireFromString(deposit),
	}
	if err := tf.DB.DB.Model(account).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to set affiliate rates: %w", err)
	}

	var reloaded models.Account
	if err := tf.DB.DB.First(&reloaded, account.ID).Error; err != nil {
		return nil, err
	}
	return &reloaded, nil
}

// CreateTestAdmin creates an active admin
func (tf *TestFixtures) CreateTestAdmin() (*models.Admin, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &models.Admin{
		UUID:         uuid.New(),
		Username:     "admin_" + randomSuffix(),
		PasswordHash: string(hashedPassword),
	}
	if err := tf.DB.DB.Create(admin).Error; err != nil {
		return nil, fmt.Errorf("failed to create test admin: %w", err)
	}
	return admin, nil
}

// CreatePendingDeposit creates a pending manual deposit claiming trxID
func (tf *TestFixtures) CreatePendingDeposit(accountID uint, amount, trxID string) (*models.DepositTransaction, error) {
	deposit := &models.DepositTransaction{
		AccountID:     accountID,
		Amount:        decimal.RequireFromString(amount),
		Status:        models.DepositStatusPending,
		Source:        models.DepositSourceManual,
		PaymentMethod: models.PaymentTitleBkash,
		UserInputs: datatypes.NewJSONSlice([]models.UserInput{
			{Name: "trxID", Value: trxID, Label: "Transaction ID", Type: "text"},
		}),
		PromotionBonus: datatypes.NewJSONType(models.PromotionBonus{
			TurnoverMultiplier: decimal.NewFromInt(1),
		}),
	}
	if err := tf.DB.DB.Create(deposit).Error; err != nil {
		return nil, fmt.Errorf("failed to create pending deposit: %w", err)
	}
	return deposit, nil
}

// CreatePaymentMessage stores a verified payment message created at createdAt
func (tf *TestFixtures) CreatePaymentMessage(trxID, amount string, createdAt time.Time) (*models.PaymentMessage, error) {
	msg := &models.PaymentMessage{
		Amount:    decimal.RequireFromString(amount),
		From:      "01712345678",
		TrxID:     trxID,
		Date:      createdAt.Format("02/01/2006"),
		Time:      createdAt.Format("15:04"),
		DeviceID:  "device-1",
		Title:     models.PaymentTitleBkash,
		CreatedAt: createdAt,
	}
	if err := tf.DB.DB.Create(msg).Error; err != nil {
		return nil, fmt.Errorf("failed to create payment message: %w", err)
	}
	return msg, nil
}
