package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/amirphl/betting-settlement/app/dto"
	"github.com/amirphl/betting-settlement/app/services"
	"github.com/amirphl/betting-settlement/models"
	"github.com/amirphl/betting-settlement/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "SecurePass123!"

func newTestAuthFlow(t *testing.T, l *ledger) (AuthFlow, services.TokenService) {
	t.Helper()
	tokens, err := services.NewTokenService(time.Hour, 24*time.Hour, "betting-settlement", "betting-settlement-api", false, "", "", "test-secret")
	require.NoError(t, err)
	return NewAuthFlow(l.accounts, l.admins, l.audits, tokens, time.Hour, l.logger), tokens
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthFlowLogin(t *testing.T) {
	ctx := context.Background()
	l := newLedger()
	flow, tokens := newTestAuthFlow(t, l)

	player := &models.Account{Username: "player01", PasswordHash: hashPassword(t, testPassword), Role: models.AccountRoleUser}
	require.NoError(t, l.accounts.Save(ctx, player))
	inactive := &models.Account{Username: "sleeper", PasswordHash: hashPassword(t, testPassword), IsActive: utils.ToPtr(false)}
	require.NoError(t, l.accounts.Save(ctx, inactive))

	t.Run("Success", func(t *testing.T) {
		resp, err := flow.Login(ctx, &dto.LoginRequest{Username: "player01", Password: testPassword}, nil)
		require.NoError(t, err)
		assert.Equal(t, "Bearer", resp.Session.TokenType)
		assert.Equal(t, 3600, resp.Session.ExpiresIn)
		assert.Equal(t, player.ID, resp.Account.ID)

		claims, err := tokens.ValidateToken(resp.Session.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, player.ID, claims.AccountID)
		assert.Equal(t, string(models.AccountRoleUser), claims.Role)
		assert.Equal(t, "access", claims.TokenType)
	})

	t.Run("Failures", func(t *testing.T) {
		_, err := flow.Login(ctx, &dto.LoginRequest{Username: "player01", Password: "wrong-password"}, nil)
		assert.True(t, IsIncorrectPassword(err))

		_, err = flow.Login(ctx, &dto.LoginRequest{Username: "ghost", Password: testPassword}, nil)
		assert.True(t, IsAccountNotFound(err))

		_, err = flow.Login(ctx, &dto.LoginRequest{Username: "sleeper", Password: testPassword}, nil)
		assert.True(t, IsAccountInactive(err))

		assert.Contains(t, l.auditActions(), models.AuditActionLoginFailed)
	})

	t.Run("RefreshIsSingleUse", func(t *testing.T) {
		resp, err := flow.Login(ctx, &dto.LoginRequest{Username: "player01", Password: testPassword}, nil)
		require.NoError(t, err)

		session, err := flow.RefreshToken(ctx, &dto.RefreshTokenRequest{RefreshToken: resp.Session.RefreshToken})
		require.NoError(t, err)
		assert.NotEmpty(t, session.AccessToken)
		assert.NotEqual(t, resp.Session.RefreshToken, session.RefreshToken)

		_, err = flow.RefreshToken(ctx, &dto.RefreshTokenRequest{RefreshToken: resp.Session.RefreshToken})
		assert.True(t, IsInvalidRefreshToken(err))
	})

	t.Run("AccessTokenCannotRefresh", func(t *testing.T) {
		resp, err := flow.Login(ctx, &dto.LoginRequest{Username: "player01", Password: testPassword}, nil)
		require.NoError(t, err)

		_, err = flow.RefreshToken(ctx, &dto.RefreshTokenRequest{RefreshToken: resp.Session.AccessToken})
		assert.True(t, IsInvalidRefreshToken(err))
	})
}

func TestAuthFlowAdminLogin(t *testing.T) {
	ctx := context.Background()
	l := newLedger()
	flow, tokens := newTestAuthFlow(t, l)

	admin := &models.Admin{Username: "admin", PasswordHash: hashPassword(t, testPassword), IsActive: utils.ToPtr(true)}
	require.NoError(t, l.admins.Save(ctx, admin))
	require.NoError(t, l.admins.Save(ctx, &models.Admin{Username: "retired", PasswordHash: hashPassword(t, testPassword), IsActive: utils.ToPtr(false)}))

	resp, err := flow.AdminLogin(ctx, &dto.AdminLoginRequest{Username: "admin", Password: testPassword}, nil)
	require.NoError(t, err)
	claims, err := tokens.ValidateAdminToken(resp.Session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, claims.AdminID)

	stored, err := l.admins.ByID(ctx, admin.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLoginAt)

	_, err = flow.AdminLogin(ctx, &dto.AdminLoginRequest{Username: "admin", Password: "nope-nope"}, nil)
	assert.True(t, IsIncorrectPassword(err))
	_, err = flow.AdminLogin(ctx, &dto.AdminLoginRequest{Username: "retired", Password: testPassword}, nil)
	assert.True(t, IsAdminInactive(err))
	_, err = flow.AdminLogin(ctx, &dto.AdminLoginRequest{Username: "nobody", Password: testPassword}, nil)
	assert.True(t, IsAdminNotFound(err))

	// an account token is not an admin token
	_, err = tokens.ValidateAdminToken(mustAccountToken(t, tokens))
	assert.Error(t, err)
}

func mustAccountToken(t *testing.T, tokens services.TokenService) string {
	t.Helper()
	access, _, err := tokens.GenerateTokens(1, string(models.AccountRoleUser))
	require.NoError(t, err)
	return access
}
