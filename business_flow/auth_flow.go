package businessflow

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/betting-settlement/app/dto"
	"github.com/amirphl/betting-settlement/app/services"
	"github.com/amirphl/betting-settlement/models"
	"github.com/amirphl/betting-settlement/repository"
	"github.com/amirphl/betting-settlement/utils"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthFlow authenticates accounts and admins
type AuthFlow interface {
	Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error)
	AdminLogin(ctx context.Context, req *dto.AdminLoginRequest, metadata *ClientMetadata) (*dto.AdminLoginResponse, error)
	RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.SessionDTO, error)
}

type AuthFlowImpl struct {
	accountRepo  repository.AccountRepository
	adminRepo    repository.AdminRepository
	auditRepo    repository.AuditLogRepository
	tokenService services.TokenService
	accessTTL    time.Duration
	logger       *zap.Logger
}

func NewAuthFlow(
	accountRepo repository.AccountRepository,
	adminRepo repository.AdminRepository,
	auditRepo repository.AuditLogRepository,
	tokenService services.TokenService,
	accessTTL time.Duration,
	logger *zap.Logger,
) AuthFlow {
	if accessTTL <= 0 {
		accessTTL = utils.AccessTokenTTL
	}
	return &AuthFlowImpl{
		accountRepo:  accountRepo,
		adminRepo:    adminRepo,
		auditRepo:    auditRepo,
		tokenService: tokenService,
		accessTTL:    accessTTL,
		logger:       logger,
	}
}

func (f *AuthFlowImpl) Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error) {
	account, err := f.accountRepo.ByUsername(ctx, req.Username)
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}

	if err := f.checkAccount(account, req.Password); err != nil {
		f.auditLogin(ctx, models.AuditActorAccount, accountIDPtr(account), req.Username, err, metadata)
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}

	access, refresh, err := f.tokenService.GenerateTokens(account.ID, string(account.Role))
	if err != nil {
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to generate tokens", err)
	}

	f.auditLogin(ctx, models.AuditActorAccount, &account.ID, req.Username, nil, metadata)
	return &dto.LoginResponse{
		Account: ToAccountDTO(account),
		Session: f.session(access, refresh),
	}, nil
}

func (f *AuthFlowImpl) checkAccount(account *models.Account, password string) error {
	if account == nil {
		return ErrAccountNotFound
	}
	if !utils.IsTrue(account.IsActive) {
		return ErrAccountInactive
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return ErrIncorrectPassword
	}
	return nil
}

func (f *AuthFlowImpl) AdminLogin(ctx context.Context, req *dto.AdminLoginRequest, metadata *ClientMetadata) (*dto.AdminLoginResponse, error) {
	admin, err := f.adminRepo.ByUsername(ctx, req.Username)
	if err != nil {
		return nil, NewBusinessError("ADMIN_LOGIN_FAILED", "Admin login failed", err)
	}

	var loginErr error
	switch {
	case admin == nil:
		loginErr = ErrAdminNotFound
	case !utils.IsTrue(admin.IsActive):
		loginErr = ErrAdminInactive
	case bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)) != nil:
		loginErr = ErrIncorrectPassword
	}
	if loginErr != nil {
		var adminID *uint
		if admin != nil {
			adminID = &admin.ID
		}
		f.auditLogin(ctx, models.AuditActorAdmin, adminID, req.Username, loginErr, metadata)
		return nil, NewBusinessError("ADMIN_LOGIN_FAILED", "Admin login failed", loginErr)
	}

	access, refresh, err := f.tokenService.GenerateAdminTokens(admin.ID)
	if err != nil {
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to generate tokens", err)
	}

	now := utils.UTCNow()
	if err := f.adminRepo.TouchLastLogin(ctx, admin.ID, now); err != nil {
		f.logger.Warn("failed to update admin last login", zap.Uint("admin_id", admin.ID), zap.Error(err))
	}
	admin.LastLoginAt = &now

	f.auditLogin(ctx, models.AuditActorAdmin, &admin.ID, req.Username, nil, metadata)
	return &dto.AdminLoginResponse{
		Admin:   ToAdminDTO(admin),
		Session: f.session(access, refresh),
	}, nil
}

// RefreshToken exchanges a refresh token for a new pair; the old one cannot be used again
func (f *AuthFlowImpl) RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.SessionDTO, error) {
	access, refresh, err := f.tokenService.RefreshToken(req.RefreshToken)
	if err != nil {
		return nil, NewBusinessError("INVALID_REFRESH_TOKEN", "Invalid refresh token", fmt.Errorf("%w: %v", ErrInvalidRefreshToken, err))
	}
	s := f.session(access, refresh)
	return &s, nil
}

func (f *AuthFlowImpl) session(access, refresh string) dto.SessionDTO {
	return dto.SessionDTO{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int(f.accessTTL.Seconds()),
		CreatedAt:    formatTime(utils.UTCNow()),
	}
}

func (f *AuthFlowImpl) auditLogin(ctx context.Context, actorType string, actorID *uint, username string, loginErr error, metadata *ClientMetadata) {
	e := auditEntry{
		actorType: actorType,
		actorID:   actorID,
		action:    models.AuditActionLoginSuccess,
		resource:  actorType,
		success:   loginErr == nil,
		desc:      fmt.Sprintf("Login %s", username),
	}
	if loginErr != nil {
		e.action = models.AuditActionLoginFailed
		e.errMsg = loginErr.Error()
	}
	recordAudit(ctx, f.auditRepo, f.logger, metadata, e)
}

func accountIDPtr(a *models.Account) *uint {
	if a == nil {
		return nil
	}
	return &a.ID
}
