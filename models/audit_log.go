package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog records a person-initiated financial mutation
type AuditLog struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	ActorType    string         `gorm:"size:20;not null;index:idx_audit_actor" json:"actor_type"`
	ActorID      *uint          `gorm:"index:idx_audit_actor" json:"actor_id,omitempty"`
	Action       string         `gorm:"size:64;not null;index:idx_audit_action" json:"action"`
	Resource     string         `gorm:"size:64;not null" json:"resource"`
	ResourceID   *string        `gorm:"size:100;index:idx_audit_resource_id" json:"resource_id,omitempty"`
	Description  *string        `gorm:"type:text" json:"description,omitempty"`
	IPAddress    *string        `gorm:"size:64" json:"ip_address,omitempty"`
	UserAgent    *string        `gorm:"type:text" json:"user_agent,omitempty"`
	RequestID    *string        `gorm:"size:255;index:idx_audit_request_id" json:"request_id,omitempty"`
	Metadata     datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	Success      *bool          `gorm:"default:true;index:idx_audit_success" json:"success"`
	ErrorMessage *string        `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time      `gorm:"default:CURRENT_TIMESTAMP;index:idx_audit_created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// Audit actors
const (
	AuditActorAccount = "account"
	AuditActorAdmin   = "admin"
	AuditActorSystem  = "system"
	AuditActorGateway = "gateway"
)

// Audit action constants
const (
	AuditActionDepositCreated         = "deposit_created"
	AuditActionDepositAutoMatched     = "deposit_auto_matched"
	AuditActionOpayDepositConfirmed   = "opay_deposit_confirmed"
	AuditActionBalanceTransferred     = "balance_transferred"
	AuditActionBalanceTransferFailed  = "balance_transfer_failed"
	AuditActionBridgeApplied          = "bridge_applied"
	AuditActionCommissionRatesUpdated = "commission_rates_updated"
	AuditActionTransferRulesUpdated   = "transfer_rules_updated"
	AuditActionAccountRegistered      = "account_registered"
	AuditActionDepositBonusCreated    = "deposit_bonus_created"
	AuditActionLoginSuccess           = "login_success"
	AuditActionLoginFailed            = "login_failed"
)

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	ActorType     *string
	ActorID       *uint
	Action        *string
	ResourceID    *string
	Success       *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (a *AuditLog) IsFailed() bool {
	return a.Success != nil && !*a.Success
}
