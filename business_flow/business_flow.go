package businessflow

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/amirphl/betting-settlement/models"
	"github.com/amirphl/betting-settlement/repository"
	"github.com/amirphl/betting-settlement/utils"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ClientMetadata holds client information recorded on audit entries
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// auditEntry is the input of recordAudit
type auditEntry struct {
	actorType  string
	actorID    *uint
	action     string
	resource   string
	resourceID string
	success    bool
	desc       string
	errMsg     string
	metadata   map[string]any
}

// recordAudit writes an audit row. Call it after the financial transaction committed:
// a failed insert inside a postgres transaction would abort it.
func recordAudit(ctx context.Context, repo repository.AuditLogRepository, logger *zap.Logger, meta *ClientMetadata, e auditEntry) {
	if repo == nil {
		return
	}

	row := &models.AuditLog{
		ActorType: e.actorType,
		ActorID:   e.actorID,
		Action:    e.action,
		Resource:  e.resource,
		Success:   utils.ToPtr(e.success),
	}
	if e.resourceID != "" {
		row.ResourceID = utils.ToPtr(e.resourceID)
	}
	if e.desc != "" {
		row.Description = utils.ToPtr(e.desc)
	}
	if e.errMsg != "" {
		row.ErrorMessage = utils.ToPtr(e.errMsg)
	}
	if meta != nil {
		if meta.IPAddress != "" {
			row.IPAddress = utils.ToPtr(meta.IPAddress)
		}
		if meta.UserAgent != "" {
			row.UserAgent = utils.ToPtr(meta.UserAgent)
		}
		if meta.RequestID != "" {
			row.RequestID = utils.ToPtr(meta.RequestID)
		}
	}
	if len(e.metadata) > 0 {
		if b, err := json.Marshal(e.metadata); err == nil {
			row.Metadata = datatypes.JSON(b)
		}
	}

	if err := repo.Save(ctx, row); err != nil {
		logger.Warn("failed to write audit log", zap.String("action", e.action), zap.Error(err))
	}
}

// isDuplicateKey reports a unique-constraint violation (requires gorm TranslateError)
func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
