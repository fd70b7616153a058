// Package scheduler runs periodic settlement jobs
package scheduler

import (
	"context"
	"time"

	businessflow "github.com/amirphl/betting-settlement/business_flow"
	"github.com/amirphl/betting-settlement/models"
	"go.uber.org/zap"
)

// BridgeScheduler periodically nets the game-win bucket of every affiliate
type BridgeScheduler struct {
	bridgeFlow businessflow.BridgeFlow
	roles      []models.AccountRole
	interval   time.Duration
	logger     *zap.Logger
}

func NewBridgeScheduler(bridgeFlow businessflow.BridgeFlow, interval time.Duration, logger *zap.Logger) *BridgeScheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &BridgeScheduler{
		bridgeFlow: bridgeFlow,
		roles:      []models.AccountRole{models.AccountRoleSuperAffiliate, models.AccountRoleMasterAffiliate},
		interval:   interval,
		logger:     logger.Named("bridge-scheduler"),
	}
}

// Start launches the loop in a background goroutine and returns a stop function.
// The first run happens after one interval, not at startup.
func (s *BridgeScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

// RunOnce bridges every role in turn. Failures are logged and do not stop later roles.
func (s *BridgeScheduler) RunOnce(ctx context.Context) {
	meta := businessflow.NewClientMetadata("", "bridge-scheduler")
	for _, role := range s.roles {
		if ctx.Err() != nil {
			return
		}
		result, err := s.bridgeFlow.BridgeAll(ctx, role, meta)
		if err != nil {
			s.logger.Error("scheduled bridge failed", zap.String("role", string(role)), zap.Error(err))
			continue
		}
		s.logger.Info("scheduled bridge finished",
			zap.String("role", string(role)),
			zap.Int("processed", result.Processed),
			zap.Int("skipped", result.Skipped),
			zap.Int("failed", result.Failed),
		)
	}
}
