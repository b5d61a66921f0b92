package ledger

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// HandleExpiryRun is the asynq handler behind the periodic loyalty expiry
// sweep. The payload is empty; the sweep scans whatever is due.
func (s *Service) HandleExpiryRun(ctx context.Context, t *asynq.Task) error {
	expired, err := s.ExpirePoints(ctx, time.Now())
	if err != nil {
		zap.L().Error("loyalty expiry sweep failed", zap.Error(err))
		return err
	}

	zap.L().Info("loyalty expiry sweep completed", zap.Int("expired_rows", expired))
	return nil
}
