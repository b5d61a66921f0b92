package payment

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// PixConfirmPayload is the asynq task body queued by the webhook handler.
type PixConfirmPayload struct {
	TenantID string `json:"tenant_id"`
	TicketID string `json:"ticket_id"`
}

// HandlePixConfirm consumes payment:pix:confirm tasks. It retries on
// transient failures; a charge that is simply not approved yet is also
// retried since the webhook may have raced the gateway's own state.
func (s *Service) HandlePixConfirm(ctx context.Context, t *asynq.Task) error {
	var payload PixConfirmPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		zap.L().Error("malformed pix confirm payload", zap.Error(err))
		return asynq.SkipRetry
	}

	confirmed, err := s.ConfirmAndCreate(ctx, ConfirmParams{
		TenantID: payload.TenantID,
		TicketID: payload.TicketID,
	})
	if err != nil {
		if errors.Is(err, ErrPendingNotFound) {
			zap.L().Warn("pix confirm task for unknown ticket",
				zap.String("ticket_id", payload.TicketID))
			return asynq.SkipRetry
		}
		return err
	}

	zap.L().Info("pix order confirmed",
		zap.String("ticket_id", confirmed.ID),
		zap.String("status", confirmed.Status))
	return nil
}
