package payment

import (
	"encoding/json"
	"errors"
	"net/http"

	"pizzaria-orderplane/pkg/errutil"
	"pizzaria-orderplane/pkg/server"
	"pizzaria-orderplane/pkg/taskname"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("payment.service",
	fx.Provide(NewGateway, NewService),
	fx.Invoke(registerRoutes),
)

// Worker wires the service without HTTP routes for the task consumer binary.
var Worker = fx.Module("payment.worker",
	fx.Provide(NewGateway, NewService),
)

type routeParams struct {
	fx.In
	Engine  *gin.Engine
	Service *Service
	Tasks   *asynq.Client
}

func registerRoutes(p routeParams) {
	h := &handler{service: p.Service, tasks: p.Tasks}

	v1 := p.Engine.Group("/api/v1")
	v1.POST("/payments/pix/:ticket/confirm", h.confirm)
	v1.POST("/payments/pix/webhook", h.webhook)
}

type handler struct {
	service *Service
	tasks   *asynq.Client
}

type confirmRequest struct {
	PointsRedeemed *int64 `json:"points_redeemed"`
}

func (h *handler) confirm(c *gin.Context) {
	var req confirmRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(errutil.BadRequest("invalid confirm payload", err))
			return
		}
	}

	confirmed, err := h.service.ConfirmAndCreate(c.Request.Context(), ConfirmParams{
		TenantID:              c.GetHeader(server.TenantID),
		TicketID:              c.Param("ticket"),
		ClaimedPointsRedeemed: req.PointsRedeemed,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrPendingNotFound):
			c.Error(errutil.NotFound("no pending payment for this ticket", err))
		case errors.Is(err, ErrNotApproved):
			c.Error(errutil.UnprocessableEntity("payment not approved yet", err))
		default:
			c.Error(err)
		}
		return
	}

	c.JSON(http.StatusOK, confirmed)
}

type webhookRequest struct {
	PaymentID string `json:"paymentId" binding:"required"`
	Status    string `json:"status" binding:"required"`
}

// webhook accepts the gateway notification and hands the heavy lifting to
// the worker. It always answers 200 for known-shape payloads so the
// gateway stops retrying; the task itself re-verifies the charge status.
func (h *handler) webhook(c *gin.Context) {
	var req webhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid webhook payload", err))
		return
	}

	if req.Status != ChargeStatusApproved {
		c.Status(http.StatusOK)
		return
	}

	record, err := h.service.FindByPaymentID(c.Request.Context(), req.PaymentID)
	if err != nil {
		if errors.Is(err, ErrPendingNotFound) {
			zap.L().Warn("webhook for unknown payment", zap.String("payment_id", req.PaymentID))
			c.Status(http.StatusOK)
			return
		}
		c.Error(err)
		return
	}

	payload, _ := json.Marshal(PixConfirmPayload{
		TenantID: record.TenantID,
		TicketID: record.TicketID,
	})

	if _, err := h.tasks.EnqueueContext(c.Request.Context(),
		asynq.NewTask(taskname.PaymentPixConfirm, payload),
		asynq.Queue("critical"),
	); err != nil {
		c.Error(errutil.Internal("failed to enqueue confirmation", err))
		return
	}

	c.Status(http.StatusOK)
}
