package order

import (
	"errors"
	"net/http"

	"pizzaria-orderplane/pkg/errutil"
	"pizzaria-orderplane/pkg/server"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("order.service",
	fx.Provide(NewService),
	fx.Invoke(registerRoutes),
)

// Worker wires the service without HTTP routes for the task consumer binary.
var Worker = fx.Module("order.worker",
	fx.Provide(NewService),
)

func registerRoutes(engine *gin.Engine, s *Service) {
	v1 := engine.Group("/api/v1")
	v1.GET("/orders", s.handleList)
	v1.GET("/orders/:ticket", s.handleGet)
	v1.PATCH("/orders/:ticket/status", s.handleUpdateStatus)
	v1.POST("/orders/:ticket/print", s.handleMarkPrinted)
}

func (s *Service) handleGet(c *gin.Context) {
	found, err := s.Get(c.Request.Context(), c.GetHeader(server.TenantID), c.Param("ticket"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.Error(errutil.NotFound("order not found", err))
			return
		}
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, found)
}

func (s *Service) handleList(c *gin.Context) {
	rows, err := s.List(c.Request.Context(), ListParams{
		TenantID: c.GetHeader(server.TenantID),
		Phone:    c.Query("phone"),
		Email:    c.Query("email"),
		Status:   c.Query("status"),
		Limit:    50,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rows})
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending confirmed preparing delivering delivered cancelled"`
}

func (s *Service) handleUpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid status payload", err))
		return
	}

	updated, err := s.UpdateStatus(c.Request.Context(), UpdateStatusParams{
		TenantID:  c.GetHeader(server.TenantID),
		TicketID:  c.Param("ticket"),
		NewStatus: req.Status,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			c.Error(errutil.NotFound("order not found", err))
		case errors.Is(err, ErrInvalidTransition):
			c.Error(errutil.UnprocessableEntity("status transition not allowed", err))
		default:
			c.Error(err)
		}
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (s *Service) handleMarkPrinted(c *gin.Context) {
	if err := s.MarkPrinted(c.Request.Context(), c.GetHeader(server.TenantID), c.Param("ticket")); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}
