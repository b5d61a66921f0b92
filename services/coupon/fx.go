package coupon

import (
	"errors"
	"net/http"
	"time"

	"pizzaria-orderplane/pkg/errutil"
	"pizzaria-orderplane/pkg/server"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
)

var Module = fx.Module("coupon.service",
	fx.Provide(NewService),
	fx.Invoke(registerRoutes),
)

// Worker wires the service without HTTP routes for the task consumer binary.
var Worker = fx.Module("coupon.worker",
	fx.Provide(NewService),
)

func registerRoutes(engine *gin.Engine, s *Service) {
	v1 := engine.Group("/api/v1")
	v1.POST("/coupons", s.handleCreate)
	v1.POST("/coupons/validate", s.handleValidate)
	v1.GET("/coupons/:code", s.handleGet)
}

type createRequest struct {
	Code         string  `json:"code"`
	Description  string  `json:"description"`
	DiscountType string  `json:"discount_type" binding:"required,oneof=percent amount"`
	Value        float64 `json:"value" binding:"required,gt=0"`
	SingleUse    bool    `json:"single_use"`
	ExpiresAt    *string `json:"expires_at"`
}

func (s *Service) handleCreate(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid coupon payload", err))
		return
	}

	var expiresAt *time.Time
	if req.ExpiresAt != nil {
		parsed, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			c.Error(errutil.BadRequest("expires_at must be RFC3339", err))
			return
		}
		expiresAt = &parsed
	}

	created, err := s.Create(c.Request.Context(), CreateParams{
		TenantID:     c.GetHeader(server.TenantID),
		Code:         req.Code,
		Description:  req.Description,
		DiscountType: req.DiscountType,
		Value:        decimal.NewFromFloat(req.Value),
		SingleUse:    req.SingleUse,
		ExpiresAt:    expiresAt,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (s *Service) handleGet(c *gin.Context) {
	found, err := s.Get(c.Request.Context(), c.GetHeader(server.TenantID), c.Param("code"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.Error(errutil.NotFound("coupon not found", err))
			return
		}
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, found)
}

type validateRequest struct {
	Code string `json:"code" binding:"required"`
}

func (s *Service) handleValidate(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid validate payload", err))
		return
	}

	discount, err := s.Validate(c.Request.Context(), c.GetHeader(server.TenantID), req.Code)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			c.Error(errutil.NotFound("coupon not found", err))
		case errors.Is(err, ErrNotActive), errors.Is(err, ErrExpired), errors.Is(err, ErrAlreadyUsed):
			c.Error(errutil.UnprocessableEntity("coupon cannot be applied", err))
		default:
			c.Error(err)
		}
		return
	}

	c.JSON(http.StatusOK, discount)
}
