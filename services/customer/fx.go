package customer

import (
	"encoding/json"
	"errors"
	"net/http"

	"pizzaria-orderplane/pkg/errutil"
	"pizzaria-orderplane/pkg/server"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"gorm.io/datatypes"
)

var Module = fx.Module("customer.service",
	fx.Provide(NewService),
	fx.Invoke(registerRoutes),
)

// Worker wires the service without HTTP routes for the task consumer binary.
var Worker = fx.Module("customer.worker",
	fx.Provide(NewService),
)

func registerRoutes(engine *gin.Engine, s *Service) {
	v1 := engine.Group("/api/v1")
	v1.POST("/customers/register", s.handleRegister)
	v1.GET("/customers/:id", s.handleGet)
}

type registerRequest struct {
	Name    string          `json:"name" binding:"required"`
	Email   string          `json:"email" binding:"required,email"`
	Phone   string          `json:"phone"`
	CPF     string          `json:"cpf"`
	Address json.RawMessage `json:"address"`
}

func (s *Service) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("invalid register payload", err))
		return
	}

	resolved, err := s.Resolve(c.Request.Context(), ResolveParams{
		TenantID:     c.GetHeader(server.TenantID),
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		CPF:          req.CPF,
		SavedAddress: datatypes.JSON(req.Address),
		Register:     true,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resolved)
}

func (s *Service) handleGet(c *gin.Context) {
	found, err := s.GetByID(c.Request.Context(), c.GetHeader(server.TenantID), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.Error(errutil.NotFound("customer not found", err))
			return
		}
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, found)
}
