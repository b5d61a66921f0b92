package middleware

import (
	"errors"
	"net/http"

	"pizzaria-orderplane/pkg/errutil"

	"github.com/gin-gonic/gin"
)

// Error renders the last error pushed via c.Error as a JSON body. Domain
// errors keep their CoreStatus mapping; anything else becomes a 500.
func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}

		var be errutil.BaseError
		if errors.As(last.Err, &be) {
			c.JSON(be.Code.HTTPStatus(), be.JSON())
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{"code": errutil.StatusInternal, "message": last.Err.Error()},
		})
	}
}
