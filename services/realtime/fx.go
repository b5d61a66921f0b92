package realtime

import (
	"context"
	"io"

	"pizzaria-orderplane/pkg/rediskey"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("realtime",
	fx.Provide(NewPublisher, NewSubscriber),
	fx.Invoke(registerRoutes),
)

// Worker wires pub/sub without HTTP routes for the task consumer binary.
var Worker = fx.Module("realtime.worker",
	fx.Provide(NewPublisher, NewSubscriber),
)

func registerRoutes(engine *gin.Engine, sub *Subscriber) {
	v1 := engine.Group("/api/v1")
	v1.GET("/orders/:ticket/events", streamEvents(sub, func(c *gin.Context) string {
		return rediskey.OrderChannel(c.Param("ticket"))
	}))
	v1.GET("/customers/:id/events", streamEvents(sub, func(c *gin.Context) string {
		return rediskey.CustomerChannel(c.Param("id"))
	}))
}

type eventSource interface {
	Subscribe(ctx context.Context, channels ...string) <-chan Event
}

// streamEvents bridges a redis channel onto a server-sent event stream.
// The stream ends when the client disconnects.
func streamEvents(sub eventSource, channel func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		events := sub.Subscribe(ctx, channel(c))

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")

		c.Stream(func(w io.Writer) bool {
			select {
			case <-ctx.Done():
				return false
			case ev, ok := <-events:
				if !ok {
					return false
				}
				c.SSEvent("message", ev.New)
				return true
			}
		})
	}
}
