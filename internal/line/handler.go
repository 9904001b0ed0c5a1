// Package line handles the asynchronous LINE webhook: immediate
// acknowledgment at ingress and deferred verification plus relay in a
// single background worker.
package line

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/bridgelabs/slackline/internal/queue"
)

const headerSignature = "X-Line-Signature"

// Handler acknowledges LINE webhook deliveries before any processing.
// Signature verification is intentionally deferred to the worker; the only
// ingress check is that a signature header is present at all.
type Handler struct {
	queue  *queue.Queue
	logger *slog.Logger
}

// NewHandler wires the ingress handler.
func NewHandler(log *slog.Logger, q *queue.Queue) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		queue:  q,
		logger: log.With(slog.String("handler", "line")),
	}
}

func (h *Handler) Register(e *echo.Echo) {
	e.POST("/line", h.Webhook)
}

// Webhook reads the delivery and schedules it for the worker. The enqueue
// runs in a response-completion hook so the item only becomes visible to
// the worker after the 200 has been written.
func (h *Handler) Webhook(c echo.Context) error {
	signature := c.Request().Header.Get(headerSignature)
	if signature == "" {
		h.logger.Info("line signature header missing")
		return c.NoContent(http.StatusBadRequest)
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	item := queue.Item{
		ID:        uuid.NewString(),
		Signature: signature,
		Body:      body,
		Host:      c.Request().Host,
	}
	c.Response().After(func() {
		if err := h.queue.Enqueue(item); err != nil {
			h.logger.Error("enqueue line delivery failed",
				slog.String("id", item.ID),
				slog.Any("error", err),
			)
		}
	})

	// String, not NoContent: completion hooks only run on a body write.
	return c.String(http.StatusOK, "")
}
