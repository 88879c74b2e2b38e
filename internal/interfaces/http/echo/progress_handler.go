package echo

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	domain "github.com/pingtools/usersync/internal/domain/bulk"
)

const heartbeatInterval = 25 * time.Second

type eventSource interface {
	Subscribe(sessionID string) (<-chan domain.Event, func())
}

// ProgressHandler serves the Server-Sent-Events stream that carries
// progress, completion and error events for one session. The upload and
// this connection are correlated only by session id.
type ProgressHandler struct {
	events    eventSource
	logger    *zap.Logger
	heartbeat time.Duration
}

func NewProgressHandler(events eventSource, logger *zap.Logger) *ProgressHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressHandler{events: events, logger: logger, heartbeat: heartbeatInterval}
}

func (h *ProgressHandler) StreamProgress(c echo.Context) error {
	sessionID := c.Param("sessionId")
	if len(sessionID) < 8 {
		return badRequest(c, "invalid_session", "sessionId must be at least 8 characters")
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set(echo.HeaderConnection, "keep-alive")
	resp.WriteHeader(http.StatusOK)
	resp.Flush()

	ch, cancel := h.events.Subscribe(sessionID)
	defer cancel()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			// keeps idle-timeout proxies from dropping the connection
			if _, err := fmt.Fprint(resp, ": keep-alive\n\n"); err != nil {
				h.logger.Warn("heartbeat write failed", zap.String("sessionId", sessionID), zap.Error(err))
				return nil
			}
			resp.Flush()
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			data, err := json.Marshal(ev)
			if err != nil {
				h.logger.Warn("could not encode progress event", zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(resp, "data: %s\n\n", data); err != nil {
				h.logger.Warn("progress write failed", zap.String("sessionId", sessionID), zap.Error(err))
				return nil
			}
			resp.Flush()
		}
	}
}
