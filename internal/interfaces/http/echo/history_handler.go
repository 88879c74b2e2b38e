package echo

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	domain "github.com/pingtools/usersync/internal/domain/bulk"
)

type HistoryHandler struct {
	store  domain.HistoryStore
	logger *zap.Logger
}

type historyResponse struct {
	Success bool                  `json:"success"`
	History []domain.HistoryEntry `json:"history"`
	Total   int                   `json:"total"`
	Page    int                   `json:"page"`
	Limit   int                   `json:"limit"`
}

func NewHistoryHandler(store domain.HistoryStore, logger *zap.Logger) *HistoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryHandler{store: store, logger: logger}
}

func (h *HistoryHandler) ListHistory(c echo.Context) error {
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 20)
	opType := domain.OperationType(c.QueryParam("type"))

	entries, total, err := h.store.List(c.Request().Context(), page, limit, opType)
	if err != nil {
		h.logger.Error("history listing failed", zap.Error(err))
		return internalError(c, "failed to read operation history")
	}

	return c.JSON(http.StatusOK, historyResponse{
		Success: true,
		History: entries,
		Total:   total,
		Page:    page,
		Limit:   limit,
	})
}

func queryInt(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
