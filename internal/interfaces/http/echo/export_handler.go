package echo

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	app "github.com/pingtools/usersync/internal/application/bulk"
	domain "github.com/pingtools/usersync/internal/domain/bulk"
)

type ExportHandler struct {
	useCase app.ExportUsers
	logger  *zap.Logger
}

type exportRequest struct {
	PopulationID         string   `json:"populationId"`
	SelectedPopulationID string   `json:"selectedPopulationId"`
	Format               string   `json:"format"`
	Fields               string   `json:"fields"`
	CustomFields         []string `json:"customFields"`
	IgnoreDisabledUsers  bool     `json:"ignoreDisabledUsers"`
}

func NewExportHandler(useCase app.ExportUsers, logger *zap.Logger) *ExportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportHandler{useCase: useCase, logger: logger}
}

func (h *ExportHandler) ExportUsers(c echo.Context) error {
	var req exportRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "bad_request", "invalid request body")
	}

	populationID := req.PopulationID
	if populationID == "" {
		populationID = req.SelectedPopulationID
	}
	if req.Format == "" {
		req.Format = "csv"
	}
	if req.Fields == "" {
		req.Fields = "all"
	}

	out, err := h.useCase.Execute(c.Request().Context(), app.ExportUsersInput{
		PopulationID:   populationID,
		Format:         req.Format,
		Fields:         req.Fields,
		CustomFields:   req.CustomFields,
		IgnoreDisabled: req.IgnoreDisabledUsers,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidExportFormat), errors.Is(err, domain.ErrMalformedInput):
			return badRequest(c, "invalid_export", err.Error())
		default:
			h.logger.Error("export failed", zap.Error(err))
			return internalError(c, "failed to export users")
		}
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", out.FileName))
	return c.Blob(http.StatusOK, out.ContentType, out.Data)
}
