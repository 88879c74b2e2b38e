package echo

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	app "github.com/pingtools/usersync/internal/application/bulk"
	domain "github.com/pingtools/usersync/internal/domain/bulk"
)

type DeleteHandler struct {
	useCase app.DeleteUsers
	logger  *zap.Logger
}

type deleteRequest struct {
	Type         string `json:"type"`
	PopulationID string `json:"populationId"`
	Confirmation string `json:"confirmation"`
	SkipNotFound bool   `json:"skipNotFound"`
}

type deleteResponse struct {
	Success bool `json:"success"`
	app.DeleteUsersOutput
}

func NewDeleteHandler(useCase app.DeleteUsers, logger *zap.Logger) *DeleteHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeleteHandler{useCase: useCase, logger: logger}
}

// DeleteUsers accepts either a multipart CSV upload (file mode) or a JSON
// body selecting population or environment scope. Environment-wide
// deletion is gated on the exact confirmation text.
func (h *DeleteHandler) DeleteUsers(c echo.Context) error {
	var in app.DeleteUsersInput

	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(contentType, echo.MIMEMultipartForm) {
		fileName, data, err := readUpload(c)
		if err != nil {
			return badRequest(c, "missing_file", "a CSV file upload is required")
		}
		in = app.DeleteUsersInput{
			Mode:         app.DeleteByFile,
			FileName:     fileName,
			FileData:     data,
			SkipNotFound: formBool(c, "skipNotFound"),
		}
	} else {
		var req deleteRequest
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "bad_request", "invalid request body")
		}
		in = app.DeleteUsersInput{
			Mode:         app.DeleteMode(req.Type),
			PopulationID: req.PopulationID,
			Confirmation: req.Confirmation,
			SkipNotFound: req.SkipNotFound,
		}
	}

	out, err := h.useCase.Execute(c.Request().Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrConfirmationRequired):
			return badRequest(c, "confirmation_required", `environment-wide deletion requires confirmation "DELETE ALL"`)
		case errors.Is(err, app.ErrInvalidDeleteMode):
			return badRequest(c, "invalid_type", "type must be file, population or environment")
		case errors.Is(err, app.ErrMissingPopulation):
			return badRequest(c, "missing_population", "populationId is required for population deletes")
		case errors.Is(err, app.ErrMissingFile):
			return badRequest(c, "missing_file", "a CSV file upload is required")
		case errors.Is(err, domain.ErrMalformedInput):
			return badRequest(c, "malformed_csv", err.Error())
		default:
			h.logger.Error("delete run failed", zap.Error(err))
			return internalError(c, "failed to delete users")
		}
	}

	return c.JSON(http.StatusOK, deleteResponse{Success: true, DeleteUsersOutput: out})
}
