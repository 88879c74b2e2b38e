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

type ModifyHandler struct {
	useCase app.ModifyUsers
	logger  *zap.Logger
}

func NewModifyHandler(useCase app.ModifyUsers, logger *zap.Logger) *ModifyHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModifyHandler{useCase: useCase, logger: logger}
}

// ModifyUsers is synchronous: the full summary comes back in the response
// while the same progress events also stream to any subscribed receiver.
func (h *ModifyHandler) ModifyUsers(c echo.Context) error {
	fileName, data, err := readUpload(c)
	if err != nil {
		return badRequest(c, "missing_file", "a CSV file upload is required")
	}

	out, err := h.useCase.Execute(c.Request().Context(), app.ModifyUsersInput{
		FileName:            fileName,
		FileData:            data,
		CreateIfNotExists:   formBool(c, "createIfNotExists"),
		DefaultPopulationID: c.FormValue("defaultPopulationId"),
		DefaultEnabled:      formBool(c, "defaultEnabled"),
		GeneratePasswords:   formBool(c, "generatePasswords"),
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrMissingFile):
			return badRequest(c, "missing_file", "a CSV file upload is required")
		case errors.Is(err, domain.ErrMalformedInput):
			return badRequest(c, "malformed_csv", err.Error())
		default:
			h.logger.Error("modify run failed", zap.Error(err))
			return internalError(c, "failed to modify users")
		}
	}

	return c.JSON(http.StatusOK, out)
}

func formBool(c echo.Context, name string) bool {
	return strings.EqualFold(c.FormValue(name), "true")
}
