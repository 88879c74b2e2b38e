package echo

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	app "github.com/pingtools/usersync/internal/application/bulk"
	domain "github.com/pingtools/usersync/internal/domain/bulk"
)

type ImportHandler struct {
	useCase app.StartImport
	logger  *zap.Logger
}

type importResponse struct {
	Success        bool   `json:"success"`
	SessionID      string `json:"sessionId"`
	Message        string `json:"message"`
	PopulationName string `json:"populationName"`
	PopulationID   string `json:"populationId"`
	TotalUsers     int    `json:"totalUsers"`
}

func NewImportHandler(useCase app.StartImport, logger *zap.Logger) *ImportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportHandler{useCase: useCase, logger: logger}
}

func (h *ImportHandler) ImportUsers(c echo.Context) error {
	fileName, data, err := readUpload(c)
	if err != nil {
		return badRequest(c, "missing_file", "a CSV file upload is required")
	}

	populationID := c.FormValue("populationId")
	populationName := c.FormValue("populationName")
	totalUsers, _ := strconv.Atoi(c.FormValue("totalUsers"))
	skipDup := strings.EqualFold(c.FormValue("skipDuplicateCheck"), "true")

	out, err := h.useCase.Execute(c.Request().Context(), app.StartImportInput{
		FileName:           fileName,
		FileData:           data,
		PopulationID:       populationID,
		PopulationName:     populationName,
		ExpectedTotal:      totalUsers,
		SkipDuplicateCheck: skipDup,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrMissingFile):
			return badRequest(c, "missing_file", "a CSV file upload is required")
		case errors.Is(err, app.ErrMissingPopulation):
			return badRequest(c, "missing_population", "populationId is required")
		case errors.Is(err, domain.ErrMalformedInput):
			return badRequest(c, "malformed_csv", err.Error())
		default:
			h.logger.Error("import start failed", zap.Error(err))
			return internalError(c, "failed to start import")
		}
	}

	return c.JSON(http.StatusOK, importResponse{
		Success:        true,
		SessionID:      out.SessionID,
		Message:        out.Message,
		PopulationName: populationName,
		PopulationID:   populationID,
		TotalUsers:     out.TotalUsers,
	})
}

// readUpload pulls the multipart "file" part into memory. The body limit
// middleware caps the size before this runs.
func readUpload(c echo.Context) (string, []byte, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return "", nil, err
	}
	src, err := fileHeader.Open()
	if err != nil {
		return "", nil, err
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return "", nil, err
	}
	return fileHeader.Filename, data, nil
}
