package bootstrap

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	app "github.com/pingtools/usersync/internal/application/bulk"
	domain "github.com/pingtools/usersync/internal/domain/bulk"
	"github.com/pingtools/usersync/internal/infrastructure/stream"
	httpecho "github.com/pingtools/usersync/internal/interfaces/http/echo"
)

type Components struct {
	StartImport app.StartImport
	ModifyUsers app.ModifyUsers
	DeleteUsers app.DeleteUsers
	ExportUsers app.ExportUsers
	Hub         *stream.Hub
	History     domain.HistoryStore
	Logger      *zap.Logger
}

func NewHTTPServer(c Components) *echo.Echo {
	server := echo.New()
	server.HideBanner = true

	server.Use(middleware.Recover())
	server.Use(middleware.RequestID())
	server.Use(middleware.BodyLimit("10M"))

	importHandler := httpecho.NewImportHandler(c.StartImport, c.Logger)
	progressHandler := httpecho.NewProgressHandler(c.Hub, c.Logger)
	modifyHandler := httpecho.NewModifyHandler(c.ModifyUsers, c.Logger)
	deleteHandler := httpecho.NewDeleteHandler(c.DeleteUsers, c.Logger)
	exportHandler := httpecho.NewExportHandler(c.ExportUsers, c.Logger)
	historyHandler := httpecho.NewHistoryHandler(c.History, c.Logger)

	httpecho.RegisterRoutes(server, importHandler, progressHandler, modifyHandler, deleteHandler, exportHandler, historyHandler)

	server.GET("/healthz", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	return server
}
