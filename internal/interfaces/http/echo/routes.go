package echo

import e "github.com/labstack/echo/v4"

func RegisterRoutes(server *e.Echo, importH *ImportHandler, progressH *ProgressHandler, modifyH *ModifyHandler, deleteH *DeleteHandler, exportH *ExportHandler, historyH *HistoryHandler) {
	server.POST("/import", importH.ImportUsers)
	server.GET("/import/progress/:sessionId", progressH.StreamProgress)
	server.POST("/modify", modifyH.ModifyUsers)
	server.POST("/delete-users", deleteH.DeleteUsers)
	server.POST("/export-users", exportH.ExportUsers)
	server.GET("/history", historyH.ListHistory)
}
