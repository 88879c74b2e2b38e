package echo

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func badRequest(c echo.Context, code, message string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: code, Message: message})
}

func internalError(c echo.Context, message string) error {
	return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal_error", Message: message})
}
