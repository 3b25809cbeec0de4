package server

import (
	"time"

	"github.com/labstack/echo/v4"
)

// APIResponse is the standard response envelope.
type APIResponse struct {
	Data  any            `json:"data,omitempty"`
	Error *APIError      `json:"error,omitempty"`
	Meta  map[string]any `json:"meta"`
}

func meta(c echo.Context) map[string]any {
	return map[string]any{
		"request_id": RequestID(c),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	}
}

// respond writes a success envelope.
func respond(c echo.Context, status int, data any) error {
	return c.JSON(status, APIResponse{Data: data, Meta: meta(c)})
}

// respondError writes an error envelope using the error's HTTP status.
func respondError(c echo.Context, err *APIError) error {
	return c.JSON(err.Status, APIResponse{Error: err, Meta: meta(c)})
}
