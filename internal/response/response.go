// Package response defines the JSON envelope every API response uses.
//
//	{"success": true,  "data": ..., "message": "..."}
//	{"success": false, "error": "...", "code": "...", "errors": [...]}
package response

import (
	"net/http"

	"github.com/deppfellow/iban-manager/internal/errs"
	"github.com/labstack/echo/v4"
)

// Envelope wraps every JSON body written by the API.
type Envelope struct {
	Success bool              `json:"success"`
	Data    any               `json:"data,omitempty"`
	Message string            `json:"message,omitempty"`
	Error   string            `json:"error,omitempty"`
	Code    string            `json:"code,omitempty"`
	Errors  []errs.FieldError `json:"errors,omitempty"`
}

// Success builds a successful envelope.
func Success(data any, message string) Envelope {
	return Envelope{Success: true, Data: data, Message: message}
}

// Failure builds an error envelope from an HTTPError. A 5xx message is
// replaced by the status text unless the error is marked Override.
func Failure(err *errs.HTTPError) Envelope {
	message := err.Message
	if err.Status >= http.StatusInternalServerError && !err.Override {
		message = http.StatusText(err.Status)
	}

	return Envelope{
		Success: false,
		Error:   message,
		Code:    err.Code,
		Errors:  err.Errors,
	}
}

// JSON writes data wrapped in a successful envelope.
func JSON(c echo.Context, status int, data any, message string) error {
	return c.JSON(status, Success(data, message))
}

// Error writes err as an error envelope with err.Status.
func Error(c echo.Context, err *errs.HTTPError) error {
	return c.JSON(err.Status, Failure(err))
}
