package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/dbelyakov/realvista/pkg/errors"
)

// Envelope is the uniform JSON shape of every API response: either Data (and
// optionally Meta) on success, or Error on failure, never both.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Meta    *Meta      `json:"meta,omitempty"`
}

// ErrorInfo is the client-visible error payload. Internal error details never
// travel in it.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta carries pagination details alongside list payloads.
type Meta struct {
	Page       int `json:"page,omitempty"`
	PerPage    int `json:"per_page,omitempty"`
	Total      int `json:"total,omitempty"`
	TotalPages int `json:"total_pages,omitempty"`
}

// Success writes a success envelope with the given status and payload.
func Success(c *gin.Context, status int, data any) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

// SuccessWithMeta writes a success envelope with pagination metadata.
// TotalPages is derived when the caller left it unset.
func SuccessWithMeta(c *gin.Context, status int, data any, meta *Meta) {
	if meta != nil && meta.TotalPages == 0 && meta.PerPage > 0 {
		meta.TotalPages = (meta.Total + meta.PerPage - 1) / meta.PerPage
	}
	c.JSON(status, Envelope{Success: true, Data: data, Meta: meta})
}

// Error converts err into an AppError and writes the failure envelope with
// its status code.
func Error(c *gin.Context, err error) {
	if err == nil {
		err = appErrors.ErrInternalServer
	}

	appErr := appErrors.FromError(err)
	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	c.JSON(status, Envelope{
		Success: false,
		Error:   &ErrorInfo{Code: appErr.Code, Message: appErr.Message},
	})
}
