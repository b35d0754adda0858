package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/examflow/editorial/internal/errorz"
)

// Body is the standard API response envelope.
type Body struct {
	Success bool              `json:"success"`
	Data    interface{}       `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Code    string            `json:"code,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
	Retry   bool              `json:"retry,omitempty"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Created sends a 201 JSON response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

// NoContent sends 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest sends 400 with error message.
func BadRequest(c *gin.Context, err string) {
	c.JSON(http.StatusBadRequest, Body{Success: false, Error: err, Code: "bad_request"})
}

// Unauthorized sends 401.
func Unauthorized(c *gin.Context, err string) {
	c.JSON(http.StatusUnauthorized, Body{Success: false, Error: err, Code: "unauthorized"})
}

// Forbidden sends 403.
func Forbidden(c *gin.Context, err string) {
	c.JSON(http.StatusForbidden, Body{Success: false, Error: err, Code: "forbidden"})
}

// NotFound sends 404.
func NotFound(c *gin.Context, err string) {
	c.JSON(http.StatusNotFound, Body{Success: false, Error: err, Code: "not_found"})
}

// ServiceUnavailable sends 503.
func ServiceUnavailable(c *gin.Context, err string) {
	c.JSON(http.StatusServiceUnavailable, Body{Success: false, Error: err, Code: "dependency_unavailable"})
}

// Internal sends 500.
func Internal(c *gin.Context, err string) {
	c.JSON(http.StatusInternalServerError, Body{Success: false, Error: err, Code: "internal"})
}

// Status returns the HTTP status and stable code for err.
func Status(err error) (int, string) {
	switch errorz.Kind(err) {
	case errorz.ErrNotFound:
		return http.StatusNotFound, "not_found"
	case errorz.ErrForbidden:
		return http.StatusForbidden, "forbidden"
	case errorz.ErrInvalidTarget:
		return http.StatusBadRequest, "invalid_target"
	case errorz.ErrValidation:
		return http.StatusBadRequest, "validation"
	case errorz.ErrConflict:
		return http.StatusConflict, "conflict"
	case errorz.ErrTimeout:
		return http.StatusGatewayTimeout, "timeout"
	case errorz.ErrDependencyUnavailable:
		return http.StatusServiceUnavailable, "dependency_unavailable"
	}
	return http.StatusInternalServerError, "internal"
}

// Error writes err using the error taxonomy. Unknown errors become a generic 500
// so driver detail never reaches the client.
func Error(c *gin.Context, err error) {
	status, code := Status(err)
	body := Body{Success: false, Code: code, Error: err.Error()}
	switch status {
	case http.StatusInternalServerError:
		_ = c.Error(err)
		body.Error = "internal error"
	case http.StatusConflict:
		body.Retry = true
	}
	var ve *errorz.ValidationError
	if errors.As(err, &ve) {
		body.Fields = ve.Fields
	}
	c.JSON(status, body)
}
