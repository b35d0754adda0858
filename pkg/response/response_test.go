package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examflow/editorial/internal/errorz"
)

func render(t *testing.T, err error) (int, Body) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	Error(c, err)
	var body Body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
		code string
	}{
		{errorz.ErrNotFound, http.StatusNotFound, "not_found"},
		{errorz.ErrForbidden, http.StatusForbidden, "forbidden"},
		{fmt.Errorf("%w: archived", errorz.ErrInvalidTarget), http.StatusBadRequest, "invalid_target"},
		{errorz.ErrConflict, http.StatusConflict, "conflict"},
		{fmt.Errorf("%w: deadline", errorz.ErrTimeout), http.StatusGatewayTimeout, "timeout"},
		{errorz.ErrDependencyUnavailable, http.StatusServiceUnavailable, "dependency_unavailable"},
		{errors.New("pq: something broke"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			status, body := render(t, tt.err)
			assert.Equal(t, tt.want, status)
			assert.Equal(t, tt.code, body.Code)
			assert.False(t, body.Success)
		})
	}
}

func TestErrorConflictIsRetryable(t *testing.T) {
	_, body := render(t, errorz.ErrConflict)
	assert.True(t, body.Retry)
}

func TestErrorValidationFields(t *testing.T) {
	_, body := render(t, errorz.NewValidation(map[string]string{"correct_answer": "must reference a non-empty option"}))
	assert.Equal(t, "must reference a non-empty option", body.Fields["correct_answer"])
}

func TestErrorHidesInternalDetail(t *testing.T) {
	_, body := render(t, errors.New("connection refused 10.0.0.3:5432"))
	assert.Equal(t, "internal error", body.Error)
}
