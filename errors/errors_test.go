package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/hassan-nahid/school-of-music-server/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestStatusFor(t *testing.T) {
	cases := map[apperrors.Kind]int{
		apperrors.KindUnauthenticated: http.StatusUnauthorized,
		apperrors.KindForbidden:       http.StatusForbidden,
		apperrors.KindValidation:      http.StatusBadRequest,
		apperrors.KindNotFound:        http.StatusNotFound,
		apperrors.KindConflict:        http.StatusConflict,
		apperrors.KindStoreFailure:    http.StatusInternalServerError,
		apperrors.KindInternal:        http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, apperrors.StatusFor(kind), kind)
	}
}

func TestError_WrapAndMatchByKind(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := fmt.Errorf("insert payment: %w", apperrors.Store("Failed to record payment", cause))

	assert.True(t, stderrors.Is(err, apperrors.ErrStore))
	assert.False(t, stderrors.Is(err, apperrors.ErrConflict))
	assert.True(t, stderrors.Is(err, cause))
	assert.Equal(t, "insert payment: Failed to record payment: connection reset", err.Error())
}

func TestFrom_DefaultsToInternal(t *testing.T) {
	appErr := apperrors.From(fmt.Errorf("boom"))
	assert.Equal(t, apperrors.KindInternal, appErr.Kind)
	assert.Equal(t, http.StatusInternalServerError, appErr.Code)

	assert.Nil(t, apperrors.From(nil))
}

func TestErrorMiddleware_RendersLastError(t *testing.T) {
	r := gin.New()
	r.Use(apperrors.ErrorMiddleware())
	r.GET("/x", func(c *gin.Context) {
		_ = c.Error(apperrors.NotFound("class not found"))
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/x", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":true,"message":"class not found"}`, w.Body.String())
}
