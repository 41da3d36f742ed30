package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/LovationAdmin/trackit-api/models"
	"github.com/LovationAdmin/trackit-api/parser"
	"github.com/LovationAdmin/trackit-api/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	RegisterValidators()
}

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		message string
	}{
		{services.ErrNotFound, http.StatusNotFound, "Resource not found"},
		{fmt.Errorf("update: %w", services.ErrCategoryNotFound), http.StatusBadRequest, "Category not found"},
		{services.ErrCategoryInUse, http.StatusConflict, "Category still has expenses"},
		{services.ErrEmailTaken, http.StatusBadRequest, "User with this email already exists"},
		{services.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid email or password"},
		{services.ErrTOTPRequired, http.StatusUnauthorized, "2FA code required"},
		{parser.ErrNoAmount, http.StatusBadRequest, "Could not detect expense amount"},
		{errors.New("connection reset"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			serviceError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			var env models.Envelope
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
			assert.False(t, env.Success)
			assert.Equal(t, tt.message, env.Message)
		})
	}
}

func TestTOTPRequiredFlagsClient(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	serviceError(c, services.ErrTOTPRequired)
	assert.JSONEq(t, `{"success":false,"message":"2FA code required","data":{"requires_2fa":true}}`, w.Body.String())
}

func TestBindJSONWrongType(t *testing.T) {
	r := gin.New()
	r.POST("/", func(c *gin.Context) {
		var req models.ParseExpenseRequest
		if bindJSON(c, &req) {
			c.Status(http.StatusNoContent)
		}
	})

	for body, field := range map[string]string{
		`{"text": 42}`: "text",
		`{}`:           "text",
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code, body)
		var env models.Envelope
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		require.Len(t, env.Errors, 1, body)
		assert.Equal(t, field, env.Errors[0].Field, body)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{not json`))
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid request body")
}

func TestParseDate(t *testing.T) {
	got, err := parseDate("2026-03-14")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), got)

	got, err = parseDate("2026-03-14T09:30:00+01:00")
	require.NoError(t, err)
	assert.Equal(t, 8, got.UTC().Hour())

	_, err = parseDate("14/03/2026")
	assert.Error(t, err)
}

func TestQueryInt(t *testing.T) {
	tests := []struct {
		query   string
		want    int
		invalid bool
	}{
		{"", defaultPageLimit, false},
		{"limit=50", 50, false},
		{"limit=0", defaultPageLimit, true},
		{"limit=101", defaultPageLimit, true},
		{"limit=abc", defaultPageLimit, true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)

			var invalid []models.FieldError
			got := queryInt(c, "limit", defaultPageLimit, 1, maxPageLimit, &invalid)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.invalid, len(invalid) == 1)
		})
	}
}

func TestPublishWithoutSessions(t *testing.T) {
	h := NewWSHandler(nil)
	defer h.Close()
	assert.NotPanics(t, func() {
		h.Publish("user-1", &models.Notification{ID: "n1", Title: "hello"})
	})
}
