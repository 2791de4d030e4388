package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/biblioteca/backend/internal/domain/shared"
	"github.com/biblioteca/backend/internal/infrastructure/auth"
	"github.com/biblioteca/backend/internal/interfaces/http/dto"
	"github.com/biblioteca/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// as simulates the JWT middleware for the given caller
func as(userID uuid.UUID, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.JWTUserIDKey, userID.String())
		c.Set(middleware.JWTClaimsKey, &auth.Claims{UserID: userID.String(), Roles: roles})
		c.Next()
	}
}

func anonymous(c *gin.Context) { c.Next() }

func perform(router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func errorCodeOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	resp := decode(t, w)
	require.NotNil(t, resp.Error, w.Body.String())
	return resp.Error.Code
}

func TestGetRequestID(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, getRequestID(c))

	c.Request.Header.Set("X-Request-ID", "from-header")
	assert.Equal(t, "from-header", getRequestID(c))

	c.Set(RequestIDKey, "from-context")
	assert.Equal(t, "from-context", getRequestID(c))
}

func TestBaseHandler_HandleError(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{shared.NewDomainError("SALE_NOT_FOUND", "missing"), http.StatusNotFound, "SALE_NOT_FOUND"},
		{shared.NewDomainError("INVALID_TAX_ID", "bad"), http.StatusBadRequest, "INVALID_TAX_ID"},
		{shared.NewDomainError("EMPTY_CART", "empty"), http.StatusUnprocessableEntity, "EMPTY_CART"},
		{shared.NewDomainError("INSUFFICIENT_STOCK", "short"), http.StatusUnprocessableEntity, "INSUFFICIENT_STOCK"},
		{shared.NewDomainError("ALREADY_RETURNED", "twice"), http.StatusConflict, "ALREADY_RETURNED"},
		{shared.NewDomainError("PAYMENT_PROVIDER_ERROR", "stripe"), http.StatusBadGateway, "PAYMENT_PROVIDER_ERROR"},
		{fmt.Errorf("wrapped: %w", shared.NewDomainError("LOAN_NOT_FOUND", "gone")), http.StatusNotFound, "LOAN_NOT_FOUND"},
		{errors.New("connection reset"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			h := &BaseHandler{}
			router := gin.New()
			router.GET("/", func(c *gin.Context) { h.HandleError(c, tt.err) })

			w := perform(router, http.MethodGet, "/", nil)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, errorCodeOf(t, w))
		})
	}
}

func TestBaseHandler_HandleError_HidesInternalMessage(t *testing.T) {
	h := &BaseHandler{}
	router := gin.New()
	router.GET("/", func(c *gin.Context) { h.HandleError(c, errors.New("pq: password authentication failed")) })

	w := perform(router, http.MethodGet, "/", nil)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestBaseHandler_CustomerScope(t *testing.T) {
	h := &BaseHandler{}
	customer := uuid.New()

	run := func(identity gin.HandlerFunc) (*uuid.UUID, bool, int) {
		var scope *uuid.UUID
		var ok bool
		router := gin.New()
		router.Use(identity)
		router.GET("/", func(c *gin.Context) {
			scope, ok = h.customerScope(c)
			if ok {
				c.Status(http.StatusOK)
			}
		})
		w := perform(router, http.MethodGet, "/", nil)
		return scope, ok, w.Code
	}

	scope, ok, _ := run(as(customer))
	require.True(t, ok)
	require.NotNil(t, scope)
	assert.Equal(t, customer, *scope)

	scope, ok, _ = run(as(customer, auth.RoleStaff))
	assert.True(t, ok)
	assert.Nil(t, scope)

	_, ok, code := run(anonymous)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, code)
}
