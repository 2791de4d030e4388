package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/biblioteca/backend/internal/infrastructure/auth"
	"github.com/biblioteca/backend/internal/infrastructure/config"
	"github.com/biblioteca/backend/internal/infrastructure/logger"
	"github.com/biblioteca/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-with-enough-length"

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{Secret: testSecret, Issuer: "biblioteca-auth"})
}

func issue(t *testing.T, svc *auth.JWTService, userID uuid.UUID, roles ...string) string {
	t.Helper()
	token, err := svc.IssueToken(auth.IssueTokenInput{UserID: userID, Name: "Ana", Roles: roles})
	require.NoError(t, err)
	return token
}

type seenIdentity struct {
	userID     string
	ctxUser    string
	staff      bool
	parsedUser uuid.UUID
}

func newAuthRouter(cfg JWTMiddlewareConfig, seen *seenIdentity) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(JWTAuthMiddlewareWithConfig(cfg))
	handler := func(c *gin.Context) {
		if seen != nil {
			seen.userID = c.GetString(JWTUserIDKey)
			seen.ctxUser = logger.GetCustomerID(c.Request.Context())
			seen.staff = IsStaff(c)
			seen.parsedUser, _ = GetJWTUserID(c)
		}
		c.Status(http.StatusOK)
	}
	router.GET("/api/v1/cart", handler)
	router.GET("/api/v1/health", handler)
	router.GET("/api/v1/loans/overdue", RequireRole(auth.RoleStaff), handler)
	return router
}

func doGet(router http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set(AuthHeaderKey, token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func TestJWTAuthMiddleware_ValidToken(t *testing.T) {
	svc := newTestJWTService()
	userID := uuid.New()
	seen := &seenIdentity{}
	router := newAuthRouter(DefaultJWTConfig(svc), seen)

	w := doGet(router, "/api/v1/cart", BearerPrefix+issue(t, svc, userID))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID.String(), seen.userID)
	assert.Equal(t, userID.String(), seen.ctxUser)
	assert.Equal(t, userID, seen.parsedUser)
	assert.False(t, seen.staff)
}

func TestJWTAuthMiddleware_Rejections(t *testing.T) {
	svc := newTestJWTService()
	router := newAuthRouter(DefaultJWTConfig(svc), nil)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "biblioteca-auth",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
		UserID: uuid.NewString(),
	})
	expiredToken, err := expired.SignedString([]byte(testSecret))
	require.NoError(t, err)

	otherSigner := auth.NewJWTService(config.JWTConfig{Secret: "another-secret-entirely", Issuer: "biblioteca-auth"})

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", dto.ErrCodeUnauthorized},
		{"wrong scheme", "Basic abc", dto.ErrCodeUnauthorized},
		{"empty bearer", BearerPrefix, dto.ErrCodeUnauthorized},
		{"garbage token", BearerPrefix + "not.a.jwt", dto.ErrCodeTokenInvalid},
		{"foreign signature", BearerPrefix + issue(t, otherSigner, uuid.New()), dto.ErrCodeTokenInvalid},
		{"expired", BearerPrefix + expiredToken, dto.ErrCodeTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doGet(router, "/api/v1/cart", tt.header)
			require.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, tt.code, errorCode(t, w))
		})
	}
}

func TestJWTAuthMiddleware_SkipPaths(t *testing.T) {
	router := newAuthRouter(DefaultJWTConfig(newTestJWTService()), nil)

	w := doGet(router, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJWTAuthMiddleware_Revocation(t *testing.T) {
	svc := newTestJWTService()
	blacklist := auth.NewInMemoryTokenBlacklist()
	cfg := DefaultJWTConfig(svc)
	cfg.TokenBlacklist = blacklist
	router := newAuthRouter(cfg, nil)

	token := issue(t, svc, uuid.New())
	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, doGet(router, "/api/v1/cart", BearerPrefix+token).Code)

	blacklist.Revoke(claims.ID, time.Minute)
	w := doGet(router, "/api/v1/cart", BearerPrefix+token)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, dto.ErrCodeTokenRevoked, errorCode(t, w))
}

func TestJWTAuthMiddleware_UserInvalidation(t *testing.T) {
	svc := newTestJWTService()
	blacklist := auth.NewInMemoryTokenBlacklist()
	cfg := DefaultJWTConfig(svc)
	cfg.TokenBlacklist = blacklist
	router := newAuthRouter(cfg, nil)

	userID := uuid.New()
	token := issue(t, svc, userID)
	blacklist.InvalidateUser(userID.String())

	w := doGet(router, "/api/v1/cart", BearerPrefix+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

type failingBlacklist struct{}

func (failingBlacklist) IsBlacklisted(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func (failingBlacklist) IsUserTokenInvalidated(context.Context, string, time.Time) (bool, error) {
	return false, errors.New("redis down")
}

func TestJWTAuthMiddleware_BlacklistOutageFailsOpen(t *testing.T) {
	svc := newTestJWTService()
	cfg := DefaultJWTConfig(svc)
	cfg.TokenBlacklist = failingBlacklist{}
	router := newAuthRouter(cfg, nil)

	w := doGet(router, "/api/v1/cart", BearerPrefix+issue(t, svc, uuid.New()))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRole(t *testing.T) {
	svc := newTestJWTService()
	seen := &seenIdentity{}
	router := newAuthRouter(DefaultJWTConfig(svc), seen)

	w := doGet(router, "/api/v1/loans/overdue", BearerPrefix+issue(t, svc, uuid.New()))
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, dto.ErrCodeForbidden, errorCode(t, w))

	w = doGet(router, "/api/v1/loans/overdue", BearerPrefix+issue(t, svc, uuid.New(), auth.RoleStaff))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, seen.staff)
}

func TestGetJWTUserID_Invalid(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, ok := GetJWTUserID(c)
	assert.False(t, ok)

	c.Set(JWTUserIDKey, "not-a-uuid")
	_, ok = GetJWTUserID(c)
	assert.False(t, ok)
	assert.Nil(t, GetJWTClaims(c))
}
