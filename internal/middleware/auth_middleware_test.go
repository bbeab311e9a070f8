package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/model"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-jwt-secret-for-middleware"

func setupMiddlewareTest() (*gin.Engine, *AuthMiddleware) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(LoggingMiddleware())
	middleware := NewAuthMiddleware(testJWTSecret)
	return router, middleware
}

func generateTestToken(t *testing.T, userID uint, role string, expiry time.Duration) string {
	token, _, err := util.GenerateAccessToken(userID, role, testJWTSecret, expiry)
	require.NoError(t, err)
	return token
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	var body apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error
}

func TestAuthMiddleware_Authenticate_Success(t *testing.T) {
	router, authMiddleware := setupMiddlewareTest()
	token := generateTestToken(t, 7, "manager", 15*time.Minute)

	var got model.Actor
	router.GET("/test", authMiddleware.Authenticate(), func(c *gin.Context) {
		got, _ = GetActor(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.Actor{UserID: 7, Role: model.RoleManager}, got)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestAuthMiddleware_Authenticate_Rejections(t *testing.T) {
	router, authMiddleware := setupMiddlewareTest()
	router.GET("/test", authMiddleware.Authenticate(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{name: "Missing header", header: "", code: apperrors.AuthUnauthorized},
		{name: "Missing Bearer prefix", header: "invalid-token", code: apperrors.AuthTokenInvalid},
		{name: "Wrong prefix", header: "Basic token123", code: apperrors.AuthTokenInvalid},
		{name: "Empty token", header: "Bearer ", code: apperrors.AuthTokenInvalid},
		{name: "Garbage token", header: "Bearer invalid.jwt.token", code: apperrors.AuthTokenInvalid},
		{name: "Expired token", header: "Bearer " + generateTestToken(t, 1, "admin", -time.Minute), code: apperrors.AuthTokenExpired},
		{name: "Unknown role", header: "Bearer " + generateTestToken(t, 1, "overlord", time.Minute), code: apperrors.AuthTokenInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, tt.code, errorCode(t, w))
		})
	}
}

func TestAuthMiddleware_RequireStaff(t *testing.T) {
	router, authMiddleware := setupMiddlewareTest()
	router.GET("/admin",
		authMiddleware.Authenticate(),
		authMiddleware.RequireStaff(),
		func(c *gin.Context) {
			c.Status(http.StatusOK)
		},
	)

	tests := []struct {
		role           string
		expectedStatus int
	}{
		{role: "admin", expectedStatus: http.StatusOK},
		{role: "manager", expectedStatus: http.StatusOK},
		{role: "employee", expectedStatus: http.StatusForbidden},
		{role: "customer", expectedStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			req.Header.Set("Authorization", "Bearer "+generateTestToken(t, 1, tt.role, time.Minute))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusForbidden {
				assert.Equal(t, apperrors.AuthzForbidden, errorCode(t, w))
			}
		})
	}
}

func TestAuthMiddleware_RequireRole_WithoutAuthenticate(t *testing.T) {
	router, authMiddleware := setupMiddlewareTest()
	router.GET("/admin", authMiddleware.RequireRole(model.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, apperrors.AuthzRoleNotFound, errorCode(t, w))
}

func TestGetActor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	actor, exists := GetActor(c)
	assert.False(t, exists)
	assert.Zero(t, actor)

	c.Set(ActorKey, model.Actor{UserID: 123, Role: model.RoleAdmin})
	actor, exists = GetActor(c)
	assert.True(t, exists)
	assert.Equal(t, uint(123), actor.UserID)

	c.Set(ActorKey, "admin")
	_, exists = GetActor(c)
	assert.False(t, exists)
}

func TestLoggingMiddleware_KeepsIncomingRequestID(t *testing.T) {
	router, _ := setupMiddlewareTest()
	router.GET("/ping", func(c *gin.Context) {
		assert.Equal(t, "req-42", c.GetString("request_id"))
		assert.NotNil(t, GetLoggerFromContext(c))
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
}
