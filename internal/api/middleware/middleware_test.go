package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fridge-chef/internal/infrastructure/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func whoami(c *gin.Context) {
	c.String(http.StatusOK, UserID(c))
}

func TestAuthMiddleware(t *testing.T) {
	auth := NewAuthenticator(config.AuthConfig{JWTSecret: "secret", Issuer: "fridge-chef"})
	r := gin.New()
	r.GET("/me", auth.Middleware(), whoami)

	token, err := auth.IssueToken("user-42", time.Hour)
	require.NoError(t, err)

	claims := jwt.RegisteredClaims{Subject: "user-42", Issuer: "fridge-chef", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	other := NewAuthenticator(config.AuthConfig{JWTSecret: "other", Issuer: "fridge-chef"})
	forged, err := other.IssueToken("user-42", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header map[string]string
		status int
		body   string
	}{
		{"valid token", map[string]string{"Authorization": "Bearer " + token}, http.StatusOK, "user-42"},
		{"missing", nil, http.StatusUnauthorized, ""},
		{"expired", map[string]string{"Authorization": "Bearer " + expired}, http.StatusUnauthorized, ""},
		{"wrong secret", map[string]string{"Authorization": "Bearer " + forged}, http.StatusUnauthorized, ""},
		{"header identity disabled", map[string]string{"X-User-ID": "u1"}, http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}

func TestAuthHeaderIdentity(t *testing.T) {
	auth := NewAuthenticator(config.AuthConfig{AllowHeaderIdentity: true})
	r := gin.New()
	r.GET("/me", auth.Middleware(), whoami)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("X-User-ID", "dev-user")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "dev-user", w.Body.String())
}

func TestRateLimitPerClient(t *testing.T) {
	r := gin.New()
	r.GET("/", RateLimit(2, time.Minute), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	do := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusNoContent, do("10.0.0.1"))
	assert.Equal(t, http.StatusNoContent, do("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1"))
	assert.Equal(t, http.StatusNoContent, do("10.0.0.2"))
}

func TestBodySizeLimit(t *testing.T) {
	r := gin.New()
	r.POST("/", BodySizeLimit(8), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("this body is too large")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("ok")))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}

func TestTimeoutSetsDeadline(t *testing.T) {
	r := gin.New()
	r.GET("/", Timeout(time.Second), func(c *gin.Context) {
		_, ok := c.Request.Context().Deadline()
		assert.True(t, ok)
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestTimeoutSkipsStreamRoutes(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(time.Second, "/stream/:id"))

	deadlines := map[string]bool{}
	handler := func(c *gin.Context) {
		_, ok := c.Request.Context().Deadline()
		deadlines[c.FullPath()] = ok
		c.Status(http.StatusNoContent)
	}
	r.GET("/stream/:id", handler)
	r.GET("/items/:id", handler)

	for _, path := range []string{"/stream/1", "/items/1"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	}
	assert.False(t, deadlines["/stream/:id"])
	assert.True(t, deadlines["/items/:id"])
}
