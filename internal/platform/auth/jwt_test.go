package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(secret string, roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/guarded", Middleware(secret, roles...), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

func call(r http.Handler, token string) int {
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestMiddleware(t *testing.T) {
	secret := "s3cret"

	t.Run("Disabled without secret", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, call(newRouter("", RoleAdmin), ""))
	})

	t.Run("Missing token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, call(newRouter(secret, RoleAdmin), ""))
	})

	t.Run("Wrong role", func(t *testing.T) {
		token, err := IssueToken(secret, "caja-1", RoleClerk, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, call(newRouter(secret, RoleAdmin), token))
	})

	t.Run("Allowed role", func(t *testing.T) {
		token, err := IssueToken(secret, "caja-1", RoleClerk, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, call(newRouter(secret, RoleClerk, RoleAdmin), token))
	})

	t.Run("Token signed with another secret", func(t *testing.T) {
		token, err := IssueToken("other", "caja-1", RoleAdmin, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, call(newRouter(secret, RoleAdmin), token))
	})

	t.Run("Expired token", func(t *testing.T) {
		token, err := IssueToken(secret, "caja-1", RoleAdmin, -time.Minute)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, call(newRouter(secret, RoleAdmin), token))
	})
}

func TestInspectServiceKey(t *testing.T) {
	exp := time.Now().Add(24 * time.Hour).Truncate(time.Second)
	key, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": "anon",
		"exp":  exp.Unix(),
	}).SignedString([]byte("supabase-secret"))
	require.NoError(t, err)

	info, err := InspectServiceKey(key)
	require.NoError(t, err)
	assert.Equal(t, "anon", info.Role)
	assert.True(t, exp.Equal(info.ExpiresAt))

	_, err = InspectServiceKey("not-a-jwt")
	assert.Error(t, err)
}
