package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuth(duration time.Duration) *Auth {
	return New(Config{JWTSecret: "test-secret", TokenDuration: duration})
}

func TestTokenRoundTrip(t *testing.T) {
	a := newTestAuth(time.Hour)

	token, err := a.GenerateToken(42, "alice")
	require.NoError(t, err)

	claims, err := a.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "wordextremist", claims.Issuer)
}

func TestExpiredTokenRejected(t *testing.T) {
	a := newTestAuth(-time.Minute)

	token, err := a.GenerateToken(42, "alice")
	require.NoError(t, err)

	_, err = a.ValidateToken(token)
	assert.Error(t, err)
}

func TestTokenFromDifferentSecretRejected(t *testing.T) {
	token, err := newTestAuth(time.Hour).GenerateToken(42, "alice")
	require.NoError(t, err)

	other := New(Config{JWTSecret: "other-secret", TokenDuration: time.Hour})
	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a := newTestAuth(time.Hour)

	router := gin.New()
	router.GET("/protected", a.AuthMiddleware(), func(c *gin.Context) {
		userID, _ := GetUserID(c)
		username, _ := GetUsername(c)
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "username": username})
	})

	// No header
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Malformed header
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token abc")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Valid token
	token, err := a.GenerateToken(7, "bob")
	require.NoError(t, err)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":7`)
}

func TestAuthenticateQueryToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a := newTestAuth(time.Hour)
	token, err := a.GenerateToken(9, "carol")
	require.NoError(t, err)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/ws/game/g1?token="+token, nil)

	userID, username, err := a.AuthenticateQueryToken(c)
	require.NoError(t, err)
	assert.Equal(t, int64(9), userID)
	assert.Equal(t, "carol", username)

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/ws/game/g1", nil)
	_, _, err = a.AuthenticateQueryToken(c)
	assert.Error(t, err)
}
