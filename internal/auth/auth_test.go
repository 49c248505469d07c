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

func router(v *Verifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Session(false))
	r.GET("/me", v.RequireUser(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": UserID(c), "sid": SessionID(c)})
	})
	r.GET("/open", func(c *gin.Context) { c.String(http.StatusOK, SessionID(c)) })
	return r
}

func TestRequireUser(t *testing.T) {
	v := NewVerifier("jwt-secret")
	r := router(v)

	token, err := v.Issue("user-1", time.Hour)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user":"user-1"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireUser_RejectsExpiredAndForeignTokens(t *testing.T) {
	v := NewVerifier("jwt-secret")
	r := router(v)

	expired, err := v.Issue("user-1", -time.Minute)
	require.NoError(t, err)
	foreign, err := NewVerifier("other-secret").Issue("user-1", time.Hour)
	require.NoError(t, err)
	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "user-1"}).SignedString([]byte("jwt-secret"))
	require.NoError(t, err)

	for name, tok := range map[string]string{"expired": expired, "foreign": foreign, "no expiry": noExpiry} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, name)
	}
}

func TestSession_IssuesAndReusesCookie(t *testing.T) {
	r := router(NewVerifier("jwt-secret"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/open", nil))
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, cookies[0].Value, w.Body.String())

	w2 := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	req.AddCookie(cookies[0])
	r.ServeHTTP(w2, req)
	assert.Equal(t, cookies[0].Value, w2.Body.String())
	assert.Empty(t, w2.Result().Cookies(), "existing session is kept")
}
