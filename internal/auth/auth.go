// Package auth verifies identity provider tokens and issues the device
// session cookie.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// ContextUserID holds the authenticated user id in the gin context.
	ContextUserID = "user_id"
	// ContextSessionID holds the device session id in the gin context.
	ContextSessionID = "session_id"

	SessionCookie = "sid"
	sessionMaxAge = 30 * 24 * 60 * 60
)

var ErrMissingToken = errors.New("authorization header missing or invalid")

// Claims are the identity provider's token claims. The user id is the
// standard subject.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses an HS256 token and returns its claims.
func (v *Verifier) Verify(token string) (*Claims, error) {
	if len(v.secret) == 0 {
		return nil, errors.New("jwt secret not configured")
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// Issue signs a token for userID. Used by tests and local tooling; real
// tokens come from the identity provider.
func (v *Verifier) Issue(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// RequireUser rejects requests without a valid bearer token and stores the
// user id under ContextUserID.
func (v *Verifier) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": ErrMissingToken.Error()})
			return
		}
		claims, err := v.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid or expired token"})
			return
		}
		c.Set(ContextUserID, claims.Subject)
		c.Next()
	}
}

// Session makes sure every request carries a device session id, issuing
// the sid cookie on first contact.
func Session(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, err := c.Cookie(SessionCookie)
		if err != nil || !validSession(sid) {
			sid = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(SessionCookie, sid, sessionMaxAge, "/", "", secure, true)
		}
		c.Set(ContextSessionID, sid)
		c.Next()
	}
}

func UserID(c *gin.Context) string { return c.GetString(ContextUserID) }
func SessionID(c *gin.Context) string { return c.GetString(ContextSessionID) }

func validSession(sid string) bool {
	_, err := uuid.Parse(sid)
	return err == nil
}
