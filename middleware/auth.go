package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"marketplace-svc/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ContextEmail    = "email"
	ContextUserType = "user_type"
)

const tokenTTL = 24 * time.Hour

type Claims struct {
	Email string          `json:"email"`
	Type  models.UserType `json:"type"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 bearer token for the user.
func IssueToken(secret []byte, user models.User, now time.Time) (string, error) {
	claims := Claims{
		Email: user.Email,
		Type:  user.Type,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func ParseToken(secret []byte, raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if claims.Email == "" {
		return nil, errors.New("token has no email claim")
	}
	return claims, nil
}

// AuthMiddleware requires a valid bearer token and stores the caller's
// email and type on the gin context.
func AuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing bearer token"})
			return
		}

		claims, err := ParseToken(secret, raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(ContextEmail, claims.Email)
		c.Set(ContextUserType, string(claims.Type))
		c.Next()
	}
}

// RequireUserType must run after AuthMiddleware.
func RequireUserType(t models.UserType) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextUserType) != string(t) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": fmt.Sprintf("%s account required", t)})
			return
		}
		c.Next()
	}
}

func CallerEmail(c *gin.Context) string {
	return c.GetString(ContextEmail)
}
