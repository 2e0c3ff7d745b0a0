package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/qiuethan/RT1M-sub001/logger"
	"github.com/qiuethan/RT1M-sub001/models"
)

const (
	UserKey   = "user"
	UserIDKey = "uid"
)

var errNoSecret = errors.New("SUPABASE_JWT_SECRET not configured")

// ParseToken verifies a Supabase HS256 access token and its issuer.
func ParseToken(tokenString, secret, supabaseURL string) (*models.SupabaseClaims, error) {
	if secret == "" {
		return nil, errNoSecret
	}
	claims := &models.SupabaseClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithIssuer(supabaseURL+"/auth/v1"))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Sub == "" {
		claims.Sub = claims.Subject
	}
	if claims.Sub == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// Auth verifies the bearer token of every request. Any failure, including a
// missing secret, rejects the request.
func Auth(secret, supabaseURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c.Request)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid token", "code": models.KindAuth})
			return
		}
		claims, err := ParseToken(tokenString, secret, supabaseURL)
		if err != nil {
			logger.Get().Warn("rejected access token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "code": models.KindAuth})
			return
		}
		c.Set(UserKey, claims)
		c.Set(UserIDKey, claims.Sub)
		c.Next()
	}
}

// UserID returns the authenticated user, or "" when the request carries none.
func UserID(c *gin.Context) string {
	user, exists := c.Get(UserKey)
	if !exists {
		return ""
	}
	claims, ok := user.(*models.SupabaseClaims)
	if !ok {
		return ""
	}
	return claims.Sub
}

func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}

	return parts[1]
}
