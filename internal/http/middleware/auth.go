package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/trendwatch-backend/internal/platform/ctxutil"
	"github.com/yungbote/trendwatch-backend/internal/platform/logger"
)

// OperatorClaims are the claims accepted on operator tokens.
type OperatorClaims struct {
	jwt.RegisteredClaims
}

type AuthMiddleware struct {
	log    *logger.Logger
	secret []byte
}

// NewAuthMiddleware verifies HS256 bearer tokens signed with secret. An empty
// secret disables verification.
func NewAuthMiddleware(log *logger.Logger, secret string) *AuthMiddleware {
	if log == nil {
		log = logger.Nop()
	}
	return &AuthMiddleware{log: log.With("middleware", "AuthMiddleware"), secret: []byte(strings.TrimSpace(secret))}
}

func (am *AuthMiddleware) Enabled() bool { return len(am.secret) > 0 }

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !am.Enabled() {
			c.Next()
			return
		}
		tokenString := extractToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "missing or invalid token", "code": "unauthorized"},
			})
			return
		}
		subject, err := am.verify(tokenString)
		if err != nil {
			am.log.Debug("rejected operator token", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": err.Error(), "code": "unauthorized"},
			})
			return
		}
		c.Request = c.Request.WithContext(ctxutil.WithOperator(c.Request.Context(), subject))
		c.Next()
	}
}

func (am *AuthMiddleware) verify(tokenString string) (string, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	parsed, err := parser.ParseWithClaims(tokenString, &OperatorClaims{}, func(t *jwt.Token) (any, error) {
		return am.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := parsed.Claims.(*OperatorClaims)
	if !ok || !parsed.Valid {
		return "", fmt.Errorf("invalid or expired token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", fmt.Errorf("token missing subject")
	}
	return claims.Subject, nil
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
