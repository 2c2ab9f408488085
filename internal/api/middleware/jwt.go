package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/kajrofficep/cafeteria/internal/model"
	"github.com/kajrofficep/cafeteria/internal/pkg/session"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type customClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// AuthMiddleware 校验 JWT 并将 userID / role / jti 写入上下文。
//
// revoked 非 nil 时，同时拒绝已注销（撤销名单命中）的令牌。
func AuthMiddleware(jwtSecret string, revoked *session.RevocationList) gin.HandlerFunc {
	secret := []byte(jwtSecret)
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			c.Abort()
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			c.Abort()
			return
		}

		tokenStr := parts[1]
		claims := &customClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			return secret, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		if claims.Subject == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token subject"})
			c.Abort()
			return
		}

		uid, err := strconv.ParseUint(claims.Subject, 10, 64)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user id"})
			c.Abort()
			return
		}

		if revoked != nil && claims.ID != "" {
			isRevoked, err := revoked.IsRevoked(c.Request.Context(), claims.ID)
			if err == nil && isRevoked {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "token revoked"})
				c.Abort()
				return
			}
		}

		role, ok := model.ParseRole(strings.TrimSpace(strings.ToLower(claims.Role)))
		if !ok {
			role = model.RoleUser
		}

		c.Set("userID", uint(uid))
		c.Set("role", role)
		c.Set("jti", claims.ID)
		if claims.ExpiresAt != nil {
			c.Set("tokenExpiresAt", claims.ExpiresAt.Time)
		}
		c.Next()
	}
}
