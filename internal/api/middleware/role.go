package middleware

import (
	"errors"
	"net/http"

	"github.com/kajrofficep/cafeteria/internal/authz"
	"github.com/kajrofficep/cafeteria/internal/model"

	"github.com/gin-gonic/gin"
)

// RequireRole 只放行角色等于 required 的已认证请求。
// 必须挂在 AuthMiddleware 之后。
func RequireRole(required model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleVal, authenticated := c.Get("role")
		role, _ := roleVal.(model.Role)

		err := authz.AuthorizeRole(role, authenticated, required)
		switch {
		case errors.Is(err, authz.ErrUnauthenticated):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			c.Abort()
		case errors.Is(err, authz.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			c.Abort()
		default:
			c.Next()
		}
	}
}
