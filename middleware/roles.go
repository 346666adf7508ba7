package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zidanindratama/be-gunasmash/utils"
)

// RoleRequired allows the request through only when the authenticated user's
// role is in the given set. Must run after AuthRequired.
func RoleRequired(roles ...string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		role, ok := ctx.Get(ContextRoleKey)
		if !ok {
			utils.Error(ctx, http.StatusForbidden, 40301, "forbidden")
			ctx.Abort()
			return
		}
		for _, r := range roles {
			if role == r {
				ctx.Next()
				return
			}
		}
		utils.Error(ctx, http.StatusForbidden, 40302, "insufficient role")
		ctx.Abort()
	}
}
