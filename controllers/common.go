package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/zidanindratama/be-gunasmash/middleware"
)

// getUserID reads the authenticated user's ID from the request context.
func getUserID(ctx *gin.Context) (uint, bool) {
	userID, ok := ctx.Get(middleware.ContextUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := userID.(uint)
	return id, ok
}

// getRole reads the authenticated user's role from the request context.
func getRole(ctx *gin.Context) (string, bool) {
	role, ok := ctx.Get(middleware.ContextRoleKey)
	if !ok {
		return "", false
	}
	r, ok := role.(string)
	return r, ok
}
