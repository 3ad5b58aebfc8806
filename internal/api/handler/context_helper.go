package handler

import (
	"github.com/gin-gonic/gin"

	"staffroster/backend/internal/api/middleware"
	"staffroster/backend/pkg/jwt"
)

// MustGetUserID 从上下文取当前用户 ID（认证中间件已保证存在）
func MustGetUserID(c *gin.Context) string {
	return c.GetString(middleware.CtxUserID)
}

// MustGetRole 从上下文取当前用户角色
func MustGetRole(c *gin.Context) string {
	return c.GetString(middleware.CtxRole)
}

// GetClaims 从上下文取 JWT Claims
func GetClaims(c *gin.Context) *jwt.Claims {
	v, ok := c.Get(middleware.CtxClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*jwt.Claims)
	return claims
}
