package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"staffroster/backend/internal/dto"
	"staffroster/backend/internal/service"
	"staffroster/backend/pkg/response"
)

// UserHandler 用户接口处理器
type UserHandler struct {
	svc    *service.Service
	logger *zap.Logger
}

// NewUserHandler 创建 UserHandler 实例
func NewUserHandler(svc *service.Service, logger *zap.Logger) *UserHandler {
	return &UserHandler{svc: svc, logger: logger}
}

// List 分页查询用户列表
// GET /api/v1/users
func (h *UserHandler) List(c *gin.Context) {
	var page dto.PaginationRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BadRequest(c, 40001, "请求参数无效")
		return
	}

	users, total, err := h.svc.User.List(c.Request.Context(), &page)
	if err != nil {
		h.logger.Error("查询用户列表失败", zap.Error(err))
		response.InternalError(c)
		return
	}

	response.OKPage(c, users, total, page.GetPage(), page.GetPageSize())
}

// Get 查询单个用户
// GET /api/v1/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.svc.User.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.NotFound(c, 40401, err.Error())
			return
		}
		h.logger.Error("查询用户失败", zap.Error(err))
		response.InternalError(c)
		return
	}
	response.OK(c, user)
}
