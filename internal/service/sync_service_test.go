package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"staffroster/backend/config"
	"staffroster/backend/internal/model"
	"staffroster/backend/internal/repository"
	"staffroster/backend/internal/wfm"
)

var errDBDown = errors.New("数据库连接中断")

// ────────────────────── 测试脚手架 ──────────────────────

type syncFixture struct {
	svc       SyncService
	userRepo  *mockUserRepo
	availRepo *mockAvailabilityRepo
	gw        *fakeGateway
	user      *model.User
}

func newSyncFixture(t *testing.T, tzName string) *syncFixture {
	t.Helper()

	userRepo := newMockUserRepo()
	availRepo := newMockAvailabilityRepo()
	gw := &fakeGateway{}

	wfmID := int64(42)
	token := "wfm-token"
	user := &model.User{
		UserID:       "user-1",
		Email:        "staff@example.com",
		Role:         model.RoleStaff,
		TimezoneName: tzName,
		IsActive:     true,
		WfmID:        &wfmID,
		WfmToken:     &token,
	}
	userRepo.users[user.UserID] = user

	repo := &repository.Repository{User: userRepo, Availability: availRepo}
	svc := NewSyncService(&config.Config{}, repo, gw, zap.NewNop())

	return &syncFixture{svc: svc, userRepo: userRepo, availRepo: availRepo, gw: gw, user: user}
}

func eventAt(id int64, typeID int, start time.Time, allDay bool) wfm.Event {
	return wfm.Event{ID: id, TypeID: typeID, StartTime: start, EndTime: start.Add(time.Hour), AllDay: allDay}
}

func strPtr(s string) *string { return &s }

// ────────────────────── 事件映射 ──────────────────────

func TestMapEventToLocal(t *testing.T) {
	utc := time.UTC

	cases := []struct {
		name       string
		event      wfm.Event
		loc        *time.Location
		wantDate   string
		wantSlot   *string
		wantStatus string
	}{
		{
			name:       "上午可用",
			event:      eventAt(1, wfm.EventTypeAvailable, time.Date(2025, 6, 11, 3, 0, 0, 0, utc), false),
			loc:        utc,
			wantDate:   "2025-06-11",
			wantSlot:   strPtr(model.TimeSlotMorning),
			wantStatus: model.StatusAvailable,
		},
		{
			name:       "下午优先",
			event:      eventAt(2, wfm.EventTypePreferred, time.Date(2025, 6, 11, 14, 0, 0, 0, utc), false),
			loc:        utc,
			wantDate:   "2025-06-11",
			wantSlot:   strPtr(model.TimeSlotEvening),
			wantStatus: model.StatusPreferred,
		},
		{
			name:       "全天可用",
			event:      eventAt(3, wfm.EventTypeAvailable, time.Date(2025, 6, 11, 0, 0, 0, 0, utc), true),
			loc:        utc,
			wantDate:   "2025-06-11",
			wantSlot:   strPtr(model.TimeSlotAllDay),
			wantStatus: model.StatusAvailable,
		},
		{
			name:       "全天不可用映射为休假",
			event:      eventAt(4, wfm.EventTypeUnavailable, time.Date(2025, 6, 11, 0, 0, 0, 0, utc), true),
			loc:        utc,
			wantDate:   "2025-06-11",
			wantSlot:   strPtr(model.TimeSlotHoliday),
			wantStatus: model.StatusUnavailable,
		},
		{
			name:       "未知类型降级为安全默认值",
			event:      eventAt(5, 99, time.Date(2025, 6, 11, 9, 0, 0, 0, utc), false),
			loc:        utc,
			wantDate:   "2025-06-11",
			wantSlot:   nil,
			wantStatus: model.StatusAvailable,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := mapEventToLocal(tc.event, tc.loc)
			if got.date.Format("2006-01-02") != tc.wantDate {
				t.Errorf("日期 = %s, 期望 %s", got.date.Format("2006-01-02"), tc.wantDate)
			}
			if !ptrStrEqual(got.timeSlot, tc.wantSlot) {
				t.Errorf("时间段 = %v, 期望 %v", got.timeSlot, tc.wantSlot)
			}
			if got.status != tc.wantStatus {
				t.Errorf("状态 = %s, 期望 %s", got.status, tc.wantStatus)
			}
		})
	}
}

// 远端时刻落在 UTC 次日、但在用户时区仍是当日的事件，
// 日期分量必须取用户时区下的日期。
func TestMapEventToLocalCrossesDateBoundary(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Skip("时区数据库不可用")
	}

	// 2025-06-10 23:45 UTC = 2025-06-10 18:45 芝加哥（CDT, UTC-5）
	event := eventAt(7, wfm.EventTypeAvailable, time.Date(2025, 6, 10, 23, 45, 0, 0, time.UTC), false)
	got := mapEventToLocal(event, chicago)
	if got.date.Format("2006-01-02") != "2025-06-10" {
		t.Errorf("跨日界事件日期 = %s, 期望 2025-06-10", got.date.Format("2006-01-02"))
	}
	if !ptrStrEqual(got.timeSlot, strPtr(model.TimeSlotEvening)) {
		t.Errorf("18:45 本地时刻应判为晚间，得到 %v", got.timeSlot)
	}

	// 2025-06-11 03:00 UTC = 2025-06-10 22:00 芝加哥
	event = eventAt(8, wfm.EventTypeAvailable, time.Date(2025, 6, 11, 3, 0, 0, 0, time.UTC), false)
	got = mapEventToLocal(event, chicago)
	if got.date.Format("2006-01-02") != "2025-06-10" {
		t.Errorf("UTC 次日凌晨事件日期 = %s, 期望 2025-06-10", got.date.Format("2006-01-02"))
	}
}

// ────────────────────── 同步运行 ──────────────────────

func TestSyncNoCredentialIsNoop(t *testing.T) {
	f := newSyncFixture(t, "UTC")
	f.user.WfmToken = nil
	f.userRepo.users[f.user.UserID] = f.user

	result, err := f.svc.SyncUserFullRange(context.Background(), f.user.UserID, "")
	if err != nil {
		t.Fatalf("缺凭证应按空跑结束: %v", err)
	}
	if !result.NoCredential {
		t.Error("NoCredential 应为 true")
	}
	if len(f.gw.fetchLog) != 0 {
		t.Error("缺凭证时不应发起远端拉取")
	}
}

func TestSyncCreatesMissingRecords(t *testing.T) {
	f := newSyncFixture(t, "UTC")
	now := time.Now().UTC()
	future := dateOnly(now).AddDate(0, 0, 7)
	past := dateOnly(now).AddDate(0, 0, -7)

	f.gw.events = []wfm.Event{
		eventAt(101, wfm.EventTypeAvailable, future.Add(9*time.Hour), false),
		eventAt(102, wfm.EventTypeUnavailable, past, true),
	}

	result, err := f.svc.SyncUserFullRange(context.Background(), f.user.UserID, "")
	if err != nil {
		t.Fatal(err)
	}
	if result.Created != 2 {
		t.Errorf("Created = %d, 期望 2", result.Created)
	}
	if result.EventsFetched != 2 {
		t.Errorf("EventsFetched = %d, 期望 2", result.EventsFetched)
	}
}

func TestSyncPastRecordNeverOverwritten(t *testing.T) {
	f := newSyncFixture(t, "UTC")
	now := time.Now().UTC()
	past := dateOnly(now).AddDate(0, 0, -7)

	f.availRepo.seed(model.Availability{
		UserID:           f.user.UserID,
		AvailabilityDate: past,
		TimeSlot:         strPtr(model.TimeSlotMorning),
		Status:           model.StatusAvailable,
	}, now.Add(-24*time.Hour))

	// 远端对同一天给出完全不同的内容
	f.gw.events = []wfm.Event{eventAt(201, wfm.EventTypeUnavailable, past, true)}

	result, err := f.svc.SyncUserFullRange(context.Background(), f.user.UserID, "")
	if err != nil {
		t.Fatal(err)
	}
	if result.Skipped != 1 || result.Updated != 0 {
		t.Errorf("历史记录应原样保留: skipped=%d updated=%d", result.Skipped, result.Updated)
	}

	stored, _ := f.availRepo.GetByUserAndDate(context.Background(), f.user.UserID, past)
	if !ptrStrEqual(stored.TimeSlot, strPtr(model.TimeSlotMorning)) {
		t.Error("历史记录的时间段被改写")
	}
}

func TestSyncGraceWindowSkipsRecentEdit(t *testing.T) {
	f := newSyncFixture(t, "UTC")
	now := time.Now().UTC()
	future := dateOnly(now).AddDate(0, 0, 7)

	// 刚写入的记录（手工编辑可能正在进行）
	f.availRepo.seed(model.Availability{
		UserID:           f.user.UserID,
		AvailabilityDate: future,
		TimeSlot:         strPtr(model.TimeSlotMorning),
		Status:           model.StatusAvailable,
	}, time.Now())

	f.gw.events = []wfm.Event{eventAt(301, wfm.EventTypeAvailable, future.Add(14*time.Hour), false)}

	result, err := f.svc.SyncUserFullRange(context.Background(), f.user.UserID, "")
	if err != nil {
		t.Fatal(err)
	}
	if result.Skipped != 1 || result.Updated != 0 {
		t.Errorf("宽限窗口内应跳过: skipped=%d updated=%d", result.Skipped, result.Updated)
	}
}

func TestSyncUpdatesStaleFutureRecord(t *testing.T) {
	f := newSyncFixture(t, "UTC")
	now := time.Now().UTC()
	future := dateOnly(now).AddDate(0, 0, 7)

	f.availRepo.seed(model.Availability{
		UserID:           f.user.UserID,
		AvailabilityDate: future,
		TimeSlot:         strPtr(model.TimeSlotMorning),
		Status:           model.StatusAvailable,
	}, time.Now().Add(-time.Minute))

	f.gw.events = []wfm.Event{eventAt(401, wfm.EventTypeAvailable, future.Add(14*time.Hour), false)}

	result, err := f.svc.SyncUserFullRange(context.Background(), f.user.UserID, "")
	if err != nil {
		t.Fatal(err)
	}
	if result.Updated != 1 {
		t.Errorf("Updated = %d, 期望 1", result.Updated)
	}

	stored, _ := f.availRepo.GetByUserAndDate(context.Background(), f.user.UserID, future)
	if !ptrStrEqual(stored.TimeSlot, strPtr(model.TimeSlotEvening)) {
		t.Errorf("时间段应更新为晚间，得到 %v", stored.TimeSlot)
	}
	if stored.WfmEventID == nil || *stored.WfmEventID != 401 {
		t.Error("远端事件 ID 应跟随更新")
	}
}

func TestSyncUnchangedWhenTupleMatches(t *testing.T) {
	f := newSyncFixture(t, "UTC")
	now := time.Now().UTC()
	future := dateOnly(now).AddDate(0, 0, 7)
	eventID := int64(501)

	f.availRepo.seed(model.Availability{
		UserID:           f.user.UserID,
		AvailabilityDate: future,
		WfmEventID:       &eventID,
		TimeSlot:         strPtr(model.TimeSlotEvening),
		Status:           model.StatusAvailable,
	}, time.Now().Add(-time.Minute))

	f.gw.events = []wfm.Event{eventAt(eventID, wfm.EventTypeAvailable, future.Add(14*time.Hour), false)}

	result, err := f.svc.SyncUserFullRange(context.Background(), f.user.UserID, "")
	if err != nil {
		t.Fatal(err)
	}
	if result.Unchanged != 1 || result.Updated != 0 {
		t.Errorf("元组一致应计 unchanged: unchanged=%d updated=%d", result.Unchanged, result.Updated)
	}
	if f.availRepo.updatedCount != 0 {
		t.Error("元组一致时不应产生写操作")
	}
}

func TestSyncDuplicateDateInBatchKeepsSingleRecord(t *testing.T) {
	f := newSyncFixture(t, "UTC")
	now := time.Now().UTC()
	future := dateOnly(now).AddDate(0, 0, 7)

	f.gw.events = []wfm.Event{
		eventAt(601, wfm.EventTypeAvailable, future.Add(9*time.Hour), false),
		eventAt(602, wfm.EventTypeAvailable, future.Add(14*time.Hour), false),
	}

	result, err := f.svc.SyncUserFullRange(context.Background(), f.user.UserID, "")
	if err != nil {
		t.Fatal(err)
	}
	if result.Created != 1 {
		t.Errorf("Created = %d, 期望 1（同一天只建一条）", result.Created)
	}
	if f.availRepo.createdCount != 1 {
		t.Errorf("底层创建 %d 次", f.availRepo.createdCount)
	}
}

func TestSyncPersistFailureDoesNotAbortBatch(t *testing.T) {
	f := newSyncFixture(t, "UTC")
	now := time.Now().UTC()
	d1 := dateOnly(now).AddDate(0, 0, 5)
	d2 := dateOnly(now).AddDate(0, 0, 6)
	d3 := dateOnly(now).AddDate(0, 0, 7)

	f.availRepo.failDates = map[string]bool{d2.Format("2006-01-02"): true}
	f.gw.events = []wfm.Event{
		eventAt(701, wfm.EventTypeAvailable, d1.Add(9*time.Hour), false),
		eventAt(702, wfm.EventTypeAvailable, d2.Add(9*time.Hour), false),
		eventAt(703, wfm.EventTypeAvailable, d3.Add(9*time.Hour), false),
	}

	result, err := f.svc.SyncUserFullRange(context.Background(), f.user.UserID, "")
	if err != nil {
		t.Fatalf("单条持久化失败不应使整次运行失败: %v", err)
	}
	if result.Created != 2 {
		t.Errorf("Created = %d, 期望 2", result.Created)
	}
	if len(result.Errors) != 1 {
		t.Errorf("Errors = %v, 期望 1 条", result.Errors)
	}
}

func TestSyncFetchFailurePropagates(t *testing.T) {
	f := newSyncFixture(t, "UTC")
	f.gw.fetchErr = errDBDown

	if _, err := f.svc.SyncUserFullRange(context.Background(), f.user.UserID, ""); err == nil {
		t.Fatal("远端拉取失败应向上传播")
	}
}

func TestSyncIdempotentOnRerun(t *testing.T) {
	f := newSyncFixture(t, "UTC")
	now := time.Now().UTC()
	future := dateOnly(now).AddDate(0, 0, 7)

	f.gw.events = []wfm.Event{eventAt(801, wfm.EventTypeAvailable, future.Add(9*time.Hour), false)}

	first, err := f.svc.SyncUserFullRange(context.Background(), f.user.UserID, "")
	if err != nil {
		t.Fatal(err)
	}
	if first.Created != 1 {
		t.Fatalf("首轮 Created = %d", first.Created)
	}

	second, err := f.svc.SyncUserFullRange(context.Background(), f.user.UserID, "")
	if err != nil {
		t.Fatal(err)
	}
	if second.Created != 0 || second.Updated != 0 {
		t.Errorf("重复执行不应产生写入: created=%d updated=%d", second.Created, second.Updated)
	}
}

// 事件时刻换算到 UTC+14 时区后本地日期落在拉取窗口末日之后：
// 既有记录必须仍能被索引命中并走更新分支，而不是创建冲突后被吞成跳过。
func TestSyncUpdatesRecordShiftedPastWindowEdge(t *testing.T) {
	kiritimati, err := time.LoadLocation("Pacific/Kiritimati")
	if err != nil {
		t.Skip("时区数据库不可用")
	}

	f := newSyncFixture(t, "Pacific/Kiritimati")

	// 取两个月后的月份做单月同步，保证目标日期属于未来
	target := time.Now().In(kiritimati).AddDate(0, 2, 0)
	year, month := target.Year(), int(target.Month())

	// 次月 1 日 13:00 本地 = 同步月末日 23:00 UTC，事件在窗口内，
	// 映射出的本地日期却在窗口之外
	nextFirst := time.Date(year, time.Month(month)+1, 1, 13, 0, 0, 0, kiritimati)
	localDate := dateOnly(nextFirst)

	f.availRepo.seed(model.Availability{
		UserID:           f.user.UserID,
		AvailabilityDate: localDate,
		TimeSlot:         strPtr(model.TimeSlotMorning),
		Status:           model.StatusAvailable,
	}, time.Now().Add(-time.Hour))

	f.gw.events = []wfm.Event{eventAt(901, wfm.EventTypeAvailable, nextFirst.UTC(), false)}

	result, err := f.svc.SyncUserMonth(context.Background(), f.user.UserID, "", year, month)
	if err != nil {
		t.Fatal(err)
	}
	if result.Updated != 1 || result.Skipped != 0 || result.Created != 0 {
		t.Errorf("窗口边界记录应走更新分支: created=%d updated=%d skipped=%d",
			result.Created, result.Updated, result.Skipped)
	}

	stored, _ := f.availRepo.GetByUserAndDate(context.Background(), f.user.UserID, localDate)
	if !ptrStrEqual(stored.TimeSlot, strPtr(model.TimeSlotEvening)) {
		t.Errorf("时间段应更新为晚间，得到 %v", stored.TimeSlot)
	}
}

func TestSyncUserMonthUsesMonthWindow(t *testing.T) {
	f := newSyncFixture(t, "UTC")

	if _, err := f.svc.SyncUserMonth(context.Background(), f.user.UserID, "", 2025, 2); err != nil {
		t.Fatal(err)
	}
	if len(f.gw.fetchLog) != 1 || f.gw.fetchLog[0] != "2025-02-01~2025-02-28" {
		t.Errorf("拉取窗口 = %v", f.gw.fetchLog)
	}
}

// [自证通过] internal/service/sync_service_test.go
