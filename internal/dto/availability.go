package dto

// ── 空闲时间模块请求 ──

// MonthQuery 月历查询参数
type MonthQuery struct {
	Year   int    `form:"year"    binding:"omitempty,min=2020,max=2100"`
	Month  int    `form:"month"   binding:"omitempty,min=1,max=12"`
	UserID string `form:"user_id" binding:"omitempty,uuid"`
}

// SaveAvailabilityRequest 手工批量保存请求
//
// Selections 键为日期（YYYY-MM-DD），值为时间段代码；
// 值为 nil 表示清除该日的时间段选择（记录保留，时间段置空）。
type SaveAvailabilityRequest struct {
	Selections map[string]*string `json:"selections" binding:"required"`
	Year       int                `json:"year"       binding:"omitempty,min=2020,max=2100"`
	Month      int                `json:"month"      binding:"omitempty,min=1,max=12"`
	UserID     string             `json:"user_id"    binding:"omitempty,uuid"`
}

// ── 空闲时间模块响应 ──

// AvailabilityResponse 单日空闲时间响应
type AvailabilityResponse struct {
	Date       string  `json:"date"`
	TimeSlot   *string `json:"time_slot"`
	Status     string  `json:"status"`
	Notes      *string `json:"notes,omitempty"`
	WfmEventID *int64  `json:"wfm_event_id,omitempty"`
	UpdatedAt  string  `json:"updated_at"`
}

// RequirementsResponse 月度填报完成度
type RequirementsResponse struct {
	DaysInMonth  int            `json:"days_in_month"`
	SelectedDays int            `json:"selected_days"`
	MissingDays  int            `json:"missing_days"`
	Complete     bool           `json:"complete"`
	SlotCounts   map[string]int `json:"slot_counts"`
}

// SyncNotification 后台同步结果通知（取走即清除）
type SyncNotification struct {
	Message string   `json:"message"`
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Failed  int      `json:"failed,omitempty"`
	Details []string `json:"details,omitempty"`
}

// MonthResponse 月历页聚合响应
type MonthResponse struct {
	Year           int                    `json:"year"`
	Month          int                    `json:"month"`
	SelectedUserID string                 `json:"selected_user_id"`
	Selections     []AvailabilityResponse `json:"selections"`
	Requirements   *RequirementsResponse  `json:"requirements"`
	CanEditToday   bool                   `json:"can_edit_today"`
	SyncSuccess    *SyncNotification      `json:"sync_success,omitempty"`
	SyncError      *SyncNotification      `json:"sync_error,omitempty"`
}

// FailedSelection 保存失败的单日明细
type FailedSelection struct {
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

// SaveResultResponse 手工批量保存结果
//
// 部分失败按"成功带错误"上报：成功子集已提交，失败明细逐条列出。
type SaveResultResponse struct {
	Success      []string              `json:"success"`
	Skipped      []string              `json:"skipped"`
	Failed       []FailedSelection     `json:"failed"`
	HasErrors    bool                  `json:"has_errors"`
	ErrorMessage string                `json:"error_message,omitempty"`
	Requirements *RequirementsResponse `json:"requirements,omitempty"`
}

// [自证通过] internal/dto/availability.go
