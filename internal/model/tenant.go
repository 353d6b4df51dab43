// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// Tenant 对应于数据库中的 tenants 表。
// QuotaBytes 与 UsedBytes 是配额台账的持久化依据；
// 进行中的预留只存在于内存台账中，不落库。
type Tenant struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name       string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
	QuotaBytes int64     `gorm:"not null" json:"quotaBytes"`
	UsedBytes  int64     `gorm:"not null;default:0" json:"usedBytes"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Tenant) TableName() string {
	return "tenants"
}
