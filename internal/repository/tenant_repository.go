package repository

import (
	"gorm.io/gorm"

	"omnidocs-go/internal/model"
)

// TenantRepository 接口定义了租户配额数据的持久化操作。
type TenantRepository interface {
	GetByID(tenantID uint) (*model.Tenant, error)
	// AddUsedBytes 以原子自增的方式调整租户已用字节数，返回数据库中的最新值。
	AddUsedBytes(tenantID uint, delta int64) (int64, error)
}

// tenantRepository 是 TenantRepository 接口的 GORM 实现。
type tenantRepository struct {
	db *gorm.DB
}

// NewTenantRepository 创建一个新的 TenantRepository 实例。
func NewTenantRepository(db *gorm.DB) TenantRepository {
	return &tenantRepository{db: db}
}

// GetByID 根据租户 ID 检索租户记录。
func (r *tenantRepository) GetByID(tenantID uint) (*model.Tenant, error) {
	var tenant model.Tenant
	err := r.db.Where("id = ?", tenantID).First(&tenant).Error
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// AddUsedBytes 在数据库层面原子地调整 used_bytes，避免并发丢失更新。
func (r *tenantRepository) AddUsedBytes(tenantID uint, delta int64) (int64, error) {
	err := r.db.Model(&model.Tenant{}).
		Where("id = ?", tenantID).
		Update("used_bytes", gorm.Expr("used_bytes + ?", delta)).Error
	if err != nil {
		return 0, err
	}

	var tenant model.Tenant
	if err := r.db.Select("used_bytes").Where("id = ?", tenantID).First(&tenant).Error; err != nil {
		return 0, err
	}
	return tenant.UsedBytes, nil
}
