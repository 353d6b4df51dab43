package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"omnidocs-go/internal/middleware"
	"omnidocs-go/internal/quota"
	"omnidocs-go/pkg/log"
)

// TenantHandler 负责处理租户配额相关的 API 请求。
type TenantHandler struct {
	ledger *quota.Ledger
}

// NewTenantHandler 创建一个新的 TenantHandler 实例。
func NewTenantHandler(ledger *quota.Ledger) *TenantHandler {
	return &TenantHandler{ledger: ledger}
}

// GetQuota 返回当前租户的配额视图：已用、在途预留与上限。
func (h *TenantHandler) GetQuota(c *gin.Context) {
	claims := middleware.MustClaims(c)

	used, reserved, quotaBytes, err := h.ledger.Usage(claims.TenantID)
	if err != nil {
		log.Error("GetQuota: 查询配额失败", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tenantId":   claims.TenantID,
		"quotaBytes": quotaBytes,
		"usedBytes":  used,
		"reserved":   reserved,
		"available":  quotaBytes - used - reserved,
	})
}
