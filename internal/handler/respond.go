// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"omnidocs-go/internal/uperr"
)

// httpStatus 把错误分类映射为 HTTP 状态码。
func httpStatus(err error) int {
	switch {
	case errors.Is(err, uperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, uperr.ErrInvalidRange):
		return http.StatusRequestedRangeNotSatisfiable
	case errors.Is(err, uperr.ErrRangeConflict):
		return http.StatusConflict
	case errors.Is(err, uperr.ErrQuotaExceeded):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, uperr.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, uperr.ErrSessionExpired):
		return http.StatusGone
	case errors.Is(err, uperr.ErrSessionClosed):
		return http.StatusConflict
	case errors.Is(err, uperr.ErrIntegrityMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, uperr.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondErr 以统一结构返回错误。
func respondErr(c *gin.Context, err error) {
	c.JSON(httpStatus(err), gin.H{
		"code":    uperr.Code(err),
		"message": err.Error(),
	})
}
