package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"omnidocs-go/internal/middleware"
	"omnidocs-go/internal/model"
	"omnidocs-go/internal/service"
	"omnidocs-go/pkg/log"
)

// DocumentHandler 负责处理文档查询相关的 API 请求。
type DocumentHandler struct {
	documentService service.DocumentService
}

// NewDocumentHandler 创建一个新的 DocumentHandler 实例。
func NewDocumentHandler(documentService service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

// ListDocuments 分页返回当前租户的文档，按创建时间倒序。
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	if err != nil || pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	tenantID := middleware.MustClaims(c).TenantID
	docs, total, err := h.documentService.ListDocuments(tenantID, pageSize, (page-1)*pageSize)
	if err != nil {
		log.Error("ListDocuments: 查询文档列表失败", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total":     total,
		"page":      page,
		"pageSize":  pageSize,
		"documents": docs,
	})
}

// GetDocument 返回单个文档的元数据与处理状态。
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	doc, ok := h.ownedDocument(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"document": doc})
}

// GetSegments 返回文档的全部分段，按序号升序。
func (h *DocumentHandler) GetSegments(c *gin.Context) {
	doc, ok := h.ownedDocument(c)
	if !ok {
		return
	}

	segments, err := h.documentService.GetSegments(doc.ID)
	if err != nil {
		log.Error("GetSegments: 查询分段失败", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"documentId": doc.ID, "segments": segments})
}

// GenerateDownloadURL 为文档原始对象签发限时下载链接。
func (h *DocumentHandler) GenerateDownloadURL(c *gin.Context) {
	doc, ok := h.ownedDocument(c)
	if !ok {
		return
	}

	url, err := h.documentService.GetDownloadURL(c.Request.Context(), doc)
	if err != nil {
		log.Error("GenerateDownloadURL: 生成下载链接失败", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"documentId": doc.ID, "url": url})
}

// ownedDocument 取出文档并校验租户归属，失败时已写入响应。
// 跨租户访问按不存在处理，避免泄露文档是否存在。
func (h *DocumentHandler) ownedDocument(c *gin.Context) (*model.Document, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的文档标识"})
		return nil, false
	}

	doc, err := h.documentService.GetDocument(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "文档不存在"})
			return nil, false
		}
		log.Error("ownedDocument: 查询文档失败", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return nil, false
	}
	if doc.TenantID != middleware.MustClaims(c).TenantID {
		c.JSON(http.StatusNotFound, gin.H{"error": "文档不存在"})
		return nil, false
	}
	return doc, true
}
