package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"omnidocs-go/internal/middleware"
	"omnidocs-go/internal/model"
	"omnidocs-go/internal/session"
	"omnidocs-go/internal/uperr"
	"omnidocs-go/pkg/log"
)

// UploadHandler 负责处理断点续传会话相关的 API 请求。
type UploadHandler struct {
	machine *session.Machine
	hub     *Hub
}

// NewUploadHandler 创建一个新的 UploadHandler 实例。
func NewUploadHandler(machine *session.Machine, hub *Hub) *UploadHandler {
	return &UploadHandler{machine: machine, hub: hub}
}

// InitUploadRequest 定义了会话初始化 API 的请求体结构。
type InitUploadRequest struct {
	Filename    string `json:"filename" binding:"required"`
	TotalSize   int64  `json:"totalSize" binding:"required"`
	ChunkSize   int64  `json:"chunkSize" binding:"required"`
	ContentHash string `json:"contentHash"`
}

// InitUpload 处理会话初始化请求。
func (h *UploadHandler) InitUpload(c *gin.Context) {
	var req InitUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, uperr.Wrapf(uperr.ErrValidation, "无效的请求负载: %v", err))
		return
	}
	claims := middleware.MustClaims(c)

	sess, err := h.machine.Init(c.Request.Context(), claims.TenantID, claims.UserID,
		req.Filename, req.TotalSize, req.ChunkSize, req.ContentHash)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, sessionCreatedBody(sess))
}

// sessionCreatedBody 组装初始化响应：会话本体、续传端点与推导的分片总数。
func sessionCreatedBody(sess *model.UploadSession) gin.H {
	return gin.H{
		"session":     sess,
		"uploadUrl":   fmt.Sprintf("/api/v1/documents/upload/resumable/%s", sess.SessionID),
		"totalChunks": sess.TotalChunks(),
		"expiresAt":   sess.ExpiresAt,
	}
}

// BatchUploadRequest 定义了批量初始化 API 的请求体结构。
type BatchUploadRequest struct {
	Files []InitUploadRequest `json:"files" binding:"required"`
}

// InitBatch 处理批量会话初始化请求：整批文件共用一次配额判定。
func (h *UploadHandler) InitBatch(c *gin.Context) {
	var req BatchUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, uperr.Wrapf(uperr.ErrValidation, "无效的请求负载: %v", err))
		return
	}
	claims := middleware.MustClaims(c)

	decls := make([]session.FileDecl, 0, len(req.Files))
	for _, f := range req.Files {
		decls = append(decls, session.FileDecl{
			Filename:    f.Filename,
			TotalSize:   f.TotalSize,
			ChunkSize:   f.ChunkSize,
			ContentHash: f.ContentHash,
		})
	}

	sessions, err := h.machine.InitBatch(c.Request.Context(), claims.TenantID, claims.UserID, decls)
	if err != nil {
		respondErr(c, err)
		return
	}
	bodies := make([]gin.H, 0, len(sessions))
	for _, sess := range sessions {
		bodies = append(bodies, sessionCreatedBody(sess))
	}
	c.JSON(http.StatusCreated, gin.H{"sessions": bodies})
}

// UploadChunk 处理分片提交请求。字节区间由 Content-Range 头声明，请求体为原始分片字节。
func (h *UploadHandler) UploadChunk(c *gin.Context) {
	sessionID := c.Param("sessionID")
	start, end, _, err := parseContentRange(c.GetHeader("Content-Range"))
	if err != nil {
		respondErr(c, err)
		return
	}

	res, err := h.machine.AcceptChunk(c.Request.Context(), sessionID, start, end, c.Request.Body)
	if err != nil {
		respondErr(c, err)
		return
	}

	h.hub.BroadcastProgress(middleware.MustClaims(c).TenantID, res)

	body := gin.H{
		"sessionId":     res.SessionID,
		"status":        res.Status,
		"bytesReceived": res.BytesReceived,
		"totalSize":     res.TotalSize,
		"progress":      res.Progress,
	}
	if res.DocumentID != nil {
		body["documentId"] = *res.DocumentID
	}
	c.JSON(http.StatusOK, body)
}

// GetStatus 返回会话当前进度与已接受的区间，供断点续传的客户端恢复现场。
func (h *UploadHandler) GetStatus(c *gin.Context) {
	sess, err := h.ownedSession(c)
	if err != nil {
		respondErr(c, err)
		return
	}

	ranges, err := h.machine.ReceivedRanges(c.Request.Context(), sess.SessionID)
	if err != nil {
		log.Warnf("[GetStatus] 读取已接受区间失败, session=%s: %v", sess.SessionID, err)
	}
	received := make([]gin.H, 0, len(ranges))
	for _, r := range ranges {
		received = append(received, gin.H{"start": r.Start, "end": r.End})
	}

	c.JSON(http.StatusOK, gin.H{
		"session":        sess,
		"totalChunks":    sess.TotalChunks(),
		"receivedRanges": received,
	})
}

// CancelUpload 取消一个进行中的会话。
func (h *UploadHandler) CancelUpload(c *gin.Context) {
	sess, err := h.ownedSession(c)
	if err != nil {
		respondErr(c, err)
		return
	}
	if err := h.machine.Cancel(c.Request.Context(), sess.SessionID); err != nil {
		respondErr(c, err)
		return
	}
	log.Infof("[CancelUpload] 会话已取消, session=%s, tenant=%d", sess.SessionID, sess.TenantID)
	c.JSON(http.StatusOK, gin.H{"sessionId": sess.SessionID, "status": "cancelled"})
}

// ownedSession 取出会话并校验归属，跨租户访问按不存在处理。
func (h *UploadHandler) ownedSession(c *gin.Context) (*model.UploadSession, error) {
	sessionID := c.Param("sessionID")
	sess, err := h.machine.Status(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.TenantID != middleware.MustClaims(c).TenantID {
		return nil, uperr.Wrapf(uperr.ErrSessionNotFound, "会话 %s 不存在", sessionID)
	}
	return sess, nil
}

// parseContentRange 解析 "bytes <start>-<end>/<total>" 形式的 Content-Range 头。
func parseContentRange(header string) (start, end, total int64, err error) {
	if header == "" {
		return 0, 0, 0, uperr.Wrapf(uperr.ErrInvalidRange, "缺少 Content-Range 头")
	}
	if !strings.HasPrefix(header, "bytes ") {
		return 0, 0, 0, uperr.Wrapf(uperr.ErrInvalidRange, "Content-Range 头格式错误: %q", header)
	}
	if _, serr := fmt.Sscanf(header, "bytes %d-%d/%d", &start, &end, &total); serr != nil {
		return 0, 0, 0, uperr.Wrapf(uperr.ErrInvalidRange, "Content-Range 头格式错误: %q", header)
	}
	return start, end, total, nil
}
