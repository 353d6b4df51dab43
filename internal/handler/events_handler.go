package handler

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"omnidocs-go/internal/middleware"
	"omnidocs-go/internal/model"
	"omnidocs-go/internal/session"
	"omnidocs-go/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ProgressEvent 是推送给客户端的上传进度事件。
type ProgressEvent struct {
	Type          string              `json:"type"`
	SessionID     string              `json:"sessionId"`
	Status        model.SessionStatus `json:"status"`
	BytesReceived int64               `json:"bytesReceived"`
	TotalSize     int64               `json:"totalSize"`
	Progress      float64             `json:"progress"`
	DocumentID    *uint               `json:"documentId,omitempty"`
}

// wsClient 是一条订阅连接。写操作经由 mu 串行化，websocket 连接不支持并发写。
type wsClient struct {
	conn     *websocket.Conn
	tenantID uint
	mu       sync.Mutex
}

func (c *wsClient) send(event ProgressEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(event)
}

// Hub 管理进度事件的 WebSocket 订阅者，按租户定向推送。
type Hub struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

// NewHub 创建一个新的 Hub 实例。
func NewHub() *Hub {
	return &Hub{clients: make(map[*wsClient]struct{})}
}

// Events 处理 WebSocket 订阅请求。连接保持到客户端断开为止。
func (h *Hub) Events(c *gin.Context) {
	claims := middleware.MustClaims(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Errorf("[Events] WebSocket 升级失败: %v", err)
		return
	}

	client := &wsClient{conn: conn, tenantID: claims.TenantID}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	log.Infof("[Events] 订阅建立, tenant=%d", claims.TenantID)

	// 读循环只用于感知断开与响应 ping/pong
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, client)
	h.mu.Unlock()
	_ = conn.Close()
	log.Infof("[Events] 订阅断开, tenant=%d", claims.TenantID)
}

// BroadcastProgress 向指定租户的全部订阅者推送一次进度快照。
// 推送失败只记录日志，连接的回收交给读循环。
func (h *Hub) BroadcastProgress(tenantID uint, res *session.ChunkResult) {
	event := ProgressEvent{
		Type:          "upload.progress",
		SessionID:     res.SessionID,
		Status:        res.Status,
		BytesReceived: res.BytesReceived,
		TotalSize:     res.TotalSize,
		Progress:      res.Progress,
		DocumentID:    res.DocumentID,
	}

	h.mu.RLock()
	targets := make([]*wsClient, 0, len(h.clients))
	for client := range h.clients {
		if client.tenantID == tenantID {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range targets {
		if err := client.send(event); err != nil {
			log.Warnf("[Events] 推送进度失败, tenant=%d, session=%s: %v", tenantID, res.SessionID, err)
		}
	}
}
