package ws

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/hunter-console/pkg/logger"
	"go.uber.org/zap"
)

// Hub 按工作区维护实时通道的订阅者连接。客户端连上后发送
// {type:"subscribe", workspace_id} 声明兴趣；之后该工作区的事件
// 会广播给它。一条连接同一时刻只订阅一个工作区，重复订阅即切换。
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	subs     map[string]map[*websocket.Conn]struct{} // workspaceID -> 连接集合
	conns    map[*websocket.Conn]string              // 连接 -> 当前工作区
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		subs:  make(map[string]map[*websocket.Conn]struct{}),
		conns: make(map[*websocket.Conn]string),
	}
}

// HandleWS 升级连接并开始处理订阅。也接受 ?workspace_id= 直接订阅。
func (h *Hub) HandleWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Logger.Warn("websocket 升级失败", zap.Error(err))
		return
	}
	if wsID := c.Query("workspace_id"); wsID != "" {
		h.subscribe(conn, wsID)
	}
	go h.readLoop(conn)
}

func (h *Hub) readLoop(conn *websocket.Conn) {
	defer h.drop(conn)
	for {
		var msg map[string]interface{}
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if t, _ := msg["type"].(string); t == "subscribe" {
			if wsID, _ := msg["workspace_id"].(string); wsID != "" {
				h.subscribe(conn, wsID)
			}
		}
	}
}

func (h *Hub) subscribe(conn *websocket.Conn, workspaceID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if old, ok := h.conns[conn]; ok && old != workspaceID {
		delete(h.subs[old], conn)
		if len(h.subs[old]) == 0 {
			delete(h.subs, old)
		}
	}
	if h.subs[workspaceID] == nil {
		h.subs[workspaceID] = make(map[*websocket.Conn]struct{})
	}
	h.subs[workspaceID][conn] = struct{}{}
	h.conns[conn] = workspaceID
	logger.Logger.Info("工作区订阅建立", zap.String("workspace_id", workspaceID))
}

func (h *Hub) drop(conn *websocket.Conn) {
	_ = conn.Close()
	h.mu.Lock()
	defer h.mu.Unlock()
	if wsID, ok := h.conns[conn]; ok {
		delete(h.subs[wsID], conn)
		if len(h.subs[wsID]) == 0 {
			delete(h.subs, wsID)
		}
		delete(h.conns, conn)
		logger.Logger.Info("订阅者断开", zap.String("workspace_id", wsID))
	}
}

// Broadcast 把事件推给指定工作区的所有订阅者，写失败的连接直接剔除
func (h *Hub) Broadcast(workspaceID string, msg interface{}) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.subs[workspaceID]))
	for conn := range h.subs[workspaceID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(msg); err != nil {
			logger.Logger.Debug("事件推送失败，剔除连接", zap.Error(err))
			h.drop(conn)
		}
	}
}
