package realtime

import (
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hunter-console/pkg/logger"
	"go.uber.org/zap"
)

// Channel 实时传输的抽象。实现负责连接管理，向适配器交付原始事件；
// 事件形状的规范化不在这一层做。
type Channel interface {
	Events() <-chan map[string]interface{}
	Close()
}

// StateFunc 连接状态回调，up=true 表示通道在线
type StateFunc func(up bool)

// WSChannel 维护到后端实时通道的单条 websocket 连接。
// 断线后按固定间隔重拨，重连成功自动重发 subscribe，对调用方透明。
type WSChannel struct {
	endpoint  string
	workspace string
	retry     time.Duration
	onState   StateFunc

	events chan map[string]interface{}
	done   chan struct{}

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// DialWorkspace 打开对指定工作区的订阅通道。baseURL 是后端的 http(s)
// 地址，这里转成 ws(s) 并挂上 /api/v1/ws 路径。
func DialWorkspace(baseURL, workspaceID string, retry time.Duration, onState StateFunc) (*WSChannel, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/api/v1/ws"
	q := u.Query()
	q.Set("workspace_id", workspaceID)
	u.RawQuery = q.Encode()

	if retry <= 0 {
		retry = 5 * time.Second
	}
	c := &WSChannel{
		endpoint:  u.String(),
		workspace: workspaceID,
		retry:     retry,
		onState:   onState,
		events:    make(chan map[string]interface{}, 256),
		done:      make(chan struct{}),
	}
	go c.loop()
	return c, nil
}

func (c *WSChannel) Events() <-chan map[string]interface{} {
	return c.events
}

// Close 终止通道，之后不会再投递事件
func (c *WSChannel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.done)
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.mu.Unlock()
}

func (c *WSChannel) loop() {
	defer close(c.events)
	for {
		select {
		case <-c.done:
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.Dial(c.endpoint, nil)
		if err != nil {
			logger.Logger.Warn("实时通道连接失败",
				zap.String("endpoint", c.endpoint), zap.Error(err))
			c.setState(false)
			if !c.sleep() {
				return
			}
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = conn.Close()
			return
		}
		c.conn = conn
		c.mu.Unlock()

		// 每次连上都重发订阅，重连后由服务端恢复本工作区的推送
		sub := map[string]interface{}{"type": "subscribe", "workspace_id": c.workspace}
		if err := conn.WriteJSON(sub); err != nil {
			logger.Logger.Warn("订阅消息发送失败", zap.Error(err))
			_ = conn.Close()
			c.setState(false)
			if !c.sleep() {
				return
			}
			continue
		}

		logger.Logger.Info("实时通道已连接",
			zap.String("workspace_id", c.workspace))
		c.setState(true)
		c.readLoop(conn)
		c.setState(false)

		select {
		case <-c.done:
			return
		default:
			logger.Logger.Warn("实时通道断开，准备重连",
				zap.Duration("retry", c.retry))
		}
		if !c.sleep() {
			return
		}
	}
}

func (c *WSChannel) readLoop(conn *websocket.Conn) {
	defer conn.Close()
	for {
		var msg map[string]interface{}
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		// 缓冲满时在这里等消费方，日志行一条都不能丢
		select {
		case c.events <- msg:
		case <-c.done:
			return
		}
	}
}

func (c *WSChannel) setState(up bool) {
	if c.onState != nil {
		c.onState(up)
	}
}

// sleep 等待重连间隔，返回 false 表示通道已被关闭
func (c *WSChannel) sleep() bool {
	select {
	case <-c.done:
		return false
	case <-time.After(c.retry):
		return true
	}
}
