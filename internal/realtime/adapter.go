package realtime

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hunter-console/internal/console"
	"github.com/hunter-console/internal/model"
	"github.com/hunter-console/pkg/logger"
	"go.uber.org/zap"
)

// 去重键的记忆上限。传输层是至少一次投递，重复事件靠这张表丢弃。
const dedupMemory = 4096

// DialFunc 建立某工作区的通道，可注入假实现用于测试
type DialFunc func(workspaceID string, onState StateFunc) (Channel, error)

// Adapter 把后端推送的异构事件规范化成 TaskRegistry / LogStore /
// 通知中心的变更。一个适配器实例至多持有一个活跃的工作区订阅，
// 切换工作区先退订旧的。
//
// 断线只会停止新事件，绝不清理已有状态；断线期间错过的事件不补发。
type Adapter struct {
	con   *console.Console
	burst int
	dial  DialFunc

	mu        sync.Mutex
	workspace string
	channel   Channel
	wg        sync.WaitGroup

	seen *lru.Cache[string, struct{}]
}

func NewAdapter(con *console.Console, burst int, dial DialFunc) *Adapter {
	if burst <= 0 {
		burst = 50
	}
	seen, _ := lru.New[string, struct{}](dedupMemory)
	return &Adapter{
		con:   con,
		burst: burst,
		dial:  dial,
		seen:  seen,
	}
}

// Subscribe 订阅指定工作区。已有订阅时先退订，保证至多一个活跃订阅。
func (a *Adapter) Subscribe(workspaceID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.channel != nil {
		a.channel.Close()
		a.channel = nil
	}

	ch, err := a.dial(workspaceID, a.con.SetConnected)
	if err != nil {
		return fmt.Errorf("订阅工作区 %s 失败: %w", workspaceID, err)
	}
	a.workspace = workspaceID
	a.channel = ch
	a.wg.Add(1)
	go a.run(ch)
	return nil
}

// Close 退订并等待事件循环退出
func (a *Adapter) Close() {
	a.mu.Lock()
	if a.channel != nil {
		a.channel.Close()
		a.channel = nil
	}
	a.mu.Unlock()
	a.wg.Wait()
}

// Workspace 当前订阅的工作区 ID
func (a *Adapter) Workspace() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.workspace
}

func (a *Adapter) run(ch Channel) {
	defer a.wg.Done()
	for ev := range ch.Events() {
		batch := a.drainMore(ch, ev)
		a.applyBatch(batch)
	}
}

// drainMore 以首个事件为起点，非阻塞地把当前积压一并取出，
// 作为同一个应用节拍处理。
func (a *Adapter) drainMore(ch Channel, first map[string]interface{}) []map[string]interface{} {
	batch := []map[string]interface{}{first}
	for len(batch) < a.burst*4 {
		select {
		case ev, ok := <-ch.Events():
			if !ok {
				return batch
			}
			batch = append(batch, ev)
		default:
			return batch
		}
	}
	return batch
}

// applyBatch 应用一个节拍内的事件。超过突发阈值时按任务合并进度
// 事件（只保留每个 scanId 最新的一条），日志追加和通知永不合并，
// 每一行日志都要保留。
func (a *Adapter) applyBatch(batch []map[string]interface{}) {
	if len(batch) <= a.burst {
		for _, ev := range batch {
			a.handle(ev)
		}
		return
	}

	latest := make(map[string]int) // scanId -> batch 内最新下标
	for i, ev := range batch {
		if typeOf(ev) != model.EventScanProgress {
			continue
		}
		if id := stringField(payloadOf(ev), "scan_id", "scanId"); id != "" {
			latest[id] = i
		}
	}
	logger.Logger.Debug("事件突发，合并进度更新",
		zap.Int("batch", len(batch)), zap.Int("tasks", len(latest)))

	for i, ev := range batch {
		if typeOf(ev) == model.EventScanProgress {
			id := stringField(payloadOf(ev), "scan_id", "scanId")
			if id != "" && latest[id] != i {
				continue // 被更新的进度事件顶替
			}
		}
		a.handle(ev)
	}
}

// handle 规范化并分发单个事件。无法辨认形状的事件尽力矫正，
// 实在无法矫正才丢弃（只记 debug，不打扰用户）。
func (a *Adapter) handle(raw map[string]interface{}) {
	switch typeOf(raw) {
	case model.EventScanProgress:
		a.handleScanProgress(raw)
	case model.EventNotification:
		a.handleNotification(raw)
	case "":
		logger.Logger.Debug("丢弃缺失类型的实时事件")
	default:
		// 未知类型不丢信息，降级为一条日志
		a.con.Logs.Append(model.LogEntry{
			Severity: model.SeverityDebug,
			Source:   "backend",
			Message:  fmt.Sprintf("未知实时事件: %s", typeOf(raw)),
			Raw:      rawString(raw),
		})
	}
}

func (a *Adapter) handleScanProgress(raw map[string]interface{}) {
	p := payloadOf(raw)
	ev := model.ScanProgressEvent{
		ScanID:    stringField(p, "scan_id", "scanId"),
		Progress:  intField(p, "progress"),
		Status:    stringField(p, "status"),
		Message:   stringField(p, "message"),
		Timestamp: timeField(raw, p),
	}
	if data, ok := p["data"]; ok {
		if b, err := json.Marshal(data); err == nil {
			ev.Data = string(b)
		}
	}
	if ev.ScanID == "" && ev.Message == "" {
		logger.Logger.Debug("丢弃无法矫正的进度事件", zap.Any("payload", p))
		return
	}

	key := dedupKey(model.EventScanProgress, ev.ScanID, ev.Timestamp,
		fmt.Sprintf("%d|%s|%s", ev.Progress, ev.Status, ev.Message))
	if a.duplicate(key) {
		logger.Logger.Debug("丢弃重复进度事件", zap.String("key", key))
		return
	}

	task, found := a.con.Tasks.BySession(ev.ScanID)
	if found {
		switch strings.ToLower(ev.Status) {
		case "completed", "success":
			a.con.Tasks.CompleteTask(task.ID, ev.Message)
		case "failed", "error":
			a.con.Tasks.FailTask(task.ID, ev.Message)
		case "cancelled":
			a.con.Tasks.CancelTask(task.ID)
		default:
			a.con.Tasks.UpdateTaskProgress(task.ID, ev.Progress, ev.Message)
		}
		a.con.Logs.Append(model.LogEntry{
			Timestamp: ev.Timestamp,
			Severity:  severityForStatus(ev.Status),
			Kind:      kindForStatus(ev.Status),
			Source:    task.Module,
			Message:   ev.Message,
			TaskID:    task.ID,
			Raw:       ev.Data,
		})
		return
	}

	// 本地不存在对应任务（尚未创建，或已被用户清理）：按"未知任务"
	// 处理，信息落进日志流，不复活任务。
	a.con.Logs.Append(model.LogEntry{
		Timestamp: ev.Timestamp,
		Severity:  severityForStatus(ev.Status),
		Source:    "scanning",
		Message:   fmt.Sprintf("[%s] %s", ev.ScanID, ev.Message),
		Raw:       ev.Data,
	})
}

func (a *Adapter) handleNotification(raw map[string]interface{}) {
	p := payloadOf(raw)
	ev := model.NotificationEvent{
		ID:        stringField(p, "id", "notification_id"),
		Level:     stringField(p, "level"),
		Title:     stringField(p, "title"),
		Message:   stringField(p, "message"),
		Timestamp: timeField(raw, p),
	}
	if ev.Title == "" && ev.Message == "" {
		logger.Logger.Debug("丢弃空通知事件")
		return
	}

	ident := ev.ID
	if ident == "" {
		ident = ev.Title + "|" + ev.Message
	}
	key := dedupKey(model.EventNotification, ident, ev.Timestamp, ev.Message)
	if a.duplicate(key) {
		logger.Logger.Debug("丢弃重复通知事件", zap.String("key", key))
		return
	}

	a.con.Logs.Append(model.LogEntry{
		Timestamp: ev.Timestamp,
		Severity:  model.ParseSeverity(ev.Level),
		Source:    "backend",
		Message:   strings.TrimSpace(ev.Title + " " + ev.Message),
	})
	if a.con.Notify != nil {
		a.con.Notify.Push(strings.ToLower(ev.Level), ev.Title, ev.Message)
	}
}

// duplicate 记录并判断去重键，记忆量有上限，最久未见的键先被遗忘
func (a *Adapter) duplicate(key string) bool {
	ok, _ := a.seen.ContainsOrAdd(key, struct{}{})
	return ok
}

// dedupKey 的时间戳可能只有秒级精度，同一秒内的两条不同事件不能共享
// 一个键，载荷里可辨识的部分也要编进去。
func dedupKey(typ, id string, ts time.Time, detail string) string {
	return fmt.Sprintf("%s|%s|%d|%s", typ, id, ts.UnixMilli(), detail)
}

// ---- 宽容的字段矫正 ----

func typeOf(raw map[string]interface{}) string {
	s, _ := raw["type"].(string)
	return s
}

// payloadOf 取出事件载荷。后端有两种投递形状：字段平铺在顶层，
// 或者包在 payload 对象里，两种都要认。
func payloadOf(raw map[string]interface{}) map[string]interface{} {
	if p, ok := raw["payload"].(map[string]interface{}); ok {
		return p
	}
	return raw
}

func stringField(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			switch s := v.(type) {
			case string:
				return s
			case float64:
				return fmt.Sprintf("%v", s)
			}
		}
	}
	return ""
}

func intField(m map[string]interface{}, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return 0
}

// timeField 先看载荷里的 timestamp，再看信封顶层，都没有就取当前时刻
func timeField(raw, p map[string]interface{}) time.Time {
	for _, m := range []map[string]interface{}{p, raw} {
		switch v := m["timestamp"].(type) {
		case string:
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				return t
			}
		case float64:
			if v > 1e12 {
				return time.UnixMilli(int64(v))
			}
			return time.Unix(int64(v), 0)
		}
	}
	return time.Now()
}

func severityForStatus(status string) model.Severity {
	switch strings.ToLower(status) {
	case "failed", "error":
		return model.SeverityError
	default:
		return model.SeverityInfo
	}
}

func kindForStatus(status string) model.EntryKind {
	switch strings.ToLower(status) {
	case "completed", "success":
		return model.KindSuccess
	default:
		return model.KindMessage
	}
}

func rawString(raw map[string]interface{}) string {
	b, err := json.Marshal(raw)
	if err != nil {
		return ""
	}
	return string(b)
}
