package simulate

import (
	"fmt"
	"time"

	"github.com/hunter-console/pkg/logger"
	"go.uber.org/zap"
)

// Broadcaster 事件推送端的契约，由 ws.Hub 实现
type Broadcaster interface {
	Broadcast(workspaceID string, msg interface{})
}

// 一次模拟扫描的进度脚本
var steps = []struct {
	progress int
	message  string
}{
	{5, "任务已进入执行队列"},
	{20, "%s 正在初始化"},
	{40, "对 %s 的探测进行中"},
	{65, "解析 %s 的输出"},
	{85, "汇总结果"},
}

// Run 模拟一次远端扫描的完整生命周期：按固定节奏推送 scan-progress
// 事件，收尾时推送 completed 进度和一条 notification。阻塞到结束，
// 由调用方决定是否放进 goroutine。
func Run(b Broadcaster, workspaceID, scanID, tool, target string, interval time.Duration) {
	if interval <= 0 {
		interval = 600 * time.Millisecond
	}
	logger.Logger.Info("开始模拟扫描",
		zap.String("scan_id", scanID), zap.String("tool", tool), zap.String("target", target))

	for _, step := range steps {
		time.Sleep(interval)
		msg := step.message
		switch step.progress {
		case 20:
			msg = fmt.Sprintf(step.message, tool)
		case 40, 65:
			msg = fmt.Sprintf(step.message, target)
		}
		b.Broadcast(workspaceID, progressEvent(workspaceID, scanID, step.progress, "running", msg))
	}

	time.Sleep(interval)
	b.Broadcast(workspaceID, progressEvent(workspaceID, scanID, 100, "completed",
		fmt.Sprintf("%s 对 %s 的扫描完成", tool, target)))
	b.Broadcast(workspaceID, map[string]interface{}{
		"type":         "notification",
		"workspace_id": workspaceID,
		"timestamp":    time.Now().Format(time.RFC3339Nano),
		"payload": map[string]interface{}{
			"id":      scanID + "-done",
			"level":   "success",
			"title":   "扫描完成",
			"message": fmt.Sprintf("%s 已完成对 %s 的扫描", tool, target),
		},
	})
}

func progressEvent(workspaceID, scanID string, progress int, status, message string) map[string]interface{} {
	// 纳秒精度时间戳：同一秒内的相邻进度事件在消费端要保持可区分
	return map[string]interface{}{
		"type":         "scan-progress",
		"workspace_id": workspaceID,
		"timestamp":    time.Now().Format(time.RFC3339Nano),
		"payload": map[string]interface{}{
			"scan_id":  scanID,
			"progress": progress,
			"status":   status,
			"message":  message,
		},
	}
}
