package model

import "time"

// TaskStatus 任务状态机：pending -> running -> {completed, failed, cancelled}
// 三个终态都是吸收态，进入终态后 status 不再变化。
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskCancelled TaskStatus = "cancelled"
)

// Terminal 判断该状态是否为终态
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed || s == TaskCancelled
}

// Task 是远端长任务在客户端的本地表示。
// ID 由客户端在创建时生成，在后端确认之前就是权威标识；
// SessionID 由后端接受任务后下发，用于把后续实时事件关联回本任务，
// 一旦设置即不可变。
type Task struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Module    string     `json:"module"` // scanning / reporting / cloud / active_directory ...
	Status    TaskStatus `json:"status"`
	Progress  int        `json:"progress"` // 0-100，运行期间单调不减（仅 UI 假设，不对后端强制）
	Message   string     `json:"message"`
	SessionID string     `json:"sessionId,omitempty"`
	Target    string     `json:"target,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// ClampProgress 把进度值钳制到 [0,100]
func ClampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
