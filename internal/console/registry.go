package console

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hunter-console/internal/model"
	"github.com/hunter-console/pkg/logger"
	"go.uber.org/zap"
)

// TaskRegistry 维护本会话内所有远端任务的本地记录。
// 每个应用会话只构造一个实例，由调用方显式注入，所有变更都必须
// 经过这里的窄接口，外部代码不得直接操作底层集合。
//
// 任务同时按本地 ID 和后端下发的 SessionID 建立索引：本地 ID 在
// 后端确认之前就是权威键，SessionID 到达后实时事件改用它来关联。
type TaskRegistry struct {
	mu        sync.RWMutex
	tasks     map[string]*model.Task
	order     []string          // 创建顺序
	bySession map[string]string // sessionId -> taskId
}

func NewTaskRegistry() *TaskRegistry {
	return &TaskRegistry{
		tasks:     make(map[string]*model.Task),
		bySession: make(map[string]string),
	}
}

// StartTask 以 running 状态创建任务并同步返回任务 ID，
// 调用方拿到 ID 后即可在后端确认到达前记录日志。
// sessionHint 和 target 可以为空。
func (r *TaskRegistry) StartTask(module, name, sessionHint, target string) string {
	now := time.Now()
	t := &model.Task{
		ID:        uuid.NewString(),
		Name:      name,
		Module:    module,
		Status:    model.TaskRunning,
		Progress:  0,
		SessionID: sessionHint,
		Target:    target,
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[t.ID] = t
	r.order = append(r.order, t.ID)
	if t.SessionID != "" {
		r.bySession[t.SessionID] = t.ID
	}
	return t.ID
}

// UpdateTaskProgress 更新进度与状态行。任务未知或已终态时静默忽略
// （实时事件可能晚于本地清理到达，这是预期情况）。
func (r *TaskRegistry) UpdateTaskProgress(taskID string, progress int, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[taskID]
	if !ok {
		logger.Logger.Debug("忽略未知任务的进度更新", zap.String("task_id", taskID))
		return
	}
	if t.Status.Terminal() {
		return
	}
	t.Progress = model.ClampProgress(progress)
	if message != "" {
		t.Message = message
	}
	t.UpdatedAt = time.Now()
}

// CompleteTask 把任务置为 completed，并把进度强制为 100。
func (r *TaskRegistry) CompleteTask(taskID, summary string) {
	r.transition(taskID, model.TaskCompleted, summary, true)
}

// FailTask 把任务置为 failed，保留失败时的进度。
func (r *TaskRegistry) FailTask(taskID, errMsg string) {
	r.transition(taskID, model.TaskFailed, errMsg, false)
}

// CancelTask 仅更新本地状态，表示用户放弃观察；远端任务是否真正
// 停止由上层另行调用后端接口，即使后端从不确认，任务也要能到达 cancelled。
func (r *TaskRegistry) CancelTask(taskID string) {
	r.transition(taskID, model.TaskCancelled, "", false)
}

// transition 统一的终态迁移：同一终态幂等，不同终态之间拒绝迁移
// （先写者胜，记一条告警）。
func (r *TaskRegistry) transition(taskID string, status model.TaskStatus, message string, forceFull bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[taskID]
	if !ok {
		logger.Logger.Debug("忽略未知任务的状态迁移", zap.String("task_id", taskID), zap.String("to", string(status)))
		return
	}
	if t.Status.Terminal() {
		if t.Status != status {
			logger.Logger.Warn("拒绝终态之间的迁移，保留先到的终态",
				zap.String("task_id", taskID),
				zap.String("current", string(t.Status)),
				zap.String("rejected", string(status)),
			)
		}
		return
	}
	t.Status = status
	if forceFull {
		t.Progress = 100
	}
	if message != "" {
		t.Message = message
	}
	t.UpdatedAt = time.Now()
}

// TaskPatch 通用合并的补丁，字段为 nil 表示不修改。
// 主要用于把迟到的 SessionID 挂到任务上。
type TaskPatch struct {
	Name      *string
	Message   *string
	Target    *string
	SessionID *string
}

// UpdateTask 通用合并。SessionID 一旦设置即不可变，再次设置会被忽略。
func (r *TaskRegistry) UpdateTask(taskID string, patch TaskPatch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[taskID]
	if !ok {
		logger.Logger.Debug("忽略未知任务的合并更新", zap.String("task_id", taskID))
		return
	}
	if patch.Name != nil {
		t.Name = *patch.Name
	}
	if patch.Message != nil {
		t.Message = *patch.Message
	}
	if patch.Target != nil {
		t.Target = *patch.Target
	}
	if patch.SessionID != nil && *patch.SessionID != "" {
		if t.SessionID == "" {
			t.SessionID = *patch.SessionID
			r.bySession[t.SessionID] = t.ID
		} else if t.SessionID != *patch.SessionID {
			logger.Logger.Warn("SessionID 已设置，忽略修改",
				zap.String("task_id", taskID),
				zap.String("session_id", t.SessionID),
			)
		}
	}
	t.UpdatedAt = time.Now()
}

// ClearCompletedTasks 清除 completed 和 cancelled 的任务。
// failed 任务刻意保留，直到用户显式处理——失败必须保持可见。
func (r *TaskRegistry) ClearCompletedTasks() {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.order[:0]
	for _, id := range r.order {
		t := r.tasks[id]
		if t.Status == model.TaskCompleted || t.Status == model.TaskCancelled {
			delete(r.tasks, id)
			if t.SessionID != "" {
				delete(r.bySession, t.SessionID)
			}
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
}

// Get 按本地 ID 查找，返回副本
func (r *TaskRegistry) Get(taskID string) (model.Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[taskID]
	if !ok {
		return model.Task{}, false
	}
	return *t, true
}

// BySession 按后端 SessionID 查找，返回副本
func (r *TaskRegistry) BySession(sessionID string) (model.Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.bySession[sessionID]
	if !ok {
		return model.Task{}, false
	}
	t, ok := r.tasks[id]
	if !ok {
		return model.Task{}, false
	}
	return *t, true
}

// RunningCount 当前处于 running 状态的任务数
func (r *TaskRegistry) RunningCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, t := range r.tasks {
		if t.Status == model.TaskRunning {
			n++
		}
	}
	return n
}

// ByModule 返回指定模块的任务快照，按创建顺序
func (r *TaskRegistry) ByModule(module string) []model.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.Task
	for _, id := range r.order {
		if t := r.tasks[id]; t.Module == module {
			out = append(out, *t)
		}
	}
	return out
}

// Tasks 返回全部任务的快照，按创建顺序
func (r *TaskRegistry) Tasks() []model.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Task, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.tasks[id])
	}
	return out
}
