package console

import (
	"testing"

	"github.com/hunter-console/internal/model"
)

func TestStartTaskReturnsRunningTask(t *testing.T) {
	r := NewTaskRegistry()
	id := r.StartTask("scanning", "Nmap quick scan", "", "10.0.0.1")
	if id == "" {
		t.Fatal("StartTask should return a task id")
	}
	task, ok := r.Get(id)
	if !ok {
		t.Fatal("task should exist right after StartTask")
	}
	if task.Status != model.TaskRunning {
		t.Errorf("expected status running, got %s", task.Status)
	}
	if task.Progress != 0 {
		t.Errorf("expected progress 0, got %d", task.Progress)
	}
	if task.Target != "10.0.0.1" {
		t.Errorf("expected target recorded, got %q", task.Target)
	}
}

func TestProgressClamp(t *testing.T) {
	r := NewTaskRegistry()
	id := r.StartTask("scanning", "clamp", "", "")

	r.UpdateTaskProgress(id, -5, "below")
	if task, _ := r.Get(id); task.Progress != 0 {
		t.Errorf("progress -5 should clamp to 0, got %d", task.Progress)
	}
	r.UpdateTaskProgress(id, 150, "above")
	if task, _ := r.Get(id); task.Progress != 100 {
		t.Errorf("progress 150 should clamp to 100, got %d", task.Progress)
	}
}

func TestCompleteForcesFullProgress(t *testing.T) {
	r := NewTaskRegistry()
	id := r.StartTask("scanning", "Nmap quick scan", "", "")
	r.UpdateTaskProgress(id, 45, "Port 80 open")
	r.CompleteTask(id, "Done")

	task, _ := r.Get(id)
	if task.Status != model.TaskCompleted {
		t.Errorf("expected completed, got %s", task.Status)
	}
	// 完成时进度强制为 100（既定策略）
	if task.Progress != 100 {
		t.Errorf("completion should force progress to 100, got %d", task.Progress)
	}
	if task.Message != "Done" {
		t.Errorf("expected summary message, got %q", task.Message)
	}
}

func TestTerminalStatesAreAbsorbing(t *testing.T) {
	r := NewTaskRegistry()
	id := r.StartTask("scanning", "terminal", "", "")
	r.CompleteTask(id, "ok")

	r.FailTask(id, "late failure")
	if task, _ := r.Get(id); task.Status != model.TaskCompleted {
		t.Errorf("completed -> failed must be rejected, got %s", task.Status)
	}
	r.CancelTask(id)
	if task, _ := r.Get(id); task.Status != model.TaskCompleted {
		t.Errorf("completed -> cancelled must be rejected, got %s", task.Status)
	}
	// 同一终态幂等
	r.CompleteTask(id, "again")
	if task, _ := r.Get(id); task.Status != model.TaskCompleted {
		t.Errorf("idempotent completion broke status: %s", task.Status)
	}
}

func TestUpdatesAfterTerminalAreIgnored(t *testing.T) {
	r := NewTaskRegistry()
	id := r.StartTask("scanning", "late-events", "", "")
	r.UpdateTaskProgress(id, 30, "working")
	r.FailTask(id, "boom")

	r.UpdateTaskProgress(id, 99, "ghost update")
	task, _ := r.Get(id)
	if task.Progress != 30 {
		t.Errorf("progress after terminal must stay, got %d", task.Progress)
	}
	if task.Message != "boom" {
		t.Errorf("message after terminal must stay, got %q", task.Message)
	}
}

func TestUnknownTaskTolerated(t *testing.T) {
	r := NewTaskRegistry()
	// 全部不应 panic，也不应产生任务
	r.UpdateTaskProgress("missing", 10, "x")
	r.CompleteTask("missing", "x")
	r.FailTask("missing", "x")
	r.CancelTask("missing")
	r.UpdateTask("missing", TaskPatch{})
	if len(r.Tasks()) != 0 {
		t.Errorf("unknown-task updates must not create tasks, got %d", len(r.Tasks()))
	}
}

func TestSessionIDImmutableOnceSet(t *testing.T) {
	r := NewTaskRegistry()
	id := r.StartTask("scanning", "session", "", "")

	first, second := "scan-1", "scan-2"
	r.UpdateTask(id, TaskPatch{SessionID: &first})
	r.UpdateTask(id, TaskPatch{SessionID: &second})

	task, _ := r.Get(id)
	if task.SessionID != "scan-1" {
		t.Errorf("sessionId must be immutable once set, got %q", task.SessionID)
	}
	if got, ok := r.BySession("scan-1"); !ok || got.ID != id {
		t.Error("task should be reachable via its first sessionId")
	}
	if _, ok := r.BySession("scan-2"); ok {
		t.Error("rejected sessionId must not be indexed")
	}
}

func TestClearCompletedKeepsFailed(t *testing.T) {
	r := NewTaskRegistry()
	done := r.StartTask("scanning", "done", "", "")
	failed := r.StartTask("scanning", "failed", "", "")
	cancelled := r.StartTask("scanning", "cancelled", "", "")
	running := r.StartTask("scanning", "running", "", "")

	r.CompleteTask(done, "ok")
	r.FailTask(failed, "err")
	r.CancelTask(cancelled)
	r.ClearCompletedTasks()

	if _, ok := r.Get(done); ok {
		t.Error("completed task should be cleared")
	}
	if _, ok := r.Get(cancelled); ok {
		t.Error("cancelled task should be cleared")
	}
	if _, ok := r.Get(failed); !ok {
		t.Error("failed task must stay visible until dismissed")
	}
	if _, ok := r.Get(running); !ok {
		t.Error("running task must not be touched")
	}
}

func TestDerivedQueries(t *testing.T) {
	r := NewTaskRegistry()
	r.StartTask("scanning", "a", "", "")
	b := r.StartTask("cloud", "b", "", "")
	r.StartTask("scanning", "c", "", "")
	r.CompleteTask(b, "ok")

	if got := r.RunningCount(); got != 2 {
		t.Errorf("expected 2 running, got %d", got)
	}
	if got := len(r.ByModule("scanning")); got != 2 {
		t.Errorf("expected 2 scanning tasks, got %d", got)
	}
	tasks := r.Tasks()
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(tasks))
	}
	if tasks[0].Name != "a" || tasks[1].Name != "b" || tasks[2].Name != "c" {
		t.Error("Tasks() must preserve creation order")
	}
}
