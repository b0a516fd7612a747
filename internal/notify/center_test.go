package notify

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestToastQueueBounded(t *testing.T) {
	c := NewCenter("", 5, time.Minute)
	defer c.Close()

	for i := 0; i < 8; i++ {
		c.Push("info", fmt.Sprintf("t-%d", i), "msg")
	}
	toasts := c.Toasts()
	if len(toasts) != 5 {
		t.Fatalf("expected at most 5 visible toasts, got %d", len(toasts))
	}
	// 最旧的被挤掉，剩 t-3..t-7
	if toasts[0].Title != "t-3" || toasts[4].Title != "t-7" {
		t.Errorf("oldest toasts must be dropped first: %s .. %s", toasts[0].Title, toasts[4].Title)
	}
}

func TestToastAutoDismiss(t *testing.T) {
	c := NewCenter("", 5, 30*time.Millisecond)
	defer c.Close()

	c.Push("info", "transient", "msg")
	if len(c.Toasts()) != 1 {
		t.Fatal("toast should be visible right after push")
	}
	time.Sleep(120 * time.Millisecond)
	if got := len(c.Toasts()); got != 0 {
		t.Errorf("toast must auto-dismiss after ttl, %d left", got)
	}
}

func TestHistoryPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notifications.json")

	c := NewCenter(path, 5, time.Minute)
	c.Push("error", "执行失败", "backend unreachable")
	c.Push("success", "扫描完成", "nmap done")
	c.Close()

	// 文件内容是 ISO-8601 时间戳的 JSON 数组
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var raw []map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("persisted file must be a JSON array: %v", err)
	}
	if len(raw) != 2 {
		t.Fatalf("expected 2 persisted notifications, got %d", len(raw))
	}
	tsStr, _ := raw[0]["timestamp"].(string)
	if _, err := time.Parse(time.RFC3339, tsStr); err != nil {
		t.Errorf("timestamp must be ISO-8601, got %q", tsStr)
	}

	// 重新加载后历史仍在，时间戳解析回时间对象
	c2 := NewCenter(path, 5, time.Minute)
	defer c2.Close()
	hist := c2.History()
	if len(hist) != 2 {
		t.Fatalf("expected 2 restored notifications, got %d", len(hist))
	}
	if hist[0].Title != "执行失败" || hist[0].Timestamp.IsZero() {
		t.Error("restored notification must keep title and parsed timestamp")
	}
}

func TestHistoryCapped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notifications.json")
	c := NewCenter(path, 5, time.Minute)
	for i := 0; i < 60; i++ {
		c.Push("info", fmt.Sprintf("n-%d", i), "msg")
	}
	c.Close()

	hist := c.History()
	if len(hist) != 50 {
		t.Fatalf("history must cap at 50, got %d", len(hist))
	}
	if hist[0].Title != "n-10" {
		t.Errorf("oldest history entries must be trimmed, head is %s", hist[0].Title)
	}
}

func TestCorruptHistoryIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notifications.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	c := NewCenter(path, 5, time.Minute)
	defer c.Close()
	if len(c.History()) != 0 {
		t.Error("corrupt history file must be treated as empty")
	}
}

func TestMarkRead(t *testing.T) {
	c := NewCenter("", 5, time.Minute)
	defer c.Close()
	n := c.Push("info", "hello", "msg")
	c.MarkRead(n.ID)
	hist := c.History()
	if len(hist) != 1 || !hist[0].Read {
		t.Error("notification must be marked read")
	}
}
