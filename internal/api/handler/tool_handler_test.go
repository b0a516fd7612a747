package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hunter-console/internal/api/response"
)

type nopBroadcaster struct{}

func (nopBroadcaster) Broadcast(workspaceID string, msg interface{}) {}

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewToolHandler(nopBroadcaster{}, nil)
	r := gin.New()
	r.POST("/api/v1/tools/:tool/preview", h.PreviewTool)
	r.POST("/api/v1/tools/:tool/execute", h.ExecuteTool)
	return r
}

func doPost(t *testing.T, r *gin.Engine, path string, body interface{}) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env response.Response
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("response must be the unified envelope: %v", err)
	}
	return w, env
}

func TestPreviewRendersLiteralCommand(t *testing.T) {
	r := testRouter()
	_, env := doPost(t, r, "/api/v1/tools/nmap/preview", map[string]interface{}{
		"workspace_id": "ws-1",
		"parameters":   map[string]string{"target": "10.0.0.1"},
	})
	if env.Code != response.SuccessCode {
		t.Fatalf("expected success, got code=%d msg=%s", env.Code, env.Msg)
	}
	data, _ := json.Marshal(env.Data)
	var preview struct {
		CommandString string   `json:"commandString"`
		Category      string   `json:"category"`
		Warnings      []string `json:"warnings"`
	}
	_ = json.Unmarshal(data, &preview)
	if preview.CommandString != "nmap -sV -T4 10.0.0.1" {
		t.Errorf("unexpected command string %q", preview.CommandString)
	}
	if len(preview.Warnings) != 0 {
		t.Errorf("nmap preview should carry no warnings, got %v", preview.Warnings)
	}
}

func TestRiskyToolCarriesWarning(t *testing.T) {
	r := testRouter()
	_, env := doPost(t, r, "/api/v1/tools/sqlmap/preview", map[string]interface{}{
		"workspace_id": "ws-1",
		"parameters":   map[string]string{"target": "https://victim.example.com/item?id=1"},
	})
	if env.Code != response.SuccessCode {
		t.Fatalf("expected success, got msg=%s", env.Msg)
	}
	data, _ := json.Marshal(env.Data)
	var preview struct {
		Warnings []string `json:"warnings"`
	}
	_ = json.Unmarshal(data, &preview)
	if len(preview.Warnings) == 0 {
		t.Error("sqlmap preview must carry a risk warning")
	}
}

func TestUnknownToolRejected(t *testing.T) {
	r := testRouter()
	_, env := doPost(t, r, "/api/v1/tools/doesnotexist/preview", map[string]interface{}{
		"workspace_id": "ws-1",
		"parameters":   map[string]string{"target": "10.0.0.1"},
	})
	if env.Code == response.SuccessCode {
		t.Error("unknown tool must be rejected")
	}
}

func TestInvalidTargetRejected(t *testing.T) {
	r := testRouter()
	_, env := doPost(t, r, "/api/v1/tools/nmap/preview", map[string]interface{}{
		"workspace_id": "ws-1",
		"parameters":   map[string]string{"target": "not a target!!"},
	})
	if env.Code == response.SuccessCode {
		t.Error("invalid target must be rejected at preview time")
	}
}

func TestMissingWorkspaceFailsBinding(t *testing.T) {
	r := testRouter()
	w, _ := doPost(t, r, "/api/v1/tools/nmap/preview", map[string]interface{}{
		"parameters": map[string]string{"target": "10.0.0.1"},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing workspace_id must fail binding, got HTTP %d", w.Code)
	}
}

func TestExecuteAcceptsAndReturnsScanID(t *testing.T) {
	r := testRouter()
	_, env := doPost(t, r, "/api/v1/tools/nikto/execute", map[string]interface{}{
		"workspace_id": "ws-1",
		"parameters":   map[string]string{"target": "example.com"},
	})
	if env.Code != response.SuccessCode {
		t.Fatalf("expected acceptance, got msg=%s", env.Msg)
	}
	data, _ := json.Marshal(env.Data)
	var ack struct {
		ScanID string `json:"scan_id"`
		Status string `json:"status"`
	}
	_ = json.Unmarshal(data, &ack)
	if ack.ScanID == "" || ack.Status != "accepted" {
		t.Errorf("execute must return a scan id and accepted status, got %+v", ack)
	}
}

func TestRenderCommandAppendsSortedParams(t *testing.T) {
	spec := toolCatalog["nuclei"]
	cmd, err := renderCommand(spec, map[string]string{
		"target": "example.com",
		"tags":   "cve",
		"rate":   "50",
	})
	if err != nil {
		t.Fatal(err)
	}
	want := "nuclei -u example.com -severity medium,high,critical --rate 50 --tags cve"
	if cmd != want {
		t.Errorf("rendered command mismatch:\n got  %q\n want %q", cmd, want)
	}
}
