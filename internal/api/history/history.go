package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hunter-console/pkg/logger"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Store 开发后端的扫描历史，落在本地 sqlite（纯 Go 驱动，免 cgo）。
// 只是开发期的便利功能，所有写入都尽力而为，失败不影响请求处理。
type Store struct {
	db *sql.DB
}

type ScanRecord struct {
	ScanID      string    `json:"scan_id"`
	WorkspaceID string    `json:"workspace_id"`
	Tool        string    `json:"tool"`
	Target      string    `json:"target"`
	Command     string    `json:"command"`
	CreatedAt   time.Time `json:"created_at"`
}

func Open(path string) (*Store, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("打开历史库失败: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("历史库不可用: %w", err)
	}
	schema := `CREATE TABLE IF NOT EXISTS scans(
		scan_id TEXT PRIMARY KEY,
		workspace_id TEXT,
		tool TEXT,
		target TEXT,
		command TEXT,
		ts INTEGER
	); CREATE INDEX IF NOT EXISTS idx_scans_ws ON scans(workspace_id);`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("历史库建表失败: %w", err)
	}
	return &Store{db: db}, nil
}

// RecordScan 记录一次受理的扫描，失败只记日志
func (s *Store) RecordScan(rec ScanRecord) {
	if s == nil || s.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO scans(scan_id, workspace_id, tool, target, command, ts) VALUES(?,?,?,?,?,?)`,
		rec.ScanID, rec.WorkspaceID, rec.Tool, rec.Target, rec.Command, time.Now().Unix())
	if err != nil {
		logger.Logger.Debug("扫描历史写入失败", zap.Error(err))
	}
}

// RecentScans 最近的扫描记录，新的在前
func (s *Store) RecentScans(limit int) ([]ScanRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	rows, err := s.db.QueryContext(ctx,
		`SELECT scan_id, workspace_id, tool, target, command, ts FROM scans ORDER BY ts DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ScanRecord
	for rows.Next() {
		var rec ScanRecord
		var ts int64
		if err := rows.Scan(&rec.ScanID, &rec.WorkspaceID, &rec.Tool, &rec.Target, &rec.Command, &ts); err != nil {
			return nil, err
		}
		rec.CreatedAt = time.Unix(ts, 0)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) Close() {
	if s != nil && s.db != nil {
		_ = s.db.Close()
	}
}
