// Package store 是房间actor依赖的持久化外部协作者：一个按 (kind, roomID)
// 寻址的 JSON 键值存储。
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// RoomStore 是房间actor真正依赖的窄契约：一个按 (kind, roomID) 寻址的
// 持久化键值存储。核心逻辑只认这个接口，从不直接触碰 SQL。
type RoomStore interface {
	LoadRoom(ctx context.Context, kind, roomID string, out any) (bool, error)
	SaveRoom(ctx context.Context, kind, roomID string, v any) error
}

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("db 路径不可为空")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("创建数据目录失败: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS rooms (
  kind TEXT NOT NULL,
  room_id TEXT NOT NULL,
  body TEXT NOT NULL,
  updated_at DATETIME NOT NULL,
  PRIMARY KEY (kind, room_id)
);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("初始化数据表失败: %w", err)
	}
	return nil
}

// LoadRoom 读取一条房间记录并解码进 out；记录不存在时返回 (false, nil)
// ——调用方应改用默认房间记录。
func (s *Store) LoadRoom(ctx context.Context, kind, roomID string, out any) (bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT body FROM rooms WHERE kind = ? AND room_id = ?`, kind, roomID)
	var body string
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("读取房间记录失败: %w", err)
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return false, fmt.Errorf("解码房间记录失败: %w", err)
	}
	return true, nil
}

// SaveRoom 把房间记录编码为 JSON 并 upsert。
func (s *Store) SaveRoom(ctx context.Context, kind, roomID string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("编码房间记录失败: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO rooms(kind, room_id, body, updated_at) VALUES(?, ?, ?, ?)
ON CONFLICT(kind, room_id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at
`, kind, roomID, string(body), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("保存房间记录失败: %w", err)
	}
	return nil
}
