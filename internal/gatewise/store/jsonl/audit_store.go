// Package jsonl stores the audit log as a JSON Lines file: one record per
// line, appended in place and fsynced before Append returns.
package jsonl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/store"
)

type AuditStore struct {
	path string

	mu sync.Mutex
	f  *os.File
}

// Open creates or opens the log at path, creating parent directories. A
// torn final line left by a crash mid-append is truncated away so the file
// only ever contains complete records.
func Open(path string) (*AuditStore, error) {
	if path == "" {
		return nil, store.Wrap("open", os.ErrInvalid)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, store.Wrap("open", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, store.Wrap("open", err)
	}
	if err := truncateTornTail(f); err != nil {
		_ = f.Close()
		return nil, store.Wrap("open", err)
	}
	return &AuditStore{path: path, f: f}, nil
}

func (s *AuditStore) Path() string { return s.path }

func (s *AuditStore) Append(ctx context.Context, rec store.AuditRecord) error {
	if err := ctx.Err(); err != nil {
		return store.Wrap("append", err)
	}
	rec = store.Prepare(rec)
	line, err := json.Marshal(rec)
	if err != nil {
		return store.Wrap("append", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return store.Wrap("append", os.ErrClosed)
	}

	end, err := s.f.Seek(0, io.SeekEnd)
	if err != nil {
		return store.Wrap("append", err)
	}
	if _, err := s.f.Write(line); err != nil {
		return store.Wrap("append", s.rollback(end, err))
	}
	if err := s.f.Sync(); err != nil {
		return store.Wrap("append", s.rollback(end, err))
	}
	return nil
}

// rollback cuts the file back to its size before a failed append.
func (s *AuditStore) rollback(size int64, cause error) error {
	if err := s.f.Truncate(size); err != nil {
		return errors.Join(cause, fmt.Errorf("rollback: %w", err))
	}
	return cause
}

// LoadAll reads the whole file under the append lock, so it never observes
// a half-written record.
func (s *AuditStore) LoadAll(ctx context.Context) ([]store.AuditRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.Wrap("load", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []store.AuditRecord{}, nil
		}
		return nil, store.Wrap("load", err)
	}
	return decodeLines(data)
}

func decodeLines(data []byte) ([]store.AuditRecord, error) {
	out := []store.AuditRecord{}
	lineNo := 0
	for len(data) > 0 {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			// Unterminated tail: an append that never completed.
			break
		}
		line := data[:i]
		data = data[i+1:]
		lineNo++
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var rec store.AuditRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, store.Wrap("load", fmt.Errorf("line %d: %w", lineNo, err))
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *AuditStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

func truncateTornTail(f *os.File) error {
	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}
	if len(data) == 0 || data[len(data)-1] == '\n' {
		return nil
	}
	keep := bytes.LastIndexByte(data, '\n') + 1
	return f.Truncate(int64(keep))
}
