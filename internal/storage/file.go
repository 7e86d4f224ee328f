package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	logx "foldly/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Layout: <prefix>.history.jsonl (append-only JSON Lines). The file is
// periodically compacted down to the most recent entries so a
// long-running session cannot grow it without bound.
type fileStore struct {
	log logx.Logger

	mu     sync.Mutex
	path   string
	file   *os.File
	writes int
}

const (
	compactEvery = 5000
	compactKeep  = 2000
)

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	histPath := filepath.Join(dir, base) + ".history.jsonl"
	f, err := os.OpenFile(histPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	return &fileStore{log: log, path: histPath, file: f}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

func (s *fileStore) AppendHistory(ctx context.Context, e Entry) error {
	_ = ctx
	if e.At.IsZero() {
		e.At = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return errors.New("history file closed")
	}
	if err := json.NewEncoder(s.file).Encode(e); err != nil {
		return err
	}
	s.writes++
	if s.writes%compactEvery == 0 {
		if err := s.compactLocked(); err != nil {
			s.log.Debug("history compact failed", logx.Any("err", err))
		}
	}
	return nil
}

func (s *fileStore) RecentHistory(ctx context.Context, limit int) ([]Entry, error) {
	_ = ctx
	if limit <= 0 {
		limit = 50
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := readHistory(s.path)
	if err != nil {
		return nil, err
	}
	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

func (s *fileStore) compactLocked() error {
	entries, err := readHistory(s.path)
	if err != nil {
		return err
	}
	if len(entries) > compactKeep {
		entries = entries[len(entries)-compactKeep:]
	}

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return err
	}

	// Reopen the append handle on the compacted file.
	_ = s.file.Close()
	nf, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		s.file = nil
		return err
	}
	s.file = nf
	return nil
}

func readHistory(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []Entry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			// Skip torn/corrupt lines rather than failing the read.
			continue
		}
		out = append(out, e)
	}
	return out, sc.Err()
}
