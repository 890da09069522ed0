package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/aatumaykin/ipubot/internal/events"
	"github.com/aatumaykin/ipubot/internal/ledger"
	"github.com/aatumaykin/ipubot/internal/logger"
)

const (
	recordEvent = "event"
	recordUser  = "user"
)

// record is one line of the JSONL file.
type record struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Cron  string `json:"cron,omitempty"`
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Count int64  `json:"count,omitempty"`
}

// FileStore keeps events and users in a JSONL file. Every mutation rewrites
// the file through a temporary file and a rename.
type FileStore struct {
	filePath string
	logger   *logger.Logger
	mu       sync.Mutex
}

// NewFileStore returns a FileStore backed by filePath.
func NewFileStore(filePath string, log *logger.Logger) *FileStore {
	return &FileStore{filePath: filePath, logger: log}
}

// Close is a no-op.
func (s *FileStore) Close() error {
	return nil
}

// snapshot is the decoded file content. Lines that could not be decoded are
// kept in opaque and written back unchanged on save.
type snapshot struct {
	events map[string]string
	users  map[string]ledger.User
	opaque [][]byte
}

func (s *FileStore) load() (*snapshot, error) {
	snap := &snapshot{events: make(map[string]string), users: make(map[string]ledger.User)}

	file, err := os.Open(s.filePath)
	if os.IsNotExist(err) {
		return snap, nil
	}
	if err != nil {
		s.logger.Error("failed to open storage file", err,
			logger.Field{Key: "file", Value: s.filePath})
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec record
		if err := json.Unmarshal(line, &rec); err != nil {
			s.logger.Error("failed to unmarshal storage line", err,
				logger.Field{Key: "file", Value: s.filePath},
				logger.Field{Key: "line", Value: lineNum})
			snap.opaque = append(snap.opaque, bytes.Clone(line))
			continue
		}

		switch rec.Type {
		case recordEvent:
			snap.events[rec.Event] = rec.Cron
		case recordUser:
			snap.users[rec.ID] = ledger.User{ID: rec.ID, Name: rec.Name, Count: rec.Count}
		default:
			s.logger.Warn("unknown storage record type",
				logger.Field{Key: "type", Value: rec.Type},
				logger.Field{Key: "line", Value: lineNum})
			snap.opaque = append(snap.opaque, bytes.Clone(line))
		}
	}

	if err := scanner.Err(); err != nil {
		s.logger.Error("error scanning storage file", err,
			logger.Field{Key: "file", Value: s.filePath})
		return nil, err
	}
	return snap, nil
}

func (s *FileStore) save(snap *snapshot) error {
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		s.logger.Error("failed to create storage directory", err,
			logger.Field{Key: "dir", Value: filepath.Dir(s.filePath)})
		return err
	}

	tmpPath := s.filePath + ".tmp"
	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		s.logger.Error("failed to create temporary storage file", err,
			logger.Field{Key: "file", Value: tmpPath})
		return err
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)
	for _, def := range sortedEvents(snap.events) {
		if err := enc.Encode(record{Type: recordEvent, Event: def.Name, Cron: def.Schedule}); err != nil {
			return err
		}
	}
	for _, u := range sortedUsers(snap.users) {
		if err := enc.Encode(record{Type: recordUser, ID: u.ID, Name: u.Name, Count: u.Count}); err != nil {
			return err
		}
	}
	for _, line := range snap.opaque {
		if _, err := w.Write(append(line, '\n')); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if err := file.Sync(); err != nil {
		s.logger.Error("failed to sync temporary file", err,
			logger.Field{Key: "file", Value: tmpPath})
		return err
	}

	if err := os.Rename(tmpPath, s.filePath); err != nil {
		s.logger.Error("failed to rename temporary file", err,
			logger.Field{Key: "from", Value: tmpPath},
			logger.Field{Key: "to", Value: s.filePath})
		return err
	}

	s.logger.Debug("storage saved",
		logger.Field{Key: "events", Value: len(snap.events)},
		logger.Field{Key: "users", Value: len(snap.users)},
		logger.Field{Key: "file", Value: s.filePath})
	return nil
}

// mutate loads the file, applies fn and saves the result when fn succeeds.
func (s *FileStore) mutate(fn func(*snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(snap); err != nil {
		return err
	}
	return s.save(snap)
}

// ListAll returns every event definition ordered by name.
func (s *FileStore) ListAll(_ context.Context) ([]events.Definition, error) {
	s.mu.Lock()
	snap, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return nil, events.NewStoreError("list", err)
	}
	return sortedEvents(snap.events), nil
}

// Insert stores a new definition.
func (s *FileStore) Insert(_ context.Context, def events.Definition) error {
	err := s.mutate(func(snap *snapshot) error {
		if _, ok := snap.events[def.Name]; ok {
			return events.ErrDuplicateName
		}
		snap.events[def.Name] = def.Schedule
		return nil
	})
	return events.NewStoreError("insert", err)
}

// Update replaces the schedule of an existing definition.
func (s *FileStore) Update(_ context.Context, def events.Definition) error {
	err := s.mutate(func(snap *snapshot) error {
		if _, ok := snap.events[def.Name]; !ok {
			return events.ErrNotFound
		}
		snap.events[def.Name] = def.Schedule
		return nil
	})
	return events.NewStoreError("update", err)
}

// Delete removes a definition.
func (s *FileStore) Delete(_ context.Context, name string) error {
	err := s.mutate(func(snap *snapshot) error {
		if _, ok := snap.events[name]; !ok {
			return events.ErrNotFound
		}
		delete(snap.events, name)
		return nil
	})
	return events.NewStoreError("delete", err)
}

// ListUsers returns every ledger user ordered by name.
func (s *FileStore) ListUsers(_ context.Context) ([]ledger.User, error) {
	s.mu.Lock()
	snap, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return sortedUsers(snap.users), nil
}

// ResetUsers deletes every ledger user.
func (s *FileStore) ResetUsers(_ context.Context) error {
	err := s.mutate(func(snap *snapshot) error {
		clear(snap.users)
		return nil
	})
	if err != nil {
		return fmt.Errorf("reset users: %w", err)
	}
	return nil
}

// AddPoints upserts the user and adds amount to its count.
func (s *FileStore) AddPoints(_ context.Context, id, name string, amount int64) (ledger.User, error) {
	var out ledger.User
	err := s.mutate(func(snap *snapshot) error {
		u, ok := snap.users[id]
		if !ok {
			u = ledger.User{ID: id}
		}
		u.Name = name
		u.Count += amount
		snap.users[id] = u
		out = u
		return nil
	})
	if err != nil {
		return ledger.User{}, fmt.Errorf("add points: %w", err)
	}
	return out, nil
}

func sortedEvents(m map[string]string) []events.Definition {
	defs := make([]events.Definition, 0, len(m))
	for name, schedule := range m {
		defs = append(defs, events.Definition{Name: name, Schedule: schedule})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

func sortedUsers(m map[string]ledger.User) []ledger.User {
	users := make([]ledger.User, 0, len(m))
	for _, u := range m {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Name != users[j].Name {
			return users[i].Name < users[j].Name
		}
		return users[i].ID < users[j].ID
	})
	return users
}
