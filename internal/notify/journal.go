package notify

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tkingovr/companybook/api"
)

// Journal is an append-only JSONL notification log with date-based rotation.
// It doubles as the in-app notification center: recent entries are kept in
// memory and streamed to subscribers.
type Journal struct {
	mu          sync.Mutex
	dir         string
	currentDate string
	file        *os.File
	writer      *bufio.Writer

	// In-memory buffer for the dashboard (bounded)
	recent []*api.Notification
	maxMem int

	// Subscribers for real-time streaming
	subMu   sync.RWMutex
	subs    map[int]chan *api.Notification
	nextSub int
}

// NewJournal creates a journal writing to the given directory.
func NewJournal(dir string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating notification journal directory: %w", err)
	}
	return &Journal{
		dir:    dir,
		maxMem: 1000,
		subs:   make(map[int]chan *api.Notification),
	}, nil
}

// Notify appends the notification, assigning an ID and timestamp if missing.
func (j *Journal) Notify(_ context.Context, n *api.Notification) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	// Rotate file if date changed
	dateStr := n.Timestamp.Format("2006-01-02")
	if dateStr != j.currentDate {
		if err := j.rotate(dateStr); err != nil {
			return err
		}
	}

	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshaling notification: %w", err)
	}
	if _, err := j.writer.Write(data); err != nil {
		return err
	}
	if err := j.writer.WriteByte('\n'); err != nil {
		return err
	}
	if err := j.writer.Flush(); err != nil {
		return err
	}

	if len(j.recent) >= j.maxMem {
		j.recent = j.recent[1:]
	}
	j.recent = append(j.recent, n)

	j.notifySubscribers(n)
	return nil
}

func (j *Journal) CanNotify() bool { return true }

// Recent returns up to limit notifications, newest first. A non-positive
// limit returns everything held in memory.
func (j *Journal) Recent(limit int) []*api.Notification {
	j.mu.Lock()
	defer j.mu.Unlock()

	n := len(j.recent)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*api.Notification, 0, n)
	for i := len(j.recent) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, j.recent[i])
	}
	return out
}

// Subscribe returns a channel that receives new notifications. The
// subscription also ends when ctx is done.
func (j *Journal) Subscribe(ctx context.Context) (<-chan *api.Notification, func()) {
	j.subMu.Lock()
	defer j.subMu.Unlock()

	ch := make(chan *api.Notification, 100)
	id := j.nextSub
	j.nextSub++
	j.subs[id] = ch

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			j.subMu.Lock()
			defer j.subMu.Unlock()
			delete(j.subs, id)
			close(ch)
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()

	return ch, cancel
}

// Close flushes and closes the current journal file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.writer != nil {
		if err := j.writer.Flush(); err != nil {
			return err
		}
	}
	if j.file != nil {
		err := j.file.Close()
		j.file, j.writer, j.currentDate = nil, nil, ""
		return err
	}
	return nil
}

// Dir returns the journal directory.
func (j *Journal) Dir() string { return j.dir }

func (j *Journal) rotate(dateStr string) error {
	if j.writer != nil {
		if err := j.writer.Flush(); err != nil {
			return err
		}
	}
	if j.file != nil {
		if err := j.file.Close(); err != nil {
			return err
		}
	}

	path := filepath.Join(j.dir, dateStr+".jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return fmt.Errorf("opening notification journal: %w", err)
	}

	j.file = f
	j.writer = bufio.NewWriter(f)
	j.currentDate = dateStr
	return nil
}

func (j *Journal) notifySubscribers(n *api.Notification) {
	j.subMu.RLock()
	defer j.subMu.RUnlock()

	for _, ch := range j.subs {
		select {
		case ch <- n:
		default:
			// Drop if subscriber is slow
		}
	}
}
