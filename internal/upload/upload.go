// Package upload implements the chunked upload protocol (I): a session
// state machine that accumulates an arriving file on disk before handing
// it to the worker orchestrator.
package upload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/partforge/partsearch/internal/dataset"
)

// Session states, per §4.9.
const (
	StateInit       = "init"
	StateReceiving  = "receiving"
	StateCompleting = "completing"
	StateDone       = "done"
)

// DefaultExpiry is how long an inactive session survives before GC removes
// it and its temp file.
const DefaultExpiry = 30 * time.Minute

// DefaultCleanupGrace is how long Complete waits before deleting the temp
// file, giving the worker a window to have opened it by path.
const DefaultCleanupGrace = 2 * time.Minute

// Session is one in-progress upload.
type Session struct {
	UploadID     string
	FileID       int64
	Filename     string
	ContentType  string
	TempPath     string
	TotalSize    int64
	ReceivedSize int64
	State        string
	lastActivity time.Time
	fileLock     *flock.Flock
}

// OnComplete is invoked once a session finishes receiving, to queue the
// orchestrator's work against the dataset's temp file.
type OnComplete func(fileID int64, tempPath, filename string)

// Manager is the session registry. All mutating operations hold mu for the
// duration of their map update; file I/O happens outside the lock.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	tempDir      string
	datasetStore *dataset.Store
	expiry       time.Duration
	cleanupGrace time.Duration
	onComplete   OnComplete
}

// NewManager builds a Manager rooted at tempDir for scratch files.
func NewManager(tempDir string, datasetStore *dataset.Store, onComplete OnComplete) (*Manager, error) {
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, fmt.Errorf("create upload temp dir: %w", err)
	}
	return &Manager{
		sessions:     make(map[string]*Session),
		tempDir:      tempDir,
		datasetStore: datasetStore,
		expiry:       DefaultExpiry,
		cleanupGrace: DefaultCleanupGrace,
		onComplete:   onComplete,
	}, nil
}

// Init creates a dataset record with status "uploaded", an empty temp file,
// and registers the session.
func (m *Manager) Init(ctx context.Context, filename, contentType string, totalSize int64) (uploadID string, fileID int64, err error) {
	fileID, err = m.datasetStore.CreateDataset(ctx, filename, contentType)
	if err != nil {
		return "", 0, fmt.Errorf("create dataset record: %w", err)
	}

	uploadID = uuid.NewString()
	tempPath := filepath.Join(m.tempDir, fmt.Sprintf("upload-%s.tmp", uploadID))
	f, err := os.Create(tempPath)
	if err != nil {
		return "", 0, fmt.Errorf("create temp file: %w", err)
	}
	f.Close()

	sess := &Session{
		UploadID:     uploadID,
		FileID:       fileID,
		Filename:     filename,
		ContentType:  contentType,
		TempPath:     tempPath,
		TotalSize:    totalSize,
		State:        StateInit,
		lastActivity: time.Now(),
		fileLock:     flock.New(tempPath + ".lock"),
	}

	m.mu.Lock()
	m.sessions[uploadID] = sess
	m.mu.Unlock()

	return uploadID, fileID, nil
}

// Part appends body to the session's temp file in arrival order.
// part_number is advisory only: ordering is defined by arrival, which the
// caller must serialize; concurrent calls on one session are themselves
// serialized under the session's own file lock.
func (m *Manager) Part(ctx context.Context, uploadID string, partNumber int, body []byte) error {
	sess, err := m.lookup(uploadID)
	if err != nil {
		return err
	}

	if err := sess.fileLock.Lock(); err != nil {
		return fmt.Errorf("acquire session append lock: %w", err)
	}
	defer sess.fileLock.Unlock()

	f, err := os.OpenFile(sess.TempPath, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open temp file for append: %w", err)
	}
	defer f.Close()

	n, err := f.Write(body)
	if err != nil {
		return fmt.Errorf("append chunk: %w", err)
	}

	m.mu.Lock()
	sess.ReceivedSize += int64(n)
	sess.State = StateReceiving
	sess.lastActivity = time.Now()
	m.mu.Unlock()

	return nil
}

// Complete marks the dataset "processing", queues orchestrator work
// referencing the temp file path, removes the session from the registry,
// and schedules temp-file cleanup after a grace period.
func (m *Manager) Complete(ctx context.Context, uploadID string) error {
	sess, err := m.lookup(uploadID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	sess.State = StateCompleting
	m.mu.Unlock()

	if err := m.datasetStore.SetStatus(ctx, sess.FileID, dataset.StatusProcessing); err != nil {
		return fmt.Errorf("mark dataset processing: %w", err)
	}
	if err := m.datasetStore.SetByteSize(ctx, sess.FileID, sess.ReceivedSize); err != nil {
		return fmt.Errorf("record received size: %w", err)
	}

	m.mu.Lock()
	delete(m.sessions, uploadID)
	m.mu.Unlock()

	if m.onComplete != nil {
		m.onComplete(sess.FileID, sess.TempPath, sess.Filename)
	}

	time.AfterFunc(m.cleanupGrace, func() {
		os.Remove(sess.TempPath)
		os.Remove(sess.TempPath + ".lock")
	})

	return nil
}

// Cancel sets a dataset's status to cancelled; the worker's cancel_check
// observes it within one batch (§4.5).
func (m *Manager) Cancel(ctx context.Context, fileID int64) error {
	return m.datasetStore.SetStatus(ctx, fileID, dataset.StatusCancelled)
}

func (m *Manager) lookup(uploadID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[uploadID]
	if !ok {
		return nil, fmt.Errorf("upload session %q not found", uploadID)
	}
	return sess, nil
}

// GC removes sessions whose last activity is older than the manager's
// expiry, deleting their temp files. Intended to run on a periodic ticker.
func (m *Manager) GC() int {
	cutoff := time.Now().Add(-m.expiry)

	m.mu.Lock()
	var expired []*Session
	for id, sess := range m.sessions {
		if sess.lastActivity.Before(cutoff) {
			expired = append(expired, sess)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, sess := range expired {
		os.Remove(sess.TempPath)
		os.Remove(sess.TempPath + ".lock")
	}
	return len(expired)
}

// Run starts a background GC loop until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.GC()
		}
	}
}
