package stats

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Store persists checkpoints.
type Store interface {
	Save(c Checkpoint) error
	Load() (Checkpoint, error)
}

// FileStore keeps a checkpoint as a JSON file. Writes go to a temporary file
// in the same directory which is then renamed over the target, so a crash
// mid-write leaves the previous checkpoint intact.
type FileStore struct {
	path string
}

// NewFileStore returns a store writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the checkpoint file location.
func (s *FileStore) Path() string { return s.path }

// Save atomically replaces the checkpoint file.
func (s *FileStore) Save(c Checkpoint) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp checkpoint: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if c.WordFrequencies == nil {
		c.WordFrequencies = map[string]int{}
	}
	if err := json.NewEncoder(tmp).Encode(c); err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close checkpoint: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace checkpoint: %w", err)
	}
	committed = true

	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}

// Load reads the checkpoint file.
func (s *FileStore) Load() (Checkpoint, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var c Checkpoint
	if err := json.Unmarshal(data, &c); err != nil {
		return Checkpoint{}, fmt.Errorf("failed to decode checkpoint %s: %w", s.path, err)
	}
	if c.ProcessedCount < 0 || c.MaxWordCount < 0 {
		return Checkpoint{}, fmt.Errorf("checkpoint %s has negative counters", s.path)
	}
	if c.WordFrequencies == nil {
		c.WordFrequencies = map[string]int{}
	}
	return c, nil
}

// Recorder feeds pages into an Engine and saves a checkpoint every N pages.
type Recorder struct {
	engine *Engine
	store  Store
	every  int

	saveMu sync.Mutex
}

// NewRecorder wires an engine to a store. every <= 0 disables periodic saves;
// Flush still writes.
func NewRecorder(engine *Engine, store Store, every int) *Recorder {
	return &Recorder{engine: engine, store: store, every: every}
}

// Engine returns the underlying engine.
func (r *Recorder) Engine() *Engine { return r.engine }

// Resume restores the engine from the store. A missing or unreadable
// checkpoint is logged and the engine starts from zero.
func (r *Recorder) Resume() Checkpoint {
	c, err := r.store.Load()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Info("No checkpoint found, starting from empty statistics")
		} else {
			slog.Warn("Ignoring unreadable checkpoint, starting from empty statistics", "error", err)
		}
		c = Checkpoint{WordFrequencies: map[string]int{}}
	}
	r.engine.Restore(c)
	return c
}

// Record observes one page and saves a checkpoint when the processed count
// reaches a multiple of the interval. A failed save is returned but the
// observation is kept.
func (r *Recorder) Record(url string, tokens []string) error {
	n := r.engine.Observe(url, tokens)
	if r.every > 0 && n%r.every == 0 {
		return r.save()
	}
	return nil
}

// Flush writes the current counters.
func (r *Recorder) Flush() error {
	return r.save()
}

func (r *Recorder) save() error {
	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	// Snapshot under saveMu so saves land in processed-count order.
	c := r.engine.Checkpoint()
	if err := r.store.Save(c); err != nil {
		return err
	}
	slog.Debug("Checkpoint saved", "processed", c.ProcessedCount)
	return nil
}
