package submit

import (
	"sync"
	"time"
)

// Transition records one stage ending.
type Transition struct {
	Stage    Stage         `json:"stage"`
	OK       bool          `json:"ok"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Snapshot is a point-in-time copy of a Tracker.
type Snapshot struct {
	Stage     Stage        `json:"stage"`
	Running   bool         `json:"running"`
	SubmitDir string       `json:"submit_dir,omitempty"`
	History   []Transition `json:"history"`
}

// Tracker publishes the facade's progress to concurrent readers such as
// the status server. A nil *Tracker discards everything.
type Tracker struct {
	mu      sync.RWMutex
	current Snapshot
	started time.Time
}

// NewTracker returns a tracker that has not seen any stage yet.
func NewTracker() *Tracker {
	return &Tracker{current: Snapshot{History: []Transition{}}}
}

func (t *Tracker) enter(stage Stage) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current.Stage = stage
	t.current.Running = true
	t.started = time.Now()
}

func (t *Tracker) finish(stage Stage, err error) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	tr := Transition{Stage: stage, OK: err == nil, Duration: time.Since(t.started)}
	if err != nil {
		tr.Error = err.Error()
	}
	t.current.History = append(t.current.History, tr)
	t.current.Running = false
}

func (t *Tracker) setSubmitDir(dir string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current.SubmitDir = dir
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() Snapshot {
	if t == nil {
		return Snapshot{History: []Transition{}}
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := t.current
	s.History = make([]Transition, len(t.current.History))
	copy(s.History, t.current.History)
	return s
}
