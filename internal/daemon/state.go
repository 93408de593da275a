package daemon

import (
	"sync"
	"time"

	"coldcopy/internal/engine"
	"coldcopy/internal/model"
)

// State is the watch daemon's view of its backup runs, shared between
// the run loop and the status server.
type State struct {
	mu         sync.RWMutex
	src        string
	dst        string
	startedAt  time.Time
	running    bool
	runsOK     int
	runsFailed int
	lastRun    *RunSnapshot
}

type RunSnapshot struct {
	StartedAt  time.Time      `json:"started_at"`
	DurationMS int64          `json:"duration_ms"`
	Stats      model.RunStats `json:"stats"`
	TotalFiles int64          `json:"total_files"`
	ErrMsg     string         `json:"err_msg,omitempty"`
}

type StatusSnapshot struct {
	Src        string       `json:"src"`
	Dst        string       `json:"dst"`
	StartedAt  time.Time    `json:"started_at"`
	Running    bool         `json:"running"`
	RunsOK     int          `json:"runs_ok"`
	RunsFailed int          `json:"runs_failed"`
	LastRun    *RunSnapshot `json:"last_run,omitempty"`
}

func NewState(src, dst string) *State {
	return &State{
		src:       src,
		dst:       dst,
		startedAt: time.Now(),
	}
}

func (s *State) BeginRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
}

func (s *State) EndRun(result *engine.Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = false
	if err != nil {
		s.runsFailed++
	} else {
		s.runsOK++
	}

	snap := &RunSnapshot{StartedAt: time.Now()}
	if result != nil {
		snap.StartedAt = result.StartedAt
		snap.DurationMS = result.Duration.Milliseconds()
		snap.Stats = result.Stats
		snap.TotalFiles = result.TotalFiles
	}
	if err != nil {
		snap.ErrMsg = err.Error()
	}
	s.lastRun = snap
}

func (s *State) Snapshot() StatusSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := StatusSnapshot{
		Src:        s.src,
		Dst:        s.dst,
		StartedAt:  s.startedAt,
		Running:    s.running,
		RunsOK:     s.runsOK,
		RunsFailed: s.runsFailed,
	}
	if s.lastRun != nil {
		lastRun := *s.lastRun
		snap.LastRun = &lastRun
	}

	return snap
}
