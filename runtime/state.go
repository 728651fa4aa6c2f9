package runtime

import "sync"

// RunState carries the aggregate counters for the current run: how many items
// the view expects, how many resolved, how many succeeded. The orchestrator
// snapshots the total at enqueue time; the worker advances the rest. Bulk
// mode derives from the snapshot, so a batch never blocks on user prompts.
type RunState struct {
	mu        sync.Mutex
	total     int
	done      int
	succeeded int
}

func NewRunState() *RunState {
	return &RunState{}
}

// SetTotal records the queue-length snapshot taken when files were added.
func (s *RunState) SetTotal(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total = n
}

// Bulk reports whether the last enqueue snapshot held more than one file.
func (s *RunState) Bulk() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total > 1
}

// IncrementDone counts one resolved item and returns the updated pair.
func (s *RunState) IncrementDone() (done, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done++
	return s.done, s.total
}

func (s *RunState) IncrementSucceeded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.succeeded++
}

func (s *RunState) Done() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *RunState) Succeeded() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.succeeded
}

// Reset clears the view counters. Called on cancellation; the durable stores
// are never touched here.
func (s *RunState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total, s.done, s.succeeded = 0, 0, 0
}
