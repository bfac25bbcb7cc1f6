package workqueue

import "sync"

// ConcurrencyStrategy controls how many tasks may run at once.
// The strategy tracks running tasks and decides whether another can start.
type ConcurrencyStrategy interface {
	// CanStart returns true if a task can start given current state
	CanStart() bool
	// OnStart is called when a task starts
	OnStart()
	// OnComplete is called when a task completes
	OnComplete()
}

// ============================================================================
// UnboundedStrategy - every task starts as soon as it is enqueued
// ============================================================================

// UnboundedStrategy lets every task run immediately.
type UnboundedStrategy struct{}

// NewUnboundedStrategy creates the default strategy.
func NewUnboundedStrategy() *UnboundedStrategy {
	return &UnboundedStrategy{}
}

func (s *UnboundedStrategy) CanStart() bool {
	return true
}

func (s *UnboundedStrategy) OnStart() {}

func (s *UnboundedStrategy) OnComplete() {}

// ============================================================================
// ThrottledStrategy - Up to N parallel tasks
// ============================================================================

// ThrottledStrategy allows up to maxConcurrent tasks to run in parallel.
type ThrottledStrategy struct {
	mu            sync.Mutex
	maxConcurrent int
	running       int
}

// NewThrottledStrategy creates a strategy that allows up to maxConcurrent
// tasks to run in parallel.
func NewThrottledStrategy(maxConcurrent int) *ThrottledStrategy {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &ThrottledStrategy{
		maxConcurrent: maxConcurrent,
	}
}

// StrategyFor returns a ThrottledStrategy for a positive limit and an
// UnboundedStrategy otherwise.
func StrategyFor(maxConcurrent int) ConcurrencyStrategy {
	if maxConcurrent > 0 {
		return NewThrottledStrategy(maxConcurrent)
	}
	return NewUnboundedStrategy()
}

func (s *ThrottledStrategy) CanStart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running < s.maxConcurrent
}

func (s *ThrottledStrategy) OnStart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running++
}

func (s *ThrottledStrategy) OnComplete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running > 0 {
		s.running--
	}
}
