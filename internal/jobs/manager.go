package jobs

import (
	"fmt"
	"sync"
	"time"

	"audio-transcriber/internal/domain"
)

// Manager tracks the single allowed active job and owns its state machine.
// Starting a second job while one is active is rejected, not queued.
type Manager struct {
	mu      sync.RWMutex
	machine *StateMachine
	current domain.Job
}

// NewManager creates a manager with no job and a ready state machine.
func NewManager() *Manager {
	return &Manager{machine: NewStateMachine()}
}

// Start registers a new job and moves it to the preparing state. A terminal
// previous job is restarted through the ready state first.
func (m *Manager) Start(job domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.machine.IsActive() {
		return domain.ErrJobAlreadyRunning
	}
	if m.machine.IsTerminal() {
		m.machine.Reset()
	}

	if job.StartedAt.IsZero() {
		job.StartedAt = time.Now().UTC()
	}

	err := m.machine.TransitionTo(domain.JobStatePreparing, domain.Progress{
		Message: fmt.Sprintf("Preparing model %s", job.ModelID),
	})
	if err != nil {
		return err
	}

	job.Progress = m.machine.Progress()
	m.current = job
	return nil
}

// Transition validates and applies a state change for the current job.
func (m *Manager) Transition(target domain.JobState, update domain.Progress) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.ID == "" {
		return fmt.Errorf("cannot transition without an active job")
	}
	if err := m.machine.TransitionTo(target, update); err != nil {
		return err
	}

	m.current.Progress = m.machine.Progress()
	return nil
}

// UpdateProgress refreshes the current job's snapshot without changing
// state, for repeated advancement within one stage.
func (m *Manager) UpdateProgress(update domain.Progress) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.ID == "" {
		return fmt.Errorf("cannot update progress without an active job")
	}
	if err := m.machine.UpdateProgress(update); err != nil {
		return err
	}

	m.current.Progress = m.machine.Progress()
	return nil
}

// Current returns a snapshot of the current job.
func (m *Manager) Current() domain.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// IsRunning reports whether a job is in an active stage.
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.machine.IsActive()
}

// History returns the state machine's snapshot history for diagnostics.
func (m *Manager) History() []domain.Progress {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.machine.History()
}

// Cancel moves an active job to the cancelled state.
func (m *Manager) Cancel() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.machine.IsActive() {
		return domain.ErrNoRunningJob
	}
	if err := m.machine.TransitionTo(domain.JobStateCancelled, domain.Progress{}); err != nil {
		return err
	}

	m.current.Progress = m.machine.Progress()
	return nil
}

// Reset clears job metadata and returns the machine to ready.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.machine.Reset()
	m.current = domain.Job{}
}
