package jobs

import (
	"fmt"
	"sync"
	"time"

	"audio-transcriber/internal/domain"
)

// allowedTransitions enumerates the legal lifecycle edges for a job.
// Detection may be skipped for very short audio and post-processing is
// optional, hence the extra edges out of Preparing and Transcribing.
var allowedTransitions = map[domain.JobState][]domain.JobState{
	domain.JobStateReady: {
		domain.JobStatePreparing,
		domain.JobStateCancelled,
	},
	domain.JobStatePreparing: {
		domain.JobStateDetectingLanguage,
		domain.JobStateTranscribing,
		domain.JobStateFailed,
		domain.JobStateCancelled,
	},
	domain.JobStateDetectingLanguage: {
		domain.JobStateTranscribing,
		domain.JobStateFailed,
		domain.JobStateCancelled,
	},
	domain.JobStateTranscribing: {
		domain.JobStatePostProcessing,
		domain.JobStateCompleted,
		domain.JobStateFailed,
		domain.JobStateCancelled,
	},
	domain.JobStatePostProcessing: {
		domain.JobStateCompleted,
		domain.JobStateFailed,
		domain.JobStateCancelled,
	},
	domain.JobStateCompleted: {domain.JobStateReady},
	domain.JobStateFailed:    {domain.JobStateReady},
	domain.JobStateCancelled: {domain.JobStateReady},
}

// StateMachine enforces legal lifecycle transitions for one transcription
// run and keeps an in-memory history of progress snapshots.
type StateMachine struct {
	mu       sync.RWMutex
	current  domain.JobState
	progress domain.Progress
	history  []domain.Progress
}

// NewStateMachine creates a machine in the ready state.
func NewStateMachine() *StateMachine {
	initial := domain.Progress{
		State:     domain.JobStateReady,
		Message:   defaultMessage(domain.JobStateReady, 0),
		Timestamp: time.Now().UTC(),
	}
	return &StateMachine{
		current:  domain.JobStateReady,
		progress: initial,
		history:  []domain.Progress{initial},
	}
}

// Current returns the current state.
func (m *StateMachine) Current() domain.JobState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Progress returns the latest progress snapshot.
func (m *StateMachine) Progress() domain.Progress {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.progress
}

// History returns a copy of all snapshots recorded since the last reset.
func (m *StateMachine) History() []domain.Progress {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Progress, len(m.history))
	copy(out, m.history)
	return out
}

// CanTransitionTo reports whether the target is legal from the current state.
func (m *StateMachine) CanTransitionTo(target domain.JobState) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return isAllowed(m.current, target)
}

// TransitionTo applies one legal transition and atomically replaces the
// progress snapshot. The update's State field is overwritten with target,
// percentage is clamped to [0,100], and an empty message gets a per-state
// default. An illegal target returns ErrInvalidTransition and leaves both
// state and snapshot unchanged.
func (m *StateMachine) TransitionTo(target domain.JobState, update domain.Progress) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !isAllowed(m.current, target) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, m.current, target)
	}

	update.State = target
	update.Percentage = clampPercentage(update.Percentage)
	if update.Message == "" {
		update.Message = defaultMessage(target, update.Percentage)
	}
	if update.Timestamp.IsZero() {
		update.Timestamp = time.Now().UTC()
	}

	m.current = target
	m.progress = update
	m.history = append(m.history, update)
	return nil
}

// UpdateProgress replaces the snapshot while staying in the current state.
// It is how per-chunk advancement is recorded: the transition table has no
// self edges, so repeated updates within one stage go through here. The
// machine must be in an active state.
func (m *StateMachine) UpdateProgress(update domain.Progress) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.current.IsActive() {
		return fmt.Errorf("%w: cannot update progress in state %s", domain.ErrInvalidTransition, m.current)
	}

	update.State = m.current
	update.Percentage = clampPercentage(update.Percentage)
	if update.Message == "" {
		update.Message = defaultMessage(m.current, update.Percentage)
	}
	if update.Timestamp.IsZero() {
		update.Timestamp = time.Now().UTC()
	}

	m.progress = update
	m.history = append(m.history, update)
	return nil
}

// IsTerminal reports whether the machine reached a terminal state.
func (m *StateMachine) IsTerminal() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.IsTerminal()
}

// IsActive reports whether a run is currently in flight.
func (m *StateMachine) IsActive() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.IsActive()
}

// Reset returns the machine to ready and starts a fresh history.
func (m *StateMachine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	initial := domain.Progress{
		State:     domain.JobStateReady,
		Message:   defaultMessage(domain.JobStateReady, 0),
		Timestamp: time.Now().UTC(),
	}
	m.current = domain.JobStateReady
	m.progress = initial
	m.history = []domain.Progress{initial}
}

// isAllowed checks the transition table for one edge.
func isAllowed(from, to domain.JobState) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// clampPercentage bounds a progress percentage to [0,100].
func clampPercentage(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// defaultMessage supplies a status message when a transition carries none.
func defaultMessage(state domain.JobState, percentage int) string {
	switch state {
	case domain.JobStateReady:
		return "Ready to start transcription"
	case domain.JobStatePreparing:
		return "Preparing transcription resources..."
	case domain.JobStateDetectingLanguage:
		return "Detecting audio language..."
	case domain.JobStateTranscribing:
		return fmt.Sprintf("Transcribing audio... (%d%%)", percentage)
	case domain.JobStatePostProcessing:
		return "Processing transcript..."
	case domain.JobStateCompleted:
		return "Transcription completed successfully"
	case domain.JobStateFailed:
		return "Transcription failed"
	case domain.JobStateCancelled:
		return "Transcription cancelled"
	default:
		return state.DisplayName()
	}
}
