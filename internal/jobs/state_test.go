package jobs

import (
	"errors"
	"testing"

	"audio-transcriber/internal/domain"
)

// TestStateMachineStartsReady verifies the initial state and history entry.
func TestStateMachineStartsReady(t *testing.T) {
	m := NewStateMachine()
	if got := m.Current(); got != domain.JobStateReady {
		t.Fatalf("initial state = %s, want ready", got)
	}
	if history := m.History(); len(history) != 1 || history[0].State != domain.JobStateReady {
		t.Fatalf("initial history = %+v, want one ready entry", history)
	}
}

// TestStateMachineHappyPath walks the full lifecycle with detection.
func TestStateMachineHappyPath(t *testing.T) {
	m := NewStateMachine()
	path := []domain.JobState{
		domain.JobStatePreparing,
		domain.JobStateDetectingLanguage,
		domain.JobStateTranscribing,
		domain.JobStatePostProcessing,
		domain.JobStateCompleted,
	}

	for _, target := range path {
		if err := m.TransitionTo(target, domain.Progress{}); err != nil {
			t.Fatalf("TransitionTo(%s) error = %v", target, err)
		}
	}

	if !m.IsTerminal() {
		t.Fatal("expected terminal state after completion")
	}
	if got := len(m.History()); got != len(path)+1 {
		t.Fatalf("history length = %d, want %d", got, len(path)+1)
	}
}

// TestStateMachineSkipsOptionalStages verifies detection and post-processing
// can be skipped.
func TestStateMachineSkipsOptionalStages(t *testing.T) {
	m := NewStateMachine()
	for _, target := range []domain.JobState{
		domain.JobStatePreparing,
		domain.JobStateTranscribing,
		domain.JobStateCompleted,
	} {
		if err := m.TransitionTo(target, domain.Progress{}); err != nil {
			t.Fatalf("TransitionTo(%s) error = %v", target, err)
		}
	}
}

// TestStateMachineRejectsIllegalTransitions exhaustively checks every pair
// not present in the transition table.
func TestStateMachineRejectsIllegalTransitions(t *testing.T) {
	all := []domain.JobState{
		domain.JobStateReady,
		domain.JobStatePreparing,
		domain.JobStateDetectingLanguage,
		domain.JobStateTranscribing,
		domain.JobStatePostProcessing,
		domain.JobStateCompleted,
		domain.JobStateFailed,
		domain.JobStateCancelled,
	}

	for _, from := range all {
		for _, to := range all {
			m := NewStateMachine()
			forceState(t, m, from)

			err := m.TransitionTo(to, domain.Progress{})
			if isAllowed(from, to) {
				if err != nil {
					t.Errorf("%s -> %s: unexpected error %v", from, to, err)
				}
				continue
			}

			if !errors.Is(err, domain.ErrInvalidTransition) {
				t.Errorf("%s -> %s: error = %v, want ErrInvalidTransition", from, to, err)
			}
			if got := m.Current(); got != from {
				t.Errorf("%s -> %s: state changed to %s on illegal transition", from, to, got)
			}
		}
	}
}

// TestStateMachineClampsPercentage checks clamping below 0 and above 100.
func TestStateMachineClampsPercentage(t *testing.T) {
	m := NewStateMachine()
	if err := m.TransitionTo(domain.JobStatePreparing, domain.Progress{Percentage: -20}); err != nil {
		t.Fatalf("TransitionTo error = %v", err)
	}
	if got := m.Progress().Percentage; got != 0 {
		t.Fatalf("percentage = %d, want 0", got)
	}

	if err := m.TransitionTo(domain.JobStateTranscribing, domain.Progress{Percentage: 250}); err != nil {
		t.Fatalf("TransitionTo error = %v", err)
	}
	if got := m.Progress().Percentage; got != 100 {
		t.Fatalf("percentage = %d, want 100", got)
	}
}

// TestStateMachineDefaultMessages checks empty messages get per-state text.
func TestStateMachineDefaultMessages(t *testing.T) {
	m := NewStateMachine()
	if err := m.TransitionTo(domain.JobStatePreparing, domain.Progress{}); err != nil {
		t.Fatalf("TransitionTo error = %v", err)
	}
	if got := m.Progress().Message; got != "Preparing transcription resources..." {
		t.Fatalf("message = %q", got)
	}

	if err := m.TransitionTo(domain.JobStateTranscribing, domain.Progress{Percentage: 42}); err != nil {
		t.Fatalf("TransitionTo error = %v", err)
	}
	if got := m.Progress().Message; got != "Transcribing audio... (42%)" {
		t.Fatalf("message = %q", got)
	}

	if err := m.TransitionTo(domain.JobStateCompleted, domain.Progress{Message: "custom"}); err != nil {
		t.Fatalf("TransitionTo error = %v", err)
	}
	if got := m.Progress().Message; got != "custom" {
		t.Fatalf("message = %q, want custom to survive", got)
	}
}

// TestStateMachineUpdateProgressStaysInState checks repeated snapshot
// refreshes within one stage: the state is unchanged, the snapshot and
// history advance, and self transitions through the table stay illegal.
func TestStateMachineUpdateProgressStaysInState(t *testing.T) {
	m := NewStateMachine()
	forceState(t, m, domain.JobStateTranscribing)

	if err := m.TransitionTo(domain.JobStateTranscribing, domain.Progress{}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("self transition error = %v, want ErrInvalidTransition", err)
	}

	before := len(m.History())
	for chunk := 1; chunk <= 3; chunk++ {
		err := m.UpdateProgress(domain.Progress{
			Percentage:   10 + 30*chunk,
			CurrentChunk: chunk,
			TotalChunks:  3,
		})
		if err != nil {
			t.Fatalf("UpdateProgress(chunk %d) error = %v", chunk, err)
		}
	}

	if got := m.Current(); got != domain.JobStateTranscribing {
		t.Fatalf("state = %s, want transcribing", got)
	}
	progress := m.Progress()
	if progress.CurrentChunk != 3 || progress.Percentage != 100 {
		t.Fatalf("snapshot = %+v, want chunk 3 at 100%%", progress)
	}
	if got := len(m.History()); got != before+3 {
		t.Fatalf("history length = %d, want %d", got, before+3)
	}
}

// TestStateMachineUpdateProgressRequiresActiveState checks refreshes are
// rejected outside the in-flight states.
func TestStateMachineUpdateProgressRequiresActiveState(t *testing.T) {
	for _, state := range []domain.JobState{
		domain.JobStateReady,
		domain.JobStateCompleted,
		domain.JobStateFailed,
		domain.JobStateCancelled,
	} {
		m := NewStateMachine()
		forceState(t, m, state)

		if err := m.UpdateProgress(domain.Progress{Percentage: 50}); !errors.Is(err, domain.ErrInvalidTransition) {
			t.Errorf("UpdateProgress in %s: error = %v, want ErrInvalidTransition", state, err)
		}
	}
}

// TestStateMachineTerminalToReadyOnly checks restart edges.
func TestStateMachineTerminalToReadyOnly(t *testing.T) {
	for _, terminal := range []domain.JobState{
		domain.JobStateCompleted,
		domain.JobStateFailed,
		domain.JobStateCancelled,
	} {
		m := NewStateMachine()
		forceState(t, m, terminal)

		if err := m.TransitionTo(domain.JobStatePreparing, domain.Progress{}); !errors.Is(err, domain.ErrInvalidTransition) {
			t.Errorf("%s -> preparing: error = %v, want ErrInvalidTransition", terminal, err)
		}
		if err := m.TransitionTo(domain.JobStateReady, domain.Progress{}); err != nil {
			t.Errorf("%s -> ready: unexpected error %v", terminal, err)
		}
	}
}

// TestStateMachineReset checks reset clears state and history.
func TestStateMachineReset(t *testing.T) {
	m := NewStateMachine()
	forceState(t, m, domain.JobStateFailed)

	m.Reset()
	if got := m.Current(); got != domain.JobStateReady {
		t.Fatalf("state after reset = %s, want ready", got)
	}
	if got := len(m.History()); got != 1 {
		t.Fatalf("history length after reset = %d, want 1", got)
	}
}

// forceState walks the machine to the target state through legal edges.
func forceState(t *testing.T, m *StateMachine, target domain.JobState) {
	t.Helper()

	var path []domain.JobState
	switch target {
	case domain.JobStateReady:
		return
	case domain.JobStatePreparing:
		path = []domain.JobState{domain.JobStatePreparing}
	case domain.JobStateDetectingLanguage:
		path = []domain.JobState{domain.JobStatePreparing, domain.JobStateDetectingLanguage}
	case domain.JobStateTranscribing:
		path = []domain.JobState{domain.JobStatePreparing, domain.JobStateTranscribing}
	case domain.JobStatePostProcessing:
		path = []domain.JobState{domain.JobStatePreparing, domain.JobStateTranscribing, domain.JobStatePostProcessing}
	case domain.JobStateCompleted:
		path = []domain.JobState{domain.JobStatePreparing, domain.JobStateTranscribing, domain.JobStateCompleted}
	case domain.JobStateFailed:
		path = []domain.JobState{domain.JobStatePreparing, domain.JobStateFailed}
	case domain.JobStateCancelled:
		path = []domain.JobState{domain.JobStatePreparing, domain.JobStateCancelled}
	default:
		t.Fatalf("unknown target state: %s", target)
	}

	for _, step := range path {
		if err := m.TransitionTo(step, domain.Progress{}); err != nil {
			t.Fatalf("forceState(%s): %v", target, err)
		}
	}
}
