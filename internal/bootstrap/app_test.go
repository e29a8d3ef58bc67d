package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"audio-transcriber/internal/diagnostics"
	"audio-transcriber/internal/domain"
	"audio-transcriber/internal/jobs"
	"audio-transcriber/internal/models"
	"audio-transcriber/internal/transcribe"
)

// fakeStore keeps settings in memory.
type fakeStore struct {
	settings domain.Settings
}

func (s *fakeStore) Load() (domain.Settings, error) { return s.settings, nil }
func (s *fakeStore) Save(cfg domain.Settings) error { s.settings = cfg; return nil }

// fakeExecutor scripts one run and optionally blocks until released.
type fakeExecutor struct {
	result  transcribe.Result
	err     error
	release chan struct{}
	updates []transcribe.Update
}

func (f *fakeExecutor) Run(ctx context.Context, req transcribe.Request) (transcribe.Result, error) {
	for _, u := range f.updates {
		if req.OnUpdate != nil {
			req.OnUpdate(u)
		}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return f.result, context.Canceled
		}
	}
	return f.result, f.err
}

// testSettings builds settings rooted in a temp dir.
func testSettings(t *testing.T) domain.Settings {
	t.Helper()
	root := t.TempDir()
	return domain.Settings{
		ModelID:   "tiny.en",
		ModelsDir: filepath.Join(root, "models"),
		OutputDir: filepath.Join(root, "out"),
		Language:  "auto",
	}
}

// writeUsableModel places a file above the size floor for tiny.en.
func writeUsableModel(t *testing.T, modelsDir string) {
	t.Helper()
	if err := os.MkdirAll(modelsDir, 0o755); err != nil {
		t.Fatalf("mkdir models: %v", err)
	}
	content := bytes.Repeat([]byte{0x7F}, 1<<20)
	if err := os.WriteFile(filepath.Join(modelsDir, "ggml-tiny.en.bin"), content, 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
}

// newTestApp wires an App with fakes and no Wails runtime.
func newTestApp(t *testing.T, settings domain.Settings, executor executorRunner) *App {
	t.Helper()
	app := &App{
		Store:           &fakeStore{settings: settings},
		Jobs:            jobs.NewManager(),
		downloader:      models.NewDownloaderForTests(http.DefaultClient, 0),
		events:          jobs.NewEventBus(1000),
		downloadCancels: make(map[string]context.CancelFunc),
	}
	app.newExecutor = func(string) executorRunner { return executor }
	app.checker = diagnostics.NewChecker(app.modelUsable)
	app.applySettings(settings)
	return app
}

// waitFor polls a condition with a deadline.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// terminalEventsFor counts terminal events published for one job.
func terminalEventsFor(app *App, jobID string) []jobs.Event {
	var out []jobs.Event
	for _, event := range app.JobEvents(0) {
		if event.JobID != jobID {
			continue
		}
		switch event.Type {
		case jobs.EventTypeResult, jobs.EventTypeError:
			out = append(out, event)
		case jobs.EventTypeStatus:
			if event.State.IsTerminal() {
				out = append(out, event)
			}
		}
	}
	return out
}

// TestStartTranscriptionRejectsMissingModel checks the usability gate.
func TestStartTranscriptionRejectsMissingModel(t *testing.T) {
	app := newTestApp(t, testSettings(t), &fakeExecutor{})

	_, err := app.StartTranscription("/audio/a.mp3")
	if !errors.Is(err, domain.ErrModelNotDownloaded) {
		t.Fatalf("error = %v, want ErrModelNotDownloaded", err)
	}
}

// TestStartTranscriptionCompletes checks the full happy path publishes
// exactly one terminal event.
func TestStartTranscriptionCompletes(t *testing.T) {
	settings := testSettings(t)
	writeUsableModel(t, settings.ModelsDir)

	executor := &fakeExecutor{
		result: transcribe.Result{
			TranscriptPath:   filepath.Join(settings.OutputDir, "a.txt"),
			DetectedLanguage: "en",
			ChunkCount:       3,
		},
		updates: []transcribe.Update{
			{State: domain.JobStateDetectingLanguage, Percentage: 10},
			{State: domain.JobStateTranscribing, Percentage: 38, CurrentChunk: 1, TotalChunks: 3},
			{State: domain.JobStateTranscribing, Percentage: 66, CurrentChunk: 2, TotalChunks: 3},
			{State: domain.JobStateTranscribing, Percentage: 95, CurrentChunk: 3, TotalChunks: 3},
		},
	}
	app := newTestApp(t, settings, executor)

	job, err := app.StartTranscription("/audio/a.mp3")
	if err != nil {
		t.Fatalf("StartTranscription() error = %v", err)
	}

	waitFor(t, "job completion", func() bool {
		return app.CurrentJob().Progress.State == domain.JobStateCompleted
	})

	// Every chunk update must surface as its own progress event; repeated
	// transcribing updates may not be swallowed.
	seenChunks := make(map[int]bool)
	for _, event := range app.JobEvents(0) {
		if event.JobID == job.ID && event.Type == jobs.EventTypeProgress && event.State == domain.JobStateTranscribing {
			seenChunks[event.CurrentChunk] = true
		}
	}
	for chunk := 1; chunk <= 3; chunk++ {
		if !seenChunks[chunk] {
			t.Fatalf("no transcribing progress event for chunk %d (saw %v)", chunk, seenChunks)
		}
	}

	terminal := terminalEventsFor(app, job.ID)
	if len(terminal) != 1 {
		t.Fatalf("terminal events = %d (%+v), want exactly 1", len(terminal), terminal)
	}
	if terminal[0].Type != jobs.EventTypeResult || terminal[0].TextPath == "" {
		t.Fatalf("terminal event = %+v, want result with transcript path", terminal[0])
	}
}

// TestStartTranscriptionRejectsSecondJob checks the single-job invariant
// end to end.
func TestStartTranscriptionRejectsSecondJob(t *testing.T) {
	settings := testSettings(t)
	writeUsableModel(t, settings.ModelsDir)

	release := make(chan struct{})
	executor := &fakeExecutor{release: release}
	app := newTestApp(t, settings, executor)

	first, err := app.StartTranscription("/audio/a.mp3")
	if err != nil {
		t.Fatalf("first StartTranscription() error = %v", err)
	}

	_, err = app.StartTranscription("/audio/b.mp3")
	if !errors.Is(err, domain.ErrJobAlreadyRunning) {
		t.Fatalf("second StartTranscription() error = %v, want ErrJobAlreadyRunning", err)
	}
	if got := app.CurrentJob().ID; got != first.ID {
		t.Fatalf("current job = %q, first job was displaced", got)
	}

	close(release)
	waitFor(t, "first job to finish", func() bool {
		return app.CurrentJob().Progress.State.IsTerminal()
	})
}

// TestCancelTranscription checks cancellation produces a single cancelled
// terminal event and not a failure.
func TestCancelTranscription(t *testing.T) {
	settings := testSettings(t)
	writeUsableModel(t, settings.ModelsDir)

	executor := &fakeExecutor{release: make(chan struct{})}
	app := newTestApp(t, settings, executor)

	job, err := app.StartTranscription("/audio/a.mp3")
	if err != nil {
		t.Fatalf("StartTranscription() error = %v", err)
	}
	if err := app.CancelTranscription(); err != nil {
		t.Fatalf("CancelTranscription() error = %v", err)
	}

	waitFor(t, "cancelled state", func() bool {
		return app.CurrentJob().Progress.State == domain.JobStateCancelled
	})

	terminal := terminalEventsFor(app, job.ID)
	if len(terminal) != 1 {
		t.Fatalf("terminal events = %d (%+v), want exactly 1", len(terminal), terminal)
	}
	if terminal[0].State != domain.JobStateCancelled || terminal[0].Type == jobs.EventTypeError {
		t.Fatalf("terminal event = %+v, want cancelled status", terminal[0])
	}
}

// TestCancelTranscriptionWithoutJob checks the idle error.
func TestCancelTranscriptionWithoutJob(t *testing.T) {
	app := newTestApp(t, testSettings(t), &fakeExecutor{})
	if err := app.CancelTranscription(); !errors.Is(err, domain.ErrNoRunningJob) {
		t.Fatalf("error = %v, want ErrNoRunningJob", err)
	}
}

// TestJobFailurePublishesErrorEvent checks failure mapping.
func TestJobFailurePublishesErrorEvent(t *testing.T) {
	settings := testSettings(t)
	writeUsableModel(t, settings.ModelsDir)

	executor := &fakeExecutor{err: errors.New("decoder exploded")}
	app := newTestApp(t, settings, executor)

	job, err := app.StartTranscription("/audio/a.mp3")
	if err != nil {
		t.Fatalf("StartTranscription() error = %v", err)
	}

	waitFor(t, "failed state", func() bool {
		return app.CurrentJob().Progress.State == domain.JobStateFailed
	})

	terminal := terminalEventsFor(app, job.ID)
	if len(terminal) != 1 || terminal[0].Type != jobs.EventTypeError {
		t.Fatalf("terminal events = %+v, want one error event", terminal)
	}
}

// TestSaveSettingsNormalizesAndRefreshes checks defaults fill empty fields.
func TestSaveSettingsNormalizesAndRefreshes(t *testing.T) {
	app := newTestApp(t, testSettings(t), &fakeExecutor{})

	saved, err := app.SaveSettings(domain.Settings{Language: "  de  "})
	if err != nil {
		t.Fatalf("SaveSettings() error = %v", err)
	}
	if saved.Language != "de" {
		t.Fatalf("language = %q, want trimmed de", saved.Language)
	}
	if saved.ModelID == "" || saved.ModelsDir == "" || saved.OutputDir == "" {
		t.Fatalf("saved settings missing defaults: %+v", saved)
	}
	if app.GetDiagnostics().GeneratedAt.IsZero() {
		t.Fatal("expected diagnostics refresh after save")
	}
}
