package bootstrap

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"audio-transcriber/internal/domain"
	"audio-transcriber/internal/jobs"
	"audio-transcriber/internal/transcribe"
)

// StartTranscription creates a job for the given audio file and runs it in
// the background. It refuses to start while a job is active or when the
// selected model has no usable local file.
func (a *App) StartTranscription(inputPath string) (domain.Job, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Job{}, fmt.Errorf("load settings: %w", err)
	}
	a.applySettings(settings)

	mgr := a.assetManager()
	asset, err := mgr.Asset(settings.ModelID)
	if err != nil {
		return domain.Job{}, err
	}
	if !asset.Usable {
		return domain.Job{}, fmt.Errorf("%w: %s", domain.ErrModelNotDownloaded, settings.ModelID)
	}

	job := domain.Job{
		ID:        uuid.NewString(),
		AudioPath: inputPath,
		ModelID:   settings.ModelID,
	}
	if err := a.Jobs.Start(job); err != nil {
		return domain.Job{}, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.mu.Lock()
	a.activeJobID = job.ID
	a.cancelJob = cancel
	a.mu.Unlock()

	a.publishProgress(job.ID, a.Jobs.Current().Progress)

	go a.runJob(ctx, job, settings, asset.LocalPath)
	return a.Jobs.Current(), nil
}

// CancelTranscription requests cancellation of the running job. The job
// goroutine observes the cancelled context at the next chunk boundary and
// publishes the single terminal event itself.
func (a *App) CancelTranscription() error {
	a.mu.Lock()
	cancel := a.cancelJob
	a.mu.Unlock()

	if cancel == nil {
		return domain.ErrNoRunningJob
	}

	cancel()
	return nil
}

// CurrentJob returns current job metadata and progress.
func (a *App) CurrentJob() domain.Job {
	return a.Jobs.Current()
}

// JobHistory returns every progress snapshot recorded for the current run.
func (a *App) JobHistory() []domain.Progress {
	return a.Jobs.History()
}

// runJob executes one job and owns its terminal transition and event. No
// other goroutine publishes a terminal event for this job id.
func (a *App) runJob(ctx context.Context, job domain.Job, settings domain.Settings, modelPath string) {
	executor := a.newExecutor(modelPath)

	req := transcribe.Request{
		JobID:     job.ID,
		AudioPath: job.AudioPath,
		OutputDir: settings.OutputDir,
		Language:  settings.Language,
		OnUpdate: func(update transcribe.Update) {
			if update.State.IsTerminal() {
				return
			}
			progress := domain.Progress{
				Percentage:       update.Percentage,
				CurrentChunk:     update.CurrentChunk,
				TotalChunks:      update.TotalChunks,
				Message:          update.Message,
				DetectedLanguage: update.DetectedLanguage,
			}
			// The table has no self edges, so staying within a stage (one
			// update per chunk while transcribing) is a snapshot refresh,
			// not a transition.
			var err error
			if update.State == a.Jobs.Current().Progress.State {
				err = a.Jobs.UpdateProgress(progress)
			} else {
				err = a.Jobs.Transition(update.State, progress)
			}
			if err != nil {
				return
			}
			a.publishProgress(job.ID, a.Jobs.Current().Progress)
		},
	}

	result, err := executor.Run(ctx, req)
	if err != nil {
		if transcribe.IsAborted(err) || ctx.Err() != nil {
			_ = a.Jobs.Transition(domain.JobStateCancelled, domain.Progress{})
			a.publishEvent(jobs.Event{
				JobID:   job.ID,
				Type:    jobs.EventTypeStatus,
				State:   domain.JobStateCancelled,
				Message: a.Jobs.Current().Progress.Message,
			})
			a.clearActiveJob(job.ID)
			return
		}

		_ = a.Jobs.Transition(domain.JobStateFailed, domain.Progress{
			Message: err.Error(),
		})
		a.publishEvent(jobs.Event{
			JobID:   job.ID,
			Type:    jobs.EventTypeError,
			State:   domain.JobStateFailed,
			Message: err.Error(),
		})
		a.clearActiveJob(job.ID)
		return
	}

	message := "Transcription completed successfully"
	if result.FailedChunks > 0 {
		message = fmt.Sprintf("Transcription completed with %d failed chunk(s)", result.FailedChunks)
	}
	_ = a.Jobs.Transition(domain.JobStateCompleted, domain.Progress{
		Percentage:       100,
		CurrentChunk:     result.ChunkCount,
		TotalChunks:      result.ChunkCount,
		Message:          message,
		DetectedLanguage: result.DetectedLanguage,
	})
	a.publishEvent(jobs.Event{
		JobID:            job.ID,
		Type:             jobs.EventTypeResult,
		State:            domain.JobStateCompleted,
		Percentage:       100,
		CurrentChunk:     result.ChunkCount,
		TotalChunks:      result.ChunkCount,
		Message:          message,
		DetectedLanguage: result.DetectedLanguage,
		TextPath:         result.TranscriptPath,
	})
	a.clearActiveJob(job.ID)
}

// publishProgress maps one progress snapshot onto the event stream.
func (a *App) publishProgress(jobID string, progress domain.Progress) {
	a.publishEvent(jobs.Event{
		JobID:            jobID,
		Type:             jobs.EventTypeProgress,
		State:            progress.State,
		Percentage:       progress.Percentage,
		CurrentChunk:     progress.CurrentChunk,
		TotalChunks:      progress.TotalChunks,
		Message:          progress.Message,
		DetectedLanguage: progress.DetectedLanguage,
	})
}

// clearActiveJob clears cancellation handles for completed job IDs.
func (a *App) clearActiveJob(jobID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.activeJobID == jobID {
		a.activeJobID = ""
		a.cancelJob = nil
	}
}
