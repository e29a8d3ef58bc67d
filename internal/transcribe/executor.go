package transcribe

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"audio-transcriber/internal/domain"
	"audio-transcriber/internal/speech"
)

// Progress percentages are split into fixed bands so the bar moves
// predictably: preparation and detection own the first tenth, chunk
// transcription the bulk, and the final flush the remainder.
const (
	percentPreparing    = 5
	percentDetecting    = 10
	percentTranscribing = 85
	percentComplete     = 100
)

// Extractor is the audio capability the executor needs. The production
// implementation shells out to ffprobe and ffmpeg.
type Extractor interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
	ExtractPCM(ctx context.Context, path string, startSeconds, durationSeconds float64) ([]byte, error)
}

// Update is one progress notification pushed to the caller while a job
// runs. Fields mirror the job progress snapshot the caller maintains.
type Update struct {
	State            domain.JobState
	Percentage       int
	CurrentChunk     int
	TotalChunks      int
	DetectedLanguage string
	Message          string
}

// Request describes one transcription job.
type Request struct {
	JobID     string
	AudioPath string
	OutputDir string

	// Language is an explicit hint. Empty or "auto" means detect from a
	// sample of the recording.
	Language string

	OnUpdate func(Update)
}

// Result summarizes a completed run.
type Result struct {
	TranscriptPath   string
	DetectedLanguage string
	ChunkCount       int
	FailedChunks     int
	DurationSeconds  float64
}

// Executor runs transcription jobs chunk by chunk. A single chunk failure
// is recorded inline in the transcript and the run continues; only probe,
// sink, and cancellation errors abort a job.
type Executor struct {
	extractor Extractor
	engine    speech.Engine
}

// NewExecutor wires an executor from its two capabilities.
func NewExecutor(extractor Extractor, engine speech.Engine) *Executor {
	return &Executor{extractor: extractor, engine: engine}
}

// Run executes one job to completion. Cancellation is honored at chunk
// boundaries and surfaces as context.Canceled; any transcript produced so
// far remains on disk.
func (e *Executor) Run(ctx context.Context, req Request) (Result, error) {
	notify := req.OnUpdate
	if notify == nil {
		notify = func(Update) {}
	}

	notify(Update{
		State:      domain.JobStatePreparing,
		Percentage: percentPreparing,
		Message:    "Analyzing audio file...",
	})

	duration, err := e.extractor.ProbeDuration(ctx, req.AudioPath)
	if err != nil {
		return Result{}, err
	}

	language, detected := e.resolveLanguage(ctx, req, duration, notify)

	chunks := PlanChunks(duration)
	sink, err := NewTranscriptSink(transcriptPath(req))
	if err != nil {
		return Result{}, err
	}
	defer sink.Close()

	result := Result{
		TranscriptPath:   sink.Path(),
		DetectedLanguage: detected,
		ChunkCount:       len(chunks),
		DurationSeconds:  duration,
	}

	hint := language
	if hint == speech.DefaultLanguage && detected == "" {
		// The fallback language is an assumption, not knowledge. Let the
		// model decide rather than forcing a possibly wrong hint.
		hint = ""
	}

	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return result, context.Canceled
		}

		text, chunkErr := e.transcribeChunk(ctx, req.AudioPath, chunk, hint)
		if chunkErr != nil {
			if ctx.Err() != nil {
				return result, context.Canceled
			}
			result.FailedChunks++
			text = fmt.Sprintf("[error transcribing chunk %d: %v]", chunk.Index+1, chunkErr)
		}

		if err := sink.Append(text); err != nil {
			return result, err
		}

		done := chunk.Index + 1
		notify(Update{
			State:            domain.JobStateTranscribing,
			Percentage:       percentDetecting + percentTranscribing*done/len(chunks),
			CurrentChunk:     done,
			TotalChunks:      len(chunks),
			DetectedLanguage: detected,
			Message:          fmt.Sprintf("Transcribed chunk %d of %d", done, len(chunks)),
		})
	}

	if err := sink.Close(); err != nil {
		return result, fmt.Errorf("finalize transcript: %w", err)
	}

	notify(Update{
		State:            domain.JobStateCompleted,
		Percentage:       percentComplete,
		CurrentChunk:     len(chunks),
		TotalChunks:      len(chunks),
		DetectedLanguage: detected,
	})

	return result, nil
}

// resolveLanguage returns the language used for transcription and, when
// detection ran, what it reported. Detection failures fall back to the
// default language; they never fail the job.
func (e *Executor) resolveLanguage(ctx context.Context, req Request, duration float64, notify func(Update)) (language, detected string) {
	explicit := strings.TrimSpace(strings.ToLower(req.Language))
	if explicit != "" && explicit != "auto" {
		return explicit, ""
	}

	notify(Update{
		State:      domain.JobStateDetectingLanguage,
		Percentage: percentDetecting,
	})

	start, length := DetectionWindow(duration)
	samples, err := e.extractor.ExtractPCM(ctx, req.AudioPath, start, length)
	if err != nil {
		return speech.DefaultLanguage, ""
	}

	lang, err := e.engine.DetectLanguage(ctx, samples)
	if err != nil || lang == "" {
		return speech.DefaultLanguage, ""
	}

	return lang, lang
}

// transcribeChunk extracts and transcribes one window.
func (e *Executor) transcribeChunk(ctx context.Context, audioPath string, chunk ChunkSpec, language string) (string, error) {
	samples, err := e.extractor.ExtractPCM(ctx, audioPath, chunk.StartSeconds, chunk.DurationSeconds)
	if err != nil {
		return "", err
	}
	return e.engine.Transcribe(ctx, samples, language)
}

// transcriptPath derives the output file name from the audio file name.
func transcriptPath(req Request) string {
	base := strings.TrimSuffix(filepath.Base(req.AudioPath), filepath.Ext(req.AudioPath))
	if base == "" {
		base = req.JobID
	}
	return filepath.Join(req.OutputDir, base+".txt")
}

// IsAborted reports whether a run error means cancellation rather than
// failure.
func IsAborted(err error) bool {
	return errors.Is(err, context.Canceled)
}
