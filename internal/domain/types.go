package domain

import "time"

// JobState tracks the lifecycle phase of a single transcription job.
type JobState string

const (
	JobStateReady             JobState = "ready"
	JobStatePreparing         JobState = "preparing"
	JobStateDetectingLanguage JobState = "detecting_language"
	JobStateTranscribing      JobState = "transcribing"
	JobStatePostProcessing    JobState = "post_processing"
	JobStateCompleted         JobState = "completed"
	JobStateFailed            JobState = "failed"
	JobStateCancelled         JobState = "cancelled"
)

// IsTerminal reports whether no further progress occurs without an explicit restart.
func (s JobState) IsTerminal() bool {
	switch s {
	case JobStateCompleted, JobStateFailed, JobStateCancelled:
		return true
	default:
		return false
	}
}

// IsActive reports whether the state is one of the four in-flight stages.
func (s JobState) IsActive() bool {
	switch s {
	case JobStatePreparing, JobStateDetectingLanguage, JobStateTranscribing, JobStatePostProcessing:
		return true
	default:
		return false
	}
}

// DisplayName returns a human-readable state label.
func (s JobState) DisplayName() string {
	switch s {
	case JobStateReady:
		return "Ready"
	case JobStatePreparing:
		return "Preparing"
	case JobStateDetectingLanguage:
		return "Detecting Language"
	case JobStateTranscribing:
		return "Transcribing"
	case JobStatePostProcessing:
		return "Post-processing"
	case JobStateCompleted:
		return "Completed"
	case JobStateFailed:
		return "Failed"
	case JobStateCancelled:
		return "Cancelled"
	default:
		return string(s)
	}
}

// Progress is one immutable snapshot of job advancement. State and progress
// fields are replaced together so readers never observe a half-updated pair.
type Progress struct {
	State            JobState  `json:"state"`
	Percentage       int       `json:"percentage"`
	CurrentChunk     int       `json:"currentChunk"`
	TotalChunks      int       `json:"totalChunks"`
	Message          string    `json:"message"`
	DetectedLanguage string    `json:"detectedLanguage,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// Job stores the identity and latest progress snapshot for one run.
type Job struct {
	ID        string    `json:"id"`
	AudioPath string    `json:"audioPath"`
	ModelID   string    `json:"modelId"`
	Progress  Progress  `json:"progress"`
	StartedAt time.Time `json:"startedAt"`
}

// Settings contains user-selectable runtime configuration.
type Settings struct {
	ModelID     string `json:"modelId"`
	ModelsDir   string `json:"modelsDir"`
	OutputDir   string `json:"outputDir"`
	Language    string `json:"language"`
	CatalogPath string `json:"catalogPath,omitempty"`
}
