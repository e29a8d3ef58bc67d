package domain

import "errors"

var (
	// Job lifecycle errors
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrJobAlreadyRunning = errors.New("a transcription job is already running")
	ErrNoRunningJob      = errors.New("no running job")

	// Audio errors
	ErrAudioUnreadable = errors.New("audio file cannot be read")

	// Model errors
	ErrModelNotFound        = errors.New("model not found in catalog")
	ErrModelNotDownloaded   = errors.New("model is not downloaded")
	ErrIntegrityCheckFailed = errors.New("file integrity check failed")
	ErrDownloadCancelled    = errors.New("download cancelled")
)
