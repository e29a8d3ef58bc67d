// Package speech defines the narrow contract this application needs from a
// speech-recognition model and provides a whisper.cpp-backed implementation.
// The model itself is a black box; callers only see the two capabilities
// below.
package speech

import "context"

// DefaultLanguage is assumed when detection fails or is unavailable.
// Detection is a best-effort accuracy optimization, never a reason to fail
// a job.
const DefaultLanguage = "en"

// Engine is the speech-model capability used by the transcription engine.
// Samples are mono 16 kHz 16-bit little-endian PCM.
type Engine interface {
	// DetectLanguage returns an ISO language code for the sample.
	DetectLanguage(ctx context.Context, samples []byte) (string, error)

	// Transcribe converts the samples to text. An empty language means no
	// hint: the model decides on its own.
	Transcribe(ctx context.Context, samples []byte, language string) (string, error)
}
