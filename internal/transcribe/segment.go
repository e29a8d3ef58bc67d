// Package transcribe turns one audio file into one transcript by splitting
// it into fixed-size windows and running each window through the speech
// engine. Chunk boundaries are where progress is reported and cancellation
// is honored.
package transcribe

import "math"

// ChunkSeconds is the length of every transcription window except the
// final remainder.
const ChunkSeconds = 600.0

// detectSampleSeconds is the length of the window sampled for language
// detection when the recording is long enough to carve one out.
const detectSampleSeconds = 120.0

// ChunkSpec identifies one transcription window within the recording.
type ChunkSpec struct {
	Index           int
	StartSeconds    float64
	DurationSeconds float64
}

// PlanChunks splits a recording into sequential windows of ChunkSeconds,
// with the last window covering the remainder. A non-positive duration
// plans nothing.
func PlanChunks(durationSeconds float64) []ChunkSpec {
	if durationSeconds <= 0 {
		return nil
	}

	count := int(math.Ceil(durationSeconds / ChunkSeconds))
	chunks := make([]ChunkSpec, 0, count)
	for i := 0; i < count; i++ {
		start := float64(i) * ChunkSeconds
		length := ChunkSeconds
		if start+length > durationSeconds {
			length = durationSeconds - start
		}
		chunks = append(chunks, ChunkSpec{
			Index:           i,
			StartSeconds:    start,
			DurationSeconds: length,
		})
	}

	return chunks
}

// DetectionWindow returns the window sampled for language detection. Short
// recordings are sampled whole; longer ones contribute detectSampleSeconds
// starting just before the midpoint, where speech is more likely than in
// an intro or outro.
func DetectionWindow(durationSeconds float64) (startSeconds, lengthSeconds float64) {
	if durationSeconds <= 0 {
		return 0, 0
	}
	if durationSeconds < detectSampleSeconds {
		return 0, durationSeconds
	}

	start := durationSeconds/2 - detectSampleSeconds/2
	if start < 0 {
		start = 0
	}
	return start, detectSampleSeconds
}
