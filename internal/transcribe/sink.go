package transcribe

import (
	"fmt"
	"os"
	"path/filepath"
)

// TranscriptSink appends chunk texts to the transcript file as they are
// produced, separating consecutive entries with a blank line. Writing
// incrementally means a failed job still leaves the chunks that succeeded
// on disk.
type TranscriptSink struct {
	file     *os.File
	path     string
	wroteAny bool
}

// NewTranscriptSink creates the transcript file, truncating any previous
// run's output and creating the parent directory when missing.
func NewTranscriptSink(path string) (*TranscriptSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create transcript directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create transcript file: %w", err)
	}

	return &TranscriptSink{file: file, path: path}, nil
}

// Append writes one chunk's text, preceded by a blank line when text was
// already written. Empty texts are skipped so silent chunks do not produce
// stray separators.
func (s *TranscriptSink) Append(text string) error {
	if text == "" {
		return nil
	}

	if s.wroteAny {
		if _, err := s.file.WriteString("\n\n"); err != nil {
			return fmt.Errorf("write transcript separator: %w", err)
		}
	}
	if _, err := s.file.WriteString(text); err != nil {
		return fmt.Errorf("write transcript chunk: %w", err)
	}

	s.wroteAny = true
	return nil
}

// Path returns where the transcript is being written.
func (s *TranscriptSink) Path() string {
	return s.path
}

// Close flushes and closes the transcript file. Closing twice is a no-op,
// so an explicit close on the success path coexists with a deferred one.
func (s *TranscriptSink) Close() error {
	if s.file == nil {
		return nil
	}

	err := s.file.Close()
	s.file = nil
	return err
}
