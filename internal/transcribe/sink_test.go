package transcribe

import (
	"os"
	"path/filepath"
	"testing"
)

// TestTranscriptSinkSeparatesChunks checks blank-line separation.
func TestTranscriptSinkSeparatesChunks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "recording.txt")
	sink, err := NewTranscriptSink(path)
	if err != nil {
		t.Fatalf("NewTranscriptSink() error = %v", err)
	}

	for _, text := range []string{"first chunk", "second chunk", "third chunk"} {
		if err := sink.Append(text); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	want := "first chunk\n\nsecond chunk\n\nthird chunk"
	if string(got) != want {
		t.Fatalf("transcript = %q, want %q", got, want)
	}
}

// TestTranscriptSinkSkipsEmptyChunks checks silent chunks add nothing.
func TestTranscriptSinkSkipsEmptyChunks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recording.txt")
	sink, err := NewTranscriptSink(path)
	if err != nil {
		t.Fatalf("NewTranscriptSink() error = %v", err)
	}

	steps := []string{"", "speech", "", "more speech", ""}
	for _, text := range steps {
		if err := sink.Append(text); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	if string(got) != "speech\n\nmore speech" {
		t.Fatalf("transcript = %q", got)
	}
}

// TestTranscriptSinkCloseIsIdempotent checks an explicit close followed by
// a deferred one reports no error.
func TestTranscriptSinkCloseIsIdempotent(t *testing.T) {
	sink, err := NewTranscriptSink(filepath.Join(t.TempDir(), "recording.txt"))
	if err != nil {
		t.Fatalf("NewTranscriptSink() error = %v", err)
	}
	if err := sink.Append("speech"); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if err := sink.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}

// TestTranscriptSinkTruncatesPreviousRun checks rerun behavior.
func TestTranscriptSinkTruncatesPreviousRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recording.txt")
	if err := os.WriteFile(path, []byte("stale content from last run"), 0o644); err != nil {
		t.Fatalf("seed stale file: %v", err)
	}

	sink, err := NewTranscriptSink(path)
	if err != nil {
		t.Fatalf("NewTranscriptSink() error = %v", err)
	}
	if err := sink.Append("fresh"); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	if string(got) != "fresh" {
		t.Fatalf("transcript = %q, want stale content gone", got)
	}
}
