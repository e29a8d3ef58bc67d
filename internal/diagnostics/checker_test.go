package diagnostics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"audio-transcriber/internal/domain"
)

// TestCheckerRunAllPass validates happy-path diagnostics report.
func TestCheckerRunAllPass(t *testing.T) {
	root := t.TempDir()
	checker := NewCheckerForTests(
		func(name string) (string, error) { return "/usr/local/bin/" + name, nil },
		os.MkdirAll,
		os.CreateTemp,
		os.Remove,
		func(string) bool { return true },
	)

	report := checker.Run(domain.Settings{
		ModelID:   "base.en",
		OutputDir: filepath.Join(root, "output"),
		Language:  "auto",
	})

	if report.HasFailures {
		t.Fatalf("expected no failures, got %+v", report.Items)
	}
	assertStatusByID(t, report, "selected_model", domain.DiagnosticStatusPass)
}

// TestCheckerRunMissingToolsAndPaths validates failure reporting.
func TestCheckerRunMissingToolsAndPaths(t *testing.T) {
	checker := NewCheckerForTests(
		func(string) (string, error) { return "", errors.New("not found") },
		os.MkdirAll,
		os.CreateTemp,
		os.Remove,
		func(string) bool { return false },
	)

	report := checker.Run(domain.Settings{
		ModelID:   "",
		OutputDir: "",
	})

	if !report.HasFailures {
		t.Fatal("expected failures")
	}

	assertStatusByID(t, report, "tool_ffmpeg", domain.DiagnosticStatusFail)
	assertStatusByID(t, report, "tool_ffprobe", domain.DiagnosticStatusFail)
	assertStatusByID(t, report, "tool_whisper.cpp", domain.DiagnosticStatusFail)
	assertStatusByID(t, report, "selected_model", domain.DiagnosticStatusFail)
	assertStatusByID(t, report, "output_dir", domain.DiagnosticStatusFail)
}

// TestCheckerRunMissingModelWarnsWithFix validates the downloadable-model
// case is a warning the UI can offer to fix, not a hard failure.
func TestCheckerRunMissingModelWarnsWithFix(t *testing.T) {
	root := t.TempDir()
	checker := NewCheckerForTests(
		func(name string) (string, error) { return "/usr/local/bin/" + name, nil },
		os.MkdirAll,
		os.CreateTemp,
		os.Remove,
		func(string) bool { return false },
	)

	report := checker.Run(domain.Settings{
		ModelID:   "base.en",
		OutputDir: filepath.Join(root, "output"),
	})

	if report.HasFailures {
		t.Fatalf("missing model must not fail the report, got %+v", report.Items)
	}
	assertStatusByID(t, report, "selected_model", domain.DiagnosticStatusWarn)

	for _, item := range report.Items {
		if item.ID == "selected_model" && !item.CanFix {
			t.Fatal("expected selected_model warning to be fixable")
		}
	}
}

// TestCheckerRunUnwritableOutputDirFails validates write-access probing.
func TestCheckerRunUnwritableOutputDirFails(t *testing.T) {
	checker := NewCheckerForTests(
		func(name string) (string, error) { return "/usr/local/bin/" + name, nil },
		func(string, os.FileMode) error { return nil },
		func(string, string) (*os.File, error) { return nil, errors.New("permission denied") },
		os.Remove,
		func(string) bool { return true },
	)

	report := checker.Run(domain.Settings{
		ModelID:   "base.en",
		OutputDir: "/readonly",
	})

	assertStatusByID(t, report, "output_dir", domain.DiagnosticStatusFail)
}

// assertStatusByID checks status for one diagnostic item by ID.
func assertStatusByID(t *testing.T, report domain.DiagnosticReport, id string, want domain.DiagnosticStatus) {
	t.Helper()
	for _, item := range report.Items {
		if item.ID == id {
			if item.Status != want {
				t.Fatalf("item %s: got %s, want %s", id, item.Status, want)
			}
			return
		}
	}
	t.Fatalf("diagnostic item not found: %s", id)
}
