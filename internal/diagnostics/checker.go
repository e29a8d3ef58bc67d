// Package diagnostics runs the startup checks surfaced on the first
// screen: required CLI tools, the selected model asset, and write access
// to the transcript directory.
package diagnostics

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"audio-transcriber/internal/domain"
)

// ModelProbe reports whether the given model id has a usable local file.
type ModelProbe func(modelID string) bool

// Checker validates external tools, the selected model and required
// filesystem paths.
type Checker struct {
	lookPath    func(string) (string, error)
	mkdirAll    func(string, os.FileMode) error
	createTemp  func(string, string) (*os.File, error)
	remove      func(string) error
	modelUsable ModelProbe
}

// NewChecker builds a checker using real OS dependencies and the given
// model probe.
func NewChecker(modelUsable ModelProbe) *Checker {
	return &Checker{
		lookPath:    exec.LookPath,
		mkdirAll:    os.MkdirAll,
		createTemp:  os.CreateTemp,
		remove:      os.Remove,
		modelUsable: modelUsable,
	}
}

// NewCheckerForTests creates a checker with injectable dependencies.
func NewCheckerForTests(
	lookPath func(string) (string, error),
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
	modelUsable ModelProbe,
) *Checker {
	return &Checker{
		lookPath:    lookPath,
		mkdirAll:    mkdirAll,
		createTemp:  createTemp,
		remove:      remove,
		modelUsable: modelUsable,
	}
}

// Run executes all startup checks and returns a combined report. A missing
// model is a warning, not a failure, because the app can download it.
func (c *Checker) Run(settings domain.Settings) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkTool("ffmpeg"),
		c.checkTool("ffprobe"),
		c.checkTool("whisper.cpp"),
		c.checkModel(settings.ModelID),
		c.checkOutputDir(settings.OutputDir),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkTool verifies a required CLI executable is on PATH.
func (c *Checker) checkTool(name string) domain.DiagnosticItem {
	path, err := c.lookPath(name)
	if err != nil {
		return domain.DiagnosticItem{
			ID:      "tool_" + name,
			Name:    name,
			Status:  domain.DiagnosticStatusFail,
			Message: fmt.Sprintf("Tool not found in PATH: %s", name),
			Hint:    "Install it and ensure the binary is available on PATH before starting a transcription job.",
		}
	}

	return domain.DiagnosticItem{
		ID:      "tool_" + name,
		Name:    name,
		Status:  domain.DiagnosticStatusPass,
		Message: fmt.Sprintf("Found at %s", path),
	}
}

// checkModel validates the selected model has a usable local file.
func (c *Checker) checkModel(modelID string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "selected_model",
		Name: "Selected model",
	}

	if strings.TrimSpace(modelID) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "No model is selected."
		item.Hint = "Pick a model in settings."
		return item
	}

	if c.modelUsable == nil || !c.modelUsable(modelID) {
		item.Status = domain.DiagnosticStatusWarn
		item.Message = fmt.Sprintf("Model is not downloaded: %s", modelID)
		item.Hint = "Download the model before starting a transcription job."
		item.CanFix = true
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Model is ready: %s", modelID)
	return item
}

// checkOutputDir validates output directory existence and write access.
func (c *Checker) checkOutputDir(outputDir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "output_dir",
		Name: "Output directory",
	}

	if strings.TrimSpace(outputDir) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Output directory is empty."
		item.Hint = "Set an output directory where transcript files can be written."
		item.CanFix = true
		return item
	}

	if err := c.mkdirAll(outputDir, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create output directory: %s", outputDir)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}

	tmpFile, err := c.createTemp(outputDir, ".write-check-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Output directory is not writable: %s", outputDir)
		item.Hint = "Choose a writable directory for transcript export."
		return item
	}

	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Writable directory: %s", outputDir)
	return item
}
