package bootstrap

import (
	"context"
	"fmt"
	"os"
	"strings"

	"audio-transcriber/internal/config"
	"audio-transcriber/internal/domain"
	"audio-transcriber/internal/jobs"
	"audio-transcriber/internal/models"
)

// InstallOrFixDiagnostic applies the remediation for one fixable diagnostic
// item and returns a fresh report. The selected-model item downloads the
// model synchronously; the output-dir item creates the directory.
func (a *App) InstallOrFixDiagnostic(itemID string) (domain.DiagnosticReport, error) {
	id := strings.TrimSpace(itemID)
	if id == "" {
		return domain.DiagnosticReport{}, fmt.Errorf("diagnostic item id is required")
	}

	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}
	settings = normalizeSettings(settings)
	a.applySettings(settings)

	var fixErr error
	switch id {
	case "selected_model":
		fixErr = a.fixSelectedModel(settings.ModelID)
	case "output_dir":
		fixErr = fixOutputDir(settings.OutputDir)
	default:
		return domain.DiagnosticReport{}, fmt.Errorf("no automatic fix for diagnostic item: %s", id)
	}

	report := a.checker.Run(settings)
	a.mu.Lock()
	a.Diagnostics = report
	a.mu.Unlock()

	if fixErr != nil {
		return report, fixErr
	}
	return report, nil
}

// fixSelectedModel downloads the selected model in the foreground so the
// caller sees a settled report when the call returns. Progress still flows
// through the normal download events.
func (a *App) fixSelectedModel(modelID string) error {
	mgr := a.assetManager()
	if mgr.IsUsable(modelID) {
		return nil
	}

	info, ok := mgr.DownloadInfo(modelID)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrModelNotFound, modelID)
	}

	onProgress := func(p models.DownloadProgress) {
		a.publishEvent(jobs.Event{
			Type:            jobs.EventTypeDownload,
			ModelID:         p.ModelID,
			Percentage:      p.Percentage,
			BytesDownloaded: p.BytesDownloaded,
			TotalBytes:      p.TotalBytes,
			Message:         fmt.Sprintf("Downloading %s...", info.DisplayName),
		})
	}
	if err := a.downloader.Download(context.Background(), info, onProgress); err != nil {
		return fmt.Errorf("download model %s: %w", info.DisplayName, err)
	}
	return nil
}

// fixOutputDir creates the configured output directory, falling back to the
// default location when none is set.
func fixOutputDir(outputDir string) error {
	dir := strings.TrimSpace(outputDir)
	if dir == "" {
		dir = config.DefaultSettings().OutputDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory %s: %w", dir, err)
	}
	return nil
}
