package bootstrap

import (
	"context"
	"fmt"

	"audio-transcriber/internal/domain"
	"audio-transcriber/internal/jobs"
	"audio-transcriber/internal/models"
)

// ListModels returns the catalog with local presence and usability markers.
func (a *App) ListModels() []domain.ModelAsset {
	return a.assetManager().ListAssets()
}

// DownloadModel starts a background download for one catalog model. Progress
// and the single terminal outcome are published on the event stream.
func (a *App) DownloadModel(modelID string) error {
	mgr := a.assetManager()
	info, ok := mgr.DownloadInfo(modelID)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrModelNotFound, modelID)
	}

	ctx, cancel := context.WithCancel(context.Background())

	a.mu.Lock()
	if _, active := a.downloadCancels[info.ModelID]; active {
		a.mu.Unlock()
		cancel()
		return fmt.Errorf("download already in progress: %s", info.ModelID)
	}
	a.downloadCancels[info.ModelID] = cancel
	a.mu.Unlock()

	go a.runDownload(ctx, info)
	return nil
}

// CancelModelDownload requests cancellation of an in-flight download. The
// worker deletes the partial file and reports cancellation, not failure.
func (a *App) CancelModelDownload(modelID string) error {
	a.mu.Lock()
	cancel, ok := a.downloadCancels[modelID]
	a.mu.Unlock()

	if !ok {
		return fmt.Errorf("no download in progress: %s", modelID)
	}

	cancel()
	return nil
}

// VerifyModel recomputes the local checksum for one model.
func (a *App) VerifyModel(modelID string) (bool, error) {
	return a.assetManager().VerifyIntegrity(modelID)
}

// DeleteModel removes the local file for one model. A model being
// downloaded cannot be deleted until the download finishes or is cancelled.
func (a *App) DeleteModel(modelID string) error {
	a.mu.Lock()
	_, active := a.downloadCancels[modelID]
	a.mu.Unlock()
	if active {
		return fmt.Errorf("download in progress: %s", modelID)
	}

	return a.assetManager().Delete(modelID)
}

// runDownload executes one download and owns its terminal event.
func (a *App) runDownload(ctx context.Context, info domain.DownloadInfo) {
	err := a.downloader.Download(ctx, info, func(p models.DownloadProgress) {
		a.publishEvent(jobs.Event{
			Type:            jobs.EventTypeDownload,
			ModelID:         p.ModelID,
			Percentage:      p.Percentage,
			BytesDownloaded: p.BytesDownloaded,
			TotalBytes:      p.TotalBytes,
			Message:         fmt.Sprintf("Downloading %s...", info.DisplayName),
		})
	})

	a.mu.Lock()
	delete(a.downloadCancels, info.ModelID)
	a.mu.Unlock()

	switch {
	case err == nil:
		a.publishEvent(jobs.Event{
			Type:       jobs.EventTypeDownload,
			ModelID:    info.ModelID,
			Percentage: 100,
			Success:    true,
			Message:    fmt.Sprintf("Downloaded %s", info.DisplayName),
		})
	case models.IsCancelled(err):
		a.publishEvent(jobs.Event{
			Type:    jobs.EventTypeDownload,
			ModelID: info.ModelID,
			Message: fmt.Sprintf("Download cancelled: %s", info.DisplayName),
		})
	default:
		a.publishEvent(jobs.Event{
			Type:    jobs.EventTypeError,
			ModelID: info.ModelID,
			Message: fmt.Sprintf("Download failed: %v", err),
		})
	}
}
