// Package bootstrap wires the engine packages into the desktop application:
// settings, diagnostics, the job manager, model downloads, and the Wails
// shell that pushes events to the frontend.
package bootstrap

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"audio-transcriber/internal/audio"
	"audio-transcriber/internal/config"
	"audio-transcriber/internal/diagnostics"
	"audio-transcriber/internal/domain"
	"audio-transcriber/internal/jobs"
	"audio-transcriber/internal/models"
	"audio-transcriber/internal/speech"
	"audio-transcriber/internal/transcribe"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

var audioDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Audio files",
		Pattern:     "*.mp3;*.wav;*.m4a;*.flac;*.aac;*.ogg;*.opus;*.wma",
	},
	{
		DisplayName: "All files",
		Pattern:     "*",
	},
}

// executorRunner isolates the transcription executor behind an interface.
type executorRunner interface {
	Run(ctx context.Context, req transcribe.Request) (transcribe.Result, error)
}

// App wires configuration, jobs, models, and UI runtime callbacks.
type App struct {
	Store       config.Store
	Jobs        *jobs.Manager
	Diagnostics domain.DiagnosticReport

	assets     fs.FS
	checker    *diagnostics.Checker
	downloader *models.Downloader
	events     *jobs.EventBus

	// newExecutor builds the executor for one job against a concrete model
	// file. Tests replace it to avoid spawning real tools.
	newExecutor func(modelPath string) executorRunner

	mu              sync.Mutex
	settings        domain.Settings
	assetMgr        *models.AssetManager
	activeJobID     string
	cancelJob       context.CancelFunc
	downloadCancels map[string]context.CancelFunc
	runtimeCtx      context.Context
}

// New builds the application with persisted settings and startup diagnostics.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures embedded
// frontend assets.
func NewWithAssets(assets fs.FS) (*App, error) {
	store := config.NewJSONStore(config.DefaultSettingsPath())
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	app := &App{
		Store:           store,
		Jobs:            jobs.NewManager(),
		assets:          assets,
		downloader:      models.NewDownloader(),
		events:          jobs.NewEventBus(1000),
		downloadCancels: make(map[string]context.CancelFunc),
	}
	app.newExecutor = func(modelPath string) executorRunner {
		return transcribe.NewExecutor(audio.NewDecoder(), speech.NewWhisperCPP(modelPath))
	}
	app.checker = diagnostics.NewChecker(app.modelUsable)
	app.applySettings(settings)
	app.Diagnostics = app.checker.Run(settings)

	return app, nil
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "Audio Transcriber",
		Width:       1180,
		Height:      780,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown: func(ctx context.Context) {
			a.mu.Lock()
			defer a.mu.Unlock()
			a.runtimeCtx = nil
		},
		Bind: []interface{}{a},
	})
}

// Startup stores Wails runtime context for push events.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runtimeCtx = ctx
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Diagnostics
}

// RefreshDiagnostics reloads settings and reruns dependency checks.
func (a *App) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}

	a.applySettings(settings)
	report := a.checker.Run(settings)

	a.mu.Lock()
	a.Diagnostics = report
	a.mu.Unlock()
	return report, nil
}

// GetSettings loads and returns the latest persisted settings.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	a.applySettings(settings)
	return settings, nil
}

// SaveSettings normalizes and persists settings, then refreshes diagnostics.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := normalizeSettings(settings)
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.applySettings(normalized)
	report := a.checker.Run(normalized)

	a.mu.Lock()
	a.Diagnostics = report
	a.mu.Unlock()
	return normalized, nil
}

// PickInputFile opens a native file dialog for audio selection.
func (a *App) PickInputFile() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenFileDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select audio file",
		Filters: audioDialogFilter,
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// PickOutputDirectory opens a native directory picker for transcript exports.
func (a *App) PickOutputDirectory() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenDirectoryDialog(ctx, wailsruntime.OpenDialogOptions{
		Title: "Select output directory",
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// OpenOutputFolder opens the given path (or configured output dir) in the
// platform file manager.
func (a *App) OpenOutputFolder(path string) error {
	target := strings.TrimSpace(path)
	if target == "" {
		target = a.currentSettings().OutputDir
	}
	if target == "" {
		return fmt.Errorf("output path is empty")
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	openPath := target
	if !info.IsDir() {
		openPath = filepath.Dir(target)
	}

	return openInFileManager(openPath)
}

// JobEvents returns all events with sequence greater than sinceSeq.
func (a *App) JobEvents(sinceSeq int64) []jobs.Event {
	return a.events.Since(sinceSeq)
}

// applySettings installs new settings and rebuilds the catalog-dependent
// parts, since models dir and catalog path may have changed.
func (a *App) applySettings(settings domain.Settings) {
	catalogPath := settings.CatalogPath
	if catalogPath == "" {
		catalogPath = config.DefaultCatalogPath()
	}
	registry := models.LoadCatalog(catalogPath)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.settings = settings
	a.assetMgr = models.NewAssetManager(registry, settings.ModelsDir)
}

// currentSettings returns the settings snapshot installed by applySettings.
func (a *App) currentSettings() domain.Settings {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.settings
}

// assetManager returns the asset manager for the current settings.
func (a *App) assetManager() *models.AssetManager {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.assetMgr
}

// modelUsable is the diagnostics probe for the selected model.
func (a *App) modelUsable(modelID string) bool {
	mgr := a.assetManager()
	if mgr == nil {
		return false
	}
	return mgr.IsUsable(modelID)
}

// publishEvent stores event history and emits runtime push notifications.
func (a *App) publishEvent(event jobs.Event) {
	published := a.events.Publish(event)

	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, "job:event", published)
	}
}

// runtimeContext returns current Wails runtime context for dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

// normalizeSettings trims user inputs and applies defaults for empty fields.
func normalizeSettings(settings domain.Settings) domain.Settings {
	settings.ModelID = strings.TrimSpace(settings.ModelID)
	settings.ModelsDir = strings.TrimSpace(settings.ModelsDir)
	settings.OutputDir = strings.TrimSpace(settings.OutputDir)
	settings.Language = strings.TrimSpace(settings.Language)
	settings.CatalogPath = strings.TrimSpace(settings.CatalogPath)

	defaults := config.DefaultSettings()
	if settings.ModelID == "" {
		settings.ModelID = defaults.ModelID
	}
	if settings.ModelsDir == "" {
		settings.ModelsDir = defaults.ModelsDir
	}
	if settings.OutputDir == "" {
		settings.OutputDir = defaults.OutputDir
	}
	if settings.Language == "" {
		settings.Language = "auto"
	}
	return settings
}

// openInFileManager launches the platform file explorer for the provided path.
func openInFileManager(path string) error {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("explorer", filepath.Clean(path))
	default:
		cmd = exec.Command("xdg-open", path)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch file manager: %w", err)
	}
	return nil
}
