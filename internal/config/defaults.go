package config

import (
	"os"
	"path/filepath"

	"audio-transcriber/internal/domain"
	"audio-transcriber/internal/models"
)

// appDirName is the per-user directory holding settings, the model store
// and the optional catalog override.
const appDirName = ".audio-transcriber"

// DefaultSettingsPath returns where settings are persisted for this user.
func DefaultSettingsPath() string {
	return filepath.Join(appDir(), "settings.json")
}

// DefaultCatalogPath returns where a user-supplied catalog override lives.
// The file is optional; the built-in catalog is used when it is absent.
func DefaultCatalogPath() string {
	return filepath.Join(appDir(), "models.yaml")
}

// DefaultSettings returns baseline local configuration for first launch.
func DefaultSettings() domain.Settings {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return domain.Settings{
		ModelID:   models.DefaultModelID(),
		ModelsDir: filepath.Join(appDir(), "models"),
		OutputDir: filepath.Join(homeDir, "Documents", "Transcripts"),
		Language:  "auto",
	}
}

// appDir returns the per-user application directory.
func appDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, appDirName)
}
