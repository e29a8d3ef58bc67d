// Package cli provides the headless command-line interface. It drives the
// same engine packages as the desktop shell but prints plain progress lines
// instead of pushing events to a frontend.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"audio-transcriber/internal/config"
	"audio-transcriber/internal/domain"
	"audio-transcriber/internal/models"
)

// NewRootCmd builds the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "audio-transcriber",
		Short:         "Local voice transcription without the desktop shell",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newModelsCmd())
	root.AddCommand(newTranscribeCmd())
	return root
}

// loadEnvironment loads settings and builds the catalog-backed asset
// manager shared by every subcommand.
func loadEnvironment() (domain.Settings, *models.AssetManager, error) {
	store := config.NewJSONStore(config.DefaultSettingsPath())
	settings, err := store.Load()
	if err != nil {
		return domain.Settings{}, nil, fmt.Errorf("load settings: %w", err)
	}

	catalogPath := settings.CatalogPath
	if catalogPath == "" {
		catalogPath = config.DefaultCatalogPath()
	}
	registry := models.LoadCatalog(catalogPath)
	return settings, models.NewAssetManager(registry, settings.ModelsDir), nil
}
