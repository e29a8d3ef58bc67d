package cli

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"audio-transcriber/internal/audio"
	"audio-transcriber/internal/speech"
	"audio-transcriber/internal/transcribe"
)

func newTranscribeCmd() *cobra.Command {
	var language string
	var outputDir string
	var modelID string

	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Transcribe one audio file to a text file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, mgr, err := loadEnvironment()
			if err != nil {
				return err
			}

			if modelID == "" {
				modelID = settings.ModelID
			}
			asset, err := mgr.Asset(modelID)
			if err != nil {
				return err
			}
			if !asset.Usable {
				return fmt.Errorf("model is not downloaded: %s (run: audio-transcriber models download %s)", modelID, modelID)
			}

			if language == "" {
				language = settings.Language
			}
			if outputDir == "" {
				outputDir = settings.OutputDir
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			executor := transcribe.NewExecutor(
				audio.NewDecoder(),
				speech.NewWhisperCPP(asset.LocalPath),
			)

			result, err := executor.Run(ctx, transcribe.Request{
				JobID:     uuid.NewString(),
				AudioPath: args[0],
				OutputDir: outputDir,
				Language:  language,
				OnUpdate: func(update transcribe.Update) {
					if update.TotalChunks > 0 {
						fmt.Fprintf(cmd.OutOrStdout(), "[%3d%%] chunk %d/%d\n",
							update.Percentage, update.CurrentChunk, update.TotalChunks)
						return
					}
					fmt.Fprintf(cmd.OutOrStdout(), "[%3d%%] %s\n", update.Percentage, update.State.DisplayName())
				},
			})
			if transcribe.IsAborted(err) {
				fmt.Fprintln(cmd.OutOrStdout(), "transcription cancelled")
				if result.TranscriptPath != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "partial transcript: %s\n", result.TranscriptPath)
				}
				return nil
			}
			if err != nil {
				return err
			}

			if result.DetectedLanguage != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "detected language: %s\n", result.DetectedLanguage)
			}
			if result.FailedChunks > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "warning: %d of %d chunks failed; error markers are in the transcript\n",
					result.FailedChunks, result.ChunkCount)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "transcript written to %s\n", result.TranscriptPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "", "language code, or auto to detect")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "directory for the transcript file")
	cmd.Flags().StringVarP(&modelID, "model", "m", "", "model id overriding the configured one")
	return cmd
}
