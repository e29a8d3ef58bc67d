package cli

import (
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"audio-transcriber/internal/models"
)

func newModelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Manage local whisper model files",
	}

	cmd.AddCommand(newModelsListCmd())
	cmd.AddCommand(newModelsDownloadCmd())
	cmd.AddCommand(newModelsVerifyCmd())
	cmd.AddCommand(newModelsDeleteCmd())
	return cmd
}

func newModelsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List catalog models and their local status",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, mgr, err := loadEnvironment()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSIZE\tSTATUS")
			for _, asset := range mgr.ListAssets() {
				status := "not downloaded"
				switch {
				case asset.Usable:
					status = "ready"
				case asset.Present:
					status = "incomplete"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					asset.Descriptor.ID,
					asset.Descriptor.DisplayName,
					formatBytes(asset.Descriptor.SizeBytes),
					status,
				)
			}
			return w.Flush()
		},
	}
}

func newModelsDownloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download <model-id>",
		Short: "Download one model; Ctrl-C cancels and removes the partial file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, mgr, err := loadEnvironment()
			if err != nil {
				return err
			}

			info, ok := mgr.DownloadInfo(args[0])
			if !ok {
				return fmt.Errorf("unknown model: %s", args[0])
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			downloader := models.NewDownloader()
			err = downloader.Download(ctx, info, func(p models.DownloadProgress) {
				if p.TotalBytes > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "\r%s: %d%% (%s / %s)",
						p.ModelID, p.Percentage,
						formatBytes(p.BytesDownloaded), formatBytes(p.TotalBytes))
					return
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\r%s: %s", p.ModelID, formatBytes(p.BytesDownloaded))
			})
			fmt.Fprintln(cmd.OutOrStdout())

			if models.IsCancelled(err) {
				fmt.Fprintln(cmd.OutOrStdout(), "download cancelled")
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "downloaded %s to %s\n", info.DisplayName, info.DestinationPath)
			return nil
		},
	}
}

func newModelsVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <model-id>",
		Short: "Recompute the local file checksum for one model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, mgr, err := loadEnvironment()
			if err != nil {
				return err
			}

			ok, err := mgr.VerifyIntegrity(args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("integrity check failed: %s", args[0])
			}

			fmt.Fprintf(cmd.OutOrStdout(), "model %s verified\n", args[0])
			return nil
		},
	}
}

func newModelsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <model-id>",
		Short: "Remove the local file for one model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, mgr, err := loadEnvironment()
			if err != nil {
				return err
			}

			if err := mgr.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

// formatBytes renders a byte count in a compact human unit.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}

	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
