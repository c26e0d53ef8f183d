package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/me/reportkit/internal/reportgen"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate and fetch reports",
	}
	cmd.AddCommand(
		newReportRunCmd(),
		newReportDownloadCmd(),
		newReportViewCmd(),
	)
	return cmd
}

func newReportRunCmd() *cobra.Command {
	var (
		tool     string
		output   string
		target   string
		features []string
		horizon  int
	)

	cmd := &cobra.Command{
		Use:   "run <workbook.xlsx>",
		Short: "Upload a workbook and generate a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := reportClient(tool)
			if err != nil {
				return err
			}

			task, err := reportgen.NewUploadTask(tool, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Uploading %s (%s) to the %s backend\n", task.Name, task.DisplaySize(), tool)

			var opts map[string]any
			if tool == "slicer" {
				opts = reportgen.PredictionSpec{
					Target:   target,
					Features: features,
					Horizon:  horizon,
				}.Options()
			}

			runErr := rc.Run(cmd.Context(), task, opts, func(pct int) {
				fmt.Printf("\rUploading... %3d%%", pct)
				if pct == 100 {
					fmt.Println()
				}
			})

			if store, err := openHistory(); err != nil {
				logger.Warn("history unavailable", "error", err)
			} else {
				defer store.Close()
				if err := store.Migrate(cmd.Context()); err != nil {
					logger.Warn("history migration failed", "error", err)
				} else if err := store.Append(cmd.Context(), task); err != nil {
					logger.Warn("history append failed", "error", err)
				}
			}

			if runErr != nil {
				return runErr
			}

			fmt.Printf("Report ready: %s (run %s)\n", task.ReportFile, task.ID)
			if output != "" {
				n, err := rc.Download(cmd.Context(), task.FileID, task.ReportFile, output)
				if err != nil {
					return err
				}
				fmt.Printf("Saved %s to %s\n", humanize.Bytes(uint64(n)), output)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&tool, "tool", "docs", "Report backend (docs, html, excel, slicer)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Download the report to this path when done")
	cmd.Flags().StringVar(&target, "target", "", "Prediction target column (slicer only)")
	cmd.Flags().StringSliceVar(&features, "features", nil, "Prediction feature columns (slicer only)")
	cmd.Flags().IntVar(&horizon, "horizon", 0, "Prediction horizon in periods (slicer only)")
	return cmd
}

func newReportDownloadCmd() *cobra.Command {
	var tool, output string

	cmd := &cobra.Command{
		Use:   "download <file-id> <report-file>",
		Short: "Download a previously generated report",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := reportClient(tool)
			if err != nil {
				return err
			}
			dest := output
			if dest == "" {
				dest = filepath.Base(args[1])
			}
			n, err := rc.Download(cmd.Context(), args[0], args[1], dest)
			if err != nil {
				return err
			}
			fmt.Printf("Saved %s to %s\n", humanize.Bytes(uint64(n)), dest)
			return nil
		},
	}

	cmd.Flags().StringVar(&tool, "tool", "docs", "Report backend (docs, html, excel, slicer)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination path (defaults to the report file name)")
	return cmd
}

func newReportViewCmd() *cobra.Command {
	var tool string

	cmd := &cobra.Command{
		Use:   "view <file-id> <report-file>",
		Short: "Print the rendered form of a report",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := reportClient(tool)
			if err != nil {
				return err
			}
			html, err := rc.View(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Println(strings.TrimSpace(html))
			return nil
		},
	}

	cmd.Flags().StringVar(&tool, "tool", "html", "Report backend (html or slicer)")
	return cmd
}
