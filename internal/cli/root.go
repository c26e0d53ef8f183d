// Package cli implements the reportkit command-line interface.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/me/reportkit/internal/config"
	"github.com/me/reportkit/internal/content"
	"github.com/me/reportkit/internal/history"
	"github.com/me/reportkit/internal/logging"
	"github.com/me/reportkit/internal/reportgen"
	"github.com/me/reportkit/internal/session"
)

var (
	flagConfig    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger  *slog.Logger
	cfg     config.Config
	manager *session.Manager
	client  *content.Client
)

// NewRootCmd creates the root cobra command for the reportkit CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "reportkit",
		Short: "reportkit — report generation and content publishing client",
		Long:  "reportkit uploads workbooks to the report backends, publishes posts, and manages the local session.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(flagConfig)
			if err != nil {
				return err
			}
			if flagDebug {
				flagLogLevel = "debug"
			}
			if flagLogLevel == "" {
				flagLogLevel = cfg.LogLevel
			}
			if flagLogFormat == "" {
				flagLogFormat = cfg.LogFormat
			}
			logger = logging.NewLogger(logging.ParseLevel(flagLogLevel), flagLogFormat)

			sessPath, err := session.DefaultSessionPath()
			if err != nil {
				return err
			}
			manager = session.NewManager(cfg.ContentURL+"/wp-json/jwt-auth/v1", session.NewFileStore(sessPath), logger)
			client = content.NewClient(cfg.ContentURL, cfg.RequestTimeout, manager, logger)
			manager.SetProfileFetcher(client)
			manager.OnSessionExpired(func() {
				fmt.Println("Session expired. Run `reportkit login` to sign in again.")
			})
			return nil
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default ~/.reportkit/config.yaml)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format (text, json)")

	root.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newReportCmd(),
		newPostCmd(),
		newCommentCmd(),
		newMediaCmd(),
		newTermsCmd(),
		newUserCmd(),
		newHistoryCmd(),
	)

	return root
}

// backendForTool maps a --tool value to its configured backend.
func backendForTool(tool string) (reportgen.Backend, error) {
	switch tool {
	case "docs":
		return reportgen.Docs(cfg.DocsURL), nil
	case "html":
		return reportgen.HTML(cfg.HTMLURL), nil
	case "excel":
		return reportgen.Excel(cfg.ExcelURL), nil
	case "slicer":
		return reportgen.Slicer(cfg.SlicerURL), nil
	default:
		return reportgen.Backend{}, fmt.Errorf("unknown tool %q (want docs, html, excel, or slicer)", tool)
	}
}

func reportClient(tool string) (*reportgen.Client, error) {
	backend, err := backendForTool(tool)
	if err != nil {
		return nil, err
	}
	backend.GenerateTimeout = cfg.GenerateTimeout
	return reportgen.NewClient(backend, cfg.RequestTimeout, manager, logger), nil
}

// openHistory opens the local run history database.
func openHistory() (*history.Store, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	return history.NewStore(filepath.Join(dir, "history.db"), logger)
}
