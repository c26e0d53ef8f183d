package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var tool string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past report runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory()
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()
			if err := store.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("prepare history: %w", err)
			}

			records, err := store.List(cmd.Context(), tool, limit)
			if err != nil {
				return fmt.Errorf("list history: %w", err)
			}
			if len(records) == 0 {
				fmt.Println("No report runs recorded.")
				return nil
			}

			fmt.Printf("%-36s  %-8s  %-30s  %-10s  %-10s  %s\n", "RUN", "TOOL", "FILE", "SIZE", "STATE", "CREATED")
			fmt.Printf("%-36s  %-8s  %-30s  %-10s  %-10s  %s\n", "---", "----", "----", "----", "-----", "-------")
			for _, rec := range records {
				fmt.Printf("%-36s  %-8s  %-30s  %-10s  %-10s  %s\n",
					rec.ID, rec.Tool, rec.FileName,
					humanize.Bytes(uint64(rec.Size)), rec.State,
					rec.CreatedAt.Local().Format("2006-01-02 15:04"))
				if rec.Error != "" {
					fmt.Printf("%38s%s\n", "", rec.Error)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&tool, "tool", "", "Only show runs for this backend")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")
	return cmd
}
