package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/reportkit/pkg/model"
)

func newTermsCmd() *cobra.Command {
	var tags bool

	cmd := &cobra.Command{
		Use:   "terms",
		Short: "List categories or tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				terms []model.Term
				err   error
			)
			if tags {
				terms, err = client.ListTags(cmd.Context())
			} else {
				terms, err = client.ListCategories(cmd.Context())
			}
			if err != nil {
				return fmt.Errorf("list terms: %w", err)
			}

			if len(terms) == 0 {
				fmt.Println("No terms found.")
				return nil
			}
			fmt.Printf("%-6s  %-30s  %s\n", "ID", "NAME", "POSTS")
			fmt.Printf("%-6s  %-30s  %s\n", "--", "----", "-----")
			for _, t := range terms {
				fmt.Printf("%-6d  %-30s  %d\n", t.ID, t.Name, t.Count)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&tags, "tags", false, "List tags instead of categories")
	return cmd
}
