package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMediaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "media",
		Short: "Manage uploaded media",
	}
	cmd.AddCommand(newMediaUploadCmd())
	return cmd
}

func newMediaUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload an image for use as a featured image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			media, err := client.UploadMedia(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Uploaded media %d: %s\n", media.ID, media.URL)
			return nil
		},
	}
}
