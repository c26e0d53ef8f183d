package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/me/reportkit/pkg/model"
)

func newCommentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comment",
		Short: "Manage post comments",
	}
	cmd.AddCommand(
		newCommentListCmd(),
		newCommentAddCmd(),
		newCommentDeleteCmd(),
	)
	return cmd
}

func newCommentListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <post-id>",
		Short: "List a post's comments as a thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			postID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid post ID %q", args[0])
			}

			comments, err := client.ListComments(cmd.Context(), postID)
			if err != nil {
				return fmt.Errorf("list comments: %w", err)
			}
			if len(comments) == 0 {
				fmt.Println("No comments.")
				return nil
			}

			printThread(model.ThreadComments(comments), 0)
			return nil
		},
	}
}

func printThread(nodes []*model.CommentNode, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, n := range nodes {
		fmt.Printf("%s[%d] %s (%s)\n", indent, n.ID, n.Author.Name,
			n.Date.Format("2006-01-02 15:04"))
		for _, line := range strings.Split(strings.TrimSpace(n.Content), "\n") {
			fmt.Printf("%s    %s\n", indent, line)
		}
		printThread(n.Replies, depth+1)
	}
}

func newCommentAddCmd() *cobra.Command {
	var parent int64

	cmd := &cobra.Command{
		Use:   "add <post-id> <text>",
		Short: "Comment on a post",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			postID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid post ID %q", args[0])
			}

			comment, err := client.CreateComment(cmd.Context(), postID, parent, args[1])
			if err != nil {
				return fmt.Errorf("create comment: %w", err)
			}
			fmt.Printf("Added comment %d\n", comment.ID)
			return nil
		},
	}

	cmd.Flags().Int64Var(&parent, "reply-to", 0, "Parent comment ID for a threaded reply")
	return cmd
}

func newCommentDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a comment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid comment ID %q", args[0])
			}
			if err := client.DeleteComment(cmd.Context(), id); err != nil {
				return fmt.Errorf("delete comment: %w", err)
			}
			fmt.Printf("Deleted comment %d\n", id)
			return nil
		},
	}
}
