package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/me/reportkit/internal/content"
)

func newPostCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Manage published posts",
	}
	cmd.AddCommand(
		newPostListCmd(),
		newPostCreateCmd(),
		newPostUpdateCmd(),
		newPostDeleteCmd(),
	)
	return cmd
}

func newPostListCmd() *cobra.Command {
	var search string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			posts, err := client.ListPosts(cmd.Context(), content.ListPostsOptions{
				Search:  search,
				PerPage: limit,
			})
			if err != nil {
				return fmt.Errorf("list posts: %w", err)
			}

			if len(posts) == 0 {
				fmt.Println("No posts found.")
				return nil
			}

			fmt.Printf("%-6s  %-10s  %-40s  %-20s  %s\n", "ID", "STATUS", "TITLE", "AUTHOR", "DATE")
			fmt.Printf("%-6s  %-10s  %-40s  %-20s  %s\n", "--", "------", "-----", "------", "----")
			for _, p := range posts {
				title := p.Title
				if r := []rune(title); len(r) > 40 {
					title = string(r[:37]) + "..."
				}
				fmt.Printf("%-6d  %-10s  %-40s  %-20s  %s\n",
					p.ID, p.Status, title, p.Author.Name, p.Date.Format("2006-01-02"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "Filter posts by search term")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of posts to list")
	return cmd
}

func newPostCreateCmd() *cobra.Command {
	var (
		title      string
		body       string
		bodyFile   string
		excerpt    string
		draft      bool
		categories []string
		tags       []string
		featured   int64
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a post",
		RunE: func(cmd *cobra.Command, args []string) error {
			if title == "" {
				return fmt.Errorf("--title is required")
			}
			if bodyFile != "" {
				data, err := os.ReadFile(bodyFile)
				if err != nil {
					return fmt.Errorf("read body file: %w", err)
				}
				body = string(data)
			}

			status := "publish"
			if draft {
				status = "draft"
			}

			post, err := client.CreatePost(cmd.Context(), content.PostInput{
				Title:           title,
				Content:         body,
				Excerpt:         excerpt,
				Status:          status,
				Categories:      categories,
				Tags:            tags,
				FeaturedMediaID: featured,
			})
			if err != nil {
				return fmt.Errorf("create post: %w", err)
			}

			fmt.Printf("Created post %d: %s (%s)\n", post.ID, post.Title, post.Status)
			if len(post.Categories) > 0 {
				fmt.Printf("Categories: %s\n", strings.Join(post.Categories, ", "))
			}
			if len(post.Tags) > 0 {
				fmt.Printf("Tags: %s\n", strings.Join(post.Tags, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Post title")
	cmd.Flags().StringVar(&body, "body", "", "Post body text")
	cmd.Flags().StringVar(&bodyFile, "body-file", "", "Read the post body from a file")
	cmd.Flags().StringVar(&excerpt, "excerpt", "", "Post excerpt")
	cmd.Flags().BoolVar(&draft, "draft", false, "Create as draft instead of publishing")
	cmd.Flags().StringSliceVar(&categories, "categories", nil, "Category names (created when missing)")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Tag names (created when missing)")
	cmd.Flags().Int64Var(&featured, "featured-media", 0, "Media ID to set as the featured image")
	return cmd
}

func newPostUpdateCmd() *cobra.Command {
	var (
		title      string
		body       string
		excerpt    string
		status     string
		categories []string
		tags       []string
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid post ID %q", args[0])
			}

			post, err := client.UpdatePost(cmd.Context(), id, content.PostInput{
				Title:      title,
				Content:    body,
				Excerpt:    excerpt,
				Status:     status,
				Categories: categories,
				Tags:       tags,
			})
			if err != nil {
				return fmt.Errorf("update post: %w", err)
			}
			fmt.Printf("Updated post %d: %s (%s)\n", post.ID, post.Title, post.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&body, "body", "", "New body text")
	cmd.Flags().StringVar(&excerpt, "excerpt", "", "New excerpt")
	cmd.Flags().StringVar(&status, "status", "", "New status (publish or draft)")
	cmd.Flags().StringSliceVar(&categories, "categories", nil, "Replace category names")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Replace tag names")
	return cmd
}

func newPostDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid post ID %q", args[0])
			}
			if err := client.DeletePost(cmd.Context(), id); err != nil {
				return fmt.Errorf("delete post: %w", err)
			}
			fmt.Printf("Deleted post %d\n", id)
			return nil
		},
	}
}
