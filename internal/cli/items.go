package cli

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

func newItemsCmd(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "items",
		Short: "Browse and manage the image catalogue",
	}

	cmd.AddCommand(newItemsListCmd(st))
	cmd.AddCommand(newItemsGetCmd(st))
	cmd.AddCommand(newItemsCreateCmd(st))
	cmd.AddCommand(newItemsDeleteCmd(st))

	return cmd
}

func newItemsListCmd(st *state) *cobra.Command {
	var page, limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List images one page at a time",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			if page > 0 {
				query.Set("page", strconv.Itoa(page))
			}
			if limit > 0 {
				query.Set("limit", strconv.Itoa(limit))
			}

			path := "/items"
			if len(query) > 0 {
				path += "?" + query.Encode()
			}

			var result ImagePage
			if err := st.client.Get(path, &result); err != nil {
				return err
			}

			st.out.Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 0, "Page number (server default: 1)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Items per page (server default: 10)")

	return cmd
}

func newItemsGetCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one image with its ratings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Image
			if err := st.client.Get("/items/"+url.PathEscape(args[0]), &result); err != nil {
				return err
			}

			st.out.Print(result)
			return nil
		},
	}
}

func newItemsCreateCmd(st *state) *cobra.Command {
	var prompt, imageURL string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add an image by URL (admin only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]string{
				"prompt": prompt,
				"file":   imageURL,
			}

			var result Image
			if err := st.client.Post("/items", body, &result); err != nil {
				return err
			}

			st.out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&prompt, "prompt", "", "Prompt the image was generated from (required)")
	cmd.Flags().StringVar(&imageURL, "url", "", "Image URL (required)")
	_ = cmd.MarkFlagRequired("prompt")
	_ = cmd.MarkFlagRequired("url")

	return cmd
}

func newItemsDeleteCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an image and its ratings (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result struct {
				Message string `json:"message"`
			}
			if err := st.client.Delete("/items/"+url.PathEscape(args[0]), &result); err != nil {
				return err
			}

			st.out.PrintMessage(fmt.Sprintf("%s: %s", result.Message, args[0]))
			return nil
		},
	}
}
