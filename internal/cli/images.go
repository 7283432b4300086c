package cli

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newUploadCmd(st *state) *cobra.Command {
	var prompt string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a JPEG or PNG image (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}

			// The server checks the declared type, so send what the bytes say
			contentType := http.DetectContentType(data)
			fields := map[string]string{"prompt": prompt}

			var result UploadResult
			if err := st.client.Upload("/admin/upload", "file", filepath.Base(args[0]), contentType, data, fields, &result); err != nil {
				return err
			}

			st.out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&prompt, "prompt", "", "Prompt the image was generated from (required)")
	_ = cmd.MarkFlagRequired("prompt")

	return cmd
}

func newRateCmd(st *state) *cobra.Command {
	var like, dislike bool

	cmd := &cobra.Command{
		Use:   "rate <image-id>",
		Short: "Like or dislike an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if like == dislike {
				return fmt.Errorf("exactly one of --like or --dislike is required")
			}
			score := 1
			if dislike {
				score = -1
			}

			var result RateResult
			body := map[string]int{"score": score}
			if err := st.client.Post("/images/rate/"+url.PathEscape(args[0]), body, &result); err != nil {
				return err
			}

			st.out.Print(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&like, "like", false, "Rate the image +1")
	cmd.Flags().BoolVar(&dislike, "dislike", false, "Rate the image -1")

	return cmd
}

func newNextCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Show an image you have not rated yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Image
			if err := st.client.Get("/images/random", &result); err != nil {
				return err
			}

			st.out.Print(result)
			return nil
		},
	}
}

func newURLsCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "urls",
		Short: "List the URL of every image",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []string
			if err := st.client.Get("/images/all", &result); err != nil {
				return err
			}

			st.out.Print(result)
			return nil
		},
	}
}

func newMedianCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "median",
		Short: "Show the median score across all ratings",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result MedianResult
			if err := st.client.Get("/images/median", &result); err != nil {
				return err
			}

			st.out.Print(result)
			return nil
		},
	}
}

func newStatsCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <image-id>",
		Short: "Show like and dislike counts for an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result StatsResult
			if err := st.client.Get("/images/"+url.PathEscape(args[0])+"/ratings", &result); err != nil {
				return err
			}

			st.out.Print(result)
			return nil
		},
	}
}
