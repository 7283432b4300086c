package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"
)

// state is shared by every subcommand of one root command
type state struct {
	cfg    *Config
	client *Client
	out    *Output
}

// NewRootCmd creates the root command writing results to stdout and errors to stderr
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	st := &state{cfg: DefaultConfig()}

	rootCmd := &cobra.Command{
		Use:   "rategame",
		Short: "CLI tool for the image rating game API",
		Long: `rategame is a CLI tool for interacting with the image rating game JSON API.

It covers account registration and login, the image catalogue (admin only for
changes), rating images and reading rating statistics.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load token from file if not provided via flag/env
			if err := st.cfg.LoadToken(); err != nil {
				return err
			}

			st.client = NewClient(st.cfg.ServerURL, st.cfg.Token)
			st.out = NewOutput(st.cfg.Output, stdout, stderr)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&st.cfg.ServerURL, "server", st.cfg.ServerURL, "Server URL (env: RATEGAME_SERVER)")
	rootCmd.PersistentFlags().StringVar(&st.cfg.Token, "token", st.cfg.Token, "Access token (env: RATEGAME_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&st.cfg.TokenFile, "token-file", st.cfg.TokenFile, "Token file path (env: RATEGAME_TOKEN_FILE)")
	rootCmd.PersistentFlags().StringVarP(&st.cfg.Output, "output", "o", st.cfg.Output, "Output format: text, json")

	// Add subcommands
	rootCmd.AddCommand(newRegisterCmd(st))
	rootCmd.AddCommand(newLoginCmd(st))
	rootCmd.AddCommand(newLogoutCmd(st))
	rootCmd.AddCommand(newItemsCmd(st))
	rootCmd.AddCommand(newUploadCmd(st))
	rootCmd.AddCommand(newRateCmd(st))
	rootCmd.AddCommand(newNextCmd(st))
	rootCmd.AddCommand(newURLsCmd(st))
	rootCmd.AddCommand(newMedianCmd(st))
	rootCmd.AddCommand(newStatsCmd(st))
	rootCmd.AddCommand(newHealthCmd(st))

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCmd(os.Stdout, os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		format := "text"
		if f := rootCmd.PersistentFlags().Lookup("output"); f != nil {
			format = f.Value.String()
		}
		NewOutput(format, os.Stdout, os.Stderr).PrintError(err)
		os.Exit(1)
	}
}
