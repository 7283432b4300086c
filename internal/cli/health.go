package cli

import (
	"github.com/spf13/cobra"
)

func newHealthCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result HealthResult

			if err := st.client.Get("/health", &result); err != nil {
				return err
			}

			st.out.Print(result)
			return nil
		},
	}
}
