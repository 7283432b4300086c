package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func addCredentialFlags(cmd *cobra.Command, creds *credentials) {
	cmd.Flags().StringVarP(&creds.Username, "username", "u", "", "Username (required)")
	cmd.Flags().StringVarP(&creds.Password, "password", "p", "", "Password (required)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
}

func newRegisterCmd(st *state) *cobra.Command {
	var creds credentials

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result RegisterResult
			if err := st.client.Post("/auth/register", creds, &result); err != nil {
				return err
			}

			st.out.Print(result)
			return nil
		},
	}
	addCredentialFlags(cmd, &creds)

	return cmd
}

func newLoginCmd(st *state) *cobra.Command {
	var creds credentials

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result LoginResult
			if err := st.client.Post("/auth/login", creds, &result); err != nil {
				return err
			}

			if err := st.cfg.SaveToken(result.Token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}
			st.client.SetToken(result.Token)

			st.out.Print(result)
			return nil
		},
	}
	addCredentialFlags(cmd, &creds)

	return cmd
}

func newLogoutCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the saved access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := st.cfg.ClearToken(); err != nil {
				return fmt.Errorf("failed to remove token: %w", err)
			}

			st.out.PrintMessage("Logged out")
			return nil
		},
	}
}
