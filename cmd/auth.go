package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var authState string

// authCmd manages the stored OAuth token
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Sign in, sign out, or print the interactive login URL",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Obtain an access token with the configured username and password",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuthenticator(); err != nil {
			return err
		}
		if _, err := authenticator.Login(cmd.Context()); err != nil {
			return err
		}

		logger.Info().Str("instance_url", authenticator.InstanceURL()).Msg("Signed in")
		return writeResult(cmd.OutOrStdout(), outputFormat, map[string]string{
			"status":       "signed in",
			"instance_url": authenticator.InstanceURL(),
		})
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuthenticator(); err != nil {
			return err
		}
		return authenticator.Logout()
	},
}

var authURLCmd = &cobra.Command{
	Use:   "url",
	Short: "Print the browser URL for the interactive user-agent login flow",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuthenticator(); err != nil {
			return err
		}
		state := authState
		if state == "" {
			state = uuid.NewString()
		}
		u, err := authenticator.AuthorizeURL(state)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), u)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd, authLogoutCmd, authURLCmd)

	authURLCmd.Flags().StringVar(&authState, "state", "", "opaque state echoed back on redirect (random when empty)")
}

func requireAuthenticator() error {
	if authenticator == nil {
		return fmt.Errorf("auth.access_token is configured; OAuth commands need auth.client_id instead")
	}
	return nil
}
