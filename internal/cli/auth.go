package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yexiu0529666/gobang/internal/session"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Session management commands",
	}

	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthRegisterCmd())
	cmd.AddCommand(newAuthLogoutCmd())
	cmd.AddCommand(newAuthMeCmd())
	cmd.AddCommand(newAuthSendCodeCmd())
	cmd.AddCommand(newAuthUpdateCmd())

	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var user, pass string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with an existing account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Session.Login(cmd.Context(), user, pass); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage(fmt.Sprintf("Logged in as %s", app.Session.CurrentUser().Username))
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Username (required)")
	cmd.Flags().StringVar(&pass, "pass", "", "Password (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("pass")

	return cmd
}

func newAuthRegisterCmd() *cobra.Command {
	var user, email, pass string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := session.RegisterRequest{
				Username: user,
				Email:    email,
				Password: pass,
			}
			if err := app.Session.Register(cmd.Context(), req); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage(fmt.Sprintf("Registered as %s", app.Session.CurrentUser().Username))
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Username (required)")
	cmd.Flags().StringVar(&email, "email", "", "Email (optional)")
	cmd.Flags().StringVar(&pass, "pass", "", "Password (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("pass")

	return cmd
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and clear the stored credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cfg.Output)
			if err := app.Session.Logout(cmd.Context()); err != nil {
				// The local session is cleared regardless
				out.PrintMessage("Logged out locally (server notification failed)")
				return nil
			}
			out.PrintMessage("Logged out")
			return nil
		},
	}
}

func newAuthMeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the current user profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := app.Session.FetchUser(cmd.Context())
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(*user)
			return nil
		},
	}
}

func newAuthSendCodeCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "send-code",
		Short: "Request an email verification code",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Session.SendVerificationCode(cmd.Context(), email); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Verification code sent")
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newAuthUpdateCmd() *cobra.Command {
	var email, pass string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update the account email or password",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" && pass == "" {
				return fmt.Errorf("nothing to update: pass --email or --pass")
			}
			if err := app.Session.UpdateProfile(cmd.Context(), email, pass); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Profile updated")
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "New email")
	cmd.Flags().StringVar(&pass, "pass", "", "New password")

	return cmd
}
