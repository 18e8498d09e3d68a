package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amirk1998/notedeck/internal/models"
)

func (a *app) loginCmd() *cobra.Command {
	var email, password string
	var remember bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and store credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.sessions.Login(cmd.Context(), models.LoginRequest{
				Email:    email,
				Password: password,
			}, remember)
			if err != nil {
				a.notifier.PushError(err)
				return err
			}
			fmt.Printf("Logged in as %s\n", user.DisplayName())
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().BoolVar(&remember, "remember", false, "enable auto-login on next start")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

func (a *app) registerCmd() *cobra.Command {
	var req models.RegisterRequest
	var remember bool

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.sessions.Register(cmd.Context(), req, remember)
			if err != nil {
				a.notifier.PushError(err)
				return err
			}
			fmt.Printf("Registered %s\n", user.DisplayName())
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Email, "email", "", "account email")
	cmd.Flags().StringVar(&req.Password, "password", "", "account password")
	cmd.Flags().StringVar(&req.ConfirmPassword, "confirm-password", "", "password confirmation")
	cmd.Flags().StringVar(&req.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&req.LastName, "last-name", "", "last name")
	cmd.Flags().BoolVar(&remember, "remember", false, "enable auto-login on next start")
	cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and clear stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.sessions.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Logged out")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current user and credential health",
		RunE: func(cmd *cobra.Command, args []string) error {
			user := a.sessions.RestoreAuthState(cmd.Context())
			if user == nil {
				fmt.Println("Not logged in")
			} else {
				fmt.Printf("%s <%s> (%s)\n", user.DisplayName(), user.Email, user.Initials())
				if session := a.sessions.CurrentSession(); session != nil {
					fmt.Printf("Session %s via %s login\n", session.ID, session.LoginMethod)
				}
			}

			report := a.creds.ValidateStoredData()
			if !report.IsValid {
				fmt.Println("Stored credential issues:")
				for _, issue := range report.Issues {
					fmt.Printf("  - %s\n", issue)
				}
			}
			return nil
		},
	}
}

func (a *app) sessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List recent session history",
		RunE: func(cmd *cobra.Command, args []string) error {
			history, err := a.sessions.SessionHistory()
			if err != nil {
				return err
			}
			if len(history) == 0 {
				fmt.Println("No past sessions")
				return nil
			}
			for _, s := range history {
				ended := "active"
				if s.EndedAt != nil {
					ended = s.EndedAt.Format("2006-01-02 15:04")
				}
				fmt.Printf("%s  %s login  started %s  ended %s\n",
					s.ID, s.LoginMethod, s.CreatedAt.Format("2006-01-02 15:04"), ended)
			}
			return nil
		},
	}
}
