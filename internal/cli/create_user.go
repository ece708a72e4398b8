package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrlokans/shelf/internal/auth"
	"github.com/mrlokans/shelf/internal/config"
	"github.com/mrlokans/shelf/internal/database/users"
)

type createUserOptions struct {
	Username string
	Email    string
	Password string
}

// NewCreateUserCommand adds an account for local authentication mode.
func NewCreateUserCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &createUserOptions{}

	cmd := &cobra.Command{
		Use:     "create-user",
		Short:   "Create a local user account",
		Example: "  shelf create-user --username reader --email reader@example.com --password 'a long passphrase'",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rootOpts.config()
			db, err := rootOpts.openDatabase(cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			svc := auth.NewService(users.NewRepository(db.DB), cfg.Auth)
			user, err := svc.CreateUser(cmd.Context(), opts.Username, opts.Email, opts.Password)
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (%s)\n", user.Username, user.ID)
			if cfg.Auth.Mode != config.AuthModeLocal {
				fmt.Fprintln(cmd.ErrOrStderr(), "Note: AUTH_MODE is not \"local\", the account is unused until it is.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Username, "username", "", "login name (required)")
	cmd.Flags().StringVar(&opts.Email, "email", "", "email address (required)")
	cmd.Flags().StringVar(&opts.Password, "password", "", "password, at least 12 characters (required)")
	for _, name := range []string{"username", "email", "password"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}
