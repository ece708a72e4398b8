// Package cli defines the shelf command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrlokans/shelf/internal/config"
	"github.com/mrlokans/shelf/internal/database"
	"github.com/mrlokans/shelf/internal/entrypoint"
)

// RootOptions holds flags shared by every command.
type RootOptions struct {
	DatabasePath string
	Version      string
}

// config loads the environment configuration with flag overrides applied.
func (o *RootOptions) config() *config.Config {
	cfg := config.NewConfig()
	if o.DatabasePath != "" {
		cfg.Database.Path = o.DatabasePath
	}
	return cfg
}

func (o *RootOptions) openDatabase(cfg *config.Config) (*database.Database, error) {
	return database.NewQuietDatabase(cfg.Database.Path)
}

// NewRootCommand creates the shelf command. Without a subcommand it serves
// HTTP.
func NewRootCommand(version string) *cobra.Command {
	opts := &RootOptions{Version: version}

	cmd := &cobra.Command{
		Use:           "shelf",
		Short:         "Personal library reader with highlights",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return entrypoint.Run(opts.config(), opts.Version)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.DatabasePath, "db", "", "path to the SQLite database (default from DATABASE_PATH)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewSeedCatalogCommand(opts))
	cmd.AddCommand(NewCreateUserCommand(opts))

	return cmd
}

// NewServeCommand runs the HTTP server until interrupted.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return entrypoint.Run(rootOpts.config(), rootOpts.Version)
		},
	}
}
