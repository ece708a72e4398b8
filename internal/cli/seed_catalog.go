package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrlokans/shelf/internal/catalog"
	"github.com/mrlokans/shelf/internal/database/books"
	dbrecords "github.com/mrlokans/shelf/internal/database/records"
	"github.com/mrlokans/shelf/internal/entrypoint"
)

// NewSeedCatalogCommand loads a YAML catalog into the local books table.
func NewSeedCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed-catalog",
		Short: "Load books from a YAML file into the local catalog",
		Long: `Upsert every book listed in a YAML file into the local catalog.

Books are matched by url, so running the command again updates
existing entries instead of duplicating them.`,
		Example: "  shelf seed-catalog --file catalog.yaml",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rootOpts.config()
			db, err := rootOpts.openDatabase(cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			svc := catalog.NewService(books.NewRepository(db.DB), dbrecords.NewRepository(db.DB), 0)
			n, err := entrypoint.SeedCatalogFile(cmd.Context(), svc, file)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d books into %s\n", n, cfg.Database.Path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML catalog file (required)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
