package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"userstream/internal/db"
	"userstream/internal/seed"
)

func newSeedCmd(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:     "seed",
		Short:   "Create the database and user_data table, then load a CSV",
		Args:    cobra.NoArgs,
		PreRunE: a.resolve,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if err := db.CreateDatabase(ctx, a.cfg.Database, a.logger); err != nil {
				return err
			}
			store, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := db.EnsureSchema(ctx, store, a.logger); err != nil {
				return err
			}

			loader := &seed.Loader{DB: store, Logger: a.logger}
			res, err := loader.InsertFile(ctx, file)
			if err != nil {
				return err
			}

			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), res)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Loaded %s: %d read, %d inserted, %d skipped\n",
				file, res.Read, res.Inserted, res.Skipped)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "user_data.csv", "CSV file with name,email,age columns")

	return cmd
}
