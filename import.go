/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Seednode/pricebox/sets"
)

func newImportCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "import <json-file>",
		Short: "Copy item sets from a json set file into the sqlite database.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := sets.ReadFile(args[0])
			if err != nil {
				return err
			}

			db, err := sets.OpenSQLite(cfg.database)
			if err != nil {
				return err
			}
			defer db.Close()

			results, err := sets.Import(cmd.Context(), src, db)
			for _, r := range results {
				verb := "created"
				if r.Updated {
					verb = "updated"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s set %d %q (%d items)\n", verb, r.ID, r.Name, r.Items)
			}
			if err != nil {
				return err
			}

			log.Info().Str("module", "sets").Str("from", args[0]).Str("to", cfg.database).Int("sets", len(results)).Msg("import complete")

			return nil
		},
	}
}
