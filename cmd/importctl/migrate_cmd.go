package main

import (
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/obralink/importkit/migrations"
	"github.com/obralink/importkit/pkg/configuration"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply embedded database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf := configuration.Use()
			db, err := sql.Open("pgx", conf.Database.Opts)
			if err != nil {
				return err
			}
			defer db.Close()

			goose.SetBaseFS(migrations.FS)
			if err := goose.SetDialect("postgres"); err != nil {
				return err
			}
			return goose.UpContext(cmd.Context(), db, ".")
		},
	}
}
