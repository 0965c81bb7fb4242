package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/obralink/importkit/modules/importing/domain/conflict"
)

func newImportCmd() *cobra.Command {
	var (
		file        string
		family      string
		tenant      string
		userID      uint
		resolutions string
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a spreadsheet, applying operator resolutions",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			ctx, err := a.requestCtx(cmd.Context(), tenant, userID)
			if err != nil {
				return err
			}
			schema, err := a.imports.Schema(family)
			if err != nil {
				return err
			}
			rows, err := readRows(file, schema)
			if err != nil {
				return err
			}

			set := conflict.Set{}
			if resolutions != "" {
				raw, err := os.ReadFile(resolutions)
				if err != nil {
					return err
				}
				var in map[string]map[string]conflict.Resolution
				if err := json.Unmarshal(raw, &in); err != nil {
					return err
				}
				set = conflict.ParseSet(in)
			}

			result, err := a.imports.Import(ctx, family, rows, set)
			if err != nil {
				return err
			}
			return json.NewEncoder(os.Stdout).Encode(result)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "spreadsheet or csv file (required)")
	cmd.Flags().StringVar(&family, "family", "", "entity family (required)")
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id (required)")
	cmd.Flags().UintVar(&userID, "user", 0, "acting user id for batch attribution")
	cmd.Flags().StringVar(&resolutions, "resolutions", "", "JSON file with operator resolutions")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("family")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}
