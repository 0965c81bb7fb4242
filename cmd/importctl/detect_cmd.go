package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

func newDetectCmd() *cobra.Command {
	var (
		file   string
		family string
		tenant string
	)
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Report reference conflicts for a spreadsheet without importing",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			ctx, err := a.requestCtx(cmd.Context(), tenant, 0)
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
			conflicts, err := a.imports.Detect(ctx, family, rows)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			for _, c := range conflicts {
				if err := enc.Encode(c); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "spreadsheet or csv file (required)")
	cmd.Flags().StringVar(&family, "family", "", "entity family (required)")
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id (required)")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("family")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}
