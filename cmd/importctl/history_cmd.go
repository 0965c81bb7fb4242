package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/obralink/importkit/modules/importing/domain/batch"
)

func newHistoryCmd() *cobra.Command {
	var (
		tenant string
		family string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List import batches, newest first",
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
			batches, err := a.imports.History(ctx, &batch.FindParams{EntityType: family, Limit: limit})
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			for _, b := range batches {
				if err := enc.Encode(map[string]any{
					"id":         b.ID(),
					"entityType": b.EntityType(),
					"rowCount":   b.RowCount(),
					"status":     b.Status(),
					"createdAt":  b.CreatedAt(),
				}); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id (required)")
	cmd.Flags().StringVar(&family, "family", "", "filter by entity family")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum batches to list")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}
