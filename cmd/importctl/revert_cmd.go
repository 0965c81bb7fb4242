package main

import (
	"encoding/json"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newRevertCmd() *cobra.Command {
	var tenant string
	cmd := &cobra.Command{
		Use:   "revert <batch-id>",
		Short: "Tombstone every row inserted by a batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batchID, err := uuid.Parse(args[0])
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			ctx, err := a.requestCtx(cmd.Context(), tenant, 0)
			if err != nil {
				return err
			}
			removed, err := a.imports.Revert(ctx, batchID)
			if err != nil {
				return err
			}
			return json.NewEncoder(os.Stdout).Encode(map[string]any{
				"batchId":     batchID,
				"rowsRemoved": removed,
			})
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id (required)")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}
