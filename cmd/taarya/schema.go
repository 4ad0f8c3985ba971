package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSchemaCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create the catalog table, the graph constraints and the paper collection",
		Long: `schema is idempotent: existing tables, constraints and collections are kept.
A collection that exists with a different dimension is reported as a schema conflict.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts.env)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.catalog.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("catalog schema: %w", err)
			}
			if err := a.graph.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("graph schema: %w", err)
			}
			collection, dim := a.similarity.DefaultCollection(), a.similarity.Dimension()
			if err := a.similarity.EnsureCollection(ctx, collection, dim); err != nil {
				return fmt.Errorf("similarity collection: %w", err)
			}

			a.logger.Info("Schema ready",
				zap.String("catalog_table", a.cfg.Catalog.Table),
				zap.String("collection", collection),
				zap.Int("dimension", dim),
			)
			return nil
		},
	}
}
