package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/taarya/internal/usecase/ingest"
)

type ingestOptions struct {
	batchSize  int
	source     string
	collection string
	quiet      bool
}

func newIngestCmd(opts *rootOptions) *cobra.Command {
	iopts := &ingestOptions{}

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load catalog and paper files into the backends",
	}
	cmd.PersistentFlags().IntVar(&iopts.batchSize, "batch-size", 0,
		"rows per write (default: 1000 for catalogs, similarity.batch_size for papers)")
	cmd.PersistentFlags().BoolVarP(&iopts.quiet, "quiet", "q", false, "disable the progress display")

	catalogCmd := &cobra.Command{
		Use:   "catalog <file.csv>",
		Short: "Upsert a Gaia-style CSV into the catalog and the graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), opts, iopts, args[0],
				func(ctx context.Context, _ *app, svc *ingest.Service, r io.Reader) (ingest.Report, error) {
					return svc.WithSourceCatalog(iopts.source).Catalog(ctx, r)
				})
		},
	}
	catalogCmd.Flags().StringVar(&iopts.source, "source", "GAIA", "catalog_source tag stored on every record")

	papersCmd := &cobra.Command{
		Use:   "papers <file.jsonl>",
		Short: "Index a JSON-lines paper file and link papers to the stars they mention",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), opts, iopts, args[0],
				func(ctx context.Context, a *app, svc *ingest.Service, r io.Reader) (ingest.Report, error) {
					if iopts.batchSize == 0 {
						svc.WithBatchSize(a.cfg.Similarity.BatchSize)
					}
					return svc.Papers(ctx, r, iopts.collection)
				})
		},
	}
	papersCmd.Flags().StringVar(&iopts.collection, "collection", "", "similarity collection (default: similarity.collection)")

	cmd.AddCommand(catalogCmd, papersCmd)
	return cmd
}

type ingestFunc func(ctx context.Context, a *app, svc *ingest.Service, r io.Reader) (ingest.Report, error)

func runIngest(ctx context.Context, opts *rootOptions, iopts *ingestOptions, path string, run ingestFunc) error {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	a, err := newApp(ctx, opts.env)
	if err != nil {
		return err
	}
	defer a.Close()

	progress := newRowProgress("ingest "+filepath.Base(path), iopts.quiet)
	svc := ingest.New(a.catalog, a.similarity, a.graph).
		WithBatchSize(iopts.batchSize).
		WithProgress(progress.Add).
		WithLogger(a.logger)

	rep, err := run(ctx, a, svc, f)
	progress.Finish()
	if err != nil {
		return fmt.Errorf("ingest %s: %w", path, err)
	}

	a.logger.Info("Ingest finished",
		zap.String("file", path),
		zap.Int("read", rep.Read),
		zap.Int("written", rep.Written),
		zap.Int("skipped", rep.Skipped),
		zap.Int("linked", rep.Linked),
	)
	return nil
}
