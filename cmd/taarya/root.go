package main

import (
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/taarya/internal/config"
	"github.com/kailas-cloud/taarya/internal/version"
)

// rootOptions are the persistent flags shared by every sub-command.
type rootOptions struct {
	env string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "taarya",
		Short: "Astronomy query orchestrator over a star catalog, a paper index and a relationship graph",
		Long: `taarya answers astronomy questions by routing them to a coordinate-indexed
star catalog, an embedding index of research papers and a star/paper graph,
then merging whatever the backends return.`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if opts.env == "" {
				opts.env = config.GetEnv()
			}
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.env, "env", "e", "", "config environment (default: $ENV or local)")

	cmd.AddCommand(
		newServeCmd(opts),
		newSchemaCmd(opts),
		newIngestCmd(opts),
		newAskCmd(opts),
		newStatsCmd(opts),
	)
	return cmd
}
