package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/taarya/internal/domain/agent"
)

func newAskCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a natural-language astronomy question",
		Example: `  taarya ask "stars near ra=45, dec=0.5 within 0.2 degrees"
  taarya ask "papers about wide binaries"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts.env)
			if err != nil {
				return err
			}
			defer a.Close()

			ans, err := a.asker.Ask(cmd.Context(), strings.Join(args, " "), nil)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(ans) //nolint:wrapcheck // stdout
			}
			printAnswer(cmd.OutOrStdout(), ans)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw answer object")
	return cmd
}

func printAnswer(w io.Writer, ans agent.Answer) {
	fmt.Fprintln(w, ans.Answer)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "mode: %s", ans.Mode)
	if ans.TraceID != "" {
		fmt.Fprintf(w, "  trace: %s", ans.TraceID)
	}
	fmt.Fprintln(w)

	if len(ans.ToolsUsed) == 0 {
		return
	}
	fmt.Fprintln(w, "tools:")
	for i, tu := range ans.ToolsUsed {
		fmt.Fprintf(w, "  %d. %s %s\n", i+1, tu.Tool, tu.Input)
		if tu.OutputPreview != "" {
			fmt.Fprintf(w, "     -> %s\n", strings.ReplaceAll(tu.OutputPreview, "\n", " "))
		}
	}
}
