package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/searcher/executor"
	"github.com/spf13/cobra"
)

func newSearchCmd(flags *globalFlags) *cobra.Command {
	var (
		limit   int
		explain bool
	)
	cmd := &cobra.Command{
		Use:   "search <query...>",
		Short: "Rank catalog items against a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, flags)
			if err != nil {
				return err
			}
			defer s.Close()

			query := strings.Join(args, " ")
			out := cmd.OutOrStdout()
			if explain {
				exp, err := s.engine.Explain(ctx, query, flags.lang, limit)
				if err != nil {
					return err
				}
				if flags.jsonOut {
					return printJSON(out, exp)
				}
				fmt.Fprintf(out, "tokens: %s\n\n", strings.Join(exp.Tokens, " "))
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "TERM\tFROM\tMAPPED\tDIST\tDF\tIDF\tFACTOR")
				for _, t := range exp.Terms {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%.4f\t%.2f\n",
						t.Term, t.Source, t.Mapped, t.Distance, t.DocumentFrequency, t.IDF, t.Factor)
				}
				tw.Flush()
				fmt.Fprintln(out)
				return printResults(out, exp.Results)
			}

			resp, err := s.engine.Search(ctx, executor.SearchRequest{Query: query, Lang: flags.lang, Limit: limit})
			if err != nil {
				return err
			}
			if flags.jsonOut {
				return printJSON(out, resp)
			}
			return printResults(out, resp.Results)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum results (defaults to search.topK)")
	cmd.Flags().BoolVar(&explain, "explain", false, "show how each query term was scored")
	return cmd
}
