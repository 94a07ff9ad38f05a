package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/searcher/executor"
	"github.com/spf13/cobra"
)

func newIndexCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Inspect the search index",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Print index statistics per language",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, flags)
			if err != nil {
				return err
			}
			defer s.Close()

			langs := []string{flags.lang}
			if flags.lang == "" {
				cat := s.engine.Catalog()
				langs = cat.Languages
				if len(langs) == 0 {
					langs = []string{cat.Fallback()}
				}
			}
			infos := make([]executor.IndexInfo, 0, len(langs))
			for _, lang := range langs {
				info, err := s.engine.Stats(ctx, lang)
				if err != nil {
					return err
				}
				infos = append(infos, info)
			}
			out := cmd.OutOrStdout()
			if flags.jsonOut {
				return printJSON(out, infos)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "LANG\tVERSION\tDOCS\tTERMS\tPOSTINGS\tAVG LEN\tSKIPPED")
			for _, info := range infos {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%.2f\t%d\n",
					info.Lang, info.CatalogVersion, info.Stats.Documents, info.Stats.Terms,
					info.Stats.Postings, info.Stats.AverageDocumentLength, info.Stats.Skipped)
			}
			return tw.Flush()
		},
	})
	return cmd
}
