package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/searcher/ranker"
)

func printResults(w io.Writer, results []ranker.Result) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, "no results")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tTITLE\tKIND\tPRICE\tSCORE\tCONFIDENCE")
	for i, r := range results {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%.4f\t%s\n",
			i+1, r.DocID, r.Title, r.Kind, r.PriceCents, r.Score, r.Confidence)
	}
	return tw.Flush()
}
