package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/indexer/tokenizer"
	"github.com/spf13/cobra"
)

func newSynonymsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "synonyms",
		Short: "List or add synonyms",
	}

	var static bool
	list := &cobra.Command{
		Use:   "list",
		Short: "Print learned synonyms (or the static table with --static)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer s.Close()

			table := s.personal.Snapshot()
			if static {
				table = s.engine.Table()
			}
			out := cmd.OutOrStdout()
			if flags.jsonOut {
				return printJSON(out, table)
			}
			keys := make([]string, 0, len(table))
			for k := range table {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(out, "%s: %s\n", k, strings.Join(table[k], ", "))
			}
			return nil
		},
	}
	list.Flags().BoolVar(&static, "static", false, "print the static table instead")

	add := &cobra.Command{
		Use:   "add <token> <synonym>",
		Short: "Record a personal synonym and persist it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer s.Close()

			token, syn := tokenizer.Normalize(args[0]), tokenizer.Normalize(args[1])
			if token == "" || syn == "" || strings.Contains(token, " ") {
				return fmt.Errorf("token must be a single word and synonym must not be empty")
			}
			if !s.personal.Add(token, syn) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s already known\n", token, syn)
				return nil
			}
			if err := s.personal.Persist(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s added (store: %s)\n", token, syn, s.cfg.Synonyms.Store)
			return nil
		},
	}

	cmd.AddCommand(list, add)
	return cmd
}
