package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/searcher/intent"
	"github.com/spf13/cobra"
)

func newChatCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "chat [message...]",
		Short: "Answer a chat message, or read messages from stdin line by line",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, flags)
			if err != nil {
				return err
			}
			defer s.Close()

			lang, err := s.engine.ResolveLanguage(flags.lang)
			if err != nil {
				return err
			}
			router := intent.NewDefaultRouter(s.engine)
			out := cmd.OutOrStdout()
			answer := func(text string) error {
				reply, err := router.Route(ctx, intent.NewMessage(text, lang))
				if err != nil {
					return err
				}
				if flags.jsonOut {
					return printJSON(out, reply)
				}
				fmt.Fprintf(out, "[%s] %s\n", reply.Intent, reply.Text)
				if len(reply.Results) > 0 {
					if err := printResults(out, reply.Results); err != nil {
						return err
					}
				}
				return nil
			}

			if len(args) > 0 {
				return answer(strings.Join(args, " "))
			}
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				if err := answer(scanner.Text()); err != nil {
					return err
				}
			}
			return scanner.Err()
		},
	}
}
