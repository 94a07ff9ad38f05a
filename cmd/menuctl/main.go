// Command menuctl queries the menu search engine from a terminal: it runs
// searches and chat turns against the configured catalog, prints index
// statistics and manages learned synonyms.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/app"
	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/indexer/synonym"
	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/menu-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/menu-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/menu-search/pkg/postgres"
	"github.com/spf13/cobra"
)

type globalFlags struct {
	configPath string
	lang       string
	jsonOut    bool
	debug      bool
	noLearn    bool
}

// session is the engine and its resources, opened once per command.
type session struct {
	cfg      *config.Config
	engine   *executor.Engine
	personal *synonym.PersonalStore
	closers  []func() error
}

func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func openSession(ctx context.Context, flags *globalFlags) (*session, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	level := "error"
	if flags.debug {
		level = "debug"
	}
	logger.Setup(level, "text")

	s := &session{cfg: cfg}
	var pg *postgres.Client
	if cfg.Catalog.Source == "postgres" {
		pg, err = postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pg.Close)
	}
	source, err := app.CatalogSource(cfg.Catalog, cfg.Search, pg)
	if err != nil {
		s.Close()
		return nil, err
	}
	table, err := app.SynonymTable(cfg.Synonyms)
	if err != nil {
		s.Close()
		return nil, err
	}
	// The CLI never talks to Redis; a redis store falls back to memory.
	synCfg := cfg.Synonyms
	if synCfg.Store == "redis" {
		synCfg.Store = "memory"
	}
	personal, closeStore, err := app.SynonymStore(ctx, synCfg, nil)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.personal = personal
	s.closers = append(s.closers, closeStore)

	searchCfg := cfg.Search
	if flags.noLearn {
		searchCfg.Learning = false
	}
	s.engine = executor.New(source, table, personal, app.EngineOptions(searchCfg)...)
	if err := s.engine.Load(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "menuctl",
		Short:         "Search the menu catalog from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to config file (defaults plus MS_* env when empty)")
	root.PersistentFlags().StringVarP(&flags.lang, "lang", "l", "", "catalog language (defaults to search.defaultLanguage)")
	root.PersistentFlags().BoolVar(&flags.jsonOut, "json", false, "print JSON instead of text")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&flags.noLearn, "no-learn", false, "do not record personal synonyms")

	root.AddCommand(
		newSearchCmd(flags),
		newChatCmd(flags),
		newIndexCmd(flags),
		newSynonymsCmd(flags),
	)
	return root
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
