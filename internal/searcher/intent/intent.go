// Package intent routes chatbot messages. An ordered list of rules is
// evaluated top to bottom and the first rule whose predicate matches
// answers the message; when none match, the message is handed to the
// fallback handler, which runs a BM25 search.
package intent

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/searcher/ranker"
)

// Intent names.
const (
	Empty       = "empty"
	Greeting    = "greeting"
	ListOptions = "list_options"
	ListExtras  = "list_extras"
	OptionPrice = "option_price"
	OffTopic    = "off_topic"
	Search      = "search"
)

// Message is one chat turn. Normalized and Tokens are derived from Text by
// NewMessage; rules only look at those.
type Message struct {
	Text       string
	Lang       string
	Normalized string
	Tokens     []string
}

func NewMessage(text, lang string) Message {
	return Message{
		Text:       text,
		Lang:       lang,
		Normalized: tokenizer.Normalize(text),
		Tokens:     tokenizer.Tokenize(text),
	}
}

// Item is a catalog entry quoted in a reply.
type Item struct {
	ID         string     `json:"id"`
	Kind       index.Kind `json:"kind"`
	Number     int        `json:"number,omitempty"`
	Title      string     `json:"title"`
	Summary    string     `json:"summary,omitempty"`
	PriceCents int        `json:"price_cents"`
}

// Reply is the router's answer.
type Reply struct {
	Intent  string          `json:"intent"`
	Text    string          `json:"text"`
	Items   []Item          `json:"items,omitempty"`
	Results []ranker.Result `json:"results,omitempty"`
}

// HandlerFunc answers a message.
type HandlerFunc func(ctx context.Context, msg Message) (Reply, error)

// Rule pairs a predicate with its handler.
type Rule struct {
	Name   string
	Match  func(msg Message) bool
	Handle HandlerFunc
}

type Router struct {
	rules    []Rule
	fallback HandlerFunc
}

// NewRouter evaluates rules in the given order and calls fallback when
// none match.
func NewRouter(fallback HandlerFunc, rules ...Rule) *Router {
	return &Router{rules: rules, fallback: fallback}
}

// Route answers msg with the first matching rule or the fallback. A reply
// without an intent name gets the rule's name.
func (r *Router) Route(ctx context.Context, msg Message) (Reply, error) {
	for _, rule := range r.rules {
		if !rule.Match(msg) {
			continue
		}
		reply, err := rule.Handle(ctx, msg)
		if err != nil {
			return Reply{}, fmt.Errorf("intent %s: %w", rule.Name, err)
		}
		if reply.Intent == "" {
			reply.Intent = rule.Name
		}
		return reply, nil
	}
	if r.fallback == nil {
		return Reply{Intent: Search}, nil
	}
	reply, err := r.fallback(ctx, msg)
	if err != nil {
		return Reply{}, fmt.Errorf("intent %s: %w", Search, err)
	}
	if reply.Intent == "" {
		reply.Intent = Search
	}
	return reply, nil
}

// Rules returns the rule names in evaluation order.
func (r *Router) Rules() []string {
	names := make([]string, len(r.rules))
	for i, rule := range r.rules {
		names[i] = rule.Name
	}
	return names
}
