package intent

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/menu-search/internal/searcher/executor"
)

// Engine is what the built-in rules need from the search engine.
type Engine interface {
	Search(ctx context.Context, req executor.SearchRequest) (*executor.SearchResponse, error)
	Catalog() *catalog.Catalog
}

var (
	greetingStarts = set("hola", "buenas", "buenos", "saludos", "hello", "hi", "hey", "good")
	greetingWords  = set("hola", "buenas", "buenos", "dias", "tardes", "noches", "que", "tal",
		"saludos", "hello", "hi", "hey", "good", "morning", "afternoon", "evening", "there")
	priceWords   = set("precio", "precios", "cuanto", "cuesta", "cuestan", "vale", "valen", "price", "cost", "costs", "much")
	optionsWords = set("opciones", "menu", "carta", "combos", "options", "combo")
	extrasWords  = set("extra", "extras", "adicional", "adicionales", "agregados", "additional", "addons", "sides")
	fillerWords  = set("que", "cuales", "hay", "tienen", "tienes", "son", "los", "las", "el", "la", "de", "del",
		"me", "muestra", "muestrame", "ver", "quiero", "puedo", "pedir", "todas", "todos", "sus", "tu", "su",
		"en", "hoy", "tiene", "por", "favor",
		"what", "which", "are", "is", "the", "do", "you", "have", "show", "me", "list", "any", "all", "your", "can", "i", "see", "get",
		"on", "today", "please")
	offTopicWords = set("clima", "lluvia", "weather", "rain", "politica", "politics", "presidente", "president",
		"elecciones", "election", "futbol", "football", "soccer", "partido", "chiste", "joke", "bitcoin", "crypto")

	optionNumber = regexp.MustCompile(`\b(?:opcion|option|combo)\s+(\d+|[a-z]+)\b`)
	numberWords  = map[string]int{
		"uno": 1, "una": 1, "dos": 2, "tres": 3, "cuatro": 4, "cinco": 5,
		"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	}
)

// NewDefaultRouter wires the built-in rules in evaluation order: empty,
// greeting, option_price, list_extras, list_options, off_topic, with BM25
// search as the fallback.
func NewDefaultRouter(engine Engine) *Router {
	return NewRouter(SearchHandler(engine), DefaultRules(engine)...)
}

func DefaultRules(engine Engine) []Rule {
	return []Rule{
		{
			Name:   Empty,
			Match:  func(msg Message) bool { return len(msg.Tokens) == 0 },
			Handle: textReply(Empty, "empty"),
		},
		{
			Name:   Greeting,
			Match:  isGreeting,
			Handle: textReply(Greeting, "greeting"),
		},
		{
			Name:   OptionPrice,
			Match:  func(msg Message) bool { _, ok := priceQuestion(msg); return ok },
			Handle: optionPrice(engine),
		},
		{
			Name:   ListExtras,
			Match:  func(msg Message) bool { return onlyKeywords(msg.Tokens, extrasWords) },
			Handle: listItems(engine, index.KindExtra),
		},
		{
			Name:   ListOptions,
			Match:  func(msg Message) bool { return onlyKeywords(msg.Tokens, optionsWords) },
			Handle: listItems(engine, index.KindOption),
		},
		{
			Name:   OffTopic,
			Match:  func(msg Message) bool { return hasAny(msg.Tokens, offTopicWords) },
			Handle: textReply(OffTopic, "off_topic"),
		},
	}
}

// SearchHandler answers with the top BM25 results for the message text.
func SearchHandler(engine Engine) HandlerFunc {
	return func(ctx context.Context, msg Message) (Reply, error) {
		resp, err := engine.Search(ctx, executor.SearchRequest{Query: msg.Text, Lang: msg.Lang})
		if err != nil {
			return Reply{}, err
		}
		reply := Reply{Intent: Search, Results: resp.Results}
		if len(resp.Results) == 0 {
			reply.Text = text(msg.Lang, "no_results")
		} else {
			reply.Text = text(msg.Lang, "results")
		}
		return reply, nil
	}
}

func textReply(intent, key string) HandlerFunc {
	return func(_ context.Context, msg Message) (Reply, error) {
		return Reply{Intent: intent, Text: text(msg.Lang, key)}, nil
	}
}

func isGreeting(msg Message) bool {
	if len(msg.Tokens) == 0 || len(msg.Tokens) > 4 {
		return false
	}
	if _, ok := greetingStarts[msg.Tokens[0]]; !ok {
		return false
	}
	for _, tok := range msg.Tokens {
		if _, ok := greetingWords[tok]; !ok {
			return false
		}
	}
	return true
}

// priceQuestion extracts N from "cuanto cuesta la opcion N" style
// questions.
func priceQuestion(msg Message) (int, bool) {
	if !hasAny(msg.Tokens, priceWords) {
		return 0, false
	}
	m := optionNumber.FindStringSubmatch(msg.Normalized)
	if m == nil {
		return 0, false
	}
	if n, err := strconv.Atoi(m[1]); err == nil {
		return n, true
	}
	n, ok := numberWords[m[1]]
	return n, ok
}

func optionPrice(engine Engine) HandlerFunc {
	return func(_ context.Context, msg Message) (Reply, error) {
		n, _ := priceQuestion(msg)
		cat := engine.Catalog()
		if cat == nil {
			return Reply{}, fmt.Errorf("catalog not loaded")
		}
		item, ok := cat.Option(n)
		if !ok {
			return Reply{
				Intent: OptionPrice,
				Text:   fmt.Sprintf(text(msg.Lang, "no_such_option"), n, len(cat.Options)),
			}, nil
		}
		quoted := quote(cat, item, index.KindOption, n, msg.Lang)
		return Reply{
			Intent: OptionPrice,
			Text:   fmt.Sprintf(text(msg.Lang, "option_price"), quoted.Title, formatPrice(quoted.PriceCents)),
			Items:  []Item{quoted},
		}, nil
	}
}

func listItems(engine Engine, kind index.Kind) HandlerFunc {
	return func(_ context.Context, msg Message) (Reply, error) {
		cat := engine.Catalog()
		if cat == nil {
			return Reply{}, fmt.Errorf("catalog not loaded")
		}
		source, intent, key := cat.Options, ListOptions, "list_options"
		if kind == index.KindExtra {
			source, intent, key = cat.Extras, ListExtras, "list_extras"
		}
		items := make([]Item, 0, len(source))
		lines := make([]string, 0, len(source)+1)
		lines = append(lines, text(msg.Lang, key))
		for i, it := range source {
			number := 0
			if kind == index.KindOption {
				number = i + 1
			}
			quoted := quote(cat, it, kind, number, msg.Lang)
			items = append(items, quoted)
			line := fmt.Sprintf("- %s (%s)", quoted.Title, formatPrice(quoted.PriceCents))
			if quoted.Summary != "" {
				line = fmt.Sprintf("- %s: %s (%s)", quoted.Title, quoted.Summary, formatPrice(quoted.PriceCents))
			}
			lines = append(lines, line)
		}
		return Reply{Intent: intent, Text: strings.Join(lines, "\n"), Items: items}, nil
	}
}

func quote(cat *catalog.Catalog, it catalog.Item, kind index.Kind, number int, lang string) Item {
	fallback := cat.Fallback()
	return Item{
		ID:         it.ID,
		Kind:       kind,
		Number:     number,
		Title:      it.Title.Get(lang, fallback),
		Summary:    it.Description.Get(lang, fallback),
		PriceCents: it.PriceCents,
	}
}

// onlyKeywords reports whether tokens contain a keyword and nothing but
// keywords and filler, so "que extras hay" lists extras while "huevo
// extra" is still searched.
func onlyKeywords(tokens []string, keywords map[string]struct{}) bool {
	found := false
	for _, tok := range tokens {
		if _, ok := keywords[tok]; ok {
			found = true
			continue
		}
		if _, ok := fillerWords[tok]; !ok {
			return false
		}
	}
	return found
}

func hasAny(tokens []string, words map[string]struct{}) bool {
	for _, tok := range tokens {
		if _, ok := words[tok]; ok {
			return true
		}
	}
	return false
}

func formatPrice(cents int) string {
	sign := ""
	if cents < 0 {
		sign, cents = "-", -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

func set(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
