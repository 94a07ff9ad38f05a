// Command loadtest drives a running menu search service with a mix of
// search and chat requests and reports throughput, latency percentiles,
// cache hits and intents.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var defaultQueries = []string{
	"tortilla con huevo",
	"algo con chorizo",
	"quiero una cola",
	"refresco",
	"papas fritas",
	"pollo con arroz",
	"huebo",
	"queso",
	"cuanto cuesta la opcion 2",
	"que extras hay",
	"hola",
	"egg and chorizo",
	"cheese fries",
	"soda",
}

type result struct {
	latency time.Duration
	status  int
	cached  bool
	intent  string
	err     error
}

type stats struct {
	mu        sync.Mutex
	latencies []time.Duration
	codes     map[int]int
	intents   map[string]int
	total     atomic.Int64
	failed    atomic.Int64
	cacheHits atomic.Int64
}

func (s *stats) record(r result) {
	s.total.Add(1)
	if r.err != nil || r.status >= 300 {
		s.failed.Add(1)
	}
	if r.cached {
		s.cacheHits.Add(1)
	}
	if r.err != nil {
		return
	}
	s.mu.Lock()
	s.latencies = append(s.latencies, r.latency)
	s.codes[r.status]++
	if r.intent != "" {
		s.intents[r.intent]++
	}
	s.mu.Unlock()
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the search service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	chatRatio := flag.Float64("chat-ratio", 0.3, "fraction of requests sent to the chat endpoint")
	lang := flag.String("lang", "es", "language parameter")
	queriesFile := flag.String("queries", "", "file with one query per line (defaults to a built-in set)")
	flag.Parse()

	queries := defaultQueries
	if *queriesFile != "" {
		loaded, err := readQueries(*queriesFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "reading queries: %v\n", err)
			os.Exit(1)
		}
		queries = loaded
	}

	fmt.Printf("target=%s concurrency=%d duration=%s chat_ratio=%.2f queries=%d\n",
		*baseURL, *concurrency, *duration, *chatRatio, len(queries))

	s := run(*baseURL, *lang, queries, *concurrency, *duration, *chatRatio)
	report(s, *duration)
	if s.total.Load() == 0 {
		fmt.Fprintln(os.Stderr, "no requests completed; is the service running?")
		os.Exit(1)
	}
}

func readQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			out = append(out, line)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s holds no queries", path)
	}
	return out, scanner.Err()
}

func run(baseURL, lang string, queries []string, concurrency int, duration time.Duration, chatRatio float64) *stats {
	s := &stats{codes: map[int]int{}, intents: map[string]int{}}
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        concurrency * 2,
			MaxIdleConnsPerHost: concurrency * 2,
		},
	}
	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(worker)))
			for i := worker; ctx.Err() == nil; i++ {
				query := queries[i%len(queries)]
				var r result
				if rng.Float64() < chatRatio {
					r = chat(ctx, client, baseURL, query, lang)
				} else {
					r = search(ctx, client, baseURL, query, lang)
				}
				if ctx.Err() != nil {
					return
				}
				s.record(r)
			}
		}(w)
	}
	wg.Wait()
	return s
}

func search(ctx context.Context, client *http.Client, baseURL, query, lang string) result {
	u := fmt.Sprintf("%s/api/v1/search?q=%s&lang=%s", baseURL, url.QueryEscape(query), url.QueryEscape(lang))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return result{err: err}
	}
	var body struct {
		Cached bool `json:"cached"`
	}
	r := do(client, req, &body)
	r.cached = body.Cached
	return r
}

func chat(ctx context.Context, client *http.Client, baseURL, message, lang string) result {
	payload, _ := json.Marshal(map[string]string{"message": message, "lang": lang})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/v1/chat", bytes.NewReader(payload))
	if err != nil {
		return result{err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	var body struct {
		Intent string `json:"intent"`
	}
	r := do(client, req, &body)
	r.intent = body.Intent
	return r
}

func do(client *http.Client, req *http.Request, into any) result {
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return result{latency: time.Since(start), err: err}
	}
	defer resp.Body.Close()
	// Decode errors only lose the cached/intent detail.
	_ = json.NewDecoder(resp.Body).Decode(into)
	return result{latency: time.Since(start), status: resp.StatusCode}
}

func report(s *stats, duration time.Duration) {
	total, failed := s.total.Load(), s.failed.Load()
	fmt.Printf("\nrequests=%d failed=%d rps=%.1f cache_hits=%d\n",
		total, failed, float64(total)/duration.Seconds(), s.cacheHits.Load())

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.latencies) > 0 {
		sort.Slice(s.latencies, func(i, j int) bool { return s.latencies[i] < s.latencies[j] })
		fmt.Printf("latency min=%s p50=%s p95=%s p99=%s max=%s\n",
			s.latencies[0],
			percentile(s.latencies, 50),
			percentile(s.latencies, 95),
			percentile(s.latencies, 99),
			s.latencies[len(s.latencies)-1],
		)
	}
	codes := make([]int, 0, len(s.codes))
	for c := range s.codes {
		codes = append(codes, c)
	}
	sort.Ints(codes)
	for _, c := range codes {
		fmt.Printf("status %d: %d\n", c, s.codes[c])
	}
	intents := make([]string, 0, len(s.intents))
	for name := range s.intents {
		intents = append(intents, name)
	}
	sort.Strings(intents)
	for _, name := range intents {
		fmt.Printf("intent %s: %d\n", name, s.intents[name])
	}
}

func percentile(sorted []time.Duration, p int) time.Duration {
	idx := p * len(sorted) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
