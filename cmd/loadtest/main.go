package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/pflag"
	"gonum.org/v1/gonum/stat"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/internal/ingestion"
)

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Limit       int
	Queries     []ingestion.Query
	Variants    []string
	Models      []string
}

// Stats is shared by every worker. Latencies are kept per model so the
// report can compare scoring cost across weighting models.
type Stats struct {
	totalRequests atomic.Int64
	successCount  atomic.Int64
	errorCount    atomic.Int64
	cacheHits     atomic.Int64

	mu          sync.Mutex
	latencies   map[string][]float64
	statusCodes map[int]int64
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make(map[string][]float64),
		statusCodes: make(map[int]int64),
	}
}

func (s *Stats) RecordRequest(model string, duration time.Duration, statusCode int, cached bool, err error) {
	s.totalRequests.Add(1)
	if err != nil {
		s.errorCount.Add(1)
		return
	}
	if statusCode >= 200 && statusCode < 300 {
		s.successCount.Add(1)
	} else {
		s.errorCount.Add(1)
	}
	if cached {
		s.cacheHits.Add(1)
	}

	s.mu.Lock()
	s.latencies[model] = append(s.latencies[model], float64(duration.Microseconds()))
	s.statusCodes[statusCode]++
	s.mu.Unlock()
}

func main() {
	if err := run(); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var cfg Config
	var queriesPath string

	flagSet := pflag.NewFlagSet("loadtest", pflag.ContinueOnError)
	flagSet.StringVar(&cfg.BaseURL, "url", "http://localhost:8080", "base URL of the search service")
	flagSet.IntVarP(&cfg.Concurrency, "concurrency", "n", 10, "number of concurrent workers")
	flagSet.DurationVarP(&cfg.Duration, "duration", "d", 30*time.Second, "test duration")
	flagSet.IntVar(&cfg.Limit, "limit", 10, "results requested per search")
	flagSet.StringVar(&queriesPath, "queries", "", "query file (built-in topics when empty)")
	flagSet.StringSliceVar(&cfg.Variants, "variants", []string{"original", "stemmed", "lemmatized"}, "index variants to spread requests over")
	flagSet.StringSliceVar(&cfg.Models, "models", []string{"BM25", "TF_IDF", "DirichletLM", "PL2"}, "weighting models to spread requests over")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}
	if cfg.Concurrency < 1 || len(cfg.Variants) == 0 || len(cfg.Models) == 0 {
		return fmt.Errorf("concurrency, variants and models must be non-empty")
	}

	queries, err := ingestion.ReadQueriesFile(queriesPath)
	if err != nil {
		return err
	}
	if len(queries) == 0 {
		return fmt.Errorf("no queries to send")
	}
	cfg.Queries = queries

	fmt.Println("=== Search API Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Queries:     %d unique x %d variants x %d models\n", len(cfg.Queries), len(cfg.Variants), len(cfg.Models))
	fmt.Println()

	stats := runLoadTest(cfg)
	printReport(os.Stdout, stats, cfg.Duration)
	if stats.totalRequests.Load() == 0 {
		return fmt.Errorf("no requests completed, is the search service running?")
	}
	return nil
}

// searchURL builds the i-th request of the rotation over queries, variants
// and models.
func searchURL(cfg Config, i int) (string, string) {
	q := cfg.Queries[i%len(cfg.Queries)]
	variant := cfg.Variants[(i/len(cfg.Queries))%len(cfg.Variants)]
	model := cfg.Models[(i/(len(cfg.Queries)*len(cfg.Variants)))%len(cfg.Models)]

	v := url.Values{}
	v.Set("q", q.Text)
	v.Set("variant", variant)
	v.Set("model", model)
	v.Set("limit", strconv.Itoa(cfg.Limit))
	return cfg.BaseURL + "/api/v1/search?" + v.Encode(), model
}

func runLoadTest(cfg Config) *Stats {
	stats := NewStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	fmt.Print("Running")

	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			i := workerID
			for ctx.Err() == nil {
				target, model := searchURL(cfg, i)
				i += cfg.Concurrency

				req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
				if err != nil {
					stats.RecordRequest(model, 0, 0, false, err)
					continue
				}
				start := time.Now()
				resp, err := client.Do(req)
				duration := time.Since(start)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					stats.RecordRequest(model, duration, 0, false, err)
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				stats.RecordRequest(model, duration, resp.StatusCode, resp.Header.Get("X-Cache") == "HIT", nil)
			}
		}(w)
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	wg.Wait()
	fmt.Println(" done!")
	fmt.Println()
	return stats
}

func printReport(w io.Writer, stats *Stats, duration time.Duration) {
	total := stats.totalRequests.Load()
	success := stats.successCount.Load()
	failed := stats.errorCount.Load()

	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total Requests:  %d\n", total)
	fmt.Fprintf(w, "Successful:      %d\n", success)
	fmt.Fprintf(w, "Errors:          %d\n", failed)
	fmt.Fprintf(w, "Cache Hits:      %d\n", stats.cacheHits.Load())
	if total > 0 {
		fmt.Fprintf(w, "Error Rate:      %.2f%%\n", float64(failed)/float64(total)*100)
		fmt.Fprintf(w, "Requests/sec:    %.2f\n", float64(total)/duration.Seconds())
	}

	stats.mu.Lock()
	defer stats.mu.Unlock()

	models := make([]string, 0, len(stats.latencies))
	for model := range stats.latencies {
		models = append(models, model)
	}
	sort.Strings(models)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Latency (µs) ===")
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"model", "requests", "mean", "stddev", "p50", "p90", "p95", "p99", "max"})
	table.SetAutoFormatHeaders(false)
	for _, model := range models {
		table.Append(latencyRow(model, stats.latencies[model]))
	}
	table.Render()

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Status Codes ===")
	codes := make([]int, 0, len(stats.statusCodes))
	for code := range stats.statusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %d: %d\n", code, stats.statusCodes[code])
	}
}

func latencyRow(model string, samples []float64) []string {
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	mean, std := stat.MeanStdDev(sorted, nil)
	q := func(p float64) string {
		return strconv.FormatFloat(stat.Quantile(p, stat.Empirical, sorted, nil), 'f', 0, 64)
	}
	return []string{
		model,
		strconv.Itoa(len(sorted)),
		strconv.FormatFloat(mean, 'f', 0, 64),
		strconv.FormatFloat(std, 'f', 0, 64),
		q(0.50), q(0.90), q(0.95), q(0.99),
		strconv.FormatFloat(sorted[len(sorted)-1], 'f', 0, 64),
	}
}
