package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"triesearch/internal/config"
	"triesearch/internal/corpus"
	"triesearch/internal/index"
	"triesearch/internal/logging"
	"triesearch/internal/telemetry"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run drives one process lifetime. Logs go to stdout when serving HTTP and to stderr while the
// prompt owns stdout.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("triesearch", flag.ContinueOnError)
	configPath := flags.String("config", "", "Path to a TOML or YAML config file")
	listen := flags.String("listen", "", "Serve the HTTP API on this address (e.g. :8080) instead of the prompt")
	tokenizer := flags.String("tokenizer", "", "Tokenizer used for corpus files (standard or whitespace)")
	flags.Usage = func() {
		fmt.Fprintf(flags.Output(), "Usage: triesearch [flags] <root-dir>\n")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return 2
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			slog.Error("failed to load config", "error", err)
			return 1
		}
		cfg = loaded
	}

	if envRoot := os.Getenv("TRIESEARCH_ROOT"); envRoot != "" {
		cfg.Corpus.Root = envRoot
	}
	if *listen != "" {
		cfg.Server.Listen = *listen
	}
	if *tokenizer != "" {
		cfg.Corpus.Tokenizer = *tokenizer
	}
	if flags.NArg() > 0 {
		cfg.Corpus.Root = flags.Arg(0)
	}

	logOut := stdout
	if cfg.Server.Listen == "" {
		logOut = stderr
	}
	logger := logging.Setup(logOut, cfg.Logging.Level, cfg.Logging.Format)
	if cfg.Corpus.Root == "" {
		flags.Usage()
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel := telemetry.New(ctx, logger, cfg.MetricsEnabled())
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	idx, err := buildIndex(ctx, cfg, tel, logger)
	if err != nil {
		logger.Error("failed to build index", "root", cfg.Corpus.Root, "error", err)
		return 1
	}
	defer func() {
		freed := idx.Close()
		logger.Info("index released", "nodes", freed)
	}()

	if cfg.Server.Listen != "" {
		err = serve(ctx, cfg, idx, tel, logger)
	} else {
		p := &prompt{idx: idx, telemetry: tel, logger: logger, out: stdout, window: cfg.Index.SnippetWords}
		err = p.run(ctx, stdin)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("stopped with error", "error", err)
		return 1
	}
	return 0
}

// buildIndex loads the corpus and feeds every file into a fresh index in file order.
func buildIndex(ctx context.Context, cfg config.AppConfig, tel *telemetry.Telemetry, logger *slog.Logger) (*index.Index, error) {
	start := time.Now()
	files, err := corpus.Load(ctx, cfg.Corpus.Root, index.TokenizerFor(cfg.Corpus.Tokenizer), corpus.Options{
		Extensions: cfg.Corpus.Extensions,
		Workers:    cfg.Corpus.Workers,
		Logger:     logging.WithComponent(logger, "corpus"),
	})
	if err != nil {
		return nil, err
	}
	loaded := time.Since(start)

	idx := index.New(index.Options{
		MinAutocompleteLength: cfg.Index.MinAutocompleteLength,
		Logger:                logging.WithComponent(logger, "index"),
	})

	words := 0
	for _, f := range files {
		stats, err := idx.AddDocument(f.ID, f.Tokens)
		if err != nil {
			idx.Close()
			return nil, fmt.Errorf("index %s: %w", f.ID, err)
		}
		words += stats.Words
	}

	elapsed := time.Since(start)
	summary := idx.Stats()
	tel.RecordIndexing(ctx, summary.Documents, words, elapsed)
	tel.ObserveIndex(summary.Documents, summary.Nodes)
	logger.Info("index built",
		"root", cfg.Corpus.Root,
		"documents", summary.Documents,
		"words", words,
		"nodes", summary.Nodes,
		"load_ms", loaded.Milliseconds(),
		"duration_ms", elapsed.Milliseconds(),
	)
	return idx, nil
}

func serve(ctx context.Context, cfg config.AppConfig, idx *index.Index, tel *telemetry.Telemetry, logger *slog.Logger) error {
	server := newAPIServer(idx, tel, logger, cfg.Index.SnippetWords)
	httpServer := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           server.routes(cfg.RequestLogsEnabled()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("triesearch API listening", "listen", cfg.Server.Listen, "documents", idx.Len())
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func withJSONHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = logging.NewRequestID()
		}
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), requestID)))
	})
}

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func withTelemetry(next http.Handler, tel *telemetry.Telemetry, logger *slog.Logger, logRequests bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(recorder, r)
		duration := time.Since(start)

		tel.RecordRequest(r.Context(), r.Method, r.URL.Path, recorder.status, duration)
		if logRequests && logger != nil {
			logging.FromContext(r.Context(), logger).Info("request completed", "method", r.Method, "path", r.URL.Path, "status", recorder.status, "duration_ms", duration.Milliseconds())
		}
	})
}

// apiServer exposes one read-only index. Queries hold the read lock while their cursor is drained.
type apiServer struct {
	idx          *index.Index
	telemetry    *telemetry.Telemetry
	logger       *slog.Logger
	snippetWords int
	started      time.Time
	mu           sync.RWMutex
}

func newAPIServer(idx *index.Index, tel *telemetry.Telemetry, logger *slog.Logger, snippetWords int) *apiServer {
	return &apiServer{
		idx:          idx,
		telemetry:    tel,
		logger:       logger,
		snippetWords: snippetWords,
		started:      time.Now(),
	}
}

func (s *apiServer) routes(logRequests bool) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/search", s.handleSearch)
	mux.HandleFunc("/v1/autocomplete", s.handleAutocomplete)
	mux.HandleFunc("/v1/documents", s.handleDocuments)
	mux.HandleFunc("/v1/stats", s.handleStats)
	mux.HandleFunc("/v1/health", s.handleHealth)
	mux.Handle("/v1/metrics", s.telemetry.Handler())

	handler := withJSONHeaders(mux)
	handler = withTelemetry(handler, s.telemetry, s.logger, logRequests)
	return withRequestID(handler)
}

func (s *apiServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		respondError(w, http.StatusBadRequest, "q parameter is required", start)
		return
	}

	parsed := index.ParseQuery(query)
	s.mu.RLock()
	summary := collectResults(s.idx.Find(query), s.snippetWords, emphasize)
	s.mu.RUnlock()

	duration := time.Since(start)
	s.telemetry.RecordSearch(r.Context(), len(parsed.Words), len(summary.Results), summary.TotalHits, duration)

	respond(w, http.StatusOK, map[string]any{
		"query":     query,
		"words":     parsed.Words,
		"visited":   summary.Visited,
		"matched":   len(summary.Results),
		"totalHits": summary.TotalHits,
		"results":   summary.Results,
		"timingMs":  duration.Milliseconds(),
	})

	logging.FromContext(r.Context(), s.logger).Info("search completed", "query", query, "documents", len(summary.Results), "hits", summary.TotalHits, "duration_ms", duration.Milliseconds())
}

func (s *apiServer) handleAutocomplete(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	prefix := r.URL.Query().Get("prefix")
	s.mu.RLock()
	suggestions := s.idx.Suggest(prefix)
	s.mu.RUnlock()

	candidates := make([]string, 0, suggestions.Remaining())
	for {
		word, ok := suggestions.Next()
		if !ok {
			break
		}
		candidates = append(candidates, word)
	}

	found := len(candidates) > 0
	s.telemetry.RecordAutocomplete(r.Context(), found)

	payload := map[string]any{
		"prefix":     prefix,
		"found":      found,
		"candidates": candidates,
		"document":   suggestions.DocumentID,
		"completion": "",
		"timingMs":   time.Since(start).Milliseconds(),
	}
	if found {
		payload["completion"] = candidates[0]
	}
	respond(w, http.StatusOK, payload)
}

func (s *apiServer) handleDocuments(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	type documentSummary struct {
		ID    string `json:"id"`
		Words int    `json:"words"`
	}

	s.mu.RLock()
	ids := s.idx.Documents()
	docs := make([]documentSummary, 0, len(ids))
	for _, id := range ids {
		words, _ := s.idx.Document(id)
		docs = append(docs, documentSummary{ID: id, Words: len(words)})
	}
	s.mu.RUnlock()

	respond(w, http.StatusOK, map[string]any{"documents": docs, "timingMs": time.Since(start).Milliseconds()})
}

func (s *apiServer) handleStats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	stats := s.idx.Stats()
	s.mu.RUnlock()
	queries, completions := s.telemetry.Counts()

	respond(w, http.StatusOK, map[string]any{
		"index":       stats,
		"queries":     queries,
		"completions": completions,
		"uptimeMs":    time.Since(s.started).Milliseconds(),
		"timingMs":    time.Since(start).Milliseconds(),
	})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	respond(w, http.StatusOK, map[string]any{"status": "ok", "timingMs": time.Since(start).Milliseconds()})
}

func respond(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string, start time.Time) {
	respond(w, status, map[string]any{"error": message, "timingMs": time.Since(start).Milliseconds()})
}

// prompt is the interactive line interface: plain lines are queries, slash commands do the rest.
type prompt struct {
	idx       *index.Index
	telemetry *telemetry.Telemetry
	logger    *slog.Logger
	out       io.Writer
	window    int
}

func (p *prompt) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(p.out, "> ")
		select {
		case <-ctx.Done():
			fmt.Fprintln(p.out)
			return ctx.Err()
		case err := <-readErr:
			fmt.Fprintln(p.out)
			return err
		case line := <-lines:
			if quit := p.handle(ctx, line); quit {
				return nil
			}
		}
	}
}

// handle executes one prompt line and reports whether the prompt should exit.
func (p *prompt) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	ctx = logging.WithRequestID(ctx, logging.NewRequestID())
	logger := logging.FromContext(ctx, p.logger)
	start := time.Now()

	command, arg, _ := strings.Cut(line, " ")
	switch command {
	case "/quit", "/exit":
		return true
	case "/stats":
		stats := p.idx.Stats()
		fmt.Fprintf(p.out, "%d documents, %d distinct words, %d trie nodes\n", stats.Documents, stats.Words, stats.Nodes)
	case "/complete":
		suggestions := p.idx.Suggest(arg)
		first, ok := suggestions.Next()
		p.telemetry.RecordAutocomplete(ctx, ok)
		if !ok {
			fmt.Fprintf(p.out, "no completion for %q\n", strings.TrimSpace(arg))
			break
		}
		others := make([]string, 0, suggestions.Remaining())
		for {
			word, more := suggestions.Next()
			if !more {
				break
			}
			others = append(others, word)
		}
		fmt.Fprintf(p.out, "%s", first)
		if len(others) > 0 {
			fmt.Fprintf(p.out, " (also: %s)", strings.Join(others, ", "))
		}
		fmt.Fprintf(p.out, " [%s]\n", suggestions.DocumentID)
		logger.Debug("autocomplete", "prefix", arg, "completion", first, "document", suggestions.DocumentID)
	default:
		if strings.HasPrefix(command, "/") {
			fmt.Fprintf(p.out, "unknown command %s (try /complete, /stats, /quit)\n", command)
			break
		}
		parsed := index.ParseQuery(line)
		summary := collectResults(p.idx.Find(line), p.window, terminalHighlight)
		duration := time.Since(start)
		p.telemetry.RecordSearch(ctx, len(parsed.Words), len(summary.Results), summary.TotalHits, duration)
		printResults(p.out, line, summary)
		logger.Debug("query executed", "query", line, "documents", len(summary.Results), "hits", summary.TotalHits, "duration_us", duration.Microseconds())
	}
	return false
}
