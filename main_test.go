package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triesearch/internal/config"
	"triesearch/internal/index"
	"triesearch/internal/telemetry"
)

func newTestIndex(t *testing.T) *index.Index {
	t.Helper()
	idx := index.New(index.Options{})
	t.Cleanup(func() { idx.Close() })

	tokenizer := index.WhitespaceTokenizer{}
	_, err := idx.AddDocument("hamlet.txt", tokenizer.Tokenize("To be, or not to be"))
	require.NoError(t, err)
	_, err = idx.AddDocument("tools.txt", tokenizer.Tokenize("hamlet swung the hammer"))
	require.NoError(t, err)
	return idx
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	tel := telemetry.New(context.Background(), nil, false)
	return newAPIServer(newTestIndex(t), tel, nil, 4).routes(false)
}

func get(t *testing.T, handler http.Handler, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var body map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestBuildSnippetWindow(t *testing.T) {
	words := strings.Fields("a b c d e f g h i j")

	cases := []struct {
		name   string
		hits   []index.Hit
		window int
		want   string
	}{
		{"middle", []index.Hit{{Position: 5, Length: 1}}, 4, "... d e <em>f</em> g ..."},
		{"start", []index.Hit{{Position: 0, Length: 1}}, 3, "<em>a</em> b c ..."},
		{"end", []index.Hit{{Position: 9, Length: 1}}, 4, "... g h i <em>j</em>"},
		{"whole document", []index.Hit{{Position: 1, Length: 1}, {Position: 3, Length: 1}}, 0, "a <em>b</em> c <em>d</em> e f g h i j"},
		{"no hits", nil, 4, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, buildSnippet(words, tc.hits, tc.window, emphasize))
		})
	}
}

func TestCollectResultsDrainsCursor(t *testing.T) {
	idx := newTestIndex(t)

	summary := collectResults(idx.Find("to"), 0, emphasize)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, 2, summary.Visited)
	assert.Equal(t, 2, summary.TotalHits)

	result := summary.Results[0]
	assert.Equal(t, "hamlet.txt", result.ID)
	assert.Equal(t, 6, result.Words)
	assert.Equal(t, []index.Hit{{Position: 0, Length: 2}, {Position: 4, Length: 2}}, result.Hits)
	assert.Equal(t, "<em>To</em> be or not <em>to</em> be", result.Snippet)
}

func TestSearchEndpoint(t *testing.T) {
	handler := newTestServer(t)

	rec, body := get(t, handler, "/v1/search?q=hamlet+be")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.EqualValues(t, 2, body["visited"])
	assert.EqualValues(t, 2, body["matched"])
	assert.EqualValues(t, 3, body["totalHits"])

	results, ok := body["results"].([]any)
	require.True(t, ok)
	first := results[0].(map[string]any)
	assert.Equal(t, "hamlet.txt", first["id"])

	rec, body = get(t, handler, "/v1/search?q=%20")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "q parameter is required", body["error"])

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/search?q=be", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSearchEndpointKeepsRequestID(t *testing.T) {
	handler := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}

func TestAutocompleteEndpoint(t *testing.T) {
	handler := newTestServer(t)

	_, body := get(t, handler, "/v1/autocomplete?prefix=ham")
	assert.Equal(t, true, body["found"])
	assert.Equal(t, "hamlet", body["completion"])
	assert.Equal(t, "tools.txt", body["document"])
	assert.Equal(t, []any{"hamlet", "hammer"}, body["candidates"], "candidates are alphabetical")

	_, body = get(t, handler, "/v1/autocomplete?prefix=ha")
	assert.Equal(t, false, body["found"], "prefixes shorter than the minimum never complete")
	assert.Equal(t, "", body["completion"])
}

func TestDocumentsAndStatsEndpoints(t *testing.T) {
	handler := newTestServer(t)

	_, body := get(t, handler, "/v1/documents")
	docs, ok := body["documents"].([]any)
	require.True(t, ok)
	require.Len(t, docs, 2)
	assert.Equal(t, "hamlet.txt", docs[0].(map[string]any)["id"])
	assert.EqualValues(t, 4, docs[1].(map[string]any)["words"])

	_, body = get(t, handler, "/v1/stats")
	stats, ok := body["index"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 2, stats["documents"])

	rec, body := get(t, handler, "/v1/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["enabled"])
}

func TestPromptCommands(t *testing.T) {
	var out bytes.Buffer
	p := &prompt{
		idx:       newTestIndex(t),
		telemetry: telemetry.New(context.Background(), nil, false),
		out:       &out,
		window:    0,
	}
	ctx := context.Background()

	assert.False(t, p.handle(ctx, "hammer"))
	assert.Contains(t, out.String(), "tools.txt (1 hits)")
	assert.Contains(t, out.String(), terminalHighlight("hammer"))
	assert.Contains(t, out.String(), "1 hits in 1 of 2 documents")

	out.Reset()
	assert.False(t, p.handle(ctx, "/complete ham"))
	assert.Equal(t, "hamlet (also: hammer) [tools.txt]\n", out.String())

	out.Reset()
	assert.False(t, p.handle(ctx, "/complete zz"))
	assert.Contains(t, out.String(), `no completion for "zz"`)

	out.Reset()
	assert.False(t, p.handle(ctx, "missing"))
	assert.Contains(t, out.String(), `no matches for "missing" (2 documents searched)`)

	out.Reset()
	assert.False(t, p.handle(ctx, "/stats"))
	assert.Contains(t, out.String(), "2 documents")

	assert.False(t, p.handle(ctx, "   "))
	assert.True(t, p.handle(ctx, "/quit"))
}

func TestBuildIndexFromCorpus(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), []byte("the cat sat"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("a dog; a cat!"), 0o644))

	cfg := config.DefaultConfig()
	cfg.Corpus.Root = root
	tel := telemetry.New(context.Background(), nil, false)

	idx, err := buildIndex(context.Background(), cfg, tel, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer idx.Close()

	assert.Equal(t, []string{"a.txt", "b.txt"}, idx.Documents())
	words, ok := idx.Document("a.txt")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "dog", "a", "cat"}, words)

	summary := collectResults(idx.Find("cat"), 0, nil)
	assert.Equal(t, 2, summary.TotalHits)
}

func TestRunPromptSession(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "play.txt"), []byte("Hamlet, prince of Denmark"), 0o644))

	previous := slog.Default()
	defer slog.SetDefault(previous)

	var out, logs bytes.Buffer
	code := run([]string{root}, strings.NewReader("prince\n/complete Den\n/quit\n"), &out, &logs)

	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "play.txt (1 hits)")
	assert.Contains(t, out.String(), "Denmark [play.txt]")
	assert.NotContains(t, out.String(), `"msg"`, "log records stay off the prompt stream")
	assert.Contains(t, logs.String(), `"msg":"index built"`)
	assert.Contains(t, logs.String(), `"msg":"index released"`)
}

func TestRunRejectsInvalidRoot(t *testing.T) {
	previous := slog.Default()
	defer slog.SetDefault(previous)

	var out, logs bytes.Buffer
	code := run([]string{filepath.Join(t.TempDir(), "missing")}, strings.NewReader(""), &out, &logs)
	assert.Equal(t, 1, code)
	assert.Contains(t, logs.String(), "failed to build index")
}
