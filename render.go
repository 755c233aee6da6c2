package main

import (
	"fmt"
	"io"
	"strings"

	"triesearch/internal/index"
)

const (
	ansiHighlight = "\x1b[1;33m"
	ansiReset     = "\x1b[0m"
)

type documentResult struct {
	ID      string      `json:"id"`
	Words   int         `json:"words"`
	Hits    []index.Hit `json:"hits"`
	Snippet string      `json:"snippet"`
}

type searchSummary struct {
	Results   []documentResult
	Visited   int
	TotalHits int
}

// collectResults drains cursor and renders one snippet per document with hits, applying mark to
// every hit. Documents without hits only count towards Visited.
func collectResults(cursor *index.Cursor, window int, mark func(string) string) searchSummary {
	summary := searchSummary{Results: []documentResult{}}
	for {
		content, ok := cursor.AdvanceDocument()
		if !ok {
			break
		}

		result := documentResult{ID: cursor.DocumentID(), Words: cursor.ContentLength(), Hits: []index.Hit{}}
		for {
			hit, ok := cursor.NextHit()
			if !ok {
				break
			}
			result.Hits = append(result.Hits, hit)
		}
		if len(result.Hits) == 0 {
			continue
		}
		result.Snippet = buildSnippet(content, result.Hits, window, mark)
		summary.TotalHits += len(result.Hits)
		summary.Results = append(summary.Results, result)
	}
	summary.Visited = cursor.Visited()
	return summary
}

// buildSnippet renders a window of words around the first hit. window <= 0 renders every word.
func buildSnippet(words []string, hits []index.Hit, window int, mark func(string) string) string {
	if len(words) == 0 || len(hits) == 0 {
		return ""
	}

	marked := make(map[int]struct{}, len(hits))
	for _, h := range hits {
		marked[h.Position] = struct{}{}
	}

	start, end := 0, len(words)
	if window > 0 {
		first := hits[0].Position
		start = first - window/2
		if start < 0 {
			start = 0
		}
		end = start + window
		if end > len(words) {
			end = len(words)
			start = max(0, end-window)
		}
	}

	snippet := make([]string, 0, end-start+2)
	if start > 0 {
		snippet = append(snippet, "...")
	}
	for i := start; i < end; i++ {
		if _, ok := marked[i]; ok && mark != nil {
			snippet = append(snippet, mark(words[i]))
			continue
		}
		snippet = append(snippet, words[i])
	}
	if end < len(words) {
		snippet = append(snippet, "...")
	}
	return strings.Join(snippet, " ")
}

func emphasize(word string) string {
	return "<em>" + word + "</em>"
}

func terminalHighlight(word string) string {
	return ansiHighlight + word + ansiReset
}

func printResults(w io.Writer, query string, summary searchSummary) {
	if len(summary.Results) == 0 {
		fmt.Fprintf(w, "no matches for %q (%d documents searched)\n", query, summary.Visited)
		return
	}
	for _, r := range summary.Results {
		fmt.Fprintf(w, "%s (%d hits)\n  %s\n", r.ID, len(r.Hits), r.Snippet)
	}
	fmt.Fprintf(w, "%d hits in %d of %d documents\n", summary.TotalHits, len(summary.Results), summary.Visited)
}
