package index

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"triesearch/internal/trie"
)

// DefaultMinAutocompleteLength is the shortest prefix autocomplete will answer.
const DefaultMinAutocompleteLength = 3

// Options tunes an Index.
type Options struct {
	MinAutocompleteLength int
	Logger                *slog.Logger
}

// DocumentStats describes what AddDocument kept from a token stream.
type DocumentStats struct {
	Tokens   int
	Words    int
	Dropped  int
	Replaced bool
}

// IndexStats exposes the size of the index for telemetry and the stats endpoint.
type IndexStats struct {
	Documents int `json:"documents"`
	Words     int `json:"words"`
	Nodes     int `json:"nodes"`
}

// Index owns one trie per document plus the registry holding each document's words.
// It is not safe for concurrent use; callers serialise access.
type Index struct {
	opts     Options
	registry *Registry
	tries    map[string]*trie.Trie
	logger   *slog.Logger
}

// New creates an empty index.
func New(opts Options) *Index {
	if opts.MinAutocompleteLength <= 0 {
		opts.MinAutocompleteLength = DefaultMinAutocompleteLength
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Index{
		opts:     opts,
		registry: NewRegistry(),
		tries:    make(map[string]*trie.Trie),
		logger:   logger,
	}
}

// AddDocument cleans tokens and indexes the survivors under docID. Tokens that clean to nothing
// are dropped and do not consume a position. Re-adding an identifier replaces the old document.
func (idx *Index) AddDocument(docID string, tokens []string) (DocumentStats, error) {
	if err := validateID(docID); err != nil {
		return DocumentStats{}, err
	}

	stats := DocumentStats{Tokens: len(tokens)}
	words := make([]string, 0, len(tokens))
	t := trie.New()

	for _, token := range tokens {
		word, ok := CleanWord(token)
		if !ok {
			stats.Dropped++
			continue
		}
		if err := t.Insert(word, len(words)); err != nil {
			// CleanWord only leaves letters, so this is unreachable in practice.
			stats.Dropped++
			continue
		}
		words = append(words, word)
	}
	stats.Words = len(words)

	replaced, err := idx.registry.Put(Document{ID: docID, Words: words})
	if err != nil {
		return DocumentStats{}, fmt.Errorf("register %s: %w", docID, err)
	}
	if old, ok := idx.tries[docID]; ok {
		freed := old.Release()
		idx.logger.Debug("replaced document", "doc", docID, "nodes_released", freed)
	}
	idx.tries[docID] = t
	stats.Replaced = replaced

	idx.logger.Debug("indexed document", "doc", docID, "tokens", stats.Tokens, "words", stats.Words, "nodes", t.Nodes())
	return stats, nil
}

// Find runs query against every document and returns a cursor over the matches.
func (idx *Index) Find(query string) *Cursor {
	parsed := ParseQuery(query)
	return newSearcher(idx).execute(parsed)
}

// Autocomplete returns the alphabetically first completion of prefix.
func (idx *Index) Autocomplete(prefix string) (string, bool) {
	return idx.Suggest(prefix).Next()
}

// Suggest collects the completions of prefix from the first document that has any.
func (idx *Index) Suggest(prefix string) *Suggestions {
	prefix = strings.TrimSpace(prefix)
	if len(prefix) < idx.opts.MinAutocompleteLength {
		return &Suggestions{}
	}

	for _, id := range idx.registry.IDs() {
		t := idx.tries[id]
		if t == nil {
			continue
		}
		candidates, ok := t.FindPrefixChildren(prefix)
		if !ok {
			continue
		}
		sort.Slice(candidates, func(i, j int) bool {
			a, b := strings.ToLower(candidates[i]), strings.ToLower(candidates[j])
			if a == b {
				return candidates[i] < candidates[j]
			}
			return a < b
		})
		return &Suggestions{DocumentID: id, candidates: candidates}
	}
	return &Suggestions{}
}

// Documents returns the document identifiers in index order.
func (idx *Index) Documents() []string {
	return idx.registry.IDs()
}

// Document returns the cleaned words of one document.
func (idx *Index) Document(id string) ([]string, bool) {
	doc, ok := idx.registry.Get(id)
	if !ok {
		return nil, false
	}
	return doc.Words, true
}

// Len reports the number of indexed documents.
func (idx *Index) Len() int {
	return idx.registry.Len()
}

// Stats sums trie sizes across all documents.
func (idx *Index) Stats() IndexStats {
	stats := IndexStats{Documents: idx.registry.Len()}
	for _, t := range idx.tries {
		stats.Words += t.Words()
		stats.Nodes += t.Nodes()
	}
	return stats
}

// Close releases every trie and forgets all documents. It returns the number of trie nodes freed;
// a second call frees nothing.
func (idx *Index) Close() int {
	freed := 0
	for id, t := range idx.tries {
		freed += t.Release()
		delete(idx.tries, id)
	}
	idx.registry.Reset()
	idx.logger.Debug("index closed", "nodes_released", freed)
	return freed
}

// Suggestions is the transient candidate pool of one autocomplete request.
type Suggestions struct {
	DocumentID string
	candidates []string
}

// Next pops the alphabetically first remaining candidate.
func (s *Suggestions) Next() (string, bool) {
	if s == nil || len(s.candidates) == 0 {
		return "", false
	}
	head := s.candidates[0]
	s.candidates = s.candidates[1:]
	return head, true
}

// Remaining reports how many candidates have not been handed out yet.
func (s *Suggestions) Remaining() int {
	if s == nil {
		return 0
	}
	return len(s.candidates)
}
