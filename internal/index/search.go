package index

import (
	"strings"
	"unicode"

	"github.com/RoaringBitmap/roaring"
)

// ParsedQuery is the intermediate representation of a user query after cleaning.
type ParsedQuery struct {
	Raw       string
	Words     []string
	HitLength int
}

// ParseQuery splits raw on whitespace and cleans every word the same way document tokens are
// cleaned. Duplicate words are collapsed; words that clean to nothing are dropped.
func ParseQuery(raw string) ParsedQuery {
	trimmed := strings.TrimSpace(raw)
	parsed := ParsedQuery{Raw: raw, HitLength: len(trimmed)}

	var cleaned []string
	for _, tok := range tokenizeQuery(trimmed) {
		if word, ok := CleanWord(tok); ok {
			cleaned = append(cleaned, word)
		}
	}
	parsed.Words = uniqueWords(cleaned)
	return parsed
}

// searcher evaluates a parsed query against the tries of an index.
type searcher struct {
	idx *Index
}

func newSearcher(idx *Index) *searcher {
	return &searcher{idx: idx}
}

// execute unions the posting lists of every query word per document. A multi-word query
// matches any of its words, not the phrase.
func (s *searcher) execute(parsed ParsedQuery) *Cursor {
	ids := s.idx.registry.IDs()
	cursor := newCursor(s.idx.registry)

	for _, id := range ids {
		t := s.idx.tries[id]
		if t == nil || len(parsed.Words) == 0 {
			cursor.add(id, nil)
			continue
		}

		matched := roaring.New()
		for _, word := range parsed.Words {
			positions, ok := t.FindExact(word)
			if !ok {
				continue
			}
			for _, pos := range positions {
				matched.AddInt(pos)
			}
		}
		if matched.IsEmpty() {
			cursor.add(id, nil)
			continue
		}

		hits := make([]Hit, 0, matched.GetCardinality())
		it := matched.Iterator()
		for it.HasNext() {
			hits = append(hits, Hit{Position: int(it.Next()), Length: parsed.HitLength})
		}
		cursor.add(id, hits)
	}

	s.idx.logger.Debug("query executed", "query", parsed.Raw, "words", len(parsed.Words), "visited", cursor.Visited(), "matched", cursor.Matched())
	return cursor
}

func tokenizeQuery(input string) []string {
	return strings.FieldsFunc(input, unicode.IsSpace)
}

func uniqueWords(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
