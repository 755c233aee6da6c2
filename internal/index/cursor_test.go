package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorSingleDocumentScenario(t *testing.T) {
	idx := buildIndex(t, Document{ID: "doc1", Words: []string{"the", "cat", "sat"}})

	cursor := idx.Find("cat")
	assert.Equal(t, BeforeFirstDocument, cursor.State())

	content, ok := cursor.AdvanceDocument()
	require.True(t, ok)
	assert.Equal(t, []string{"the", "cat", "sat"}, content)
	assert.Equal(t, 3, cursor.ContentLength())
	assert.Equal(t, "doc1", cursor.DocumentID())
	assert.Equal(t, OnDocument, cursor.State())

	hit, ok := cursor.NextHit()
	require.True(t, ok)
	assert.Equal(t, Hit{Position: 1, Length: 3}, hit)

	_, ok = cursor.NextHit()
	assert.False(t, ok, "second hit must report no more hits")

	_, ok = cursor.AdvanceDocument()
	assert.False(t, ok, "second advance must report no more documents")
	assert.Equal(t, Exhausted, cursor.State())
}

func TestCursorOnEmptyIndex(t *testing.T) {
	idx := New(Options{})
	cursor := idx.Find("anything")

	_, ok := cursor.NextHit()
	assert.False(t, ok, "next hit before the first document is a defined miss")
	assert.Equal(t, 0, cursor.ContentLength())

	_, ok = cursor.AdvanceDocument()
	assert.False(t, ok)
	assert.Equal(t, Exhausted, cursor.State())

	_, ok = cursor.NextHit()
	assert.False(t, ok)
	_, ok = cursor.AdvanceDocument()
	assert.False(t, ok, "exhaustion is sticky")
}

func TestCursorNeverCrossesDocuments(t *testing.T) {
	idx := buildIndex(t,
		Document{ID: "a", Words: []string{"fox", "fox"}},
		Document{ID: "b", Words: []string{"dog", "fox", "dog", "fox", "fox"}},
	)

	cursor := idx.Find("fox")

	_, ok := cursor.AdvanceDocument()
	require.True(t, ok)
	assert.Equal(t, 2, cursor.ContentLength())
	assert.Len(t, collectHits(cursor), 2)
	_, ok = cursor.NextHit()
	assert.False(t, ok, "hits of the next document stay hidden until it is advanced to")
	assert.Equal(t, "a", cursor.DocumentID())

	_, ok = cursor.AdvanceDocument()
	require.True(t, ok)
	assert.Equal(t, 5, cursor.ContentLength())

	hits := collectHits(cursor)
	positions := make([]int, 0, len(hits))
	for _, h := range hits {
		positions = append(positions, h.Position)
	}
	assert.Equal(t, []int{1, 3, 4}, positions)
}

func TestCursorSkipsHitsWhenDocumentIsAbandoned(t *testing.T) {
	idx := buildIndex(t,
		Document{ID: "a", Words: []string{"owl", "owl", "owl"}},
		Document{ID: "b", Words: []string{"owl"}},
	)

	cursor := idx.Find("owl")
	_, ok := cursor.AdvanceDocument()
	require.True(t, ok)
	_, _ = cursor.NextHit()

	// moving on resets the inner cursor to the start of the new document
	_, ok = cursor.AdvanceDocument()
	require.True(t, ok)
	hit, ok := cursor.NextHit()
	require.True(t, ok)
	assert.Equal(t, 0, hit.Position)
	assert.Equal(t, "b", cursor.DocumentID())
}

func TestCursorStateString(t *testing.T) {
	assert.Equal(t, "before_first_document", BeforeFirstDocument.String())
	assert.Equal(t, "on_document", OnDocument.String())
	assert.Equal(t, "exhausted", Exhausted.String())
	assert.Equal(t, "unknown", CursorState(42).String())
}
