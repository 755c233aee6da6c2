package index

// Hit is one match inside a document: the word position and the highlighted length.
type Hit struct {
	Position int `json:"position"`
	Length   int `json:"length"`
}

// CursorState describes where a Cursor sits in its document walk.
type CursorState int

const (
	BeforeFirstDocument CursorState = iota
	OnDocument
	Exhausted
)

func (s CursorState) String() string {
	switch s {
	case BeforeFirstDocument:
		return "before_first_document"
	case OnDocument:
		return "on_document"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Cursor walks the result of one query: every visited document in index order, then the sorted
// hits of the current document. Documents without hits are still walked, with no hits to read.
// It borrows the index's registry and must not outlive it.
type Cursor struct {
	registry *Registry
	docs     []string
	hits     map[string][]Hit
	matched  int

	docPos  int
	hitPos  int
	current string
	content []string
	state   CursorState
}

func newCursor(registry *Registry) *Cursor {
	return &Cursor{
		registry: registry,
		hits:     make(map[string][]Hit),
		docPos:   -1,
	}
}

func (c *Cursor) add(docID string, hits []Hit) {
	c.docs = append(c.docs, docID)
	if len(hits) > 0 {
		c.hits[docID] = hits
		c.matched++
	}
}

// AdvanceDocument moves to the next visited document and returns its words. It returns false
// once every document has been handed out.
func (c *Cursor) AdvanceDocument() ([]string, bool) {
	if c.state == Exhausted {
		return nil, false
	}

	for c.docPos+1 < len(c.docs) {
		c.docPos++
		id := c.docs[c.docPos]
		doc, ok := c.registry.Get(id)
		if !ok {
			// document vanished from the index after the query ran
			continue
		}
		c.current = id
		c.content = doc.Words
		c.hitPos = 0
		c.state = OnDocument
		return doc.Words, true
	}

	c.current = ""
	c.content = nil
	c.hitPos = 0
	c.state = Exhausted
	return nil, false
}

// ContentLength reports the word count of the current document, or 0 when not on a document.
func (c *Cursor) ContentLength() int {
	if c.state != OnDocument {
		return 0
	}
	return len(c.content)
}

// NextHit returns the next hit of the current document. It never moves to another document.
func (c *Cursor) NextHit() (Hit, bool) {
	if c.state != OnDocument {
		return Hit{}, false
	}
	hits := c.hits[c.current]
	if c.hitPos >= len(hits) {
		return Hit{}, false
	}
	hit := hits[c.hitPos]
	c.hitPos++
	return hit, true
}

// DocumentID returns the identifier of the current document.
func (c *Cursor) DocumentID() string {
	return c.current
}

// State reports the cursor's position in its walk.
func (c *Cursor) State() CursorState {
	return c.state
}

// Matched reports how many documents had at least one hit.
func (c *Cursor) Matched() int {
	return c.matched
}

// Visited reports how many documents the query was evaluated against.
func (c *Cursor) Visited() int {
	return len(c.docs)
}

// TotalHits sums hits over every matching document.
func (c *Cursor) TotalHits() int {
	total := 0
	for _, hits := range c.hits {
		total += len(hits)
	}
	return total
}
