package index

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidDocumentID is returned when a document is registered without a usable identifier.
var ErrInvalidDocumentID = errors.New("invalid document id")

// Document is the cleaned content of one ingested file. Words[p] is the word at position p.
type Document struct {
	ID    string
	Words []string
}

// Registry keeps documents in ingestion order and serves their content by identifier.
type Registry struct {
	order []string
	docs  map[string]*Document
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{docs: make(map[string]*Document)}
}

// Put stores doc. A previously seen identifier is replaced in place and keeps its order slot.
func (r *Registry) Put(doc Document) (bool, error) {
	if err := validateID(doc.ID); err != nil {
		return false, err
	}

	stored := &Document{ID: doc.ID, Words: append([]string(nil), doc.Words...)}
	if _, exists := r.docs[doc.ID]; exists {
		r.docs[doc.ID] = stored
		return true, nil
	}

	r.docs[doc.ID] = stored
	r.order = append(r.order, doc.ID)
	return false, nil
}

// Get returns the stored document for id.
func (r *Registry) Get(id string) (Document, bool) {
	doc, ok := r.docs[id]
	if !ok {
		return Document{}, false
	}
	return *doc, true
}

// IDs returns document identifiers in ingestion order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

// Len reports the number of registered documents.
func (r *Registry) Len() int {
	return len(r.order)
}

// Reset forgets every document.
func (r *Registry) Reset() {
	r.order = nil
	r.docs = make(map[string]*Document)
}

func validateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: identifier is empty", ErrInvalidDocumentID)
	}
	return nil
}
