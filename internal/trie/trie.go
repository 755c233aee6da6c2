package trie

import (
	"errors"
	"sort"
)

// radix is the branching factor of every node: one child per lowercase ASCII letter.
const radix = 26

// ErrInvalidWord is returned by Insert when the word is empty or contains non-alphabetic bytes.
var ErrInvalidWord = errors.New("word must contain only ascii letters")

// node is a single arena slot. Children hold arena indexes; 0 means absent because the root
// always occupies slot 0 and is never anybody's child.
type node struct {
	key      string
	postings []int
	terminal bool
	children [radix]int32
}

// Trie is a per-document prefix tree mapping words to the positions where they occur.
// Nodes live in a single arena so teardown is a bulk release rather than a tree walk.
type Trie struct {
	nodes []node
	words int
}

// New creates an empty trie holding only the root node.
func New() *Trie {
	return &Trie{nodes: make([]node, 1, 64)}
}

// Insert records position as an occurrence of word. Matching is case-insensitive; the key
// keeps the casing of the most recent insert.
func (t *Trie) Insert(word string, position int) error {
	if !validWord(word) {
		return ErrInvalidWord
	}
	if len(t.nodes) == 0 {
		// released tries are reusable
		t.nodes = make([]node, 1, 64)
	}

	cur := int32(0)
	for i := 0; i < len(word); i++ {
		slot := branch(word[i])
		next := t.nodes[cur].children[slot]
		if next == 0 {
			t.nodes = append(t.nodes, node{})
			next = int32(len(t.nodes) - 1)
			t.nodes[cur].children[slot] = next
		}
		cur = next
	}

	n := &t.nodes[cur]
	if !n.terminal {
		t.words++
	}
	n.key = word
	n.terminal = true
	n.postings = append(n.postings, position)
	return nil
}

// FindExact returns the sorted positions stored for word, or false when the word was never inserted.
func (t *Trie) FindExact(word string) ([]int, bool) {
	idx, ok := t.walk(word)
	if !ok || !t.nodes[idx].terminal {
		return nil, false
	}

	positions := append([]int(nil), t.nodes[idx].postings...)
	sort.Ints(positions)
	return positions, true
}

// FindPrefixChildren returns the nearest complete words below prefix: each child branch of the
// prefix node is followed only until its first terminal node. The prefix itself is never returned.
func (t *Trie) FindPrefixChildren(prefix string) ([]string, bool) {
	idx, ok := t.walk(prefix)
	if !ok {
		return nil, false
	}

	var words []string
	stack := make([]int32, 0, radix)
	pushChildren := func(parent int32) {
		children := &t.nodes[parent].children
		// reverse push keeps alphabetical pop order
		for i := radix - 1; i >= 0; i-- {
			if children[i] != 0 {
				stack = append(stack, children[i])
			}
		}
	}

	pushChildren(idx)
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if t.nodes[cur].terminal {
			words = append(words, t.nodes[cur].key)
			continue
		}
		pushChildren(cur)
	}

	if len(words) == 0 {
		return nil, false
	}
	return words, true
}

// Nodes reports how many nodes are currently allocated, including the root.
func (t *Trie) Nodes() int {
	return len(t.nodes)
}

// Words reports how many distinct words the trie holds.
func (t *Trie) Words() int {
	return t.words
}

// Release drops every node and returns how many were freed. Calling it again returns 0.
func (t *Trie) Release() int {
	freed := len(t.nodes)
	t.nodes = nil
	t.words = 0
	return freed
}

// walk follows prefix from the root and returns the arena index it ends on.
func (t *Trie) walk(prefix string) (int32, bool) {
	if len(t.nodes) == 0 {
		return 0, false
	}

	cur := int32(0)
	for i := 0; i < len(prefix); i++ {
		c := prefix[i]
		if !isLetter(c) {
			return 0, false
		}
		next := t.nodes[cur].children[branch(c)]
		if next == 0 {
			return 0, false
		}
		cur = next
	}
	return cur, true
}

func validWord(word string) bool {
	if word == "" {
		return false
	}
	for i := 0; i < len(word); i++ {
		if !isLetter(word[i]) {
			return false
		}
	}
	return true
}

func isLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func branch(c byte) int {
	if 'A' <= c && c <= 'Z' {
		c += 'a' - 'A'
	}
	return int(c - 'a')
}
