// Package treefile decodes snapshot tree listings produced by the client filesystem walker.
//
// A listing is a line-oriented serialization of a directory forest:
//
//	d"docs" 100
//	f"a.txt" 10 1000
//	d".."
//	f"top.txt" 5 2000
//
// Every line, including the ".." close markers, consumes one EntryID.
// Decoded entries live in a single arena (Tree) in pre-order, with
// children of each directory occupying the positions following it.
package treefile

import (
	"encoding/hex"
	"sort"
	"strings"
)

// Stats summarizes the contents of a Tree.
type Stats struct {
	Files         int   `json:"files"`
	Directories   int   `json:"directories"`
	CloseMarkers  int   `json:"closeMarkers"`
	TotalFileSize int64 `json:"totalFileSize"`
	MaxDepth      int   `json:"maxDepth"`
	InputBytes    int64 `json:"inputBytes"`
}

// Tree is a decoded snapshot listing. It is immutable once returned by a Decoder
// and may be shared between goroutines.
type Tree struct {
	entries []Entry
	chunks  [][]byte
	digest  []byte
	stats   Stats
}

// Root returns the position of the synthetic root.
func (t *Tree) Root() Index {
	return RootIndex
}

// Len returns the number of entries in the tree, not counting the synthetic root.
func (t *Tree) Len() int {
	return len(t.entries) - 1
}

// Size returns the number of arena positions, including the synthetic root.
// Valid positions are [0, Size()).
func (t *Tree) Size() int {
	return len(t.entries)
}

// Entry returns the entry at a given position.
func (t *Tree) Entry(i Index) *Entry {
	return &t.entries[i]
}

// Children returns positions of the direct children of the entry at i, in listing order.
func (t *Tree) Children(i Index) []Index {
	e := &t.entries[i]
	result := make([]Index, 0, e.ChildCount)

	for c := e.FirstChild; c != NoIndex; c = t.entries[c].NextSibling {
		result = append(result, c)
	}

	return result
}

// Stats returns statistics gathered while decoding.
func (t *Tree) Stats() Stats {
	return t.stats
}

// Digest returns the hex-encoded BLAKE3 digest of the serialized (uncompressed) listing.
func (t *Tree) Digest() string {
	return hex.EncodeToString(t.digest)
}

// EntryByID returns the position of the entry with the given ID.
func (t *Tree) EntryByID(id EntryID) (Index, bool) {
	// IDs are strictly increasing in arena order, root excluded.
	n := sort.Search(len(t.entries)-1, func(i int) bool {
		return t.entries[i+1].ID >= id
	})

	if n+1 < len(t.entries) && t.entries[n+1].ID == id {
		return Index(n + 1), true
	}

	return NoIndex, false
}

// Path returns the slash-separated path of the entry at i relative to the root.
func (t *Tree) Path(i Index) string {
	var parts []string

	for p := i; p != RootIndex && p != NoIndex; p = t.entries[p].Parent {
		parts = append(parts, string(t.entries[p].Name))
	}

	for l, r := 0, len(parts)-1; l < r; l, r = l+1, r-1 {
		parts[l], parts[r] = parts[r], parts[l]
	}

	return strings.Join(parts, "/")
}

// PathByID returns the path of the entry with the given ID.
func (t *Tree) PathByID(id EntryID) (string, bool) {
	i, ok := t.EntryByID(id)
	if !ok {
		return "", false
	}

	return t.Path(i), true
}

// BoundedSize counts the entry at i together with all its descendants, stopping
// as soon as the count exceeds limit. The result is exact only when it is <= limit.
func (t *Tree) BoundedSize(i Index, limit int) int {
	n := 1

	for c := t.entries[i].FirstChild; c != NoIndex && n <= limit; c = t.entries[c].NextSibling {
		n += t.BoundedSize(c, limit-n)
	}

	return n
}
