package treediff

import "github.com/kopia/treediff/snapshot/treefile"

// Result holds the classified entry IDs. Each set is sorted in ascending order.
// Optional sets are nil unless requested in Options.
type Result struct {
	// Changed holds new-tree IDs of added entries and modified files.
	Changed []treefile.EntryID `json:"changed"`

	// ChangedDirectories holds new-tree IDs of directories whose own metadata changed.
	ChangedDirectories []treefile.EntryID `json:"changedDirectories"`

	// Deleted holds old-tree IDs of all entries without a counterpart, including descendants
	// of deleted directories and previous versions of modified files.
	Deleted []treefile.EntryID `json:"deleted,omitempty"`

	// ModifiedInPlace holds new-tree IDs of modified files.
	ModifiedInPlace []treefile.EntryID `json:"modifiedInPlace,omitempty"`

	// DeletedInPlace holds old-tree IDs of modified files whose symlink classification did not change.
	DeletedInPlace []treefile.EntryID `json:"deletedInPlace,omitempty"`

	// LargeUnchangedSubtrees holds new-tree IDs of roots of unchanged subtrees with more than
	// LargeSubtreeThreshold entries. Nested qualifying subtrees are not reported.
	LargeUnchangedSubtrees []treefile.EntryID `json:"largeUnchangedSubtrees,omitempty"`

	Stats Stats `json:"stats"`
}

// Stats describes the work done by a single Diff call.
type Stats struct {
	ComparedPairs        int `json:"comparedPairs"`
	MatchedPairs         int `json:"matchedPairs"`
	UnorderedRootMatches int `json:"unorderedRootMatches"`
	ForcedSymlinks       int `json:"forcedSymlinks"`
	Added                int `json:"added"`
	ModifiedFiles        int `json:"modifiedFiles"`
}
