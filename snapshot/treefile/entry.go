package treefile

import (
	"math"
	"strconv"
)

// Kind is the type of a tree entry.
type Kind byte

// Entry kinds, encoded as the leading byte of each serialized line.
const (
	File      Kind = 'f'
	Directory Kind = 'd'
)

func (k Kind) String() string {
	switch k {
	case File:
		return "file"
	case Directory:
		return "directory"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// EntryID is the 0-based position of an entry's line in the serialized listing it was decoded from.
// IDs are unique within a tree and meaningless across trees.
type EntryID uint64

// NoID is the ID of the synthetic root, which has no line of its own.
const NoID EntryID = math.MaxUint64

// Index is the position of an entry in the arena of the Tree that owns it.
type Index int32

const (
	// RootIndex is the position of the synthetic root in every Tree.
	RootIndex Index = 0

	// NoIndex marks an absent parent, child or sibling.
	NoIndex Index = -1
)

// Entry is a single file or directory record.
//
// Name and Data point into the backing buffer of the owning Tree and must not be modified.
type Entry struct {
	// Name is the unescaped entry name.
	Name []byte

	// Data holds the raw metadata bytes following the name (without the separating space).
	Data []byte

	Kind Kind
	ID   EntryID

	// Size is the file size, always zero for directories.
	Size int64

	// Indicator is the modification time (files) or change indicator (directories).
	// Its high bits carry symlink and attribute flags.
	Indicator int64

	Parent      Index
	FirstChild  Index
	NextSibling Index
	ChildCount  int
}

// IsDir returns true if the entry is a directory.
func (e *Entry) IsDir() bool {
	return e.Kind == Directory
}
