package treediff

import "github.com/kopia/treediff/snapshot/treefile"

const (
	// explicitSymlinkBit is set by newer clients on symlinks.
	explicitSymlinkBit uint64 = 1 << 62

	legacySignBit     uint64 = 1 << 63
	legacyWindowsMask uint64 = 7 << 60
)

// IsSymlink reports whether an entry describes a symbolic link.
//
// The indicator word is inspected: the change indicator for directories and the
// modification time (never the size) for files. Listings from older clients have
// no explicit bit and are classified by a platform dependent heuristic, which is
// known to be imprecise and is kept for compatibility.
func IsSymlink(e *treefile.Entry, hasExplicitBit, windowsOrigin bool) bool {
	v := uint64(e.Indicator) //nolint:gosec

	switch {
	case hasExplicitBit:
		return v&explicitSymlinkBit != 0
	case windowsOrigin:
		return (v&legacySignBit == 0 || e.IsDir()) && v&legacyWindowsMask != 0
	default:
		return v&legacySignBit != 0
	}
}
