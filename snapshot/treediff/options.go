package treediff

import (
	"runtime"

	"github.com/kopia/treediff/internal/metrics"
)

// LargeSubtreeThreshold is the number of entries a matched, unchanged subtree must
// exceed to be reported in Result.LargeUnchangedSubtrees.
const LargeSubtreeThreshold = 10

// Options selects the optional outputs of Diff and describes the origin of the listings.
type Options struct {
	Deleted                bool
	ModifiedInPlace        bool
	DeletedInPlace         bool
	LargeUnchangedSubtrees bool

	// ExplicitSymlinkBit is set when the listings come from a client that flags
	// symlinks with a dedicated indicator bit. Otherwise the legacy heuristic is used.
	ExplicitSymlinkBit bool

	// WindowsOrigin is set when the listings were produced on Windows.
	WindowsOrigin bool

	// TargetWindows is set when the backup is materialized on Windows, where symlinks
	// are not forced to be re-processed.
	TargetWindows bool

	// Metrics receives counters and timings, may be nil.
	Metrics *metrics.Registry
}

// DefaultOptions returns options requesting all outputs, targeting the current platform.
func DefaultOptions() Options {
	return Options{
		Deleted:                true,
		ModifiedInPlace:        true,
		DeletedInPlace:         true,
		LargeUnchangedSubtrees: true,
		TargetWindows:          runtime.GOOS == "windows",
	}
}
