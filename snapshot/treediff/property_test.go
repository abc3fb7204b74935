package treediff_test

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kopia/treediff/internal/testlogging"
	"github.com/kopia/treediff/snapshot/treediff"
	"github.com/kopia/treediff/snapshot/treefile"
)

//nolint:gochecknoglobals
var randomNames = []string{"a", "b", "c", "d", "e", "f"}

// randomListing generates a listing with children in the order produced by the walker:
// directories first, then files, each sorted by name.
func randomListing(rnd *rand.Rand, maxDepth int) string {
	var sb strings.Builder

	var gen func(depth int)

	gen = func(depth int) {
		if depth < maxDepth {
			for _, n := range randomNames {
				if rnd.Intn(3) == 0 {
					fmt.Fprintf(&sb, "d%q %v\n", n, rnd.Intn(2))
					gen(depth + 1)
					sb.WriteString("d\"..\"\n")
				}
			}
		}

		for _, n := range randomNames {
			if rnd.Intn(2) == 0 {
				mtime := int64(rnd.Intn(2))
				if rnd.Intn(8) == 0 {
					mtime |= -1 << 63
				}

				fmt.Fprintf(&sb, "f%q %v %v\n", n, rnd.Intn(2), mtime)
			}
		}
	}

	gen(0)

	return sb.String()
}

func requireStrictlyAscending(t *testing.T, name string, ids []treefile.EntryID) {
	t.Helper()

	for i := 1; i < len(ids); i++ {
		require.Less(t, ids[i-1], ids[i], "%v is not strictly ascending: %v", name, ids)
	}
}

func requireValidIDs(t *testing.T, name string, ids []treefile.EntryID, tree *treefile.Tree) {
	t.Helper()

	for _, id := range ids {
		_, ok := tree.EntryByID(id)
		require.True(t, ok, "%v contains unknown id %v", name, id)
	}
}

func TestDiffRandomTreesInvariants(t *testing.T) {
	ctx := testlogging.ContextWithLevel(t, testlogging.LevelInfo)
	rnd := rand.New(rand.NewSource(42)) //nolint:gosec

	for i := range 300 {
		oldTree := mustDecode(t, randomListing(rnd, 3))
		newTree := mustDecode(t, randomListing(rnd, 3))

		opt := treediff.Options{
			Deleted:                true,
			ModifiedInPlace:        true,
			DeletedInPlace:         true,
			LargeUnchangedSubtrees: true,
			ExplicitSymlinkBit:     i%2 == 0,
			WindowsOrigin:          i%3 == 0,
			TargetWindows:          i%5 == 0,
		}

		r := treediff.Diff(ctx, oldTree, newTree, opt)

		for name, ids := range map[string][]treefile.EntryID{
			"changed":            r.Changed,
			"changedDirectories": r.ChangedDirectories,
			"modifiedInPlace":    r.ModifiedInPlace,
			"large":              r.LargeUnchangedSubtrees,
		} {
			requireStrictlyAscending(t, name, ids)
			requireValidIDs(t, name, ids, newTree)
		}

		for name, ids := range map[string][]treefile.EntryID{
			"deleted":        r.Deleted,
			"deletedInPlace": r.DeletedInPlace,
		} {
			requireStrictlyAscending(t, name, ids)
			requireValidIDs(t, name, ids, oldTree)
		}

		// every new entry is either matched or reported
		require.Equal(t, newTree.Len(), r.Stats.MatchedPairs+countReported(t, r, newTree))

		// every in-place deletion is also a deletion
		for _, id := range r.DeletedInPlace {
			require.Contains(t, r.Deleted, id)
		}

		// large subtrees never contain reported entries
		for _, id := range r.LargeUnchangedSubtrees {
			root, _ := newTree.EntryByID(id)
			require.Greater(t, newTree.BoundedSize(root, treediff.LargeSubtreeThreshold), treediff.LargeSubtreeThreshold)

			for _, c := range r.Changed {
				require.False(t, isDescendant(t, newTree, c, root), "changed entry %v inside large subtree %v", c, id)
			}
		}
	}
}

// countReported counts new entries reported as changed, including all descendants of added directories.
func countReported(t *testing.T, r *treediff.Result, tree *treefile.Tree) int {
	t.Helper()

	n := 0

	for _, id := range r.Changed {
		i, ok := tree.EntryByID(id)
		require.True(t, ok)

		n += tree.BoundedSize(i, tree.Size())
	}

	return n
}

func isDescendant(t *testing.T, tree *treefile.Tree, id treefile.EntryID, ancestor treefile.Index) bool {
	t.Helper()

	i, ok := tree.EntryByID(id)
	require.True(t, ok)

	for p := i; p != treefile.NoIndex; p = tree.Entry(p).Parent {
		if p == ancestor {
			return true
		}
	}

	return false
}

func TestSymlinkNeverInsideLargeSubtree(t *testing.T) {
	var sb strings.Builder

	sb.WriteString("d\"dir\" 1\n")

	for i := range 12 {
		fmt.Fprintf(&sb, "f\"file%02d\" 1 1\n", i)
	}

	sb.WriteString("f\"zlink\" 0 -9223372036854775000\nd\"..\"\n")

	tree := mustDecode(t, sb.String())
	opt := allOptions()

	r := treediff.Diff(testlogging.Context(t), tree, tree, opt)
	require.Empty(t, r.LargeUnchangedSubtrees)
	require.Equal(t, 1, r.Stats.ForcedSymlinks)

	opt.TargetWindows = true

	r = treediff.Diff(testlogging.Context(t), tree, tree, opt)
	require.Equal(t, []treefile.EntryID{0}, r.LargeUnchangedSubtrees)
}

// flatListing generates top-level files in arbitrary order, with repeated names.
func flatListing(rnd *rand.Rand) string {
	var sb strings.Builder

	for range rnd.Intn(8) {
		fmt.Fprintf(&sb, "f%q %v %v\n", randomNames[rnd.Intn(3)], rnd.Intn(2), rnd.Intn(2))
	}

	return sb.String()
}

func TestDiffRepeatedTopLevelNames(t *testing.T) {
	ctx := testlogging.ContextWithLevel(t, testlogging.LevelInfo)
	rnd := rand.New(rand.NewSource(7)) //nolint:gosec

	for range 300 {
		oldTree := mustDecode(t, flatListing(rnd))
		newTree := mustDecode(t, flatListing(rnd))

		r := treediff.Diff(ctx, oldTree, newTree, allOptions())

		for name, ids := range map[string][]treefile.EntryID{
			"changed":         r.Changed,
			"modifiedInPlace": r.ModifiedInPlace,
			"deleted":         r.Deleted,
			"deletedInPlace":  r.DeletedInPlace,
		} {
			requireStrictlyAscending(t, name, ids)
		}

		// each old entry is compared at most once
		require.LessOrEqual(t, r.Stats.ComparedPairs, oldTree.Len())

		for _, id := range r.DeletedInPlace {
			require.Contains(t, r.Deleted, id)
		}
	}
}
