package treediff_test

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"slices"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/kopia/treediff/internal/metrics"
	"github.com/kopia/treediff/internal/testlogging"
	"github.com/kopia/treediff/snapshot/treediff"
	"github.com/kopia/treediff/snapshot/treefile"
)

const sampleListing = `d"docs" 100
f"a.txt" 10 1000
d"img" 200
f"cat.png" 3000 1500
f"dog.png" 4000 1600
d".."
f"b.txt" 5 2000
d".."
f"top.txt" 1 2
d"empty" 300
d".."
`

func mustDecode(t *testing.T, s string) *treefile.Tree {
	t.Helper()

	tree, err := treefile.DecodeBytes([]byte(s))
	require.NoError(t, err)

	return tree
}

func allOptions() treediff.Options {
	o := treediff.DefaultOptions()
	o.TargetWindows = false

	return o
}

func formatIDs(sb *strings.Builder, label string, ids []treefile.EntryID, tree *treefile.Tree) {
	sb.WriteString(label + ":")

	for _, id := range ids {
		p, ok := tree.PathByID(id)
		if !ok {
			p = "<invalid>"
		}

		fmt.Fprintf(sb, " %v:%v", id, p)
	}

	sb.WriteString("\n")
}

func TestDiffDataDriven(t *testing.T) {
	var (
		oldTree, newTree *treefile.Tree
		last             *treediff.Result
	)

	ctx := testlogging.Context(t)

	datadriven.RunTest(t, "testdata/diff", func(t *testing.T, td *datadriven.TestData) string {
		switch td.Cmd {
		case "old":
			oldTree = mustDecode(t, td.Input)
			return ""

		case "new":
			newTree = mustDecode(t, td.Input)
			return ""

		case "diff":
			opt := treediff.Options{
				Deleted:                td.HasArg("deleted"),
				ModifiedInPlace:        td.HasArg("in-place"),
				DeletedInPlace:         td.HasArg("in-place"),
				LargeUnchangedSubtrees: td.HasArg("large"),
				ExplicitSymlinkBit:     td.HasArg("explicit-symlinks"),
				WindowsOrigin:          td.HasArg("windows-origin"),
				TargetWindows:          td.HasArg("target-windows"),
			}

			last = treediff.Diff(ctx, oldTree, newTree, opt)

			var sb strings.Builder

			formatIDs(&sb, "changed", last.Changed, newTree)
			formatIDs(&sb, "changed-dirs", last.ChangedDirectories, newTree)

			if opt.Deleted {
				formatIDs(&sb, "deleted", last.Deleted, oldTree)
			}

			if opt.ModifiedInPlace {
				formatIDs(&sb, "modified-in-place", last.ModifiedInPlace, newTree)
				formatIDs(&sb, "deleted-in-place", last.DeletedInPlace, oldTree)
			}

			if opt.LargeUnchangedSubtrees {
				formatIDs(&sb, "large", last.LargeUnchangedSubtrees, newTree)
			}

			return sb.String()

		case "stats":
			s := last.Stats

			return fmt.Sprintf("compared=%v matched=%v unordered=%v added=%v modified=%v symlinks=%v\n",
				s.ComparedPairs, s.MatchedPairs, s.UnorderedRootMatches, s.Added, s.ModifiedFiles, s.ForcedSymlinks)

		default:
			t.Fatalf("unknown command %q", td.Cmd)
			return ""
		}
	})
}

func TestDiffTreeWithItself(t *testing.T) {
	tree := mustDecode(t, sampleListing)

	r := treediff.Diff(testlogging.Context(t), tree, tree, allOptions())

	require.Empty(t, r.Changed)
	require.Empty(t, r.ChangedDirectories)
	require.Empty(t, r.Deleted)
	require.Empty(t, r.ModifiedInPlace)
	require.Empty(t, r.DeletedInPlace)
	require.Equal(t, tree.Len(), r.Stats.MatchedPairs)
}

func TestDiffSeparatelyDecodedIdenticalTrees(t *testing.T) {
	r := treediff.Diff(testlogging.Context(t), mustDecode(t, sampleListing), mustDecode(t, sampleListing), allOptions())

	require.Empty(t, r.Changed)
	require.Empty(t, r.ChangedDirectories)
	require.Empty(t, r.Deleted)
}

func TestDiffPureAddition(t *testing.T) {
	oldTree := mustDecode(t, sampleListing)
	newTree := mustDecode(t, sampleListing+"f\"added.txt\" 7 7000\n")

	r := treediff.Diff(testlogging.Context(t), oldTree, newTree, allOptions())

	added, ok := newTree.EntryByID(11)
	require.True(t, ok)
	require.Equal(t, "added.txt", string(newTree.Entry(added).Name))

	require.Equal(t, []treefile.EntryID{11}, r.Changed)
	require.Empty(t, r.Deleted)
	require.Empty(t, r.ChangedDirectories)
}

func TestDiffPureDeletion(t *testing.T) {
	lines := strings.SplitAfter(sampleListing, "\n")

	for i, line := range lines {
		if !strings.HasPrefix(line, "f") {
			continue
		}

		t.Run(strings.TrimSpace(line), func(t *testing.T) {
			oldTree := mustDecode(t, sampleListing)
			newTree := mustDecode(t, strings.Join(slices.Delete(slices.Clone(lines), i, i+1), ""))

			r := treediff.Diff(testlogging.Context(t), oldTree, newTree, allOptions())

			require.Empty(t, r.Changed)
			require.Equal(t, []treefile.EntryID{treefile.EntryID(i)}, r.Deleted)
		})
	}
}

func TestDiffMetadataOnlyDirectoryChange(t *testing.T) {
	oldTree := mustDecode(t, sampleListing)
	newTree := mustDecode(t, strings.Replace(sampleListing, `d"img" 200`, `d"img" 201`, 1))

	r := treediff.Diff(testlogging.Context(t), oldTree, newTree, allOptions())

	require.Equal(t, []treefile.EntryID{2}, r.ChangedDirectories)
	require.Empty(t, r.Changed)
	require.Empty(t, r.Deleted)
}

func TestDiffDoesNotModifyTrees(t *testing.T) {
	oldTree := mustDecode(t, sampleListing)
	newTree := mustDecode(t, strings.Replace(sampleListing, `f"b.txt" 5 2000`, `f"b.txt" 6 2001`, 1))

	encode := func(tree *treefile.Tree) string {
		var buf bytes.Buffer

		require.NoError(t, treefile.Encode(&buf, tree))

		return buf.String()
	}

	before := encode(oldTree) + encode(newTree)

	first := treediff.Diff(testlogging.Context(t), oldTree, newTree, allOptions())
	second := treediff.Diff(testlogging.Context(t), oldTree, newTree, allOptions())

	require.Equal(t, before, encode(oldTree)+encode(newTree))

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("repeated diff differs (-first +second):\n%v", diff)
	}
}

func TestDiffEachMatchesSequential(t *testing.T) {
	ctx := testlogging.ContextWithLevel(t, testlogging.LevelInfo)
	rnd := rand.New(rand.NewSource(1)) //nolint:gosec

	newTree := mustDecode(t, randomListing(rnd, 3))

	var oldTrees []*treefile.Tree

	for range 8 {
		oldTrees = append(oldTrees, mustDecode(t, randomListing(rnd, 3)))
	}

	results, err := treediff.DiffEach(ctx, oldTrees, newTree, allOptions())
	require.NoError(t, err)
	require.Len(t, results, len(oldTrees))

	for i, oldTree := range oldTrees {
		want := treediff.Diff(ctx, oldTree, newTree, allOptions())

		if diff := cmp.Diff(want, results[i]); diff != "" {
			t.Fatalf("result %v differs (-want +got):\n%v", i, diff)
		}
	}
}

func TestDiffEachCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(testlogging.Context(t))
	cancel()

	tree := mustDecode(t, sampleListing)

	_, err := treediff.DiffEach(ctx, []*treefile.Tree{tree, tree}, tree, allOptions())
	require.ErrorIs(t, err, context.Canceled)
}

func TestDiffMetrics(t *testing.T) {
	reg := metrics.NewRegistry()
	opt := allOptions()
	opt.Metrics = reg

	oldTree := mustDecode(t, sampleListing)
	newTree := mustDecode(t, sampleListing+"f\"added.txt\" 7 7000\n")

	treediff.Diff(testlogging.Context(t), oldTree, newTree, opt)
	treediff.Diff(testlogging.Context(t), oldTree, newTree, opt)

	require.EqualValues(t, 2, reg.CounterInt64("diff_runs", "", nil).Snapshot())
	require.EqualValues(t, 2, reg.CounterInt64("diff_result_entries", "", map[string]string{"set": "changed"}).Snapshot())
	require.EqualValues(t, 0, reg.CounterInt64("diff_result_entries", "", map[string]string{"set": "deleted"}).Snapshot())
	require.EqualValues(t, 2, reg.DurationDistribution("diff_duration", "", nil).Snapshot().Count)
}
