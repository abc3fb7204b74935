// Package treediff classifies the differences between two snapshot tree listings.
//
// Given the listing of the previous backup (old) and the current one (new),
// Diff determines which entries were added or changed, which were deleted,
// and which large subtrees are unchanged and can be reused as a whole.
// Entries are matched by kind and name within each directory; renames are
// reported as a deletion plus an addition.
package treediff

import (
	"bytes"
	"context"
	"runtime"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/kopia/treediff/internal/clock"
	"github.com/kopia/treediff/internal/logging"
	"github.com/kopia/treediff/snapshot/treefile"
)

var log = logging.Module("treediff")

var tracer = otel.Tracer("treediff")

// differ holds the state of a single Diff call. Match and change state are kept
// in side arrays indexed by arena position, so trees are never mutated and any
// number of calls may share a tree concurrently.
type differ struct {
	ctx context.Context //nolint:containedctx

	old, new *treefile.Tree
	opt      Options

	matchedOld []treefile.Index
	matchedNew []treefile.Index
	changed    []bool

	// consumed marks old entries already paired with a new entry, including modified files
	consumed []bool

	res *Result
}

// Diff compares the old and new trees. It does not modify either tree.
func Diff(ctx context.Context, oldTree, newTree *treefile.Tree, opt Options) *Result {
	ctx, span := tracer.Start(ctx, "Diff")
	defer span.End()

	t0 := clock.Now()

	d := &differ{
		ctx:        ctx,
		old:        oldTree,
		new:        newTree,
		opt:        opt,
		matchedOld: newIndexSlice(oldTree.Size()),
		matchedNew: newIndexSlice(newTree.Size()),
		changed:    make([]bool, newTree.Size()),
		consumed:   make([]bool, oldTree.Size()),
		res: &Result{
			Changed:            []treefile.EntryID{},
			ChangedDirectories: []treefile.EntryID{},
		},
	}

	if opt.ModifiedInPlace {
		d.res.ModifiedInPlace = []treefile.EntryID{}
	}

	if opt.DeletedInPlace {
		d.res.DeletedInPlace = []treefile.EntryID{}
	}

	d.compareChildren(oldTree.Root(), newTree.Root(), 0)

	if opt.Deleted {
		d.res.Deleted = d.unmatchedOld()
	}

	if opt.LargeUnchangedSubtrees {
		d.res.LargeUnchangedSubtrees = []treefile.EntryID{}
		d.findLargeUnchanged(newTree.Root())
	}

	r := d.res

	for _, ids := range [][]treefile.EntryID{
		r.Changed, r.ChangedDirectories, r.Deleted, r.ModifiedInPlace, r.DeletedInPlace, r.LargeUnchangedSubtrees,
	} {
		slices.Sort(ids)
	}

	dt := clock.Since(t0)

	d.recordMetrics(dt)

	span.SetAttributes(
		attribute.Int("changed", len(r.Changed)),
		attribute.Int("changedDirectories", len(r.ChangedDirectories)),
		attribute.Int("deleted", len(r.Deleted)),
		attribute.Int("largeUnchangedSubtrees", len(r.LargeUnchangedSubtrees)),
	)

	log(ctx).Debugw("diff completed",
		"duration", dt,
		"oldEntries", oldTree.Len(),
		"newEntries", newTree.Len(),
		"changed", len(r.Changed),
		"changedDirectories", len(r.ChangedDirectories),
		"deleted", len(r.Deleted),
		"largeUnchangedSubtrees", len(r.LargeUnchangedSubtrees),
		"unorderedRootMatches", r.Stats.UnorderedRootMatches)

	return r
}

// DiffEach compares each of the old trees against the same new tree, running
// up to GOMAXPROCS comparisons in parallel. Results are returned in the order of oldTrees.
func DiffEach(ctx context.Context, oldTrees []*treefile.Tree, newTree *treefile.Tree, opt Options) ([]*Result, error) {
	results := make([]*Result, len(oldTrees))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))

	for i, oldTree := range oldTrees {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err //nolint:wrapcheck
			}

			results[i] = Diff(ctx, oldTree, newTree, opt)

			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err //nolint:wrapcheck
	}

	return results, nil
}

func newIndexSlice(n int) []treefile.Index {
	s := make([]treefile.Index, n)
	for i := range s {
		s[i] = treefile.NoIndex
	}

	return s
}

// compareOrder orders directories before files, then by name.
func compareOrder(a, b *treefile.Entry) int {
	if a.Kind != b.Kind {
		if a.Kind == treefile.Directory {
			return -1
		}

		return 1
	}

	return bytes.Compare(a.Name, b.Name)
}

func (d *differ) nextOld(i treefile.Index) treefile.Index {
	return d.old.Entry(i).NextSibling
}

func (d *differ) nextNew(i treefile.Index) treefile.Index {
	return d.new.Entry(i).NextSibling
}

// compareChildren walks the children of a matched pair of directories in lockstep.
func (d *differ) compareChildren(oldDir, newDir treefile.Index, depth int) {
	c1 := d.old.Entry(oldDir).FirstChild
	c2 := d.new.Entry(newDir).FirstChild

	for {
		if depth == 0 {
			// top-level entries matched out of order are already taken
			for c1 != treefile.NoIndex && d.consumed[c1] {
				c1 = d.nextOld(c1)
			}
		}

		if c1 == treefile.NoIndex && c2 == treefile.NoIndex {
			return
		}

		var cmp int

		switch {
		case c1 == treefile.NoIndex:
			cmp = 1
		case c2 == treefile.NoIndex:
			cmp = -1
		default:
			cmp = compareOrder(d.old.Entry(c1), d.new.Entry(c2))
		}

		if cmp != 0 && depth == 0 && c2 != treefile.NoIndex {
			// the walker may emit top-level entries (drives, configured paths) in any order
			if o := d.findUnmatchedTopLevel(c2); o != treefile.NoIndex {
				log(d.ctx).Debugf("matched top-level entry %q out of order", d.new.Entry(c2).Name)

				d.res.Stats.UnorderedRootMatches++
				d.comparePair(o, c2, depth)
				c2 = d.nextNew(c2)

				continue
			}
		}

		switch {
		case cmp == 0:
			d.comparePair(c1, c2, depth)
			c1 = d.nextOld(c1)
			c2 = d.nextNew(c2)

		case cmp < 0:
			c1 = d.nextOld(c1)

		default:
			d.res.Changed = append(d.res.Changed, d.new.Entry(c2).ID)
			d.res.Stats.Added++
			d.markChanged(c2)
			c2 = d.nextNew(c2)
		}
	}
}

// findUnmatchedTopLevel scans all top-level entries of the old tree for an unmatched
// entry of the same kind and name as the new entry at n.
func (d *differ) findUnmatchedTopLevel(n treefile.Index) treefile.Index {
	en := d.new.Entry(n)

	for c := d.old.Entry(d.old.Root()).FirstChild; c != treefile.NoIndex; c = d.nextOld(c) {
		if !d.consumed[c] && compareOrder(d.old.Entry(c), en) == 0 {
			return c
		}
	}

	return treefile.NoIndex
}

// comparePair classifies two entries of the same kind and name.
func (d *differ) comparePair(o, n treefile.Index, depth int) {
	eo, en := d.old.Entry(o), d.new.Entry(n)

	d.res.Stats.ComparedPairs++
	d.consumed[o] = true

	dirs := eo.IsDir() && en.IsDir()
	dataEqual := bytes.Equal(eo.Data, en.Data)

	if dirs && !dataEqual {
		d.res.ChangedDirectories = append(d.res.ChangedDirectories, en.ID)
		d.markChanged(n)
	}

	if dirs || dataEqual {
		d.compareChildren(o, n, depth+1)

		d.matchedOld[o] = n
		d.matchedNew[n] = o
		d.res.Stats.MatchedPairs++
	} else {
		d.res.Changed = append(d.res.Changed, en.ID)
		d.res.Stats.ModifiedFiles++

		if d.opt.ModifiedInPlace {
			d.res.ModifiedInPlace = append(d.res.ModifiedInPlace, en.ID)
		}

		if d.opt.DeletedInPlace && d.isSymlink(eo) == d.isSymlink(en) {
			d.res.DeletedInPlace = append(d.res.DeletedInPlace, eo.ID)
		}

		d.markChanged(n)
	}

	// symlink targets are relative, reusing the enclosing directory as a whole could attach the wrong target
	if !d.opt.TargetWindows && d.isSymlink(en) {
		d.res.Stats.ForcedSymlinks++
		d.markChanged(n)
	}
}

func (d *differ) isSymlink(e *treefile.Entry) bool {
	return IsSymlink(e, d.opt.ExplicitSymlinkBit, d.opt.WindowsOrigin)
}

// markChanged flags the entry at n and all its ancestors, excluding the root.
func (d *differ) markChanged(n treefile.Index) {
	for p := n; p != d.new.Root() && !d.changed[p]; p = d.new.Entry(p).Parent {
		d.changed[p] = true
	}
}

func (d *differ) unmatchedOld() []treefile.EntryID {
	result := []treefile.EntryID{}

	for i := 1; i < d.old.Size(); i++ {
		if d.matchedOld[i] == treefile.NoIndex {
			result = append(result, d.old.Entry(treefile.Index(i)).ID)
		}
	}

	return result
}

func (d *differ) findLargeUnchanged(dir treefile.Index) {
	for c := d.new.Entry(dir).FirstChild; c != treefile.NoIndex; c = d.nextNew(c) {
		if !d.changed[c] && d.matchedNew[c] != treefile.NoIndex && d.new.BoundedSize(c, LargeSubtreeThreshold) > LargeSubtreeThreshold {
			d.res.LargeUnchangedSubtrees = append(d.res.LargeUnchangedSubtrees, d.new.Entry(c).ID)
			continue
		}

		d.findLargeUnchanged(c)
	}
}
