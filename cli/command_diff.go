package cli

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/fatih/color"

	"github.com/kopia/treediff/internal/logging"
	"github.com/kopia/treediff/internal/units"
	"github.com/kopia/treediff/snapshot/treediff"
	"github.com/kopia/treediff/snapshot/treefile"
)

type commandDiff struct {
	oldPath string
	newPath string

	deleted            bool
	inPlace            bool
	largeSubtrees      bool
	explicitSymlinkBit bool
	windowsOrigin      bool
	targetWindows      bool
	showPaths          bool
	includeLog         bool

	jo  jsonOutput
	out outputFlags

	svc appServices
}

func (c *commandDiff) setup(svc appServices, parent commandParent) {
	cmd := parent.Command("diff", "Classify the differences between two tree listings")
	cmd.Arg("old", "Previous tree listing ('-' for stdin)").Required().StringVar(&c.oldPath)
	cmd.Arg("new", "Current tree listing ('-' for stdin)").Required().StringVar(&c.newPath)

	cmd.Flag("deleted", "Report entries of the old tree that have no counterpart").Envar(svc.EnvName("TREEDIFF_REPORT_DELETED")).BoolVar(&c.deleted)
	cmd.Flag("in-place", "Report modified files eligible for in-place update").Envar(svc.EnvName("TREEDIFF_REPORT_IN_PLACE")).BoolVar(&c.inPlace)
	cmd.Flag("large-subtrees", "Report large unchanged subtrees").Envar(svc.EnvName("TREEDIFF_REPORT_LARGE_SUBTREES")).BoolVar(&c.largeSubtrees)
	cmd.Flag("explicit-symlink-bit", "Listings carry an explicit symlink bit").Envar(svc.EnvName("TREEDIFF_EXPLICIT_SYMLINK_BIT")).BoolVar(&c.explicitSymlinkBit)
	cmd.Flag("windows-origin", "Listings were produced on Windows").Envar(svc.EnvName("TREEDIFF_WINDOWS_ORIGIN")).BoolVar(&c.windowsOrigin)
	cmd.Flag("target-windows", "Backup is materialized on Windows").Envar(svc.EnvName("TREEDIFF_TARGET_WINDOWS")).Default(strconv.FormatBool(treediff.DefaultOptions().TargetWindows)).BoolVar(&c.targetWindows)
	cmd.Flag("paths", "Show paths next to entry IDs").BoolVar(&c.showPaths)
	cmd.Flag("include-log", "Include log messages of the comparison in JSON output").BoolVar(&c.includeLog)

	c.jo.setup(cmd)
	c.out.setup(svc, cmd)

	c.svc = svc

	cmd.Action(svc.baseActionWithContext(c.run))
}

func (c *commandDiff) options() treediff.Options {
	return treediff.Options{
		Deleted:                c.deleted,
		ModifiedInPlace:        c.inPlace,
		DeletedInPlace:         c.inPlace,
		LargeUnchangedSubtrees: c.largeSubtrees,
		ExplicitSymlinkBit:     c.explicitSymlinkBit,
		WindowsOrigin:          c.windowsOrigin,
		TargetWindows:          c.targetWindows,
		Metrics:                c.svc.metricsRegistry(),
	}
}

// logCollector captures log messages emitted while loading and comparing, regardless of console log level.
type logCollector struct {
	mu    sync.Mutex
	lines []string
}

func (lc *logCollector) printf(msg string, args ...interface{}) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	lc.lines = append(lc.lines, fmt.Sprintf(msg, args...))
}

func (c *commandDiff) run(ctx context.Context) error {
	var lc *logCollector

	if c.includeLog && c.jo.jsonOutput {
		lc = &logCollector{}
		ctx = logging.WithAdditionalLogger(ctx, logging.Printf(lc.printf, ""))
	}

	trees, err := c.svc.loadFlags().loadAll(ctx, c.oldPath, c.newPath)
	if err != nil {
		return err
	}

	oldTree, newTree := trees[0], trees[1]

	res := treediff.Diff(ctx, oldTree, newTree, c.options())

	var buf bytes.Buffer

	if c.jo.jsonOutput {
		jr := c.jsonResult(oldTree, newTree, res)
		if lc != nil {
			jr.Log = lc.lines
		}

		buf.Write(c.jo.jsonBytes(jr))
		buf.WriteString("\n")
	} else {
		c.printResult(&buf, oldTree, newTree, res)
	}

	if err := c.out.write(ctx, &buf); err != nil {
		return err
	}

	if !c.jo.jsonOutput {
		fmt.Fprintf(c.svc.stderr(), "Compared %v entries against %v: %v changed, %v changed directories, %v unordered top-level matches.\n", //nolint:errcheck
			units.Count(int64(newTree.Len())),
			units.Count(int64(oldTree.Len())),
			len(res.Changed),
			len(res.ChangedDirectories),
			res.Stats.UnorderedRootMatches)
	}

	return nil
}

type diffResultJSON struct {
	*treediff.Result

	OldDigest string `json:"oldDigest"`
	NewDigest string `json:"newDigest"`

	OldPaths map[treefile.EntryID]string `json:"oldPaths,omitempty"`
	NewPaths map[treefile.EntryID]string `json:"newPaths,omitempty"`

	Log []string `json:"log,omitempty"`
}

func (c *commandDiff) jsonResult(oldTree, newTree *treefile.Tree, res *treediff.Result) *diffResultJSON {
	r := &diffResultJSON{
		Result:    res,
		OldDigest: oldTree.Digest(),
		NewDigest: newTree.Digest(),
	}

	if c.showPaths {
		r.OldPaths = pathMap(oldTree, res.Deleted, res.DeletedInPlace)
		r.NewPaths = pathMap(newTree, res.Changed, res.ChangedDirectories, res.ModifiedInPlace, res.LargeUnchangedSubtrees)
	}

	return r
}

func pathMap(t *treefile.Tree, sets ...[]treefile.EntryID) map[treefile.EntryID]string {
	m := map[treefile.EntryID]string{}

	for _, ids := range sets {
		for _, id := range ids {
			if p, ok := t.PathByID(id); ok {
				m[id] = p
			}
		}
	}

	return m
}

func (c *commandDiff) printResult(buf *bytes.Buffer, oldTree, newTree *treefile.Tree, res *treediff.Result) {
	c.printSet(buf, "Changed", color.FgGreen, newTree, res.Changed)
	c.printSet(buf, "Changed directories", color.FgBlue, newTree, res.ChangedDirectories)

	if c.deleted {
		c.printSet(buf, "Deleted", color.FgRed, oldTree, res.Deleted)
	}

	if c.inPlace {
		c.printSet(buf, "Modified in place", color.FgYellow, newTree, res.ModifiedInPlace)
		c.printSet(buf, "Deleted in place", color.FgYellow, oldTree, res.DeletedInPlace)
	}

	if c.largeSubtrees {
		c.printSet(buf, "Large unchanged subtrees", color.FgCyan, newTree, res.LargeUnchangedSubtrees)
	}
}

func (c *commandDiff) printSet(buf *bytes.Buffer, title string, attr color.Attribute, t *treefile.Tree, ids []treefile.EntryID) {
	c.out.color(attr, color.Bold).Fprintf(buf, "%v (%v):\n", title, len(ids)) //nolint:errcheck

	for _, id := range ids {
		if !c.showPaths {
			fmt.Fprintf(buf, "  %v\n", id)
			continue
		}

		p, _ := t.PathByID(id)
		fmt.Fprintf(buf, "  %v\t%v\n", id, p)
	}
}
