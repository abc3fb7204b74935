package cli

import (
	"bytes"
	"context"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/kopia/treediff/snapshot/treediff"
)

// commandCompare diffs a single current listing against several previous ones,
// which is how a client picks the best base for an incremental backup.
type commandCompare struct {
	newPath  string
	oldPaths []string

	explicitSymlinkBit bool
	windowsOrigin      bool

	jo  jsonOutput
	out outputFlags

	svc appServices
}

type compareSummary struct {
	Old       string         `json:"old"`
	OldDigest string         `json:"oldDigest"`
	Changed   int            `json:"changed"`
	Dirs      int            `json:"changedDirectories"`
	Deleted   int            `json:"deleted"`
	Large     int            `json:"largeUnchangedSubtrees"`
	Stats     treediff.Stats `json:"stats"`
}

func (c *commandCompare) setup(svc appServices, parent commandParent) {
	cmd := parent.Command("compare", "Summarize the differences between a tree listing and several previous listings")
	cmd.Arg("new", "Current tree listing ('-' for stdin)").Required().StringVar(&c.newPath)
	cmd.Arg("old", "Previous tree listings").Required().StringsVar(&c.oldPaths)

	cmd.Flag("explicit-symlink-bit", "Listings carry an explicit symlink bit").Envar(svc.EnvName("TREEDIFF_EXPLICIT_SYMLINK_BIT")).BoolVar(&c.explicitSymlinkBit)
	cmd.Flag("windows-origin", "Listings were produced on Windows").Envar(svc.EnvName("TREEDIFF_WINDOWS_ORIGIN")).BoolVar(&c.windowsOrigin)

	c.jo.setup(cmd)
	c.out.setup(svc, cmd)

	c.svc = svc

	cmd.Action(svc.baseActionWithContext(c.run))
}

func (c *commandCompare) run(ctx context.Context) error {
	trees, err := c.svc.loadFlags().loadAll(ctx, append([]string{c.newPath}, c.oldPaths...)...)
	if err != nil {
		return err
	}

	opt := treediff.DefaultOptions()
	opt.ExplicitSymlinkBit = c.explicitSymlinkBit
	opt.WindowsOrigin = c.windowsOrigin
	opt.Metrics = c.svc.metricsRegistry()

	results, err := treediff.DiffEach(ctx, trees[1:], trees[0], opt)
	if err != nil {
		return err //nolint:wrapcheck
	}

	var (
		buf bytes.Buffer
		jl  jsonList
		tbl *tablewriter.Table
	)

	if c.jo.jsonOutput {
		jl.begin(&c.jo, &buf)
	} else {
		tbl = tablewriter.NewWriter(&buf)
		tbl.SetAutoWrapText(false)
		tbl.SetHeader([]string{"Old", "Changed", "Dirs", "Deleted", "Large"})
	}

	for i, res := range results {
		s := compareSummary{
			Old:       c.oldPaths[i],
			OldDigest: trees[i+1].Digest(),
			Changed:   len(res.Changed),
			Dirs:      len(res.ChangedDirectories),
			Deleted:   len(res.Deleted),
			Large:     len(res.LargeUnchangedSubtrees),
			Stats:     res.Stats,
		}

		if c.jo.jsonOutput {
			jl.emit(s)
			continue
		}

		tbl.Append([]string{
			s.Old,
			strconv.Itoa(s.Changed),
			strconv.Itoa(s.Dirs),
			strconv.Itoa(s.Deleted),
			strconv.Itoa(s.Large),
		})
	}

	if c.jo.jsonOutput {
		jl.end()
	} else {
		tbl.Render()
	}

	return c.out.write(ctx, &buf)
}
