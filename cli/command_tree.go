package cli

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/pkg/errors"

	"github.com/kopia/treediff/internal/compression"
	"github.com/kopia/treediff/internal/units"
	"github.com/kopia/treediff/snapshot/treefile"
)

type commandTree struct {
	show   commandTreeShow
	verify commandTreeVerify
	export commandTreeExport
}

func (c *commandTree) setup(svc appServices, parent commandParent) {
	cmd := parent.Command("tree", "Commands to inspect tree listings")

	c.show.setup(svc, cmd)
	c.verify.setup(svc, cmd)
	c.export.setup(svc, cmd)
}

type commandTreeShow struct {
	path     string
	maxDepth int

	jo  jsonOutput
	out outputFlags

	svc appServices
}

type treeEntryJSON struct {
	ID        treefile.EntryID `json:"id"`
	Kind      string           `json:"kind"`
	Path      string           `json:"path"`
	Size      int64            `json:"size,omitempty"`
	Indicator int64            `json:"indicator"`
	Children  int              `json:"children,omitempty"`
}

func (c *commandTreeShow) setup(svc appServices, parent commandParent) {
	cmd := parent.Command("show", "List the entries of a tree listing")
	cmd.Arg("file", "Tree listing ('-' for stdin)").Required().StringVar(&c.path)
	cmd.Flag("max-depth", "Maximum depth of listed entries (0 = unlimited)").IntVar(&c.maxDepth)

	c.jo.setup(cmd)
	c.out.setup(svc, cmd)

	c.svc = svc

	cmd.Action(svc.baseActionWithContext(c.run))
}

func (c *commandTreeShow) run(ctx context.Context) error {
	t, err := c.svc.loadFlags().load(ctx, c.path)
	if err != nil {
		return err
	}

	var (
		buf bytes.Buffer
		jl  jsonList
	)

	if c.jo.jsonOutput {
		jl.begin(&c.jo, &buf)
	}

	dirColor := c.out.color(color.FgBlue, color.Bold)

	var walk func(dir treefile.Index, depth int)

	walk = func(dir treefile.Index, depth int) {
		if c.maxDepth > 0 && depth > c.maxDepth {
			return
		}

		for _, i := range t.Children(dir) {
			e := t.Entry(i)

			switch {
			case c.jo.jsonOutput:
				jl.emit(treeEntryJSON{
					ID:        e.ID,
					Kind:      e.Kind.String(),
					Path:      t.Path(i),
					Size:      e.Size,
					Indicator: e.Indicator,
					Children:  e.ChildCount,
				})

			case e.IsDir():
				fmt.Fprintf(&buf, "%8v %v%v\n", e.ID, strings.Repeat("  ", depth-1), dirColor.Sprint(string(e.Name)+"/"))

			default:
				fmt.Fprintf(&buf, "%8v %v%v  %v\n", e.ID, strings.Repeat("  ", depth-1), string(e.Name), units.BytesString(e.Size))
			}

			if e.IsDir() {
				walk(i, depth+1)
			}
		}
	}

	walk(t.Root(), 1)

	if c.jo.jsonOutput {
		jl.end()
	}

	return c.out.write(ctx, &buf)
}

type commandTreeVerify struct {
	paths []string

	jo jsonOutput

	svc appServices
}

type treeVerifyJSON struct {
	Path    string         `json:"path"`
	Entries int            `json:"entries"`
	Digest  string         `json:"digest"`
	Stats   treefile.Stats `json:"stats"`
}

func (c *commandTreeVerify) setup(svc appServices, parent commandParent) {
	cmd := parent.Command("verify", "Verify that tree listings are well-formed")
	cmd.Arg("file", "Tree listings ('-' for stdin)").Required().StringsVar(&c.paths)

	c.jo.setup(cmd)

	c.svc = svc

	cmd.Action(svc.baseActionWithContext(c.run))
}

func (c *commandTreeVerify) run(ctx context.Context) error {
	trees, err := c.svc.loadFlags().loadAll(ctx, c.paths...)
	if err != nil {
		return err
	}

	var jl jsonList

	if c.jo.jsonOutput {
		jl.begin(&c.jo, c.svc.stdout())
		defer jl.end()
	}

	for i, t := range trees {
		st := t.Stats()

		if c.jo.jsonOutput {
			jl.emit(treeVerifyJSON{c.paths[i], t.Len(), t.Digest(), st})
			continue
		}

		fmt.Fprintf(c.svc.stdout(), "%v: %v entries (%v files, %v directories), %v total, max depth %v, digest %v\n", //nolint:errcheck
			c.paths[i],
			units.Count(int64(t.Len())),
			units.Count(int64(st.Files)),
			units.Count(int64(st.Directories)),
			units.BytesString(st.TotalFileSize),
			st.MaxDepth,
			t.Digest())
	}

	return nil
}

type commandTreeExport struct {
	path        string
	compression string

	out outputFlags

	svc appServices
}

func (c *commandTreeExport) setup(svc appServices, parent commandParent) {
	cmd := parent.Command("export", "Write a normalized copy of a tree listing")
	cmd.Arg("file", "Tree listing ('-' for stdin)").Required().StringVar(&c.path)
	cmd.Flag("compression", "Compression of the exported listing").Default(string(compression.None)).EnumVar(&c.compression, compression.Formats...)

	c.out.setup(svc, cmd)

	c.svc = svc

	cmd.Action(svc.baseActionWithContext(c.run))
}

func (c *commandTreeExport) run(ctx context.Context) error {
	t, err := c.svc.loadFlags().load(ctx, c.path)
	if err != nil {
		return err
	}

	var buf bytes.Buffer

	w, err := compression.NewWriter(&buf, compression.Format(c.compression))
	if err != nil {
		return errors.Wrap(err, "unable to create compressor")
	}

	if err := treefile.Encode(w, t); err != nil {
		w.Close() //nolint:errcheck
		return errors.Wrap(err, "unable to encode tree listing")
	}

	if err := w.Close(); err != nil {
		return errors.Wrap(err, "unable to finish compression")
	}

	return c.out.write(ctx, &buf)
}
