package cli

import (
	"context"

	"github.com/alecthomas/kingpin/v2"
	"github.com/alecthomas/units"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/kopia/treediff/snapshot/treefile"
)

type loadFlags struct {
	maxTreeSize units.Base2Bytes

	svc appServices
}

func (c *loadFlags) setup(svc appServices, app *kingpin.Application) {
	app.Flag("max-tree-size", "Maximum decompressed size of a tree listing").Envar(svc.EnvName("TREEDIFF_MAX_TREE_SIZE")).Default("4GiB").BytesVar(&c.maxTreeSize)

	c.svc = svc
}

func (c *loadFlags) options() treefile.LoadOptions {
	return treefile.LoadOptions{
		MaxSize: int64(c.maxTreeSize),
		Metrics: c.svc.metricsRegistry(),
		Stdin:   c.svc.stdin(),
	}
}

func (c *loadFlags) load(ctx context.Context, path string) (*treefile.Tree, error) {
	//nolint:wrapcheck
	return treefile.Load(ctx, path, c.options())
}

// loadAll loads the provided listings in parallel, the result is in the order of paths.
func (c *loadFlags) loadAll(ctx context.Context, paths ...string) ([]*treefile.Tree, error) {
	stdinCount := 0

	for _, p := range paths {
		if p == treefile.StdinPath {
			stdinCount++
		}
	}

	if stdinCount > 1 {
		return nil, errors.New("only one tree listing can be read from standard input")
	}

	trees := make([]*treefile.Tree, len(paths))

	eg, ctx := errgroup.WithContext(ctx)

	for i, p := range paths {
		eg.Go(func() error {
			t, err := c.load(ctx, p)
			if err != nil {
				return err
			}

			trees[i] = t

			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, errors.Wrap(err, "error loading tree listings")
	}

	return trees, nil
}
