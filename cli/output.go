package cli

import (
	"bytes"
	"context"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"
	"github.com/pkg/errors"

	"github.com/kopia/treediff/internal/atomicfile"
	"github.com/kopia/treediff/internal/units"
)

// outputFlags buffers command output and sends it either to stdout or
// atomically to a file.
type outputFlags struct {
	outputFile string

	svc appServices
}

func (c *outputFlags) setup(svc appServices, cmd *kingpin.CmdClause) {
	cmd.Flag("output", "Write output to the provided file instead of stdout").Short('o').StringVar(&c.outputFile)

	c.svc = svc
}

func (c *outputFlags) toFile() bool {
	return c.outputFile != "" && c.outputFile != "-"
}

func (c *outputFlags) color(attrs ...color.Attribute) *color.Color {
	col := color.New(attrs...)

	if c.toFile() {
		col.DisableColor()
	}

	return col
}

func (c *outputFlags) write(ctx context.Context, buf *bytes.Buffer) error {
	if !c.toFile() {
		_, err := c.svc.stdout().Write(buf.Bytes())

		return errors.Wrap(err, "error writing output")
	}

	n := int64(buf.Len())

	if err := atomicfile.Write(c.outputFile, buf); err != nil {
		return errors.Wrap(err, "error writing output file")
	}

	log(ctx).Debugf("wrote %v to %v", units.BytesString(n), c.outputFile)

	return nil
}
