package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/alecthomas/kingpin/v2"
)

type jsonOutput struct {
	jsonOutput bool
	jsonIndent bool
}

func (c *jsonOutput) setup(cmd *kingpin.CmdClause) {
	cmd.Flag("json", "Output result in JSON format").BoolVar(&c.jsonOutput)
	cmd.Flag("json-indent", "Output result in indented JSON format").Hidden().BoolVar(&c.jsonIndent)
}

func (c *jsonOutput) jsonBytes(v any) []byte {
	var (
		b   []byte
		err error
	)

	if c.jsonIndent {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}

	if err != nil {
		panic("error serializing JSON, that should not happen: " + err.Error())
	}

	return b
}

type jsonList struct {
	separator string
	o         *jsonOutput
	out       io.Writer
}

func (l *jsonList) begin(o *jsonOutput, out io.Writer) {
	l.o = o
	l.out = out

	if o.jsonOutput {
		fmt.Fprint(l.out, "[") //nolint:errcheck

		if !o.jsonIndent {
			l.separator = "\n "
		}
	}
}

func (l *jsonList) end() {
	if l.o.jsonOutput {
		if !l.o.jsonIndent {
			fmt.Fprint(l.out, "\n") //nolint:errcheck
		}

		fmt.Fprintln(l.out, "]") //nolint:errcheck
	}
}

func (l *jsonList) emit(v any) {
	fmt.Fprintf(l.out, "%s%s", l.separator, l.o.jsonBytes(v)) //nolint:errcheck

	if l.o.jsonIndent {
		l.separator = ","
	} else {
		l.separator = ",\n "
	}
}
