package treefile

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
)

// AppendName appends the quoted, escaped form of name to b.
func AppendName(b, name []byte) []byte {
	b = append(b, '"')

	for _, c := range name {
		if c == '"' || c == '\\' {
			b = append(b, '\\')
		}

		b = append(b, c)
	}

	return append(b, '"')
}

// Encode writes the listing of t to w. Decoding the output yields a tree
// with the same structure, names and metadata bytes.
func Encode(w io.Writer, t *Tree) error {
	bw := bufio.NewWriter(w)

	var line []byte

	var encodeChildren func(i Index) error

	encodeChildren = func(i Index) error {
		for c := t.entries[i].FirstChild; c != NoIndex; c = t.entries[c].NextSibling {
			e := &t.entries[c]

			line = append(line[:0], byte(e.Kind))
			line = AppendName(line, e.Name)
			line = append(line, ' ')
			line = append(line, e.Data...)
			line = append(line, '\n')

			if _, err := bw.Write(line); err != nil {
				return errors.Wrap(err, "error writing entry")
			}

			if e.Kind != Directory {
				continue
			}

			if err := encodeChildren(c); err != nil {
				return err
			}

			if _, err := bw.WriteString("d\"..\"\n"); err != nil {
				return errors.Wrap(err, "error writing close marker")
			}
		}

		return nil
	}

	if err := encodeChildren(RootIndex); err != nil {
		return err
	}

	return errors.Wrap(bw.Flush(), "error flushing output")
}
