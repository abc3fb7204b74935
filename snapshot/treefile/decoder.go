package treefile

import (
	"bytes"
	"io"
	"strconv"

	"github.com/pkg/errors"
	"github.com/zeebo/blake3"

	"github.com/kopia/treediff/internal/iocopy"
)

const arenaChunkSize = 64 << 10

//nolint:gochecknoglobals
var closeMarkerName = []byte("..")

// errDecoderFinished is returned by Write after Tree has been called.
var errDecoderFinished = errors.New("decoder already finished")

// Decoder incrementally decodes a snapshot tree listing.
//
// Input may be supplied in arbitrary chunks through Write; lines split across
// chunks are reassembled and no byte is parsed more than once. Call Tree to
// finish decoding. A Decoder is not safe for concurrent use.
type Decoder struct {
	tree *Tree

	// open directory scopes, scopes[0] is the root.
	scopes    []Index
	lastChild []Index

	pending []byte
	scratch []byte
	chunk   []byte

	nextID     EntryID
	line       int
	lineOffset int64
	consumed   int64

	hasher *blake3.Hasher
	err    error
	done   bool
}

// NewDecoder returns a Decoder for a single listing.
func NewDecoder() *Decoder {
	t := &Tree{}
	t.entries = append(t.entries, Entry{
		Kind:        Directory,
		ID:          NoID,
		Parent:      NoIndex,
		FirstChild:  NoIndex,
		NextSibling: NoIndex,
	})

	return &Decoder{
		tree:      t,
		scopes:    []Index{RootIndex},
		lastChild: []Index{NoIndex},
		hasher:    blake3.New(),
	}
}

// Write decodes the next chunk of the listing. It implements io.Writer.
// Once a format error has been found, it is returned from all subsequent calls.
func (d *Decoder) Write(p []byte) (int, error) {
	if d.err != nil {
		return 0, d.err
	}

	if d.done {
		return 0, errDecoderFinished
	}

	d.hasher.Write(p) //nolint:errcheck
	d.consumed += int64(len(p))

	rest := p

	for {
		nl := bytes.IndexByte(rest, '\n')
		if nl < 0 {
			break
		}

		var line []byte

		if len(d.pending) > 0 {
			d.pending = append(d.pending, rest[:nl]...)
			line = d.pending
		} else {
			line = rest[:nl]
		}

		if err := d.decodeLine(line, int64(len(line)+1)); err != nil {
			d.err = err
			return len(p) - len(rest), err
		}

		d.pending = d.pending[:0]
		rest = rest[nl+1:]
	}

	d.pending = append(d.pending, rest...)

	return len(p), nil
}

// Tree finishes decoding and returns the decoded tree.
// A final line without trailing newline is accepted; directories left open are closed.
// No tree is returned if any format error has been found.
func (d *Decoder) Tree() (*Tree, error) {
	if d.err != nil {
		return nil, d.err
	}

	if d.done {
		return nil, errDecoderFinished
	}

	d.done = true

	if len(d.pending) > 0 {
		if err := d.decodeLine(d.pending, int64(len(d.pending))); err != nil {
			d.err = err
			return nil, err
		}

		d.pending = nil
	}

	t := d.tree
	t.digest = d.hasher.Sum(nil)
	t.stats.InputBytes = d.consumed

	d.tree = nil

	return t, nil
}

func (d *Decoder) formatError(kind error, detail string) error {
	return &FormatError{
		Kind:   kind,
		Line:   d.line,
		Offset: d.lineOffset,
		Detail: detail,
	}
}

// decodeLine decodes a single line (without its '\n'); length is the number of input bytes the line occupied.
func (d *Decoder) decodeLine(line []byte, length int64) error {
	d.line++

	defer func() {
		d.lineOffset += length
	}()

	line = bytes.TrimSuffix(line, []byte{'\r'})
	if len(line) == 0 {
		return nil
	}

	kind := Kind(line[0])
	if kind != File && kind != Directory {
		return d.formatError(ErrUnknownKindTag, strconv.QuoteRune(rune(line[0])))
	}

	name, rest, err := d.decodeName(line[1:])
	if err != nil {
		return err
	}

	if bytes.Equal(name, closeMarkerName) {
		return d.closeScope()
	}

	var size, indicator int64

	if len(rest) == 0 {
		return d.formatError(ErrTruncatedData, "missing metadata")
	}

	if rest[0] != ' ' {
		return d.formatError(ErrNonNumericField, "expected space after name")
	}

	data := rest[1:]

	if kind == File {
		var tail []byte

		size, tail, err = d.decodeNumber(data, "size")
		if err != nil {
			return err
		}

		indicator, _, err = d.decodeNumber(tail, "modification time")
	} else {
		indicator, _, err = d.decodeNumber(data, "change indicator")
	}

	if err != nil {
		return err
	}

	d.appendEntry(kind, name, data, size, indicator)

	return nil
}

// decodeName decodes the quoted name at the start of b and returns it along with the remainder of b.
// The returned name is only valid until the next call.
func (d *Decoder) decodeName(b []byte) (name, rest []byte, err error) {
	if len(b) == 0 || b[0] != '"' {
		return nil, nil, d.formatError(ErrUnterminatedName, "missing opening quote")
	}

	d.scratch = d.scratch[:0]

	for i := 1; i < len(b); i++ {
		switch c := b[i]; c {
		case '"':
			return d.scratch, b[i+1:], nil

		case '\\':
			if i+1 < len(b) && (b[i+1] == '"' || b[i+1] == '\\') {
				d.scratch = append(d.scratch, b[i+1])
				i++
			} else {
				// unrecognized escapes are kept verbatim
				d.scratch = append(d.scratch, c)
			}

		default:
			d.scratch = append(d.scratch, c)
		}
	}

	return nil, nil, d.formatError(ErrUnterminatedName, "missing closing quote")
}

// decodeNumber parses the space-terminated decimal field at the start of b.
// Values that only fit in uint64 are reinterpreted as int64, keeping the flag bits.
func (d *Decoder) decodeNumber(b []byte, field string) (value int64, rest []byte, err error) {
	if len(b) == 0 {
		return 0, nil, d.formatError(ErrTruncatedData, "missing "+field)
	}

	tok := b
	if sp := bytes.IndexByte(b, ' '); sp >= 0 {
		tok, rest = b[:sp], b[sp+1:]
	}

	s := string(tok)

	v, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return v, rest, nil
	}

	u, uerr := strconv.ParseUint(s, 10, 64)
	if uerr == nil {
		return int64(u), rest, nil //nolint:gosec
	}

	return 0, nil, d.formatError(ErrNonNumericField, field+" "+strconv.Quote(s))
}

func (d *Decoder) closeScope() error {
	if len(d.scopes) == 1 {
		return d.formatError(ErrUnbalancedClose, "")
	}

	d.scopes = d.scopes[:len(d.scopes)-1]
	d.lastChild = d.lastChild[:len(d.lastChild)-1]
	d.nextID++
	d.tree.stats.CloseMarkers++

	return nil
}

// alloc copies b into the tree's backing buffer. Chunks are never reallocated,
// so slices returned earlier remain valid.
func (d *Decoder) alloc(b []byte) []byte {
	if len(b) > cap(d.chunk)-len(d.chunk) {
		n := arenaChunkSize
		if len(b) > n {
			n = len(b)
		}

		d.chunk = make([]byte, 0, n)
		d.tree.chunks = append(d.tree.chunks, d.chunk[:0:n])
	}

	start := len(d.chunk)
	d.chunk = append(d.chunk, b...)

	return d.chunk[start:len(d.chunk):len(d.chunk)]
}

func (d *Decoder) appendEntry(kind Kind, name, data []byte, size, indicator int64) {
	t := d.tree
	pos := Index(len(t.entries))
	depth := len(d.scopes) - 1
	parent := d.scopes[depth]

	t.entries = append(t.entries, Entry{
		Name:        d.alloc(name),
		Data:        d.alloc(data),
		Kind:        kind,
		ID:          d.nextID,
		Size:        size,
		Indicator:   indicator,
		Parent:      parent,
		FirstChild:  NoIndex,
		NextSibling: NoIndex,
	})

	d.nextID++

	if prev := d.lastChild[depth]; prev == NoIndex {
		t.entries[parent].FirstChild = pos
	} else {
		t.entries[prev].NextSibling = pos
	}

	d.lastChild[depth] = pos
	t.entries[parent].ChildCount++

	if depth+1 > t.stats.MaxDepth {
		t.stats.MaxDepth = depth + 1
	}

	if kind == Directory {
		t.stats.Directories++

		d.scopes = append(d.scopes, pos)
		d.lastChild = append(d.lastChild, NoIndex)
	} else {
		t.stats.Files++
		t.stats.TotalFileSize += size
	}
}

// Decode reads and decodes a complete listing from r.
func Decode(r io.Reader) (*Tree, error) {
	d := NewDecoder()

	if _, err := iocopy.Copy(d, r); err != nil {
		var fe *FormatError
		if errors.As(err, &fe) {
			return nil, fe
		}

		return nil, errors.Wrap(err, "error reading tree listing")
	}

	return d.Tree()
}

// DecodeBytes decodes a complete listing held in memory.
func DecodeBytes(b []byte) (*Tree, error) {
	d := NewDecoder()

	if _, err := d.Write(b); err != nil {
		return nil, err
	}

	return d.Tree()
}
