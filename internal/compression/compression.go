// Package compression detects and undoes compression applied to stored tree listings.
package compression

import (
	"bufio"
	"bytes"
	"io"

	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/pierrec/lz4"
	"github.com/pkg/errors"
)

// Format identifies the compression of a stream.
type Format string

// Supported formats.
const (
	None Format = "none"
	Zstd Format = "zstd"
	Gzip Format = "gzip"
	LZ4  Format = "lz4"
	S2   Format = "s2"
)

// Formats lists all supported formats.
//
//nolint:gochecknoglobals
var Formats = []string{string(None), string(Zstd), string(Gzip), string(LZ4), string(S2)}

//nolint:gochecknoglobals
var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	gzipMagic = []byte{0x1f, 0x8b}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}

	// stream identifier chunk, shared with framed snappy which s2 can also read.
	s2Magic = []byte{0xff, 0x06, 0x00, 0x00}
)

const sniffLength = 4

// Detect returns the format of a stream based on its leading bytes.
func Detect(prefix []byte) Format {
	switch {
	case bytes.HasPrefix(prefix, zstdMagic):
		return Zstd
	case bytes.HasPrefix(prefix, gzipMagic):
		return Gzip
	case bytes.HasPrefix(prefix, lz4Magic):
		return LZ4
	case bytes.HasPrefix(prefix, s2Magic):
		return S2
	default:
		return None
	}
}

type readCloser struct {
	io.Reader
	close func() error
}

func (r readCloser) Close() error {
	return r.close()
}

func nopClose() error { return nil }

// NewReader returns a reader that yields decompressed contents of r along with the detected format.
// Uncompressed input is passed through unchanged.
func NewReader(r io.Reader) (io.ReadCloser, Format, error) {
	br := bufio.NewReader(r)

	prefix, err := br.Peek(sniffLength)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, None, errors.Wrap(err, "unable to read header")
	}

	switch f := Detect(prefix); f {
	case Zstd:
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, f, errors.Wrap(err, "unable to open zstd stream")
		}

		return dec.IOReadCloser(), f, nil

	case Gzip:
		gz, err := pgzip.NewReader(br)
		if err != nil {
			return nil, f, errors.Wrap(err, "unable to open gzip stream")
		}

		return gz, f, nil

	case LZ4:
		return readCloser{lz4.NewReader(br), nopClose}, f, nil

	case S2:
		return readCloser{s2.NewReader(br), nopClose}, f, nil

	default:
		return readCloser{br, nopClose}, None, nil
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// NewWriter returns a writer compressing its input into w using the given format.
// Close must be called to flush the compressed stream; it does not close w.
func NewWriter(w io.Writer, f Format) (io.WriteCloser, error) {
	switch f {
	case Zstd:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, errors.Wrap(err, "unable to create zstd compressor")
		}

		return enc, nil

	case Gzip:
		gz, err := pgzip.NewWriterLevel(w, pgzip.DefaultCompression)
		if err != nil {
			return nil, errors.Wrap(err, "unable to create gzip compressor")
		}

		return gz, nil

	case LZ4:
		return lz4.NewWriter(w), nil

	case S2:
		return s2.NewWriter(w), nil

	case None, "":
		return nopWriteCloser{w}, nil

	default:
		return nil, errors.Errorf("unsupported compression format %q", f)
	}
}
