// Package atomicfile writes result files atomically, so readers never observe a partially written file.
package atomicfile

import (
	"bytes"
	"io"
	"runtime"

	"github.com/natefinch/atomic"
	"github.com/pkg/errors"
)

const maxPathLength = 260

// MaybePrefixLongFilenameOnWindows prefixes the given filename with \\?\ on Windows
// if the filename is longer than 260 characters.
func MaybePrefixLongFilenameOnWindows(fname string) string {
	if runtime.GOOS != "windows" {
		return fname
	}

	if len(fname) < maxPathLength {
		return fname
	}

	return "\\\\?\\" + fname
}

// Write atomically replaces the contents of filename with the contents of r.
func Write(filename string, r io.Reader) error {
	return errors.Wrapf(atomic.WriteFile(MaybePrefixLongFilenameOnWindows(filename), r), "unable to write %v", filename)
}

// WriteBytes atomically replaces the contents of filename with b.
func WriteBytes(filename string, b []byte) error {
	return Write(filename, bytes.NewReader(b))
}
