package compression_test

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kopia/treediff/internal/compression"
)

func TestRoundTrip(t *testing.T) {
	payload := strings.Repeat("f\"some file.txt\" 10 1000\n", 100)

	for _, f := range compression.Formats {
		f := compression.Format(f)

		t.Run(string(f), func(t *testing.T) {
			var buf bytes.Buffer

			w, err := compression.NewWriter(&buf, f)
			require.NoError(t, err)

			_, err = io.WriteString(w, payload)
			require.NoError(t, err)
			require.NoError(t, w.Close())

			require.Equal(t, f, compression.Detect(buf.Bytes()))

			r, detected, err := compression.NewReader(&buf)
			require.NoError(t, err)
			require.Equal(t, f, detected)

			got, err := io.ReadAll(r)
			require.NoError(t, err)
			require.NoError(t, r.Close())
			require.Equal(t, payload, string(got))
		})
	}
}

func TestShortInput(t *testing.T) {
	r, f, err := compression.NewReader(strings.NewReader("d"))
	require.NoError(t, err)
	require.Equal(t, compression.None, f)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "d", string(got))
}

func TestUnsupportedWriterFormat(t *testing.T) {
	_, err := compression.NewWriter(io.Discard, "brotli")
	require.ErrorContains(t, err, "unsupported compression format")
}
