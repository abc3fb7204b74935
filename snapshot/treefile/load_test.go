package treefile_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kopia/treediff/internal/compression"
	"github.com/kopia/treediff/internal/metrics"
	"github.com/kopia/treediff/internal/testlogging"
	"github.com/kopia/treediff/snapshot/treefile"
)

func writeListing(t *testing.T, f compression.Format, contents string) string {
	t.Helper()

	var buf bytes.Buffer

	w, err := compression.NewWriter(&buf, f)
	require.NoError(t, err)

	_, err = w.Write([]byte(contents))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	fname := filepath.Join(t.TempDir(), "listing-"+string(f))
	require.NoError(t, os.WriteFile(fname, buf.Bytes(), 0o600))

	return fname
}

func TestLoadCompressed(t *testing.T) {
	ctx := testlogging.Context(t)
	want := mustDecode(t, sampleListing)

	for _, f := range []compression.Format{compression.None, compression.Zstd, compression.Gzip} {
		t.Run(string(f), func(t *testing.T) {
			reg := metrics.NewRegistry()

			tree, err := treefile.Load(ctx, writeListing(t, f, sampleListing), treefile.LoadOptions{Metrics: reg})
			require.NoError(t, err)
			require.Equal(t, dumpTree(want), dumpTree(tree))
			require.Equal(t, want.Digest(), tree.Digest())

			require.EqualValues(t, len(sampleListing), reg.CounterInt64("tree_decoded_bytes", "", nil).Snapshot())
			require.EqualValues(t, 8, reg.CounterInt64("tree_decoded_entries", "", nil).Snapshot())
			require.EqualValues(t, 1, reg.DurationDistribution("tree_decode_duration", "", nil).Snapshot().Count)
			require.EqualValues(t, tree.Len(), reg.GaugeInt64("tree_last_loaded_entries", "", nil).Snapshot(false))
			require.EqualValues(t, tree.Stats().MaxDepth, reg.GaugeInt64("tree_last_loaded_max_depth", "", nil).Snapshot(false))
			require.NotZero(t, tree.Stats().MaxDepth)
		})
	}
}

func TestLoadStdin(t *testing.T) {
	tree, err := treefile.Load(testlogging.Context(t), treefile.StdinPath, treefile.LoadOptions{
		Stdin: strings.NewReader(sampleListing),
	})
	require.NoError(t, err)
	require.Equal(t, 8, tree.Len())
}

func TestLoadMaxSize(t *testing.T) {
	ctx := testlogging.Context(t)
	fname := writeListing(t, compression.Zstd, sampleListing)

	_, err := treefile.Load(ctx, fname, treefile.LoadOptions{MaxSize: int64(len(sampleListing) - 1)})
	require.ErrorIs(t, err, treefile.ErrTooLarge)

	tree, err := treefile.Load(ctx, fname, treefile.LoadOptions{MaxSize: int64(len(sampleListing))})
	require.NoError(t, err)
	require.Equal(t, 8, tree.Len())
}

func TestLoadErrors(t *testing.T) {
	ctx := testlogging.Context(t)

	_, err := treefile.Load(ctx, filepath.Join(t.TempDir(), "missing"), treefile.LoadOptions{})
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = treefile.Load(ctx, writeListing(t, compression.Gzip, "d\"a\" 1\nd\"..\"\nd\"..\"\n"), treefile.LoadOptions{})
	require.ErrorIs(t, err, treefile.ErrUnbalancedClose)
	require.ErrorContains(t, err, "invalid tree listing")

	_, err = treefile.Load(ctx, writeListing(t, compression.None, "f\"a\" 1"), treefile.LoadOptions{})
	require.ErrorIs(t, err, treefile.ErrTruncatedData)
}
