package treefile

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kopia/treediff/internal/clock"
	"github.com/kopia/treediff/internal/compression"
	"github.com/kopia/treediff/internal/iocopy"
	"github.com/kopia/treediff/internal/logging"
	"github.com/kopia/treediff/internal/metrics"
)

var log = logging.Module("treefile")

var tracer = otel.Tracer("treediff/treefile")

// StdinPath is the path that causes Load to read from standard input.
const StdinPath = "-"

// ErrTooLarge is returned by Load when the decompressed listing exceeds LoadOptions.MaxSize.
var ErrTooLarge = errors.New("tree listing exceeds maximum size")

// LoadOptions controls Load.
type LoadOptions struct {
	// MaxSize limits the number of decompressed bytes accepted, zero means unlimited.
	MaxSize int64

	// Metrics receives decode timings and sizes, may be nil.
	Metrics *metrics.Registry

	// Stdin is used when the path is StdinPath, defaults to os.Stdin.
	Stdin io.Reader
}

type limitedWriter struct {
	w         io.Writer
	remaining int64
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	if int64(len(p)) > l.remaining {
		return 0, ErrTooLarge
	}

	l.remaining -= int64(len(p))

	return l.w.Write(p)
}

// Load reads, decompresses if necessary and decodes the listing stored at path.
func Load(ctx context.Context, path string, opt LoadOptions) (*Tree, error) {
	ctx, span := tracer.Start(ctx, "LoadTree")
	defer span.End()

	span.SetAttributes(attribute.String("path", path))

	var src io.Reader

	if path == StdinPath {
		src = opt.Stdin
		if src == nil {
			src = os.Stdin
		}
	} else {
		f, err := os.Open(path) //nolint:gosec
		if err != nil {
			return nil, errors.Wrap(err, "unable to open tree file")
		}

		defer f.Close() //nolint:errcheck

		src = f
	}

	r, format, err := compression.NewReader(src)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read %v", path)
	}

	defer r.Close() //nolint:errcheck

	t0 := clock.Now()
	d := NewDecoder()

	var w io.Writer = d
	if opt.MaxSize > 0 {
		w = &limitedWriter{d, opt.MaxSize}
	}

	if _, err := iocopy.Copy(w, r); err != nil {
		var fe *FormatError
		if errors.As(err, &fe) {
			return nil, errors.Wrapf(err, "invalid tree listing %v", path)
		}

		if errors.Is(err, ErrTooLarge) {
			return nil, errors.Wrapf(err, "%v is larger than %v bytes", path, opt.MaxSize)
		}

		return nil, errors.Wrapf(err, "error reading %v", path)
	}

	t, err := d.Tree()
	if err != nil {
		return nil, errors.Wrapf(err, "invalid tree listing %v", path)
	}

	dt := clock.Since(t0)
	st := t.Stats()

	opt.Metrics.DurationDistribution("tree_decode_duration", "Time spent decoding tree listings", nil).Observe(dt)
	opt.Metrics.CounterInt64("tree_decoded_bytes", "Number of decoded listing bytes", nil).Add(st.InputBytes)
	opt.Metrics.CounterInt64("tree_decoded_entries", "Number of decoded entries", nil).Add(int64(t.Len()))
	opt.Metrics.GaugeInt64("tree_last_loaded_entries", "Number of entries in the most recently loaded listing", nil).Set(int64(t.Len()))
	opt.Metrics.GaugeInt64("tree_last_loaded_max_depth", "Maximum depth of the most recently loaded listing", nil).Set(int64(st.MaxDepth))

	span.SetAttributes(
		attribute.String("compression", string(format)),
		attribute.Int("entries", t.Len()),
		attribute.Int64("bytes", st.InputBytes),
	)

	log(ctx).Debugf("loaded %v (%v, %v bytes): %v files, %v directories in %v",
		path, format, st.InputBytes, st.Files, st.Directories, dt)

	return t, nil
}
