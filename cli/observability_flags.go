package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"

	"github.com/kopia/treediff/internal/atomicfile"
	"github.com/kopia/treediff/internal/clock"
)

// DirMode is the directory mode for output directories.
const DirMode = 0o700

type observabilityFlags struct {
	metricsOutputDir  string
	outputFilePrefix  string
	otlpTraceEndpoint string
	otlpInsecure      bool

	traceProvider *trace.TracerProvider
}

func (c *observabilityFlags) setup(svc appServices, app *kingpin.Application) {
	app.Flag("metrics-directory", "Directory where the metrics should be saved when treediff exits. A file per process execution will be created in this directory").Envar(svc.EnvName("TREEDIFF_METRICS_DIRECTORY")).Hidden().StringVar(&c.metricsOutputDir)
	app.Flag("otlp-trace-endpoint", "Emit OpenTelemetry traces to the OTLP gRPC collector at host:port").Envar(svc.EnvName("TREEDIFF_OTLP_TRACE_ENDPOINT")).Hidden().StringVar(&c.otlpTraceEndpoint)
	app.Flag("otlp-insecure", "Connect to the OTLP collector without TLS").Envar(svc.EnvName("TREEDIFF_OTLP_INSECURE")).Hidden().BoolVar(&c.otlpInsecure)

	app.PreAction(c.initialize)
}

func (c *observabilityFlags) initialize(ctx *kingpin.ParseContext) error {
	if c.metricsOutputDir == "" {
		return nil
	}

	// write to a separate file per command and process execution to avoid
	// conflicts with previously created files
	command := "unknown"
	if cmd := ctx.SelectedCommand; cmd != nil {
		command = strings.ReplaceAll(cmd.FullCommand(), " ", "-")
	}

	c.outputFilePrefix = clock.Now().Format("20060102-150405-") + command

	return nil
}

func (c *observabilityFlags) startMetrics(ctx context.Context) error {
	if c.metricsOutputDir != "" {
		c.metricsOutputDir = filepath.Clean(c.metricsOutputDir)

		// ensure the metrics output dir can be created
		if err := os.MkdirAll(c.metricsOutputDir, DirMode); err != nil {
			return errors.Wrapf(err, "could not create metrics output directory: %s", c.metricsOutputDir)
		}
	}

	return c.maybeStartTraceExporter(ctx)
}

func (c *observabilityFlags) maybeStartTraceExporter(ctx context.Context) error {
	if c.otlpTraceEndpoint == "" {
		return nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(c.otlpTraceEndpoint)}
	if c.otlpInsecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	se, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return errors.Wrap(err, "unable to create OTLP exporter")
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(se),
		trace.WithResource(resource.NewSchemaless(attribute.String("service.name", "treediff"))),
	)

	otel.SetTracerProvider(tp)

	c.traceProvider = tp

	log(ctx).Debugf("exporting traces to %v", c.otlpTraceEndpoint)

	return nil
}

func (c *observabilityFlags) stopMetrics(ctx context.Context) {
	if c.traceProvider != nil {
		if err := c.traceProvider.Shutdown(ctx); err != nil {
			log(ctx).Warnf("unable to shutdown trace provider: %v", err)
		}
	}

	if c.metricsOutputDir != "" {
		filename := filepath.Join(c.metricsOutputDir, c.outputFilePrefix+".prom")

		if err := writeMetrics(filename, prometheus.DefaultGatherer); err != nil {
			log(ctx).Warnf("unable to write metrics file '%s': %v", filename, err)
		}
	}
}

func writeMetrics(filename string, g prometheus.Gatherer) error {
	mfs, err := g.Gather()
	if err != nil {
		return errors.Wrap(err, "unable to gather metrics")
	}

	var buf bytes.Buffer

	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))

	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return errors.Wrap(err, "unable to encode metrics")
		}
	}

	return atomicfile.Write(filename, &buf)
}
