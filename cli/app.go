// Package cli implements the treediff command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/mattn/go-colorable"
	"github.com/pkg/errors"

	"github.com/kopia/treediff/internal/logging"
	"github.com/kopia/treediff/internal/metrics"
)

var log = logging.Module("treediff/cli")

const defaultEnvNamePrefix = "TREEDIFF_"

type commandParent interface {
	Command(name, help string) *kingpin.CmdClause
}

type appServices interface {
	baseActionWithContext(act func(ctx context.Context) error) func(ctx *kingpin.ParseContext) error
	rootContext() context.Context
	metricsRegistry() *metrics.Registry
	loadFlags() *loadFlags

	stdin() io.Reader
	stdout() io.Writer
	stderr() io.Writer
	EnvName(s string) string
}

// App contains per-invocation flags and state of treediff CLI.
type App struct {
	envNamePrefix string

	loader loadFlags
	obs    observabilityFlags

	diff    commandDiff
	compare commandCompare
	tree    commandTree

	metrics *metrics.Registry

	loggerFactory logging.LoggerForModuleFunc
	rootctx       context.Context //nolint:containedctx

	stdinReader  io.Reader
	stdoutWriter io.Writer
	stderrWriter io.Writer

	exitWithError func(err error)
}

// NewApp creates a new instance of App.
func NewApp() *App {
	return &App{
		envNamePrefix: defaultEnvNamePrefix,
		metrics:       metrics.NewRegistry(),

		stdinReader:  os.Stdin,
		stdoutWriter: colorable.NewColorableStdout(),
		stderrWriter: colorable.NewColorableStderr(),
		rootctx:      context.Background(),

		exitWithError: func(err error) {
			if err != nil {
				fmt.Fprintf(os.Stderr, "ERROR: %v\n", err) //nolint:errcheck
				os.Exit(1)
			}
		},
	}
}

// SetLoggerFactory sets the logger factory to be used by the application.
func (c *App) SetLoggerFactory(loggerForModule logging.LoggerForModuleFunc) {
	c.loggerFactory = loggerForModule
}

// SetStreams overrides standard input, output and error of the application.
func (c *App) SetStreams(stdin io.Reader, stdout, stderr io.Writer) {
	c.stdinReader = stdin
	c.stdoutWriter = stdout
	c.stderrWriter = stderr
}

// Stdout returns the stdout writer.
func (c *App) Stdout() io.Writer {
	return c.stdoutWriter
}

// Stderr returns the stderr writer.
func (c *App) Stderr() io.Writer {
	return c.stderrWriter
}

func (c *App) stdin() io.Reader  { return c.stdinReader }
func (c *App) stdout() io.Writer { return c.stdoutWriter }
func (c *App) stderr() io.Writer { return c.stderrWriter }

func (c *App) metricsRegistry() *metrics.Registry { return c.metrics }

func (c *App) loadFlags() *loadFlags { return &c.loader }

// EnvName overrides the provided environment variable name for testability.
func (c *App) EnvName(n string) string {
	return strings.Replace(n, defaultEnvNamePrefix, c.envNamePrefix, 1)
}

func (c *App) rootContext() context.Context {
	ctx := c.rootctx

	if c.loggerFactory != nil {
		ctx = logging.WithLogger(ctx, c.loggerFactory)
	}

	return ctx
}

// Attach attaches the CLI parser to the application.
func (c *App) Attach(app *kingpin.Application) {
	app.UsageWriter(c.stdoutWriter)
	app.ErrorWriter(c.stderrWriter)

	c.loader.setup(c, app)
	c.obs.setup(c, app)

	c.diff.setup(c, app)
	c.compare.setup(c, app)
	c.tree.setup(c, app)
}

// Run parses the provided arguments and runs the selected command in the
// current process, returning the error of the command.
func (c *App) Run(ctx context.Context, app *kingpin.Application, args []string) error {
	var cmdErr error

	c.rootctx = ctx
	c.exitWithError = func(err error) {
		cmdErr = err
	}

	c.Attach(app)

	if _, err := app.Parse(args); err != nil {
		return errors.Wrap(err, "invalid command line")
	}

	return cmdErr
}

func (c *App) baseActionWithContext(act func(ctx context.Context) error) func(ctx *kingpin.ParseContext) error {
	return func(_ *kingpin.ParseContext) error {
		if err := c.runAppWithContext(act); err != nil {
			c.exitWithError(err)
		}

		return nil
	}
}

func (c *App) runAppWithContext(act func(ctx context.Context) error) error {
	ctx := c.rootContext()

	if err := c.obs.startMetrics(ctx); err != nil {
		return errors.Wrap(err, "unable to start metrics")
	}

	err := act(ctx)

	c.metrics.Log(ctx)
	c.obs.stopMetrics(ctx)

	return err
}
