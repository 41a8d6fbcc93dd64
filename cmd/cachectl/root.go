package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	tenantcache "github.com/Ants-develop/MultiTenantAccounting-sub002"
	"github.com/Ants-develop/MultiTenantAccounting-sub002/config"
	"github.com/Ants-develop/MultiTenantAccounting-sub002/tracing"
)

// app carries what every subcommand needs. It is filled in by the root
// command's PersistentPreRunE; the caller of Execute must call close.
type app struct {
	out   io.Writer
	trace bool

	log   *zap.Logger
	tp    *sdktrace.TracerProvider
	cache *tenantcache.Cache
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "cachectl",
		Short:        "Inspect and maintain the tenant cache",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context())
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().BoolVar(&a.trace, "trace", false, "print OpenTelemetry spans to stderr")

	root.AddCommand(
		statusCmd(a),
		sweepCmd(a),
		clearCmd(a),
		getCmd(a),
		setCmd(a),
	)
	return root
}

func (a *app) open(ctx context.Context) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, _ := cfg.Level()

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	log, err := zc.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	a.log = log

	opts, _ := cfg.Options()
	opts = append(opts, tenantcache.WithLogger(log), tenantcache.WithoutSweeper())

	if a.trace {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr), stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("trace exporter: %w", err)
		}
		a.tp = sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
		opts = append(opts, tenantcache.WithTracing(tracing.Config{TracerProvider: a.tp}))
	}

	c, err := tenantcache.Open(ctx, opts...)
	if err != nil {
		return err
	}
	a.cache = c
	return nil
}

// execute runs args and releases everything open opened, whatever the
// command's outcome.
func execute(ctx context.Context, out io.Writer, args []string) error {
	a := &app{out: out}
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return errors.Join(err, a.close(ctx))
}

func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	if a.tp != nil {
		errs = append(errs, a.tp.Shutdown(ctx))
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
	return errors.Join(errs...)
}
