package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"argjournal/internal/core"
	"argjournal/internal/metrics"
	"argjournal/internal/sim"
	"argjournal/pkg/domain"
)

type simulateFlags struct {
	population  int
	generations int64
	interval    int64
	replicates  int
	archive     string
	runID       string
	metricsAddr string
	check       bool
}

type replicateResult struct {
	runID    string
	seed     uint64
	summary  sim.Summary
	segments int64
}

func newSimulateCmd(a *app) *cobra.Command {
	f := &simulateFlags{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run Wright-Fisher replicates, archiving every compaction segment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			applyFlagOverrides(cmd, a, f)
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return runSimulate(cmd, a, f)
		},
	}
	fl := cmd.Flags()
	fl.IntVar(&f.population, "population", 0, "diploid population size N")
	fl.Int64Var(&f.generations, "generations", 0, "generations per replicate")
	fl.Int64Var(&f.interval, "interval", 0, "compact every K generations (0 disables)")
	fl.IntVar(&f.replicates, "replicates", 0, "independent replicates run concurrently")
	fl.StringVar(&f.archive, "archive", "", "segment archive driver: memory|sqlite|postgres|blob")
	fl.StringVar(&f.runID, "run-id", "", "base run id (default random)")
	fl.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9100")
	fl.BoolVar(&f.check, "check", false, "verify every handoff before it is archived")
	return cmd
}

func applyFlagOverrides(cmd *cobra.Command, a *app, f *simulateFlags) {
	fl := cmd.Flags()
	if fl.Changed("population") {
		a.cfg.Population = f.population
	}
	if fl.Changed("generations") {
		a.cfg.Generations = f.generations
	}
	if fl.Changed("interval") {
		a.cfg.CompactionInterval = f.interval
	}
	if fl.Changed("replicates") {
		a.cfg.Replicates = f.replicates
	}
	if fl.Changed("archive") {
		a.cfg.Archive.Driver = f.archive
	}
}

func runSimulate(cmd *cobra.Command, a *app, f *simulateFlags) error {
	ctx := cmd.Context()
	store, err := core.OpenArchiveStore(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer func() { _ = store.Close() }()

	var collector *metrics.Collector
	if f.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		collector = metrics.NewCollector(reg)
		stop, err := serveMetrics(f.metricsAddr, reg, a.logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	base := f.runID
	if base == "" {
		base = uuid.NewString()
	}
	results := make([]replicateResult, a.cfg.Replicates)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range results {
		g.Go(func() error {
			runID := fmt.Sprintf("%s-%d", base, i)
			res, err := runReplicate(gctx, a, store, collector, runID, a.cfg.Seed+uint64(i), f.check)
			if err != nil {
				return fmt.Errorf("replicate %s: %w", runID, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return printSummaries(cmd, results)
}

func runReplicate(ctx context.Context, a *app, store domain.ArchiveStore, collector *metrics.Collector, runID string, seed uint64, check bool) (replicateResult, error) {
	logger := a.logger.With(slog.String("run", runID))
	opts := []core.Option{core.WithLogger(logger), core.WithStrict(a.cfg.Journal.Strict)}
	if collector != nil {
		opts = append(opts, core.WithMetrics(metrics.Tee(collector.ForRun(runID), metrics.NewExpvarRecorder("argjournal_"+runID))))
	}
	j, err := core.NewJournal(a.cfg.Population, opts...)
	if err != nil {
		return replicateResult{}, err
	}
	archiver := core.NewArchivingSimplifier(store, core.TruncatingSimplifier{}, runID)
	var policy core.CompactionPolicy = core.IntervalPolicy{Every: a.cfg.CompactionInterval}
	sum, err := sim.Run(ctx, sim.Params{
		Generations:       a.cfg.Generations,
		RecombinationRate: a.cfg.RecombinationRate,
		Seed:              seed,
		Check:             check,
		Logger:            logger,
	}, j, policy, archiver)
	if err != nil {
		return replicateResult{}, err
	}
	return replicateResult{runID: runID, seed: seed, summary: sum, segments: archiver.Segments()}, nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/debug/vars", expvar.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", slog.Any("error", err))
		}
	}()
	logger.Info("serving metrics", slog.String("addr", ln.Addr().String()))
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

func printSummaries(cmd *cobra.Command, results []replicateResult) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSEED\tGENERATIONS\tCOMPACTIONS\tSEGMENTS\tEDGES\tNEXT_ID\tELAPSED")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n",
			r.runID, r.seed, r.summary.Generations, r.summary.Compactions, r.segments,
			r.summary.EdgesRecorded, r.summary.NextID, r.summary.Elapsed.Round(time.Millisecond))
	}
	return tw.Flush()
}
