package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/roach88/fetchr/internal/canonical"
	"github.com/roach88/fetchr/internal/fetcher"
	"github.com/roach88/fetchr/internal/metrics"
	"github.com/roach88/fetchr/internal/spec"
)

// FetchOptions holds flags for the fetch command.
type FetchOptions struct {
	*RootOptions
	ReadCache   bool
	WriteCache  bool
	MetricsAddr string
}

// FetchResult is the JSON payload of a successful fetch.
type FetchResult struct {
	Summaries map[string]spec.Summary `json:"summaries"`
}

// NewFetchCommand creates the fetch command.
func NewFetchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FetchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fetch <specs-file>",
		Short: "Fetch a batch of specs",
		Long: `Fetch the specs in a JSON or YAML file and print their summaries.

The file maps caller-chosen keys to specs:

  listing:  {model: Listing, params: {id: 1}}
  listings: {collection: Listings, params: {page: 1}}

Cache reads and writes default to on in the client environment and off on
the server; --read-cache and --write-cache override them.

With --metrics-addr, Prometheus metrics are served on that address after
the fetch until the command is interrupted.

Exit codes:
  0 - Fetch succeeded
  1 - Fetch failed
  2 - Command error (config, types, specs file, store)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.ReadCache, "read-cache", false, "read from the store (default: environment)")
	cmd.Flags().BoolVar(&opts.WriteCache, "write-cache", false, "write results to the store (default: environment)")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	return cmd
}

func runFetch(cmd *cobra.Command, opts *FetchOptions, specsPath string) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	specs, err := LoadSpecs(specsPath)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeSpecs, err)
	}

	rt, err := NewRuntime(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return formatter.fail(exitErr.Code, exitErr.Message, exitErr.Err)
		}
		return formatter.fail(ExitCommandError, ErrCodeGeneric, err)
	}
	defer rt.Close()

	var reg *prometheus.Registry
	if opts.MetricsAddr != "" {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		collector := metrics.New(metrics.DefaultNamespace)
		if err := collector.Register(reg); err != nil {
			return formatter.fail(ExitCommandError, ErrCodeGeneric, err)
		}
		collector.Attach(rt.Fetcher)
	}

	var fetchOpts []fetcher.FetchOption
	if cmd.Flags().Changed("read-cache") {
		fetchOpts = append(fetchOpts, fetcher.WithReadFromCache(opts.ReadCache))
	}
	if cmd.Flags().Changed("write-cache") {
		fetchOpts = append(fetchOpts, fetcher.WithWriteToCache(opts.WriteCache))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	results, err := rt.Fetcher.Fetch(ctx, specs, fetchOpts...)
	rt.Fetcher.WaitBackground()
	if err != nil {
		return formatter.fail(ExitFailure, ErrCodeFetchFailed, err)
	}

	summaries, err := fetcher.SummarizeAll(results)
	if err != nil {
		return formatter.fail(ExitFailure, ErrCodeFetchFailed, err)
	}
	if err := outputSummaries(formatter, summaries); err != nil {
		return err
	}

	if reg != nil {
		return serveMetrics(ctx, rt, opts.MetricsAddr, reg)
	}
	return nil
}

func outputSummaries(f *OutputFormatter, summaries map[string]spec.Summary) error {
	if f.Format == "json" {
		return f.Success(FetchResult{Summaries: summaries})
	}
	for _, key := range canonical.SortedKeys(summaries) {
		data, err := summaries[key].MarshalJSON()
		if err != nil {
			return err
		}
		fmt.Fprintf(f.Writer, "%s\t%s\n", key, data)
	}
	return nil
}

// serveMetrics blocks serving reg on addr until ctx is done.
func serveMetrics(ctx context.Context, rt *Runtime, addr string, reg *prometheus.Registry) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return WrapExitError(ExitCommandError, "metrics listen failed", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	rt.Logger.Info("serving metrics", "addr", ln.Addr().String(), "path", "/metrics")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
