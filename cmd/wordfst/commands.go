package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/bastiangx/wordfst/internal/cli"
	"github.com/bastiangx/wordfst/internal/tui"
	"github.com/bastiangx/wordfst/internal/utils"
	"github.com/bastiangx/wordfst/pkg/config"
	"github.com/bastiangx/wordfst/pkg/dictionary"
	"github.com/bastiangx/wordfst/pkg/metrics"
	"github.com/bastiangx/wordfst/pkg/server"
	"github.com/bastiangx/wordfst/pkg/suggest"
	"github.com/bastiangx/wordfst/pkg/watch"
	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	forceBuild  bool
	watchSource bool
	metricsAddr string
	resetConfig bool

	buildCmd = &cobra.Command{
		Use:   "build",
		Short: "Compile the word list into an index file",
		Args:  cobra.NoArgs,
		RunE:  runBuild,
	}
	searchCmd = &cobra.Command{
		Use:   "search",
		Short: "Search from a line prompt",
		Args:  cobra.NoArgs,
		RunE:  runSearch,
	}
	tuiCmd = &cobra.Command{
		Use:   "tui",
		Short: "Search from an interactive terminal UI",
		Args:  cobra.NoArgs,
		RunE:  runTUI,
	}
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve msgpack requests over stdin/stdout",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	inspectCmd = &cobra.Command{
		Use:   "inspect [file]",
		Short: "Describe an index file or word list (default: the configured index)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runInspect,
	}
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Show the active config file",
		Args:  cobra.NoArgs,
		RunE:  runConfig,
	}
)

func init() {
	buildCmd.Flags().BoolVar(&forceBuild, "force", false, "Rebuild even when the index is up to date")
	serveCmd.Flags().BoolVar(&watchSource, "watch", false, "Rebuild and reload when the source changes (overrides server.watch)")
	serveCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (overrides server.metrics_addr)")
	configCmd.Flags().BoolVar(&resetConfig, "reset", false, "Overwrite the default config file with defaults")
}

// app carries everything a command needs once config is loaded.
type app struct {
	cfg        *config.Config
	configPath string
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	buildMu    sync.Mutex
}

func newApp(cfg *config.Config, configPath string) *app {
	reg := prometheus.NewRegistry()
	return &app{
		cfg:        cfg,
		configPath: configPath,
		registry:   reg,
		metrics:    metrics.New(reg),
	}
}

func (a *app) readOptions() dictionary.ReadOptions {
	return dictionary.ReadOptions{Sort: a.cfg.Index.SortSource}
}

// ensureIndex rebuilds when stale or forced and records the attempt.
func (a *app) ensureIndex(force bool) (bool, error) {
	a.buildMu.Lock()
	defer a.buildMu.Unlock()

	built, stats, err := dictionary.EnsureIndex(a.cfg.Index.Source, a.cfg.Index.Path, force, a.readOptions())
	if built || err != nil {
		a.metrics.ObserveBuild(stats.Duration, err)
	}
	if err != nil {
		return false, err
	}
	if built {
		log.Debug("Build",
			"lines", stats.Read.Lines,
			"entries", stats.Read.Entries,
			"skipped", stats.Read.Skipped,
			"merged", stats.Read.Merged,
			"finals", stats.Index.Finals,
			"edges", stats.Index.Edges)
	}
	return built, nil
}

func (a *app) openDictionary() (*suggest.Dictionary, error) {
	if _, err := a.ensureIndex(false); err != nil {
		return nil, err
	}
	s := a.cfg.Search
	return suggest.Open(a.cfg.Index.Path, suggest.Options{
		Limit:       s.Limit,
		MaxLimit:    s.MaxLimit,
		MaxDistance: s.MaxDistance,
		CacheSize:   s.CacheSize,
		Timeout:     s.Timeout(),
		Verify:      a.cfg.Index.Verify,
		Metrics:     a.metrics,
	})
}

// refresh rebuilds from source if needed and swaps the new index in.
func (a *app) refresh(dict *suggest.Dictionary) func(context.Context) error {
	return func(ctx context.Context) error {
		if _, err := a.ensureIndex(false); err != nil {
			return err
		}
		return dict.Reload()
	}
}

func runBuild(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	built, err := a.ensureIndex(forceBuild)
	if err != nil {
		return err
	}
	if !built {
		log.Infof("Index %s is up to date (use --force to rebuild)", a.cfg.Index.Path)
	}
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	dict, err := a.openDictionary()
	if err != nil {
		return err
	}
	defer dict.Close()

	log.SetReportTimestamp(false)
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return cli.NewInputHandler(dict, a.cfg.CLI.ExitSentinel).Start(ctx)
}

func runTUI(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	dict, err := a.openDictionary()
	if err != nil {
		return err
	}
	defer dict.Close()
	return tui.Run(dict)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("watch") {
		a.cfg.Server.Watch = watchSource
	}
	if metricsAddr != "" {
		a.cfg.Server.MetricsAddr = metricsAddr
	}

	if a.cfg.Server.Watch && a.cfg.Index.Source == "" {
		return errors.New("--watch needs index.source")
	}

	dict, err := a.openDictionary()
	if err != nil {
		return err
	}
	defer dict.Close()

	refresh := a.refresh(dict)
	var w *watch.Watcher
	if a.cfg.Server.Watch {
		w, err = watch.New(a.cfg.Index.Source, a.cfg.Server.Debounce(), refresh)
		if err != nil {
			return err
		}
		defer w.Close()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	srv := server.NewServer(dict, server.Options{Metrics: a.metrics, Reload: refresh})

	g.Go(func() error {
		// Reading stdin cannot be interrupted, so a signal leaves this
		// goroutine behind and lets the process exit.
		done := make(chan error, 1)
		go func() { done <- srv.Start(gctx) }()
		select {
		case err := <-done:
			stop()
			return err
		case <-gctx.Done():
			return nil
		}
	})

	if addr := a.cfg.Server.MetricsAddr; addr != "" {
		a.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		g.Go(func() error {
			return metrics.Serve(gctx, addr, a.registry)
		})
	}

	if w != nil {
		g.Go(func() error {
			return w.Run(gctx)
		})
		log.Infof("Watching %s for changes", w.Path())
	}

	showStartupInfo(a, dict)
	err = g.Wait()
	log.Debugf("Served %d requests", srv.Requests())
	return err
}

// showStartupInfo displays some basic info about the init process.
func showStartupInfo(a *app, dict *suggest.Dictionary) {
	stats := dict.Stats()
	log.Infof("%s %s ready (pid %d)", AppName, Version, os.Getpid())
	log.Infof("index: %s (%s keys)", dict.Path(), utils.FormatWithCommas(uint64(stats["keys"])))
	log.Infof("config: %s", config.GetActiveConfigPath(a.configPath))
	if addr := a.cfg.Server.MetricsAddr; addr != "" {
		log.Infof("metrics: http://%s/metrics", addr)
	}
}

func runInspect(cmd *cobra.Command, args []string) error {
	var path string
	if len(args) == 1 {
		path = args[0]
	} else {
		a, err := loadApp()
		if err != nil {
			return err
		}
		path = a.cfg.Index.Path
	}

	info, err := dictionary.Inspect(path)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n", info.Path)
	fmt.Fprintf(out, "  format: %s\n", info.Format)
	fmt.Fprintf(out, "  size:   %s bytes\n", utils.FormatWithCommas(uint64(info.Size)))
	switch info.Format {
	case dictionary.FormatIndex:
		h := info.Header
		fmt.Fprintf(out, "  version: %d\n", h.Version)
		fmt.Fprintf(out, "  keys:    %s\n", utils.FormatWithCommas(h.Keys))
		fmt.Fprintf(out, "  states:  %s\n", utils.FormatWithCommas(uint64(h.States)))
		fmt.Fprintf(out, "  edges:   %s\n", utils.FormatWithCommas(uint64(h.Edges)))
		fmt.Fprintf(out, "  finals:  %s\n", utils.FormatWithCommas(uint64(h.Finals)))
	case dictionary.FormatText:
		fmt.Fprintf(out, "  lines:   %s\n", utils.FormatWithCommas(uint64(info.Lines)))
	}
	return nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	if resetConfig {
		path, err := config.RebuildConfigFile()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote defaults to %s\n", path)
		return nil
	}
	_, used, err := config.LoadConfigWithPriority(configPath)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), config.GetActiveConfigPath(used))
	return nil
}
