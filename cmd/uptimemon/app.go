package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/iaserrat/uptimemon/internal/config"
	"github.com/iaserrat/uptimemon/internal/history"
	"github.com/iaserrat/uptimemon/internal/logging"
	"github.com/iaserrat/uptimemon/internal/monitor"
	"github.com/iaserrat/uptimemon/internal/probe"
)

func runMonitor(c *cli.Context) error {
	cfg, notes := config.Load(c.String("config"))
	for _, n := range notes {
		fmt.Fprintln(os.Stderr, "config: "+n)
	}

	writer, err := logging.New(logging.Config{
		AllPath:     cfg.AllLogPath,
		FailurePath: cfg.FailureLogPath,
		MaxMB:       cfg.MaxLogMB,
		MaxBackups:  cfg.MaxLogBackups,
	})
	if err != nil {
		return cli.Exit(fmt.Sprintf("cannot open logs: %v", err), 1)
	}
	defer writer.Close()

	pinger, err := probe.New(cfg.Pinger)
	if err != nil {
		return cli.Exit(fmt.Sprintf("cannot start pinger: %v", err), 1)
	}
	defer pinger.Close()

	resolver := probe.NewResolver(cfg.Resolver, cfg.Timeout())

	store, err := history.Open(cfg.HistoryDB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "history disabled: %v\n", err)
		store = nil
	}
	defer store.Close()

	duration := time.Duration(c.Int("duration")) * time.Minute
	if c.Int("duration") < 0 {
		duration = promptDuration(os.Stdin, os.Stdout)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "stopping...")
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := resolver.Preresolve(ctx, cfg.Target); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	fmt.Printf("Monitoring %s: %d pings per window, %s between windows\n",
		cfg.Target, cfg.Count, cfg.Interval())
	if duration > 0 {
		fmt.Printf("Running for %s\n", duration)
	} else {
		fmt.Println("Running until interrupted (Ctrl+C to stop)")
	}

	m := monitor.New(monitor.Config{
		Target:   cfg.Target,
		Count:    cfg.Count,
		Timeout:  cfg.Timeout(),
		Interval: cfg.Interval(),
	}, monitor.Deps{
		Pinger:   pinger,
		Log:      writer,
		History:  store,
		Resolver: resolver,
	})

	sum := m.Run(ctx, duration)
	printSummary(os.Stdout, sum)

	return nil
}

func runHistory(c *cli.Context) error {
	cfg, notes := config.Load(c.String("config"))
	for _, n := range notes {
		fmt.Fprintln(os.Stderr, "config: "+n)
	}

	store, err := history.Open(cfg.HistoryDB)
	if err != nil {
		return cli.Exit(fmt.Sprintf("cannot open history: %v", err), 1)
	}
	if store == nil {
		return cli.Exit("history database disabled in config", 1)
	}
	defer store.Close()

	hours := c.Int("since")
	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	st, err := store.Stats(cfg.Target, since)
	if err != nil {
		return cli.Exit(fmt.Sprintf("history query: %v", err), 1)
	}

	fmt.Printf("Target %s, last %dh:\n", cfg.Target, hours)
	fmt.Printf("  windows:  %d\n", st.Windows)
	fmt.Printf("  probes:   %d sent, %d received (%.1f%% loss)\n", st.Sent, st.Received, st.PacketLossPct)
	fmt.Printf("  timeouts: %d\n", st.TimeoutCount)
	if st.AvgPingMs != nil {
		fmt.Printf("  avg ping: %.1fms\n", *st.AvgPingMs)
	} else {
		fmt.Println("  avg ping: no successful windows")
	}

	return nil
}

func printSummary(w io.Writer, sum monitor.Summary) {
	fmt.Fprintln(w, "--- monitoring summary ---")
	fmt.Fprintf(w, "windows:      %d\n", sum.Windows)
	fmt.Fprintf(w, "probes:       %d sent, %d received (%.1f%% loss)\n",
		sum.ProbesSent, sum.ProbesReceived, sum.PacketLossPct)
	fmt.Fprintf(w, "timeouts:     %d\n", sum.TimeoutCount)
	if sum.SmoothedAvgMs > 0 {
		fmt.Fprintf(w, "smoothed avg: %.1fms\n", sum.SmoothedAvgMs)
	} else {
		fmt.Fprintln(w, "smoothed avg: no successful windows")
	}
	fmt.Fprintf(w, "elapsed:      %s\n", sum.Elapsed.Round(time.Millisecond))
}
