// droidtriage parses Android diagnostic captures (bugreports, logcat and
// kernel logs), runs pass/fail heuristics over them, and reports failures
// on the terminal, as JSON, or via ntfy webhook.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/setevik/droidtriage/internal/analyzer"
	"github.com/setevik/droidtriage/internal/capture"
	"github.com/setevik/droidtriage/internal/config"
	"github.com/setevik/droidtriage/internal/heuristic"
	"github.com/setevik/droidtriage/internal/reporter"
	"github.com/setevik/droidtriage/internal/store"
)

var version = "dev"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "analyze":
			os.Exit(runAnalyze(os.Args[2:]))
		case "capture":
			runCapture(os.Args[2:])
			return
		case "history":
			runHistory(os.Args[2:])
			return
		case "test-notify":
			runTestNotify(os.Args[2:])
			return
		case "version":
			fmt.Println("droidtriage", version)
			return
		}
	}

	// Default: analyze.
	os.Exit(runAnalyze(os.Args[1:]))
}

// --- analyze subcommand ---

// runAnalyze returns the process exit code: 0 when every heuristic passed,
// 2 when any failed and 1 on error.
func runAnalyze(args []string) int {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	jsonOut := fs.Bool("json", false, "print the report as JSON")
	notify := fs.Bool("notify", false, "send failures via ntfy")
	useDB := fs.Bool("db", false, "record verdicts in the history database")
	verbose := fs.Bool("v", false, "print details of failed heuristics")
	device := fs.String("device", "", "device name for the report (default: serial from the bugreport)")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: droidtriage analyze [flags] FILE|GLOB... (- reads stdin)")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	if fs.NArg() == 0 {
		fs.Usage()
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		return 1
	}

	setupLogging(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	paths, err := capture.Expand(fs.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	captures, err := openCaptures(paths)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading captures: %v\n", err)
		return 1
	}

	name := *device
	if name == "" {
		name = cfg.Device.Serial
	}
	a := analyzer.New(analyzer.Options{
		Thresholds: cfg.HeuristicThresholds(),
		TailSize:   cfg.Parse.TailLines,
		Year:       cfg.Parse.Year,
		Device:     name,
	})

	rep, err := a.Run(ctx, captures)
	if err != nil {
		if isCanceled(err) {
			fmt.Fprintln(os.Stderr, "interrupted")
		} else {
			fmt.Fprintf(os.Stderr, "error analyzing captures: %v\n", err)
		}
		return 1
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			fmt.Fprintf(os.Stderr, "error encoding report: %v\n", err)
			return 1
		}
	} else {
		reporter.FormatReport(os.Stdout, rep, *verbose)
	}

	if *useDB || *notify {
		if err := record(ctx, cfg, rep, *useDB, *notify); err != nil {
			fmt.Fprintf(os.Stderr, "error recording report: %v\n", err)
			return 1
		}
	}

	if rep.Failed() {
		return 2
	}
	return 0
}

func openCaptures(paths []string) ([]*capture.Capture, error) {
	captures := make([]*capture.Capture, 0, len(paths))
	for _, p := range paths {
		if p == "-" {
			c, err := capture.Read(os.Stdin)
			if err != nil {
				return nil, fmt.Errorf("stdin: %w", err)
			}
			c.Path = "stdin"
			captures = append(captures, c)
			continue
		}
		c, err := capture.Open(p)
		if err != nil {
			return nil, err
		}
		slog.Debug("capture opened", "path", p, "kind", c.Kind, "lines", len(c.Lines))
		captures = append(captures, c)
	}
	return captures, nil
}

// record stores the report and sends its failures. With a database, each
// failure goes through the cooldown check before it is sent; without one,
// every failure is sent.
func record(ctx context.Context, cfg *config.Config, rep *analyzer.Report, useDB, notify bool) error {
	ntfy, err := reporter.NewNtfy(cfg)
	if err != nil {
		return err
	}

	if !useDB {
		return ntfy.Report(ctx, rep, rep.Failures())
	}

	db, err := store.Open(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("opening history database: %w", err)
	}
	defer db.Close()

	verdicts, err := db.InsertReport(rep)
	if err != nil {
		return err
	}
	slog.Info("report stored", "run", rep.ID, "verdicts", len(verdicts), "path", cfg.DB.Path)

	if !notify {
		return nil
	}

	var send []heuristic.Result
	var pending []*store.Verdict
	for i, v := range verdicts {
		if v.Status != heuristic.Failed {
			continue
		}
		dedup, err := db.CheckCooldown(v, cfg.Ntfy.Cooldown.Duration, cfg.Ntfy.AggregateThreshold)
		if err != nil {
			slog.Error("cooldown check failed", "error", err)
		}
		if !dedup.ShouldAlert {
			slog.Debug("notification suppressed by cooldown",
				"type", v.Type,
				"recent_count", dedup.RecentCount,
			)
			continue
		}
		res := rep.Results[i]
		if dedup.Aggregated {
			res.Summary = fmt.Sprintf("[x%d] %s", dedup.RecentCount+1, res.Summary)
		}
		send = append(send, res)
		pending = append(pending, v)
	}
	send = ntfy.Select(rep, send)
	if cfg.Ntfy.URL == "" || len(send) == 0 {
		return nil
	}

	if err := ntfy.Report(ctx, rep, send); err != nil {
		return err
	}
	selected := make(map[string]bool)
	for _, res := range send {
		selected[res.Type] = true
	}
	for _, v := range pending {
		if selected[v.Type] {
			_ = db.MarkNotified(v.ID)
		}
	}
	return nil
}

// --- capture subcommand ---

func runCapture(args []string) {
	fs := flag.NewFlagSet("capture", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	serial := fs.String("serial", "", "device serial (default: from config, or the only attached device)")
	kind := fs.String("kind", "logcat", "capture kind (logcat, kernel, dumpsys, bugreport)")
	out := fs.String("o", "", "output file (default: stdout)")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	setupLogging(cfg.Log.Level)

	k, err := capture.ParseKind(*kind)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -kind value: %v\n", err)
		os.Exit(1)
	}

	adb := &capture.ADB{
		Path:    cfg.Device.ADB,
		Serial:  cfg.Device.Serial,
		Timeout: cfg.Device.Timeout.Duration,
	}
	if *serial != "" {
		adb.Serial = *serial
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := adb.Pull(ctx, k)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error pulling capture: %v\n", err)
		os.Exit(1)
	}

	var w io.Writer = os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error creating output: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}
	for _, line := range c.Lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			fmt.Fprintf(os.Stderr, "error writing capture: %v\n", err)
			os.Exit(1)
		}
	}
	if *out != "" {
		fmt.Fprintf(os.Stderr, "Wrote %d lines to %s\n", len(c.Lines), *out)
	}
}

// --- history subcommand ---

func runHistory(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	last := fs.String("last", "7d", "time window (e.g. 24h, 7d, 30d)")
	status := fs.String("status", "", "filter by status (PASSED, FAILED)")
	typ := fs.String("type", "", "filter by heuristic type")
	device := fs.String("device", "", "filter by device")
	limit := fs.Int("limit", 50, "max verdicts to show")
	runs := fs.Bool("runs", false, "list runs instead of verdicts")
	digest := fs.Bool("digest", false, "print a digest of the window")
	notify := fs.Bool("notify", false, "send the digest via ntfy")
	purge := fs.Bool("purge", false, "delete runs older than db.retention")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	setupLogging("error") // quiet for CLI output

	db, err := store.Open(cfg.DB.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	switch {
	case *purge:
		n, err := db.Purge(cfg.DB.Retention.Duration)
		if err != nil {
			fmt.Fprintf(os.Stderr, "purge error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Purged %d run(s) older than %s.\n", n, cfg.DB.Retention.Duration)
		return

	case *runs:
		rs, err := db.Runs(*limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "query error: %v\n", err)
			os.Exit(1)
		}
		printRuns(rs)
		return
	}

	window, err := parseDuration(*last)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -last value %q: %v\n", *last, err)
		os.Exit(1)
	}
	until := time.Now()
	since := until.Add(-window)

	if *digest || *notify {
		verdicts, err := db.Query(store.QueryFilter{Since: since, Until: until, Device: *device})
		if err != nil {
			fmt.Fprintf(os.Stderr, "query error: %v\n", err)
			os.Exit(1)
		}
		d := reporter.BuildDigest(verdicts, since, until)
		if !*notify {
			fmt.Print(reporter.FormatDigest(d))
			return
		}
		if cfg.Ntfy.URL == "" {
			fmt.Fprintln(os.Stderr, "error: ntfy.url not configured")
			os.Exit(1)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		ntfy, err := reporter.NewNtfy(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		if err := ntfy.ReportDigest(ctx, d); err != nil {
			fmt.Fprintf(os.Stderr, "error sending digest: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Digest sent successfully.")
		return
	}

	verdicts, err := db.Query(store.QueryFilter{
		Since:  since,
		Status: heuristic.Status(strings.ToUpper(*status)),
		Type:   strings.ToUpper(*typ),
		Device: *device,
		Limit:  *limit,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "query error: %v\n", err)
		os.Exit(1)
	}

	if len(verdicts) == 0 {
		fmt.Println("No verdicts found.")
		return
	}

	printVerdicts(verdicts)
}

func printVerdicts(verdicts []*store.Verdict) {
	for _, v := range verdicts {
		ts := v.Created.Local().Format("2006-01-02 15:04:05")
		device := v.Device
		if device == "" {
			device = "-"
		}
		fmt.Printf("%s  %-6s %-18s [%s] %s\n", ts, v.Status, v.Name, device, v.Summary)
		if v.Details != "" {
			// Print first line of details as a brief.
			lines := strings.SplitN(v.Details, "\n", 2)
			fmt.Printf("             %s\n", lines[0])
		}
	}
	fmt.Printf("Total: %d verdict(s)\n", len(verdicts))
}

func printRuns(runs []*store.Run) {
	if len(runs) == 0 {
		fmt.Println("No runs found.")
		return
	}
	for _, r := range runs {
		ts := r.Created.Local().Format("2006-01-02 15:04:05")
		ago := time.Since(r.Created).Truncate(time.Second)
		fmt.Printf("%s  %s  %d failed  (%s ago)\n", ts, r.ID, r.Failed, formatDuration(ago))
		for _, c := range r.Captures {
			fmt.Printf("             %s\n", c)
		}
	}
}

// parseDuration extends time.ParseDuration with support for "d" (days) suffix.
func parseDuration(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "d") {
		s = strings.TrimSuffix(s, "d")
		var days int
		if _, err := fmt.Sscanf(s, "%d", &days); err != nil {
			return 0, fmt.Errorf("invalid days format: %s", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

// formatDuration formats a duration in human-readable form.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
	return fmt.Sprintf("%dd %dh", int(d.Hours())/24, int(d.Hours())%24)
}

// --- test-notify subcommand ---

func runTestNotify(args []string) {
	fs := flag.NewFlagSet("test-notify", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	setupLogging(cfg.Log.Level)

	if cfg.Ntfy.URL == "" {
		fmt.Fprintln(os.Stderr, "error: ntfy.url not configured")
		os.Exit(1)
	}

	// The test notification bypasses ntfy.heuristics and ntfy.filter.
	cfg.Ntfy.Heuristics = nil
	cfg.Ntfy.Filter = ""
	rep, failures := (&reporter.TestReport{Device: cfg.Device.Serial}).ToReport()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	ntfy, err := reporter.NewNtfy(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := ntfy.Report(ctx, rep, failures); err != nil {
		fmt.Fprintf(os.Stderr, "error sending test notification: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Test notification sent successfully.")
}

// --- utilities ---

func setupLogging(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// isCanceled reports whether err came from an interrupted run.
func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
