// Package analyzer parses a set of captures and runs the heuristics over
// them as one analysis.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/setevik/droidtriage/internal/bugreport"
	"github.com/setevik/droidtriage/internal/capture"
	"github.com/setevik/droidtriage/internal/heuristic"
	"github.com/setevik/droidtriage/internal/item"
	"github.com/setevik/droidtriage/internal/kernel"
	"github.com/setevik/droidtriage/internal/lifecycle"
	"github.com/setevik/droidtriage/internal/logcat"
)

// Options configures an Analyzer.
type Options struct {
	Thresholds heuristic.Thresholds
	// TailSize is the number of preamble lines kept per event. Zero uses
	// the parsers' default.
	TailSize int
	// Year completes logcat timestamps of standalone logcats. Zero uses
	// the current year. Bugreports carry their own year.
	Year int
	// Device names the device the captures came from. When empty the
	// serial number of the first bugreport is used.
	Device string
}

// Analyzer runs analyses. It holds no per-run state and may be reused.
type Analyzer struct {
	opts Options
}

// New creates an Analyzer.
func New(opts Options) *Analyzer {
	return &Analyzer{opts: opts}
}

// Parsed is one capture after parsing. Exactly one record is set, matching
// Kind, unless the capture held nothing the parser recognized.
type Parsed struct {
	Path string       `json:"PATH"`
	Kind capture.Kind `json:"KIND"`

	Bugreport *item.Bugreport `json:"BUGREPORT,omitempty"`
	Logcat    *item.Logcat    `json:"LOGCAT,omitempty"`
	KernelLog *item.KernelLog `json:"KERNEL_LOG,omitempty"`
	Dumpsys   *item.Dumpsys   `json:"DUMPSYS,omitempty"`
}

// Empty reports whether parsing produced nothing.
func (p *Parsed) Empty() bool {
	return p.Bugreport == nil && p.Logcat == nil && p.KernelLog == nil && p.Dumpsys == nil
}

// Sample converts the parsed capture for the heuristics.
func (p *Parsed) Sample() heuristic.Sample {
	switch {
	case p.Bugreport != nil:
		return heuristic.FromBugreport(p.Bugreport, p.Path)
	case p.Logcat != nil:
		return heuristic.Sample{Time: p.Logcat.Stop, URI: p.Path, Logcat: p.Logcat}
	case p.KernelLog != nil:
		return heuristic.Sample{URI: p.Path, KernelLog: p.KernelLog}
	default:
		return heuristic.Sample{URI: p.Path, Dumpsys: p.Dumpsys}
	}
}

// Report is the outcome of one analysis.
type Report struct {
	ID       string             `json:"ID"`
	Device   string             `json:"DEVICE,omitempty"`
	Created  time.Time          `json:"CREATED"`
	Captures []*Parsed          `json:"CAPTURES"`
	Results  []heuristic.Result `json:"RESULTS"`
	// Warnings lists captures that were skipped or partly rejected.
	Warnings []string `json:"WARNINGS,omitempty"`
}

// Failed reports whether any heuristic failed.
func (r *Report) Failed() bool {
	return len(r.Failures()) > 0
}

// Failures returns the failed results in report order.
func (r *Report) Failures() []heuristic.Result {
	var out []heuristic.Result
	for _, res := range r.Results {
		if res.Status == heuristic.Failed {
			out = append(out, res)
		}
	}
	return out
}

// Run parses captures concurrently, then feeds them to a fresh heuristic
// set in the order given. It only fails when ctx is done.
func (a *Analyzer) Run(ctx context.Context, captures []*capture.Capture) (*Report, error) {
	parsed := make([]*Parsed, len(captures))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, c := range captures {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			parsed[i] = a.parse(c)
			slog.Debug("capture parsed", "path", c.Path, "kind", c.Kind, "lines", len(c.Lines), "took", time.Since(start))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("parsing captures: %w", err)
	}

	report := &Report{
		ID:      uuid.NewString(),
		Device:  a.opts.Device,
		Created: time.Now().UTC(),
	}
	hs := heuristic.Defaults(a.opts.Thresholds)
	for _, p := range parsed {
		if p.Empty() {
			slog.Warn("capture has no parseable content", "path", p.Path, "kind", p.Kind)
			report.Warnings = append(report.Warnings, fmt.Sprintf("%s: no parseable %s content", p.Path, p.Kind))
			continue
		}
		report.Captures = append(report.Captures, p)
		if report.Device == "" && p.Bugreport != nil {
			report.Device = p.Bugreport.SystemProps["ro.serialno"]
		}

		s := p.Sample()
		for _, h := range hs {
			err := h.Add(s)
			var conflict *lifecycle.ConflictError
			switch {
			case errors.As(err, &conflict):
				slog.Warn("procrank rejected", "path", p.Path, "pid", conflict.PID,
					"expected", conflict.Expected, "actual", conflict.Actual)
				report.Warnings = append(report.Warnings, fmt.Sprintf("%s: %v", p.Path, err))
			case err != nil:
				report.Warnings = append(report.Warnings, fmt.Sprintf("%s: %s: %v", p.Path, h.Name(), err))
			}
		}
	}
	report.Results = heuristic.Evaluate(hs)

	slog.Info("analysis complete", "id", report.ID, "captures", len(report.Captures),
		"failed", len(report.Failures()))
	return report, nil
}

func (a *Analyzer) parse(c *capture.Capture) *Parsed {
	p := &Parsed{Path: c.Path, Kind: c.Kind}
	switch c.Kind {
	case capture.KindBugreport:
		p.Bugreport = bugreport.New(a.opts.TailSize).Parse(c.Lines)
	case capture.KindLogcat:
		opts := []logcat.Option{logcat.WithTailSize(a.opts.TailSize)}
		if a.opts.Year != 0 {
			opts = append(opts, logcat.WithYear(a.opts.Year))
		}
		if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
			opts = append(opts, logcat.WithLogger(slog.Default().With("path", c.Path)))
		}
		l := logcat.Parse(c.Lines, opts...)
		if len(l.Events) > 0 || !l.Start.IsZero() {
			p.Logcat = l
		}
	case capture.KindKernel:
		kp := kernel.New(a.opts.TailSize)
		for _, l := range c.Lines {
			kp.ParseLine(l)
		}
		p.KernelLog = kp.Commit()
	case capture.KindDumpsys:
		p.Dumpsys = bugreport.ParseDumpsys(c.Lines)
	}
	return p
}
