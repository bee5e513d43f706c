package reporter

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/setevik/droidtriage/internal/analyzer"
	"github.com/setevik/droidtriage/internal/config"
	"github.com/setevik/droidtriage/internal/heuristic"
)

// NtfyReporter sends failure notifications to an ntfy server.
type NtfyReporter struct {
	cfg    *config.Config
	filter *Filter
	client *http.Client
}

// NewNtfy creates a new NtfyReporter. It fails only when the configured
// filter expression does not compile.
func NewNtfy(cfg *config.Config) (*NtfyReporter, error) {
	filter, err := NewFilter(cfg.Ntfy.Filter)
	if err != nil {
		return nil, err
	}
	return &NtfyReporter{
		cfg:    cfg,
		filter: filter,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

// Report sends one notification covering the failures kept by Select. It
// does nothing when no failure is left or no URL is configured.
func (r *NtfyReporter) Report(ctx context.Context, rep *analyzer.Report, failures []heuristic.Result) error {
	if r.cfg.Ntfy.URL == "" {
		slog.Debug("ntfy URL not configured, skipping notification")
		return nil
	}

	send := r.Select(rep, failures)
	if len(send) == 0 {
		return nil
	}

	return r.post(ctx, FormatTitle(rep, send), FormatBody(rep, send), TagsFor(send))
}

// Select returns the failures whose heuristic type is configured for
// notification and that pass the filter.
func (r *NtfyReporter) Select(rep *analyzer.Report, failures []heuristic.Result) []heuristic.Result {
	var send []heuristic.Result
	for _, f := range failures {
		if !r.cfg.ShouldNotify(f.Type) {
			slog.Debug("heuristic not in notify list, skipping", "type", f.Type)
			continue
		}
		keep, err := r.filter.Keep(rep, f)
		if err != nil {
			slog.Warn("ntfy filter failed", "type", f.Type, "error", err)
		}
		if !keep {
			slog.Debug("failure rejected by ntfy filter", "type", f.Type)
			continue
		}
		send = append(send, f)
	}
	return send
}

// ReportDigest sends a history digest.
func (r *NtfyReporter) ReportDigest(ctx context.Context, d *DigestSummary) error {
	if r.cfg.Ntfy.URL == "" {
		slog.Debug("ntfy URL not configured, skipping digest")
		return nil
	}
	return r.post(ctx, FormatDigestTitle(d.Since, d.Until), FormatDigest(d), "bar_chart")
}

func (r *NtfyReporter) post(ctx context.Context, title, body, tags string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.Ntfy.URL, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating ntfy request: %w", err)
	}

	priority := r.cfg.Ntfy.Priority
	if priority == "" {
		priority = "default"
	}
	req.Header.Set("Title", title)
	req.Header.Set("Priority", priority)
	req.Header.Set("Tags", tags)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy returned status %d", resp.StatusCode)
	}

	slog.Info("notification sent", "title", title, "priority", priority)
	return nil
}
