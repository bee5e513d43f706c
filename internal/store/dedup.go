package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/setevik/droidtriage/internal/heuristic"
)

// DedupResult describes whether a failed verdict should be notified.
type DedupResult struct {
	// ShouldAlert is true if this verdict should trigger a notification.
	ShouldAlert bool
	// RecentCount is the number of earlier failures of the same heuristic on
	// the same device within the cooldown window.
	RecentCount int
	// Aggregated is true if the alert was suppressed during cooldown but the
	// aggregate threshold was just reached, so a summary alert should fire.
	Aggregated bool
}

// CheckCooldown determines whether a failed verdict should trigger an alert
// based on how many failures of the same heuristic on the same device came
// before it within the cooldown window. The verdict itself is not counted,
// so it may be checked before or after it is stored.
//
// Logic:
//   - If no prior failures within window: alert (first occurrence).
//   - If prior failures exist but count < threshold: suppress (within cooldown).
//   - If count == threshold: alert as aggregated (repeat offender summary).
//   - If count > threshold: suppress (already sent aggregate alert).
func (d *DB) CheckCooldown(v *Verdict, window time.Duration, threshold int) (DedupResult, error) {
	since := v.Created.Add(-window).UTC().Format(timeFormat)
	until := v.Created.UTC().Format(timeFormat)

	var count int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM verdicts
		WHERE device = ? AND type = ? AND status = ? AND created >= ? AND created <= ? AND id != ?`,
		v.Device, v.Type, string(heuristic.Failed), since, until, v.ID,
	).Scan(&count)
	if err != nil && err != sql.ErrNoRows {
		return DedupResult{}, fmt.Errorf("checking cooldown: %w", err)
	}

	result := DedupResult{RecentCount: count}

	switch {
	case count == 0:
		// First occurrence in the window.
		result.ShouldAlert = true
	case count == threshold:
		// Hit the aggregate threshold, send a summary alert.
		result.ShouldAlert = true
		result.Aggregated = true
	default:
		// Within cooldown (either still accumulating or already aggregated).
		result.ShouldAlert = false
	}

	slog.Debug("cooldown check",
		"type", v.Type,
		"device", v.Device,
		"recent_count", count,
		"threshold", threshold,
		"should_alert", result.ShouldAlert,
	)

	return result, nil
}
