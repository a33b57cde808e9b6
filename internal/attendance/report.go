package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attend/internal/database"
)

// ReportRow is one session in the attendance report. Duration and
// DailyTotal are only meaningful for closed, unflagged rows; open rows
// have Closed false and leave the daily accumulator unchanged.
type ReportRow struct {
	Name    string `json:"name"`
	Date    string `json:"date"`
	InTime  string `json:"in_time"`
	OutTime string `json:"out_time,omitempty"`

	Duration   time.Duration `json:"duration_ns,omitempty"`
	DailyTotal time.Duration `json:"daily_total_ns"`
	Closed     bool          `json:"closed"`
	// Flagged marks rows whose OUT precedes their IN (corrupted or
	// cross-midnight data); their duration is not rendered.
	Flagged bool `json:"flagged,omitempty"`
}

// BuildReport reads all sessions and produces report rows, most recent
// first. Daily totals are accumulated in forward chronological order
// regardless of the presentation order.
func BuildReport(ctx context.Context, store database.SessionStore) ([]ReportRow, error) {
	sessions, err := store.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	type dayKey struct {
		name string
		date string
	}
	totals := make(map[dayKey]time.Duration)

	rows := make([]ReportRow, 0, len(sessions))
	for _, session := range sessions {
		row := ReportRow{
			Name:    session.Name,
			Date:    session.Date,
			InTime:  session.InTime,
			OutTime: session.OutTime,
		}
		key := dayKey{session.Name, session.Date}

		if !session.Open() {
			inAt, inErr := session.InAt()
			outAt, outErr := session.OutAt()
			switch {
			case inErr != nil || outErr != nil:
				row.Flagged = true
			case outAt.Before(inAt):
				row.Flagged = true
			default:
				row.Closed = true
				row.Duration = outAt.Sub(inAt)
				totals[key] += row.Duration
			}
		}

		row.DailyTotal = totals[key]
		rows = append(rows, row)
	}

	// Most recent first; the accumulation above already ran forward.
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

// FormatDuration renders a duration the way the report surfaces expect,
// e.g. "0h 30m 0s".
func FormatDuration(d time.Duration) string {
	seconds := int(d.Seconds())
	return fmt.Sprintf("%dh %dm %ds", seconds/3600, (seconds%3600)/60, seconds%60)
}
