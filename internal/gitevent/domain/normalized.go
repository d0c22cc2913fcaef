package domain

import "time"

// NormalizedEvent is the platform-independent record an adapter produces for
// every raw platform event. Action holds the canonical label the adapter mapped
// RawAction to, or "" when the raw action is not part of the vocabulary (the
// reconciler skips those).
type NormalizedEvent struct {
	ExternalProjectID int64
	ProjectName       string
	ProjectURL        string
	RawAction         string
	Action            string
	CreatedAt         string
}

// Time parses CreatedAt (relaxed RFC3339, as both platforms emit it) into a UTC
// instant at second precision.
func (e NormalizedEvent) Time() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, e.CreatedAt)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC().Truncate(time.Second), nil
}

// ProjectDetail is the result of a supplemental project lookup against the
// platform API, used when an event references a project not yet stored.
type ProjectDetail struct {
	ExternalID int64
	Name       string
	URL        string
	Visibility string
}

// Public reports whether the project passes the visibility policy; only public
// projects are persisted.
func (d *ProjectDetail) Public() bool {
	return d != nil && d.Visibility == "public"
}

// SyncWindow is the time range a sync cycle covers
type SyncWindow struct {
	After  time.Time
	Before time.Time
}

// SyncSummary reports the outcome of one reconciled batch
type SyncSummary struct {
	Platform      string `json:"platform"`
	TotalSeen     int    `json:"total_seen"`
	NewlyInserted int    `json:"newly_inserted"`
	Skipped       int    `json:"skipped"`
}
