package domain

import "time"

// QueueEntry is a participant waiting to be matched. Only RatingWindow is
// mutated after creation; it grows monotonically with wait time.
type QueueEntry struct {
	ID            string    `json:"id"`
	ParticipantID string    `json:"participant_id"`
	OwnerID       string    `json:"owner_id"`
	PresetID      string    `json:"preset_id"`
	SkillRating   int       `json:"skill_rating"`
	Stake         int64     `json:"stake"`
	JoinedAt      time.Time `json:"joined_at"`
	RatingWindow  int       `json:"rating_window"` // acceptable rating difference, widens over time
}

// WaitingFor returns how long the entry has been queued as of now.
func (e QueueEntry) WaitingFor(now time.Time) time.Duration {
	return now.Sub(e.JoinedAt)
}

// QueueStats is a point-in-time queue summary.
type QueueStats struct {
	Size           int     `json:"size"`
	AvgWaitSeconds float64 `json:"avg_wait_seconds"`
}

// MatchResult is produced by one matchmaking cycle for each pair that was
// successfully handed to the session-creation callback.
type MatchResult struct {
	EntryA     QueueEntry
	EntryB     QueueEntry
	RatingDiff int
	DebateID   string
}
