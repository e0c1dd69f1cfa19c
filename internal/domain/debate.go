package domain

import "time"

// DebateStatus is the lifecycle state of a session.
type DebateStatus string

const (
	StatusPending    DebateStatus = "pending"
	StatusInProgress DebateStatus = "in_progress"
	StatusVoting     DebateStatus = "voting"
	StatusCompleted  DebateStatus = "completed"
	StatusCancelled  DebateStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s DebateStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// RoundStatus is the state of the current round within a session.
type RoundStatus string

const (
	RoundPending    RoundStatus = "pending"
	RoundResponding RoundStatus = "bot_responding"
	RoundVoting     RoundStatus = "voting"
	RoundCompleted  RoundStatus = "completed"
)

// DebateSession is one debate between two participants. It is exclusively
// driven by the orchestrator instance that holds its ownership lease.
type DebateSession struct {
	ID             string
	TopicID        string
	Topic          string
	PresetID       string
	ProID          string
	ConID          string
	Status         DebateStatus
	CurrentRound   int // zero-based round index
	RoundStatus    RoundStatus
	RoundResults   []RoundResult
	Winner         *Side // set iff Status == completed and not a draw
	Stake          int64
	SpectatorCount int
	CreatedAt      time.Time
	StartedAt      *time.Time
	CompletedAt    *time.Time
	UpdatedAt      time.Time
}

// RoundWins tallies completed-round wins per side.
func (d *DebateSession) RoundWins() (pro, con int) {
	for _, r := range d.RoundResults {
		switch r.Winner {
		case SidePro:
			pro++
		case SideCon:
			con++
		}
	}
	return pro, con
}

// ParticipantFor returns the participant id arguing the given side.
func (d *DebateSession) ParticipantFor(side Side) string {
	if side == SidePro {
		return d.ProID
	}
	return d.ConID
}

// RoundResult records the vote tally and winner of one completed round.
// Appended once per round, in index order, and immutable thereafter.
type RoundResult struct {
	Round    int
	ProVotes int
	ConVotes int
	Winner   Side
}

// Message is one successful agent response within a debate. Never mutated.
type Message struct {
	ID            string
	DebateID      string
	Round         int
	Side          Side
	ParticipantID string
	Content       string
	Fallback      bool // true when the content substituted for a failed agent call
	CreatedAt     time.Time
}

// Vote is a spectator's vote on one round, accepted only while that round's
// status is voting.
type Vote struct {
	DebateID string `json:"debate_id"`
	Round    int    `json:"round"`
	VoterID  string `json:"voter_id"`
	Choice   Side   `json:"choice"`
}

// Topic is a debate subject ranked by community votes.
type Topic struct {
	ID        string
	Text      string // 10-500 chars
	Category  string
	Upvotes   int
	Downvotes int
	TimesUsed int
	CreatedAt time.Time
}
