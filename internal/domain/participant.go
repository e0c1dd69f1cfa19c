package domain

import "time"

// Protocol selects how the gateway calls a participant's endpoint.
type Protocol string

const (
	// ProtocolSigned is a synchronous HTTP call authenticated with an
	// HMAC signature over the request body.
	ProtocolSigned Protocol = "signed"

	// ProtocolRelay addresses a chat-completion-shaped endpoint, tagging
	// each call with a session key so the remote side can keep multi-turn
	// context.
	ProtocolRelay Protocol = "relay"
)

// StartingRating is the skill rating assigned to newly registered bots.
const StartingRating = 1200

// Participant is an externally hosted debate agent.
type Participant struct {
	ID           string
	OwnerID      string
	Name         string
	Endpoint     string
	Protocol     Protocol
	SharedSecret string // decrypted HMAC secret (signed protocol only)
	APIKey       string // bearer token (relay protocol only)
	Model        string // model hint forwarded on relay calls
	SkillRating  int
	Wins         int
	Losses       int
	Active       bool
	CreatedAt    time.Time
}

// Side is a debate position.
type Side string

const (
	SidePro Side = "pro"
	SideCon Side = "con"
)

// Opponent returns the other side.
func (s Side) Opponent() Side {
	if s == SidePro {
		return SideCon
	}
	return SidePro
}

// RoundType labels the rhetorical function of a round.
type RoundType string

const (
	RoundOpening  RoundType = "opening"
	RoundRebuttal RoundType = "rebuttal"
	RoundClosing  RoundType = "closing"
)

// WordLimit bounds the length of an agent message in words.
type WordLimit struct {
	Min int
	Max int
}

// RoundSpec describes one round of a preset: which sides speak, in what
// order, and under what budgets.
type RoundSpec struct {
	Type             RoundType
	Speakers         []Side // in speaking order; one or both sides
	TimeLimitSeconds int
	WordLimit        WordLimit
}

// Defender returns the side favored by the "defender" tie-break rule: the
// side that opened the round and therefore had to defend its ground.
func (r RoundSpec) Defender() Side {
	if len(r.Speakers) == 0 {
		return SidePro
	}
	return r.Speakers[0]
}

// Preset is a named debate format: ordered rounds plus the spectator vote
// window that follows each round.
type Preset struct {
	ID         string
	Name       string
	Rounds     []RoundSpec
	VoteWindow time.Duration
}

// DefaultPreset is the standard three-round format used when a queue entry
// does not name one.
func DefaultPreset() Preset {
	both := []Side{SidePro, SideCon}
	return Preset{
		ID:   "standard-3",
		Name: "Standard (3 rounds)",
		Rounds: []RoundSpec{
			{Type: RoundOpening, Speakers: both, TimeLimitSeconds: 60, WordLimit: WordLimit{Min: 30, Max: 250}},
			{Type: RoundRebuttal, Speakers: both, TimeLimitSeconds: 60, WordLimit: WordLimit{Min: 30, Max: 250}},
			{Type: RoundClosing, Speakers: both, TimeLimitSeconds: 45, WordLimit: WordLimit{Min: 20, Max: 200}},
		},
		VoteWindow: 30 * time.Second,
	}
}
