package domain

import "encoding/json"

// Push channel event types (server -> spectators).
const (
	EventDebateStarted  = "debate_started"
	EventRoundStarted   = "round_started"
	EventBotTyping      = "bot_typing"
	EventBotMessage     = "bot_message"
	EventVotingStarted  = "voting_started"
	EventVoteUpdate     = "vote_update"
	EventRoundEnded     = "round_ended"
	EventDebateEnded    = "debate_ended"
	EventSpectatorCount = "spectator_count"
	EventError          = "error"
)

// Event is the JSON envelope broadcast on a debate's push channel.
type Event struct {
	Type     string          `json:"type"`
	DebateID string          `json:"debate_id"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// NewEvent marshals payload and wraps it in an Event. Marshal failures yield
// an event with an empty payload; callers treat events as best-effort.
func NewEvent(typ, debateID string, payload any) Event {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = nil
	}
	return Event{Type: typ, DebateID: debateID, Payload: raw}
}

// DebateChannel returns the pub/sub channel carrying a debate's events.
func DebateChannel(debateID string) string {
	return "ch:debate:" + debateID
}

// VoteChannel returns the pub/sub channel carrying spectator votes for a
// debate. The owning orchestrator instance subscribes to it while a round's
// vote window is open.
func VoteChannel(debateID string) string {
	return "ch:votes:" + debateID
}

// DebateStream returns the durable stream key holding a debate's event
// history, used to replay events to late-joining spectators.
func DebateStream(debateID string) string {
	return "st:debate:" + debateID
}

// ErrorPayload is the payload of an error event: a stable machine code plus
// a human-readable message.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
