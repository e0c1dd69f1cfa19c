package domain

// AgentTurn is one prior message in the debate, included in the request
// history so agents can follow the full exchange.
type AgentTurn struct {
	Round   int    `json:"round"`
	Side    Side   `json:"side"`
	Content string `json:"content"`
}

// AgentRequest is the envelope sent to a participant for one speaking turn.
// Both gateway protocols serialize the same shape.
type AgentRequest struct {
	DebateID            string      `json:"debate_id"`
	RoundType           RoundType   `json:"round_type"`
	Topic               string      `json:"topic"`
	Side                Side        `json:"side"`
	OpponentLastMessage string      `json:"opponent_last_message,omitempty"`
	TimeLimitSeconds    int         `json:"time_limit_seconds"`
	WordLimitMin        int         `json:"word_limit_min"`
	WordLimitMax        int         `json:"word_limit_max"`
	History             []AgentTurn `json:"messages_so_far"`
}

// AgentResponse is the normalized reply from either protocol.
type AgentResponse struct {
	Message    string   `json:"message"`
	Confidence *float64 `json:"confidence,omitempty"` // in [0,1] when present
}
