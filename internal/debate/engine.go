// Package debate drives a single debate session through its rounds: agent
// invocation, spectator voting, round scoring, and final settlement. One
// Engine serves all debates; each session runs on its own goroutine, entered
// through Run whether it is freshly matched or resumed after a crash.
package debate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/arenalabs/debatearena/internal/domain"
	"github.com/arenalabs/debatearena/internal/gateway"
	"github.com/arenalabs/debatearena/internal/settlement"
)

// TieBreak names the rule that resolves a round with equal votes.
type TieBreak string

const (
	// TieBreakDefender awards tied rounds to the side that opened the
	// round and had to defend its ground.
	TieBreakDefender TieBreak = "defender"
	TieBreakPro      TieBreak = "pro"
	TieBreakCon      TieBreak = "con"
)

// Config holds debate engine tunables.
type Config struct {
	TieBreak       TieBreak
	FeeBps         int // platform fee in basis points, applied at settlement
	PersistRetries int
	PersistBackoff time.Duration
}

func (c Config) withDefaults() Config {
	if c.TieBreak == "" {
		c.TieBreak = TieBreakDefender
	}
	if c.PersistRetries <= 0 {
		c.PersistRetries = 3
	}
	if c.PersistBackoff <= 0 {
		c.PersistBackoff = 250 * time.Millisecond
	}
	return c
}

// LeaseReleaser releases a debate's ownership lease when its run ends.
type LeaseReleaser interface {
	Release(ctx context.Context, debateID string) error
}

// Deps collects the engine's collaborators.
type Deps struct {
	Debates      domain.DebateStore
	Messages     domain.MessageStore
	Wagers       domain.WagerStore
	Participants domain.ParticipantStore
	Invoker      gateway.Invoker
	Bus          domain.SignalBus
	Leases       LeaseReleaser // nil when ownership coordination is off
	Presets      []domain.Preset
}

// Engine runs debate state machines.
type Engine struct {
	debates      domain.DebateStore
	messages     domain.MessageStore
	wagers       domain.WagerStore
	participants domain.ParticipantStore
	invoker      gateway.Invoker
	bus          domain.SignalBus
	leases       LeaseReleaser
	presets      map[string]domain.Preset
	cfg          Config
	logger       *slog.Logger
	now          func() time.Time
}

// New creates an Engine. The default preset is always registered.
func New(d Deps, cfg Config, logger *slog.Logger) *Engine {
	presets := map[string]domain.Preset{}
	def := domain.DefaultPreset()
	presets[def.ID] = def
	for _, p := range d.Presets {
		presets[p.ID] = p
	}
	return &Engine{
		debates:      d.Debates,
		messages:     d.Messages,
		wagers:       d.Wagers,
		participants: d.Participants,
		invoker:      d.Invoker,
		bus:          d.Bus,
		leases:       d.Leases,
		presets:      presets,
		cfg:          cfg.withDefaults(),
		logger:       logger.With(slog.String("component", "debate")),
		now:          time.Now,
	}
}

func (e *Engine) presetFor(id string) domain.Preset {
	if p, ok := e.presets[id]; ok {
		return p
	}
	return domain.DefaultPreset()
}

// Run drives the debate to a terminal state, starting from whatever round
// and round status persistence holds. Fresh sessions and crash-recovered
// sessions both enter here.
func (e *Engine) Run(ctx context.Context, debateID string) error {
	s, err := e.debates.Get(ctx, debateID)
	if err != nil {
		return fmt.Errorf("debate: load session %s: %w", debateID, err)
	}
	if s.Status.Terminal() {
		return nil
	}

	preset := e.presetFor(s.PresetID)

	pro, err := e.participants.Get(ctx, s.ProID)
	if err != nil {
		return e.cancel(ctx, &s, "participant_unavailable", err)
	}
	con, err := e.participants.Get(ctx, s.ConID)
	if err != nil {
		return e.cancel(ctx, &s, "participant_unavailable", err)
	}

	if s.Status == domain.StatusPending {
		started := e.now().UTC()
		s.Status = domain.StatusInProgress
		s.StartedAt = &started
		if s.RoundStatus == "" {
			s.RoundStatus = domain.RoundPending
		}
		if err := e.persist(ctx, &s); err != nil {
			return e.cancel(ctx, &s, "persistence_failed", err)
		}
		e.broadcast(ctx, domain.NewEvent(domain.EventDebateStarted, s.ID, startedPayload{
			Topic:  s.Topic,
			ProID:  s.ProID,
			ConID:  s.ConID,
			Rounds: len(preset.Rounds),
		}))
	}

	// Completed rounds are never re-run; resume from the first round
	// without a recorded result.
	start := s.CurrentRound
	if n := len(s.RoundResults); n > start {
		start = n
	}
	for round := start; round < len(preset.Rounds); round++ {
		if err := e.runRound(ctx, &s, pro, con, preset, round); err != nil {
			return err
		}
	}

	return e.finalize(ctx, &s, pro, con)
}

// runRound executes one round: speaking phase (turns already persisted by a
// previous run of this round are skipped), vote window, and result recording.
func (e *Engine) runRound(ctx context.Context, s *domain.DebateSession, pro, con domain.Participant, preset domain.Preset, round int) error {
	spec := preset.Rounds[round]
	resumedInVoting := s.CurrentRound == round && s.RoundStatus == domain.RoundVoting

	if !resumedInVoting {
		s.Status = domain.StatusInProgress
		s.CurrentRound = round
		s.RoundStatus = domain.RoundResponding
		if err := e.persist(ctx, s); err != nil {
			return e.cancel(ctx, s, "persistence_failed", err)
		}
		e.broadcast(ctx, domain.NewEvent(domain.EventRoundStarted, s.ID, roundPayload{
			Round: round,
			Type:  spec.Type,
		}))

		history, err := e.messages.ListByDebate(ctx, s.ID)
		if err != nil {
			return e.cancel(ctx, s, "persistence_failed", err)
		}

		for _, side := range spec.Speakers {
			if err := ctx.Err(); err != nil {
				return e.suspend(ctx, s, "run_interrupted", err)
			}
			if hasSpoken(history, round, side) {
				// A crash mid-round lands here on resume; the turn is
				// already persisted and must not be invoked again.
				continue
			}
			speaker := pro
			if side == domain.SideCon {
				speaker = con
			}
			msg, err := e.speak(ctx, s, speaker, side, spec, round, history)
			if err != nil {
				return e.cancel(ctx, s, "persistence_failed", err)
			}
			history = append(history, msg)
		}

		s.Status = domain.StatusVoting
		s.RoundStatus = domain.RoundVoting
		if err := e.persist(ctx, s); err != nil {
			return e.cancel(ctx, s, "persistence_failed", err)
		}
	}

	// Subscribe before announcing the window so no prompt vote is lost. A
	// round must never close unvoted because coordination is down: wagers
	// ride on the tally, so the run suspends instead and recovery resumes
	// it from the persisted voting state.
	subCtx, cancelSub := context.WithCancel(ctx)
	votes, err := e.subscribeVotes(subCtx, s.ID)
	if err != nil {
		cancelSub()
		return e.suspend(ctx, s, "vote_channel_unavailable", err)
	}

	e.broadcast(ctx, domain.NewEvent(domain.EventVotingStarted, s.ID, votingPayload{
		Round:         round,
		WindowSeconds: int(preset.VoteWindow.Seconds()),
	}))

	result := e.collectVotes(ctx, s.ID, round, votes, preset.VoteWindow, spec)
	cancelSub()
	if err := ctx.Err(); err != nil {
		// A truncated window produces a partial tally; never record it.
		return e.suspend(ctx, s, "run_interrupted", err)
	}

	if err := e.withRetry(ctx, func() error {
		return e.debates.AppendRoundResult(ctx, s.ID, result)
	}); err != nil {
		return e.cancel(ctx, s, "persistence_failed", err)
	}
	s.RoundResults = append(s.RoundResults, result)
	s.Status = domain.StatusInProgress
	s.RoundStatus = domain.RoundCompleted
	if err := e.persist(ctx, s); err != nil {
		return e.cancel(ctx, s, "persistence_failed", err)
	}

	proWins, conWins := s.RoundWins()
	e.broadcast(ctx, domain.NewEvent(domain.EventRoundEnded, s.ID, roundEndedPayload{
		Round:    round,
		ProVotes: result.ProVotes,
		ConVotes: result.ConVotes,
		Winner:   result.Winner,
		Score:    scorePayload{Pro: proWins, Con: conWins},
	}))
	return nil
}

// speak invokes one participant for its turn. A gateway failure substitutes
// the deterministic fallback message and the debate continues; only a
// persistence failure propagates.
func (e *Engine) speak(ctx context.Context, s *domain.DebateSession, p domain.Participant, side domain.Side, spec domain.RoundSpec, round int, history []domain.Message) (domain.Message, error) {
	e.broadcast(ctx, domain.NewEvent(domain.EventBotTyping, s.ID, turnPayload{Round: round, Side: side}))

	req := domain.AgentRequest{
		DebateID:            s.ID,
		RoundType:           spec.Type,
		Topic:               s.Topic,
		Side:                side,
		OpponentLastMessage: lastContentBy(history, side.Opponent()),
		TimeLimitSeconds:    spec.TimeLimitSeconds,
		WordLimitMin:        spec.WordLimit.Min,
		WordLimitMax:        spec.WordLimit.Max,
		History:             asTurns(history),
	}

	res := e.invoker.Invoke(ctx, p, req, time.Duration(spec.TimeLimitSeconds)*time.Second)

	content := ""
	fallback := false
	if res.Success() {
		content = res.Response.Message
	} else {
		content = fallbackMessage(side, spec.Type)
		fallback = true
		e.logger.Warn("agent turn failed, using fallback",
			slog.String("debate", s.ID),
			slog.Int("round", round),
			slog.String("side", string(side)),
			slog.Duration("latency", res.Latency),
			slog.String("error", res.Err.Error()),
		)
	}

	msg := domain.Message{
		ID:            uuid.New().String(),
		DebateID:      s.ID,
		Round:         round,
		Side:          side,
		ParticipantID: p.ID,
		Content:       content,
		Fallback:      fallback,
		CreatedAt:     e.now().UTC(),
	}
	if err := e.withRetry(ctx, func() error {
		return e.messages.Create(ctx, msg)
	}); err != nil {
		return domain.Message{}, fmt.Errorf("persist message: %w", err)
	}

	e.broadcast(ctx, domain.NewEvent(domain.EventBotMessage, s.ID, messagePayload{
		Round:    round,
		Side:     side,
		Content:  content,
		Fallback: fallback,
	}))
	return msg, nil
}

// collectVotes drains the round's vote channel for the duration of the
// window, tallying one vote per spectator, then resolves the round winner by
// majority with the configured tie-break.
func (e *Engine) collectVotes(ctx context.Context, debateID string, round int, votes <-chan []byte, window time.Duration, spec domain.RoundSpec) domain.RoundResult {
	timer := time.NewTimer(window)
	defer timer.Stop()

	seen := make(map[string]bool)
	proVotes, conVotes := 0, 0

tally:
	for {
		select {
		case <-ctx.Done():
			break tally
		case <-timer.C:
			break tally
		case raw, ok := <-votes:
			if !ok {
				break tally
			}
			var v domain.Vote
			if err := json.Unmarshal(raw, &v); err != nil {
				continue
			}
			if v.DebateID != debateID || v.Round != round || seen[v.VoterID] {
				continue
			}
			switch v.Choice {
			case domain.SidePro:
				proVotes++
			case domain.SideCon:
				conVotes++
			default:
				continue
			}
			seen[v.VoterID] = true
			e.broadcast(ctx, domain.NewEvent(domain.EventVoteUpdate, debateID, tallyPayload{
				Round:    round,
				ProVotes: proVotes,
				ConVotes: conVotes,
			}))
		}
	}

	winner := domain.SidePro
	switch {
	case proVotes > conVotes:
		winner = domain.SidePro
	case conVotes > proVotes:
		winner = domain.SideCon
	default:
		winner = e.tieBreak(spec)
	}

	return domain.RoundResult{Round: round, ProVotes: proVotes, ConVotes: conVotes, Winner: winner}
}

func (e *Engine) tieBreak(spec domain.RoundSpec) domain.Side {
	switch e.cfg.TieBreak {
	case TieBreakPro:
		return domain.SidePro
	case TieBreakCon:
		return domain.SideCon
	default:
		return spec.Defender()
	}
}

// finalize declares the overall winner, updates ratings, settles wagers,
// and releases the ownership lease.
func (e *Engine) finalize(ctx context.Context, s *domain.DebateSession, pro, con domain.Participant) error {
	proWins, conWins := s.RoundWins()
	var winner *domain.Side
	switch {
	case proWins > conWins:
		w := domain.SidePro
		winner = &w
	case conWins > proWins:
		w := domain.SideCon
		winner = &w
	}

	completed := e.now().UTC()
	s.Status = domain.StatusCompleted
	s.Winner = winner
	s.CompletedAt = &completed
	if err := e.persist(ctx, s); err != nil {
		return e.cancel(ctx, s, "persistence_failed", err)
	}

	e.applyRatings(ctx, s, pro, con, winner)
	e.settleWagers(ctx, s.ID, winner)

	newPro, newCon := NextRatings(pro.SkillRating, con.SkillRating, winner)
	e.broadcast(ctx, domain.NewEvent(domain.EventDebateEnded, s.ID, endedPayload{
		Winner:    winner,
		Score:     scorePayload{Pro: proWins, Con: conWins},
		ProRating: newPro,
		ConRating: newCon,
	}))

	e.releaseLease(ctx, s.ID)
	e.logger.Info("debate completed",
		slog.String("debate", s.ID),
		slog.Any("winner", winner),
		slog.Int("pro_wins", proWins),
		slog.Int("con_wins", conWins),
	)
	return nil
}

// applyRatings writes both sides' post-debate ratings. Failures are logged,
// not fatal: the debate outcome is already persisted.
func (e *Engine) applyRatings(ctx context.Context, s *domain.DebateSession, pro, con domain.Participant, winner *domain.Side) {
	newPro, newCon := NextRatings(pro.SkillRating, con.SkillRating, winner)

	var errPro, errCon error
	if winner == nil {
		errPro = e.participants.UpdateRating(ctx, pro.ID, newPro)
		errCon = e.participants.UpdateRating(ctx, con.ID, newCon)
	} else {
		errPro = e.participants.RecordResult(ctx, pro.ID, newPro, *winner == domain.SidePro)
		errCon = e.participants.RecordResult(ctx, con.ID, newCon, *winner == domain.SideCon)
	}
	for _, err := range []error{errPro, errCon} {
		if err != nil {
			e.logger.Error("rating update failed",
				slog.String("debate", s.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// settleWagers computes and records payouts for every wager on the debate.
// Already-settled wagers are skipped.
func (e *Engine) settleWagers(ctx context.Context, debateID string, winner *domain.Side) {
	ws, err := e.wagers.ListByDebate(ctx, debateID)
	if err != nil {
		e.logger.Error("wager listing failed, settlement skipped",
			slog.String("debate", debateID),
			slog.String("error", err.Error()),
		)
		return
	}
	if len(ws) == 0 {
		return
	}

	payouts, err := settlement.Settle(ws, winner, e.cfg.FeeBps)
	if err != nil {
		e.logger.Error("settlement failed",
			slog.String("debate", debateID),
			slog.String("error", err.Error()),
		)
		return
	}

	for _, p := range payouts {
		err := e.wagers.Settle(ctx, p.WagerID, p.Amount)
		if errors.Is(err, domain.ErrAlreadySettled) {
			continue
		}
		if err != nil {
			e.logger.Error("wager settlement write failed",
				slog.String("debate", debateID),
				slog.String("wager", p.WagerID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// cancel marks the session cancelled after an unrecoverable failure,
// notifies spectators, and releases the lease.
func (e *Engine) cancel(ctx context.Context, s *domain.DebateSession, code string, cause error) error {
	s.Status = domain.StatusCancelled
	s.UpdatedAt = e.now().UTC()
	if err := e.debates.Update(ctx, *s); err != nil {
		e.logger.Error("cancellation write failed",
			slog.String("debate", s.ID),
			slog.String("error", err.Error()),
		)
	}

	e.broadcast(ctx, domain.NewEvent(domain.EventError, s.ID, domain.ErrorPayload{
		Code:    code,
		Message: "debate cancelled: " + code,
	}))
	e.releaseLease(ctx, s.ID)

	return fmt.Errorf("debate %s cancelled (%s): %w", s.ID, code, cause)
}

// suspend stops the run without writing a terminal state. The session keeps
// its persisted round position, and the lease is released so the recovery
// scan (this instance's or a peer's) resumes it once it goes stale.
func (e *Engine) suspend(ctx context.Context, s *domain.DebateSession, reason string, cause error) error {
	e.releaseLease(ctx, s.ID)
	e.logger.Warn("debate suspended for recovery",
		slog.String("debate", s.ID),
		slog.Int("round", s.CurrentRound),
		slog.String("reason", reason),
		slog.String("error", cause.Error()),
	)
	return fmt.Errorf("debate %s suspended (%s): %w", s.ID, reason, cause)
}

// subscribeVotes opens the round's vote channel with bounded-backoff retries.
func (e *Engine) subscribeVotes(ctx context.Context, debateID string) (<-chan []byte, error) {
	backoff := e.cfg.PersistBackoff
	for attempt := 0; ; attempt++ {
		votes, err := e.bus.Subscribe(ctx, domain.VoteChannel(debateID))
		if err == nil {
			return votes, nil
		}
		if attempt >= e.cfg.PersistRetries {
			return nil, err
		}
		e.logger.Warn("vote channel subscribe failed, retrying",
			slog.String("debate", debateID),
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return nil, err
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

func (e *Engine) releaseLease(ctx context.Context, debateID string) {
	if e.leases == nil {
		return
	}
	if err := e.leases.Release(ctx, debateID); err != nil {
		e.logger.Warn("lease release failed",
			slog.String("debate", debateID),
			slog.String("error", err.Error()),
		)
	}
}

// persist updates the session with bounded backoff.
func (e *Engine) persist(ctx context.Context, s *domain.DebateSession) error {
	return e.withRetry(ctx, func() error {
		s.UpdatedAt = e.now().UTC()
		return e.debates.Update(ctx, *s)
	})
}

// withRetry runs op up to 1+PersistRetries times with doubling backoff.
func (e *Engine) withRetry(ctx context.Context, op func() error) error {
	backoff := e.cfg.PersistBackoff
	var err error
	for attempt := 0; ; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if attempt >= e.cfg.PersistRetries {
			return err
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// broadcast publishes an event on the debate's live channel and appends it
// to the durable stream for late-joiner replay. Best-effort.
func (e *Engine) broadcast(ctx context.Context, ev domain.Event) {
	raw, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := e.bus.Publish(ctx, domain.DebateChannel(ev.DebateID), raw); err != nil {
		e.logger.Warn("event publish failed",
			slog.String("debate", ev.DebateID),
			slog.String("type", ev.Type),
			slog.String("error", err.Error()),
		)
	}
	if err := e.bus.StreamAppend(ctx, domain.DebateStream(ev.DebateID), raw); err != nil {
		e.logger.Warn("event stream append failed",
			slog.String("debate", ev.DebateID),
			slog.String("type", ev.Type),
			slog.String("error", err.Error()),
		)
	}
}

// fallbackMessage is the deterministic text recorded when an agent fails to
// produce a valid turn.
func fallbackMessage(side domain.Side, round domain.RoundType) string {
	return fmt.Sprintf("The %s side did not submit a valid %s argument in time and forfeits this turn.", side, round)
}

// hasSpoken reports whether history already holds the turn for (round, side).
// Each side speaks at most once per round.
func hasSpoken(history []domain.Message, round int, side domain.Side) bool {
	for _, m := range history {
		if m.Round == round && m.Side == side {
			return true
		}
	}
	return false
}

func lastContentBy(history []domain.Message, side domain.Side) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Side == side {
			return history[i].Content
		}
	}
	return ""
}

func asTurns(history []domain.Message) []domain.AgentTurn {
	turns := make([]domain.AgentTurn, 0, len(history))
	for _, m := range history {
		turns = append(turns, domain.AgentTurn{Round: m.Round, Side: m.Side, Content: m.Content})
	}
	return turns
}

// Event payloads.

type startedPayload struct {
	Topic  string `json:"topic"`
	ProID  string `json:"pro_id"`
	ConID  string `json:"con_id"`
	Rounds int    `json:"rounds"`
}

type roundPayload struct {
	Round int              `json:"round"`
	Type  domain.RoundType `json:"round_type"`
}

type votingPayload struct {
	Round         int `json:"round"`
	WindowSeconds int `json:"window_seconds"`
}

type turnPayload struct {
	Round int         `json:"round"`
	Side  domain.Side `json:"side"`
}

type messagePayload struct {
	Round    int         `json:"round"`
	Side     domain.Side `json:"side"`
	Content  string      `json:"content"`
	Fallback bool        `json:"fallback"`
}

type tallyPayload struct {
	Round    int `json:"round"`
	ProVotes int `json:"pro_votes"`
	ConVotes int `json:"con_votes"`
}

type scorePayload struct {
	Pro int `json:"pro"`
	Con int `json:"con"`
}

type roundEndedPayload struct {
	Round    int         `json:"round"`
	ProVotes int         `json:"pro_votes"`
	ConVotes int         `json:"con_votes"`
	Winner   domain.Side `json:"winner"`
	Score    scorePayload `json:"score"`
}

type endedPayload struct {
	Winner    *domain.Side `json:"winner"`
	Score     scorePayload `json:"score"`
	ProRating int          `json:"pro_rating"`
	ConRating int          `json:"con_rating"`
}
