package notify

import (
	"context"
	"fmt"

	"github.com/arenalabs/debatearena/internal/domain"
)

// Event types operators can filter on.
const (
	EventDebateCompleted = "debate_completed"
	EventDebateCancelled = "debate_cancelled"
	EventRecovery        = "recovery"
)

// DebateCompleted notifies operators of a finished debate and its outcome.
func (n *Notifier) DebateCompleted(ctx context.Context, d domain.DebateSession) error {
	outcome := "draw"
	if d.Winner != nil {
		outcome = string(*d.Winner) + " wins"
	}
	pro, con := d.RoundWins()
	return n.Notify(ctx, EventDebateCompleted,
		"Debate completed",
		fmt.Sprintf("%s\n%q — %s (%d-%d), stake %d", d.ID, d.Topic, outcome, pro, con, d.Stake),
	)
}

// DebateCancelled notifies operators of a debate that could not finish.
func (n *Notifier) DebateCancelled(ctx context.Context, d domain.DebateSession) error {
	return n.Notify(ctx, EventDebateCancelled,
		"Debate cancelled",
		fmt.Sprintf("%s\n%q did not reach a verdict", d.ID, d.Topic),
	)
}

// RecoveryRun notifies operators that this instance adopted debates abandoned
// by a crashed peer.
func (n *Notifier) RecoveryRun(ctx context.Context, instanceID string, count int) error {
	return n.Notify(ctx, EventRecovery,
		"Stuck debates recovered",
		fmt.Sprintf("instance %s resumed %d abandoned debate(s)", instanceID, count),
	)
}
