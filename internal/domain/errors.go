package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
	ErrNotQueued      = errors.New("participant not queued")
	ErrLeaseHeld      = errors.New("lease already held")
	ErrLockHeld       = errors.New("lock already held")
	ErrLeaseLost      = errors.New("ownership lease lost")
	ErrWageringClosed = errors.New("wagering closed")
	ErrVotingClosed   = errors.New("voting closed")
	ErrAlreadySettled = errors.New("wager already settled")
	ErrRateLimited    = errors.New("rate limited")
	ErrNoTopic        = errors.New("no topic available")
	ErrInactiveBot    = errors.New("participant inactive")
	ErrContextDone    = errors.New("context cancelled")
)
