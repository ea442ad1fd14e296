package resilience

import (
	"context"
	"time"
)

// Policy is a bounded poll: up to MaxAttempts calls separated by a fixed
// Delay. An attempt succeeds when the call returns no error and Accept
// approves the value. Both call errors and rejected values are retried.
type Policy[T any] struct {
	MaxAttempts int
	Delay       time.Duration
	Accept      func(T) bool
	Sleep       Sleeper

	// OnAttempt is called after every attempt with its 1-based number.
	OnAttempt func(attempt int, val T, err error)
}

// PollResult reports how a poll ended. Value and Err come from the final
// attempt; Accepted is false when attempts ran out on a rejected value.
type PollResult[T any] struct {
	Value    T
	Err      error
	Attempts int
	Accepted bool
}

// Poll runs fn under p. It never sleeps after the final attempt. A done ctx
// ends polling early and is reported as Err.
func Poll[T any](ctx context.Context, p Policy[T], fn func(ctx context.Context) (T, error)) PollResult[T] {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.Sleep == nil {
		p.Sleep = Sleep
	}
	if p.Accept == nil {
		p.Accept = func(T) bool { return true }
	}

	var res PollResult[T]
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		res.Attempts = attempt
		res.Value, res.Err = fn(ctx)
		if p.OnAttempt != nil {
			p.OnAttempt(attempt, res.Value, res.Err)
		}

		if res.Err == nil && p.Accept(res.Value) {
			res.Accepted = true
			return res
		}
		if ctx.Err() != nil {
			if res.Err == nil {
				res.Err = ctx.Err()
			}
			return res
		}
		if attempt == p.MaxAttempts {
			break
		}
		if err := p.Sleep(ctx, p.Delay); err != nil {
			res.Err = err
			return res
		}
	}
	return res
}
