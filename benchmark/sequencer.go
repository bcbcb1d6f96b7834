package benchmark

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
)

// DefaultActionTimeout bounds the wait for a single completion signal
const DefaultActionTimeout = 5 * time.Second

// SequenceOptions controls how an action script is driven
type SequenceOptions struct {
	ActionTimeout time.Duration // per-action completion deadline, <= 0 uses DefaultActionTimeout
}

// Sequence applies every action of script to m, one at a time, and returns
// once the completion signal of the last action fired.
//
// The completion listener of an action is registered before the action is
// applied, so a library that signals completion from inside apply is not
// missed. It is always deregistered before the next action starts, which also
// holds when the wait ends on timeout or cancellation.
func Sequence[M any](ctx context.Context, m M, adapter Adapter[M], script Script, opts SequenceOptions) error {
	if err := script.Validate(); err != nil {
		return err
	}
	if adapter.Apply == nil {
		return errors.Newf("%s: adapter has no apply function", adapter.Library)
	}

	timeout := opts.ActionTimeout
	if timeout <= 0 {
		timeout = DefaultActionTimeout
	}

	for i, action := range script {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "before action %d", i)
		}

		completion, err := adapter.completion(action.Kind)
		if err != nil {
			return err
		}

		start := time.Now()
		if err := awaitAction(ctx, m, adapter, completion, action, timeout); err != nil {
			var timedOut *ActionTimedOutError
			if errors.As(err, &timedOut) {
				timedOut.Index = i
				return timedOut
			}
			return errors.Wrapf(err, "action %d %s", i, action)
		}

		log.Debug().
			Str("library", adapter.Library).
			Int("index", i).
			Str("action", action.String()).
			Dur("elapsed", time.Since(start)).
			Msg("Action complete")
	}
	return nil
}

func awaitAction[M any](ctx context.Context, m M, adapter Adapter[M], completion Completion[M], action Action, timeout time.Duration) error {
	done, cancel := completion(m)
	defer cancel()

	if err := adapter.Apply(m, action); err != nil {
		return errors.Wrap(err, "apply")
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		return &ActionTimedOutError{Action: action, Timeout: timeout}
	case <-ctx.Done():
		return ctx.Err()
	}
}
