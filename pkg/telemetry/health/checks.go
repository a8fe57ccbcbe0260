package health

import (
	"context"
	"errors"
	"fmt"

	"mercator-hq/chronicle/pkg/history"
	"mercator-hq/chronicle/pkg/history/store"
)

// StoreCheck verifies that the history store accepts a transaction. It
// looks up a root instance that never exists, so a not-found answer is
// healthy.
func StoreCheck(st store.Store) CheckFunc {
	return func(ctx context.Context) error {
		err := st.InTx(ctx, func(tx store.Tx) error {
			_, err := tx.GetRoot(ctx, "")
			if errors.Is(err, history.ErrNotFound) {
				return nil
			}
			return err
		})
		if err != nil {
			return fmt.Errorf("%s store unavailable: %w", st.Backend(), err)
		}
		return nil
	}
}

// Runner is implemented by background loops that can report whether they
// are running.
type Runner interface {
	IsRunning() bool
}

// RunningCheck fails while r is not running.
func RunningCheck(name string, r Runner) CheckFunc {
	return func(context.Context) error {
		if !r.IsRunning() {
			return fmt.Errorf("%s is not running", name)
		}
		return nil
	}
}
