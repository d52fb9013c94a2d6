package mqtt

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Listen holds the session open until d elapses, ctx is cancelled, or the
// connection is lost, then disconnects.
//
// Inbound messages keep flowing to the handler while Listen waits. Listen
// does not spin a goroutine of its own; it blocks on a timer, ctx and the
// connection-lost notification.
//
// Returns:
//   - nil on expiry or cancellation (both are a normal end of the run)
//   - ErrNotConnected if the session is not connected
//   - ErrConnectionLost wrapping the cause if the broker dropped the
//     connection, including a drop that happened before Listen was called
func (s *Session) Listen(ctx context.Context, d time.Duration) error {
	if !s.transition(StateConnected, StateListening) {
		state := s.State()
		if state == StateFailed {
			// Lost before Listen was reached; report the broker's cause.
			select {
			case err := <-s.lost:
				lostErr := fmt.Errorf("%w: %w", ErrConnectionLost, err)
				if derr := s.Disconnect(); derr != nil {
					return errors.Join(lostErr, derr)
				}
				return lostErr
			default:
			}
		}
		return fmt.Errorf("%w (state %s)", ErrNotConnected, state)
	}

	s.logger.Info("listening for messages", "duration", d.String())

	timer := time.NewTimer(d)
	defer timer.Stop()

	var listenErr error
	select {
	case <-timer.C:
		s.logger.Info("listen duration elapsed")
	case <-ctx.Done():
		s.logger.Info("listen stopped", "reason", ctx.Err())
	case err := <-s.lost:
		listenErr = fmt.Errorf("%w: %w", ErrConnectionLost, err)
	}

	if err := s.Disconnect(); err != nil {
		return errors.Join(listenErr, err)
	}
	return listenErr
}
