package ai

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/artiflow/types"
)

// ErrPollTimeout is returned when a generation job does not reach a
// terminal state within the attempt ceiling. It is distinct from a
// vendor-reported FAILED status.
var ErrPollTimeout = errors.New("3D generation status polling timeout")

// PollDecision is the next action of the polling state machine.
type PollDecision int

const (
	PollContinue PollDecision = iota
	PollDone
	PollFailed
	PollTimedOut
)

// Poller drives a bounded polling loop against a status-check operation.
// The decision logic is a pure function over (status, attempt) so the
// ceiling and terminal handling are testable without wall-clock delays;
// Run is only the thin timer driver around it.
type Poller struct {
	Interval    time.Duration // default 5s
	MaxAttempts int           // default 60, a 5-minute ceiling
	Logger      *zap.Logger
}

func (p Poller) interval() time.Duration {
	if p.Interval <= 0 {
		return 5 * time.Second
	}
	return p.Interval
}

func (p Poller) maxAttempts() int {
	if p.MaxAttempts <= 0 {
		return 60
	}
	return p.MaxAttempts
}

// Decide maps the observed status and the 1-based attempt count to the
// next action. Terminal statuses win over the ceiling.
func (p Poller) Decide(status types.GenerationStatus, attempt int) PollDecision {
	switch status {
	case types.StatusSucceeded:
		return PollDone
	case types.StatusFailed:
		return PollFailed
	}
	if attempt >= p.maxAttempts() {
		return PollTimedOut
	}
	return PollContinue
}

// Run polls check on a fixed interval until a terminal state, the attempt
// ceiling, a check error, or context cancellation. Both terminal states
// return the final StatusResult; the caller distinguishes them by Status.
func (p Poller) Run(ctx context.Context, check func(context.Context) (*types.StatusResult, error)) (*types.StatusResult, error) {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ticker := time.NewTicker(p.interval())
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		result, err := check(ctx)
		if err != nil {
			return nil, err
		}

		switch p.Decide(result.Status, attempt) {
		case PollDone, PollFailed:
			return result, nil
		case PollTimedOut:
			logger.Warn("polling ceiling reached",
				zap.Int("attempts", attempt),
				zap.String("status", string(result.Status)),
			)
			return nil, ErrPollTimeout
		}

		logger.Debug("generation in progress",
			zap.Int("attempt", attempt),
			zap.String("status", string(result.Status)),
			zap.Int("progress", result.Progress),
		)
	}
}
