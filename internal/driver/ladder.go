package driver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"brighthorizons-e2e/internal/application/port/output"
)

var errNoStrategies = errors.New("no strategies")

const (
	StrategyStandard = "standard"
	StrategyScript   = "script"
	StrategyKeyboard = "keyboard"
)

// Strategy is one rung of a fallback ladder.
type Strategy struct {
	Name string
	Run  func(ctx context.Context) error
}

// Ladder tries its strategies in order and stops at the first success.
// It never loops back: each strategy runs at most once.
type Ladder struct {
	Action     string
	Selector   string
	Strategies []Strategy
}

type Attempt struct {
	Strategy string
	Err      error
}

// Outcome names the strategy that worked and every attempt before it.
type Outcome struct {
	Strategy string
	Attempts []Attempt
}

// Fallback reports whether anything other than the first strategy was needed.
func (o Outcome) Fallback() bool {
	return len(o.Attempts) > 1
}

// LadderError is returned when every strategy failed. It unwraps to each
// attempt's error, so errors.Is(err, ErrElementNotFound) works.
type LadderError struct {
	Action   string
	Selector string
	Attempts []Attempt
}

func (e *LadderError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Strategy, a.Err))
	}
	return fmt.Sprintf("%s %s: all strategies failed (%s)", e.Action, e.Selector, strings.Join(parts, "; "))
}

func (e *LadderError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

func (l Ladder) Run(ctx context.Context, log output.LoggerPort) (Outcome, error) {
	var attempts []Attempt

	for i, s := range l.Strategies {
		if err := ctx.Err(); err != nil {
			attempts = append(attempts, Attempt{Strategy: s.Name, Err: err})
			return Outcome{Attempts: attempts}, &LadderError{Action: l.Action, Selector: l.Selector, Attempts: attempts}
		}

		err := s.Run(ctx)
		attempts = append(attempts, Attempt{Strategy: s.Name, Err: err})
		if err == nil {
			if i > 0 {
				log.Info("Fallback succeeded", "action", l.Action, "selector", l.Selector, "strategy", s.Name)
			}
			return Outcome{Strategy: s.Name, Attempts: attempts}, nil
		}

		if i+1 < len(l.Strategies) {
			log.Warn("Strategy failed, falling back",
				"action", l.Action,
				"selector", l.Selector,
				"strategy", s.Name,
				"next", l.Strategies[i+1].Name,
				"error", err)
		}
	}

	if len(attempts) == 0 {
		return Outcome{}, fmt.Errorf("%s %s: %w", l.Action, l.Selector, errNoStrategies)
	}

	return Outcome{Attempts: attempts}, &LadderError{Action: l.Action, Selector: l.Selector, Attempts: attempts}
}
