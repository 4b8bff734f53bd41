// Package dice parses and evaluates dice notation such as "4d6dl1+2",
// "2d20kh1", "1d8!" and "3d6r1" against a pluggable random source, and keeps
// a bounded history of the results.
package dice

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type settings struct {
	historyCapacity int
	limits          Limits
	source          RandomSource
	crypto          *CryptoSource
	logger          *zap.Logger
	now             func() time.Time
}

// Option configures an Engine.
type Option func(*settings)

// WithHistoryCapacity sets the history ring buffer size. n < 1 is ignored.
func WithHistoryCapacity(n int) Option {
	return func(s *settings) {
		if n >= 1 {
			s.historyCapacity = n
		}
	}
}

// WithRerollMax sets the default number of redraws per die for "r". n < 0 is ignored.
func WithRerollMax(n int) Option {
	return func(s *settings) {
		if n >= 0 {
			s.limits.RerollMax = n
		}
	}
}

// WithExplodeMax sets the default number of extra dice per term for "!". n < 0 is ignored.
func WithExplodeMax(n int) Option {
	return func(s *settings) {
		if n >= 0 {
			s.limits.ExplodeMax = n
		}
	}
}

// WithMaxDice sets the largest dice count accepted for one term. n < 1 is ignored.
func WithMaxDice(n int) Option {
	return func(s *settings) {
		if n >= 1 {
			s.limits.MaxDice = n
		}
	}
}

// WithRandomSource replaces the default cryptographic source.
func WithRandomSource(src RandomSource) Option {
	return func(s *settings) {
		if src != nil {
			s.source = src
		}
	}
}

// WithCryptoSource sets the cryptographic source probed at construction in
// place of the platform CSPRNG. It has no effect when WithRandomSource is
// also given.
func WithCryptoSource(c *CryptoSource) Option {
	return func(s *settings) {
		if c != nil {
			s.crypto = c
		}
	}
}

// WithLogger sets the logger used for roll audit records and diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the function used to timestamp results.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// Engine rolls dice expressions and records the results in its own History.
//
// Engine is safe for concurrent use.
type Engine struct {
	limits  Limits
	source  *resilientSource
	history *History
	logger  *zap.Logger
	now     func() time.Time
}

// New creates an Engine. Without options it uses a cryptographic source
// (falling back to FallbackSource if the CSPRNG is unavailable), a history
// of DefaultHistoryCapacity entries and DefaultLimits.
//
// Postcondition: Returns a non-nil Engine.
func New(opts ...Option) *Engine {
	s := settings{
		historyCapacity: DefaultHistoryCapacity,
		limits:          DefaultLimits(),
		logger:          zap.NewNop(),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(&s)
	}

	var source *resilientSource
	if s.source != nil {
		source = newResilientSource(s.source, s.logger, s.now)
	} else {
		if s.crypto == nil {
			s.crypto = NewCryptoSource()
		}
		source = newResilientSource(s.crypto, s.logger, s.now)
		if fallback, err := probeCrypto(s.crypto); err != nil {
			source.switchToFallback(fallback, "cryptographic source unavailable; using pseudorandom fallback", err)
		}
	}
	return &Engine{
		limits:  s.limits,
		source:  source,
		history: NewHistory(s.historyCapacity),
		logger:  s.logger,
		now:     s.now,
	}
}

// Roll parses and evaluates expression. context is opaque caller metadata
// stored on the result and in history.
//
// Postcondition: on success the result is appended to History; on failure
// the error is a *ParseError or *EvaluationError and nothing is recorded.
func (e *Engine) Roll(expression, context string) (RollResult, error) {
	expr, err := Parse(expression)
	if err != nil {
		e.logFailure(expression, context, err)
		return RollResult{}, err
	}
	return e.RollExpression(expr, context)
}

// RollExpression evaluates an already parsed expression.
//
// Precondition: expr must come from Parse.
func (e *Engine) RollExpression(expr Expression, context string) (RollResult, error) {
	result, err := e.evaluate(expr, context)
	if err != nil {
		e.logFailure(expr.Raw, context, err)
		return RollResult{}, err
	}
	e.history.Append(result)
	e.logRoll(result)
	return result, nil
}

// RollBatch rolls each expression in order. Every expression is parsed before
// any die is drawn; results are recorded only if the whole batch succeeds.
//
// Postcondition: len(results) == len(expressions) on success; on failure the
// error is a *BatchError naming the failing index and results is nil.
func (e *Engine) RollBatch(expressions []string) ([]RollResult, error) {
	parsed := make([]Expression, len(expressions))
	for i, s := range expressions {
		expr, err := Parse(s)
		if err != nil {
			e.logFailure(s, "", err)
			return nil, &BatchError{Index: i, Err: err}
		}
		parsed[i] = expr
	}

	results := make([]RollResult, len(parsed))
	for i, expr := range parsed {
		r, err := e.evaluate(expr, "")
		if err != nil {
			e.logFailure(expr.Raw, "", err)
			return nil, &BatchError{Index: i, Err: err}
		}
		results[i] = r
	}
	for _, r := range results {
		e.history.Append(r)
		e.logRoll(r)
	}
	return results, nil
}

// History returns the engine's roll history.
func (e *Engine) History() *History { return e.history }

// Limits returns the evaluation limits in effect.
func (e *Engine) Limits() Limits { return e.limits }

// Quality reports the quality of the source currently in use.
func (e *Engine) Quality() Quality { return e.source.Quality() }

// Diagnostics returns the non-fatal events raised so far, oldest first.
func (e *Engine) Diagnostics() []Diagnostic { return e.source.Diagnostics() }

func (e *Engine) evaluate(expr Expression, context string) (RollResult, error) {
	result, err := Evaluate(expr, e.source, e.limits)
	if err != nil {
		return RollResult{}, err
	}
	result.ID = uuid.New()
	result.Context = context
	result.Timestamp = e.now()
	return result, nil
}

func (e *Engine) logRoll(r RollResult) {
	values := make([]int, len(r.Dice))
	for i, d := range r.Dice {
		values[i] = d.Value
	}
	e.logger.Debug("dice roll",
		zap.String("id", r.ID.String()),
		zap.String("expression", r.Expression),
		zap.String("context", r.Context),
		zap.Ints("dice", values),
		zap.Ints("kept", r.Kept()),
		zap.Int("total", r.Total),
	)
}

func (e *Engine) logFailure(expression, context string, err error) {
	e.logger.Debug("dice roll failed",
		zap.String("expression", expression),
		zap.String("context", context),
		zap.Error(err),
	)
}
