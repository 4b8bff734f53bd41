package dice

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by the typed errors below via errors.Is.
var (
	ErrParse        = errors.New("dice: parse error")
	ErrEvaluation   = errors.New("dice: evaluation error")
	ErrRandomSource = errors.New("dice: random source error")
)

// ParseErrorKind classifies a ParseError.
type ParseErrorKind int

const (
	InvalidToken ParseErrorKind = iota + 1
	UnexpectedToken
	UnbalancedParentheses
	InvalidDieSize
)

func (k ParseErrorKind) String() string {
	switch k {
	case InvalidToken:
		return "InvalidToken"
	case UnexpectedToken:
		return "UnexpectedToken"
	case UnbalancedParentheses:
		return "UnbalancedParentheses"
	case InvalidDieSize:
		return "InvalidDieSize"
	default:
		return "Unknown"
	}
}

// ParseError reports why an expression could not be parsed.
// Pos is the byte offset of the offending token in Expression.
type ParseError struct {
	Kind       ParseErrorKind
	Pos        int
	Token      string
	Expression string
	Msg        string
}

func (e *ParseError) Error() string {
	tok := e.Token
	if tok == "" {
		tok = "end of expression"
	} else {
		tok = fmt.Sprintf("%q", tok)
	}
	if e.Msg != "" {
		return fmt.Sprintf("dice: %s at position %d (%s) in %q: %s", e.Kind, e.Pos, tok, e.Expression, e.Msg)
	}
	return fmt.Sprintf("dice: %s at position %d (%s) in %q", e.Kind, e.Pos, tok, e.Expression)
}

// Is reports whether target is ErrParse.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// EvaluationErrorKind classifies an EvaluationError.
type EvaluationErrorKind int

const (
	RerollLimitExceeded EvaluationErrorKind = iota + 1
	ExplodeLimitExceeded
	DivisionByZero
	TooManyDice
	Overflow
)

func (k EvaluationErrorKind) String() string {
	switch k {
	case RerollLimitExceeded:
		return "RerollLimitExceeded"
	case ExplodeLimitExceeded:
		return "ExplodeLimitExceeded"
	case DivisionByZero:
		return "DivisionByZero"
	case TooManyDice:
		return "TooManyDice"
	case Overflow:
		return "Overflow"
	default:
		return "Unknown"
	}
}

// EvaluationError reports a failure while evaluating a parsed expression.
type EvaluationError struct {
	Kind       EvaluationErrorKind
	Expression string
	Detail     string
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("dice: %s evaluating %q: %s", e.Kind, e.Expression, e.Detail)
}

// Is reports whether target is ErrEvaluation.
func (e *EvaluationError) Is(target error) bool { return target == ErrEvaluation }

// RandomSourceError wraps a failure of the underlying random source.
// The Engine recovers from it by switching to a FallbackSource; it only
// reaches callers of Evaluate that supply a source directly.
type RandomSourceError struct {
	Err error
}

func (e *RandomSourceError) Error() string {
	return fmt.Sprintf("dice: random source unavailable: %v", e.Err)
}

func (e *RandomSourceError) Unwrap() error { return e.Err }

// Is reports whether target is ErrRandomSource.
func (e *RandomSourceError) Is(target error) bool { return target == ErrRandomSource }

// BatchError identifies which member of a RollBatch call failed.
type BatchError struct {
	Index int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("dice: batch expression %d: %v", e.Index, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }
