package dice

import (
	"fmt"
	"math"
	"slices"
	"sort"
)

const (
	DefaultRerollMax  = 2
	DefaultExplodeMax = 100
	DefaultMaxDice    = 1000
)

// Limits bounds the work a single evaluation may perform.
type Limits struct {
	RerollMax  int // redraws per die for "r" without an explicit limit
	ExplodeMax int // extra dice per term for "!"
	MaxDice    int // largest Count accepted for one dice term
}

// DefaultLimits returns the limits used when nothing is configured.
func DefaultLimits() Limits {
	return Limits{
		RerollMax:  DefaultRerollMax,
		ExplodeMax: DefaultExplodeMax,
		MaxDice:    DefaultMaxDice,
	}
}

// Evaluate rolls expr with draws from src.
//
// Modifiers on a dice term apply in a fixed order regardless of how they are
// written: rerolls, then explosions, then keep/drop in written order.
// Division truncates toward zero. A sum, difference, product or quotient
// that does not fit in an int fails with Overflow.
//
// Precondition: expr must come from Parse; src must be non-nil.
// Postcondition: result is a deterministic function of expr, limits and the
// sequence of values src returns. Every die value is in [1, Sides].
// Returns *EvaluationError or *RandomSourceError on failure.
func Evaluate(expr Expression, src RandomSource, limits Limits) (RollResult, error) {
	ev := &evaluator{src: src, limits: limits, raw: expr.Raw}
	total, err := ev.eval(expr.Root)
	if err != nil {
		return RollResult{}, err
	}
	return RollResult{
		Expression: expr.Raw,
		Total:      total,
		Dice:       ev.dice,
		Breakdown:  ev.steps,
	}, nil
}

type evaluator struct {
	src    RandomSource
	limits Limits
	raw    string
	dice   []DieResult
	steps  []ModifierStep
	terms  int
}

func (e *evaluator) fail(kind EvaluationErrorKind, format string, args ...any) error {
	return &EvaluationError{Kind: kind, Expression: e.raw, Detail: fmt.Sprintf(format, args...)}
}

func (e *evaluator) eval(n Node) (int, error) {
	switch n := n.(type) {
	case *NumberNode:
		return n.Value, nil
	case *DiceNode:
		return e.evalDice(n)
	case *BinaryNode:
		l, err := e.eval(n.Left)
		if err != nil {
			return 0, err
		}
		r, err := e.eval(n.Right)
		if err != nil {
			return 0, err
		}
		var (
			v  int
			ok bool
		)
		switch n.Op {
		case OpAdd:
			v, ok = addInt(l, r)
		case OpSub:
			v, ok = subInt(l, r)
		case OpMul:
			v, ok = mulInt(l, r)
		case OpDiv:
			if r == 0 {
				return 0, e.fail(DivisionByZero, "%s evaluated to 0", n.Right)
			}
			v, ok = l/r, !(l == math.MinInt && r == -1)
		default:
			panic(fmt.Sprintf("dice: unknown operator %q", n.Op))
		}
		if !ok {
			return 0, e.fail(Overflow, "%d %c %d does not fit in an int", l, n.Op, r)
		}
		return v, nil
	default:
		panic(fmt.Sprintf("dice: unknown node type %T", n))
	}
}

func (e *evaluator) draw(sides int) (int, error) {
	v, err := e.src.NextInt(sides)
	if err != nil {
		return 0, &RandomSourceError{Err: err}
	}
	if v < 1 || v > sides {
		return 0, &RandomSourceError{Err: errOutOfRange(v, sides)}
	}
	return v, nil
}

func (e *evaluator) evalDice(n *DiceNode) (int, error) {
	term := e.terms
	e.terms++

	if n.Count > e.limits.MaxDice {
		return 0, e.fail(TooManyDice, "%d dice requested, at most %d allowed", n.Count, e.limits.MaxDice)
	}

	var (
		rerolls   []Modifier
		explode   *Modifier
		keepDrops []Modifier
	)
	for i := range n.Modifiers {
		m := n.Modifiers[i]
		switch m.Kind {
		case Reroll:
			rerolls = append(rerolls, m)
		case Explode:
			explode = &n.Modifiers[i]
		case KeepHighest, KeepLowest, DropHighest, DropLowest:
			keepDrops = append(keepDrops, m)
		default:
			panic(fmt.Sprintf("dice: unknown modifier kind %d", m.Kind))
		}
	}

	if len(rerolls) > 0 && coversAllFaces(rerolls, n.Sides) {
		return 0, e.fail(RerollLimitExceeded, "reroll condition on d%d matches every face", n.Sides)
	}

	start := len(e.dice)
	for range n.Count {
		v, err := e.draw(n.Sides)
		if err != nil {
			return 0, err
		}
		e.dice = append(e.dice, DieResult{Term: term, Sides: n.Sides, Value: v, Kept: true})
	}

	if len(rerolls) > 0 {
		if err := e.applyRerolls(term, n, start, rerolls); err != nil {
			return 0, err
		}
	}
	if explode != nil {
		if err := e.applyExplode(term, n, start, *explode); err != nil {
			return 0, err
		}
	}
	for _, m := range keepDrops {
		e.applyKeepDrop(term, n, start, m)
	}

	sum := 0
	for _, d := range e.dice[start:] {
		if !d.Kept {
			continue
		}
		next, ok := addInt(sum, d.Value)
		if !ok {
			return 0, e.fail(Overflow, "sum of %dd%d does not fit in an int", n.Count, n.Sides)
		}
		sum = next
	}
	return sum, nil
}

func addInt(a, b int) (int, bool) {
	s := a + b
	return s, (s > a) == (b > 0)
}

func subInt(a, b int) (int, bool) {
	d := a - b
	return d, (d < a) == (b > 0)
}

func mulInt(a, b int) (int, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if (a == -1 && b == math.MinInt) || (b == -1 && a == math.MinInt) {
		return 0, false
	}
	p := a * b
	return p, p/b == a
}

func (e *evaluator) applyRerolls(term int, n *DiceNode, start int, rerolls []Modifier) error {
	limit := e.limits.RerollMax
	for _, m := range rerolls {
		if m.Limit != DefaultLimit {
			limit = m.Limit
			break
		}
	}
	matches := func(v int) bool {
		for _, m := range rerolls {
			if m.Cond.Match(v) {
				return true
			}
		}
		return false
	}

	var affected, unresolved []int
	for i := start; i < len(e.dice); i++ {
		d := &e.dice[i]
		for tries := 0; tries < limit && matches(d.Value); tries++ {
			v, err := e.draw(n.Sides)
			if err != nil {
				return err
			}
			d.Rerolls = append(d.Rerolls, d.Value)
			d.Value = v
		}
		if len(d.Rerolls) > 0 {
			affected = append(affected, i)
		}
		if matches(d.Value) {
			unresolved = append(unresolved, i)
		}
	}

	notation := ""
	for _, m := range rerolls {
		notation += m.notation(n.Sides)
	}
	e.steps = append(e.steps, ModifierStep{Term: term, Modifier: notation, Affected: affected, Unresolved: unresolved})
	return nil
}

func (e *evaluator) applyExplode(term int, n *DiceNode, start int, m Modifier) error {
	limit := e.limits.ExplodeMax
	if m.Limit != DefaultLimit {
		limit = m.Limit
	}

	var affected []int
	for i := start; i < len(e.dice); i++ {
		if !m.Cond.Match(e.dice[i].Value) {
			continue
		}
		if len(affected) == limit {
			return e.fail(ExplodeLimitExceeded, "d%d exploded more than %d times", n.Sides, limit)
		}
		v, err := e.draw(n.Sides)
		if err != nil {
			return err
		}
		e.dice = append(e.dice, DieResult{Term: term, Sides: n.Sides, Value: v, Kept: true, Exploded: true})
		affected = append(affected, len(e.dice)-1)
	}

	e.steps = append(e.steps, ModifierStep{Term: term, Modifier: m.notation(n.Sides), Affected: affected})
	return nil
}

// applyKeepDrop keeps or drops m.N of the term's currently kept dice.
// The dice are ranked highest first with equal values in roll order, so the
// earlier of two equal dice ranks higher: "dl1" on [3 3] drops the second
// die and "dh1" the first.
func (e *evaluator) applyKeepDrop(term int, n *DiceNode, start int, m Modifier) {
	var ranked []int
	for i := start; i < len(e.dice); i++ {
		if e.dice[i].Kept {
			ranked = append(ranked, i)
		}
	}
	sort.SliceStable(ranked, func(a, b int) bool { return e.dice[ranked[a]].Value > e.dice[ranked[b]].Value })

	k := min(m.N, len(ranked))
	var drop []int
	switch m.Kind {
	case KeepHighest:
		drop = ranked[k:]
	case KeepLowest:
		drop = ranked[:len(ranked)-k]
	case DropHighest:
		drop = ranked[:k]
	case DropLowest:
		drop = ranked[len(ranked)-k:]
	default:
		panic(fmt.Sprintf("dice: %s is not a keep/drop modifier", m.Kind))
	}

	drop = slices.Clone(drop)
	slices.Sort(drop)
	for _, i := range drop {
		e.dice[i].Kept = false
	}
	e.steps = append(e.steps, ModifierStep{Term: term, Modifier: m.notation(n.Sides), Affected: drop})
}

// coversAllFaces reports whether the union of the reroll conditions matches
// every face in [1, sides].
func coversAllFaces(rerolls []Modifier, sides int) bool {
	type span struct{ lo, hi int }
	var spans []span
	for _, m := range rerolls {
		lo, hi := m.Cond.faces(sides)
		if lo <= hi {
			spans = append(spans, span{lo, hi})
		}
	}
	sort.Slice(spans, func(a, b int) bool { return spans[a].lo < spans[b].lo })

	next := 1
	for _, s := range spans {
		if s.lo > next {
			return false
		}
		next = max(next, s.hi+1)
	}
	return next > sides
}
