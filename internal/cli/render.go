package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cory-johannsen/dicelang/internal/dice"
)

// RenderResult formats a roll for a terminal, e.g.
//
//	4d6dl1+2 = [5 3 6 2✗] + 2 = 16
//
// Dropped dice carry a trailing ✗, dice added by an explosion a trailing !,
// and rerolled dice list their superseded faces first ("1→4"). A non-empty
// context is prefixed as "context: ".
func RenderResult(r dice.RollResult) string {
	var b strings.Builder
	if r.Context != "" {
		b.WriteString(r.Context)
		b.WriteString(": ")
	}
	b.WriteString(r.Expression)
	if expr, err := dice.Parse(r.Expression); err == nil {
		if detail := describe(expr, r.Dice); detail != strconv.Itoa(r.Total) {
			b.WriteString(" = ")
			b.WriteString(detail)
		}
	}
	fmt.Fprintf(&b, " = %d", r.Total)
	return b.String()
}

// describe renders expr with each dice term replaced by the faces it rolled.
//
// Precondition: rolled must come from evaluating expr.
func describe(expr dice.Expression, rolled []dice.DieResult) string {
	d := describer{byTerm: make(map[int][]string)}
	for _, f := range rolled {
		d.byTerm[f.Term] = append(d.byTerm[f.Term], face(f))
	}
	return d.node(expr.Root)
}

type describer struct {
	byTerm map[int][]string
	term   int
}

func (d *describer) node(n dice.Node) string {
	switch n := n.(type) {
	case *dice.DiceNode:
		// Terms are numbered left to right, matching evaluation order.
		faces := d.byTerm[d.term]
		d.term++
		return "[" + strings.Join(faces, " ") + "]"
	case *dice.BinaryNode:
		left := d.operand(n.Left, n.Op, false)
		right := d.operand(n.Right, n.Op, true)
		return left + " " + string(n.Op) + " " + right
	default:
		return n.String()
	}
}

func (d *describer) operand(child dice.Node, parent dice.Operator, right bool) string {
	s := d.node(child)
	if b, ok := child.(*dice.BinaryNode); ok {
		p, pp := precedence(b.Op), precedence(parent)
		if p < pp || (right && p == pp) {
			return "(" + s + ")"
		}
	}
	return s
}

func precedence(op dice.Operator) int {
	if op == dice.OpMul || op == dice.OpDiv {
		return 2
	}
	return 1
}

func face(f dice.DieResult) string {
	var b strings.Builder
	for _, old := range f.Rerolls {
		b.WriteString(strconv.Itoa(old))
		b.WriteString("→")
	}
	b.WriteString(strconv.Itoa(f.Value))
	if f.Exploded {
		b.WriteByte('!')
	}
	if !f.Kept {
		b.WriteString("✗")
	}
	return b.String()
}
