package dice

import (
	"fmt"
	"strconv"
	"strings"
)

// Node is a node of a parsed dice expression. The set of implementations is
// closed: *NumberNode, *DiceNode and *BinaryNode.
//
// Nodes are immutable once returned from Parse.
type Node interface {
	fmt.Stringer
	node()
}

// NumberNode is an integer constant.
type NumberNode struct {
	Value int
}

// DiceNode is a dice term: Count dice with Sides faces, then Modifiers.
//
// Invariant: Count >= 1, Sides >= 1.
type DiceNode struct {
	Count     int
	Sides     int
	Modifiers []Modifier
}

// Operator is a binary arithmetic operator.
type Operator byte

const (
	OpAdd Operator = '+'
	OpSub Operator = '-'
	OpMul Operator = '*'
	OpDiv Operator = '/'
)

func (o Operator) precedence() int {
	if o == OpMul || o == OpDiv {
		return 2
	}
	return 1
}

// BinaryNode combines two sub-expressions with Op.
type BinaryNode struct {
	Op    Operator
	Left  Node
	Right Node
}

func (*NumberNode) node() {}
func (*DiceNode) node()   {}
func (*BinaryNode) node() {}

func (n *NumberNode) String() string { return strconv.Itoa(n.Value) }

func (n *DiceNode) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%dd%d", n.Count, n.Sides)
	for _, m := range n.Modifiers {
		b.WriteString(m.notation(n.Sides))
	}
	return b.String()
}

func (n *BinaryNode) String() string {
	return operand(n.Left, n.Op, false) + string(n.Op) + operand(n.Right, n.Op, true)
}

// operand renders child, parenthesized when dropping the parentheses would
// change how it re-parses under parent.
func operand(child Node, parent Operator, right bool) string {
	b, ok := child.(*BinaryNode)
	if !ok {
		return child.String()
	}
	p, pp := b.Op.precedence(), parent.precedence()
	if p < pp || (right && p == pp) {
		return "(" + b.String() + ")"
	}
	return b.String()
}

// ModifierKind tags the variant of a Modifier.
type ModifierKind int

const (
	KeepHighest ModifierKind = iota + 1
	KeepLowest
	DropHighest
	DropLowest
	Reroll
	Explode
)

func (k ModifierKind) String() string {
	switch k {
	case KeepHighest:
		return "KeepHighest"
	case KeepLowest:
		return "KeepLowest"
	case DropHighest:
		return "DropHighest"
	case DropLowest:
		return "DropLowest"
	case Reroll:
		return "Reroll"
	case Explode:
		return "Explode"
	default:
		return "Unknown"
	}
}

// DefaultLimit in Modifier.Limit defers to the engine's configured maximum.
const DefaultLimit = -1

// Modifier alters how a dice term's rolled dice contribute to its value.
//
// N is used by the keep/drop kinds. Cond and Limit are used by Reroll and
// Explode; Limit is DefaultLimit unless the notation fixes it ("ro").
type Modifier struct {
	Kind  ModifierKind
	N     int
	Cond  Condition
	Limit int
}

func (m Modifier) notation(sides int) string {
	switch m.Kind {
	case KeepHighest:
		return "kh" + strconv.Itoa(m.N)
	case KeepLowest:
		return "kl" + strconv.Itoa(m.N)
	case DropHighest:
		return "dh" + strconv.Itoa(m.N)
	case DropLowest:
		return "dl" + strconv.Itoa(m.N)
	case Reroll:
		if m.Limit == 1 {
			return "ro" + m.Cond.String()
		}
		return "r" + m.Cond.String()
	case Explode:
		if m.Cond == (Condition{Op: Equal, Value: sides}) {
			return "!"
		}
		return "!" + m.Cond.String()
	default:
		panic(fmt.Sprintf("dice: unknown modifier kind %d", m.Kind))
	}
}

// CompareOp is the comparison used by a Condition.
type CompareOp int

const (
	Equal CompareOp = iota
	Less
	Greater
	LessEqual
	GreaterEqual
)

// Condition selects die faces for Reroll and Explode.
type Condition struct {
	Op    CompareOp
	Value int
}

// Match reports whether face satisfies the condition.
func (c Condition) Match(face int) bool {
	switch c.Op {
	case Less:
		return face < c.Value
	case Greater:
		return face > c.Value
	case LessEqual:
		return face <= c.Value
	case GreaterEqual:
		return face >= c.Value
	default:
		return face == c.Value
	}
}

// faces returns the closed interval of faces in [1, sides] matched by c.
// lo > hi means no face matches.
func (c Condition) faces(sides int) (lo, hi int) {
	switch c.Op {
	case Less:
		lo, hi = 1, c.Value-1
	case Greater:
		lo, hi = c.Value+1, sides
	case LessEqual:
		lo, hi = 1, c.Value
	case GreaterEqual:
		lo, hi = c.Value, sides
	default:
		lo, hi = c.Value, c.Value
	}
	return max(lo, 1), min(hi, sides)
}

func (c Condition) String() string {
	switch c.Op {
	case Less:
		return "<" + strconv.Itoa(c.Value)
	case Greater:
		return ">" + strconv.Itoa(c.Value)
	case LessEqual:
		return "<=" + strconv.Itoa(c.Value)
	case GreaterEqual:
		return ">=" + strconv.Itoa(c.Value)
	default:
		return strconv.Itoa(c.Value)
	}
}

// Expression is a parsed dice expression ready to be evaluated.
type Expression struct {
	Raw  string // original input string
	Root Node
}

// String renders the expression in canonical notation. Parsing the result
// yields a structurally identical Root.
func (e Expression) String() string {
	if e.Root == nil {
		return ""
	}
	return e.Root.String()
}

// Advantage and Disadvantage are the notation for the named d20 rolls.
// They are plain expressions; the grammar has no dedicated tokens for them.
const (
	Advantage    = "2d20kh1"
	Disadvantage = "2d20kl1"
)
