package dice

import (
	"time"

	"github.com/google/uuid"
)

// DieResult is the final state of a single die within a RollResult.
type DieResult struct {
	Term     int   `json:"term" yaml:"term"`                             // index of the dice term, in evaluation order
	Sides    int   `json:"sides" yaml:"sides"`                           // faces on the die
	Value    int   `json:"value" yaml:"value"`                           // face showing after rerolls
	Kept     bool  `json:"kept" yaml:"kept"`                             // whether Value counts toward the total
	Exploded bool  `json:"exploded,omitempty" yaml:"exploded,omitempty"` // added by an explosion
	Rerolls  []int `json:"rerolls,omitempty" yaml:"rerolls,omitempty"`   // superseded faces, oldest first
}

// ModifierStep records one modifier application and the dice it touched:
// rerolled dice for "r", added dice for "!", dropped dice for keep/drop.
// Unresolved lists the dice that still match a reroll condition once the
// redraw limit is spent; their last value stands.
type ModifierStep struct {
	Term       int    `json:"term" yaml:"term"`
	Modifier   string `json:"modifier" yaml:"modifier"`
	Affected   []int  `json:"affected" yaml:"affected"` // indices into RollResult.Dice
	Unresolved []int  `json:"unresolved,omitempty" yaml:"unresolved,omitempty"`
}

// RollResult holds the full audit trail for a single expression evaluation.
//
// Postcondition: Total equals the kept dice of each term combined with the
// expression's constants and operators.
type RollResult struct {
	ID         uuid.UUID      `json:"id" yaml:"id"`
	Expression string         `json:"expression" yaml:"expression"`
	Context    string         `json:"context,omitempty" yaml:"context,omitempty"`
	Total      int            `json:"total" yaml:"total"`
	Dice       []DieResult    `json:"dice" yaml:"dice"`
	Breakdown  []ModifierStep `json:"breakdown,omitempty" yaml:"breakdown,omitempty"`
	Timestamp  time.Time      `json:"timestamp" yaml:"timestamp"`
}

// Kept returns the values of the kept dice in roll order.
func (r RollResult) Kept() []int {
	var out []int
	for _, d := range r.Dice {
		if d.Kept {
			out = append(out, d.Value)
		}
	}
	return out
}

// Dropped returns the values of the dropped dice in roll order.
func (r RollResult) Dropped() []int {
	var out []int
	for _, d := range r.Dice {
		if !d.Kept {
			out = append(out, d.Value)
		}
	}
	return out
}
