package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/dicelang/internal/dice"
)

// parsedExpression is the output record of "roll parse".
type parsedExpression struct {
	Expression string `json:"expression" yaml:"expression"`
	Canonical  string `json:"canonical" yaml:"canonical"`
}

// encode writes v as JSON or YAML.
//
// Precondition: format is FormatJSON or FormatYAML.
func encode(w io.Writer, format string, v any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

func writeResults(w io.Writer, format string, results []dice.RollResult) error {
	if format != FormatText {
		return encode(w, format, results)
	}
	for _, r := range results {
		if _, err := fmt.Fprintln(w, RenderResult(r)); err != nil {
			return err
		}
	}
	return nil
}

func writeParsed(w io.Writer, format string, parsed []parsedExpression) error {
	if format != FormatText {
		return encode(w, format, parsed)
	}
	for _, p := range parsed {
		if _, err := fmt.Fprintln(w, p.Canonical); err != nil {
			return err
		}
	}
	return nil
}

// FormatError renders err for the terminal. Parse errors get a caret under
// the offending position of the expression.
func FormatError(err error) string {
	var perr *dice.ParseError
	if !errors.As(err, &perr) || perr.Expression == "" {
		return "error: " + err.Error()
	}
	pad := len([]rune(perr.Expression[:min(perr.Pos, len(perr.Expression))]))
	var b strings.Builder
	var berr *dice.BatchError
	if errors.As(err, &berr) {
		fmt.Fprintf(&b, "error: expression %d: %s\n", berr.Index+1, perr.Error())
	} else {
		fmt.Fprintf(&b, "error: %s\n", perr.Error())
	}
	fmt.Fprintf(&b, "  %s\n", perr.Expression)
	fmt.Fprintf(&b, "  %s^", strings.Repeat(" ", pad))
	return b.String()
}
