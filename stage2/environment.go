// Package stage2 implements the begin/end folder: it consumes a stage 1
// chunk sequence and folds every matched \begin{label}…\end{label}
// command pair into a single Environment node.
package stage2

import (
	"strings"

	"github.com/texdoc/latexast/internal/node"
)

func countNewlines(s string) int { return strings.Count(s, "\n") }

// Environment is a \begin{label}…\end{label} pair rewritten as one node:
// the label's own arguments (beyond the label itself), the folded content
// between begin and end, and the two whitespace runs that round-trip the
// layout around \begin/\end and their first (label) argument.
type Environment struct {
	Label     string
	Arguments []node.Argument
	Content   []node.Chunk
	PrecBegin string
	PrecEnd   string
}

// ValidateEnvironmentLabel applies invariant 1's sanitisation rule to an
// environment label (environments have no single-character shorthand the
// way escape-commands do, so unlike ValidateLabel there is no exemption).
func ValidateEnvironmentLabel(label string) error {
	return node.ValidateText(label)
}

// NewEnvironment is the checked Environment constructor.
func NewEnvironment(label string, args []node.Argument, content []node.Chunk, precBegin, precEnd string) (*Environment, error) {
	if err := ValidateEnvironmentLabel(label); err != nil {
		return nil, err
	}
	if err := node.ValidateLineSequence(content); err != nil {
		return nil, err
	}
	return &Environment{Label: label, Arguments: args, Content: content, PrecBegin: precBegin, PrecEnd: precEnd}, nil
}

func NewEnvironmentUnchecked(label string, args []node.Argument, content []node.Chunk, precBegin, precEnd string) *Environment {
	return &Environment{Label: label, Arguments: args, Content: content, PrecBegin: precBegin, PrecEnd: precEnd}
}

// Lines counts the source lines the environment spans, from \begin to
// \end inclusive (minimum 1).
func (e *Environment) Lines() int {
	n := countNewlines(e.Label)*2 + countNewlines(e.PrecBegin) + countNewlines(e.PrecEnd)
	for _, a := range e.Arguments {
		n += countNewlines(a.Preceding) + a.Scope.Lines() - 1
	}
	for _, c := range e.Content {
		n += c.Lines() - 1
	}
	return n + 1
}

// String reconstructs the environment as the \begin/content/\end
// triple: a \begin command carrying the label as a Curly scope followed
// by the environment's remaining arguments, the content, then a matching
// \end command.
func (e *Environment) String() string {
	var b strings.Builder
	b.WriteString(`\begin`)
	b.WriteString(e.PrecBegin)
	b.WriteByte('{')
	b.WriteString(e.Label)
	b.WriteByte('}')
	for _, a := range e.Arguments {
		b.WriteString(a.Preceding)
		b.WriteString(a.Scope.String())
	}
	for _, c := range e.Content {
		b.WriteString(c.String())
	}
	b.WriteString(`\end`)
	b.WriteString(e.PrecEnd)
	b.WriteByte('{')
	b.WriteString(e.Label)
	b.WriteByte('}')
	return b.String()
}

// Validate checks the environment's label and the line-number invariant of
// its content. Arguments and chunks nested inside the content are not
// checked.
func (e *Environment) Validate() error {
	if err := ValidateEnvironmentLabel(e.Label); err != nil {
		return err
	}
	return node.ValidateLineSequence(e.Content)
}
