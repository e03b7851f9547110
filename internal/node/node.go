// Package node holds the composite shapes every stage's tree is built
// from: Text, Scope, Command, and the Chunk wrapper around them. Stage 2
// adds Environment and stage 3 adds MathsBlock/ParagraphBreak on top of
// this package rather than inside it, since those variants do not exist
// at every stage; the shapes shared by all stages live here exactly once.
package node

import (
	"strings"

	"github.com/texdoc/latexast/internal/synerr"
	"github.com/texdoc/latexast/internal/variant"
)

// Variant is satisfied by every chunk payload at every stage: Text,
// *Scope, *Command, and the stage-specific additions (Environment,
// MathsBlock, ParagraphBreak). Go has no closed sum types, so this is an
// open interface rather than an enum; callers use a type switch the way
// go/ast callers switch on ast.Node.
type Variant interface {
	Lines() int
	String() string
}

// Chunk is the smallest self-contained unit of a document: an absolute
// source line plus its payload.
type Chunk struct {
	Line    int
	Variant Variant
}

func (c Chunk) Lines() int     { return c.Variant.Lines() }
func (c Chunk) String() string { return c.Variant.String() }

func countNewlines(s string) int { return strings.Count(s, "\n") }

// Text is a run of plain characters. Invariant 1 forbids backslash,
// percent, and bracket characters so that a Text chunk can never be
// confused with the start of a command, comment, or scope.
type Text string

func (t Text) Lines() int     { return countNewlines(string(t)) + 1 }
func (t Text) String() string { return string(t) }

// ValidateText enforces invariant 1.
func ValidateText(s string) error {
	for _, r := range s {
		if r == '\\' || r == '%' || variant.IsOpening(r) || variant.IsClosing(r) {
			return synerr.Internal(synerr.UnsanitisedCharInString,
				"text %q contains disallowed character %q", s, r)
		}
	}
	return nil
}

// NewText is the checked Text constructor.
func NewText(s string) (Text, error) {
	if err := ValidateText(s); err != nil {
		return "", err
	}
	return Text(s), nil
}

// NewTextUnchecked trusts the caller; used when text is known-good, e.g.
// freshly parsed from source.
func NewTextUnchecked(s string) Text {
	return Text(s)
}

// Scope is a balanced bracket pair and the chunks between them.
type Scope struct {
	ScopeVariant variant.ScopeVariant
	Children     []Chunk
}

func (s *Scope) Lines() int {
	total := 1
	for _, c := range s.Children {
		total += c.Lines() - 1
	}
	return total
}

func (s *Scope) String() string {
	var b strings.Builder
	b.WriteRune(s.ScopeVariant.Open())
	for _, c := range s.Children {
		b.WriteString(c.String())
	}
	b.WriteRune(s.ScopeVariant.Close())
	return b.String()
}

// NewScope is the checked Scope constructor; it validates that the
// child sequence's line numbers are monotone per invariant 2.
func NewScope(v variant.ScopeVariant, children []Chunk) (*Scope, error) {
	if err := ValidateLineSequence(children); err != nil {
		return nil, err
	}
	return &Scope{ScopeVariant: v, Children: children}, nil
}

func NewScopeUnchecked(v variant.ScopeVariant, children []Chunk) *Scope {
	return &Scope{ScopeVariant: v, Children: children}
}

// Argument is one bracketed argument of a Command or Environment, paired
// with the whitespace/comment text that preceded its opening bracket.
type Argument struct {
	Preceding string
	Scope     Scope
}

// Command is a backslash-prefixed label followed by zero or more
// bracketed arguments.
type Command struct {
	Label     string
	Arguments []Argument
}

func (c *Command) Lines() int {
	total := countNewlines(c.Label) + 1
	for _, a := range c.Arguments {
		total += countNewlines(a.Preceding) + a.Scope.Lines() - 1
	}
	return total
}

func (c *Command) String() string {
	var b strings.Builder
	b.WriteByte('\\')
	b.WriteString(c.Label)
	for _, a := range c.Arguments {
		b.WriteString(a.Preceding)
		b.WriteString(a.Scope.String())
	}
	return b.String()
}

// ValidateLabel enforces invariant 3: multi-character labels obey the
// Text rule; a single character may be anything (it encodes escapes like
// \{, \}, \$, \\).
func ValidateLabel(label string) error {
	if len([]rune(label)) <= 1 {
		return nil
	}
	return ValidateText(label)
}

// NewCommand is the checked Command constructor.
func NewCommand(label string, args []Argument) (*Command, error) {
	if err := ValidateLabel(label); err != nil {
		return nil, err
	}
	return &Command{Label: label, Arguments: args}, nil
}

func NewCommandUnchecked(label string, args []Argument) *Command {
	return &Command{Label: label, Arguments: args}
}

// ValidateLineSequence enforces invariant 2 over a chunk sequence: the
// first chunk may begin at any base line, but each subsequent chunk's
// line must equal the prior chunk's line plus (prior chunk's lines - 1).
func ValidateLineSequence(chunks []Chunk) error {
	for i := 1; i < len(chunks); i++ {
		want := chunks[i-1].Line + chunks[i-1].Lines() - 1
		if chunks[i].Line != want {
			return synerr.Internal(synerr.IncorrectChunkLineNumber,
				"chunk %d: expected line %d, got %d", i, want, chunks[i].Line)
		}
	}
	return nil
}

// DocumentLines counts the source lines a top-level chunk sequence
// spans (minimum 1).
func DocumentLines(chunks []Chunk) int {
	total := 1
	for _, c := range chunks {
		total += c.Lines() - 1
	}
	return total
}

// DocumentString concatenates a chunk sequence's serialised form.
func DocumentString(chunks []Chunk) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.String())
	}
	return b.String()
}

// AppendText appends a Text chunk to chunks, merging it into a trailing
// Text chunk when one is already present. Returns the updated slice.
func AppendText(chunks []Chunk, line int, t Text) []Chunk {
	if t == "" {
		return chunks
	}
	if n := len(chunks); n > 0 {
		if prev, ok := chunks[n-1].Variant.(Text); ok {
			chunks[n-1].Variant = prev + t
			return chunks
		}
	}
	return append(chunks, Chunk{Line: line, Variant: t})
}

// AppendChunk appends a non-Text chunk as-is; Text chunks should go
// through AppendText so adjacent runs merge.
func AppendChunk(chunks []Chunk, c Chunk) []Chunk {
	if t, ok := c.Variant.(Text); ok {
		return AppendText(chunks, c.Line, t)
	}
	return append(chunks, c)
}

// NextLine returns the absolute line immediately after the given chunk
// sequence, i.e. where an appended chunk must begin to satisfy invariant 2.
func NextLine(baseLine int, chunks []Chunk) int {
	if len(chunks) == 0 {
		return baseLine
	}
	last := chunks[len(chunks)-1]
	return last.Line + last.Lines() - 1
}
