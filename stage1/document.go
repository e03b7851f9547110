// Package stage1 implements the character-level tokenizer: it turns a
// raw UTF-8 source string into a flat sequence of Text, Scope, and
// Command chunks without losing a single byte of input.
//
// The parser is a small buffer-mode state machine: a cursor over the
// input runes plus a handful of flags (escaped, comment) tracking what
// the previous character meant for the next one.
package stage1

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/texdoc/latexast/internal/node"
	"github.com/texdoc/latexast/internal/synerr"
	"github.com/texdoc/latexast/internal/variant"
)

// DefaultMaxNestingDepth bounds the recursion depth of the
// scope/argument sub-parses before MaxNestingDepth is raised, so
// adversarial input like {{{{…}}}} cannot overflow the stack.
const DefaultMaxNestingDepth = 512

// Document is the stage 1 AST: an ordered chunk sequence that reconstructs
// the source byte-for-byte via String.
type Document struct {
	chunks []node.Chunk
}

// NewDocument wraps an already-validated chunk sequence.
func NewDocument(chunks []node.Chunk) *Document { return &Document{chunks: chunks} }

// NewDocumentChecked validates the line-number invariant before wrapping.
func NewDocumentChecked(chunks []node.Chunk) (*Document, error) {
	if err := node.ValidateLineSequence(chunks); err != nil {
		return nil, err
	}
	return &Document{chunks: chunks}, nil
}

// Chunks returns the document's chunk sequence.
func (d *Document) Chunks() []node.Chunk { return d.chunks }

// ChunksOwned decomposes the document, returning its chunks. Go has no
// ownership-transfer concern, so this is equivalent to Chunks.
func (d *Document) ChunksOwned() []node.Chunk { return d.chunks }

// String reconstructs the original source text.
func (d *Document) String() string { return node.DocumentString(d.chunks) }

// Lines returns the number of source lines the document spans (minimum 1).
func (d *Document) Lines() int { return node.DocumentLines(d.chunks) }

// Validate checks the line-number invariant over the document's top-level
// chunks. Nested scopes and command arguments, text sanitisation and
// command labels are not checked.
func (d *Document) Validate() error {
	return node.ValidateLineSequence(d.chunks)
}

// Push appends a chunk, checking that it continues the line-number
// invariant. Adjacent Text chunks are merged.
func (d *Document) Push(c node.Chunk) error {
	want := node.NextLine(1, d.chunks)
	if c.Line != want {
		return synerr.Internal(synerr.IncorrectChunkLineNumber,
			"expected line %d, got %d", want, c.Line)
	}
	d.chunks = node.AppendChunk(d.chunks, c)
	return nil
}

// PushUnchecked appends a chunk without validating its line number.
func (d *Document) PushUnchecked(c node.Chunk) {
	d.chunks = node.AppendChunk(d.chunks, c)
}

// Parse runs the stage 1 tokenizer over source. maxDepth bounds recursive
// scope/argument parsing (DefaultMaxNestingDepth is used when <= 0); logger
// may be nil, in which case no diagnostic tracing is emitted.
func Parse(source string, maxDepth int, logger logrus.FieldLogger) (*Document, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxNestingDepth
	}
	chunks, err := parseChunks(source, maxDepth, 0, logger)
	if err != nil {
		return nil, err
	}
	return &Document{chunks: chunks}, nil
}

// bufMode is the parser's current cursor mode.
type bufMode int

const (
	modeText bufMode = iota
	modeScope
	modeCommand
)

// pendingArg is an in-progress command argument: its raw (unparsed) body,
// the bracket kind that opened it, and the whitespace that preceded it.
type pendingArg struct {
	content   strings.Builder
	variant   variant.ScopeVariant
	preceding string
}

// buffer is the parser's cursor state. Only the fields matching mode
// are meaningful; Go has no closed sum types, so the three buffer shapes
// share one struct.
type buffer struct {
	mode bufMode

	text strings.Builder

	scopeContent strings.Builder
	scopeVariant variant.ScopeVariant
	scopeDepth   int

	label    strings.Builder
	args     []*pendingArg
	cmdDepth int
	trailing strings.Builder
}

func textBuffer() *buffer { return &buffer{mode: modeText} }

func scopeBuffer(v variant.ScopeVariant) *buffer {
	return &buffer{mode: modeScope, scopeVariant: v, scopeDepth: 1}
}

func commandBuffer() *buffer { return &buffer{mode: modeCommand} }

// noScope reports whether the command buffer has not yet opened any
// argument (so plain characters still extend the label).
func (b *buffer) noScope() bool { return len(b.args) == 0 }

func (b *buffer) push(c rune) {
	switch b.mode {
	case modeScope:
		b.scopeContent.WriteRune(c)
	case modeCommand:
		if len(b.args) == 0 {
			b.label.WriteRune(c)
		} else {
			b.args[len(b.args)-1].content.WriteRune(c)
		}
	default:
		b.text.WriteRune(c)
	}
}

// pushScope opens a new command argument, claiming any buffered trailing
// whitespace as that argument's preceding string.
func (b *buffer) pushScope(v variant.ScopeVariant) {
	b.cmdDepth = 1
	b.args = append(b.args, &pendingArg{variant: v})
	if b.trailing.Len() > 0 {
		b.args[len(b.args)-1].preceding = b.trailing.String()
		b.trailing.Reset()
	}
}

func isASCIIAlpha(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isASCIIWhitespace(c rune) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

// flush converts the buffer accumulated so far into a single chunk
// (none, for an empty Text buffer). Scope and argument bodies are parsed
// recursively; the recursion is bounded by maxDepth/depth.
func flush(b *buffer, bufferLine, maxDepth, depth int, logger logrus.FieldLogger) (*node.Chunk, error) {
	switch b.mode {
	case modeText:
		s := b.text.String()
		if s == "" {
			return nil, nil
		}
		return &node.Chunk{Line: bufferLine, Variant: node.NewTextUnchecked(s)}, nil

	case modeScope:
		if b.scopeDepth != 0 {
			return nil, synerr.New(1, synerr.UnclosedScope,
				"%s scope never closed", b.scopeVariant)
		}
		children, err := parseChunks(b.scopeContent.String(), maxDepth, depth+1, logger)
		if err != nil {
			return nil, err
		}
		sc := node.NewScopeUnchecked(b.scopeVariant, children)
		return &node.Chunk{Line: bufferLine, Variant: sc}, nil

	default: // modeCommand
		if b.cmdDepth != 0 {
			open := b.args[len(b.args)-1].variant
			return nil, synerr.New(1, synerr.UnclosedArgument,
				"%s argument never closed", open)
		}
		arguments := make([]node.Argument, 0, len(b.args))
		for _, a := range b.args {
			children, err := parseChunks(a.content.String(), maxDepth, depth+1, logger)
			if err != nil {
				return nil, err
			}
			arguments = append(arguments, node.Argument{
				Preceding: a.preceding,
				Scope:     *node.NewScopeUnchecked(a.variant, children),
			})
		}
		cmd := node.NewCommandUnchecked(b.label.String(), arguments)
		if logger != nil {
			logger.WithFields(logrus.Fields{"stage": 1, "line": bufferLine, "kind": "command"}).
				Debug("parsed command")
		}
		return &node.Chunk{Line: bufferLine, Variant: cmd}, nil
	}
}

func countNewlines(s string) int { return strings.Count(s, "\n") }

// parseChunks is the character-level state machine. depth counts
// recursion through nested scopes/arguments; source is always the content
// of a single scope/argument/top-level document, so its own internal line
// numbers start at 1. The caller shifts a sub-parse's errors to absolute
// lines; the chunks it returns keep lines relative to their scope or
// argument.
func parseChunks(source string, maxDepth, depth int, logger logrus.FieldLogger) ([]node.Chunk, error) {
	if depth > maxDepth {
		return nil, synerr.New(1, synerr.MaxNestingDepth,
			"scope/argument nesting exceeds configured maximum of %d", maxDepth)
	}

	var chunks []node.Chunk
	lineNo := 1
	bufferLine := 1
	escaped := false
	comment := false
	b := textBuffer()

	doFlush := func() error {
		c, err := flush(b, bufferLine, maxDepth, depth, logger)
		if err != nil {
			if pe, ok := err.(*synerr.ParseError); ok {
				return pe.WithLineOffset(bufferLine - 1)
			}
			return err
		}
		if c != nil {
			chunks = append(chunks, *c)
		}
		bufferLine = lineNo
		return nil
	}

	for _, c := range source {
		switch {
		case c == '\n':
			comment = false
			lineNo++
		case c == '%' && !escaped:
			comment = true
			continue
		case c == '\\' && !escaped:
			escaped = true
			continue
		case comment:
			continue
		}

		switch b.mode {
		case modeText:
			switch {
			case escaped:
				if err := doFlush(); err != nil {
					return nil, err
				}
				nb := commandBuffer()
				nb.push(c)
				b = nb
				if !isASCIIAlpha(c) {
					if err := doFlush(); err != nil {
						return nil, err
					}
					b = textBuffer()
				}
			case variant.IsOpening(c):
				if err := doFlush(); err != nil {
					return nil, err
				}
				v, _ := variant.FromOpening(c)
				b = scopeBuffer(v)
			default:
				b.push(c)
			}

		case modeScope:
			switch {
			case escaped:
				b.push('\\')
				b.push(c)
			case c == b.scopeVariant.Open():
				b.scopeDepth++
				b.push(c)
			case c == b.scopeVariant.Close():
				b.scopeDepth--
				if b.scopeDepth == 0 {
					if err := doFlush(); err != nil {
						return nil, err
					}
					b = textBuffer()
				} else {
					b.push(c)
				}
			default:
				b.push(c)
			}

		default: // modeCommand
			switch {
			case b.cmdDepth == 0 && variant.IsOpening(c):
				v, _ := variant.FromOpening(c)
				b.pushScope(v)

			case b.cmdDepth == 0 && isASCIIWhitespace(c):
				b.trailing.WriteRune(c)

			case b.cmdDepth == 0 && escaped:
				trailing := b.trailing.String()
				if err := doFlush(); err != nil {
					return nil, err
				}
				if trailing != "" {
					tb := textBuffer()
					tb.text.WriteString(trailing)
					chunk, err := flush(tb, bufferLine-countNewlines(trailing), maxDepth, depth, logger)
					if err != nil {
						return nil, err
					}
					if chunk != nil {
						chunks = append(chunks, *chunk)
					}
				}
				bufferLine = lineNo
				nb := commandBuffer()
				nb.push(c)
				b = nb
				if !isASCIIAlpha(c) {
					if err := doFlush(); err != nil {
						return nil, err
					}
					b = textBuffer()
				}

			case b.cmdDepth != 0 && escaped:
				b.push('\\')
				b.push(c)

			case b.cmdDepth == 0 && b.trailing.Len() > 0:
				trailing := b.trailing.String()
				if err := doFlush(); err != nil {
					return nil, err
				}
				nb := textBuffer()
				nb.text.WriteString(trailing)
				nb.push(c)
				b = nb
				bufferLine = lineNo - countNewlines(trailing)

			case b.cmdDepth != 0 && c == b.args[len(b.args)-1].variant.Open():
				b.cmdDepth++
				b.push(c)

			case b.cmdDepth != 0 && c == b.args[len(b.args)-1].variant.Close():
				b.cmdDepth--
				if b.cmdDepth != 0 {
					b.push(c)
				}

			case b.cmdDepth == 0 && variant.IsClosing(c):
				v, _ := variant.FromClosing(c)
				return nil, synerr.New(lineNo, synerr.UnexpectedClosing,
					"unexpected closing %s with no matching open", v)

			case b.cmdDepth == 0 && !b.noScope():
				if err := doFlush(); err != nil {
					return nil, err
				}
				nb := textBuffer()
				nb.push(c)
				b = nb

			default:
				b.push(c)
			}
		}

		escaped = false
	}

	if b.mode == modeCommand && b.trailing.Len() > 0 {
		trailing := b.trailing.String()
		if err := doFlush(); err != nil {
			return nil, err
		}
		tb := textBuffer()
		tb.text.WriteString(trailing)
		chunk, err := flush(tb, bufferLine-countNewlines(trailing), maxDepth, depth, logger)
		if err != nil {
			return nil, err
		}
		if chunk != nil {
			chunks = append(chunks, *chunk)
		}
	} else if err := doFlush(); err != nil {
		return nil, err
	}

	return chunks, nil
}
