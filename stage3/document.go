// Package stage3 implements the final refinement pass: it consumes a
// stage 2 document, splits out inline/display maths blocks and paragraph
// breaks, and partitions the chunk stream around the document
// environment into preamble, body, and trailing sections.
package stage3

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/texdoc/latexast/internal/node"
	"github.com/texdoc/latexast/internal/synerr"
	"github.com/texdoc/latexast/internal/variant"
	"github.com/texdoc/latexast/stage1"
	"github.com/texdoc/latexast/stage2"
)

// Document is the stage 3 AST. Preamble and trailing chunks keep their
// absolute source lines; body chunks are relative to the document
// environment, which begins at BodyLine.
type Document struct {
	documentClass    string
	hasDocumentClass bool
	documentOptions  []DocumentOption

	preamble []node.Chunk

	hasBody       bool
	body          []node.Chunk
	bodyLine      int
	bodyArgs      []node.Argument
	bodyBeginPrec string
	bodyEndPrec   string

	trailing []node.Chunk
}

// Upgrade refines a stage 2 document. maxDepth bounds recursive
// maths/scope refinement (stage1.DefaultMaxNestingDepth is used when
// <= 0); logger may be nil.
func Upgrade(doc *stage2.Document, maxDepth int, logger logrus.FieldLogger) (*Document, error) {
	if maxDepth <= 0 {
		maxDepth = stage1.DefaultMaxNestingDepth
	}

	d := &Document{}
	var preambleRaw, trailingRaw []node.Chunk

	for _, chunk := range doc.Chunks() {
		if env, ok := chunk.Variant.(*stage2.Environment); ok && env.Label == "document" && !d.hasBody {
			lifted, err := liftEnvironment(env, maxDepth, 0, logger)
			if err != nil {
				return nil, shiftErr(err, chunk.Line-1)
			}
			d.hasBody = true
			d.bodyLine = chunk.Line
			d.bodyArgs = lifted.Arguments
			d.body = lifted.Content
			d.bodyBeginPrec = lifted.PrecBegin
			d.bodyEndPrec = lifted.PrecEnd
			continue
		}

		if d.hasBody {
			trailingRaw = append(trailingRaw, chunk)
			continue
		}

		if cmd, ok := chunk.Variant.(*node.Command); ok && cmd.Label == "documentclass" {
			if err := d.readDocumentClass(chunk.Line, cmd); err != nil {
				return nil, err
			}
		}
		preambleRaw = append(preambleRaw, chunk)
	}

	var err error
	if d.preamble, err = refineChunks(preambleRaw, maxDepth, 0, logger); err != nil {
		return nil, err
	}
	if d.trailing, err = refineChunks(trailingRaw, maxDepth, 0, logger); err != nil {
		return nil, err
	}
	return d, nil
}

// readDocumentClass extracts the class name and option list from a
// preamble \documentclass command. The command chunk itself stays in the
// preamble, so these fields are derived metadata rather than a separate
// serialisation source.
func (d *Document) readDocumentClass(line int, cmd *node.Command) error {
	if d.hasDocumentClass {
		return synerr.New(line, synerr.DoubleDocumentClass, "\\documentclass appears more than once")
	}
	for _, a := range cmd.Arguments {
		if a.Scope.ScopeVariant == variant.Curly {
			if d.hasDocumentClass {
				return synerr.New(line, synerr.TooManyArgsDocumentClass,
					"\\documentclass takes exactly one class name")
			}
			d.documentClass = node.DocumentString(a.Scope.Children)
			d.hasDocumentClass = true
			continue
		}
		d.documentOptions = append(d.documentOptions, ParseOptions(node.DocumentString(a.Scope.Children))...)
	}
	return nil
}

// DocumentClass returns the \documentclass name, if one was declared.
func (d *Document) DocumentClass() (string, bool) { return d.documentClass, d.hasDocumentClass }

// DocumentOptions returns the parsed \documentclass option list in
// source order.
func (d *Document) DocumentOptions() []DocumentOption { return d.documentOptions }

// Preamble returns the chunks before \begin{document}.
func (d *Document) Preamble() []node.Chunk { return d.preamble }

// Body returns the chunks inside the document environment, or nil when
// the source has none.
func (d *Document) Body() []node.Chunk { return d.body }

// Trailing returns the chunks after \end{document}.
func (d *Document) Trailing() []node.Chunk { return d.trailing }

// HasBody reports whether the source contained a document environment.
func (d *Document) HasBody() bool { return d.hasBody }

// BodyLine returns the absolute line where the document environment
// begins (0 when there is none).
func (d *Document) BodyLine() int { return d.bodyLine }

// BodyArgs returns the document environment's arguments beyond its label.
func (d *Document) BodyArgs() []node.Argument { return d.bodyArgs }

// BodyPrecs returns the whitespace between \begin/\end and their label
// argument.
func (d *Document) BodyPrecs() (begin, end string) { return d.bodyBeginPrec, d.bodyEndPrec }

// Decompose returns every field of the document.
func (d *Document) Decompose() (documentClass string, hasDocumentClass bool, options []DocumentOption,
	preamble []node.Chunk, body []node.Chunk, bodyLine int, bodyArgs []node.Argument,
	bodyBeginPrec, bodyEndPrec string, trailing []node.Chunk) {
	return d.documentClass, d.hasDocumentClass, d.documentOptions,
		d.preamble, d.body, d.bodyLine, d.bodyArgs,
		d.bodyBeginPrec, d.bodyEndPrec, d.trailing
}

// bodyEnvironment rebuilds the document environment node the body was
// extracted from.
func (d *Document) bodyEnvironment() *stage2.Environment {
	return stage2.NewEnvironmentUnchecked("document", d.bodyArgs, d.body, d.bodyBeginPrec, d.bodyEndPrec)
}

// String reconstructs the original source text, re-inserting the
// \begin{document}…\end{document} framing around the body.
func (d *Document) String() string {
	var b strings.Builder
	b.WriteString(node.DocumentString(d.preamble))
	if d.hasBody {
		b.WriteString(d.bodyEnvironment().String())
	}
	b.WriteString(node.DocumentString(d.trailing))
	return b.String()
}

// Lines returns the number of source lines the document spans (minimum 1).
func (d *Document) Lines() int {
	total := 1
	for _, c := range d.preamble {
		total += c.Lines() - 1
	}
	if d.hasBody {
		total += d.bodyEnvironment().Lines() - 1
	}
	for _, c := range d.trailing {
		total += c.Lines() - 1
	}
	return total
}

// Validate checks every stage 3 invariant reachable from the document.
func (d *Document) Validate() error {
	if err := ValidateChunks(d.preamble); err != nil {
		return err
	}
	if d.hasBody {
		if err := validateArguments(d.bodyArgs); err != nil {
			return err
		}
		if err := ValidateChunks(d.body); err != nil {
			return err
		}
	}
	return ValidateChunks(d.trailing)
}

// trailingBase returns the absolute line where the trailing section
// begins.
func (d *Document) trailingBase() int {
	if !d.hasBody {
		return node.NextLine(1, d.preamble)
	}
	return d.bodyLine + d.bodyEnvironment().Lines() - 1
}

// PushPreamble appends a chunk to the preamble, checking the stage 3
// invariants and the line-number continuation.
func (d *Document) PushPreamble(c node.Chunk) error {
	if err := ValidateChunk(c); err != nil {
		return err
	}
	if want := node.NextLine(1, d.preamble); c.Line != want {
		return synerr.Internal(synerr.IncorrectChunkLineNumber, "expected line %d, got %d", want, c.Line)
	}
	d.preamble = node.AppendChunk(d.preamble, c)
	return nil
}

func (d *Document) PushPreambleUnchecked(c node.Chunk) {
	d.preamble = node.AppendChunk(d.preamble, c)
}

// PushBody appends a chunk to the body; its line is relative to the
// document environment.
func (d *Document) PushBody(c node.Chunk) error {
	if err := ValidateChunk(c); err != nil {
		return err
	}
	if want := node.NextLine(1, d.body); c.Line != want {
		return synerr.Internal(synerr.IncorrectChunkLineNumber, "expected line %d, got %d", want, c.Line)
	}
	d.hasBody = true
	if d.bodyLine == 0 {
		d.bodyLine = node.NextLine(1, d.preamble)
	}
	d.body = node.AppendChunk(d.body, c)
	return nil
}

func (d *Document) PushBodyUnchecked(c node.Chunk) {
	d.hasBody = true
	if d.bodyLine == 0 {
		d.bodyLine = node.NextLine(1, d.preamble)
	}
	d.body = node.AppendChunk(d.body, c)
}

// PushTrailing appends a chunk after \end{document}.
func (d *Document) PushTrailing(c node.Chunk) error {
	if err := ValidateChunk(c); err != nil {
		return err
	}
	want := d.trailingBase()
	if len(d.trailing) > 0 {
		want = node.NextLine(want, d.trailing)
	}
	if c.Line != want {
		return synerr.Internal(synerr.IncorrectChunkLineNumber, "expected line %d, got %d", want, c.Line)
	}
	d.trailing = node.AppendChunk(d.trailing, c)
	return nil
}

func (d *Document) PushTrailingUnchecked(c node.Chunk) {
	d.trailing = node.AppendChunk(d.trailing, c)
}
