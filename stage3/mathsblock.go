package stage3

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/texdoc/latexast/internal/node"
	"github.com/texdoc/latexast/internal/synerr"
	"github.com/texdoc/latexast/internal/variant"
	"github.com/texdoc/latexast/stage2"
)

// MathsBlock is a region delimited by \(…\), \[…\], $…$ or $$…$$.
type MathsBlock struct {
	MathsVariant variant.MathsVariant
	MathsType    variant.MathsType
	Content      []node.Chunk
}

// NewMathsBlock is the checked MathsBlock constructor.
func NewMathsBlock(v variant.MathsVariant, t variant.MathsType, content []node.Chunk) (*MathsBlock, error) {
	if err := ValidateChunks(content); err != nil {
		return nil, err
	}
	return &MathsBlock{MathsVariant: v, MathsType: t, Content: content}, nil
}

func NewMathsBlockUnchecked(v variant.MathsVariant, t variant.MathsType, content []node.Chunk) *MathsBlock {
	return &MathsBlock{MathsVariant: v, MathsType: t, Content: content}
}

func (m *MathsBlock) Lines() int {
	total := 1
	for _, c := range m.Content {
		total += c.Lines() - 1
	}
	return total
}

func (m *MathsBlock) String() string {
	var b strings.Builder
	b.WriteString(variant.Open(m.MathsVariant, m.MathsType))
	for _, c := range m.Content {
		b.WriteString(c.String())
	}
	b.WriteString(variant.Close(m.MathsVariant, m.MathsType))
	return b.String()
}

// Validate recursively checks the block's content.
func (m *MathsBlock) Validate() error {
	return ValidateChunks(m.Content)
}

// mathsMode is the extraction cursor state. Dollar maths needs the extra
// DoubleClosing latch: the first $ of a closing $$ commits nothing until
// its twin arrives.
type mathsMode int

const (
	mathsNone mathsMode = iota
	mathsSingle
	mathsDouble
	mathsDoubleClosing
)

func shiftErr(err error, delta int) error {
	if pe, ok := err.(*synerr.ParseError); ok {
		return pe.WithLineOffset(delta)
	}
	return err
}

// refineChunks maps a stage 2 chunk sequence to stage 3: maths regions
// become MathsBlock chunks, then blank-line runs in the remaining text
// become ParagraphBreak chunks. Chunk lines keep the base of the input
// sequence; a block's buffered content is made relative before the
// recursive pass over it.
func refineChunks(chunks []node.Chunk, maxDepth, depth int, logger logrus.FieldLogger) ([]node.Chunk, error) {
	if depth > maxDepth {
		return nil, synerr.New(1, synerr.MaxNestingDepth,
			"maths nesting exceeds configured maximum of %d", maxDepth)
	}

	var (
		out          []node.Chunk
		mode         = mathsNone
		mvar         variant.MathsVariant
		bracketDepth int
		buffer       []node.Chunk
		bufferLine   int
	)

	closeBlock := func(t variant.MathsType) error {
		rel := make([]node.Chunk, len(buffer))
		for i, c := range buffer {
			c.Line -= bufferLine - 1
			rel[i] = c
		}
		content, err := refineChunks(rel, maxDepth, depth+1, logger)
		if err != nil {
			return shiftErr(err, bufferLine-1)
		}
		if logger != nil {
			logger.WithFields(logrus.Fields{"stage": 3, "line": bufferLine, "kind": "maths", "type": t.String()}).
				Debug("closed maths block")
		}
		out = append(out, node.Chunk{Line: bufferLine, Variant: NewMathsBlockUnchecked(mvar, t, content)})
		buffer = nil
		mode = mathsNone
		bracketDepth = 0
		return nil
	}

	for _, chunk := range chunks {
		switch v := chunk.Variant.(type) {
		case *node.Command:
			label := v.Label
			switch {
			case mode == mathsNone && (label == ")" || label == "]"):
				return nil, synerr.New(chunk.Line, synerr.UnexpectedMathsEnd,
					"\\%s with no maths block open", label)
			case mode == mathsNone && label == "(":
				mode, mvar, bracketDepth, bufferLine = mathsSingle, variant.Brackets, 1, chunk.Line
			case mode == mathsNone && label == "[":
				mode, mvar, bracketDepth, bufferLine = mathsDouble, variant.Brackets, 1, chunk.Line
			case mode == mathsSingle && mvar == variant.Brackets && label == "(":
				bracketDepth++
				buffer = append(buffer, chunk)
			case mode == mathsDouble && mvar == variant.Brackets && label == "[":
				bracketDepth++
				buffer = append(buffer, chunk)
			case mode == mathsSingle && mvar == variant.Brackets && label == ")":
				bracketDepth--
				if bracketDepth == 0 {
					if err := closeBlock(variant.Inline); err != nil {
						return nil, err
					}
				} else {
					buffer = append(buffer, chunk)
				}
			case mode == mathsDouble && mvar == variant.Brackets && label == "]":
				bracketDepth--
				if bracketDepth == 0 {
					if err := closeBlock(variant.Outline); err != nil {
						return nil, err
					}
				} else {
					buffer = append(buffer, chunk)
				}
			case mode == mathsNone:
				lifted, err := liftCommand(v, maxDepth, depth, logger)
				if err != nil {
					return nil, shiftErr(err, chunk.Line-1)
				}
				out = append(out, node.Chunk{Line: chunk.Line, Variant: lifted})
			default:
				buffer = append(buffer, chunk)
			}

		case *node.Scope:
			if mode != mathsNone {
				buffer = append(buffer, chunk)
				break
			}
			children, err := refineChunks(v.Children, maxDepth, depth+1, logger)
			if err != nil {
				return nil, shiftErr(err, chunk.Line-1)
			}
			out = append(out, node.Chunk{Line: chunk.Line, Variant: node.NewScopeUnchecked(v.ScopeVariant, children)})

		case *stage2.Environment:
			if mode != mathsNone {
				buffer = append(buffer, chunk)
				break
			}
			lifted, err := liftEnvironment(v, maxDepth, depth, logger)
			if err != nil {
				return nil, shiftErr(err, chunk.Line-1)
			}
			out = append(out, node.Chunk{Line: chunk.Line, Variant: lifted})

		case node.Text:
			if mode != mathsNone && mvar == variant.Brackets {
				buffer = append(buffer, chunk)
				break
			}

			cursor := chunk.Line
			var textBuf strings.Builder
			textBufLine := chunk.Line
			flushText := func(dest *[]node.Chunk) {
				if textBuf.Len() > 0 {
					*dest = node.AppendText(*dest, textBufLine, node.NewTextUnchecked(textBuf.String()))
					textBuf.Reset()
				}
			}

			for _, r := range string(v) {
				if r == '\n' {
					cursor++
				}
				if r != '$' {
					textBuf.WriteRune(r)
					continue
				}
				switch mode {
				case mathsNone:
					flushText(&out)
					mode, mvar, bufferLine = mathsSingle, variant.Dollars, cursor
					textBufLine = cursor
				case mathsSingle:
					if textBuf.Len() == 0 && len(buffer) == 0 {
						mode = mathsDouble
						continue
					}
					flushText(&buffer)
					if err := closeBlock(variant.Inline); err != nil {
						return nil, err
					}
					textBufLine = cursor
				case mathsDouble:
					mode = mathsDoubleClosing
				case mathsDoubleClosing:
					flushText(&buffer)
					if err := closeBlock(variant.Outline); err != nil {
						return nil, err
					}
					textBufLine = cursor
				}
			}

			if mode == mathsNone {
				flushText(&out)
			} else {
				flushText(&buffer)
			}

		default:
			if mode != mathsNone {
				buffer = append(buffer, chunk)
			} else {
				out = append(out, chunk)
			}
		}
	}

	if mode != mathsNone {
		return nil, synerr.New(bufferLine, synerr.UnclosedMaths, "maths block never closed")
	}

	return splitParagraphs(out), nil
}

// liftCommand refines a stage 2 command's argument scopes into stage 3.
func liftCommand(cmd *node.Command, maxDepth, depth int, logger logrus.FieldLogger) (*node.Command, error) {
	args := make([]node.Argument, len(cmd.Arguments))
	for i, a := range cmd.Arguments {
		children, err := refineChunks(a.Scope.Children, maxDepth, depth+1, logger)
		if err != nil {
			return nil, err
		}
		args[i] = node.Argument{Preceding: a.Preceding, Scope: *node.NewScopeUnchecked(a.Scope.ScopeVariant, children)}
	}
	return node.NewCommandUnchecked(cmd.Label, args), nil
}

// liftEnvironment refines a stage 2 environment's arguments and content.
func liftEnvironment(env *stage2.Environment, maxDepth, depth int, logger logrus.FieldLogger) (*stage2.Environment, error) {
	var args []node.Argument
	if len(env.Arguments) > 0 {
		args = make([]node.Argument, len(env.Arguments))
	}
	for i, a := range env.Arguments {
		children, err := refineChunks(a.Scope.Children, maxDepth, depth+1, logger)
		if err != nil {
			return nil, err
		}
		args[i] = node.Argument{Preceding: a.Preceding, Scope: *node.NewScopeUnchecked(a.Scope.ScopeVariant, children)}
	}
	content, err := refineChunks(env.Content, maxDepth, depth+1, logger)
	if err != nil {
		return nil, err
	}
	return stage2.NewEnvironmentUnchecked(env.Label, args, content, env.PrecBegin, env.PrecEnd), nil
}
