package stage2

import (
	"reflect"

	"github.com/sirupsen/logrus"

	"github.com/texdoc/latexast/internal/node"
	"github.com/texdoc/latexast/internal/synerr"
	"github.com/texdoc/latexast/internal/variant"
	"github.com/texdoc/latexast/stage1"
)

// Document is the stage 2 AST: a stage 1 chunk sequence with every matched
// \begin/\end pair folded into an Environment.
type Document struct {
	chunks []node.Chunk
}

func NewDocument(chunks []node.Chunk) *Document { return &Document{chunks: chunks} }

func NewDocumentChecked(chunks []node.Chunk) (*Document, error) {
	if err := node.ValidateLineSequence(chunks); err != nil {
		return nil, err
	}
	return &Document{chunks: chunks}, nil
}

func (d *Document) Chunks() []node.Chunk      { return d.chunks }
func (d *Document) ChunksOwned() []node.Chunk { return d.chunks }
func (d *Document) String() string            { return node.DocumentString(d.chunks) }
func (d *Document) Lines() int                { return node.DocumentLines(d.chunks) }
func (d *Document) Validate() error           { return node.ValidateLineSequence(d.chunks) }

// Push appends a chunk, checking that it continues the line-number
// invariant. Adjacent Text chunks are merged.
func (d *Document) Push(c node.Chunk) error {
	if want := node.NextLine(1, d.chunks); c.Line != want {
		return synerr.Internal(synerr.IncorrectChunkLineNumber, "expected line %d, got %d", want, c.Line)
	}
	d.chunks = node.AppendChunk(d.chunks, c)
	return nil
}

// PushUnchecked appends a chunk without validating its line number.
func (d *Document) PushUnchecked(c node.Chunk) { d.chunks = node.AppendChunk(d.chunks, c) }

// Upgrade folds a stage 1 document's \begin/\end command pairs into
// Environment nodes. logger may be nil; when set it traces each completed
// fold at debug level.
func Upgrade(doc *stage1.Document, logger logrus.FieldLogger) (*Document, error) {
	chunks, err := foldChunks(doc.Chunks(), logger)
	if err != nil {
		return nil, err
	}
	return &Document{chunks: chunks}, nil
}

// frame tracks one currently-open \begin on the fold stack.
type frame struct {
	labelChunks []node.Chunk
	beginLine   int
}

// sameLabel reports whether two label-identifying chunk sequences name
// the same environment. Comparison is structural, on the full chunk
// sequence the Curly label argument held, never on a serialised string:
// two differently-escaped spellings of the same text must not be
// confused for the same label.
func sameLabel(a, b []node.Chunk) bool {
	return reflect.DeepEqual(a, b)
}

func shiftErr(err error, delta int) error {
	if pe, ok := err.(*synerr.ParseError); ok {
		return pe.WithLineOffset(delta)
	}
	return err
}

// liftChunk recursively folds begin/end pairs nested inside a
// passthrough Scope or Command's own argument scopes, since those may
// themselves contain environments.
func liftChunk(c node.Chunk, logger logrus.FieldLogger) (node.Chunk, error) {
	switch v := c.Variant.(type) {
	case node.Text:
		return c, nil
	case *node.Scope:
		children, err := foldChunks(v.Children, logger)
		if err != nil {
			return node.Chunk{}, shiftErr(err, c.Line-1)
		}
		return node.Chunk{Line: c.Line, Variant: node.NewScopeUnchecked(v.ScopeVariant, children)}, nil
	case *node.Command:
		return liftCommand(c.Line, v, logger)
	default:
		return c, nil
	}
}

func liftCommand(cmdLine int, v *node.Command, logger logrus.FieldLogger) (node.Chunk, error) {
	args := make([]node.Argument, len(v.Arguments))
	cur := cmdLine + countNewlines(v.Label)
	for i, a := range v.Arguments {
		cur += countNewlines(a.Preceding)
		children, err := foldChunks(a.Scope.Children, logger)
		if err != nil {
			return node.Chunk{}, shiftErr(err, cur-1)
		}
		args[i] = node.Argument{Preceding: a.Preceding, Scope: *node.NewScopeUnchecked(a.Scope.ScopeVariant, children)}
		cur += a.Scope.Lines() - 1
	}
	return node.Chunk{Line: cmdLine, Variant: node.NewCommandUnchecked(v.Label, args)}, nil
}

// liftExtraArguments folds the begin/end arguments beyond the label (index
// 0), which become an Environment's own Arguments field.
func liftExtraArguments(cmdLine int, label string, allArgs []node.Argument, logger logrus.FieldLogger) ([]node.Argument, error) {
	cur := cmdLine + countNewlines(label)
	var out []node.Argument
	for i, a := range allArgs {
		cur += countNewlines(a.Preceding)
		if i == 0 {
			cur += a.Scope.Lines() - 1
			continue
		}
		children, err := foldChunks(a.Scope.Children, logger)
		if err != nil {
			return nil, shiftErr(err, cur-1)
		}
		out = append(out, node.Argument{Preceding: a.Preceding, Scope: *node.NewScopeUnchecked(a.Scope.ScopeVariant, children)})
		cur += a.Scope.Lines() - 1
	}
	return out, nil
}

// foldChunks is the recursive worker behind Upgrade: it folds one flat
// stage 1 chunk sequence — a whole document, or the raw content buffered
// between an outer \begin and its matching \end — into its stage 2
// equivalent. Nested begin/end pairs are not folded inline; their raw
// chunks simply flow into buffer and are re-folded, by this same
// function, once the outermost \end closes the stack.
func foldChunks(originals []node.Chunk, logger logrus.FieldLogger) ([]node.Chunk, error) {
	var out []node.Chunk
	var stack []frame
	var buffer []node.Chunk
	bufferStart := 0
	var outerPrecBegin string
	var outerArgs []node.Argument

	for _, original := range originals {
		lineNo := original.Line
		cmd, isCommand := original.Variant.(*node.Command)
		isBeginEnd := isCommand && (cmd.Label == "begin" || cmd.Label == "end")

		if !isBeginEnd {
			if len(stack) == 0 {
				lifted, err := liftChunk(original, logger)
				if err != nil {
					return nil, err
				}
				out = node.AppendChunk(out, lifted)
			} else {
				buffer = append(buffer, node.Chunk{Line: lineNo - bufferStart + 1, Variant: original.Variant})
			}
			continue
		}

		if len(cmd.Arguments) == 0 || cmd.Arguments[0].Scope.ScopeVariant != variant.Curly {
			return nil, synerr.New(lineNo, synerr.NoEnvironmentLabel,
				"\\"+cmd.Label+" requires a curly-braced label as its first argument")
		}
		labelArg := cmd.Arguments[0]

		if cmd.Label == "begin" {
			if len(stack) == 0 {
				args, err := liftExtraArguments(lineNo, cmd.Label, cmd.Arguments, logger)
				if err != nil {
					return nil, err
				}
				outerArgs = args
				outerPrecBegin = labelArg.Preceding
				bufferStart = lineNo + cmd.Lines() - 1
				buffer = nil
			} else {
				buffer = append(buffer, node.Chunk{Line: lineNo - bufferStart + 1, Variant: cmd})
			}
			stack = append(stack, frame{labelChunks: labelArg.Scope.Children, beginLine: lineNo})
			continue
		}

		// \end
		if len(stack) == 0 {
			return nil, synerr.NewLabel(lineNo, synerr.UnexpectedEnd,
				node.DocumentString(labelArg.Scope.Children), "\\end with no matching \\begin")
		}
		top := stack[len(stack)-1]
		if !sameLabel(top.labelChunks, labelArg.Scope.Children) {
			return nil, synerr.NewLabel(lineNo, synerr.UnexpectedEnd,
				node.DocumentString(labelArg.Scope.Children), "\\end label does not match the innermost open \\begin")
		}
		if len(cmd.Arguments) > 1 {
			return nil, synerr.New(lineNo, synerr.TooManyArgsEnd,
				"\\end takes exactly one argument, got %d", len(cmd.Arguments))
		}
		stack = stack[:len(stack)-1]

		if len(stack) > 0 {
			buffer = append(buffer, node.Chunk{Line: lineNo - bufferStart + 1, Variant: cmd})
			continue
		}

		content, err := foldChunks(buffer, logger)
		if err != nil {
			return nil, shiftErr(err, bufferStart-1)
		}
		env := NewEnvironmentUnchecked(node.DocumentString(top.labelChunks), outerArgs, content, outerPrecBegin, labelArg.Preceding)
		if logger != nil {
			logger.WithFields(logrus.Fields{"stage": 2, "line": top.beginLine, "kind": "environment", "label": env.Label}).
				Debug("folded environment")
		}
		out = node.AppendChunk(out, node.Chunk{Line: top.beginLine, Variant: env})
		outerArgs = nil
		outerPrecBegin = ""
	}

	if len(stack) > 0 {
		outer := stack[0]
		return nil, synerr.NewLabel(outer.beginLine, synerr.UnclosedEnvironment,
			node.DocumentString(outer.labelChunks), "environment never closed")
	}

	return out, nil
}
