package stage2

import (
	"github.com/texdoc/latexast/internal/node"
	"github.com/texdoc/latexast/internal/variant"
	"github.com/texdoc/latexast/stage1"
)

// Lower maps a stage 2 document back onto the stage 1 tree it was folded
// from: every Environment becomes the \begin command, its content, and the
// \end command again. The result serialises to the same string as d.
func Lower(d *Document) *stage1.Document {
	return stage1.NewDocument(LowerChunks(d.Chunks()))
}

// LowerChunks maps a stage 2 chunk sequence to its stage 1 equivalent.
// Line numbers keep the same base as the input sequence; an environment's
// relative content is shifted onto the line where its \begin command ends.
func LowerChunks(chunks []node.Chunk) []node.Chunk {
	var out []node.Chunk
	for _, c := range chunks {
		switch v := c.Variant.(type) {
		case node.Text:
			out = node.AppendText(out, c.Line, v)
		case *node.Scope:
			out = append(out, node.Chunk{Line: c.Line, Variant: node.NewScopeUnchecked(v.ScopeVariant, LowerChunks(v.Children))})
		case *node.Command:
			out = append(out, node.Chunk{Line: c.Line, Variant: lowerCommand(v)})
		case *Environment:
			out = append(out, lowerEnvironment(c.Line, v)...)
		default:
			out = append(out, c)
		}
	}
	return out
}

func lowerCommand(cmd *node.Command) *node.Command {
	args := make([]node.Argument, len(cmd.Arguments))
	for i, a := range cmd.Arguments {
		args[i] = node.Argument{
			Preceding: a.Preceding,
			Scope:     *node.NewScopeUnchecked(a.Scope.ScopeVariant, LowerChunks(a.Scope.Children)),
		}
	}
	return node.NewCommandUnchecked(cmd.Label, args)
}

// labelScope rebuilds the Curly label argument both \begin and \end carry.
// Environment labels are sanitised text, so the scope body is a single Text
// chunk (or empty for the degenerate empty label).
func labelScope(label string) node.Scope {
	var children []node.Chunk
	if label != "" {
		children = []node.Chunk{{Line: 1, Variant: node.NewTextUnchecked(label)}}
	}
	return *node.NewScopeUnchecked(variant.Curly, children)
}

func lowerEnvironment(line int, env *Environment) []node.Chunk {
	label := labelScope(env.Label)

	beginArgs := make([]node.Argument, 0, len(env.Arguments)+1)
	beginArgs = append(beginArgs, node.Argument{Preceding: env.PrecBegin, Scope: label})
	endLine := line + countNewlines(env.PrecBegin) + countNewlines(env.Label)
	for _, a := range env.Arguments {
		lowered := node.Argument{
			Preceding: a.Preceding,
			Scope:     *node.NewScopeUnchecked(a.Scope.ScopeVariant, LowerChunks(a.Scope.Children)),
		}
		beginArgs = append(beginArgs, lowered)
		endLine += countNewlines(a.Preceding) + a.Scope.Lines() - 1
	}

	out := []node.Chunk{{Line: line, Variant: node.NewCommandUnchecked("begin", beginArgs)}}
	for _, c := range LowerChunks(env.Content) {
		c.Line += endLine - 1
		out = node.AppendChunk(out, c)
	}
	for _, c := range env.Content {
		endLine += c.Lines() - 1
	}
	out = append(out, node.Chunk{
		Line: endLine,
		Variant: node.NewCommandUnchecked("end", []node.Argument{
			{Preceding: env.PrecEnd, Scope: label},
		}),
	})
	return out
}
