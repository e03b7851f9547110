package stage3

import (
	"github.com/texdoc/latexast/internal/node"
	"github.com/texdoc/latexast/internal/variant"
	"github.com/texdoc/latexast/stage2"
)

// Lower maps a stage 3 document back onto the stage 2 tree it was refined
// from: maths blocks become their delimiter commands or dollar text again,
// paragraph breaks merge back into the surrounding text, and the body is
// re-wrapped in a document environment. The result serialises to the same
// string as d.
func Lower(d *Document) *stage2.Document {
	chunks := lowerChunks(d.preamble)
	if d.hasBody {
		env := stage2.NewEnvironmentUnchecked("document", lowerArguments(d.bodyArgs), lowerChunks(d.body), d.bodyBeginPrec, d.bodyEndPrec)
		chunks = append(chunks, node.Chunk{Line: d.bodyLine, Variant: env})
	}
	for _, c := range lowerChunks(d.trailing) {
		chunks = node.AppendChunk(chunks, c)
	}
	return stage2.NewDocument(chunks)
}

// LowerChunks maps a stage 3 chunk sequence to its stage 2 equivalent,
// keeping the input sequence's line base.
func LowerChunks(chunks []node.Chunk) []node.Chunk { return lowerChunks(chunks) }

func lowerChunks(chunks []node.Chunk) []node.Chunk {
	var out []node.Chunk
	for _, c := range chunks {
		switch v := c.Variant.(type) {
		case node.Text:
			out = node.AppendText(out, c.Line, v)
		case ParagraphBreak:
			out = node.AppendText(out, c.Line, node.NewTextUnchecked(string(v)))
		case *node.Scope:
			out = append(out, node.Chunk{Line: c.Line, Variant: node.NewScopeUnchecked(v.ScopeVariant, lowerChunks(v.Children))})
		case *node.Command:
			out = append(out, node.Chunk{Line: c.Line, Variant: node.NewCommandUnchecked(v.Label, lowerArguments(v.Arguments))})
		case *stage2.Environment:
			env := stage2.NewEnvironmentUnchecked(v.Label, lowerArguments(v.Arguments), lowerChunks(v.Content), v.PrecBegin, v.PrecEnd)
			out = append(out, node.Chunk{Line: c.Line, Variant: env})
		case *MathsBlock:
			out = appendLoweredMaths(out, c.Line, v)
		default:
			out = append(out, c)
		}
	}
	return out
}

func lowerArguments(args []node.Argument) []node.Argument {
	out := make([]node.Argument, len(args))
	for i, a := range args {
		out[i] = node.Argument{
			Preceding: a.Preceding,
			Scope:     *node.NewScopeUnchecked(a.Scope.ScopeVariant, lowerChunks(a.Scope.Children)),
		}
	}
	return out
}

// appendLoweredMaths expands a maths block into the stage 2 chunks it was
// extracted from: delimiter commands around the content for the bracket
// forms, dollar signs merged into the adjacent text for the dollar forms.
func appendLoweredMaths(out []node.Chunk, line int, m *MathsBlock) []node.Chunk {
	if m.MathsVariant == variant.Brackets {
		openLabel, closeLabel := "(", ")"
		if m.MathsType == variant.Outline {
			openLabel, closeLabel = "[", "]"
		}
		out = append(out, node.Chunk{Line: line, Variant: node.NewCommandUnchecked(openLabel, nil)})
		for _, c := range lowerChunks(m.Content) {
			c.Line += line - 1
			out = node.AppendChunk(out, c)
		}
		return append(out, node.Chunk{Line: line + m.Lines() - 1, Variant: node.NewCommandUnchecked(closeLabel, nil)})
	}

	dollars := "$"
	if m.MathsType == variant.Outline {
		dollars = "$$"
	}
	out = node.AppendText(out, line, node.NewTextUnchecked(dollars))
	for _, c := range lowerChunks(m.Content) {
		c.Line += line - 1
		out = node.AppendChunk(out, c)
	}
	return node.AppendText(out, line+m.Lines()-1, node.NewTextUnchecked(dollars))
}
