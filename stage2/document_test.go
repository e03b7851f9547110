package stage2

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/texdoc/latexast/internal/astdump"
	"github.com/texdoc/latexast/internal/node"
	"github.com/texdoc/latexast/internal/synerr"
	"github.com/texdoc/latexast/internal/variant"
	"github.com/texdoc/latexast/stage1"
)

func text(line int, s string) node.Chunk {
	return node.Chunk{Line: line, Variant: node.NewTextUnchecked(s)}
}

func cmd(line int, label string, args ...node.Argument) node.Chunk {
	if args == nil {
		args = []node.Argument{}
	}
	return node.Chunk{Line: line, Variant: node.NewCommandUnchecked(label, args)}
}

func arg(preceding string, v variant.ScopeVariant, children ...node.Chunk) node.Argument {
	return node.Argument{Preceding: preceding, Scope: *node.NewScopeUnchecked(v, children)}
}

func upgrade(t *testing.T, content string) (*Document, error) {
	t.Helper()
	one, err := stage1.Parse(content, 0, nil)
	require.NoError(t, err)
	return Upgrade(one, nil)
}

func parseErr(t *testing.T, err error) *synerr.ParseError {
	t.Helper()
	require.Error(t, err)
	pe, ok := err.(*synerr.ParseError)
	require.True(t, ok, "expected *synerr.ParseError, got %T: %v", err, err)
	return pe
}

func TestFoldBasic(t *testing.T) {
	content := strings.TrimSpace(`
\usepackage{amsmath}

\begin{document}
    Hello
    \begin{itemize}
        \item test
    \end{itemize}
\end{document}
`)

	two, err := upgrade(t, content)
	require.NoError(t, err)

	itemize := NewEnvironmentUnchecked("itemize", nil,
		[]node.Chunk{
			text(1, "\n        "),
			cmd(2, "item"),
			text(2, " test\n    "),
		}, "", "")

	document := NewEnvironmentUnchecked("document", nil,
		[]node.Chunk{
			text(1, "\n    Hello\n    "),
			{Line: 3, Variant: itemize},
			text(5, "\n"),
		}, "", "")

	expected := []node.Chunk{
		cmd(1, "usepackage", arg("", variant.Curly, text(1, "amsmath"))),
		text(1, "\n\n"),
		{Line: 3, Variant: document},
	}

	require.Equal(t, expected, two.Chunks(), astdump.Dump(two.Chunks()))
	assert.Equal(t, content, two.String())
	assert.Equal(t, 8, two.Lines())
	assert.NoError(t, two.Validate())
}

func TestNoEnvironmentLabel(t *testing.T) {
	content := strings.TrimSpace(`
\usepackage{amsmath}

\begin{document}
    Hello
    \begin
        \item test
    \end{itemize}
\end{document}
`)

	_, err := upgrade(t, content)
	pe := parseErr(t, err)
	assert.Equal(t, synerr.NoEnvironmentLabel, pe.Kind)
	assert.Equal(t, 5, pe.Line)
}

func TestUnexpectedEnd(t *testing.T) {
	content := strings.TrimSpace(`
\usepackage{amsmath}

\begin{document}
    Hello
        \item test
    \end{itemize}
\end{document}
`)

	_, err := upgrade(t, content)
	pe := parseErr(t, err)
	assert.Equal(t, synerr.UnexpectedEnd, pe.Kind)
	assert.Equal(t, "itemize", pe.Label)
	assert.Equal(t, 6, pe.Line)
}

func TestTooManyArgsEnd(t *testing.T) {
	content := strings.TrimSpace(`
\usepackage{amsmath}

\begin{document}
    Hello
    \begin{itemize}
        \item test
    \end{itemize}{boom}
\end{document}
`)

	_, err := upgrade(t, content)
	pe := parseErr(t, err)
	assert.Equal(t, synerr.TooManyArgsEnd, pe.Kind)
	assert.Equal(t, 7, pe.Line)
}

func TestUnclosedEnvironment(t *testing.T) {
	content := "text\n\\begin{itemize}\n    \\item never closed"

	_, err := upgrade(t, content)
	pe := parseErr(t, err)
	assert.Equal(t, synerr.UnclosedEnvironment, pe.Kind)
	assert.Equal(t, "itemize", pe.Label)
	assert.Equal(t, 2, pe.Line)
}

func TestEnvironmentInsideScope(t *testing.T) {
	content := `{\begin{inner}x\end{inner}}`

	two, err := upgrade(t, content)
	require.NoError(t, err)

	sc, ok := two.Chunks()[0].Variant.(*node.Scope)
	require.True(t, ok)
	require.Len(t, sc.Children, 1)
	innerEnv, ok := sc.Children[0].Variant.(*Environment)
	require.True(t, ok)
	assert.Equal(t, "inner", innerEnv.Label)
	assert.Equal(t, content, two.String())
}

func TestEnvironmentWithArguments(t *testing.T) {
	content := "\\begin {tabular}{cc}[t]\nrow\n\\end {tabular}"

	two, err := upgrade(t, content)
	require.NoError(t, err)
	require.Len(t, two.Chunks(), 1)

	e, ok := two.Chunks()[0].Variant.(*Environment)
	require.True(t, ok)
	assert.Equal(t, "tabular", e.Label)
	require.Len(t, e.Arguments, 2)
	assert.Equal(t, "", e.Arguments[0].Preceding)
	assert.Equal(t, variant.Curly, e.Arguments[0].Scope.ScopeVariant)
	assert.Equal(t, "", e.Arguments[1].Preceding)
	assert.Equal(t, variant.Square, e.Arguments[1].Scope.ScopeVariant)
	assert.Equal(t, " ", e.PrecBegin)
	assert.Equal(t, " ", e.PrecEnd)
	assert.Equal(t, content, two.String())
}

func TestLowerRestoresStageOne(t *testing.T) {
	content := strings.TrimSpace(`
\usepackage{amsmath}

\begin{document}
    Hello
    \begin{itemize}
        \item test
    \end{itemize}
\end{document}
`)

	one, err := stage1.Parse(content, 0, nil)
	require.NoError(t, err)
	two, err := Upgrade(one, nil)
	require.NoError(t, err)

	lowered := Lower(two)
	assert.Equal(t, content, lowered.String())
	require.Equal(t, one.Chunks(), lowered.Chunks(), astdump.Dump(lowered.Chunks()))
}

func TestRoundTrip(t *testing.T) {
	inputs := []string{
		"no environments at all",
		"\\begin{a}\\end{a}",
		"\\begin{a}\n\\begin{b}\nnested\n\\end{b}\n\\end{a}",
		"pre \\begin{x} mid \\end{x} post",
		"\\begin {spaced} body \\end {spaced}",
		"\\begin{opt}[o1]{o2}\nbody\n\\end{opt}",
	}

	for _, input := range inputs {
		two, err := upgrade(t, input)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, input, two.String(), "input %q", input)
		assert.Equal(t, strings.Count(input, "\n")+1, two.Lines(), "input %q", input)
		assert.NoError(t, two.Validate(), "input %q", input)
	}
}
