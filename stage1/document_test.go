package stage1

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/texdoc/latexast/internal/astdump"
	"github.com/texdoc/latexast/internal/node"
	"github.com/texdoc/latexast/internal/synerr"
	"github.com/texdoc/latexast/internal/variant"
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

func scope(line int, v variant.ScopeVariant, children ...node.Chunk) node.Chunk {
	return node.Chunk{Line: line, Variant: node.NewScopeUnchecked(v, children)}
}

func parseErr(t *testing.T, err error) *synerr.ParseError {
	t.Helper()
	require.Error(t, err)
	pe, ok := err.(*synerr.ParseError)
	require.True(t, ok, "expected *synerr.ParseError, got %T: %v", err, err)
	return pe
}

func TestParseBasic(t *testing.T) {
	content := strings.TrimSpace(`
Hello world

\textbf {
\container(123)
[456]
text
}

text

{ \sin text \sin }

Bye!
`)

	ast, err := Parse(content, 0, nil)
	require.NoError(t, err)

	expected := []node.Chunk{
		text(1, "Hello world\n\n"),
		cmd(3, "textbf",
			arg(" ", variant.Curly,
				text(1, "\n"),
				cmd(2, "container",
					arg("", variant.Round, text(1, "123")),
					arg("\n", variant.Square, text(1, "456")),
				),
				text(3, "\ntext\n"),
			),
		),
		text(7, "\n\ntext\n\n"),
		scope(11, variant.Curly,
			text(1, " "),
			cmd(1, "sin"),
			text(1, " text "),
			cmd(1, "sin"),
			text(1, " "),
		),
		text(11, "\n\nBye!"),
	}

	require.Equal(t, expected, ast.Chunks(), astdump.Dump(ast.Chunks()))
	assert.Equal(t, content, ast.String())
	assert.Equal(t, 13, ast.Lines())
	assert.NoError(t, ast.Validate())
}

func TestUnexpectedClosing(t *testing.T) {
	content := strings.TrimSpace(`
Test

(
    (
        Hello
        (
            \badargs]
        )
    )
)
`)

	_, err := Parse(content, 0, nil)
	pe := parseErr(t, err)
	assert.Equal(t, synerr.UnexpectedClosing, pe.Kind)
	assert.Equal(t, 7, pe.Line)
	assert.Contains(t, pe.Message, "Square")
}

func TestUnclosedArgument(t *testing.T) {
	content := strings.TrimSpace(`
test
(
    \hello
    test
    (
        test
        \hello[]
        \badargs[[[arg arg arg]]
    )
)
`)

	_, err := Parse(content, 0, nil)
	pe := parseErr(t, err)
	assert.Equal(t, synerr.UnclosedArgument, pe.Kind)
	assert.Equal(t, 8, pe.Line)
	assert.Contains(t, pe.Message, "Square")
}

func TestUnclosedScope(t *testing.T) {
	content := strings.TrimSpace(`
(
    \hello
    test
    \test{
        test
        [
    }
)
`)

	_, err := Parse(content, 0, nil)
	pe := parseErr(t, err)
	assert.Equal(t, synerr.UnclosedScope, pe.Kind)
	assert.Equal(t, 6, pe.Line)
	assert.Contains(t, pe.Message, "Square")
}

func TestPushMergesAdjacentText(t *testing.T) {
	doc := NewDocument(nil)

	require.NoError(t, doc.Push(text(1, "hello world\n")))
	require.NoError(t, doc.Push(cmd(2, "command")))
	require.NoError(t, doc.Push(text(2, "continuation\n")))
	require.NoError(t, doc.Push(text(3, "text should be merged into one chunk")))

	expected := []node.Chunk{
		text(1, "hello world\n"),
		cmd(2, "command"),
		text(2, "continuation\ntext should be merged into one chunk"),
	}
	require.Equal(t, expected, doc.Chunks())
}

func TestPushIncorrectLine(t *testing.T) {
	content := strings.TrimSpace(`
Hello world

\textbf {
\container(123)
[456]
text
}

text

{ \sin text \sin }

Bye!
`)

	doc, err := Parse(content, 0, nil)
	require.NoError(t, err)

	err = doc.Push(text(11, "hello"))
	require.Error(t, err)
	ie, ok := err.(synerr.InternalError)
	require.True(t, ok)
	assert.Equal(t, synerr.IncorrectChunkLineNumber, ie.Kind)
}

func TestUnsanitisedText(t *testing.T) {
	_, err := node.NewText("hello\\world")
	require.Error(t, err)
	ie, ok := err.(synerr.InternalError)
	require.True(t, ok)
	assert.Equal(t, synerr.UnsanitisedCharInString, ie.Kind)
}

func TestCommentsAreStripped(t *testing.T) {
	doc, err := Parse("a%comment\nb", 0, nil)
	require.NoError(t, err)
	assert.Equal(t, "a\nb", doc.String())

	doc, err = Parse("% whole line\ntext", 0, nil)
	require.NoError(t, err)
	assert.Equal(t, "\ntext", doc.String())

	// \% is an escape, not a comment
	doc, err = Parse(`100\% sure`, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, `100\% sure`, doc.String())
}

func TestEscapedBrackets(t *testing.T) {
	doc, err := Parse(`\{x\}`, 0, nil)
	require.NoError(t, err)

	expected := []node.Chunk{
		cmd(1, "{"),
		text(1, "x"),
		cmd(1, "}"),
	}
	require.Equal(t, expected, doc.Chunks())
	assert.Equal(t, `\{x\}`, doc.String())
}

func TestRoundTrip(t *testing.T) {
	inputs := []string{
		"plain text only",
		"{a{b}c}",
		"( round ) [ square ] { curly }",
		"\\sin \\cos\n\\tan",
		"\\frac{1}{2} and \\sqrt[3]{8}",
		"a $x+y$ b",
		"\\textbf {\nnested (scopes) [here]\n}",
		"trailing whitespace after command \\sin   \n\nmore",
		"\\{escaped\\} \\$5 \\\\",
		"line1\nline2\n\nline4",
	}

	for _, input := range inputs {
		doc, err := Parse(input, 0, nil)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, input, doc.String(), "input %q", input)
		assert.Equal(t, strings.Count(input, "\n")+1, doc.Lines(), "input %q", input)
		assert.NoError(t, doc.Validate(), "input %q", input)
	}
}

func TestMaxNestingDepth(t *testing.T) {
	deep := strings.Repeat("{", 8) + "x" + strings.Repeat("}", 8)

	_, err := Parse(deep, 4, nil)
	pe := parseErr(t, err)
	assert.Equal(t, synerr.MaxNestingDepth, pe.Kind)

	doc, err := Parse(deep, 16, nil)
	require.NoError(t, err)
	assert.Equal(t, deep, doc.String())
}
