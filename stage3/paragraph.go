package stage3

import (
	"strings"
	"unicode"

	"github.com/texdoc/latexast/internal/node"
	"github.com/texdoc/latexast/internal/synerr"
)

// ParagraphBreak is a whitespace run containing at least two newlines,
// split out of the surrounding text.
type ParagraphBreak string

func (p ParagraphBreak) Lines() int     { return strings.Count(string(p), "\n") + 1 }
func (p ParagraphBreak) String() string { return string(p) }

// ValidateParagraphBreak enforces invariant 4: only whitespace, at least
// two newlines.
func ValidateParagraphBreak(s string) error {
	newlines := 0
	for _, r := range s {
		if r == '\n' {
			newlines++
		} else if !unicode.IsSpace(r) {
			return synerr.Internal(synerr.ParagraphBreakNonWhitespace,
				"paragraph break contains non-whitespace %q", r)
		}
	}
	if newlines < 2 {
		return synerr.Internal(synerr.ParagraphBreakTooShort,
			"paragraph break needs at least two newlines, got %d", newlines)
	}
	return nil
}

// NewParagraphBreak is the checked ParagraphBreak constructor.
func NewParagraphBreak(s string) (ParagraphBreak, error) {
	if err := ValidateParagraphBreak(s); err != nil {
		return "", err
	}
	return ParagraphBreak(s), nil
}

func NewParagraphBreakUnchecked(s string) ParagraphBreak {
	return ParagraphBreak(s)
}

// splitParagraphs rewrites every Text chunk so that each run of two or
// more newlines separated only by whitespace becomes a ParagraphBreak
// chunk carrying the entire whitespace block. A single newline never
// splits; its whitespace folds back into the surrounding text.
func splitParagraphs(chunks []node.Chunk) []node.Chunk {
	var out []node.Chunk

	for _, chunk := range chunks {
		t, ok := chunk.Variant.(node.Text)
		if !ok {
			out = append(out, chunk)
			continue
		}

		lineNo := chunk.Line
		var textBuf, brkBuf strings.Builder
		textBufLine, brkLine := chunk.Line, chunk.Line
		consec := 0

		flushText := func() {
			if textBuf.Len() > 0 {
				out = node.AppendText(out, textBufLine, node.NewTextUnchecked(textBuf.String()))
				textBuf.Reset()
			}
		}

		for _, r := range string(t) {
			switch {
			case r == '\n' && consec == 1:
				// second newline: the run is now a confirmed break
				consec++
				lineNo++
				flushText()
				brkBuf.WriteRune(r)
			case r == '\n':
				if consec == 0 {
					brkLine = lineNo
				}
				consec++
				lineNo++
				brkBuf.WriteRune(r)
			case unicode.IsSpace(r) && consec == 0:
				if textBuf.Len() == 0 {
					textBufLine = lineNo
				}
				textBuf.WriteRune(r)
			case unicode.IsSpace(r):
				brkBuf.WriteRune(r)
			case consec == 0:
				if textBuf.Len() == 0 {
					textBufLine = lineNo
				}
				textBuf.WriteRune(r)
			case consec == 1:
				// one newline does not break the paragraph
				if textBuf.Len() == 0 {
					textBufLine = brkLine
				}
				textBuf.WriteString(brkBuf.String())
				brkBuf.Reset()
				textBuf.WriteRune(r)
				consec = 0
			default:
				out = append(out, node.Chunk{Line: brkLine, Variant: ParagraphBreak(brkBuf.String())})
				brkBuf.Reset()
				textBufLine = lineNo
				consec = 0
				textBuf.WriteRune(r)
			}
		}

		if brkBuf.Len() > 0 {
			if consec > 1 {
				out = append(out, node.Chunk{Line: brkLine, Variant: ParagraphBreak(brkBuf.String())})
			} else {
				if textBuf.Len() == 0 {
					textBufLine = brkLine
				}
				textBuf.WriteString(brkBuf.String())
			}
		}
		flushText()
	}

	return out
}
