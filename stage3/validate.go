package stage3

import (
	"unicode"

	"github.com/texdoc/latexast/internal/node"
	"github.com/texdoc/latexast/internal/synerr"
	"github.com/texdoc/latexast/stage2"
)

// ValidateChunks checks every stage 3 invariant over a chunk sequence:
// line monotonicity, text sanitisation, no surviving \begin/\end
// commands, and paragraph-break exclusivity.
func ValidateChunks(chunks []node.Chunk) error {
	if err := node.ValidateLineSequence(chunks); err != nil {
		return err
	}
	for _, c := range chunks {
		if err := ValidateChunk(c); err != nil {
			return err
		}
	}
	return nil
}

// ValidateChunk checks one chunk and everything reachable from it.
func ValidateChunk(c node.Chunk) error {
	switch v := c.Variant.(type) {
	case node.Text:
		if err := node.ValidateText(string(v)); err != nil {
			return err
		}
		return validateBroken(string(v))
	case ParagraphBreak:
		return ValidateParagraphBreak(string(v))
	case *node.Scope:
		return ValidateChunks(v.Children)
	case *node.Command:
		switch v.Label {
		case "begin":
			return synerr.Internal(synerr.BeginCommand, "\\begin must be folded into an environment")
		case "end":
			return synerr.Internal(synerr.EndCommand, "\\end must be folded into an environment")
		}
		if err := node.ValidateLabel(v.Label); err != nil {
			return err
		}
		return validateArguments(v.Arguments)
	case *stage2.Environment:
		if err := stage2.ValidateEnvironmentLabel(v.Label); err != nil {
			return err
		}
		if err := validateArguments(v.Arguments); err != nil {
			return err
		}
		return ValidateChunks(v.Content)
	case *MathsBlock:
		return ValidateChunks(v.Content)
	default:
		return nil
	}
}

func validateArguments(args []node.Argument) error {
	for _, a := range args {
		if err := ValidateChunks(a.Scope.Children); err != nil {
			return err
		}
	}
	return nil
}

// validateBroken enforces invariant 6: after paragraph splitting, no Text
// chunk may still contain a blank line (two newlines separated only by
// whitespace).
func validateBroken(s string) error {
	consec := 0
	for _, r := range s {
		switch {
		case r == '\n':
			consec++
			if consec >= 2 {
				return synerr.Internal(synerr.UnbrokenParagraph,
					"text %q contains a blank line; it must be a ParagraphBreak", s)
			}
		case unicode.IsSpace(r):
		default:
			consec = 0
		}
	}
	return nil
}
