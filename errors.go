package latexast

import (
	"errors"

	"github.com/texdoc/latexast/internal/synerr"
)

// ParseError is a recoverable, line-tagged failure on untrusted source
// text.
type ParseError = synerr.ParseError

// ParseErrorKind tags the reason a ParseError was raised.
type ParseErrorKind = synerr.ParseErrorKind

// ParseErrors aggregates the errors of a parse attempt for batch
// reporting.
type ParseErrors = synerr.ParseErrors

// InternalError reports a data-model invariant violated by a caller of
// the checked construction API; successful parses never produce one.
type InternalError = synerr.InternalError

// InternalErrorKind tags the violated invariant.
type InternalErrorKind = synerr.InternalErrorKind

// Parse error kinds.
const (
	UnexpectedClosing        = synerr.UnexpectedClosing
	UnclosedArgument         = synerr.UnclosedArgument
	UnclosedScope            = synerr.UnclosedScope
	NoEnvironmentLabel       = synerr.NoEnvironmentLabel
	UnexpectedEnd            = synerr.UnexpectedEnd
	UnclosedEnvironment      = synerr.UnclosedEnvironment
	TooManyArgsEnd           = synerr.TooManyArgsEnd
	TooManyArgsDocumentClass = synerr.TooManyArgsDocumentClass
	DoubleDocumentClass      = synerr.DoubleDocumentClass
	UnexpectedMathsEnd       = synerr.UnexpectedMathsEnd
	UnclosedMaths            = synerr.UnclosedMaths
	MaxNestingDepth          = synerr.MaxNestingDepth
)

// Internal error kinds.
const (
	UnsanitisedCharInString     = synerr.UnsanitisedCharInString
	IncorrectChunkLineNumber    = synerr.IncorrectChunkLineNumber
	ParagraphBreakTooShort      = synerr.ParagraphBreakTooShort
	ParagraphBreakNonWhitespace = synerr.ParagraphBreakNonWhitespace
	UnbrokenParagraph           = synerr.UnbrokenParagraph
	BeginCommand                = synerr.BeginCommand
	EndCommand                  = synerr.EndCommand
)

// AsParseError unwraps err as a *ParseError.
func AsParseError(err error) (*ParseError, bool) {
	var pe *ParseError
	ok := errors.As(err, &pe)
	return pe, ok
}

// CollectParseErrors wraps err into a ParseErrors aggregate, the shape
// used when reporting one message per failing line.
func CollectParseErrors(errs ...error) *ParseErrors {
	out := &ParseErrors{}
	for _, err := range errs {
		if pe, ok := AsParseError(err); ok {
			out.Add(pe)
		}
	}
	return out
}
