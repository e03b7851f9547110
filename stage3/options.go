package stage3

import (
	"strings"
	"unicode"

	"github.com/smasher164/xid"
)

// OptionValue is the right-hand side of a key=value document option,
// with the whitespace around the equals sign captured separately so the
// original source reconstructs exactly.
type OptionValue struct {
	PreEquals  string
	PostEquals string
	Value      string
}

// DocumentOption is one comma-separated entry of a \documentclass square
// argument. Preceding holds the whitespace before the key; Trailing holds
// the whitespace after the last token (the value when there is one,
// otherwise the key). Value is nil for flag-style options with no equals
// sign.
type DocumentOption struct {
	Preceding string
	Key       string
	Value     *OptionValue
	Trailing  string
}

// String reconstructs the option's exact source text.
func (o DocumentOption) String() string {
	var b strings.Builder
	b.WriteString(o.Preceding)
	b.WriteString(o.Key)
	if o.Value != nil {
		b.WriteString(o.Value.PreEquals)
		b.WriteByte('=')
		b.WriteString(o.Value.PostEquals)
		b.WriteString(o.Value.Value)
	}
	b.WriteString(o.Trailing)
	return b.String()
}

// Bareword reports whether the option key is a plain identifier, using
// the same XID classification the rest of the ecosystem uses for
// identifier runes.
func (o DocumentOption) Bareword() bool {
	for i, r := range o.Key {
		if i == 0 {
			if !xid.Start(r) {
				return false
			}
		} else if !xid.Continue(r) {
			return false
		}
	}
	return o.Key != ""
}

// ParseOptions splits a \documentclass square-argument body into its
// comma-separated options, preserving every whitespace byte so that
// OptionsString(ParseOptions(s)) == s.
func ParseOptions(s string) []DocumentOption {
	parts := strings.Split(s, ",")
	out := make([]DocumentOption, len(parts))
	for i, p := range parts {
		out[i] = parseOption(p)
	}
	return out
}

// OptionsString reconstructs the square-argument body options came from.
func OptionsString(opts []DocumentOption) string {
	parts := make([]string, len(opts))
	for i, o := range opts {
		parts[i] = o.String()
	}
	return strings.Join(parts, ",")
}

func parseOption(s string) DocumentOption {
	key, val, hasEq := strings.Cut(s, "=")
	prec, word, trail := splitAroundToken(key)
	if !hasEq {
		return DocumentOption{Preceding: prec, Key: word, Trailing: trail}
	}
	post, value, trailing := splitAroundToken(val)
	return DocumentOption{
		Preceding: prec,
		Key:       word,
		Value:     &OptionValue{PreEquals: trail, PostEquals: post, Value: value},
		Trailing:  trailing,
	}
}

// splitAroundToken splits s into its leading whitespace, the middle run,
// and its trailing whitespace.
func splitAroundToken(s string) (lead, mid, trail string) {
	rest := strings.TrimLeftFunc(s, unicode.IsSpace)
	lead = s[:len(s)-len(rest)]
	mid = strings.TrimRightFunc(rest, unicode.IsSpace)
	trail = rest[len(mid):]
	return lead, mid, trail
}
