// Package astdump pretty-prints chunk trees for test failure output.
package astdump

import "github.com/alecthomas/repr"

// Dump renders v as indented Go syntax. Useful as the extra message
// argument of a failing assertion on a deep chunk tree.
func Dump(v any) string {
	return repr.String(v, repr.Indent("  "))
}
