// Package latexast parses a LaTeX-like source document into a layered
// AST and reconstructs the original source byte-for-byte from any stage.
//
// Parsing is a three-stage pipeline. Stage 1 tokenizes the character
// stream into text, scopes, and commands; stage 2 folds matched
// \begin{label}…\end{label} command pairs into environment nodes; stage 3
// splits out maths blocks and paragraph breaks and partitions the
// document around \begin{document}. Every stage's tree serialises back to
// the exact input (comments excepted: they are stripped during stage 1
// and do not survive the round trip).
package latexast

import (
	"fmt"

	"github.com/texdoc/latexast/stage1"
	"github.com/texdoc/latexast/stage2"
	"github.com/texdoc/latexast/stage3"
)

// ParseStage1 tokenizes source into a stage 1 document using the default
// configuration.
func ParseStage1(source string) (*stage1.Document, error) {
	return DefaultConfig().ParseStage1(source)
}

// ParseStage1 tokenizes source into a stage 1 document.
func (c Config) ParseStage1(source string) (*stage1.Document, error) {
	return stage1.Parse(source, c.MaxNestingDepth, c.Logger)
}

// UpgradeToStage2 folds a stage 1 document's \begin/\end pairs into
// environments.
func UpgradeToStage2(doc *stage1.Document) (*stage2.Document, error) {
	return DefaultConfig().UpgradeToStage2(doc)
}

// UpgradeToStage2 folds a stage 1 document's \begin/\end pairs into
// environments.
func (c Config) UpgradeToStage2(doc *stage1.Document) (*stage2.Document, error) {
	return stage2.Upgrade(doc, c.Logger)
}

// UpgradeToStage3 refines a stage 2 document into maths blocks, paragraph
// breaks, and the preamble/body/trailing partition.
func UpgradeToStage3(doc *stage2.Document) (*stage3.Document, error) {
	return DefaultConfig().UpgradeToStage3(doc)
}

// UpgradeToStage3 refines a stage 2 document into maths blocks, paragraph
// breaks, and the preamble/body/trailing partition.
func (c Config) UpgradeToStage3(doc *stage2.Document) (*stage3.Document, error) {
	return stage3.Upgrade(doc, c.MaxNestingDepth, c.Logger)
}

// ParseStage2 runs stages 1 and 2 over source.
func ParseStage2(source string) (*stage2.Document, error) {
	return DefaultConfig().ParseStage2(source)
}

// ParseStage2 runs stages 1 and 2 over source.
func (c Config) ParseStage2(source string) (*stage2.Document, error) {
	d1, err := c.ParseStage1(source)
	if err != nil {
		return nil, err
	}
	return c.UpgradeToStage2(d1)
}

// ParseStage3 runs the full pipeline over source.
func ParseStage3(source string) (*stage3.Document, error) {
	return DefaultConfig().ParseStage3(source)
}

// ParseStage3 runs the full pipeline over source.
func (c Config) ParseStage3(source string) (*stage3.Document, error) {
	d2, err := c.ParseStage2(source)
	if err != nil {
		return nil, err
	}
	return c.UpgradeToStage3(d2)
}

// LowerToStage2 maps a stage 3 document back onto its stage 2 tree.
func LowerToStage2(doc *stage3.Document) *stage2.Document {
	return stage3.Lower(doc)
}

// LowerToStage1 maps a stage 2 document back onto its stage 1 tree.
func LowerToStage1(doc *stage2.Document) *stage1.Document {
	return stage2.Lower(doc)
}

// Display serialises any stage's document (or chunk) back to source text.
// It is total for validly constructed documents.
func Display(doc fmt.Stringer) string {
	return doc.String()
}
