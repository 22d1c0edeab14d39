// Package normalize rewrites token sequences into canonical, identifier-blind form.
package normalize

import (
	"strconv"

	"github.com/tmarland/kindred/pkg/tokenizer"
)

// Canonical placeholders for value-blind literals. Literal values are
// deliberately erased so trivial edits to strings and numbers do not
// break the similarity signal.
const (
	StringPlaceholder = "STR"
	NumberPlaceholder = "NUM"
)

// Context holds the identifier rename table for exactly one file. It is
// created fresh per file and never shared: two files with identical
// shapes but different identifier sets must normalize identically.
type Context struct {
	renames map[string]string
	next    int
}

// NewContext creates an empty rename context.
func NewContext() *Context {
	return &Context{renames: make(map[string]string), next: 1}
}

// Rename returns the symbolic name for an identifier, allocating the
// next sequential name on first occurrence.
func (c *Context) Rename(ident string) string {
	if name, ok := c.renames[ident]; ok {
		return name
	}
	name := "ID" + strconv.Itoa(c.next)
	c.next++
	c.renames[ident] = name
	return name
}

// Table returns a copy of the rename table.
func (c *Context) Table() map[string]string {
	table := make(map[string]string, len(c.renames))
	for k, v := range c.renames {
		table[k] = v
	}
	return table
}

// Normalize converts a token sequence into its canonical sequence and
// returns the context used to build it. Keywords and operators pass
// through verbatim; strings and numbers collapse to placeholders;
// identifiers are renamed in first-occurrence order.
func Normalize(tokens []tokenizer.Token) ([]string, *Context) {
	ctx := NewContext()
	canonical := make([]string, 0, len(tokens))

	for _, tok := range tokens {
		switch tok.Kind {
		case tokenizer.KindString:
			canonical = append(canonical, StringPlaceholder)
		case tokenizer.KindKeyword:
			canonical = append(canonical, tok.Text)
		case tokenizer.KindNumber:
			canonical = append(canonical, NumberPlaceholder)
		case tokenizer.KindIdentifier:
			canonical = append(canonical, ctx.Rename(tok.Text))
		default:
			canonical = append(canonical, tok.Text)
		}
	}

	return canonical, ctx
}
