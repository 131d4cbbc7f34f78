package codelist

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/starford/nomenclature/internal/apperr"
)

// CodeList is the ordered set of codes of one dimension.
type CodeList struct {
	dimension string
	codes     map[string]Code
	order     []string
}

// New builds a CodeList and checks the shared invariants: unique names, no
// trailing whitespace and no unexpanded tag placeholder.
func New(dimension string, codes []Code) (*CodeList, error) {
	cl := &CodeList{
		dimension: dimension,
		codes:     make(map[string]Code, len(codes)),
		order:     make([]string, 0, len(codes)),
	}
	var (
		dups, stray, spaces []string
	)
	for _, c := range codes {
		if _, ok := cl.codes[c.Name]; ok {
			dups = append(dups, c.Name)
			continue
		}
		if strings.Contains(c.Name, "{") {
			stray = append(stray, c.Name)
		}
		if c.Name != strings.TrimRight(c.Name, " \t") {
			spaces = append(spaces, c.Name)
		}
		cl.codes[c.Name] = c
		cl.order = append(cl.order, c.Name)
	}

	var errs []error
	if len(dups) > 0 {
		errs = append(errs, &apperr.SchemaError{Kind: apperr.KindDuplicateCode, Dimension: dimension, Codes: dups})
	}
	if len(stray) > 0 {
		errs = append(errs, &apperr.SchemaError{
			Kind: apperr.KindInvalidCode, Dimension: dimension, Codes: stray,
			Detail: "unexpected '{' in code name, check the spelling of the tag",
		})
	}
	if len(spaces) > 0 {
		errs = append(errs, &apperr.SchemaError{
			Kind: apperr.KindInvalidCode, Dimension: dimension, Codes: spaces,
			Detail: "unexpected whitespace at the end of the code name",
		})
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cl, nil
}

// Dimension returns the name of the dimension the list describes.
func (c *CodeList) Dimension() string { return c.dimension }

// Len returns the number of codes.
func (c *CodeList) Len() int { return len(c.order) }

// Names returns code names in definition order.
func (c *CodeList) Names() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Codes returns all codes in definition order.
func (c *CodeList) Codes() []Code {
	out := make([]Code, 0, len(c.order))
	for _, n := range c.order {
		out = append(out, c.codes[n])
	}
	return out
}

// Contains reports whether name is a code of the list.
func (c *CodeList) Contains(name string) bool {
	_, ok := c.codes[name]
	return ok
}

// Lookup returns the code called name or an UnknownCode schema error.
func (c *CodeList) Lookup(name string) (Code, error) {
	code, ok := c.codes[name]
	if !ok {
		return Code{}, &apperr.SchemaError{Kind: apperr.KindUnknownCode, Dimension: c.dimension, Codes: []string{name}}
	}
	return code, nil
}

// Unknown returns the items that are not codes of the list, sorted.
func (c *CodeList) Unknown(items []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, i := range items {
		if c.Contains(i) {
			continue
		}
		if _, ok := seen[i]; ok {
			continue
		}
		seen[i] = struct{}{}
		out = append(out, i)
	}
	sort.Strings(out)
	return out
}

// ValidateItems returns an UnknownCode schema error listing every item that
// is not a code of the list, or nil.
func (c *CodeList) ValidateItems(items []string) error {
	if unknown := c.Unknown(items); len(unknown) > 0 {
		return &apperr.SchemaError{Kind: apperr.KindUnknownCode, Dimension: c.dimension, Codes: unknown}
	}
	return nil
}

func (c *CodeList) String() string {
	return fmt.Sprintf("CodeList(%s, %d codes)", c.dimension, c.Len())
}
