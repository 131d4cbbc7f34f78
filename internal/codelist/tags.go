package codelist

import (
	"fmt"
	"strings"

	"github.com/starford/nomenclature/internal/apperr"
)

// tag is a named list of substitutions for a "{Name}" placeholder.
type tag struct {
	name  string
	items []rawCode
}

func (t tag) placeholder() string { return "{" + t.name + "}" }

func parseTags(doc []any, file string) ([]tag, error) {
	var out []tag
	for _, item := range doc {
		m, ok := toStringMap(item)
		if !ok || len(m) != 1 {
			return nil, fmt.Errorf("%s: tag must be a single-key mapping, got %v", file, item)
		}
		for name, v := range m {
			list, ok := v.([]any)
			if !ok {
				return nil, fmt.Errorf("%s: tag %q: expected a list of items", file, name)
			}
			t := tag{name: name}
			for _, it := range list {
				iname, attrs, err := parseItem(it)
				if err != nil {
					return nil, fmt.Errorf("%s: tag %q: %w", file, name, err)
				}
				t.items = append(t.items, rawCode{name: iname, file: file, attrs: attrs})
			}
			out = append(out, t)
		}
	}
	return out, nil
}

// expandTags replaces every code whose name contains a tag placeholder with
// one code per tag item. String attributes holding the placeholder take the
// item's attribute of the same key, or the item name when it has none.
func expandTags(codes []rawCode, tags []tag) ([]rawCode, error) {
	seen := make(map[string]struct{}, len(tags))
	var dups []string
	for _, t := range tags {
		if _, ok := seen[t.name]; ok {
			dups = append(dups, t.name)
		}
		seen[t.name] = struct{}{}
	}
	if len(dups) > 0 {
		return nil, &apperr.SchemaError{Kind: apperr.KindDuplicateCode, Dimension: "tag", Codes: dups}
	}

	for _, t := range tags {
		ph := t.placeholder()
		out := make([]rawCode, 0, len(codes))
		for _, c := range codes {
			if !strings.Contains(c.name, ph) {
				out = append(out, c)
				continue
			}
			for _, item := range t.items {
				out = append(out, c.substitute(ph, item))
			}
		}
		codes = out
	}
	return codes, nil
}

func (r rawCode) substitute(ph string, item rawCode) rawCode {
	out := rawCode{
		name:      strings.ReplaceAll(r.name, ph, item.name),
		file:      r.file,
		hierarchy: r.hierarchy,
		attrs:     make(map[string]any, len(r.attrs)),
	}
	for k, v := range r.attrs {
		s, ok := v.(string)
		if !ok || !strings.Contains(s, ph) {
			out.attrs[k] = v
			continue
		}
		repl := item.name
		if iv, ok := item.attrs[k].(string); ok {
			repl = iv
		}
		out.attrs[k] = strings.ReplaceAll(s, ph, repl)
	}
	return out
}
