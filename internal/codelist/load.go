package codelist

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/starford/nomenclature/internal/apperr"
	"github.com/starford/nomenclature/internal/parser"
	"github.com/starford/nomenclature/internal/storage"
)

// Keys of the typed attribute core, in normalized spelling.
const (
	keyDescription = "description"
	keyUnit        = "unit"
	keySkip        = "skip-region-aggregation"
	keyMethod      = "method"
	keyWeight      = "weight"
	keyDropNeg     = "drop-negative-weights"
	keyRegionAgg   = "region-aggregation"
)

// tagPrefix marks files holding tag definitions instead of codes.
const tagPrefix = "tag_"

type rawCode struct {
	name      string
	file      string
	hierarchy string
	attrs     map[string]any
}

// Load reads every YAML file under dir as a generic codelist for dimension.
func Load(p storage.Provider, dimension, dir string) (*CodeList, error) {
	codes, err := loadCodes(p, dimension, dir)
	if err != nil {
		return nil, err
	}
	return New(dimension, codes)
}

// LoadVariables reads a variable codelist from dir.
func LoadVariables(p storage.Provider, dir string) (*VariableCodeList, error) {
	codes, err := loadCodes(p, DimVariable, dir)
	if err != nil {
		return nil, err
	}
	return NewVariableCodeList(codes)
}

// LoadRegions reads a region codelist from dir. Region files are lists of
// single-key mappings from hierarchy name to its codes.
func LoadRegions(p storage.Provider, dir string) (*RegionCodeList, error) {
	codes, err := loadCodes(p, DimRegion, dir)
	if err != nil {
		return nil, err
	}
	return NewRegionCodeList(codes)
}

func loadCodes(p storage.Provider, dimension, dir string) ([]Code, error) {
	files, err := p.List(dir)
	if err != nil {
		return nil, fmt.Errorf("codelist: load %s: %w", dimension, err)
	}

	var (
		raws []rawCode
		tags []tag
	)
	for _, f := range files {
		data, err := p.Read(f.Path)
		if err != nil {
			return nil, fmt.Errorf("codelist: load %s: %w", dimension, err)
		}
		var doc []any
		if err := parser.Decode(data, &doc); err != nil {
			return nil, fmt.Errorf("codelist: load %s: %s: %w", dimension, f.Path, err)
		}
		if strings.HasPrefix(path.Base(f.Path), tagPrefix) {
			t, err := parseTags(doc, f.Path)
			if err != nil {
				return nil, fmt.Errorf("codelist: load %s: %w", dimension, err)
			}
			tags = append(tags, t...)
			continue
		}
		var r []rawCode
		if dimension == DimRegion {
			r, err = parseRegionFile(doc, f.Path)
		} else {
			r, err = parseCodeFile(doc, f.Path)
		}
		if err != nil {
			return nil, fmt.Errorf("codelist: load %s: %w", dimension, err)
		}
		raws = append(raws, r...)
	}

	raws, err = expandTags(raws, tags)
	if err != nil {
		return nil, fmt.Errorf("codelist: load %s: %w", dimension, err)
	}

	codes := make([]Code, 0, len(raws))
	for _, r := range raws {
		c, err := r.toCode(dimension)
		if err != nil {
			return nil, fmt.Errorf("codelist: load %s: %w", dimension, err)
		}
		codes = append(codes, c)
	}
	return codes, nil
}

func parseCodeFile(doc []any, file string) ([]rawCode, error) {
	out := make([]rawCode, 0, len(doc))
	for _, item := range doc {
		name, attrs, err := parseItem(item)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		out = append(out, rawCode{name: name, file: file, attrs: attrs})
	}
	return out, nil
}

func parseRegionFile(doc []any, file string) ([]rawCode, error) {
	var out []rawCode
	for _, item := range doc {
		m, ok := toStringMap(item)
		if !ok {
			return nil, fmt.Errorf("%s: expected a mapping of hierarchy to regions, got %T", file, item)
		}
		for _, hierarchy := range sortedKeys(m) {
			items, ok := m[hierarchy].([]any)
			if !ok {
				return nil, fmt.Errorf("%s: hierarchy %q: expected a list of regions", file, hierarchy)
			}
			for _, it := range items {
				name, attrs, err := parseItem(it)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", file, err)
				}
				out = append(out, rawCode{name: name, file: file, hierarchy: hierarchy, attrs: attrs})
			}
		}
	}
	return out, nil
}

// parseItem accepts a bare name or a single-key mapping of name to attributes.
func parseItem(item any) (string, map[string]any, error) {
	switch v := item.(type) {
	case string:
		return v, map[string]any{}, nil
	case int, float64, bool:
		return fmt.Sprint(v), map[string]any{}, nil
	}
	m, ok := toStringMap(item)
	if !ok || len(m) != 1 {
		return "", nil, fmt.Errorf("code is not a single name-attributes mapping: %v", item)
	}
	for name, raw := range m {
		attrs := map[string]any{}
		if raw != nil {
			am, ok := toStringMap(raw)
			if !ok {
				return "", nil, fmt.Errorf("code %q: attributes must be a mapping", name)
			}
			for k, v := range am {
				attrs[normalizeKey(k)] = v
			}
		}
		return name, attrs, nil
	}
	return "", nil, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func toStringMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	}
	return nil, false
}

func (r rawCode) toCode(dimension string) (Code, error) {
	c := Code{Name: r.name, File: r.file, Hierarchy: r.hierarchy}
	invalid := func(detail string) error {
		return &apperr.SchemaError{
			Kind: apperr.KindInvalidCode, Dimension: dimension, Codes: []string{r.name},
			Detail: detail + " in " + r.file,
		}
	}
	for k, v := range r.attrs {
		switch k {
		case keyDescription:
			c.Description = fmt.Sprint(v)
		case keyUnit:
			unit, err := parseUnit(v)
			if err != nil {
				return Code{}, invalid(err.Error())
			}
			c.Unit = unit
		case keySkip:
			b, ok := v.(bool)
			if !ok {
				return Code{}, invalid("'skip-region-aggregation' must be a boolean")
			}
			c.SkipRegionAggregation = b
		case keyMethod:
			c.Method = Method(fmt.Sprint(v))
		case keyWeight:
			c.Weight = fmt.Sprint(v)
		case keyDropNeg:
			b, ok := v.(bool)
			if !ok {
				return Code{}, invalid("'drop-negative-weights' must be a boolean")
			}
			c.DropNegativeWeights = &b
		case keyRegionAgg:
			targets, err := parseRenameTargets(v)
			if err != nil {
				return Code{}, invalid(err.Error())
			}
			c.RegionAggregation = targets
		default:
			if c.Extra == nil {
				c.Extra = make(map[string]any)
			}
			c.Extra[k] = v
		}
	}
	return c, nil
}

func parseUnit(v any) ([]string, error) {
	switch u := v.(type) {
	case nil:
		return []string{""}, nil
	case string:
		return []string{u}, nil
	case []any:
		if len(u) == 0 {
			return []string{""}, nil
		}
		out := make([]string, 0, len(u))
		for _, item := range u {
			switch s := item.(type) {
			case nil:
				out = append(out, "")
			case string:
				out = append(out, s)
			default:
				return nil, fmt.Errorf("unit list entries must be strings, got %T", item)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("'unit' must be a string or a list of strings, got %T", v)
}

func parseRenameTargets(v any) ([]RenameTarget, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("'region-aggregation' must be a list")
	}
	out := make([]RenameTarget, 0, len(items))
	for _, item := range items {
		name, attrs, err := parseItem(item)
		if err != nil {
			return nil, fmt.Errorf("'region-aggregation': %w", err)
		}
		t := RenameTarget{Name: name, Args: AggregationArgs{DropNegativeWeights: true}}
		for k, val := range attrs {
			switch k {
			case keyMethod:
				t.Args.Method = Method(fmt.Sprint(val))
			case keyWeight:
				t.Args.Weight = fmt.Sprint(val)
			case keyDropNeg:
				b, ok := val.(bool)
				if !ok {
					return nil, fmt.Errorf("'region-aggregation' target %q: 'drop-negative-weights' must be a boolean", name)
				}
				t.Args.DropNegativeWeights = b
			default:
				return nil, fmt.Errorf("'region-aggregation' target %q: unsupported argument %q", name, k)
			}
		}
		out = append(out, t)
	}
	return out, nil
}
