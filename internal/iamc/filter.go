package iamc

// Filter selects rows by dimension values. Empty fields match everything.
type Filter struct {
	Model    []string
	Scenario []string
	Region   []string
	Variable []string
	Unit     []string
	Year     []int
}

type set map[string]struct{}

func toSet(items []string) set {
	if len(items) == 0 {
		return nil
	}
	s := make(set, len(items))
	for _, i := range items {
		s[i] = struct{}{}
	}
	return s
}

func (s set) has(v string) bool {
	if s == nil {
		return true
	}
	_, ok := s[v]
	return ok
}

type matcher struct {
	model, scenario, region, variable, unit set
	year                                    map[int]struct{}
}

func (flt Filter) matcher() matcher {
	m := matcher{
		model:    toSet(flt.Model),
		scenario: toSet(flt.Scenario),
		region:   toSet(flt.Region),
		variable: toSet(flt.Variable),
		unit:     toSet(flt.Unit),
	}
	if len(flt.Year) > 0 {
		m.year = make(map[int]struct{}, len(flt.Year))
		for _, y := range flt.Year {
			m.year[y] = struct{}{}
		}
	}
	return m
}

func (m matcher) match(r Row) bool {
	if !m.model.has(r.Model) || !m.scenario.has(r.Scenario) || !m.region.has(r.Region) {
		return false
	}
	if !m.variable.has(r.Variable) || !m.unit.has(r.Unit) {
		return false
	}
	if m.year != nil {
		if _, ok := m.year[r.Year]; !ok {
			return false
		}
	}
	return true
}

// Match reports whether r satisfies the filter.
func (flt Filter) Match(r Row) bool { return flt.matcher().match(r) }
