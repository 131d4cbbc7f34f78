// Package region implements region processing: selecting and renaming model
// native regions, aggregating them into common regions and reconciling the
// result with data reported directly at the common-region level.
//
// Processing is a pure function of the input frame, the mapping set and the
// variable codelist. Reconciliation mismatches never fail a run; they are
// logged and returned as Differences next to the processed frame.
package region

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/starford/nomenclature/internal/apperr"
	"github.com/starford/nomenclature/internal/codelist"
	"github.com/starford/nomenclature/internal/iamc"
	"github.com/starford/nomenclature/internal/mapping"
)

// DefaultRTol is the relative tolerance used when none is configured.
const DefaultRTol = 0.01

// ErrEmptyResult is returned when processing leaves no data at all.
var ErrEmptyResult = errors.New("region processing returned an empty dataset")

// Processor applies a mapping set to scenario data.
type Processor struct {
	mappings  *mapping.Set
	variables *codelist.VariableCodeList
	regions   mapping.RegionSet
	rtol      float64
	atol      float64
	workers   int
	logger    *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithTolerance sets the relative and absolute tolerance of reconciliation.
func WithTolerance(rtol, atol float64) Option {
	return func(p *Processor) {
		p.rtol = rtol
		p.atol = atol
	}
}

// WithWorkers bounds how many models are processed concurrently.
func WithWorkers(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithLogger sets the logger for warnings and progress messages.
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithRegions makes the processor check, before touching a model's data,
// that every region its mapping produces is defined.
func WithRegions(r mapping.RegionSet) Option {
	return func(p *Processor) { p.regions = r }
}

// NewProcessor returns a Processor for the given mappings and variables.
func NewProcessor(mappings *mapping.Set, variables *codelist.VariableCodeList, opts ...Option) *Processor {
	p := &Processor{
		mappings:  mappings,
		variables: variables,
		rtol:      DefaultRTol,
		workers:   1,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Result is the output of a processing run.
type Result struct {
	Frame       *iamc.Frame
	Differences []Difference
}

type modelResult struct {
	frame *iamc.Frame
	diffs []Difference
}

// Apply processes every model of f. Models without a mapping pass through
// unchanged. The output keeps models in order of first appearance.
func (p *Processor) Apply(f *iamc.Frame) (*Result, error) {
	models := f.Models()
	results := make([]modelResult, len(models))

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, model := range models {
		g.Go(func() error {
			out, diffs, err := p.processModel(model, f.Filter(iamc.Filter{Model: []string{model}}))
			if err != nil {
				return err
			}
			results[i] = modelResult{frame: out, diffs: diffs}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("region: %w", err)
	}

	frames := make([]*iamc.Frame, len(results))
	var diffs []Difference
	for i, r := range results {
		frames[i] = r.frame
		diffs = append(diffs, r.diffs...)
	}
	out, err := iamc.Concat(frames...)
	if err != nil {
		return nil, fmt.Errorf("region: %w", err)
	}
	if out.IsEmpty() {
		return nil, fmt.Errorf("region: model(s) %s: %w", strings.Join(models, ", "), ErrEmptyResult)
	}
	return &Result{Frame: out, Differences: diffs}, nil
}

func (p *Processor) processModel(model string, f *iamc.Frame) (*iamc.Frame, []Difference, error) {
	m, err := p.mappings.MappingFor(model)
	if err != nil {
		var ce *apperr.ConfigError
		if errors.As(err, &ce) {
			p.logger.Info("no model mapping found, data passed through", slog.String("model", model))
			return f, nil, nil
		}
		return nil, nil, err
	}
	if p.regions != nil {
		if err := mapping.ValidateRegions(m, p.regions); err != nil {
			return nil, nil, err
		}
	}
	if err := checkUnexpectedRegions(model, f, m); err != nil {
		return nil, nil, err
	}
	p.logger.Info("applying region processing",
		slog.String("model", model),
		slog.String("file", m.File))

	var rows []iamc.Row
	rename := m.RenameMapping()
	processed := make(map[string]struct{})
	for _, t := range m.NativeTargets() {
		processed[t] = struct{}{}
	}
	f.Each(func(r iamc.Row) {
		if to, ok := rename[r.Region]; ok {
			r.Region = to
			rows = append(rows, r)
			return
		}
		// Rows already carrying a display name stay as they are.
		if _, ok := processed[r.Region]; ok {
			rows = append(rows, r)
		}
	})

	var diffs []Difference
	for _, c := range m.CommonRegionDefinitions() {
		out, d := p.commonRegion(model, c, f)
		rows = append(rows, out...)
		diffs = append(diffs, d...)
	}

	out, err := iamc.NewFrame(rows)
	if err != nil {
		return nil, nil, fmt.Errorf("model %q: %w", model, err)
	}
	return out, diffs, nil
}

// checkUnexpectedRegions fails when the data holds a region the mapping does
// not mention anywhere, so that no region is dropped silently.
func checkUnexpectedRegions(model string, f *iamc.Frame, m *mapping.ModelMapping) error {
	known := m.SelectedNativeOriginals()
	for _, set := range []map[string]struct{}{m.Constituents(), m.Excluded()} {
		for r := range set {
			known[r] = struct{}{}
		}
	}
	for _, r := range m.AllRegions() {
		known[r] = struct{}{}
	}
	var unexpected []string
	for _, r := range f.Regions() {
		if _, ok := known[r]; !ok {
			unexpected = append(unexpected, r)
		}
	}
	if len(unexpected) == 0 {
		return nil
	}
	sort.Strings(unexpected)
	return &apperr.MappingError{
		Kind: apperr.KindUnmappedRegion, Model: model, File: m.File, Regions: unexpected,
		Detail: "not found in 'native_regions', 'common_regions' or 'exclude_regions', " +
			"add them to 'exclude_regions' if they are not meant to be included",
	}
}

// aggregates reports whether variable takes part in common-region
// computation.
func (p *Processor) aggregates(variable string) bool {
	code, err := p.variables.Lookup(variable)
	return err == nil && !code.SkipRegionAggregation
}

func (p *Processor) commonRegion(model string, c mapping.CommonRegion, f *iamc.Frame) ([]iamc.Row, []Difference) {
	provided := f.Where(func(r iamc.Row) bool {
		return r.Region == c.Name && p.variables.Contains(r.Variable)
	})

	var computed []iamc.Row
	if c.IsSingleConstituent() {
		f.Each(func(r iamc.Row) {
			if r.Region == c.Constituents[0] && p.aggregates(r.Variable) {
				r.Region = c.Name
				computed = append(computed, r)
			}
		})
	} else {
		computed = p.aggregate(model, c, f)
	}
	return p.reconcile(model, provided, computed)
}

type groupKey struct {
	scenario, unit string
	year           int
}

type group struct {
	groupKey
	rows []iamc.Row
}

type weightKey struct {
	variable, scenario, region string
	year                       int
}

func (p *Processor) aggregate(model string, c mapping.CommonRegion, f *iamc.Frame) []iamc.Row {
	members := make(map[string]struct{}, len(c.Constituents))
	for _, r := range c.Constituents {
		members[r] = struct{}{}
	}
	constituents := f.Where(func(r iamc.Row) bool {
		_, ok := members[r.Region]
		return ok
	})

	// Weights are looked up independently of their unit; the first unit seen wins.
	weights := make(map[weightKey]float64)
	constituents.Each(func(r iamc.Row) {
		k := weightKey{r.Variable, r.Scenario, r.Region, r.Year}
		if _, ok := weights[k]; !ok {
			weights[k] = r.Value
		}
	})

	var out []iamc.Row
	for _, v := range constituents.Variables() {
		code, err := p.variables.Lookup(v)
		if err != nil || code.SkipRegionAggregation {
			continue
		}
		targets := code.RegionAggregation
		if len(targets) == 0 {
			targets = []codelist.RenameTarget{{Name: v, Args: code.AggregationArgs()}}
		}
		groups := groupRows(constituents.Filter(iamc.Filter{Variable: []string{v}}))
		for _, t := range targets {
			s := StrategyFor(t.Args)
			for _, g := range groups {
				value, ok := p.aggregateGroup(model, c.Name, v, s, g, weights)
				if !ok {
					continue
				}
				out = append(out, iamc.Row{
					Model: model, Scenario: g.scenario, Region: c.Name,
					Variable: t.Name, Unit: g.unit, Year: g.year, Value: value,
				})
			}
		}
	}
	return out
}

func groupRows(f *iamc.Frame) []*group {
	var order []*group
	idx := make(map[groupKey]*group)
	f.Each(func(r iamc.Row) {
		k := groupKey{r.Scenario, r.Unit, r.Year}
		g, ok := idx[k]
		if !ok {
			g = &group{groupKey: k}
			idx[k] = g
			order = append(order, g)
		}
		g.rows = append(g.rows, r)
	})
	return order
}

func (p *Processor) aggregateGroup(model, region, variable string, s Strategy, g *group, weights map[weightKey]float64) (float64, bool) {
	values := make([]float64, len(g.rows))
	for i, r := range g.rows {
		values[i] = r.Value
	}
	if s.Kind != WeightedMean {
		return s.Aggregate(values, nil)
	}

	w := make([]float64, len(g.rows))
	for i, r := range g.rows {
		x, ok := weights[weightKey{s.Weight, r.Scenario, r.Region, r.Year}]
		if !ok {
			p.logger.Warn("missing weight, aggregate skipped",
				slog.String("model", model),
				slog.String("region", region),
				slog.String("variable", variable),
				slog.String("weight", s.Weight),
				slog.String("constituent", r.Region),
				slog.String("scenario", r.Scenario),
				slog.Int("year", r.Year))
			return 0, false
		}
		w[i] = x
	}
	v, ok := s.Aggregate(values, w)
	if !ok {
		p.logger.Warn("zero total weight, aggregate skipped",
			slog.String("model", model),
			slog.String("region", region),
			slog.String("variable", variable),
			slog.String("weight", s.Weight),
			slog.String("scenario", g.scenario),
			slog.Int("year", g.year))
	}
	return v, ok
}
