package codelist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/nomenclature/internal/apperr"
	"github.com/starford/nomenclature/internal/storage"
)

func writeFiles(t *testing.T, files map[string]string) storage.Provider {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	fs, err := storage.NewFS(dir)
	require.NoError(t, err)
	return fs
}

func TestNewRejectsDuplicates(t *testing.T) {
	_, err := New("scenario", []Code{{Name: "a"}, {Name: "a"}})
	require.ErrorIs(t, err, apperr.ErrDuplicateCode)
}

func TestNewRejectsMalformedNames(t *testing.T) {
	_, err := New("scenario", []Code{{Name: "Primary Energy|{Fuel}"}, {Name: "Trailing "}})
	require.ErrorIs(t, err, apperr.ErrInvalidCode)
	assert.Contains(t, err.Error(), "Primary Energy|{Fuel}")
	assert.Contains(t, err.Error(), "Trailing ")
}

func TestLookup(t *testing.T) {
	cl, err := New("scenario", []Code{{Name: "SSP1"}})
	require.NoError(t, err)

	_, err = cl.Lookup("SSP2")
	var se *apperr.SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, apperr.KindUnknownCode, se.Kind)
	assert.Equal(t, "scenario", se.Dimension)

	assert.True(t, cl.Contains("SSP1"))
	assert.Equal(t, []string{"SSP2", "SSP3"}, cl.Unknown([]string{"SSP3", "SSP1", "SSP2", "SSP3"}))
}

func TestVariableInvariants(t *testing.T) {
	dimensionless := []string{""}
	cases := map[string]struct {
		codes []Code
		kind  error
	}{
		"missing unit": {
			codes: []Code{{Name: "Price"}},
			kind:  apperr.ErrInvalidCode,
		},
		"undefined weight": {
			codes: []Code{{Name: "Price", Unit: []string{"USD"}, Weight: "Quantity"}},
			kind:  apperr.ErrUnknownCode,
		},
		"undefined rename target": {
			codes: []Code{{Name: "Price", Unit: []string{"USD"}, RegionAggregation: []RenameTarget{{Name: "Price|Max"}}}},
			kind:  apperr.ErrUnknownCode,
		},
		"rename combined with method": {
			codes: []Code{
				{Name: "Price", Unit: []string{"USD"}, Method: MethodMax, RegionAggregation: []RenameTarget{{Name: "Price|Max"}}},
				{Name: "Price|Max", Unit: []string{"USD"}},
			},
			kind: apperr.ErrInvalidCode,
		},
		"unknown method": {
			codes: []Code{{Name: "Share", Unit: dimensionless, Method: "median"}},
			kind:  apperr.ErrInvalidCode,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewVariableCodeList(tc.codes)
			assert.ErrorIs(t, err, tc.kind)
		})
	}
}

func TestLoadVariables(t *testing.T) {
	p := writeFiles(t, map[string]string{
		"variable/energy.yaml": `
- Primary Energy:
    description: Total primary energy
    unit: EJ/yr
- Share|Renewables:
    unit:
    skip_region_aggregation: true
- Price|Carbon:
    unit: [USD/t CO2, EUR/t CO2]
    weight: Emissions|CO2
    drop-negative-weights: false
    source: IPCC
- Emissions|CO2:
    unit: Mt CO2/yr
- Price|Carbon|Source:
    unit: USD/t CO2
    region-aggregation:
      - Price|Carbon|Max:
          method: max
      - Price|Carbon|Avg:
          weight: Emissions|CO2
- Price|Carbon|Max:
    unit: USD/t CO2
- Price|Carbon|Avg:
    unit: USD/t CO2
`,
	})

	vl, err := LoadVariables(p, "variable")
	require.NoError(t, err)
	assert.Equal(t, 7, vl.Len())

	pe, err := vl.Lookup("Primary Energy")
	require.NoError(t, err)
	assert.Equal(t, []string{"EJ/yr"}, pe.Unit)
	assert.Equal(t, "Total primary energy", pe.Description)
	assert.Equal(t, "variable/energy.yaml", pe.File)

	share, err := vl.Lookup("Share|Renewables")
	require.NoError(t, err)
	assert.Equal(t, []string{""}, share.Unit)
	assert.True(t, share.AllowsUnit(""))
	skipped, err := vl.IsRegionAggregationSkipped("Share|Renewables")
	require.NoError(t, err)
	assert.True(t, skipped)

	args, err := vl.AggregationArgs("Price|Carbon")
	require.NoError(t, err)
	assert.Equal(t, AggregationArgs{Weight: "Emissions|CO2", DropNegativeWeights: false}, args)
	price, _ := vl.Lookup("Price|Carbon")
	assert.Equal(t, map[string]any{"source": "IPCC"}, price.Extra)
	assert.True(t, price.AllowsUnit("EUR/t CO2"))

	args, err = vl.AggregationArgs("Primary Energy")
	require.NoError(t, err)
	assert.Equal(t, AggregationArgs{DropNegativeWeights: true}, args)

	targets, err := vl.RenameTargets("Price|Carbon|Source")
	require.NoError(t, err)
	assert.Equal(t, []RenameTarget{
		{Name: "Price|Carbon|Max", Args: AggregationArgs{Method: MethodMax, DropNegativeWeights: true}},
		{Name: "Price|Carbon|Avg", Args: AggregationArgs{Weight: "Emissions|CO2", DropNegativeWeights: true}},
	}, targets)

	targets, err = vl.RenameTargets("Primary Energy")
	require.NoError(t, err)
	assert.Empty(t, targets)

	_, err = vl.RenameTargets("Unknown")
	assert.ErrorIs(t, err, apperr.ErrUnknownCode)
}

func TestLoadVariablesWithTags(t *testing.T) {
	p := writeFiles(t, map[string]string{
		"variable/tag_fuel.yaml": `
- Fuel:
  - Coal:
      description: coal
  - Gas
`,
		"variable/energy.yaml": `
- Primary Energy|{Fuel}:
    description: Primary energy from {Fuel}
    unit: EJ/yr
`,
	})
	vl, err := LoadVariables(p, "variable")
	require.NoError(t, err)
	assert.Equal(t, []string{"Primary Energy|Coal", "Primary Energy|Gas"}, vl.Names())

	coal, _ := vl.Lookup("Primary Energy|Coal")
	assert.Equal(t, "Primary energy from coal", coal.Description)
	gas, _ := vl.Lookup("Primary Energy|Gas")
	assert.Equal(t, "Primary energy from Gas", gas.Description)
}

func TestLoadStrayTag(t *testing.T) {
	p := writeFiles(t, map[string]string{
		"variable/energy.yaml": "- Primary Energy|{Fuell}:\n    unit: EJ/yr\n",
	})
	_, err := LoadVariables(p, "variable")
	assert.ErrorIs(t, err, apperr.ErrInvalidCode)
}

func TestLoadRegions(t *testing.T) {
	p := writeFiles(t, map[string]string{
		"region/regions.yaml": `
- common:
  - World
- countries:
  - Austria:
      iso3: AUT
  - Germany
`,
	})
	rl, err := LoadRegions(p, "region")
	require.NoError(t, err)
	assert.Equal(t, []string{"World", "Austria", "Germany"}, rl.Names())
	assert.Equal(t, []string{"common", "countries"}, rl.Hierarchies())
	assert.Equal(t, map[string]struct{}{"Austria": {}, "Germany": {}}, rl.HierarchyMembers("countries"))

	at, err := rl.Lookup("Austria")
	require.NoError(t, err)
	assert.Equal(t, "AUT", at.Extra["iso3"])
}

func TestLoadDuplicateAcrossFiles(t *testing.T) {
	p := writeFiles(t, map[string]string{
		"region/a.yaml": "- common:\n  - World\n",
		"region/b.yaml": "- other:\n  - World\n",
	})
	_, err := LoadRegions(p, "region")
	assert.ErrorIs(t, err, apperr.ErrDuplicateCode)
}

func TestRegionsNeedHierarchy(t *testing.T) {
	_, err := NewRegionCodeList([]Code{{Name: "World"}})
	assert.ErrorIs(t, err, apperr.ErrInvalidCode)
}
