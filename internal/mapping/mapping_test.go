package mapping

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/nomenclature/internal/apperr"
	"github.com/starford/nomenclature/internal/storage"
)

const modelA = `
model: model_a
native_regions:
  - region_a: Model|A
  - region_b
common_regions:
  - World:
    - region_a
    - region_b
exclude_regions: [region_c]
`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(modelA), "mappings/model_a.yaml")
	require.NoError(t, err)

	assert.Equal(t, []string{"model_a"}, m.Models)
	assert.Equal(t, "Model|A", m.RenameOf("region_a"))
	assert.Equal(t, "region_b", m.RenameOf("region_b"))
	assert.Equal(t, "unknown", m.RenameOf("unknown"))
	assert.Equal(t, map[string]struct{}{"region_a": {}, "region_b": {}}, m.SelectedNativeOriginals())
	assert.Equal(t, []CommonRegion{{Name: "World", Constituents: []string{"region_a", "region_b"}}}, m.CommonRegionDefinitions())
	assert.Equal(t, map[string]struct{}{"region_c": {}}, m.Excluded())
	assert.Equal(t, []string{"Model|A", "region_b", "World"}, m.AllRegions())
}

func TestParseModelList(t *testing.T) {
	m, err := Parse([]byte("model: [a, b]\ncommon_regions:\n  - World: [r1, r2]\n"), "f.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, m.Models)
	assert.Empty(t, m.SelectedNativeOriginals())
}

func TestValidationErrors(t *testing.T) {
	cases := map[string]struct {
		m    ModelMapping
		want error
	}{
		"empty": {
			m:    ModelMapping{Models: []string{"m"}},
			want: apperr.ErrEmptyMapping,
		},
		"undefined constituent": {
			m: ModelMapping{
				Models:        []string{"m"},
				NativeRegions: []NativeRegion{{Name: "a"}},
				CommonRegions: []CommonRegion{{Name: "World", Constituents: []string{"a", "b"}}},
			},
			want: apperr.ErrUndefinedConstituent,
		},
		"duplicate native original": {
			m: ModelMapping{
				Models:        []string{"m"},
				NativeRegions: []NativeRegion{{Name: "a", Rename: "x"}, {Name: "a", Rename: "y"}},
			},
			want: apperr.ErrRegionNameCollision,
		},
		"duplicate rename": {
			m: ModelMapping{
				Models:        []string{"m"},
				NativeRegions: []NativeRegion{{Name: "a", Rename: "x"}, {Name: "b", Rename: "x"}},
			},
			want: apperr.ErrRegionNameCollision,
		},
		"rename collides with common region": {
			m: ModelMapping{
				Models:        []string{"m"},
				NativeRegions: []NativeRegion{{Name: "a", Rename: "World"}, {Name: "b"}},
				CommonRegions: []CommonRegion{{Name: "World", Constituents: []string{"a", "b"}}},
			},
			want: apperr.ErrRegionNameCollision,
		},
		"exclude overlaps native": {
			m: ModelMapping{
				Models:         []string{"m"},
				NativeRegions:  []NativeRegion{{Name: "a"}},
				ExcludeRegions: []string{"a"},
			},
			want: apperr.ErrExcludeOverlap,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New(tc.m)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCommonRegionsOnlyAcceptsAnyConstituent(t *testing.T) {
	m, err := New(ModelMapping{
		Models:        []string{"m"},
		CommonRegions: []CommonRegion{{Name: "World", Constituents: []string{"North", "South"}}},
	})
	require.NoError(t, err)
	assert.Len(t, m.CommonRegions, 1)
}

func TestStructuralValidation(t *testing.T) {
	_, err := New(ModelMapping{NativeRegions: []NativeRegion{{Name: "a"}}})
	assert.Error(t, err, "models are required")

	_, err = New(ModelMapping{Models: []string{"m"}, CommonRegions: []CommonRegion{{Name: "World"}}})
	assert.Error(t, err, "constituents are required")
}

func mustMapping(t *testing.T, file string, models ...string) *ModelMapping {
	t.Helper()
	m, err := New(ModelMapping{Models: models, File: file, NativeRegions: []NativeRegion{{Name: "r"}}})
	require.NoError(t, err)
	return m
}

func TestSetCollision(t *testing.T) {
	s := NewSet()
	require.NoError(t, s.Add(mustMapping(t, "a.yaml", "m1", "m2")))

	err := s.Add(mustMapping(t, "b.yaml", "m2"))
	require.ErrorIs(t, err, apperr.ErrModelMappingCollision)
	var me *apperr.MappingError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, "m2", me.Model)
	assert.Contains(t, err.Error(), "a.yaml")

	got, err := s.MappingFor("m2")
	require.NoError(t, err)
	assert.Equal(t, "a.yaml", got.File)
}

func TestSetOverride(t *testing.T) {
	var buf bytes.Buffer
	s := NewSet(WithOverride(), WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	require.NoError(t, s.Add(mustMapping(t, "a.yaml", "m1")))
	require.NoError(t, s.Add(mustMapping(t, "b.yaml", "m1")))

	got, err := s.MappingFor("m1")
	require.NoError(t, err)
	assert.Equal(t, "b.yaml", got.File)
	assert.Contains(t, buf.String(), "model mapping overridden")
	assert.Len(t, s.Mappings(), 1)
}

func TestMappingForUnknown(t *testing.T) {
	_, err := NewSet().MappingFor("nope")
	assert.ErrorIs(t, err, apperr.ErrNoMappingForModel)
}

type regions map[string]bool

func (r regions) Contains(name string) bool { return r[name] }

func TestValidateRegions(t *testing.T) {
	m, err := Parse([]byte(modelA), "model_a.yaml")
	require.NoError(t, err)
	s := NewSet()
	require.NoError(t, s.Add(m))

	assert.NoError(t, s.ValidateRegions(regions{"Model|A": true, "region_b": true, "World": true}))

	err = s.ValidateRegions(regions{"World": true})
	require.ErrorIs(t, err, apperr.ErrUndefinedRegion)
	var ve *apperr.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{"Model|A", "region_b"}, ve.Regions)
	assert.Equal(t, "model_a.yaml", ve.File)
}

func TestLoadSet(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "mappings"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "mappings", name), []byte(content), 0o644))
	}
	write("model_a.yaml", modelA)
	write("model_b.yml", "model: model_b\nnative_regions: [r1]\n")
	fs, err := storage.NewFS(dir)
	require.NoError(t, err)

	s, err := LoadSet(fs, "mappings")
	require.NoError(t, err)
	assert.Equal(t, []string{"model_a", "model_b"}, s.Models())

	write("model_c.yaml", "model: model_a\nnative_regions: [r1]\n")
	write("broken.yaml", "model: x\n")
	_, err = LoadSet(fs, "mappings")
	assert.ErrorIs(t, err, apperr.ErrModelMappingCollision)
	assert.ErrorIs(t, err, apperr.ErrEmptyMapping)
}
