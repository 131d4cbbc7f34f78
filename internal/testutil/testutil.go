// Package testutil provides shared test helpers for setting up projects and run stores.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/nomenclature/internal/diagstore"
	"github.com/starford/nomenclature/internal/storage"
)

// SampleFiles is a minimal project: two native regions of model_a renamed and
// aggregated into World, with a weighted carbon price.
var SampleFiles = map[string]string{
	"definitions/region/regions.yaml": `- common:
  - World
- model_a:
  - Model A|North
  - Model A|South
`,
	"definitions/variable/variables.yaml": `- Emissions|CO2:
    unit: Mt CO2/yr
- Population:
    unit: million
- Price|Carbon:
    unit: USD/t CO2
    weight: Population
`,
	"mappings/model_a.yaml": `model: model_a
native_regions:
  - north: Model A|North
  - south: Model A|South
common_regions:
  - World:
    - north
    - south
`,
}

// SampleCSV is scenario data for the sample project. The provided World
// emissions match the aggregate in 2020 and differ from it in 2030.
const SampleCSV = `Model,Scenario,Region,Variable,Unit,2020,2030
model_a,SSP2,north,Emissions|CO2,Mt CO2/yr,10,12
model_a,SSP2,south,Emissions|CO2,Mt CO2/yr,20,18
model_a,SSP2,north,Population,million,1,1
model_a,SSP2,south,Population,million,3,3
model_a,SSP2,World,Emissions|CO2,Mt CO2/yr,30,25
`

// WriteFiles writes files (relative path -> content) into a temporary
// directory and returns it along with a storage.Provider rooted there.
func WriteFiles(t *testing.T, files map[string]string) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// TestProject creates a temporary copy of the sample project.
func TestProject(t *testing.T) (string, storage.Provider) {
	t.Helper()
	return WriteFiles(t, SampleFiles)
}

// TestStore creates a temporary run store that is automatically cleaned up.
func TestStore(t *testing.T) *diagstore.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "nomenclature-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := diagstore.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
