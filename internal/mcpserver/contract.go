package mcpserver

// ProjectFormatContract describes the layout of a nomenclature project and
// the YAML format of codelists and model mappings.
const ProjectFormatContract = `# Nomenclature Project Format

A project is a directory with two sub-directories:

- ` + "`definitions/<dimension>/`" + `: one codelist per dimension (` + "`region`" + `, ` + "`variable`" + `, ...).
- ` + "`mappings/`" + `: one model mapping per file.

All files are YAML (` + "`.yaml`" + ` or ` + "`.yml`" + `) and must not contain the narrow
no-break space character (U+202F).

## Variable codelist

` + "```" + `yaml
- Emissions|CO2:
    description: Total CO2 emissions
    unit: Mt CO2/yr
- Price|Carbon:
    unit: USD/t CO2
    weight: Emissions|CO2          # weighted mean over constituents
- Temperature:
    unit: K
    method: max                    # sum (default), mean, min or max
- Share|Renewables:
    unit:                          # dimensionless
    skip-region-aggregation: true
- Capacity:
    unit: GW
    region-aggregation:            # aggregate into other variables
      - Capacity|Max:
          method: max
      - Capacity|Mean:
          method: mean
` + "```" + `

Rules:

1. Every variable declares ` + "`unit`" + ` (a string, a list of strings or empty).
2. ` + "`weight`" + ` and ` + "`region-aggregation`" + ` targets must be variables of the codelist.
3. ` + "`region-aggregation`" + ` cannot be combined with ` + "`method`" + `, ` + "`weight`" + ` or
   ` + "`drop-negative-weights`" + `.
4. Codes are unique across all files of a dimension and have no trailing whitespace.
5. ` + "`{Tag}`" + ` placeholders are expanded from ` + "`tag_*.yaml`" + ` files.

## Region codelist

` + "```" + `yaml
- common:
  - World
- model_a:
  - Model A|North
  - Model A|South
` + "```" + `

Each top-level key is a hierarchy; each region belongs to exactly one.

## Model mapping

` + "```" + `yaml
model: model_a                     # or a list of models
native_regions:
  - north: Model A|North           # select and rename
  - south: Model A|South
common_regions:
  - World:
    - north                        # constituents are native region originals
    - south
exclude_regions:
  - Antarctica
` + "```" + `

Rules:

1. At least one of ` + "`native_regions`" + ` and ` + "`common_regions`" + ` is required.
2. Every region in the data must appear in ` + "`native_regions`" + `, as a constituent,
   or in ` + "`exclude_regions`" + `; otherwise processing fails.
3. Renamed native regions and common regions must be defined in the region codelist.
4. A model may be mapped by one file only.
`
