package codelist

import "github.com/starford/nomenclature/internal/apperr"

// DimRegion is the dimension name of region codelists.
const DimRegion = "region"

// RegionCodeList is a CodeList of regions, each belonging to one hierarchy.
type RegionCodeList struct {
	*CodeList
	hierarchies []string
}

// NewRegionCodeList builds a region codelist. Every code must name its
// hierarchy.
func NewRegionCodeList(codes []Code) (*RegionCodeList, error) {
	cl, err := New(DimRegion, codes)
	if err != nil {
		return nil, err
	}
	var (
		missing []string
		order   []string
		seen    = make(map[string]struct{})
	)
	for _, c := range cl.Codes() {
		if c.Hierarchy == "" {
			missing = append(missing, c.Name)
			continue
		}
		if _, ok := seen[c.Hierarchy]; !ok {
			seen[c.Hierarchy] = struct{}{}
			order = append(order, c.Hierarchy)
		}
	}
	if len(missing) > 0 {
		return nil, &apperr.SchemaError{
			Kind: apperr.KindInvalidCode, Dimension: DimRegion, Codes: missing,
			Detail: "region is not part of a hierarchy",
		}
	}
	return &RegionCodeList{CodeList: cl, hierarchies: order}, nil
}

// Hierarchies returns hierarchy names in order of first appearance.
func (r *RegionCodeList) Hierarchies() []string {
	out := make([]string, len(r.hierarchies))
	copy(out, r.hierarchies)
	return out
}

// HierarchyMembers returns the regions belonging to hierarchy h.
func (r *RegionCodeList) HierarchyMembers(h string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, c := range r.Codes() {
		if c.Hierarchy == h {
			out[c.Name] = struct{}{}
		}
	}
	return out
}
