package store

import "sort"

// ComputeFacets collects the distinct brands and attribute values present
// in a candidate set. Everything is sorted so questions enumerate options
// deterministically.
func ComputeFacets(candidates []Candidate) Facets {
	brandSet := make(map[string]bool)
	attrSet := make(map[string]map[string]bool)

	for _, c := range candidates {
		if c.Brand != "" {
			brandSet[c.Brand] = true
		}
		for key, value := range c.Specs {
			if value == "" {
				continue
			}
			if attrSet[key] == nil {
				attrSet[key] = make(map[string]bool)
			}
			attrSet[key][value] = true
		}
	}

	facets := Facets{Attributes: make(map[string][]string)}
	for brand := range brandSet {
		facets.Brands = append(facets.Brands, brand)
	}
	sort.Strings(facets.Brands)

	for key, values := range attrSet {
		for v := range values {
			facets.Attributes[key] = append(facets.Attributes[key], v)
		}
		sort.Strings(facets.Attributes[key])
	}

	return facets
}

// MergeCandidates combines two candidate sets, dropping duplicate catalog
// ids and keeping the higher-scored occurrence. Merging a set with itself
// is idempotent.
func MergeCandidates(a, b []Candidate) []Candidate {
	merged := make([]Candidate, 0, len(a)+len(b))
	index := make(map[string]int)

	for _, c := range append(append([]Candidate{}, a...), b...) {
		if pos, seen := index[c.ID]; seen {
			if c.Score > merged[pos].Score {
				merged[pos] = c
			}
			continue
		}
		index[c.ID] = len(merged)
		merged = append(merged, c)
	}

	return merged
}
