package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeCandidatesDeduplicatesByID(t *testing.T) {
	a := []Candidate{
		{ID: "sku-1", Name: "diferencial", Score: 0.8},
		{ID: "sku-2", Name: "magnetotermico", Score: 0.6},
	}
	b := []Candidate{
		{ID: "sku-1", Name: "diferencial", Score: 0.95, Strategy: "VECTOR"},
		{ID: "sku-3", Name: "cable", Score: 0.4},
	}

	merged := MergeCandidates(a, b)

	assert.Len(t, merged, 3)
	ids := make([]string, 0, len(merged))
	for _, c := range merged {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"sku-1", "sku-2", "sku-3"}, ids)

	// The higher-scored duplicate wins, keeping its full record.
	assert.InDelta(t, 0.95, merged[0].Score, 1e-9)
	assert.Equal(t, "VECTOR", merged[0].Strategy)
}

func TestMergeCandidatesKeepsHigherScoreRegardlessOfSide(t *testing.T) {
	a := []Candidate{{ID: "sku-1", Score: 0.9}}
	b := []Candidate{{ID: "sku-1", Score: 0.2}}

	merged := MergeCandidates(a, b)

	assert.Len(t, merged, 1)
	assert.InDelta(t, 0.9, merged[0].Score, 1e-9)
}

func TestMergeCandidatesSelfMergeIsIdempotent(t *testing.T) {
	set := []Candidate{
		{ID: "sku-1", Score: 0.8},
		{ID: "sku-2", Score: 0.6},
		{ID: "sku-3", Score: 0.4},
	}

	merged := MergeCandidates(set, set)

	assert.Equal(t, set, merged)
	assert.Equal(t, merged, MergeCandidates(merged, merged))
}

func TestMergeCandidatesHandlesNilSides(t *testing.T) {
	set := []Candidate{{ID: "sku-1", Score: 0.8}}

	assert.Equal(t, set, MergeCandidates(set, nil))
	assert.Equal(t, set, MergeCandidates(nil, set))
	assert.Empty(t, MergeCandidates(nil, nil))
}

func TestComputeFacetsCollectsSortedDistinctValues(t *testing.T) {
	facets := ComputeFacets([]Candidate{
		{ID: "sku-1", Brand: "schneider", Specs: map[string]string{"current": "40A", "sensitivity": "30mA"}},
		{ID: "sku-2", Brand: "abb", Specs: map[string]string{"current": "25A"}},
		{ID: "sku-3", Brand: "schneider", Specs: map[string]string{"current": "40A"}},
	})

	assert.Equal(t, []string{"abb", "schneider"}, facets.Brands)
	assert.Equal(t, []string{"25A", "40A"}, facets.Attributes["current"])
	assert.Equal(t, []string{"30mA"}, facets.Attributes["sensitivity"])
}

func TestComputeFacetsEmptyAndSpecless(t *testing.T) {
	empty := ComputeFacets(nil)
	assert.Empty(t, empty.Brands)
	assert.Empty(t, empty.Attributes)

	// Candidates without brand or specs contribute nothing; blank spec
	// values are skipped.
	specless := ComputeFacets([]Candidate{
		{ID: "sku-1"},
		{ID: "sku-2", Specs: map[string]string{"current": ""}},
	})
	assert.Empty(t, specless.Brands)
	assert.Empty(t, specless.Attributes)
}
