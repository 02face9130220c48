package quality

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"shop-assistant-be/pkg/assistant/understanding"
	"shop-assistant-be/pkg/llm"
	"shop-assistant-be/pkg/store"
)

type fakeProvider struct {
	replies []string
	err     error
	calls   int
}

func (f *fakeProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return reply, nil
}

func (f *fakeProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return f.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options...)
}

func newGate(provider llm.LLMProvider) *Gate {
	logger := log.New(io.Discard, "", 0)
	return NewGate(llm.NewOracle(provider, 0, logger), logger)
}

func searchRequest(brand string) *understanding.ProductUnderstanding {
	return &understanding.ProductUnderstanding{
		SearchQuery:    "diferencial",
		ProductType:    "diferencial",
		Brand:          brand,
		Specifications: map[string]string{},
	}
}

// differentials builds n candidates cycling through the given brands.
func differentials(n int, brands ...string) []store.Candidate {
	out := make([]store.Candidate, 0, n)
	for i := 0; i < n; i++ {
		brand := brands[i%len(brands)]
		out = append(out, store.Candidate{
			ID:    fmt.Sprintf("d%d", i),
			Name:  fmt.Sprintf("Diferencial %s %d", brand, i),
			Brand: brand,
			Specs: map[string]string{"sensitivity": []string{"30mA", "300mA"}[i%2]},
		})
	}
	return out
}

func TestValidateZeroCandidatesAsksRephrase(t *testing.T) {
	provider := &fakeProvider{}
	g := newGate(provider)

	result := g.Validate(context.Background(), searchRequest(""), nil)

	assert.True(t, result.NeedsRefinement)
	assert.NotEmpty(t, result.RefinementQuestion)
	assert.Zero(t, provider.calls)
}

func TestValidateGoodVerdictShowsResults(t *testing.T) {
	provider := &fakeProvider{replies: []string{
		`{"quality": "good", "missing": [], "relevant_indexes": [1, 0], "confidence": 0.9}`,
	}}
	g := newGate(provider)

	result := g.Validate(context.Background(), searchRequest("schneider"), differentials(5, "schneider"))

	assert.False(t, result.NeedsRefinement)
	assert.Empty(t, result.RefinementQuestion)
	assert.Len(t, result.ValidProducts, 2)
	assert.Equal(t, "d1", result.ValidProducts[0].ID)
	assert.Greater(t, result.ValidProducts[0].RelevanceScore, result.ValidProducts[1].RelevanceScore)
}

func TestValidateTooBroadAsksBrandQuestion(t *testing.T) {
	// Scenario: 45 differentials across 6 brands, no brand given.
	provider := &fakeProvider{replies: []string{
		`{"quality": "too_broad", "missing": ["brand"], "relevant_indexes": [], "confidence": 0.6}`,
	}}
	g := newGate(provider)

	set := differentials(45, "schneider", "abb", "legrand", "siemens", "hager", "chint")
	result := g.Validate(context.Background(), searchRequest(""), set)

	assert.True(t, result.NeedsRefinement)
	assert.Contains(t, result.RefinementQuestion, "marca")
	// The question must name real brands from the set.
	named := 0
	for _, brand := range []string{"schneider", "abb", "legrand", "siemens", "hager", "chint"} {
		if strings.Contains(result.RefinementQuestion, brand) {
			named++
		}
	}
	assert.GreaterOrEqual(t, named, 3)
}

func TestValidateLargeUnsureSetRefines(t *testing.T) {
	provider := &fakeProvider{replies: []string{
		`{"quality": "good", "missing": [], "relevant_indexes": [], "confidence": 0.5}`,
	}}
	g := newGate(provider)

	result := g.Validate(context.Background(), searchRequest("schneider"), differentials(35, "schneider"))

	assert.True(t, result.NeedsRefinement)
	assert.NotEmpty(t, result.RefinementQuestion)
}

func TestValidateInvalidIndexesKeepWholeSet(t *testing.T) {
	provider := &fakeProvider{replies: []string{
		`{"quality": "good", "missing": [], "relevant_indexes": [99, -1], "confidence": 0.9}`,
	}}
	g := newGate(provider)

	result := g.Validate(context.Background(), searchRequest("schneider"), differentials(5, "schneider"))

	assert.False(t, result.NeedsRefinement)
	assert.Len(t, result.ValidProducts, 5)
}

func TestValidateOracleFailureBuckets(t *testing.T) {
	tests := []struct {
		name       string
		count      int
		brand      string
		wantRefine bool
	}{
		{"small set shows", 8, "", false},
		{"mid set with brand shows", 20, "schneider", false},
		{"mid set without brand asks", 20, "", true},
		{"large set asks", 30, "schneider", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeProvider{err: errors.New("timeout")}
			g := newGate(provider)

			set := differentials(tt.count, "schneider", "abb", "legrand")
			result := g.Validate(context.Background(), searchRequest(tt.brand), set)

			assert.Equal(t, tt.wantRefine, result.NeedsRefinement)
			assert.Equal(t, tt.wantRefine, result.RefinementQuestion != "")
		})
	}
}

func TestValidateQuestionInvariant(t *testing.T) {
	// Whatever the oracle says, needs_refinement must track the question.
	replies := []string{
		`{"quality": "good", "missing": [], "relevant_indexes": [], "confidence": 0.95}`,
		`{"quality": "poor", "missing": ["sensitivity"], "relevant_indexes": [], "confidence": 0.4}`,
	}
	for _, reply := range replies {
		g := newGate(&fakeProvider{replies: []string{reply}})
		result := g.Validate(context.Background(), searchRequest(""), differentials(6, "schneider", "abb"))
		assert.Equal(t, result.RefinementQuestion != "", result.NeedsRefinement)
	}
}

func TestValidateMissingAttributeQuestionUsesRealValues(t *testing.T) {
	provider := &fakeProvider{replies: []string{
		`{"quality": "ambiguous", "missing": ["sensitivity"], "relevant_indexes": [], "confidence": 0.5}`,
	}}
	g := newGate(provider)

	result := g.Validate(context.Background(), searchRequest("schneider"), differentials(12, "schneider"))

	assert.True(t, result.NeedsRefinement)
	assert.Contains(t, result.RefinementQuestion, "30mA")
	assert.Contains(t, result.RefinementQuestion, "300mA")
}
