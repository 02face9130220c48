package search

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"shop-assistant-be/pkg/assistant/understanding"
	"shop-assistant-be/pkg/embedding"
	"shop-assistant-be/pkg/store"
)

type fakeIndex struct {
	textResults   []store.Candidate
	textErr       error
	vectorResults []store.Candidate
	vectorErr     error
	hybridResults []store.Candidate
	hybridErr     error

	textCalls   []string
	textFilters []Filters
	vectorCalls int
	hybridCalls int
}

func (f *fakeIndex) SearchText(ctx context.Context, query string, filters Filters, limit int) ([]store.Candidate, error) {
	f.textCalls = append(f.textCalls, query)
	f.textFilters = append(f.textFilters, filters)
	return f.textResults, f.textErr
}

func (f *fakeIndex) SearchVector(ctx context.Context, vector []float32, filters Filters, limit int) ([]store.Candidate, error) {
	f.vectorCalls++
	return f.vectorResults, f.vectorErr
}

func (f *fakeIndex) SearchHybrid(ctx context.Context, query string, vector []float32, filters Filters, limit int) ([]store.Candidate, error) {
	f.hybridCalls++
	return f.hybridResults, f.hybridErr
}

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) Generate(text string, taskType string) (*embedding.EmbeddingResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: []float32{0.1, 0.2, 0.3}},
	}, nil
}

func newOrchestrator(index *fakeIndex, embedder *fakeEmbedder) *Orchestrator {
	return NewOrchestrator(index, embedder, log.New(io.Discard, "", 0))
}

func candidates(ids ...string) []store.Candidate {
	out := make([]store.Candidate, 0, len(ids))
	for _, id := range ids {
		out = append(out, store.Candidate{ID: id, Name: id, Score: 1.0})
	}
	return out
}

func TestSelectStrategy(t *testing.T) {
	o := newOrchestrator(&fakeIndex{}, &fakeEmbedder{})

	tests := []struct {
		name    string
		pu      *understanding.ProductUnderstanding
		filters Filters
		want    string
	}{
		{"brand known", &understanding.ProductUnderstanding{Brand: "schneider"}, Filters{}, StrategyBrand},
		{"brand filter", &understanding.ProductUnderstanding{}, Filters{Brand: "abb"}, StrategyBrand},
		{"category filter", &understanding.ProductUnderstanding{}, Filters{Category: "cable"}, StrategyCategory},
		{"high confidence", &understanding.ProductUnderstanding{Confidence: 0.95}, Filters{}, StrategyExact},
		{"many synonyms", &understanding.ProductUnderstanding{SynonymTerms: []string{"a", "b", "c", "d"}, Confidence: 0.7}, Filters{}, StrategyVector},
		{"default hybrid", &understanding.ProductUnderstanding{Confidence: 0.7}, Filters{}, StrategyHybrid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, o.selectStrategy(tt.pu, tt.filters))
		})
	}
}

func TestSearchBrandStrategyScopesFilter(t *testing.T) {
	index := &fakeIndex{textResults: candidates("p1", "p2")}
	o := newOrchestrator(index, &fakeEmbedder{})

	pu := &understanding.ProductUnderstanding{
		SearchQuery:    "diferencial schneider",
		Brand:          "schneider",
		Specifications: map[string]string{},
	}
	result := o.Search(context.Background(), pu, Filters{})

	assert.Equal(t, StrategyBrand, result.Strategy)
	assert.Len(t, result.Candidates, 2)
	assert.Equal(t, "schneider", index.textFilters[0].Brand)
	for _, c := range result.Candidates {
		assert.Equal(t, StrategyBrand, c.Strategy)
	}
}

func TestSearchFallbackChainStopsAtFirstHit(t *testing.T) {
	// Hybrid (primary) and text come back empty, vector delivers.
	index := &fakeIndex{vectorResults: candidates("p9")}
	o := newOrchestrator(index, &fakeEmbedder{})

	pu := &understanding.ProductUnderstanding{
		SearchQuery:    "algo raro",
		Confidence:     0.6,
		Specifications: map[string]string{},
	}
	result := o.Search(context.Background(), pu, Filters{})

	assert.Equal(t, StrategyVector, result.Strategy)
	assert.Len(t, result.Candidates, 1)
	assert.Equal(t, 1, index.hybridCalls)
	assert.Equal(t, 1, index.vectorCalls)
}

func TestSearchBroadFallbackUsesBareProductType(t *testing.T) {
	index := &fakeIndex{}
	o := newOrchestrator(index, &fakeEmbedder{err: errors.New("embedder down")})

	pu := &understanding.ProductUnderstanding{
		SearchQuery:    "lampara led 60W regulable exterior",
		ProductType:    "lampara",
		Confidence:     0.6,
		Specifications: map[string]string{},
	}
	result := o.Search(context.Background(), pu, Filters{})

	assert.Empty(t, result.Candidates)
	// Last text call is the broad fallback with the bare product type.
	last := index.textCalls[len(index.textCalls)-1]
	assert.Equal(t, "lampara", last)
	assert.Equal(t, Filters{}, index.textFilters[len(index.textFilters)-1])
}

func TestSearchTotalFailureTaggedError(t *testing.T) {
	index := &fakeIndex{
		textErr:   errors.New("index down"),
		vectorErr: errors.New("index down"),
		hybridErr: errors.New("index down"),
	}
	o := newOrchestrator(index, &fakeEmbedder{})

	pu := &understanding.ProductUnderstanding{
		SearchQuery:    "diferencial",
		Confidence:     0.6,
		Specifications: map[string]string{},
	}
	result := o.Search(context.Background(), pu, Filters{})

	assert.Empty(t, result.Candidates)
	assert.Equal(t, TagError, result.Tag)
}

func TestSearchBoostsAndSorts(t *testing.T) {
	index := &fakeIndex{textResults: []store.Candidate{
		{ID: "plain", Brand: "abb", Score: 1.0, Specs: map[string]string{}},
		{ID: "match", Brand: "schneider", Score: 1.0, Specs: map[string]string{"current": "40A", "sensitivity": "30mA"}},
	}}
	o := newOrchestrator(index, &fakeEmbedder{})

	pu := &understanding.ProductUnderstanding{
		SearchQuery: "diferencial schneider 40A",
		Brand:       "schneider",
		Specifications: map[string]string{
			"current":     "40A",
			"sensitivity": "30mA",
		},
	}
	result := o.Search(context.Background(), pu, Filters{})

	assert.Equal(t, "match", result.Candidates[0].ID)
	assert.InDelta(t, 1.2*1.1*1.1, result.Candidates[0].Score, 1e-9)
	assert.InDelta(t, 1.0, result.Candidates[1].Score, 1e-9)
}

func TestSearchCachesPerQueryAndFilters(t *testing.T) {
	index := &fakeIndex{textResults: candidates("p1")}
	o := newOrchestrator(index, &fakeEmbedder{})

	pu := &understanding.ProductUnderstanding{
		SearchQuery:    "cable legrand",
		Brand:          "legrand",
		Specifications: map[string]string{},
	}

	first := o.Search(context.Background(), pu, Filters{})
	second := o.Search(context.Background(), pu, Filters{})

	assert.False(t, first.FromCache)
	assert.True(t, second.FromCache)
	assert.Len(t, index.textCalls, 1)

	// Different filters miss the cache.
	o.Search(context.Background(), pu, Filters{InStockOnly: true})
	assert.Len(t, index.textCalls, 2)
}

type blockingIndex struct{}

func (blockingIndex) SearchText(ctx context.Context, query string, filters Filters, limit int) ([]store.Candidate, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingIndex) SearchVector(ctx context.Context, vector []float32, filters Filters, limit int) ([]store.Candidate, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingIndex) SearchHybrid(ctx context.Context, query string, vector []float32, filters Filters, limit int) ([]store.Candidate, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestSearchBoundsHungIndexCalls(t *testing.T) {
	o := NewOrchestrator(blockingIndex{}, &fakeEmbedder{}, log.New(io.Discard, "", 0))
	o.callTimeout = 20 * time.Millisecond

	pu := &understanding.ProductUnderstanding{
		SearchQuery:    "diferencial",
		Confidence:     0.6,
		Specifications: map[string]string{},
	}

	done := make(chan *Result, 1)
	go func() {
		done <- o.Search(context.Background(), pu, Filters{})
	}()

	select {
	case result := <-done:
		assert.Empty(t, result.Candidates)
		assert.Equal(t, TagError, result.Tag)
	case <-time.After(2 * time.Second):
		t.Fatal("Search did not return while the index was hung")
	}
}

func TestSearchDoesNotCacheOutageResults(t *testing.T) {
	index := &fakeIndex{
		textErr:   errors.New("index down"),
		vectorErr: errors.New("index down"),
		hybridErr: errors.New("index down"),
	}
	o := newOrchestrator(index, &fakeEmbedder{})

	pu := &understanding.ProductUnderstanding{
		SearchQuery:    "magnetotermico",
		Confidence:     0.6,
		Specifications: map[string]string{},
	}

	first := o.Search(context.Background(), pu, Filters{})
	assert.Equal(t, TagError, first.Tag)

	// The index recovers; the next turn must see fresh results, not the
	// cached outage.
	index.textErr = nil
	index.vectorErr = nil
	index.hybridErr = nil
	index.textResults = candidates("p1")

	second := o.Search(context.Background(), pu, Filters{})
	assert.False(t, second.FromCache)
	assert.Empty(t, second.Tag)
	assert.Len(t, second.Candidates, 1)
}
