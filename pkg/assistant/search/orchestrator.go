// FILE: pkg/assistant/search/orchestrator.go
// PURPOSE: Multi-strategy product retrieval. Picks one primary strategy
// from the structured request, walks an ordered fallback chain when it
// comes back empty, applies relevance boosts, and caches per query.

package search

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"shop-assistant-be/pkg/assistant/understanding"
	"shop-assistant-be/pkg/embedding"
	"shop-assistant-be/pkg/knowledge"
	"shop-assistant-be/pkg/store"
)

// Retrieval strategies, named on every candidate they produce.
const (
	StrategyExact    = "EXACT"
	StrategyBrand    = "BRAND"
	StrategyCategory = "CATEGORY"
	StrategyVector   = "VECTOR"
	StrategyHybrid   = "HYBRID"
	StrategyText     = "TEXT"
	StrategyFallback = "FALLBACK"
)

// TagError marks a Result where every strategy call failed outright.
const TagError = "error"

// Filters narrow a strategy call at the index level.
type Filters struct {
	Brand       string
	Category    string
	InStockOnly bool
}

// Result is one retrieval outcome, cached as a unit.
type Result struct {
	Candidates []store.Candidate
	Strategy   string
	FromCache  bool
	Tag        string
}

// Index is the product index contract. Text, vector and hybrid
// specializations share the candidate shape.
type Index interface {
	SearchText(ctx context.Context, query string, filters Filters, limit int) ([]store.Candidate, error)
	SearchVector(ctx context.Context, vector []float32, filters Filters, limit int) ([]store.Candidate, error)
	SearchHybrid(ctx context.Context, query string, vector []float32, filters Filters, limit int) ([]store.Candidate, error)
}

const (
	defaultLimit    = 50
	cacheTTL        = 60 * time.Second
	cacheSweep      = 2 * time.Minute
	strategyTimeout = 5 * time.Second
	brandBoost      = 1.2
	perSpecBoost    = 1.1
	exactThreshold  = 0.9
	vectorMinTerms  = 4
)

// fallbackChain is walked in order when the primary strategy comes back
// empty, stopping at the first non-empty result.
var fallbackChain = []string{StrategyText, StrategyVector, StrategyCategory, StrategyFallback}

type Orchestrator struct {
	index       Index
	embedder    embedding.EmbeddingProvider
	cache       *gocache.Cache
	logger      *log.Logger
	callTimeout time.Duration
}

func NewOrchestrator(index Index, embedder embedding.EmbeddingProvider, logger *log.Logger) *Orchestrator {
	return &Orchestrator{
		index:       index,
		embedder:    embedder,
		cache:       gocache.New(cacheTTL, cacheSweep),
		logger:      logger,
		callTimeout: strategyTimeout,
	}
}

// Search runs the full retrieval flow for one structured request. It
// never returns an error: a total index outage yields an empty result
// tagged TagError instead.
func (o *Orchestrator) Search(ctx context.Context, pu *understanding.ProductUnderstanding, filters Filters) *Result {
	key := cacheKey(pu.SearchQuery, filters)
	if cached, found := o.cache.Get(key); found {
		hit := *cached.(*Result)
		hit.FromCache = true
		return &hit
	}

	primary := o.selectStrategy(pu, filters)
	attempts := 0
	failures := 0

	candidates, err := o.run(ctx, primary, pu, filters)
	attempts++
	if err != nil {
		o.logger.Printf("[SEARCH] strategy %s failed: %v", primary, err)
		failures++
	}

	strategy := primary
	if len(candidates) == 0 {
		for _, next := range fallbackChain {
			if next == primary {
				continue
			}
			attempts++
			candidates, err = o.run(ctx, next, pu, filters)
			if err != nil {
				o.logger.Printf("[SEARCH] fallback %s failed: %v", next, err)
				failures++
				continue
			}
			if len(candidates) > 0 {
				strategy = next
				break
			}
		}
	}

	result := &Result{
		Candidates: o.postProcess(candidates, pu, strategy),
		Strategy:   strategy,
	}
	if len(result.Candidates) == 0 && failures == attempts {
		result.Tag = TagError
	}

	// Outage results stay uncached so recovery is visible next turn.
	if result.Tag != TagError {
		o.cache.Set(key, result, gocache.DefaultExpiration)
	}
	o.logger.Printf("[SEARCH] query=%q strategy=%s candidates=%d", pu.SearchQuery, strategy, len(result.Candidates))
	return result
}

// selectStrategy picks the primary strategy, first match wins.
func (o *Orchestrator) selectStrategy(pu *understanding.ProductUnderstanding, filters Filters) string {
	switch {
	case pu.Brand != "" || filters.Brand != "":
		return StrategyBrand
	case filters.Category != "":
		return StrategyCategory
	case pu.Confidence > exactThreshold:
		return StrategyExact
	case len(pu.SynonymTerms) >= vectorMinTerms:
		return StrategyVector
	default:
		return StrategyHybrid
	}
}

// run executes one strategy under a bounded deadline. A hung index or
// embedding endpoint surfaces as an error here and the fallback chain
// takes over, instead of the whole turn stalling.
func (o *Orchestrator) run(parent context.Context, strategy string, pu *understanding.ProductUnderstanding, filters Filters) ([]store.Candidate, error) {
	ctx, cancel := context.WithTimeout(parent, o.callTimeout)
	defer cancel()

	switch strategy {
	case StrategyBrand:
		scoped := filters
		if scoped.Brand == "" {
			scoped.Brand = pu.Brand
		}
		return o.index.SearchText(ctx, pu.SearchQuery, scoped, defaultLimit)

	case StrategyCategory:
		scoped := filters
		if scoped.Category == "" {
			scoped.Category = pu.ProductType
		}
		return o.index.SearchText(ctx, pu.SearchQuery, scoped, defaultLimit)

	case StrategyExact, StrategyText:
		return o.index.SearchText(ctx, pu.SearchQuery, filters, defaultLimit)

	case StrategyVector:
		vector, err := o.embed(pu.SearchQuery)
		if err != nil {
			return nil, err
		}
		return o.index.SearchVector(ctx, vector, filters, defaultLimit)

	case StrategyHybrid:
		vector, err := o.embed(pu.SearchQuery)
		if err != nil {
			// Degrade to text rather than losing the turn.
			return o.index.SearchText(ctx, pu.SearchQuery, filters, defaultLimit)
		}
		return o.index.SearchHybrid(ctx, pu.SearchQuery, vector, filters, defaultLimit)

	case StrategyFallback:
		query := pu.ProductType
		if query == "" {
			query = pu.SearchQuery
		}
		return o.index.SearchText(ctx, query, Filters{}, defaultLimit)
	}

	return nil, fmt.Errorf("unknown strategy %q", strategy)
}

func (o *Orchestrator) embed(query string) ([]float32, error) {
	resp, err := o.embedder.Generate(query, "retrieval_query")
	if err != nil {
		return nil, err
	}
	return resp.Embedding.Values, nil
}

// postProcess boosts brand and spec matches, deduplicates, and re-sorts
// descending by score.
func (o *Orchestrator) postProcess(candidates []store.Candidate, pu *understanding.ProductUnderstanding, strategy string) []store.Candidate {
	for i := range candidates {
		c := &candidates[i]
		c.Strategy = strategy

		if pu.Brand != "" && strings.EqualFold(c.Brand, pu.Brand) {
			c.Score *= brandBoost
		}
		for key, want := range pu.Specifications {
			if have, ok := c.Specs[key]; ok && specEqual(have, want) {
				c.Score *= perSpecBoost
			}
		}
	}

	deduped := store.MergeCandidates(candidates, nil)
	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].Score > deduped[j].Score
	})
	return deduped
}

func specEqual(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func cacheKey(query string, filters Filters) string {
	return fmt.Sprintf("%s|%s|%s|%t", knowledge.Normalize(query), filters.Brand, filters.Category, filters.InStockOnly)
}
