package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"shop-assistant-be/pkg/assistant/intent"
	"shop-assistant-be/pkg/assistant/quality"
	"shop-assistant-be/pkg/assistant/refine"
	"shop-assistant-be/pkg/assistant/search"
	"shop-assistant-be/pkg/assistant/understanding"
	"shop-assistant-be/pkg/llm"
	"shop-assistant-be/pkg/store"
)

type fakeClassifier struct {
	cls *intent.Classification
}

func (f *fakeClassifier) Classify(ctx context.Context, text string, recent []llm.Message, pending string) *intent.Classification {
	return f.cls
}

type fakeAnalyzer struct {
	pu       *understanding.ProductUnderstanding
	explodes bool
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, cleanedText string, cls *intent.Classification) *understanding.ProductUnderstanding {
	if f.explodes {
		panic("analyzer exploded")
	}
	return f.pu
}

type fakeSearcher struct {
	result *search.Result
	calls  []search.Filters
}

func (f *fakeSearcher) Search(ctx context.Context, pu *understanding.ProductUnderstanding, filters search.Filters) *search.Result {
	f.calls = append(f.calls, filters)
	return f.result
}

type fakeValidator struct {
	result *quality.ValidationResult
}

func (f *fakeValidator) Validate(ctx context.Context, pu *understanding.ProductUnderstanding, candidates []store.Candidate) *quality.ValidationResult {
	return f.result
}

type fakeSessions struct {
	mu       sync.Mutex
	contexts map[string]*store.RefinementContext
	evicted  int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{contexts: make(map[string]*store.RefinementContext)}
}

func (f *fakeSessions) Lock(sessionID string) func() {
	f.mu.Lock()
	return f.mu.Unlock
}

func (f *fakeSessions) Get(sessionID string) (*store.RefinementContext, bool) {
	rc, ok := f.contexts[sessionID]
	return rc, ok
}

func (f *fakeSessions) Save(rc *store.RefinementContext) {
	f.contexts[rc.SessionID] = rc
}

func (f *fakeSessions) Evict(sessionID string) {
	delete(f.contexts, sessionID)
	f.evicted++
}

func differentialSet(n int, brands ...string) []store.Candidate {
	out := make([]store.Candidate, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, store.Candidate{
			ID:    fmt.Sprintf("d%d", i),
			Name:  fmt.Sprintf("Diferencial %d", i),
			Brand: brands[i%len(brands)],
			Specs: map[string]string{"current": "40A"},
		})
	}
	return out
}

func classified(label string, confidence float64, cleaned string) *intent.Classification {
	return &intent.Classification{Intent: label, Confidence: confidence, CleanedText: cleaned}
}

func searchUnderstanding(query, productType, brand string) *understanding.ProductUnderstanding {
	return &understanding.ProductUnderstanding{
		SearchQuery:    query,
		ProductType:    productType,
		Brand:          brand,
		Specifications: map[string]string{},
		Confidence:     0.8,
	}
}

func buildExecutor(cls *intent.Classification, analyzer *fakeAnalyzer, searcher *fakeSearcher, validator *fakeValidator, sessions *fakeSessions) *Executor {
	logger := log.New(io.Discard, "", 0)
	return NewExecutor(&fakeClassifier{cls: cls}, analyzer, searcher, validator, refine.NewMachine(logger), sessions, logger)
}

func turn(sessionID, text string) *TurnRequest {
	return &TurnRequest{SessionID: sessionID, UserID: "u1", RawText: text, ChannelTag: "web"}
}

func TestNextStage(t *testing.T) {
	tests := []struct {
		label      string
		confidence float64
		want       string
	}{
		{intent.IntentProductSearch, 0.9, StageSearch},
		{intent.IntentPriceInquiry, 0.6, StageSearch},
		{intent.IntentStockInquiry, 0.6, StageSearch},
		{intent.IntentProductSearch, 0.2, StageRespond},
		{intent.IntentRefinementReply, 0.6, StageRefine},
		{intent.IntentGreeting, 0.9, StageRespond},
		{intent.IntentConfirmation, 0.9, StageRespond},
		{intent.IntentHelp, 0.9, StageRespond},
		{intent.IntentComplaint, 0.9, StageRespond},
		{intent.IntentOrderInquiry, 0.9, StageRespond},
		{intent.IntentGeneral, 0.5, StageRespond},
		{"made_up_label", 0.9, StageRespond},
	}

	for _, tt := range tests {
		got := NextStage(tt.label, tt.confidence)
		assert.Equal(t, tt.want, got, "%s@%.1f", tt.label, tt.confidence)
	}
}

func TestAmbiguousSearchOpensBrandQuestion(t *testing.T) {
	// 45 differentials across 6 brands and no brand in the request.
	set := differentialSet(45, "schneider", "abb", "legrand", "siemens", "hager", "chint")
	sessions := newFakeSessions()
	searcher := &fakeSearcher{result: &search.Result{Candidates: set, Strategy: search.StrategyHybrid}}
	validator := &fakeValidator{result: &quality.ValidationResult{
		NeedsRefinement:    true,
		RefinementQuestion: "¿Tienes preferencia de marca? Tenemos abb, chint y hager.",
	}}

	e := buildExecutor(
		classified(intent.IntentProductSearch, 0.9, "diferencial"),
		&fakeAnalyzer{pu: searchUnderstanding("diferencial", "diferencial", "")},
		searcher, validator, sessions,
	)

	reply, pctx := e.HandleTurn(context.Background(), turn("s1", "necesito un diferencial"))

	assert.Equal(t, ReplyQuestion, reply.Type)
	assert.Contains(t, reply.Text, "marca")

	rc, ok := sessions.Get("s1")
	assert.True(t, ok)
	assert.Equal(t, store.StateAskingBrand, rc.State)
	assert.Len(t, rc.Facets.Brands, 6)
	assert.Equal(t, StageSearch, pctx.Stage)
	assert.Contains(t, pctx.StageLatency, "search")
}

func TestRefinementReplyNarrowsToBrand(t *testing.T) {
	sessions := newFakeSessions()
	sessions.Save(&store.RefinementContext{
		SessionID:       "s1",
		OriginalQuery:   "necesito un diferencial",
		State:           store.StateAskingBrand,
		PendingQuestion: "¿Tienes preferencia de marca?",
		ProductType:     "diferencial",
		MaxIterations:   3,
		MaxQuestions:    2,
		QuestionsAsked:  1,
	})

	narrowed := differentialSet(4, "schneider")
	searcher := &fakeSearcher{result: &search.Result{Candidates: narrowed, Strategy: search.StrategyBrand}}
	validator := &fakeValidator{result: &quality.ValidationResult{ValidProducts: narrowed}}

	e := buildExecutor(
		classified(intent.IntentRefinementReply, 0.8, "schneider 40A"),
		&fakeAnalyzer{}, searcher, validator, sessions,
	)

	reply, _ := e.HandleTurn(context.Background(), turn("s1", "schneider 40A"))

	assert.Equal(t, ReplyResults, reply.Type)
	for _, p := range reply.Products {
		assert.Equal(t, "schneider", p.Brand)
	}
	// Exchange closed, context gone.
	_, ok := sessions.Get("s1")
	assert.False(t, ok)
	// The first ladder probe carried the brand filter to the index.
	assert.NotEmpty(t, searcher.calls)
	assert.Equal(t, "schneider", searcher.calls[0].Brand)
}

func TestRefinementWithBrandNeverReturnsOtherBrands(t *testing.T) {
	sessions := newFakeSessions()
	sessions.Save(&store.RefinementContext{
		SessionID:       "s1",
		OriginalQuery:   "diferencial",
		State:           store.StateAskingBrand,
		PendingQuestion: "¿Marca?",
		ProductType:     "diferencial",
		MaxIterations:   3,
		MaxQuestions:    2,
		QuestionsAsked:  1,
	})

	// The index ignores the filter and returns mixed brands.
	mixed := differentialSet(6, "abb", "legrand")
	searcher := &fakeSearcher{result: &search.Result{Candidates: mixed}}
	validator := &fakeValidator{result: &quality.ValidationResult{}}

	e := buildExecutor(
		classified(intent.IntentRefinementReply, 0.8, "schneider"),
		&fakeAnalyzer{}, searcher, validator, sessions,
	)

	reply, _ := e.HandleTurn(context.Background(), turn("s1", "schneider"))

	// Nothing matches the named brand anywhere down the ladder: explicit
	// no-match, never unrelated products.
	assert.Equal(t, ReplyAnswer, reply.Type)
	assert.Contains(t, reply.Text, "schneider")
	assert.Empty(t, reply.Products)
}

func TestUpfrontBrandAndSpecShowsResultsDirectly(t *testing.T) {
	set := differentialSet(15, "schneider")
	sessions := newFakeSessions()
	searcher := &fakeSearcher{result: &search.Result{Candidates: set, Strategy: search.StrategyBrand}}
	validator := &fakeValidator{result: &quality.ValidationResult{ValidProducts: set[:10]}}

	e := buildExecutor(
		classified(intent.IntentProductSearch, 0.95, "cable 2.5mm schneider"),
		&fakeAnalyzer{pu: searchUnderstanding("cable schneider 2.5mm", "cable", "schneider")},
		searcher, validator, sessions,
	)

	reply, _ := e.HandleTurn(context.Background(), turn("s2", "cable 2.5mm schneider"))

	assert.Equal(t, ReplyResults, reply.Type)
	assert.Len(t, reply.Products, 10)
	_, ok := sessions.Get("s2")
	assert.False(t, ok)
}

func TestEmptyReplyWhilePendingReasks(t *testing.T) {
	sessions := newFakeSessions()
	sessions.Save(&store.RefinementContext{
		SessionID:       "s1",
		OriginalQuery:   "diferencial",
		State:           store.StateAskingBrand,
		PendingQuestion: "¿Tienes preferencia de marca?",
		MaxIterations:   3,
		MaxQuestions:    2,
		QuestionsAsked:  1,
	})

	searcher := &fakeSearcher{result: &search.Result{}}

	e := buildExecutor(
		classified(intent.IntentRefinementReply, 0.6, "ok"),
		&fakeAnalyzer{}, searcher, &fakeValidator{result: &quality.ValidationResult{}}, sessions,
	)

	reply, _ := e.HandleTurn(context.Background(), turn("s1", "ok"))

	// The question is repeated and no fresh search runs.
	assert.Equal(t, ReplyQuestion, reply.Type)
	assert.Equal(t, "¿Tienes preferencia de marca?", reply.Text)
	assert.Empty(t, searcher.calls)

	rc, _ := sessions.Get("s1")
	assert.Equal(t, store.StateAskingBrand, rc.State)
}

func TestIterationBudgetForcesResults(t *testing.T) {
	sessions := newFakeSessions()
	sessions.Save(&store.RefinementContext{
		SessionID:       "s1",
		OriginalQuery:   "diferencial",
		State:           store.StateAskingAttribute,
		PendingQuestion: "¿Sensibilidad?",
		ProductType:     "diferencial",
		MaxIterations:   3,
		MaxQuestions:    2,
		IterationCount:  2,
		QuestionsAsked:  2,
	})

	set := differentialSet(30, "schneider")
	searcher := &fakeSearcher{result: &search.Result{Candidates: set}}
	// The gate still wants to refine, but the budget is spent.
	validator := &fakeValidator{result: &quality.ValidationResult{
		NeedsRefinement:    true,
		RefinementQuestion: "¿Y de cuántos polos?",
	}}

	e := buildExecutor(
		classified(intent.IntentRefinementReply, 0.8, "schneider 30mA"),
		&fakeAnalyzer{}, searcher, validator, sessions,
	)

	reply, _ := e.HandleTurn(context.Background(), turn("s1", "schneider 30mA"))

	assert.Equal(t, ReplyResults, reply.Type)
	assert.NotEmpty(t, reply.Products)
	_, ok := sessions.Get("s1")
	assert.False(t, ok)
}

func TestGreetingBypassesRetrieval(t *testing.T) {
	searcher := &fakeSearcher{result: &search.Result{}}
	e := buildExecutor(
		classified(intent.IntentGreeting, 0.95, "hola"),
		&fakeAnalyzer{}, searcher, &fakeValidator{result: &quality.ValidationResult{}}, newFakeSessions(),
	)

	reply, pctx := e.HandleTurn(context.Background(), turn("s1", "hola"))

	assert.Equal(t, ReplyAnswer, reply.Type)
	assert.NotEmpty(t, reply.Text)
	assert.Empty(t, searcher.calls)
	assert.Equal(t, StageRespond, pctx.Stage)
}

func TestComplaintEscalates(t *testing.T) {
	e := buildExecutor(
		classified(intent.IntentComplaint, 0.9, "el pedido llegó roto"),
		&fakeAnalyzer{}, &fakeSearcher{result: &search.Result{}}, &fakeValidator{result: &quality.ValidationResult{}}, newFakeSessions(),
	)

	reply, _ := e.HandleTurn(context.Background(), turn("s1", "el pedido llegó roto"))

	assert.True(t, reply.Escalate)
	assert.NotEmpty(t, reply.Text)
}

func TestStagePanicReturnsApology(t *testing.T) {
	e := buildExecutor(
		classified(intent.IntentProductSearch, 0.9, "diferencial"),
		&fakeAnalyzer{explodes: true},
		&fakeSearcher{result: &search.Result{}}, &fakeValidator{result: &quality.ValidationResult{}}, newFakeSessions(),
	)

	reply, pctx := e.HandleTurn(context.Background(), turn("s1", "diferencial"))

	assert.Equal(t, ReplyAnswer, reply.Type)
	assert.Equal(t, msgApology, reply.Text)
	assert.NotEmpty(t, pctx.Errors)
}

func TestIndexOutageAnswersGracefully(t *testing.T) {
	searcher := &fakeSearcher{result: &search.Result{Tag: search.TagError}}
	e := buildExecutor(
		classified(intent.IntentProductSearch, 0.9, "diferencial"),
		&fakeAnalyzer{pu: searchUnderstanding("diferencial", "diferencial", "")},
		searcher, &fakeValidator{result: &quality.ValidationResult{}}, newFakeSessions(),
	)

	reply, _ := e.HandleTurn(context.Background(), turn("s1", "diferencial"))

	assert.Equal(t, ReplyAnswer, reply.Type)
	assert.NotEmpty(t, reply.Text)
}
