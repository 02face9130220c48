package refine

import (
	"fmt"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"

	"shop-assistant-be/pkg/store"
)

func newMachine() *Machine {
	return NewMachine(log.New(io.Discard, "", 0))
}

func newContext(originalQuery string) *store.RefinementContext {
	return &store.RefinementContext{
		SessionID:     "s1",
		OriginalQuery: originalQuery,
		State:         store.StateIdle,
		MaxIterations: 3,
		MaxQuestions:  2,
		ProductType:   "diferencial",
	}
}

// spread builds candidates across the given brands.
func spread(n int, brands ...string) []store.Candidate {
	out := make([]store.Candidate, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, store.Candidate{
			ID:    fmt.Sprintf("c%d", i),
			Brand: brands[i%len(brands)],
			Specs: map[string]string{"current": []string{"25A", "40A"}[i%2]},
		})
	}
	return out
}

func TestBeginAsksBrandOnDiverseSet(t *testing.T) {
	m := newMachine()
	rc := newContext("necesito un diferencial")

	set := spread(45, "schneider", "abb", "legrand", "siemens", "hager", "chint")
	m.Begin(rc, set, "¿Qué marca prefieres?")

	assert.Equal(t, store.StateAskingBrand, rc.State)
	assert.Equal(t, "¿Qué marca prefieres?", rc.PendingQuestion)
	assert.Equal(t, 1, rc.QuestionsAsked)
	assert.Len(t, rc.Facets.Brands, 6)
}

func TestBeginAsksAttributeWhenBrandKnown(t *testing.T) {
	m := newMachine()
	rc := newContext("diferencial schneider")
	rc.SelectedBrand = "schneider"

	m.Begin(rc, spread(12, "schneider"), "¿Qué sensibilidad?")

	assert.Equal(t, store.StateAskingAttribute, rc.State)
}

func TestBeginAsksAttributeOnLowBrandDiversity(t *testing.T) {
	m := newMachine()
	rc := newContext("diferencial")

	m.Begin(rc, spread(12, "schneider", "abb"), "¿De cuántos amperios?")

	assert.Equal(t, store.StateAskingAttribute, rc.State)
}

func TestHandleReplyBuildsRefinedQuery(t *testing.T) {
	m := newMachine()
	rc := newContext("necesito un diferencial")

	m.Begin(rc, spread(45, "schneider", "abb", "legrand", "siemens"), "¿Qué marca prefieres?")
	merged := m.HandleReply(rc, "schneider 40A")

	assert.True(t, merged)

	assert.Equal(t, store.StateRefined, rc.State)
	assert.Equal(t, 1, rc.IterationCount)
	assert.Empty(t, rc.PendingQuestion)
	assert.Equal(t, "schneider", rc.SelectedBrand)
	assert.Equal(t, "40A", rc.SelectedAttributes["current"])
	assert.Contains(t, rc.RefinedQuery, "diferencial")
	assert.Contains(t, rc.RefinedQuery, "schneider")
	assert.Contains(t, rc.RefinedQuery, "40A")
}

func TestHandleReplyDeduplicatesTokens(t *testing.T) {
	m := newMachine()
	rc := newContext("diferencial schneider")
	rc.State = store.StateAskingAttribute

	m.HandleReply(rc, "schneider 30mA")

	assert.Equal(t, "diferencial schneider 30mA", rc.RefinedQuery)
}

func TestHandleReplyDetectsCurveAndPoles(t *testing.T) {
	m := newMachine()
	rc := newContext("magnetotermico")
	rc.ProductType = "magnetotermico"
	rc.State = store.StateAskingAttribute

	m.HandleReply(rc, "de 2 polos curva c")

	assert.Equal(t, "2P", rc.SelectedAttributes["poles"])
	assert.Equal(t, "C", rc.SelectedAttributes["curve"])
}

func TestHandleReplyOutOfStateResets(t *testing.T) {
	m := newMachine()
	rc := newContext("diferencial")
	rc.State = store.StateCompleted
	rc.SelectedBrand = "abb"

	merged := m.HandleReply(rc, "schneider")

	assert.False(t, merged)
	assert.Equal(t, store.StateIdle, rc.State)
	assert.Empty(t, rc.SelectedBrand)
	assert.Empty(t, rc.RefinedQuery)
}

func TestHandleReplyWithNothingUsableStaysOpen(t *testing.T) {
	m := newMachine()
	rc := newContext("diferencial")
	rc.State = store.StateAskingBrand
	rc.PendingQuestion = "¿Qué marca prefieres?"

	merged := m.HandleReply(rc, "ok")

	assert.False(t, merged)
	assert.Equal(t, store.StateAskingBrand, rc.State)
	assert.Equal(t, "¿Qué marca prefieres?", rc.PendingQuestion)
	assert.Zero(t, rc.IterationCount)
}

func TestConcludeAcceptableCompletes(t *testing.T) {
	m := newMachine()
	rc := newContext("diferencial")
	rc.State = store.StateRefined
	rc.IterationCount = 1

	m.Conclude(rc, true, "")

	assert.Equal(t, store.StateCompleted, rc.State)
	assert.True(t, rc.Terminal())
}

func TestConcludeReopensWithNarrowerQuestion(t *testing.T) {
	m := newMachine()
	rc := newContext("diferencial")
	rc.State = store.StateRefined
	rc.IterationCount = 1
	rc.QuestionsAsked = 1

	m.Conclude(rc, false, "¿Qué sensibilidad necesitas?")

	assert.Equal(t, store.StateAskingAttribute, rc.State)
	assert.Equal(t, "¿Qué sensibilidad necesitas?", rc.PendingQuestion)
	assert.Equal(t, 2, rc.QuestionsAsked)
}

func TestConcludeHardStopsOnBudget(t *testing.T) {
	m := newMachine()

	tests := []struct {
		name       string
		iterations int
		questions  int
	}{
		{"iteration cap", 3, 1},
		{"question cap", 1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := newContext("diferencial")
			rc.State = store.StateRefined
			rc.IterationCount = tt.iterations
			rc.QuestionsAsked = tt.questions

			m.Conclude(rc, false, "¿Algo más?")

			assert.Equal(t, store.StateCompleted, rc.State)
			assert.Empty(t, rc.PendingQuestion)
		})
	}
}

func TestLadderOrderAndBrandScope(t *testing.T) {
	m := newMachine()
	rc := newContext("necesito un diferencial")
	rc.State = store.StateAskingBrand
	m.HandleReply(rc, "schneider 40A")

	probes := m.Ladder(rc)

	assert.GreaterOrEqual(t, len(probes), 4)
	// Step 1: full refined query scoped to the brand.
	assert.Equal(t, rc.RefinedQuery, probes[0].Query)
	assert.Equal(t, "schneider", probes[0].Brand)
	// Step 2: brand plus reply terms only.
	assert.Equal(t, "schneider 40A", probes[1].Query)
	// Final step filters the prior result set.
	last := probes[len(probes)-1]
	assert.True(t, last.FilterPrior)
	assert.Equal(t, "schneider", last.Brand)
}

func TestFilterPriorKeepsOnlyMatchingBrand(t *testing.T) {
	rc := newContext("diferencial")
	rc.SelectedBrand = "schneider"
	rc.SelectedAttributes = map[string]string{"current": "40A"}
	rc.LastResults = []store.Candidate{
		{ID: "a", Brand: "schneider", Specs: map[string]string{"current": "40A"}},
		{ID: "b", Brand: "schneider", Specs: map[string]string{"current": "25A"}},
		{ID: "c", Brand: "abb", Specs: map[string]string{"current": "40A"}},
		{ID: "d", Brand: "schneider", Specs: map[string]string{}},
	}

	got := FilterPrior(rc)

	ids := make([]string, 0, len(got))
	for _, c := range got {
		ids = append(ids, c.ID)
	}
	// Products without the attribute recorded are kept; wrong brand or
	// wrong value is dropped.
	assert.Equal(t, []string{"a", "d"}, ids)
}
