// FILE: pkg/assistant/refine/machine.go
// PURPOSE: Per-session refinement state machine. Owns every mutation of
// the RefinementContext: starting a clarifying exchange, folding the
// customer's reply into a refined query, and closing the cycle within
// the iteration budget.

package refine

import (
	"fmt"
	"log"
	"strings"

	"shop-assistant-be/pkg/knowledge"
	"shop-assistant-be/pkg/store"
)

type Machine struct {
	logger *log.Logger
}

func NewMachine(logger *log.Logger) *Machine {
	return &Machine{logger: logger}
}

// minBrandFacets is the brand diversity needed before a brand question
// is worth asking.
const minBrandFacets = 3

// Begin opens a clarifying exchange from Idle. The question text comes
// from the quality gate; the machine decides which state it represents
// and records the facets of the set the question was built from.
func (m *Machine) Begin(rc *store.RefinementContext, candidates []store.Candidate, question string) {
	rc.LastResults = candidates
	rc.Facets = store.ComputeFacets(candidates)
	rc.PendingQuestion = question
	rc.QuestionsAsked++

	if rc.SelectedBrand == "" && len(rc.Facets.Brands) >= minBrandFacets {
		m.transition(rc, store.StateAskingBrand)
		return
	}
	m.transition(rc, store.StateAskingAttribute)
}

// HandleReply folds one customer reply into the context: brand mention,
// numeric specs, curve letter and pole count are detected and merged,
// the refined query is rebuilt, and the state moves to Refined. A reply
// carrying nothing usable ("ok", "vale") leaves the exchange open and
// returns false so the caller can re-ask instead of searching.
func (m *Machine) HandleReply(rc *store.RefinementContext, reply string) bool {
	if rc.State != store.StateAskingBrand && rc.State != store.StateAskingAttribute {
		m.Reset(rc)
		return false
	}

	brand := knowledge.DetectBrand(reply)
	specs := knowledge.ExtractSpecs(reply)
	if brand == "" && len(specs) == 0 {
		return false
	}

	if brand != "" {
		rc.SelectedBrand = brand
	}
	if rc.SelectedAttributes == nil {
		rc.SelectedAttributes = make(map[string]string)
	}
	for key, value := range specs {
		rc.SelectedAttributes[key] = value
	}

	rc.RefinedQuery = buildRefinedQuery(rc)
	rc.PendingQuestion = ""
	rc.IterationCount++
	m.transition(rc, store.StateRefined)
	return true
}

// Conclude closes one refined cycle. Acceptable results complete the
// session; otherwise a narrower question reopens AskingAttribute while
// the iteration and question budgets allow, and a hard stop completes
// with best-effort results once they run out.
func (m *Machine) Conclude(rc *store.RefinementContext, acceptable bool, narrowerQuestion string) {
	if acceptable || rc.BudgetExhausted() || narrowerQuestion == "" {
		rc.PendingQuestion = ""
		m.transition(rc, store.StateCompleted)
		return
	}

	rc.PendingQuestion = narrowerQuestion
	rc.QuestionsAsked++
	m.transition(rc, store.StateAskingAttribute)
}

// Reset discards the refinement progress after an unexpected transition,
// keeping the session usable instead of failing the turn.
func (m *Machine) Reset(rc *store.RefinementContext) {
	m.logger.Printf("[STATE] session=%s reset from %s", rc.SessionID, rc.State)
	rc.State = store.StateIdle
	rc.RefinedQuery = ""
	rc.PendingQuestion = ""
	rc.SelectedBrand = ""
	rc.SelectedAttributes = nil
	rc.LastResults = nil
	rc.Facets = store.Facets{}
}

func (m *Machine) transition(rc *store.RefinementContext, next string) {
	m.logger.Printf("[STATE] session=%s %s -> %s iter=%d/%d", rc.SessionID, rc.State, next, rc.IterationCount, rc.MaxIterations)
	rc.State = next
}

// buildRefinedQuery is original query + selected brand + selected
// attributes, with duplicate tokens dropped.
func buildRefinedQuery(rc *store.RefinementContext) string {
	parts := strings.Fields(rc.OriginalQuery)
	if rc.SelectedBrand != "" {
		parts = append(parts, rc.SelectedBrand)
	}
	for _, key := range orderedAttributeKeys {
		if value, ok := rc.SelectedAttributes[key]; ok {
			parts = append(parts, knowledge.FormatSpec(key, value))
		}
	}

	seen := make(map[string]bool)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		norm := knowledge.Normalize(part)
		if seen[norm] {
			continue
		}
		seen[norm] = true
		out = append(out, part)
	}
	return strings.Join(out, " ")
}

// orderedAttributeKeys fixes the attribute order inside refined queries.
var orderedAttributeKeys = []string{
	knowledge.SpecCurrent,
	knowledge.SpecSensitivity,
	knowledge.SpecSection,
	knowledge.SpecVoltage,
	knowledge.SpecPower,
	knowledge.SpecPoles,
	knowledge.SpecCurve,
	knowledge.SpecIP,
}

// Probe is one step of the re-retrieval ladder.
type Probe struct {
	// Query to hand to the retrieval orchestrator; empty when the probe
	// filters the prior result set instead of searching.
	Query string
	// Brand filter to apply, empty for none.
	Brand string
	// FilterPrior marks the final step: narrow LastResults in memory.
	FilterPrior bool
}

// Ladder returns the ordered re-retrieval probes for a Refined context.
// Callers stop at the first probe producing candidates; exhausting the
// ladder is an explicit no-match outcome.
func (m *Machine) Ladder(rc *store.RefinementContext) []Probe {
	probes := []Probe{
		{Query: rc.RefinedQuery, Brand: rc.SelectedBrand},
	}

	if rc.SelectedBrand != "" {
		probes = append(probes, Probe{Query: replyTerms(rc), Brand: rc.SelectedBrand})
	}
	probes = append(probes, Probe{Query: replyTerms(rc)})

	if expanded := expandedQuery(rc); expanded != rc.RefinedQuery {
		probes = append(probes, Probe{Query: expanded, Brand: rc.SelectedBrand})
	}

	probes = append(probes, Probe{FilterPrior: true, Brand: rc.SelectedBrand})
	return probes
}

// replyTerms is just the refinement the customer supplied, without the
// original query.
func replyTerms(rc *store.RefinementContext) string {
	parts := make([]string, 0, 1+len(rc.SelectedAttributes))
	if rc.SelectedBrand != "" {
		parts = append(parts, rc.SelectedBrand)
	}
	for _, key := range orderedAttributeKeys {
		if value, ok := rc.SelectedAttributes[key]; ok {
			parts = append(parts, knowledge.FormatSpec(key, value))
		}
	}
	if len(parts) == 0 {
		return rc.RefinedQuery
	}
	return strings.Join(parts, " ")
}

// expandedQuery widens the original query with type synonyms before the
// last-resort probes run.
func expandedQuery(rc *store.RefinementContext) string {
	if rc.ProductType == "" {
		return rc.RefinedQuery
	}
	synonyms := knowledge.Synonyms(rc.ProductType)
	if len(synonyms) == 0 {
		return rc.RefinedQuery
	}
	extra := synonyms
	if len(extra) > 2 {
		extra = extra[:2]
	}
	return fmt.Sprintf("%s %s", rc.RefinedQuery, strings.Join(extra, " "))
}

// FilterPrior narrows the previous result set by the selected brand and
// attributes, the in-memory final ladder step.
func FilterPrior(rc *store.RefinementContext) []store.Candidate {
	out := make([]store.Candidate, 0, len(rc.LastResults))
	for _, c := range rc.LastResults {
		if rc.SelectedBrand != "" && !strings.EqualFold(c.Brand, rc.SelectedBrand) {
			continue
		}
		if !matchesAttributes(c, rc.SelectedAttributes) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func matchesAttributes(c store.Candidate, attrs map[string]string) bool {
	for key, want := range attrs {
		have, ok := c.Specs[key]
		if !ok {
			// Unknown spec on the product is not a mismatch.
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(have), strings.TrimSpace(want)) {
			return false
		}
	}
	return true
}
