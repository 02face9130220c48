// FILE: pkg/assistant/quality/gate.go
// PURPOSE: Decides whether a result set is good enough to show or the
// customer should be asked one clarifying question. Biased toward
// showing results; oracle judgment with deterministic count buckets as
// the fallback.

package quality

import (
	"context"
	"fmt"
	"log"
	"strings"

	"shop-assistant-be/pkg/assistant/understanding"
	"shop-assistant-be/pkg/llm"
	"shop-assistant-be/pkg/store"
)

// ValidationResult is the gate's verdict for one turn.
// NeedsRefinement is true exactly when RefinementQuestion is non-empty.
type ValidationResult struct {
	ValidProducts      []store.Candidate
	NeedsRefinement    bool
	RefinementQuestion string
	ValidationScore    float64
	MissingInfo        []string
}

const (
	sampleSize     = 12
	maxProducts    = 10
	largeSetTotal  = 30
	lowConfidence  = 0.7
	maxSurvivors   = 20
	smallSetBucket = 10
	midSetBucket   = 25
)

type Gate struct {
	oracle *llm.Oracle
	logger *log.Logger
}

func NewGate(oracle *llm.Oracle, logger *log.Logger) *Gate {
	return &Gate{
		oracle: oracle,
		logger: logger,
	}
}

// judgment is the shape requested from the oracle.
type judgment struct {
	Quality         string   `json:"quality"`
	Missing         []string `json:"missing"`
	RelevantIndexes []int    `json:"relevant_indexes"`
	Confidence      float64  `json:"confidence"`
}

// Validate judges one result set. It never fails the turn: oracle
// trouble degrades to deterministic count buckets.
func (g *Gate) Validate(ctx context.Context, pu *understanding.ProductUnderstanding, candidates []store.Candidate) *ValidationResult {
	if len(candidates) == 0 {
		return g.finish(&ValidationResult{
			RefinementQuestion: rephraseQuestion,
			ValidationScore:    0,
		})
	}

	total := len(candidates)

	var verdict judgment
	err := g.oracle.Complete(ctx, gateSystemPrompt, g.buildPrompt(pu, candidates), &verdict)
	if err != nil {
		g.logger.Printf("[QUALITY] oracle failed, count buckets: %v", err)
		return g.finish(g.bucketVerdict(pu, candidates))
	}

	survivors := selectByIndex(candidates, verdict.RelevantIndexes)

	result := &ValidationResult{
		ValidProducts:   rank(survivors),
		ValidationScore: clamp(verdict.Confidence),
		MissingInfo:     verdict.Missing,
	}

	// Bias toward showing: refine only on an explicit oracle flag, a
	// large low-confidence set, or too many survivors.
	flagged := verdict.Quality == "poor" || verdict.Quality == "too_broad" || verdict.Quality == "ambiguous"
	largeAndUnsure := total >= largeSetTotal && result.ValidationScore < lowConfidence
	if flagged || largeAndUnsure || len(survivors) > maxSurvivors {
		result.RefinementQuestion = buildQuestion(pu, candidates, verdict.Missing)
	}

	g.logger.Printf("[QUALITY] total=%d survivors=%d quality=%q refine=%t",
		total, len(survivors), verdict.Quality, result.RefinementQuestion != "")
	return g.finish(result)
}

// bucketVerdict is the deterministic path: decide by candidate count
// alone, asking only for clearly oversized sets or a missing brand on a
// mid-sized one.
func (g *Gate) bucketVerdict(pu *understanding.ProductUnderstanding, candidates []store.Candidate) *ValidationResult {
	total := len(candidates)
	result := &ValidationResult{
		ValidProducts:   rank(candidates),
		ValidationScore: 0.5,
	}

	switch {
	case total <= smallSetBucket:
		// Show as is.
	case total <= midSetBucket:
		if pu.Brand == "" {
			result.MissingInfo = []string{"brand"}
			result.RefinementQuestion = buildQuestion(pu, candidates, result.MissingInfo)
		}
	default:
		result.RefinementQuestion = buildQuestion(pu, candidates, nil)
	}

	return result
}

// finish enforces the refinement invariant before handing the result out.
func (g *Gate) finish(result *ValidationResult) *ValidationResult {
	result.NeedsRefinement = result.RefinementQuestion != ""
	return result
}

// selectByIndex keeps the candidates the oracle pointed at, ignoring
// out-of-range indexes. An empty or fully invalid selection keeps the
// whole set rather than dropping everything.
func selectByIndex(candidates []store.Candidate, indexes []int) []store.Candidate {
	if len(indexes) == 0 {
		return candidates
	}
	out := make([]store.Candidate, 0, len(indexes))
	seen := make(map[int]bool)
	for _, idx := range indexes {
		if idx < 0 || idx >= len(candidates) || seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, candidates[idx])
	}
	if len(out) == 0 {
		return candidates
	}
	return out
}

// rank assigns relevance scores from retrieval order and caps the list.
func rank(candidates []store.Candidate) []store.Candidate {
	capped := candidates
	if len(capped) > maxProducts {
		capped = capped[:maxProducts]
	}
	out := make([]store.Candidate, len(capped))
	copy(out, capped)
	for i := range out {
		out[i].RelevanceScore = 1.0 - float64(i)/float64(maxProducts)
	}
	return out
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

const gateSystemPrompt = "Eres un revisor de resultados de búsqueda de material eléctrico. " +
	"Juzgas si los resultados encajan con la petición del cliente. No respondes al cliente."

func (g *Gate) buildPrompt(pu *understanding.ProductUnderstanding, candidates []store.Candidate) string {
	sample := candidates
	if len(sample) > sampleSize {
		sample = sample[:sampleSize]
	}

	var prompt strings.Builder

	prompt.WriteString("<request>\n")
	prompt.WriteString(fmt.Sprintf("consulta: %s\n", pu.SearchQuery))
	if pu.ProductType != "" {
		prompt.WriteString(fmt.Sprintf("tipo: %s\n", pu.ProductType))
	}
	if pu.Brand != "" {
		prompt.WriteString(fmt.Sprintf("marca: %s\n", pu.Brand))
	}
	for key, value := range pu.Specifications {
		prompt.WriteString(fmt.Sprintf("%s: %s\n", key, value))
	}
	prompt.WriteString("</request>\n\n")

	prompt.WriteString("<candidates>\n")
	for i, c := range sample {
		prompt.WriteString(fmt.Sprintf("%d. %s | %s | %s | %.2f EUR\n", i, c.Name, c.Brand, c.Category, c.Price))
	}
	prompt.WriteString(fmt.Sprintf("(total: %d)\n", len(candidates)))
	prompt.WriteString("</candidates>\n\n")

	prompt.WriteString("<instructions>\n")
	prompt.WriteString("Evalúa los candidatos frente a la petición:\n")
	prompt.WriteString("- quality: good, too_broad, poor o ambiguous\n")
	prompt.WriteString("- missing: datos que faltan en la petición (brand, current, sensitivity, section, power...)\n")
	prompt.WriteString("- relevant_indexes: índices de los candidatos que encajan, mejores primero\n")
	prompt.WriteString("- confidence: 0.0-1.0\n")
	prompt.WriteString("</instructions>\n\n")

	prompt.WriteString("<output_format>\n")
	prompt.WriteString("Responde SOLO con JSON válido:\n")
	prompt.WriteString("{\"quality\": \"good\", \"missing\": [], \"relevant_indexes\": [0, 1], \"confidence\": 0.9}\n")
	prompt.WriteString("</output_format>")

	return prompt.String()
}
