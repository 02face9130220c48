package understanding

import (
	"context"
	"log"
	"strings"

	"shop-assistant-be/pkg/assistant/intent"
	"shop-assistant-be/pkg/knowledge"
	"shop-assistant-be/pkg/llm"
)

// ProductUnderstanding is the structured request built from one turn.
// Fresh value per turn; consumed by the retrieval orchestrator.
type ProductUnderstanding struct {
	SearchQuery    string            `json:"search_query"`
	ProductType    string            `json:"product_type"`
	Brand          string            `json:"brand"`
	Specifications map[string]string `json:"specifications"`
	SynonymTerms   []string          `json:"synonym_terms"`
	Confidence     float64           `json:"confidence"`
}

// Analyzer turns cleaned text into a ProductUnderstanding. The oracle
// proposes a structured guess; deterministic extractors run independently
// as a safety net, with oracle values winning on conflict and gaps filled
// deterministically. Analyze never fails the turn.
type Analyzer struct {
	oracle *llm.Oracle
	logger *log.Logger
}

func NewAnalyzer(oracle *llm.Oracle, logger *log.Logger) *Analyzer {
	return &Analyzer{
		oracle: oracle,
		logger: logger,
	}
}

// oracleGuess is the shape requested from the oracle.
type oracleGuess struct {
	ProductType    string            `json:"product_type"`
	Brand          string            `json:"brand"`
	Specifications map[string]string `json:"specifications"`
	Terms          []string          `json:"terms"`
	Confidence     float64           `json:"confidence"`
}

const minQueryLength = 12

func (a *Analyzer) Analyze(ctx context.Context, cleanedText string, cls *intent.Classification) *ProductUnderstanding {
	// Non-search intents pass through unchanged.
	if !isSearchIntent(cls.Intent) {
		return &ProductUnderstanding{
			SearchQuery:    cleanedText,
			Specifications: map[string]string{},
			Confidence:     0.5,
		}
	}

	// Deterministic pass always runs: it is the safety net and the gap
	// filler for the oracle guess.
	detType := knowledge.DetectProductType(cleanedText)
	detBrand := knowledge.DetectBrand(cleanedText)
	detSpecs := knowledge.ExtractSpecs(cleanedText)

	var guess oracleGuess
	err := a.oracle.Complete(ctx, analyzerSystemPrompt, a.buildPrompt(cleanedText), &guess)
	if err != nil {
		a.logger.Printf("[UNDERSTAND] oracle failed, deterministic only: %v", err)
		pu := &ProductUnderstanding{
			ProductType:    detType,
			Brand:          detBrand,
			Specifications: detSpecs,
			Confidence:     0.6,
		}
		a.finish(pu, cleanedText)
		return pu
	}

	pu := &ProductUnderstanding{
		ProductType:    strings.ToLower(strings.TrimSpace(guess.ProductType)),
		Brand:          strings.ToLower(strings.TrimSpace(guess.Brand)),
		Specifications: map[string]string{},
		Confidence:     guess.Confidence,
	}

	// Oracle wins on conflict, deterministic fills the gaps.
	if pu.ProductType == "" {
		pu.ProductType = detType
	}
	if pu.Brand == "" {
		pu.Brand = detBrand
	}
	for key, value := range guess.Specifications {
		if value != "" {
			pu.Specifications[strings.ToLower(key)] = value
		}
	}
	for key, value := range detSpecs {
		if _, present := pu.Specifications[key]; !present {
			pu.Specifications[key] = value
		}
	}
	if pu.Confidence <= 0 || pu.Confidence > 1 {
		pu.Confidence = 0.6
	}

	a.finish(pu, cleanedText)

	// Oracle terms supplement the knowledge-base expansion.
	for _, term := range guess.Terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" && !containsTerm(pu.SynonymTerms, term) {
			pu.SynonymTerms = append(pu.SynonymTerms, term)
		}
	}

	a.logger.Printf("[UNDERSTAND] type=%q brand=%q specs=%d query=%q conf=%.2f",
		pu.ProductType, pu.Brand, len(pu.Specifications), pu.SearchQuery, pu.Confidence)
	return pu
}

// finish expands synonyms and builds the compact query string.
func (a *Analyzer) finish(pu *ProductUnderstanding, cleanedText string) {
	if pu.ProductType != "" {
		pu.SynonymTerms = knowledge.Synonyms(pu.ProductType)
	}
	pu.SearchQuery = buildSearchQuery(pu, cleanedText)
}

// specPriority orders which specifications make it into the compact
// query. Current rating beats voltage beats sensitivity; the remaining
// keys only participate when the higher-priority ones are absent.
var specPriority = []string{
	knowledge.SpecCurrent,
	knowledge.SpecVoltage,
	knowledge.SpecSensitivity,
	knowledge.SpecSection,
	knowledge.SpecPower,
	knowledge.SpecPoles,
	knowledge.SpecCurve,
	knowledge.SpecIP,
}

// buildSearchQuery assembles type + brand + up to two specs, appending
// expansion terms when the result is still too short to retrieve well.
func buildSearchQuery(pu *ProductUnderstanding, cleanedText string) string {
	var parts []string

	if pu.ProductType != "" {
		parts = append(parts, pu.ProductType)
	} else if cleanedText != "" {
		parts = append(parts, cleanedText)
	}
	if pu.Brand != "" {
		parts = append(parts, pu.Brand)
	}

	specsAdded := 0
	for _, key := range specPriority {
		if specsAdded == 2 {
			break
		}
		if value, ok := pu.Specifications[key]; ok {
			parts = append(parts, knowledge.FormatSpec(key, value))
			specsAdded++
		}
	}

	query := strings.Join(parts, " ")

	if len(query) < minQueryLength {
		for i, term := range pu.SynonymTerms {
			if i == 2 {
				break
			}
			query += " " + term
		}
		query = strings.TrimSpace(query)
	}

	return query
}

func isSearchIntent(label string) bool {
	switch label {
	case intent.IntentProductSearch, intent.IntentPriceInquiry, intent.IntentStockInquiry, intent.IntentRefinementReply:
		return true
	}
	return false
}

func containsTerm(terms []string, term string) bool {
	for _, t := range terms {
		if t == term {
			return true
		}
	}
	return false
}

const analyzerSystemPrompt = "Eres un extractor de peticiones de material eléctrico. " +
	"Analizas el texto del cliente y devuelves una petición estructurada. No respondes al cliente."

func (a *Analyzer) buildPrompt(cleanedText string) string {
	var prompt strings.Builder

	prompt.WriteString("<message>\n")
	prompt.WriteString(cleanedText)
	prompt.WriteString("\n</message>\n\n")

	prompt.WriteString("<instructions>\n")
	prompt.WriteString("Extrae del mensaje:\n")
	prompt.WriteString("- product_type: tipo canónico (diferencial, magnetotermico, cable, lampara, enchufe, contactor, interruptor) o \"\"\n")
	prompt.WriteString("- brand: marca mencionada en minúsculas o \"\"\n")
	prompt.WriteString("- specifications: mapa con claves current/voltage/power/section/sensitivity/poles/ip/curve y valores normalizados (\"40A\", \"30mA\", \"2.5mm\")\n")
	prompt.WriteString("- terms: hasta 4 términos de búsqueda adicionales\n")
	prompt.WriteString("- confidence: 0.0-1.0\n")
	prompt.WriteString("</instructions>\n\n")

	prompt.WriteString("<output_format>\n")
	prompt.WriteString("Responde SOLO con JSON válido:\n")
	prompt.WriteString("{\"product_type\": \"\", \"brand\": \"\", \"specifications\": {}, \"terms\": [], \"confidence\": 0.9}\n")
	prompt.WriteString("</output_format>")

	return prompt.String()
}
