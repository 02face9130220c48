package intent

import (
	"context"
	"fmt"
	"log"
	"strings"

	"shop-assistant-be/pkg/knowledge"
	"shop-assistant-be/pkg/llm"
)

// Intent labels for one conversational turn.
const (
	IntentProductSearch   = "product_search"
	IntentOrderInquiry    = "order_inquiry"
	IntentGreeting        = "greeting"
	IntentConfirmation    = "confirmation"
	IntentRefinementReply = "refinement_reply"
	IntentPriceInquiry    = "price_inquiry"
	IntentStockInquiry    = "stock_inquiry"
	IntentHelp            = "help"
	IntentComplaint       = "complaint"
	IntentGeneral         = "general"
)

var knownIntents = map[string]bool{
	IntentProductSearch:   true,
	IntentOrderInquiry:    true,
	IntentGreeting:        true,
	IntentConfirmation:    true,
	IntentRefinementReply: true,
	IntentPriceInquiry:    true,
	IntentStockInquiry:    true,
	IntentHelp:            true,
	IntentComplaint:       true,
	IntentGeneral:         true,
}

// Classification is the labeled result for a turn.
type Classification struct {
	Intent        string   `json:"intent"`
	Confidence    float64  `json:"confidence"`
	Reasoning     string   `json:"reasoning"`
	CleanedText   string   `json:"-"`
	RemovedTokens []string `json:"-"`
}

// Classifier labels turns via the oracle with a deterministic fallback.
// Classify never fails: oracle errors degrade to the heuristic path.
type Classifier struct {
	oracle *llm.Oracle
	logger *log.Logger
}

func NewClassifier(oracle *llm.Oracle, logger *log.Logger) *Classifier {
	return &Classifier{
		oracle: oracle,
		logger: logger,
	}
}

// Classify labels one turn. recent is a short window of prior messages;
// pendingQuestion is non-empty while a clarifying question awaits its
// answer, which biases short replies toward refinement_reply.
func (c *Classifier) Classify(ctx context.Context, text string, recent []llm.Message, pendingQuestion string) *Classification {
	var result Classification

	prompt := c.buildPrompt(text, recent, pendingQuestion)
	err := c.oracle.Complete(ctx, classifierSystemPrompt, prompt, &result)
	if err != nil {
		c.logger.Printf("[INTENT] oracle failed, using heuristic: %v", err)
		result = *c.fallback(text, pendingQuestion)
	} else {
		result.Intent = strings.ToLower(strings.TrimSpace(result.Intent))
		if !knownIntents[result.Intent] {
			c.logger.Printf("[INTENT] unknown label %q, downgrading to general", result.Intent)
			result.Intent = IntentGeneral
			result.Confidence = 0.5
		}
		if result.Confidence < 0 {
			result.Confidence = 0
		} else if result.Confidence > 1 {
			result.Confidence = 1
		}
	}

	// While a clarifying question is pending, anything that does not name
	// a fresh product type is the answer to that question, whatever the
	// model said ("ok", "schneider 40A", "el de 30mA").
	if pendingQuestion != "" && result.Intent != IntentRefinementReply {
		if knowledge.DetectProductType(text) == "" {
			c.logger.Printf("[INTENT] pending question, relabeling %s -> refinement_reply", result.Intent)
			result.Intent = IntentRefinementReply
			if result.Confidence < 0.6 {
				result.Confidence = 0.6
			}
		}
	}

	result.CleanedText, result.RemovedTokens = stripLeadingFiller(text)

	c.logger.Printf("[INTENT] %s (%.2f) cleaned=%q", result.Intent, result.Confidence, result.CleanedText)
	return &result
}

const classifierSystemPrompt = "Eres un clasificador de intenciones para un asistente de venta de material eléctrico. " +
	"Tu ÚNICA tarea es etiquetar el mensaje del cliente. No respondes preguntas."

func (c *Classifier) buildPrompt(text string, recent []llm.Message, pendingQuestion string) string {
	var prompt strings.Builder

	prompt.WriteString("<conversation_window>\n")
	if len(recent) == 0 {
		prompt.WriteString("(sin historial)\n")
	}
	window := recent
	if len(window) > 4 {
		window = window[len(window)-4:]
	}
	for _, msg := range window {
		speaker := "Cliente"
		if msg.Role == "assistant" || msg.Role == "model" {
			speaker = "Asistente"
		}
		prompt.WriteString(fmt.Sprintf("%s: %s\n", speaker, truncate(msg.Content, 200)))
	}
	prompt.WriteString("</conversation_window>\n\n")

	if pendingQuestion != "" {
		prompt.WriteString("<pending_question>\n")
		prompt.WriteString("El asistente acaba de hacer esta pregunta aclaratoria y espera la respuesta:\n")
		prompt.WriteString(pendingQuestion)
		prompt.WriteString("\nSi el mensaje responde a la pregunta (marca, amperaje, \"ok\", \"el primero\"...), la intención es refinement_reply.\n")
		prompt.WriteString("</pending_question>\n\n")
	}

	prompt.WriteString("<message>\n")
	prompt.WriteString(text)
	prompt.WriteString("\n</message>\n\n")

	prompt.WriteString("<intent_definitions>\n")
	prompt.WriteString("product_search: busca un producto del catálogo (\"necesito un diferencial\", \"cable 2.5mm\")\n")
	prompt.WriteString("order_inquiry: pregunta por un pedido, envío o devolución\n")
	prompt.WriteString("greeting: solo saluda, sin petición concreta\n")
	prompt.WriteString("confirmation: asiente o confirma lo anterior (\"ok\", \"vale\", \"sí\")\n")
	prompt.WriteString("refinement_reply: responde a una pregunta aclaratoria pendiente\n")
	prompt.WriteString("price_inquiry: pregunta por el precio de un producto\n")
	prompt.WriteString("stock_inquiry: pregunta por disponibilidad o stock\n")
	prompt.WriteString("help: pide ayuda sobre cómo usar el asistente\n")
	prompt.WriteString("complaint: expresa una queja o reclamación\n")
	prompt.WriteString("general: cualquier otra cosa\n")
	prompt.WriteString("</intent_definitions>\n\n")

	prompt.WriteString("<output_format>\n")
	prompt.WriteString("Responde SOLO con JSON válido:\n")
	prompt.WriteString("{\n")
	prompt.WriteString("  \"intent\": \"product_search\",\n")
	prompt.WriteString("  \"confidence\": 0.95,\n")
	prompt.WriteString("  \"reasoning\": \"explicación breve\"\n")
	prompt.WriteString("}\n")
	prompt.WriteString("</output_format>")

	return prompt.String()
}

// Order-related markers for the heuristic path.
var orderMarkers = []string{"pedido", "envio", "envío", "entrega", "seguimiento", "tracking", "devolucion", "devolución", "reembolso"}

var greetingTokens = map[string]bool{
	"hola": true, "buenas": true, "buenos": true, "dias": true, "días": true,
	"tardes": true, "noches": true, "hey": true, "saludos": true,
}

// fallback is the deterministic classification used when the oracle is
// unavailable. Confidence stays in the 0.5-0.6 band.
func (c *Classifier) fallback(text, pendingQuestion string) *Classification {
	lower := strings.ToLower(text)

	if pendingQuestion != "" {
		return &Classification{
			Intent:     IntentRefinementReply,
			Confidence: 0.6,
			Reasoning:  "fallback: clarifying question pending",
		}
	}

	for _, marker := range orderMarkers {
		if strings.Contains(lower, marker) {
			return &Classification{
				Intent:     IntentOrderInquiry,
				Confidence: 0.6,
				Reasoning:  "fallback: order marker " + marker,
			}
		}
	}

	if knowledge.DetectProductType(lower) != "" || knowledge.DetectBrand(lower) != "" || len(knowledge.ExtractSpecs(lower)) > 0 {
		return &Classification{
			Intent:     IntentProductSearch,
			Confidence: 0.6,
			Reasoning:  "fallback: product vocabulary present",
		}
	}

	if onlyGreetingTokens(lower) {
		return &Classification{
			Intent:     IntentGreeting,
			Confidence: 0.6,
			Reasoning:  "fallback: greeting tokens only",
		}
	}

	return &Classification{
		Intent:     IntentGeneral,
		Confidence: 0.5,
		Reasoning:  "fallback: no signal",
	}
}

func onlyGreetingTokens(lower string) bool {
	fields := strings.Fields(lower)
	if len(fields) == 0 {
		return false
	}
	for _, f := range fields {
		if !greetingTokens[strings.Trim(f, ",.!¡¿?")] {
			return false
		}
	}
	return true
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
