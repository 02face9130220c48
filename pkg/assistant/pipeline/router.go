// FILE: pkg/assistant/pipeline/router.go
// PURPOSE: Pure routing from (intent, confidence) to the pipeline stage
// that handles the turn. No oracle calls, no state.

package pipeline

import "shop-assistant-be/pkg/assistant/intent"

// Pipeline stages.
const (
	StageRespond = "RESPOND" // terminal response, retrieval bypassed
	StageSearch  = "SEARCH"  // full understanding + retrieval + gate flow
	StageRefine  = "REFINE"  // fold a reply into the pending refinement
)

// lowConfidenceFloor is the confidence below which a search intent is
// not worth a retrieval round trip; the turn gets a clarifying terminal
// response instead. The deterministic classifier fallback sits above it.
const lowConfidenceFloor = 0.3

// NextStage maps one classified intent to its stage. Pure function.
func NextStage(label string, confidence float64) string {
	switch label {
	case intent.IntentProductSearch, intent.IntentPriceInquiry, intent.IntentStockInquiry:
		if confidence < lowConfidenceFloor {
			return StageRespond
		}
		return StageSearch
	case intent.IntentRefinementReply:
		return StageRefine
	}
	// Greetings, confirmations, help, complaints, order questions and
	// general chatter all end in a terminal response.
	return StageRespond
}
