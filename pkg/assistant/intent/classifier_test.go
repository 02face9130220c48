package intent

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"shop-assistant-be/pkg/llm"
)

type fakeProvider struct {
	reply string
	err   error
}

func (f *fakeProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return f.Chat(ctx, nil, options...)
}

func newClassifier(provider llm.LLMProvider) *Classifier {
	logger := log.New(io.Discard, "", 0)
	return NewClassifier(llm.NewOracle(provider, time.Second, logger), logger)
}

func TestClassifyOraclePath(t *testing.T) {
	c := newClassifier(&fakeProvider{reply: `{"intent": "product_search", "confidence": 0.95, "reasoning": "busca producto"}`})

	got := c.Classify(context.Background(), "necesito un diferencial", nil, "")
	if got.Intent != IntentProductSearch {
		t.Errorf("intent = %q, want product_search", got.Intent)
	}
	if got.Confidence != 0.95 {
		t.Errorf("confidence = %v", got.Confidence)
	}
	if got.CleanedText != "diferencial" {
		t.Errorf("cleaned = %q, want \"diferencial\"", got.CleanedText)
	}
	if len(got.RemovedTokens) != 2 {
		t.Errorf("removed = %v, want [necesito un]", got.RemovedTokens)
	}
}

func TestClassifyUnknownLabelDowngradesToGeneral(t *testing.T) {
	c := newClassifier(&fakeProvider{reply: `{"intent": "buy_now", "confidence": 0.9}`})

	got := c.Classify(context.Background(), "algo raro", nil, "")
	if got.Intent != IntentGeneral {
		t.Errorf("intent = %q, want general", got.Intent)
	}
}

func TestClassifyFallbackHeuristics(t *testing.T) {
	c := newClassifier(&fakeProvider{err: errors.New("timeout")})

	tests := []struct {
		text string
		want string
	}{
		{"donde esta mi pedido", IntentOrderInquiry},
		{"necesito un diferencial", IntentProductSearch},
		{"cable 2.5mm schneider", IntentProductSearch},
		{"hola buenas", IntentGreeting},
		{"cuentame un chiste", IntentGeneral},
	}

	for _, tt := range tests {
		got := c.Classify(context.Background(), tt.text, nil, "")
		if got.Intent != tt.want {
			t.Errorf("Classify(%q) = %q, want %q", tt.text, got.Intent, tt.want)
		}
		if got.Confidence < 0.5 || got.Confidence > 0.6 {
			t.Errorf("Classify(%q) fallback confidence = %v, want within [0.5, 0.6]", tt.text, got.Confidence)
		}
	}
}

func TestClassifyPendingQuestionRelabelsReply(t *testing.T) {
	// Oracle labels the reply as a fresh search, but a clarifying question
	// is pending and the text names no product type.
	c := newClassifier(&fakeProvider{reply: `{"intent": "product_search", "confidence": 0.8}`})

	got := c.Classify(context.Background(), "schneider 40A", nil, "¿De qué marca lo quieres?")
	if got.Intent != IntentRefinementReply {
		t.Errorf("intent = %q, want refinement_reply", got.Intent)
	}
}

func TestClassifyOkWhileQuestionPending(t *testing.T) {
	c := newClassifier(&fakeProvider{err: errors.New("oracle down")})

	got := c.Classify(context.Background(), "ok", nil, "¿Cuántos amperios necesitas?")
	if got.Intent != IntentRefinementReply {
		t.Errorf("intent = %q, want refinement_reply", got.Intent)
	}
}

func TestStripLeadingFiller(t *testing.T) {
	tests := []struct {
		text        string
		wantCleaned string
		wantRemoved int
	}{
		{"hola, necesito un diferencial", "diferencial", 3},
		{"por favor dame una lampara de 60w", "lampara de 60w", 4},
		{"schneider 40A", "schneider 40A", 0},
		{"hola buenas", "hola buenas", 0}, // all filler: keep verbatim
		{"", "", 0},
	}

	for _, tt := range tests {
		cleaned, removed := stripLeadingFiller(tt.text)
		if cleaned != tt.wantCleaned {
			t.Errorf("stripLeadingFiller(%q) cleaned = %q, want %q", tt.text, cleaned, tt.wantCleaned)
		}
		if len(removed) != tt.wantRemoved {
			t.Errorf("stripLeadingFiller(%q) removed %d tokens, want %d", tt.text, len(removed), tt.wantRemoved)
		}
	}
}
