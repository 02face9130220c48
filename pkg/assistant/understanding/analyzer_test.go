package understanding

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"

	"shop-assistant-be/pkg/assistant/intent"
	"shop-assistant-be/pkg/llm"
)

type fakeProvider struct {
	replies []string
	err     error
	calls   int
}

func (f *fakeProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return reply, nil
}

func (f *fakeProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return f.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options...)
}

func newAnalyzer(provider llm.LLMProvider) *Analyzer {
	logger := log.New(io.Discard, "", 0)
	return NewAnalyzer(llm.NewOracle(provider, 0, logger), logger)
}

func searchCls() *intent.Classification {
	return &intent.Classification{Intent: intent.IntentProductSearch, Confidence: 0.9}
}

func TestAnalyzeMergesOracleAndDeterministic(t *testing.T) {
	// Oracle sees the brand but misses the sensitivity spec present in
	// the text; the deterministic pass must fill it.
	provider := &fakeProvider{replies: []string{
		`{"product_type": "diferencial", "brand": "schneider", "specifications": {"current": "40A"}, "terms": ["rcd"], "confidence": 0.9}`,
	}}
	a := newAnalyzer(provider)

	pu := a.Analyze(context.Background(), "diferencial schneider 40a 30ma", searchCls())

	assert.Equal(t, "diferencial", pu.ProductType)
	assert.Equal(t, "schneider", pu.Brand)
	assert.Equal(t, "40A", pu.Specifications["current"])
	assert.Equal(t, "30mA", pu.Specifications["sensitivity"])
	assert.Equal(t, 0.9, pu.Confidence)
}

func TestAnalyzeOracleWinsOnConflict(t *testing.T) {
	provider := &fakeProvider{replies: []string{
		`{"product_type": "magnetotermico", "brand": "", "specifications": {"current": "16A"}, "terms": [], "confidence": 0.8}`,
	}}
	a := newAnalyzer(provider)

	// Deterministic extraction would read 10A here; the oracle value
	// for the same key takes precedence.
	pu := a.Analyze(context.Background(), "automatico 10a", searchCls())

	assert.Equal(t, "magnetotermico", pu.ProductType)
	assert.Equal(t, "16A", pu.Specifications["current"])
}

func TestAnalyzeDeterministicOnlyOnOracleFailure(t *testing.T) {
	provider := &fakeProvider{err: errors.New("connection refused")}
	a := newAnalyzer(provider)

	pu := a.Analyze(context.Background(), "cable 2.5mm legrand", searchCls())

	assert.Equal(t, "cable", pu.ProductType)
	assert.Equal(t, "legrand", pu.Brand)
	assert.Equal(t, "2.5mm", pu.Specifications["section"])
	assert.Equal(t, 0.6, pu.Confidence)
	assert.Equal(t, 1, provider.calls)
}

func TestAnalyzeNonSearchPassthrough(t *testing.T) {
	provider := &fakeProvider{}
	a := newAnalyzer(provider)

	pu := a.Analyze(context.Background(), "hola", &intent.Classification{Intent: intent.IntentGreeting, Confidence: 0.9})

	assert.Equal(t, "hola", pu.SearchQuery)
	assert.Equal(t, 0.5, pu.Confidence)
	assert.Zero(t, provider.calls)
}

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		name string
		pu   *ProductUnderstanding
		text string
		want string
	}{
		{
			name: "type brand and top two specs",
			pu: &ProductUnderstanding{
				ProductType: "diferencial",
				Brand:       "schneider",
				Specifications: map[string]string{
					"current":     "40A",
					"sensitivity": "30mA",
					"poles":       "2P",
				},
			},
			want: "diferencial schneider 40A 30mA",
		},
		{
			name: "section used when higher priority specs absent",
			pu: &ProductUnderstanding{
				ProductType:    "cable",
				Brand:          "legrand",
				Specifications: map[string]string{"section": "2.5mm"},
				SynonymTerms:   []string{"manguera", "hilo"},
			},
			want: "cable legrand 2.5mm",
		},
		{
			name: "short query padded with synonym terms",
			pu: &ProductUnderstanding{
				ProductType:    "cable",
				Specifications: map[string]string{},
				SynonymTerms:   []string{"manguera", "hilo", "conductor"},
			},
			want: "cable manguera hilo",
		},
		{
			name: "no type falls back to raw text",
			pu: &ProductUnderstanding{
				Specifications: map[string]string{},
			},
			text: "algo para el cuadro electrico",
			want: "algo para el cuadro electrico",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildSearchQuery(tt.pu, tt.text))
		})
	}
}
