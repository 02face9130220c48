// FILE: pkg/assistant/pipeline/executor.go
// PURPOSE: Sequences one conversational turn: classify, understand,
// retrieve, gate, refine. Tracks per-stage latency, enforces the
// iteration cap, and turns every failure into a graceful reply.

package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"shop-assistant-be/pkg/assistant/intent"
	"shop-assistant-be/pkg/assistant/quality"
	"shop-assistant-be/pkg/assistant/refine"
	"shop-assistant-be/pkg/assistant/search"
	"shop-assistant-be/pkg/assistant/understanding"
	"shop-assistant-be/pkg/llm"
	"shop-assistant-be/pkg/store"
)

// Reply is the outcome of one turn.
type Reply struct {
	Type     string            `json:"type"` // "question", "results" or "answer"
	Text     string            `json:"text"`
	Products []store.Candidate `json:"products,omitempty"`
	// Escalate asks the caller to notify customer care (complaints).
	Escalate bool `json:"-"`
}

const (
	ReplyQuestion = "question"
	ReplyResults  = "results"
	ReplyAnswer   = "answer"
)

// TurnRequest carries one inbound turn plus the short recent-turn window
// the caller loaded from the transcript.
type TurnRequest struct {
	SessionID  string
	UserID     string
	RawText    string
	ChannelTag string
	Recent     []llm.Message
}

// PipelineContext aggregates everything produced during one turn.
type PipelineContext struct {
	SessionID    string
	UserID       string
	ChannelTag   string
	RawText      string
	Intent       *intent.Classification
	Stage        string
	StageLatency map[string]time.Duration
	Errors       []string
	StartedAt    time.Time
}

func (pc *PipelineContext) timed(name string, fn func()) {
	start := time.Now()
	fn()
	pc.StageLatency[name] = time.Since(start)
}

// Collaborator contracts, satisfied by the concrete assistant packages.
type Classifier interface {
	Classify(ctx context.Context, text string, recent []llm.Message, pendingQuestion string) *intent.Classification
}

type Analyzer interface {
	Analyze(ctx context.Context, cleanedText string, cls *intent.Classification) *understanding.ProductUnderstanding
}

type Searcher interface {
	Search(ctx context.Context, pu *understanding.ProductUnderstanding, filters search.Filters) *search.Result
}

type Validator interface {
	Validate(ctx context.Context, pu *understanding.ProductUnderstanding, candidates []store.Candidate) *quality.ValidationResult
}

// SessionStore hands out refinement contexts under a single-writer-per-
// session discipline: Lock must be held for the whole turn.
type SessionStore interface {
	Lock(sessionID string) func()
	Get(sessionID string) (*store.RefinementContext, bool)
	Save(rc *store.RefinementContext)
	Evict(sessionID string)
}

const (
	defaultMaxIterations = 3
	defaultMaxQuestions  = 2
)

type Executor struct {
	classifier Classifier
	analyzer   Analyzer
	searcher   Searcher
	validator  Validator
	machine    *refine.Machine
	sessions   SessionStore
	logger     *log.Logger
}

func NewExecutor(classifier Classifier, analyzer Analyzer, searcher Searcher, validator Validator, machine *refine.Machine, sessions SessionStore, logger *log.Logger) *Executor {
	return &Executor{
		classifier: classifier,
		analyzer:   analyzer,
		searcher:   searcher,
		validator:  validator,
		machine:    machine,
		sessions:   sessions,
		logger:     logger,
	}
}

// HandleTurn runs the full pipeline for one turn. It never returns an
// empty reply and never panics outward.
func (e *Executor) HandleTurn(ctx context.Context, req *TurnRequest) (reply *Reply, pctx *PipelineContext) {
	pctx = &PipelineContext{
		SessionID:    req.SessionID,
		UserID:       req.UserID,
		ChannelTag:   req.ChannelTag,
		RawText:      req.RawText,
		StageLatency: make(map[string]time.Duration),
		StartedAt:    time.Now(),
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Printf("[PIPELINE] session=%s recovered: %v", req.SessionID, r)
			pctx.Errors = append(pctx.Errors, fmt.Sprintf("panic: %v", r))
			reply = &Reply{Type: ReplyAnswer, Text: msgApology}
		}
	}()

	unlock := e.sessions.Lock(req.SessionID)
	defer unlock()

	rc := e.loadContext(req)

	var cls *intent.Classification
	pctx.timed("classify", func() {
		cls = e.classifier.Classify(ctx, req.RawText, req.Recent, rc.PendingQuestion)
	})
	pctx.Intent = cls
	pctx.Stage = NextStage(cls.Intent, cls.Confidence)

	e.logger.Printf("[PIPELINE] session=%s intent=%s conf=%.2f stage=%s", req.SessionID, cls.Intent, cls.Confidence, pctx.Stage)

	switch pctx.Stage {
	case StageRefine:
		reply = e.refineTurn(ctx, pctx, rc, cls)
	case StageSearch:
		reply = e.searchTurn(ctx, pctx, rc, cls)
	default:
		reply = e.respondTurn(rc, cls)
	}

	if reply == nil || reply.Text == "" {
		reply = &Reply{Type: ReplyAnswer, Text: msgGeneral}
	}
	return reply, pctx
}

// loadContext fetches the session's refinement context, creating a fresh
// Idle one when none exists.
func (e *Executor) loadContext(req *TurnRequest) *store.RefinementContext {
	if rc, found := e.sessions.Get(req.SessionID); found {
		return rc
	}
	return &store.RefinementContext{
		SessionID:     req.SessionID,
		UserID:        req.UserID,
		State:         store.StateIdle,
		MaxIterations: defaultMaxIterations,
		MaxQuestions:  defaultMaxQuestions,
	}
}

// respondTurn is the terminal branch: canned response, no retrieval.
func (e *Executor) respondTurn(rc *store.RefinementContext, cls *intent.Classification) *Reply {
	reply := &Reply{Type: ReplyAnswer, Text: terminalMessage(cls.Intent)}
	if cls.Intent == intent.IntentComplaint {
		reply.Escalate = true
	}
	// A confirmation while a question is pending keeps the exchange
	// open; everything else leaves the session as it was.
	return reply
}

// searchTurn runs understanding, retrieval and the quality gate for a
// fresh search, opening a refinement exchange when the gate asks for one.
func (e *Executor) searchTurn(ctx context.Context, pctx *PipelineContext, rc *store.RefinementContext, cls *intent.Classification) *Reply {
	// A fresh search while an exchange is open starts a new topic.
	if rc.State != store.StateIdle {
		e.machine.Reset(rc)
	}

	var pu *understanding.ProductUnderstanding
	pctx.timed("understand", func() {
		pu = e.analyzer.Analyze(ctx, cls.CleanedText, cls)
	})

	var result *search.Result
	pctx.timed("search", func() {
		result = e.searcher.Search(ctx, pu, search.Filters{})
	})
	if result.Tag == search.TagError {
		pctx.Errors = append(pctx.Errors, "index unavailable")
		return &Reply{Type: ReplyAnswer, Text: msgIndexDown}
	}

	var validation *quality.ValidationResult
	pctx.timed("validate", func() {
		validation = e.validator.Validate(ctx, pu, result.Candidates)
	})

	if validation.NeedsRefinement && len(result.Candidates) == 0 {
		return &Reply{Type: ReplyQuestion, Text: validation.RefinementQuestion}
	}

	if validation.NeedsRefinement && !rc.BudgetExhausted() {
		rc.OriginalQuery = cls.CleanedText
		rc.ProductType = pu.ProductType
		if pu.Brand != "" {
			rc.SelectedBrand = pu.Brand
		}
		e.machine.Begin(rc, result.Candidates, validation.RefinementQuestion)
		e.sessions.Save(rc)
		return &Reply{Type: ReplyQuestion, Text: validation.RefinementQuestion}
	}

	// Show results: the session needs no open exchange anymore.
	e.sessions.Evict(rc.SessionID)
	if len(validation.ValidProducts) == 0 {
		return &Reply{Type: ReplyAnswer, Text: msgNoResults}
	}
	return &Reply{
		Type:     ReplyResults,
		Text:     resultsMessage(len(validation.ValidProducts)),
		Products: validation.ValidProducts,
	}
}

// refineTurn folds a reply into the open exchange and re-retrieves down
// the ladder.
func (e *Executor) refineTurn(ctx context.Context, pctx *PipelineContext, rc *store.RefinementContext, cls *intent.Classification) *Reply {
	if rc.PendingQuestion == "" && rc.State != store.StateAskingBrand && rc.State != store.StateAskingAttribute {
		// Nothing pending: treat the text as a fresh search.
		return e.searchTurn(ctx, pctx, rc, cls)
	}

	if !e.machine.HandleReply(rc, cls.CleanedText) {
		// Nothing usable in the reply; re-ask rather than searching.
		e.sessions.Save(rc)
		return &Reply{Type: ReplyQuestion, Text: rc.PendingQuestion}
	}

	var candidates []store.Candidate
	pctx.timed("reretrieve", func() {
		candidates = e.runLadder(ctx, rc)
	})

	if len(candidates) == 0 {
		e.machine.Conclude(rc, true, "")
		e.sessions.Evict(rc.SessionID)
		return &Reply{Type: ReplyAnswer, Text: noMatchMessage(rc.SelectedBrand)}
	}

	pu := &understanding.ProductUnderstanding{
		SearchQuery:    rc.RefinedQuery,
		ProductType:    rc.ProductType,
		Brand:          rc.SelectedBrand,
		Specifications: rc.SelectedAttributes,
		Confidence:     0.8,
	}

	var validation *quality.ValidationResult
	pctx.timed("validate", func() {
		validation = e.validator.Validate(ctx, pu, candidates)
	})

	// Once the budget is spent the gate can no longer ask: best-effort
	// results are shown.
	forced := rc.BudgetExhausted()
	acceptable := !validation.NeedsRefinement || forced

	e.machine.Conclude(rc, acceptable, validation.RefinementQuestion)

	if !acceptable && !rc.Terminal() {
		rc.LastResults = candidates
		rc.Facets = store.ComputeFacets(candidates)
		e.sessions.Save(rc)
		return &Reply{Type: ReplyQuestion, Text: rc.PendingQuestion}
	}

	e.sessions.Evict(rc.SessionID)
	products := validation.ValidProducts
	if len(products) == 0 {
		products = capProducts(candidates)
	}
	return &Reply{
		Type:     ReplyResults,
		Text:     resultsMessage(len(products)),
		Products: products,
	}
}

// runLadder walks the re-retrieval probes, stopping at the first
// non-empty rung. A selected brand is enforced on whatever comes back.
func (e *Executor) runLadder(ctx context.Context, rc *store.RefinementContext) []store.Candidate {
	for _, probe := range e.machine.Ladder(rc) {
		var candidates []store.Candidate

		if probe.FilterPrior {
			candidates = refine.FilterPrior(rc)
		} else {
			pu := &understanding.ProductUnderstanding{
				SearchQuery:    probe.Query,
				ProductType:    rc.ProductType,
				Brand:          probe.Brand,
				Specifications: rc.SelectedAttributes,
				Confidence:     0.8,
			}
			result := e.searcher.Search(ctx, pu, search.Filters{Brand: probe.Brand})
			candidates = result.Candidates
		}

		candidates = enforceBrand(candidates, rc.SelectedBrand)
		if len(candidates) > 0 {
			return candidates
		}
	}
	return nil
}

// enforceBrand drops candidates from other brands once the customer
// named one; an explicit no-match beats unrelated results.
func enforceBrand(candidates []store.Candidate, brand string) []store.Candidate {
	if brand == "" {
		return candidates
	}
	out := make([]store.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if strings.EqualFold(c.Brand, brand) {
			out = append(out, c)
		}
	}
	return out
}

const maxShownProducts = 10

func capProducts(candidates []store.Candidate) []store.Candidate {
	if len(candidates) > maxShownProducts {
		return candidates[:maxShownProducts]
	}
	return candidates
}
