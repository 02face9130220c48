package store

// Candidate represents one catalog item returned by a retrieval strategy
type Candidate struct {
	ID             string            `json:"id"` // Catalog ID (SKU)
	Name           string            `json:"name"`
	Brand          string            `json:"brand"`
	Category       string            `json:"category"`
	Price          float64           `json:"price"`
	Stock          int               `json:"stock"`
	Specs          map[string]string `json:"specs,omitempty"`
	Score          float64           `json:"score"`           // Retrieval score (strategy-dependent)
	RelevanceScore float64           `json:"relevance_score"` // Set by the quality gate
	Strategy       string            `json:"strategy"`        // Originating strategy
}

// Facets holds the distinct attribute values observed across a result set.
// They are used to build clarifying questions that enumerate real options.
type Facets struct {
	Brands     []string            `json:"brands"`
	Attributes map[string][]string `json:"attributes"`
}

// RefinementContext is the per-session refinement state.
// Exclusively owned by the refinement state machine; accessed under a
// single-writer-per-session discipline.
type RefinementContext struct {
	SessionID     string `json:"session_id"`
	UserID        string `json:"user_id"`
	OriginalQuery string `json:"original_query"`
	RefinedQuery  string `json:"refined_query"`
	State         string `json:"state"`

	IterationCount int `json:"iteration_count"`
	MaxIterations  int `json:"max_iterations"`
	QuestionsAsked int `json:"questions_asked"`
	MaxQuestions   int `json:"max_questions"`

	ProductType        string            `json:"product_type"`
	SelectedBrand      string            `json:"selected_brand"`
	SelectedAttributes map[string]string `json:"selected_attributes"`

	PendingQuestion string      `json:"pending_question"`
	LastResults     []Candidate `json:"last_results"`
	Facets          Facets      `json:"facets"`
}

const (
	StateIdle            = "IDLE"
	StateAskingBrand     = "ASKING_BRAND"
	StateAskingAttribute = "ASKING_ATTRIBUTE"
	StateRefined         = "REFINED"
	StateCompleted       = "COMPLETED"
)

// Terminal reports whether the refinement exchange is finished.
func (c *RefinementContext) Terminal() bool {
	return c.State == StateCompleted
}

// BudgetExhausted reports that no further clarifying cycle is allowed,
// either because the iteration cap or the question cap was reached.
func (c *RefinementContext) BudgetExhausted() bool {
	return c.IterationCount >= c.MaxIterations || c.QuestionsAsked >= c.MaxQuestions
}
