// Package help implements the help pipeline: answer a user's question from
// the tenant's FAQ articles.
package help

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jonathan/campus-agents/internal/llm"
	"github.com/jonathan/campus-agents/internal/logging"
	"github.com/jonathan/campus-agents/internal/pipeline"
	"github.com/jonathan/campus-agents/internal/types"
)

// Name is the invocation name.
const Name = "help"

// Stage names.
const (
	StageFetchFAQ       = "fetch_faq"
	StageGenerateAnswer = "generate_answer"
	StageFinalize       = "finalize_response"
)

const (
	ArticleLimit     = 20
	MaxResponseChars = 500

	EmptyQueryResponse = "Please ask a question about CampusConnect (e.g. how to edit your profile, how matching works)."
	FallbackResponse   = "Sorry, I couldn't generate an answer right now. Try asking about profile settings, matching, or events."
	noArticlesContext  = "No FAQ articles in database. Use general knowledge about CampusConnect: profile editing, matching, events, safety."

	emptyQueryConfidence = 0.5
	fallbackConfidence   = 0.3
	defaultConfidence    = 0.8
)

// Repository supplies help articles. *store.Campus satisfies it.
type Repository interface {
	HelpArticles(ctx context.Context, tenantID string, limit int) ([]types.FAQArticle, error)
}

// State is the help pipeline record.
type State struct {
	pipeline.Status

	Query    string `json:"query"`
	UserID   string `json:"user_id,omitempty"`
	TenantID string `json:"tenant_id,omitempty"`

	FAQArticles []types.FAQArticle `json:"faq_articles,omitempty"`
	Response    string             `json:"response"`
	Sources     []string           `json:"sources"`
	Confidence  float64            `json:"confidence"`
}

// Pipeline holds the collaborators shared by every help run.
type Pipeline struct {
	repo      Repository
	augmenter llm.Augmenter
	logger    *slog.Logger
}

// New returns a help pipeline.
func New(repo Repository, augmenter llm.Augmenter, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logging.New(Name)
	}
	return &Pipeline{repo: repo, augmenter: augmenter, logger: logger}
}

// Definition returns the stage graph.
func (p *Pipeline) Definition() pipeline.Definition[State] {
	return pipeline.Definition[State]{
		Name:     Name,
		Entry:    StageFetchFAQ,
		Finalize: StageFinalize,
		Stages: []pipeline.Stage[State]{
			{Name: StageFetchFAQ, Run: p.fetchFAQ},
			{Name: StageGenerateAnswer, Run: p.generateAnswer},
			{Name: StageFinalize, Run: p.finalize},
		},
		Edges: []pipeline.Edge{
			{From: StageFetchFAQ, To: StageGenerateAnswer},
			{From: StageGenerateAnswer, To: StageFinalize},
		},
	}
}

// Graph builds the validated graph.
func (p *Pipeline) Graph(opts ...pipeline.Option) (*pipeline.Graph[State], error) {
	return pipeline.New(p.Definition(), opts...)
}

// Runner returns the pipeline bound for registry use.
func (p *Pipeline) Runner(opts ...pipeline.Option) (pipeline.Runner, error) {
	g, err := p.Graph(opts...)
	if err != nil {
		return nil, err
	}
	return pipeline.Bind(g, nil), nil
}

// fetchFAQ never fails the run; without a tenant or a store the answer is
// generated from general knowledge.
func (p *Pipeline) fetchFAQ(ctx context.Context, s State) (State, error) {
	s.FAQArticles = []types.FAQArticle{}
	if s.TenantID == "" || p.repo == nil {
		return s, nil
	}
	articles, err := p.repo.HelpArticles(ctx, s.TenantID, ArticleLimit)
	if err != nil {
		p.logger.Warn("could not fetch FAQ articles", "tenant_id", s.TenantID, "error", err)
		return s, nil
	}
	s.FAQArticles = articles
	return s, nil
}

func (p *Pipeline) generateAnswer(ctx context.Context, s State) (State, error) {
	query := strings.TrimSpace(s.Query)
	if query == "" {
		s.Response = EmptyQueryResponse
		s.Sources = []string{}
		s.Confidence = emptyQueryConfidence
		return s, nil
	}

	res := llm.Invoke[llm.HelpOutput](ctx, p.augmenter, llm.HelpAnswer, map[string]string{
		"Articles": articleContext(s.FAQArticles),
		"Query":    query,
	})
	response := strings.TrimSpace(res.Value.Response)
	if !res.OK() || response == "" {
		p.logger.Warn("help answer failed, using fallback", "error", res.Err)
		s.Response = FallbackResponse
		s.Sources = []string{}
		s.Confidence = fallbackConfidence
		return s, nil
	}

	confidence := defaultConfidence
	if res.Value.Confidence != nil {
		confidence = min(max(*res.Value.Confidence, 0), 1)
	}
	sources := res.Value.Sources
	if sources == nil {
		sources = []string{}
	}

	s.Response = truncate(response, MaxResponseChars)
	s.Sources = sources
	s.Confidence = confidence
	return s, nil
}

func (p *Pipeline) finalize(_ context.Context, s State) (State, error) {
	if s.Sources == nil {
		s.Sources = []string{}
	}
	return s, nil
}

func articleContext(articles []types.FAQArticle) string {
	if len(articles) == 0 {
		return noArticlesContext
	}
	var b strings.Builder
	b.WriteString("Relevant FAQ/help articles:\n")
	for _, a := range articles {
		fmt.Fprintf(&b, "- [%s] Q: %s A: %s\n", a.ID, a.Question, a.Answer)
	}
	return b.String()
}

// truncate shortens s to at most limit characters, ending in "...".
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
