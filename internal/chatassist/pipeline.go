// Package chatassist implements the chat assistant pipeline: list the
// user's conversations, summarise one, or draft a reply. Drafts are
// returned to the caller and never sent.
package chatassist

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jonathan/campus-agents/internal/chatapi"
	"github.com/jonathan/campus-agents/internal/llm"
	"github.com/jonathan/campus-agents/internal/logging"
	"github.com/jonathan/campus-agents/internal/pipeline"
	"github.com/jonathan/campus-agents/internal/types"
)

// Name is the invocation name.
const Name = "chat_assistant"

// Stage names.
const (
	StageValidate  = "validate_input"
	StageList      = "list_conversations"
	StageSummarise = "summarise_conversation"
	StageDraft     = "generate_draft_reply"
	StageFinalize  = "finalize_response"
)

const (
	ListLimit       = 50
	SummaryLimit    = 50
	DraftLimit      = 20
	DefaultHint     = "friendly and natural"
	EmptySummary    = "No messages in this conversation yet."
	EmptyDraft      = "Hi! How can I help?"
	FallbackDraft   = "Hi! How can I help?"
	FallbackSummary = "Sorry, I couldn't summarise this conversation right now."
)

// Backend is the chat REST API. *chatapi.Client satisfies it.
type Backend interface {
	ListConversations(ctx context.Context, token string, limit, offset int) (chatapi.ConversationList, error)
	Conversation(ctx context.Context, token, conversationID string) (map[string]any, error)
	Messages(ctx context.Context, token, conversationID string, limit int, before string) ([]types.ChatMessage, error)
}

// Pipeline holds the collaborators shared by every chat assistant run.
type Pipeline struct {
	backend   Backend
	augmenter llm.Augmenter
	logger    *slog.Logger
}

// New returns a chat assistant pipeline.
func New(backend Backend, augmenter llm.Augmenter, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logging.New(Name)
	}
	return &Pipeline{backend: backend, augmenter: augmenter, logger: logger}
}

// Definition returns the stage graph.
func (p *Pipeline) Definition() pipeline.Definition[State] {
	return pipeline.Definition[State]{
		Name:     Name,
		Entry:    StageValidate,
		Finalize: StageFinalize,
		Stages: []pipeline.Stage[State]{
			{Name: StageValidate, Run: p.validateInput},
			{Name: StageList, Run: p.listConversations},
			{Name: StageSummarise, Run: p.summariseConversation},
			{Name: StageDraft, Run: p.draftReply},
			{Name: StageFinalize, Run: p.finalize},
		},
		Edges: []pipeline.Edge{
			{From: StageList, To: StageFinalize},
			{From: StageSummarise, To: StageFinalize},
			{From: StageDraft, To: StageFinalize},
		},
		Branches: []pipeline.Branch[State]{
			{
				From:    StageValidate,
				Targets: []string{StageList, StageSummarise, StageDraft},
				Route:   routeAction,
			},
		},
	}
}

// routeAction only sees validated input; a failed validation goes
// straight to finalize.
func routeAction(s State) string {
	switch s.Action {
	case ActionSummarise:
		return StageSummarise
	case ActionDraft:
		return StageDraft
	default:
		return StageList
	}
}

// Graph builds the validated graph.
func (p *Pipeline) Graph(opts ...pipeline.Option) (*pipeline.Graph[State], error) {
	return pipeline.New(p.Definition(), opts...)
}

// Runner returns the pipeline bound for registry use. Requests without an
// auth token or user id are rejected before the pipeline runs.
func (p *Pipeline) Runner(opts ...pipeline.Option) (pipeline.Runner, error) {
	g, err := p.Graph(opts...)
	if err != nil {
		return nil, err
	}
	return pipeline.Bind(g, Precheck), nil
}

// Precheck rejects input missing the caller's identity.
func Precheck(s State) error {
	if strings.TrimSpace(s.AuthToken) == "" || strings.TrimSpace(s.UserID) == "" {
		return errors.New("chat_assistant requires auth_token and user_id in input")
	}
	return nil
}
